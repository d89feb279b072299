package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-shop-sync/internal/discount"
	"github.com/tbourn/go-shop-sync/internal/domain"
	"github.com/tbourn/go-shop-sync/internal/order"
	"github.com/tbourn/go-shop-sync/internal/services"
)

var errLogin = order.ErrLoginRequired

// ---------- catalog stub ----------

type stubCatalog struct {
	fetchErr   error
	products   services.Snapshot[domain.Product]
	categories services.Snapshot[domain.Category]
	lastFilter domain.ProductFilters
	lastForce  bool

	product    domain.Product
	productErr error
	section    domain.SectionDetail
	sectionErr error
	hits       []domain.Product
	searchErr  error
	addresses  []domain.Address
	refreshErr error
	refreshed  int
}

func (s *stubCatalog) FetchCategories(_ context.Context, force bool) ([]domain.Category, error) {
	s.lastForce = force
	return s.categories.Items, s.fetchErr
}

func (s *stubCatalog) FetchTags(context.Context, bool) ([]domain.Tag, error) { return nil, s.fetchErr }

func (s *stubCatalog) FetchSections(context.Context, bool) ([]domain.Section, error) {
	return nil, s.fetchErr
}

func (s *stubCatalog) FetchProducts(_ context.Context, f domain.ProductFilters, force bool) ([]domain.Product, error) {
	s.lastFilter, s.lastForce = f, force
	return s.products.Items, s.fetchErr
}

func (s *stubCatalog) Categories() services.Snapshot[domain.Category] { return s.categories }
func (s *stubCatalog) Tags() services.Snapshot[domain.Tag]             { return services.Snapshot[domain.Tag]{} }
func (s *stubCatalog) Sections() services.Snapshot[domain.Section] {
	return services.Snapshot[domain.Section]{}
}

func (s *stubCatalog) Products(domain.ProductFilters) services.Snapshot[domain.Product] {
	return s.products
}

func (s *stubCatalog) Product(context.Context, string) (domain.Product, error) {
	return s.product, s.productErr
}

func (s *stubCatalog) SectionDetail(context.Context, string) (domain.SectionDetail, error) {
	return s.section, s.sectionErr
}

func (s *stubCatalog) SearchLocal(string, int) ([]domain.Product, error) { return s.hits, s.searchErr }

func (s *stubCatalog) Addresses(context.Context) ([]domain.Address, error) { return s.addresses, nil }

func (s *stubCatalog) RefreshAll(context.Context) error {
	s.refreshed++
	return s.refreshErr
}

// ---------- discount stub ----------

type stubDiscounts struct {
	evalDiscount domain.Discount
	evalResult   discount.Result
	err          error
	applied      *domain.AppliedDiscount
	lastCode     string
	lastTotal    int64
}

func (s *stubDiscounts) Evaluate(_ context.Context, code string, total int64) (domain.Discount, discount.Result, error) {
	s.lastCode, s.lastTotal = code, total
	return s.evalDiscount, s.evalResult, s.err
}

func (s *stubDiscounts) Apply(_ context.Context, code string, total int64) (*domain.AppliedDiscount, error) {
	s.lastCode, s.lastTotal = code, total
	return s.applied, s.err
}

func (s *stubDiscounts) Active(_ context.Context, total int64) (*domain.AppliedDiscount, error) {
	s.lastTotal = total
	return s.applied, s.err
}

func (s *stubDiscounts) Remove(context.Context) error { return s.err }

// ---------- order stub ----------

type stubOrders struct {
	draft   services.Draft
	err     error
	lastID  string
	lastKey string
	lastArg any
}

func (s *stubOrders) result(id string) (services.Draft, error) {
	s.lastID = id
	d := s.draft
	d.ID = id
	return d, s.err
}

func (s *stubOrders) Open(ctx context.Context, productID string, qty int) (services.Draft, error) {
	if _, ok := domain.UserFromCtx(ctx); !ok {
		return services.Draft{}, errLogin
	}
	s.lastArg = [2]any{productID, qty}
	return s.result("d1")
}

func (s *stubOrders) Get(_ context.Context, id string) (services.Draft, error) { return s.result(id) }
func (s *stubOrders) ToShipping(_ context.Context, id string) (services.Draft, error) {
	return s.result(id)
}

func (s *stubOrders) SelectAddress(_ context.Context, id, addressID string) (services.Draft, error) {
	s.lastArg = addressID
	return s.result(id)
}

func (s *stubOrders) AddAddress(_ context.Context, id string, a domain.Address) (services.Draft, error) {
	s.lastArg = a
	return s.result(id)
}

func (s *stubOrders) Back(_ context.Context, id string) (services.Draft, error) { return s.result(id) }

func (s *stubOrders) SetFields(_ context.Context, id string, values map[string]any) (services.Draft, error) {
	s.lastArg = values
	return s.result(id)
}

func (s *stubOrders) FromShipping(_ context.Context, id, key string) (services.Draft, error) {
	s.lastKey = key
	return s.result(id)
}

func (s *stubOrders) Submit(_ context.Context, id, key string) (services.Draft, error) {
	s.lastKey = key
	return s.result(id)
}

func (s *stubOrders) Close(_ context.Context, id string) error {
	s.lastID = id
	return s.err
}

// ---------- helpers ----------

// newTestRouter mounts every handler the way the application router does,
// minus the middleware. An "X-Test-User" header authenticates the request.
func newTestRouter(cat CatalogService, disc DiscountService, ord OrderService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(cat, disc, ord, "/login")
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-test")
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			u := domain.User{ID: uid, Token: "tok"}
			c.Request = c.Request.WithContext(domain.WithUser(c.Request.Context(), u))
		}
		c.Next()
	})

	r.GET("/catalog/products", h.ListProducts)
	r.GET("/catalog/products/:id", h.GetProduct)
	r.GET("/catalog/categories", h.ListCategories)
	r.GET("/catalog/tags", h.ListTags)
	r.GET("/catalog/sections", h.ListSections)
	r.GET("/catalog/sections/:id", h.GetSection)
	r.GET("/catalog/search", h.SearchProducts)
	r.POST("/catalog/refresh", h.RefreshCatalog)
	r.GET("/me", h.Me)
	r.GET("/me/addresses", h.ListAddresses)

	r.POST("/discounts/evaluate", h.EvaluateDiscount)
	r.GET("/cart/discount", h.GetCartDiscount)
	r.POST("/cart/discount", h.ApplyCartDiscount)
	r.DELETE("/cart/discount", h.RemoveCartDiscount)

	r.POST("/orders", h.OpenOrder)
	r.GET("/orders/:id", h.GetOrder)
	r.DELETE("/orders/:id", h.CloseOrder)
	r.POST("/orders/:id/shipping", h.ToShipping)
	r.POST("/orders/:id/shipping/next", h.NextFromShipping)
	r.PUT("/orders/:id/address", h.SelectAddress)
	r.POST("/orders/:id/addresses", h.AddAddress)
	r.PUT("/orders/:id/fields", h.SetFields)
	r.POST("/orders/:id/submit", h.SubmitOrder)
	r.POST("/orders/:id/back", h.BackOrder)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Buffer
	if body != "" {
		rd = bytes.NewBufferString(body)
	} else {
		rd = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("json: %v (body=%s)", err, w.Body.String())
	}
	return v
}

package handlers

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-shop-sync/internal/domain"
	"github.com/tbourn/go-shop-sync/internal/order"
	"github.com/tbourn/go-shop-sync/internal/services"
	"github.com/tbourn/go-shop-sync/internal/utils"
)

//
// DTOs
//

// ProductsResponse is a page of the derived product listing.
type ProductsResponse struct {
	Items     []domain.Product      `json:"items"`
	Filters   domain.ProductFilters `json:"filters"`
	Stale     bool                  `json:"stale,omitempty"`
	Error     string                `json:"error,omitempty"`
	Version   uint64                `json:"version"`
	UpdatedAt string                `json:"updated_at,omitempty"`
}

// SearchResponse holds local search hits.
type SearchResponse struct {
	Query string           `json:"query"`
	Items []domain.Product `json:"items"`
}

//
// Helpers
//

// productFilters reads the listing filters from the query string. tags is a
// comma-separated list.
func productFilters(c *gin.Context) domain.ProductFilters {
	const maxLimit = 100
	return domain.ProductFilters{
		Category: strings.TrimSpace(c.Query("category")),
		Search:   strings.TrimSpace(c.Query("search")),
		Tags:     utils.SplitList(c.Query("tags")),
		Page:     utils.IntInRange(c.Query("page"), 1, 1, math.MaxInt32),
		Limit:    utils.IntInRange(c.Query("limit"), 0, 0, maxLimit),
	}
}

func forceRefresh(c *gin.Context) bool {
	v := strings.ToLower(c.Query("refresh"))
	return v == "1" || v == "true"
}

// snapshotOrFail answers with the collection snapshot. A failed refresh still
// answers 200 while earlier items exist, flagging the payload as stale; with
// nothing to show it is an upstream error.
func snapshotOrFail[T any](h *Handlers, c *gin.Context, sn services.Snapshot[T], err error) {
	if err != nil && len(sn.Items) == 0 {
		h.writeError(c, err)
		return
	}
	if sn.Items == nil {
		sn.Items = []T{}
	}
	if err != nil {
		c.Header("Warning", `110 - "Response is Stale"`)
	}
	ok(c, http.StatusOK, sn)
}

//
// Handlers
//

// ListProducts godoc
// @ID          listProducts
// @Summary     List products
// @Description Returns the product listing for the filters, with tag names and badge resolved. Served from the cache while fresh; refresh=true forces an upstream fetch. When upstream fails but cached items exist, they are returned with stale=true.
// @Tags        Catalog
// @Produce     json
//
// @Param       category  query  string  false "Category id (\"all\" for none)"  example(3)
// @Param       search    query  string  false "Upstream search text"
// @Param       tags      query  string  false "Comma-separated tag ids"          example(t1,t2)
// @Param       page      query  int     false "Page number"                      minimum(1) default(1)
// @Param       limit     query  int     false "Items per page (0 = upstream default)" minimum(0) maximum(100)
// @Param       refresh   query  bool    false "Bypass the cache"
//
// @Success     200  {object}  handlers.ProductsResponse
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream unavailable"
// @Router      /catalog/products [get]
func (h *Handlers) ListProducts(c *gin.Context) {
	f := productFilters(c)
	_, err := h.catalog.FetchProducts(c.Request.Context(), f, forceRefresh(c))
	sn := h.catalog.Products(f)
	if err != nil && len(sn.Items) == 0 {
		h.writeError(c, err)
		return
	}

	resp := ProductsResponse{
		Items:   sn.Items,
		Filters: f,
		Error:   sn.Error,
		Version: sn.Version,
	}
	if resp.Items == nil {
		resp.Items = []domain.Product{}
	}
	if err != nil {
		resp.Stale = true
		resp.Error = err.Error()
	}
	if !sn.UpdatedAt.IsZero() {
		resp.UpdatedAt = sn.UpdatedAt.UTC().Format(time.RFC3339)
	}
	ok(c, http.StatusOK, resp)
}

// GetProduct godoc
// @ID          getProduct
// @Summary     Get a product
// @Tags        Catalog
// @Produce     json
// @Param       id   path  string  true  "Product ID"
// @Success     200  {object}  domain.Product
// @Failure     404  {object}  handlers.ErrorResponse  "Product not found"
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream unavailable"
// @Router      /catalog/products/{id} [get]
func (h *Handlers) GetProduct(c *gin.Context) {
	p, err := h.catalog.Product(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// ListCategories godoc
// @ID          listCategories
// @Summary     List categories
// @Description The first item is always the "All Categories" entry with id "all".
// @Tags        Catalog
// @Produce     json
// @Param       refresh  query  bool  false "Bypass the cache"
// @Success     200  {object}  services.Snapshot[domain.Category]
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream unavailable"
// @Router      /catalog/categories [get]
func (h *Handlers) ListCategories(c *gin.Context) {
	_, err := h.catalog.FetchCategories(c.Request.Context(), forceRefresh(c))
	snapshotOrFail(h, c, h.catalog.Categories(), err)
}

// ListTags godoc
// @ID          listTags
// @Summary     List tags
// @Tags        Catalog
// @Produce     json
// @Param       refresh  query  bool  false "Bypass the cache"
// @Success     200  {object}  services.Snapshot[domain.Tag]
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream unavailable"
// @Router      /catalog/tags [get]
func (h *Handlers) ListTags(c *gin.Context) {
	_, err := h.catalog.FetchTags(c.Request.Context(), forceRefresh(c))
	snapshotOrFail(h, c, h.catalog.Tags(), err)
}

// ListSections godoc
// @ID          listSections
// @Summary     List storefront sections
// @Tags        Catalog
// @Produce     json
// @Param       refresh  query  bool  false "Bypass the cache"
// @Success     200  {object}  services.Snapshot[domain.Section]
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream unavailable"
// @Router      /catalog/sections [get]
func (h *Handlers) ListSections(c *gin.Context) {
	_, err := h.catalog.FetchSections(c.Request.Context(), forceRefresh(c))
	snapshotOrFail(h, c, h.catalog.Sections(), err)
}

// GetSection godoc
// @ID          getSection
// @Summary     Get a section with its products
// @Tags        Catalog
// @Produce     json
// @Param       id   path  string  true  "Section ID"
// @Success     200  {object}  domain.SectionDetail
// @Failure     404  {object}  handlers.ErrorResponse  "Section not found"
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream unavailable"
// @Router      /catalog/sections/{id} [get]
func (h *Handlers) GetSection(c *gin.Context) {
	sd, err := h.catalog.SectionDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, sd)
}

// SearchProducts godoc
// @ID          searchProducts
// @Summary     Search cached products
// @Description Ranks every product listing loaded so far against q without contacting upstream.
// @Tags        Catalog
// @Produce     json
// @Param       q    query  string  true  "Search text"       example(steel sword)
// @Param       k    query  int     false "Max results"       minimum(1) maximum(50) default(10)
// @Success     200  {object}  handlers.SearchResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Empty query"
// @Router      /catalog/search [get]
func (h *Handlers) SearchProducts(c *gin.Context) {
	const maxK = 50

	q := c.Query("q")
	k := utils.IntInRange(c.Query("k"), 10, 1, maxK)
	items, err := h.catalog.SearchLocal(q, k)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if items == nil {
		items = []domain.Product{}
	}
	ok(c, http.StatusOK, SearchResponse{Query: strings.TrimSpace(q), Items: items})
}

// RefreshCatalog godoc
// @ID          refreshCatalog
// @Summary     Refetch the whole catalog
// @Description Forces categories, tags, sections and every product listing seen so far to refetch from upstream.
// @Tags        Catalog
// @Success     204  {string}  string "No Content"
// @Failure     429  {object}  handlers.ErrorResponse  "Too many requests"
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream unavailable"
// @Router      /catalog/refresh [post]
func (h *Handlers) RefreshCatalog(c *gin.Context) {
	if err := h.catalog.RefreshAll(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	noContent(c)
}

// ListAddresses godoc
// @ID          listAddresses
// @Summary     List the user's shipping addresses
// @Tags        Account
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}   domain.Address
// @Failure     401  {object}  handlers.LoginRequiredResponse  "Login required"
// @Failure     502  {object}  handlers.ErrorResponse          "Upstream unavailable"
// @Router      /me/addresses [get]
func (h *Handlers) ListAddresses(c *gin.Context) {
	ctx := c.Request.Context()
	if _, authed := domain.UserFromCtx(ctx); !authed {
		h.writeError(c, order.ErrLoginRequired)
		return
	}
	addrs, err := h.catalog.Addresses(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if addrs == nil {
		addrs = []domain.Address{}
	}
	ok(c, http.StatusOK, addrs)
}

// Me godoc
// @ID          me
// @Summary     Current user
// @Tags        Account
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.MeResponse
// @Failure     401  {object}  handlers.LoginRequiredResponse  "Login required"
// @Router      /me [get]
func (h *Handlers) Me(c *gin.Context) {
	u, authed := domain.UserFromCtx(c.Request.Context())
	if !authed {
		h.writeError(c, order.ErrLoginRequired)
		return
	}
	ok(c, http.StatusOK, MeResponse{ID: u.ID, Login: u.Login})
}

// MeResponse describes the authenticated user. The token is never echoed.
type MeResponse struct {
	ID    string `json:"id"`
	Login string `json:"login,omitempty"`
}

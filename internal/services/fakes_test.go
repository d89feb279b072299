package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-shop-sync/internal/cache"
	"github.com/tbourn/go-shop-sync/internal/domain"
	"github.com/tbourn/go-shop-sync/internal/inflight"
	"github.com/tbourn/go-shop-sync/internal/shopapi"
)

// ----- Fake upstream -----

type fakeShop struct {
	mu    sync.Mutex
	calls map[string]int

	// gate, when set, blocks list fetches until closed.
	gate chan struct{}

	categories []domain.Category
	tags       []domain.Tag
	sections   []domain.Section
	products   map[string][]domain.Product // by search text
	product    map[string]domain.Product
	addresses  []domain.Address
	discounts  map[string]domain.Discount
	listErr    error
	cartErr    error
	cart       []domain.CartItem
}

func newFakeShop() *fakeShop {
	return &fakeShop{
		calls:      map[string]int{},
		categories: []domain.Category{{ID: "1", Name: "Games"}, {ID: "2", Name: "Gift cards"}},
		tags:       []domain.Tag{{ID: "t1", Name: "featured"}, {ID: "t2", Name: "Sale"}, {ID: "t3", Name: "Rare"}},
		sections:   []domain.Section{{ID: "s1", Title: "Top"}},
		products: map[string][]domain.Product{
			"": {
				{ID: "p1", Title: "Steel sword", TagIDs: []string{"t3", "t2"}},
				{ID: "p2", Title: "Wooden shield", TagIDs: []string{"t1", "t2"}},
				{ID: "p3", Title: "Plain rock"},
			},
			"sword": {{ID: "p1", Title: "Steel sword", TagIDs: []string{"t3", "t2"}}},
		},
		product:   map[string]domain.Product{},
		addresses: []domain.Address{{ID: "a1", Title: "Home"}},
		discounts: map[string]domain.Discount{},
	}
}

func (f *fakeShop) hit(name string) error {
	f.mu.Lock()
	f.calls[name]++
	gate, err := f.gate, f.listErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeShop) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeShop) GetProducts(_ context.Context, fl domain.ProductFilters) ([]domain.Product, error) {
	if err := f.hit("products"); err != nil {
		return nil, err
	}
	return f.products[fl.Search], nil
}

func (f *fakeShop) GetProduct(_ context.Context, id string) (domain.Product, error) {
	f.mu.Lock()
	f.calls["product"]++
	p, ok := f.product[id]
	f.mu.Unlock()
	if !ok {
		return domain.Product{}, &shopapi.APIError{Status: 404}
	}
	return p, nil
}

func (f *fakeShop) GetCategories(context.Context) ([]domain.Category, error) {
	if err := f.hit("categories"); err != nil {
		return nil, err
	}
	return f.categories, nil
}

func (f *fakeShop) GetTags(context.Context) ([]domain.Tag, error) {
	if err := f.hit("tags"); err != nil {
		return nil, err
	}
	return f.tags, nil
}

func (f *fakeShop) GetSections(context.Context) ([]domain.Section, error) {
	if err := f.hit("sections"); err != nil {
		return nil, err
	}
	return f.sections, nil
}

func (f *fakeShop) GetSectionDetail(_ context.Context, id string) (domain.SectionDetail, error) {
	if id != "s1" {
		return domain.SectionDetail{}, &shopapi.APIError{Status: 404}
	}
	return domain.SectionDetail{Section: f.sections[0], Products: f.products[""][:1]}, nil
}

func (f *fakeShop) GetAddresses(context.Context) ([]domain.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["addresses"]++
	return append([]domain.Address(nil), f.addresses...), nil
}

func (f *fakeShop) AddAddress(_ context.Context, a domain.Address) (domain.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = fmt.Sprintf("a%d", len(f.addresses)+1)
	f.addresses = append(f.addresses, a)
	return a, nil
}

func (f *fakeShop) AddToCart(_ context.Context, it domain.CartItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["cart"]++
	if f.cartErr != nil {
		return f.cartErr
	}
	f.cart = append(f.cart, it)
	return nil
}

func (f *fakeShop) GetDiscount(_ context.Context, code string) (domain.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["discount"]++
	d, ok := f.discounts[code]
	if !ok {
		return domain.Discount{}, &shopapi.APIError{Status: 404}
	}
	return d, nil
}

var errUpstream = errors.New("upstream unavailable")

// ----- Fixtures -----

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

type fixture struct {
	db    *gorm.DB
	store *cache.Store
	clock *testClock
	shop  *fakeShop
	sync  *SyncService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newDB(t, &domain.CacheEntry{}, &domain.SubmitReceipt{})
	clk := &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := cache.New(cache.NewGormBackend(db), cache.WithClock(clk.Now), cache.WithLogger(zerolog.Nop()))
	shop := newFakeShop()
	svc := NewSyncService(store, inflight.New(), shop)
	svc.Clock = clk.Now
	svc.Log = zerolog.Nop()
	return &fixture{db: db, store: store, clock: clk, shop: shop, sync: svc}
}

func withUser(id string) context.Context {
	return domain.WithUser(context.Background(), domain.User{ID: id, Token: "tok-" + id})
}

// Package handlers exposes the storefront operations over HTTP.
//
// Handlers depend on small service interfaces rather than concrete types so
// tests can swap in fakes. Every error leaves through fail or writeError
// with one of the codes in errors.go.
package handlers

import (
	"context"

	"github.com/tbourn/go-shop-sync/internal/discount"
	"github.com/tbourn/go-shop-sync/internal/domain"
	"github.com/tbourn/go-shop-sync/internal/services"
)

// CatalogService is the read side of the catalog. *services.SyncService
// implements it.
type CatalogService interface {
	FetchCategories(ctx context.Context, force bool) ([]domain.Category, error)
	FetchTags(ctx context.Context, force bool) ([]domain.Tag, error)
	FetchSections(ctx context.Context, force bool) ([]domain.Section, error)
	FetchProducts(ctx context.Context, f domain.ProductFilters, force bool) ([]domain.Product, error)

	Categories() services.Snapshot[domain.Category]
	Tags() services.Snapshot[domain.Tag]
	Sections() services.Snapshot[domain.Section]
	Products(f domain.ProductFilters) services.Snapshot[domain.Product]

	Product(ctx context.Context, id string) (domain.Product, error)
	SectionDetail(ctx context.Context, id string) (domain.SectionDetail, error)
	SearchLocal(query string, k int) ([]domain.Product, error)
	Addresses(ctx context.Context) ([]domain.Address, error)
	RefreshAll(ctx context.Context) error
}

// DiscountService applies discount codes to the cart.
type DiscountService interface {
	Evaluate(ctx context.Context, code string, cartTotal int64) (domain.Discount, discount.Result, error)
	Apply(ctx context.Context, code string, cartTotal int64) (*domain.AppliedDiscount, error)
	Active(ctx context.Context, cartTotal int64) (*domain.AppliedDiscount, error)
	Remove(ctx context.Context) error
}

// OrderService drives the per-user order drafts.
type OrderService interface {
	Open(ctx context.Context, productID string, qty int) (services.Draft, error)
	Get(ctx context.Context, id string) (services.Draft, error)
	ToShipping(ctx context.Context, id string) (services.Draft, error)
	SelectAddress(ctx context.Context, id, addressID string) (services.Draft, error)
	AddAddress(ctx context.Context, id string, a domain.Address) (services.Draft, error)
	Back(ctx context.Context, id string) (services.Draft, error)
	SetFields(ctx context.Context, id string, values map[string]any) (services.Draft, error)
	FromShipping(ctx context.Context, id, idemKey string) (services.Draft, error)
	Submit(ctx context.Context, id, idemKey string) (services.Draft, error)
	Close(ctx context.Context, id string) error
}

// Handlers groups the HTTP handlers and their dependencies.
type Handlers struct {
	catalog   CatalogService
	discounts DiscountService
	orders    OrderService

	// loginURL is returned with login_required errors so clients can
	// redirect.
	loginURL string
}

// New returns a Handlers bound to the given services.
func New(catalog CatalogService, discounts DiscountService, orders OrderService, loginURL string) *Handlers {
	return &Handlers{catalog: catalog, discounts: discounts, orders: orders, loginURL: loginURL}
}

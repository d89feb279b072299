// Package services – DiscountService
//
// DiscountService applies discount codes to a user's cart. The applied
// discount is persisted per user under the active-discount key so it survives
// a restart, and is re-evaluated on every read because the cart total may
// have changed since it was applied.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-shop-sync/internal/cache"
	"github.com/tbourn/go-shop-sync/internal/discount"
	"github.com/tbourn/go-shop-sync/internal/domain"
	"github.com/tbourn/go-shop-sync/internal/inflight"
	"github.com/tbourn/go-shop-sync/internal/order"
	"github.com/tbourn/go-shop-sync/internal/shopapi"
)

// DiscountFetcher looks a discount code up upstream.
type DiscountFetcher interface {
	GetDiscount(ctx context.Context, code string) (domain.Discount, error)
}

// DiscountService is safe for concurrent use.
type DiscountService struct {
	Cache   *cache.Store
	Flights *inflight.Registry
	API     DiscountFetcher
	Clock   func() time.Time
	Log     zerolog.Logger
}

// NewDiscountService wires a service with defaults.
func NewDiscountService(store *cache.Store, flights *inflight.Registry, api DiscountFetcher) *DiscountService {
	return &DiscountService{
		Cache:   store,
		Flights: flights,
		API:     api,
		Clock:   time.Now,
		Log:     log.Logger.With().Str("component", "discount").Logger(),
	}
}

func (s *DiscountService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func discountKey(code string) string { return "discount_" + code }

// activeKey returns the key holding the discount applied to the caller's
// cart. Anonymous callers have no cart.
func activeKey(ctx context.Context) (string, error) {
	u, ok := domain.UserFromCtx(ctx)
	if !ok || u.ID == "" {
		return "", order.ErrLoginRequired
	}
	return cache.ActiveDiscountKey + "_" + u.ID, nil
}

func normalizeCode(code string) string {
	return strings.TrimSpace(code)
}

// Lookup returns the definition of code. Definitions are cached under
// "discount_<code>" for the cache TTL.
func (s *DiscountService) Lookup(ctx context.Context, code string) (domain.Discount, error) {
	code = normalizeCode(code)
	if code == "" {
		return domain.Discount{}, ErrEmptyCode
	}
	key := discountKey(code)
	if !s.Cache.IsStale(ctx, key, 0) {
		var d domain.Discount
		if s.Cache.Get(ctx, key, &d) {
			return d, nil
		}
	}
	v, _, err := s.Flights.Do(ctx, inflight.FamilyDiscount, code, func() (any, error) {
		d, err := s.API.GetDiscount(context.WithoutCancel(ctx), code)
		if err != nil {
			return nil, err
		}
		s.Cache.Save(ctx, key, d)
		return d, nil
	})
	if shopapi.IsNotFound(err) {
		return domain.Discount{}, ErrDiscountNotFound
	}
	if err != nil {
		return domain.Discount{}, err
	}
	return v.(domain.Discount), nil
}

// Evaluate checks code against cartTotal without applying it. An invalid
// discount is reported through the Result, not as an error.
func (s *DiscountService) Evaluate(ctx context.Context, code string, cartTotal int64) (domain.Discount, discount.Result, error) {
	if cartTotal < 0 {
		return domain.Discount{}, discount.Result{}, ErrInvalidCartTotal
	}
	d, err := s.Lookup(ctx, code)
	if err != nil {
		return domain.Discount{}, discount.Result{}, err
	}
	return d, discount.Evaluate(d, cartTotal, s.now()), nil
}

// Apply evaluates code and, when valid, persists it as the active discount.
// An invalid discount returns the evaluator's sentinel error and leaves any
// previously applied discount in place.
func (s *DiscountService) Apply(ctx context.Context, code string, cartTotal int64) (*domain.AppliedDiscount, error) {
	tr := otel.Tracer("services/DiscountService")
	ctx, span := tr.Start(ctx, "Apply",
		trace.WithAttributes(
			attribute.String("discount.code", normalizeCode(code)),
			attribute.Int64("cart.total", cartTotal),
		),
	)
	defer span.End()

	key, err := activeKey(ctx)
	if err != nil {
		return nil, err
	}
	d, res, err := s.Evaluate(ctx, code, cartTotal)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return nil, res.Err
	}
	applied := &domain.AppliedDiscount{
		Discount:  d,
		Amount:    res.Amount,
		NewTotal:  res.NewTotal,
		AppliedAt: s.now().UTC(),
	}
	s.Cache.SaveRaw(ctx, key, applied)
	return applied, nil
}

// Active returns the applied discount re-evaluated against cartTotal. A
// discount that no longer validates (expired, cart below minimum, ...) is
// removed and ErrNoActiveDiscount is returned, wrapping the reason.
func (s *DiscountService) Active(ctx context.Context, cartTotal int64) (*domain.AppliedDiscount, error) {
	if cartTotal < 0 {
		return nil, ErrInvalidCartTotal
	}
	key, err := activeKey(ctx)
	if err != nil {
		return nil, err
	}
	var applied domain.AppliedDiscount
	if !s.Cache.GetRaw(ctx, key, &applied) {
		return nil, ErrNoActiveDiscount
	}
	res := discount.Evaluate(applied.Discount, cartTotal, s.now())
	if !res.Valid {
		s.Log.Info().Str("code", applied.Discount.Code).Err(res.Err).Msg("dropping active discount that no longer applies")
		s.Cache.DeleteRaw(ctx, key)
		return nil, fmt.Errorf("%w: %w", ErrNoActiveDiscount, res.Err)
	}
	applied.Amount = res.Amount
	applied.NewTotal = res.NewTotal
	return &applied, nil
}

// Remove clears the caller's active discount and the cached definition of
// its code, so the next apply looks the code up again.
func (s *DiscountService) Remove(ctx context.Context) error {
	key, err := activeKey(ctx)
	if err != nil {
		return err
	}
	var applied domain.AppliedDiscount
	if !s.Cache.GetRaw(ctx, key, &applied) {
		return ErrNoActiveDiscount
	}
	s.Cache.DeleteRaw(ctx, key)
	if applied.Discount.Code != "" {
		s.Cache.Clear(ctx, discountKey(applied.Discount.Code))
	}
	return nil
}

// Package services – OrderService
//
// OrderService keeps one order-composition workflow per draft, owned by the
// authenticated user who opened it. Drafts idle for longer than DraftTTL are
// evicted by Sweep. The final submission honours an Idempotency-Key: a retried
// submit with the same key replays the stored outcome instead of adding the
// line to the cart twice.
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-shop-sync/internal/domain"
	"github.com/tbourn/go-shop-sync/internal/order"
	"github.com/tbourn/go-shop-sync/internal/repo"
)

// CatalogReader is the part of SyncService the order drafts depend on.
type CatalogReader interface {
	order.AddressBook
	order.ProductSource
	CachedProduct(id string) (domain.Product, bool)
}

// Draft is a workflow snapshot with its id.
type Draft struct {
	ID string `json:"id"`
	order.State
	// Replayed is set when a submit was answered from a stored outcome.
	Replayed bool `json:"replayed,omitempty"`
}

type draft struct {
	id       string
	userID   string
	wf       *order.Workflow
	lastUsed time.Time
}

// ctxSession treats a request as authenticated when it carries a user.
type ctxSession struct{}

func (ctxSession) Authenticated(ctx context.Context) bool {
	_, ok := domain.UserFromCtx(ctx)
	return ok
}

// OrderService is safe for concurrent use.
type OrderService struct {
	// DB stores idempotency records. Nil disables replay detection.
	DB      *gorm.DB
	Catalog CatalogReader
	Cart    order.Cart
	// DraftTTL is the idle time after which a draft is evicted (default 30m).
	DraftTTL time.Duration
	// IdemTTL is how long a submit outcome can be replayed (default 24h).
	IdemTTL time.Duration
	// MaxDraftsPerUser caps open drafts (default 5).
	MaxDraftsPerUser int
	Clock            func() time.Time
	Log              zerolog.Logger

	mu     sync.Mutex
	drafts map[string]*draft
}

// NewOrderService wires a service with defaults.
func NewOrderService(db *gorm.DB, catalog CatalogReader, cart order.Cart) *OrderService {
	return &OrderService{
		DB:               db,
		Catalog:          catalog,
		Cart:             cart,
		DraftTTL:         30 * time.Minute,
		IdemTTL:          24 * time.Hour,
		MaxDraftsPerUser: 5,
		Clock:            time.Now,
		Log:              log.Logger.With().Str("component", "orders").Logger(),
		drafts:           map[string]*draft{},
	}
}

func (s *OrderService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// Open starts a draft for productID. The product is seeded from the loaded
// listings when possible, otherwise fetched.
func (s *OrderService) Open(ctx context.Context, productID string, qty int) (Draft, error) {
	u, ok := domain.UserFromCtx(ctx)
	if !ok {
		return Draft{}, order.ErrLoginRequired
	}

	s.mu.Lock()
	full := s.atCapLocked(u.ID)
	s.mu.Unlock()
	if full {
		return Draft{}, ErrTooManyDrafts
	}

	p, ok := s.Catalog.CachedProduct(productID)
	if !ok {
		var err error
		if p, err = s.Catalog.Product(ctx, productID); err != nil {
			return Draft{}, err
		}
	}

	wf := order.New(order.Deps{
		Session:   ctxSession{},
		Addresses: s.Catalog,
		Products:  s.Catalog,
		Cart:      s.Cart,
		Log:       s.Log,
	})
	st, err := wf.Open(ctx, p, qty)
	if err != nil {
		return Draft{}, err
	}

	d := &draft{id: uuid.NewString(), userID: u.ID, wf: wf, lastUsed: s.now()}
	s.mu.Lock()
	// Other opens may have finished while this one was loading.
	if s.atCapLocked(u.ID) {
		s.mu.Unlock()
		wf.Close()
		return Draft{}, ErrTooManyDrafts
	}
	s.drafts[d.id] = d
	s.mu.Unlock()
	return Draft{ID: d.id, State: st}, nil
}

// atCapLocked reports whether userID already holds MaxDraftsPerUser drafts.
// Callers hold s.mu.
func (s *OrderService) atCapLocked(userID string) bool {
	if s.MaxDraftsPerUser <= 0 {
		return false
	}
	n := 0
	for _, d := range s.drafts {
		if d.userID == userID {
			n++
		}
	}
	return n >= s.MaxDraftsPerUser
}

// get returns the caller's draft and touches it.
func (s *OrderService) get(ctx context.Context, id string) (*draft, error) {
	u, ok := domain.UserFromCtx(ctx)
	if !ok {
		return nil, order.ErrLoginRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	if !ok || d.userID != u.ID {
		return nil, ErrDraftNotFound
	}
	d.lastUsed = s.now()
	return d, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (Draft, error) {
	d, err := s.get(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	return Draft{ID: id, State: d.wf.State()}, nil
}

func (s *OrderService) ToShipping(ctx context.Context, id string) (Draft, error) {
	return s.step(ctx, id, func(wf *order.Workflow) (order.State, error) { return wf.ToShipping() })
}

func (s *OrderService) SelectAddress(ctx context.Context, id, addressID string) (Draft, error) {
	return s.step(ctx, id, func(wf *order.Workflow) (order.State, error) { return wf.SelectAddress(addressID) })
}

func (s *OrderService) AddAddress(ctx context.Context, id string, a domain.Address) (Draft, error) {
	return s.step(ctx, id, func(wf *order.Workflow) (order.State, error) { return wf.AddAddress(ctx, a) })
}

func (s *OrderService) Back(ctx context.Context, id string) (Draft, error) {
	return s.step(ctx, id, func(wf *order.Workflow) (order.State, error) { return wf.Back() })
}

// SetFields stores several custom-field values; it stops at the first
// rejected value.
func (s *OrderService) SetFields(ctx context.Context, id string, values map[string]any) (Draft, error) {
	return s.step(ctx, id, func(wf *order.Workflow) (order.State, error) {
		st := wf.State()
		for label, v := range values {
			var err error
			if st, err = wf.SetField(label, v); err != nil {
				return st, err
			}
		}
		return st, nil
	})
}

// FromShipping leaves the shipping step; for products without custom fields
// this is the submission and honours idemKey.
func (s *OrderService) FromShipping(ctx context.Context, id, idemKey string) (Draft, error) {
	return s.submit(ctx, id, idemKey, func(wf *order.Workflow) (order.State, error) { return wf.FromShipping(ctx) })
}

// Submit validates the custom fields and submits, honouring idemKey.
func (s *OrderService) Submit(ctx context.Context, id, idemKey string) (Draft, error) {
	return s.submit(ctx, id, idemKey, func(wf *order.Workflow) (order.State, error) { return wf.Submit(ctx) })
}

// Close discards a draft.
func (s *OrderService) Close(ctx context.Context, id string) error {
	d, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	d.wf.Close()
	s.mu.Lock()
	delete(s.drafts, id)
	s.mu.Unlock()
	return nil
}

func (s *OrderService) step(ctx context.Context, id string, fn func(*order.Workflow) (order.State, error)) (Draft, error) {
	d, err := s.get(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	st, err := fn(d.wf)
	return Draft{ID: id, State: st}, err
}

func (s *OrderService) submit(ctx context.Context, id, idemKey string, fn func(*order.Workflow) (order.State, error)) (Draft, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("draft.id", id),
			attribute.Bool("idempotent", idemKey != ""),
		),
	)
	defer span.End()

	d, err := s.get(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	useIdem := idemKey != "" && s.DB != nil
	if useIdem {
		_, err := repo.FindReceipt(ctx, s.DB, d.userID, id, idemKey, s.now())
		if err == nil {
			span.SetAttributes(attribute.Bool("replay", true))
			return Draft{ID: id, State: d.wf.State(), Replayed: true}, nil
		}
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			s.Log.Warn().Err(err).Str("draft_id", id).Msg("idempotency lookup failed; submitting anyway")
		}
	}

	st, err := fn(d.wf)
	if err != nil {
		return Draft{ID: id, State: st}, err
	}
	if useIdem && st.Step == order.StepAdded {
		ttl := s.IdemTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		now := s.now().UTC()
		rec := &domain.SubmitReceipt{
			UserID:    d.userID,
			DraftID:   id,
			Key:       idemKey,
			ProductID: st.Product.ID,
			Quantity:  st.Quantity,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		}
		if err := repo.SaveReceipt(ctx, s.DB, rec); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			s.Log.Warn().Err(err).Str("draft_id", id).Msg("failed to store idempotency record")
		}
	}
	return Draft{ID: id, State: st}, nil
}

// Sweep evicts drafts idle for longer than DraftTTL and returns how many.
func (s *OrderService) Sweep(now time.Time) int {
	ttl := s.DraftTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	s.mu.Lock()
	var stale []*draft
	for id, d := range s.drafts {
		if now.Sub(d.lastUsed) > ttl {
			stale = append(stale, d)
			delete(s.drafts, id)
		}
	}
	s.mu.Unlock()
	for _, d := range stale {
		d.wf.Close()
	}
	return len(stale)
}

// RunJanitor sweeps idle drafts and purges expired submit receipts every
// interval until ctx is done.
func (s *OrderService) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Sweep(now); n > 0 {
				s.Log.Debug().Int("evicted", n).Msg("order drafts evicted")
			}
			if s.DB == nil {
				continue
			}
			if n, err := repo.PurgeReceipts(ctx, s.DB, now); err != nil {
				s.Log.Warn().Err(err).Msg("purging submit receipts failed")
			} else if n > 0 {
				s.Log.Debug().Int64("purged", n).Msg("expired submit receipts purged")
			}
		}
	}
}

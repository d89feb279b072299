// Package order implements the order composition flow: overview, shipping,
// optional custom fields, then the cart-add submission.
//
// A Workflow holds one draft. Open seeds it and starts a background refresh
// of the product; the refreshed product replaces the seeded one without
// moving the step or touching entered values. A refresh that finishes after
// the draft was closed or reopened is discarded.
package order

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-shop-sync/internal/domain"
	"github.com/tbourn/go-shop-sync/internal/shopapi"
)

// Session reports whether the caller is logged in.
type Session interface {
	Authenticated(ctx context.Context) bool
}

// AddressBook lists and stores the user's shipping addresses.
type AddressBook interface {
	Addresses(ctx context.Context) ([]domain.Address, error)
	AddAddress(ctx context.Context, a domain.Address) (domain.Address, error)
}

// ProductSource returns the authoritative product.
type ProductSource interface {
	Product(ctx context.Context, id string) (domain.Product, error)
}

// Cart accepts the final submission.
type Cart interface {
	AddToCart(ctx context.Context, item domain.CartItem) error
}

// Deps are the collaborators of a Workflow. Products may be nil, in which
// case no background refresh runs.
type Deps struct {
	Session   Session
	Addresses AddressBook
	Products  ProductSource
	Cart      Cart
	// Log receives refresh and submission failures. The zero value discards.
	Log zerolog.Logger
	// RefreshTimeout bounds the background product refresh (default 15s).
	RefreshTimeout time.Duration
}

// State is a snapshot of a draft.
type State struct {
	Open       bool                 `json:"open"`
	Product    domain.Product       `json:"product"`
	Schema     []domain.CustomField `json:"schema"`
	Quantity   int                  `json:"quantity"`
	Step       Step                 `json:"step"`
	AddressID  string               `json:"address_id,omitempty"`
	Addresses  []domain.Address     `json:"addresses"`
	Values     map[string]any       `json:"values"`
	Submitting bool                 `json:"submitting"`
	LastError  string               `json:"last_error,omitempty"`
}

// Workflow is safe for concurrent use.
type Workflow struct {
	deps Deps

	mu  sync.Mutex
	st  State
	gen uint64
	bg  sync.WaitGroup
}

// New returns a closed workflow.
func New(deps Deps) *Workflow {
	if deps.RefreshTimeout <= 0 {
		deps.RefreshTimeout = 15 * time.Second
	}
	return &Workflow{deps: deps}
}

// Open starts a draft for product. It fails with ErrLoginRequired when the
// session is anonymous. An address fetch failure does not fail Open; it is
// recorded in LastError and the address list stays empty.
func (w *Workflow) Open(ctx context.Context, p domain.Product, qty int) (State, error) {
	if w.deps.Session == nil || !w.deps.Session.Authenticated(ctx) {
		return State{}, ErrLoginRequired
	}
	if qty < 1 {
		return State{}, ErrInvalidQuantity
	}

	w.mu.Lock()
	w.gen++
	gen := w.gen
	w.st = State{
		Open:      true,
		Product:   p,
		Schema:    w.schema(p),
		Quantity:  qty,
		Step:      StepOverview,
		Addresses: []domain.Address{},
		Values:    map[string]any{},
	}
	w.mu.Unlock()

	addrs, err := w.deps.Addresses.Addresses(ctx)

	w.mu.Lock()
	if w.gen == gen {
		if err != nil {
			w.st.LastError = err.Error()
			w.deps.Log.Warn().Err(err).Str("product_id", p.ID).Msg("order: address fetch failed")
		} else {
			w.st.Addresses = addrs
		}
	}
	w.mu.Unlock()

	if w.deps.Products != nil && p.ID != "" {
		w.bg.Add(1)
		go w.refreshProduct(context.WithoutCancel(ctx), w.deps.Products, gen, p.ID)
	}
	return w.State(), nil
}

func (w *Workflow) refreshProduct(ctx context.Context, src ProductSource, gen uint64, id string) {
	defer w.bg.Done()
	ctx, cancel := context.WithTimeout(ctx, w.deps.RefreshTimeout)
	defer cancel()

	p, err := src.Product(ctx, id)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen || !w.st.Open {
		return
	}
	if err != nil {
		w.deps.Log.Debug().Err(err).Str("product_id", id).Msg("order: product refresh failed")
		return
	}
	w.st.Product = p
	w.st.Schema = w.schema(p)
}

// Wait blocks until background refreshes have finished.
func (w *Workflow) Wait() { w.bg.Wait() }

// ToShipping moves overview to shipping.
func (w *Workflow) ToShipping() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.ready(); err != nil {
		return w.snapshot(), err
	}
	if w.st.Step != StepOverview {
		return w.snapshot(), ErrInvalidTransition
	}
	w.st.Step = StepShipping
	return w.snapshot(), nil
}

// SelectAddress picks one of the loaded addresses.
func (w *Workflow) SelectAddress(id string) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.ready(); err != nil {
		return w.snapshot(), err
	}
	if w.st.Step == StepAdded {
		return w.snapshot(), ErrInvalidTransition
	}
	for _, a := range w.st.Addresses {
		if a.ID == id {
			w.st.AddressID = id
			return w.snapshot(), nil
		}
	}
	return w.snapshot(), ErrUnknownAddress
}

// AddAddress saves a new address upstream, appends it and selects it.
func (w *Workflow) AddAddress(ctx context.Context, a domain.Address) (State, error) {
	w.mu.Lock()
	if err := w.ready(); err != nil {
		defer w.mu.Unlock()
		return w.snapshot(), err
	}
	gen := w.gen
	w.mu.Unlock()

	saved, err := w.deps.Addresses.AddAddress(ctx, a)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen {
		return w.snapshot(), ErrNotOpen
	}
	if err != nil {
		w.st.LastError = err.Error()
		return w.snapshot(), err
	}
	w.st.Addresses = append(w.st.Addresses, saved)
	w.st.AddressID = saved.ID
	w.st.LastError = ""
	return w.snapshot(), nil
}

// FromShipping leaves the shipping step. Without a selected address the step
// does not change. Products with a custom-field schema go to the custom
// fields step; others are submitted straight away.
func (w *Workflow) FromShipping(ctx context.Context) (State, error) {
	w.mu.Lock()
	if err := w.ready(); err != nil {
		defer w.mu.Unlock()
		return w.snapshot(), err
	}
	if w.st.Step != StepShipping {
		defer w.mu.Unlock()
		return w.snapshot(), ErrInvalidTransition
	}
	if w.st.AddressID == "" {
		w.st.LastError = ErrNoAddress.Error()
		defer w.mu.Unlock()
		return w.snapshot(), ErrNoAddress
	}
	if len(w.st.Schema) > 0 {
		defer w.mu.Unlock()
		w.st.Step = StepCustomFields
		w.st.LastError = ""
		return w.snapshot(), nil
	}
	w.mu.Unlock()
	return w.submit(ctx, StepShipping)
}

// SetField stores the value of a schema field. Accepted values are strings,
// string lists, booleans and numbers.
func (w *Workflow) SetField(label string, value any) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.ready(); err != nil {
		return w.snapshot(), err
	}
	f, ok := fieldByLabel(w.st.Schema, label)
	if !ok {
		return w.snapshot(), ErrUnknownField
	}
	v, err := normalizeValue(value)
	if err != nil {
		return w.snapshot(), err
	}
	if _, isString := v.(string); f.Type == domain.FieldLink && v != nil && !isString {
		return w.snapshot(), ErrInvalidFieldValue
	}
	if v == nil {
		delete(w.st.Values, label)
	} else {
		w.st.Values[label] = v
	}
	return w.snapshot(), nil
}

// Submit validates the custom fields and adds the line to the cart.
func (w *Workflow) Submit(ctx context.Context) (State, error) {
	w.mu.Lock()
	if err := w.ready(); err != nil {
		defer w.mu.Unlock()
		return w.snapshot(), err
	}
	if w.st.Step != StepCustomFields {
		defer w.mu.Unlock()
		return w.snapshot(), ErrInvalidTransition
	}
	if err := Validate(w.st.Schema, w.st.Values); err != nil {
		defer w.mu.Unlock()
		w.st.LastError = err.Error()
		return w.snapshot(), err
	}
	w.mu.Unlock()
	return w.submit(ctx, StepCustomFields)
}

// submit sends the cart-add for the current draft. from is the step the
// draft must still be on; the lock is not held across the network call.
func (w *Workflow) submit(ctx context.Context, from Step) (State, error) {
	w.mu.Lock()
	if w.st.Submitting {
		defer w.mu.Unlock()
		return w.snapshot(), ErrBusy
	}
	if w.st.Step != from {
		defer w.mu.Unlock()
		return w.snapshot(), ErrInvalidTransition
	}
	gen := w.gen
	item := domain.CartItem{
		ProductID:    w.st.Product.ID,
		Quantity:     w.st.Quantity,
		ShippingID:   w.st.AddressID,
		CustomFields: copyValues(w.st.Values),
	}
	w.st.Submitting = true
	w.mu.Unlock()

	err := w.deps.Cart.AddToCart(ctx, item)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen {
		return w.snapshot(), ErrNotOpen
	}
	w.st.Submitting = false
	if err != nil {
		w.st.LastError = err.Error()
		w.deps.Log.Warn().Err(err).Str("product_id", item.ProductID).Msg("order: add to cart failed")
		return w.snapshot(), err
	}
	w.st.Step = StepAdded
	w.st.LastError = ""
	return w.snapshot(), nil
}

// Back reverses the last forward transition.
func (w *Workflow) Back() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.ready(); err != nil {
		return w.snapshot(), err
	}
	prev, ok := w.st.Step.prev()
	if !ok {
		return w.snapshot(), ErrInvalidTransition
	}
	w.st.Step = prev
	return w.snapshot(), nil
}

// Close discards the draft. Pending refreshes and submissions are ignored.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
	w.st = State{}
}

// State returns a snapshot of the draft.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot()
}

func (w *Workflow) ready() error {
	if !w.st.Open {
		return ErrNotOpen
	}
	if w.st.Submitting {
		return ErrBusy
	}
	return nil
}

func (w *Workflow) snapshot() State {
	s := w.st
	s.Values = copyValues(w.st.Values)
	s.Addresses = append([]domain.Address(nil), w.st.Addresses...)
	s.Schema = append([]domain.CustomField(nil), w.st.Schema...)
	return s
}

func (w *Workflow) schema(p domain.Product) []domain.CustomField {
	fields, err := shopapi.ParseCustomFields(p.CustomFields)
	if err != nil {
		w.deps.Log.Warn().Err(err).Str("product_id", p.ID).Msg("order: bad custom field schema, treating as empty")
		return nil
	}
	return fields
}

func fieldByLabel(schema []domain.CustomField, label string) (domain.CustomField, bool) {
	for _, f := range schema {
		if f.Label == label {
			return f, true
		}
	}
	return domain.CustomField{}, false
}

func copyValues(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if l, ok := v.([]string); ok {
			v = append([]string(nil), l...)
		}
		out[k] = v
	}
	return out
}

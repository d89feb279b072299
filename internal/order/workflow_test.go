package order

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-shop-sync/internal/domain"
)

type fakeSession bool

func (s fakeSession) Authenticated(context.Context) bool { return bool(s) }

type fakeBook struct {
	addrs  []domain.Address
	err    error
	addErr error
}

func (b *fakeBook) Addresses(context.Context) ([]domain.Address, error) { return b.addrs, b.err }
func (b *fakeBook) AddAddress(_ context.Context, a domain.Address) (domain.Address, error) {
	if b.addErr != nil {
		return domain.Address{}, b.addErr
	}
	a.ID = "new-1"
	return a, nil
}

type fakeProducts struct {
	release chan struct{}
	p       domain.Product
	err     error
}

func (f *fakeProducts) Product(context.Context, string) (domain.Product, error) {
	if f.release != nil {
		<-f.release
	}
	return f.p, f.err
}

type fakeCart struct {
	mu    sync.Mutex
	items []domain.CartItem
	err   error
}

func (c *fakeCart) AddToCart(_ context.Context, it domain.CartItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.items = append(c.items, it)
	return nil
}

var (
	home = domain.Address{ID: "a1", Title: "Home"}
	work = domain.Address{ID: "a2", Title: "Work"}
)

func product(id string, schema string) domain.Product {
	p := domain.Product{ID: id, Title: "Item " + id, Price: decimal.NewFromInt(100)}
	if schema != "" {
		p.CustomFields = json.RawMessage(schema)
	}
	return p
}

func newWF(cart *fakeCart) *Workflow {
	return New(Deps{
		Session:   fakeSession(true),
		Addresses: &fakeBook{addrs: []domain.Address{home, work}},
		Cart:      cart,
	})
}

func TestOpen_RequiresLogin(t *testing.T) {
	w := New(Deps{Session: fakeSession(false), Addresses: &fakeBook{}, Cart: &fakeCart{}})
	_, err := w.Open(context.Background(), product("p1", ""), 1)
	require.ErrorIs(t, err, ErrLoginRequired)
	assert.False(t, w.State().Open)
}

func TestOpen_InvalidQuantity(t *testing.T) {
	_, err := newWF(&fakeCart{}).Open(context.Background(), product("p1", ""), 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestOpen_SeedsStateAndLoadsAddresses(t *testing.T) {
	w := newWF(&fakeCart{})
	st, err := w.Open(context.Background(), product("p1", ""), 2)
	require.NoError(t, err)
	assert.True(t, st.Open)
	assert.Equal(t, StepOverview, st.Step)
	assert.Equal(t, 2, st.Quantity)
	assert.Equal(t, []domain.Address{home, work}, st.Addresses)
	assert.Empty(t, st.Values)
}

func TestOpen_AddressFailureIsRecorded(t *testing.T) {
	w := New(Deps{Session: fakeSession(true), Addresses: &fakeBook{err: errors.New("upstream down")}, Cart: &fakeCart{}})
	st, err := w.Open(context.Background(), product("p1", ""), 1)
	require.NoError(t, err)
	assert.Empty(t, st.Addresses)
	assert.Equal(t, "upstream down", st.LastError)
}

func TestFlow_NoSchemaGoesStraightToAdded(t *testing.T) {
	cart := &fakeCart{}
	w := newWF(cart)
	ctx := context.Background()
	_, err := w.Open(ctx, product("p1", ""), 1)
	require.NoError(t, err)

	// Advancing from overview straight out of shipping is rejected.
	st, err := w.FromShipping(ctx)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StepOverview, st.Step)

	st, err = w.ToShipping()
	require.NoError(t, err)
	require.Equal(t, StepShipping, st.Step)

	// No address selected: step does not change.
	st, err = w.FromShipping(ctx)
	require.ErrorIs(t, err, ErrNoAddress)
	assert.Equal(t, StepShipping, st.Step)
	assert.Empty(t, cart.items)

	_, err = w.SelectAddress("a2")
	require.NoError(t, err)
	st, err = w.FromShipping(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepAdded, st.Step)
	require.Len(t, cart.items, 1)
	assert.Equal(t, domain.CartItem{ProductID: "p1", Quantity: 1, ShippingID: "a2", CustomFields: map[string]any{}}, cart.items[0])
}

func TestFlow_WithSchema(t *testing.T) {
	cart := &fakeCart{}
	w := newWF(cart)
	ctx := context.Background()
	schema := `[{"label":"Nick","type":"text","required":true},
		{"label":"Profile","type":"link"},
		{"label":"Modes","type":"multiselect","required":true},
		{"label":"Agree","type":"checkbox","required":true}]`
	_, err := w.Open(ctx, product("p2", schema), 3)
	require.NoError(t, err)
	_, _ = w.ToShipping()
	_, _ = w.SelectAddress("a1")

	st, err := w.FromShipping(ctx)
	require.NoError(t, err)
	require.Equal(t, StepCustomFields, st.Step)
	assert.Empty(t, cart.items)

	_, err = w.SetField("Nope", "x")
	require.ErrorIs(t, err, ErrUnknownField)

	_, _ = w.SetField("Nick", "  ")
	_, _ = w.SetField("Profile", "ftp://example.com")
	_, _ = w.SetField("Modes", []any{})
	_, _ = w.SetField("Agree", false)

	st, err = w.Submit(ctx)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, map[string]string{
		"Nick":    "required",
		"Profile": "must start with http:// or https://",
		"Modes":   "required",
		"Agree":   "required",
	}, ve.Fields)
	assert.Equal(t, StepCustomFields, st.Step)

	_, _ = w.SetField("Nick", "neo")
	_, _ = w.SetField("Profile", "https://example.com/neo")
	_, _ = w.SetField("Modes", []any{"duo"})
	_, _ = w.SetField("Agree", true)

	st, err = w.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepAdded, st.Step)
	require.Len(t, cart.items, 1)
	assert.Equal(t, 3, cart.items[0].Quantity)
	assert.Equal(t, []string{"duo"}, cart.items[0].CustomFields["Modes"])
}

func TestSubmit_FailureKeepsStep(t *testing.T) {
	cart := &fakeCart{err: errors.New("out of stock")}
	w := newWF(cart)
	ctx := context.Background()
	_, _ = w.Open(ctx, product("p1", ""), 1)
	_, _ = w.ToShipping()
	_, _ = w.SelectAddress("a1")

	st, err := w.FromShipping(ctx)
	require.Error(t, err)
	assert.Equal(t, StepShipping, st.Step)
	assert.Equal(t, "out of stock", st.LastError)
	assert.False(t, st.Submitting)

	cart.err = nil
	st, err = w.FromShipping(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepAdded, st.Step)
	assert.Empty(t, st.LastError)
}

func TestBack(t *testing.T) {
	w := newWF(&fakeCart{})
	ctx := context.Background()
	_, _ = w.Open(ctx, product("p1", `[{"label":"Nick"}]`), 1)

	_, err := w.Back()
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, _ = w.ToShipping()
	_, _ = w.SelectAddress("a1")
	_, _ = w.FromShipping(ctx)
	_, _ = w.SetField("Nick", "neo")

	st, err := w.Back()
	require.NoError(t, err)
	assert.Equal(t, StepShipping, st.Step)
	assert.Equal(t, "neo", st.Values["Nick"])

	st, err = w.Back()
	require.NoError(t, err)
	assert.Equal(t, StepOverview, st.Step)
}

func TestSelectAddress_Unknown(t *testing.T) {
	w := newWF(&fakeCart{})
	_, _ = w.Open(context.Background(), product("p1", ""), 1)
	_, err := w.SelectAddress("zzz")
	require.ErrorIs(t, err, ErrUnknownAddress)
}

func TestAddAddress_AppendsAndSelects(t *testing.T) {
	w := newWF(&fakeCart{})
	ctx := context.Background()
	_, _ = w.Open(ctx, product("p1", ""), 1)
	st, err := w.AddAddress(ctx, domain.Address{Title: "Cabin"})
	require.NoError(t, err)
	assert.Equal(t, "new-1", st.AddressID)
	assert.Len(t, st.Addresses, 3)
}

func TestClosedWorkflowRejectsOps(t *testing.T) {
	w := newWF(&fakeCart{})
	_, err := w.ToShipping()
	require.ErrorIs(t, err, ErrNotOpen)

	_, _ = w.Open(context.Background(), product("p1", ""), 1)
	w.Close()
	_, err = w.SetField("x", "y")
	require.ErrorIs(t, err, ErrNotOpen)
	assert.False(t, w.State().Open)
}

func TestRefresh_MergesWithoutResettingProgress(t *testing.T) {
	fresh := product("p1", `[{"label":"Nick","required":true}]`)
	fresh.Price = decimal.NewFromInt(120)
	src := &fakeProducts{release: make(chan struct{}), p: fresh}
	w := New(Deps{
		Session:   fakeSession(true),
		Addresses: &fakeBook{addrs: []domain.Address{home}},
		Products:  src,
		Cart:      &fakeCart{},
	})
	ctx := context.Background()
	_, err := w.Open(ctx, product("p1", ""), 1)
	require.NoError(t, err)
	_, _ = w.ToShipping()
	_, _ = w.SelectAddress("a1")

	close(src.release)
	w.Wait()

	st := w.State()
	assert.Equal(t, StepShipping, st.Step)
	assert.Equal(t, "a1", st.AddressID)
	assert.True(t, st.Product.Price.Equal(decimal.NewFromInt(120)))
	require.Len(t, st.Schema, 1)

	// The refreshed schema now routes through the custom fields step.
	st, err = w.FromShipping(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepCustomFields, st.Step)
}

func TestRefresh_DiscardedAfterCloseOrReopen(t *testing.T) {
	stale := product("p1", "")
	stale.Title = "stale"
	src := &fakeProducts{release: make(chan struct{}), p: stale}
	w := New(Deps{
		Session:   fakeSession(true),
		Addresses: &fakeBook{},
		Products:  src,
		Cart:      &fakeCart{},
	})
	ctx := context.Background()
	_, _ = w.Open(ctx, product("p1", ""), 1)

	// Reopen for another product; the first refresh is superseded.
	w.deps.Products = nil
	_, _ = w.Open(ctx, product("p9", ""), 1)
	close(src.release)
	w.Wait()
	assert.Equal(t, "p9", w.State().Product.ID)
	assert.Equal(t, "Item p9", w.State().Product.Title)

	// Closed drafts ignore late refreshes too.
	src2 := &fakeProducts{release: make(chan struct{}), p: stale}
	w.deps.Products = src2
	_, _ = w.Open(ctx, product("p1", ""), 1)
	w.Close()
	close(src2.release)
	w.Wait()
	assert.False(t, w.State().Open)
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "overview", StepOverview.String())
	assert.Equal(t, "shipping", StepShipping.String())
	assert.Equal(t, "custom_fields", StepCustomFields.String())
	assert.Equal(t, "added", StepAdded.String())
	assert.Equal(t, "Step(9)", Step(9).String())

	b, err := json.Marshal(StepCustomFields)
	require.NoError(t, err)
	assert.Equal(t, `"custom_fields"`, string(b))
}

func TestValidate_OptionalLinkMayBeEmpty(t *testing.T) {
	schema := []domain.CustomField{{Label: "Site", Type: domain.FieldLink}}
	assert.NoError(t, Validate(schema, map[string]any{}))
	assert.NoError(t, Validate(schema, map[string]any{"Site": "http://a.b"}))
	assert.Error(t, Validate(schema, map[string]any{"Site": "a.b"}))
}

func TestValidate_LinkMustBeString(t *testing.T) {
	required := []domain.CustomField{{Label: "Profile", Type: domain.FieldLink, Required: true}}
	optional := []domain.CustomField{{Label: "Profile", Type: domain.FieldLink}}
	for _, v := range []any{42.0, true, []string{"https://a.b"}} {
		for _, schema := range [][]domain.CustomField{required, optional} {
			err := Validate(schema, map[string]any{"Profile": v})
			var ve *ValidationError
			require.ErrorAs(t, err, &ve, "value %#v", v)
			assert.Equal(t, "must be a link", ve.Fields["Profile"])
		}
	}
}

func TestSetField_LinkRejectsNonString(t *testing.T) {
	cart := &fakeCart{}
	w := newWF(cart)
	ctx := context.Background()
	_, err := w.Open(ctx, product("p3", `[{"label":"Profile","type":"link","required":true}]`), 1)
	require.NoError(t, err)
	_, _ = w.ToShipping()
	_, _ = w.SelectAddress("a1")
	st, err := w.FromShipping(ctx)
	require.NoError(t, err)
	require.Equal(t, StepCustomFields, st.Step)

	for _, v := range []any{42.0, 7, false, []any{"https://a.b"}} {
		st, err = w.SetField("Profile", v)
		require.ErrorIs(t, err, ErrInvalidFieldValue, "value %#v", v)
		assert.NotContains(t, st.Values, "Profile")
	}

	st, err = w.Submit(ctx)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "required", ve.Fields["Profile"])
	assert.Equal(t, StepCustomFields, st.Step)
	assert.Empty(t, cart.items)
}

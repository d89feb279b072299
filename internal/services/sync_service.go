// Package services – SyncService
//
// SyncService keeps the storefront catalog (categories, tags, sections and
// filtered product listings) in sync with the upstream shop using a
// stale-while-revalidate policy over the persistent cache:
//
//   - A fresh cache entry short-circuits a fetch with zero network traffic.
//   - A stale or missing entry triggers one upstream call per resource key;
//     concurrent callers join it through the in-flight registry.
//   - Results are written to the cache and to the in-memory collections that
//     handlers read synchronously.
//   - Failures keep the last good items and record the error on the
//     collection; they are also returned to the caller.
//
// Observability: fetches are OpenTelemetry-instrumented; spans carry the
// resource key and whether the cache short-circuited the call.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/tbourn/go-shop-sync/internal/cache"
	"github.com/tbourn/go-shop-sync/internal/domain"
	"github.com/tbourn/go-shop-sync/internal/inflight"
	"github.com/tbourn/go-shop-sync/internal/search"
	"github.com/tbourn/go-shop-sync/internal/shopapi"
)

// Static resource keys.
const (
	KeyCategories = "categories"
	KeyTags       = "tags"
	KeySections   = "sections"
	KeyProducts   = "products"
)

// ShopAPI is the upstream contract used by the services. *shopapi.Client
// implements it.
type ShopAPI interface {
	GetProducts(ctx context.Context, f domain.ProductFilters) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	GetCategories(ctx context.Context) ([]domain.Category, error)
	GetTags(ctx context.Context) ([]domain.Tag, error)
	GetSections(ctx context.Context) ([]domain.Section, error)
	GetSectionDetail(ctx context.Context, id string) (domain.SectionDetail, error)
	GetAddresses(ctx context.Context) ([]domain.Address, error)
	AddAddress(ctx context.Context, a domain.Address) (domain.Address, error)
	AddToCart(ctx context.Context, item domain.CartItem) error
	GetDiscount(ctx context.Context, code string) (domain.Discount, error)
}

// Snapshot is a point-in-time view of a collection. Items must be treated as
// read-only.
type Snapshot[T any] struct {
	Items     []T       `json:"items"`
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Event tells a watcher that a collection changed.
type Event struct {
	Collection string `json:"collection"`
	Key        string `json:"key"`
	Version    uint64 `json:"version"`
}

type collection[T any] struct {
	items     []T
	loaded    bool
	loading   bool
	err       error
	version   uint64
	updatedAt time.Time
	// used is the last time a product listing was fetched or read.
	used time.Time
}

type derived struct {
	pv, tv uint64
	items  []domain.Product
}

type watcher struct {
	fn    func(Event)
	alive atomic.Bool
}

// SyncService is safe for concurrent use. Construct with NewSyncService.
type SyncService struct {
	Cache   *cache.Store
	Flights *inflight.Registry
	API     ShopAPI
	// TTL is the freshness window of catalog entries (default 5m).
	TTL time.Duration
	// FetchTimeout bounds a shared upstream fetch, which outlives any single
	// caller's context (default 20s).
	FetchTimeout time.Duration
	// MaxListings caps the filtered product listings kept in memory; the
	// least recently used one is dropped first. The unfiltered listing is
	// never dropped (default 256).
	MaxListings int
	// RefreshListings caps how many filtered listings RefreshAll refetches,
	// most recently used first (default 16).
	RefreshListings int
	Clock           func() time.Time
	Log             zerolog.Logger

	mu         sync.Mutex
	categories collection[domain.Category]
	tags       collection[domain.Tag]
	sections   collection[domain.Section]
	products   map[string]*collection[domain.Product]
	memo       map[string]derived
	derives    int

	wmu      sync.Mutex
	watchers map[uint64]*watcher
	nextW    uint64

	bg sync.WaitGroup
}

// NewSyncService wires a service with defaults.
func NewSyncService(store *cache.Store, flights *inflight.Registry, api ShopAPI) *SyncService {
	return &SyncService{
		Cache:           store,
		Flights:         flights,
		API:             api,
		TTL:             cache.DefaultTTL,
		FetchTimeout:    20 * time.Second,
		MaxListings:     256,
		RefreshListings: 16,
		Clock:           time.Now,
		Log:             log.Logger.With().Str("component", "sync").Logger(),
		products:        map[string]*collection[domain.Product]{},
		memo:            map[string]derived{},
		watchers:        map[uint64]*watcher{},
	}
}

func (s *SyncService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// ----------------------------------------------------------------------------
// Fetch operations

// FetchCategories returns the categories with the "All Categories" sentinel
// first.
func (s *SyncService) FetchCategories(ctx context.Context, force bool) ([]domain.Category, error) {
	return syncCollection(ctx, s, inflight.FamilyCategories, KeyCategories, "categories", &s.categories, force,
		func(ctx context.Context) ([]domain.Category, error) {
			raw, err := s.API.GetCategories(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]domain.Category, 0, len(raw)+1)
			out = append(out, domain.Category{ID: domain.AllCategoriesID, Name: "All Categories"})
			for _, c := range raw {
				if c.ID != domain.AllCategoriesID {
					out = append(out, c)
				}
			}
			return out, nil
		})
}

func (s *SyncService) FetchTags(ctx context.Context, force bool) ([]domain.Tag, error) {
	return syncCollection(ctx, s, inflight.FamilyTags, KeyTags, "tags", &s.tags, force, s.API.GetTags)
}

func (s *SyncService) FetchSections(ctx context.Context, force bool) ([]domain.Section, error) {
	return syncCollection(ctx, s, inflight.FamilySections, KeySections, "sections", &s.sections, force, s.API.GetSections)
}

// FetchProducts returns the raw product listing for f (tags as ids, no
// badge). Use Products for the derived view.
func (s *SyncService) FetchProducts(ctx context.Context, f domain.ProductFilters, force bool) ([]domain.Product, error) {
	f = normalizeFilters(f)
	key := ProductsKey(f)
	coll := s.listing(key)
	return syncCollection(ctx, s, inflight.FamilyProducts, key, "products", coll, force,
		func(ctx context.Context) ([]domain.Product, error) {
			return s.API.GetProducts(ctx, f)
		})
}

// syncCollection is the stale-while-revalidate fetch shared by all
// collections.
//
// The shared fetch applies its outcome to coll itself, so the collection
// follows the cache even when every waiting caller has given up. A caller
// whose own ctx ends while waiting gets ctx.Err() and leaves coll untouched.
func syncCollection[T any](
	ctx context.Context, s *SyncService, family, key, name string,
	coll *collection[T], force bool, fetch func(context.Context) ([]T, error),
) ([]T, error) {
	tr := otel.Tracer("services/SyncService")
	ctx, span := tr.Start(ctx, "Fetch",
		trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.Bool("force", force),
		),
	)
	defer span.End()

	if !force && !s.Cache.IsStale(ctx, key, s.TTL) {
		var cached []T
		if s.Cache.Get(ctx, key, &cached) {
			span.SetAttributes(attribute.Bool("cache.fresh", true))
			adoptCached(ctx, s, coll, name, key, cached)
			return cached, nil
		}
	}
	span.SetAttributes(attribute.Bool("cache.fresh", false))

	s.mu.Lock()
	coll.loading = true
	s.mu.Unlock()

	v, shared, err := s.Flights.Do(ctx, family, key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout())
		defer cancel()
		items, err := fetch(fctx)
		if err != nil {
			s.mu.Lock()
			coll.loading = false
			coll.err = err
			s.mu.Unlock()
			s.Log.Warn().Err(err).Str("key", key).Msg("catalog fetch failed; keeping last good data")
			return nil, err
		}
		if items == nil {
			items = []T{}
		}
		s.Cache.Save(fctx, key, items)

		s.mu.Lock()
		coll.items = items
		coll.loaded = true
		coll.loading = false
		coll.err = nil
		coll.version++
		coll.updatedAt = s.now()
		ver := coll.version
		s.mu.Unlock()
		s.notify(Event{Collection: name, Key: key, Version: ver})
		return items, nil
	})
	span.SetAttributes(attribute.Bool("inflight.shared", shared))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		s.mu.Lock()
		// The fetch normally settles coll itself. It is still loading only
		// when this caller joined a fetch that had already settled it, or
		// one started for an evicted listing.
		switch {
		case !coll.loading:
		case ctx.Err() == nil:
			coll.loading = false
			coll.err = err
		case !s.Flights.InFlight(family, key):
			coll.loading = false
		}
		prior := coll.items
		s.mu.Unlock()
		return prior, err
	}

	items := v.([]T)
	s.mu.Lock()
	if !coll.loading {
		s.mu.Unlock()
		return items, nil
	}
	coll.items = items
	coll.loaded = true
	coll.loading = false
	coll.err = nil
	coll.version++
	coll.updatedAt = s.now()
	ver := coll.version
	s.mu.Unlock()
	s.notify(Event{Collection: name, Key: key, Version: ver})
	return items, nil
}

// adoptCached installs cached items into coll when it has none yet or when
// the cache entry was written after coll last changed.
func adoptCached[T any](ctx context.Context, s *SyncService, coll *collection[T], name, key string, items []T) {
	at, _ := s.Cache.WrittenAt(ctx, key)
	s.mu.Lock()
	if coll.loaded && !at.After(coll.updatedAt) {
		s.mu.Unlock()
		return
	}
	coll.items = items
	coll.loaded = true
	coll.loading = false
	coll.err = nil
	coll.version++
	ver := coll.version
	if !at.IsZero() {
		coll.updatedAt = at
	}
	s.mu.Unlock()
	s.notify(Event{Collection: name, Key: key, Version: ver})
}

func (s *SyncService) fetchTimeout() time.Duration {
	if s.FetchTimeout > 0 {
		return s.FetchTimeout
	}
	return 20 * time.Second
}

// listing returns the product collection for key, creating it and dropping
// the least recently used filtered listing when over MaxListings.
func (s *SyncService) listing(key string) *collection[domain.Product] {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.products[key]
	if !ok {
		coll = &collection[domain.Product]{}
		s.products[key] = coll
		s.evictListings(key)
	}
	coll.used = now
	return coll
}

// evictListings drops least recently used filtered listings until the cap
// holds. keep and the unfiltered listing stay. Callers hold s.mu.
func (s *SyncService) evictListings(keep string) {
	limit := s.MaxListings
	if limit <= 0 {
		return
	}
	for len(s.products) > limit {
		victim := ""
		var oldest time.Time
		for k, c := range s.products {
			if k == keep || k == KeyProducts {
				continue
			}
			if victim == "" || c.used.Before(oldest) {
				victim, oldest = k, c.used
			}
		}
		if victim == "" {
			return
		}
		delete(s.products, victim)
		delete(s.memo, victim)
		s.Log.Debug().Str("key", victim).Msg("dropped idle product listing")
	}
}

// Listings reports how many product listings are held in memory.
func (s *SyncService) Listings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.products)
}

// ----------------------------------------------------------------------------
// Product keys

type productsKey struct {
	Category string   `json:"category"`
	Search   string   `json:"search"`
	Tags     []string `json:"tags"`
	Page     int      `json:"page"`
	Limit    int      `json:"limit"`
}

// normalizeFilters canonicalizes f: "all" means no category, the search text
// is trimmed, tags are trimmed, sorted and deduplicated, and pages below 1
// mean the first page.
func normalizeFilters(f domain.ProductFilters) domain.ProductFilters {
	if f.Category == domain.AllCategoriesID {
		f.Category = ""
	}
	f.Category = strings.TrimSpace(f.Category)
	f.Search = strings.TrimSpace(f.Search)
	if len(f.Tags) > 0 {
		seen := make(map[string]struct{}, len(f.Tags))
		tags := make([]string, 0, len(f.Tags))
		for _, t := range f.Tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
		sort.Strings(tags)
		f.Tags = tags
	}
	if len(f.Tags) == 0 {
		f.Tags = nil
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 0 {
		f.Limit = 0
	}
	return f
}

// ProductsKey maps filters to a cache key. Empty filters share the generic
// "products" key; anything else is "products_" followed by the JSON of the
// normalized filters with a fixed field order, which is injective.
func ProductsKey(f domain.ProductFilters) string {
	f = normalizeFilters(f)
	if f.IsZero() {
		return KeyProducts
	}
	tags := f.Tags
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(productsKey{
		Category: f.Category,
		Search:   f.Search,
		Tags:     tags,
		Page:     f.Page,
		Limit:    f.Limit,
	})
	return KeyProducts + "_" + string(b)
}

// ----------------------------------------------------------------------------
// Snapshots and the derived product view

func snapshotOf[T any](c *collection[T]) Snapshot[T] {
	sn := Snapshot[T]{
		Items:     c.items,
		Loading:   c.loading,
		Version:   c.version,
		UpdatedAt: c.updatedAt,
	}
	if sn.Items == nil {
		sn.Items = []T{}
	}
	if c.err != nil {
		sn.Error = c.err.Error()
	}
	return sn
}

func (s *SyncService) Categories() Snapshot[domain.Category] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshotOf(&s.categories)
}

func (s *SyncService) Tags() Snapshot[domain.Tag] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshotOf(&s.tags)
}

func (s *SyncService) Sections() Snapshot[domain.Section] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshotOf(&s.sections)
}

// Products returns the derived listing for f: raw products with tag names
// and badge resolved against the current tags. The derivation is memoized
// per key and recomputed only when the products or the tags change.
func (s *SyncService) Products(f domain.ProductFilters) Snapshot[domain.Product] {
	key := ProductsKey(f)
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.products[key]
	if !ok {
		return Snapshot[domain.Product]{Items: []domain.Product{}}
	}
	coll.used = now
	sn := snapshotOf(coll)
	if m, ok := s.memo[key]; ok && m.pv == coll.version && m.tv == s.tags.version {
		sn.Items = m.items
		return sn
	}
	items := deriveProducts(coll.items, s.tags.items)
	s.memo[key] = derived{pv: coll.version, tv: s.tags.version, items: items}
	s.derives++
	sn.Items = items
	return sn
}

// DeriveProducts resolves tag names and badges for products against tags.
func DeriveProducts(products []domain.Product, tags []domain.Tag) []domain.Product {
	return deriveProducts(products, tags)
}

var badgeOrder = []string{domain.BadgeFeatured, domain.BadgeNew, domain.BadgeSale}

func deriveProducts(products []domain.Product, tags []domain.Tag) []domain.Product {
	byID := make(map[string]string, len(tags))
	for _, t := range tags {
		byID[t.ID] = t.Name
	}
	folder := cases.Fold()
	badges := make(map[string]string, len(badgeOrder))
	for _, b := range badgeOrder {
		badges[folder.String(b)] = b
	}

	out := make([]domain.Product, len(products))
	for i, p := range products {
		p.Tags = make([]domain.TagRef, 0, len(p.TagIDs))
		found := map[string]bool{}
		for _, id := range p.TagIDs {
			name, ok := byID[id]
			if !ok {
				continue
			}
			p.Tags = append(p.Tags, domain.TagRef{ID: id, Name: name})
			if b, ok := badges[folder.String(strings.TrimSpace(name))]; ok {
				found[b] = true
			}
		}
		p.Badge = ""
		for _, b := range badgeOrder {
			if found[b] {
				p.Badge = b
				break
			}
		}
		out[i] = p
	}
	return out
}

// ----------------------------------------------------------------------------
// Activation

// Activate seeds every collection from the cache synchronously, so a warm
// cache gives a non-empty first read without a loading state, then refreshes
// stale collections in the background. Use Wait to join the refresh.
func (s *SyncService) Activate(ctx context.Context) {
	seed(ctx, s, &s.categories, "categories", KeyCategories)
	seed(ctx, s, &s.tags, "tags", KeyTags)
	seed(ctx, s, &s.sections, "sections", KeySections)
	seed(ctx, s, s.listing(KeyProducts), "products", KeyProducts)

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		if err := s.RefreshStale(context.WithoutCancel(ctx)); err != nil {
			s.Log.Warn().Err(err).Msg("background catalog refresh finished with errors")
		}
	}()
}

func seed[T any](ctx context.Context, s *SyncService, coll *collection[T], name, key string) {
	var cached []T
	if s.Cache.Get(ctx, key, &cached) {
		adoptCached(ctx, s, coll, name, key, cached)
		return
	}
	s.mu.Lock()
	if !coll.loaded {
		coll.loading = true
	}
	s.mu.Unlock()
}

// RefreshStale refreshes every stale collection concurrently and returns the
// first error. Fresh collections cost nothing.
func (s *SyncService) RefreshStale(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { _, err := s.FetchCategories(ctx, false); return err })
	g.Go(func() error { _, err := s.FetchTags(ctx, false); return err })
	g.Go(func() error { _, err := s.FetchSections(ctx, false); return err })
	g.Go(func() error { _, err := s.FetchProducts(ctx, domain.ProductFilters{}, false); return err })
	return g.Wait()
}

// RefreshAll forces every collection to refetch: the static ones, the
// unfiltered product listing and the RefreshListings most recently used
// filtered listings.
func (s *SyncService) RefreshAll(ctx context.Context) error {
	keys := s.recentListings()

	var g errgroup.Group
	g.SetLimit(4)
	g.Go(func() error { _, err := s.FetchCategories(ctx, true); return err })
	g.Go(func() error { _, err := s.FetchTags(ctx, true); return err })
	g.Go(func() error { _, err := s.FetchSections(ctx, true); return err })
	for _, k := range keys {
		f, ok := filtersFromKey(k)
		if !ok {
			continue
		}
		g.Go(func() error { _, err := s.FetchProducts(ctx, f, true); return err })
	}
	return g.Wait()
}

// recentListings returns the unfiltered product key followed by the most
// recently used filtered keys, up to RefreshListings of them.
func (s *SyncService) recentListings() []string {
	s.mu.Lock()
	type entry struct {
		key  string
		used time.Time
	}
	filtered := make([]entry, 0, len(s.products))
	for k, c := range s.products {
		if k != KeyProducts {
			filtered = append(filtered, entry{k, c.used})
		}
	}
	s.mu.Unlock()

	sort.Slice(filtered, func(i, j int) bool {
		if !filtered[i].used.Equal(filtered[j].used) {
			return filtered[i].used.After(filtered[j].used)
		}
		return filtered[i].key < filtered[j].key
	})
	limit := s.RefreshListings
	if limit < 0 {
		limit = 0
	}
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	keys := make([]string, 0, len(filtered)+1)
	keys = append(keys, KeyProducts)
	for _, e := range filtered {
		keys = append(keys, e.key)
	}
	return keys
}

func filtersFromKey(key string) (domain.ProductFilters, bool) {
	if key == KeyProducts {
		return domain.ProductFilters{}, true
	}
	raw, ok := strings.CutPrefix(key, KeyProducts+"_")
	if !ok {
		return domain.ProductFilters{}, false
	}
	var k productsKey
	if err := json.Unmarshal([]byte(raw), &k); err != nil {
		return domain.ProductFilters{}, false
	}
	return domain.ProductFilters{Category: k.Category, Search: k.Search, Tags: k.Tags, Page: k.Page, Limit: k.Limit}, true
}

// Wait blocks until background refreshes started by Activate finish.
func (s *SyncService) Wait() { s.bg.Wait() }

// ----------------------------------------------------------------------------
// Watchers

// Watch registers fn for change events. After cancel returns no new
// callback starts. Callbacks run on the goroutine that applied the change
// and must not block.
func (s *SyncService) Watch(fn func(Event)) (cancel func()) {
	w := &watcher{fn: fn}
	w.alive.Store(true)
	s.wmu.Lock()
	s.nextW++
	id := s.nextW
	s.watchers[id] = w
	s.wmu.Unlock()
	return func() {
		w.alive.Store(false)
		s.wmu.Lock()
		delete(s.watchers, id)
		s.wmu.Unlock()
	}
}

func (s *SyncService) notify(ev Event) {
	s.wmu.Lock()
	ws := make([]*watcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		ws = append(ws, w)
	}
	s.wmu.Unlock()
	for _, w := range ws {
		if w.alive.Load() {
			w.fn(ev)
		}
	}
}

// ----------------------------------------------------------------------------
// Pass-throughs

// Addresses lists the addresses of the user in ctx. Calls are deduplicated
// per user and never cached, since addresses are private.
func (s *SyncService) Addresses(ctx context.Context) ([]domain.Address, error) {
	u, _ := domain.UserFromCtx(ctx)
	v, _, err := s.Flights.Do(ctx, inflight.FamilyAddresses, u.ID, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout())
		defer cancel()
		return s.API.GetAddresses(fctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Address), nil
}

// AddAddress saves an address for the user in ctx.
func (s *SyncService) AddAddress(ctx context.Context, a domain.Address) (domain.Address, error) {
	return s.API.AddAddress(ctx, a)
}

// Product fetches one product with tags resolved. Calls are deduplicated
// per id.
func (s *SyncService) Product(ctx context.Context, id string) (domain.Product, error) {
	v, _, err := s.Flights.Do(ctx, inflight.FamilyProduct, id, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout())
		defer cancel()
		return s.API.GetProduct(fctx, id)
	})
	if shopapi.IsNotFound(err) {
		return domain.Product{}, ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, err
	}
	s.mu.Lock()
	tags := s.tags.items
	s.mu.Unlock()
	return deriveProducts([]domain.Product{v.(domain.Product)}, tags)[0], nil
}

// SectionDetail fetches a section with its products derived.
func (s *SyncService) SectionDetail(ctx context.Context, id string) (domain.SectionDetail, error) {
	v, _, err := s.Flights.Do(ctx, inflight.FamilySection, id, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout())
		defer cancel()
		return s.API.GetSectionDetail(fctx, id)
	})
	if shopapi.IsNotFound(err) {
		return domain.SectionDetail{}, ErrSectionNotFound
	}
	if err != nil {
		return domain.SectionDetail{}, err
	}
	sd := v.(domain.SectionDetail)
	s.mu.Lock()
	tags := s.tags.items
	s.mu.Unlock()
	sd.Products = deriveProducts(sd.Products, tags)
	return sd, nil
}

// SearchLocal ranks the cached product listings against query without
// contacting upstream. It searches every listing loaded so far.
func (s *SyncService) SearchLocal(query string, k int) ([]domain.Product, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	s.mu.Lock()
	byID := map[string]domain.Product{}
	for _, coll := range s.products {
		for _, p := range coll.items {
			if _, seen := byID[p.ID]; !seen {
				byID[p.ID] = p
			}
		}
	}
	tags := s.tags.items
	s.mu.Unlock()

	all := make([]domain.Product, 0, len(byID))
	for _, p := range byID {
		all = append(all, p)
	}
	all = deriveProducts(all, tags)
	docs := make([]search.Doc, 0, len(all))
	index := make(map[string]domain.Product, len(all))
	for _, p := range all {
		names := make([]string, 0, len(p.Tags))
		for _, t := range p.Tags {
			names = append(names, t.Name)
		}
		docs = append(docs, search.Doc{ID: p.ID, Title: p.Title, Body: strings.Join(names, " ") + " " + p.Description})
		index[p.ID] = p
	}
	res := search.New(docs).Search(query, k)
	out := make([]domain.Product, 0, len(res))
	for _, r := range res {
		out = append(out, index[r.ID])
	}
	return out, nil
}

// IsUpstreamUnavailable reports whether err came from the transport rather
// than an upstream answer.
func IsUpstreamUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var ae *shopapi.APIError
	if errors.As(err, &ae) {
		return ae.Status >= 500
	}
	return !errors.Is(err, ErrProductNotFound) && !errors.Is(err, ErrSectionNotFound)
}

// CachedProduct returns a product from any listing loaded so far, with tags
// resolved.
func (s *SyncService) CachedProduct(id string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, coll := range s.products {
		for _, p := range coll.items {
			if p.ID == id {
				return deriveProducts([]domain.Product{p}, s.tags.items)[0], true
			}
		}
	}
	return domain.Product{}, false
}

package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tbourn/go-shop-sync/internal/cache"
	"github.com/tbourn/go-shop-sync/internal/domain"
	"github.com/tbourn/go-shop-sync/internal/inflight"
	"github.com/tbourn/go-shop-sync/internal/repo"
)

func TestFetchCategories_PrependsSentinel(t *testing.T) {
	fx := newFixture(t)
	got, err := fx.sync.FetchCategories(context.Background(), false)
	if err != nil {
		t.Fatalf("FetchCategories: %v", err)
	}
	if len(got) != 3 || got[0].ID != domain.AllCategoriesID || got[0].Name != "All Categories" {
		t.Fatalf("categories = %+v", got)
	}
	snap := fx.sync.Categories()
	if snap.Loading || snap.Error != "" || len(snap.Items) != 3 || snap.Version != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestFetch_FreshCacheIsZeroNetwork(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.store.Save(ctx, KeyTags, []domain.Tag{{ID: "x", Name: "cached"}})

	got, err := fx.sync.FetchTags(ctx, false)
	if err != nil {
		t.Fatalf("FetchTags: %v", err)
	}
	if n := fx.shop.count("tags"); n != 0 {
		t.Fatalf("expected zero network calls, got %d", n)
	}
	if len(got) != 1 || got[0].Name != "cached" {
		t.Fatalf("expected cached value unchanged, got %+v", got)
	}
	if snap := fx.sync.Tags(); len(snap.Items) != 1 {
		t.Fatalf("collection not seeded from cache: %+v", snap)
	}
}

func TestFetch_ForceBypassesFreshCache(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.store.Save(ctx, KeyTags, []domain.Tag{{ID: "x", Name: "cached"}})

	got, err := fx.sync.FetchTags(ctx, true)
	if err != nil || fx.shop.count("tags") != 1 || len(got) != 3 {
		t.Fatalf("forced fetch: %v calls=%d got=%+v", err, fx.shop.count("tags"), got)
	}
}

func TestFetch_StaleTriggersOneCallAndRewrites(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.store.Save(ctx, KeySections, []domain.Section{{ID: "old"}})
	before, _ := fx.store.WrittenAt(ctx, KeySections)

	fx.clock.Advance(cache.DefaultTTL + time.Second)
	got, err := fx.sync.FetchSections(ctx, false)
	if err != nil {
		t.Fatalf("FetchSections: %v", err)
	}
	if n := fx.shop.count("sections"); n != 1 {
		t.Fatalf("expected exactly one call, got %d", n)
	}
	if len(got) != 1 || got[0].ID != "s1" {
		t.Fatalf("got %+v", got)
	}
	after, ok := fx.store.WrittenAt(ctx, KeySections)
	if !ok || !after.After(before) {
		t.Fatalf("timestamp not refreshed: before=%v after=%v", before, after)
	}
	var cached []domain.Section
	if !fx.store.Get(ctx, KeySections, &cached) || cached[0].ID != "s1" {
		t.Fatalf("cache not overwritten: %+v", cached)
	}
	if fx.store.IsStale(ctx, KeySections, 0) {
		t.Fatal("entry should be fresh after refresh")
	}
}

func TestFetch_ConcurrentCallersShareOneCall(t *testing.T) {
	fx := newFixture(t)
	fx.shop.gate = make(chan struct{})

	const n = 6
	var wg sync.WaitGroup
	results := make([][]domain.Category, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = fx.sync.FetchCategories(context.Background(), false)
		}(i)
	}
	// Let every goroutine reach the registry before the fetch completes.
	time.Sleep(50 * time.Millisecond)
	close(fx.shop.gate)
	wg.Wait()

	if c := fx.shop.count("categories"); c != 1 {
		t.Fatalf("expected one upstream call, got %d", c)
	}
	for i := range results {
		if errs[i] != nil || len(results[i]) != 3 {
			t.Fatalf("caller %d: %v %+v", i, errs[i], results[i])
		}
	}
}

func TestFetch_FailureKeepsPriorState(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	if _, err := fx.sync.FetchTags(ctx, false); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}
	fx.shop.listErr = errUpstream

	got, err := fx.sync.FetchTags(ctx, true)
	if !errors.Is(err, errUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("prior items should be returned, got %+v", got)
	}
	snap := fx.sync.Tags()
	if snap.Loading || snap.Error == "" || len(snap.Items) != 3 {
		t.Fatalf("snapshot after failure = %+v", snap)
	}

	// The in-flight entry is gone; the next fetch goes out again.
	fx.shop.listErr = nil
	if _, err := fx.sync.FetchTags(ctx, true); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if snap := fx.sync.Tags(); snap.Error != "" {
		t.Fatalf("error should clear on success: %+v", snap)
	}
}

func TestFetch_CorruptedCacheIsRefetched(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	if err := repo.PutCacheEntry(ctx, fx.db, cache.Namespace+KeyTags, "{oops", fx.clock.Now()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := fx.sync.FetchTags(ctx, false); err != nil {
		t.Fatalf("FetchTags: %v", err)
	}
	if fx.shop.count("tags") != 1 {
		t.Fatal("corrupted entry must count as stale")
	}
}

func TestProductsKey(t *testing.T) {
	if k := ProductsKey(domain.ProductFilters{}); k != KeyProducts {
		t.Fatalf("empty filters key = %q", k)
	}
	if k := ProductsKey(domain.ProductFilters{Category: "all", Page: 1}); k != KeyProducts {
		t.Fatalf("all/page-1 key = %q", k)
	}
	a := ProductsKey(domain.ProductFilters{Category: "3", Tags: []string{"b", "a", "a", " "}})
	b := ProductsKey(domain.ProductFilters{Category: "3", Tags: []string{"a", "b"}})
	if a != b {
		t.Fatalf("tag order/dupes must not matter: %q vs %q", a, b)
	}
	if want := `products_{"category":"3","search":"","tags":["a","b"],"page":1,"limit":0}`; a != want {
		t.Fatalf("key = %q, want %q", a, want)
	}

	// Values that a naive concatenation would confuse stay distinct.
	x := ProductsKey(domain.ProductFilters{Category: "a_b", Search: "c"})
	y := ProductsKey(domain.ProductFilters{Category: "a", Search: "b_c"})
	z := ProductsKey(domain.ProductFilters{Tags: []string{"a,b"}})
	w := ProductsKey(domain.ProductFilters{Tags: []string{"a", "b"}})
	if x == y || z == w {
		t.Fatalf("keys collide: %q %q %q %q", x, y, z, w)
	}
}

func TestFetchProducts_EmptyFiltersUseGenericKey(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	if _, err := fx.sync.FetchProducts(ctx, domain.ProductFilters{Category: "all"}, false); err != nil {
		t.Fatalf("FetchProducts: %v", err)
	}
	var cached []domain.Product
	if !fx.store.Get(ctx, KeyProducts, &cached) || len(cached) != 3 {
		t.Fatalf("generic products key not written: %+v", cached)
	}

	if _, err := fx.sync.FetchProducts(ctx, domain.ProductFilters{Search: "sword"}, false); err != nil {
		t.Fatalf("filtered FetchProducts: %v", err)
	}
	key := ProductsKey(domain.ProductFilters{Search: "sword"})
	if !fx.store.Get(ctx, key, &cached) || len(cached) != 1 {
		t.Fatalf("filtered key %q not written: %+v", key, cached)
	}
	if fx.shop.count("products") != 2 {
		t.Fatalf("calls = %d", fx.shop.count("products"))
	}
}

func TestProducts_DerivedViewIsMemoized(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	if _, err := fx.sync.FetchProducts(ctx, domain.ProductFilters{}, false); err != nil {
		t.Fatalf("FetchProducts: %v", err)
	}

	// Without tags, names and badges are unresolved.
	snap := fx.sync.Products(domain.ProductFilters{})
	if len(snap.Items) != 3 || len(snap.Items[0].Tags) != 0 || snap.Items[0].Badge != "" {
		t.Fatalf("before tags: %+v", snap.Items)
	}
	fx.sync.Products(domain.ProductFilters{})
	if fx.sync.derives != 1 {
		t.Fatalf("expected memoized derivation, derives=%d", fx.sync.derives)
	}

	if _, err := fx.sync.FetchTags(ctx, false); err != nil {
		t.Fatalf("FetchTags: %v", err)
	}
	snap = fx.sync.Products(domain.ProductFilters{})
	if fx.sync.derives != 2 {
		t.Fatalf("tag change should re-derive, derives=%d", fx.sync.derives)
	}
	byID := map[string]domain.Product{}
	for _, p := range snap.Items {
		byID[p.ID] = p
	}
	if p := byID["p1"]; p.Badge != domain.BadgeSale || len(p.Tags) != 2 || p.Tags[0].Name != "Rare" {
		t.Fatalf("p1 = %+v", p)
	}
	if p := byID["p2"]; p.Badge != domain.BadgeFeatured {
		t.Fatalf("featured outranks sale (case-insensitive): %+v", p)
	}
	if p := byID["p3"]; p.Badge != "" || len(p.Tags) != 0 {
		t.Fatalf("p3 = %+v", p)
	}
	if fx.shop.count("products") != 1 {
		t.Fatal("deriving must not refetch products")
	}

	if got := fx.sync.Products(domain.ProductFilters{Search: "unknown"}); len(got.Items) != 0 {
		t.Fatalf("unknown listing should be empty: %+v", got)
	}
}

func TestActivate_WarmCacheSeedsWithoutLoading(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.store.Save(ctx, KeyCategories, []domain.Category{{ID: "all"}, {ID: "1"}})
	fx.store.Save(ctx, KeyTags, []domain.Tag{{ID: "t1", Name: "Featured"}})
	fx.store.Save(ctx, KeySections, []domain.Section{{ID: "s1"}})
	fx.store.Save(ctx, KeyProducts, []domain.Product{{ID: "p2", TagIDs: []string{"t1"}}})

	fx.sync.Activate(ctx)

	if snap := fx.sync.Categories(); snap.Loading || len(snap.Items) != 2 {
		t.Fatalf("categories = %+v", snap)
	}
	if snap := fx.sync.Products(domain.ProductFilters{}); snap.Loading || len(snap.Items) != 1 || snap.Items[0].Badge != domain.BadgeFeatured {
		t.Fatalf("products = %+v", snap)
	}
	fx.sync.Wait()
	for _, name := range []string{"categories", "tags", "sections", "products"} {
		if n := fx.shop.count(name); n != 0 {
			t.Fatalf("fresh %s should not be refetched, got %d calls", name, n)
		}
	}
}

func TestActivate_ColdCacheRefreshesInBackground(t *testing.T) {
	fx := newFixture(t)
	fx.shop.gate = make(chan struct{})
	fx.sync.Activate(context.Background())

	if snap := fx.sync.Tags(); !snap.Loading || len(snap.Items) != 0 {
		t.Fatalf("cold tags should be loading: %+v", snap)
	}
	close(fx.shop.gate)
	fx.sync.Wait()

	if snap := fx.sync.Tags(); snap.Loading || len(snap.Items) != 3 {
		t.Fatalf("tags after refresh = %+v", snap)
	}
	for _, name := range []string{"categories", "tags", "sections", "products"} {
		if n := fx.shop.count(name); n != 1 {
			t.Fatalf("%s calls = %d, want 1", name, n)
		}
	}
}

func TestWatch_CancelStopsCallbacks(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	var mu sync.Mutex
	var events []Event
	cancel := fx.sync.Watch(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	if _, err := fx.sync.FetchTags(ctx, true); err != nil {
		t.Fatal(err)
	}
	cancel()
	if _, err := fx.sync.FetchTags(ctx, true); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 || events[0].Collection != "tags" || events[0].Version != 1 {
		t.Fatalf("events = %+v", events)
	}
}

func TestRefreshAll_RefetchesKnownListings(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	_, _ = fx.sync.FetchProducts(ctx, domain.ProductFilters{}, false)
	_, _ = fx.sync.FetchProducts(ctx, domain.ProductFilters{Search: "sword"}, false)

	if err := fx.sync.RefreshAll(ctx); err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	if n := fx.shop.count("products"); n != 4 {
		t.Fatalf("products calls = %d, want 4", n)
	}
	if fx.shop.count("categories") != 1 || fx.shop.count("tags") != 1 || fx.shop.count("sections") != 1 {
		t.Fatal("static collections should be forced once each")
	}
}

func TestProductAndSectionDetail(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	_, _ = fx.sync.FetchTags(ctx, false)
	fx.shop.product["p9"] = domain.Product{ID: "p9", TagIDs: []string{"t2"}}

	p, err := fx.sync.Product(ctx, "p9")
	if err != nil || p.Badge != domain.BadgeSale {
		t.Fatalf("Product = %+v, %v", p, err)
	}
	if _, err := fx.sync.Product(ctx, "nope"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	sd, err := fx.sync.SectionDetail(ctx, "s1")
	if err != nil || len(sd.Products) != 1 || sd.Products[0].Badge != domain.BadgeSale {
		t.Fatalf("SectionDetail = %+v, %v", sd, err)
	}
	if _, err := fx.sync.SectionDetail(ctx, "zz"); !errors.Is(err, ErrSectionNotFound) {
		t.Fatalf("expected ErrSectionNotFound, got %v", err)
	}
}

func TestAddresses_PerUser(t *testing.T) {
	fx := newFixture(t)
	got, err := fx.sync.Addresses(withUser("u1"))
	if err != nil || len(got) != 1 {
		t.Fatalf("Addresses = %+v, %v", got, err)
	}
	a, err := fx.sync.AddAddress(withUser("u1"), domain.Address{Title: "Office"})
	if err != nil || a.ID == "" {
		t.Fatalf("AddAddress = %+v, %v", a, err)
	}
}

func TestSearchLocal(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	if _, err := fx.sync.SearchLocal("  ", 5); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
	_, _ = fx.sync.FetchTags(ctx, false)
	_, _ = fx.sync.FetchProducts(ctx, domain.ProductFilters{}, false)

	got, err := fx.sync.SearchLocal("SWORD", 5)
	if err != nil || len(got) != 1 || got[0].ID != "p1" {
		t.Fatalf("SearchLocal = %+v, %v", got, err)
	}
	// Tag names are searchable.
	got, _ = fx.sync.SearchLocal("rare", 5)
	if len(got) != 1 || got[0].ID != "p1" || !strings.EqualFold(got[0].Tags[0].Name, "rare") {
		t.Fatalf("tag search = %+v", got)
	}
}

func TestCachedProduct(t *testing.T) {
	fx := newFixture(t)
	_, _ = fx.sync.FetchProducts(context.Background(), domain.ProductFilters{}, false)
	if p, ok := fx.sync.CachedProduct("p2"); !ok || p.Title != "Wooden shield" {
		t.Fatalf("CachedProduct = %+v %v", p, ok)
	}
	if _, ok := fx.sync.CachedProduct("zz"); ok {
		t.Fatal("expected miss")
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFetch_CancelledWaiterStillUpdatesCollection(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.store.Save(ctx, KeyTags, []domain.Tag{{ID: "old", Name: "old"}})
	if _, err := fx.sync.FetchTags(ctx, false); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}
	fx.clock.Advance(cache.DefaultTTL + time.Second)

	fx.shop.gate = make(chan struct{})
	cctx, cancel := context.WithCancel(ctx)
	errc := make(chan error, 1)
	go func() {
		_, err := fx.sync.FetchTags(cctx, false)
		errc <- err
	}()
	waitUntil(t, func() bool { return fx.shop.count("tags") == 1 })
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if snap := fx.sync.Tags(); snap.Error != "" {
		t.Fatalf("a caller's cancellation is not a collection error: %+v", snap)
	}

	close(fx.shop.gate)
	waitUntil(t, func() bool { return !fx.sync.Flights.InFlight(inflight.FamilyTags, KeyTags) })

	snap := fx.sync.Tags()
	if snap.Loading || snap.Error != "" || len(snap.Items) != 3 {
		t.Fatalf("collection should hold the fetched tags: %+v", snap)
	}
	got, err := fx.sync.FetchTags(ctx, false)
	if err != nil || len(got) != 3 || fx.shop.count("tags") != 1 {
		t.Fatalf("fresh fetch = %+v, %v, calls=%d", got, err, fx.shop.count("tags"))
	}
}

func TestFetch_FreshCacheNewerThanCollectionIsAdopted(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	if _, err := fx.sync.FetchTags(ctx, false); err != nil {
		t.Fatalf("FetchTags: %v", err)
	}

	// Another writer sharing the backend refreshes the entry.
	fx.clock.Advance(time.Second)
	fx.store.Save(ctx, KeyTags, []domain.Tag{{ID: "t9", Name: "Limited"}})

	if _, err := fx.sync.FetchTags(ctx, false); err != nil {
		t.Fatalf("FetchTags: %v", err)
	}
	snap := fx.sync.Tags()
	if len(snap.Items) != 1 || snap.Items[0].ID != "t9" || snap.Version != 2 {
		t.Fatalf("newer cache entry not adopted: %+v", snap)
	}
	if fx.shop.count("tags") != 1 {
		t.Fatalf("calls = %d", fx.shop.count("tags"))
	}

	// Reading the same entry again changes nothing.
	_, _ = fx.sync.FetchTags(ctx, false)
	if v := fx.sync.Tags().Version; v != 2 {
		t.Fatalf("version = %d after re-reading the same entry", v)
	}
}

func TestFetchProducts_ListingsAreBounded(t *testing.T) {
	fx := newFixture(t)
	fx.sync.MaxListings = 3
	ctx := context.Background()

	if _, err := fx.sync.FetchProducts(ctx, domain.ProductFilters{}, false); err != nil {
		t.Fatalf("FetchProducts: %v", err)
	}
	for _, q := range []string{"a", "b", "c", "d"} {
		fx.clock.Advance(time.Second)
		if _, err := fx.sync.FetchProducts(ctx, domain.ProductFilters{Search: q}, false); err != nil {
			t.Fatalf("FetchProducts(%q): %v", q, err)
		}
		fx.sync.Products(domain.ProductFilters{Search: q})
	}

	if n := fx.sync.Listings(); n != 3 {
		t.Fatalf("listings = %d, want 3", n)
	}
	fx.sync.mu.Lock()
	_, generic := fx.sync.products[KeyProducts]
	_, oldest := fx.sync.products[ProductsKey(domain.ProductFilters{Search: "a"})]
	_, newest := fx.sync.products[ProductsKey(domain.ProductFilters{Search: "d"})]
	memo := len(fx.sync.memo)
	fx.sync.mu.Unlock()
	if !generic || oldest || !newest {
		t.Fatalf("generic=%v oldest=%v newest=%v", generic, oldest, newest)
	}
	if memo > 2 {
		t.Fatalf("memo entries of dropped listings kept: %d", memo)
	}
}

func TestRefreshAll_CapsFilteredListings(t *testing.T) {
	fx := newFixture(t)
	fx.sync.RefreshListings = 2
	ctx := context.Background()
	for _, q := range []string{"a", "b", "c", "d"} {
		fx.clock.Advance(time.Second)
		_, _ = fx.sync.FetchProducts(ctx, domain.ProductFilters{Search: q}, false)
	}
	want := []string{
		KeyProducts,
		ProductsKey(domain.ProductFilters{Search: "d"}),
		ProductsKey(domain.ProductFilters{Search: "c"}),
	}
	got := fx.sync.recentListings()
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("recent listings = %q, want %q", got, want)
	}

	before := fx.shop.count("products")
	if err := fx.sync.RefreshAll(ctx); err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	if n := fx.shop.count("products") - before; n != 3 {
		t.Fatalf("refetched %d listings, want 3", n)
	}
}

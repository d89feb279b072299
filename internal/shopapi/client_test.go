package shopapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-shop-sync/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.Client(), srv.URL+"/", "https://cdn.example.com/")
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestGetProducts_QueryAndNormalization(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("category") != "3" || q.Get("search") != "sword" || q.Get("tags") != "1,2" || q.Get("page") != "2" {
			t.Errorf("unexpected query %v", q)
		}
		writeJSON(w, 200, `{"status":"success","data":[
			{"id":10,"title":"Sword","description":"<p>Sharp &amp; shiny</p>","amount":"1,500","category":3,
			 "tags":"[1,2]","image":"img/sword.png","custom_fields":[{"label":"Nick","required":true}],
			 "delivery_range":"1-2 days"},
			{"id":"11","name":"Shield","price":250,"category":{"id":"4"},"tags":"2, 5","images":["https://x/y.png"]}
		]}`)
	})

	got, err := c.GetProducts(context.Background(), domain.ProductFilters{
		Category: "3", Search: "sword", Tags: []string{"1", "2"}, Page: 2,
	})
	if err != nil {
		t.Fatalf("GetProducts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	p := got[0]
	if p.ID != "10" || p.Title != "Sword" || p.Description != "Sharp & shiny" || p.Category != "3" {
		t.Fatalf("product 0 = %+v", p)
	}
	if !p.Price.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("price = %s", p.Price)
	}
	if strings.Join(p.TagIDs, ",") != "1,2" || p.Image != "https://cdn.example.com/img/sword.png" {
		t.Fatalf("tags/image = %v %q", p.TagIDs, p.Image)
	}
	if len(p.CustomFields) == 0 || p.DeliveryRange != "1-2 days" {
		t.Fatalf("custom fields/delivery = %s %q", p.CustomFields, p.DeliveryRange)
	}
	q := got[1]
	if q.Title != "Shield" || q.Category != "4" || strings.Join(q.TagIDs, ",") != "2,5" || q.Image != "https://x/y.png" {
		t.Fatalf("product 1 = %+v", q)
	}
}

func TestGetProducts_AllCategoryNotSent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("expected empty query, got %q", r.URL.RawQuery)
		}
		writeJSON(w, 200, `{"status":"success","data":{"items":[]}}`)
	})
	got, err := c.GetProducts(context.Background(), domain.ProductFilters{Category: domain.AllCategoriesID})
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestNon2xx_ReturnsAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 404, `{"code":"not_found","message":"no such code"}`)
	})
	_, err := c.GetDiscount(context.Background(), "NOPE")
	var ae *APIError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if ae.Status != 404 || ae.Code != "not_found" || ae.Message != "no such code" {
		t.Fatalf("api error = %+v", ae)
	}
	if !IsNotFound(err) || IsUnauthorized(err) {
		t.Fatal("status helpers disagree")
	}
	if !strings.Contains(ae.Error(), "status=404") {
		t.Fatalf("Error() = %q", ae.Error())
	}
}

func TestFailedEnvelope_ReturnsAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"status":"error","message":"cart is locked"}`)
	})
	err := c.AddToCart(context.Background(), domain.CartItem{ProductID: "1", Quantity: 1})
	var ae *APIError
	if !errors.As(err, &ae) || ae.Message != "cart is locked" {
		t.Fatalf("expected envelope error, got %v", err)
	}
}

func TestBadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `<html>oops</html>`)
	})
	if _, err := c.GetTags(context.Background()); err == nil || !strings.Contains(err.Error(), "bad json") {
		t.Fatalf("expected bad json error, got %v", err)
	}
}

func TestAddToCart_SendsPayloadAndToken(t *testing.T) {
	var got domain.CartItem
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/cart" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			t.Errorf("auth header = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		writeJSON(w, 200, `{"status":true,"data":null}`)
	})
	c.Token = func(context.Context) string { return "tok-1" }

	item := domain.CartItem{ProductID: "p1", Quantity: 2, ShippingID: "a1", CustomFields: map[string]any{"Nick": "neo"}}
	if err := c.AddToCart(context.Background(), item); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	if got.ProductID != "p1" || got.Quantity != 2 || got.ShippingID != "a1" || got.CustomFields["Nick"] != "neo" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestGetDiscount_Normalizes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/discounts/SPRING" {
			t.Errorf("path = %s", r.URL.Path)
		}
		writeJSON(w, 200, `{"status":"success","data":{"type":"Percentage","value":"10",
			"min_price":1000,"max_price":null,"start_date":"2025-01-01","end_date":""}}`)
	})
	d, err := c.GetDiscount(context.Background(), "SPRING")
	if err != nil {
		t.Fatalf("GetDiscount: %v", err)
	}
	if d.Code != "SPRING" || d.Type != domain.DiscountPercentage || !d.Value.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("discount = %+v", d)
	}
	if d.MinPrice == nil || !d.MinPrice.Equal(decimal.NewFromInt(1000)) || d.MaxPrice != nil {
		t.Fatalf("bounds = %v %v", d.MinPrice, d.MaxPrice)
	}
	if d.StartDate == nil || d.EndDate != nil {
		t.Fatalf("dates = %v %v", d.StartDate, d.EndDate)
	}
}

func TestCatalogLists(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/categories":
			writeJSON(w, 200, `{"status":"success","data":[{"id":1,"name":"Games","slug":"games"}]}`)
		case "/sections":
			writeJSON(w, 200, `{"status":"success","data":[{"id":"s1","title":"Top","products":"[1,2]"}]}`)
		case "/sections/s1":
			writeJSON(w, 200, `{"status":"success","data":{"id":"s1","title":"Top","products":[{"id":1,"title":"A","amount":5}]}}`)
		case "/addresses":
			if r.Method == http.MethodPost {
				writeJSON(w, 201, `{"status":"success","data":{"id":"a9","title":"Home","address":"Main st 1"}}`)
				return
			}
			writeJSON(w, 200, `{"status":"success","data":[{"id":"a1","title":"Work"}]}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	cats, err := c.GetCategories(ctx)
	if err != nil || len(cats) != 1 || cats[0].ID != "1" || cats[0].Slug != "games" {
		t.Fatalf("categories = %+v, %v", cats, err)
	}
	secs, err := c.GetSections(ctx)
	if err != nil || len(secs) != 1 || strings.Join(secs[0].ProductIDs, ",") != "1,2" {
		t.Fatalf("sections = %+v, %v", secs, err)
	}
	sd, err := c.GetSectionDetail(ctx, "s1")
	if err != nil || len(sd.Products) != 1 || sd.Products[0].Title != "A" {
		t.Fatalf("section detail = %+v, %v", sd, err)
	}
	addrs, err := c.GetAddresses(ctx)
	if err != nil || len(addrs) != 1 || addrs[0].ID != "a1" {
		t.Fatalf("addresses = %+v, %v", addrs, err)
	}
	a, err := c.AddAddress(ctx, domain.Address{Title: "Home"})
	if err != nil || a.ID != "a9" || a.Line != "Main st 1" {
		t.Fatalf("added = %+v, %v", a, err)
	}
	if _, err := c.GetProduct(ctx, "missing"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLimiter_WaitRespectsContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"status":"success","data":[]}`)
	})
	c.Limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	if _, err := c.GetTags(context.Background()); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.GetTags(ctx); err == nil {
		t.Fatal("expected limiter wait to fail")
	}
}

func TestImageURL(t *testing.T) {
	c := New(http.DefaultClient, "https://api.example.com", "https://cdn.example.com/")
	tests := map[string]string{
		"":                   "",
		"/a/b.png":           "https://cdn.example.com/a/b.png",
		"a.png":              "https://cdn.example.com/a.png",
		"https://x.io/y.png": "https://x.io/y.png",
		"HTTP://x.io/y.png":  "HTTP://x.io/y.png",
		"//cdn2.io/z.png":    "//cdn2.io/z.png",
	}
	for in, want := range tests {
		if got := c.ImageURL(in); got != want {
			t.Errorf("ImageURL(%q) = %q, want %q", in, got, want)
		}
	}
	c.AssetsURL = ""
	if got := c.ImageURL("a.png"); got != "https://api.example.com/a.png" {
		t.Fatalf("fallback to base: %q", got)
	}
}

func TestEmptyBaseURL(t *testing.T) {
	c := &Client{Doer: http.DefaultClient}
	if _, err := c.GetTags(context.Background()); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

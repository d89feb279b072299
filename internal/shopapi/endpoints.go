package shopapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tbourn/go-shop-sync/internal/domain"
)

// GetProducts lists products matching f. An "all" category is not sent.
func (c *Client) GetProducts(ctx context.Context, f domain.ProductFilters) ([]domain.Product, error) {
	q := url.Values{}
	if f.Category != "" && f.Category != domain.AllCategoriesID {
		q.Set("category", f.Category)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if len(f.Tags) > 0 {
		q.Set("tags", strings.Join(f.Tags, ","))
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	data, err := c.do(ctx, http.MethodGet, "/products", q, nil)
	if err != nil {
		return nil, err
	}
	items, err := decodeList(data)
	if err != nil {
		return nil, fmt.Errorf("GetProducts: %w", err)
	}
	out := make([]domain.Product, 0, len(items))
	for _, m := range items {
		p, err := c.toProduct(m)
		if err != nil {
			return nil, fmt.Errorf("GetProducts: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// GetProduct fetches one product with its authoritative price and schema.
func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	data, err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return domain.Product{}, err
	}
	m, err := decodeObject(data)
	if err != nil {
		return domain.Product{}, fmt.Errorf("GetProduct: %w", err)
	}
	return c.toProduct(m)
}

// GetCategories lists categories as sent upstream (no sentinel).
func (c *Client) GetCategories(ctx context.Context) ([]domain.Category, error) {
	items, err := c.list(ctx, "/categories")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(items))
	for _, m := range items {
		out = append(out, toCategory(m))
	}
	return out, nil
}

func (c *Client) GetTags(ctx context.Context) ([]domain.Tag, error) {
	items, err := c.list(ctx, "/tags")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Tag, 0, len(items))
	for _, m := range items {
		out = append(out, toTag(m))
	}
	return out, nil
}

func (c *Client) GetSections(ctx context.Context) ([]domain.Section, error) {
	items, err := c.list(ctx, "/sections")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Section, 0, len(items))
	for _, m := range items {
		out = append(out, toSection(m))
	}
	return out, nil
}

// GetSectionDetail fetches a section with its products embedded.
func (c *Client) GetSectionDetail(ctx context.Context, id string) (domain.SectionDetail, error) {
	data, err := c.do(ctx, http.MethodGet, "/sections/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return domain.SectionDetail{}, err
	}
	m, err := decodeObject(data)
	if err != nil {
		return domain.SectionDetail{}, fmt.Errorf("GetSectionDetail: %w", err)
	}
	sd := domain.SectionDetail{Section: toSection(m), Products: []domain.Product{}}
	if arr, ok := m["products"].([]any); ok {
		for _, it := range arr {
			pm, ok := it.(map[string]any)
			if !ok {
				continue
			}
			p, err := c.toProduct(pm)
			if err != nil {
				return domain.SectionDetail{}, fmt.Errorf("GetSectionDetail: %w", err)
			}
			sd.Products = append(sd.Products, p)
		}
	}
	return sd, nil
}

// GetAddresses lists the saved addresses of the calling user.
func (c *Client) GetAddresses(ctx context.Context) ([]domain.Address, error) {
	items, err := c.list(ctx, "/addresses")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Address, 0, len(items))
	for _, m := range items {
		out = append(out, toAddress(m))
	}
	return out, nil
}

// AddAddress saves a new address and returns it with its upstream id.
func (c *Client) AddAddress(ctx context.Context, a domain.Address) (domain.Address, error) {
	data, err := c.do(ctx, http.MethodPost, "/addresses", nil, a)
	if err != nil {
		return domain.Address{}, err
	}
	m, err := decodeObject(data)
	if err != nil {
		return domain.Address{}, fmt.Errorf("AddAddress: %w", err)
	}
	return toAddress(m), nil
}

// AddToCart submits a cart line.
func (c *Client) AddToCart(ctx context.Context, item domain.CartItem) error {
	_, err := c.do(ctx, http.MethodPost, "/cart", nil, item)
	return err
}

// GetDiscount looks a discount code up.
func (c *Client) GetDiscount(ctx context.Context, code string) (domain.Discount, error) {
	data, err := c.do(ctx, http.MethodGet, "/discounts/"+url.PathEscape(code), nil, nil)
	if err != nil {
		return domain.Discount{}, err
	}
	m, err := decodeObject(data)
	if err != nil {
		return domain.Discount{}, fmt.Errorf("GetDiscount: %w", err)
	}
	d, err := toDiscount(m)
	if err != nil {
		return domain.Discount{}, fmt.Errorf("GetDiscount: %w", err)
	}
	if d.Code == "" {
		d.Code = code
	}
	return d, nil
}

// ImageURL resolves a relative asset path. Absolute URLs pass through.
func (c *Client) ImageURL(rel string) string {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return ""
	}
	lower := strings.ToLower(rel)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(rel, "//") {
		return rel
	}
	base := c.AssetsURL
	if base == "" {
		base = c.BaseURL
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(rel, "/")
}

func (c *Client) list(ctx context.Context, path string) ([]map[string]any, error) {
	data, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	items, err := decodeList(data)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return items, nil
}

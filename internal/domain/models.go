// Package domain defines the storefront models shared by the cache store, the
// synchronization layer, the order workflow and the HTTP layer. CacheEntry and
// SubmitReceipt are mapped with GORM; the catalog types are the normalized view
// produced from raw upstream payloads and are stored as JSON inside entries.
package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CacheEntry is one persisted key of the storefront cache.
//
// Fields:
//   - Key: namespaced resource key (e.g. "shop_cache_products_{...}").
//   - Value: JSON text of the envelope {data, timestamp}.
//   - WrittenAt: time of the last successful write (UTC).
type CacheEntry struct {
	Key       string    `gorm:"type:varchar(512);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	WrittenAt time.Time `gorm:"not null;index"`
}

// TableName returns the database table name for CacheEntry.
func (CacheEntry) TableName() string { return "cache_entries" }

// AllCategoriesID is the id of the synthetic category prepended to every
// category list.
const AllCategoriesID = "all"

// Badge values derived from a product's tags.
const (
	BadgeFeatured = "Featured"
	BadgeNew      = "New"
	BadgeSale     = "Sale"
)

// TagRef is a tag resolved against the tag collection.
type TagRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product is the denormalized product view served to the storefront.
type Product struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Category      string          `json:"category"`
	TagIDs        []string        `json:"tag_ids"`
	Tags          []TagRef        `json:"tags"`
	Image         string          `json:"image,omitempty"`
	Badge         string          `json:"badge,omitempty"`
	CustomFields  json.RawMessage `json:"custom_fields,omitempty"`
	DeliveryRange string          `json:"delivery_range,omitempty"`
}

// Category is a product category. The "all" sentinel has no parent.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
}

// Tag is a product tag.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Section is a curated storefront block (e.g. "Best sellers").
type Section struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Slug       string   `json:"slug,omitempty"`
	ProductIDs []string `json:"product_ids,omitempty"`
}

// SectionDetail is a section with its products resolved.
type SectionDetail struct {
	Section
	Products []Product `json:"products"`
}

// Address is a saved shipping address of the current user.
type Address struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Recipient  string `json:"recipient"`
	Phone      string `json:"phone"`
	City       string `json:"city"`
	Line       string `json:"line"`
	PostalCode string `json:"postal_code,omitempty"`
}

// ProductFilters narrows a product listing. The zero value means "no filters".
type ProductFilters struct {
	Category string   `json:"category,omitempty"`
	Search   string   `json:"search,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Page     int      `json:"page,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

// IsZero reports whether no filter is set. "all" counts as no category.
func (f ProductFilters) IsZero() bool {
	return (f.Category == "" || f.Category == AllCategoriesID) &&
		f.Search == "" && len(f.Tags) == 0 && f.Page <= 1 && f.Limit == 0
}

// CartItem is the payload submitted to the upstream cart-add endpoint.
type CartItem struct {
	ProductID    string         `json:"product_id"`
	Quantity     int            `json:"quantity"`
	ShippingID   string         `json:"shipping_id"`
	CustomFields map[string]any `json:"custom_fields"`
}

// CustomFieldType is the input kind of a product custom field.
type CustomFieldType string

const (
	FieldText        CustomFieldType = "text"
	FieldTextarea    CustomFieldType = "textarea"
	FieldNumber      CustomFieldType = "number"
	FieldSelect      CustomFieldType = "select"
	FieldMultiselect CustomFieldType = "multiselect"
	FieldCheckbox    CustomFieldType = "checkbox"
	FieldLink        CustomFieldType = "link"
)

// CustomField is one entry of a product's custom-field schema. Values are
// keyed by Label.
type CustomField struct {
	Label    string          `json:"label"`
	Type     CustomFieldType `json:"type"`
	Required bool            `json:"required"`
	Options  []string        `json:"options,omitempty"`
}

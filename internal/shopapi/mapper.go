package shopapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tbourn/go-shop-sync/internal/domain"
)

// toProduct maps a raw product. Tags stay as ids; names and the badge are
// resolved later against the tag collection.
func (c *Client) toProduct(m map[string]any) (domain.Product, error) {
	price, err := ParseAmount(pick(m, "amount", "price"))
	if err != nil {
		return domain.Product{}, err
	}
	p := domain.Product{
		ID:            pickString(m, "id", "_id", "product_id"),
		Title:         pickString(m, "title", "name"),
		Description:   StripHTML(pickString(m, "description", "desc")),
		Price:         price,
		Category:      categoryID(pick(m, "category", "category_id")),
		TagIDs:        TagIDs(m["tags"]),
		DeliveryRange: pickString(m, "delivery_range", "delivery_time", "delivery"),
	}
	if imgs := TagIDs(pick(m, "image", "images", "image_url")); len(imgs) > 0 {
		p.Image = c.ImageURL(imgs[0])
	}
	if cf := pick(m, "custom_fields", "customFields"); cf != nil {
		raw, err := json.Marshal(cf)
		if err != nil {
			return domain.Product{}, fmt.Errorf("shopapi: product %s custom fields: %w", p.ID, err)
		}
		p.CustomFields = raw
	}
	return p, nil
}

// categoryID accepts a bare id or an embedded category object.
func categoryID(v any) string {
	if m, ok := v.(map[string]any); ok {
		return pickString(m, "id", "_id")
	}
	s, _ := asString(v)
	return s
}

func toCategory(m map[string]any) domain.Category {
	return domain.Category{
		ID:       pickString(m, "id", "_id"),
		Name:     pickString(m, "name", "title"),
		Slug:     pickString(m, "slug"),
		ParentID: categoryID(pick(m, "parent_id", "parent")),
	}
}

func toTag(m map[string]any) domain.Tag {
	return domain.Tag{
		ID:   pickString(m, "id", "_id"),
		Name: pickString(m, "name", "title"),
	}
}

func toSection(m map[string]any) domain.Section {
	return domain.Section{
		ID:         pickString(m, "id", "_id"),
		Title:      pickString(m, "title", "name"),
		Slug:       pickString(m, "slug"),
		ProductIDs: TagIDs(pick(m, "product_ids", "products")),
	}
}

func toAddress(m map[string]any) domain.Address {
	return domain.Address{
		ID:         pickString(m, "id", "_id"),
		Title:      pickString(m, "title", "label"),
		Recipient:  pickString(m, "recipient", "name", "full_name"),
		Phone:      pickString(m, "phone", "phone_number"),
		City:       pickString(m, "city"),
		Line:       pickString(m, "line", "address", "street"),
		PostalCode: pickString(m, "postal_code", "zip"),
	}
}

func toDiscount(m map[string]any) (domain.Discount, error) {
	var d domain.Discount
	var err error
	d.Code = pickString(m, "code")
	d.Type = domain.DiscountType(strings.ToLower(pickString(m, "type", "discount_type")))
	if d.Value, err = ParseAmount(pick(m, "value", "amount")); err != nil {
		return d, err
	}
	if d.MinPrice, err = optionalAmount(pick(m, "min_price", "minPrice")); err != nil {
		return d, err
	}
	if d.MaxPrice, err = optionalAmount(pick(m, "max_price", "maxPrice")); err != nil {
		return d, err
	}
	if d.StartDate, err = ParseDate(pick(m, "start_date", "startDate")); err != nil {
		return d, err
	}
	if d.EndDate, err = ParseDate(pick(m, "end_date", "endDate")); err != nil {
		return d, err
	}
	return d, nil
}

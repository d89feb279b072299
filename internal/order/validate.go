package order

import (
	"regexp"
	"strings"

	"github.com/tbourn/go-shop-sync/internal/domain"
)

var linkRe = regexp.MustCompile(`^https?://`)

// Validate checks values against schema. Required fields must be non-empty:
// strings after trimming, lists must have an element, checkboxes must be
// ticked. Link fields, when set, must be http(s) URL strings.
func Validate(schema []domain.CustomField, values map[string]any) error {
	bad := map[string]string{}
	for _, f := range schema {
		v := values[f.Label]
		if f.Required && isEmpty(f, v) {
			bad[f.Label] = "required"
			continue
		}
		if f.Type == domain.FieldLink && v != nil {
			s, ok := v.(string)
			if !ok {
				bad[f.Label] = "must be a link"
				continue
			}
			if s = strings.TrimSpace(s); s != "" && !linkRe.MatchString(s) {
				bad[f.Label] = "must start with http:// or https://"
			}
		}
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	return nil
}

func isEmpty(f domain.CustomField, v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	case bool:
		return f.Type == domain.FieldCheckbox && !t
	default:
		return false
	}
}

// normalizeValue coerces JSON-decoded input into string, []string, bool or
// float64.
func normalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, float64, []string:
		return t, nil
	case int:
		return float64(t), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, it := range t {
			s, ok := it.(string)
			if !ok {
				return nil, ErrInvalidFieldValue
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, ErrInvalidFieldValue
	}
}

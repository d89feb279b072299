package shopapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/tbourn/go-shop-sync/internal/domain"
)

// TagIDs normalizes the three encodings a tag list arrives in: a JSON array
// encoded as a string (`"[1,2]"`), a comma separated string (`"1, 2"`), or a
// native list. Objects in a list contribute their "id". Empty entries are
// dropped; order is kept.
func TagIDs(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if strings.HasPrefix(s, "[") {
			var arr []any
			dec := json.NewDecoder(strings.NewReader(s))
			dec.UseNumber()
			if dec.Decode(&arr) == nil {
				return TagIDs(arr)
			}
		}
		var out []string
		for _, p := range strings.Split(s, ",") {
			p = strings.Trim(strings.TrimSpace(p), `"'[]`)
			if p != "" {
				out = append(out, p)
			}
		}
		return out
	case []string:
		out := make([]string, 0, len(t))
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, it := range t {
			if m, ok := it.(map[string]any); ok {
				it = m["id"]
			}
			if s, ok := asString(it); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s, ok := asString(v); ok && s != "" {
			return []string{s}
		}
		return nil
	}
}

var blockTags = map[atom.Atom]bool{
	atom.Br: true, atom.P: true, atom.Div: true, atom.Li: true, atom.Ul: true,
	atom.Ol: true, atom.Tr: true, atom.Td: true, atom.Th: true, atom.Table: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true,
	atom.H6: true, atom.Section: true, atom.Article: true, atom.Blockquote: true,
}

// StripHTML returns the text content of an HTML fragment with entities
// decoded and whitespace collapsed. Script and style bodies are dropped.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way keep what was read.
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case a == atom.Script || a == atom.Style:
				if tt == html.StartTagToken {
					skip++
				} else if tt == html.EndTagToken && skip > 0 {
					skip--
				}
			case blockTags[a]:
				b.WriteByte(' ')
			}
		}
	}
}

// ParseAmount reads a price or discount value given as a JSON number or a
// numeric string. Whitespace and thousands separators are ignored. Empty
// input yields zero.
func ParseAmount(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return t, nil
	case json.Number:
		return decimal.NewFromString(t.String())
	case float64:
		return decimal.NewFromFloat(t), nil
	case float32:
		return decimal.NewFromFloat32(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case string:
		s := strings.TrimSpace(t)
		s = strings.ReplaceAll(s, ",", "")
		s = strings.ReplaceAll(s, " ", "")
		if s == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("shopapi: invalid amount %q", t)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("shopapi: invalid amount type %T", v)
	}
}

// optionalAmount is ParseAmount for nullable bounds: nil and "" stay unset.
func optionalAmount(v any) (*decimal.Decimal, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := ParseAmount(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ParseCustomFields parses a custom-field schema given as a JSON array or as
// a string holding one. Null, empty and "[]" yield an empty schema. Fields
// without a label are skipped; a missing type means text.
func ParseCustomFields(raw json.RawMessage) ([]domain.CustomField, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("shopapi: custom fields: %w", err)
		}
		return ParseCustomFields(json.RawMessage(s))
	}
	var items []map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("shopapi: custom fields: %w", err)
	}
	out := make([]domain.CustomField, 0, len(items))
	for _, m := range items {
		label := pickString(m, "label", "name", "title")
		if label == "" {
			continue
		}
		typ := domain.CustomFieldType(strings.ToLower(pickString(m, "type")))
		if typ == "" {
			typ = domain.FieldText
		}
		out = append(out, domain.CustomField{
			Label:    label,
			Type:     typ,
			Required: asBool(m["required"]),
			Options:  TagIDs(m["options"]),
		})
	}
	return out, nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate reads an optional date. Nil and empty strings yield nil; dates
// without a zone are taken as UTC.
func ParseDate(v any) (*time.Time, error) {
	s, ok := asString(v)
	if !ok || strings.TrimSpace(s) == "" {
		return nil, nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("shopapi: invalid date %q", s)
}

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	case json.Number:
		n, err := t.Int64()
		return err == nil && n != 0
	case float64:
		return t != 0
	default:
		return false
	}
}

// pickString returns the first non-empty string among keys.
func pickString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := asString(m[k]); ok && s != "" {
			return s
		}
	}
	return ""
}

// pick returns the first non-nil value among keys.
func pick(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

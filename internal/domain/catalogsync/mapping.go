package catalogsync

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ExternalRecord is one product entry as delivered by a source, with no fixed schema.
type ExternalRecord map[string]any

// Internal product fields that receive typed coercion. Any other mapped
// field is kept as a string attribute.
const (
	FieldTitle            = "title"
	FieldDescription      = "description"
	FieldCategory         = "category"
	FieldCondition        = "condition"
	FieldPrice            = "price"
	FieldImages           = "images"
	FieldWarrantyDuration = "warranty_duration"
)

// DefaultCategory is used when a mapped category resolves to nothing.
const DefaultCategory = "Other"

// zettaMarkdown is the fixed platform resale factor applied to source prices.
var zettaMarkdown = decimal.RequireFromString("0.94")

// ZettaPrice returns the platform resale price: price x 0.94 rounded to cents.
func ZettaPrice(price decimal.Decimal) decimal.Decimal {
	return price.Mul(zettaMarkdown).Round(2)
}

// MappedProduct is the partial product produced by mapping one record.
// Only fields named in the mapping rules are set.
type MappedProduct struct {
	Title            *string
	Description      *string
	Category         *string
	Condition        *Condition
	Price            *decimal.Decimal
	Images           []string
	HasImages        bool
	WarrantyDuration *int
	// WarrantyMapped is true when the rules map warranty_duration, even if it did not parse
	WarrantyMapped bool
	Attributes     map[string]string
}

// GetNestedValue resolves a dot-separated path such as "pricing.amount" or
// "media.0.url". Missing segments yield (nil, false).
func GetNestedValue(record map[string]any, path string) (any, bool) {
	if record == nil || path == "" {
		return nil, false
	}
	var current any = record
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = v
		case ExternalRecord:
			v, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, current != nil
}

// ExternalID resolves the record's identity using the rules' external_id path.
func ExternalID(record ExternalRecord, rules MappingRules) (string, error) {
	v, ok := GetNestedValue(record, rules.ExternalIDPath())
	if !ok {
		return "", ErrMissingExternalID
	}
	id := strings.TrimSpace(coerceString(v))
	if id == "" {
		return "", ErrMissingExternalID
	}
	return id, nil
}

// MapExternalProduct applies mapping rules to a record. It never fails: every
// field has a fallback for missing or malformed source data.
func MapExternalProduct(record ExternalRecord, rules MappingRules) MappedProduct {
	var out MappedProduct
	for field, path := range rules {
		if field == ExternalIDField {
			continue
		}
		raw, _ := GetNestedValue(record, path)

		switch field {
		case FieldTitle:
			s := coerceString(raw)
			out.Title = &s
		case FieldDescription:
			s := coerceString(raw)
			out.Description = &s
		case FieldCategory:
			s := coerceString(raw)
			if strings.TrimSpace(s) == "" {
				s = DefaultCategory
			}
			out.Category = &s
		case FieldCondition:
			c := ParseCondition(raw)
			out.Condition = &c
		case FieldPrice:
			p := coercePrice(raw)
			out.Price = &p
		case FieldImages:
			out.Images = coerceImages(raw)
			out.HasImages = true
		case FieldWarrantyDuration:
			out.WarrantyMapped = true
			out.WarrantyDuration = coerceInt(raw)
		default:
			if out.Attributes == nil {
				out.Attributes = make(map[string]string)
			}
			out.Attributes[field] = coerceString(raw)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Coercion helpers
// ---------------------------------------------------------------------------

var (
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
)

func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// parseLeadingFloat reads the numeric prefix of s, so "19.99 USD" yields 19.99.
func parseLeadingFloat(s string) (float64, bool) {
	m := leadingFloat.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func coercePrice(v any) decimal.Decimal {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		if d, err := decimal.NewFromString(t.String()); err == nil {
			return d
		}
		return decimal.Zero
	case string:
		parsed, ok := parseLeadingFloat(t)
		if !ok {
			return decimal.Zero
		}
		f = parsed
	default:
		return decimal.Zero
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func coerceImages(v any) []string {
	switch t := v.(type) {
	case []any:
		images := make([]string, 0, len(t))
		for _, item := range t {
			images = append(images, coerceString(item))
		}
		return images
	case []string:
		return append([]string(nil), t...)
	case string:
		images := make([]string, 0)
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				images = append(images, part)
			}
		}
		return images
	default:
		return []string{}
	}
}

func coerceInt(v any) *int {
	var n int
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		n = int(t)
	case int:
		n = t
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil
		}
		n = int(f)
	case string:
		m := leadingInt.FindString(strings.TrimSpace(t))
		if m == "" {
			return nil
		}
		parsed, err := strconv.Atoi(m)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	return &n
}

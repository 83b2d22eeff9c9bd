package schema

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Product is a read-only view over an upstream product record. The upstream
// payload has no fixed shape, so every accessor treats absence, a wrong type
// and the empty-string sentinel the same way.
type Product struct {
	m map[string]any
}

func NewProduct(m map[string]any) Product {
	return Product{m: m}
}

// Map returns the underlying record. Callers must not mutate it.
func (p Product) Map() map[string]any {
	return p.m
}

func (p Product) MarshalJSON() ([]byte, error) {
	if p.m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.m)
}

func (p Product) IsZero() bool {
	return len(p.m) == 0
}

// Value returns the raw value stored under key.
func (p Product) Value(key string) any {
	if p.m == nil {
		return nil
	}
	return p.m[key]
}

// Str returns the trimmed string form of a scalar field. Objects, lists and
// booleans yield "".
func (p Product) Str(key string) string {
	return toString(p.Value(key))
}

// FirstStr returns the first non-empty Str among keys.
func (p Product) FirstStr(keys ...string) string {
	for _, k := range keys {
		if s := p.Str(k); s != "" {
			return s
		}
	}
	return ""
}

// Scalar returns the raw value of key when it is set to something other
// than null, "", 0, "0" or false.
func (p Product) Scalar(key string) (any, bool) {
	v := p.Value(key)
	if isZeroish(v) {
		return nil, false
	}
	return v, true
}

// Int coerces key to an integer. Fractional numbers are truncated; strings
// must hold an integer literal.
func (p Product) Int(key string) (int64, bool) {
	return toInt(p.Value(key))
}

// Float coerces key to a finite float.
func (p Product) Float(key string) (float64, bool) {
	return toFloat(p.Value(key))
}

// List returns key as a list, or nil when it is absent or not a list.
func (p Product) List(key string) []any {
	l, _ := p.Value(key).([]any)
	return l
}

// Objects returns the object entries of the list under key, skipping
// anything that is not an object. Positions of skipped entries are kept as
// zero Products so callers that number entries by position stay aligned.
func (p Product) Objects(key string) []Product {
	raw := p.List(key)
	if len(raw) == 0 {
		return nil
	}
	out := make([]Product, len(raw))
	for i, v := range raw {
		if m, ok := v.(map[string]any); ok {
			out[i] = Product{m: m}
		}
	}
	return out
}

// Object returns the nested object under key, or a zero Product.
func (p Product) Object(key string) Product {
	m, _ := p.Value(key).(map[string]any)
	return Product{m: m}
}

// Strings returns the non-empty trimmed string forms of the list under key.
func (p Product) Strings(key string) []string {
	var out []string
	for _, v := range p.List(key) {
		if s := toString(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Normalize fills the identity and text fields the pages and the graph
// builder rely on: product_title, short_description, product_id and id.
// fallbackID is used when the record carries no identifier of its own.
func Normalize(p Product, fallbackID string) Product {
	out := make(map[string]any, len(p.m)+5)
	for k, v := range p.m {
		out[k] = v
	}
	out["product_title"] = p.FirstStr("product_title", "product_name", "name")
	out["short_description"] = p.FirstStr("short_description", "description")

	out["product_id"] = firstNonEmpty(p.Str("product_id"), p.Str("id"), fallbackID)
	out["id"] = firstNonEmpty(p.Str("id"), p.Str("product_id"), fallbackID)

	if faqs := formatFAQs(p); len(faqs) > 0 {
		out["faqs_formatted"] = faqs
	}
	return Product{m: out}
}

func formatFAQs(p Product) []any {
	raw := p.Objects("faqs")
	if len(raw) == 0 {
		raw = p.Objects("faq")
	}
	var out []any
	for _, item := range raw {
		q, a := item.Str("question"), item.Str("answer")
		if q == "" || a == "" {
			continue
		}
		out = append(out, map[string]any{"question": q, "answer": a})
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

func isZeroish(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == "" || t == "0"
	case bool:
		return !t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case float64:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	default:
		return false
	}
}

func toInt(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		f, err := t.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int64(f), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int64(t), true
	case int:
		return int64(t), true
	case int64:
		return t, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		var err error
		if f, err = t.Float64(); err != nil {
			return 0, false
		}
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(t), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

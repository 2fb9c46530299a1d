// Package ordersync mirrors webshop orders into the local store and posts
// them into the legacy system as sales documents.
package ordersync

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NormalizeEntity flattens the attribute envelope some Admin API responses
// wrap entities in: the "attributes" map is merged over the top level, the
// entity id is preserved, and nested maps and lists are normalized
// recursively. The input is never mutated.
func NormalizeEntity(data any) any {
	switch v := data.(type) {
	case map[string]any:
		return normalizeMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = NormalizeEntity(item)
		}
		return out
	default:
		return data
	}
}

func normalizeMap(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}

	attributes, hasAttributes := data["attributes"].(map[string]any)

	var result map[string]any
	if hasAttributes {
		result = make(map[string]any, len(attributes)+len(data))
		for k, v := range attributes {
			result[k] = v
		}
		if _, ok := result["id"]; !ok {
			if id := toStr(data["id"]); id != "" {
				result["id"] = id
			}
		}
	} else {
		result = make(map[string]any, len(data))
		for k, v := range data {
			result[k] = v
		}
	}

	sources := []map[string]any{data}
	if hasAttributes {
		sources = append(sources, attributes)
	}
	for _, source := range sources {
		for key, value := range source {
			if key == "attributes" {
				continue
			}
			switch value.(type) {
			case map[string]any, []any:
				result[key] = NormalizeEntity(value)
			default:
				if _, ok := result[key]; !ok {
					result[key] = value
				}
			}
		}
	}
	return result
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

// firstMap returns the first map element of a list, nil when there is none.
func firstMap(v any) map[string]any {
	for _, item := range asList(v) {
		if m := asMap(item); m != nil {
			return m
		}
	}
	return nil
}

func toStr(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// toDecimal converts a JSON number or numeric string to a decimal rounded
// to two places, the precision order amounts are stored in.
func toDecimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n).Round(2)
	case int:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero
		}
		return d.Round(2)
	default:
		return decimal.Zero
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

func toBool(v any, fallback bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}

// parseAPITime parses the timestamp format the Admin API emits.
func parseAPITime(v any) time.Time {
	s := toStr(v)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.000", "2006-01-02T15:04:05.000"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

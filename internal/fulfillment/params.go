package fulfillment

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Params holds the intent parameters extracted by Dialogflow.
type Params map[string]any

// A Quantity is a Dialogflow unit entity such as @sys.unit-area, e.g.
// {"amount": 5, "unit": "marla"}.
type Quantity struct {
	Amount float64
	Unit   string
}

// String returns the trimmed string value of key, or "".
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return strings.TrimSpace(s)
}

// Number returns key as a float64. Numeric strings are accepted with
// currency prefixes and thousands separators, e.g. "Rs 12,500".
func (p Params) Number(key string) (float64, bool) {
	return toNumber(p[key])
}

// Quantity returns key as a unit entity. A bare number is returned with an
// empty unit.
func (p Params) Quantity(key string) (Quantity, bool) {
	switch v := p[key].(type) {
	case map[string]any:
		amount, ok := toNumber(v["amount"])
		if !ok {
			return Quantity{}, false
		}
		unit, _ := v["unit"].(string)
		return Quantity{Amount: amount, Unit: strings.TrimSpace(unit)}, true
	default:
		amount, ok := toNumber(v)
		if !ok {
			return Quantity{}, false
		}
		return Quantity{Amount: amount}, true
	}
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		for _, prefix := range []string{"Rs.", "Rs", "PKR"} {
			s = strings.TrimPrefix(s, prefix)
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

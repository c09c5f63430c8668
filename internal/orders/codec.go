package orders

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EncodeDishes returns the embedded text form of a dish list. Sequences are
// stored as JSON text, anything else as its plain text form.
func EncodeDishes(v interface{}) string {
	if list, ok := v.([]interface{}); ok {
		b, err := json.Marshal(list)
		if err == nil {
			return string(b)
		}
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// DecodeDishes turns the stored text back into a sequence. The raw value is
// returned when it is not text or not valid JSON.
func DecodeDishes(raw interface{}) interface{} {
	s, ok := raw.(string)
	if !ok {
		return raw
	}
	var out interface{}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return raw
	}
	return out
}

// AsInt coerces a decoded JSON or table value to an int. Integral numbers and
// base-10 integer strings convert; fractional numbers truncate toward zero;
// booleans map to 0 and 1.
func AsInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || math.Abs(n) >= 1<<53 {
			return 0, false
		}
		return int(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Stringify renders a property value for comparison and grouping. Null
// values report ok=false and are skipped by Show and GroupBy. Collation is
// the exact stringification, so 16 and "16" group together but 16.0 does
// not.
func Stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), true
	default:
		// Composite values (lists, maps) compare by their JSON rendering.
		if data, err := json.Marshal(t); err == nil {
			return string(data), true
		}
		return fmt.Sprint(t), true
	}
}

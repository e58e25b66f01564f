package verify

import (
	"reflect"
	"time"
)

// fieldsEqual compares one configured field across stores. Time values
// compare by instant rather than representation: shadow backends that JSON
// round-trip their fields hand back RFC3339 strings where the primary holds
// time.Time, and numeric fields come back as float64. Everything else falls
// through to deep equality.
func fieldsEqual(a, b any) bool {
	if ta, ok := asInstant(a); ok {
		if tb, ok := asInstant(b); ok {
			return ta.Equal(tb)
		}
		return false
	}
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asInstant(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

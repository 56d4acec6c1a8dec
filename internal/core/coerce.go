package core

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Any string outside this set, including "no", "n", "false" and "0", is false.
var truthyStrings = map[string]struct{}{"yes": {}, "y": {}, "true": {}, "1": {}}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// ToFloat converts a loosely typed value to a float. Literals that overflow
// float64 come back as ±Inf. NaN is treated as missing.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case json.Number:
		parsed, ok := parseFloat(string(x))
		if !ok {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		parsed, ok := parseFloat(s)
		if !ok {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// parseFloat accepts out of range literals such as "1e400", which ParseFloat
// reports as ±Inf together with ErrRange.
func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

// FloatOrNil returns a finite float64 for values that parse as a number and
// nil for everything else.
func FloatOrNil(v any) any {
	if f, ok := ToFloat(v); ok && !math.IsInf(f, 0) {
		return f
	}
	return nil
}

// NumberOrNil is like FloatOrNil but keeps ±Inf, so range checks still see
// values that overflowed.
func NumberOrNil(v any) any {
	if f, ok := ToFloat(v); ok {
		return f
	}
	return nil
}

// IsTruthy interprets the usual yes/no encodings found in intake forms.
// Unrecognised values are false.
func IsTruthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		t := strings.ToLower(strings.TrimSpace(x))
		_, ok := truthyStrings[t]
		return ok
	case nil:
		return false
	default:
		f, ok := ToFloat(x)
		return ok && f != 0
	}
}

func yesNo(v any) any {
	if IsTruthy(v) {
		return "Yes"
	}
	return "No"
}

func verbatim(v any) any {
	return v
}

// ParseBloodPressure splits a "<systolic>/<diastolic>" string on the first
// slash. Both halves must parse, otherwise both results are nil.
func ParseBloodPressure(v any) (systolic, diastolic any) {
	s, ok := v.(string)
	if !ok {
		return nil, nil
	}
	a, b, found := strings.Cut(s, "/")
	if !found {
		return nil, nil
	}
	sys, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil {
		return nil, nil
	}
	dia, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil {
		return nil, nil
	}
	return sys, dia
}

// isTruthyValue mirrors a plain truthiness check on a raw payload value.
func isTruthyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		f, ok := ToFloat(x)
		return !ok || f != 0
	}
}

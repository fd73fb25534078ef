package lags

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseSpec decodes a lag specification from loosely typed configuration:
// a number is a count, a list is an explicit lag list and a map with
// "past" and "future" keys is a tuple. Strings, as set by environment
// overrides, hold a count or a comma-separated list. nil yields the zero
// Spec.
func ParseSpec(v any) (Spec, error) {
	switch x := v.(type) {
	case nil:
		return Spec{}, nil
	case Spec:
		return x, nil
	case []any:
		l := make([]int, len(x))
		for i, e := range x {
			n, err := toInt(e)
			if err != nil {
				return Spec{}, err
			}
			l[i] = n
		}
		return List(l...), nil
	case []int:
		return List(x...), nil
	case string:
		if !strings.Contains(x, ",") {
			break
		}
		parts := strings.Split(x, ",")
		l := make([]int, len(parts))
		for i, p := range parts {
			n, err := toInt(p)
			if err != nil {
				return Spec{}, err
			}
			l[i] = n
		}
		return List(l...), nil
	case map[string]any:
		past, err := toInt(x["past"])
		if err != nil {
			return Spec{}, fmt.Errorf("%w: tuple past: %v", ErrInvalidLags, err)
		}
		future, err := toInt(x["future"])
		if err != nil {
			return Spec{}, fmt.Errorf("%w: tuple future: %v", ErrInvalidLags, err)
		}
		return Tuple(past, future), nil
	}
	n, err := toInt(v)
	if err != nil {
		return Spec{}, err
	}
	return Count(n), nil
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%w: lag %v is not an integer", ErrInvalidLags, x)
		}
		return int(x), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("%w: lag %q is not an integer", ErrInvalidLags, x)
		}
		return n, nil
	case nil:
		return 0, fmt.Errorf("%w: missing value", ErrInvalidLags)
	}
	return 0, fmt.Errorf("%w: unsupported lag value %v (%T)", ErrInvalidLags, v, v)
}

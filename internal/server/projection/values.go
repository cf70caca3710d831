package projection

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// keyString renders a key or reference value as the string stored on the
// node. Numbers use their shortest decimal form. ok is false for null and
// empty values.
func keyString(v any) (key string, ok bool, err error) {
	switch k := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return k, k != "", nil
	case json.Number:
		// 1000, 1e3 and 1000.0 name the same entity
		if i, err := k.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true, nil
		}
		f, err := k.Float64()
		if err != nil {
			return "", false, fmt.Errorf("invalid number %q", k.String())
		}
		return strconv.FormatFloat(f, 'f', -1, 64), true, nil
	case int:
		return strconv.Itoa(k), true, nil
	case int32:
		return strconv.FormatInt(int64(k), 10), true, nil
	case int64:
		return strconv.FormatInt(k, 10), true, nil
	case uint:
		return strconv.FormatUint(uint64(k), 10), true, nil
	case uint32:
		return strconv.FormatUint(uint64(k), 10), true, nil
	case uint64:
		return strconv.FormatUint(k, 10), true, nil
	case float32:
		return strconv.FormatFloat(float64(k), 'f', -1, 32), true, nil
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64), true, nil
	case bool:
		return "", false, fmt.Errorf("boolean is not a valid identifier")
	default:
		return "", false, fmt.Errorf("%T is not a scalar", v)
	}
}

// scalar normalizes a field value for the store. JSON numbers become int64
// when integral and float64 otherwise.
func scalar(v any) (any, error) {
	switch s := v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return s, nil
	case json.Number:
		if i, err := s.Int64(); err == nil {
			return i, nil
		}
		f, err := s.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", s.String())
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%T is not a scalar", v)
	}
}

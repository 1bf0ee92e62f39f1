package settings

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, "|")
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(value)
}

// splitList splits a "|" separated value dropping empty elements.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, "|")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", v)
		}
		return n, nil
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case nil, bool:
		return 0, fmt.Errorf("%v is not an integer", value)
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt {
			return 0, fmt.Errorf("%d overflows int", u)
		}
		return int(u), nil
	}
	return 0, fmt.Errorf("%T is not an integer", value)
}

func floatToInt(f float64) (int, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int(f), nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", v)
		}
		return f, nil
	case nil, bool:
		return 0, fmt.Errorf("%v is not a number", value)
	}
	n, err := toInt(value)
	if err != nil {
		return 0, fmt.Errorf("%T is not a number", value)
	}
	return float64(n), nil
}

// parseBool accepts the stored forms "t" and "f" along with "true", "false"
// and native booleans. The empty string reads as false.
func parseBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "t", "true":
			return true, nil
		case "f", "false", "":
			return false, nil
		}
		return false, fmt.Errorf("%q is not a boolean", v)
	}
	return false, fmt.Errorf("%T is not a boolean", value)
}

// boolToken is the stored form of a boolean candidate.
func boolToken(value any) (string, error) {
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("empty value is not a boolean")
	}
	b, err := parseBool(value)
	if err != nil {
		return "", err
	}
	if b {
		return "t", nil
	}
	return "f", nil
}

func isIntegerValue(value any) bool {
	if value == nil {
		return false
	}
	switch reflect.TypeOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func cloneValue(value any) any {
	if list, ok := value.([]string); ok {
		out := make([]string, len(list))
		copy(out, list)
		return out
	}
	return value
}

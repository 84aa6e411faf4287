package aggregate

type family int

const (
	familyNone family = iota
	familyInt
	familyFloat
	familyString
)

// familyOf picks the accumulator family from the first observed value.
func familyOf(v interface{}) family {
	switch v.(type) {
	case int, int32, int64:
		return familyInt
	case float32, float64:
		return familyFloat
	case string:
		return familyString
	default:
		return familyNone
	}
}

// CompareStrings orders strings for MIN/MAX merging. It walks both strings
// byte by byte and returns the difference of the first unequal pair; when
// one string is a prefix of the other it returns len(a) - len(b) rather
// than a sign-normalized value. Self-consistent, but not the usual
// lexicographic contract, and callers depend on it staying this way.
func CompareStrings(a, b string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			continue
		}
		return int(a[i]) - int(b[i])
	}
	return len(a) - len(b)
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}

func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

package compare

import (
	"math"
	"sort"
	"time"

	"github.com/TFMV/parity/pkg/models"
)

// sortedView returns the rows under the stable total order used to normalize
// unordered result sets before pairwise comparison. The input slice and its
// rows are left untouched.
func sortedView(rows []models.Row) []models.Row {
	view := make([]models.Row, len(rows))
	copy(view, rows)
	sort.SliceStable(view, func(i, j int) bool {
		return compareRows(view[i], view[j]) < 0
	})
	return view
}

// compareRows orders rows field by field, left to right.
func compareRows(a, b models.Row) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// compareValues defines a total order over cell values: nulls sort first,
// NaN sorts before all other floats so sorting stays deterministic.
func compareValues(a, b interface{}) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	switch av := a.(type) {
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return fallbackCompare(a, b)
		}
		return boolToInt(av) - boolToInt(bv)
	case int8:
		return compareInt64(int64(av), b)
	case int16:
		return compareInt64(int64(av), b)
	case int32:
		return compareInt64(int64(av), b)
	case int64:
		return compareInt64(av, b)
	case uint8:
		return compareUint64(uint64(av), b)
	case uint16:
		return compareUint64(uint64(av), b)
	case uint32:
		return compareUint64(uint64(av), b)
	case uint64:
		return compareUint64(av, b)
	case float32:
		return compareFloat64(float64(av), b)
	case float64:
		return compareFloat64(av, b)
	case string:
		bv, ok := b.(string)
		if !ok {
			return fallbackCompare(a, b)
		}
		return stringsCompare(av, bv)
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return fallbackCompare(a, b)
		}
		return av.UTC().Compare(bv.UTC())
	case []float64:
		bv, ok := b.([]float64)
		if !ok {
			return fallbackCompare(a, b)
		}
		for i := 0; i < len(av) && i < len(bv); i++ {
			if c := compareFloat64(av[i], bv[i]); c != 0 {
				return c
			}
		}
		return len(av) - len(bv)
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok {
			return fallbackCompare(a, b)
		}
		for i := 0; i < len(av) && i < len(bv); i++ {
			if c := compareValues(av[i], bv[i]); c != 0 {
				return c
			}
		}
		return len(av) - len(bv)
	default:
		return fallbackCompare(a, b)
	}
}

func compareInt64(av int64, b interface{}) int {
	var bv int64
	switch x := b.(type) {
	case int8:
		bv = int64(x)
	case int16:
		bv = int64(x)
	case int32:
		bv = int64(x)
	case int64:
		bv = x
	default:
		return fallbackCompare(av, b)
	}
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

func compareUint64(av uint64, b interface{}) int {
	var bv uint64
	switch x := b.(type) {
	case uint8:
		bv = uint64(x)
	case uint16:
		bv = uint64(x)
	case uint32:
		bv = uint64(x)
	case uint64:
		bv = x
	default:
		return fallbackCompare(av, b)
	}
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

func compareFloat64(av float64, b interface{}) int {
	var bv float64
	switch x := b.(type) {
	case float32:
		bv = float64(x)
	case float64:
		bv = x
	default:
		return fallbackCompare(av, b)
	}

	aNaN, bNaN := math.IsNaN(av), math.IsNaN(bv)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

func stringsCompare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// fallbackCompare orders values of unexpected or mixed types by their rendered
// form. Rows under one schema hold uniform types, so this only sees malformed input.
func fallbackCompare(a, b interface{}) int {
	return stringsCompare(models.FormatCell(a), models.FormatCell(b))
}

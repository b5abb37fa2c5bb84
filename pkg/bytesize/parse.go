// Package bytesize converts between byte counts and strings such as "100MB".
package bytesize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	KB int64 = 1 << (10 * (iota + 1))
	MB
	GB
	TB
)

var unitMultipliers = map[string]int64{
	"B":  1,
	"KB": KB,
	"MB": MB,
	"GB": GB,
	"TB": TB,
}

// units is ordered longest suffix first so "B" never shadows "KB".
var units = []string{"TB", "GB", "MB", "KB", "B"}

// Parse reads a size with a binary unit suffix (B, KB, MB, GB, TB, case
// insensitive). Fractions are allowed: "1.5GB".
func Parse(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	var unit, valueStr string
	for _, u := range units {
		if strings.HasSuffix(s, u) {
			unit = u
			valueStr = strings.TrimSpace(strings.TrimSuffix(s, u))
			break
		}
	}
	if unit == "" {
		return 0, fmt.Errorf("invalid size %q: missing unit (supported: B, KB, MB, GB, TB)", s)
	}
	if valueStr == "" {
		return 0, fmt.Errorf("invalid size %q: missing numeric value", s)
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q in %q: %w", valueStr, s, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid size %q: negative value not allowed", s)
	}

	result := value * float64(unitMultipliers[unit])
	if result > math.MaxInt64 {
		return 0, fmt.Errorf("size %q exceeds maximum allowed value", s)
	}
	return int64(result), nil
}

// Format prints n with the largest unit that keeps the value at or above
// one, using one decimal: 1536 -> "1.5 KB".
func Format(n int64) string {
	for _, u := range units[:len(units)-1] {
		if m := unitMultipliers[u]; n >= m {
			return fmt.Sprintf("%.1f %s", float64(n)/float64(m), u)
		}
	}
	return fmt.Sprintf("%d B", n)
}

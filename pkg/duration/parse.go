// Package duration parses and prints the coarse durations used in incident
// notices, such as a remediation ETA of "4h" or "2d".
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

var unitMultipliers = map[string]time.Duration{
	"d": Day,
	"w": Week,
}

// dayPattern matches the day and week components, e.g. "2w" or "3d".
var dayPattern = regexp.MustCompile(`(\d+)([wd])`)

// Parse extends time.ParseDuration with days (d) and weeks (w). Compound
// values such as "1d12h" are accepted. "0" yields zero.
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}
	if s == "0" {
		return 0, nil
	}

	var total time.Duration
	for _, match := range dayPattern.FindAllStringSubmatch(s, -1) {
		value, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration value %q in %q", match[1], s)
		}
		total += time.Duration(value) * unitMultipliers[match[2]]
	}

	rest := strings.TrimSpace(dayPattern.ReplaceAllString(s, ""))
	if rest != "" {
		d, err := time.ParseDuration(rest)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w (supported units: s, m, h, d, w)", s, err)
		}
		total += d
	}
	if total < 0 {
		return 0, fmt.Errorf("invalid duration %q: negative", s)
	}
	return total, nil
}

// Humanize renders d in words with at most two units, largest first:
// "2 days 4 hours", "45 minutes". Seconds are dropped above one minute.
func Humanize(d time.Duration) string {
	if d < time.Minute {
		return plural(int64(d/time.Second), "second")
	}

	units := []struct {
		size time.Duration
		name string
	}{
		{Week, "week"},
		{Day, "day"},
		{time.Hour, "hour"},
		{time.Minute, "minute"},
	}

	var parts []string
	for _, u := range units {
		if n := d / u.size; n > 0 {
			parts = append(parts, plural(int64(n), u.name))
			d -= n * u.size
		}
		if len(parts) == 2 {
			break
		}
	}
	return strings.Join(parts, " ")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

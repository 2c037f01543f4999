package xtime

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
	year  = 365 * day
)

var durationRx = regexp.MustCompile(`(\d*\.\d+|\d+)([^\d.]*)`)

// ParseDuration parses a duration string, extending time.ParseDuration with
// the units "d"/"D" (day), "w"/"W" (week), "M" (30 days) and "y"/"Y"
// (365 days). Components can be combined, e.g. "1w2d", "-1.5w" or "3Y4M5d".
func ParseDuration(s string) (time.Duration, error) {
	in := s
	neg := false
	if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if s == "" {
		return 0, fmt.Errorf("invalid duration %q", in)
	}

	matches := durationRx.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 || matches[0][0] != 0 {
		return 0, fmt.Errorf("invalid duration %q", in)
	}

	var sum time.Duration
	end := 0
	for _, m := range matches {
		if m[0] != end {
			return 0, fmt.Errorf("invalid duration %q", in)
		}
		end = m[1]

		num, unit := s[m[2]:m[3]], s[m[4]:m[5]]
		var mult time.Duration
		switch unit {
		case "d", "D":
			mult = day
		case "w", "W":
			mult = week
		case "M":
			mult = month
		case "y", "Y":
			mult = year
		default:
			dur, err := time.ParseDuration(num + unit)
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: %w", in, err)
			}
			sum += dur
			continue
		}

		// Parse the number as hours to support fractional values.
		hours, err := time.ParseDuration(num + "h")
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", in, err)
		}
		sum += hours * (mult / time.Hour)
	}
	if end != len(s) {
		return 0, fmt.Errorf("invalid duration %q", in)
	}

	if neg {
		sum = -sum
	}

	return sum, nil
}

// FormatDuration formats d with the units understood by ParseDuration, e.g.
// "10d", "-1w2d" or "3Y4M5d". Units smaller than round are omitted.
func FormatDuration(d time.Duration, round time.Duration) string {
	if round > 0 {
		d = d.Round(round)
	}
	if d == 0 {
		return "0s"
	}

	neg := d < 0
	if neg {
		d = -d
	}

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}

	units := []struct {
		size time.Duration
		name string
	}{
		{year, "Y"}, {month, "M"}, {week, "w"}, {day, "d"},
		{time.Hour, "h"}, {time.Minute, "m"}, {time.Second, "s"},
		{time.Millisecond, "ms"}, {time.Microsecond, "µs"}, {time.Nanosecond, "ns"},
	}
	for _, u := range units {
		if u.size < round {
			break
		}
		if n := d / u.size; n > 0 {
			fmt.Fprintf(&sb, "%d%s", n, u.name)
			d -= n * u.size
		}
	}

	return sb.String()
}

// Package timefmt renders durations as short human-readable strings for
// chat messages ("2 y. 3 mo.", "5 min.").
package timefmt

import (
	"fmt"
	"strings"
	"time"
)

type unit struct {
	abbr    string
	seconds int64
}

// Calendar units are approximate on purpose: a month is 30 days, a year 365.
var units = []unit{
	{"y.", 365 * 86400},
	{"mo.", 30 * 86400},
	{"w.", 7 * 86400},
	{"d.", 86400},
	{"h.", 3600},
	{"min.", 60},
	{"sec.", 1},
}

// Format renders d using at most maxUnits leading non-zero units.
// A zero or negative duration renders as "just now".
func Format(d time.Duration, maxUnits int) string {
	total := int64(d.Seconds())
	if total <= 0 {
		return "just now"
	}
	if maxUnits <= 0 {
		maxUnits = 2
	}

	var parts []string
	for _, u := range units {
		if len(parts) >= maxUnits {
			break
		}
		if v := total / u.seconds; v > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", v, u.abbr))
			total %= u.seconds
		} else if len(parts) > 0 {
			// Stop at the first gap so "1 y. 2 min." never happens.
			break
		}
	}

	if len(parts) == 0 {
		return "just now"
	}
	return strings.Join(parts, " ")
}

// Since is shorthand for Format(now.Sub(t), 2).
func Since(t, now time.Time) string {
	return Format(now.Sub(t), 2)
}

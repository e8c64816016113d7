// Package timefmt renders instants and durations for user-facing messages
// and audit entries, always in the configured timezone.
package timefmt

import (
	"fmt"
	"time"
)

const stampLayout = "Jan 2, 2006, 3:04 PM"

// Stamp renders an instant like "Dec 15, 2025, 9:00 AM (IST)".
func Stamp(t time.Time, loc *time.Location) string {
	local := t.In(loc)
	zone, _ := local.Zone()
	if zone == "" {
		zone = loc.String()
	}
	return fmt.Sprintf("%s (%s)", local.Format(stampLayout), zone)
}

// Relative renders how long ago ts was relative to now: "just now",
// "5 min ago", "3 hr ago", "2 days ago".
func Relative(now, ts time.Time) string {
	diff := now.Sub(ts)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d min ago", int(diff.Round(time.Minute)/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d hr ago", int(diff.Round(time.Hour)/time.Hour))
	}
	days := int(diff.Round(24*time.Hour) / (24 * time.Hour))
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}

package stats

import (
	"fmt"
	"time"
)

// reportZone is the display timezone for activity timestamps.
var reportZone = time.FixedZone("UTC+8", 8*60*60)

// FormatLastActivity renders a unix timestamp as a UTC+8 wall clock time
// plus a whole-day age suffix. A zero or negative timestamp means the
// account never traded and renders as an empty cell.
func FormatLastActivity(ts int64, now time.Time) string {
	if ts <= 0 {
		return ""
	}
	t := time.Unix(ts, 0).In(reportZone)
	days := int(now.Sub(t).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return fmt.Sprintf("%s (%dd ago)", t.Format("2006-01-02 15:04:05"), days)
}

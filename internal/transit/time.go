package transit

import (
	"fmt"
	"strings"
	"time"
)

// All upstream timestamps are Europe/Berlin local times.
var berlin = loadBerlin()

func loadBerlin() *time.Location {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		// No tzdata on this system; CET without DST is the closest fallback.
		return time.FixedZone("CET", 60*60)
	}
	return loc
}

// NowBerlin returns the current moment in the upstream's timezone.
func NowBerlin() time.Time {
	return time.Now().In(berlin)
}

// ParseUpstreamTime parses a timestamp string from upstream responses.
// Naive values ("2026-02-24T14:30:00") are taken as Berlin local time;
// offset-carrying values are converted to Berlin.
func ParseUpstreamTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(berlin), nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", s, berlin)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// formatDate and formatClock render the datum/zeit query parameters.
func formatDate(t time.Time) string {
	return t.In(berlin).Format("2006-01-02")
}

func formatClock(t time.Time) string {
	return t.In(berlin).Format("15:04:05")
}

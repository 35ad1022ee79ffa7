package transit

import (
	"sort"
	"strings"
	"time"
)

// AssembleBoard combines a resolved station, the applied filter and the
// normalized records into a Board snapshot. Records are ordered by
// realtime-adjusted time ascending, ties broken by scheduled time, then
// journeyId. FetchedAt is stamped with the assembly time so the view
// can show data freshness.
func AssembleBoard(station StationRef, filter DepartureFilter, records []DepartureRecord) *Board {
	sorted := make([]DepartureRecord, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		ei, ej := sorted[i].EffectiveTime(), sorted[j].EffectiveTime()
		if !ei.Equal(ej) {
			return ei.Before(ej)
		}
		if !sorted[i].ScheduledTime.Equal(sorted[j].ScheduledTime) {
			return sorted[i].ScheduledTime.Before(sorted[j].ScheduledTime)
		}
		return sorted[i].JourneyID < sorted[j].JourneyID
	})

	return &Board{
		Station:    station,
		Filter:     filter,
		Departures: sorted,
		FetchedAt:  time.Now(),
	}
}

// matchesDirection reports whether a record matches a direction/line
// filter: a case-insensitive substring match against the line name, the
// destination and every via station. The upstream has no direction
// query parameter, so this is applied after normalization.
func matchesDirection(rec DepartureRecord, filter string) bool {
	if filter == "" {
		return true
	}
	needle := strings.ToLower(filter)
	if strings.Contains(strings.ToLower(rec.Line), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(rec.Destination), needle) {
		return true
	}
	for _, via := range rec.Via {
		if strings.Contains(strings.ToLower(via), needle) {
			return true
		}
	}
	return false
}

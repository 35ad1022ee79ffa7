package transit

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mkoeppen/zugboard/internal/api/bahn"
)

// cancelledMessageType is the upstream message type marking a cancelled
// halt or run.
const cancelledMessageType = "HALT_AUSFALL"

// cancelledStopKey is the risMeldungen key variant for cancelled halts.
const cancelledStopKey = "text.realtime.stop.cancelled"

// delayMinutes returns the whole-minute delay between the scheduled and
// realtime timestamps, 0 when no realtime value is reported. Early
// trains are clamped to 0, matching the upstream's own board display.
func delayMinutes(sched time.Time, rt *time.Time) int {
	if rt == nil {
		return 0
	}
	d := int(math.Round(rt.Sub(sched).Minutes()))
	if d < 0 {
		return 0
	}
	return d
}

// NormalizeDeparture maps one raw board entry to a DepartureRecord. It
// fails on entries missing a destination or carrying an unparseable
// scheduled time; callers drop such entries rather than failing the
// whole board.
func NormalizeDeparture(raw bahn.RawBoardEntry, arrival bool) (DepartureRecord, error) {
	if raw.Terminus == "" {
		return DepartureRecord{}, Errorf(UpstreamError, "entry %s has no destination", raw.JourneyID)
	}

	sched, err := ParseUpstreamTime(raw.Zeit)
	if err != nil {
		return DepartureRecord{}, WrapError(UpstreamError, "entry "+raw.JourneyID+" has an unusable scheduled time", err)
	}

	var rt *time.Time
	if raw.EzZeit != "" {
		// Unparseable realtime values degrade to "no realtime data",
		// they do not invalidate the record.
		if t, err := ParseUpstreamTime(raw.EzZeit); err == nil {
			rt = &t
		}
	}

	line := raw.Transport.MittelText
	if line == "" {
		line = raw.Transport.LangText
	}
	if line == "" {
		line = raw.Transport.KurzText
	}

	// The first ueber entry is the origin station, never shown as a via.
	var via []string
	if len(raw.Ueber) > 1 {
		via = raw.Ueber[1:]
	}

	cancelled := false
	var messages []ServiceMessage
	for _, m := range raw.Messages {
		if m.Type == cancelledMessageType {
			cancelled = true
		}
		messages = append(messages, ServiceMessage{Type: m.Type, Text: m.Text})
	}

	return DepartureRecord{
		JourneyID:         raw.JourneyID,
		Line:              line,
		TrainType:         raw.Transport.KurzText,
		Destination:       raw.Terminus,
		Via:               via,
		ScheduledTime:     sched,
		RealtimeTime:      rt,
		DelayMinutes:      delayMinutes(sched, rt),
		PlatformScheduled: raw.Gleis,
		PlatformActual:    raw.EzGleis,
		Cancelled:         cancelled,
		Arrival:           arrival,
		Messages:          messages,
	}, nil
}

// NormalizeDepartures converts a raw board batch. Malformed entries are
// dropped with a logged warning; one bad record never aborts the batch.
func NormalizeDepartures(entries []bahn.RawBoardEntry, arrival bool, logger logrus.FieldLogger) []DepartureRecord {
	records := make([]DepartureRecord, 0, len(entries))
	for _, raw := range entries {
		rec, err := NormalizeDeparture(raw, arrival)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"journey_id": raw.JourneyID,
				"error":      err,
			}).Warn("dropping malformed board entry")
			continue
		}
		records = append(records, rec)
	}
	return records
}

// NormalizeStop maps one raw journey halt. The station name is the only
// mandatory field; a halt without one is unusable.
func NormalizeStop(raw bahn.RawStop) (StopDetail, error) {
	if raw.Name == "" {
		return StopDetail{}, Errorf(UpstreamError, "halt has no station name")
	}

	sched := optionalTime(raw.AbfahrtsZeitpunkt)
	if sched == nil {
		sched = optionalTime(raw.AnkunftsZeitpunkt) // terminus halts only arrive
	}
	rt := optionalTime(raw.EzAbfahrtsZeitpunkt)
	if rt == nil {
		rt = optionalTime(raw.EzAnkunftsZeitpunkt)
	}

	delay := 0
	if sched != nil {
		delay = delayMinutes(*sched, rt)
	}

	cancelled := raw.Canceled
	for _, m := range append(raw.PrioMessages, raw.RisMessages...) {
		if m.Type == cancelledMessageType || m.Key == cancelledStopKey {
			cancelled = true
		}
	}

	return StopDetail{
		StationName:       raw.Name,
		EVA:               raw.EvaNumber,
		ScheduledTime:     sched,
		RealtimeTime:      rt,
		DelayMinutes:      delay,
		PlatformScheduled: raw.Gleis,
		PlatformActual:    raw.EzGleis,
		Cancelled:         cancelled,
		Additional:        raw.Additional,
	}, nil
}

// NormalizeJourney converts a raw journey, preserving upstream halt
// order exactly and dropping (with a warning) only halts that cannot be
// represented.
func NormalizeJourney(raw *bahn.RawJourney, logger logrus.FieldLogger) *JourneyDetail {
	stops := make([]StopDetail, 0, len(raw.Halte))
	for i, h := range raw.Halte {
		stop, err := NormalizeStop(h)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"journey_id": raw.JourneyID,
				"halt_index": i,
				"error":      err,
			}).Warn("dropping malformed journey halt")
			continue
		}
		stops = append(stops, stop)
	}
	return &JourneyDetail{
		JourneyID: raw.JourneyID,
		TrainName: raw.ZugName,
		Date:      raw.Reisetag,
		Cancelled: raw.Cancelled,
		Stops:     stops,
	}
}

func optionalTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := ParseUpstreamTime(s)
	if err != nil {
		return nil
	}
	return &t
}

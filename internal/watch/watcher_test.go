package watch

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoeppen/zugboard/internal/api/bahn"
	"github.com/mkoeppen/zugboard/internal/transit"
)

type journeyUpstream struct {
	mu      sync.Mutex
	journey *bahn.RawJourney
	err     error
}

func (u *journeyUpstream) set(j *bahn.RawJourney, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.journey = j
	u.err = err
}

func (u *journeyUpstream) SearchStations(ctx context.Context, query string, limit int) ([]bahn.RawLocation, error) {
	return nil, nil
}

func (u *journeyUpstream) Departures(ctx context.Context, req bahn.BoardRequest) ([]bahn.RawBoardEntry, error) {
	return nil, nil
}

func (u *journeyUpstream) Arrivals(ctx context.Context, req bahn.BoardRequest) ([]bahn.RawBoardEntry, error) {
	return nil, nil
}

func (u *journeyUpstream) Journey(ctx context.Context, journeyID string) (*bahn.RawJourney, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return nil, u.err
	}
	return u.journey, nil
}

type alertCall struct {
	kind  string // "delayed", "cancelled", "expired"
	train string
	delay int
}

type recordingAlerter struct {
	mu    sync.Mutex
	calls []alertCall
}

func (a *recordingAlerter) DepartureDelayed(train, station string, delayMinutes int, expected, platform string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, alertCall{kind: "delayed", train: train, delay: delayMinutes})
	return nil
}

func (a *recordingAlerter) DepartureCancelled(train, station, reason string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, alertCall{kind: "cancelled", train: train})
	return nil
}

func (a *recordingAlerter) WatchExpired(train, station string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, alertCall{kind: "expired", train: train})
	return nil
}

func (a *recordingAlerter) snapshot() []alertCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]alertCall, len(a.calls))
	copy(out, a.calls)
	return out
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// delayedJourney builds a journey whose Frankfurt halt departs late by
// the given number of minutes.
func delayedJourney(delay int) *bahn.RawJourney {
	sched := time.Date(2026, 8, 23, 14, 30, 0, 0, time.UTC)
	rt := sched.Add(time.Duration(delay) * time.Minute)
	const layout = "2006-01-02T15:04:05"
	return &bahn.RawJourney{
		JourneyID: "j1",
		ZugName:   "ICE 619",
		Halte: []bahn.RawStop{{
			Name:                "Frankfurt(Main)Hbf",
			Gleis:               "7",
			AbfahrtsZeitpunkt:   sched.Format(layout),
			EzAbfahrtsZeitpunkt: rt.Format(layout),
		}},
	}
}

func cancelledJourney() *bahn.RawJourney {
	return &bahn.RawJourney{
		JourneyID: "j1",
		ZugName:   "ICE 619",
		Cancelled: true,
		Halte: []bahn.RawStop{{
			Name:              "Frankfurt(Main)Hbf",
			AbfahrtsZeitpunkt: "2026-08-23T14:30:00",
		}},
	}
}

func newTestWatcher(upstream *journeyUpstream, alerter Alerter) *Watcher {
	svc := transit.NewBoardService(upstream, quietLogger())
	return NewWatcher(svc, alerter, quietLogger(), time.Minute)
}

func TestDelayAlertsOncePerBucket(t *testing.T) {
	upstream := &journeyUpstream{journey: delayedJourney(6)}
	alerter := &recordingAlerter{}
	w := newTestWatcher(upstream, alerter)
	w.Watch(Entry{JourneyID: "j1", Train: "ICE 619", Station: "Frankfurt(Main)Hbf"})

	w.Tick(context.Background())
	require.Len(t, alerter.snapshot(), 1)
	assert.Equal(t, "delayed", alerter.snapshot()[0].kind)
	assert.Equal(t, 6, alerter.snapshot()[0].delay)

	// 6 → 7 minutes stays inside the 5-minute bucket: no re-alert.
	upstream.set(delayedJourney(7), nil)
	w.Tick(context.Background())
	assert.Len(t, alerter.snapshot(), 1)

	// 12 minutes crosses into the next bucket.
	upstream.set(delayedJourney(12), nil)
	w.Tick(context.Background())
	calls := alerter.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, 12, calls[1].delay)
}

func TestSmallDelayDoesNotAlert(t *testing.T) {
	// Under 5 minutes the bucket is 0 and nothing fires.
	upstream := &journeyUpstream{journey: delayedJourney(3)}
	alerter := &recordingAlerter{}
	w := newTestWatcher(upstream, alerter)
	w.Watch(Entry{JourneyID: "j1", Train: "ICE 619", Station: "Frankfurt(Main)Hbf"})

	w.Tick(context.Background())
	assert.Empty(t, alerter.snapshot())
}

func TestCancellationAlertsOnce(t *testing.T) {
	upstream := &journeyUpstream{journey: cancelledJourney()}
	alerter := &recordingAlerter{}
	w := newTestWatcher(upstream, alerter)
	w.Watch(Entry{JourneyID: "j1", Train: "ICE 619", Station: "Frankfurt(Main)Hbf"})

	w.Tick(context.Background())
	w.Tick(context.Background())

	calls := alerter.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "cancelled", calls[0].kind)
}

func TestExpiredJourneyIsUnwatched(t *testing.T) {
	upstream := &journeyUpstream{err: &bahn.APIError{StatusCode: 404}}
	alerter := &recordingAlerter{}
	w := newTestWatcher(upstream, alerter)
	w.Watch(Entry{JourneyID: "j1", Train: "ICE 619", Station: "Frankfurt(Main)Hbf"})

	w.Tick(context.Background())

	calls := alerter.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "expired", calls[0].kind)
	assert.Empty(t, w.Watched())

	// The journey is gone: further ticks are no-ops.
	w.Tick(context.Background())
	assert.Len(t, alerter.snapshot(), 1)
}

func TestNetworkFailureKeepsWatch(t *testing.T) {
	upstream := &journeyUpstream{err: context.DeadlineExceeded}
	alerter := &recordingAlerter{}
	w := newTestWatcher(upstream, alerter)
	w.Watch(Entry{JourneyID: "j1", Train: "ICE 619", Station: "Frankfurt(Main)Hbf"})

	w.Tick(context.Background())

	assert.Empty(t, alerter.snapshot(), "transient failures raise nothing")
	assert.Len(t, w.Watched(), 1, "the watch survives a transient failure")

	// Once the upstream recovers the watch picks up where it left off.
	upstream.set(delayedJourney(10), nil)
	w.Tick(context.Background())
	require.Len(t, alerter.snapshot(), 1)
	assert.Equal(t, "delayed", alerter.snapshot()[0].kind)
}

func TestRewatchResetsAlertState(t *testing.T) {
	upstream := &journeyUpstream{journey: delayedJourney(10)}
	alerter := &recordingAlerter{}
	w := newTestWatcher(upstream, alerter)
	entry := Entry{JourneyID: "j1", Train: "ICE 619", Station: "Frankfurt(Main)Hbf"}

	w.Watch(entry)
	w.Tick(context.Background())
	require.Len(t, alerter.snapshot(), 1)

	w.Watch(entry) // re-register
	w.Tick(context.Background())
	assert.Len(t, alerter.snapshot(), 2, "re-registering starts alerting from scratch")
}

func TestUnwatch(t *testing.T) {
	upstream := &journeyUpstream{journey: delayedJourney(10)}
	w := newTestWatcher(upstream, &recordingAlerter{})
	w.Watch(Entry{JourneyID: "j1", Train: "ICE 619", Station: "Frankfurt(Main)Hbf"})

	assert.True(t, w.Unwatch("j1"))
	assert.False(t, w.Unwatch("j1"), "second unwatch reports not found")
	assert.Empty(t, w.Watched())
}

func TestStopForPrefersWatchedStation(t *testing.T) {
	journey := &transit.JourneyDetail{Stops: []transit.StopDetail{
		{StationName: "Mannheim Hbf"},
		{StationName: "Frankfurt(Main)Hbf", DelayMinutes: 9},
	}}

	stop := stopFor(journey, "frankfurt(main)hbf")
	require.NotNil(t, stop)
	assert.Equal(t, "Frankfurt(Main)Hbf", stop.StationName)
}

func TestStopForFallsBackToFirstTimedHalt(t *testing.T) {
	sched := time.Date(2026, 8, 23, 14, 30, 0, 0, time.UTC)
	journey := &transit.JourneyDetail{Stops: []transit.StopDetail{
		{StationName: "A"},
		{StationName: "B", ScheduledTime: &sched},
	}}

	stop := stopFor(journey, "Nirgendwo")
	require.NotNil(t, stop)
	assert.Equal(t, "B", stop.StationName)
}

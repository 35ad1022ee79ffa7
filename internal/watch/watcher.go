// Package watch polls registered journeys and raises notifications when
// a watched departure slips or gets cancelled.
package watch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mkoeppen/zugboard/internal/transit"
)

// Alerter delivers watch notifications. *notify.Notifier satisfies it.
type Alerter interface {
	DepartureDelayed(train, station string, delayMinutes int, expected, platform string) error
	DepartureCancelled(train, station, reason string) error
	WatchExpired(train, station string) error
}

// Entry is one watched journey.
type Entry struct {
	JourneyID string
	Train     string // display label, e.g. "ICE 619"
	Station   string // the station the user cares about
}

// Watcher polls watched journeys on a fixed interval. Delay alerts are
// deduplicated per 5-minute bucket so a train creeping from 6 to 7
// minutes late does not re-alert; cancellations alert once.
type Watcher struct {
	svc      *transit.BoardService
	alerter  Alerter
	logger   *logrus.Logger
	interval time.Duration

	mu              sync.Mutex
	watches         map[string]Entry
	notifiedDelays  map[string]int
	notifiedCancels map[string]bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewWatcher(svc *transit.BoardService, alerter Alerter, logger *logrus.Logger, interval time.Duration) *Watcher {
	return &Watcher{
		svc:             svc,
		alerter:         alerter,
		logger:          logger,
		interval:        interval,
		watches:         make(map[string]Entry),
		notifiedDelays:  make(map[string]int),
		notifiedCancels: make(map[string]bool),
	}
}

// Watch registers a journey. Re-registering resets its alert state.
func (w *Watcher) Watch(e Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watches[e.JourneyID] = e
	delete(w.notifiedDelays, e.JourneyID)
	delete(w.notifiedCancels, e.JourneyID)
}

// Unwatch removes a journey. Returns false when it was not watched.
func (w *Watcher) Unwatch(journeyID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.watches[journeyID]
	delete(w.watches, journeyID)
	delete(w.notifiedDelays, journeyID)
	delete(w.notifiedCancels, journeyID)
	return ok
}

// Watched lists the registered entries.
func (w *Watcher) Watched() []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	entries := make([]Entry, 0, len(w.watches))
	for _, e := range w.watches {
		entries = append(entries, e)
	}
	return entries
}

func (w *Watcher) Start(ctx context.Context) {
	w.stopCh = make(chan struct{})
	w.wg.Add(1)
	go w.run(ctx)
}

func (w *Watcher) Stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped: context cancelled")
			return
		case <-w.stopCh:
			w.logger.Info("watcher stopped: stop signal received")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick checks every watched journey once.
func (w *Watcher) Tick(ctx context.Context) {
	for _, e := range w.Watched() {
		if err := w.check(ctx, e); err != nil {
			w.logger.WithFields(logrus.Fields{
				"journey_id": e.JourneyID,
				"error":      err,
			}).Warn("watch check failed")
		}
	}
}

func (w *Watcher) check(ctx context.Context, e Entry) error {
	journey, err := w.svc.GetJourney(ctx, e.JourneyID)
	if err != nil {
		// The upstream forgets journeys once they complete; drop the
		// watch instead of erroring forever.
		if errors.Is(err, transit.ErrUpstreamError) {
			w.logger.WithField("journey_id", e.JourneyID).Info("journey expired upstream, removing watch")
			w.Unwatch(e.JourneyID)
			return w.alerter.WatchExpired(e.Train, e.Station)
		}
		return err
	}

	stop := stopFor(journey, e.Station)

	if journey.Cancelled || (stop != nil && stop.Cancelled) {
		return w.handleCancellation(e)
	}
	if stop == nil || stop.DelayMinutes <= 0 {
		return nil
	}
	return w.handleDelay(e, stop)
}

// stopFor picks the watched station's halt, falling back to the first
// halt with a scheduled time.
func stopFor(journey *transit.JourneyDetail, station string) *transit.StopDetail {
	for i := range journey.Stops {
		if strings.EqualFold(journey.Stops[i].StationName, station) {
			return &journey.Stops[i]
		}
	}
	for i := range journey.Stops {
		if journey.Stops[i].ScheduledTime != nil {
			return &journey.Stops[i]
		}
	}
	return nil
}

func (w *Watcher) handleCancellation(e Entry) error {
	w.mu.Lock()
	already := w.notifiedCancels[e.JourneyID]
	if !already {
		w.notifiedCancels[e.JourneyID] = true
	}
	w.mu.Unlock()
	if already {
		return nil
	}

	w.logger.WithFields(logrus.Fields{
		"journey_id": e.JourneyID,
		"train":      e.Train,
	}).Warn("watched train cancelled")

	return w.alerter.DepartureCancelled(e.Train, e.Station, "Reported by live data")
}

func (w *Watcher) handleDelay(e Entry, stop *transit.StopDetail) error {
	bucket := stop.DelayMinutes / 5 * 5

	w.mu.Lock()
	lastBucket := w.notifiedDelays[e.JourneyID]
	shouldNotify := bucket > lastBucket
	if shouldNotify {
		w.notifiedDelays[e.JourneyID] = bucket
	}
	w.mu.Unlock()

	if !shouldNotify {
		w.logger.WithFields(logrus.Fields{
			"journey_id": e.JourneyID,
			"delay":      stop.DelayMinutes,
			"bucket":     bucket,
		}).Debug("delay already notified for this bucket")
		return nil
	}

	expected := ""
	if stop.RealtimeTime != nil {
		expected = stop.RealtimeTime.Format("15:04")
	}
	platform := stop.PlatformActual
	if platform == "" {
		platform = stop.PlatformScheduled
	}

	w.logger.WithFields(logrus.Fields{
		"journey_id":    e.JourneyID,
		"delay_minutes": stop.DelayMinutes,
		"expected":      expected,
	}).Warn("watched train delayed")

	return w.alerter.DepartureDelayed(e.Train, e.Station, stop.DelayMinutes, expected, platform)
}

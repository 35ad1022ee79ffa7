package transit

import (
	"fmt"
	"strings"
	"time"
)

// StationKind classifies a resolved location.
type StationKind string

const (
	KindStop    StationKind = "STOP"
	KindAddress StationKind = "ADDRESS"
)

// StationRef is a resolved, canonical station reference. Immutable once
// produced by the resolver.
type StationRef struct {
	ID       string      `json:"id"`  // Hafas location ID, sent as ortId
	EVA      int64       `json:"eva"` // EVA number, sent as ortExtId
	Name     string      `json:"name"`
	Kind     StationKind `json:"kind"`
	Lat      float64     `json:"lat"`
	Lon      float64     `json:"lon"`
	Products []string    `json:"products,omitempty"`
}

// TransportMode is a transport category accepted by the upstream
// verkehrsmittel[] parameter.
type TransportMode string

const (
	ModeICE            TransportMode = "ICE"
	ModeECIC           TransportMode = "EC_IC"
	ModeIR             TransportMode = "IR"
	ModeRegional       TransportMode = "REGIONAL"
	ModeSBahn          TransportMode = "SBAHN"
	ModeBus            TransportMode = "BUS"
	ModeSchiff         TransportMode = "SCHIFF"
	ModeUBahn          TransportMode = "UBAHN"
	ModeTram           TransportMode = "TRAM"
	ModeAnrufpflichtig TransportMode = "ANRUFPFLICHTIG"
)

var allModes = map[TransportMode]bool{
	ModeICE: true, ModeECIC: true, ModeIR: true, ModeRegional: true,
	ModeSBahn: true, ModeBus: true, ModeSchiff: true, ModeUBahn: true,
	ModeTram: true, ModeAnrufpflichtig: true,
}

// ParseTransportModes validates a list of mode strings
// (case-insensitive). An unknown mode is an InvalidInput error; nil in,
// nil out means no filter.
func ParseTransportModes(modes []string) ([]TransportMode, error) {
	if len(modes) == 0 {
		return nil, nil
	}
	result := make([]TransportMode, 0, len(modes))
	for _, m := range modes {
		mode := TransportMode(strings.ToUpper(strings.TrimSpace(m)))
		if !allModes[mode] {
			return nil, Errorf(InvalidInput, "unknown transport mode: %s", m)
		}
		result = append(result, mode)
	}
	return result, nil
}

// DepartureFilter is the query shape for one board fetch. Constructed
// per query and never mutated; a new query gets a new filter.
type DepartureFilter struct {
	Station           StationRef      `json:"station"`
	DirectionOrLine   string          `json:"directionOrLine,omitempty"`
	TimeWindowMinutes int             `json:"timeWindowMinutes"`
	IncludeArrivals   bool            `json:"includeArrivals"`
	Modes             []TransportMode `json:"modes,omitempty"`
	When              time.Time       `json:"when,omitempty"` // zero value means "now"
	MaxResults        int             `json:"maxResults,omitempty"`
}

// Validate checks caller-supplied constraints before any network call.
func (f DepartureFilter) Validate() error {
	if f.Station.ID == "" {
		return Errorf(InvalidInput, "station id is empty")
	}
	if f.TimeWindowMinutes <= 0 {
		return Errorf(InvalidInput, "time window must be positive, got %d", f.TimeWindowMinutes)
	}
	return nil
}

// ServiceMessage is an alert attached to a departure.
type ServiceMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// DepartureRecord is one normalized board row. Immutable after
// normalization.
type DepartureRecord struct {
	JourneyID         string           `json:"journeyId"`
	Line              string           `json:"line"`      // e.g. "ICE 619"
	TrainType         string           `json:"trainType"` // e.g. "ICE"
	Destination       string           `json:"destination"`
	Via               []string         `json:"via,omitempty"`
	ScheduledTime     time.Time        `json:"scheduledTime"`
	RealtimeTime      *time.Time       `json:"realtimeTime,omitempty"`
	DelayMinutes      int              `json:"delayMinutes"`
	PlatformScheduled string           `json:"platformScheduled,omitempty"`
	PlatformActual    string           `json:"platformActual,omitempty"`
	Cancelled         bool             `json:"cancelled"`
	Arrival           bool             `json:"arrival,omitempty"` // row came from the arrivals board
	Messages          []ServiceMessage `json:"messages,omitempty"`
}

// EffectiveTime is the realtime-adjusted departure time: the realtime
// value when reported, the scheduled one otherwise.
func (d DepartureRecord) EffectiveTime() time.Time {
	if d.RealtimeTime != nil {
		return *d.RealtimeTime
	}
	return d.ScheduledTime
}

// PlatformChanged reports whether the train was moved to a different
// platform. Derived at presentation time, not stored.
func (d DepartureRecord) PlatformChanged() bool {
	return d.PlatformScheduled != "" && d.PlatformActual != "" &&
		d.PlatformScheduled != d.PlatformActual
}

// StopDetail is one intermediate halt of a journey. The sequence order
// reflects physical travel order and must be preserved.
type StopDetail struct {
	StationName       string     `json:"stationName"`
	EVA               string     `json:"eva,omitempty"`
	ScheduledTime     *time.Time `json:"scheduledTime,omitempty"`
	RealtimeTime      *time.Time `json:"realtimeTime,omitempty"`
	DelayMinutes      int        `json:"delayMinutes"`
	PlatformScheduled string     `json:"platformScheduled,omitempty"`
	PlatformActual    string     `json:"platformActual,omitempty"`
	Cancelled         bool       `json:"cancelled"`
	Additional        bool       `json:"additional,omitempty"` // unplanned extra halt
}

// JourneyDetail is the full stop list of a single train run.
type JourneyDetail struct {
	JourneyID string       `json:"journeyId"`
	TrainName string       `json:"trainName"`
	Date      string       `json:"date"`
	Cancelled bool         `json:"cancelled"`
	Stops     []StopDetail `json:"stops"`
}

// Board is a value snapshot of a station's departures. Never mutated; a
// refresh produces a new Board that replaces the prior one in the view.
type Board struct {
	Station    StationRef        `json:"station"`
	Filter     DepartureFilter   `json:"filter"`
	Departures []DepartureRecord `json:"departures"`
	FetchedAt  time.Time         `json:"fetchedAt"`
}

// Label is a short human-readable description of a record, used by
// watch notifications.
func (d DepartureRecord) Label() string {
	return fmt.Sprintf("%s → %s", d.Line, d.Destination)
}

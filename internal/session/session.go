// Package session holds the per-view interaction state. Each open
// embedded view owns one Session; sessions share nothing but the
// upstream client, so independent views never interfere.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mkoeppen/zugboard/internal/transit"
)

// State is the session's interaction state.
type State int

const (
	// Idle: a board is displayed and the session accepts actions.
	Idle State = iota
	// Refreshing: a Search action is in flight. At most one per session.
	Refreshing
	// Errored: the last action failed; the previous board is retained
	// underneath so the view is never blank. The next successful action
	// returns to Idle.
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Refreshing:
		return "REFRESHING"
	case Errored:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// SearchAction is a view-originated re-query. Zero-valued fields keep
// the session's current filter settings.
type SearchAction struct {
	Station           string // new station text; empty keeps the current station
	DirectionOrLine   *string
	TimeWindowMinutes int
	IncludeArrivals   *bool
	Modes             []transit.TransportMode
	MaxResults        int
}

// Session is the interaction state of one open embedded view.
type Session struct {
	id  string
	svc *transit.BoardService
	log logrus.FieldLogger

	mu           sync.Mutex
	state        State
	board        *transit.Board
	lastErr      error
	stationQuery string             // the text the current station was resolved from
	cancel       context.CancelFunc // cancels the in-flight refresh, if any
	closed       bool
}

// ID returns the session identifier handed to the view.
func (s *Session) ID() string { return s.id }

// Board returns the currently displayed board snapshot.
func (s *Session) Board() *transit.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board
}

// State returns the current interaction state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure that put the session into the ERROR state,
// nil otherwise.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Errored {
		return nil
	}
	return s.lastErr
}

// Search runs the full pipeline again with the patched filter. While a
// refresh is in flight further Search calls fail with Busy and leave
// the displayed board untouched. On failure the session moves to ERROR
// but keeps the previous board.
func (s *Session) Search(ctx context.Context, action SearchAction) (*transit.Board, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, transit.Errorf(transit.InvalidInput, "session %s is closed", s.id)
	}
	if s.state == Refreshing {
		s.mu.Unlock()
		return nil, transit.ErrBusy
	}
	s.state = Refreshing
	prevQuery := s.stationQuery
	filter := s.board.Filter
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	board, query, err := s.refresh(ctx, filter, prevQuery, action)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = nil
	if s.closed || ctx.Err() != nil {
		// The view is gone; a late result must not be applied.
		return nil, context.Canceled
	}
	if err != nil {
		s.state = Errored
		s.lastErr = err
		s.log.WithField("error", err).Warn("search action failed, retaining previous board")
		return nil, err
	}
	s.state = Idle
	s.lastErr = nil
	s.board = board
	s.stationQuery = query
	return board, nil
}

// refresh resolves the station (only when its text changed) and runs
// fetch/normalize/assemble with the patched filter.
func (s *Session) refresh(ctx context.Context, filter transit.DepartureFilter, prevQuery string, action SearchAction) (*transit.Board, string, error) {
	station := filter.Station
	query := prevQuery

	if q := strings.TrimSpace(action.Station); q != "" && !strings.EqualFold(q, prevQuery) {
		candidates, err := s.svc.ResolveStation(ctx, q)
		if err != nil {
			return nil, "", err
		}
		if len(candidates) == 0 {
			return nil, "", transit.Errorf(transit.InvalidInput, "no station found for %q", q)
		}
		station = candidates[0]
		query = q
	}

	next := transit.DepartureFilter{
		Station:           station,
		DirectionOrLine:   filter.DirectionOrLine,
		TimeWindowMinutes: filter.TimeWindowMinutes,
		IncludeArrivals:   filter.IncludeArrivals,
		Modes:             filter.Modes,
		MaxResults:        filter.MaxResults,
	}
	if action.DirectionOrLine != nil {
		next.DirectionOrLine = *action.DirectionOrLine
	}
	if action.TimeWindowMinutes > 0 {
		next.TimeWindowMinutes = action.TimeWindowMinutes
	}
	if action.IncludeArrivals != nil {
		next.IncludeArrivals = *action.IncludeArrivals
	}
	if action.Modes != nil {
		next.Modes = action.Modes
	}
	if action.MaxResults > 0 {
		next.MaxResults = action.MaxResults
	}

	board, err := s.svc.GetBoard(ctx, next)
	if err != nil {
		return nil, "", err
	}
	return board, query, nil
}

// RowSelect fetches the stop list for one board row. This path is
// independent of the refresh state machine: its failure leaves the
// parent board and state untouched.
func (s *Session) RowSelect(ctx context.Context, journeyID string) (*transit.JourneyDetail, error) {
	return s.svc.GetJourney(ctx, journeyID)
}

// maxSessions caps the registry. Views that never close their session
// (a crashed host, a closed tab) would otherwise accumulate boards for
// the life of the process; beyond the cap the oldest session is evicted.
const maxSessions = 64

// Manager owns all live sessions, keyed by session id.
type Manager struct {
	svc *transit.BoardService
	log *logrus.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string // session ids oldest first, may hold already-closed ids
}

// NewManager creates an empty session registry.
func NewManager(svc *transit.BoardService, log *logrus.Logger) *Manager {
	return &Manager{
		svc:      svc,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Open registers a new session for a freshly assembled board and
// returns it in the IDLE state. When the registry is full the oldest
// session is evicted and torn down.
func (m *Manager) Open(board *transit.Board, stationQuery string) *Session {
	s := &Session{
		id:           uuid.NewString(),
		svc:          m.svc,
		state:        Idle,
		board:        board,
		stationQuery: stationQuery,
	}
	s.log = m.log.WithField("session_id", s.id)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.order = append(m.order, s.id)
	var evicted []*Session
	for len(m.sessions) > maxSessions && len(m.order) > 0 {
		oldest := m.order[0]
		m.order = m.order[1:]
		if old, ok := m.sessions[oldest]; ok {
			delete(m.sessions, oldest)
			evicted = append(evicted, old)
		}
	}
	m.mu.Unlock()

	for _, old := range evicted {
		old.log.Debug("session evicted, registry full")
		old.teardown()
	}

	s.log.WithField("station", board.Station.Name).Debug("session opened")
	return s
}

// Get looks up a live session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close tears a session down. An in-flight refresh is cancelled
// best-effort and its late result discarded. Returns false when the id
// is not a live session.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}

	s.teardown()
	return true
}

// teardown marks the session closed and cancels any in-flight refresh
// so its late result is discarded.
func (s *Session) teardown() {
	s.mu.Lock()
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.log.Debug("session closed")
}

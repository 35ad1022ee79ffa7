package transit

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mkoeppen/zugboard/internal/api/bahn"
)

// DefaultMaxResults caps a board when the filter does not say otherwise.
const DefaultMaxResults = 20

// Upstream is the transit data source behind the fetchers. *bahn.Client
// satisfies it; tests substitute fakes.
type Upstream interface {
	SearchStations(ctx context.Context, query string, limit int) ([]bahn.RawLocation, error)
	Departures(ctx context.Context, req bahn.BoardRequest) ([]bahn.RawBoardEntry, error)
	Arrivals(ctx context.Context, req bahn.BoardRequest) ([]bahn.RawBoardEntry, error)
	Journey(ctx context.Context, journeyID string) (*bahn.RawJourney, error)
}

// BoardService drives the resolve → fetch → normalize → assemble
// pipeline. Stateless across calls; safe for concurrent use.
type BoardService struct {
	upstream Upstream
	resolver *Resolver
	logger   *logrus.Logger
}

// NewBoardService wires the pipeline over an upstream source.
func NewBoardService(upstream Upstream, logger *logrus.Logger) *BoardService {
	return &BoardService{
		upstream: upstream,
		resolver: NewResolver(upstream, logger),
		logger:   logger,
	}
}

// ResolveStation returns ranked station candidates for a free-text query.
func (s *BoardService) ResolveStation(ctx context.Context, query string) ([]StationRef, error) {
	return s.resolver.Resolve(ctx, query)
}

// GetBoard fetches, normalizes and assembles the departure board
// described by filter.
func (s *BoardService) GetBoard(ctx context.Context, filter DepartureFilter) (*Board, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	when := filter.When
	if when.IsZero() {
		when = NowBerlin()
	}

	modes := make([]string, 0, len(filter.Modes))
	for _, m := range filter.Modes {
		modes = append(modes, string(m))
	}

	req := bahn.BoardRequest{
		EVA:             filter.Station.EVA,
		HafasID:         filter.Station.ID,
		Date:            formatDate(when),
		Time:            formatClock(when),
		DurationMinutes: filter.TimeWindowMinutes,
		Modes:           modes,
	}

	logger := s.logger.WithFields(logrus.Fields{
		"station": filter.Station.Name,
		"eva":     filter.Station.EVA,
	})
	logger.Info("fetching departure board")

	entries, err := s.upstream.Departures(ctx, req)
	if err != nil {
		return nil, classifyUpstreamErr(err, "fetching departures")
	}
	records := NormalizeDepartures(entries, false, logger)

	if filter.IncludeArrivals {
		arrivals, err := s.upstream.Arrivals(ctx, req)
		if err != nil {
			return nil, classifyUpstreamErr(err, "fetching arrivals")
		}
		records = append(records, NormalizeDepartures(arrivals, true, logger)...)
	}

	if filter.DirectionOrLine != "" {
		kept := records[:0]
		for _, rec := range records {
			if matchesDirection(rec, filter.DirectionOrLine) {
				kept = append(kept, rec)
			}
		}
		records = kept
	}

	board := AssembleBoard(filter.Station, filter, records)

	max := filter.MaxResults
	if max <= 0 {
		max = DefaultMaxResults
	}
	if len(board.Departures) > max {
		board.Departures = board.Departures[:max]
	}

	logger.WithField("departures", len(board.Departures)).Info("board assembled")
	return board, nil
}

// GetJourney fetches the full ordered stop list of one train run. A
// journeyId the upstream no longer recognizes yields an UpstreamError;
// callers should prompt a fresh departure query in that case.
func (s *BoardService) GetJourney(ctx context.Context, journeyID string) (*JourneyDetail, error) {
	if strings.TrimSpace(journeyID) == "" {
		return nil, Errorf(InvalidInput, "journey id is empty")
	}
	raw, err := s.upstream.Journey(ctx, journeyID)
	if err != nil {
		return nil, classifyUpstreamErr(err, "fetching journey")
	}
	return NormalizeJourney(raw, s.logger.WithField("journey_id", journeyID)), nil
}

// classifyUpstreamErr maps client-level failures onto the error
// taxonomy: a well-formed upstream rejection is an UpstreamError,
// anything else (network failure, timeout, cancelled context) is
// UpstreamUnavailable.
func classifyUpstreamErr(err error, msg string) error {
	var apiErr *bahn.APIError
	if errors.As(err, &apiErr) {
		return WrapError(UpstreamError, msg+" (status "+strconv.Itoa(apiErr.StatusCode)+")", err)
	}
	return WrapError(UpstreamUnavailable, msg, err)
}

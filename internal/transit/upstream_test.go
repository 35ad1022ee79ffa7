package transit

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/mkoeppen/zugboard/internal/api/bahn"
)

// fakeUpstream is a scriptable Upstream for pipeline tests.
type fakeUpstream struct {
	locations []bahn.RawLocation
	entries   []bahn.RawBoardEntry
	arrivals  []bahn.RawBoardEntry
	journey   *bahn.RawJourney

	searchErr    error
	searchErrs   []error // consumed one per call when set
	boardErr     error
	journeyErr   error
	searchCalls  int
	boardCalls   int
	lastBoardReq bahn.BoardRequest
}

func (f *fakeUpstream) SearchStations(ctx context.Context, query string, limit int) ([]bahn.RawLocation, error) {
	f.searchCalls++
	if len(f.searchErrs) > 0 {
		err := f.searchErrs[0]
		f.searchErrs = f.searchErrs[1:]
		if err != nil {
			return nil, err
		}
		return f.locations, nil
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.locations, nil
}

func (f *fakeUpstream) Departures(ctx context.Context, req bahn.BoardRequest) ([]bahn.RawBoardEntry, error) {
	f.boardCalls++
	f.lastBoardReq = req
	if f.boardErr != nil {
		return nil, f.boardErr
	}
	return f.entries, nil
}

func (f *fakeUpstream) Arrivals(ctx context.Context, req bahn.BoardRequest) ([]bahn.RawBoardEntry, error) {
	if f.boardErr != nil {
		return nil, f.boardErr
	}
	return f.arrivals, nil
}

func (f *fakeUpstream) Journey(ctx context.Context, journeyID string) (*bahn.RawJourney, error) {
	if f.journeyErr != nil {
		return nil, f.journeyErr
	}
	return f.journey, nil
}

// quietLogger discards output so test runs stay readable.
func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testStation() StationRef {
	return StationRef{
		ID:   "A=1@O=Frankfurt(Main)Hbf@X=8663785@Y=50107149@U=80@L=8000105@",
		EVA:  8000105,
		Name: "Frankfurt(Main)Hbf",
		Kind: KindStop,
	}
}

func rawEntry(journeyID, terminus, zeit, ezZeit string) bahn.RawBoardEntry {
	return bahn.RawBoardEntry{
		JourneyID: journeyID,
		Terminus:  terminus,
		Gleis:     "7",
		Zeit:      zeit,
		EzZeit:    ezZeit,
		Ueber:     []string{"Frankfurt(Main)Hbf", "Mannheim Hbf"},
		Transport: bahn.RawTransport{
			KurzText:   "ICE",
			MittelText: "ICE 123",
			Name:       "ICE 123",
		},
	}
}

package transit

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mkoeppen/zugboard/internal/api/bahn"
)

const resolveLimit = 10

// Resolver maps a free-text station name to ranked canonical station
// references.
type Resolver struct {
	upstream Upstream
	logger   logrus.FieldLogger
}

// NewResolver creates a resolver over the given upstream.
func NewResolver(upstream Upstream, logger logrus.FieldLogger) *Resolver {
	return &Resolver{upstream: upstream, logger: logger}
}

// Resolve returns candidate stations for a free-text query, best match
// first: exact name matches rank before prefix matches, which rank
// before the rest; within a tier the upstream relevance score decides,
// then the name alphabetically. Zero matches is an empty slice, not an
// error. One bounded retry is attempted when the upstream is
// unreachable.
func (r *Resolver) Resolve(ctx context.Context, query string) ([]StationRef, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, Errorf(InvalidInput, "station query is empty")
	}

	raw, err := r.upstream.SearchStations(ctx, query, resolveLimit)
	if err != nil {
		classified := classifyUpstreamErr(err, "searching stations")
		if !isUnavailable(classified) || ctx.Err() != nil {
			return nil, classified
		}
		r.logger.WithFields(logrus.Fields{
			"query": query,
			"error": err,
		}).Warn("station search failed, retrying once")
		raw, err = r.upstream.SearchStations(ctx, query, resolveLimit)
		if err != nil {
			return nil, classifyUpstreamErr(err, "searching stations")
		}
	}

	refs := make([]StationRef, 0, len(raw))
	weights := make(map[string]int, len(raw))
	for _, loc := range raw {
		ref := mapLocation(loc)
		refs = append(refs, ref)
		weights[ref.ID] = loc.Weight
	}

	lowered := strings.ToLower(query)
	rank := func(ref StationRef) int {
		name := strings.ToLower(ref.Name)
		switch {
		case name == lowered:
			return 0
		case strings.HasPrefix(name, lowered):
			return 1
		default:
			return 2
		}
	}

	sort.SliceStable(refs, func(i, j int) bool {
		ri, rj := rank(refs[i]), rank(refs[j])
		if ri != rj {
			return ri < rj
		}
		if weights[refs[i].ID] != weights[refs[j].ID] {
			return weights[refs[i].ID] > weights[refs[j].ID]
		}
		return refs[i].Name < refs[j].Name
	})

	return refs, nil
}

func mapLocation(loc bahn.RawLocation) StationRef {
	kind := KindAddress
	if loc.Type == "ST" {
		kind = KindStop
	}
	return StationRef{
		ID:       loc.ID,
		EVA:      loc.EVA(),
		Name:     loc.Name,
		Kind:     kind,
		Lat:      loc.Lat,
		Lon:      loc.Lon,
		Products: loc.Products,
	}
}

func isUnavailable(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == UpstreamUnavailable
}

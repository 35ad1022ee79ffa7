package bahn

import "strconv"

// RawLocation is a single entry from the location search endpoint.
type RawLocation struct {
	ID        string   `json:"id"` // Hafas location ID, e.g. "A=1@O=Köln Hbf@X=6958730@Y=50943029@..."
	ExtID     string   `json:"extId"`
	EvaNumber int64    `json:"evaNumber"`
	Name      string   `json:"name"`
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
	Type      string   `json:"type"` // "ST" = station, "ADR", "POI"
	Products  []string `json:"products"`
	Weight    int      `json:"weight"`
}

// EVA returns the numeric EVA identifier, falling back to extId when
// evaNumber is absent from the response.
func (l RawLocation) EVA() int64 {
	if l.EvaNumber != 0 {
		return l.EvaNumber
	}
	n, err := strconv.ParseInt(l.ExtID, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// RawTransport is the verkehrmittel object attached to a board entry.
type RawTransport struct {
	Name       string `json:"name"`
	KurzText   string `json:"kurzText"`   // type, e.g. "ICE"
	MittelText string `json:"mittelText"` // line, e.g. "ICE 619"
	LangText   string `json:"langText"`
}

// RawMessage is a service message (meldungen / priorisierteMeldungen /
// risMeldungen entry).
type RawMessage struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
	Key  string `json:"key,omitempty"`
}

// RawBoardEntry is a single departure or arrival row as returned by the
// board endpoints.
type RawBoardEntry struct {
	JourneyID  string       `json:"journeyId"`
	BahnhofsID string       `json:"bahnhofsId"`
	Terminus   string       `json:"terminus"`
	Gleis      string       `json:"gleis"`
	EzGleis    string       `json:"ezGleis"` // empty when unchanged
	Zeit       string       `json:"zeit"`
	EzZeit     string       `json:"ezZeit"` // empty when on time
	Ueber      []string     `json:"ueber"`  // first entry is the origin station
	Transport  RawTransport `json:"verkehrmittel"`
	Messages   []RawMessage `json:"meldungen"`
}

type boardResponse struct {
	Entries []RawBoardEntry `json:"entries"`
}

// RawStop is one halt of a journey from the journey detail endpoint.
type RawStop struct {
	Name                string       `json:"name"`
	EvaNumber           string       `json:"evaNumber"`
	Gleis               string       `json:"gleis"`
	EzGleis             string       `json:"ezGleis"`
	AnkunftsZeitpunkt   string       `json:"ankunftsZeitpunkt"`
	EzAnkunftsZeitpunkt string       `json:"ezAnkunftsZeitpunkt"`
	AbfahrtsZeitpunkt   string       `json:"abfahrtsZeitpunkt"`
	EzAbfahrtsZeitpunkt string       `json:"ezAbfahrtsZeitpunkt"`
	Canceled            bool         `json:"canceled"`
	Additional          bool         `json:"additional"`
	PrioMessages        []RawMessage `json:"priorisierteMeldungen"`
	RisMessages         []RawMessage `json:"risMeldungen"`
}

// RawJourney is the journey detail response: every halt of a single
// train run in travel order.
type RawJourney struct {
	JourneyID string    `json:"journeyId"`
	ZugName   string    `json:"zugName"`
	Reisetag  string    `json:"reisetag"`
	Cancelled bool      `json:"cancelled"`
	Halte     []RawStop `json:"halte"`
}

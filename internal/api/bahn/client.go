package bahn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bluele/gcache"
)

const DefaultBaseURL = "https://www.bahn.de/web/api"

// Cache TTLs per endpoint. Station data changes rarely; journey detail
// carries live positions and goes stale quickly.
const (
	ttlStations = 5 * time.Minute
	ttlBoards   = 90 * time.Second
	ttlJourney  = 30 * time.Second

	cacheSize = 512
)

// APIError is a well-formed error response from the upstream API
// (reachable, but it rejected this specific request).
type APIError struct {
	StatusCode int
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream API error (%d): %s", e.StatusCode, e.URL)
}

// BoardRequest holds the query parameters for a departure or arrival
// board fetch. Date and Time are Europe/Berlin local values in
// YYYY-MM-DD and HH:MM:SS form.
type BoardRequest struct {
	EVA             int64
	HafasID         string
	Date            string
	Time            string
	DurationMinutes int
	Modes           []string
}

// Client is a bahn.de web API client. It is safe for concurrent use;
// responses are cached in-process with per-endpoint TTLs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cache      gcache.Cache
}

// NewClient creates a bahn.de client with the given base URL and
// request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		cache:      gcache.New(cacheSize).LRU().Build(),
	}
}

// SearchStations queries the location search endpoint.
func (c *Client) SearchStations(ctx context.Context, query string, limit int) ([]RawLocation, error) {
	params := url.Values{}
	params.Set("suchbegriff", query)
	params.Set("typ", "ALL")
	params.Set("limit", strconv.Itoa(limit))

	var result []RawLocation
	if err := c.getJSON(ctx, "/reiseloesung/orte", params, ttlStations, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Departures fetches the departure board for a station.
func (c *Client) Departures(ctx context.Context, req BoardRequest) ([]RawBoardEntry, error) {
	return c.board(ctx, "/reiseloesung/abfahrten", req)
}

// Arrivals fetches the arrival board for a station.
func (c *Client) Arrivals(ctx context.Context, req BoardRequest) ([]RawBoardEntry, error) {
	return c.board(ctx, "/reiseloesung/ankuenfte", req)
}

func (c *Client) board(ctx context.Context, path string, req BoardRequest) ([]RawBoardEntry, error) {
	params := url.Values{}
	params.Set("datum", req.Date)
	params.Set("zeit", req.Time)
	params.Set("ortExtId", strconv.FormatInt(req.EVA, 10))
	params.Set("ortId", req.HafasID)
	params.Set("mitVias", "true")
	params.Set("maxVias", "5")
	if req.DurationMinutes > 0 {
		params.Set("dauer", strconv.Itoa(req.DurationMinutes))
	}
	for _, mode := range req.Modes {
		params.Add("verkehrsmittel[]", mode)
	}

	var result boardResponse
	if err := c.getJSON(ctx, path, params, ttlBoards, &result); err != nil {
		return nil, err
	}
	return result.Entries, nil
}

// Journey fetches every halt of a single train run. The journeyId must
// come from a board entry of the same upstream data generation; stale
// identifiers yield an *APIError.
func (c *Client) Journey(ctx context.Context, journeyID string) (*RawJourney, error) {
	params := url.Values{}
	params.Set("journeyId", journeyID)
	params.Set("poly", "false")

	var result RawJourney
	if err := c.getJSON(ctx, "/reiseloesung/fahrt", params, ttlJourney, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// getJSON performs a cached GET against the API. Cached payloads are
// stored as raw bytes so each caller decodes into its own value.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, ttl time.Duration, out any) error {
	key := cacheKey(path, params)
	if cached, err := c.cache.Get(key); err == nil {
		return json.Unmarshal(cached.([]byte), out)
	}

	reqURL := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, URL: reqURL}
	}

	var buf json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&buf); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if err := c.cache.SetWithExpire(key, []byte(buf), ttl); err != nil {
		return fmt.Errorf("caching response: %w", err)
	}
	return json.Unmarshal(buf, out)
}

func cacheKey(path string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(path)
	for _, k := range keys {
		for _, v := range params[k] {
			b.WriteByte('&')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	return b.String()
}

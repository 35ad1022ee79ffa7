// Package tools binds the departure pipeline to the MCP tool and
// resource surface. Domain failures become structured error payloads,
// never protocol-level tool errors, so the assistant can relay them.
package tools

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/mkoeppen/zugboard/internal/config"
	"github.com/mkoeppen/zugboard/internal/session"
	"github.com/mkoeppen/zugboard/internal/transit"
	"github.com/mkoeppen/zugboard/internal/watch"
)

//go:embed departures-view.html
var departuresViewHTML string

const (
	// ViewResourceURI names the embedded HTML view the host renders for
	// board results.
	ViewResourceURI = "ui://zugboard/departures-view.html"

	resultURI = "mcp://zugboard/result"

	datetimeFormat = "2006-01-02T15:04:05"
)

// Handler carries the wired services the tools call into.
type Handler struct {
	svc      *transit.BoardService
	sessions *session.Manager
	watcher  *watch.Watcher // nil when alert delivery is not configured
	board    config.BoardConfig
	logger   *logrus.Logger
}

func NewHandler(svc *transit.BoardService, sessions *session.Manager, watcher *watch.Watcher, board config.BoardConfig, logger *logrus.Logger) *Handler {
	return &Handler{svc: svc, sessions: sessions, watcher: watcher, board: board, logger: logger}
}

// Register binds every tool and resource onto the MCP server.
func Register(s *server.MCPServer, h *Handler) {
	s.AddResource(
		mcp.NewResource(ViewResourceURI, "Departure board view",
			mcp.WithResourceDescription("Interactive HTML view rendering departure boards"),
			mcp.WithMIMEType("text/html"),
		),
		func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return []mcp.ResourceContents{mcp.TextResourceContents{
				URI:      ViewResourceURI,
				MIMEType: "text/html",
				Text:     departuresViewHTML,
			}}, nil
		},
	)

	s.AddTool(mcp.NewTool("search_station",
		mcp.WithDescription("Search stations by name. Returns ranked candidates, best match first."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Free-text station name or fragment")),
	), h.searchStation)

	s.AddTool(mcp.NewTool("get_departures",
		mcp.WithDescription("Get live departures for a station. Results are rendered in the embedded board view."),
		mcp.WithString("station_name", mcp.Required(), mcp.Description("Station name (free text, resolved via location search)")),
		mcp.WithString("datetime", mcp.Description("Board start time as YYYY-MM-DDTHH:MM:SS in Europe/Berlin. Defaults to now.")),
		mcp.WithArray("transport_modes", mcp.Description("Transport modes to include, e.g. [\"ICE\", \"REGIONAL\"]. All modes when omitted.")),
		mcp.WithString("direction_or_line", mcp.Description("Case-insensitive substring filter on line, destination and via stations")),
		mcp.WithNumber("time_window_minutes", mcp.Description("Board time window in minutes")),
		mcp.WithBoolean("include_arrivals", mcp.Description("Also include the arrival board")),
		mcp.WithNumber("max_results", mcp.Description("Maximum number of rows to return")),
	), h.getDepartures)

	s.AddTool(mcp.NewTool("get_journey",
		mcp.WithDescription("Get all stops of a train journey with real-time delay data."),
		mcp.WithString("journey_id", mcp.Required(), mcp.Description("Journey ID taken from a departure entry")),
	), h.getJourney)

	s.AddTool(mcp.NewTool("board_action",
		mcp.WithDescription("Handle an action originating from the embedded board view: re-query with a new station or filter, open a journey's stop list, or close the view's session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID returned with the board")),
		mcp.WithString("action", mcp.Required(), mcp.Description("One of: search, row_select, close")),
		mcp.WithString("station_name", mcp.Description("search: new station text; omit to keep the current station")),
		mcp.WithString("direction_or_line", mcp.Description("search: replacement direction/line filter")),
		mcp.WithNumber("time_window_minutes", mcp.Description("search: replacement time window")),
		mcp.WithBoolean("include_arrivals", mcp.Description("search: replacement arrivals flag")),
		mcp.WithArray("transport_modes", mcp.Description("search: replacement transport mode list")),
		mcp.WithNumber("max_results", mcp.Description("search: replacement result cap")),
		mcp.WithString("journey_id", mcp.Description("row_select: journey to open")),
	), h.boardAction)

	s.AddTool(mcp.NewTool("watch_departure",
		mcp.WithDescription("Watch a journey and push a notification when its delay grows or it is cancelled."),
		mcp.WithString("journey_id", mcp.Required(), mcp.Description("Journey ID taken from a departure entry")),
		mcp.WithString("train", mcp.Required(), mcp.Description("Display name of the train, e.g. \"ICE 619\"")),
		mcp.WithString("station", mcp.Required(), mcp.Description("Station whose departure is being watched")),
	), h.watchDeparture)

	s.AddTool(mcp.NewTool("unwatch_departure",
		mcp.WithDescription("Stop watching a journey."),
		mcp.WithString("journey_id", mcp.Required(), mcp.Description("Journey ID of an active watch")),
	), h.unwatchDeparture)
}

// boardPayload is the structured result handed to the host alongside
// the view resource reference.
type boardPayload struct {
	SessionID  string                    `json:"sessionId"`
	View       string                    `json:"view"`
	State      string                    `json:"state"`
	Station    transit.StationRef        `json:"station"`
	Filter     filterPayload             `json:"filter"`
	FetchedAt  time.Time                 `json:"fetchedAt"`
	Departures []transit.DepartureRecord `json:"departures"`
	Count      int                       `json:"count"`
}

type filterPayload struct {
	DirectionOrLine   string                  `json:"directionOrLine,omitempty"`
	TimeWindowMinutes int                     `json:"timeWindowMinutes"`
	IncludeArrivals   bool                    `json:"includeArrivals"`
	Modes             []transit.TransportMode `json:"modes,omitempty"`
}

func newBoardPayload(sess *session.Session, board *transit.Board) boardPayload {
	return boardPayload{
		SessionID: sess.ID(),
		View:      ViewResourceURI,
		State:     sess.State().String(),
		Station:   board.Station,
		Filter: filterPayload{
			DirectionOrLine:   board.Filter.DirectionOrLine,
			TimeWindowMinutes: board.Filter.TimeWindowMinutes,
			IncludeArrivals:   board.Filter.IncludeArrivals,
			Modes:             board.Filter.Modes,
		},
		FetchedAt:  board.FetchedAt,
		Departures: board.Departures,
		Count:      len(board.Departures),
	}
}

func (h *Handler) searchStation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	candidates, rerr := h.svc.ResolveStation(ctx, query)
	if rerr != nil {
		return h.errorResult(rerr), nil
	}
	return jsonResult("station candidates", map[string]any{
		"candidates": candidates,
		"count":      len(candidates),
	}), nil
}

func (h *Handler) getDepartures(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stationName, err := req.RequireString("station_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	filter, terr := h.filterFromRequest(req)
	if terr != nil {
		return h.errorResult(terr), nil
	}

	candidates, rerr := h.svc.ResolveStation(ctx, stationName)
	if rerr != nil {
		return h.errorResult(rerr), nil
	}
	if len(candidates) == 0 {
		return jsonResult("no station found", map[string]string{
			"error": "No station found for " + strings.TrimSpace(stationName) + ". Please check the name.",
			"kind":  "not_found",
		}), nil
	}
	filter.Station = candidates[0]

	board, berr := h.svc.GetBoard(ctx, filter)
	if berr != nil {
		return h.errorResult(berr), nil
	}

	sess := h.sessions.Open(board, strings.TrimSpace(stationName))
	return jsonResult("departure board", newBoardPayload(sess, board)), nil
}

// filterFromRequest builds a DepartureFilter from tool arguments,
// leaving Station to be filled in after resolution.
func (h *Handler) filterFromRequest(req mcp.CallToolRequest) (transit.DepartureFilter, error) {
	modes, err := transit.ParseTransportModes(req.GetStringSlice("transport_modes", nil))
	if err != nil {
		return transit.DepartureFilter{}, err
	}

	var when time.Time
	if raw := req.GetString("datetime", ""); raw != "" {
		t, err := parseBerlin(raw)
		if err != nil {
			return transit.DepartureFilter{}, err
		}
		when = t
	}

	return transit.DepartureFilter{
		DirectionOrLine:   req.GetString("direction_or_line", ""),
		TimeWindowMinutes: req.GetInt("time_window_minutes", h.board.TimeWindowMinutes),
		IncludeArrivals:   req.GetBool("include_arrivals", false),
		Modes:             modes,
		When:              when,
		MaxResults:        req.GetInt("max_results", h.board.MaxResults),
	}, nil
}

func parseBerlin(raw string) (time.Time, error) {
	t, err := transit.ParseUpstreamTime(raw)
	if err != nil {
		return time.Time{}, transit.Errorf(transit.InvalidInput,
			"invalid datetime %q, expected %s", raw, datetimeFormat)
	}
	return t, nil
}

func (h *Handler) getJourney(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	journeyID, err := req.RequireString("journey_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	journey, jerr := h.svc.GetJourney(ctx, journeyID)
	if jerr != nil {
		return h.errorResult(jerr), nil
	}
	return jsonResult("journey stops", journey), nil
}

func (h *Handler) boardAction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	action, err := req.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sess, ok := h.sessions.Get(sessionID)
	if !ok {
		return h.errorResult(transit.Errorf(transit.InvalidInput, "unknown session %s; request a new departure board", sessionID)), nil
	}

	switch action {
	case "search":
		return h.handleSearch(ctx, sess, req)
	case "row_select":
		journeyID := req.GetString("journey_id", "")
		journey, jerr := sess.RowSelect(ctx, journeyID)
		if jerr != nil {
			return h.errorResult(jerr), nil
		}
		return jsonResult("journey stops", journey), nil
	case "close":
		h.sessions.Close(sessionID)
		return jsonResult("session closed", map[string]string{"closed": sessionID}), nil
	default:
		return h.errorResult(transit.Errorf(transit.InvalidInput, "unknown action %q", action)), nil
	}
}

func (h *Handler) handleSearch(ctx context.Context, sess *session.Session, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	patch := session.SearchAction{
		Station:           req.GetString("station_name", ""),
		TimeWindowMinutes: req.GetInt("time_window_minutes", 0),
		MaxResults:        req.GetInt("max_results", 0),
	}
	if _, ok := args["direction_or_line"]; ok {
		v := req.GetString("direction_or_line", "")
		patch.DirectionOrLine = &v
	}
	if _, ok := args["include_arrivals"]; ok {
		v := req.GetBool("include_arrivals", false)
		patch.IncludeArrivals = &v
	}
	if _, ok := args["transport_modes"]; ok {
		modes, err := transit.ParseTransportModes(req.GetStringSlice("transport_modes", nil))
		if err != nil {
			return h.errorResult(err), nil
		}
		if modes == nil {
			modes = []transit.TransportMode{}
		}
		patch.Modes = modes
	}

	board, err := sess.Search(ctx, patch)
	if err != nil {
		return h.errorResult(err), nil
	}
	return jsonResult("departure board", newBoardPayload(sess, board)), nil
}

func (h *Handler) watchDeparture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.watcher == nil {
		return jsonResult("watch unavailable", map[string]string{
			"error": "Watch alerts are not configured on this server.",
			"kind":  "unavailable",
		}), nil
	}

	journeyID, err := req.RequireString("journey_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	train, err := req.RequireString("train")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	station, err := req.RequireString("station")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	h.watcher.Watch(watch.Entry{JourneyID: journeyID, Train: train, Station: station})
	return jsonResult("watch registered", map[string]string{"watching": journeyID}), nil
}

func (h *Handler) unwatchDeparture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.watcher == nil {
		return jsonResult("watch unavailable", map[string]string{
			"error": "Watch alerts are not configured on this server.",
			"kind":  "unavailable",
		}), nil
	}

	journeyID, err := req.RequireString("journey_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !h.watcher.Unwatch(journeyID) {
		return h.errorResult(transit.Errorf(transit.InvalidInput, "journey %s is not watched", journeyID)), nil
	}
	return jsonResult("watch removed", map[string]string{"unwatched": journeyID}), nil
}

// jsonResult wraps a payload as an embedded application/json resource
// so the host renders it instead of the model narrating raw JSON.
func jsonResult(text string, v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError("encoding result: " + err.Error())
	}
	return mcp.NewToolResultResource(text, mcp.TextResourceContents{
		URI:      resultURI,
		MIMEType: "application/json",
		Text:     string(data),
	})
}

// errorResult maps the error taxonomy onto structured, actionable
// payloads. Unexpected failures are logged and reported generically.
func (h *Handler) errorResult(err error) *mcp.CallToolResult {
	kind := "internal"
	msg := "An unexpected error occurred."

	var terr *transit.Error
	if errors.As(err, &terr) {
		switch terr.Kind {
		case transit.InvalidInput:
			kind, msg = "invalid_input", terr.Error()
		case transit.UpstreamUnavailable:
			kind, msg = "upstream_unavailable", "The live data source is unreachable right now. Please try again."
		case transit.UpstreamError:
			kind, msg = "upstream_error", terr.Error()+". If this journey came from an older board, request a fresh one."
		case transit.Busy:
			kind, msg = "busy", terr.Error()
		}
	} else {
		h.logger.WithField("error", err).Error("unexpected error in tool handler")
	}

	return jsonResult("error", map[string]string{"error": msg, "kind": kind})
}

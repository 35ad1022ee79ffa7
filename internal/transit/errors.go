package transit

import "fmt"

// ErrorKind classifies failures so the tool boundary can decide how to
// surface them.
type ErrorKind int

const (
	// InvalidInput: caller-supplied data is malformed. Never retried;
	// surfaced as a correction request.
	InvalidInput ErrorKind = iota + 1
	// UpstreamUnavailable: network failure or timeout reaching the
	// upstream source.
	UpstreamUnavailable
	// UpstreamError: upstream was reachable but rejected this specific
	// query (e.g. an expired journeyId). Never retried automatically.
	UpstreamError
	// Busy: a refresh is already in flight for this session.
	Busy
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidInput:
		return "invalid input"
	case UpstreamUnavailable:
		return "upstream unavailable"
	case UpstreamError:
		return "upstream error"
	case Busy:
		return "busy"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Use errors.Is with one of the Err*
// sentinels to test the kind.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so
// errors.Is(err, transit.ErrBusy) works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrInvalidInput        = &Error{Kind: InvalidInput}
	ErrUpstreamUnavailable = &Error{Kind: UpstreamUnavailable}
	ErrUpstreamError       = &Error{Kind: UpstreamError}
	ErrBusy                = &Error{Kind: Busy, Msg: "a refresh is already in flight for this session"}
)

// Errorf builds a classified error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError classifies an underlying error.
func WrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

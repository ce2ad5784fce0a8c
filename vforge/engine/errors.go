package engine

import (
	"errors"
	"fmt"

	engineports "github.com/voiceforge/voiceforge/vforge/engine/ports"
)

// Error kinds. Every failure crossing the dispatch boundary carries exactly
// one of these so the hosting runtime can branch on machine-readable names.
const (
	KindConfiguration = "ConfigurationError"  // invalid tool definition, detected at build time
	KindArgument      = "ArgumentError"       // model-supplied args failed schema validation
	KindTemplate      = "TemplateError"       // placeholder expansion failed at call time
	KindTimeout       = "TimeoutError"        // attempt exceeded its deadline
	KindHTTP          = "HttpError"           // non-2xx response from the remote endpoint
	KindNetwork       = "NetworkError"        // transport failure before any response
	KindDispatch      = "DispatchError"       // unknown tool name at dispatch
	KindExecution     = "ExecutionError"      // tool body panicked or failed unexpectedly
	KindBackground    = "BackgroundTaskError" // background unit failed after detach
)

// ErrToolCollision is returned by the registry when a tool name is already
// taken. The caller decides whether that is fatal.
var ErrToolCollision = errors.New("tool name already registered")

// Error is the engine's failure type. Kind classifies, Message is safe for
// the model and logs, Err carries the cause for unwrapping.
type Error struct {
	Kind    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind, format string, args ...any) *Error {
	var cause error
	if n := len(args); n > 0 {
		if err, ok := args[n-1].(error); ok {
			cause = err
		}
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

func configErrf(format string, args ...any) *Error { return newErr(KindConfiguration, format, args...) }

func argErrf(format string, args ...any) *Error { return newErr(KindArgument, format, args...) }

func templateErrf(format string, args ...any) *Error { return newErr(KindTemplate, format, args...) }

func timeoutErrf(format string, args ...any) *Error { return newErr(KindTimeout, format, args...) }

func httpErrf(format string, args ...any) *Error { return newErr(KindHTTP, format, args...) }

func networkErrf(format string, args ...any) *Error { return newErr(KindNetwork, format, args...) }

func dispatchErrf(format string, args ...any) *Error { return newErr(KindDispatch, format, args...) }

func execErrf(format string, args ...any) *Error { return newErr(KindExecution, format, args...) }

// KindOf extracts the engine error kind, defaulting to ExecutionError for
// anything that slipped through unclassified.
func KindOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindExecution
}

// errorOutcome normalizes any error into the boundary shape.
func errorOutcome(err error) engineports.Outcome {
	var e *Error
	if errors.As(err, &e) {
		return engineports.Outcome{Status: engineports.StatusError, Kind: e.Kind, Message: e.Message}
	}
	return engineports.Outcome{Status: engineports.StatusError, Kind: KindExecution, Message: err.Error()}
}

func successOutcome(payload any) engineports.Outcome {
	return engineports.Outcome{Status: engineports.StatusSuccess, Payload: payload}
}

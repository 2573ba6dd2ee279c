package resumepdf

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the library.
var (
	// ErrClosed is returned when attempting to use a closed [Pipeline].
	ErrClosed = errors.New("resumepdf: pipeline is closed")

	// ErrBusy is returned when a stage is triggered while the same stage is
	// already running. The second trigger is dropped, never queued.
	ErrBusy = errors.New("resumepdf: stage already in progress")

	// ErrNothingToExport is returned when an export is requested with no
	// rendered pages and no markup, or when the markup rendered to zero rows.
	ErrNothingToExport = errors.New("resumepdf: nothing to export")

	// ErrEngineUnavailable is returned when no rendering engine could be started.
	ErrEngineUnavailable = errors.New("resumepdf: rendering engine unavailable")

	// ErrUnknownEngine is returned by [WithEngine] lookups for unregistered names.
	ErrUnknownEngine = errors.New("resumepdf: unknown rendering engine")

	// ErrInvalidBandHeight is returned by [Paginate] for a non-positive band height.
	ErrInvalidBandHeight = errors.New("resumepdf: band height must be positive")

	// ErrNoWriter is returned when every document writer strategy failed to construct.
	ErrNoWriter = errors.New("resumepdf: no document writer could be constructed")

	// ErrEmptyGeneration is returned when the generator produced no usable markup.
	ErrEmptyGeneration = errors.New("resumepdf: generator returned no markup")

	// ErrNoGenerator is returned by [Pipeline.Generate] when no generator is configured.
	ErrNoGenerator = errors.New("resumepdf: no markup generator configured")
)

// Kind classifies a pipeline failure for the caller.
type Kind int

const (
	// KindUnknown is any failure outside the taxonomy below.
	KindUnknown Kind = iota
	// KindConfigurationMissing means a required capability (the rendering
	// engine, an API key) could not be loaded. Not retried automatically.
	KindConfigurationMissing
	// KindGenerationFailure means the markup generator failed or returned
	// nothing usable. The user may retry.
	KindGenerationFailure
	// KindRasterizationFailure means mounting, measuring or capturing the
	// render surface failed. The user may retry.
	KindRasterizationFailure
	// KindUserInputEmpty means there was nothing to export. It is guidance,
	// not a system fault.
	KindUserInputEmpty
	// KindBusy means the stage was already running. The request was
	// dropped, not queued.
	KindBusy
)

func (k Kind) String() string {
	switch k {
	case KindConfigurationMissing:
		return "configuration-missing"
	case KindGenerationFailure:
		return "generation-failure"
	case KindRasterizationFailure:
		return "rasterization-failure"
	case KindUserInputEmpty:
		return "user-input-empty"
	case KindBusy:
		return "busy"
	}
	return "unknown"
}

// Error is the error type returned by [Pipeline] operations. It carries the
// failure [Kind], the operation that failed, and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error

	// Hint is an optional actionable suggestion appended to the user message.
	Hint string
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("resumepdf: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("resumepdf: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the single user-facing message for e.
func (e *Error) UserMessage() string {
	var msg string
	switch e.Kind {
	case KindConfigurationMissing:
		msg = "The rendering engine is not available. Fix the environment and try again."
		if errors.Is(e.Err, errMissingAPIKey) {
			msg = "The generator API key was not found. Set it and try again."
		}
	case KindGenerationFailure:
		msg = "Failed to generate resume. Please check your API key and try again."
	case KindRasterizationFailure:
		msg = "Failed to convert the resume to page images: " + causeText(e.Err)
	case KindUserInputEmpty:
		msg = "Nothing to export. Generate the resume first."
	case KindBusy:
		msg = "Still working on the previous request."
	default:
		msg = "Failed to generate PDF: " + causeText(e.Err)
	}
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// errMissingAPIKey marks configuration failures caused by an absent generator
// API key. Generators wrap it through [MissingAPIKey].
var errMissingAPIKey = errors.New("api key not set")

// MissingAPIKey returns a configuration error for an absent generator API key
// held in the named environment variable.
func MissingAPIKey(envVar string) error {
	return &Error{
		Kind: KindConfigurationMissing,
		Op:   "generate",
		Err:  fmt.Errorf("%w: %s", errMissingAPIKey, envVar),
		Hint: "export " + envVar + "=<key>",
	}
}

func causeText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// KindOf reports the [Kind] of err. Errors that are not an [*Error] are
// classified by the sentinels they wrap.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrBusy):
		return KindBusy
	case errors.Is(err, ErrNothingToExport):
		return KindUserInputEmpty
	case errors.Is(err, ErrEngineUnavailable), errors.Is(err, ErrUnknownEngine):
		return KindConfigurationMissing
	case errors.Is(err, ErrEmptyGeneration), errors.Is(err, ErrNoGenerator):
		return KindGenerationFailure
	}
	return KindUnknown
}

// UserMessage turns any error returned by this package into the message shown
// to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.UserMessage()
	}
	return (&Error{Kind: KindOf(err), Err: err}).UserMessage()
}

// wrap attaches kind and op to err unless err already carries a kind.
func wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, ErrBusy) || errors.Is(err, ErrClosed) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

package relay

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vyrodovalexey/apirelay/internal/upstream"
)

// Kind classifies a relay error. The string value is reported to clients in
// the "type" field of the error envelope.
type Kind string

// Error kinds.
const (
	KindValidation    Kind = "ValidationError"
	KindConfiguration Kind = "ConfigurationError"
	KindUpstream      Kind = "UpstreamError"
	KindUnreachable   Kind = "UpstreamUnreachable"
	KindInternal      Kind = "InternalError"
)

// Status returns the default HTTP status for the kind. UpstreamError has no
// fixed status; it relays the upstream one.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnreachable:
		return http.StatusServiceUnavailable
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is an error converted to a response at the handler boundary.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	// Details is attached to the envelope when set, e.g. the upstream body.
	Details interface{}
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// StatusCode returns the HTTP status to respond with.
func (e *Error) StatusCode() int {
	if e.Status != 0 {
		return e.Status
	}
	return e.Kind.Status()
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// NewValidationError creates a ValidationError.
func NewValidationError(message string) *Error {
	return newError(KindValidation, message, nil)
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(message string, cause error) *Error {
	return newError(KindConfiguration, message, cause)
}

// NewInternalError creates an InternalError.
func NewInternalError(message string, cause error) *Error {
	return newError(KindInternal, message, cause)
}

// Messages used for failures whose detail is not shown to clients.
const (
	msgUnreachable = "upstream service unavailable"
	msgInternal    = "internal server error"
	msgTooLarge    = "upstream response too large"
)

// classifyUpstream maps an outbound call failure onto the taxonomy:
// a non-2xx answer relays the upstream status, no answer at all is 503 and
// anything else is 500. A request the client could not have sent
// successfully is a validation error.
func classifyUpstream(err error) *Error {
	var statusErr *upstream.StatusError
	switch {
	case errors.As(err, &statusErr):
		return &Error{
			Kind:    KindUpstream,
			Status:  statusErr.StatusCode(),
			Message: fmt.Sprintf("upstream responded with status %d", statusErr.StatusCode()),
			Details: statusErr.Response.Data(),
			Cause:   err,
		}
	case upstream.IsUnreachable(err):
		return newError(KindUnreachable, msgUnreachable, err)
	case errors.Is(err, upstream.ErrInvalidRequest):
		return newError(KindValidation, "invalid upstream request", err)
	case errors.Is(err, upstream.ErrResponseTooLarge):
		return newError(KindInternal, msgTooLarge, err)
	default:
		return newError(KindInternal, msgInternal, err)
	}
}

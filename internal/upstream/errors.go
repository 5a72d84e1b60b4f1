package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
)

// Sentinel errors for upstream calls.
var (
	// ErrUnreachable indicates that the request was sent, or attempted, but
	// no response was received: dial failures, DNS errors, resets, timeouts
	// and cancellation.
	ErrUnreachable = errors.New("upstream unreachable")

	// ErrInvalidRequest indicates that the outbound request could not be built.
	ErrInvalidRequest = errors.New("invalid upstream request")

	// ErrResponseTooLarge indicates that the response body exceeded the
	// configured limit.
	ErrResponseTooLarge = errors.New("upstream response too large")
)

// StatusError is returned when the upstream answered with a non-2xx status.
// The full response is attached so callers can relay it.
type StatusError struct {
	Target   string
	Response *Response
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s responded with status %d", e.Target, e.Response.StatusCode)
}

// StatusCode returns the upstream status code.
func (e *StatusError) StatusCode() int {
	return e.Response.StatusCode
}

// unreachableError wraps a transport failure so that it matches
// ErrUnreachable while keeping the underlying cause.
type unreachableError struct {
	target string
	cause  error
}

func (e *unreachableError) Error() string {
	return fmt.Sprintf("upstream %s unreachable: %v", e.target, e.cause)
}

func (e *unreachableError) Unwrap() error {
	return e.cause
}

func (e *unreachableError) Is(target error) bool {
	return target == ErrUnreachable
}

// IsUnreachable reports whether err means no response was received.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

// isTransportFailure classifies an error from http.Client.Do or from reading
// a response body. *url.Error is unwrapped first since it satisfies
// net.Error for every failure, including ones that never reached the network.
func isTransportFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		err = urlErr.Err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

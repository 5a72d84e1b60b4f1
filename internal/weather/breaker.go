package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/apirelay/internal/observability"
	"github.com/vyrodovalexey/apirelay/internal/upstream"
)

// ErrCircuitOpen is returned when the breaker rejects a call without trying
// the upstream. It also matches upstream.ErrUnreachable.
var ErrCircuitOpen = errors.New("circuit breaker is open")

var cbTracer = otel.Tracer("apirelay/circuitbreaker")

// StateFunc is called when the breaker changes state.
// state is 0=closed, 1=half-open, 2=open.
type StateFunc func(name string, state int)

// Breaker guards upstream calls with a gobreaker.CircuitBreaker. Only
// failures that say something about upstream health count: no response at
// all, or a 5xx status. A 404 for an unknown city does not.
type Breaker struct {
	cb            *gobreaker.CircuitBreaker
	name          string
	logger        observability.Logger
	metrics       *observability.Metrics
	stateCallback StateFunc
}

// BreakerOption is a functional option for configuring the Breaker.
type BreakerOption func(*Breaker)

// WithBreakerLogger sets the logger for the breaker.
func WithBreakerLogger(logger observability.Logger) BreakerOption {
	return func(b *Breaker) {
		b.logger = logger
	}
}

// WithBreakerMetrics records state changes and rejected calls.
func WithBreakerMetrics(m *observability.Metrics) BreakerOption {
	return func(b *Breaker) {
		b.metrics = m
	}
}

// WithStateCallback sets a callback for state changes.
func WithStateCallback(fn StateFunc) BreakerOption {
	return func(b *Breaker) {
		b.stateCallback = fn
	}
}

// NewBreaker creates a breaker that opens after threshold consecutive
// failures and lets one trial call through after timeout.
func NewBreaker(name string, threshold int, timeout time.Duration, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		name:   name,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(b)
	}

	limit := safeIntToUint32(threshold)
	if limit == 0 {
		limit = 1
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= limit
		},
		IsSuccessful: func(err error) bool {
			return !countsAsFailure(err)
		},
		OnStateChange: b.onStateChange,
	}

	b.cb = gobreaker.NewCircuitBreaker(settings)
	if b.metrics != nil {
		b.metrics.SetCircuitBreakerState(name, int(gobreaker.StateClosed))
	}
	return b
}

func (b *Breaker) onStateChange(name string, from, to gobreaker.State) {
	b.logger.Info("circuit breaker state change",
		observability.String("name", name),
		observability.String("from", from.String()),
		observability.String("to", to.String()),
	)

	if b.metrics != nil {
		b.metrics.SetCircuitBreakerState(name, int(to))
	}

	_, span := cbTracer.Start(context.Background(),
		"circuitbreaker.state_change",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.AddEvent("state_change", trace.WithAttributes(
		attribute.String("circuitbreaker.name", name),
		attribute.String("circuitbreaker.from", from.String()),
		attribute.String("circuitbreaker.to", to.String()),
	))
	span.End()

	if b.stateCallback != nil {
		b.stateCallback(name, int(to))
	}
}

// callerGone marks a failure that happened after the caller's own context
// ended. It says nothing about upstream health.
type callerGone struct {
	err error
}

func (e *callerGone) Error() string { return e.err.Error() }
func (e *callerGone) Unwrap() error { return e.err }

// Call runs fn through the breaker. The response is returned even when fn
// also returns an error, so status errors can be relayed. Failures after
// ctx is done are not counted against the upstream.
func (b *Breaker) Call(ctx context.Context, fn func() (*upstream.Response, error)) (*upstream.Response, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		resp, err := fn()
		if err != nil && ctx.Err() != nil {
			return resp, &callerGone{err: err}
		}
		return resp, err
	})

	var gone *callerGone
	if errors.As(err, &gone) {
		err = gone.err
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.Warn("circuit breaker rejected request",
			observability.String("name", b.name),
			observability.String("state", b.cb.State().String()),
		)
		if b.metrics != nil {
			b.metrics.RecordUpstreamRejected(b.name)
		}
		return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, upstream.ErrUnreachable)
	}

	resp, _ := v.(*upstream.Response)
	return resp, err
}

// State returns the current state of the breaker.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	var gone *callerGone
	if errors.As(err, &gone) {
		return false
	}
	if upstream.IsUnreachable(err) {
		return true
	}
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode() >= http.StatusInternalServerError
	}
	return false
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}

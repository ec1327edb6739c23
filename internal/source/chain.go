// Package source resolves a dataset from an ordered list of upstream
// attempts, falling back to a static value when none of them delivers.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	appLog "catersite/internal/log"
)

// Status classifies the outcome of a single attempt or a whole chain.
type Status int

const (
	StatusSuccess Status = iota
	StatusEmpty
	StatusFailed
	StatusUnconfigured
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	case StatusUnconfigured:
		return "unconfigured"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Common source tags.
const (
	TagMissingConfig = "missing-config"
	TagFallbackEmpty = "fallback-empty"
)

// Attempt is one upstream source. Run returns ErrUnconfigured when the
// source has no configuration; any other error counts as a failure.
type Attempt[T any] struct {
	// Name is the source tag recorded on success. Failures are tagged
	// FailTag, or Name + "-error" when FailTag is empty.
	Name    string
	FailTag string
	Run     func(ctx context.Context) (T, error)
}

// Outcome is the resolved dataset plus its provenance.
type Outcome[T any] struct {
	Value  T
	Status Status
	Source string
	// HTTPStatus mirrors the upstream status for API responses: 200 on
	// success, the upstream code on a non-2xx reply, 502 otherwise.
	HTTPStatus int
	Err        error
}

// Chain evaluates attempts in order and returns the first non-empty value.
type Chain[T any] struct {
	Attempts []Attempt[T]
	// Timeout bounds each attempt separately. Zero means no extra bound.
	Timeout time.Duration
	// Empty reports whether a successful value has no usable data.
	Empty func(T) bool
	// Fallback supplies the static substitute.
	Fallback func() T
	// EmptyTag overrides TagFallbackEmpty.
	EmptyTag string
}

// Resolve never returns an error: whatever happens upstream, the outcome
// carries a value (live or fallback) and a tag describing which.
func (c Chain[T]) Resolve(ctx context.Context) Outcome[T] {
	var (
		tag        string
		status     = StatusUnconfigured
		httpStatus = http.StatusOK
		lastErr    error
	)

	for _, a := range c.Attempts {
		val, err := c.run(ctx, a)
		switch {
		case errors.Is(err, ErrUnconfigured):
			appLog.Debug("source not configured", "source", a.Name)
			continue

		case err != nil:
			tag = a.failTag()
			status = StatusFailed
			httpStatus = statusCodeOf(err)
			lastErr = err
			appLog.Warn("source attempt failed", "source", a.Name, "error", err.Error())
			continue

		case c.Empty != nil && c.Empty(val):
			tag = c.emptyTag()
			status = StatusEmpty
			httpStatus = http.StatusOK
			lastErr = nil
			appLog.Warn("source returned no usable rows", "source", a.Name)
			continue
		}

		appLog.Info("source attempt succeeded", "source", a.Name)
		return Outcome[T]{Value: val, Status: StatusSuccess, Source: a.Name, HTTPStatus: http.StatusOK}
	}

	if tag == "" {
		tag = TagMissingConfig
	}
	var fallback T
	if c.Fallback != nil {
		fallback = c.Fallback()
	}
	appLog.Info("using fallback dataset", "source", tag)
	return Outcome[T]{Value: fallback, Status: status, Source: tag, HTTPStatus: httpStatus, Err: lastErr}
}

// run executes one attempt under its own timeout and turns a panic into
// an ordinary failure.
func (c Chain[T]) run(ctx context.Context, a Attempt[T]) (val T, err error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			var zero T
			val = zero
			err = fmt.Errorf("%s: unexpected panic: %v", a.Name, r)
			appLog.Error("source attempt panicked", err, "source", a.Name)
		}
	}()

	return a.Run(ctx)
}

func (a Attempt[T]) failTag() string {
	if a.FailTag != "" {
		return a.FailTag
	}
	return a.Name + "-error"
}

func (c Chain[T]) emptyTag() string {
	if c.EmptyTag != "" {
		return c.EmptyTag
	}
	return TagFallbackEmpty
}

func statusCodeOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return http.StatusBadGateway
}

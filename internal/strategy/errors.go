package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// UnknownStrategyError reports a tag outside route|coordinate|collaborate.
type UnknownStrategyError struct {
	Tag string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown strategy %q (must be 'route', 'coordinate', or 'collaborate')", e.Tag)
}

// SpecialistUnavailableError is returned by route mode when the chosen
// specialist fails. Route mode never falls back to another specialist.
type SpecialistUnavailableError struct {
	SpecialistID string
	Cause        error
}

func (e *SpecialistUnavailableError) Error() string {
	return fmt.Sprintf("specialist '%s' unavailable: %v", e.SpecialistID, e.Cause)
}

func (e *SpecialistUnavailableError) Unwrap() error { return e.Cause }

// AllSpecialistsFailedError is returned by coordinate mode when not a single
// specialist produced a reply.
type AllSpecialistsFailedError struct {
	SpecialistIDs []string
	Causes        map[string]error
}

func (e *AllSpecialistsFailedError) Error() string {
	return fmt.Sprintf("all specialists failed: %s", strings.Join(e.SpecialistIDs, ", "))
}

// Unwrap exposes every cause, in SpecialistIDs order.
func (e *AllSpecialistsFailedError) Unwrap() []error {
	causes := make([]error, 0, len(e.SpecialistIDs))
	for _, id := range e.SpecialistIDs {
		if err := e.Causes[id]; err != nil {
			causes = append(causes, err)
		}
	}
	return causes
}

// ChainBrokenAtError is returned by collaborate mode when a link in the
// chain fails. Specialists after Position are never invoked.
type ChainBrokenAtError struct {
	SpecialistID string
	Position     int
	Cause        error
}

func (e *ChainBrokenAtError) Error() string {
	return fmt.Sprintf("collaboration chain broken at '%s' (position %d): %v", e.SpecialistID, e.Position, e.Cause)
}

func (e *ChainBrokenAtError) Unwrap() error { return e.Cause }

// TimeoutError marks a specialist invocation that exceeded its time budget.
// It is a failure cause like any other and wraps context.DeadlineExceeded.
type TimeoutError struct {
	SpecialistID string
	After        time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("specialist '%s' timed out after %s", e.SpecialistID, e.After)
}

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// Timeout reports true; it lets callers use the net.Error style check.
func (e *TimeoutError) Timeout() bool { return true }

// IsExecutionError returns true if err is one of the errors raised while
// executing a strategy.
func IsExecutionError(err error) bool {
	var unavailable *SpecialistUnavailableError
	var allFailed *AllSpecialistsFailedError
	var chainBroken *ChainBrokenAtError
	return errors.As(err, &unavailable) || errors.As(err, &allFailed) || errors.As(err, &chainBroken)
}

// IsTimeout returns true if err is or wraps a TimeoutError.
func IsTimeout(err error) bool {
	var timeout *TimeoutError
	return errors.As(err, &timeout)
}

package channel

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dyluth/warren/internal/chunk"
)

// Sink transmits one rendered segment to the user.
type Sink interface {
	Send(ctx context.Context, text string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, text string) error

// Send calls f(ctx, text).
func (f SinkFunc) Send(ctx context.Context, text string) error { return f(ctx, text) }

// RetryPolicy controls per-segment retransmission.
type RetryPolicy struct {
	Attempts int           // total tries per segment, at least 1
	Backoff  time.Duration // wait before the second try, doubled after each failure
}

// DefaultRetryPolicy retries each segment twice.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 500 * time.Millisecond}

// DeliveryError reports the segment that could not be sent. Segments after
// it were not attempted.
type DeliveryError struct {
	Index int
	Total int
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver segment %d/%d: %v", e.Index+1, e.Total, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Present renders a segment for display. Every segment after the first
// carries a continuation marker.
func Present(seg chunk.Segment) string {
	if !seg.Continuation() {
		return seg.Body
	}
	return fmt.Sprintf("(continued %d/%d)\n\n%s", seg.Index+1, seg.Total, seg.Body)
}

// Deliver sends segments in increasing index order, retrying each one per
// policy. It stops at the first segment that exhausts its retries.
func Deliver(ctx context.Context, sink Sink, segments []chunk.Segment, policy RetryPolicy) error {
	ordered := append([]chunk.Segment(nil), segments...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	for _, seg := range ordered {
		text := Present(seg)
		backoff := policy.Backoff

		var err error
		for attempt := 1; attempt <= attempts; attempt++ {
			if err = sink.Send(ctx, text); err == nil {
				break
			}
			if attempt == attempts {
				break
			}

			select {
			case <-ctx.Done():
				return &DeliveryError{Index: seg.Index, Total: seg.Total, Err: ctx.Err()}
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if err != nil {
			return &DeliveryError{Index: seg.Index, Total: seg.Total, Err: err}
		}
	}
	return nil
}

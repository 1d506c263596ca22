package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dyluth/warren/pkg/specialist"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single specialist invocation when none is configured.
const DefaultTimeout = 60 * time.Second

// AggregatedReply is the combined outcome of executing a strategy once.
type AggregatedReply struct {
	Mode          Kind               `json:"mode"`
	SpecialistIDs []string           `json:"specialist_ids"`   // route: the chosen one; otherwise all attempted
	Text          string             `json:"text"`             // final text handed to the channel
	Failed        []string           `json:"failed,omitempty"` // coordinate only: ids that did not respond
	Replies       []specialist.Reply `json:"replies"`          // successful replies, in output order
}

// Config tunes an Engine.
type Config struct {
	Timeout time.Duration // per-invocation budget, DefaultTimeout if zero
	Scorer  Scorer        // route selection, TagOverlapScorer if nil
}

// Engine executes strategies over a sealed specialist registry.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	registry *specialist.Registry
	timeout  time.Duration
	scorer   Scorer
	logger   *zap.Logger
}

// NewEngine creates a strategy engine. A nil logger disables logging.
func NewEngine(reg *specialist.Registry, cfg Config, logger *zap.Logger) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Scorer == nil {
		cfg.Scorer = TagOverlapScorer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		registry: reg,
		timeout:  cfg.Timeout,
		scorer:   cfg.Scorer,
		logger:   logger,
	}
}

// Timeout returns the per-invocation budget.
func (e *Engine) Timeout() time.Duration {
	return e.timeout
}

// Execute runs prompt through the strategy. shared is never mutated; every
// specialist receives its own copy.
func (e *Engine) Execute(ctx context.Context, st Strategy, prompt string, shared specialist.SharedContext) (*AggregatedReply, error) {
	if err := st.Validate(e.registry); err != nil {
		return nil, fmt.Errorf("invalid strategy: %w", err)
	}

	startTime := time.Now()

	var (
		reply *AggregatedReply
		err   error
	)
	switch st.Kind {
	case KindRoute:
		reply, err = e.route(ctx, st, prompt, shared)
	case KindCoordinate:
		reply, err = e.coordinate(ctx, st, prompt, shared)
	case KindCollaborate:
		reply, err = e.collaborate(ctx, st, prompt, shared)
	}

	if err != nil {
		e.logEvent("strategy_failed",
			zap.String("strategy", string(st.Kind)),
			zap.Int64("latency_ms", time.Since(startTime).Milliseconds()),
			zap.Error(err),
		)
		return nil, err
	}

	e.logEvent("strategy_completed",
		zap.String("strategy", string(st.Kind)),
		zap.Strings("specialists", reply.SpecialistIDs),
		zap.Strings("failed", reply.Failed),
		zap.Int64("latency_ms", time.Since(startTime).Milliseconds()),
	)
	return reply, nil
}

// invoke runs one specialist under the engine timeout. The responder runs in
// its own goroutine so that a responder ignoring ctx still cannot hold the
// request past its budget; its eventual result is discarded.
func (e *Engine) invoke(ctx context.Context, s *specialist.Specialist, prompt string, shared specialist.SharedContext) (specialist.Reply, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type result struct {
		reply specialist.Reply
		err   error
	}
	done := make(chan result, 1)
	startTime := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("specialist '%s' panicked: %v", s.ID, r)}
			}
		}()
		reply, err := s.Invoke(callCtx, prompt, shared)
		done <- result{reply: reply, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-callCtx.Done():
		res = result{err: callCtx.Err()}
	}

	if res.err != nil {
		// Caller cancellation wins over everything else.
		if ctx.Err() != nil {
			return specialist.Reply{}, ctx.Err()
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			res.err = &TimeoutError{SpecialistID: s.ID, After: e.timeout}
		}
		e.logEvent("specialist_failed",
			zap.String("specialist_id", s.ID),
			zap.Int64("latency_ms", time.Since(startTime).Milliseconds()),
			zap.Error(res.err),
		)
		return specialist.Reply{}, res.err
	}

	e.logger.Debug("specialist replied",
		zap.String("specialist_id", s.ID),
		zap.Int("reply_bytes", len(res.reply.Text)),
		zap.Duration("latency", time.Since(startTime)),
	)
	return res.reply, nil
}

// resolve returns the strategy's specialists in the strategy's own order.
func (e *Engine) resolve(st Strategy) ([]*specialist.Specialist, error) {
	members := make([]*specialist.Specialist, 0, len(st.SpecialistIDs))
	for _, id := range st.SpecialistIDs {
		s, err := e.registry.Resolve(id)
		if err != nil {
			return nil, err
		}
		members = append(members, s)
	}
	return members, nil
}

// resolveInRegistryOrder returns the strategy's specialists ordered by
// registration position, the layout order for combined output.
func (e *Engine) resolveInRegistryOrder(st Strategy) ([]*specialist.Specialist, error) {
	members, err := e.resolve(st)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(members, func(i, j int) bool {
		return e.registry.Index(members[i].ID) < e.registry.Index(members[j].ID)
	})
	return members, nil
}

// logEvent logs a structured engine event.
func (e *Engine) logEvent(eventType string, fields ...zap.Field) {
	fields = append(fields,
		zap.String("component", "strategy"),
		zap.String("event_type", eventType),
	)
	e.logger.Info(eventType, fields...)
}

func ids(members []*specialist.Specialist) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.ID
	}
	return out
}

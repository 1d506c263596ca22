// Package orchestrator ties sessions, strategies and chunking together into
// the single Handle entry point that channel adapters call.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dyluth/warren/internal/chunk"
	"github.com/dyluth/warren/internal/session"
	"github.com/dyluth/warren/internal/strategy"
	"github.com/dyluth/warren/pkg/specialist"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrEmptyMessage is returned by Handle for blank input.
var ErrEmptyMessage = errors.New("message cannot be empty")

// Orchestrator handles user messages end to end. It holds no per-user state
// of its own; everything mutable lives in the session store.
type Orchestrator struct {
	sessions   session.Store
	engine     *strategy.Engine
	strategies *strategy.Set
	writer     *chunk.Writer
	logger     *zap.Logger
}

// Result is the outcome of one successful Handle call.
type Result struct {
	RequestID string
	Reply     *strategy.AggregatedReply
	Segments  []chunk.Segment
	Session   *session.Session // state after the interaction was recorded
}

// Status reports a user's session.
type Status struct {
	UserID           string        `json:"user_id"`
	ActiveStrategy   strategy.Kind `json:"active_strategy"`
	InteractionCount int64         `json:"interaction_count"`
	LastUpdated      time.Time     `json:"last_updated"`
	Specialists      []string      `json:"specialists"` // bound to the active strategy
}

// New creates an orchestrator. A nil logger disables logging.
func New(sessions session.Store, engine *strategy.Engine, strategies *strategy.Set, writer *chunk.Writer, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		sessions:   sessions,
		engine:     engine,
		strategies: strategies,
		writer:     writer,
		logger:     logger,
	}
}

// Handle runs message through the user's active strategy and returns the
// reply split into channel-safe segments. Execution errors are returned
// unchanged; the interaction is recorded only on success.
func (o *Orchestrator) Handle(ctx context.Context, userID, message string) ([]chunk.Segment, error) {
	res, err := o.Process(ctx, userID, message)
	if err != nil {
		return nil, err
	}
	return res.Segments, nil
}

// Process is Handle with the full result attached.
func (o *Orchestrator) Process(ctx context.Context, userID, message string) (*Result, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	requestID := uuid.New().String()
	startTime := time.Now()

	sess, err := o.sessions.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	st, err := o.strategies.Get(sess.ActiveStrategy)
	if err != nil {
		return nil, err
	}

	o.logEvent("request_received",
		zap.String("request_id", requestID),
		zap.String("user_id", userID),
		zap.String("strategy", string(st.Kind)),
		zap.Int("message_bytes", len(message)),
	)

	reply, err := o.engine.Execute(ctx, st, message, BuildSharedContext(sess))
	if err != nil {
		o.logEvent("request_failed",
			zap.String("request_id", requestID),
			zap.String("user_id", userID),
			zap.String("strategy", string(st.Kind)),
			zap.Int64("latency_ms", time.Since(startTime).Milliseconds()),
			zap.Error(err),
		)
		return nil, err
	}

	// A caller that gave up must not leave a trace in the session.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	updated, err := o.sessions.RecordInteraction(ctx, userID, session.Interaction{
		Strategy:      reply.Mode,
		SpecialistIDs: reply.SpecialistIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record interaction: %w", err)
	}

	segments := o.writer.Split(reply.Text)

	o.logEvent("request_completed",
		zap.String("request_id", requestID),
		zap.String("user_id", userID),
		zap.String("strategy", string(st.Kind)),
		zap.Strings("specialists", reply.SpecialistIDs),
		zap.Strings("failed", reply.Failed),
		zap.Int("segments", len(segments)),
		zap.Int64("interaction_count", updated.InteractionCount),
		zap.Int64("latency_ms", time.Since(startTime).Milliseconds()),
	)

	return &Result{
		RequestID: requestID,
		Reply:     reply,
		Segments:  segments,
		Session:   updated,
	}, nil
}

// SwitchStrategy changes the user's active strategy. Returns
// *strategy.UnknownStrategyError for tags outside the defined kinds.
func (o *Orchestrator) SwitchStrategy(ctx context.Context, userID, tag string) (strategy.Kind, error) {
	kind, err := strategy.ParseKind(tag)
	if err != nil {
		return "", err
	}
	if err := o.sessions.SetStrategy(ctx, userID, kind); err != nil {
		return "", fmt.Errorf("failed to switch strategy: %w", err)
	}

	o.logEvent("strategy_switched",
		zap.String("user_id", userID),
		zap.String("strategy", string(kind)),
	)
	return kind, nil
}

// Status returns the user's active strategy and interaction count.
func (o *Orchestrator) Status(ctx context.Context, userID string) (*Status, error) {
	sess, err := o.sessions.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	st, err := o.strategies.Get(sess.ActiveStrategy)
	if err != nil {
		return nil, err
	}

	return &Status{
		UserID:           sess.UserID,
		ActiveStrategy:   sess.ActiveStrategy,
		InteractionCount: sess.InteractionCount,
		LastUpdated:      sess.LastUpdated,
		Specialists:      append([]string(nil), st.SpecialistIDs...),
	}, nil
}

// Start returns the user's session, creating it on first contact.
func (o *Orchestrator) Start(ctx context.Context, userID string) (*session.Session, error) {
	sess, err := o.sessions.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

// Strategy returns the binding for kind.
func (o *Orchestrator) Strategy(kind strategy.Kind) (strategy.Strategy, error) {
	return o.strategies.Get(kind)
}

// MaxSegmentSize returns the size bound applied to every segment.
func (o *Orchestrator) MaxSegmentSize() int {
	return o.writer.MaxSize()
}

// Ping checks the session backend.
func (o *Orchestrator) Ping(ctx context.Context) error {
	return o.sessions.Ping(ctx)
}

// BuildSharedContext seeds a request's shared context from the session.
// Scratch entries come first so the well-known keys always win.
func BuildSharedContext(sess *session.Session) specialist.SharedContext {
	shared := make(specialist.SharedContext, len(sess.Scratch)+3)
	for k, v := range sess.Scratch {
		shared[k] = v
	}
	shared[specialist.ContextUserID] = sess.UserID
	shared[specialist.ContextInteractionCount] = strconv.FormatInt(sess.InteractionCount, 10)
	shared[specialist.ContextActiveStrategy] = string(sess.ActiveStrategy)
	return shared
}

// logEvent logs a structured orchestrator event.
func (o *Orchestrator) logEvent(eventType string, fields ...zap.Field) {
	fields = append(fields,
		zap.String("component", "orchestrator"),
		zap.String("event_type", eventType),
	)
	o.logger.Info(eventType, fields...)
}

package channel

import (
	"context"
	"fmt"

	"github.com/dyluth/warren/internal/chunk"
	"github.com/dyluth/warren/internal/orchestrator"
	"github.com/dyluth/warren/internal/session"
	"github.com/dyluth/warren/internal/strategy"
	"go.uber.org/zap"
)

// Orchestrator is the core the channel adapters drive.
type Orchestrator interface {
	Handle(ctx context.Context, userID, message string) ([]chunk.Segment, error)
	Process(ctx context.Context, userID, message string) (*orchestrator.Result, error)
	SwitchStrategy(ctx context.Context, userID, tag string) (strategy.Kind, error)
	Status(ctx context.Context, userID string) (*orchestrator.Status, error)
	Start(ctx context.Context, userID string) (*session.Session, error)
	Strategy(kind strategy.Kind) (strategy.Strategy, error)
	MaxSegmentSize() int
	Ping(ctx context.Context) error
}

// Reply is what a channel sends back for one line of input.
type Reply struct {
	Command  Command
	Segments []chunk.Segment
	Err      error // set when Segments carry an error description
}

// Dispatcher maps parsed input onto orchestrator operations.
type Dispatcher struct {
	orch   Orchestrator
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher. A nil logger disables logging.
func NewDispatcher(orch Orchestrator, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{orch: orch, logger: logger}
}

// Dispatch handles one line of input from userID.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, input string) Reply {
	cmd := Parse(input)

	var (
		text     string
		segments []chunk.Segment
		err      error
	)

	switch cmd.Kind {
	case CommandMessage:
		segments, err = d.orch.Handle(ctx, userID, cmd.Text)

	case CommandStart:
		var sess *session.Session
		if sess, err = d.orch.Start(ctx, userID); err == nil {
			text = GreetingText(sess, d.strategies())
		}

	case CommandSwitch:
		if cmd.Arg == "" {
			var st *orchestrator.Status
			if st, err = d.orch.Status(ctx, userID); err == nil {
				text = StrategiesText(st.ActiveStrategy, d.strategies())
			}
			break
		}
		var kind strategy.Kind
		if kind, err = d.orch.SwitchStrategy(ctx, userID, cmd.Arg); err == nil {
			text = SwitchedText(kind)
		}

	case CommandStatus:
		var st *orchestrator.Status
		if st, err = d.orch.Status(ctx, userID); err == nil {
			text = StatusText(st)
		}

	case CommandHelp:
		text = HelpText(d.strategies())

	case CommandUnknown:
		text = fmt.Sprintf("Unknown command /%s. Send /help to see what I can do.", cmd.Name)
	}

	if err != nil {
		d.logger.Warn("dispatch failed",
			zap.String("component", "channel"),
			zap.String("user_id", userID),
			zap.String("command", string(cmd.Kind)),
			zap.Error(err),
		)
		return Reply{Command: cmd, Segments: d.split(Describe(err)), Err: err}
	}

	if segments == nil {
		segments = d.split(text)
	}
	return Reply{Command: cmd, Segments: segments}
}

// strategies returns every binding in presentation order.
func (d *Dispatcher) strategies() []strategy.Strategy {
	out := make([]strategy.Strategy, 0, len(strategy.Kinds()))
	for _, k := range strategy.Kinds() {
		if st, err := d.orch.Strategy(k); err == nil {
			out = append(out, st)
		}
	}
	return out
}

func (d *Dispatcher) split(text string) []chunk.Segment {
	segments, err := chunk.Split(text, d.orch.MaxSegmentSize())
	if err != nil {
		// Only reachable with a misconfigured orchestrator; send unsplit.
		return []chunk.Segment{{Index: 0, Total: 1, Body: text}}
	}
	return segments
}

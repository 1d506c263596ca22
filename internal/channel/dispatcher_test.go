package channel

import (
	"context"
	"strings"
	"testing"

	"github.com/dyluth/warren/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joinBodies(r Reply) string {
	var b strings.Builder
	for _, s := range r.Segments {
		b.WriteString(s.Body)
	}
	return b.String()
}

func TestDispatch_StartGreets(t *testing.T) {
	d := NewDispatcher(setupTestOrchestrator(t, 4000), nil)

	reply := d.Dispatch(context.Background(), "alice", "/start")

	require.NoError(t, reply.Err)
	assert.Equal(t, CommandStart, reply.Command.Kind)
	text := joinBodies(reply)
	assert.Contains(t, text, "Welcome to warren!")
	assert.Contains(t, text, "Active strategy: Quick (route)")
}

func TestDispatch_MessageUsesActiveStrategy(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher(setupTestOrchestrator(t, 4000), nil)

	reply := d.Dispatch(ctx, "alice", "helmet rules?")
	require.NoError(t, reply.Err)
	assert.Equal(t, "safety: helmet rules?", joinBodies(reply))

	reply = d.Dispatch(ctx, "alice", "/status")
	require.NoError(t, reply.Err)
	assert.Contains(t, joinBodies(reply), "Interactions: 1")
}

func TestDispatch_SwitchChangesStrategy(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher(setupTestOrchestrator(t, 4000), nil)

	reply := d.Dispatch(ctx, "alice", "/switch Coordinate")
	require.NoError(t, reply.Err)
	assert.Contains(t, joinBodies(reply), "Comprehensive (coordinate)")

	// Coordinate degrades gracefully when flaky fails.
	reply = d.Dispatch(ctx, "alice", "helmet rules?")
	require.NoError(t, reply.Err)
	text := joinBodies(reply)
	assert.Contains(t, text, "## safety")
	assert.Contains(t, text, "_No response from: flaky_")
}

func TestDispatch_BareSwitchListsStrategies(t *testing.T) {
	d := NewDispatcher(setupTestOrchestrator(t, 4000), nil)

	reply := d.Dispatch(context.Background(), "alice", "/teams")

	require.NoError(t, reply.Err)
	text := joinBodies(reply)
	assert.Contains(t, text, "Available strategies")
	assert.Contains(t, text, "Research (collaborate)")
}

func TestDispatch_ErrorsAreDescribed(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher(setupTestOrchestrator(t, 4000), nil)

	reply := d.Dispatch(ctx, "alice", "/switch swarm")
	var unknown *strategy.UnknownStrategyError
	require.ErrorAs(t, reply.Err, &unknown)
	assert.Contains(t, joinBodies(reply), `Unknown strategy "swarm"`)

	reply = d.Dispatch(ctx, "alice", "/switch collaborate")
	require.NoError(t, reply.Err)

	reply = d.Dispatch(ctx, "alice", "helmet rules?")
	var broken *strategy.ChainBrokenAtError
	require.ErrorAs(t, reply.Err, &broken)
	assert.Contains(t, joinBodies(reply), "stopped at flaky")

	reply = d.Dispatch(ctx, "alice", "/status")
	require.NoError(t, reply.Err)
	assert.Contains(t, joinBodies(reply), "Interactions: 0")
}

func TestDispatch_UnknownCommand(t *testing.T) {
	d := NewDispatcher(setupTestOrchestrator(t, 4000), nil)

	reply := d.Dispatch(context.Background(), "alice", "/dance")

	require.NoError(t, reply.Err)
	assert.Equal(t, CommandUnknown, reply.Command.Kind)
	assert.Contains(t, joinBodies(reply), "Unknown command /dance")
}

func TestDispatch_HelpIsSegmented(t *testing.T) {
	d := NewDispatcher(setupTestOrchestrator(t, 64), nil)

	reply := d.Dispatch(context.Background(), "alice", "/help")

	require.NoError(t, reply.Err)
	require.Greater(t, len(reply.Segments), 1)
	for i, seg := range reply.Segments {
		assert.Equal(t, i, seg.Index)
		assert.LessOrEqual(t, len(seg.Body), 64)
	}
	assert.Contains(t, joinBodies(reply), "/switch")
}

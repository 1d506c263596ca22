package channel

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dyluth/warren/internal/chunk"
	"github.com/dyluth/warren/internal/orchestrator"
	"github.com/dyluth/warren/internal/session"
	"github.com/dyluth/warren/internal/strategy"
	"github.com/dyluth/warren/pkg/specialist"
	"github.com/stretchr/testify/require"
)

var errBroken = errors.New("responder broken")

func answering(id string) specialist.ResponderFunc {
	return func(_ context.Context, prompt string, _ specialist.SharedContext) (specialist.Answer, error) {
		return specialist.Answer{Text: fmt.Sprintf("%s: %s", id, prompt)}, nil
	}
}

func failing() specialist.ResponderFunc {
	return func(context.Context, string, specialist.SharedContext) (specialist.Answer, error) {
		return specialist.Answer{}, errBroken
	}
}

// setupTestOrchestrator registers "safety" (answers) and "flaky" (fails),
// routes to safety, and coordinates/collaborates over both.
func setupTestOrchestrator(t *testing.T, maxSegment int) *orchestrator.Orchestrator {
	t.Helper()

	reg := specialist.NewRegistry()
	require.NoError(t, reg.Register(specialist.Specialist{ID: "safety", Tags: []string{"helmet"}, Responder: answering("safety")}))
	require.NoError(t, reg.Register(specialist.Specialist{ID: "flaky", Tags: []string{"noise"}, Responder: failing()}))
	reg.Seal()

	set, err := strategy.NewSet(reg,
		strategy.Strategy{Kind: strategy.KindRoute, SpecialistIDs: []string{"safety"}},
		strategy.Strategy{Kind: strategy.KindCoordinate, SpecialistIDs: []string{"safety", "flaky"}},
		strategy.Strategy{Kind: strategy.KindCollaborate, SpecialistIDs: []string{"safety", "flaky"}},
	)
	require.NoError(t, err)

	writer, err := chunk.NewWriter(maxSegment)
	require.NoError(t, err)

	engine := strategy.NewEngine(reg, strategy.Config{Timeout: time.Second}, nil)
	return orchestrator.New(session.NewMemoryStore(), engine, set, writer, nil)
}

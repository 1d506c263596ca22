package strategy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dyluth/warren/pkg/specialist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callLog records which specialists ran and the context each one saw.
type callLog struct {
	mu    sync.Mutex
	calls []string
	seen  map[string]specialist.SharedContext
}

func newCallLog() *callLog {
	return &callLog{seen: make(map[string]specialist.SharedContext)}
}

func (l *callLog) wrap(id string, fn specialist.ResponderFunc) specialist.Responder {
	return specialist.ResponderFunc(func(ctx context.Context, prompt string, shared specialist.SharedContext) (specialist.Answer, error) {
		l.mu.Lock()
		l.calls = append(l.calls, id)
		l.seen[id] = shared.Clone()
		l.mu.Unlock()

		// Responders may scribble on their copy.
		shared["scribble."+id] = "x"
		return fn(ctx, prompt, shared)
	})
}

func (l *callLog) invoked() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) contextOf(id string) specialist.SharedContext {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen[id]
}

func answer(text string) specialist.ResponderFunc {
	return func(ctx context.Context, _ string, _ specialist.SharedContext) (specialist.Answer, error) {
		return specialist.Answer{Text: text}, nil
	}
}

func fail(msg string) specialist.ResponderFunc {
	return func(ctx context.Context, _ string, _ specialist.SharedContext) (specialist.Answer, error) {
		return specialist.Answer{}, errors.New(msg)
	}
}

func blockUntilDone() specialist.ResponderFunc {
	return func(ctx context.Context, _ string, _ specialist.SharedContext) (specialist.Answer, error) {
		<-ctx.Done()
		return specialist.Answer{}, ctx.Err()
	}
}

type testSpecialist struct {
	id   string
	tags []string
	fn   specialist.ResponderFunc
}

func setupTestEngine(t *testing.T, timeout time.Duration, specs ...testSpecialist) (*Engine, *callLog) {
	t.Helper()

	log := newCallLog()
	reg := specialist.NewRegistry()
	for _, s := range specs {
		require.NoError(t, reg.Register(specialist.Specialist{
			ID:        s.id,
			Tags:      s.tags,
			Responder: log.wrap(s.id, s.fn),
		}))
	}
	reg.Seal()

	return NewEngine(reg, Config{Timeout: timeout}, nil), log
}

func TestNewEngine_Defaults(t *testing.T) {
	engine := NewEngine(specialist.NewRegistry(), Config{}, nil)
	assert.Equal(t, DefaultTimeout, engine.Timeout())
	assert.IsType(t, TagOverlapScorer{}, engine.scorer)
}

func TestExecute_InvalidStrategy(t *testing.T) {
	engine, log := setupTestEngine(t, time.Second, testSpecialist{id: "a", fn: answer("a")})

	_, err := engine.Execute(context.Background(), Strategy{Kind: KindRoute, SpecialistIDs: []string{"ghost"}}, "hi", nil)
	require.Error(t, err)
	assert.True(t, specialist.IsUnknown(err))
	assert.Empty(t, log.invoked())
}

func TestRoute_PicksBestTagOverlap(t *testing.T) {
	engine, log := setupTestEngine(t, time.Second,
		testSpecialist{id: "A", tags: []string{"safety", "equipment"}, fn: answer("from A")},
		testSpecialist{id: "B", tags: []string{"legal", "compliance"}, fn: answer("from B")},
		testSpecialist{id: "C", tags: []string{"training"}, fn: answer("from C")},
	)
	st := Strategy{Kind: KindRoute, SpecialistIDs: []string{"A", "B", "C"}}

	for i := 0; i < 10; i++ {
		reply, err := engine.Execute(context.Background(), st, "I have a legal question about our contracts", nil)
		require.NoError(t, err)
		assert.Equal(t, KindRoute, reply.Mode)
		assert.Equal(t, []string{"B"}, reply.SpecialistIDs)
		assert.Equal(t, "from B", reply.Text)
		require.Len(t, reply.Replies, 1)
		assert.Equal(t, "B", reply.Replies[0].SpecialistID)
	}

	for _, id := range log.invoked() {
		assert.Equal(t, "B", id, "route must only invoke the chosen specialist")
	}
}

func TestRoute_TieBreaksOnStrategyOrder(t *testing.T) {
	engine, _ := setupTestEngine(t, time.Second,
		testSpecialist{id: "A", tags: []string{"risk"}, fn: answer("from A")},
		testSpecialist{id: "B", tags: []string{"risk"}, fn: answer("from B")},
	)

	t.Run("equal scores", func(t *testing.T) {
		reply, err := engine.Execute(context.Background(), Strategy{Kind: KindRoute, SpecialistIDs: []string{"B", "A"}}, "assess the risk", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"B"}, reply.SpecialistIDs)
	})

	t.Run("no overlap at all", func(t *testing.T) {
		reply, err := engine.Execute(context.Background(), Strategy{Kind: KindRoute, SpecialistIDs: []string{"A", "B"}}, "hello there", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, reply.SpecialistIDs)
	})
}

func TestRoute_FailureDoesNotFallBack(t *testing.T) {
	engine, log := setupTestEngine(t, time.Second,
		testSpecialist{id: "A", tags: []string{"legal"}, fn: fail("model offline")},
		testSpecialist{id: "B", tags: []string{"training"}, fn: answer("from B")},
	)

	_, err := engine.Execute(context.Background(), Strategy{Kind: KindRoute, SpecialistIDs: []string{"A", "B"}}, "legal advice please", nil)

	var unavailable *SpecialistUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "A", unavailable.SpecialistID)
	assert.EqualError(t, unavailable.Cause, "model offline")
	assert.True(t, IsExecutionError(err))
	assert.Equal(t, []string{"A"}, log.invoked())
}

func TestTagOverlapScorer(t *testing.T) {
	s := &specialist.Specialist{ID: "x", Tags: []string{"risk", "risk assessment", "nr-12"}}

	tests := []struct {
		prompt string
		want   int
	}{
		{"", 0},
		{"What is the RISK here?", 1},
		{"run a risk assessment", 2},
		{"risky assessment", 0},
		{"check NR-12 compliance", 1},
		{"assessment of risk", 1},
	}

	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			assert.Equal(t, tt.want, TagOverlapScorer{}.Score(tt.prompt, s))
		})
	}
}

type fixedScorer map[string]int

func (f fixedScorer) Score(_ string, s *specialist.Specialist) int { return f[s.ID] }

func TestRoute_CustomScorer(t *testing.T) {
	reg := newTestRegistry(t, "a", "b", "c")
	engine := NewEngine(reg, Config{Scorer: fixedScorer{"c": 3, "b": 1}}, nil)

	reply, err := engine.Execute(context.Background(), Strategy{Kind: KindRoute, SpecialistIDs: []string{"a", "b", "c"}}, "anything", nil)
	require.NoError(t, err)
	assert.Equal(t, "reply from c", reply.Text)
}

func TestCoordinate_PartialSuccess(t *testing.T) {
	engine, log := setupTestEngine(t, time.Second,
		testSpecialist{id: "A", fn: answer("  alpha findings \n")},
		testSpecialist{id: "B", fn: fail("boom")},
		testSpecialist{id: "C", fn: answer("gamma findings")},
	)

	reply, err := engine.Execute(context.Background(), Strategy{Kind: KindCoordinate, SpecialistIDs: []string{"C", "B", "A"}}, "review the site", nil)
	require.NoError(t, err)

	assert.Equal(t, KindCoordinate, reply.Mode)
	assert.Equal(t, []string{"A", "B", "C"}, reply.SpecialistIDs)
	assert.Equal(t, []string{"B"}, reply.Failed)
	require.Len(t, reply.Replies, 2)
	assert.Equal(t, "A", reply.Replies[0].SpecialistID)
	assert.Equal(t, "C", reply.Replies[1].SpecialistID)
	assert.Equal(t, "## A\n\nalpha findings\n\n## C\n\ngamma findings\n\n_No response from: B_", reply.Text)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, log.invoked())
}

func TestCoordinate_AllFail(t *testing.T) {
	engine, _ := setupTestEngine(t, time.Second,
		testSpecialist{id: "A", fn: fail("a down")},
		testSpecialist{id: "B", fn: fail("b down")},
		testSpecialist{id: "C", fn: fail("c down")},
	)

	_, err := engine.Execute(context.Background(), Strategy{Kind: KindCoordinate, SpecialistIDs: []string{"A", "B", "C"}}, "hi", nil)

	var allFailed *AllSpecialistsFailedError
	require.ErrorAs(t, err, &allFailed)
	assert.Equal(t, []string{"A", "B", "C"}, allFailed.SpecialistIDs)
	require.Len(t, allFailed.Causes, 3)
	assert.EqualError(t, allFailed.Causes["B"], "b down")
	assert.True(t, IsExecutionError(err))
	assert.Len(t, allFailed.Unwrap(), 3)
}

func TestCoordinate_OrderIndependentOfCompletion(t *testing.T) {
	slow := func(d time.Duration, text string) specialist.ResponderFunc {
		return func(ctx context.Context, _ string, _ specialist.SharedContext) (specialist.Answer, error) {
			select {
			case <-time.After(d):
				return specialist.Answer{Text: text}, nil
			case <-ctx.Done():
				return specialist.Answer{}, ctx.Err()
			}
		}
	}
	engine, _ := setupTestEngine(t, time.Second,
		testSpecialist{id: "first", fn: slow(60*time.Millisecond, "1")},
		testSpecialist{id: "second", fn: slow(0, "2")},
		testSpecialist{id: "third", fn: slow(20*time.Millisecond, "3")},
	)

	reply, err := engine.Execute(context.Background(), Strategy{Kind: KindCoordinate, SpecialistIDs: []string{"third", "second", "first"}}, "go", nil)
	require.NoError(t, err)
	assert.Equal(t, "## first\n\n1\n\n## second\n\n2\n\n## third\n\n3", reply.Text)
}

func TestCoordinate_RunsInParallel(t *testing.T) {
	const members = 3
	var arrived sync.WaitGroup
	arrived.Add(members)
	allIn := make(chan struct{})
	go func() {
		arrived.Wait()
		close(allIn)
	}()

	barrier := func(ctx context.Context, _ string, _ specialist.SharedContext) (specialist.Answer, error) {
		arrived.Done()
		select {
		case <-allIn:
			return specialist.Answer{Text: "ok"}, nil
		case <-ctx.Done():
			return specialist.Answer{}, ctx.Err()
		}
	}

	engine, _ := setupTestEngine(t, 2*time.Second,
		testSpecialist{id: "a", fn: barrier},
		testSpecialist{id: "b", fn: barrier},
		testSpecialist{id: "c", fn: barrier},
	)

	reply, err := engine.Execute(context.Background(), Strategy{Kind: KindCoordinate, SpecialistIDs: []string{"a", "b", "c"}}, "go", nil)
	require.NoError(t, err)
	assert.Empty(t, reply.Failed)
}

func TestCoordinate_EachSpecialistGetsOwnContext(t *testing.T) {
	engine, log := setupTestEngine(t, time.Second,
		testSpecialist{id: "a", fn: answer("a")},
		testSpecialist{id: "b", fn: answer("b")},
	)
	shared := specialist.SharedContext{specialist.ContextUserID: "u1"}

	_, err := engine.Execute(context.Background(), Strategy{Kind: KindCoordinate, SpecialistIDs: []string{"a", "b"}}, "go", shared)
	require.NoError(t, err)

	assert.Equal(t, specialist.SharedContext{specialist.ContextUserID: "u1"}, shared)
	for _, id := range []string{"a", "b"} {
		seen := log.contextOf(id)
		assert.Equal(t, "u1", seen[specialist.ContextUserID])
		assert.NotContains(t, seen, "scribble.a")
		assert.NotContains(t, seen, "scribble.b")
	}
}

func TestCollaborate_ChainBreak(t *testing.T) {
	engine, log := setupTestEngine(t, time.Second,
		testSpecialist{id: "A", fn: answer("draft")},
		testSpecialist{id: "B", fn: fail("refusal")},
		testSpecialist{id: "C", fn: answer("final")},
	)

	_, err := engine.Execute(context.Background(), Strategy{Kind: KindCollaborate, SpecialistIDs: []string{"A", "B", "C"}}, "plan", nil)

	var broken *ChainBrokenAtError
	require.ErrorAs(t, err, &broken)
	assert.Equal(t, "B", broken.SpecialistID)
	assert.Equal(t, 1, broken.Position)
	assert.EqualError(t, broken.Cause, "refusal")
	assert.Equal(t, []string{"A", "B"}, log.invoked())
}

func TestCollaborate_AccumulatesContext(t *testing.T) {
	engine, log := setupTestEngine(t, time.Second,
		testSpecialist{id: "A", fn: answer("first pass")},
		testSpecialist{id: "B", fn: answer("second pass")},
		testSpecialist{id: "C", fn: answer("final answer")},
	)
	shared := specialist.SharedContext{specialist.ContextInteractionCount: "4"}

	reply, err := engine.Execute(context.Background(), Strategy{Kind: KindCollaborate, SpecialistIDs: []string{"C", "A", "B"}}, "plan", shared)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, log.invoked())
	assert.Equal(t, "final answer", reply.Text)
	assert.Equal(t, []string{"A", "B", "C"}, reply.SpecialistIDs)
	assert.Len(t, reply.Replies, 3)

	first := log.contextOf("A")
	assert.Equal(t, "4", first[specialist.ContextInteractionCount])
	assert.NotContains(t, first, specialist.ContextPreviousReply)

	last := log.contextOf("C")
	assert.Equal(t, "first pass", last[specialist.ReplyKey("A")])
	assert.Equal(t, "second pass", last[specialist.ReplyKey("B")])
	assert.Equal(t, "second pass", last[specialist.ContextPreviousReply])
	assert.Equal(t, "B", last[specialist.ContextPreviousSpecialist])
	assert.NotContains(t, last, "scribble.A", "a responder's own edits must not leak downstream")

	assert.Equal(t, specialist.SharedContext{specialist.ContextInteractionCount: "4"}, shared)
}

func TestCollaborate_Synthesize(t *testing.T) {
	engine, _ := setupTestEngine(t, time.Second,
		testSpecialist{id: "epi", fn: answer("Wear gloves and helmet on site.")},
		testSpecialist{id: "risk", fn: answer("Wear gloves, helmet and harness on site.")},
		testSpecialist{id: "legal", fn: answer("Wear gloves, helmet and harness on site.")},
	)

	reply, err := engine.Execute(context.Background(), Strategy{Kind: KindCollaborate, SpecialistIDs: []string{"epi", "risk", "legal"}, Synthesize: true}, "what do workers need?", nil)
	require.NoError(t, err)

	assert.Contains(t, reply.Text, "## epi\n\nWear gloves and helmet on site.")
	assert.Contains(t, reply.Text, "## legal\n\n")
	assert.Contains(t, reply.Text, "### Points of difference")
	assert.Contains(t, reply.Text, "- epi -> risk: added: harness")
	assert.Contains(t, reply.Text, "- risk -> legal: no keyword changes")
}

func TestSynthesizeConsensus_CapsKeywords(t *testing.T) {
	replies := []specialist.Reply{
		{SpecialistID: "a", Text: "alpha"},
		{SpecialistID: "b", Text: "one1 two2 three3 four4 five5 six6 seven7 eight8 nine9 ten10"},
	}

	text := synthesizeConsensus(replies)
	assert.Contains(t, text, "and 2 more; dropped: alpha")
}

func TestSynthesizeConsensus_SingleReplyHasNoDifferences(t *testing.T) {
	text := synthesizeConsensus([]specialist.Reply{{SpecialistID: "solo", Text: "only voice"}})
	assert.Equal(t, "## solo\n\nonly voice", text)
}

func TestInvoke_Timeout(t *testing.T) {
	engine, _ := setupTestEngine(t, 30*time.Millisecond,
		testSpecialist{id: "slow", tags: []string{"legal"}, fn: blockUntilDone()},
		testSpecialist{id: "fast", fn: answer("quick")},
	)

	t.Run("route reports unavailable with timeout cause", func(t *testing.T) {
		_, err := engine.Execute(context.Background(), Strategy{Kind: KindRoute, SpecialistIDs: []string{"slow", "fast"}}, "legal", nil)

		var unavailable *SpecialistUnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.True(t, IsTimeout(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		var timeout *TimeoutError
		require.ErrorAs(t, err, &timeout)
		assert.Equal(t, "slow", timeout.SpecialistID)
		assert.Equal(t, 30*time.Millisecond, timeout.After)
	})

	t.Run("coordinate degrades", func(t *testing.T) {
		reply, err := engine.Execute(context.Background(), Strategy{Kind: KindCoordinate, SpecialistIDs: []string{"slow", "fast"}}, "go", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"slow"}, reply.Failed)
	})

	t.Run("collaborate breaks", func(t *testing.T) {
		_, err := engine.Execute(context.Background(), Strategy{Kind: KindCollaborate, SpecialistIDs: []string{"slow", "fast"}}, "go", nil)

		var broken *ChainBrokenAtError
		require.ErrorAs(t, err, &broken)
		assert.Equal(t, "slow", broken.SpecialistID)
		assert.True(t, IsTimeout(err))
	})
}

func TestInvoke_ResponderIgnoringContext(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	stubborn := func(ctx context.Context, _ string, _ specialist.SharedContext) (specialist.Answer, error) {
		<-release
		return specialist.Answer{Text: "too late"}, nil
	}
	engine, _ := setupTestEngine(t, 20*time.Millisecond, testSpecialist{id: "stubborn", fn: stubborn})

	start := time.Now()
	_, err := engine.Execute(context.Background(), Strategy{Kind: KindRoute, SpecialistIDs: []string{"stubborn"}}, "go", nil)
	assert.True(t, IsTimeout(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestInvoke_PanicIsFailure(t *testing.T) {
	engine, _ := setupTestEngine(t, time.Second,
		testSpecialist{id: "bad", fn: func(context.Context, string, specialist.SharedContext) (specialist.Answer, error) {
			panic("nil map")
		}},
		testSpecialist{id: "good", fn: answer("fine")},
	)

	reply, err := engine.Execute(context.Background(), Strategy{Kind: KindCoordinate, SpecialistIDs: []string{"bad", "good"}}, "go", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"bad"}, reply.Failed)
}

func TestExecute_CallerCancellation(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			engine, _ := setupTestEngine(t, 5*time.Second,
				testSpecialist{id: "a", fn: blockUntilDone()},
				testSpecialist{id: "b", fn: blockUntilDone()},
			)

			ctx, cancel := context.WithCancel(context.Background())
			time.AfterFunc(20*time.Millisecond, cancel)

			_, err := engine.Execute(ctx, Strategy{Kind: kind, SpecialistIDs: []string{"a", "b"}}, "go", nil)
			assert.ErrorIs(t, err, context.Canceled)
			assert.False(t, IsExecutionError(err), fmt.Sprintf("cancellation must not masquerade as %T", err))
		})
	}
}

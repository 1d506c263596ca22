package strategy

import (
	"context"
	"strings"

	"github.com/dyluth/warren/pkg/specialist"
	"go.uber.org/zap"
)

// Scorer rates how well a specialist matches a prompt. Higher is better.
// Supply a richer classifier through Config.Scorer; TagOverlapScorer is the
// fallback.
type Scorer interface {
	Score(prompt string, s *specialist.Specialist) int
}

// TagOverlapScorer counts the specialist's capability tags that appear in the
// prompt. Single-word tags must match a whole token; multi-word tags must
// appear as a contiguous phrase.
type TagOverlapScorer struct{}

// Score implements Scorer.
func (TagOverlapScorer) Score(prompt string, s *specialist.Specialist) int {
	tokens := tokenize(prompt)
	tokenSet := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		tokenSet[tok] = true
	}
	phrase := " " + strings.Join(tokens, " ") + " "

	score := 0
	for _, tag := range s.Tags {
		tagTokens := tokenize(tag)
		switch len(tagTokens) {
		case 0:
			continue
		case 1:
			if tokenSet[tagTokens[0]] {
				score++
			}
		default:
			if strings.Contains(phrase, " "+strings.Join(tagTokens, " ")+" ") {
				score++
			}
		}
	}
	return score
}

// route invokes the single best-scoring specialist. Ties go to whichever
// specialist the strategy lists first.
func (e *Engine) route(ctx context.Context, st Strategy, prompt string, shared specialist.SharedContext) (*AggregatedReply, error) {
	candidates, err := e.resolve(st)
	if err != nil {
		return nil, err
	}

	chosen, score := e.selectSpecialist(prompt, candidates)

	e.logEvent("route_selected",
		zap.String("specialist_id", chosen.ID),
		zap.Int("score", score),
		zap.Int("candidates", len(candidates)),
	)

	reply, err := e.invoke(ctx, chosen, prompt, shared.Clone())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &SpecialistUnavailableError{SpecialistID: chosen.ID, Cause: err}
	}

	return &AggregatedReply{
		Mode:          KindRoute,
		SpecialistIDs: []string{chosen.ID},
		Text:          reply.Text,
		Replies:       []specialist.Reply{reply},
	}, nil
}

// selectSpecialist returns the highest scoring candidate and its score.
// candidates must be non-empty.
func (e *Engine) selectSpecialist(prompt string, candidates []*specialist.Specialist) (*specialist.Specialist, int) {
	best := candidates[0]
	bestScore := e.scorer.Score(prompt, best)
	for _, c := range candidates[1:] {
		if score := e.scorer.Score(prompt, c); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, bestScore
}

package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/warren/pkg/specialist"
	"go.uber.org/zap"
)

// maxDiffKeywords caps each added/dropped list in the points of difference.
const maxDiffKeywords = 8

// collaborate chains specialists in registry order. Specialist N sees the
// replies of 1..N-1 in its shared context. A failure anywhere breaks the chain.
func (e *Engine) collaborate(ctx context.Context, st Strategy, prompt string, shared specialist.SharedContext) (*AggregatedReply, error) {
	members, err := e.resolveInRegistryOrder(st)
	if err != nil {
		return nil, err
	}

	accumulated := shared.Clone()
	replies := make([]specialist.Reply, 0, len(members))

	for pos, m := range members {
		reply, err := e.invoke(ctx, m, prompt, accumulated.Clone())
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			e.logEvent("chain_broken",
				zap.String("specialist_id", m.ID),
				zap.Int("position", pos),
				zap.Int("skipped", len(members)-pos-1),
			)
			return nil, &ChainBrokenAtError{SpecialistID: m.ID, Position: pos, Cause: err}
		}

		replies = append(replies, reply)
		accumulated[specialist.ReplyKey(m.ID)] = reply.Text
		accumulated[specialist.ContextPreviousReply] = reply.Text
		accumulated[specialist.ContextPreviousSpecialist] = m.ID
	}

	text := replies[len(replies)-1].Text
	if st.Synthesize {
		text = synthesizeConsensus(replies)
	}

	return &AggregatedReply{
		Mode:          KindCollaborate,
		SpecialistIDs: ids(members),
		Text:          text,
		Replies:       replies,
	}, nil
}

// synthesizeConsensus renders every reply as a section and appends the
// keyword changes between each successive pair.
func synthesizeConsensus(replies []specialist.Reply) string {
	var b strings.Builder
	b.WriteString(synthesizeSections(replies, nil))

	if len(replies) < 2 {
		return b.String()
	}

	b.WriteString("\n\n### Points of difference\n")
	prev := keywordSet(replies[0].Text)
	for i := 1; i < len(replies); i++ {
		next := keywordSet(replies[i].Text)
		added, dropped := keywordDiff(prev, next)

		fmt.Fprintf(&b, "\n- %s -> %s: ", replies[i-1].SpecialistID, replies[i].SpecialistID)
		if len(added) == 0 && len(dropped) == 0 {
			b.WriteString("no keyword changes")
		} else {
			var parts []string
			if len(added) > 0 {
				parts = append(parts, "added: "+capKeywords(added))
			}
			if len(dropped) > 0 {
				parts = append(parts, "dropped: "+capKeywords(dropped))
			}
			b.WriteString(strings.Join(parts, "; "))
		}
		prev = next
	}
	return b.String()
}

func capKeywords(words []string) string {
	if len(words) <= maxDiffKeywords {
		return strings.Join(words, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(words[:maxDiffKeywords], ", "), len(words)-maxDiffKeywords)
}

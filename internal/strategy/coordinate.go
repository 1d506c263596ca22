package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/warren/pkg/specialist"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// coordinate fans the prompt out to every eligible specialist in parallel and
// merges the successful replies into one sectioned report, laid out in
// registry order once every invocation has finished.
func (e *Engine) coordinate(ctx context.Context, st Strategy, prompt string, shared specialist.SharedContext) (*AggregatedReply, error) {
	members, err := e.resolveInRegistryOrder(st)
	if err != nil {
		return nil, err
	}

	replies := make([]*specialist.Reply, len(members))
	failures := make([]error, len(members))
	views := make([]specialist.SharedContext, len(members))
	for i := range members {
		views[i] = shared.Clone()
	}

	// Goroutines never return an error so one failure cannot cancel the rest.
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range members {
		g.Go(func() error {
			reply, err := e.invoke(gctx, m, prompt, views[i])
			if err != nil {
				failures[i] = err
				return nil
			}
			replies[i] = &reply
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		succeeded []specialist.Reply
		failed    []string
		causes    = make(map[string]error)
	)
	for i, m := range members {
		if replies[i] != nil {
			succeeded = append(succeeded, *replies[i])
			continue
		}
		failed = append(failed, m.ID)
		causes[m.ID] = failures[i]
	}

	if len(succeeded) == 0 {
		return nil, &AllSpecialistsFailedError{SpecialistIDs: failed, Causes: causes}
	}

	if len(failed) > 0 {
		e.logEvent("coordinate_degraded",
			zap.Strings("failed", failed),
			zap.Int("succeeded", len(succeeded)),
		)
	}

	return &AggregatedReply{
		Mode:          KindCoordinate,
		SpecialistIDs: ids(members),
		Text:          synthesizeSections(succeeded, failed),
		Failed:        failed,
		Replies:       succeeded,
	}, nil
}

// synthesizeSections renders one "## <id>" section per reply, followed by a
// note naming every specialist that did not respond.
func synthesizeSections(replies []specialist.Reply, failed []string) string {
	var b strings.Builder
	for i, r := range replies {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s\n\n%s", r.SpecialistID, strings.TrimSpace(r.Text))
	}
	if len(failed) > 0 {
		fmt.Fprintf(&b, "\n\n_No response from: %s_", strings.Join(failed, ", "))
	}
	return b.String()
}

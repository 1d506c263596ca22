package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dyluth/warren/internal/orchestrator"
	"github.com/dyluth/warren/internal/session"
	"github.com/dyluth/warren/internal/strategy"
)

// strategyInfo is the user-facing description of each mode.
var strategyInfo = map[strategy.Kind]struct {
	title string
	blurb string
}{
	strategy.KindRoute: {
		title: "Quick",
		blurb: "Sends your question to the single best-matching specialist. Best for direct, specific questions.",
	},
	strategy.KindCoordinate: {
		title: "Comprehensive",
		blurb: "Consults every specialist in parallel and merges their answers into one structured report.",
	},
	strategy.KindCollaborate: {
		title: "Research",
		blurb: "Specialists work in turn, each refining the previous answers. Best for complex topics.",
	},
}

// StrategyTitle returns the display name of kind, e.g. "Quick (route)".
func StrategyTitle(kind strategy.Kind) string {
	info, ok := strategyInfo[kind]
	if !ok {
		return string(kind)
	}
	return fmt.Sprintf("%s (%s)", info.title, kind)
}

// GreetingText welcomes a user and lists the strategies.
func GreetingText(sess *session.Session, strategies []strategy.Strategy) string {
	var b strings.Builder
	b.WriteString("Welcome to warren!\n\n")
	b.WriteString("Your questions are answered by a team of specialists. Choose how they work together:\n")
	writeStrategies(&b, strategies)
	fmt.Fprintf(&b, "\nActive strategy: %s\n", StrategyTitle(sess.ActiveStrategy))
	b.WriteString("Use /switch <route|coordinate|collaborate> to change it, or /help for more commands.")
	return b.String()
}

// HelpText lists the commands and strategies.
func HelpText(strategies []strategy.Strategy) string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	b.WriteString("  /start - start a session and show the introduction\n")
	b.WriteString("  /switch <strategy> - change strategy (alias /teams)\n")
	b.WriteString("  /status - show your active strategy and interaction count\n")
	b.WriteString("  /help - show this message\n")
	b.WriteString("\nStrategies:\n")
	writeStrategies(&b, strategies)
	b.WriteString("\nAnything else you type is sent to the specialists.")
	return b.String()
}

// StrategiesText answers a bare /switch with the available choices.
func StrategiesText(active strategy.Kind, strategies []strategy.Strategy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Active strategy: %s\n\nAvailable strategies:\n", StrategyTitle(active))
	writeStrategies(&b, strategies)
	b.WriteString("\nSend /switch <route|coordinate|collaborate> to change.")
	return b.String()
}

// SwitchedText confirms a strategy change.
func SwitchedText(kind strategy.Kind) string {
	return fmt.Sprintf("Strategy changed to %s. Ask your question and the team will take it from here.", StrategyTitle(kind))
}

// StatusText reports a user's session.
func StatusText(st *orchestrator.Status) string {
	var b strings.Builder
	b.WriteString("Status\n\n")
	fmt.Fprintf(&b, "Active strategy: %s\n", StrategyTitle(st.ActiveStrategy))
	fmt.Fprintf(&b, "Interactions: %d\n", st.InteractionCount)
	fmt.Fprintf(&b, "Specialists: %s", strings.Join(st.Specialists, ", "))
	return b.String()
}

func writeStrategies(b *strings.Builder, strategies []strategy.Strategy) {
	for _, st := range strategies {
		info := strategyInfo[st.Kind]
		fmt.Fprintf(b, "\n- %s: %s\n  Specialists: %s\n", StrategyTitle(st.Kind), info.blurb, strings.Join(st.SpecialistIDs, ", "))
	}
}

// Describe words an error for the person who sent the request.
func Describe(err error) string {
	var (
		unknown     *strategy.UnknownStrategyError
		unavailable *strategy.SpecialistUnavailableError
		allFailed   *strategy.AllSpecialistsFailedError
		chainBroken *strategy.ChainBrokenAtError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &unknown):
		return fmt.Sprintf("Unknown strategy %q. Choose one of: route, coordinate, collaborate.", unknown.Tag)
	case errors.As(err, &unavailable):
		if strategy.IsTimeout(err) {
			return fmt.Sprintf("The %s specialist did not answer in time. Try again, or use /switch coordinate to consult several specialists.", unavailable.SpecialistID)
		}
		return fmt.Sprintf("The %s specialist is unavailable right now. Try again, or use /switch coordinate to consult several specialists.", unavailable.SpecialistID)
	case errors.As(err, &allFailed):
		return "None of the specialists could answer right now. Please try again later."
	case errors.As(err, &chainBroken):
		return fmt.Sprintf("The collaboration stopped at %s, so no consensus was reached. Try again, or use /switch route for a direct answer.", chainBroken.SpecialistID)
	case errors.Is(err, orchestrator.ErrEmptyMessage):
		return "Send a question to get started."
	case errors.Is(err, session.ErrEmptyUserID):
		return "Could not identify who sent this message."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request was cancelled before an answer was ready."
	default:
		return "Something went wrong while handling your message. Please try again."
	}
}

// Package channel adapts the orchestrator to chat front ends: it parses the
// command surface, words replies and errors for people, and delivers
// segments in order.
package channel

import "strings"

// CommandKind identifies what a line of user input asks for.
type CommandKind string

const (
	CommandMessage CommandKind = "message" // anything that is not a command
	CommandStart   CommandKind = "start"
	CommandSwitch  CommandKind = "switch"
	CommandStatus  CommandKind = "status"
	CommandHelp    CommandKind = "help"
	CommandUnknown CommandKind = "unknown" // looks like a command but is not one
)

// Command is parsed user input.
type Command struct {
	Kind CommandKind
	Name string // command word without slash or bot suffix; empty for messages
	Arg  string // first argument, e.g. the strategy tag for switch
	Text string // original input, trimmed
}

var commandAliases = map[string]CommandKind{
	"start":    CommandStart,
	"switch":   CommandSwitch,
	"teams":    CommandSwitch,
	"strategy": CommandSwitch,
	"status":   CommandStatus,
	"help":     CommandHelp,
}

// Parse classifies a line of input. Commands start with "/" and may carry a
// chat-platform suffix ("/status@warrenbot").
func Parse(input string) Command {
	text := strings.TrimSpace(input)
	cmd := Command{Kind: CommandMessage, Text: text}

	if !strings.HasPrefix(text, "/") || len(text) == 1 {
		return cmd
	}

	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return cmd
	}

	name := strings.ToLower(fields[0])
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	cmd.Name = name
	if len(fields) > 1 {
		cmd.Arg = fields[1]
	}

	kind, ok := commandAliases[name]
	if !ok {
		cmd.Kind = CommandUnknown
		return cmd
	}
	cmd.Kind = kind
	return cmd
}

// Package printer renders human-facing CLI output.
package printer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
	bold   = color.New(color.Bold)
)

// Printer writes styled output. The zero value is not usable; use New or
// Default.
type Printer struct {
	out io.Writer
	err io.Writer
}

// New creates a printer writing regular output to out and errors to errOut.
func New(out, errOut io.Writer) *Printer {
	return &Printer{out: out, err: errOut}
}

// Default writes to the process's stdout and stderr.
var Default = New(os.Stdout, os.Stderr)

// Success prints a success message in green with a checkmark prefix
func (p *Printer) Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprint(p.out, msg)
}

// Info prints an informational message in the default color
func (p *Printer) Info(format string, a ...any) {
	fmt.Fprintf(p.out, format, a...)
}

// Warning prints a warning message in yellow with a warning emoji prefix
func (p *Printer) Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		msg = "⚠️  " + msg
	}
	yellow.Fprint(p.out, msg)
}

// Step prints a step message with emphasis
func (p *Printer) Step(format string, a ...any) {
	cyan.Fprintf(p.out, "→ %s", fmt.Sprintf(format, a...))
}

// Heading prints a bold line, used for section titles in status output
func (p *Printer) Heading(format string, a ...any) {
	bold.Fprintf(p.out, "%s\n", fmt.Sprintf(format, a...))
}

// Note prints de-emphasised text such as continuation markers
func (p *Printer) Note(format string, a ...any) {
	faint.Fprintf(p.out, format, a...)
}

// Error prints a formatted error with title, explanation, and suggestions
// to the error stream and returns a simple error for Cobra
func (p *Printer) Error(title string, explanation string, suggestions []string) error {
	return p.ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error with key/value details between the explanation
// and the suggestions
func (p *Printer) ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(p.err, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(p.err, "%s\n", explanation)
	}

	if len(context) > 0 {
		fmt.Fprintf(p.err, "\n")
		for _, key := range sortedKeys(context) {
			fmt.Fprintf(p.err, "  %s: %s\n", key, context[key])
		}
	}

	if len(suggestions) > 0 {
		fmt.Fprintf(p.err, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(p.err, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(p.err, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(p.err, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	// Return simple error for Cobra (won't be printed due to SilenceErrors)
	return fmt.Errorf("%s", title)
}

// Success prints to Default.
func Success(format string, a ...any) { Default.Success(format, a...) }

// Info prints to Default.
func Info(format string, a ...any) { Default.Info(format, a...) }

// Warning prints to Default.
func Warning(format string, a ...any) { Default.Warning(format, a...) }

// Step prints to Default.
func Step(format string, a ...any) { Default.Step(format, a...) }

// Error prints to Default.
func Error(title string, explanation string, suggestions []string) error {
	return Default.Error(title, explanation, suggestions)
}

// ErrorWithContext prints to Default.
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	return Default.ErrorWithContext(title, explanation, context, suggestions)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dyluth/warren/internal/printer"
)

// Console is the interactive terminal front end used by `warren chat`.
type Console struct {
	dispatcher *Dispatcher
	in         io.Reader
	out        *printer.Printer
	userID     string
	retry      RetryPolicy
}

// NewConsole creates a console session for userID reading from in.
func NewConsole(d *Dispatcher, in io.Reader, out *printer.Printer, userID string) *Console {
	return &Console{
		dispatcher: d,
		in:         in,
		out:        out,
		userID:     userID,
		retry:      RetryPolicy{Attempts: 1},
	}
}

// Run greets the user and answers lines until EOF, /quit, or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	if err := c.respond(ctx, "/start"); err != nil {
		return err
	}

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		c.out.Info("\n> ")
		if !scanner.Scan() {
			c.out.Info("\n")
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			c.out.Info("Bye.\n")
			return nil
		}

		if Parse(line).Kind == CommandMessage {
			c.out.Step("consulting specialists...\n")
		}
		if err := c.respond(ctx, line); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Console) respond(ctx context.Context, line string) error {
	reply := c.dispatcher.Dispatch(ctx, c.userID, line)

	sink := SinkFunc(func(_ context.Context, text string) error {
		if reply.Err != nil {
			c.out.Warning("%s\n", text)
			return nil
		}
		c.out.Info("%s\n", text)
		return nil
	})

	if err := Deliver(ctx, sink, reply.Segments, c.retry); err != nil {
		return fmt.Errorf("failed to print reply: %w", err)
	}
	return nil
}

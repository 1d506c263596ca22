package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dyluth/warren/pkg/specialist"
	"go.uber.org/zap"
)

// stderrExcerpt bounds how much stderr is quoted in errors.
const stderrExcerpt = 500

// waitDelay bounds how long Wait blocks on pipes held open by grandchildren
// after the process itself was killed.
const waitDelay = time.Second

// Command runs an external process per invocation. The process receives an
// Input document on stdin and must print an Output document on stdout.
//
// The process is:
//   - Killed when ctx is done (the engine bounds every call with a timeout)
//   - Run with the parent environment plus Env
//   - Output captured with MaxOutputBytes limit on stdout and stderr
type Command struct {
	SpecialistID   string
	Argv           []string
	Env            []string // KEY=VALUE
	Dir            string
	MaxOutputBytes int
	Logger         *zap.Logger
}

// ExitError reports a responder process that exited non-zero.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("responder exited with code %d", e.Code)
	}
	return fmt.Sprintf("responder exited with code %d: %s", e.Code, e.Stderr)
}

// ErrOutputTooLarge is returned when stdout or stderr hits MaxOutputBytes.
var ErrOutputTooLarge = errors.New("responder output exceeded limit")

// Respond implements specialist.Responder.
func (c *Command) Respond(ctx context.Context, prompt string, shared specialist.SharedContext) (specialist.Answer, error) {
	if len(c.Argv) == 0 {
		return specialist.Answer{}, fmt.Errorf("command array is empty")
	}

	inputJSON, err := json.Marshal(Input{
		SpecialistID:  c.SpecialistID,
		Prompt:        prompt,
		SharedContext: shared,
	})
	if err != nil {
		return specialist.Answer{}, fmt.Errorf("failed to marshal responder input: %w", err)
	}

	stdout, stderr, err := c.run(ctx, inputJSON)
	if err != nil {
		return specialist.Answer{}, err
	}

	output, err := parseOutput(stdout)
	if err != nil {
		c.logger().Warn("responder produced invalid output",
			zap.String("specialist_id", c.SpecialistID),
			zap.String("stderr", truncate(stderr, stderrExcerpt)),
			zap.Error(err),
		)
		return specialist.Answer{}, fmt.Errorf("invalid responder output: %w", err)
	}

	return specialist.Answer{Text: output.Text, Confidence: output.Confidence}, nil
}

// run executes the process and returns its captured stdout and stderr.
func (c *Command) run(ctx context.Context, inputJSON []byte) (string, string, error) {
	limit := c.MaxOutputBytes
	if limit <= 0 {
		limit = 1 << 20
	}

	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.WaitDelay = waitDelay

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return "", "", fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	stdoutBuf := &bytes.Buffer{}
	stderrBuf := &bytes.Buffer{}
	cmd.Stdout = &limitedWriter{w: stdoutBuf, limit: limit}
	cmd.Stderr = &limitedWriter{w: stderrBuf, limit: limit}

	if err := cmd.Start(); err != nil {
		return "", "", fmt.Errorf("failed to start process: %w", err)
	}

	// Write input JSON to stdin and close pipe
	go func() {
		defer stdinPipe.Close()
		if _, err := stdinPipe.Write(inputJSON); err != nil && !errors.Is(err, os.ErrClosed) {
			c.logger().Debug("failed to write responder stdin",
				zap.String("specialist_id", c.SpecialistID),
				zap.Error(err),
			)
		}
	}()

	err = cmd.Wait()

	stdout := stdoutBuf.String()
	stderr := stderrBuf.String()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return stdout, stderr, ctxErr
	}

	if stdoutBuf.Len() >= limit || stderrBuf.Len() >= limit {
		return stdout, stderr, fmt.Errorf("%w (%d bytes)", ErrOutputTooLarge, limit)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout, stderr, &ExitError{Code: exitErr.ExitCode(), Stderr: truncate(strings.TrimSpace(stderr), stderrExcerpt)}
		}
		return stdout, stderr, err
	}

	return stdout, stderr, nil
}

func (c *Command) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// parseOutput unmarshals and validates the responder's stdout JSON.
func parseOutput(stdout string) (*Output, error) {
	if strings.TrimSpace(stdout) == "" {
		return nil, fmt.Errorf("responder produced no output on stdout")
	}

	dec := json.NewDecoder(strings.NewReader(stdout))

	var output Output
	if err := dec.Decode(&output); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("expected exactly one JSON object on stdout")
	}

	if err := output.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &output, nil
}

// limitedWriter wraps a writer and enforces a size limit.
// Once the limit is reached, further writes are discarded.
type limitedWriter struct {
	w       io.Writer
	limit   int
	written int
}

func (lw *limitedWriter) Write(p []byte) (n int, err error) {
	remaining := lw.limit - lw.written
	if remaining <= 0 {
		return len(p), nil
	}

	toWrite := p
	if len(p) > remaining {
		toWrite = p[:remaining]
	}

	n, err = lw.w.Write(toWrite)
	lw.written += n
	return len(p), err
}

// truncate limits a string to maxLen bytes, appending "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Package runner executes deployment commands locally or over SSH. Commands
// are built structurally and serialized to a shell line only at the execution
// boundary, so local and remote execution share one call site.
package runner

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Cmd is one command invocation. Stdin and Stdout are optional streams;
// when Stdout is nil the output is captured into Result.Stdout.
type Cmd struct {
	Program string
	Args    []string
	WorkDir string
	Stdin   io.Reader
	Stdout  io.Writer
}

// New builds a Cmd for program with args.
func New(program string, args ...string) Cmd {
	return Cmd{Program: program, Args: args}
}

// String renders the command as a shell line. Used for remote execution and
// error messages; local execution never goes through a shell.
func (c Cmd) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quote(c.Program))
	for _, a := range c.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n\"'\\$&|;<>(){}[]*?~#") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Result carries what the command produced.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes a Cmd to completion. A non-zero exit is reported through
// Result, not the error; the error is reserved for failures to execute at all.
type Runner interface {
	Run(ctx context.Context, c Cmd) (Result, error)
}

// Output runs c and returns its stdout, turning a non-zero exit into an error
// carrying the command line and stderr.
func Output(ctx context.Context, r Runner, c Cmd) (string, error) {
	res, err := r.Run(ctx, c)
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.String(), err)
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = strings.TrimSpace(res.Stdout)
		}
		return "", fmt.Errorf("%s failed (exit %d): %s", c.String(), res.ExitCode, msg)
	}
	return res.Stdout, nil
}

// ToolMissingError reports an external tool that is required but not on PATH.
type ToolMissingError struct {
	Tool string
}

func (e *ToolMissingError) Error() string {
	return fmt.Sprintf("cannot find tool %q, please install it and re-run", e.Tool)
}

// EnsureTool proactively checks that tool is available before it is needed.
func EnsureTool(ctx context.Context, r Runner, tool string) error {
	res, err := r.Run(ctx, New("which", tool))
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return &ToolMissingError{Tool: tool}
	}
	return nil
}

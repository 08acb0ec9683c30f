package tool

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
)

// tailBytes bounds how much stderr ends up in error messages.
const tailBytes = 2048

// Command describes one external solver invocation.
type Command struct {
	Name    string            // binary to run, e.g. "gmsh"
	Args    []string          // arguments, in order
	Dir     string            // working directory ("" inherits)
	Env     map[string]string // extra environment entries
	Timeout time.Duration     // kills the process when exceeded (0 = none)
	Logger  func(string, ...any)
}

// Output captures what a finished process left behind.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Available reports whether the binary is on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Run executes the command and waits for it. The returned Output is valid
// even when err is set, so callers can log partial stdout from a failed
// solver.
func Run(ctx context.Context, c Command) (Output, error) {
	if c.Name == "" {
		return Output{}, errors.New(errors.ErrCodeInvalidConfig, "command names no binary")
	}
	log := c.Logger
	if log == nil {
		log = func(string, ...any) {}
	}

	if _, err := exec.LookPath(c.Name); err != nil {
		return Output{}, errors.Wrap(errors.ErrCodeTool, err, "%s not found in PATH", c.Name)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		env := os.Environ()
		for k, v := range c.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log("running %s %s", c.Name, strings.Join(c.Args, " "))
	start := time.Now()
	err := cmd.Run()

	out := Output{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case err == nil:
		return out, nil
	case ctx.Err() == context.DeadlineExceeded:
		return out, errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "%s timed out after %s", c.Name, c.Timeout)
	case ctx.Err() == context.Canceled:
		return out, errors.Wrap(errors.ErrCodeTool, ctx.Err(), "%s cancelled", c.Name)
	default:
		return out, errors.Wrap(errors.ErrCodeTool, err,
			"%s exited with status %d: %s", c.Name, out.ExitCode, stderrTail(out.Stderr))
	}
}

func stderrTail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > tailBytes {
		s = "..." + s[len(s)-tailBytes:]
	}
	if s == "" {
		s = "(no stderr)"
	}
	return s
}

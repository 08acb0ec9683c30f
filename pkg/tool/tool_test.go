package tool

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
)

func requireSh(t *testing.T) {
	t.Helper()
	if !Available("sh") {
		t.Skip("sh not available")
	}
}

func TestRun(t *testing.T) {
	requireSh(t)
	out, err := Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo solving; echo progress >&2"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := strings.TrimSpace(string(out.Stdout)); got != "solving" {
		t.Errorf("Stdout = %q, want %q", got, "solving")
	}
	if !strings.Contains(string(out.Stderr), "progress") {
		t.Errorf("Stderr = %q, want it to contain %q", out.Stderr, "progress")
	}
	if out.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", out.ExitCode)
	}
	if out.Duration <= 0 {
		t.Errorf("Duration = %v, want > 0", out.Duration)
	}
}

func TestRunExitStatus(t *testing.T) {
	requireSh(t)
	out, err := Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo mesh failed >&2; exit 3"},
	})
	if !errors.Is(err, errors.ErrCodeTool) {
		t.Fatalf("Run() error = %v, want code %s", err, errors.ErrCodeTool)
	}
	if out.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", out.ExitCode)
	}
	for _, want := range []string{"status 3", "mesh failed"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestRunMissingBinary(t *testing.T) {
	_, err := Run(context.Background(), Command{Name: "gplugins-no-such-solver"})
	if !errors.Is(err, errors.ErrCodeTool) {
		t.Fatalf("Run() error = %v, want code %s", err, errors.ErrCodeTool)
	}
	if !strings.Contains(err.Error(), "not found in PATH") {
		t.Errorf("error %q missing PATH hint", err)
	}
}

func TestRunNoName(t *testing.T) {
	if _, err := Run(context.Background(), Command{}); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Run() error = %v, want code %s", err, errors.ErrCodeInvalidConfig)
	}
}

func TestRunTimeout(t *testing.T) {
	requireSh(t)
	_, err := Run(context.Background(), Command{
		Name:    "sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 50 * time.Millisecond,
	})
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Errorf("Run() error = %v, want code %s", err, errors.ErrCodeTimeout)
	}
}

func TestRunDirAndEnv(t *testing.T) {
	requireSh(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "model.geo"), nil, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	out, err := Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "ls; printf %s \"$GPLUGINS_THREADS\" >&2"},
		Dir:  dir,
		Env:  map[string]string{"GPLUGINS_THREADS": "8"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(string(out.Stdout), "model.geo") {
		t.Errorf("Stdout = %q, want it to list model.geo", out.Stdout)
	}
	if got := string(out.Stderr); got != "8" {
		t.Errorf("Stderr = %q, want %q", got, "8")
	}
}

func TestAvailable(t *testing.T) {
	if Available("gplugins-no-such-solver") {
		t.Error("Available() = true for a missing binary")
	}
}

func TestStderrTail(t *testing.T) {
	long := strings.Repeat("x", tailBytes+100) + "END"
	got := stderrTail([]byte(long))
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "END") {
		t.Errorf("stderrTail() = %.20q..., want truncated tail keeping the end", got)
	}
	if got := stderrTail(nil); got != "(no stderr)" {
		t.Errorf("stderrTail(nil) = %q", got)
	}
}

package farm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gdsfactory/gplugins-go/pkg/cloud"
	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/fdtd"
	"github.com/gdsfactory/gplugins-go/pkg/pipeline"
	"github.com/gdsfactory/gplugins-go/pkg/sparam"
	"github.com/gdsfactory/gplugins-go/pkg/tool"
)

func testSpec() *fdtd.Spec {
	return &fdtd.Spec{
		Component:   "straight",
		Wavelengths: fdtd.Band{Start: 1.5, Stop: 1.6, Points: 3},
	}
}

// analyticRunner pretends to solve: a flat 90% transmission line over the
// spec's wavelength band.
func analyticRunner(ctx context.Context, spec *fdtd.Spec) (*sparam.Matrix, error) {
	band := spec.Wavelengths
	wls := make([]float64, band.Points)
	step := (band.Stop - band.Start) / float64(band.Points-1)
	for i := range wls {
		wls[i] = band.Start + float64(i)*step
	}
	m, err := sparam.New(wls, []string{"o1", "o2"})
	if err != nil {
		return nil, err
	}
	thru := make([]complex128, len(wls))
	for i := range thru {
		thru[i] = 0.9
	}
	if err := m.Set("o2", "o1", thru); err != nil {
		return nil, err
	}
	if err := m.Set("o1", "o2", thru); err != nil {
		return nil, err
	}
	return m, nil
}

// startFarm brings up a server with running workers behind httptest and
// returns a cloud client pointed at it.
func startFarm(t *testing.T, opts Options) (*Server, *cloud.Client) {
	t.Helper()
	s, err := NewServer(opts)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.StartWorkers(ctx)
	srv := httptest.NewServer(s)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		s.Wait()
	})

	c, err := cloud.NewClient(srv.URL, cloud.Options{
		Retry: cloud.RetryPolicy{Attempts: 1, Delay: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("cloud.NewClient() error = %v", err)
	}
	return s, c
}

func TestNewServerNeedsRunner(t *testing.T) {
	if _, err := NewServer(Options{}); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("NewServer() error = %v, want code %s", err, errors.ErrCodeInvalidConfig)
	}
}

func TestSubmitPollResult(t *testing.T) {
	_, c := startFarm(t, Options{Runner: analyticRunner})

	ctx := context.Background()
	id, err := c.Submit(ctx, testSpec())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	task, err := c.WaitForCompletion(ctx, id, time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForCompletion() error = %v", err)
	}
	if task.State != cloud.StateCompleted {
		t.Errorf("state = %q, want %q", task.State, cloud.StateCompleted)
	}

	got, err := c.Result(ctx, id)
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	want, err := analyticRunner(ctx, testSpec())
	if err != nil {
		t.Fatalf("analyticRunner() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusUnknownTask(t *testing.T) {
	_, c := startFarm(t, Options{Runner: analyticRunner})

	if _, err := c.Status(context.Background(), "no-such-task"); !errors.IsNotFound(err) {
		t.Errorf("Status() error = %v, want not-found", err)
	}
}

func TestResultNotReadyUntilDone(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	slow := func(ctx context.Context, spec *fdtd.Spec) (*sparam.Matrix, error) {
		close(started)
		<-release
		return analyticRunner(ctx, spec)
	}
	_, c := startFarm(t, Options{Runner: slow})

	ctx := context.Background()
	id, err := c.Submit(ctx, testSpec())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-started

	if _, err := c.Result(ctx, id); !errors.Is(err, errors.ErrCodeResultNotFound) {
		t.Errorf("Result() before completion error = %v, want code %s", err, errors.ErrCodeResultNotFound)
	}

	close(release)
	if _, err := c.WaitForCompletion(ctx, id, time.Millisecond); err != nil {
		t.Fatalf("WaitForCompletion() error = %v", err)
	}
	if _, err := c.Result(ctx, id); err != nil {
		t.Errorf("Result() after completion error = %v", err)
	}
}

func TestFailedTask(t *testing.T) {
	failing := func(ctx context.Context, spec *fdtd.Spec) (*sparam.Matrix, error) {
		return nil, errors.New(errors.ErrCodeTool, "solver exploded")
	}
	_, c := startFarm(t, Options{Runner: failing})

	ctx := context.Background()
	id, err := c.Submit(ctx, testSpec())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	task, err := c.WaitForCompletion(ctx, id, time.Millisecond)
	if !errors.Is(err, errors.ErrCodeCloud) {
		t.Fatalf("WaitForCompletion() error = %v, want code %s", err, errors.ErrCodeCloud)
	}
	if !strings.Contains(err.Error(), "solver exploded") {
		t.Errorf("error %q does not carry the solver message", err)
	}
	if task.State != cloud.StateFailed {
		t.Errorf("state = %q, want %q", task.State, cloud.StateFailed)
	}
}

func TestSubmitMalformedSpec(t *testing.T) {
	s, err := NewServer(Options{Runner: analyticRunner})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	srv := httptest.NewServer(s)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/simulations", "application/json",
		strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	resp2, err := http.Post(srv.URL+"/api/v1/simulations", "application/json",
		strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Errorf("empty spec status = %d, want %d", resp2.StatusCode, http.StatusBadRequest)
	}
}

func TestQueueFull(t *testing.T) {
	started := make(chan struct{}, 3)
	release := make(chan struct{})
	slow := func(ctx context.Context, spec *fdtd.Spec) (*sparam.Matrix, error) {
		started <- struct{}{}
		<-release
		return analyticRunner(ctx, spec)
	}
	defer close(release)

	_, c := startFarm(t, Options{Runner: slow, Workers: 1, QueueCap: 1})

	ctx := context.Background()
	if _, err := c.Submit(ctx, testSpec()); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	<-started // worker busy, queue empty

	if _, err := c.Submit(ctx, testSpec()); err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}
	_, err := c.Submit(ctx, testSpec())
	if !errors.Is(err, errors.ErrCodeCloud) {
		t.Errorf("third Submit() error = %v, want code %s", err, errors.ErrCodeCloud)
	}
}

func TestHealthz(t *testing.T) {
	s, err := NewServer(Options{Runner: analyticRunner})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	srv := httptest.NewServer(s)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestToolRunner(t *testing.T) {
	if !tool.Available("sh") {
		t.Skip("sh not available")
	}
	want, err := analyticRunner(context.Background(), testSpec())
	if err != nil {
		t.Fatalf("analyticRunner() error = %v", err)
	}
	csvPath := filepath.Join(t.TempDir(), "result.csv")
	if err := want.SaveCSV(csvPath); err != nil {
		t.Fatalf("SaveCSV() error = %v", err)
	}

	workDir := t.TempDir()
	run := ToolRunner(workDir, tool.Command{
		Name: "sh",
		Args: []string{"-c", "cp " + csvPath + " " + pipeline.FDTDResultFile},
	})
	got, err := run(context.Background(), testSpec())
	if err != nil {
		t.Fatalf("ToolRunner() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("matrix mismatch (-want +got):\n%s", diff)
	}

	specs, err := filepath.Glob(filepath.Join(workDir, "*", pipeline.FDTDInputFile))
	if err != nil || len(specs) != 1 {
		t.Errorf("task dir spec files = %v (err %v), want exactly one", specs, err)
	}
	if _, err := os.Stat(specs[0]); err != nil {
		t.Errorf("spec file missing: %v", err)
	}
}

package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/fdtd"
	"github.com/gdsfactory/gplugins-go/pkg/sparam"
)

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	c, err := NewClient(serverURL, Options{
		Retry: RetryPolicy{Attempts: 1, Delay: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func resultMatrix(t *testing.T) *sparam.Matrix {
	t.Helper()
	m, err := sparam.New([]float64{1.5, 1.55, 1.6}, []string{"o1", "o2"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	thru := []complex128{0.9, 0.8 + 0.1i, 0.7}
	if err := m.Set("o2", "o1", thru); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := m.Set("o1", "o2", thru); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	return m
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "not-a-url", "/relative/only"} {
		if _, err := NewClient(raw, Options{}); !errors.Is(err, errors.ErrCodeInvalidConfig) {
			t.Errorf("NewClient(%q) error = %v, want code %s", raw, err, errors.ErrCodeInvalidConfig)
		}
	}
}

func TestSubmit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/simulations" {
			http.NotFound(w, r)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var spec fdtd.Spec
		if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
			t.Errorf("decode spec: %v", err)
		}
		if spec.Component != "straight" {
			t.Errorf("component = %q", spec.Component)
		}
		json.NewEncoder(w).Encode(Task{ID: "task-1", State: StatePending})
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	id, err := c.Submit(context.Background(), &fdtd.Spec{Component: "straight"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if id != "task-1" {
		t.Errorf("Submit() = %q, want task-1", id)
	}
}

func TestSubmitNilSpec(t *testing.T) {
	c := testClient(t, "http://localhost:1")
	if _, err := c.Submit(context.Background(), nil); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Submit(nil) error = %v, want code %s", err, errors.ErrCodeInvalidInput)
	}
}

func TestSubmitRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(Task{ID: "task-2", State: StatePending})
	}))
	defer server.Close()

	c, err := NewClient(server.URL, Options{
		Retry: RetryPolicy{Attempts: 3, Delay: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	id, err := c.Submit(context.Background(), &fdtd.Spec{Component: "straight"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if id != "task-2" {
		t.Errorf("Submit() = %q", id)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestSubmitFailsFastOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "malformed spec", http.StatusBadRequest)
	}))
	defer server.Close()

	c, err := NewClient(server.URL, Options{
		Retry: RetryPolicy{Attempts: 3, Delay: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := c.Submit(context.Background(), &fdtd.Spec{Component: "straight"}); !errors.Is(err, errors.ErrCodeCloud) {
		t.Errorf("Submit() error = %v, want code %s", err, errors.ErrCodeCloud)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1", got)
	}
}

func TestStatusNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	c := testClient(t, server.URL)
	if _, err := c.Status(context.Background(), "nope"); !errors.IsNotFound(err) {
		t.Errorf("Status() error = %v, want not-found", err)
	}
}

func TestResult(t *testing.T) {
	want := resultMatrix(t)
	var buf bytes.Buffer
	if err := want.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/simulations/task-1/result" {
			http.NotFound(w, r)
			return
		}
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	got, err := c.Result(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Result() mismatch (-want +got):\n%s", diff)
	}
}

func TestResultNotReady(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	c := testClient(t, server.URL)
	_, err := c.Result(context.Background(), "task-1")
	if !errors.Is(err, errors.ErrCodeResultNotFound) {
		t.Errorf("Result() error = %v, want code %s", err, errors.ErrCodeResultNotFound)
	}
	if !strings.Contains(err.Error(), "task-1") {
		t.Errorf("Result() error %q does not name the task", err)
	}
}

func TestWaitForCompletion(t *testing.T) {
	states := []string{StatePending, StateRunning, StateCompleted}
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i := int(calls.Add(1)) - 1
		if i >= len(states) {
			i = len(states) - 1
		}
		json.NewEncoder(w).Encode(Task{ID: "task-1", State: states[i]})
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	task, err := c.WaitForCompletion(context.Background(), "task-1", time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForCompletion() error = %v", err)
	}
	if task.State != StateCompleted {
		t.Errorf("state = %q, want %q", task.State, StateCompleted)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d polls, want 3", got)
	}
}

func TestWaitForCompletionFailedTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Task{ID: "task-1", State: StateFailed, Error: "mesh exploded"})
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	task, err := c.WaitForCompletion(context.Background(), "task-1", time.Millisecond)
	if !errors.Is(err, errors.ErrCodeCloud) {
		t.Fatalf("WaitForCompletion() error = %v, want code %s", err, errors.ErrCodeCloud)
	}
	if !strings.Contains(err.Error(), "mesh exploded") {
		t.Errorf("error %q does not carry the service message", err)
	}
	if task.State != StateFailed {
		t.Errorf("state = %q, want %q", task.State, StateFailed)
	}
}

func TestWaitForCompletionCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Task{ID: "task-1", State: StateRunning})
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := testClient(t, server.URL)
	if _, err := c.WaitForCompletion(ctx, "task-1", time.Hour); err == nil {
		t.Fatal("WaitForCompletion() returned nil on cancelled context")
	}
}

func TestAPIKeyHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(Task{ID: "task-1", State: StateRunning})
	}))
	defer server.Close()

	c, err := NewClient(server.URL, Options{
		APIKey: "secret",
		Retry:  RetryPolicy{Attempts: 1, Delay: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	task, err := c.Status(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if task.State != StateRunning {
		t.Errorf("state = %q", task.State)
	}

	anon := testClient(t, server.URL)
	if _, err := anon.Status(context.Background(), "task-1"); !errors.Is(err, errors.ErrCodeCloud) {
		t.Errorf("unauthenticated Status() error = %v, want code %s", err, errors.ErrCodeCloud)
	}
}

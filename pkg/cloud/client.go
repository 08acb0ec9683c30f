package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/fdtd"
	"github.com/gdsfactory/gplugins-go/pkg/observability"
	"github.com/gdsfactory/gplugins-go/pkg/sparam"
)

// Defaults applied by NewClient when Options fields are zero.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = 2 * time.Second
)

// Task states reported by the service.
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Task is one submitted simulation as the service reports it.
type Task struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// Done reports whether the task reached a terminal state.
func (t Task) Done() bool {
	return t.State == StateCompleted || t.State == StateFailed
}

// Options configure a Client.
type Options struct {
	// APIKey is sent as an X-API-Key header when set.
	APIKey string
	// Timeout bounds each HTTP request (0 means DefaultTimeout).
	Timeout time.Duration
	// Retry shapes backoff for transient failures.
	Retry RetryPolicy
	// Logger defaults to a silent logger.
	Logger *log.Logger
}

// Client talks to a remote simulation service.
// All methods are safe for concurrent use.
type Client struct {
	baseURL string
	opts    Options
	http    *http.Client
}

// NewClient validates the service URL and returns a ready client.
func NewClient(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "invalid service URL %q", baseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		opts:    opts,
		http:    &http.Client{Timeout: opts.Timeout},
	}, nil
}

// Submit posts a simulation spec and returns the task id assigned to it.
func (c *Client) Submit(ctx context.Context, spec *fdtd.Spec) (string, error) {
	if spec == nil {
		return "", errors.New(errors.ErrCodeInvalidInput, "nil simulation spec")
	}
	body, err := json.Marshal(spec)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "encode simulation spec")
	}
	var task Task
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/simulations", body, &task); err != nil {
		return "", err
	}
	if task.ID == "" {
		return "", errors.New(errors.ErrCodeCloud, "service assigned no task id")
	}
	c.opts.Logger.Info("submitted simulation", "task", task.ID, "component", spec.Component)
	return task.ID, nil
}

// Status fetches the task's current state.
func (c *Client) Status(ctx context.Context, taskID string) (Task, error) {
	var task Task
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/simulations/"+url.PathEscape(taskID), nil, &task)
	if err != nil {
		return Task{}, err
	}
	return task, nil
}

// Result fetches the finished task's S-parameter matrix. While the task
// is still running the service answers 404; that surfaces as a
// RESULT_NOT_FOUND error, so callers can poll and try again.
func (c *Client) Result(ctx context.Context, taskID string) (*sparam.Matrix, error) {
	data, err := c.request(ctx, http.MethodGet, "/api/v1/simulations/"+url.PathEscape(taskID)+"/result", nil)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return nil, errors.New(errors.ErrCodeResultNotFound, "no result for task %s yet", taskID)
		}
		return nil, err
	}
	return sparam.ReadCSV(bytes.NewReader(data))
}

// WaitForCompletion polls the task until it reaches a terminal state.
// A failed task is returned along with a CLOUD_ERROR carrying the
// service's message. poll <= 0 means DefaultPollInterval.
func (c *Client) WaitForCompletion(ctx context.Context, taskID string, poll time.Duration) (Task, error) {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	for {
		task, err := c.Status(ctx, taskID)
		if err != nil {
			return Task{}, err
		}
		switch task.State {
		case StateCompleted:
			return task, nil
		case StateFailed:
			return task, errors.New(errors.ErrCodeCloud, "task %s failed: %s", taskID, task.Error)
		}
		c.opts.Logger.Debug("waiting for simulation", "task", taskID, "state", task.State)
		select {
		case <-ctx.Done():
			return Task{}, ctx.Err()
		case <-time.After(poll):
		}
	}
}

// doJSON runs a request under the retry policy and decodes the JSON
// response into v.
func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, v any) error {
	data, err := c.request(ctx, method, path, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(errors.ErrCodeCloud, err, "decode service response for %s", path)
	}
	return nil
}

// request runs one HTTP exchange under the retry policy. The body is
// re-read from scratch on every attempt, and every attempt reports to the
// service hooks.
func (c *Client) request(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	hooks := observability.Service()
	var data []byte
	err := Retry(ctx, c.opts.Retry, func() error {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "build request %s", path)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.opts.APIKey != "" {
			req.Header.Set("X-API-Key", c.opts.APIKey)
		}

		hooks.OnRequest(ctx, method, path)
		attemptStart := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			hooks.OnError(ctx, method, path, err)
			return &RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "%s %s", method, path)}
		}
		hooks.OnResponse(ctx, method, path, resp.StatusCode, time.Since(attemptStart))
		defer resp.Body.Close()
		if err := checkStatus(resp.StatusCode, path); err != nil {
			return err
		}
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return &RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "read response for %s", path)}
		}
		return nil
	})
	return data, err
}

// checkStatus maps HTTP statuses to coded errors. 5xx and throttling are
// retryable; other client errors fail fast.
func checkStatus(code int, path string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "%s not found", path)
	case code == http.StatusTooManyRequests:
		return &RetryableError{Err: errors.New(errors.ErrCodeRateLimited, "service throttled %s", path)}
	case code >= 500:
		return &RetryableError{Err: errors.New(errors.ErrCodeCloud, "service error %d on %s", code, path)}
	default:
		return errors.New(errors.ErrCodeCloud, "service rejected %s: status %d", path, code)
	}
}

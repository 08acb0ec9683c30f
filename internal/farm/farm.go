// Package farm runs a local simulation job server: submitted FDTD specs
// queue up, a worker pool solves them, and clients poll for the
// S-parameter result. It speaks the same API pkg/cloud consumes.
package farm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/gdsfactory/gplugins-go/pkg/cloud"
	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/fdtd"
	"github.com/gdsfactory/gplugins-go/pkg/sparam"
)

// Defaults applied by NewServer when Options fields are zero.
const (
	DefaultAddr     = ":8787"
	DefaultWorkers  = 2
	DefaultQueueCap = 64

	// MaxSpecBytes bounds a submitted spec body.
	MaxSpecBytes = 16 << 20

	// ShutdownTimeout bounds the graceful drain of in-flight requests.
	ShutdownTimeout = 5 * time.Second
)

// Options configure a Server.
type Options struct {
	// Addr is the listen address for ListenAndServe ("" means DefaultAddr).
	Addr string
	// Workers is the solver pool size (0 means DefaultWorkers).
	Workers int
	// QueueCap bounds pending submissions; a full queue answers 503
	// (0 means DefaultQueueCap).
	QueueCap int
	// Runner solves one spec. Required.
	Runner Runner
	// Logger defaults to a silent logger.
	Logger *log.Logger
}

// record tracks one submitted task. All fields are guarded by the
// server mutex; the matrix is immutable once set.
type record struct {
	task   cloud.Task
	spec   *fdtd.Spec
	matrix *sparam.Matrix
}

// Server queues and solves simulation jobs. It implements http.Handler;
// run StartWorkers (or ListenAndServe, which does both) to make queued
// tasks progress.
type Server struct {
	opts   Options
	router chi.Router

	mu    sync.RWMutex
	tasks map[string]*record
	queue chan string
	wg    sync.WaitGroup
}

// NewServer validates the options and builds the routing table.
func NewServer(opts Options) (*Server, error) {
	if opts.Runner == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "farm server needs a runner")
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueCap <= 0 {
		opts.QueueCap = DefaultQueueCap
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	s := &Server{
		opts:  opts,
		tasks: make(map[string]*record),
		queue: make(chan string, opts.QueueCap),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(MaxSpecBytes))
	r.Use(requestLogger(s.opts.Logger))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1/simulations", func(r chi.Router) {
		r.Post("/", s.handleSubmit)
		r.Get("/{id}", s.handleStatus)
		r.Get("/{id}/result", s.handleResult)
	})
	return r
}

// StartWorkers launches the solver pool. Workers stop when ctx is
// cancelled; Wait blocks until they have exited.
func (s *Server) StartWorkers(ctx context.Context) {
	for range s.opts.Workers {
		s.wg.Add(1)
		go s.worker(ctx)
	}
}

// Wait blocks until all workers have exited.
func (s *Server) Wait() { s.wg.Wait() }

// ListenAndServe runs the worker pool and the HTTP listener until ctx is
// cancelled, then drains in-flight requests and workers.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.StartWorkers(ctx)

	srv := &http.Server{Addr: s.opts.Addr, Handler: s}
	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("farm listening", "addr", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(errors.ErrCodeNetwork, err, "farm server")
	case <-ctx.Done():
	}

	s.opts.Logger.Info("shutting down farm")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.opts.Logger.Warn("shutdown incomplete", "error", err)
		srv.Close()
	}
	s.wg.Wait()
	return nil
}

func (s *Server) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-s.queue:
			s.runTask(ctx, id)
		}
	}
}

func (s *Server) runTask(ctx context.Context, id string) {
	s.mu.RLock()
	rec, ok := s.tasks[id]
	var spec *fdtd.Spec
	if ok {
		spec = rec.spec
	}
	s.mu.RUnlock()
	if !ok {
		return
	}

	s.setTask(id, cloud.StateRunning, "", nil)
	start := time.Now()
	m, err := s.opts.Runner(ctx, spec)
	if err != nil {
		s.opts.Logger.Warn("simulation failed", "task", id, "error", err)
		s.setTask(id, cloud.StateFailed, err.Error(), nil)
		return
	}
	s.opts.Logger.Info("simulation completed", "task", id, "duration", time.Since(start))
	s.setTask(id, cloud.StateCompleted, "", m)
}

func (s *Server) setTask(id, state, msg string, m *sparam.Matrix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tasks[id]
	if !ok {
		return
	}
	rec.task.State = state
	rec.task.Error = msg
	rec.matrix = m
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var spec fdtd.Spec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed simulation spec: "+err.Error())
		return
	}
	if spec.Component == "" {
		s.writeError(w, http.StatusBadRequest, "spec names no component")
		return
	}

	id := uuid.New().String()
	created := cloud.Task{ID: id, State: cloud.StatePending}
	s.mu.Lock()
	s.tasks[id] = &record{task: created, spec: &spec}
	s.mu.Unlock()

	select {
	case s.queue <- id:
	default:
		s.mu.Lock()
		delete(s.tasks, id)
		s.mu.Unlock()
		s.writeError(w, http.StatusServiceUnavailable, "queue full")
		return
	}

	s.opts.Logger.Info("queued simulation", "task", id, "component", spec.Component)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(created)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.RLock()
	rec, ok := s.tasks[id]
	var task cloud.Task
	if ok {
		task = rec.task
	}
	s.mu.RUnlock()
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown task "+id)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(task)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.RLock()
	rec, ok := s.tasks[id]
	var state string
	var m *sparam.Matrix
	if ok {
		state = rec.task.State
		m = rec.matrix
	}
	s.mu.RUnlock()
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown task "+id)
		return
	}
	if state != cloud.StateCompleted || m == nil {
		s.writeError(w, http.StatusNotFound, "task "+id+" has no result yet")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	if err := m.WriteCSV(w); err != nil {
		s.opts.Logger.Warn("write result", "task", id, "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "farm", "timestamp": %q}`,
		time.Now().UTC().Format(time.RFC3339))
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// requestLogger reports each request once it finishes.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"duration", time.Since(start))
		})
	}
}

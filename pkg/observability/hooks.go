// Package observability provides hooks for metrics, tracing, and logging.
//
// The package lets applications instrument pipeline runs, result-store
// operations, and simulation-service calls without coupling the libraries
// to any particular observability backend. Hook interfaces cover the event
// categories, no-op implementations are the defaults, and applications
// register their own implementations at startup. Registration happens in
// main, so the libraries never import a metrics or tracing framework.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetStoreHooks(&myStoreHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnSolveStart(ctx, kind, solver)
//	// ... run the solver ...
//	observability.Pipeline().OnSolveComplete(ctx, kind, solver, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the simulation pipeline.
type PipelineHooks interface {
	// Run events
	OnRunStart(ctx context.Context, component, kind string)
	OnRunComplete(ctx context.Context, component, kind string, cached bool, duration time.Duration, err error)

	// Resolve events
	OnResolveStart(ctx context.Context, component string)
	OnResolveComplete(ctx context.Context, component string, layers int, duration time.Duration, err error)

	// Solver events
	OnSolveStart(ctx context.Context, kind, solver string)
	OnSolveComplete(ctx context.Context, kind, solver string, duration time.Duration, err error)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from result-store operations.
type StoreHooks interface {
	// OnHit records a run served from the store.
	OnHit(ctx context.Context, kind string)

	// OnMiss records a run that had to be computed.
	OnMiss(ctx context.Context, kind string)

	// OnSet records a result written to the store.
	OnSet(ctx context.Context, kind string, size int)
}

// =============================================================================
// Service Hooks
// =============================================================================

// ServiceHooks receives events from simulation-service requests. Each retry
// attempt emits its own request/response pair.
type ServiceHooks interface {
	// OnRequest records an outgoing request to the service.
	OnRequest(ctx context.Context, method, path string)

	// OnResponse records a service response.
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)

	// OnError records a transport failure (network error, timeout).
	OnError(ctx context.Context, method, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnRunStart(context.Context, string, string) {}
func (NoopPipelineHooks) OnRunComplete(context.Context, string, string, bool, time.Duration, error) {
}
func (NoopPipelineHooks) OnResolveStart(context.Context, string) {}
func (NoopPipelineHooks) OnResolveComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnSolveStart(context.Context, string, string) {}
func (NoopPipelineHooks) OnSolveComplete(context.Context, string, string, time.Duration, error) {
}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnHit(context.Context, string)      {}
func (NoopStoreHooks) OnMiss(context.Context, string)     {}
func (NoopStoreHooks) OnSet(context.Context, string, int) {}

// NoopServiceHooks is a no-op implementation of ServiceHooks.
type NoopServiceHooks struct{}

func (NoopServiceHooks) OnRequest(context.Context, string, string)                      {}
func (NoopServiceHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopServiceHooks) OnError(context.Context, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	storeHooks    StoreHooks    = NoopStoreHooks{}
	serviceHooks  ServiceHooks  = NoopServiceHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any runs.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
// This should be called once at application startup before any store operations.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// SetServiceHooks registers custom service hooks.
// This should be called once at application startup before any service calls.
func SetServiceHooks(h ServiceHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		serviceHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Service returns the registered service hooks.
func Service() ServiceHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return serviceHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	storeHooks = NoopStoreHooks{}
	serviceHooks = NoopServiceHooks{}
}

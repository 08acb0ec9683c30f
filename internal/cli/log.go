// Package cli implements the gplugins command-line interface.
//
// This package provides commands for resolving layouts against layer stacks,
// generating solver inputs (gmsh geometry, FDTD specs, Palace configs),
// running parameter sweeps, plotting S-parameters and serving a local
// simulation farm. The CLI is built using cobra and supports verbose logging
// via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - resolve: Resolve a layout against a layer stack and print the result
//   - stack: Inspect layer stack files
//   - mesh, fdtd, palace: Write solver input files
//   - sweep: Run a parameter sweep from a plan file
//   - report: Plot an S-parameter CSV as HTML or PNG
//   - db: Manage the simulation results database
//   - cache: Manage the simulation result cache
//   - farm: Serve the simulation job API
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging and --no-color
// to disable styled output.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with
// elapsed duration. It is safe for sequential use by a single goroutine.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as
// start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since the tracker was created,
// rounded to the nearest millisecond.
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

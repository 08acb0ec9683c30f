// Package pkg provides the core libraries for gplugins photonic simulation.
//
// # Overview
//
// gplugins routes a planar photonic layout plus a vertical layer stack into
// external physics solvers (FDTD, electrostatic FEM, mesh generators) and
// back. The heart of the library is the geometry resolver, which turns 2D
// per-layer polygons and a z-stack description into the 3D facts every
// solver adapter needs; everything around it is thin adapters and
// infrastructure.
//
// # Architecture
//
// The typical data flow through gplugins:
//
//	Component JSON + Layer-stack TOML
//	         ↓
//	    [resolve] package (fuse polygons, derive bboxes and port centers)
//	         ↓
//	    [fdtd] / [palace] / [gmsh] / [solid] adapters (solver inputs)
//	         ↓
//	    external solver run ([tool] locally, [cloud] remotely)
//	         ↓
//	    [sparam] / [palace] results → [store] / [simdb] / [report]
//
// # Quick Start
//
// Resolve a component and emit an FDTD simulation spec:
//
//	import (
//	    "github.com/gdsfactory/gplugins-go/pkg/fdtd"
//	    "github.com/gdsfactory/gplugins-go/pkg/layerstack"
//	    "github.com/gdsfactory/gplugins-go/pkg/layout"
//	    "github.com/gdsfactory/gplugins-go/pkg/materials"
//	    "github.com/gdsfactory/gplugins-go/pkg/resolve"
//	)
//
//	// 1. Load the inputs
//	component, _ := layout.ReadComponent("mzi.json")
//	stack, _ := layerstack.Load("generic_220nm.toml")
//
//	// 2. Resolve the geometry
//	res, _ := resolve.New(resolve.Config{
//	    Component:   component,
//	    Stack:       stack,
//	    ExtendPorts: 5,
//	    PadXYInner:  2,
//	    PadXYOuter:  3,
//	    PadZInner:   1,
//	    PadZOuter:   1,
//	})
//
//	// 3. Build the solver input
//	spec, _ := fdtd.Build(res, materials.Default(), fdtd.Options{})
//	_ = spec.Write("fdtd.json")
//
// # Main Packages
//
// ## Core Domain Logic
//
// [resolve] - The geometry resolver. An immutable Config (component, layer
// stack, port extension, inner/outer XY and Z padding) with memoized derived
// properties: fused per-layer polygons, the resolved layer subset sorted by
// z, the padded global bounding box, per-layer 3D boxes, and 3D port
// centers.
//
// [layout] - The 2D component model: GDS layer ids, polygons with holes,
// ports (center, orientation, width, reference layer), JSON interchange.
//
// [layerstack] - The vertical stack model: zmin/thickness/material/
// sidewall-angle/mesh-order per named layer, TOML techfiles, klayout .lyp
// layer-id import.
//
// [materials] - Material table (refractive index, permittivity,
// conductivity) with TOML loading and built-in defaults.
//
// ## Solver Adapters
//
// [fdtd] - FDTD simulation specs: extruded structures, mode sources and
// monitors at resolved port centers, wavelength band, PML from padding.
//
// [palace] - Electrostatic FEM: Palace config generation (dielectrics vs
// terminals by conductivity) and terminal-C capacitance-matrix parsing.
//
// [gmsh] - Mesh requests as gmsh .geo scripts (surfaces with holes,
// extrusions, physical volumes matching Palace attributes).
//
// [solid] - 3D solids per resolved layer via signed distance fields:
// extrusion, sidewall-angle lofts, mesh-order overlap cutting, STL export.
//
// [sparam] - S-parameter matrices over a wavelength grid: port-pair keys,
// dB/magnitude/phase views, reciprocity and passivity checks, CSV and
// Touchstone IO.
//
// ## Infrastructure
//
// [store] - Content-addressed result store keyed by a hash of resolved
// geometry plus run settings. Memory and File backends for the CLI,
// Distributed (Redis index over MongoDB documents) for services, Null for
// tests.
//
// [simdb] - SQLite database of recorded simulations and their S-parameters,
// with embedded migrations.
//
// [pipeline] - The complete run (resolve → key → store lookup → write
// inputs → solve → collect/persist) used by the CLI and the farm worker, so
// every entry point behaves the same.
//
// [cloud] - HTTP client for a remote simulation service with retry/backoff
// for transient failures.
//
// [sweep] - Parameter-sweep plans (TOML axes expanded to a cross product)
// and a bounded worker pool for concurrent independent runs.
//
// [tool] - External solver invocation: lookup, capture, timeouts, coded
// failures.
//
// [report] - Result rendering: interactive HTML charts and static PNG plots
// of S-parameter spectra.
//
// ## Shared
//
// [errors] - Coded errors and input validation shared by every package.
//
// [observability] - Pluggable hooks for pipeline, store, and service
// events; no-op by default.
//
// # Common Workflows
//
// Run the cached pipeline:
//
//	backend, _ := store.NewFile(".gplugins/cache")
//	runner := pipeline.NewRunner(backend, store.Keyer{}, nil, nil)
//	result, _ := runner.Run(ctx, component, stack, rcfg, pipeline.Options{
//	    Kind:      pipeline.KindFDTD,
//	    OutputDir: "out",
//	})
//
// Sweep a geometry parameter:
//
//	plan, _ := sweep.LoadPlan("sweep.toml")
//	points, _ := plan.Expand()
//	results := sweep.Pool{Workers: 4}.Run(ctx, points, runPoint)
//
// Render a result:
//
//	m, _ := sparam.LoadCSV("out/sparams.csv")
//	_ = report.SaveHTML("out/report.html", m, report.Options{Title: "mzi"})
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/resolve/...            # Specific package
//	go test -run Example                 # Examples only
//
// [resolve]: https://pkg.go.dev/github.com/gdsfactory/gplugins-go/pkg/resolve
// [layout]: https://pkg.go.dev/github.com/gdsfactory/gplugins-go/pkg/layout
// [layerstack]: https://pkg.go.dev/github.com/gdsfactory/gplugins-go/pkg/layerstack
// [materials]: https://pkg.go.dev/github.com/gdsfactory/gplugins-go/pkg/materials
// [fdtd]: https://pkg.go.dev/github.com/gdsfactory/gplugins-go/pkg/fdtd
// [palace]: https://pkg.go.dev/github.com/gdsfactory/gplugins-go/pkg/palace
// [gmsh]: https://pkg.go.dev/github.com/gdsfactory/gplugins-go/pkg/gmsh
// [solid]: https://pkg.go.dev/github.com/gdsfactory/gplugins-go/pkg/solid
// [sparam]: https://pkg.go.dev/github.com/gdsfactory/gplugins-go/pkg/sparam
// [store]: https://pkg.go.dev/github.com/gdsfactory/gplugins-go/pkg/store
// [simdb]: https://pkg.go.dev/github.com/gdsfactory/gplugins-go/pkg/simdb
// [pipeline]: https://pkg.go.dev/github.com/gdsfactory/gplugins-go/pkg/pipeline
// [cloud]: https://pkg.go.dev/github.com/gdsfactory/gplugins-go/pkg/cloud
// [sweep]: https://pkg.go.dev/github.com/gdsfactory/gplugins-go/pkg/sweep
// [tool]: https://pkg.go.dev/github.com/gdsfactory/gplugins-go/pkg/tool
// [report]: https://pkg.go.dev/github.com/gdsfactory/gplugins-go/pkg/report
// [errors]: https://pkg.go.dev/github.com/gdsfactory/gplugins-go/pkg/errors
// [observability]: https://pkg.go.dev/github.com/gdsfactory/gplugins-go/pkg/observability
package pkg

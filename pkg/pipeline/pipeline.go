// Package pipeline runs the end-to-end simulation flow shared by the CLI,
// the sweep runner and the farm worker: resolve geometry, write solver
// inputs, optionally invoke the external solver, collect its results and
// persist them. Centralizing the flow keeps caching and bookkeeping
// identical across entry points.
//
// # Stages
//
//  1. Resolve: derive 3D geometry from the component and layer stack
//  2. Key: hash the geometry and settings into a store key
//  3. Write: emit the solver input for the chosen kind
//  4. Solve: run the external tool (optional)
//  5. Collect: parse the result files the solver left behind
//  6. Persist: write results to the store and the simulation database
//
// A store hit short-circuits stages 3-6 and re-materializes the cached
// result file into the output directory.
//
// # Usage
//
//	runner := pipeline.NewRunner(backend, store.Keyer{}, db, logger)
//	opts := pipeline.Options{
//	    Kind:      pipeline.KindFDTD,
//	    OutputDir: "out/coupler",
//	}
//	result, err := runner.Run(ctx, component, stack, resolve.Config{}, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if result.CacheInfo.Hit {
//	    // result.Matrix came from the store
//	}
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/fdtd"
	"github.com/gdsfactory/gplugins-go/pkg/gmsh"
	"github.com/gdsfactory/gplugins-go/pkg/materials"
	"github.com/gdsfactory/gplugins-go/pkg/palace"
	"github.com/gdsfactory/gplugins-go/pkg/sparam"
	"github.com/gdsfactory/gplugins-go/pkg/tool"
)

// Simulation kinds the pipeline can run.
const (
	KindFDTD   = "fdtd"
	KindPalace = "palace"
	KindMesh   = "mesh"
)

// ValidKinds is the set of supported simulation kinds.
var ValidKinds = map[string]bool{
	KindFDTD:   true,
	KindPalace: true,
	KindMesh:   true,
}

// DefaultTTL bounds how long cached results live in the store.
const DefaultTTL = 30 * 24 * time.Hour

// Input and result file names per kind. The solver command runs in the
// output directory, so these are the names external tools must honor.
const (
	FDTDInputFile    = "spec.json"
	FDTDResultFile   = "sparams.csv"
	PalaceInputFile  = "palace.json"
	PalaceResultFile = "terminal-C.csv"
	MeshInputFile    = "model.geo"
	MeshResultFile   = "model.msh"
)

// ValidateKind checks that a simulation kind is supported.
func ValidateKind(kind string) error {
	if !ValidKinds[kind] {
		return errors.New(errors.ErrCodeInvalidConfig,
			"invalid kind %q (must be one of: fdtd, palace, mesh)", kind)
	}
	return nil
}

// Options configures one pipeline run. The struct supports JSON
// serialization for farm requests; runtime-only fields are excluded.
type Options struct {
	// Kind selects the solver adapter: fdtd, palace or mesh.
	Kind string `json:"kind"`

	// OutputDir receives solver inputs and result files. Required.
	OutputDir string `json:"output_dir"`

	// Wavelengths is the simulation grid in micrometers, strictly
	// ascending. Empty leaves the fdtd band defaults in place.
	Wavelengths []float64 `json:"wavelengths,omitempty"`

	// NoCache bypasses the store for both lookup and write-back.
	NoCache bool `json:"no_cache,omitempty"`

	// TTL bounds the store lifetime of this run's results (0 = DefaultTTL).
	TTL time.Duration `json:"ttl,omitempty"`

	// Adapter options for the chosen kind; the others are ignored.
	FDTD   fdtd.Options   `json:"fdtd,omitempty"`
	Palace palace.Options `json:"palace,omitempty"`
	Mesh   gmsh.Options   `json:"mesh,omitempty"`

	// Materials resolves layer material names for fdtd and palace runs.
	// A zero table means materials.Default().
	Materials materials.Table `json:"-"`

	// Command, when set, runs the external solver after inputs are
	// written. Its working directory defaults to OutputDir.
	Command *tool.Command `json:"-"`

	// Logger defaults to the runner's.
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// Idempotent: later calls are no-ops.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := ValidateKind(o.Kind); err != nil {
		return err
	}
	if o.OutputDir == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "output dir is required")
	}
	if err := errors.ValidateOutputPath(o.OutputDir); err != nil {
		return err
	}
	for i, wl := range o.Wavelengths {
		if err := errors.ValidateFinite("wavelength", wl); err != nil {
			return err
		}
		if wl <= 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "wavelength %g must be positive", wl)
		}
		if i > 0 && wl <= o.Wavelengths[i-1] {
			return errors.New(errors.ErrCodeInvalidConfig, "wavelengths must be strictly ascending")
		}
	}
	if len(o.Wavelengths) > 0 {
		o.FDTD.WavelengthStart = o.Wavelengths[0]
		o.FDTD.WavelengthStop = o.Wavelengths[len(o.Wavelengths)-1]
		o.FDTD.WavelengthPoints = len(o.Wavelengths)
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Materials.Materials == nil {
		o.Materials = materials.Default()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Key is the store key identifying this run's inputs.
	Key string `json:"key"`

	// InputPath is the solver input file written for this run (empty on a
	// cache hit).
	InputPath string `json:"input_path,omitempty"`

	// ResultPath is the collected result file. On a cache hit the cached
	// bytes are written back here.
	ResultPath string `json:"result_path,omitempty"`

	// Matrix holds collected S-parameters (fdtd runs).
	Matrix *sparam.Matrix `json:"-"`

	// Cap holds the collected capacitance matrix (palace runs).
	Cap *palace.CapMatrix `json:"-"`

	// SimulationID is the database row of this run (0 when no database is
	// attached or nothing was collected).
	SimulationID int64 `json:"simulation_id,omitempty"`

	// Stats contains timing information.
	Stats Stats `json:"stats"`

	// CacheInfo reports whether the store served this run.
	CacheInfo CacheInfo `json:"cache_info"`
}

// Stats contains pipeline execution timings.
type Stats struct {
	ResolveTime time.Duration `json:"resolve_time"`
	WriteTime   time.Duration `json:"write_time"`
	SolveTime   time.Duration `json:"solve_time"`
	CollectTime time.Duration `json:"collect_time"`
}

// CacheInfo tracks whether the run came from the store.
type CacheInfo struct {
	Hit bool `json:"hit"`
}

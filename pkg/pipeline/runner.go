package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/fdtd"
	"github.com/gdsfactory/gplugins-go/pkg/gmsh"
	"github.com/gdsfactory/gplugins-go/pkg/layerstack"
	"github.com/gdsfactory/gplugins-go/pkg/layout"
	"github.com/gdsfactory/gplugins-go/pkg/observability"
	"github.com/gdsfactory/gplugins-go/pkg/palace"
	"github.com/gdsfactory/gplugins-go/pkg/resolve"
	"github.com/gdsfactory/gplugins-go/pkg/simdb"
	"github.com/gdsfactory/gplugins-go/pkg/sparam"
	"github.com/gdsfactory/gplugins-go/pkg/store"
	"github.com/gdsfactory/gplugins-go/pkg/tool"
)

// Runner executes pipeline runs with caching. It is stateless apart from
// its store, keyer, database and logger; one Runner serves concurrent runs
// with different options.
type Runner struct {
	Store  store.Backend
	Keyer  store.Keyer
	DB     *simdb.DB // optional; nil disables recording
	Logger *log.Logger
}

// NewRunner creates a runner. A nil backend disables caching (Null store);
// a nil logger means log.Default().
func NewRunner(backend store.Backend, keyer store.Keyer, db *simdb.DB, logger *log.Logger) *Runner {
	if backend == nil {
		backend = store.Null{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Store: backend, Keyer: keyer, DB: db, Logger: logger}
}

// payload is the store envelope for a collected result file.
type payload struct {
	Kind      string   `json:"kind"`
	Name      string   `json:"name"`
	Data      []byte   `json:"data"`
	Terminals []string `json:"terminals,omitempty"`
}

// inputInfo describes the solver input one run wrote.
type inputInfo struct {
	path      string
	terminals []string
}

// Run executes the full flow for one component. The component and stack
// override whatever rcfg carries.
func (r *Runner) Run(ctx context.Context, component *layout.Component, stack layerstack.LayerStack, rcfg resolve.Config, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	obs := observability.Pipeline()
	obs.OnRunStart(ctx, component.Name, opts.Kind)
	runStart := time.Now()
	result, err := r.run(ctx, component, stack, rcfg, opts)
	cached := result != nil && result.CacheInfo.Hit
	obs.OnRunComplete(ctx, component.Name, opts.Kind, cached, time.Since(runStart), err)
	return result, err
}

func (r *Runner) run(ctx context.Context, component *layout.Component, stack layerstack.LayerStack, rcfg resolve.Config, opts Options) (*Result, error) {
	obs := observability.Pipeline()
	result := &Result{}

	// Stage 1: resolve.
	start := time.Now()
	rcfg.Component = component
	rcfg.Stack = stack
	obs.OnResolveStart(ctx, component.Name)
	res, layerData, nlayers, err := buildResolver(rcfg)
	result.Stats.ResolveTime = time.Since(start)
	obs.OnResolveComplete(ctx, component.Name, nlayers, result.Stats.ResolveTime, err)
	if err != nil {
		return nil, err
	}
	opts.Logger.Info("resolved geometry",
		"component", component.Name,
		"layers", nlayers,
		"duration", result.Stats.ResolveTime)

	// Stage 2: key.
	key, err := r.runKey(component, res.Config(), layerData, opts)
	if err != nil {
		return nil, err
	}
	result.Key = key

	// Stage 3: store lookup.
	if !opts.NoCache {
		hit, err := r.fromStore(ctx, key, opts, result)
		if err != nil {
			return nil, err
		}
		if hit {
			result.CacheInfo.Hit = true
			observability.Store().OnHit(ctx, opts.Kind)
			opts.Logger.Info("store hit", "key", key)
			return result, nil
		}
		observability.Store().OnMiss(ctx, opts.Kind)
	}

	// Stage 4: write solver inputs.
	start = time.Now()
	in, err := r.writeInputs(res, opts)
	if err != nil {
		return nil, err
	}
	result.InputPath = in.path
	result.Stats.WriteTime = time.Since(start)
	opts.Logger.Info("wrote solver input", "kind", opts.Kind, "path", in.path)

	// Stage 5: solve.
	if opts.Command != nil {
		start = time.Now()
		cmd := *opts.Command
		if cmd.Dir == "" {
			cmd.Dir = opts.OutputDir
		}
		obs.OnSolveStart(ctx, opts.Kind, cmd.Name)
		out, err := tool.Run(ctx, cmd)
		result.Stats.SolveTime = time.Since(start)
		obs.OnSolveComplete(ctx, opts.Kind, cmd.Name, result.Stats.SolveTime, err)
		if err != nil {
			return nil, err
		}
		opts.Logger.Info("solver finished", "duration", out.Duration)
	}

	// Stage 6: collect and persist.
	start = time.Now()
	pl, err := r.collect(opts, in, result)
	if err != nil {
		return nil, err
	}
	result.Stats.CollectTime = time.Since(start)
	if pl == nil {
		return result, nil
	}
	if err := r.persist(ctx, component.Name, opts, pl, result); err != nil {
		return nil, err
	}
	return result, nil
}

// buildResolver constructs the resolver and snapshots its resolved layers.
func buildResolver(rcfg resolve.Config) (*resolve.Resolver, []byte, int, error) {
	res, err := resolve.New(rcfg)
	if err != nil {
		return nil, nil, 0, err
	}
	layers, err := res.ResolvedLayers()
	if err != nil {
		return nil, nil, 0, err
	}
	data, err := res.MarshalResolvedLayers()
	if err != nil {
		return nil, nil, 0, err
	}
	return res, data, len(layers), nil
}

// runKey hashes the component geometry, the normalized resolve settings
// and the run settings into a store key. Two runs share a key exactly when
// their results are interchangeable: same polygons and ports, same resolved
// stack, same padding, same solver options.
func (r *Runner) runKey(component *layout.Component, rcfg resolve.Config, layerData []byte, opts Options) (string, error) {
	componentData, err := layout.EncodeComponent(component)
	if err != nil {
		return "", err
	}
	settings := map[string]any{
		"kind":      opts.Kind,
		"component": store.Hash(componentData),
		"layers":    store.Hash(layerData),
		"resolve":   resolveSettings(rcfg),
	}
	if len(opts.Wavelengths) > 0 {
		settings["wavelengths"] = opts.Wavelengths
	}
	switch opts.Kind {
	case KindFDTD:
		settings["fdtd"] = opts.FDTD
		settings["materials"] = opts.Materials
	case KindPalace:
		settings["palace"] = opts.Palace
		settings["materials"] = opts.Materials
	case KindMesh:
		settings["mesh"] = opts.Mesh
	}
	return r.Keyer.Key("pipeline/"+opts.Kind, settings)
}

// resolveSettings lists the Config scalars that shape resolved geometry.
// The component and stack content are hashed separately.
func resolveSettings(cfg resolve.Config) map[string]any {
	return map[string]any{
		"extend_ports": cfg.ExtendPorts,
		"port_offset":  cfg.PortOffset,
		"pad_xy_inner": cfg.PadXYInner,
		"pad_xy_outer": cfg.PadXYOuter,
		"pad_z_inner":  cfg.PadZInner,
		"pad_z_outer":  cfg.PadZOuter,
		"wafer_layer":  cfg.WaferLayer.String(),
		"wafer_name":   cfg.WaferName,
		"round_digits": cfg.RoundDigits,
		"simplify_tol": cfg.SimplifyTol,
	}
}

// fromStore tries to serve the run from the store, re-materializing the
// cached result file into the output directory. Store failures degrade to
// a miss; only output-dir failures abort.
func (r *Runner) fromStore(ctx context.Context, key string, opts Options, result *Result) (bool, error) {
	data, err := r.Store.Get(ctx, key)
	if err != nil {
		if !errors.IsNotFound(err) {
			opts.Logger.Warn("store lookup failed", "error", err)
		}
		return false, nil
	}
	var pl payload
	if err := json.Unmarshal(data, &pl); err != nil {
		opts.Logger.Warn("corrupt store entry", "key", key)
		return false, nil
	}
	if err := r.decodeResult(&pl, result); err != nil {
		opts.Logger.Warn("stale store entry", "key", key, "error", err)
		result.Matrix, result.Cap = nil, nil
		return false, nil
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return false, errors.Wrap(errors.ErrCodeInvalidPath, err, "create output dir %s", opts.OutputDir)
	}
	path := filepath.Join(opts.OutputDir, pl.Name)
	if err := os.WriteFile(path, pl.Data, 0644); err != nil {
		return false, errors.Wrap(errors.ErrCodeInvalidPath, err, "write cached result %s", path)
	}
	result.ResultPath = path
	return true, nil
}

// writeInputs emits the solver input for the configured kind.
func (r *Runner) writeInputs(res *resolve.Resolver, opts Options) (inputInfo, error) {
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return inputInfo{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "create output dir %s", opts.OutputDir)
	}
	switch opts.Kind {
	case KindFDTD:
		spec, err := fdtd.Build(res, opts.Materials, opts.FDTD)
		if err != nil {
			return inputInfo{}, err
		}
		path := filepath.Join(opts.OutputDir, FDTDInputFile)
		if err := spec.Write(path); err != nil {
			return inputInfo{}, err
		}
		return inputInfo{path: path}, nil
	case KindPalace:
		cfg, err := palace.Build(res, opts.Materials, opts.Palace)
		if err != nil {
			return inputInfo{}, err
		}
		path := filepath.Join(opts.OutputDir, PalaceInputFile)
		if err := cfg.Write(path); err != nil {
			return inputInfo{}, err
		}
		return inputInfo{path: path, terminals: cfg.Terminals()}, nil
	default: // KindMesh
		path := filepath.Join(opts.OutputDir, MeshInputFile)
		if err := gmsh.Write(path, res, opts.Mesh); err != nil {
			return inputInfo{}, err
		}
		return inputInfo{path: path}, nil
	}
}

// collect reads the result file the solver left in the output directory.
// A missing file is an error only when a solver command actually ran;
// without a command the run is inputs-only and nothing is collected.
func (r *Runner) collect(opts Options, in inputInfo, result *Result) (*payload, error) {
	name := resultFileName(opts.Kind)
	path := filepath.Join(opts.OutputDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if opts.Command != nil {
				return nil, errors.New(errors.ErrCodeResultNotFound,
					"solver produced no %s in %s", name, opts.OutputDir)
			}
			return nil, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read result %s", path)
	}
	pl := &payload{Kind: opts.Kind, Name: name, Data: data, Terminals: in.terminals}
	if err := r.decodeResult(pl, result); err != nil {
		return nil, err
	}
	result.ResultPath = path
	return pl, nil
}

// decodeResult parses the payload into the kind's native result type.
// Mesh payloads stay raw bytes.
func (r *Runner) decodeResult(pl *payload, result *Result) error {
	switch pl.Kind {
	case KindFDTD:
		m, err := sparam.ReadCSV(bytes.NewReader(pl.Data))
		if err != nil {
			return err
		}
		result.Matrix = m
	case KindPalace:
		c, err := palace.ParseCapMatrix(bytes.NewReader(pl.Data), pl.Terminals)
		if err != nil {
			return err
		}
		result.Cap = c
	}
	return nil
}

// persist writes the collected result to the store and the database.
// Store write failures degrade to a warning; database failures abort.
func (r *Runner) persist(ctx context.Context, component string, opts Options, pl *payload, result *Result) error {
	if !opts.NoCache {
		data, err := json.Marshal(pl)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "encode store payload")
		}
		if err := r.Store.Set(ctx, result.Key, data, opts.TTL); err != nil {
			opts.Logger.Warn("store write failed", "error", err)
		} else {
			observability.Store().OnSet(ctx, opts.Kind, len(data))
		}
	}
	if r.DB == nil {
		return nil
	}
	id, err := r.DB.RecordSimulation(result.Key, component, opts.Kind, dbSettings(opts))
	if err != nil {
		return err
	}
	result.SimulationID = id
	if result.Matrix != nil {
		if err := r.DB.InsertSParams(id, result.Matrix); err != nil {
			return err
		}
	}
	return nil
}

func dbSettings(opts Options) map[string]any {
	s := map[string]any{"output_dir": opts.OutputDir}
	if len(opts.Wavelengths) > 0 {
		s["wavelengths"] = opts.Wavelengths
	}
	switch opts.Kind {
	case KindFDTD:
		s["fdtd"] = opts.FDTD
	case KindPalace:
		s["palace"] = opts.Palace
	case KindMesh:
		s["mesh"] = opts.Mesh
	}
	return s
}

func resultFileName(kind string) string {
	switch kind {
	case KindFDTD:
		return FDTDResultFile
	case KindPalace:
		return PalaceResultFile
	default:
		return MeshResultFile
	}
}

// applyLogger points options at the runner's logger when none is set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// Close releases the runner's store.
func (r *Runner) Close() error {
	if r.Store != nil {
		return r.Store.Close()
	}
	return nil
}

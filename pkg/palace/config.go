package palace

import (
	"encoding/json"
	"os"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/materials"
	"github.com/gdsfactory/gplugins-go/pkg/resolve"
)

// Defaults for solver options.
const (
	DefaultOrder         = 1
	DefaultOutputDir     = "postpro"
	DefaultTolerance     = 1e-8
	DefaultMaxIterations = 100
)

// Options configures the electrostatic run.
type Options struct {
	// MeshFile is the mesh the config references. Required.
	MeshFile string
	// Ground names conductor layers tied to ground instead of getting a
	// terminal.
	Ground []string
	// Order is the FEM element order (0 means DefaultOrder).
	Order int
	// OutputDir receives solver output ("" means DefaultOutputDir).
	OutputDir string
	// Tolerance and MaxIterations control the linear solver (zero values
	// mean the defaults).
	Tolerance     float64
	MaxIterations int
}

type problemCfg struct {
	Type    string `json:"Type"`
	Verbose int    `json:"Verbose"`
	Output  string `json:"Output"`
}

type modelCfg struct {
	Mesh string  `json:"Mesh"`
	L0   float64 `json:"L0"`
}

type materialCfg struct {
	Attributes   []int   `json:"Attributes"`
	Permittivity float64 `json:"Permittivity"`
}

type terminalCfg struct {
	Index      int   `json:"Index"`
	Attributes []int `json:"Attributes"`
}

type groundCfg struct {
	Attributes []int `json:"Attributes"`
}

type domainsCfg struct {
	Materials []materialCfg `json:"Materials"`
}

type boundariesCfg struct {
	Ground   groundCfg     `json:"Ground"`
	Terminal []terminalCfg `json:"Terminal"`
}

type linearCfg struct {
	Type   string  `json:"Type"`
	Tol    float64 `json:"Tol"`
	MaxIts int     `json:"MaxIts"`
}

type electrostaticCfg struct {
	Save int `json:"Save"`
}

type solverCfg struct {
	Order         int              `json:"Order"`
	Electrostatic electrostaticCfg `json:"Electrostatic"`
	Linear        linearCfg        `json:"Linear"`
}

type configDoc struct {
	Problem    problemCfg    `json:"Problem"`
	Model      modelCfg      `json:"Model"`
	Domains    domainsCfg    `json:"Domains"`
	Boundaries boundariesCfg `json:"Boundaries"`
	Solver     solverCfg     `json:"Solver"`
}

// Config is a built Palace configuration.
type Config struct {
	doc       configDoc
	terminals []string
}

// Build assembles the electrostatic configuration. Mesh attributes are the
// 1-based resolved layer positions, matching the gmsh script's physical
// volume order. Conductor layers (per the material table) become terminals
// in resolved order unless listed in Options.Ground.
func Build(r *resolve.Resolver, mats materials.Table, opts Options) (*Config, error) {
	if opts.MeshFile == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "mesh file is required")
	}
	if opts.Order == 0 {
		opts.Order = DefaultOrder
	}
	if opts.Order < 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "order must be >= 1, got %d", opts.Order)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir
	}
	if opts.Tolerance == 0 {
		opts.Tolerance = DefaultTolerance
	}
	if err := errors.ValidateNonNegative("tolerance", opts.Tolerance); err != nil {
		return nil, err
	}
	if opts.MaxIterations == 0 {
		opts.MaxIterations = DefaultMaxIterations
	}

	layers, err := r.ResolvedLayers()
	if err != nil {
		return nil, err
	}
	if len(layers) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidGeometry, "no resolved layers")
	}

	grounded := make(map[string]bool, len(opts.Ground))
	for _, name := range opts.Ground {
		if _, err := r.ResolvedLayer(name); err != nil {
			return nil, err
		}
		grounded[name] = true
	}

	doc := configDoc{
		Problem: problemCfg{Type: "Electrostatic", Verbose: 2, Output: opts.OutputDir},
		// Layer coordinates are micrometers.
		Model: modelCfg{Mesh: opts.MeshFile, L0: 1e-6},
		Solver: solverCfg{
			Order:         opts.Order,
			Electrostatic: electrostaticCfg{Save: 2},
			Linear:        linearCfg{Type: "BoomerAMG", Tol: opts.Tolerance, MaxIts: opts.MaxIterations},
		},
	}

	var terminals []string
	for i, nl := range layers {
		attr := i + 1
		if nl.Material == "" {
			return nil, errors.New(errors.ErrCodeInvalidLayer, "layer %q has no material", nl.Name)
		}
		m, err := mats.Get(nl.Material)
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "layer %q", nl.Name)
		}

		switch {
		case m.IsConductor() && grounded[nl.Name]:
			doc.Boundaries.Ground.Attributes = append(doc.Boundaries.Ground.Attributes, attr)
		case m.IsConductor():
			terminals = append(terminals, nl.Name)
			doc.Boundaries.Terminal = append(doc.Boundaries.Terminal, terminalCfg{
				Index:      len(terminals),
				Attributes: []int{attr},
			})
		default:
			doc.Domains.Materials = append(doc.Domains.Materials, materialCfg{
				Attributes:   []int{attr},
				Permittivity: m.Eps(),
			})
		}
	}
	if len(terminals) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"electrostatic problem needs at least one conductor terminal")
	}

	return &Config{doc: doc, terminals: terminals}, nil
}

// Terminals returns the terminal layer names in index order; row i of the
// solved capacitance matrix belongs to Terminals()[i].
func (c *Config) Terminals() []string {
	out := make([]string, len(c.terminals))
	copy(out, c.terminals)
	return out
}

// Write emits the configuration as indented JSON.
func (c *Config) Write(path string) error {
	if err := errors.ValidateOutputPath(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.doc, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode config")
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}

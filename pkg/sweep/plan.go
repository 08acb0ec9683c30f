package sweep

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/resolve"
)

// DefaultMaxJobs caps plans that do not set max_jobs themselves.
const DefaultMaxJobs = 256

// Axis is one swept parameter and the values it takes.
type Axis struct {
	Param  string    `toml:"param"`
	Values []float64 `toml:"values"`
}

// Plan describes a sweep: the input files shared by every point and the
// axes whose cross product forms the points.
type Plan struct {
	Layout    string `toml:"layout"`     // component JSON
	Stack     string `toml:"stack"`      // layer stack TOML
	Materials string `toml:"materials"`  // material table TOML (optional)
	OutputDir string `toml:"output_dir"` // per-job artifacts land here
	MaxJobs   int    `toml:"max_jobs"`   // cross-product cap (default: 256)
	Axes      []Axis `toml:"axes"`
}

// LoadPlan reads a sweep plan from a TOML file.
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "read sweep plan %s", path)
	}
	p, err := DecodePlan(data)
	if err != nil {
		return Plan{}, errors.Wrap(errors.GetCode(err), err, "sweep plan %s", path)
	}
	return p, nil
}

// DecodePlan parses and validates a TOML sweep plan.
func DecodePlan(data []byte) (Plan, error) {
	var p Plan
	if err := toml.Unmarshal(data, &p); err != nil {
		return Plan{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse sweep plan")
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p.WithDefaults(), nil
}

// WithDefaults returns a copy of the plan with zero values replaced by
// defaults.
func (p Plan) WithDefaults() Plan {
	if p.MaxJobs <= 0 {
		p.MaxJobs = DefaultMaxJobs
	}
	return p
}

// Validate checks the axes without touching the referenced files.
func (p Plan) Validate() error {
	if len(p.Axes) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "sweep plan needs at least one axis")
	}
	seen := make(map[string]bool, len(p.Axes))
	for i, ax := range p.Axes {
		if ax.Param == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "axis %d names no param", i+1)
		}
		if seen[ax.Param] {
			return errors.New(errors.ErrCodeInvalidConfig, "axis %q appears twice", ax.Param)
		}
		seen[ax.Param] = true
		if len(ax.Values) == 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "axis %q has no values", ax.Param)
		}
		for _, v := range ax.Values {
			if err := errors.ValidateFinite("axis "+ax.Param, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Expand returns the cross product of the axes as parameter maps, the last
// axis varying fastest, truncated to MaxJobs points.
func (p Plan) Expand() ([]map[string]float64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p = p.WithDefaults()

	total := 1
	for _, ax := range p.Axes {
		total *= len(ax.Values)
		if total >= p.MaxJobs {
			total = p.MaxJobs
			break
		}
	}

	points := make([]map[string]float64, 0, total)
	idx := make([]int, len(p.Axes))
	for len(points) < total {
		pt := make(map[string]float64, len(p.Axes))
		for i, ax := range p.Axes {
			pt[ax.Param] = ax.Values[idx[i]]
		}
		points = append(points, pt)

		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(p.Axes[i].Values) {
				break
			}
			idx[i] = 0
		}
	}
	return points, nil
}

// ApplyParams returns a copy of cfg with the named geometry knobs
// overridden. Axis params address resolver fields by snake_case name;
// unknown names are rejected so a misspelled plan fails before any job
// runs.
func ApplyParams(cfg resolve.Config, params map[string]float64) (resolve.Config, error) {
	for name, v := range params {
		if err := errors.ValidateFinite("param "+name, v); err != nil {
			return resolve.Config{}, err
		}
		switch name {
		case "extend_ports":
			cfg.ExtendPorts = v
		case "port_offset":
			cfg.PortOffset = v
		case "pad_xy_inner":
			cfg.PadXYInner = v
		case "pad_xy_outer":
			cfg.PadXYOuter = v
		case "pad_z_inner":
			cfg.PadZInner = v
		case "pad_z_outer":
			cfg.PadZOuter = v
		case "simplify_tol":
			cfg.SimplifyTol = v
		case "round_digits":
			cfg.RoundDigits = int(v)
		default:
			return resolve.Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown sweep parameter %q", name)
		}
	}
	return cfg, nil
}

package fdtd

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/layout"
	"github.com/gdsfactory/gplugins-go/pkg/materials"
	"github.com/gdsfactory/gplugins-go/pkg/resolve"
)

// Defaults for the wavelength band and port mode planes.
const (
	DefaultWavelengthStart  = 1.5
	DefaultWavelengthStop   = 1.6
	DefaultWavelengthPoints = 50
	DefaultPortMargin       = 0.5
	DefaultBackground       = "air"
)

// Options configures spec building.
type Options struct {
	// Sources names the input ports that get a modal source. Empty means
	// the first port in name order.
	Sources []string
	// Wavelength band in micrometers (zero values mean the defaults).
	WavelengthStart  float64
	WavelengthStop   float64
	WavelengthPoints int
	// Z positions sources and monitors; the zero value is ZAuto.
	Z ZRef
	// PML is the absorbing boundary thickness. 0 means the resolver's
	// PadXYOuter.
	PML float64
	// PortMargin widens each mode plane on both cross axes.
	// 0 means DefaultPortMargin; negative disables.
	PortMargin float64
	// Background names the medium outside all structures, and the wafer
	// slab material when the resolver has a wafer layer. "" means air.
	Background string
}

// Medium is a material name with its relative permittivity.
type Medium struct {
	Material     string  `json:"material"`
	Permittivity float64 `json:"permittivity"`
}

// Structure is one resolved layer as an extruded slab.
type Structure struct {
	Name string `json:"name"`
	Medium
	Zmin  float64          `json:"zmin"`
	Zmax  float64          `json:"zmax"`
	Rings []layout.Polygon `json:"rings"`
}

// ModePort is a source or monitor plane at a port.
type ModePort struct {
	Name      string         `json:"name"`
	Center    resolve.Point3 `json:"center"`
	Size      [3]float64     `json:"size"`
	Direction string         `json:"direction"`
}

// Band is the simulated wavelength range in micrometers.
type Band struct {
	Start  float64 `json:"start_um"`
	Stop   float64 `json:"stop_um"`
	Points int     `json:"points"`
}

// Spec is the solver-independent simulation document.
type Spec struct {
	Component   string      `json:"component"`
	Box         resolve.Box `json:"box"`
	Background  Medium      `json:"background"`
	Structures  []Structure `json:"structures"`
	Sources     []ModePort  `json:"sources"`
	Monitors    []ModePort  `json:"monitors"`
	Wavelengths Band        `json:"wavelengths"`
	PML         float64     `json:"pml_um"`
}

// Build assembles a Spec from the resolver and material table. Ports must be
// axis-aligned; the geometry and z positions come entirely from the
// resolver's derived properties.
func Build(r *resolve.Resolver, mats materials.Table, opts Options) (*Spec, error) {
	if err := normalizeOptions(&opts); err != nil {
		return nil, err
	}

	box, err := r.BoundingBox()
	if err != nil {
		return nil, err
	}
	background, err := medium(mats, opts.Background)
	if err != nil {
		return nil, err
	}
	structures, err := buildStructures(r, mats, opts, box)
	if err != nil {
		return nil, err
	}
	sources, monitors, err := buildPorts(r, opts)
	if err != nil {
		return nil, err
	}

	pml := opts.PML
	if pml == 0 {
		pml = r.Config().PadXYOuter
	}

	return &Spec{
		Component:  r.Config().Component.Name,
		Box:        box,
		Background: background,
		Structures: structures,
		Sources:    sources,
		Monitors:   monitors,
		Wavelengths: Band{
			Start:  opts.WavelengthStart,
			Stop:   opts.WavelengthStop,
			Points: opts.WavelengthPoints,
		},
		PML: pml,
	}, nil
}

func normalizeOptions(opts *Options) error {
	if opts.WavelengthStart == 0 {
		opts.WavelengthStart = DefaultWavelengthStart
	}
	if opts.WavelengthStop == 0 {
		opts.WavelengthStop = DefaultWavelengthStop
	}
	if opts.WavelengthPoints == 0 {
		opts.WavelengthPoints = DefaultWavelengthPoints
	}
	if opts.PortMargin == 0 {
		opts.PortMargin = DefaultPortMargin
	}
	if opts.PortMargin < 0 {
		opts.PortMargin = 0
	}
	if opts.Background == "" {
		opts.Background = DefaultBackground
	}

	if err := errors.ValidateNonNegative("wavelength start", opts.WavelengthStart); err != nil {
		return err
	}
	if opts.WavelengthStop <= opts.WavelengthStart {
		return errors.New(errors.ErrCodeInvalidConfig,
			"wavelength stop %v must exceed start %v", opts.WavelengthStop, opts.WavelengthStart)
	}
	if opts.WavelengthPoints < 2 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"wavelength points must be >= 2, got %d", opts.WavelengthPoints)
	}
	if err := errors.ValidateNonNegative("pml", opts.PML); err != nil {
		return err
	}
	return nil
}

func medium(mats materials.Table, name string) (Medium, error) {
	m, err := mats.Get(name)
	if err != nil {
		return Medium{}, err
	}
	return Medium{Material: name, Permittivity: m.Eps()}, nil
}

// buildStructures emits one slab per resolved layer, z widened at the stack
// extremes so outermost layers reach the boundary, plus the wafer slab when
// the resolver defines one.
func buildStructures(r *resolve.Resolver, mats materials.Table, opts Options, box resolve.Box) ([]Structure, error) {
	layers, err := r.ResolvedLayers()
	if err != nil {
		return nil, err
	}
	sim, err := r.SimulationPolygons()
	if err != nil {
		return nil, err
	}

	var structures []Structure
	if wafer, ok := sim[r.Config().WaferName]; ok {
		med, err := medium(mats, opts.Background)
		if err != nil {
			return nil, err
		}
		structures = append(structures, Structure{
			Name:   r.Config().WaferName,
			Medium: med,
			Zmin:   box.Min.Z,
			Zmax:   box.Max.Z,
			Rings:  layout.RingsFromGeom(wafer),
		})
	}

	for _, nl := range layers {
		if nl.Material == "" {
			return nil, errors.New(errors.ErrCodeInvalidLayer,
				"layer %q has no material", nl.Name)
		}
		med, err := medium(mats, nl.Material)
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "layer %q", nl.Name)
		}
		lb, err := r.LayerBBox(nl.Name)
		if err != nil {
			return nil, err
		}
		structures = append(structures, Structure{
			Name:   nl.Name,
			Medium: med,
			Zmin:   lb.Min.Z,
			Zmax:   lb.Max.Z,
			Rings:  layout.RingsFromGeom(sim[nl.Name]),
		})
	}
	return structures, nil
}

func buildPorts(r *resolve.Resolver, opts Options) (sources, monitors []ModePort, err error) {
	ports := r.Config().Component.Ports
	if len(ports) == 0 {
		return nil, nil, errors.New(errors.ErrCodeInvalidPort,
			"component %q has no ports", r.Config().Component.Name)
	}

	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.Name
	}
	sort.Strings(names)

	sourceNames := opts.Sources
	if len(sourceNames) == 0 {
		sourceNames = names[:1]
	}
	isSource := make(map[string]bool, len(sourceNames))
	for _, name := range sourceNames {
		if _, err := r.Config().Component.Port(name); err != nil {
			return nil, nil, err
		}
		isSource[name] = true
	}

	for _, name := range names {
		mp, err := modePort(r, opts, name)
		if err != nil {
			return nil, nil, err
		}
		monitors = append(monitors, mp)
		if isSource[name] {
			// The source injects toward the device, against the port's
			// outward orientation.
			mp.Direction = flipDirection(mp.Direction)
			sources = append(sources, mp)
		}
	}
	return sources, monitors, nil
}

func modePort(r *resolve.Resolver, opts Options, name string) (ModePort, error) {
	port, err := r.Config().Component.Port(name)
	if err != nil {
		return ModePort{}, err
	}

	dx, dy := port.Direction()
	dir, ok := axisDirection(dx, dy)
	if !ok {
		return ModePort{}, errors.New(errors.ErrCodeUnsupported,
			"port %q orientation %v is not axis-aligned", name, port.Orientation)
	}

	center, err := r.PortCenter3D(name)
	if err != nil {
		return ModePort{}, err
	}
	center.Z, err = opts.Z.resolve(r, name)
	if err != nil {
		return ModePort{}, err
	}

	stackLayer, err := r.Config().Stack.Get(port.StackLayer())
	if err != nil {
		return ModePort{}, err
	}
	lo, hi, _ := stackLayer.ZRange()

	width := port.Width + 2*opts.PortMargin
	height := hi - lo + 2*opts.PortMargin
	size := [3]float64{0, width, height}
	if dir == "y+" || dir == "y-" {
		size = [3]float64{width, 0, height}
	}

	return ModePort{Name: name, Center: center, Size: size, Direction: dir}, nil
}

func axisDirection(dx, dy float64) (string, bool) {
	switch {
	case dx == 1 && dy == 0:
		return "x+", true
	case dx == -1 && dy == 0:
		return "x-", true
	case dx == 0 && dy == 1:
		return "y+", true
	case dx == 0 && dy == -1:
		return "y-", true
	}
	return "", false
}

func flipDirection(dir string) string {
	switch dir {
	case "x+":
		return "x-"
	case "x-":
		return "x+"
	case "y+":
		return "y-"
	default:
		return "y+"
	}
}

// Write emits the spec as indented JSON.
func (s *Spec) Write(path string) error {
	if err := errors.ValidateOutputPath(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode spec")
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}

package resolve

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/ctessum/geom"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/layerstack"
	"github.com/gdsfactory/gplugins-go/pkg/layout"
)

// Defaults applied by New when Config fields are zero.
const (
	DefaultRoundDigits = 3
	DefaultSimplifyTol = 1e-3
	DefaultWaferName   = "wafer"
)

// Config describes one resolution. All lengths are micrometers.
// Component and Stack are treated as read-only.
type Config struct {
	Component *layout.Component
	Stack     layerstack.LayerStack

	// ExtendPorts extends port-attached waveguides outward before the
	// bounding box is computed, so absorbing boundaries do not clip the mode.
	ExtendPorts float64
	// PortOffset pulls the reported port center back along its orientation,
	// placing sources away from boundary artifacts.
	PortOffset float64

	// PadXYInner pads bbox sides that port extension left unchanged.
	// PadXYOuter pads all four sides, after the inner rule.
	PadXYInner float64
	PadXYOuter float64

	// PadZInner inflates the resolved z-range at both extremes; negative
	// values express an intentional under-cut. PadZOuter adds uniformly
	// after it.
	PadZInner float64
	PadZOuter float64

	// WaferLayer, when set, draws a background rectangle at the padded XY
	// bbox into SimulationPolygons under WaferName.
	WaferLayer layout.LayerID
	WaferName  string

	// RoundDigits is the decimal digit count polygon coordinates are rounded
	// to before union (0 means the default). SimplifyTol is the
	// topology-preserving simplification tolerance applied after union.
	RoundDigits int
	SimplifyTol float64
}

// NamedLayer pairs a stack layer with its name, preserving resolution order
// when collected in a slice. Its JSON form is flat:
// {"name": "core", "gds": "1/0", "zmin": 0, ...}.
type NamedLayer struct {
	Name string `json:"name"`
	layerstack.Layer
}

// Resolver derives 3D geometry from an immutable Config. Construct with New;
// the zero value is not usable. Derived properties are memoized on first
// access; concurrent first access is safe.
type Resolver struct {
	cfg Config

	fuseOnce sync.Once
	fused    map[string]geom.Polygon
	fuseErr  error

	layersOnce sync.Once
	layers     []NamedLayer
	layersErr  error

	bboxOnce sync.Once
	bbox     Box
	bboxErr  error

	simOnce sync.Once
	sim     map[string]geom.Polygon
	simErr  error
}

// New validates the configuration and returns an immutable Resolver.
// Configuration errors (a port referencing a layer absent from the stack,
// geometry on a layer without zmin/thickness, non-finite or negative padding)
// are reported here, naming the offender.
func New(cfg Config) (*Resolver, error) {
	if cfg.Component == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "resolver requires a component")
	}
	if err := cfg.Component.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Stack.Validate(); err != nil {
		return nil, err
	}

	if err := errors.ValidateNonNegative("extend_ports", cfg.ExtendPorts); err != nil {
		return nil, err
	}
	if err := errors.ValidateFinite("port_offset", cfg.PortOffset); err != nil {
		return nil, err
	}
	if err := errors.ValidateNonNegative("pad_xy_inner", cfg.PadXYInner); err != nil {
		return nil, err
	}
	if err := errors.ValidateNonNegative("pad_xy_outer", cfg.PadXYOuter); err != nil {
		return nil, err
	}
	if err := errors.ValidateFinite("pad_z_inner", cfg.PadZInner); err != nil {
		return nil, err
	}
	if err := errors.ValidateNonNegative("pad_z_outer", cfg.PadZOuter); err != nil {
		return nil, err
	}

	if cfg.RoundDigits < 0 || cfg.RoundDigits > 9 {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"round_digits %d out of range [0, 9]", cfg.RoundDigits)
	}
	if cfg.RoundDigits == 0 {
		cfg.RoundDigits = DefaultRoundDigits
	}
	if err := errors.ValidateFinite("simplify_tol", cfg.SimplifyTol); err != nil {
		return nil, err
	}
	if cfg.SimplifyTol < 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"simplify_tol must be >= 0, got %v", cfg.SimplifyTol)
	}
	if cfg.SimplifyTol == 0 {
		cfg.SimplifyTol = DefaultSimplifyTol
	}
	if cfg.WaferName == "" {
		cfg.WaferName = DefaultWaferName
	}
	if err := errors.ValidateLayerName(cfg.WaferName); err != nil {
		return nil, err
	}

	// Every port must reference a stack layer, and every stack layer carrying
	// geometry must have a vertical position. Both are configuration errors,
	// caught before any solver time is spent.
	for _, port := range cfg.Component.Ports {
		name := port.StackLayer()
		if !cfg.Stack.Has(name) {
			return nil, errors.New(errors.ErrCodeInvalidLayer,
				"port %q references layer %q not present in layer stack", port.Name, name)
		}
	}
	for _, name := range cfg.Stack.Names() {
		l := cfg.Stack.Layers[name]
		if cfg.Component.HasLayer(l.GDS) && !l.HasZ() {
			return nil, errors.New(errors.ErrCodeInvalidLayer,
				"layer %q has geometry on %s but no zmin/thickness", name, l.GDS)
		}
	}

	return &Resolver{cfg: cfg}, nil
}

// Config returns a copy of the normalized configuration.
func (r *Resolver) Config() Config {
	return r.cfg
}

// ResolvedLayers returns the stack subset that carries geometry and a
// vertical position, sorted ascending by zmin+thickness with ties broken by
// name. The result is shared; callers must not modify it.
func (r *Resolver) ResolvedLayers() ([]NamedLayer, error) {
	r.layersOnce.Do(func() { r.layers, r.layersErr = r.computeResolvedLayers() })
	return r.layers, r.layersErr
}

func (r *Resolver) computeResolvedLayers() ([]NamedLayer, error) {
	fused, err := r.FusedPolygons()
	if err != nil {
		return nil, err
	}

	layers := make([]NamedLayer, 0, len(fused))
	for _, name := range r.cfg.Stack.Names() {
		l := r.cfg.Stack.Layers[name]
		if _, ok := fused[name]; !ok {
			continue
		}
		if !l.HasZ() {
			continue
		}
		layers = append(layers, NamedLayer{Name: name, Layer: l})
	}

	sort.SliceStable(layers, func(i, j int) bool {
		ki, _ := layers[i].SortKey()
		kj, _ := layers[j].SortKey()
		if ki != kj {
			return ki < kj
		}
		return layers[i].Name < layers[j].Name
	})
	return layers, nil
}

// ResolvedLayer returns the named entry of ResolvedLayers.
func (r *Resolver) ResolvedLayer(name string) (NamedLayer, error) {
	layers, err := r.ResolvedLayers()
	if err != nil {
		return NamedLayer{}, err
	}
	for _, nl := range layers {
		if nl.Name == name {
			return nl, nil
		}
	}
	return NamedLayer{}, errors.New(errors.ErrCodeLayerNotFound,
		"layer %q not in resolved layers", name)
}

// MarshalResolvedLayers serializes ResolvedLayers as a name-ordered JSON
// list. The list alone carries everything needed to re-derive the bounding
// box for the same component and padding (see StackFromResolved).
func (r *Resolver) MarshalResolvedLayers() ([]byte, error) {
	layers, err := r.ResolvedLayers()
	if err != nil {
		return nil, err
	}
	byName := make([]NamedLayer, len(layers))
	copy(byName, layers)
	sort.Slice(byName, func(i, j int) bool { return byName[i].Name < byName[j].Name })
	data, err := json.MarshalIndent(byName, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode resolved layers")
	}
	return data, nil
}

// UnmarshalResolvedLayers parses a list produced by MarshalResolvedLayers.
func UnmarshalResolvedLayers(data []byte) ([]NamedLayer, error) {
	var layers []NamedLayer
	if err := json.Unmarshal(data, &layers); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode resolved layers")
	}
	return layers, nil
}

// StackFromResolved rebuilds a layer stack from serialized resolved layers.
// Resolving the same component against it reproduces the original bounding
// box without touching the full unfiltered stack.
func StackFromResolved(layers []NamedLayer) layerstack.LayerStack {
	m := make(map[string]layerstack.Layer, len(layers))
	for _, nl := range layers {
		m[nl.Name] = nl.Layer
	}
	return layerstack.New(m)
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/gdsfactory/gplugins-go/pkg/layerstack"
	"github.com/gdsfactory/gplugins-go/pkg/layout"
	"github.com/gdsfactory/gplugins-go/pkg/materials"
	"github.com/gdsfactory/gplugins-go/pkg/resolve"
)

// geometryFlags holds the flags every geometry-consuming command shares:
// where the stack and materials live, and how the resolver should pad and
// extend the layout.
type geometryFlags struct {
	stackPath   string
	lypPath     string
	matsPath    string
	extendPorts float64
	portOffset  float64
	padXYInner  float64
	padXYOuter  float64
	padZInner   float64
	padZOuter   float64
	waferLayer  string
	waferName   string
	roundDigits int
	simplifyTol float64
}

// register wires the shared geometry flags onto a command. --stack is
// required; everything else defaults to the resolver's own defaults.
func (g *geometryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&g.stackPath, "stack", "s", "", "layer stack TOML file")
	cmd.Flags().StringVar(&g.lypPath, "lyp", "", "KLayout .lyp file to merge layer ids from")
	cmd.Flags().StringVarP(&g.matsPath, "materials", "m", "", "material table TOML file (built-in table when omitted)")
	cmd.Flags().Float64Var(&g.extendPorts, "extend-ports", 0, "extend port waveguides outward by this length (µm)")
	cmd.Flags().Float64Var(&g.portOffset, "port-offset", 0, "pull reported port centers inward (µm)")
	cmd.Flags().Float64Var(&g.padXYInner, "pad-xy-inner", 0, "pad unextended bbox sides (µm)")
	cmd.Flags().Float64Var(&g.padXYOuter, "pad-xy-outer", 0, "pad all bbox sides (µm)")
	cmd.Flags().Float64Var(&g.padZInner, "pad-z-inner", 0, "inflate the z-range at both extremes (µm)")
	cmd.Flags().Float64Var(&g.padZOuter, "pad-z-outer", 0, "pad the z-range uniformly (µm)")
	cmd.Flags().StringVar(&g.waferLayer, "wafer-layer", "", "GDS id for a synthetic wafer background (e.g. 999/0)")
	cmd.Flags().StringVar(&g.waferName, "wafer-name", resolve.DefaultWaferName, "stack name for the wafer background")
	cmd.Flags().IntVar(&g.roundDigits, "round-digits", 0, "coordinate rounding digits (0 for default)")
	cmd.Flags().Float64Var(&g.simplifyTol, "simplify-tol", 0, "polygon simplification tolerance (0 for default)")
	_ = cmd.MarkFlagRequired("stack")
}

// load reads the component and the layer stack, merging .lyp ids into the
// stack when one was given.
func (g *geometryFlags) load(componentPath string) (*layout.Component, layerstack.LayerStack, error) {
	comp, err := layout.ReadComponent(componentPath)
	if err != nil {
		return nil, layerstack.LayerStack{}, err
	}
	stack, err := layerstack.Load(g.stackPath)
	if err != nil {
		return nil, layerstack.LayerStack{}, err
	}
	if g.lypPath != "" {
		ids, err := layerstack.ReadLyp(g.lypPath)
		if err != nil {
			return nil, layerstack.LayerStack{}, err
		}
		stack, err = layerstack.MergeProperties(ids, stack)
		if err != nil {
			return nil, layerstack.LayerStack{}, err
		}
	}
	return comp, stack, nil
}

// config builds the resolver configuration from the flags.
func (g *geometryFlags) config() (resolve.Config, error) {
	cfg := resolve.Config{
		ExtendPorts: g.extendPorts,
		PortOffset:  g.portOffset,
		PadXYInner:  g.padXYInner,
		PadXYOuter:  g.padXYOuter,
		PadZInner:   g.padZInner,
		PadZOuter:   g.padZOuter,
		WaferName:   g.waferName,
		RoundDigits: g.roundDigits,
		SimplifyTol: g.simplifyTol,
	}
	if g.waferLayer != "" {
		id, err := layout.ParseLayerID(g.waferLayer)
		if err != nil {
			return resolve.Config{}, err
		}
		cfg.WaferLayer = id
	}
	return cfg, nil
}

// newResolver loads the inputs and constructs a resolver from them.
func (g *geometryFlags) newResolver(componentPath string) (*resolve.Resolver, error) {
	comp, stack, err := g.load(componentPath)
	if err != nil {
		return nil, err
	}
	cfg, err := g.config()
	if err != nil {
		return nil, err
	}
	cfg.Component = comp
	cfg.Stack = stack
	return resolve.New(cfg)
}

// materialTable loads the material table, falling back to the built-in one.
func (g *geometryFlags) materialTable() (materials.Table, error) {
	if g.matsPath == "" {
		return materials.Default(), nil
	}
	return materials.Load(g.matsPath)
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gdsfactory/gplugins-go/pkg/resolve"
)

// =============================================================================
// resolve - Resolve a layout against a layer stack
// =============================================================================

// resolveReport is the JSON shape emitted by resolve --json.
type resolveReport struct {
	Component string                    `json:"component"`
	Box       resolve.Box               `json:"box"`
	Layers    []resolve.NamedLayer      `json:"layers"`
	Ports     map[string]resolve.Point3 `json:"ports,omitempty"`
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	var (
		geo     geometryFlags
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <component.json>",
		Short: "Resolve a 2D layout into 3D geometry",
		Long: `Resolve a 2D component layout against a layer stack into 3D geometry:
fused per-layer polygons, the simulation bounding box, and 3D port centers.

Examples:
  gplugins resolve coupler.json --stack stack.toml
  gplugins resolve coupler.json -s stack.toml --extend-ports 1.0 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := geo.newResolver(args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeResolveJSON(cmd.OutOrStdout(), r)
			}
			return c.printResolved(args[0], r)
		},
	}

	geo.register(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the resolved geometry as JSON")

	return cmd
}

// writeResolveJSON emits the full resolution report to w.
func writeResolveJSON(w io.Writer, r *resolve.Resolver) error {
	layers, err := r.ResolvedLayers()
	if err != nil {
		return err
	}
	box, err := r.BoundingBox()
	if err != nil {
		return err
	}
	ports, err := r.PortCenters3D()
	if err != nil {
		return err
	}

	report := resolveReport{
		Component: r.Config().Component.Name,
		Box:       box,
		Layers:    layers,
		Ports:     ports,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// printResolved renders the resolution result for humans.
func (c *CLI) printResolved(path string, r *resolve.Resolver) error {
	layers, err := r.ResolvedLayers()
	if err != nil {
		return err
	}
	box, err := r.BoundingBox()
	if err != nil {
		return err
	}
	ports, err := r.PortCenters3D()
	if err != nil {
		return err
	}

	printSuccess("Resolved %s: %d layers", path, len(layers))
	printNewline()

	t := newTable("Layer", "GDS", "Zmin", "Zmax", "Material")
	for _, l := range layers {
		zmin, zmax := "—", "—"
		if lo, hi, ok := l.ZRange(); ok {
			zmin = fmt.Sprintf("%g", lo)
			zmax = fmt.Sprintf("%g", hi)
		}
		t.Row(l.Name, l.GDS.String(), zmin, zmax, materialLabel(l.Material))
	}
	fmt.Println(t.Render())
	printNewline()

	printKeyValue("Box", box.String())

	names := make([]string, 0, len(ports))
	for name := range ports {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := ports[name]
		printKeyValue("Port "+name, fmt.Sprintf("(%g, %g, %g)", p.X, p.Y, p.Z))
	}

	return nil
}

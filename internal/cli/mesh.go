package cli

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/gmsh"
	"github.com/gdsfactory/gplugins-go/pkg/tool"
)

// =============================================================================
// mesh - Generate gmsh scripts
// =============================================================================

// gmshTimeout bounds a gmsh run started with --run.
const gmshTimeout = 10 * time.Minute

// meshCommand creates the mesh command.
func (c *CLI) meshCommand() *cobra.Command {
	var (
		geo      geometryFlags
		output   string
		run      bool
		lc       float64
		lcLayers []string
	)

	cmd := &cobra.Command{
		Use:   "mesh <component.json>",
		Short: "Write a gmsh script for the resolved geometry",
		Long: `Write a gmsh .geo script describing the resolved 3D geometry, one volume
per layer with characteristic mesh lengths.

Examples:
  gplugins mesh coupler.json --stack stack.toml
  gplugins mesh coupler.json -s stack.toml --lc 0.5 --lc-layer core=0.05 --run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := geo.newResolver(args[0])
			if err != nil {
				return err
			}

			lengths, err := parseLayerLengths(lcLayers)
			if err != nil {
				return err
			}

			if output == "" {
				output = replaceExt(args[0], ".geo")
			}
			if err := gmsh.Write(output, r, gmsh.Options{DefaultLength: lc, LayerLength: lengths}); err != nil {
				return err
			}
			printSuccess("Wrote mesh script")
			printFile(output)

			if !run {
				printNextStep("Mesh", "gmsh -3 "+output)
				return nil
			}
			return c.runGmsh(cmd.Context(), output)
		},
	}

	geo.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: component path with .geo)")
	cmd.Flags().BoolVar(&run, "run", false, "run gmsh on the script after writing it")
	cmd.Flags().Float64Var(&lc, "lc", 0, "default characteristic mesh length in µm (0 for default)")
	cmd.Flags().StringArrayVar(&lcLayers, "lc-layer", nil, "per-layer mesh length as name=length (repeatable)")

	return cmd
}

// runGmsh meshes the script with a local gmsh binary.
func (c *CLI) runGmsh(ctx context.Context, script string) error {
	if !tool.Available("gmsh") {
		return errors.New(errors.ErrCodeTool, "gmsh not found in PATH")
	}

	meshPath := replaceExt(script, ".msh")
	sp := newSpinner(ctx, "Meshing...")
	out, err := tool.Run(ctx, tool.Command{
		Name:    "gmsh",
		Args:    []string{"-3", "-format", "msh2", script, "-o", meshPath},
		Timeout: gmshTimeout,
		Logger:  c.Logger.Debugf,
	})
	if err != nil {
		sp.StopWithError("gmsh failed")
		return err
	}

	sp.StopWithSuccess("Meshed in %s", out.Duration.Round(time.Millisecond))
	printFile(meshPath)
	return nil
}

// parseLayerLengths parses repeated name=length flags into a length table.
func parseLayerLengths(specs []string) (map[string]float64, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	lengths := make(map[string]float64, len(specs))
	for _, spec := range specs {
		name, val, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"layer length %q not in name=length form", spec)
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"layer length %q: %v", spec, err)
		}
		lengths[name] = f
	}
	return lengths, nil
}

// replaceExt swaps path's extension for ext.
func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

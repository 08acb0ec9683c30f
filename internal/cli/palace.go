package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gdsfactory/gplugins-go/pkg/palace"
)

// =============================================================================
// palace - Electrostatic FEM configs and results
// =============================================================================

// palaceCommand creates the palace command with its parse subcommand.
func (c *CLI) palaceCommand() *cobra.Command {
	var (
		geo     geometryFlags
		output  string
		mesh    string
		ground  []string
		order   int
		tol     float64
		maxIter int
	)

	cmd := &cobra.Command{
		Use:   "palace <component.json>",
		Short: "Build a Palace electrostatic config",
		Long: `Build a Palace electrostatic FEM config from the resolved geometry.
Conductor layers become terminals unless listed as ground; the solver
produces a Maxwell capacitance matrix.

Examples:
  gplugins palace pads.json --stack stack.toml --mesh pads.msh
  gplugins palace pads.json -s stack.toml --mesh pads.msh --ground substrate`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := geo.newResolver(args[0])
			if err != nil {
				return err
			}
			mats, err := geo.materialTable()
			if err != nil {
				return err
			}

			cfg, err := palace.Build(r, mats, palace.Options{
				MeshFile:      mesh,
				Ground:        ground,
				Order:         order,
				Tolerance:     tol,
				MaxIterations: maxIter,
			})
			if err != nil {
				return err
			}

			if output == "" {
				output = replaceExt(args[0], ".palace.json")
			}
			if err := cfg.Write(output); err != nil {
				return err
			}
			printSuccess("Wrote Palace config")
			printFile(output)
			printDetail("terminals: %s", strings.Join(cfg.Terminals(), ", "))
			printNextStep("Solve", "palace "+output)
			return nil
		},
	}

	geo.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: component path with .palace.json)")
	cmd.Flags().StringVar(&mesh, "mesh", "", "mesh file the config references")
	cmd.Flags().StringSliceVar(&ground, "ground", nil, "conductor layers tied to ground (repeatable)")
	cmd.Flags().IntVar(&order, "order", 0, "FEM element order (0 for default)")
	cmd.Flags().Float64Var(&tol, "tol", 0, "linear solver tolerance (0 for default)")
	cmd.Flags().IntVar(&maxIter, "max-iter", 0, "linear solver iteration cap (0 for default)")
	_ = cmd.MarkFlagRequired("mesh")

	cmd.AddCommand(c.palaceParseCommand())

	return cmd
}

// palaceParseCommand creates the palace parse subcommand.
func (c *CLI) palaceParseCommand() *cobra.Command {
	var (
		terminals []string
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "parse <terminal-C.csv>",
		Short: "Parse a Palace capacitance matrix",
		Long: `Parse the terminal-C.csv a Palace electrostatic run writes and print the
capacitance matrix in femtofarads.

Examples:
  gplugins palace parse postpro/terminal-C.csv
  gplugins palace parse postpro/terminal-C.csv --terminals pad_a,pad_b --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cm, err := palace.ReadCapMatrix(args[0], terminals)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeCapJSON(cmd.OutOrStdout(), cm)
			}
			printCapMatrix(cm)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&terminals, "terminals", nil, "terminal names in solver order")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the matrix as JSON")

	return cmd
}

// writeCapJSON emits the capacitance matrix in farads.
func writeCapJSON(w io.Writer, cm *palace.CapMatrix) error {
	n := len(cm.Terminals)
	farads := make([][]float64, n)
	for i := 0; i < n; i++ {
		farads[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			farads[i][j] = cm.M.At(i, j)
		}
	}

	report := struct {
		Terminals []string    `json:"terminals"`
		Farads    [][]float64 `json:"farads"`
	}{Terminals: cm.Terminals, Farads: farads}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// printCapMatrix renders the matrix in femtofarads.
func printCapMatrix(cm *palace.CapMatrix) {
	headers := append([]string{"fF"}, cm.Terminals...)
	t := newTable(headers...)
	for i, name := range cm.Terminals {
		row := make([]string, 0, len(cm.Terminals)+1)
		row = append(row, name)
		for j := range cm.Terminals {
			row = append(row, fmt.Sprintf("%.4g", cm.M.At(i, j)*1e15))
		}
		t.Row(row...)
	}
	fmt.Println(t.Render())
	printDetail("diagonal: self capacitance; off-diagonal: -C_mutual")
}

package cli

import (
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/gdsfactory/gplugins-go/pkg/layerstack"
	"github.com/gdsfactory/gplugins-go/pkg/materials"
)

// =============================================================================
// stack - Inspect layer stacks
// =============================================================================

// stackCommand creates the stack command group.
func (c *CLI) stackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stack",
		Short: "Inspect layer stacks",
	}

	cmd.AddCommand(c.stackShowCommand())

	return cmd
}

// stackShowCommand creates the stack show command.
func (c *CLI) stackShowCommand() *cobra.Command {
	var (
		lypPath     string
		matsPath    string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "show <stack.toml>",
		Short: "Show a layer stack as a table",
		Long: `Show the layers of a stack TOML file, ordered bottom-up.

Examples:
  gplugins stack show stack.toml
  gplugins stack show stack.toml --lyp tech.lyp --interactive`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := layerstack.Load(args[0])
			if err != nil {
				return err
			}
			if lypPath != "" {
				ids, err := layerstack.ReadLyp(lypPath)
				if err != nil {
					return err
				}
				stack, err = layerstack.MergeProperties(ids, stack)
				if err != nil {
					return err
				}
			}

			mats := materials.Default()
			if matsPath != "" {
				mats, err = materials.Load(matsPath)
				if err != nil {
					return err
				}
			}

			if interactive {
				_, err := tea.NewProgram(NewStackModel(stack, mats)).Run()
				return err
			}
			return c.printStack(args[0], stack)
		},
	}

	cmd.Flags().StringVar(&lypPath, "lyp", "", "KLayout .lyp file to merge layer ids from")
	cmd.Flags().StringVarP(&matsPath, "materials", "m", "", "material table TOML file")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse the stack interactively")

	return cmd
}

// printStack renders a stack as a static table.
func (c *CLI) printStack(path string, stack layerstack.LayerStack) error {
	if err := stack.Validate(); err != nil {
		printWarning("%v", err)
	}

	rows := stackRows(stack)
	printSuccess("%s: %d layers", path, len(rows))
	printNewline()

	t := newTable("Layer", "GDS", "Zmin", "Thickness", "Material", "Order")
	for _, r := range rows {
		order := "—"
		if r.layer.MeshOrder != 0 {
			order = strconv.Itoa(r.layer.MeshOrder)
		}
		t.Row(
			r.name,
			r.layer.GDS.String(),
			formatZ(r.layer.Zmin),
			formatZ(r.layer.Thickness),
			materialLabel(r.layer.Material),
			order,
		)
	}
	fmt.Println(t.Render())

	if lo, hi, ok := stack.ZExtent(); ok {
		printDetail("z extent %g to %g µm", lo, hi)
	}

	return nil
}

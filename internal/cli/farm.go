package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gdsfactory/gplugins-go/internal/farm"
	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/tool"
)

// =============================================================================
// farm - Local simulation farm
// =============================================================================

// farmCommand creates the farm command group.
func (c *CLI) farmCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "farm",
		Short: "Run a local simulation farm",
	}

	cmd.AddCommand(c.farmServeCommand())

	return cmd
}

// farmServeCommand creates the farm serve command.
func (c *CLI) farmServeCommand() *cobra.Command {
	var (
		addr    string
		workers int
		queue   int
		workDir string
	)

	cmd := &cobra.Command{
		Use:   "serve -- solver args...",
		Short: "Serve the simulation API backed by a local solver",
		Long: `Serve the same HTTP API a hosted simulation service exposes, running
submitted specs through a local solver command. The solver is invoked per
task in its own work directory with the spec as spec.json; it writes
sparams.csv when done.

Examples:
  gplugins farm serve -- fdtd-solver --threads 4
  gplugins farm serve --addr :9000 --workers 4 -- mock-solver.sh`,
		RunE: func(cmd *cobra.Command, args []string) error {
			at := cmd.ArgsLenAtDash()
			if at < 0 || len(args[at:]) == 0 {
				return errors.New(errors.ErrCodeInvalidConfig,
					"farm serve needs a solver command after --")
			}
			solver := args[at:]

			runner := farm.ToolRunner(workDir, tool.Command{
				Name:   solver[0],
				Args:   solver[1:],
				Logger: c.Logger.Debugf,
			})
			srv, err := farm.NewServer(farm.Options{
				Addr:     addr,
				Workers:  workers,
				QueueCap: queue,
				Runner:   runner,
				Logger:   c.Logger,
			})
			if err != nil {
				return err
			}

			printInfo("Farm listening on %s", addr)
			printDetail("solver: %s", strings.Join(solver, " "))
			printDetail("work dir: %s", workDir)
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", farm.DefaultAddr, "listen address")
	cmd.Flags().IntVar(&workers, "workers", 0, "solver pool size (0 for default)")
	cmd.Flags().IntVar(&queue, "queue", 0, "pending submission cap (0 for default)")
	cmd.Flags().StringVar(&workDir, "work-dir", filepath.Join(os.TempDir(), appName+"-farm"), "per-task work directories live here")

	return cmd
}

package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/layerstack"
	"github.com/gdsfactory/gplugins-go/pkg/layout"
	"github.com/gdsfactory/gplugins-go/pkg/materials"
	"github.com/gdsfactory/gplugins-go/pkg/pipeline"
	"github.com/gdsfactory/gplugins-go/pkg/resolve"
	"github.com/gdsfactory/gplugins-go/pkg/sweep"
	"github.com/gdsfactory/gplugins-go/pkg/tool"
)

// =============================================================================
// sweep - Run parameter sweeps
// =============================================================================

// sweepCommand creates the sweep command.
func (c *CLI) sweepCommand() *cobra.Command {
	var (
		kind    string
		workers int
		noCache bool
		dbPath  string
	)

	cmd := &cobra.Command{
		Use:   "sweep <plan.toml> [-- solver args...]",
		Short: "Run a parameter sweep",
		Long: `Run every point of a sweep plan through the simulation pipeline. The
plan TOML names the layout, stack and swept parameter axes; each point gets
its own artifact directory under the plan's output_dir. Arguments after --
are run as the external solver for each point.

Examples:
  gplugins sweep sweep.toml
  gplugins sweep sweep.toml --kind mesh --workers 8
  gplugins sweep sweep.toml --kind palace -- palace-wrapper.sh`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var solver []string
			if at := cmd.ArgsLenAtDash(); at >= 0 {
				solver = args[at:]
				args = args[:at]
			}
			if len(args) != 1 {
				return errors.New(errors.ErrCodeInvalidInput, "sweep takes exactly one plan file")
			}
			return c.runSweep(cmd, args[0], solver, kind, workers, noCache, dbPath)
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", pipeline.KindMesh, "simulation kind: fdtd, palace or mesh")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent jobs (0 for default)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the result cache")
	cmd.Flags().StringVar(&dbPath, "db", "", "record runs in this results database")

	return cmd
}

// runSweep expands the plan and fans its points out to the pipeline.
func (c *CLI) runSweep(cmd *cobra.Command, planPath string, solver []string, kind string, workers int, noCache bool, dbPath string) error {
	plan, err := sweep.LoadPlan(planPath)
	if err != nil {
		return err
	}
	if plan.Layout == "" || plan.Stack == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "sweep plan needs layout and stack")
	}
	if plan.OutputDir == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "sweep plan needs output_dir")
	}

	points, err := plan.Expand()
	if err != nil {
		return err
	}

	comp, err := layout.ReadComponent(plan.Layout)
	if err != nil {
		return err
	}
	stack, err := layerstack.Load(plan.Stack)
	if err != nil {
		return err
	}
	mats := materials.Default()
	if plan.Materials != "" {
		mats, err = materials.Load(plan.Materials)
		if err != nil {
			return err
		}
	}

	runner, db, err := c.newRunner(noCache, dbPath)
	if err != nil {
		return err
	}
	defer runner.Close()
	if db != nil {
		defer db.Close()
	}

	var command *tool.Command
	if len(solver) > 0 {
		command = &tool.Command{
			Name:   solver[0],
			Args:   solver[1:],
			Logger: c.Logger.Debugf,
		}
	}

	printInfo("Sweeping %d points (%s)", len(points), kind)
	prog := newProgress(c.Logger)

	pool := sweep.Pool{Workers: workers, Logger: c.Logger.Debugf}
	results := pool.Run(cmd.Context(), points, func(ctx context.Context, job sweep.Job) (string, error) {
		cfg, err := sweep.ApplyParams(resolve.Config{}, job.Params)
		if err != nil {
			return "", err
		}
		res, err := runner.Run(ctx, comp, stack, cfg, pipeline.Options{
			Kind:      kind,
			OutputDir: filepath.Join(plan.OutputDir, job.ID),
			NoCache:   noCache,
			Materials: mats,
			Command:   command,
			Logger:    c.Logger,
		})
		if err != nil {
			return "", err
		}
		return res.Key, nil
	})

	failed := 0
	for res := range results {
		if res.Err != nil {
			printError("%s: %v", res.JobID, res.Err)
			failed++
			continue
		}
		printSuccess("%s %s", res.JobID, StyleDim.Render(shortKey(res.Key)))
	}

	if failed > 0 {
		return errors.New(errors.ErrCodeInternal, "%d of %d sweep points failed", failed, len(points))
	}
	prog.done("Sweep finished")
	printDetail("artifacts in %s", plan.OutputDir)
	return nil
}

package cli

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gdsfactory/gplugins-go/pkg/cloud"
	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/fdtd"
)

// =============================================================================
// fdtd - Build FDTD simulation specs
// =============================================================================

const (
	// apiKeyEnv is consulted when --api-key is not given.
	apiKeyEnv = "GPLUGINS_API_KEY"

	defaultPollInterval = 2 * time.Second
	defaultSubmitWait   = 30 * time.Minute
)

// fdtdCommand creates the fdtd command.
func (c *CLI) fdtdCommand() *cobra.Command {
	var (
		geo        geometryFlags
		output     string
		sources    []string
		wlStart    float64
		wlStop     float64
		wlPoints   int
		zSpec      string
		pml        float64
		portMargin float64
		background string
		submitURL  string
		apiKey     string
		poll       time.Duration
		wait       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "fdtd <component.json>",
		Short: "Build an FDTD simulation spec",
		Long: `Build a solver-independent FDTD simulation spec from the resolved
geometry: extruded structures, modal sources and monitors at ports, and the
wavelength band. With --submit the spec is posted to a simulation service
and the resulting S-parameters are written as CSV.

Examples:
  gplugins fdtd coupler.json --stack stack.toml --source o1
  gplugins fdtd coupler.json -s stack.toml --z layer:core --wl-points 101
  gplugins fdtd coupler.json -s stack.toml --submit http://localhost:8787`,
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
			z, err := parseZRef(zSpec)
			if err != nil {
				return err
			}

			spec, err := fdtd.Build(r, mats, fdtd.Options{
				Sources:          sources,
				WavelengthStart:  wlStart,
				WavelengthStop:   wlStop,
				WavelengthPoints: wlPoints,
				Z:                z,
				PML:              pml,
				PortMargin:       portMargin,
				Background:       background,
			})
			if err != nil {
				return err
			}

			if submitURL != "" {
				return c.submitSpec(cmd.Context(), spec, submitURL, apiKey, poll, wait, output)
			}

			if output == "" {
				output = replaceExt(args[0], ".spec.json")
			}
			if err := spec.Write(output); err != nil {
				return err
			}
			printSuccess("Wrote FDTD spec for %s", spec.Component)
			printFile(output)
			printDetail("%d structures, %d sources, %d monitors",
				len(spec.Structures), len(spec.Sources), len(spec.Monitors))
			return nil
		},
	}

	geo.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: component path with .spec.json)")
	cmd.Flags().StringSliceVar(&sources, "source", nil, "port to excite (repeatable; first port when omitted)")
	cmd.Flags().Float64Var(&wlStart, "wl-start", 0, "wavelength band start in µm (0 for default)")
	cmd.Flags().Float64Var(&wlStop, "wl-stop", 0, "wavelength band stop in µm (0 for default)")
	cmd.Flags().IntVar(&wlPoints, "wl-points", 0, "wavelength sample count (0 for default)")
	cmd.Flags().StringVar(&zSpec, "z", "auto", "mode plane z: auto, a value in µm, or layer:<name>")
	cmd.Flags().Float64Var(&pml, "pml", 0, "absorbing boundary thickness in µm (0 uses the XY padding)")
	cmd.Flags().Float64Var(&portMargin, "port-margin", 0, "mode plane margin in µm (0 for default, negative disables)")
	cmd.Flags().StringVar(&background, "background", "", "background medium (default: air)")
	cmd.Flags().StringVar(&submitURL, "submit", "", "submit the spec to this simulation service URL")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "service API key (default: $"+apiKeyEnv+")")
	cmd.Flags().DurationVar(&poll, "poll", defaultPollInterval, "status poll interval when submitting")
	cmd.Flags().DurationVar(&wait, "wait", defaultSubmitWait, "how long to wait for a submitted simulation")

	return cmd
}

// submitSpec posts the spec to a simulation service, waits for completion,
// and writes the resulting S-parameter matrix as CSV.
func (c *CLI) submitSpec(ctx context.Context, spec *fdtd.Spec, serviceURL, apiKey string, poll, wait time.Duration, output string) error {
	if apiKey == "" {
		apiKey = os.Getenv(apiKeyEnv)
	}
	client, err := cloud.NewClient(serviceURL, cloud.Options{
		APIKey: apiKey,
		Logger: c.Logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	taskID, err := client.Submit(ctx, spec)
	if err != nil {
		return err
	}
	printInfo("Submitted %s as task %s", spec.Component, taskID)

	sp := newSpinner(ctx, "Waiting for simulation...")
	task, err := client.WaitForCompletion(ctx, taskID, poll)
	if err != nil {
		sp.StopWithError("Simulation did not complete")
		return err
	}
	m, err := client.Result(ctx, task.ID)
	if err != nil {
		sp.Stop()
		return err
	}
	sp.StopWithSuccess("Simulation completed")

	if output == "" {
		output = spec.Component + ".sparams.csv"
	}
	if err := m.SaveCSV(output); err != nil {
		return err
	}
	printFile(output)
	printStats(false,
		strconv.Itoa(len(m.Wavelengths))+" wavelengths",
		strconv.Itoa(len(m.Ports))+" ports")
	printNextStep("Report", appName+" report "+output)
	return nil
}

// parseZRef parses the --z flag: "auto", a number in µm, or layer:<name>.
func parseZRef(s string) (fdtd.ZRef, error) {
	switch {
	case s == "" || s == "auto":
		return fdtd.ZAuto(), nil
	case strings.HasPrefix(s, "layer:"):
		name := strings.TrimPrefix(s, "layer:")
		if name == "" {
			return fdtd.ZRef{}, errors.New(errors.ErrCodeInvalidInput, "layer: needs a layer name")
		}
		return fdtd.ZOfLayer(name), nil
	default:
		z, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fdtd.ZRef{}, errors.New(errors.ErrCodeInvalidInput,
				"z %q is not auto, a number, or layer:<name>", s)
		}
		return fdtd.ZAt(z), nil
	}
}

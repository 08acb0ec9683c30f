package cli

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/report"
	"github.com/gdsfactory/gplugins-go/pkg/sparam"
)

// =============================================================================
// report - Plot S-parameter results
// =============================================================================

// reportCommand creates the report command.
func (c *CLI) reportCommand() *cobra.Command {
	var (
		output  string
		title   string
		floorDB float64
		pairs   []string
	)

	cmd := &cobra.Command{
		Use:   "report <sparams.csv>",
		Short: "Plot S-parameters as HTML or PNG",
		Long: `Plot an S-parameter CSV as transmission curves in dB over wavelength.
The output format follows the output extension: .html for an interactive
chart, .png for a static image.

Examples:
  gplugins report coupler.sparams.csv
  gplugins report coupler.sparams.csv -o coupler.png --pair o2,o1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := sparam.LoadCSV(args[0])
			if err != nil {
				return err
			}
			pp, err := parsePairs(pairs)
			if err != nil {
				return err
			}
			opts := report.Options{Title: title, FloorDB: floorDB, Pairs: pp}

			if output == "" {
				output = replaceExt(args[0], ".html")
			}
			switch ext := filepath.Ext(output); ext {
			case ".html":
				err = report.SaveHTML(output, m, opts)
			case ".png":
				err = report.SavePNG(output, m, opts)
			default:
				return errors.New(errors.ErrCodeUnsupported, "report format %q (use .html or .png)", ext)
			}
			if err != nil {
				return err
			}

			printSuccess("Wrote report")
			printFile(output)
			printStats(false,
				strconv.Itoa(len(m.Wavelengths))+" wavelengths",
				strconv.Itoa(len(m.Data))+" entries")
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: CSV path with .html)")
	cmd.Flags().StringVar(&title, "title", "", "chart title")
	cmd.Flags().Float64Var(&floorDB, "floor-db", 0, "clamp dB values from below (0 for default)")
	cmd.Flags().StringArrayVar(&pairs, "pair", nil, "restrict to out,in pairs (repeatable)")

	return cmd
}

// parsePairs parses repeated out,in flags.
func parsePairs(specs []string) ([]sparam.PortPair, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	pairs := make([]sparam.PortPair, 0, len(specs))
	for _, spec := range specs {
		out, in, ok := strings.Cut(spec, ",")
		if !ok || out == "" || in == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"pair %q not in out,in form", spec)
		}
		pairs = append(pairs, sparam.PortPair{Out: out, In: in})
	}
	return pairs, nil
}

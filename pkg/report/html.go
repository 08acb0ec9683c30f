package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/sparam"
)

// WriteHTML renders an interactive chart of the matrix: one line per port
// pair, |S|^2 in dB against wavelength, with tooltip and zoom controls.
func WriteHTML(w io.Writer, m *sparam.Matrix, o Options) error {
	o = o.withDefaults()
	if err := o.check(); err != nil {
		return err
	}
	pairs, err := selectPairs(m, o)
	if err != nil {
		return err
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    o.Title,
			Subtitle: fmt.Sprintf("%d ports, %d wavelengths", len(m.Ports), len(m.Wavelengths)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithToolboxOpts(opts.Toolbox{
			Show:    opts.Bool(true),
			Feature: &opts.ToolBoxFeature{SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{Show: opts.Bool(true)}},
		}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}, opts.DataZoom{Type: "inside"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "wavelength (um)", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "|S|^2 (dB)", NameLocation: "middle", NameGap: 45, Min: o.FloorDB}),
	)

	x := make([]string, len(m.Wavelengths))
	for i, wl := range m.Wavelengths {
		x[i] = strconv.FormatFloat(wl, 'g', -1, 64)
	}
	line.SetXAxis(x)

	for _, p := range pairs {
		db, err := m.MagnitudeDB(p.Out, p.In)
		if err != nil {
			return err
		}
		data := make([]opts.LineData, len(db))
		for i, v := range db {
			data[i] = opts.LineData{Value: clampDB(v, o.FloorDB)}
		}
		line.AddSeries(seriesName(p), data)
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "render chart")
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write chart")
	}
	return nil
}

// SaveHTML writes the interactive chart to a file.
func SaveHTML(path string, m *sparam.Matrix, o Options) error {
	if err := errors.ValidateOutputPath(path); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := WriteHTML(&buf, m, o); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}

package report

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/sparam"
)

// SavePNG writes a static magnitude plot for embedding in docs. The image
// format follows the file extension, so paths normally end in .png.
func SavePNG(path string, m *sparam.Matrix, o Options) error {
	if err := errors.ValidateOutputPath(path); err != nil {
		return err
	}
	o = o.withDefaults()
	if err := o.check(); err != nil {
		return err
	}
	pairs, err := selectPairs(m, o)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = o.Title
	p.X.Label.Text = "wavelength (um)"
	p.Y.Label.Text = "|S|^2 (dB)"

	for i, pair := range pairs {
		db, err := m.MagnitudeDB(pair.Out, pair.In)
		if err != nil {
			return err
		}
		pts := make(plotter.XYs, len(db))
		for j, v := range db {
			pts[j].X = m.Wavelengths[j]
			pts[j].Y = clampDB(v, o.FloorDB)
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "build line for %s", seriesName(pair))
		}
		l.Color = plotutil.Color(i)
		l.Width = vg.Points(1)
		p.Add(l)
		p.Legend.Add(seriesName(pair), l)
	}
	p.Legend.Top = true
	p.Y.Min = o.FloorDB

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "save plot to %s", path)
	}
	return nil
}

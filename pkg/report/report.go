package report

import (
	"fmt"
	"math"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/sparam"
)

// DefaultFloorDB is the lower clamp applied to dB series. Fully dark
// entries (|S| = 0) would otherwise plot at negative infinity.
const DefaultFloorDB = -80.0

// Options control what a report shows.
type Options struct {
	// Title heads the chart. Empty means "S-parameters".
	Title string

	// FloorDB clamps dB values from below. Zero means DefaultFloorDB;
	// anything else must be finite and negative.
	FloorDB float64

	// Pairs restricts the report to these entries, in order. Empty means
	// every stored pair sorted by out then in.
	Pairs []sparam.PortPair
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "S-parameters"
	}
	if o.FloorDB == 0 {
		o.FloorDB = DefaultFloorDB
	}
	return o
}

func (o Options) check() error {
	if math.IsNaN(o.FloorDB) || math.IsInf(o.FloorDB, 0) || o.FloorDB > 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "dB floor must be finite and negative, got %g", o.FloorDB)
	}
	return nil
}

// selectPairs resolves the entries a report will draw. The matrix must
// hold data for every requested pair.
func selectPairs(m *sparam.Matrix, o Options) ([]sparam.PortPair, error) {
	if len(o.Pairs) == 0 {
		pairs := m.Pairs()
		if len(pairs) == 0 {
			return nil, errors.New(errors.ErrCodeResultNotFound, "matrix has no entries to plot")
		}
		return pairs, nil
	}
	pairs := make([]sparam.PortPair, 0, len(o.Pairs))
	for _, p := range o.Pairs {
		if _, ok := m.Data[p]; !ok {
			return nil, errors.New(errors.ErrCodeResultNotFound, "no entry for S[%s,%s]", p.Out, p.In)
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func seriesName(p sparam.PortPair) string {
	return fmt.Sprintf("S[%s,%s]", p.Out, p.In)
}

func clampDB(v, floor float64) float64 {
	if v < floor {
		return floor
	}
	return v
}

package resolve

import (
	"math"

	"github.com/ctessum/geom"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/layout"
)

// FusedPolygons returns, for each stack layer whose GDS id carries geometry
// in the component, the union of that geometry: coordinates rounded to
// RoundDigits decimals, rings unioned, and the result simplified with
// SimplifyTol. Rounding before union makes the result independent of the
// input polygon order; simplification never removes holes or splits
// multi-part regions. Layers whose geometry degenerates to nothing are
// absent from the map. The result is shared; callers must not modify it.
func (r *Resolver) FusedPolygons() (map[string]geom.Polygon, error) {
	r.fuseOnce.Do(func() { r.fused, r.fuseErr = r.computeFused() })
	return r.fused, r.fuseErr
}

func (r *Resolver) computeFused() (map[string]geom.Polygon, error) {
	out := make(map[string]geom.Polygon)
	for _, name := range r.cfg.Stack.Names() {
		l := r.cfg.Stack.Layers[name]
		polys := r.cfg.Component.Polygons[l.GDS]
		if len(polys) == 0 {
			continue
		}
		fused := fuse(polys, r.cfg.RoundDigits, r.cfg.SimplifyTol)
		if len(fused) == 0 || fused.Area() == 0 {
			continue
		}
		out[name] = fused
	}
	return out, nil
}

// fuse rounds, unions, and simplifies one layer's rings.
func fuse(polys []layout.Polygon, digits int, tol float64) geom.Polygon {
	var acc geom.Polygon
	for _, p := range polys {
		rounded := roundPolygon(p, digits)
		if len(rounded) < 3 {
			continue
		}
		gp := rounded.Geom()
		if acc == nil {
			acc = gp
			continue
		}
		acc = acc.Union(gp).(geom.Polygon)
	}
	if acc == nil {
		return nil
	}

	switch s := acc.Simplify(tol).(type) {
	case geom.Polygon:
		return dropEmptyRings(s)
	case geom.MultiPolygon:
		var flat geom.Polygon
		for _, p := range s {
			flat = append(flat, dropEmptyRings(p)...)
		}
		return flat
	}
	return dropEmptyRings(acc)
}

// roundPolygon rounds every coordinate to the given decimal digits and drops
// consecutive duplicates the rounding produced.
func roundPolygon(p layout.Polygon, digits int) layout.Polygon {
	scale := math.Pow(10, float64(digits))
	out := make(layout.Polygon, 0, len(p))
	for _, pt := range p {
		rp := layout.Point{
			X: math.Round(pt.X*scale) / scale,
			Y: math.Round(pt.Y*scale) / scale,
		}
		if n := len(out); n > 0 && out[n-1] == rp {
			continue
		}
		out = append(out, rp)
	}
	if n := len(out); n > 1 && out[0] == out[n-1] {
		out = out[:n-1]
	}
	return out
}

func dropEmptyRings(p geom.Polygon) geom.Polygon {
	out := p[:0:0]
	for _, ring := range p {
		if len(ring) >= 3 {
			out = append(out, ring)
		}
	}
	return out
}

// SimulationPolygons returns the polygon sets handed to solver input
// writers: the fused polygons, with each port's footprint extended outward
// by ExtendPorts on every resolved layer sharing the port's GDS id, plus a
// background rectangle at the padded XY bounding box when WaferLayer is set.
// FusedPolygons is never mutated.
func (r *Resolver) SimulationPolygons() (map[string]geom.Polygon, error) {
	r.simOnce.Do(func() { r.sim, r.simErr = r.computeSimulationPolygons() })
	return r.sim, r.simErr
}

func (r *Resolver) computeSimulationPolygons() (map[string]geom.Polygon, error) {
	fused, err := r.FusedPolygons()
	if err != nil {
		return nil, err
	}
	layers, err := r.ResolvedLayers()
	if err != nil {
		return nil, err
	}
	if len(layers) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidGeometry,
			"component %q has no resolved layers", r.cfg.Component.Name)
	}

	sim := make(map[string]geom.Polygon, len(fused)+1)
	for name, poly := range fused {
		sim[name] = poly
	}

	if r.cfg.ExtendPorts > 0 {
		for _, port := range r.cfg.Component.Ports {
			stackLayer, err := r.cfg.Stack.Get(port.StackLayer())
			if err != nil {
				return nil, err
			}
			ext := portExtensionRect(port, r.cfg.ExtendPorts).Geom()
			for _, nl := range layers {
				if nl.GDS != stackLayer.GDS {
					continue
				}
				sim[nl.Name] = sim[nl.Name].Union(ext).(geom.Polygon)
			}
		}
	}

	if !r.cfg.WaferLayer.IsZero() {
		bbox, err := r.BoundingBox()
		if err != nil {
			return nil, err
		}
		rect := layout.Rect{
			Min: layout.Point{X: bbox.Min.X, Y: bbox.Min.Y},
			Max: layout.Point{X: bbox.Max.X, Y: bbox.Max.Y},
		}
		sim[r.cfg.WaferName] = rect.Ring().Geom()
	}

	return sim, nil
}

// portExtensionRect is the rectangle continuing a port's waveguide outward:
// the port face as one edge, the face shifted by length along the port
// orientation as the other.
func portExtensionRect(port layout.Port, length float64) layout.Polygon {
	dx, dy := port.Direction()
	px, py := -dy, dx
	hw := port.Width / 2
	c := port.Center

	a := layout.Point{X: c.X + px*hw, Y: c.Y + py*hw}
	b := layout.Point{X: c.X - px*hw, Y: c.Y - py*hw}
	return layout.Polygon{
		a,
		b,
		{X: b.X + dx*length, Y: b.Y + dy*length},
		{X: a.X + dx*length, Y: a.Y + dy*length},
	}
}

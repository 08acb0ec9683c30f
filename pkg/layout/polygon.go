package layout

import (
	"encoding/json"
	"math"

	"github.com/ctessum/geom"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
)

// Point is a 2D coordinate in micrometers. Its JSON form is the pair [x, y].
type Point struct {
	X float64
	Y float64
}

// MarshalJSON encodes the point as [x, y].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes a point from [x, y].
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "point must be a [x, y] pair")
	}
	p.X, p.Y = pair[0], pair[1]
	return nil
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Scale returns p scaled by f.
func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

// Polygon is a single closed ring of vertices. The final vertex is implicitly
// connected back to the first; a repeated closing vertex is tolerated on input
// and dropped during validation. Holes do not occur in raw design polygons
// (GDS boundary records carry none); they arise only after boolean operations,
// which produce multi-ring geom.Polygon values.
type Polygon []Point

// Validate checks that the ring has at least three distinct vertices and only
// finite coordinates.
func (p Polygon) Validate() error {
	ring := p.normalized()
	if len(ring) < 3 {
		return errors.New(errors.ErrCodeInvalidGeometry, "polygon has %d vertices, need at least 3", len(ring))
	}
	for _, pt := range ring {
		if math.IsNaN(pt.X) || math.IsInf(pt.X, 0) || math.IsNaN(pt.Y) || math.IsInf(pt.Y, 0) {
			return errors.New(errors.ErrCodeInvalidGeometry, "polygon has non-finite vertex (%v, %v)", pt.X, pt.Y)
		}
	}
	return nil
}

// normalized drops a repeated closing vertex.
func (p Polygon) normalized() Polygon {
	if len(p) > 1 && p[0] == p[len(p)-1] {
		return p[:len(p)-1]
	}
	return p
}

// signedArea is positive for counter-clockwise rings.
func (p Polygon) signedArea() float64 {
	ring := p.normalized()
	var sum float64
	for i, pt := range ring {
		next := ring[(i+1)%len(ring)]
		sum += pt.X*next.Y - next.X*pt.Y
	}
	return sum / 2
}

// Geom converts the ring to a single-ring geometry polygon with
// counter-clockwise orientation, as the boolean operations expect for
// outer rings.
func (p Polygon) Geom() geom.Polygon {
	ring := p.normalized()
	pts := make([]geom.Point, len(ring))
	for i, pt := range ring {
		pts[i] = geom.Point{X: pt.X, Y: pt.Y}
	}
	if p.signedArea() < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	return geom.Polygon{pts}
}

// RingsFromGeom converts a geometry polygon back to plain rings, one Polygon
// per ring (outer rings and holes alike; consumers that care about holes
// inspect ring orientation).
func RingsFromGeom(gp geom.Polygon) []Polygon {
	rings := make([]Polygon, 0, len(gp))
	for _, ring := range gp {
		if len(ring) < 3 {
			continue
		}
		out := make(Polygon, len(ring))
		for i, pt := range ring {
			out[i] = Point{X: pt.X, Y: pt.Y}
		}
		rings = append(rings, out)
	}
	return rings
}

// Rect is an axis-aligned 2D bounding rectangle.
type Rect struct {
	Min Point
	Max Point
}

// RectOf computes the bounding rectangle of a set of points.
// The second return value is false when pts is empty.
func RectOf(pts []Point) (Rect, bool) {
	if len(pts) == 0 {
		return Rect{}, false
	}
	r := Rect{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		r = r.ExtendPoint(p)
	}
	return r, true
}

// ExtendPoint grows the rectangle to include p.
func (r Rect) ExtendPoint(p Point) Rect {
	if p.X < r.Min.X {
		r.Min.X = p.X
	}
	if p.Y < r.Min.Y {
		r.Min.Y = p.Y
	}
	if p.X > r.Max.X {
		r.Max.X = p.X
	}
	if p.Y > r.Max.Y {
		r.Max.Y = p.Y
	}
	return r
}

// Union returns the smallest rectangle covering both r and o.
func (r Rect) Union(o Rect) Rect {
	return r.ExtendPoint(o.Min).ExtendPoint(o.Max)
}

// Expand grows the rectangle by d on all four sides.
func (r Rect) Expand(d float64) Rect {
	return Rect{
		Min: Point{X: r.Min.X - d, Y: r.Min.Y - d},
		Max: Point{X: r.Max.X + d, Y: r.Max.Y + d},
	}
}

// Width returns the X extent.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the Y extent.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Ring returns the rectangle's outline as a counter-clockwise polygon.
func (r Rect) Ring() Polygon {
	return Polygon{
		{X: r.Min.X, Y: r.Min.Y},
		{X: r.Max.X, Y: r.Min.Y},
		{X: r.Max.X, Y: r.Max.Y},
		{X: r.Min.X, Y: r.Max.Y},
	}
}

// RectFromBounds converts geometry-library bounds to a Rect.
func RectFromBounds(b *geom.Bounds) Rect {
	return Rect{
		Min: Point{X: b.Min.X, Y: b.Min.Y},
		Max: Point{X: b.Max.X, Y: b.Max.Y},
	}
}

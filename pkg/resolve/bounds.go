package resolve

import (
	"fmt"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/layout"
)

// Point3 is a 3D coordinate in micrometers.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Box is an axis-aligned 3D box.
type Box struct {
	Min Point3 `json:"min"`
	Max Point3 `json:"max"`
}

// Size returns the box extents per axis.
func (b Box) Size() (dx, dy, dz float64) {
	return b.Max.X - b.Min.X, b.Max.Y - b.Min.Y, b.Max.Z - b.Min.Z
}

// Center returns the box midpoint.
func (b Box) Center() Point3 {
	return Point3{
		X: (b.Min.X + b.Max.X) / 2,
		Y: (b.Min.Y + b.Max.Y) / 2,
		Z: (b.Min.Z + b.Max.Z) / 2,
	}
}

// ContainsZ reports whether the interval [lo, hi] lies within the box's
// z-range.
func (b Box) ContainsZ(lo, hi float64) bool {
	return lo >= b.Min.Z && hi <= b.Max.Z
}

func (b Box) String() string {
	return fmt.Sprintf("(%g, %g, %g)-(%g, %g, %g)",
		b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
}

// BoundingBox returns the global padded 3D box:
//
//  1. The component's 2D bbox is recomputed with every port extended outward
//     by ExtendPorts.
//  2. Each of the four XY sides that extension left unchanged is inflated by
//     PadXYInner. Sides a port already pushed outward define the simulation
//     boundary and are not padded again. Each side is compared independently.
//  3. PadXYOuter is added to all four sides.
//  4. The z-range is the min/max over both endpoints of (zmin, zmin+thickness)
//     of every resolved layer; negative thickness contributes its lower
//     endpoint correctly.
//  5. The z-range is inflated by PadZInner, then PadZOuter, at both extremes.
func (r *Resolver) BoundingBox() (Box, error) {
	r.bboxOnce.Do(func() { r.bbox, r.bboxErr = r.computeBoundingBox() })
	return r.bbox, r.bboxErr
}

func (r *Resolver) computeBoundingBox() (Box, error) {
	raw, err := r.cfg.Component.Bounds()
	if err != nil {
		return Box{}, err
	}
	extended := r.extendedBounds(raw)

	pad := r.cfg.PadXYInner
	xmin, xmax := extended.Min.X, extended.Max.X
	ymin, ymax := extended.Min.Y, extended.Max.Y
	if xmin == raw.Min.X {
		xmin -= pad
	}
	if xmax == raw.Max.X {
		xmax += pad
	}
	if ymin == raw.Min.Y {
		ymin -= pad
	}
	if ymax == raw.Max.Y {
		ymax += pad
	}

	xmin -= r.cfg.PadXYOuter
	xmax += r.cfg.PadXYOuter
	ymin -= r.cfg.PadXYOuter
	ymax += r.cfg.PadXYOuter

	zmin, zmax, err := r.resolvedZRange()
	if err != nil {
		return Box{}, err
	}
	zmin -= r.cfg.PadZInner + r.cfg.PadZOuter
	zmax += r.cfg.PadZInner + r.cfg.PadZOuter

	return Box{
		Min: Point3{X: xmin, Y: ymin, Z: zmin},
		Max: Point3{X: xmax, Y: ymax, Z: zmax},
	}, nil
}

// extendedBounds grows the raw 2D bbox by each port's extension rectangle.
func (r *Resolver) extendedBounds(raw layout.Rect) layout.Rect {
	if r.cfg.ExtendPorts <= 0 {
		return raw
	}
	extended := raw
	for _, port := range r.cfg.Component.Ports {
		rect, ok := layout.RectOf(portExtensionRect(port, r.cfg.ExtendPorts))
		if !ok {
			continue
		}
		extended = extended.Union(rect)
	}
	return extended
}

// resolvedZRange is the unpadded vertical extent of the resolved layers.
func (r *Resolver) resolvedZRange() (zmin, zmax float64, err error) {
	layers, err := r.ResolvedLayers()
	if err != nil {
		return 0, 0, err
	}
	if len(layers) == 0 {
		return 0, 0, errors.New(errors.ErrCodeInvalidGeometry,
			"component %q has no resolved layers", r.cfg.Component.Name)
	}
	first := true
	for _, nl := range layers {
		lo, hi, _ := nl.ZRange()
		if first {
			zmin, zmax = lo, hi
			first = false
			continue
		}
		if lo < zmin {
			zmin = lo
		}
		if hi > zmax {
			zmax = hi
		}
	}
	return zmin, zmax, nil
}

// LayerBBox returns the named resolved layer's 3D box: XY from its fused
// polygons, z from its (zmin, zmin+thickness) interval sorted ascending.
// A layer that attains the resolved stack's bottom (resp. top) is widened
// downward (resp. upward) by PadZInner+PadZOuter, since the outermost layers
// abut the simulation's outer cladding. Unresolved names are a contract
// violation reported as a not-found error, never a silent empty box.
func (r *Resolver) LayerBBox(name string) (Box, error) {
	nl, err := r.ResolvedLayer(name)
	if err != nil {
		return Box{}, err
	}
	fused, err := r.FusedPolygons()
	if err != nil {
		return Box{}, err
	}
	poly, ok := fused[name]
	if !ok {
		return Box{}, errors.New(errors.ErrCodeLayerNotFound,
			"layer %q has no fused geometry", name)
	}

	xy := layout.RectFromBounds(poly.Bounds())
	lo, hi, _ := nl.ZRange()

	zmin, zmax, err := r.resolvedZRange()
	if err != nil {
		return Box{}, err
	}
	outerPad := r.cfg.PadZInner + r.cfg.PadZOuter
	if lo == zmin {
		lo -= outerPad
	}
	if hi == zmax {
		hi += outerPad
	}

	return Box{
		Min: Point3{X: xy.Min.X, Y: xy.Min.Y, Z: lo},
		Max: Point3{X: xy.Max.X, Y: xy.Max.Y, Z: hi},
	}, nil
}

package layout

import (
	"math"
	"sort"
	"strings"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
)

// Port is a named attachment point where a waveguide or electrical trace
// meets the component boundary.
type Port struct {
	Name        string  `json:"name"`
	Center      Point   `json:"center"`
	Orientation float64 `json:"orientation"` // degrees, outward-pointing
	Width       float64 `json:"width"`
	Layer       string  `json:"layer"` // named reference layer, "_intent" suffix allowed
}

// Direction returns the unit vector of the port's outward orientation.
// Axis-aligned orientations (multiples of 90 degrees) are returned exactly,
// without trigonometric round-off.
func (p Port) Direction() (dx, dy float64) {
	deg := math.Mod(p.Orientation, 360)
	if deg < 0 {
		deg += 360
	}
	switch deg {
	case 0:
		return 1, 0
	case 90:
		return 0, 1
	case 180:
		return -1, 0
	case 270:
		return 0, -1
	}
	rad := deg * math.Pi / 180
	return math.Cos(rad), math.Sin(rad)
}

// StackLayer returns the port's reference layer name with the "_intent"
// suffix stripped. Layout tools draw port markers on intent layers; the
// physical layer in the stack carries the bare name.
func (p Port) StackLayer() string {
	return strings.TrimSuffix(p.Layer, "_intent")
}

// Validate checks the port's fields.
func (p Port) Validate() error {
	if err := errors.ValidateName("port", p.Name); err != nil {
		return err
	}
	if err := errors.ValidateFinite("port "+p.Name+" orientation", p.Orientation); err != nil {
		return err
	}
	if err := errors.ValidateFinite("port "+p.Name+" width", p.Width); err != nil {
		return err
	}
	if p.Width <= 0 {
		return errors.New(errors.ErrCodeInvalidPort, "port %q width must be > 0, got %v", p.Name, p.Width)
	}
	if p.Layer == "" {
		return errors.New(errors.ErrCodeInvalidPort, "port %q has no reference layer", p.Name)
	}
	return nil
}

// Component is a planar layout: polygons grouped by GDS layer id, plus ports.
// The resolver treats it as read-only.
type Component struct {
	Name     string                `json:"name"`
	Units    string                `json:"units,omitempty"` // "um" or empty
	Polygons map[LayerID][]Polygon `json:"polygons"`
	Ports    []Port                `json:"ports,omitempty"`
}

// Validate checks the component's structural invariants: a valid name,
// micrometer units, well-formed polygons, and unique well-formed ports.
// Components with zero ports are valid (bounding-box-only flows).
func (c *Component) Validate() error {
	if err := errors.ValidateName("component", c.Name); err != nil {
		return err
	}
	if c.Units != "" && c.Units != "um" {
		return errors.New(errors.ErrCodeUnsupported, "component %q units %q not supported, expected um", c.Name, c.Units)
	}

	for id, polys := range c.Polygons {
		for i, poly := range polys {
			if err := poly.Validate(); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidGeometry, err, "component %q layer %s polygon %d", c.Name, id, i)
			}
		}
	}

	seen := make(map[string]bool, len(c.Ports))
	for _, port := range c.Ports {
		if err := port.Validate(); err != nil {
			return err
		}
		if seen[port.Name] {
			return errors.New(errors.ErrCodeInvalidPort, "component %q has duplicate port %q", c.Name, port.Name)
		}
		seen[port.Name] = true
	}
	return nil
}

// Port returns the named port.
func (c *Component) Port(name string) (Port, error) {
	for _, p := range c.Ports {
		if p.Name == name {
			return p, nil
		}
	}
	return Port{}, errors.New(errors.ErrCodePortNotFound, "component %q has no port %q", c.Name, name)
}

// PortNames returns the port names in declaration order.
func (c *Component) PortNames() []string {
	names := make([]string, len(c.Ports))
	for i, p := range c.Ports {
		names[i] = p.Name
	}
	return names
}

// LayerIDs returns the GDS layer ids with polygons, sorted ascending.
func (c *Component) LayerIDs() []LayerID {
	ids := make([]LayerID, 0, len(c.Polygons))
	for id := range c.Polygons {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// HasLayer reports whether any polygons exist on the given GDS layer id.
func (c *Component) HasLayer(id LayerID) bool {
	return len(c.Polygons[id]) > 0
}

// Bounds returns the raw 2D bounding rectangle over all polygons on all
// layers, before any port extension or padding.
func (c *Component) Bounds() (Rect, error) {
	var bounds Rect
	first := true
	for _, id := range c.LayerIDs() {
		for _, poly := range c.Polygons[id] {
			r, ok := RectOf(poly.normalized())
			if !ok {
				continue
			}
			if first {
				bounds = r
				first = false
				continue
			}
			bounds = bounds.Union(r)
		}
	}
	if first {
		return Rect{}, errors.New(errors.ErrCodeInvalidGeometry, "component %q has no polygons", c.Name)
	}
	return bounds, nil
}

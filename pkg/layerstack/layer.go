package layerstack

import (
	"math"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/layout"
)

// Layer is one entry of a layer stack. Zmin and Thickness are pointers
// because a techfile may list a layer (for drawing or DRC purposes) without
// committing to a vertical position; such layers cannot carry geometry into
// 3D resolution. Thickness may be negative, meaning the layer grows downward
// from Zmin. Immutable once constructed.
type Layer struct {
	GDS           layout.LayerID `json:"gds" toml:"gds"`
	Zmin          *float64       `json:"zmin,omitempty" toml:"zmin"`
	Thickness     *float64       `json:"thickness,omitempty" toml:"thickness"`
	Material      string         `json:"material,omitempty" toml:"material"`
	SidewallAngle float64        `json:"sidewall_angle,omitempty" toml:"sidewall_angle"`
	MeshOrder     int            `json:"mesh_order,omitempty" toml:"mesh_order"`
}

// HasZ reports whether both zmin and thickness are defined.
func (l Layer) HasZ() bool {
	return l.Zmin != nil && l.Thickness != nil
}

// ZRange returns the layer's vertical interval sorted ascending.
// With negative thickness the top endpoint is zmin, not zmin+thickness.
// ok is false when the layer has no defined vertical position.
func (l Layer) ZRange() (lo, hi float64, ok bool) {
	if !l.HasZ() {
		return 0, 0, false
	}
	a := *l.Zmin
	b := *l.Zmin + *l.Thickness
	if b < a {
		a, b = b, a
	}
	return a, b, true
}

// ZCenter returns the midpoint of the layer's vertical interval.
func (l Layer) ZCenter() (float64, bool) {
	lo, hi, ok := l.ZRange()
	if !ok {
		return 0, false
	}
	return (lo + hi) / 2, true
}

// SortKey is the vertical ordering key: zmin + thickness.
// Layers resolve bottom-up by this value.
func (l Layer) SortKey() (float64, bool) {
	if !l.HasZ() {
		return 0, false
	}
	return *l.Zmin + *l.Thickness, true
}

// Validate checks a single layer's fields. name is used in error messages.
func (l Layer) Validate(name string) error {
	if err := errors.ValidateLayerName(name); err != nil {
		return err
	}
	if l.Zmin != nil {
		if err := errors.ValidateFinite("layer "+name+" zmin", *l.Zmin); err != nil {
			return err
		}
	}
	if l.Thickness != nil {
		if err := errors.ValidateFinite("layer "+name+" thickness", *l.Thickness); err != nil {
			return err
		}
	}
	if err := errors.ValidateFinite("layer "+name+" sidewall_angle", l.SidewallAngle); err != nil {
		return err
	}
	if math.Abs(l.SidewallAngle) >= 90 {
		return errors.New(errors.ErrCodeInvalidLayer,
			"layer %q sidewall_angle %v out of range (-90, 90)", name, l.SidewallAngle)
	}
	return nil
}

// Float returns a pointer to v, for building Layer literals.
func Float(v float64) *float64 {
	return &v
}

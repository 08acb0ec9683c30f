package fdtd

import (
	"encoding/json"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/resolve"
)

type zrefKind int

const (
	zrefAuto zrefKind = iota
	zrefExplicit
	zrefLayer
)

// ZRef selects the vertical position of sources and monitors: an explicit
// coordinate, the z-center of a named resolved layer, or each port's own
// resolved z. It is resolved into concrete floats once, while building the
// spec.
type ZRef struct {
	kind  zrefKind
	z     float64
	layer string
}

// ZAuto places each source and monitor at its port's resolved z.
func ZAuto() ZRef {
	return ZRef{kind: zrefAuto}
}

// ZAt places all sources and monitors at an explicit z coordinate.
func ZAt(z float64) ZRef {
	return ZRef{kind: zrefExplicit, z: z}
}

// ZOfLayer places all sources and monitors at the named resolved layer's
// z-center.
func ZOfLayer(name string) ZRef {
	return ZRef{kind: zrefLayer, layer: name}
}

// MarshalJSON keeps ZRef visible to settings hashing and logs.
func (z ZRef) MarshalJSON() ([]byte, error) {
	switch z.kind {
	case zrefExplicit:
		return json.Marshal(struct {
			Kind string  `json:"kind"`
			Z    float64 `json:"z"`
		}{"at", z.z})
	case zrefLayer:
		return json.Marshal(struct {
			Kind  string `json:"kind"`
			Layer string `json:"layer"`
		}{"layer", z.layer})
	default:
		return json.Marshal(struct {
			Kind string `json:"kind"`
		}{"auto"})
	}
}

// resolve turns the reference into a concrete z for the named port.
func (z ZRef) resolve(r *resolve.Resolver, port string) (float64, error) {
	switch z.kind {
	case zrefExplicit:
		if err := errors.ValidateFinite("z", z.z); err != nil {
			return 0, err
		}
		return z.z, nil
	case zrefLayer:
		nl, err := r.ResolvedLayer(z.layer)
		if err != nil {
			return 0, err
		}
		c, _ := nl.ZCenter()
		return c, nil
	default:
		center, err := r.PortCenter3D(port)
		if err != nil {
			return 0, err
		}
		return center.Z, nil
	}
}

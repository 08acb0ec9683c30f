package resolve

import (
	"github.com/gdsfactory/gplugins-go/pkg/errors"
)

// PortCenter3D projects the named port into 3D. The x,y position is the
// port's 2D center shifted outward along its orientation by exactly
// ExtendPorts + PadXYInner - PortOffset; source and monitor placement in
// every adapter depends on this composition. The z position is the mean of
// the z-centers of the resolved layers sharing the port's reference layer's
// GDS id.
func (r *Resolver) PortCenter3D(name string) (Point3, error) {
	port, err := r.cfg.Component.Port(name)
	if err != nil {
		return Point3{}, err
	}

	stackLayer, err := r.cfg.Stack.Get(port.StackLayer())
	if err != nil {
		return Point3{}, err
	}

	layers, err := r.ResolvedLayers()
	if err != nil {
		return Point3{}, err
	}

	var sum float64
	var n int
	for _, nl := range layers {
		if nl.GDS != stackLayer.GDS {
			continue
		}
		c, ok := nl.ZCenter()
		if !ok {
			continue
		}
		sum += c
		n++
	}
	if n == 0 {
		return Point3{}, errors.New(errors.ErrCodeLayerNotFound,
			"port %q layer %q has no resolved geometry", name, port.StackLayer())
	}

	shift := r.cfg.ExtendPorts + r.cfg.PadXYInner - r.cfg.PortOffset
	dx, dy := port.Direction()
	return Point3{
		X: port.Center.X + dx*shift,
		Y: port.Center.Y + dy*shift,
		Z: sum / float64(n),
	}, nil
}

// PortCenters3D resolves every port, keyed by port name.
func (r *Resolver) PortCenters3D() (map[string]Point3, error) {
	centers := make(map[string]Point3, len(r.cfg.Component.Ports))
	for _, port := range r.cfg.Component.Ports {
		c, err := r.PortCenter3D(port.Name)
		if err != nil {
			return nil, err
		}
		centers[port.Name] = c
	}
	return centers, nil
}

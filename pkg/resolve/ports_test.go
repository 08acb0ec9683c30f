package resolve

import (
	"math"
	"testing"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/layerstack"
	"github.com/gdsfactory/gplugins-go/pkg/layout"
)

func assertPoint3(t *testing.T, got, want Point3) {
	t.Helper()
	if !almostEqual(got.X, want.X) || !almostEqual(got.Y, want.Y) || !almostEqual(got.Z, want.Z) {
		t.Errorf("point = (%g, %g, %g), want (%g, %g, %g)",
			got.X, got.Y, got.Z, want.X, want.Y, want.Z)
	}
}

func TestPortCenter3D(t *testing.T) {
	r := mustResolver(t, scenarioConfig())

	// shift = ExtendPorts + PadXYInner - PortOffset = 5 + 2 - 0, applied
	// along each port's orientation; z is the core layer's midplane.
	tests := []struct {
		port string
		want Point3
	}{
		{"o1", Point3{X: -7, Y: 0, Z: 0.11}},
		{"o2", Point3{X: 17, Y: 0, Z: 0.11}},
	}
	for _, tt := range tests {
		t.Run(tt.port, func(t *testing.T) {
			got, err := r.PortCenter3D(tt.port)
			if err != nil {
				t.Fatalf("PortCenter3D(%q) error = %v", tt.port, err)
			}
			assertPoint3(t, got, tt.want)
		})
	}
}

func TestPortCenter3DOffset(t *testing.T) {
	tests := []struct {
		name   string
		offset float64
		wantX  float64
	}{
		{"positive pulls inward", 0.5, 16.5},
		{"negative pushes outward", -1, 18},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := scenarioConfig()
			cfg.PortOffset = tt.offset
			r := mustResolver(t, cfg)

			got, err := r.PortCenter3D("o2")
			if err != nil {
				t.Fatalf("PortCenter3D(o2) error = %v", err)
			}
			assertPoint3(t, got, Point3{X: tt.wantX, Y: 0, Z: 0.11})
		})
	}
}

func TestPortCenter3DVerticalOrientation(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Component.Ports = append(cfg.Component.Ports, layout.Port{
		Name: "o3", Center: layout.Point{X: 5, Y: 3}, Orientation: 90,
		Width: 0.5, Layer: "core_intent",
	})
	r := mustResolver(t, cfg)

	got, err := r.PortCenter3D("o3")
	if err != nil {
		t.Fatalf("PortCenter3D(o3) error = %v", err)
	}
	assertPoint3(t, got, Point3{X: 5, Y: 10, Z: 0.11})
}

func TestPortCenter3DDiagonalOrientation(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Component.Ports = append(cfg.Component.Ports, layout.Port{
		Name: "o4", Center: layout.Point{X: 5, Y: 0}, Orientation: 45,
		Width: 0.5, Layer: "core_intent",
	})
	r := mustResolver(t, cfg)

	got, err := r.PortCenter3D("o4")
	if err != nil {
		t.Fatalf("PortCenter3D(o4) error = %v", err)
	}
	d := 7 * math.Sqrt2 / 2
	assertPoint3(t, got, Point3{X: 5 + d, Y: d, Z: 0.11})
}

func TestPortZMeanOverSharedGDS(t *testing.T) {
	cfg := scenarioConfig()
	// A second resolved layer on the port's GDS id pulls the mean down:
	// mean(0.11, -0.055) = 0.0275.
	cfg.Stack = cfg.Stack.WithLayer("core_lower", layerstack.Layer{
		GDS:       layout.NewLayerID(1, 0),
		Zmin:      layerstack.Float(-0.11),
		Thickness: layerstack.Float(0.11),
	})
	r := mustResolver(t, cfg)

	got, err := r.PortCenter3D("o2")
	if err != nil {
		t.Fatalf("PortCenter3D(o2) error = %v", err)
	}
	if !almostEqual(got.Z, 0.0275) {
		t.Errorf("z = %g, want 0.0275", got.Z)
	}
}

func TestPortCenter3DUnknownPort(t *testing.T) {
	r := mustResolver(t, scenarioConfig())

	_, err := r.PortCenter3D("o9")
	if errors.GetCode(err) != errors.ErrCodePortNotFound {
		t.Errorf("PortCenter3D(o9) error = %v, want %v", err, errors.ErrCodePortNotFound)
	}
}

func TestPortCenter3DNoResolvedGeometry(t *testing.T) {
	cfg := scenarioConfig()
	// metal1 is in the stack but its GDS id carries no geometry, so no
	// resolved layer can supply a z position for the port.
	cfg.Stack = cfg.Stack.WithLayer("metal1", layerstack.Layer{
		GDS:       layout.NewLayerID(12, 0),
		Zmin:      layerstack.Float(1),
		Thickness: layerstack.Float(0.5),
	})
	cfg.Component.Ports = append(cfg.Component.Ports, layout.Port{
		Name: "e1", Center: layout.Point{X: 5, Y: 3}, Orientation: 90,
		Width: 1, Layer: "metal1",
	})
	r := mustResolver(t, cfg)

	_, err := r.PortCenter3D("e1")
	if errors.GetCode(err) != errors.ErrCodeLayerNotFound {
		t.Errorf("PortCenter3D(e1) error = %v, want %v", err, errors.ErrCodeLayerNotFound)
	}
}

func TestPortCenters3D(t *testing.T) {
	r := mustResolver(t, scenarioConfig())

	centers, err := r.PortCenters3D()
	if err != nil {
		t.Fatalf("PortCenters3D() error = %v", err)
	}
	if len(centers) != 2 {
		t.Fatalf("got %d centers, want 2", len(centers))
	}
	for _, name := range []string{"o1", "o2"} {
		want, err := r.PortCenter3D(name)
		if err != nil {
			t.Fatalf("PortCenter3D(%q) error = %v", name, err)
		}
		if centers[name] != want {
			t.Errorf("centers[%q] = %v, want %v", name, centers[name], want)
		}
	}
}

package resolve

import (
	"testing"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/layerstack"
	"github.com/gdsfactory/gplugins-go/pkg/layout"
)

func assertBox(t *testing.T, got, want Box) {
	t.Helper()
	fields := []struct {
		name      string
		got, want float64
	}{
		{"min.x", got.Min.X, want.Min.X},
		{"min.y", got.Min.Y, want.Min.Y},
		{"min.z", got.Min.Z, want.Min.Z},
		{"max.x", got.Max.X, want.Max.X},
		{"max.y", got.Max.Y, want.Max.Y},
		{"max.z", got.Max.Z, want.Max.Z},
	}
	for _, f := range fields {
		if !almostEqual(f.got, f.want) {
			t.Errorf("%s = %g, want %g", f.name, f.got, f.want)
		}
	}
}

func TestBoundingBox(t *testing.T) {
	r := mustResolver(t, scenarioConfig())

	got, err := r.BoundingBox()
	if err != nil {
		t.Fatalf("BoundingBox() error = %v", err)
	}

	// X is set by the port extensions alone (0-5-3 and 10+5+3); Y by the raw
	// bbox plus inner and outer padding; Z by the layer extremes plus both
	// z paddings.
	want := Box{
		Min: Point3{X: -8, Y: -8, Z: -4},
		Max: Point3{X: 18, Y: 8, Z: 2.22},
	}
	assertBox(t, got, want)
}

func TestBoundingBoxSingleEndPort(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Component.Ports = cfg.Component.Ports[:1] // keep only o1, facing -x

	r := mustResolver(t, cfg)
	got, err := r.BoundingBox()
	if err != nil {
		t.Fatalf("BoundingBox() error = %v", err)
	}

	// The west side is defined by the port extension and skips the inner
	// pad; the east side has no port and keeps it. Each side is decided
	// independently.
	want := Box{
		Min: Point3{X: -8, Y: -8, Z: -4},
		Max: Point3{X: 11 + 2 + 3, Y: 8, Z: 2.22},
	}
	assertBox(t, got, want)
}

func TestBoundingBoxNoPortsPadsAllSides(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Component.Ports = nil

	r := mustResolver(t, cfg)
	got, err := r.BoundingBox()
	if err != nil {
		t.Fatalf("BoundingBox() error = %v", err)
	}

	want := Box{
		Min: Point3{X: -1 - 5, Y: -8, Z: -4},
		Max: Point3{X: 11 + 5, Y: 8, Z: 2.22},
	}
	assertBox(t, got, want)
}

func TestBoundingBoxOuterPadDelta(t *testing.T) {
	base := mustResolver(t, scenarioConfig())

	cfg := scenarioConfig()
	const delta = 1.5
	cfg.PadXYOuter += delta
	grown := mustResolver(t, cfg)

	b0, err := base.BoundingBox()
	if err != nil {
		t.Fatalf("base BoundingBox() error = %v", err)
	}
	b1, err := grown.BoundingBox()
	if err != nil {
		t.Fatalf("grown BoundingBox() error = %v", err)
	}

	dx0, dy0, dz0 := b0.Size()
	dx1, dy1, dz1 := b1.Size()
	if !almostEqual(dx1-dx0, 2*delta) {
		t.Errorf("x extent grew by %g, want %g", dx1-dx0, 2*delta)
	}
	if !almostEqual(dy1-dy0, 2*delta) {
		t.Errorf("y extent grew by %g, want %g", dy1-dy0, 2*delta)
	}
	if !almostEqual(dz1, dz0) {
		t.Errorf("z extent changed from %g to %g", dz0, dz1)
	}

	// Outer padding must not move port centers.
	p0, err := base.PortCenter3D("o2")
	if err != nil {
		t.Fatalf("base PortCenter3D(o2) error = %v", err)
	}
	p1, err := grown.PortCenter3D("o2")
	if err != nil {
		t.Fatalf("grown PortCenter3D(o2) error = %v", err)
	}
	if p0 != p1 {
		t.Errorf("port center moved from %v to %v", p0, p1)
	}
}

func TestBoundingBoxNegativeThickness(t *testing.T) {
	cfg := scenarioConfig()
	// Substrate drawn downward from z=0: occupies [-110, 0].
	cfg.Stack = cfg.Stack.WithLayer("box", layerstack.Layer{
		GDS:       layout.NewLayerID(99, 0),
		Zmin:      layerstack.Float(0),
		Thickness: layerstack.Float(-110),
	})
	r := mustResolver(t, cfg)

	got, err := r.BoundingBox()
	if err != nil {
		t.Fatalf("BoundingBox() error = %v", err)
	}
	if !almostEqual(got.Min.Z, -110-2) {
		t.Errorf("min z = %g, want %g", got.Min.Z, -112.0)
	}
	if !almostEqual(got.Max.Z, 0.22+2) {
		t.Errorf("max z = %g, want %g", got.Max.Z, 2.22)
	}
}

func TestBoundingBoxNoResolvedLayers(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Component = &layout.Component{
		Name: "floating",
		Polygons: map[layout.LayerID][]layout.Polygon{
			// Geometry only on a GDS id no stack layer claims.
			{Layer: 50, Datatype: 0}: {
				{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
			},
		},
	}
	r := mustResolver(t, cfg)

	_, err := r.BoundingBox()
	if errors.GetCode(err) != errors.ErrCodeInvalidGeometry {
		t.Errorf("BoundingBox() error = %v, want %v", err, errors.ErrCodeInvalidGeometry)
	}
}

func TestLayerBBox(t *testing.T) {
	r := mustResolver(t, scenarioConfig())

	tests := []struct {
		layer string
		want  Box
	}{
		{
			// box attains the stack bottom: widened downward by
			// PadZInner+PadZOuter, top untouched.
			layer: "box",
			want: Box{
				Min: Point3{X: -1, Y: -3, Z: -4},
				Max: Point3{X: 11, Y: 3, Z: 0},
			},
		},
		{
			// core attains the stack top: widened upward only.
			layer: "core",
			want: Box{
				Min: Point3{X: 0, Y: -0.25, Z: 0},
				Max: Point3{X: 10, Y: 0.25, Z: 2.22},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.layer, func(t *testing.T) {
			got, err := r.LayerBBox(tt.layer)
			if err != nil {
				t.Fatalf("LayerBBox(%q) error = %v", tt.layer, err)
			}
			assertBox(t, got, tt.want)
		})
	}
}

func TestLayerBBoxWithinGlobalZ(t *testing.T) {
	r := mustResolver(t, scenarioConfig())
	global, err := r.BoundingBox()
	if err != nil {
		t.Fatalf("BoundingBox() error = %v", err)
	}

	layers, err := r.ResolvedLayers()
	if err != nil {
		t.Fatalf("ResolvedLayers() error = %v", err)
	}
	for _, nl := range layers {
		lb, err := r.LayerBBox(nl.Name)
		if err != nil {
			t.Fatalf("LayerBBox(%q) error = %v", nl.Name, err)
		}
		if !global.ContainsZ(lb.Min.Z, lb.Max.Z) {
			t.Errorf("layer %q z [%g, %g] escapes global [%g, %g]",
				nl.Name, lb.Min.Z, lb.Max.Z, global.Min.Z, global.Max.Z)
		}
	}
}

func TestLayerBBoxMiddleLayerUnpadded(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Component.Polygons[layout.NewLayerID(2, 0)] = []layout.Polygon{
		{{X: 2, Y: -1}, {X: 8, Y: -1}, {X: 8, Y: 1}, {X: 2, Y: 1}},
	}
	// slab sits strictly between box and core extremes.
	cfg.Stack = cfg.Stack.WithLayer("slab", layerstack.Layer{
		GDS:       layout.NewLayerID(2, 0),
		Zmin:      layerstack.Float(0),
		Thickness: layerstack.Float(0.09),
	})
	r := mustResolver(t, cfg)

	got, err := r.LayerBBox("slab")
	if err != nil {
		t.Fatalf("LayerBBox(slab) error = %v", err)
	}
	if !almostEqual(got.Min.Z, 0) || !almostEqual(got.Max.Z, 0.09) {
		t.Errorf("slab z = [%g, %g], want [0, 0.09]", got.Min.Z, got.Max.Z)
	}
}

func TestLayerBBoxNotFound(t *testing.T) {
	r := mustResolver(t, scenarioConfig())

	for _, name := range []string{"cladding", "wafer", ""} {
		_, err := r.LayerBBox(name)
		if errors.GetCode(err) != errors.ErrCodeLayerNotFound {
			t.Errorf("LayerBBox(%q) error = %v, want %v", name, err, errors.ErrCodeLayerNotFound)
		}
	}
}

func TestBoxSizeCenter(t *testing.T) {
	b := Box{Min: Point3{X: -2, Y: -4, Z: -1}, Max: Point3{X: 4, Y: 0, Z: 3}}

	dx, dy, dz := b.Size()
	if dx != 6 || dy != 4 || dz != 4 {
		t.Errorf("Size() = (%g, %g, %g), want (6, 4, 4)", dx, dy, dz)
	}
	if c := b.Center(); c != (Point3{X: 1, Y: -2, Z: 1}) {
		t.Errorf("Center() = %v, want (1, -2, 1)", c)
	}
	if got := b.String(); got != "(-2, -4, -1)-(4, 0, 3)" {
		t.Errorf("String() = %q", got)
	}
}

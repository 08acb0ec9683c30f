package layout

import (
	"encoding/json"
	"math"
	"testing"
)

func TestPointJSON(t *testing.T) {
	p := Point{X: 1.5, Y: -2.25}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[1.5,-2.25]" {
		t.Errorf("marshal = %s, want [1.5,-2.25]", data)
	}

	var back Point
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != p {
		t.Errorf("round trip = %v, want %v", back, p)
	}

	if err := json.Unmarshal([]byte(`{"x":1}`), &back); err == nil {
		t.Error("object form should be rejected")
	}
}

func TestPolygonValidate(t *testing.T) {
	tests := []struct {
		name    string
		poly    Polygon
		wantErr bool
	}{
		{"triangle", Polygon{{0, 0}, {1, 0}, {0, 1}}, false},
		{"closed ring", Polygon{{0, 0}, {1, 0}, {0, 1}, {0, 0}}, false},
		{"two vertices", Polygon{{0, 0}, {1, 0}}, true},
		{"closed pair", Polygon{{0, 0}, {1, 0}, {0, 0}}, true},
		{"nan vertex", Polygon{{0, 0}, {1, 0}, {math.NaN(), 1}}, true},
		{"inf vertex", Polygon{{0, 0}, {math.Inf(1), 0}, {0, 1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.poly.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPolygonGeomOrientation(t *testing.T) {
	ccw := Polygon{{0, 0}, {2, 0}, {2, 1}, {0, 1}}
	cw := Polygon{{0, 0}, {0, 1}, {2, 1}, {2, 0}}

	for _, poly := range []Polygon{ccw, cw} {
		gp := poly.Geom()
		if len(gp) != 1 {
			t.Fatalf("Geom() rings = %d, want 1", len(gp))
		}
		back := Polygon(nil)
		for _, pt := range gp[0] {
			back = append(back, Point{X: pt.X, Y: pt.Y})
		}
		if area := back.signedArea(); area <= 0 {
			t.Errorf("Geom() ring signed area = %v, want > 0 (counter-clockwise)", area)
		}
	}
}

func TestRingsFromGeom(t *testing.T) {
	poly := Polygon{{0, 0}, {4, 0}, {4, 4}, {0, 4}}
	rings := RingsFromGeom(poly.Geom())
	if len(rings) != 1 {
		t.Fatalf("rings = %d, want 1", len(rings))
	}
	if len(rings[0]) != 4 {
		t.Errorf("ring vertices = %d, want 4", len(rings[0]))
	}
}

func TestRectOf(t *testing.T) {
	r, ok := RectOf([]Point{{1, 2}, {-3, 5}, {4, -1}})
	if !ok {
		t.Fatal("RectOf returned !ok for non-empty points")
	}
	want := Rect{Min: Point{-3, -1}, Max: Point{4, 5}}
	if r != want {
		t.Errorf("RectOf = %v, want %v", r, want)
	}

	if _, ok := RectOf(nil); ok {
		t.Error("RectOf(nil) ok = true, want false")
	}
}

func TestRectUnionExpand(t *testing.T) {
	a := Rect{Min: Point{0, 0}, Max: Point{1, 1}}
	b := Rect{Min: Point{2, -1}, Max: Point{3, 0.5}}

	u := a.Union(b)
	want := Rect{Min: Point{0, -1}, Max: Point{3, 1}}
	if u != want {
		t.Errorf("Union = %v, want %v", u, want)
	}

	e := a.Expand(0.5)
	want = Rect{Min: Point{-0.5, -0.5}, Max: Point{1.5, 1.5}}
	if e != want {
		t.Errorf("Expand = %v, want %v", e, want)
	}

	if w := u.Width(); w != 3 {
		t.Errorf("Width = %v, want 3", w)
	}
	if h := u.Height(); h != 2 {
		t.Errorf("Height = %v, want 2", h)
	}
}

func TestRectRing(t *testing.T) {
	r := Rect{Min: Point{0, 0}, Max: Point{2, 1}}
	ring := r.Ring()
	if len(ring) != 4 {
		t.Fatalf("ring vertices = %d, want 4", len(ring))
	}
	if area := ring.signedArea(); area != 2 {
		t.Errorf("ring signed area = %v, want 2", area)
	}
}

package layerstack

import (
	"testing"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/layout"
)

const sampleTechfile = `
[layers.core]
gds = "1/0"
zmin = 0.0
thickness = 0.22
material = "si"
sidewall_angle = 10.0
mesh_order = 2

[layers.box]
gds = "99/0"
zmin = -2.0
thickness = 2.0
material = "sio2"
mesh_order = 9

[layers.label]
gds = "66/0"
`

func TestDecodeTechfile(t *testing.T) {
	stack, err := Decode([]byte(sampleTechfile))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	core, err := stack.Get("core")
	if err != nil {
		t.Fatalf("Get(core) error = %v", err)
	}
	if core.GDS != layout.NewLayerID(1, 0) {
		t.Errorf("core.GDS = %v, want 1/0", core.GDS)
	}
	if core.Zmin == nil || *core.Zmin != 0 {
		t.Errorf("core.Zmin = %v, want 0", core.Zmin)
	}
	if core.Thickness == nil || *core.Thickness != 0.22 {
		t.Errorf("core.Thickness = %v, want 0.22", core.Thickness)
	}
	if core.SidewallAngle != 10 {
		t.Errorf("core.SidewallAngle = %v, want 10", core.SidewallAngle)
	}
	if core.MeshOrder != 2 {
		t.Errorf("core.MeshOrder = %v, want 2", core.MeshOrder)
	}

	label, err := stack.Get("label")
	if err != nil {
		t.Fatalf("Get(label) error = %v", err)
	}
	if label.HasZ() {
		t.Error("label.HasZ() = true, want false (no zmin/thickness in techfile)")
	}
}

func TestDecodeTechfileErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  errors.Code
	}{
		{"empty", "", errors.ErrCodeInvalidFormat},
		{"no layers", "[settings]\nx = 1\n", errors.ErrCodeInvalidFormat},
		{"missing gds", "[layers.core]\nzmin = 0.0\n", errors.ErrCodeInvalidLayer},
		{"malformed gds", "[layers.core]\ngds = \"a/b\"\n", errors.ErrCodeInvalidFormat},
		{"malformed toml", "[layers.core\n", errors.ErrCodeInvalidFormat},
		{"steep sidewall", "[layers.core]\ngds = \"1/0\"\nsidewall_angle = 95.0\n", errors.ErrCodeInvalidLayer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			if err == nil {
				t.Fatal("Decode() error = nil, want error")
			}
			if code := errors.GetCode(err); code != tt.code {
				t.Errorf("error code = %v (%v), want %v", code, err, tt.code)
			}
		})
	}
}

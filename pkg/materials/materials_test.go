package materials

import (
	"math"
	"testing"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
)

func TestEps(t *testing.T) {
	t.Run("derived from index", func(t *testing.T) {
		m := Material{Index: 3.47}
		want := 3.47 * 3.47
		if got := m.Eps(); math.Abs(got-want) > 1e-12 {
			t.Errorf("Eps() = %v, want %v", got, want)
		}
	})

	t.Run("lossy index", func(t *testing.T) {
		m := Material{Index: 1.2, Extinction: 9.5}
		want := 1.2*1.2 - 9.5*9.5
		if got := m.Eps(); math.Abs(got-want) > 1e-12 {
			t.Errorf("Eps() = %v, want %v", got, want)
		}
	})

	t.Run("explicit permittivity wins", func(t *testing.T) {
		eps := 11.7
		m := Material{Index: 3.47, Permittivity: &eps}
		if got := m.Eps(); got != 11.7 {
			t.Errorf("Eps() = %v, want 11.7", got)
		}
	})
}

func TestTableGet(t *testing.T) {
	table := Default()

	si, err := table.Get("si")
	if err != nil {
		t.Fatalf("Get(si) error = %v", err)
	}
	if si.Index != 3.47 {
		t.Errorf("si.Index = %v, want 3.47", si.Index)
	}

	_, err = table.Get("unobtainium")
	if errors.GetCode(err) != errors.ErrCodeMaterialNotFound {
		t.Errorf("Get(unobtainium) error = %v, want %v", err, errors.ErrCodeMaterialNotFound)
	}
}

func TestDecode(t *testing.T) {
	input := `
[materials.si]
index = 3.47

[materials.al]
index = 1.2
extinction = 9.5
conductivity = 38.0

[materials.sub]
permittivity = 11.7
index = 3.4
`
	table, err := Decode([]byte(input))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	al, _ := table.Get("al")
	if !al.IsConductor() {
		t.Error("al.IsConductor() = false, want true")
	}
	si, _ := table.Get("si")
	if si.IsConductor() {
		t.Error("si.IsConductor() = true, want false")
	}
	sub, _ := table.Get("sub")
	if sub.Eps() != 11.7 {
		t.Errorf("sub.Eps() = %v, want 11.7", sub.Eps())
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no materials", "[settings]\nx = 1\n"},
		{"negative index", "[materials.bad]\nindex = -1.0\n"},
		{"negative conductivity", "[materials.bad]\nindex = 1.0\nconductivity = -2.0\n"},
		{"malformed", "[materials.bad\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.input)); err == nil {
				t.Error("Decode() error = nil, want error")
			}
		})
	}
}

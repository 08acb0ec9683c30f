package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/sparam"
)

// testMatrix is a lossy reciprocal 2-port over three wavelengths.
func testMatrix(t *testing.T) *sparam.Matrix {
	t.Helper()
	m, err := sparam.New([]float64{1.5, 1.55, 1.6}, []string{"o1", "o2"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	thru := []complex128{0.9, 0.8 + 0.1i, 0.7}
	refl := []complex128{0.1i, 0.05i, 0.02i}
	for _, s := range []struct {
		out, in string
		vs      []complex128
	}{
		{"o2", "o1", thru},
		{"o1", "o2", thru},
		{"o1", "o1", refl},
		{"o2", "o2", refl},
	} {
		if err := m.Set(s.out, s.in, s.vs); err != nil {
			t.Fatalf("Set(%s, %s) error = %v", s.out, s.in, err)
		}
	}
	return m
}

func TestWriteHTML(t *testing.T) {
	m := testMatrix(t)
	var buf bytes.Buffer
	if err := WriteHTML(&buf, m, Options{Title: "coupler transmission"}); err != nil {
		t.Fatalf("WriteHTML() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"coupler transmission",
		"S[o1,o1]",
		"S[o2,o1]",
		"wavelength (um)",
		"echarts",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("WriteHTML() output missing %q", want)
		}
	}
}

func TestWriteHTMLPairFilter(t *testing.T) {
	m := testMatrix(t)
	var buf bytes.Buffer
	o := Options{Pairs: []sparam.PortPair{{Out: "o2", In: "o1"}}}
	if err := WriteHTML(&buf, m, o); err != nil {
		t.Fatalf("WriteHTML() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "S[o2,o1]") {
		t.Errorf("WriteHTML() output missing the selected pair")
	}
	if strings.Contains(out, "S[o1,o1]") {
		t.Errorf("WriteHTML() output contains a filtered-out pair")
	}
}

func TestWriteHTMLFloor(t *testing.T) {
	m, err := sparam.New([]float64{1.5, 1.6}, []string{"o1"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := m.Set("o1", "o1", []complex128{0.5, 0}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	var buf bytes.Buffer
	if err := WriteHTML(&buf, m, Options{}); err != nil {
		t.Fatalf("WriteHTML() error = %v", err)
	}
	if !strings.Contains(buf.String(), "-80") {
		t.Errorf("WriteHTML() output does not clamp dark entries to the floor")
	}
}

func TestWriteHTMLErrors(t *testing.T) {
	m := testMatrix(t)
	empty, err := sparam.New([]float64{1.5}, []string{"o1"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name string
		m    *sparam.Matrix
		o    Options
		code errors.Code
	}{
		{"unknown pair", m, Options{Pairs: []sparam.PortPair{{Out: "o3", In: "o1"}}}, errors.ErrCodeResultNotFound},
		{"no entries", empty, Options{}, errors.ErrCodeResultNotFound},
		{"positive floor", m, Options{FloorDB: 3}, errors.ErrCodeInvalidConfig},
		{"nan floor", m, Options{FloorDB: math.NaN()}, errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WriteHTML(&bytes.Buffer{}, tt.m, tt.o)
			if !errors.Is(err, tt.code) {
				t.Errorf("WriteHTML() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestSaveHTML(t *testing.T) {
	m := testMatrix(t)
	path := filepath.Join(t.TempDir(), "coupler.html")
	if err := SaveHTML(path, m, Options{}); err != nil {
		t.Fatalf("SaveHTML() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "S[o2,o2]") {
		t.Errorf("SaveHTML() file missing series data")
	}

	if err := SaveHTML("", m, Options{}); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("SaveHTML(\"\") error = %v, want code %s", err, errors.ErrCodeInvalidPath)
	}
}

func TestSavePNG(t *testing.T) {
	m := testMatrix(t)
	path := filepath.Join(t.TempDir(), "coupler.png")
	if err := SavePNG(path, m, Options{Title: "coupler"}); err != nil {
		t.Fatalf("SavePNG() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	magic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	if len(data) < len(magic) || !bytes.Equal(data[:len(magic)], magic) {
		t.Errorf("SavePNG() did not produce a PNG file")
	}
}

func TestSavePNGErrors(t *testing.T) {
	m := testMatrix(t)
	if err := SavePNG("", m, Options{}); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("SavePNG(\"\") error = %v, want code %s", err, errors.ErrCodeInvalidPath)
	}
	path := filepath.Join(t.TempDir(), "coupler.png")
	o := Options{Pairs: []sparam.PortPair{{Out: "nope", In: "o1"}}}
	if err := SavePNG(path, m, o); !errors.IsNotFound(err) {
		t.Errorf("SavePNG() error = %v, want not-found", err)
	}
}

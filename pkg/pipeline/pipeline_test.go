package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/layerstack"
	"github.com/gdsfactory/gplugins-go/pkg/layout"
	"github.com/gdsfactory/gplugins-go/pkg/materials"
	"github.com/gdsfactory/gplugins-go/pkg/resolve"
	"github.com/gdsfactory/gplugins-go/pkg/simdb"
	"github.com/gdsfactory/gplugins-go/pkg/sparam"
	"github.com/gdsfactory/gplugins-go/pkg/store"
	"github.com/gdsfactory/gplugins-go/pkg/tool"
)

// straightFixture is a strip waveguide with two ports over a buried oxide.
func straightFixture() (*layout.Component, layerstack.LayerStack) {
	component := &layout.Component{
		Name: "straight",
		Polygons: map[layout.LayerID][]layout.Polygon{
			{Layer: 1, Datatype: 0}: {
				{{X: 0, Y: -0.25}, {X: 10, Y: -0.25}, {X: 10, Y: 0.25}, {X: 0, Y: 0.25}},
			},
			{Layer: 99, Datatype: 0}: {
				{{X: -1, Y: -3}, {X: 11, Y: -3}, {X: 11, Y: 3}, {X: -1, Y: 3}},
			},
		},
		Ports: []layout.Port{
			{Name: "o1", Center: layout.Point{X: 0, Y: 0}, Orientation: 180, Width: 0.5, Layer: "core"},
			{Name: "o2", Center: layout.Point{X: 10, Y: 0}, Orientation: 0, Width: 0.5, Layer: "core"},
		},
	}
	stack := layerstack.New(map[string]layerstack.Layer{
		"core": {
			GDS:       layout.NewLayerID(1, 0),
			Zmin:      layerstack.Float(0),
			Thickness: layerstack.Float(0.22),
			Material:  "si",
		},
		"box": {
			GDS:       layout.NewLayerID(99, 0),
			Zmin:      layerstack.Float(-2),
			Thickness: layerstack.Float(2),
			Material:  "sio2",
		},
	})
	return component, stack
}

// platesFixture is two metal plates over oxide, for palace runs.
func platesFixture() (*layout.Component, layerstack.LayerStack, materials.Table) {
	rect := layout.Polygon{{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 20}, {X: 0, Y: 20}}
	component := &layout.Component{
		Name: "plates",
		Polygons: map[layout.LayerID][]layout.Polygon{
			{Layer: 99, Datatype: 0}: {rect},
			{Layer: 12, Datatype: 0}: {rect},
			{Layer: 13, Datatype: 0}: {rect},
		},
	}
	stack := layerstack.New(map[string]layerstack.Layer{
		"box": {
			GDS:       layout.NewLayerID(99, 0),
			Zmin:      layerstack.Float(-2),
			Thickness: layerstack.Float(2),
			Material:  "sio2",
		},
		"metal1": {
			GDS:       layout.NewLayerID(12, 0),
			Zmin:      layerstack.Float(1),
			Thickness: layerstack.Float(0.5),
			Material:  "al",
		},
		"metal2": {
			GDS:       layout.NewLayerID(13, 0),
			Zmin:      layerstack.Float(2),
			Thickness: layerstack.Float(0.5),
			Material:  "al",
		},
	})
	mats := materials.Table{Materials: map[string]materials.Material{
		"sio2": {Index: 1.44},
		"al":   {Conductivity: 38},
	}}
	return component, stack, mats
}

// solverMatrix is the S-matrix the stub solver "computes".
func solverMatrix(t *testing.T) *sparam.Matrix {
	t.Helper()
	m, err := sparam.New([]float64{1.5, 1.55, 1.6}, []string{"o1", "o2"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	thru := []complex128{0.9, 0.8 + 0.1i, 0.7}
	for _, s := range []struct {
		out, in string
	}{{"o2", "o1"}, {"o1", "o2"}} {
		if err := m.Set(s.out, s.in, thru); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	return m
}

// stubSolver copies a prepared result file into the working directory,
// standing in for an external solver.
func stubSolver(t *testing.T, resultName, content string) *tool.Command {
	t.Helper()
	if !tool.Available("sh") {
		t.Skip("sh not available")
	}
	src := filepath.Join(t.TempDir(), "result")
	if err := os.WriteFile(src, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return &tool.Command{Name: "sh", Args: []string{"-c", "cp " + src + " " + resultName}}
}

func quiet() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func openDB(t *testing.T) *simdb.DB {
	t.Helper()
	db, err := simdb.Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("simdb.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"bad kind", Options{Kind: "spice", OutputDir: "out"}},
		{"no output dir", Options{Kind: KindMesh}},
		{"descending wavelengths", Options{Kind: KindFDTD, OutputDir: "out", Wavelengths: []float64{1.6, 1.5}}},
		{"zero wavelength", Options{Kind: KindFDTD, OutputDir: "out", Wavelengths: []float64{0, 1.5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("ValidateAndSetDefaults() error = %v, want code %s", err, errors.ErrCodeInvalidConfig)
			}
		})
	}

	opts := Options{Kind: KindFDTD, OutputDir: "out", Wavelengths: []float64{1.5, 1.55, 1.6}}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if opts.FDTD.WavelengthStart != 1.5 || opts.FDTD.WavelengthStop != 1.6 || opts.FDTD.WavelengthPoints != 3 {
		t.Errorf("fdtd band = %+v", opts.FDTD)
	}
	if opts.TTL != DefaultTTL {
		t.Errorf("TTL = %v, want %v", opts.TTL, DefaultTTL)
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Errorf("second ValidateAndSetDefaults() error = %v", err)
	}
}

func TestRunMeshInputsOnly(t *testing.T) {
	component, stack := straightFixture()
	runner := NewRunner(store.NewMemory(), store.Keyer{}, nil, quiet())

	opts := Options{Kind: KindMesh, OutputDir: t.TempDir()}
	result, err := runner.Run(context.Background(), component, stack, resolve.Config{}, opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.CacheInfo.Hit {
		t.Error("first run reported a store hit")
	}
	if result.Key == "" {
		t.Error("Run() returned no key")
	}
	if _, err := os.Stat(result.InputPath); err != nil {
		t.Errorf("input file missing: %v", err)
	}
	if filepath.Base(result.InputPath) != MeshInputFile {
		t.Errorf("InputPath = %s, want base %s", result.InputPath, MeshInputFile)
	}
	if result.Matrix != nil || result.ResultPath != "" {
		t.Error("inputs-only run collected a result")
	}

	// No result was collected, so nothing was persisted: same key, still
	// a miss.
	again, err := runner.Run(context.Background(), component, stack, resolve.Config{}, Options{Kind: KindMesh, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if again.Key != result.Key {
		t.Errorf("key changed between identical runs: %s vs %s", again.Key, result.Key)
	}
	if again.CacheInfo.Hit {
		t.Error("second inputs-only run reported a store hit")
	}
}

func TestRunKeySeparatesComponentAndPadding(t *testing.T) {
	component, stack := straightFixture()
	runner := NewRunner(store.NewMemory(), store.Keyer{}, nil, quiet())
	keyOf := func(c *layout.Component, rcfg resolve.Config) string {
		t.Helper()
		result, err := runner.Run(context.Background(), c, stack, rcfg, Options{Kind: KindMesh, OutputDir: t.TempDir()})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		return result.Key
	}
	base := keyOf(component, resolve.Config{})

	// Same stack and layer metadata, different polygons.
	slab := &layout.Component{
		Name: component.Name,
		Polygons: map[layout.LayerID][]layout.Polygon{
			{Layer: 1, Datatype: 0}: {
				{{X: 0, Y: 0}, {X: 500, Y: 0}, {X: 500, Y: 500}, {X: 0, Y: 500}},
			},
			{Layer: 99, Datatype: 0}: component.Polygons[layout.NewLayerID(99, 0)],
		},
	}
	if keyOf(slab, resolve.Config{}) == base {
		t.Error("different component polygons share a key")
	}

	// Same polygons, no ports.
	noPorts := &layout.Component{Name: component.Name, Polygons: component.Polygons}
	if keyOf(noPorts, resolve.Config{}) == base {
		t.Error("different ports share a key")
	}

	// Same component, different padding.
	padded := resolve.Config{ExtendPorts: 50, PadXYInner: 20, PadXYOuter: 30}
	if keyOf(component, padded) == base {
		t.Error("different resolve padding shares a key")
	}

	// Unchanged inputs reproduce the key.
	if keyOf(component, resolve.Config{}) != base {
		t.Error("identical inputs changed the key")
	}
}

func TestRunFDTDSolveAndCacheHit(t *testing.T) {
	component, stack := straightFixture()
	want := solverMatrix(t)
	csvPath := filepath.Join(t.TempDir(), "sparams.csv")
	if err := want.SaveCSV(csvPath); err != nil {
		t.Fatalf("SaveCSV() error = %v", err)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	db := openDB(t)
	runner := NewRunner(store.NewMemory(), store.Keyer{}, db, quiet())

	opts := Options{
		Kind:        KindFDTD,
		OutputDir:   t.TempDir(),
		Wavelengths: []float64{1.5, 1.55, 1.6},
		Command:     stubSolver(t, FDTDResultFile, string(data)),
	}
	result, err := runner.Run(context.Background(), component, stack, resolve.Config{}, opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.CacheInfo.Hit {
		t.Error("first run reported a store hit")
	}
	if diff := cmp.Diff(want, result.Matrix); diff != "" {
		t.Errorf("Matrix mismatch (-want +got):\n%s", diff)
	}
	if result.SimulationID == 0 {
		t.Fatal("run was not recorded")
	}
	sim, err := db.SimulationByKey(result.Key)
	if err != nil {
		t.Fatalf("SimulationByKey() error = %v", err)
	}
	if sim.Component != "straight" || sim.Kind != KindFDTD {
		t.Errorf("recorded simulation = %+v", sim)
	}
	loaded, err := db.LoadSParams(result.SimulationID)
	if err != nil {
		t.Fatalf("LoadSParams() error = %v", err)
	}
	if diff := cmp.Diff(want, loaded); diff != "" {
		t.Errorf("persisted matrix mismatch (-want +got):\n%s", diff)
	}

	// Identical settings hit the store; the failing command proves the
	// solver never runs again.
	hitDir := t.TempDir()
	hit, err := runner.Run(context.Background(), component, stack, resolve.Config{}, Options{
		Kind:        KindFDTD,
		OutputDir:   hitDir,
		Wavelengths: []float64{1.5, 1.55, 1.6},
		Command:     &tool.Command{Name: "sh", Args: []string{"-c", "exit 1"}},
	})
	if err != nil {
		t.Fatalf("cached Run() error = %v", err)
	}
	if !hit.CacheInfo.Hit {
		t.Fatal("second run missed the store")
	}
	if diff := cmp.Diff(want, hit.Matrix); diff != "" {
		t.Errorf("cached matrix mismatch (-want +got):\n%s", diff)
	}
	if hit.ResultPath != filepath.Join(hitDir, FDTDResultFile) {
		t.Errorf("ResultPath = %s", hit.ResultPath)
	}
	if _, err := os.Stat(hit.ResultPath); err != nil {
		t.Errorf("cached result file missing: %v", err)
	}
}

func TestRunNoCache(t *testing.T) {
	component, stack := straightFixture()
	want := solverMatrix(t)
	csvPath := filepath.Join(t.TempDir(), "sparams.csv")
	if err := want.SaveCSV(csvPath); err != nil {
		t.Fatalf("SaveCSV() error = %v", err)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	runner := NewRunner(store.NewMemory(), store.Keyer{}, nil, quiet())
	run := func(cmd *tool.Command) (*Result, error) {
		return runner.Run(context.Background(), component, stack, resolve.Config{}, Options{
			Kind:        KindFDTD,
			OutputDir:   t.TempDir(),
			Wavelengths: []float64{1.5, 1.55, 1.6},
			NoCache:     true,
			Command:     cmd,
		})
	}

	if _, err := run(stubSolver(t, FDTDResultFile, string(data))); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// NoCache persisted nothing, so the second run must actually solve.
	if _, err := run(&tool.Command{Name: "sh", Args: []string{"-c", "exit 1"}}); !errors.Is(err, errors.ErrCodeTool) {
		t.Errorf("Run() error = %v, want code %s", err, errors.ErrCodeTool)
	}
}

func TestRunSolverMissingResult(t *testing.T) {
	if !tool.Available("sh") {
		t.Skip("sh not available")
	}
	component, stack := straightFixture()
	runner := NewRunner(store.NewMemory(), store.Keyer{}, nil, quiet())
	_, err := runner.Run(context.Background(), component, stack, resolve.Config{}, Options{
		Kind:        KindFDTD,
		OutputDir:   t.TempDir(),
		Wavelengths: []float64{1.5, 1.55, 1.6},
		Command:     &tool.Command{Name: "sh", Args: []string{"-c", "true"}},
	})
	if !errors.Is(err, errors.ErrCodeResultNotFound) {
		t.Errorf("Run() error = %v, want code %s", err, errors.ErrCodeResultNotFound)
	}
}

func TestRunPalace(t *testing.T) {
	component, stack, mats := platesFixture()
	capCSV := " i, C[i][1] (F), C[i][2] (F)\n" +
		" 1.000000e+00, 4.700000e-14, -2.100000e-15\n" +
		" 2.000000e+00, -2.100000e-15, 3.900000e-14\n"

	db := openDB(t)
	runner := NewRunner(store.NewMemory(), store.Keyer{}, db, quiet())

	opts := Options{
		Kind:      KindPalace,
		OutputDir: t.TempDir(),
		Materials: mats,
		Command:   stubSolver(t, PalaceResultFile, capCSV),
	}
	opts.Palace.MeshFile = "plates.msh"

	result, err := runner.Run(context.Background(), component, stack, resolve.Config{}, opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Cap == nil {
		t.Fatal("palace run collected no capacitance matrix")
	}
	self, err := result.Cap.C("metal1", "metal1")
	if err != nil {
		t.Fatalf("C() error = %v", err)
	}
	if self != 4.7e-14 {
		t.Errorf("C[metal1][metal1] = %g, want 4.7e-14", self)
	}
	if result.SimulationID == 0 {
		t.Error("palace run was not recorded")
	}

	// The store payload carries terminal names, so a hit still maps the
	// matrix by name.
	hit, err := runner.Run(context.Background(), component, stack, resolve.Config{}, Options{
		Kind:      KindPalace,
		OutputDir: t.TempDir(),
		Materials: mats,
		Palace:    opts.Palace,
	})
	if err != nil {
		t.Fatalf("cached Run() error = %v", err)
	}
	if !hit.CacheInfo.Hit {
		t.Fatal("second palace run missed the store")
	}
	mutual, err := hit.Cap.Mutual("metal1", "metal2")
	if err != nil {
		t.Fatalf("Mutual() error = %v", err)
	}
	if mutual != 2.1e-15 {
		t.Errorf("Mutual = %g, want 2.1e-15", mutual)
	}
}

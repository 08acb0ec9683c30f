// Package materials provides the material-name table that maps layer-stack
// material strings to optical and electrical properties.
//
// Tables load from TOML:
//
//	[materials.si]
//	index = 3.47
//
//	[materials.al]
//	index = 1.2
//	extinction = 9.5
//	conductivity = 38.0
//
// Solver adapters look up each resolved layer's material by name and fail
// fast when it is missing.
package materials

import (
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
)

// Material holds the properties solver adapters consume. Index/Extinction
// feed FDTD media; Permittivity, Conductivity, and LossTangent feed
// electrostatic FEM domains. Permittivity is optional: when nil it derives
// from the complex refractive index.
type Material struct {
	Index        float64  `toml:"index" json:"index"`
	Extinction   float64  `toml:"extinction" json:"extinction,omitempty"`
	Permittivity *float64 `toml:"permittivity" json:"permittivity,omitempty"`
	Conductivity float64  `toml:"conductivity" json:"conductivity,omitempty"` // S/µm
	LossTangent  float64  `toml:"loss_tangent" json:"loss_tangent,omitempty"`
}

// Eps returns the relative permittivity: the explicit value when set,
// otherwise Re(n²) = n² − k².
func (m Material) Eps() float64 {
	if m.Permittivity != nil {
		return *m.Permittivity
	}
	return m.Index*m.Index - m.Extinction*m.Extinction
}

// IsConductor reports whether the material has nonzero conductivity, which
// marks its layers as terminal candidates for electrostatic runs.
func (m Material) IsConductor() bool {
	return m.Conductivity > 0
}

func (m Material) validate(name string) error {
	if err := errors.ValidateFinite("material "+name+" index", m.Index); err != nil {
		return err
	}
	if m.Index < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "material %q index must be >= 0, got %v", name, m.Index)
	}
	if err := errors.ValidateNonNegative("material "+name+" extinction", m.Extinction); err != nil {
		return err
	}
	if m.Permittivity != nil {
		if err := errors.ValidateFinite("material "+name+" permittivity", *m.Permittivity); err != nil {
			return err
		}
	}
	if err := errors.ValidateNonNegative("material "+name+" conductivity", m.Conductivity); err != nil {
		return err
	}
	return errors.ValidateNonNegative("material "+name+" loss_tangent", m.LossTangent)
}

// Table is a named material lookup. The zero value is an empty table.
type Table struct {
	Materials map[string]Material `toml:"materials" json:"materials"`
}

// Names returns the material names sorted ascending.
func (t Table) Names() []string {
	names := make([]string, 0, len(t.Materials))
	for name := range t.Materials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named material.
func (t Table) Get(name string) (Material, error) {
	m, ok := t.Materials[name]
	if !ok {
		return Material{}, errors.New(errors.ErrCodeMaterialNotFound, "material table has no material %q", name)
	}
	return m, nil
}

// Has reports whether the named material exists.
func (t Table) Has(name string) bool {
	_, ok := t.Materials[name]
	return ok
}

// Load reads a material table from a TOML file.
func Load(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "read materials %s", path)
	}
	table, err := Decode(data)
	if err != nil {
		return Table{}, errors.Wrap(errors.GetCode(err), err, "materials %s", path)
	}
	return table, nil
}

// Decode parses a TOML material table.
func Decode(data []byte) (Table, error) {
	var t Table
	if err := toml.Unmarshal(data, &t); err != nil {
		return Table{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse materials")
	}
	if len(t.Materials) == 0 {
		return Table{}, errors.New(errors.ErrCodeInvalidFormat, "material table defines no materials")
	}
	for _, name := range t.Names() {
		if err := errors.ValidateName("material", name); err != nil {
			return Table{}, err
		}
		if err := t.Materials[name].validate(name); err != nil {
			return Table{}, err
		}
	}
	return t, nil
}

// Default returns the built-in table covering the common silicon-photonics
// materials, used when no table file is supplied.
func Default() Table {
	return Table{Materials: map[string]Material{
		"air":  {Index: 1.0},
		"si":   {Index: 3.47},
		"sio2": {Index: 1.44},
		"sin":  {Index: 2.0},
		"ge":   {Index: 4.0},
	}}
}

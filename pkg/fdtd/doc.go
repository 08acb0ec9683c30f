// Package fdtd builds solver-independent FDTD simulation specs.
//
// A Spec is a plain JSON document: the padded simulation box, one extruded
// structure per resolved layer (rings, z-slab, material, permittivity), a
// modal source per selected input port, a monitor per port, the wavelength
// band, and the absorbing boundary thickness. External drivers (tidy3d,
// Meep, fdtdz wrappers) consume the document; this package never invokes a
// solver.
package fdtd

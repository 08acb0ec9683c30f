// Package layerstack models the vertical technology description of a PDK:
// named layers with GDS ids, z-offsets, thicknesses, materials, sidewall
// angles, and meshing priority.
//
// Stacks load from TOML techfiles:
//
//	[layers.core]
//	gds = "1/0"
//	zmin = 0.0
//	thickness = 0.22
//	material = "si"
//	mesh_order = 2
//
// GDS layer names and ids can also come from a KLayout .lyp layer-properties
// file and be merged with the z/material data, since .lyp files carry no
// vertical information.
//
// There is no ambient "active PDK": consumers receive their LayerStack
// explicitly.
package layerstack

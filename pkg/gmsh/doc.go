// Package gmsh writes gmsh .geo scripts from resolved layers.
//
// Each resolved layer becomes a plane surface at its zmin (holes as extra
// loops) extruded by its thickness, grouped into a named Physical Volume.
// Entity numbering is deterministic: layers in resolved order, rings in
// fused order, vertices in ring order. Running gmsh itself is the caller's
// business.
package gmsh

// Package solid turns resolved layers into 3D solids.
//
// Each resolved layer's fused polygons are extruded between zmin and
// zmin+thickness; layers with a sidewall angle are lofted toward a shrunk
// top profile instead. Solids carry their layer name, material, and mesh
// order as labels for downstream writers. WriteSTL tessellates with
// marching cubes and emits binary STL.
package solid

// Package resolve derives the 3D geometric facts solver adapters need from a
// 2D component and a layer stack.
//
// A Resolver is an immutable value object built once from a Config. Its
// derived properties are pure functions of the inputs, computed lazily and
// cached for the Resolver's lifetime:
//
//   - FusedPolygons: per-layer unioned, rounded, simplified polygon sets
//   - ResolvedLayers: the z-ordered subset of stack layers that carry geometry
//   - BoundingBox: the global padded 3D box
//   - LayerBBox: per-layer 3D boxes, outermost layers widened to the cladding
//   - PortCenter3D: port positions projected onto their physical layers
//   - SimulationPolygons: fused polygons plus port extensions and wafer outline
//
// One padding policy holds throughout: port extension defines the simulation
// boundary on the sides ports face, inner XY padding fills in the sides no
// port moved, outer XY padding surrounds everything, and the z-range of the
// resolved stack is inflated by the inner then outer z padding. Misconfigured
// inputs (a port referencing an unknown layer, geometry on a layer without a
// vertical position, non-finite padding) fail at construction, never silently.
//
// A Resolver is safe to share between goroutines once constructed.
package resolve

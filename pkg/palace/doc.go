// Package palace adapts resolved layer stacks to Palace electrostatic FEM
// runs.
//
// Build assembles the solver configuration: dielectric layers become
// material domains, conductor layers become numbered terminals, and mesh
// region attributes follow the gmsh writer's physical group order. The
// result parser reads the terminal-C.csv Maxwell capacitance matrix the
// solver writes back.
package palace

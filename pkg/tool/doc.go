// Package tool invokes external solver binaries (gmsh, palace, meep) and
// turns their exit status into coded errors. Stdout and stderr are
// captured in full; failures carry the tail of stderr, where solvers
// print their fatal line.
package tool

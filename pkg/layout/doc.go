// Package layout models planar photonic components: per-GDS-layer polygon
// sets plus named ports with position, orientation, and width.
//
// A Component is the read-only input to the geometry resolver. It is supplied
// by a layout tool and exchanged as JSON, with GDS layer ids in "layer/datatype"
// form:
//
//	{
//	  "name": "straight",
//	  "units": "um",
//	  "polygons": {"1/0": [[[0,0],[10,0],[10,0.5],[0,0.5]]]},
//	  "ports": [
//	    {"name": "o1", "center": [0, 0.25], "orientation": 180, "width": 0.5, "layer": "core_intent"}
//	  ]
//	}
//
// All coordinates are in micrometers. The package also bridges between its
// plain polygon rings and the geometry types used for boolean operations.
package layout

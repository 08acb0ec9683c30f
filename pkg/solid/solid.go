package solid

import (
	"math"
	"sort"

	"github.com/ctessum/geom"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/resolve"
)

// LayerSolid is one resolved layer as a 3D solid.
type LayerSolid struct {
	Name      string
	Material  string
	MeshOrder int
	SDF       sdf.SDF3
}

// Options controls solid construction.
type Options struct {
	// CutOverlaps subtracts every solid of lower mesh order from each solid
	// before it is returned, so overlapping layers occupy disjoint volume.
	// Lower mesh order wins, matching the meshing convention.
	CutOverlaps bool
}

// Build constructs one solid per resolved layer, in resolved order.
func Build(r *resolve.Resolver, opts Options) ([]LayerSolid, error) {
	layers, err := r.ResolvedLayers()
	if err != nil {
		return nil, err
	}
	if len(layers) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidGeometry, "no resolved layers to build")
	}
	fused, err := r.FusedPolygons()
	if err != nil {
		return nil, err
	}

	solids := make([]LayerSolid, 0, len(layers))
	for _, nl := range layers {
		s, err := layerSolid(fused[nl.Name], nl)
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "layer %q", nl.Name)
		}
		solids = append(solids, LayerSolid{
			Name:      nl.Name,
			Material:  nl.Material,
			MeshOrder: nl.MeshOrder,
			SDF:       s,
		})
	}

	if opts.CutOverlaps {
		cutOverlaps(solids)
	}
	return solids, nil
}

// cutOverlaps subtracts higher-priority solids in place. Priority is mesh
// order ascending, ties kept in resolved order.
func cutOverlaps(solids []LayerSolid) {
	order := make([]int, len(solids))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return solids[order[a]].MeshOrder < solids[order[b]].MeshOrder
	})

	var claimed sdf.SDF3
	for _, i := range order {
		if claimed != nil {
			solids[i].SDF = sdf.Difference3D(solids[i].SDF, claimed)
		}
		if claimed == nil {
			claimed = solids[i].SDF
		} else {
			claimed = sdf.Union3D(claimed, solids[i].SDF)
		}
	}
}

// layerSolid extrudes one layer's fused polygons to its z interval.
func layerSolid(poly geom.Polygon, nl resolve.NamedLayer) (sdf.SDF3, error) {
	profile, err := profile2D(poly)
	if err != nil {
		return nil, err
	}

	lo, hi, _ := nl.ZRange()
	h := hi - lo
	zc := (lo + hi) / 2

	var s sdf.SDF3
	if nl.SidewallAngle != 0 {
		shrink := -h * math.Tan(nl.SidewallAngle*math.Pi/180)
		top := sdf.Offset2D(profile, shrink)
		s, err = sdf.Loft3D(profile, top, h, 0)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidGeometry, err, "loft")
		}
	} else {
		s = sdf.Extrude3D(profile, h)
	}

	// Extrusion is centered on z=0; move it to the layer's z-center.
	return sdf.Transform3D(s, sdf.Translate3d(v3.Vec{X: 0, Y: 0, Z: zc})), nil
}

// profile2D converts a fused polygon into a 2D SDF: outer rings unioned,
// hole rings subtracted. Winding order of union output is not reliable,
// so a ring counts as a hole when it is nested inside an odd number of
// the other rings.
func profile2D(poly geom.Polygon) (sdf.SDF2, error) {
	var outers, holes []sdf.SDF2
	for i, ring := range poly {
		if len(ring) < 3 {
			continue
		}
		s, err := ringSDF(ring)
		if err != nil {
			return nil, err
		}
		depth := 0
		for j, other := range poly {
			if j != i && len(other) >= 3 && ringContains(other, ring[0]) {
				depth++
			}
		}
		if depth%2 == 1 {
			holes = append(holes, s)
		} else {
			outers = append(outers, s)
		}
	}
	if len(outers) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidGeometry, "no outer rings")
	}

	profile := sdf.Union2D(outers...)
	if len(holes) > 0 {
		profile = sdf.Difference2D(profile, sdf.Union2D(holes...))
	}
	return profile, nil
}

// ringSDF builds a counter-clockwise polygon SDF from one ring.
func ringSDF(ring []geom.Point) (sdf.SDF2, error) {
	vs := make([]v2.Vec, 0, len(ring))
	for _, pt := range ring {
		v := v2.Vec{X: pt.X, Y: pt.Y}
		if n := len(vs); n > 0 && vs[n-1] == v {
			continue
		}
		vs = append(vs, v)
	}
	if n := len(vs); n > 1 && vs[0] == vs[n-1] {
		vs = vs[:n-1]
	}
	if len(vs) < 3 {
		return nil, errors.New(errors.ErrCodeInvalidGeometry, "ring has fewer than 3 vertices")
	}
	if ringAreaV2(vs) < 0 {
		for i, j := 0, len(vs)-1; i < j; i, j = i+1, j-1 {
			vs[i], vs[j] = vs[j], vs[i]
		}
	}

	s, err := sdf.Polygon2D(vs)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGeometry, err, "polygon")
	}
	return s, nil
}

// ringContains reports whether pt lies inside the ring (ray crossing).
func ringContains(ring []geom.Point, pt geom.Point) bool {
	inside := false
	for i, a := range ring {
		b := ring[(i+1)%len(ring)]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := a.X + (pt.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if pt.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

func ringAreaV2(vs []v2.Vec) float64 {
	var sum float64
	for i, p := range vs {
		q := vs[(i+1)%len(vs)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return sum / 2
}

// Union returns the union of all solids, or nil for an empty slice.
func Union(solids []LayerSolid) sdf.SDF3 {
	var parts []sdf.SDF3
	for _, s := range solids {
		parts = append(parts, s.SDF)
	}
	if len(parts) == 0 {
		return nil
	}
	return sdf.Union3D(parts...)
}

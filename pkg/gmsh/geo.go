package gmsh

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ctessum/geom"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/resolve"
)

// DefaultLength is the characteristic mesh length used when Options leaves
// it unset.
const DefaultLength = 1.0

// Options configures script generation.
type Options struct {
	// DefaultLength is the characteristic length applied to every layer
	// without an override (0 means DefaultLength).
	DefaultLength float64
	// LayerLength overrides the characteristic length per resolved layer.
	// Naming a layer that did not resolve is a configuration error.
	LayerLength map[string]float64
}

func (o Options) validate(r *resolve.Resolver) error {
	if err := errors.ValidateFinite("default length", o.DefaultLength); err != nil {
		return err
	}
	if o.DefaultLength < 0 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"default length must be >= 0, got %v", o.DefaultLength)
	}
	for name, l := range o.LayerLength {
		if err := errors.ValidateNonNegative("length for layer "+name, l); err != nil {
			return err
		}
		if _, err := r.ResolvedLayer(name); err != nil {
			return err
		}
	}
	return nil
}

// Script renders the .geo source for the resolver's layers.
func Script(r *resolve.Resolver, opts Options) (string, error) {
	if err := opts.validate(r); err != nil {
		return "", err
	}
	layers, err := r.ResolvedLayers()
	if err != nil {
		return "", err
	}
	if len(layers) == 0 {
		return "", errors.New(errors.ErrCodeInvalidGeometry, "no resolved layers to mesh")
	}
	fused, err := r.FusedPolygons()
	if err != nil {
		return "", err
	}

	defLen := opts.DefaultLength
	if defLen == 0 {
		defLen = DefaultLength
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// %s layer stack\n", r.Config().Component.Name)
	fmt.Fprintf(&buf, "// %d layers, bottom-up\n\n", len(layers))

	for _, nl := range layers {
		length := defLen
		if l, ok := opts.LayerLength[nl.Name]; ok && l > 0 {
			length = l
		}
		fmt.Fprintf(&buf, "%s = %g;\n", lcVar(nl.Name), length)
	}
	buf.WriteString("\n")

	var c counters
	for _, nl := range layers {
		if err := writeLayer(&buf, &c, nl, fused[nl.Name]); err != nil {
			return "", err
		}
	}

	return buf.String(), nil
}

// Write renders the script and writes it to path.
func Write(path string, r *resolve.Resolver, opts Options) error {
	if err := errors.ValidateOutputPath(path); err != nil {
		return err
	}
	script, err := Script(r, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(script), 0644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}

// counters hold the running gmsh entity ids.
type counters struct {
	point, line, loop, surface int
}

func writeLayer(buf *bytes.Buffer, c *counters, nl resolve.NamedLayer, poly geom.Polygon) error {
	zmin := *nl.Zmin
	thickness := *nl.Thickness

	outers, holes := splitRings(poly)
	if len(outers) == 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "layer %q has no outer rings", nl.Name)
	}

	material := nl.Material
	if material == "" {
		material = "unassigned"
	}
	fmt.Fprintf(buf, "// layer %s: %s, z %g .. %g\n", nl.Name, material, zmin, zmin+thickness)

	holeUsed := make([]bool, len(holes))
	var volumeRefs []string
	for _, outer := range outers {
		outerLoop := writeLoop(buf, c, outer, zmin, lcVar(nl.Name))

		loops := []int{outerLoop}
		for i, hole := range holes {
			if holeUsed[i] || !ringContains(outer, hole[0]) {
				continue
			}
			holeUsed[i] = true
			loops = append(loops, writeLoop(buf, c, hole, zmin, lcVar(nl.Name)))
		}

		c.surface++
		fmt.Fprintf(buf, "Plane Surface(%d) = {%s};\n", c.surface, joinInts(loops))
		fmt.Fprintf(buf, "v%d[] = Extrude {0, 0, %g} { Surface{%d}; };\n",
			c.surface, thickness, c.surface)
		volumeRefs = append(volumeRefs, fmt.Sprintf("v%d[1]", c.surface))
	}

	fmt.Fprintf(buf, "Physical Volume(\"%s\") = {%s};\n\n", nl.Name, strings.Join(volumeRefs, ", "))
	return nil
}

// writeLoop emits the points, lines, and line loop of one ring and returns
// the loop id.
func writeLoop(buf *bytes.Buffer, c *counters, ring []geom.Point, z float64, lc string) int {
	first := c.point + 1
	for _, pt := range ring {
		c.point++
		fmt.Fprintf(buf, "Point(%d) = {%g, %g, %g, %s};\n", c.point, pt.X, pt.Y, z, lc)
	}
	last := c.point

	firstLine := c.line + 1
	for p := first; p <= last; p++ {
		c.line++
		next := p + 1
		if next > last {
			next = first
		}
		fmt.Fprintf(buf, "Line(%d) = {%d, %d};\n", c.line, p, next)
	}

	lines := make([]int, 0, last-first+1)
	for l := firstLine; l <= c.line; l++ {
		lines = append(lines, l)
	}
	c.loop++
	fmt.Fprintf(buf, "Line Loop(%d) = {%s};\n", c.loop, joinInts(lines))
	return c.loop
}

// splitRings partitions a fused polygon into outer rings and holes,
// dropping duplicate closing vertices. Winding order of union output is
// not reliable, so a ring counts as a hole when it is nested inside an
// odd number of other rings. All returned rings wind counterclockwise.
func splitRings(poly geom.Polygon) (outers, holes [][]geom.Point) {
	rings := make([][]geom.Point, 0, len(poly))
	for _, ring := range poly {
		r := dedupRing(ring)
		if len(r) < 3 {
			continue
		}
		if ringArea(r) < 0 {
			reverse(r)
		}
		rings = append(rings, r)
	}
	for i, r := range rings {
		depth := 0
		for j, other := range rings {
			if j != i && ringContains(other, r[0]) {
				depth++
			}
		}
		if depth%2 == 1 {
			holes = append(holes, r)
		} else {
			outers = append(outers, r)
		}
	}
	return outers, holes
}

func dedupRing(ring []geom.Point) []geom.Point {
	out := make([]geom.Point, 0, len(ring))
	for _, pt := range ring {
		if n := len(out); n > 0 && out[n-1] == pt {
			continue
		}
		out = append(out, pt)
	}
	if n := len(out); n > 1 && out[0] == out[n-1] {
		out = out[:n-1]
	}
	return out
}

func ringArea(ring []geom.Point) float64 {
	var sum float64
	for i, p := range ring {
		q := ring[(i+1)%len(ring)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return sum / 2
}

func reverse(ring []geom.Point) {
	for i, j := 0, len(ring)-1; i < j; i, j = i+1, j-1 {
		ring[i], ring[j] = ring[j], ring[i]
	}
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

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}

// lcVar is the gmsh variable holding a layer's characteristic length.
func lcVar(name string) string {
	s := strings.NewReplacer(".", "_", "-", "_").Replace(name)
	return "lc_" + s
}

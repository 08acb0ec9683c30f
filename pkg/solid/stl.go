package solid

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
)

// DefaultMeshCells is the marching cubes resolution used when cells <= 0.
const DefaultMeshCells = 200

// Mesh tessellates a solid with uniform marching cubes.
func Mesh(s sdf.SDF3, cells int) []*sdf.Triangle3 {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return render.ToTriangles(s, render.NewMarchingCubesUniform(cells))
}

// WriteSTL tessellates the union of the solids and writes binary STL.
func WriteSTL(path string, solids []LayerSolid, cells int) error {
	if err := errors.ValidateOutputPath(path); err != nil {
		return err
	}
	union := Union(solids)
	if union == nil {
		return errors.New(errors.ErrCodeInvalidGeometry, "no solids to write")
	}
	tris := Mesh(union, cells)
	if len(tris) == 0 {
		return errors.New(errors.ErrCodeInvalidGeometry, "tessellation produced no triangles")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", path)
	}
	w := bufio.NewWriter(f)
	if err := EncodeSTL(w, tris); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "close %s", path)
	}
	return nil
}

// stlTriangle is the 50-byte binary STL record.
type stlTriangle struct {
	Normal [3]float32
	Vertex [3][3]float32
	_      uint16
}

// EncodeSTL writes triangles in binary STL: 80-byte header, triangle count,
// 50 bytes per triangle, little-endian.
func EncodeSTL(w io.Writer, tris []*sdf.Triangle3) error {
	var header [80]byte
	copy(header[:], "gplugins")
	if _, err := w.Write(header[:]); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "stl header")
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(tris))); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "stl count")
	}

	for i, t := range tris {
		n := t.Normal()
		rec := stlTriangle{
			Normal: [3]float32{float32(n.X), float32(n.Y), float32(n.Z)},
		}
		for j := 0; j < 3; j++ {
			rec.Vertex[j] = [3]float32{float32(t[j].X), float32(t[j].Y), float32(t[j].Z)}
		}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "stl triangle %d", i)
		}
	}
	return nil
}

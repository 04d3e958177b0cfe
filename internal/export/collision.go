package export

import (
	"fmt"
	"io"
	"math"

	"mini-track/internal/geom"
	"mini-track/internal/physics"

	"github.com/go-gl/mathgl/mgl32"
)

type planeRecord struct {
	Normal mgl32.Vec3
	Dist   float32
}

type polygonRecord struct {
	Type     uint32
	Material int32
	Planes   [5]planeRecord
	Bounds   [6]float32
}

type lookupHeader struct {
	Origin   [2]float32
	Size     [2]float32
	CellSize float32
}

// WriteCollision writes the polygons and, when the mesh has one, the
// lookup grid after them.
func WriteCollision(w io.Writer, m *physics.Mesh, scale float32) error {
	e := newEncoder(w, scale)
	e.count(len(m.Polygons))
	for i := range m.Polygons {
		p := &m.Polygons[i]
		rec := polygonRecord{
			Type:     p.Type(),
			Material: p.Material,
			Bounds:   interleave(p.Min, p.Max, scale),
		}
		for k, pl := range p.Planes {
			pl = pl.Scaled(scale)
			rec.Planes[k] = planeRecord{Normal: pl.Normal, Dist: pl.Dist}
		}
		e.put(&rec)
	}

	if g := m.Lookup; g != nil {
		size := g.Size()
		e.put(&lookupHeader{
			Origin:   [2]float32{g.Origin[0] * scale, g.Origin[1] * scale},
			Size:     [2]float32{size[0] * scale, size[1] * scale},
			CellSize: g.CellSize * scale,
		})
		for _, cell := range g.Cells {
			e.count(len(cell))
			e.put(cell)
		}
	}
	return e.flush()
}

// ReadCollision parses a collision file. A file that ends after the
// polygons has no lookup grid.
func ReadCollision(r io.Reader) (*physics.Mesh, error) {
	d := newDecoder(r)
	m := &physics.Mesh{Polygons: make([]physics.Polygon, d.count("polygon"))}
	for i := range m.Polygons {
		var rec polygonRecord
		d.get(&rec)
		p := physics.Polygon{
			Quad:     rec.Type&physics.TypeQuad != 0,
			Material: rec.Material,
			Flags:    rec.Type &^ physics.TypeQuad,
		}
		for k, pl := range rec.Planes {
			p.Planes[k] = geom.Plane{Normal: pl.Normal, Dist: pl.Dist}
		}
		p.Min, p.Max = deinterleave(rec.Bounds)
		if i == 0 {
			m.Min, m.Max = p.Min, p.Max
		} else {
			m.Min, m.Max = geom.Union(m.Min, m.Max, p.Min, p.Max)
		}
		m.Polygons[i] = p
	}
	if d.err != nil {
		return nil, d.err
	}
	if d.atEOF() {
		return m, nil
	}

	var hdr lookupHeader
	d.get(&hdr)
	if d.err != nil {
		return nil, d.err
	}
	if hdr.CellSize <= 0 {
		return nil, fmt.Errorf("bad lookup cell size %v", hdr.CellSize)
	}
	g := &physics.LookupGrid{
		Origin:   hdr.Origin,
		CellSize: hdr.CellSize,
		Cols:     int(math.Round(float64(hdr.Size[0] / hdr.CellSize))),
		Rows:     int(math.Round(float64(hdr.Size[1] / hdr.CellSize))),
	}
	if g.Cols <= 0 || g.Rows <= 0 || g.Cols*g.Rows > 1<<24 {
		return nil, fmt.Errorf("bad lookup grid %dx%d", g.Cols, g.Rows)
	}
	g.Cells = make([][]int32, g.Cols*g.Rows)
	for i := range g.Cells {
		n := d.count("lookup cell")
		if n == 0 {
			continue
		}
		g.Cells[i] = make([]int32, n)
		d.get(g.Cells[i])
	}
	if d.err != nil {
		return nil, d.err
	}
	m.Lookup = g
	return m, nil
}

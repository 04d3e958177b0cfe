package meshing

import (
	"fmt"
	"math"

	"mini-track/internal/config"
	"mini-track/internal/geom"
	"mini-track/internal/registry"
	"mini-track/internal/track"
	"mini-track/pkg/moduledef"

	"github.com/go-gl/mathgl/mgl32"
)

// Prim is one world-space triangle or quad.
type Prim struct {
	Verts    []mgl32.Vec3
	Normal   mgl32.Vec3
	UV       [][2]float32
	Colors   []uint32
	Texture  string
	Material int32
	Flags    uint16
	Wall     bool
}

// Source selects which template faces are extracted.
type Source uint8

const (
	Render Source = iota
	Hull
)

// Buckets holds extracted primitives per grid cell, indexed y*Width+x.
type Buckets struct {
	Width, Height int
	Cells         [][]Prim
}

func (b *Buckets) index(c track.Coord) int { return c.Y*b.Width + c.X }

// At returns the bucket of cell c.
func (b *Buckets) At(c track.Coord) []Prim { return b.Cells[b.index(c)] }

// Count is the number of primitives over all cells.
func (b *Buckets) Count() int {
	n := 0
	for _, c := range b.Cells {
		n += len(c)
	}
	return n
}

// Extract transforms every placement's faces into world space and buckets
// them into the cell under their centroid. Peg faces are stacked once per
// elevation level; pan faces are dropped to the ground under elevated
// modules. Non-wall faces entirely below the floor of another placement
// they lie on, reach into or overhang are dropped.
func Extract(g *track.Grid, lib *registry.Library, src Source, geo config.Geometry, tol config.Tolerances) (*Buckets, error) {
	b := &Buckets{Width: g.Width, Height: g.Height, Cells: make([][]Prim, g.Width*g.Height)}
	for _, id := range g.Placements() {
		p := g.Placement(id)
		m, err := lib.Module(p.Module)
		if err != nil {
			return nil, fmt.Errorf("extract placement at %v: %w", p.Root, err)
		}
		faces := m.Mesh
		if src == Hull {
			faces = m.Hull
		}
		tr := geom.CellTransform(p.Root.X, p.Root.Y, p.Elevation, p.Rotation, geo.CellSize, geo.ElevationStep)
		for _, f := range faces {
			for _, prim := range instances(f, tr, p.Elevation, geo.ElevationStep) {
				// Nudged against the normal so faces on a cell edge land in
				// the cell they face out of.
				at := geom.Centroid(prim.Verts).Sub(prim.Normal.Mul(max(1, 2*tol.VertexWeld)))
				c := bucketOf(b, at, geo.CellSize)
				if belowNeighbour(g, id, c, prim, geo, tol) {
					continue
				}
				b.Cells[b.index(c)] = append(b.Cells[b.index(c)], prim)
			}
		}
	}
	return b, nil
}

// instances expands one template face into the world primitives it
// produces for a placement.
func instances(f moduledef.Face, tr geom.Transform, elevation int, step float32) []Prim {
	base := make([]mgl32.Vec3, len(f.Verts))
	for i, v := range f.Verts {
		base[i] = tr.Apply(v)
	}
	mk := func(dy float32) Prim {
		verts := make([]mgl32.Vec3, len(base))
		for i, v := range base {
			verts[i] = mgl32.Vec3{v[0], v[1] + dy, v[2]}
		}
		return Prim{
			Verts:    verts,
			Normal:   geom.FaceNormal(verts),
			UV:       f.UV,
			Colors:   f.Colors,
			Texture:  f.Texture,
			Material: f.Material,
			Flags:    f.Flags,
		}
	}

	switch f.Part {
	case moduledef.PartPeg:
		out := make([]Prim, 0, elevation)
		for k := 1; k <= elevation; k++ {
			out = append(out, mk(-float32(k-1)*step))
		}
		return out
	case moduledef.PartPan:
		if elevation == 0 {
			return nil
		}
		return []Prim{mk(-float32(elevation) * step)}
	}
	return []Prim{mk(0)}
}

func bucketOf(b *Buckets, p mgl32.Vec3, cellSize float32) track.Coord {
	x := int(math.Floor(float64(p[0] / cellSize)))
	y := int(math.Floor(float64(p[2] / cellSize)))
	return track.Coord{X: max(0, min(x, b.Width-1)), Y: max(0, min(y, b.Height-1))}
}

// belowNeighbour reports whether prim sits entirely below the floor of a
// different placement it reaches: one owning the cell it was bucketed into,
// or one across an edge that the prim lies on or overhangs.
func belowNeighbour(g *track.Grid, self track.PlacementID, c track.Coord, prim Prim, geo config.Geometry, tol config.Tolerances) bool {
	if prim.Wall {
		return false
	}
	_, maxY := verticalRange(prim.Verts)
	under := func(nid track.PlacementID) bool {
		return maxY <= float32(g.Placement(nid).Elevation)*geo.ElevationStep+tol.VertexWeld
	}
	if nid, ok := g.PlacementAt(c); ok && nid != self && under(nid) {
		return true
	}
	for edge := 0; edge < 4; edge++ {
		if !beyondEdge(prim.Verts, c, edge, geo.CellSize, tol.VertexWeld) {
			continue
		}
		nid, ok := g.PlacementAt(c.Neighbour(edge))
		if ok && nid != self && under(nid) {
			return true
		}
	}
	return false
}

// edgeLine returns the axis (0 = X, 2 = Z) and coordinate of a cell edge.
func edgeLine(c track.Coord, edge int, cellSize float32) (axis int, at float32) {
	switch edge {
	case 0:
		return 2, float32(c.Y) * cellSize
	case 1:
		return 0, float32(c.X+1) * cellSize
	case 2:
		return 2, float32(c.Y+1) * cellSize
	}
	return 0, float32(c.X) * cellSize
}

// beyondEdge reports whether every vertex lies on the edge line or on the
// far side of it.
func beyondEdge(verts []mgl32.Vec3, c track.Coord, edge int, cellSize, eps float32) bool {
	axis, at := edgeLine(c, edge, cellSize)
	out := float32(1)
	if edge == 0 || edge == 3 {
		out = -1
	}
	for _, v := range verts {
		if out*(v[axis]-at) < -eps {
			return false
		}
	}
	return true
}

func verticalRange(verts []mgl32.Vec3) (lo, hi float32) {
	lo, hi = float32(math.Inf(1)), float32(math.Inf(-1))
	for _, v := range verts {
		lo = min(lo, v[1])
		hi = max(hi, v[1])
	}
	return lo, hi
}

package meshing

import (
	"fmt"

	"mini-track/internal/config"
	"mini-track/internal/geom"
	"mini-track/internal/registry"
	"mini-track/internal/track"

	"github.com/go-gl/mathgl/mgl32"
)

// Wall primitive flags.
const (
	FlagWall  uint16 = 1 << 0
	FlagSkirt uint16 = 1 << 1
)

// Walls builds boundary walls for every edge a template flags as needing
// one, when the cell across it is off the grid, empty, owned by another
// placement, or lower. Each open edge gets an inward barrier of WallHeight
// above the floor; a lower neighbour also gets an outward skirt covering
// the drop.
func Walls(g *track.Grid, lib *registry.Library, geo config.Geometry) ([]Prim, error) {
	var out []Prim
	for _, id := range g.Placements() {
		p := g.Placement(id)
		m, err := lib.Module(p.Module)
		if err != nil {
			return nil, fmt.Errorf("walls for placement at %v: %w", p.Root, err)
		}
		floor := float32(p.Elevation) * geo.ElevationStep
		for i, off := range p.Footprint {
			cell, ok := m.CellAt(off)
			if !ok || i >= len(p.Cells) {
				continue
			}
			c := p.Cells[i]
			for local, flagged := range cell.Walls {
				if !flagged {
					continue
				}
				edge := geom.RotateEdge(p.Rotation, local)
				open, below := openEdge(g, id, c, edge, geo.ElevationStep)
				if !open {
					continue
				}
				a, b := edgeEnds(c, edge, geo.CellSize)
				out = append(out, wallQuad(a, b, floor, floor+geo.WallHeight, FlagWall))
				if below < floor {
					out = append(out, wallQuad(b, a, below, floor, FlagWall|FlagSkirt))
				}
			}
		}
	}
	return out, nil
}

// openEdge decides whether the edge needs a wall and returns the floor
// height across it (ground when nothing is there).
func openEdge(g *track.Grid, self track.PlacementID, c track.Coord, edge int, step float32) (open bool, floor float32) {
	nid, ok := g.PlacementAt(c.Neighbour(edge))
	if !ok {
		return true, 0
	}
	if nid != self {
		return true, float32(g.Placement(nid).Elevation) * step
	}
	return false, 0
}

// edgeEnds returns the edge's endpoints ordered so that (b-a) × up points
// into the cell.
func edgeEnds(c track.Coord, edge int, size float32) (a, b mgl32.Vec3) {
	x0, x1 := float32(c.X)*size, float32(c.X+1)*size
	z0, z1 := float32(c.Y)*size, float32(c.Y+1)*size
	switch edge {
	case 0:
		return mgl32.Vec3{x0, 0, z0}, mgl32.Vec3{x1, 0, z0}
	case 1:
		return mgl32.Vec3{x1, 0, z0}, mgl32.Vec3{x1, 0, z1}
	case 2:
		return mgl32.Vec3{x1, 0, z1}, mgl32.Vec3{x0, 0, z1}
	}
	return mgl32.Vec3{x0, 0, z1}, mgl32.Vec3{x0, 0, z0}
}

func wallQuad(a, b mgl32.Vec3, lo, hi float32, flags uint16) Prim {
	verts := []mgl32.Vec3{
		{a[0], lo, a[2]},
		{b[0], lo, b[2]},
		{b[0], hi, b[2]},
		{a[0], hi, a[2]},
	}
	return Prim{
		Verts:   verts,
		Normal:  geom.FaceNormal(verts),
		UV:      [][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}},
		Colors:  []uint32{0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff},
		Texture: registry.WallTexture,
		Flags:   flags,
		Wall:    true,
	}
}

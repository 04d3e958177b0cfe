package physics

import (
	"math"
	"sort"
)

// LookupGrid maps X/Z grid cells to the polygons whose bounds, grown by the
// fudge margin, overlap them.
type LookupGrid struct {
	Origin     [2]float32
	Cols, Rows int
	CellSize   float32
	Cells      [][]int32
}

// BuildLookup covers the polygons' combined X/Z bounds plus fudge on every
// side. It returns nil for an empty mesh.
func BuildLookup(polys []Polygon, cellSize, fudge float32) *LookupGrid {
	if len(polys) == 0 || cellSize <= 0 {
		return nil
	}
	x0, z0 := polys[0].Min[0], polys[0].Min[2]
	x1, z1 := polys[0].Max[0], polys[0].Max[2]
	for _, p := range polys[1:] {
		x0, z0 = min(x0, p.Min[0]), min(z0, p.Min[2])
		x1, z1 = max(x1, p.Max[0]), max(z1, p.Max[2])
	}
	g := &LookupGrid{
		Origin:   [2]float32{x0 - fudge, z0 - fudge},
		CellSize: cellSize,
	}
	g.Cols = max(1, int(math.Ceil(float64((x1-x0+2*fudge)/cellSize))))
	g.Rows = max(1, int(math.Ceil(float64((z1-z0+2*fudge)/cellSize))))
	g.Cells = make([][]int32, g.Cols*g.Rows)

	for i, p := range polys {
		c0, r0, c1, r1 := g.cellRange(p.Min[0]-fudge, p.Min[2]-fudge, p.Max[0]+fudge, p.Max[2]+fudge)
		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				g.Cells[r*g.Cols+c] = append(g.Cells[r*g.Cols+c], int32(i))
			}
		}
	}
	return g
}

// Size is the covered extent along X and Z.
func (g *LookupGrid) Size() [2]float32 {
	return [2]float32{float32(g.Cols) * g.CellSize, float32(g.Rows) * g.CellSize}
}

func (g *LookupGrid) cellRange(x0, z0, x1, z1 float32) (c0, r0, c1, r1 int) {
	col := func(x float32) int {
		return max(0, min(g.Cols-1, int(math.Floor(float64((x-g.Origin[0])/g.CellSize)))))
	}
	row := func(z float32) int {
		return max(0, min(g.Rows-1, int(math.Floor(float64((z-g.Origin[1])/g.CellSize)))))
	}
	return col(x0), row(z0), col(x1), row(z1)
}

// Candidates lists, once each and in ascending order, the polygons
// registered in any cell touching the X/Z rectangle.
func (g *LookupGrid) Candidates(x0, z0, x1, z1 float32) []int32 {
	c0, r0, c1, r1 := g.cellRange(min(x0, x1), min(z0, z1), max(x0, x1), max(z0, z1))
	seen := make(map[int32]struct{})
	var out []int32
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			for _, i := range g.Cells[r*g.Cols+c] {
				if _, ok := seen[i]; ok {
					continue
				}
				seen[i] = struct{}{}
				out = append(out, i)
			}
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

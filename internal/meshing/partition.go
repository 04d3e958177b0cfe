package meshing

import (
	"math"
	"sort"

	"mini-track/internal/geom"
)

// SplitCube cuts one large unit of primitives into pieces on a uniform X/Z
// grid of the given size, by centroid. Pieces come out ordered by row then
// column.
func SplitCube(prims []Prim, size float32) [][]Prim {
	if len(prims) == 0 {
		return nil
	}
	type key struct{ x, z int }
	parts := make(map[key][]Prim)
	for _, p := range prims {
		c := geom.Centroid(p.Verts)
		k := key{
			x: int(math.Floor(float64(c[0] / size))),
			z: int(math.Floor(float64(c[2] / size))),
		}
		parts[k] = append(parts[k], p)
	}
	keys := make([]key, 0, len(parts))
	for k := range parts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].z != keys[j].z {
			return keys[i].z < keys[j].z
		}
		return keys[i].x < keys[j].x
	})
	out := make([][]Prim, len(keys))
	for i, k := range keys {
		out[i] = parts[k]
	}
	return out
}

type rect struct{ x0, z0, x1, z1 float32 }

func (r rect) overlap(o rect) float32 {
	w := min(r.x1, o.x1) - max(r.x0, o.x0)
	h := min(r.z1, o.z1) - max(r.z0, o.z0)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// BigCubes groups SmallCubes on a uniform X/Z grid of the given size. Each
// SmallCube joins the region its bounding rectangle overlaps most; the
// first region wins a tie, and a cube with no area at all joins the region
// holding its center. Regions left empty are dropped.
func BigCubes(small []SmallCube, size float32) []BigCube {
	if len(small) == 0 {
		return nil
	}
	lo, hi := small[0].Min, small[0].Max
	for i := range small[1:] {
		lo, hi = geom.Union(lo, hi, small[i+1].Min, small[i+1].Max)
	}
	ox := float32(math.Floor(float64(lo[0]/size))) * size
	oz := float32(math.Floor(float64(lo[2]/size))) * size
	cols := max(1, int(math.Ceil(float64((hi[0]-ox)/size))))
	rows := max(1, int(math.Ceil(float64((hi[2]-oz)/size))))

	region := func(col, row int) rect {
		x0 := ox + float32(col)*size
		z0 := oz + float32(row)*size
		return rect{x0, z0, x0 + size, z0 + size}
	}

	members := make([][]int32, cols*rows)
	for i := range small {
		sc := &small[i]
		r := rect{sc.Min[0], sc.Min[2], sc.Max[0], sc.Max[2]}
		best, bestArea := -1, float32(0)
		for row := 0; row < rows; row++ {
			for col := 0; col < cols; col++ {
				if a := r.overlap(region(col, row)); a > bestArea {
					best, bestArea = row*cols+col, a
				}
			}
		}
		if best < 0 {
			col := max(0, min(cols-1, int(math.Floor(float64((sc.Center[0]-ox)/size)))))
			row := max(0, min(rows-1, int(math.Floor(float64((sc.Center[2]-oz)/size)))))
			best = row*cols + col
		}
		members[best] = append(members[best], int32(i))
	}

	var out []BigCube
	for _, m := range members {
		if len(m) == 0 {
			continue
		}
		bc := BigCube{Cubes: m, Min: small[m[0]].Min, Max: small[m[0]].Max}
		for _, idx := range m[1:] {
			bc.Min, bc.Max = geom.Union(bc.Min, bc.Max, small[idx].Min, small[idx].Max)
		}
		bc.Center = bc.Min.Add(bc.Max).Mul(0.5)
		bc.Radius = bc.Max.Sub(bc.Min).Len() / 2
		out = append(out, bc)
	}
	return out
}


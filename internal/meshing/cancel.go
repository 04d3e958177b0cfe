package meshing

import (
	"mini-track/internal/config"
	"mini-track/internal/geom"
	"mini-track/internal/track"
)

// Cancel removes pairs of back-to-back primitives that sit in neighbouring
// cells: the seams where two modules meet. Cells are visited in
// checkerboard order and compared against their four neighbours, so every
// neighbouring pair is looked at exactly once. It returns the number of
// primitives removed.
func Cancel(b *Buckets, tol config.Tolerances) int {
	removed := 0
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			if (x+y)%2 != 0 {
				continue
			}
			c := track.Coord{X: x, Y: y}
			for edge := 0; edge < 4; edge++ {
				n := c.Neighbour(edge)
				if n.X < 0 || n.X >= b.Width || n.Y < 0 || n.Y >= b.Height {
					continue
				}
				removed += cancelPair(b, b.index(c), b.index(n), tol)
			}
		}
	}
	return removed
}

func cancelPair(b *Buckets, ci, ni int, tol config.Tolerances) int {
	cell, nb := b.Cells[ci], b.Cells[ni]
	removed := 0
	for i := 0; i < len(cell); i++ {
		for j := 0; j < len(nb); j++ {
			if !Opposite(cell[i], nb[j], tol) {
				continue
			}
			cell = append(cell[:i], cell[i+1:]...)
			nb = append(nb[:j], nb[j+1:]...)
			removed += 2
			i--
			break
		}
	}
	b.Cells[ci], b.Cells[ni] = cell, nb
	return removed
}

// Opposite reports whether a and b are the same surface facing opposite
// ways: anti-parallel normals and the same ring walked backwards.
func Opposite(a, b Prim, tol config.Tolerances) bool {
	n := len(a.Verts)
	if n != len(b.Verts) || n == 0 {
		return false
	}
	if a.Normal.Dot(b.Normal) > -(1 - tol.NormalEpsilon) {
		return false
	}
	start := -1
	for k := range b.Verts {
		if geom.Near(a.Verts[0], b.Verts[k], tol.VertexWeld) {
			start = k
			break
		}
	}
	if start < 0 {
		return false
	}
	for m := 1; m < n; m++ {
		if !geom.Near(a.Verts[m], b.Verts[(start-m+n)%n], tol.VertexWeld) {
			return false
		}
	}
	return true
}

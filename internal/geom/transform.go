// Package geom holds the small amount of rigid-body math the track compiler
// needs: quarter-turn rotations about the vertical axis, planes and face
// helpers. Everything is float32 and built on mgl32 vectors.
package geom

import "github.com/go-gl/mathgl/mgl32"

// Rotation is a clockwise-from-above quarter turn count in [0,3].
// One quarter turn maps +X onto +Z.
type Rotation uint8

// Add returns the rotation advanced by n quarter turns.
func (r Rotation) Add(n int) Rotation {
	return Rotation(((int(r)+n)%4 + 4) % 4)
}

// Swaps reports whether the rotation exchanges the X and Z extents.
func (r Rotation) Swaps() bool {
	return r%2 == 1
}

// quarterTurns holds cos/sin for the four cardinal rotations so transforms
// never go through a general matrix multiply.
var quarterTurns = [4][2]float32{
	{1, 0},
	{0, 1},
	{-1, 0},
	{0, -1},
}

// Transform is a rotation about the local origin followed by a translation.
type Transform struct {
	Rot    Rotation
	Offset mgl32.Vec3
}

// Apply maps a local point into world space.
func (t Transform) Apply(p mgl32.Vec3) mgl32.Vec3 {
	return t.ApplyDir(p).Add(t.Offset)
}

// ApplyDir rotates a direction without translating it.
func (t Transform) ApplyDir(d mgl32.Vec3) mgl32.Vec3 {
	cs := quarterTurns[t.Rot%4]
	c, s := cs[0], cs[1]
	return mgl32.Vec3{c*d[0] - s*d[2], d[1], s*d[0] + c*d[2]}
}

// ApplySize rotates an extent; quarter turns swap X and Z.
func (t Transform) ApplySize(s mgl32.Vec3) mgl32.Vec3 {
	if t.Rot.Swaps() {
		return mgl32.Vec3{s[2], s[1], s[0]}
	}
	return s
}

// RotateOffset rotates an integer grid offset (dx along X, dy along Z).
func RotateOffset(r Rotation, dx, dy int) (int, int) {
	switch r % 4 {
	case 1:
		return -dy, dx
	case 2:
		return -dx, -dy
	case 3:
		return dy, -dx
	}
	return dx, dy
}

// RotateEdge maps a local edge direction (N=0, E=1, S=2, W=3) to world.
func RotateEdge(r Rotation, edge int) int {
	return (edge + int(r)) % 4
}

// CellTransform places module-local space on the grid: the local origin is
// the center of cell (x, y) at the floor of the given elevation level.
func CellTransform(x, y, elevation int, rot Rotation, cellSize, step float32) Transform {
	return Transform{
		Rot: rot % 4,
		Offset: mgl32.Vec3{
			(float32(x) + 0.5) * cellSize,
			float32(elevation) * step,
			(float32(y) + 0.5) * cellSize,
		},
	}
}

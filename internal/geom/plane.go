package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Plane is the set of points p with Normal·p == Dist.
type Plane struct {
	Normal mgl32.Vec3
	Dist   float32
}

// PlaneFrom builds a plane through p with the given (unit) normal.
func PlaneFrom(n mgl32.Vec3, p mgl32.Vec3) Plane {
	return Plane{Normal: n, Dist: n.Dot(p)}
}

// Flip returns the back-facing plane.
func (p Plane) Flip() Plane {
	return Plane{Normal: p.Normal.Mul(-1), Dist: -p.Dist}
}

// Coplanar reports whether two planes describe the same oriented plane.
func (p Plane) Coplanar(o Plane, normalEps, distEps float32) bool {
	return p.Normal.Dot(o.Normal) >= 1-normalEps && abs(p.Dist-o.Dist) <= distEps
}

// AntiParallel reports whether o is p seen from the other side.
func (p Plane) AntiParallel(o Plane, normalEps, distEps float32) bool {
	return p.Coplanar(o.Flip(), normalEps, distEps)
}

// Scaled returns the plane after a uniform scale of space about the origin.
func (p Plane) Scaled(s float32) Plane {
	return Plane{Normal: p.Normal, Dist: p.Dist * s}
}

// FaceNormal returns the Newell normal of a polygon ring, normalised. A
// degenerate ring yields the zero vector.
func FaceNormal(ring []mgl32.Vec3) mgl32.Vec3 {
	var n mgl32.Vec3
	for i := range ring {
		a := ring[i]
		b := ring[(i+1)%len(ring)]
		n[0] += (a[1] - b[1]) * (a[2] + b[2])
		n[1] += (a[2] - b[2]) * (a[0] + b[0])
		n[2] += (a[0] - b[0]) * (a[1] + b[1])
	}
	if n.Len() == 0 {
		return n
	}
	return n.Normalize()
}

// Centroid is the vertex average of a ring.
func Centroid(ring []mgl32.Vec3) mgl32.Vec3 {
	var c mgl32.Vec3
	for _, v := range ring {
		c = c.Add(v)
	}
	if len(ring) == 0 {
		return c
	}
	return c.Mul(1 / float32(len(ring)))
}

// Bounds returns the axis-aligned box of a set of points.
func Bounds(pts []mgl32.Vec3) (min, max mgl32.Vec3) {
	if len(pts) == 0 {
		return
	}
	min, max = pts[0], pts[0]
	for _, p := range pts[1:] {
		for a := 0; a < 3; a++ {
			if p[a] < min[a] {
				min[a] = p[a]
			}
			if p[a] > max[a] {
				max[a] = p[a]
			}
		}
	}
	return min, max
}

// Union grows a box to contain another.
func Union(min, max, omin, omax mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	for a := 0; a < 3; a++ {
		if omin[a] < min[a] {
			min[a] = omin[a]
		}
		if omax[a] > max[a] {
			max[a] = omax[a]
		}
	}
	return min, max
}

// Near reports whether two points lie within eps of each other.
func Near(a, b mgl32.Vec3, eps float32) bool {
	return a.Sub(b).Len() <= eps
}

// HorizontalDist is the distance between two points ignoring height.
func HorizontalDist(a, b mgl32.Vec3) float32 {
	dx := a[0] - b[0]
	dz := a[2] - b[2]
	return float32(math.Sqrt(float64(dx*dx + dz*dz)))
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

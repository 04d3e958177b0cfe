package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// contactEpsilon is how far outside a polygon's side planes a hit may land
// and still count.
const contactEpsilon = 0.01

// RaycastResult stores the result of a raycast operation
type RaycastResult struct {
	Polygon  int
	Position mgl32.Vec3
	Distance float32
	Hit      bool
}

// Raycast finds the nearest polygon facing the ray between minDist and
// maxDist along dir, which must be unit length. Candidates come from the
// lookup grid cells under the ray's footprint.
func (m *Mesh) Raycast(start, dir mgl32.Vec3, minDist, maxDist float32) RaycastResult {
	result := RaycastResult{Polygon: -1}
	end := start.Add(dir.Mul(maxDist))

	var candidates []int32
	if m.Lookup != nil {
		candidates = m.Lookup.Candidates(start[0], start[2], end[0], end[2])
	} else {
		for i := range m.Polygons {
			candidates = append(candidates, int32(i))
		}
	}

	best := float32(math.Inf(1))
	for _, i := range candidates {
		p := &m.Polygons[i]
		main := p.Main()
		denom := main.Normal.Dot(dir)
		if denom >= 0 {
			continue
		}
		t := (main.Dist - main.Normal.Dot(start)) / denom
		if t < minDist || t > maxDist || t >= best {
			continue
		}
		hit := start.Add(dir.Mul(t))
		if !p.Contains(hit, contactEpsilon) {
			continue
		}
		best = t
		result = RaycastResult{Polygon: int(i), Position: hit, Distance: t, Hit: true}
	}
	return result
}

// GroundBelow returns the height of the first upward-facing surface
// straight down from p.
func (m *Mesh) GroundBelow(p mgl32.Vec3) (float32, bool) {
	depth := p[1] - m.Min[1] + 1
	if depth <= 0 {
		return 0, false
	}
	r := m.Raycast(p, mgl32.Vec3{0, -1, 0}, 0, depth)
	if !r.Hit {
		return 0, false
	}
	return r.Position[1], true
}

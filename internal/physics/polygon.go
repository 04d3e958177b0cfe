package physics

import (
	"mini-track/internal/config"
	"mini-track/internal/geom"
	"mini-track/internal/meshing"

	"github.com/go-gl/mathgl/mgl32"
)

// TypeQuad is set in a polygon's type flags when it has four sides.
// Template flags only use the low 16 bits.
const TypeQuad uint32 = 1 << 16

// Polygon is a convex collision surface: a main plane bounded by up to four
// outward-facing side planes. A triangle repeats its last side.
type Polygon struct {
	Planes   [5]geom.Plane
	Quad     bool
	Material int32
	Flags    uint32
	Min, Max mgl32.Vec3
}

func (p *Polygon) Main() geom.Plane { return p.Planes[0] }

// Side returns side plane m, counting modulo 4 in ring order.
func (p *Polygon) Side(m int) geom.Plane { return p.Planes[1+m%4] }

func (p *Polygon) setSide(m int, pl geom.Plane) { p.Planes[1+m%4] = pl }

// Type is the flag word written to the collision file.
func (p *Polygon) Type() uint32 {
	if p.Quad {
		return p.Flags | TypeQuad
	}
	return p.Flags
}

// FromPrim builds the collision polygon of a world-space primitive. Side i
// runs along the edge from vertex i to vertex i+1.
func FromPrim(prim meshing.Prim) Polygon {
	n := prim.Normal
	k := len(prim.Verts)
	poly := Polygon{
		Quad:     k == 4,
		Material: prim.Material,
		Flags:    uint32(prim.Flags),
	}
	poly.Planes[0] = geom.PlaneFrom(n, prim.Verts[0])
	for i := 0; i < 4; i++ {
		if i >= k {
			poly.Planes[1+i] = poly.Planes[k]
			continue
		}
		a, b := prim.Verts[i], prim.Verts[(i+1)%k]
		out := b.Sub(a).Cross(n)
		if out.Len() > 0 {
			out = out.Normalize()
		}
		poly.Planes[1+i] = geom.PlaneFrom(out, a)
	}
	poly.Min, poly.Max = geom.Bounds(prim.Verts)
	return poly
}

// Contains reports whether p, assumed on the main plane, lies within every
// side plane.
func (p *Polygon) Contains(pt mgl32.Vec3, eps float32) bool {
	for m := 0; m < 4; m++ {
		s := p.Side(m)
		if s.Normal.Dot(pt) > s.Dist+eps {
			return false
		}
	}
	return true
}

// matchSides finds the side pair along which a and b join into one larger
// quad: a's side m is b's side n seen from behind, and the sides next to
// them line up ((m+1, n+3) and (m+3, n+1)).
func matchSides(a, b *Polygon, tol config.Tolerances) (m, n int, ok bool) {
	if !a.Quad || !b.Quad || a.Material != b.Material || a.Flags != b.Flags {
		return 0, 0, false
	}
	ne, pd := tol.NormalEpsilon, tol.PlaneDistance
	if !a.Main().Coplanar(b.Main(), ne, pd) {
		return 0, 0, false
	}
	for m := 0; m < 4; m++ {
		for n := 0; n < 4; n++ {
			if !a.Side(m).AntiParallel(b.Side(n), ne, pd) {
				continue
			}
			if a.Side(m+1).Coplanar(b.Side(n+3), ne, pd) && a.Side(m+3).Coplanar(b.Side(n+1), ne, pd) {
				return m, n, true
			}
		}
	}
	return 0, 0, false
}

// Mergeable reports whether a and b form one larger coplanar quad.
func Mergeable(a, b Polygon, tol config.Tolerances) bool {
	_, _, ok := matchSides(&a, &b, tol)
	return ok
}

// Merge grows a over b when they are mergeable: a's joined side is replaced
// by the side of b opposite the join, and the bounds are combined.
func Merge(a *Polygon, b *Polygon, tol config.Tolerances) bool {
	m, n, ok := matchSides(a, b, tol)
	if !ok {
		return false
	}
	a.setSide(m, b.Side(n+2))
	a.Min, a.Max = geom.Union(a.Min, a.Max, b.Min, b.Max)
	return true
}

// MergeAll merges polygons pairwise until a full pass finds nothing to
// merge. It returns the surviving polygons and the number of merges. Each
// merge removes a polygon, so the loop is bounded by the input size.
func MergeAll(polys []Polygon, tol config.Tolerances) ([]Polygon, int) {
	merges := 0
	for {
		merged := false
		for i := 0; i < len(polys); i++ {
			for j := i + 1; j < len(polys); j++ {
				if !Merge(&polys[i], &polys[j], tol) {
					continue
				}
				polys = append(polys[:j], polys[j+1:]...)
				merges++
				merged = true
				j--
			}
		}
		if !merged {
			return polys, merges
		}
	}
}

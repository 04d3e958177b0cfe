// Package zone builds the drivable-corridor graph of a track and walks it
// from the start module to discover the lap.
package zone

import (
	"fmt"
	"math"

	"mini-track/internal/config"
	"mini-track/internal/geom"
	"mini-track/internal/registry"
	"mini-track/internal/track"

	"github.com/go-gl/mathgl/mgl32"
)

// Zone is one placed module's corridor in world space.
type Zone struct {
	Center mgl32.Vec3
	Size   mgl32.Vec3
	Links  [2]mgl32.Vec3
	Pipe   bool
	// Cell is the grid cell under Center, clamped to the grid.
	Cell      track.Coord
	Placement track.PlacementID
	// Index is the zone's position in its template; bridges carry two.
	Index int
}

// Contains reports whether p lies inside the zone rectangle in X/Z.
func (z *Zone) Contains(p mgl32.Vec3) bool {
	return abs(p[0]-z.Center[0]) <= z.Size[0]/2 && abs(p[2]-z.Center[2]) <= z.Size[2]/2
}

// Build transforms every placement's template zones into world space.
// Zones come out in placement order, template order within a placement.
func Build(g *track.Grid, lib *registry.Library, geo config.Geometry) ([]Zone, error) {
	var zones []Zone
	for _, id := range g.Placements() {
		p := g.Placement(id)
		m, err := lib.Module(p.Module)
		if err != nil {
			return nil, fmt.Errorf("placement at %v: %w", p.Root, err)
		}
		tr := geom.CellTransform(p.Root.X, p.Root.Y, p.Elevation, p.Rotation, geo.CellSize, geo.ElevationStep)
		for i, tz := range m.Zones {
			z := Zone{
				Center:    tr.Apply(tz.Center),
				Size:      tr.ApplySize(tz.Size),
				Links:     [2]mgl32.Vec3{tr.Apply(tz.Links[0]), tr.Apply(tz.Links[1])},
				Pipe:      lib.IsPipe(p.Module),
				Placement: id,
				Index:     i,
			}
			z.Cell = cellOf(g, z.Center, geo.CellSize)
			zones = append(zones, z)
		}
	}
	return zones, nil
}

func cellOf(g *track.Grid, p mgl32.Vec3, cellSize float32) track.Coord {
	c := track.Coord{
		X: int(math.Floor(float64(p[0] / cellSize))),
		Y: int(math.Floor(float64(p[2] / cellSize))),
	}
	c.X = max(0, min(c.X, g.Width-1))
	c.Y = max(0, min(c.Y, g.Height-1))
	return c
}

// FindStartZone returns the zone of the start placement whose rectangle
// contains point, or -1.
func FindStartZone(zones []Zone, start track.PlacementID, point mgl32.Vec3) int {
	for i := range zones {
		if zones[i].Placement == start && zones[i].Contains(point) {
			return i
		}
	}
	return -1
}

// FindNextZone looks for the link point of another zone that joins link,
// the point where traffic leaves zones[current]. It returns the zone and
// which of its links was matched (the side traffic enters by).
func FindNextZone(zones []Zone, current int, link mgl32.Vec3, tol config.Tolerances) (next, entry int, ok bool) {
	next, entry = -1, -1
	best := tol.LinkDistance
	for i := range zones {
		if i == current {
			continue
		}
		for side, cand := range zones[i].Links {
			d := geom.HorizontalDist(link, cand)
			if d >= best {
				continue
			}
			if !linkAllowed(&zones[current], &zones[i], link, cand, tol) {
				continue
			}
			best = d
			next, entry = i, side
		}
	}
	return next, entry, next >= 0
}

// linkAllowed applies the height rules: pipes must line up vertically,
// everything else may only link level or upwards.
func linkAllowed(cur, cand *Zone, link, to mgl32.Vec3, tol config.Tolerances) bool {
	if cur.Pipe && cand.Pipe {
		return abs(link[1]-to[1]) <= tol.PipeVertical
	}
	return link[1] <= to[1]+tol.HeightSlack
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

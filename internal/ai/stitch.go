// Package ai joins the AI routes of every module on the lap into one closed
// racing path.
package ai

import (
	"errors"
	"fmt"

	"mini-track/internal/config"
	"mini-track/internal/geom"
	"mini-track/internal/registry"
	"mini-track/internal/track"
	"mini-track/internal/zone"
	"mini-track/pkg/moduledef"

	"github.com/go-gl/mathgl/mgl32"
)

// Node is one cross-section of the track. RacingLine is the fraction of the
// way from Left to Right the ideal line runs at.
type Node struct {
	Left       mgl32.Vec3
	Right      mgl32.Vec3
	RacingLine float32
	Priority   uint8
}

// Center is the midpoint of the cross-section.
func (n Node) Center() mgl32.Vec3 {
	return n.Left.Add(n.Right).Mul(0.5)
}

func (n Node) height() float32 {
	return (n.Left[1] + n.Right[1]) / 2
}

var (
	ErrNoRoute   = errors.New("module has no AI route")
	ErrNoMatch   = errors.New("no AI route continues the path")
	ErrNotClosed = errors.New("AI path does not close")
)

// BreakError reports where stitching stopped. Entry indexes the zone
// sequence; Zone is the zone of that entry.
type BreakError struct {
	Entry int
	Zone  int
	Cell  track.Coord
	Err   error
}

func (e *BreakError) Error() string {
	return fmt.Sprintf("AI path broken at %v (sequence entry %d): %v", e.Cell, e.Entry, e.Err)
}

func (e *BreakError) Unwrap() error { return e.Err }

// Stitcher walks the resolved grid in lap order.
type Stitcher struct {
	Grid  *track.Grid
	Lib   *registry.Library
	Zones []zone.Zone
	Geo   config.Geometry
	Tol   config.Tolerances
}

type match struct {
	route    []moduledef.RouteNode
	reversed bool
	crossed  bool
	dist     float32
}

// Stitch builds the closed node list. It is a pure function of its inputs.
func (s *Stitcher) Stitch(seq zone.Sequence) ([]Node, error) {
	if len(seq.Entries) == 0 {
		return nil, &BreakError{Entry: 0, Err: ErrNoRoute}
	}

	first := seq.Entries[0]
	p, m, err := s.module(first.Zone)
	if err != nil {
		return nil, s.breakAt(0, first.Zone, err)
	}
	if len(m.Routes) == 0 || len(m.Routes[0].Nodes) == 0 {
		return nil, s.breakAt(0, first.Zone, ErrNoRoute)
	}
	tr := s.transform(p)
	seed := transformRoute(tr, m.Routes[0].Nodes)
	nodes := emit(nil, seed, first.Reversed, first.Reversed, 0)

	for i := 1; i < len(seq.Entries); i++ {
		e := seq.Entries[i]
		p, m, err := s.module(e.Zone)
		if err != nil {
			return nil, s.breakAt(i, e.Zone, err)
		}
		tr := s.transform(p)
		best, ok := s.bestMatch(nodes[len(nodes)-1], tr, m.Routes)
		if !ok {
			return nil, s.breakAt(i, e.Zone, ErrNoMatch)
		}

		ordered := best.route
		if best.reversed {
			ordered = reverseNodes(ordered)
		}
		last := nodes[len(nodes)-1]
		offset := last.height() - emitOne(ordered[0], best.crossed).height()

		added := emit(nil, ordered, false, best.crossed, offset)
		// The route's first node is the same cross-section as our last one.
		merged := &nodes[len(nodes)-1]
		merged.RacingLine = (merged.RacingLine + added[0].RacingLine) / 2
		merged.Priority = added[0].Priority
		nodes = append(nodes, added[1:]...)
	}

	n := len(nodes)
	if n <= 2 || !s.sameSection(nodes[0], nodes[n-1], false) {
		last := seq.Entries[len(seq.Entries)-1]
		return nil, s.breakAt(len(seq.Entries)-1, last.Zone, ErrNotClosed)
	}
	return nodes[:n-1], nil
}

func (s *Stitcher) module(zi int) (*track.Placement, *moduledef.Module, error) {
	p := s.Grid.Placement(s.Zones[zi].Placement)
	if p == nil {
		return nil, nil, fmt.Errorf("zone %d: %w", zi, track.ErrNoPlacement)
	}
	m, err := s.Lib.Module(p.Module)
	if err != nil {
		return nil, nil, err
	}
	return p, m, nil
}

func (s *Stitcher) transform(p *track.Placement) geom.Transform {
	return geom.CellTransform(p.Root.X, p.Root.Y, p.Elevation, p.Rotation, s.Geo.CellSize, s.Geo.ElevationStep)
}

func (s *Stitcher) breakAt(entry, zi int, err error) *BreakError {
	be := &BreakError{Entry: entry, Zone: zi, Err: err}
	if zi >= 0 && zi < len(s.Zones) {
		be.Cell = s.Zones[zi].Cell
	}
	return be
}

// bestMatch tries both ends of every route against the last emitted node,
// each in straight and crossed orientation, and keeps the nearest.
func (s *Stitcher) bestMatch(last Node, tr geom.Transform, routes []moduledef.Route) (match, bool) {
	var best match
	found := false
	for _, r := range routes {
		if len(r.Nodes) == 0 {
			continue
		}
		world := transformRoute(tr, r.Nodes)
		ends := [2]int{0, len(world) - 1}
		for ei, idx := range ends {
			if ei == 1 && idx == 0 {
				break
			}
			for _, crossed := range []bool{false, true} {
				cand := emitOne(world[idx], crossed)
				if !s.sameSection(last, cand, true) {
					continue
				}
				d := geom.HorizontalDist(last.Left, cand.Left) + geom.HorizontalDist(last.Right, cand.Right)
				if !found || d < best.dist {
					best = match{route: world, reversed: ei == 1, crossed: crossed, dist: d}
					found = true
				}
			}
		}
	}
	return best, found
}

// sameSection reports whether b's edges sit on a's within the AI match
// distance. With rising set, b must also not be lower than a.
func (s *Stitcher) sameSection(a, b Node, rising bool) bool {
	if geom.HorizontalDist(a.Left, b.Left) > s.Tol.AIMatchDistance ||
		geom.HorizontalDist(a.Right, b.Right) > s.Tol.AIMatchDistance {
		return false
	}
	return !rising || b.height() >= a.height()-s.Tol.HeightSlack
}

func transformRoute(tr geom.Transform, route []moduledef.RouteNode) []moduledef.RouteNode {
	out := make([]moduledef.RouteNode, len(route))
	for i, rn := range route {
		rn.Left = tr.Apply(rn.Left)
		rn.Right = tr.Apply(rn.Right)
		out[i] = rn
	}
	return out
}

func reverseNodes(route []moduledef.RouteNode) []moduledef.RouteNode {
	out := make([]moduledef.RouteNode, len(route))
	for i, rn := range route {
		out[len(route)-1-i] = rn
	}
	return out
}

func emitOne(rn moduledef.RouteNode, crossed bool) Node {
	if crossed {
		return Node{Left: rn.Right, Right: rn.Left, RacingLine: 1 - rn.Line, Priority: rn.Priority}
	}
	return Node{Left: rn.Left, Right: rn.Right, RacingLine: rn.Line, Priority: rn.Priority}
}

// emit appends route nodes in traversal order. offset is added to the first
// node's height and fades out linearly by the last node.
func emit(dst []Node, route []moduledef.RouteNode, reversed, crossed bool, offset float32) []Node {
	if reversed {
		route = reverseNodes(route)
	}
	n := len(route)
	for i, rn := range route {
		node := emitOne(rn, crossed)
		if offset != 0 {
			w := float32(1)
			if n > 1 {
				w = 1 - float32(i)/float32(n-1)
			}
			node.Left[1] += offset * w
			node.Right[1] += offset * w
		}
		dst = append(dst, node)
	}
	return dst
}

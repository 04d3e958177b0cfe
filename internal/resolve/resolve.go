// Package resolve rewrites a track's module IDs once the lap direction is
// known: directional variants, bridge deck variants and welded pipes.
package resolve

import (
	"fmt"

	"mini-track/internal/registry"
	"mini-track/internal/track"
	"mini-track/internal/zone"
	"mini-track/pkg/moduledef"
)

// Result is the rewritten copy of the grid. The input grid is never touched.
type Result struct {
	Grid *track.Grid
	// Flipped marks placements the resolver turned by 180°.
	Flipped map[track.PlacementID]bool
}

// Resolve runs the three rewrites in order on a clone of g.
func Resolve(g *track.Grid, lib *registry.Library, zones []zone.Zone, seq zone.Sequence) (*Result, error) {
	if !seq.FormsLoop {
		return nil, fmt.Errorf("resolve: zone sequence does not form a loop")
	}
	res := &Result{
		Grid:    g.Clone(),
		Flipped: make(map[track.PlacementID]bool),
	}
	if err := ResolveDirections(res, g, lib, zones, seq); err != nil {
		return nil, err
	}
	if err := ResolveBridges(res, g, lib, zones, seq); err != nil {
		return nil, err
	}
	if err := WeldPipes(res, g, lib, zones, seq); err != nil {
		return nil, err
	}
	return res, nil
}

// ResolveDirections swaps every traversed non-bridge placement for its
// forward or reverse variant, depending on which way the lap runs through
// it. Flip families are turned 180° in place when reversed.
func ResolveDirections(res *Result, orig *track.Grid, lib *registry.Library, zones []zone.Zone, seq zone.Sequence) error {
	done := make(map[track.PlacementID]bool)
	for _, e := range seq.Entries {
		pid := zones[e.Zone].Placement
		if done[pid] {
			continue
		}
		done[pid] = true
		p := orig.Placement(pid)
		if p == nil || lib.IsBridge(p.Module) {
			continue
		}
		id, rot := lib.Forward(p.Module), p.Rotation
		if e.Reversed {
			var flip bool
			if id, flip = lib.Reverse(p.Module); flip {
				rot = rot.Add(2)
				res.Flipped[pid] = true
			}
		}
		if err := res.Grid.SetModule(pid, id, rot); err != nil {
			return fmt.Errorf("resolve direction: %w", err)
		}
	}
	return nil
}

// ResolveBridges picks each bridge's variant from the direction the lap
// crosses its lower and upper deck.
func ResolveBridges(res *Result, orig *track.Grid, lib *registry.Library, zones []zone.Zone, seq zone.Sequence) error {
	reversed := make(map[int]bool, len(seq.Entries))
	for _, e := range seq.Entries {
		reversed[e.Zone] = e.Reversed
	}

	decks := make(map[track.PlacementID][]int)
	var order []track.PlacementID
	for i := range zones {
		pid := zones[i].Placement
		p := orig.Placement(pid)
		if p == nil || !lib.IsBridge(p.Module) {
			continue
		}
		if _, ok := decks[pid]; !ok {
			order = append(order, pid)
		}
		decks[pid] = append(decks[pid], i)
	}

	for _, pid := range order {
		lower, upper := deckOrder(zones, decks[pid])
		var flags uint8
		if lower >= 0 && reversed[lower] {
			flags |= registry.LowerDeckReversed
		}
		if upper >= 0 && reversed[upper] {
			flags |= registry.UpperDeckReversed
		}
		p := orig.Placement(pid)
		id, rotate := lib.BridgeVariant(p.Module, flags)
		rot := p.Rotation
		if rotate {
			rot = rot.Add(2)
			res.Flipped[pid] = true
		}
		if err := res.Grid.SetModule(pid, id, rot); err != nil {
			return fmt.Errorf("resolve bridge: %w", err)
		}
	}
	return nil
}

// deckOrder splits a bridge's zones into the lower and upper deck by
// center height. A missing deck is -1.
func deckOrder(zones []zone.Zone, idx []int) (lower, upper int) {
	lower, upper = -1, -1
	for _, i := range idx {
		switch {
		case lower < 0:
			lower = i
		case zones[i].Center[1] < zones[lower].Center[1]:
			lower, upper = i, lower
		case upper < 0 || zones[i].Center[1] > zones[upper].Center[1]:
			upper = i
		}
	}
	return lower, upper
}

// WeldPipes removes end caps between consecutive pipe segments. Neighbours
// are judged by their authored module; the weld table is looked up on the
// variant chosen above, which stays when it has no matching weld.
func WeldPipes(res *Result, orig *track.Grid, lib *registry.Library, zones []zone.Zone, seq zone.Sequence) error {
	n := len(seq.Entries)
	authored := func(i int) moduledef.ID {
		p := orig.Placement(zones[seq.Entries[(i+n)%n].Zone].Placement)
		if p == nil {
			return moduledef.None
		}
		return p.Module
	}

	for i, e := range seq.Entries {
		pid := zones[e.Zone].Placement
		if !lib.IsPipe(authored(i)) {
			continue
		}
		prevPipe := lib.IsPipe(authored(i - 1))
		nextPipe := lib.IsPipe(authored(i + 1))
		// The template's entry end faces the lap successor when the segment
		// is driven backwards without being turned round.
		if e.Reversed != res.Flipped[pid] {
			prevPipe, nextPipe = nextPipe, prevPipe
		}
		p := res.Grid.Placement(pid)
		welded := lib.WeldVariant(p.Module, prevPipe, nextPipe)
		if welded == p.Module {
			continue
		}
		if err := res.Grid.SetModule(pid, welded, p.Rotation); err != nil {
			return fmt.Errorf("weld pipe: %w", err)
		}
	}
	return nil
}

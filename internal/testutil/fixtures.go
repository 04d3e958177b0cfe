// Package testutil builds small in-memory module libraries and grids for
// package tests. Every fixture uses the default geometry: 1024-unit cells,
// 256-unit elevation steps.
package testutil

import (
	"testing"

	"mini-track/internal/geom"
	"mini-track/internal/registry"
	"mini-track/internal/track"
	"mini-track/pkg/moduledef"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	Cell      = 1024
	Half      = Cell / 2
	Step      = 256
	HalfWidth = 256
)

// Fixture module IDs beyond the stock catalog.
const (
	StraightReverse moduledef.ID = 102
	BridgeRotated   moduledef.ID = 21
	BridgeLeft      moduledef.ID = 22
	BridgeLeftRot   moduledef.ID = 23
	PipeNoSides     moduledef.ID = 131
	PipeNoEntry     moduledef.ID = 132
	PipeNoExit      moduledef.ID = 133
)

// LoopBackID is the ID of the loop-back module spanning the given number of
// cells.
func LoopBackID(span int) moduledef.ID {
	return moduledef.ID(90 + span)
}

// FloorQuad is an upward-facing quad covering the whole cell at height y.
func FloorQuad(y float32) moduledef.Face {
	return moduledef.Face{
		Part: moduledef.PartTrack,
		Verts: []mgl32.Vec3{
			{-Half, y, -Half},
			{-Half, y, Half},
			{Half, y, Half},
			{Half, y, -Half},
		},
		UV:       [][2]float32{{0, 0}, {0, 1}, {1, 1}, {1, 0}},
		Colors:   []uint32{0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff},
		Texture:  "asphalt",
		Material: 1,
	}
}

// PegQuad is one elevation step of support pillar below the cell center,
// facing east.
func PegQuad() moduledef.Face {
	return moduledef.Face{
		Part: moduledef.PartPeg,
		Verts: []mgl32.Vec3{
			{0, -Step, 64},
			{0, -Step, -64},
			{0, 0, -64},
			{0, 0, 64},
		},
		Texture:  "concrete",
		Material: 2,
	}
}

// PanQuad is the ground shadow pan under an elevated module.
func PanQuad() moduledef.Face {
	f := FloorQuad(0)
	f.Part = moduledef.PartPan
	f.Texture = "dirt"
	f.Material = 3
	return f
}

// StraightRoute runs west to east through the cell.
func StraightRoute(y float32) moduledef.Route {
	return LineRoute(-Half, Half, y, 3)
}

// LineRoute is an east-west AI route from x0 to x1 with n nodes. Left is
// the north edge when driving towards +X.
func LineRoute(x0, x1, y float32, n int) moduledef.Route {
	r := moduledef.Route{}
	for i := 0; i < n; i++ {
		x := x0 + (x1-x0)*float32(i)/float32(n-1)
		r.Nodes = append(r.Nodes, moduledef.RouteNode{
			Left:  mgl32.Vec3{x, y, -HalfWidth},
			Right: mgl32.Vec3{x, y, HalfWidth},
			Line:  0.5,
		})
	}
	return r
}

func straightZone(y float32) moduledef.Zone {
	return moduledef.Zone{
		Center: mgl32.Vec3{0, y + 32, 0},
		Size:   mgl32.Vec3{Cell, 64, Cell},
		Links:  [2]mgl32.Vec3{{-Half, y, 0}, {Half, y, 0}},
	}
}

func straightBody(id moduledef.ID, name string, family moduledef.Family) *moduledef.Module {
	return &moduledef.Module{
		ID:     id,
		Name:   name,
		Family: family,
		Cells: []moduledef.Cell{
			{Offset: [2]int{0, 0}, Walls: [4]bool{true, false, true, false}},
		},
		Mesh:   []moduledef.Face{FloorQuad(0), PegQuad(), PanQuad()},
		Hull:   []moduledef.Face{FloorQuad(0), PegQuad()},
		Zones:  []moduledef.Zone{straightZone(0)},
		Routes: []moduledef.Route{StraightRoute(0)},
	}
}

// StartModule is the single-cell start/finish straight.
func StartModule() *moduledef.Module {
	m := straightBody(registry.Start, "start", moduledef.FamilyStart)
	m.Objects = []moduledef.Object{{Position: mgl32.Vec3{0, 0, -400}, Type: 7}}
	m.Lights = []moduledef.Light{{
		Position: mgl32.Vec3{0, 300, 0},
		Color:    [4]uint8{255, 200, 100, 255},
		Cone:     0.8,
		Reach:    600,
		Type:     1,
	}}
	return m
}

// StraightModule is a plain straight whose reverse variant is turned 180°.
func StraightModule() *moduledef.Module {
	m := straightBody(registry.Straight, "straight", moduledef.FamilyTrack)
	m.Variants = moduledef.Variants{Reverse: StraightReverse, FlipOnReverse: true}
	return m
}

// StraightReverseModule is the reverse-direction copy of StraightModule.
func StraightReverseModule() *moduledef.Module {
	return straightBody(StraightReverse, "straight_rev", moduledef.FamilyTrack)
}

// LoopBackModule occupies one cell but carries its corridor back over the
// cells to its west, so it closes a loop with the pieces before it. Its
// far link ends at the west edge of the cell span cells away, shifted east
// by offset.
func LoopBackModule(span int, offset float32) *moduledef.Module {
	far := -(float32(span) + 0.5) * Cell
	m := straightBody(LoopBackID(span), "loopback", moduledef.FamilyTrack)
	m.Zones = []moduledef.Zone{{
		Center: mgl32.Vec3{0, 32, 0},
		Size:   mgl32.Vec3{Cell, 64, Cell},
		Links:  [2]mgl32.Vec3{{-Half, 0, 0}, {far + offset, 0, 0}},
	}}
	m.Routes = []moduledef.Route{LineRoute(-Half, far, 0, 3)}
	return m
}

// PipeModule is a straight pipe segment. Weld variants are only set on the
// base segment.
func PipeModule(id moduledef.ID, welds moduledef.Welds) *moduledef.Module {
	m := straightBody(id, "pipe", moduledef.FamilyPipe)
	m.Variants.Weld = welds
	return m
}

// BridgeModule carries an east-west lower deck and a north-south upper deck.
func BridgeModule(id moduledef.ID) *moduledef.Module {
	m := straightBody(id, "bridge", moduledef.FamilyBridge)
	m.Zones = []moduledef.Zone{
		straightZone(0),
		{
			Center: mgl32.Vec3{0, Step + 32, 0},
			Size:   mgl32.Vec3{Cell, 64, Cell},
			Links:  [2]mgl32.Vec3{{0, Step, -Half}, {0, Step, Half}},
		},
	}
	if id == registry.Bridge {
		m.Variants.Bridge = [4]moduledef.ID{0, BridgeRotated, BridgeLeft, BridgeLeftRot}
	}
	return m
}

// Library builds a registry over the given modules and fails the test on a
// duplicate ID.
func Library(t testing.TB, mods ...*moduledef.Module) *registry.Library {
	t.Helper()
	lib, err := registry.New(mods...)
	if err != nil {
		t.Fatalf("build library: %v", err)
	}
	return lib
}

// StockLibrary holds every fixture module plus loop-backs spanning one and
// two cells, both with their far link shifted by offset.
func StockLibrary(t testing.TB, offset float32) *registry.Library {
	t.Helper()
	return Library(t,
		StartModule(),
		StraightModule(),
		StraightReverseModule(),
		LoopBackModule(1, offset),
		LoopBackModule(2, offset),
		PipeModule(registry.Pipe2, moduledef.Welds{NoSides: PipeNoSides, NoEntry: PipeNoEntry, NoExit: PipeNoExit}),
		PipeModule(registry.Pipe1, moduledef.Welds{}),
		PipeModule(PipeNoSides, moduledef.Welds{}),
		PipeModule(PipeNoEntry, moduledef.Welds{}),
		PipeModule(PipeNoExit, moduledef.Welds{}),
		BridgeModule(registry.Bridge),
		BridgeModule(BridgeRotated),
		BridgeModule(BridgeLeft),
		BridgeModule(BridgeLeftRot),
	)
}

// Place puts a fixture module on g, failing the test on error.
func Place(t testing.TB, g *track.Grid, lib *registry.Library, id moduledef.ID, x, y int, rot, elevation int) track.PlacementID {
	t.Helper()
	m, err := lib.Module(id)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	pid, err := g.Place(id, track.Coord{X: x, Y: y}, geom.Rotation(rot), elevation, m.Footprint())
	if err != nil {
		t.Fatalf("place module %d at (%d,%d): %v", id, x, y, err)
	}
	return pid
}

// LoopGrid is a 2×1 track: the start at (0,0) and a one-cell loop-back at
// (1,0).
func LoopGrid(t testing.TB, lib *registry.Library) *track.Grid {
	t.Helper()
	g := track.New(2, 1)
	g.Name = "loop"
	Place(t, g, lib, registry.Start, 0, 0, 0, 0)
	Place(t, g, lib, LoopBackID(1), 1, 0, 0, 0)
	return g
}

// OvalGrid is a 3×1 track: start, straight, two-cell loop-back, with a
// pickup on the straight.
func OvalGrid(t testing.TB, lib *registry.Library) *track.Grid {
	t.Helper()
	g := track.New(3, 1)
	g.Name = "oval"
	Place(t, g, lib, registry.Start, 0, 0, 0, 0)
	Place(t, g, lib, registry.Straight, 1, 0, 0, 0)
	Place(t, g, lib, LoopBackID(2), 2, 0, 0, 0)
	if err := g.SetPickup(track.Coord{X: 1, Y: 0}, true); err != nil {
		t.Fatalf("pickup: %v", err)
	}
	return g
}

// Figure-eight fixture module IDs.
const (
	Corner   moduledef.ID = 70
	Ramp     moduledef.ID = 71
	Overpass moduledef.ID = 72
)

// CornerModule turns from the west edge to the north edge, climbing by rise
// on the way. Link 0 is the west end.
func CornerModule(id moduledef.ID, rise float32) *moduledef.Module {
	m := straightBody(id, "corner", moduledef.FamilyTrack)
	m.Cells = []moduledef.Cell{{Offset: [2]int{0, 0}}}
	m.Zones = []moduledef.Zone{{
		Center: mgl32.Vec3{0, 32, 0},
		Size:   mgl32.Vec3{Cell, 64, Cell},
		Links:  [2]mgl32.Vec3{{-Half, 0, 0}, {0, rise, -Half}},
	}}
	m.Routes = []moduledef.Route{{Nodes: []moduledef.RouteNode{
		{Left: mgl32.Vec3{-Half, 0, -HalfWidth}, Right: mgl32.Vec3{-Half, 0, HalfWidth}, Line: 0.5},
		{Left: mgl32.Vec3{-384, rise / 2, -384}, Right: mgl32.Vec3{96, rise / 2, 96}, Line: 0.5},
		{Left: mgl32.Vec3{-HalfWidth, rise, -Half}, Right: mgl32.Vec3{HalfWidth, rise, -Half}, Line: 0.5},
	}}}
	return m
}

// OverpassModule is a bridge whose AI can drive both decks: the lower deck
// runs west to east, the upper deck one step up runs north to south.
func OverpassModule() *moduledef.Module {
	m := BridgeModule(Overpass)
	upper := LineRoute(-Half, Half, Step, 3)
	quarter := geom.Transform{Rot: 1}
	for i := range upper.Nodes {
		upper.Nodes[i].Left = quarter.Apply(upper.Nodes[i].Left)
		upper.Nodes[i].Right = quarter.Apply(upper.Nodes[i].Right)
	}
	m.Routes = append(m.Routes, upper)
	return m
}

// FigureEightLibrary holds the modules FigureEight places.
func FigureEightLibrary(t testing.TB) *registry.Library {
	t.Helper()
	return Library(t,
		StartModule(),
		StraightModule(),
		StraightReverseModule(),
		CornerModule(Corner, 0),
		CornerModule(Ramp, Step),
		OverpassModule(),
	)
}

// FigureEight is a 4×3 track whose lap crosses the overpass at (2,1)
// twice: eastwards on the lower deck from the start at (1,1), round the
// north-east corners and up a ramp at (2,0), southwards over the upper
// deck, down the ramp at (2,2) and back west along row 2.
func FigureEight(t testing.TB, lib *registry.Library) *track.Grid {
	t.Helper()
	g := track.New(4, 3)
	g.Name = "eight"
	Place(t, g, lib, registry.Start, 1, 1, 0, 0)
	Place(t, g, lib, Overpass, 2, 1, 0, 0)
	Place(t, g, lib, Corner, 3, 1, 0, 0)
	Place(t, g, lib, Corner, 3, 0, 3, 0)
	Place(t, g, lib, Ramp, 2, 0, 2, 0)
	Place(t, g, lib, Ramp, 2, 2, 0, 0)
	Place(t, g, lib, registry.Straight, 1, 2, 0, 0)
	Place(t, g, lib, Corner, 0, 2, 1, 0)
	Place(t, g, lib, Corner, 0, 1, 2, 0)
	return g
}

package resolve

import (
	"testing"

	"mini-track/internal/config"
	"mini-track/internal/geom"
	"mini-track/internal/meshing"
	"mini-track/internal/registry"
	"mini-track/internal/testutil"
	"mini-track/internal/track"
	"mini-track/internal/zone"
	"mini-track/pkg/moduledef"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeRow lays start, TWM_PIPE_2, TWM_PIPE_1 and a straight along a row.
func pipeRow(t *testing.T) (*track.Grid, *registry.Library, []zone.Zone) {
	t.Helper()
	lib := testutil.StockLibrary(t, 0)
	g := track.New(4, 1)
	testutil.Place(t, g, lib, registry.Start, 0, 0, 0, 0)
	testutil.Place(t, g, lib, registry.Pipe2, 1, 0, 0, 0)
	testutil.Place(t, g, lib, registry.Pipe1, 2, 0, 0, 0)
	testutil.Place(t, g, lib, registry.Straight, 3, 0, 0, 0)

	zones, err := zone.Build(g, lib, config.Default().Geometry)
	require.NoError(t, err)
	require.Len(t, zones, 4)
	return g, lib, zones
}

func moduleAt(t *testing.T, g *track.Grid, x int) *track.Placement {
	t.Helper()
	id, ok := g.PlacementAt(track.Coord{X: x, Y: 0})
	require.True(t, ok)
	return g.Placement(id)
}

func TestWeldPipesNoEntryForward(t *testing.T) {
	g, lib, zones := pipeRow(t)
	seq := zone.Sequence{FormsLoop: true, Entries: []zone.Entry{{Zone: 0}, {Zone: 1}, {Zone: 2}, {Zone: 3}}}

	res, err := Resolve(g, lib, zones, seq)
	require.NoError(t, err)

	assert.Equal(t, testutil.PipeNoEntry, moduleAt(t, res.Grid, 1).Module)
	// TWM_PIPE_1 has no weld table and stays as authored.
	assert.Equal(t, registry.Pipe1, moduleAt(t, res.Grid, 2).Module)
	// The input grid is untouched.
	assert.Equal(t, registry.Pipe2, moduleAt(t, g, 1).Module)
}

func TestWeldPipesReverseKeepsTemplateEnds(t *testing.T) {
	g, lib, zones := pipeRow(t)
	seq := zone.Sequence{FormsLoop: true, Entries: []zone.Entry{
		{Zone: 0, Reversed: true},
		{Zone: 3, Reversed: true},
		{Zone: 2, Reversed: true},
		{Zone: 1, Reversed: true},
	}}

	res, err := Resolve(g, lib, zones, seq)
	require.NoError(t, err)
	assert.Equal(t, testutil.PipeNoEntry, moduleAt(t, res.Grid, 1).Module)
}

func TestWeldPipesBetweenPipes(t *testing.T) {
	lib := testutil.StockLibrary(t, 0)
	assert.Equal(t, testutil.PipeNoSides, lib.WeldVariant(registry.Pipe2, true, true))
	assert.Equal(t, testutil.PipeNoExit, lib.WeldVariant(registry.Pipe2, true, false))
	assert.Equal(t, registry.Pipe2, lib.WeldVariant(registry.Pipe2, false, false))
}

func TestResolveDirectionsFlipsReversedStraight(t *testing.T) {
	g, lib, zones := pipeRow(t)
	seq := zone.Sequence{FormsLoop: true, Entries: []zone.Entry{
		{Zone: 0, Reversed: true},
		{Zone: 3, Reversed: true},
		{Zone: 2, Reversed: true},
		{Zone: 1, Reversed: true},
	}}

	res, err := Resolve(g, lib, zones, seq)
	require.NoError(t, err)

	p := moduleAt(t, res.Grid, 3)
	assert.Equal(t, testutil.StraightReverse, p.Module)
	assert.Equal(t, geom.Rotation(2), p.Rotation)
	assert.True(t, res.Flipped[zones[3].Placement])

	// No reverse variant: the start keeps its module and rotation.
	start := moduleAt(t, res.Grid, 0)
	assert.Equal(t, registry.Start, start.Module)
	assert.Equal(t, geom.Rotation(0), start.Rotation)
}

func TestResolveDirectionsForwardKeepsStraight(t *testing.T) {
	g, lib, zones := pipeRow(t)
	seq := zone.Sequence{FormsLoop: true, Entries: []zone.Entry{{Zone: 0}, {Zone: 1}, {Zone: 2}, {Zone: 3}}}

	res, err := Resolve(g, lib, zones, seq)
	require.NoError(t, err)
	assert.Equal(t, registry.Straight, moduleAt(t, res.Grid, 3).Module)
	assert.Empty(t, res.Flipped)
}

func TestResolveBridgeVariants(t *testing.T) {
	lib := testutil.StockLibrary(t, 0)
	g := track.New(1, 1)
	pid := testutil.Place(t, g, lib, registry.Bridge, 0, 0, 1, 0)
	zones, err := zone.Build(g, lib, config.Default().Geometry)
	require.NoError(t, err)
	require.Len(t, zones, 2)

	cases := []struct {
		name         string
		lower, upper bool
		want         moduledef.ID
		rot          geom.Rotation
	}{
		{"plain", false, false, registry.Bridge, 1},
		{"lower reversed", true, false, testutil.BridgeLeft, 1},
		{"upper reversed", false, true, testutil.BridgeLeftRot, 3},
		{"both reversed", true, true, testutil.BridgeRotated, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Zone order in the lap does not matter; decks are told apart by height.
			seq := zone.Sequence{FormsLoop: true, Entries: []zone.Entry{
				{Zone: 1, Reversed: tc.upper},
				{Zone: 0, Reversed: tc.lower},
			}}
			res, err := Resolve(g, lib, zones, seq)
			require.NoError(t, err)
			p := res.Grid.Placement(pid)
			assert.Equal(t, tc.want, p.Module)
			assert.Equal(t, tc.rot, p.Rotation)
		})
	}
}

func TestResolveRejectsOpenSequence(t *testing.T) {
	g, lib, zones := pipeRow(t)
	_, err := Resolve(g, lib, zones, zone.Sequence{})
	assert.Error(t, err)
}

// longModule is a two-cell straight with offsets (0,0) and (1,0), capped
// by a wall on its far east edge. A non-zero reverse makes it a flip family.
func longModule(id, reverse moduledef.ID) *moduledef.Module {
	far := testutil.FloorQuad(0)
	for i := range far.Verts {
		far.Verts[i][0] += testutil.Cell
	}
	return &moduledef.Module{
		ID:     id,
		Name:   "long",
		Family: moduledef.FamilyTrack,
		Cells: []moduledef.Cell{
			{Offset: [2]int{0, 0}, Walls: [4]bool{true, false, true, false}},
			{Offset: [2]int{1, 0}, Walls: [4]bool{true, true, true, false}},
		},
		Mesh: []moduledef.Face{testutil.FloorQuad(0), far},
		Hull: []moduledef.Face{testutil.FloorQuad(0), far},
		Zones: []moduledef.Zone{{
			Center: mgl32.Vec3{testutil.Half, 32, 0},
			Size:   mgl32.Vec3{2 * testutil.Cell, 64, testutil.Cell},
			Links:  [2]mgl32.Vec3{{-testutil.Half, 0, 0}, {testutil.Cell + testutil.Half, 0, 0}},
		}},
		Variants: moduledef.Variants{Reverse: reverse, FlipOnReverse: reverse != 0},
	}
}

func TestResolveFlipKeepsMultiCellFootprint(t *testing.T) {
	lib := testutil.Library(t, testutil.StartModule(), longModule(60, 61), longModule(61, 0))
	prof := config.Default()
	g := track.New(3, 1)
	testutil.Place(t, g, lib, registry.Start, 0, 0, 0, 0)
	pid := testutil.Place(t, g, lib, 60, 1, 0, 0, 0)
	zones, err := zone.Build(g, lib, prof.Geometry)
	require.NoError(t, err)
	require.Len(t, zones, 2)

	seq := zone.Sequence{FormsLoop: true, Entries: []zone.Entry{
		{Zone: 0, Reversed: true},
		{Zone: 1, Reversed: true},
	}}
	res, err := Resolve(g, lib, zones, seq)
	require.NoError(t, err)

	p := res.Grid.Placement(pid)
	assert.EqualValues(t, 61, p.Module)
	assert.Equal(t, geom.Rotation(2), p.Rotation)
	assert.Equal(t, track.Coord{X: 2, Y: 0}, p.Root)
	assert.ElementsMatch(t, []track.Coord{{X: 1, Y: 0}, {X: 2, Y: 0}}, p.Cells)
	// The authored grid keeps its root.
	assert.Equal(t, track.Coord{X: 1, Y: 0}, g.Placement(pid).Root)

	b, err := meshing.Extract(res.Grid, lib, meshing.Render, prof.Geometry, prof.Tolerances)
	require.NoError(t, err)
	for x := 0; x < 3; x++ {
		assert.Len(t, b.At(track.Coord{X: x, Y: 0}), 1, "cell (%d,0)", x)
	}

	// The end cap follows the turn onto the west edge of cell (1,0).
	walls, err := meshing.Walls(res.Grid, lib, prof.Geometry)
	require.NoError(t, err)
	capsAt := func(x float32) int {
		n := 0
		for _, w := range walls {
			on := true
			for _, v := range w.Verts {
				on = on && v[0] == x
			}
			if on {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 1, capsAt(testutil.Cell))
	assert.Zero(t, capsAt(2*testutil.Cell))
	assert.Zero(t, capsAt(3*testutil.Cell))

	turned, err := zone.Build(res.Grid, lib, prof.Geometry)
	require.NoError(t, err)
	assert.InDelta(t, zones[1].Center[0], turned[1].Center[0], 1e-3)
	assert.InDelta(t, zones[1].Links[0][0], turned[1].Links[1][0], 1e-3)
}

// reversiblePipes adds a reverse variant with its own weld table to the
// stock pipe.
func reversiblePipes(t *testing.T) *registry.Library {
	t.Helper()
	pipe2 := testutil.PipeModule(registry.Pipe2, moduledef.Welds{NoSides: testutil.PipeNoSides, NoEntry: testutil.PipeNoEntry, NoExit: testutil.PipeNoExit})
	pipe2.Variants.Reverse = 140
	return testutil.Library(t,
		testutil.StartModule(),
		testutil.StraightModule(),
		testutil.StraightReverseModule(),
		pipe2,
		testutil.PipeModule(registry.Pipe1, moduledef.Welds{}),
		testutil.PipeModule(140, moduledef.Welds{NoSides: 141, NoEntry: 142, NoExit: 143}),
		testutil.PipeModule(141, moduledef.Welds{}),
		testutil.PipeModule(142, moduledef.Welds{}),
		testutil.PipeModule(143, moduledef.Welds{}),
	)
}

func TestWeldPipesKeepsReverseVariantWithoutWeld(t *testing.T) {
	lib := reversiblePipes(t)
	g := track.New(3, 1)
	testutil.Place(t, g, lib, registry.Start, 0, 0, 0, 0)
	testutil.Place(t, g, lib, registry.Pipe2, 1, 0, 0, 0)
	testutil.Place(t, g, lib, registry.Straight, 2, 0, 0, 0)
	zones, err := zone.Build(g, lib, config.Default().Geometry)
	require.NoError(t, err)

	seq := zone.Sequence{FormsLoop: true, Entries: []zone.Entry{
		{Zone: 0, Reversed: true},
		{Zone: 2, Reversed: true},
		{Zone: 1, Reversed: true},
	}}
	res, err := Resolve(g, lib, zones, seq)
	require.NoError(t, err)
	assert.EqualValues(t, 140, moduleAt(t, res.Grid, 1).Module)
}

func TestWeldPipesUsesReverseVariantTable(t *testing.T) {
	lib := reversiblePipes(t)
	g := track.New(4, 1)
	testutil.Place(t, g, lib, registry.Start, 0, 0, 0, 0)
	testutil.Place(t, g, lib, registry.Pipe2, 1, 0, 0, 0)
	testutil.Place(t, g, lib, registry.Pipe1, 2, 0, 0, 0)
	testutil.Place(t, g, lib, registry.Straight, 3, 0, 0, 0)
	zones, err := zone.Build(g, lib, config.Default().Geometry)
	require.NoError(t, err)

	seq := zone.Sequence{FormsLoop: true, Entries: []zone.Entry{
		{Zone: 0, Reversed: true},
		{Zone: 3, Reversed: true},
		{Zone: 2, Reversed: true},
		{Zone: 1, Reversed: true},
	}}
	res, err := Resolve(g, lib, zones, seq)
	require.NoError(t, err)
	// Driven backwards, the template entry end abuts the pipe before it.
	assert.EqualValues(t, 142, moduleAt(t, res.Grid, 1).Module)
}

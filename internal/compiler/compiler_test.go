package compiler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mini-track/internal/config"
	"mini-track/internal/export"
	"mini-track/internal/profiling"
	"mini-track/internal/registry"
	"mini-track/internal/testutil"
	"mini-track/internal/track"
	"mini-track/internal/zone"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileOval(t *testing.T) {
	lib := testutil.StockLibrary(t, 0)
	g := testutil.OvalGrid(t, lib)

	var mu sync.Mutex
	var seen []string
	c := New(lib, config.Default(), WithProgress(func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, p.Stage)
		if p.Total != len(stages) {
			t.Errorf("progress total = %d, want %d", p.Total, len(stages))
		}
	}))
	a, err := c.Compile(context.Background(), g, false)
	require.NoError(t, err)

	assert.Equal(t, "oval", a.Name)
	assert.False(t, a.Reverse)
	assert.Len(t, a.Zones, 3)
	assert.Len(t, a.AI.Nodes, 6)
	assert.True(t, a.AI.Nodes[a.AI.Start].Start)
	assert.NotEmpty(t, a.World.Small)
	assert.NotEmpty(t, a.Collision.Polygons)
	assert.NotNil(t, a.Collision.Lookup)
	assert.Greater(t, a.Positions.Length, float32(0))
	assert.Equal(t, stages, seen)

	// The start zone leads the lap.
	assert.Equal(t, track.Coord{X: 0, Y: 0}, a.Zones[0].Cell)

	require.Len(t, a.Objects, 2)
	assert.Equal(t, int32(7), a.Objects[0].Type)
	assert.InDelta(t, 512, a.Objects[0].Position[0], 1e-3)
	assert.InDelta(t, 112, a.Objects[0].Position[2], 1e-3)
	pickup := a.Objects[1]
	assert.Equal(t, PickupType, pickup.Type)
	assert.InDelta(t, 1.5*testutil.Cell, pickup.Position[0], 1e-3)
	assert.InDelta(t, 0, pickup.Position[1], 1e-3)
	assert.InDelta(t, 0.5*testutil.Cell, pickup.Position[2], 1e-3)

	require.Len(t, a.Lights, 1)
	assert.InDelta(t, 300, a.Lights[0].Position[1], 1e-3)
}

func TestCompileReverseOval(t *testing.T) {
	lib := testutil.StockLibrary(t, 0)
	g := testutil.OvalGrid(t, lib)

	a, err := New(lib, config.Default()).Compile(context.Background(), g, true)
	require.NoError(t, err)
	assert.True(t, a.Reverse)
	assert.Len(t, a.AI.Nodes, 6)
	// The caller's grid keeps its modules.
	id, ok := g.PlacementAt(track.Coord{X: 1, Y: 0})
	require.True(t, ok)
	assert.Equal(t, registry.Straight, g.Placement(id).Module)
}

func TestCompileFigureEight(t *testing.T) {
	lib := testutil.FigureEightLibrary(t)
	g := testutil.FigureEight(t, lib)
	c := New(lib, config.Default())

	for _, reverse := range []bool{false, true} {
		a, err := c.Compile(context.Background(), g, reverse)
		require.NoError(t, err, "reverse=%v", reverse)
		assert.Len(t, a.Zones, 10)
		assert.Len(t, a.AI.Nodes, 20)
		assert.Equal(t, track.Coord{X: 1, Y: 1}, a.Zones[0].Cell)

		var heights []float32
		for _, z := range a.Zones {
			if z.Cell == (track.Coord{X: 2, Y: 1}) {
				heights = append(heights, z.Center[1])
			}
		}
		assert.ElementsMatch(t, []float32{32, testutil.Step + 32}, heights)
		// Corners are cut diagonally, so the lap is shorter than ten cells.
		assert.Greater(t, a.Positions.Length, float32(8*testutil.Cell))
		assert.Less(t, a.Positions.Length, float32(10*testutil.Cell))
	}
}

func TestCompileIsIdempotent(t *testing.T) {
	lib := testutil.StockLibrary(t, 0)
	g := testutil.OvalGrid(t, lib)
	c := New(lib, config.Default())

	first, err := c.Compile(context.Background(), g, false)
	require.NoError(t, err)
	second, err := c.Compile(context.Background(), g, false)
	require.NoError(t, err)

	if diff := cmp.Diff(first.AI, second.AI); diff != "" {
		t.Errorf("AI path differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Objects, second.Objects); diff != "" {
		t.Errorf("objects differ (-first +second):\n%s", diff)
	}
	assert.Equal(t, len(first.Collision.Polygons), len(second.Collision.Polygons))
	assert.Equal(t, first.World.PolygonCount(), second.World.PolygonCount())
}

func TestCompileStartChecks(t *testing.T) {
	lib := testutil.StockLibrary(t, 0)

	t.Run("none", func(t *testing.T) {
		g := track.New(2, 1)
		testutil.Place(t, g, lib, registry.Straight, 0, 0, 0, 0)
		testutil.Place(t, g, lib, testutil.LoopBackID(1), 1, 0, 0, 0)
		_, err := New(lib, config.Default()).Compile(context.Background(), g, false)
		assert.ErrorIs(t, err, ErrNoStartModule)
	})

	t.Run("two", func(t *testing.T) {
		g := track.New(3, 1)
		testutil.Place(t, g, lib, registry.Start, 0, 0, 0, 0)
		testutil.Place(t, g, lib, registry.Start, 1, 0, 0, 0)
		testutil.Place(t, g, lib, testutil.LoopBackID(2), 2, 0, 0, 0)
		_, err := New(lib, config.Default()).Compile(context.Background(), g, false)
		assert.ErrorIs(t, err, ErrMultipleStartModules)
	})
}

func TestCompileBrokenLoop(t *testing.T) {
	lib := testutil.StockLibrary(t, 25)
	g := testutil.LoopGrid(t, lib)

	_, err := New(lib, config.Default()).Compile(context.Background(), g, false)
	var ce *ContinuityError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, GateLoop, ce.Gate)
	assert.Equal(t, zone.FaultGap, ce.Variant)
	assert.Equal(t, track.Coord{X: 1, Y: 0}, ce.Cell)
	assert.Equal(t, 1, ce.Zone)
	assert.Contains(t, err.Error(), "does not form a loop at cell (1,0)")
}

func TestCompileBrokenAIPath(t *testing.T) {
	loop := testutil.LoopBackModule(1, 0)
	for i := range loop.Routes[0].Nodes {
		loop.Routes[0].Nodes[i].Left[1] -= 10
		loop.Routes[0].Nodes[i].Right[1] -= 10
	}
	lib := testutil.Library(t, testutil.StartModule(), loop)
	g := testutil.LoopGrid(t, lib)

	_, err := New(lib, config.Default()).Compile(context.Background(), g, false)
	var ce *ContinuityError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, GateAI, ce.Gate)
	assert.Equal(t, track.Coord{X: 1, Y: 0}, ce.Cell)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestCompileHonoursContext(t *testing.T) {
	lib := testutil.StockLibrary(t, 0)
	g := testutil.OvalGrid(t, lib)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(lib, config.Default()).Compile(ctx, g, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func exportProfile(t *testing.T) config.Profile {
	t.Helper()
	prof := config.Default()
	prof.OutputDir = t.TempDir()
	prof.Variants = []config.Variant{{Name: "full", Scale: 1}, {Name: "half", Scale: 0.5}}
	return prof
}

func TestExportWritesEveryVariant(t *testing.T) {
	lib := testutil.StockLibrary(t, 0)
	g := testutil.OvalGrid(t, lib)
	prof := exportProfile(t)
	rec := profiling.NewRecorder()

	e := &Exporter{Lib: lib, Profile: prof, Recorder: rec}
	report, err := e.Export(context.Background(), g)
	require.NoError(t, err)
	require.NotNil(t, report.Reverse)
	assert.NoError(t, report.ReverseErr)
	assert.NotEmpty(t, report.Timings)

	out := export.Directory{Root: prof.OutputDir}
	for _, v := range prof.Variants {
		for _, reverse := range []bool{false, true} {
			dir := out.VariantDir(v.Name, reverse)
			for _, name := range export.ArtifactFiles {
				_, err := os.Stat(filepath.Join(dir, name))
				assert.NoError(t, err, "%s/%s", dir, name)
			}
		}
	}
	_, err = os.Stat(filepath.Join(prof.OutputDir, export.TexturesDir, export.PageFile(0)))
	assert.NoError(t, err)

	full, err := export.ReadDir(out.VariantDir("full", false))
	require.NoError(t, err)
	half, err := export.ReadDir(out.VariantDir("half", false))
	require.NoError(t, err)
	assert.InDelta(t, full.AI.Length/2, half.AI.Length, 1e-2)
	assert.Equal(t, len(full.Zones), len(half.Zones))
	assert.Greater(t, rec.Snapshot()["export.Write"], time.Duration(0))
}

func TestExportSurvivesReverseFailure(t *testing.T) {
	// Without the reverse straight the reverse lap cannot be stitched.
	lib := testutil.Library(t,
		testutil.StartModule(),
		testutil.StraightModule(),
		testutil.LoopBackModule(2, 0),
	)
	g := testutil.OvalGrid(t, lib)
	prof := exportProfile(t)

	report, err := (&Exporter{Lib: lib, Profile: prof}).Export(context.Background(), g)
	require.NoError(t, err)
	assert.Nil(t, report.Reverse)
	var ce *ContinuityError
	require.ErrorAs(t, report.ReverseErr, &ce)
	assert.Equal(t, GateAI, ce.Gate)

	out := export.Directory{Root: prof.OutputDir}
	_, err = os.Stat(filepath.Join(out.VariantDir("full", false), export.AIFile))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(out.VariantDir("full", true), export.AIFile))
	assert.True(t, os.IsNotExist(err))
}

func TestExportForwardFailureWritesNothing(t *testing.T) {
	lib := testutil.StockLibrary(t, 25)
	g := testutil.LoopGrid(t, lib)
	prof := exportProfile(t)

	_, err := (&Exporter{Lib: lib, Profile: prof}).Export(context.Background(), g)
	var ce *ContinuityError
	require.ErrorAs(t, err, &ce)

	entries, err := os.ReadDir(prof.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExportWithoutReverse(t *testing.T) {
	lib := testutil.StockLibrary(t, 0)
	g := testutil.OvalGrid(t, lib)
	prof := exportProfile(t)
	prof.Reverse = false

	report, err := (&Exporter{Lib: lib, Profile: prof}).Export(context.Background(), g)
	require.NoError(t, err)
	assert.Nil(t, report.Reverse)
	assert.NoError(t, report.ReverseErr)

	info, err := os.ReadFile(filepath.Join(prof.OutputDir, "half", export.ManifestFile))
	require.NoError(t, err)
	assert.Contains(t, string(info), "directions exported: forward\n")
	assert.Contains(t, string(info), "scale: 0.5\n")
}

func TestCheckWritesNothing(t *testing.T) {
	lib := testutil.StockLibrary(t, 0)
	g := testutil.OvalGrid(t, lib)
	prof := exportProfile(t)

	a, err := (&Exporter{Lib: lib, Profile: prof}).Check(context.Background(), g)
	require.NoError(t, err)
	assert.Len(t, a.Zones, 3)
	entries, err := os.ReadDir(prof.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestObjectsFollowRotation(t *testing.T) {
	lib := testutil.StockLibrary(t, 0)
	g := track.New(1, 1)
	testutil.Place(t, g, lib, registry.Start, 0, 0, 1, 0)
	c := New(lib, config.Default())

	objects, lights, err := c.objects(g, nil)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	require.Len(t, lights, 1)
	// (0,0,-400) turned a quarter: north goes east.
	assert.InDelta(t, 912, objects[0].Position[0], 1e-3)
	assert.InDelta(t, 512, objects[0].Position[2], 1e-3)
	// The object's +X axis now points south.
	x := objects[0].Orientation.Mul3x1(mgl32.Vec3{1, 0, 0})
	assert.InDelta(t, 1, x[2], 1e-5)
}

package physics

import (
	"context"
	"errors"
	"testing"

	"mini-track/internal/config"
	"mini-track/internal/geom"
	"mini-track/internal/meshing"
	"mini-track/internal/registry"
	"mini-track/internal/testutil"
	"mini-track/internal/track"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// floorPrim is an upward-facing square with its north-west corner at
// (x0, y, z0).
func floorPrim(x0, z0, size, y float32, material int32) meshing.Prim {
	x1, z1 := x0+size, z0+size
	verts := []mgl32.Vec3{{x0, y, z0}, {x0, y, z1}, {x1, y, z1}, {x1, y, z0}}
	return meshing.Prim{Verts: verts, Normal: geom.FaceNormal(verts), Material: material}
}

func floorGrid(n int, size float32) []Polygon {
	var out []Polygon
	for z := 0; z < n; z++ {
		for x := 0; x < n; x++ {
			out = append(out, FromPrim(floorPrim(float32(x)*size, float32(z)*size, size, 0, 1)))
		}
	}
	return out
}

func TestFromPrimSidesFaceOutward(t *testing.T) {
	p := FromPrim(floorPrim(0, 0, 1024, 0, 1))
	if !p.Quad {
		t.Fatal("four vertices should make a quad")
	}
	center := mgl32.Vec3{512, 0, 512}
	for m := 0; m < 4; m++ {
		s := p.Side(m)
		if s.Normal.Dot(center) >= s.Dist {
			t.Fatalf("side %d normal %v does not face outward", m, s.Normal)
		}
	}
	assert.True(t, p.Contains(center, 0))
	assert.False(t, p.Contains(mgl32.Vec3{1100, 0, 512}, 0))
	assert.Equal(t, TypeQuad, p.Type())
}

func TestFromPrimTriangleRepeatsLastSide(t *testing.T) {
	verts := []mgl32.Vec3{{0, 0, 0}, {0, 0, 100}, {100, 0, 0}}
	p := FromPrim(meshing.Prim{Verts: verts, Normal: geom.FaceNormal(verts)})
	if p.Quad {
		t.Fatal("triangle flagged as quad")
	}
	if p.Planes[4] != p.Planes[3] {
		t.Fatalf("fourth side %v, want copy of third %v", p.Planes[4], p.Planes[3])
	}
	assert.Zero(t, p.Type()&TypeQuad)
}

func TestMergeTwoQuads(t *testing.T) {
	tol := config.Default().Tolerances
	a := FromPrim(floorPrim(0, 0, 1024, 0, 1))
	b := FromPrim(floorPrim(1024, 0, 1024, 0, 1))

	require.True(t, Mergeable(a, b, tol))
	require.True(t, Merge(&a, &b, tol))
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, a.Min)
	assert.Equal(t, mgl32.Vec3{2048, 0, 1024}, a.Max)
	assert.True(t, a.Contains(mgl32.Vec3{1536, 0, 512}, 0))
	assert.False(t, a.Contains(mgl32.Vec3{2100, 0, 512}, 0))
}

func TestMergeRejectsIncompatible(t *testing.T) {
	tol := config.Default().Tolerances
	base := FromPrim(floorPrim(0, 0, 1024, 0, 1))
	tri := []mgl32.Vec3{{1024, 0, 0}, {1024, 0, 1024}, {2048, 0, 0}}

	cases := map[string]Polygon{
		"other material": FromPrim(floorPrim(1024, 0, 1024, 0, 2)),
		"staggered":      FromPrim(floorPrim(1024, 100, 1024, 0, 1)),
		"gap":            FromPrim(floorPrim(1100, 0, 1024, 0, 1)),
		"other height":   FromPrim(floorPrim(1024, 0, 1024, 50, 1)),
		"triangle":       FromPrim(meshing.Prim{Verts: tri, Normal: geom.FaceNormal(tri), Material: 1}),
	}
	for name, other := range cases {
		if Mergeable(base, other, tol) {
			t.Errorf("%s: merged", name)
		}
	}

	flagged := FromPrim(floorPrim(1024, 0, 1024, 0, 1))
	flagged.Flags = uint32(meshing.FlagWall)
	if Mergeable(base, flagged, tol) {
		t.Error("merged across different flags")
	}
}

func TestMergeAllReachesFixedPoint(t *testing.T) {
	tol := config.Default().Tolerances
	polys, merges := MergeAll(floorGrid(3, 1024), tol)
	if len(polys) != 1 || merges != 8 {
		t.Fatalf("got %d polygons after %d merges, want 1 after 8", len(polys), merges)
	}
	assert.Equal(t, mgl32.Vec3{3072, 0, 3072}, polys[0].Max)

	again, merges := MergeAll(polys, tol)
	if merges != 0 || len(again) != 1 {
		t.Fatalf("second pass merged %d more", merges)
	}
}

func TestLookupGridCoversPolygons(t *testing.T) {
	polys := floorGrid(2, 1024)
	g := BuildLookup(polys, 1024, 16)
	require.NotNil(t, g)
	assert.Equal(t, [2]float32{-16, -16}, g.Origin)
	assert.Equal(t, 3, g.Cols)
	assert.Equal(t, 3, g.Rows)
	assert.Equal(t, [2]float32{3072, 3072}, g.Size())

	for i, p := range polys {
		found := false
		for _, c := range g.Candidates(p.Min[0], p.Min[2], p.Max[0], p.Max[2]) {
			if int(c) == i {
				found = true
			}
		}
		if !found {
			t.Fatalf("polygon %d missing from its own cells", i)
		}
	}
	assert.Equal(t, []int32{0}, g.Candidates(100, 100, 200, 200))
	assert.Equal(t, []int32{0, 1, 2, 3}, g.Candidates(1000, 1000, 1040, 1040))

	assert.Nil(t, BuildLookup(nil, 1024, 16))
}

func TestCollisionCompilerLoopGrid(t *testing.T) {
	lib := testutil.StockLibrary(t, 0)
	prof := config.Default()
	c := NewCollisionCompiler(testutil.LoopGrid(t, lib), lib, prof.Geometry, prof.Tolerances)

	if err := c.AddWalls(); !errors.Is(err, meshing.ErrStageOrder) {
		t.Fatalf("AddWalls first: got %v", err)
	}

	mesh, err := c.Compile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, meshing.Ready, c.Stage())

	// two floors merge into one, the north and south wall pairs likewise
	assert.Len(t, mesh.Polygons, 3)
	assert.Equal(t, 3, c.Merges)
	assert.NotNil(t, mesh.Lookup)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, mesh.Min)
	assert.Equal(t, float32(2048), mesh.Max[0])
}

func TestCollisionMergeIsConfluentOnTrack(t *testing.T) {
	lib := testutil.StockLibrary(t, 0)
	prof := config.Default()
	g := track.New(4, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			testutil.Place(t, g, lib, registry.Straight, x, y, 0, y%2)
		}
	}
	mesh, err := NewCollisionCompiler(g, lib, prof.Geometry, prof.Tolerances).Compile(context.Background())
	require.NoError(t, err)

	polys := append([]Polygon(nil), mesh.Polygons...)
	_, merges := MergeAll(polys, prof.Tolerances)
	assert.Zero(t, merges)
}

package registry_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mini-track/internal/registry"
	"mini-track/internal/testutil"
	"mini-track/pkg/moduledef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTexturePagesIncludeWall(t *testing.T) {
	lib := testutil.Library(t, testutil.StartModule())

	// asphalt, concrete and dirt from the fixture mesh, plus the wall page.
	assert.Equal(t, []string{"asphalt", "concrete", "dirt", registry.WallTexture}, lib.TexturePages())
	assert.Equal(t, int16(3), lib.TextureIndex(registry.WallTexture))
	assert.Equal(t, int16(-1), lib.TextureIndex("missing"))
}

func TestDuplicateModuleID(t *testing.T) {
	_, err := registry.New(testutil.StartModule(), testutil.StartModule())
	assert.ErrorContains(t, err, "used by both")
}

func TestUnknownModule(t *testing.T) {
	lib := testutil.Library(t, testutil.StartModule())
	_, err := lib.Module(999)
	assert.ErrorIs(t, err, registry.ErrUnknownModule)
	assert.False(t, lib.Has(999))
}

func TestFamilies(t *testing.T) {
	lib := testutil.StockLibrary(t, 0)
	assert.True(t, lib.IsStart(registry.Start))
	assert.False(t, lib.IsStart(registry.Straight))
	assert.True(t, lib.IsPipe(registry.Pipe2))
	assert.True(t, lib.IsBridge(registry.Bridge))
	assert.Equal(t, []moduledef.ID{registry.Start}, lib.StartModules())
}

func TestDirectionVariants(t *testing.T) {
	lib := testutil.StockLibrary(t, 0)
	assert.Equal(t, registry.Straight, lib.Forward(registry.Straight))

	id, flip := lib.Reverse(registry.Straight)
	assert.Equal(t, testutil.StraightReverse, id)
	assert.True(t, flip)

	id, flip = lib.Reverse(registry.Start)
	assert.Equal(t, registry.Start, id)
	assert.False(t, flip)
}

func TestBridgeVariant(t *testing.T) {
	lib := testutil.StockLibrary(t, 0)
	tests := []struct {
		flags  uint8
		want   moduledef.ID
		rotate bool
	}{
		{0, registry.Bridge, false},
		{registry.LowerDeckReversed, testutil.BridgeLeft, false},
		{registry.UpperDeckReversed, testutil.BridgeLeftRot, true},
		{registry.LowerDeckReversed | registry.UpperDeckReversed, testutil.BridgeRotated, true},
	}
	for _, tt := range tests {
		id, rotate := lib.BridgeVariant(registry.Bridge, tt.flags)
		if id != tt.want || rotate != tt.rotate {
			t.Errorf("BridgeVariant(flags=%d) = %d,%v; want %d,%v", tt.flags, id, rotate, tt.want, tt.rotate)
		}
	}
}

func TestWeldVariant(t *testing.T) {
	lib := testutil.StockLibrary(t, 0)
	assert.Equal(t, testutil.PipeNoSides, lib.WeldVariant(registry.Pipe2, true, true))
	assert.Equal(t, testutil.PipeNoEntry, lib.WeldVariant(registry.Pipe2, false, true))
	assert.Equal(t, testutil.PipeNoExit, lib.WeldVariant(registry.Pipe2, true, false))
	assert.Equal(t, registry.Pipe2, lib.WeldVariant(registry.Pipe2, false, false))
	// No weld table: the segment stays as it is.
	assert.Equal(t, registry.Pipe1, lib.WeldVariant(registry.Pipe1, true, true))
}

func TestTexturePath(t *testing.T) {
	lib := testutil.Library(t, testutil.StartModule())
	_, err := lib.TexturePath("asphalt")
	assert.Error(t, err)

	root := t.TempDir()
	modules := filepath.Join(root, "modules")
	require.NoError(t, os.MkdirAll(modules, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(modules, "start.json"),
		[]byte(`{"id": 1, "family": "start", "mesh": [{"verts": [[0,0,0],[0,0,1],[1,0,1]], "texture": "asphalt"}]}`), 0o644))
	textures := filepath.Join(root, "textures")
	require.NoError(t, os.MkdirAll(textures, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(textures, "asphalt.png"), []byte("png"), 0o644))

	lib, err = registry.LoadLibrary(root)
	require.NoError(t, err)
	p, err := lib.TexturePath("asphalt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(textures, "asphalt.png"), p)

	_, err = lib.TexturePath(registry.WallTexture)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSpeedsFallBackToNormal(t *testing.T) {
	r, c := registry.Speeds(200)
	nr, nc := registry.Speeds(registry.PriorityNormal)
	assert.Equal(t, nr, r)
	assert.Equal(t, nc, c)
}

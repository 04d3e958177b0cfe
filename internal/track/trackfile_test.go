package track

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"mini-track/pkg/moduledef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func footprints(id moduledef.ID) ([][2]int, error) {
	if id == 5 {
		return [][2]int{{0, 0}, {1, 0}}, nil
	}
	return nil, nil
}

func TestTrackFileRoundTrip(t *testing.T) {
	g := New(3, 3)
	g.Name = "oval"
	_, err := g.Place(1, Coord{0, 0}, 0, 0, nil)
	require.NoError(t, err)
	_, err = g.Place(5, Coord{1, 2}, 0, 3, [][2]int{{0, 0}, {1, 0}})
	require.NoError(t, err)
	require.NoError(t, g.SetPickup(Coord{2, 0}, true))

	path := filepath.Join(t.TempDir(), "oval.trk")
	require.NoError(t, Save(path, g))

	got, err := Load(path, footprints)
	require.NoError(t, err)
	assert.Equal(t, "oval", got.Name)
	assert.Len(t, got.Placements(), 2)

	id, ok := got.PlacementAt(Coord{2, 2})
	require.True(t, ok)
	p := got.Placement(id)
	assert.EqualValues(t, 5, p.Module)
	assert.Equal(t, 3, p.Elevation)
	assert.Equal(t, Coord{1, 2}, p.Root)
	assert.Equal(t, []Coord{{2, 0}}, got.Pickups())
}

func TestTrackFileRecordOrderIsTransposed(t *testing.T) {
	g := New(3, 3)
	_, err := g.Place(1, Coord{2, 0}, 0, 0, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, g))

	// Record i holds cell (i/Width, i%Width): cell (2,0) is record 6.
	data := buf.Bytes()[binary.Size(fileHeader{}):]
	recSize := binary.Size(cellRecord{})
	var rec cellRecord
	require.NoError(t, binary.Read(bytes.NewReader(data[6*recSize:]), binary.LittleEndian, &rec))
	assert.EqualValues(t, 1, rec.Module)
	assert.EqualValues(t, 1, rec.Root)
}

func TestTrackFileRejectsUnaddressableCell(t *testing.T) {
	g := New(4, 2)
	_, err := g.Place(1, Coord{3, 0}, 0, 0, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.ErrorIs(t, Write(&buf, g), ErrAxisQuirk)
}

func TestTrackFileBadMagic(t *testing.T) {
	_, err := Read(bytes.NewReader(make([]byte, 64)), footprints)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestTrackFileBadVersion(t *testing.T) {
	var buf bytes.Buffer
	hdr := fileHeader{Version: 9, Width: 1, Height: 1}
	copy(hdr.Magic[:], trackMagic)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &hdr))

	_, err := Read(&buf, footprints)
	assert.ErrorIs(t, err, ErrVersion)
}

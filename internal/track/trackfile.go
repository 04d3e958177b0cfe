package track

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"mini-track/internal/geom"
	"mini-track/pkg/moduledef"
)

const (
	trackMagic   = "TRKU"
	trackVersion = 1
)

var (
	ErrBadMagic = errors.New("not a track file")
	ErrVersion  = errors.New("unsupported track file version")
	// ErrAxisQuirk is returned when a grid cannot round-trip through the
	// save format's record-to-cell mapping (see recordCoord).
	ErrAxisQuirk = errors.New("cell not addressable by track file layout")
)

type fileHeader struct {
	Magic   [4]byte
	Version uint32
	Width   int32
	Height  int32
	Name    [32]byte
}

type cellRecord struct {
	Module    int32
	Rotation  uint8
	Elevation uint8
	Root      uint8
	Pickup    uint8
}

// FootprintFunc returns the unrotated footprint of a module.
type FootprintFunc func(moduledef.ID) ([][2]int, error)

// recordCoord maps save-file record i to a grid cell. The on-disk layout
// has always used x = i / Width, y = i % Width, which transposes the usual
// y*Width+x order; it is kept for compatibility with existing files.
func recordCoord(i, width int) Coord {
	return Coord{X: i / width, Y: i % width}
}

// Write serialises the grid.
func Write(w io.Writer, g *Grid) error {
	if err := checkAddressable(g); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	hdr := fileHeader{
		Version: trackVersion,
		Width:   int32(g.Width),
		Height:  int32(g.Height),
	}
	copy(hdr.Magic[:], trackMagic)
	copy(hdr.Name[:], g.Name)
	if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
		return err
	}

	for i := 0; i < g.Width*g.Height; i++ {
		rec := cellRecord{Module: int32(moduledef.None)}
		if c := recordCoord(i, g.Width); g.InBounds(c) {
			cell := g.cells[g.index(c)]
			if cell.Pickup {
				rec.Pickup = 1
			}
			if p := g.Placement(cell.Placement); p != nil {
				rec.Module = int32(p.Module)
				rec.Rotation = uint8(p.Rotation)
				rec.Elevation = uint8(p.Elevation)
				if p.Root == c {
					rec.Root = 1
				}
			}
		}
		if err := binary.Write(bw, binary.LittleEndian, &rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func checkAddressable(g *Grid) error {
	covered := func(c Coord) bool {
		i := c.X*g.Width + c.Y
		return c.Y < g.Width && i < g.Width*g.Height && recordCoord(i, g.Width) == c
	}
	for _, id := range g.Placements() {
		if p := g.Placement(id); !covered(p.Root) {
			return fmt.Errorf("%w: placement root %v", ErrAxisQuirk, p.Root)
		}
	}
	for _, c := range g.Pickups() {
		if !covered(c) {
			return fmt.Errorf("%w: pickup %v", ErrAxisQuirk, c)
		}
	}
	return nil
}

// Read parses a grid. Placements are rebuilt from root records using the
// module footprints.
func Read(r io.Reader, footprint FootprintFunc) (*Grid, error) {
	br := bufio.NewReader(r)
	var hdr fileHeader
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != trackMagic {
		return nil, ErrBadMagic
	}
	if hdr.Version != trackVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, hdr.Version)
	}
	if hdr.Width <= 0 || hdr.Height <= 0 || hdr.Width > 1024 || hdr.Height > 1024 {
		return nil, fmt.Errorf("bad grid size %dx%d", hdr.Width, hdr.Height)
	}

	g := New(int(hdr.Width), int(hdr.Height))
	g.Name = string(bytes.TrimRight(hdr.Name[:], "\x00"))

	for i := 0; i < g.Width*g.Height; i++ {
		var rec cellRecord
		if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("read cell record %d: %w", i, err)
		}
		c := recordCoord(i, g.Width)
		if !g.InBounds(c) {
			if rec.Module != int32(moduledef.None) || rec.Pickup != 0 {
				return nil, fmt.Errorf("%w: record %d maps to %v", ErrAxisQuirk, i, c)
			}
			continue
		}
		if rec.Pickup != 0 {
			g.cells[g.index(c)].Pickup = true
		}
		if rec.Root == 0 || rec.Module == int32(moduledef.None) {
			continue
		}
		id := moduledef.ID(rec.Module)
		fp, err := footprint(id)
		if err != nil {
			return nil, fmt.Errorf("cell %v: %w", c, err)
		}
		if _, err := g.Place(id, c, geom.Rotation(rec.Rotation), int(rec.Elevation), fp); err != nil {
			return nil, fmt.Errorf("cell %v: %w", c, err)
		}
	}
	return g, nil
}

// Save writes the grid to path.
func Save(path string, g *Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, g); err != nil {
		f.Close()
		return fmt.Errorf("write track %s: %w", path, err)
	}
	return f.Close()
}

// Load reads a grid from path.
func Load(path string, footprint FootprintFunc) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := Read(f, footprint)
	if err != nil {
		return nil, fmt.Errorf("load track %s: %w", path, err)
	}
	return g, nil
}

package track

import (
	"errors"
	"fmt"

	"mini-track/internal/geom"
	"mini-track/pkg/moduledef"
)

var (
	ErrOutOfBounds = errors.New("cell outside grid")
	ErrOccupied    = errors.New("cell already occupied")
	ErrNoPlacement = errors.New("no such placement")
	ErrTurn        = errors.New("turned footprint leaves its cells")
)

// Coord is a grid cell; X runs east, Y runs south.
type Coord struct {
	X, Y int
}

// Neighbour returns the adjacent cell across edge (N=0, E=1, S=2, W=3).
func (c Coord) Neighbour(edge int) Coord {
	switch edge % 4 {
	case 0:
		return Coord{c.X, c.Y - 1}
	case 1:
		return Coord{c.X + 1, c.Y}
	case 2:
		return Coord{c.X, c.Y + 1}
	}
	return Coord{c.X - 1, c.Y}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// PlacementID indexes the grid's placement arena.
type PlacementID int32

// NoPlacement marks an empty cell.
const NoPlacement PlacementID = -1

// Placement is one module instance on the grid.
type Placement struct {
	Module    moduledef.ID
	Root      Coord
	Rotation  geom.Rotation
	Elevation int
	// Cells lists every touched cell, root first, in footprint order.
	Cells []Coord
	// Footprint keeps the unrotated offsets so the placement can be moved.
	Footprint [][2]int
	alive     bool
}

// Cell is one grid square.
type Cell struct {
	Placement PlacementID
	Pickup    bool
}

// Grid is a width×height array of cells plus the arena of placements the
// cells point into. Cells never hold pointers; deleting a placement clears
// its index from every cell it touched.
type Grid struct {
	Width, Height int
	Name          string

	cells      []Cell
	placements []Placement
}

// New creates an empty grid.
func New(width, height int) *Grid {
	g := &Grid{
		Width:  width,
		Height: height,
		cells:  make([]Cell, width*height),
	}
	for i := range g.cells {
		g.cells[i].Placement = NoPlacement
	}
	return g
}

// InBounds reports whether c lies on the grid.
func (g *Grid) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < g.Width && c.Y >= 0 && c.Y < g.Height
}

func (g *Grid) index(c Coord) int {
	return c.Y*g.Width + c.X
}

// Cell returns the cell at c; ok is false outside the grid.
func (g *Grid) Cell(c Coord) (Cell, bool) {
	if !g.InBounds(c) {
		return Cell{Placement: NoPlacement}, false
	}
	return g.cells[g.index(c)], true
}

// PlacementAt returns the placement covering c, if any.
func (g *Grid) PlacementAt(c Coord) (PlacementID, bool) {
	cell, ok := g.Cell(c)
	if !ok || cell.Placement == NoPlacement {
		return NoPlacement, false
	}
	return cell.Placement, true
}

// Placement returns the placement for id, or nil if it was removed.
func (g *Grid) Placement(id PlacementID) *Placement {
	if id < 0 || int(id) >= len(g.placements) || !g.placements[id].alive {
		return nil
	}
	return &g.placements[id]
}

// Placements lists live placement IDs in creation order.
func (g *Grid) Placements() []PlacementID {
	ids := make([]PlacementID, 0, len(g.placements))
	for i := range g.placements {
		if g.placements[i].alive {
			ids = append(ids, PlacementID(i))
		}
	}
	return ids
}

func (g *Grid) footprintCells(root Coord, rot geom.Rotation, footprint [][2]int) []Coord {
	cells := make([]Coord, 0, len(footprint))
	for _, off := range footprint {
		dx, dy := geom.RotateOffset(rot, off[0], off[1])
		cells = append(cells, Coord{root.X + dx, root.Y + dy})
	}
	return cells
}

func (g *Grid) checkFree(cells []Coord, self PlacementID) error {
	for _, c := range cells {
		if !g.InBounds(c) {
			return fmt.Errorf("%w: %v", ErrOutOfBounds, c)
		}
		if p := g.cells[g.index(c)].Placement; p != NoPlacement && p != self {
			return fmt.Errorf("%w: %v", ErrOccupied, c)
		}
	}
	return nil
}

// Place puts a module on the grid. footprint is the module's unrotated cell
// offsets with the root first; nil means a single cell.
func (g *Grid) Place(module moduledef.ID, root Coord, rot geom.Rotation, elevation int, footprint [][2]int) (PlacementID, error) {
	if len(footprint) == 0 {
		footprint = [][2]int{{0, 0}}
	}
	cells := g.footprintCells(root, rot, footprint)
	if err := g.checkFree(cells, NoPlacement); err != nil {
		return NoPlacement, err
	}

	id := PlacementID(len(g.placements))
	g.placements = append(g.placements, Placement{
		Module:    module,
		Root:      root,
		Rotation:  rot % 4,
		Elevation: elevation,
		Cells:     cells,
		Footprint: append([][2]int(nil), footprint...),
		alive:     true,
	})
	for _, c := range cells {
		g.cells[g.index(c)].Placement = id
	}
	return id, nil
}

// Remove deletes a placement and clears every cell referencing it.
func (g *Grid) Remove(id PlacementID) error {
	p := g.Placement(id)
	if p == nil {
		return fmt.Errorf("%w: %d", ErrNoPlacement, id)
	}
	for _, c := range p.Cells {
		if g.cells[g.index(c)].Placement == id {
			g.cells[g.index(c)].Placement = NoPlacement
		}
	}
	p.alive = false
	p.Cells = nil
	return nil
}

// Move relocates a placement, keeping rotation and elevation.
func (g *Grid) Move(id PlacementID, root Coord) error {
	p := g.Placement(id)
	if p == nil {
		return fmt.Errorf("%w: %d", ErrNoPlacement, id)
	}
	cells := g.footprintCells(root, p.Rotation, p.Footprint)
	if err := g.checkFree(cells, id); err != nil {
		return err
	}
	for _, c := range p.Cells {
		g.cells[g.index(c)].Placement = NoPlacement
	}
	for _, c := range cells {
		g.cells[g.index(c)].Placement = id
	}
	p.Root = root
	p.Cells = cells
	return nil
}

// SetModule swaps the module of a placement and turns it to rot. A turn
// never changes the cells a placement owns: the root moves so the rotated
// footprint covers the same set, and a footprint whose turned shape differs
// fails with ErrTurn. Variants share their base module's footprint.
func (g *Grid) SetModule(id PlacementID, module moduledef.ID, rot geom.Rotation) error {
	p := g.Placement(id)
	if p == nil {
		return fmt.Errorf("%w: %d", ErrNoPlacement, id)
	}
	rot %= 4
	if rot != p.Rotation {
		root, cells, ok := turnedRoot(p, rot)
		if !ok {
			return fmt.Errorf("%w: placement at %v to rotation %d", ErrTurn, p.Root, rot)
		}
		p.Root, p.Cells = root, cells
	}
	p.Module = module
	p.Rotation = rot
	return nil
}

// turnedRoot finds the root that lays p's footprint, turned to rot, over
// the cells p already covers.
func turnedRoot(p *Placement, rot geom.Rotation) (Coord, []Coord, bool) {
	lo := p.Cells[0]
	for _, c := range p.Cells[1:] {
		lo.X, lo.Y = min(lo.X, c.X), min(lo.Y, c.Y)
	}
	dx0, dy0 := geom.RotateOffset(rot, p.Footprint[0][0], p.Footprint[0][1])
	for _, off := range p.Footprint[1:] {
		dx, dy := geom.RotateOffset(rot, off[0], off[1])
		dx0, dy0 = min(dx0, dx), min(dy0, dy)
	}
	root := Coord{lo.X - dx0, lo.Y - dy0}

	owned := make(map[Coord]bool, len(p.Cells))
	for _, c := range p.Cells {
		owned[c] = true
	}
	cells := make([]Coord, 0, len(p.Footprint))
	for _, off := range p.Footprint {
		dx, dy := geom.RotateOffset(rot, off[0], off[1])
		c := Coord{root.X + dx, root.Y + dy}
		if !owned[c] {
			return Coord{}, nil, false
		}
		cells = append(cells, c)
	}
	return root, cells, true
}

// SetPickup toggles the pickup flag on a cell.
func (g *Grid) SetPickup(c Coord, on bool) error {
	if !g.InBounds(c) {
		return fmt.Errorf("%w: %v", ErrOutOfBounds, c)
	}
	g.cells[g.index(c)].Pickup = on
	return nil
}

// Pickups lists cells carrying a pickup in row order.
func (g *Grid) Pickups() []Coord {
	var out []Coord
	for i, c := range g.cells {
		if c.Pickup {
			out = append(out, Coord{i % g.Width, i / g.Width})
		}
	}
	return out
}

// Clone returns a deep copy that can be rewritten without touching g.
func (g *Grid) Clone() *Grid {
	out := &Grid{
		Width:      g.Width,
		Height:     g.Height,
		Name:       g.Name,
		cells:      append([]Cell(nil), g.cells...),
		placements: make([]Placement, len(g.placements)),
	}
	for i, p := range g.placements {
		p.Cells = append([]Coord(nil), p.Cells...)
		p.Footprint = append([][2]int(nil), p.Footprint...)
		out.placements[i] = p
	}
	return out
}

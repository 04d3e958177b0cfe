package physics

import (
	"context"

	"mini-track/internal/config"
	"mini-track/internal/geom"
	"mini-track/internal/meshing"
	"mini-track/internal/registry"
	"mini-track/internal/track"

	"github.com/go-gl/mathgl/mgl32"
)

// Mesh is the compiled collision geometry.
type Mesh struct {
	Polygons []Polygon
	Lookup   *LookupGrid
	Min, Max mgl32.Vec3
}

// CollisionCompiler turns a resolved grid into a collision Mesh. It walks
// the same stages as the world compiler, with the merge pass and lookup
// grid as its partition step.
type CollisionCompiler struct {
	grid *track.Grid
	lib  *registry.Library
	geo  config.Geometry
	tol  config.Tolerances

	stage meshing.Stage
	cells *meshing.Buckets
	walls []meshing.Prim
	mesh  Mesh

	Cancelled int
	Merges    int
}

func NewCollisionCompiler(g *track.Grid, lib *registry.Library, geo config.Geometry, tol config.Tolerances) *CollisionCompiler {
	return &CollisionCompiler{grid: g, lib: lib, geo: geo, tol: tol}
}

func (c *CollisionCompiler) Stage() meshing.Stage { return c.stage }

// Compile runs every stage, checking ctx in between. A merge pass already
// running is not interrupted.
func (c *CollisionCompiler) Compile(ctx context.Context) (*Mesh, error) {
	steps := []func() error{c.ExtractCells, c.FixUp, c.AddWalls, c.Partition}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := step(); err != nil {
			return nil, err
		}
	}
	return c.Finish()
}

func (c *CollisionCompiler) ExtractCells() error {
	if c.stage != meshing.Uncompiled {
		return meshing.Advance(&c.stage, meshing.Uncompiled, meshing.CellsExtracted)
	}
	b, err := meshing.Extract(c.grid, c.lib, meshing.Hull, c.geo, c.tol)
	if err != nil {
		return err
	}
	c.cells = b
	return meshing.Advance(&c.stage, meshing.Uncompiled, meshing.CellsExtracted)
}

func (c *CollisionCompiler) FixUp() error {
	if err := meshing.Advance(&c.stage, meshing.CellsExtracted, meshing.FixedUp); err != nil {
		return err
	}
	c.Cancelled = meshing.Cancel(c.cells, c.tol)
	return nil
}

func (c *CollisionCompiler) AddWalls() error {
	if c.stage != meshing.FixedUp {
		return meshing.Advance(&c.stage, meshing.FixedUp, meshing.WallsAdded)
	}
	walls, err := meshing.Walls(c.grid, c.lib, c.geo)
	if err != nil {
		return err
	}
	c.walls = walls
	return meshing.Advance(&c.stage, meshing.FixedUp, meshing.WallsAdded)
}

// Partition merges each cell's polygons, then the whole track including
// walls, and builds the lookup grid over the result.
func (c *CollisionCompiler) Partition() error {
	if c.stage != meshing.WallsAdded {
		return meshing.Advance(&c.stage, meshing.WallsAdded, meshing.Partitioned)
	}
	var polys []Polygon
	for _, cell := range c.cells.Cells {
		bucket := make([]Polygon, 0, len(cell))
		for _, p := range cell {
			bucket = append(bucket, FromPrim(p))
		}
		bucket, n := MergeAll(bucket, c.tol)
		c.Merges += n
		polys = append(polys, bucket...)
	}
	for _, w := range c.walls {
		polys = append(polys, FromPrim(w))
	}
	polys, n := MergeAll(polys, c.tol)
	c.Merges += n

	c.mesh = Mesh{
		Polygons: polys,
		Lookup:   BuildLookup(polys, c.geo.LookupCellSize, c.geo.LookupFudge),
	}
	if len(polys) > 0 {
		c.mesh.Min, c.mesh.Max = polys[0].Min, polys[0].Max
		for _, p := range polys[1:] {
			c.mesh.Min, c.mesh.Max = geom.Union(c.mesh.Min, c.mesh.Max, p.Min, p.Max)
		}
	}
	return meshing.Advance(&c.stage, meshing.WallsAdded, meshing.Partitioned)
}

func (c *CollisionCompiler) Finish() (*Mesh, error) {
	if err := meshing.Advance(&c.stage, meshing.Partitioned, meshing.Ready); err != nil {
		return nil, err
	}
	return &c.mesh, nil
}

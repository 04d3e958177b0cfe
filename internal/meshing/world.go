package meshing

import (
	"context"
	"fmt"
	"math"

	"mini-track/internal/config"
	"mini-track/internal/geom"
	"mini-track/internal/registry"
	"mini-track/internal/track"

	"github.com/go-gl/mathgl/mgl32"
)

// FlagTriangle marks a polygon whose fourth index repeats the third.
const FlagTriangle uint16 = 1 << 15

type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

type Polygon struct {
	Flags   uint16
	Texture int16
	Indices [4]uint16
	Colors  [4]uint32
	UV      [4][2]float32
}

// SmallCube is one cell's (or wall fragment's) render geometry with its
// bounds.
type SmallCube struct {
	Center   mgl32.Vec3
	Radius   float32
	Min, Max mgl32.Vec3
	Polygons []Polygon
	Vertices []Vertex
}

// BigCube groups SmallCubes falling in one fixed-size region.
type BigCube struct {
	Center   mgl32.Vec3
	Radius   float32
	Min, Max mgl32.Vec3
	Cubes    []int32
}

// World is the compiled render geometry.
type World struct {
	Small []SmallCube
	Big   []BigCube
}

// PolygonCount is the number of polygons over all SmallCubes.
func (w *World) PolygonCount() int {
	n := 0
	for i := range w.Small {
		n += len(w.Small[i].Polygons)
	}
	return n
}

// WorldCompiler turns a resolved grid into World geometry. The grid and
// library are only read.
type WorldCompiler struct {
	grid *track.Grid
	lib  *registry.Library
	geo  config.Geometry
	tol  config.Tolerances

	stage     Stage
	cells     *Buckets
	walls     []Prim
	world     World
	Cancelled int
}

func NewWorldCompiler(g *track.Grid, lib *registry.Library, geo config.Geometry, tol config.Tolerances) *WorldCompiler {
	return &WorldCompiler{grid: g, lib: lib, geo: geo, tol: tol}
}

func (c *WorldCompiler) Stage() Stage { return c.stage }

// Compile runs every stage. ctx is checked between stages.
func (c *WorldCompiler) Compile(ctx context.Context) (*World, error) {
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

func (c *WorldCompiler) ExtractCells() error {
	if c.stage != Uncompiled {
		return Advance(&c.stage, Uncompiled, CellsExtracted)
	}
	b, err := Extract(c.grid, c.lib, Render, c.geo, c.tol)
	if err != nil {
		return err
	}
	c.cells = b
	return Advance(&c.stage, Uncompiled, CellsExtracted)
}

func (c *WorldCompiler) FixUp() error {
	if err := Advance(&c.stage, CellsExtracted, FixedUp); err != nil {
		return err
	}
	c.Cancelled = Cancel(c.cells, c.tol)
	return nil
}

func (c *WorldCompiler) AddWalls() error {
	if c.stage != FixedUp {
		return Advance(&c.stage, FixedUp, WallsAdded)
	}
	walls, err := Walls(c.grid, c.lib, c.geo)
	if err != nil {
		return err
	}
	c.walls = walls
	return Advance(&c.stage, FixedUp, WallsAdded)
}

// Partition builds one SmallCube per non-empty cell plus the wall unit cut
// by SplitCube, then groups them into BigCubes.
func (c *WorldCompiler) Partition() error {
	if c.stage != WallsAdded {
		return Advance(&c.stage, WallsAdded, Partitioned)
	}
	var groups [][]Prim
	for _, cell := range c.cells.Cells {
		if len(cell) > 0 {
			groups = append(groups, cell)
		}
	}
	groups = append(groups, SplitCube(c.walls, c.geo.WallSplitSize)...)

	small := make([]SmallCube, 0, len(groups))
	for i, g := range groups {
		sc, err := c.cube(g)
		if err != nil {
			return fmt.Errorf("small cube %d: %w", i, err)
		}
		small = append(small, sc)
	}
	c.world = World{Small: small, Big: BigCubes(small, c.geo.BigCubeSize)}
	return Advance(&c.stage, WallsAdded, Partitioned)
}

// Finish hands out the compiled world.
func (c *WorldCompiler) Finish() (*World, error) {
	if err := Advance(&c.stage, Partitioned, Ready); err != nil {
		return nil, err
	}
	return &c.world, nil
}

type vertexKey [6]int32

func (c *WorldCompiler) cube(prims []Prim) (SmallCube, error) {
	var sc SmallCube
	index := make(map[vertexKey]uint16)
	weld := c.tol.VertexWeld
	if weld <= 0 {
		weld = 1e-3
	}
	q := func(f, step float32) int32 { return int32(math.Round(float64(f / step))) }

	for _, p := range prims {
		poly := Polygon{Flags: p.Flags, Texture: c.lib.TextureIndex(p.Texture)}
		for k := 0; k < 4; k++ {
			src := k
			if src >= len(p.Verts) {
				src = len(p.Verts) - 1
				poly.Flags |= FlagTriangle
			}
			v := Vertex{Position: p.Verts[src], Normal: p.Normal}
			key := vertexKey{
				q(v.Position[0], weld), q(v.Position[1], weld), q(v.Position[2], weld),
				q(v.Normal[0], 1e-3), q(v.Normal[1], 1e-3), q(v.Normal[2], 1e-3),
			}
			idx, ok := index[key]
			if !ok {
				if len(sc.Vertices) >= math.MaxUint16 {
					return sc, fmt.Errorf("more than %d vertices", math.MaxUint16)
				}
				idx = uint16(len(sc.Vertices))
				index[key] = idx
				sc.Vertices = append(sc.Vertices, v)
			}
			poly.Indices[k] = idx
			poly.Colors[k] = 0xffffffff
			if src < len(p.Colors) {
				poly.Colors[k] = p.Colors[src]
			}
			if src < len(p.UV) {
				poly.UV[k] = p.UV[src]
			}
		}
		sc.Polygons = append(sc.Polygons, poly)
	}
	if len(sc.Polygons) > math.MaxUint16 {
		return sc, fmt.Errorf("more than %d polygons", math.MaxUint16)
	}

	pts := make([]mgl32.Vec3, len(sc.Vertices))
	for i, v := range sc.Vertices {
		pts[i] = v.Position
	}
	sc.Min, sc.Max = geom.Bounds(pts)
	sc.Center = sc.Min.Add(sc.Max).Mul(0.5)
	for _, p := range pts {
		sc.Radius = max(sc.Radius, p.Sub(sc.Center).Len())
	}
	return sc, nil
}

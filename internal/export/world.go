package export

import (
	"fmt"
	"io"
	"math"

	"mini-track/internal/meshing"

	"github.com/go-gl/mathgl/mgl32"
)

type cubeHeader struct {
	Center   mgl32.Vec3
	Radius   float32
	Bounds   [6]float32
	Polygons uint16
	Vertices uint16
}

type vertexRecord struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

type bigCubeHeader struct {
	Center mgl32.Vec3
	Radius float32
	Count  int32
}

// WriteWorld writes SmallCubes, then BigCubes, then a texture animation
// count that is always zero.
func WriteWorld(w io.Writer, world *meshing.World, scale float32) error {
	e := newEncoder(w, scale)
	e.count(len(world.Small))
	for i := range world.Small {
		sc := &world.Small[i]
		if len(sc.Polygons) > math.MaxUint16 || len(sc.Vertices) > math.MaxUint16 {
			return fmt.Errorf("small cube %d: %d polygons, %d vertices", i, len(sc.Polygons), len(sc.Vertices))
		}
		e.put(&cubeHeader{
			Center:   sc.Center.Mul(scale),
			Radius:   sc.Radius * scale,
			Bounds:   interleave(sc.Min, sc.Max, scale),
			Polygons: uint16(len(sc.Polygons)),
			Vertices: uint16(len(sc.Vertices)),
		})
		e.put(sc.Polygons)
		for _, v := range sc.Vertices {
			e.put(&vertexRecord{Position: v.Position.Mul(scale), Normal: v.Normal})
		}
	}

	e.count(len(world.Big))
	for _, bc := range world.Big {
		e.put(&bigCubeHeader{Center: bc.Center.Mul(scale), Radius: bc.Radius * scale, Count: int32(len(bc.Cubes))})
		e.put(bc.Cubes)
	}
	e.count(0)
	return e.flush()
}

// ReadWorld parses a world file. BigCube bounds are not stored and come
// back zero.
func ReadWorld(r io.Reader) (*meshing.World, error) {
	d := newDecoder(r)
	world := &meshing.World{Small: make([]meshing.SmallCube, d.count("small cube"))}
	for i := range world.Small {
		var hdr cubeHeader
		d.get(&hdr)
		sc := meshing.SmallCube{
			Center:   hdr.Center,
			Radius:   hdr.Radius,
			Polygons: make([]meshing.Polygon, hdr.Polygons),
			Vertices: make([]meshing.Vertex, hdr.Vertices),
		}
		sc.Min, sc.Max = deinterleave(hdr.Bounds)
		d.get(sc.Polygons)
		for j := range sc.Vertices {
			var v vertexRecord
			d.get(&v)
			sc.Vertices[j] = meshing.Vertex{Position: v.Position, Normal: v.Normal}
		}
		world.Small[i] = sc
	}

	world.Big = make([]meshing.BigCube, d.count("big cube"))
	for i := range world.Big {
		var hdr bigCubeHeader
		d.get(&hdr)
		if d.err == nil && (hdr.Count < 0 || int(hdr.Count) > len(world.Small)) {
			return nil, fmt.Errorf("big cube %d: bad index count %d", i, hdr.Count)
		}
		bc := meshing.BigCube{Center: hdr.Center, Radius: hdr.Radius, Cubes: make([]int32, max(0, hdr.Count))}
		d.get(bc.Cubes)
		world.Big[i] = bc
	}
	if anims := d.count("texture animation"); anims != 0 && d.err == nil {
		return nil, fmt.Errorf("texture animations are not supported (%d)", anims)
	}
	if d.err != nil {
		return nil, d.err
	}
	return world, nil
}

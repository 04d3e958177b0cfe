// Package compiler runs the track compile pipeline: loop discovery, module
// resolution, AI stitching and the two geometry compilers, producing the
// artifacts of one lap direction.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"math"

	"mini-track/internal/ai"
	"mini-track/internal/config"
	"mini-track/internal/ctxlog"
	"mini-track/internal/export"
	"mini-track/internal/geom"
	"mini-track/internal/meshing"
	"mini-track/internal/physics"
	"mini-track/internal/profiling"
	"mini-track/internal/registry"
	"mini-track/internal/resolve"
	"mini-track/internal/track"
	"mini-track/internal/zone"

	"github.com/go-gl/mathgl/mgl32"
)

// PickupType is the object type written for grid pickups.
const PickupType int32 = 1

// Pipeline stages, in order, as reported to a ProgressFunc.
const (
	StageStart     = "start"
	StageZones     = "zones"
	StageSequence  = "sequence"
	StageResolve   = "resolve"
	StageAI        = "ai"
	StagePositions = "positions"
	StageGeometry  = "geometry"
	StageObjects   = "objects"
)

var stages = []string{
	StageStart, StageZones, StageSequence, StageResolve,
	StageAI, StagePositions, StageGeometry, StageObjects,
}

// Progress is one progress report. Done counts finished stages of Total.
type Progress struct {
	Reverse bool
	Stage   string
	Done    int
	Total   int
}

type ProgressFunc func(Progress)

// Compiler compiles grids against one module library and profile. It holds
// no per-compile state, so forward and reverse compiles may share it.
type Compiler struct {
	lib      *registry.Library
	prof     config.Profile
	pool     *WorkerPool
	rec      *profiling.Recorder
	progress ProgressFunc
}

type Option func(*Compiler)

// WithPool runs the geometry compilers on p. Without it each compile
// starts and stops a pool of its own.
func WithPool(p *WorkerPool) Option { return func(c *Compiler) { c.pool = p } }

func WithRecorder(r *profiling.Recorder) Option { return func(c *Compiler) { c.rec = r } }

func WithProgress(fn ProgressFunc) Option { return func(c *Compiler) { c.progress = fn } }

func New(lib *registry.Library, prof config.Profile, opts ...Option) *Compiler {
	c := &Compiler{lib: lib, prof: prof}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Compiler) report(reverse bool, stage string) {
	if c.progress == nil {
		return
	}
	for i, s := range stages {
		if s == stage {
			c.progress(Progress{Reverse: reverse, Stage: stage, Done: i + 1, Total: len(stages)})
			return
		}
	}
}

func direction(reverse bool) string {
	if reverse {
		return "reverse"
	}
	return "forward"
}

// Compile runs the whole pipeline for one lap direction. g is only read.
// It fails with ErrNoStartModule or ErrMultipleStartModules before any
// geometry work, and with a *ContinuityError when the loop or AI gate
// fails.
func (c *Compiler) Compile(ctx context.Context, g *track.Grid, reverse bool) (*export.Artifacts, error) {
	dir := direction(reverse)
	logger := ctxlog.FromContext(ctx).With("track", g.Name, "direction", dir)
	ctx = ctxlog.WithLogger(ctx, logger)
	geo, tol := c.prof.Geometry, c.prof.Tolerances
	timed := func(stage string) func() { return c.rec.Track(dir + "." + stage) }

	stop := timed(StageStart)
	start, err := c.startPlacement(g)
	stop()
	if err != nil {
		return nil, err
	}
	c.report(reverse, StageStart)

	stop = timed(StageZones)
	zones, err := zone.Build(g, c.lib, geo)
	stop()
	if err != nil {
		return nil, fmt.Errorf("build zones: %w", err)
	}
	logger.Debug("Zones built.", "count", len(zones))
	c.report(reverse, StageZones)

	stop = timed(StageSequence)
	seq, err := c.sequence(g, zones, start, reverse)
	stop()
	if err != nil {
		logger.Warn("Loop gate failed.", "error", err)
		return nil, err
	}
	logger.Debug("Lap found.", "zones", len(seq.Entries))
	c.report(reverse, StageSequence)

	stop = timed(StageResolve)
	res, err := resolve.Resolve(g, c.lib, zones, seq)
	stop()
	if err != nil {
		return nil, err
	}
	c.report(reverse, StageResolve)

	stop = timed(StageAI)
	st := &ai.Stitcher{Grid: res.Grid, Lib: c.lib, Zones: zones, Geo: geo, Tol: tol}
	nodes, err := st.Stitch(seq)
	stop()
	if err != nil {
		cerr := aiError(zones, err)
		logger.Warn("AI gate failed.", "error", cerr)
		return nil, cerr
	}
	path := ai.Finalize(nodes)
	logger.Debug("AI path stitched.", "nodes", len(path.Nodes), "length", path.Length)
	c.report(reverse, StageAI)

	stop = timed(StagePositions)
	positions := zone.BuildPositions(zones, seq)
	stop()
	c.report(reverse, StagePositions)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stop = timed(StageGeometry)
	world, mesh, err := c.geometry(ctx, res.Grid)
	stop()
	if err != nil {
		return nil, err
	}
	c.report(reverse, StageGeometry)

	stop = timed(StageObjects)
	objects, lights, err := c.objects(res.Grid, mesh)
	stop()
	if err != nil {
		return nil, err
	}
	c.report(reverse, StageObjects)

	lap := make([]zone.Zone, len(seq.Entries))
	for i, e := range seq.Entries {
		lap[i] = zones[e.Zone]
	}
	logger.Info("Track compiled.",
		"zones", len(lap),
		"ai_nodes", len(path.Nodes),
		"small_cubes", len(world.Small),
		"collision_polygons", len(mesh.Polygons),
		"lap_length", positions.Length,
	)
	return &export.Artifacts{
		Name:      g.Name,
		Reverse:   reverse,
		AI:        &path,
		World:     world,
		Collision: mesh,
		Zones:     lap,
		Positions: &positions,
		Objects:   objects,
		Lights:    lights,
	}, nil
}

// startPlacement finds the one placement of a start-family module.
func (c *Compiler) startPlacement(g *track.Grid) (track.PlacementID, error) {
	found := track.NoPlacement
	n := 0
	for _, id := range g.Placements() {
		if c.lib.IsStart(g.Placement(id).Module) {
			found = id
			n++
		}
	}
	switch {
	case n == 0:
		return track.NoPlacement, ErrNoStartModule
	case n > 1:
		return track.NoPlacement, fmt.Errorf("%w: found %d", ErrMultipleStartModules, n)
	}
	return found, nil
}

func (c *Compiler) sequence(g *track.Grid, zones []zone.Zone, start track.PlacementID, reverse bool) (zone.Sequence, error) {
	p := g.Placement(start)
	geo := c.prof.Geometry
	point := mgl32.Vec3{
		(float32(p.Root.X) + 0.5) * geo.CellSize,
		float32(p.Elevation) * geo.ElevationStep,
		(float32(p.Root.Y) + 0.5) * geo.CellSize,
	}
	first := zone.FindStartZone(zones, start, point)
	if first < 0 {
		return zone.Sequence{}, &ContinuityError{Gate: GateLoop, Variant: zone.FaultGap, Cell: p.Root, Zone: -1}
	}
	seq := zone.DetermineZoneSequence(zones, first, reverse, c.prof.Tolerances)
	if !seq.FormsLoop {
		return seq, &ContinuityError{Gate: GateLoop, Variant: seq.Fault, Cell: zones[seq.Last].Cell, Zone: seq.Last}
	}
	return seq, nil
}

// aiError turns a stitching failure into an AI gate error located at the
// zone the path broke in.
func aiError(zones []zone.Zone, err error) error {
	var be *ai.BreakError
	if !errors.As(err, &be) {
		return &ContinuityError{Gate: GateAI, Variant: zone.FaultGap, Zone: -1, Err: err}
	}
	ce := &ContinuityError{Gate: GateAI, Variant: zone.FaultGap, Cell: be.Cell, Zone: be.Zone, Err: be.Err}
	if be.Zone >= 0 && be.Zone < len(zones) && zones[be.Zone].Pipe {
		ce.Variant = zone.FaultPipe
	}
	return ce
}

// geometry runs the world and collision compilers side by side on the
// worker pool and waits for both.
func (c *Compiler) geometry(ctx context.Context, g *track.Grid) (*meshing.World, *physics.Mesh, error) {
	pool := c.pool
	if pool == nil {
		pool = NewWorkerPool(2, 2)
		defer pool.Shutdown()
	}
	logger := ctxlog.FromContext(ctx)
	geo, tol := c.prof.Geometry, c.prof.Tolerances

	results := make(chan Result, 2)
	jobs := []Job{
		{
			Name: "world",
			Ctx:  ctx,
			Run: func(ctx context.Context) (any, error) {
				defer c.rec.Track("meshing.World")()
				wc := meshing.NewWorldCompiler(g, c.lib, geo, tol)
				w, err := wc.Compile(ctx)
				if err == nil {
					logger.Debug("World compiled.", "cancelled", wc.Cancelled, "small_cubes", len(w.Small), "big_cubes", len(w.Big))
				}
				return w, err
			},
			ResultChan: results,
		},
		{
			Name: "collision",
			Ctx:  ctx,
			Run: func(ctx context.Context) (any, error) {
				defer c.rec.Track("physics.Collision")()
				cc := physics.NewCollisionCompiler(g, c.lib, geo, tol)
				m, err := cc.Compile(ctx)
				if err == nil {
					logger.Debug("Collision compiled.", "cancelled", cc.Cancelled, "merges", cc.Merges, "polygons", len(m.Polygons))
				}
				return m, err
			},
			ResultChan: results,
		},
	}
	for _, job := range jobs {
		if err := pool.SubmitJobBlocking(job); err != nil {
			return nil, nil, err
		}
	}

	var world *meshing.World
	var mesh *physics.Mesh
	var errs []error
	for range jobs {
		var r Result
		select {
		case r = <-results:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
			continue
		}
		switch v := r.Value.(type) {
		case *meshing.World:
			world = v
		case *physics.Mesh:
			mesh = v
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, nil, err
	}
	return world, mesh, nil
}

// objects places template objects and lights, plus one pickup object per
// pickup cell, seated on the collision surface under the cell center.
func (c *Compiler) objects(g *track.Grid, mesh *physics.Mesh) ([]export.Object, []export.Light, error) {
	geo := c.prof.Geometry
	var objects []export.Object
	var lights []export.Light
	for _, id := range g.Placements() {
		p := g.Placement(id)
		m, err := c.lib.Module(p.Module)
		if err != nil {
			return nil, nil, fmt.Errorf("objects for placement at %v: %w", p.Root, err)
		}
		tr := geom.CellTransform(p.Root.X, p.Root.Y, p.Elevation, p.Rotation, geo.CellSize, geo.ElevationStep)
		turn := float32(p.Rotation) * math.Pi / 2
		for _, o := range m.Objects {
			objects = append(objects, export.Object{
				Position:    tr.Apply(o.Position),
				Orientation: export.Orientation(o.Yaw + turn),
				Type:        o.Type,
				Flags:       o.Flags,
			})
		}
		for _, l := range m.Lights {
			lights = append(lights, export.Light{
				Position:    tr.Apply(l.Position),
				Orientation: export.Orientation(l.Yaw + turn),
				Color:       l.Color,
				Cone:        l.Cone,
				Reach:       l.Reach,
				Flags:       l.Flags,
				Type:        l.Type,
				Speed:       l.Speed,
			})
		}
	}

	for _, cell := range g.Pickups() {
		floor := float32(0)
		if id, ok := g.PlacementAt(cell); ok {
			floor = float32(g.Placement(id).Elevation) * geo.ElevationStep
		}
		pos := mgl32.Vec3{
			(float32(cell.X) + 0.5) * geo.CellSize,
			floor,
			(float32(cell.Y) + 0.5) * geo.CellSize,
		}
		above := pos.Add(mgl32.Vec3{0, geo.ElevationStep, 0})
		if h, ok := mesh.GroundBelow(above); ok {
			pos[1] = h
		}
		objects = append(objects, export.Object{
			Position:    pos,
			Orientation: export.Orientation(0),
			Type:        PickupType,
		})
	}
	return objects, lights, nil
}

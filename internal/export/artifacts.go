package export

import (
	"fmt"
	"io"
	"path/filepath"

	"mini-track/internal/ai"
	"mini-track/internal/meshing"
	"mini-track/internal/physics"
	"mini-track/internal/zone"
)

// Artifact file names inside one output directory.
const (
	AIFile        = "ai.bin"
	WorldFile     = "world.bin"
	CollisionFile = "collision.bin"
	ZonesFile     = "zones.bin"
	PositionsFile = "positions.bin"
	ObjectsFile   = "objects.bin"
	LightsFile    = "lights.bin"
	ManifestFile  = "info.txt"
)

// ArtifactFiles lists every file an artifact directory may hold.
var ArtifactFiles = []string{
	AIFile, WorldFile, CollisionFile, ZonesFile, PositionsFile, ObjectsFile, LightsFile, ManifestFile,
}

// Artifacts is everything one compile of one direction produces. Zones are
// in lap order.
type Artifacts struct {
	Name      string
	Reverse   bool
	AI        *ai.Path
	World     *meshing.World
	Collision *physics.Mesh
	Zones     []zone.Zone
	Positions *zone.Positions
	Objects   []Object
	Lights    []Light
}

// WriteFiles writes every binary artifact into dir, scaled.
func (a *Artifacts) WriteFiles(dir string, scale float32) error {
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{AIFile, func(w io.Writer) error { return WriteAI(w, a.AI, scale) }},
		{WorldFile, func(w io.Writer) error { return WriteWorld(w, a.World, scale) }},
		{CollisionFile, func(w io.Writer) error { return WriteCollision(w, a.Collision, scale) }},
		{ZonesFile, func(w io.Writer) error { return WriteZones(w, a.Zones, scale) }},
		{PositionsFile, func(w io.Writer) error { return WritePositions(w, a.Positions, scale) }},
		{ObjectsFile, func(w io.Writer) error { return WriteObjects(w, a.Objects, scale) }},
		{LightsFile, func(w io.Writer) error { return WriteLights(w, a.Lights, scale) }},
	}
	for _, f := range files {
		if err := writeFile(filepath.Join(dir, f.name), f.write); err != nil {
			return err
		}
	}
	return nil
}

// Contents is an artifact directory read back from disk.
type Contents struct {
	AI        *ai.Path
	World     *meshing.World
	Collision *physics.Mesh
	Zones     []ZoneRecord
	Positions *zone.Positions
	Objects   []Object
	Lights    []Light
}

// ReadDir reads every binary artifact in dir.
func ReadDir(dir string) (*Contents, error) {
	var c Contents
	var err error
	path := func(name string) string { return filepath.Join(dir, name) }

	if c.AI, err = readFile(path(AIFile), ReadAI); err != nil {
		return nil, err
	}
	if c.World, err = readFile(path(WorldFile), ReadWorld); err != nil {
		return nil, err
	}
	if c.Collision, err = readFile(path(CollisionFile), ReadCollision); err != nil {
		return nil, err
	}
	if c.Zones, err = readFile(path(ZonesFile), ReadZones); err != nil {
		return nil, err
	}
	if c.Positions, err = readFile(path(PositionsFile), ReadPositions); err != nil {
		return nil, err
	}
	if c.Objects, err = readFile(path(ObjectsFile), ReadObjects); err != nil {
		return nil, err
	}
	if c.Lights, err = readFile(path(LightsFile), ReadLights); err != nil {
		return nil, err
	}
	return &c, nil
}

// Summary is a one-line description of the contents.
func (c *Contents) Summary() string {
	return fmt.Sprintf("%d AI nodes, %d small cubes, %d big cubes, %d collision polygons, %d zones, %d position nodes, %d objects, %d lights, lap %.1f",
		len(c.AI.Nodes), len(c.World.Small), len(c.World.Big), len(c.Collision.Polygons),
		len(c.Zones), len(c.Positions.Nodes), len(c.Objects), len(c.Lights), c.Positions.Length)
}

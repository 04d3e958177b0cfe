package config

// Tolerances are the matching thresholds used by the zone, AI and geometry
// passes. Distances are in world units.
type Tolerances struct {
	// LinkDistance is the horizontal radius within which two zone link
	// points are considered joined.
	LinkDistance float32
	// PipeVertical is the height match required between two pipe links.
	PipeVertical float32
	// HeightSlack absorbs float noise in the "never link downwards" rule.
	HeightSlack float32
	// JumpHeight is the rise across a link above which it counts as a step.
	JumpHeight float32
	// AIMatchDistance joins AI route ends and closes the AI loop.
	AIMatchDistance float32
	// VertexWeld is the distance at which two vertices are the same point.
	VertexWeld float32
	// NormalEpsilon bounds 1-dot for parallel normals.
	NormalEpsilon float32
	// PlaneDistance bounds the offset between coplanar planes.
	PlaneDistance float32
}

// Geometry holds the grid dimensions and partition sizes.
type Geometry struct {
	CellSize      float32
	ElevationStep float32
	WallHeight    float32
	// WallSplitSize is the uniform grid SplitCube cuts the boundary wall
	// unit into.
	WallSplitSize float32
	// BigCubeSize is the edge length of a BigCube region.
	BigCubeSize float32
	// LookupCellSize and LookupFudge shape the collision lookup grid.
	LookupCellSize float32
	LookupFudge    float32
	// PageSize is the edge length texture pages are normalised to.
	PageSize int
}

// Variant is one scaled copy of the export.
type Variant struct {
	Name  string
	Scale float32
}

// Profile is everything an export run needs besides the track and the
// module library.
type Profile struct {
	OutputDir  string
	Reverse    bool
	Workers    int
	Variants   []Variant
	Tolerances Tolerances
	Geometry   Geometry
}

// Default returns the stock profile: one full-size variant, reverse
// export enabled.
func Default() Profile {
	return Profile{
		OutputDir: "out",
		Reverse:   true,
		Workers:   2,
		Variants:  []Variant{{Name: "full", Scale: 1}},
		Tolerances: Tolerances{
			LinkDistance:    20,
			PipeVertical:    4,
			HeightSlack:     0.5,
			JumpHeight:      96,
			AIMatchDistance: 20,
			VertexWeld:      0.5,
			NormalEpsilon:   1e-3,
			PlaneDistance:   0.5,
		},
		Geometry: Geometry{
			CellSize:       1024,
			ElevationStep:  256,
			WallHeight:     192,
			WallSplitSize:  2048,
			BigCubeSize:    4096,
			LookupCellSize: 1024,
			LookupFudge:    16,
			PageSize:       256,
		},
	}
}

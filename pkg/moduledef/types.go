package moduledef

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ID identifies a module template. Directional and welded variants are
// separate templates with their own IDs.
type ID int32

// None marks "no module" in tables and save files.
const None ID = -1

// Family groups modules that the resolver treats specially.
type Family string

const (
	FamilyTrack  Family = "track"
	FamilyStart  Family = "start"
	FamilyPipe   Family = "pipe"
	FamilyBridge Family = "bridge"
)

// Part says where a face sits on the module: the drivable/visible body, the
// support pillar stacked once per elevation step, or the ground pan.
type Part string

const (
	PartTrack Part = "track"
	PartPeg   Part = "peg"
	PartPan   Part = "pan"
)

type Module struct {
	ID       ID                `json:"id"`
	Name     string            `json:"name"`
	Parent   string            `json:"parent"`
	Family   Family            `json:"family"`
	Textures map[string]string `json:"textures"`
	Cells    []Cell            `json:"cells"`
	Mesh     []Face            `json:"mesh"`
	Hull     []Face            `json:"hull"`
	Zones    []Zone            `json:"zones"`
	Routes   []Route           `json:"routes"`
	Lights   []Light           `json:"lights"`
	Objects  []Object          `json:"objects"`
	Variants Variants          `json:"variants"`
}

// Cell is one footprint cell relative to the root, in unrotated grid steps.
// Walls flags the N, E, S, W edges that need a boundary wall when open.
type Cell struct {
	Offset [2]int  `json:"offset"`
	Walls  [4]bool `json:"walls"`
}

// Face is an authored triangle or quad in module-local space, wound
// counter-clockwise seen from the side its normal points to.
type Face struct {
	Part     Part         `json:"part"`
	Verts    []mgl32.Vec3 `json:"verts"`
	UV       [][2]float32 `json:"uv"`
	Colors   []uint32     `json:"colors"`
	Texture  string       `json:"texture"`
	Material int32        `json:"material"`
	Flags    uint16       `json:"flags"`
}

// Zone is the drivable corridor through the module. Links are the two
// corridor ends; traffic enters by one and leaves by the other.
type Zone struct {
	Center mgl32.Vec3    `json:"center"`
	Size   mgl32.Vec3    `json:"size"`
	Links  [2]mgl32.Vec3 `json:"links"`
}

type Route struct {
	Nodes []RouteNode `json:"nodes"`
}

// RouteNode is an authored AI cross-section. Line is the racing-line
// fraction from Left (0) to Right (1).
type RouteNode struct {
	Left     mgl32.Vec3 `json:"left"`
	Right    mgl32.Vec3 `json:"right"`
	Line     float32    `json:"line"`
	Priority uint8      `json:"priority"`
}

type Light struct {
	Position mgl32.Vec3 `json:"position"`
	Yaw      float32    `json:"yaw"`
	Color    [4]uint8   `json:"color"`
	Cone     float32    `json:"cone"`
	Reach    float32    `json:"reach"`
	Flags    int32      `json:"flags"`
	Type     int32      `json:"type"`
	Speed    float32    `json:"speed"`
}

type Object struct {
	Position mgl32.Vec3 `json:"position"`
	Yaw      float32    `json:"yaw"`
	Type     int32      `json:"type"`
	Flags    int32      `json:"flags"`
}

// Variants lists the templates that replace this one once the traversal
// direction and neighbours are known. Zero IDs mean "no variant".
type Variants struct {
	Forward       ID    `json:"forward"`
	Reverse       ID    `json:"reverse"`
	FlipOnReverse bool  `json:"flip_on_reverse"`
	Bridge        [4]ID `json:"bridge"`
	Weld          Welds `json:"weld"`
}

// Welds are the pipe variants with end caps removed. NoEntry is used when no
// pipe precedes the segment, NoExit when no pipe follows it, NoSides when
// pipes sit on both sides.
type Welds struct {
	NoSides ID `json:"no_sides"`
	NoEntry ID `json:"no_entry"`
	NoExit  ID `json:"no_exit"`
}

// Empty reports whether the weld table has no entries.
func (w Welds) Empty() bool {
	return w.NoSides == 0 && w.NoEntry == 0 && w.NoExit == 0
}

// Footprint returns the cell offsets, always starting with the root.
func (m *Module) Footprint() [][2]int {
	if len(m.Cells) == 0 {
		return [][2]int{{0, 0}}
	}
	out := make([][2]int, len(m.Cells))
	for i, c := range m.Cells {
		out[i] = c.Offset
	}
	return out
}

// CellAt returns the footprint cell with the given local offset.
func (m *Module) CellAt(offset [2]int) (Cell, bool) {
	for _, c := range m.Cells {
		if c.Offset == offset {
			return c, true
		}
	}
	if offset == [2]int{0, 0} && len(m.Cells) == 0 {
		return Cell{}, true
	}
	return Cell{}, false
}

// UnmarshalJSON accepts a missing part as the track body.
func (f *Face) UnmarshalJSON(data []byte) error {
	type raw Face
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	if r.Part == "" {
		r.Part = PartTrack
	}
	switch r.Part {
	case PartTrack, PartPeg, PartPan:
	default:
		return fmt.Errorf("unknown face part %q", r.Part)
	}
	if n := len(r.Verts); n != 3 && n != 4 {
		return fmt.Errorf("face must have 3 or 4 vertices, got %d", n)
	}
	*f = Face(r)
	return nil
}

package zone

import "github.com/go-gl/mathgl/mgl32"

// PositionNode is one lap-distance marker. Only link slot 0 is used; the
// other slots are -1.
type PositionNode struct {
	Position mgl32.Vec3
	Distance float32
	Prev     [4]int32
	Next     [4]int32
}

// Positions is the closed chain of position nodes for one lap.
type Positions struct {
	Nodes  []PositionNode
	Start  int32
	Length float32
}

// BuildPositions places one node at each entry's entry link. An entry
// reached by a jump gets an extra node at the previous zone's exit link
// first, so the lower end of the jump is on the chain too.
func BuildPositions(zones []Zone, seq Sequence) Positions {
	var pts []mgl32.Vec3
	n := len(seq.Entries)
	for i, e := range seq.Entries {
		if e.Jump {
			prev := seq.Entries[(i+n-1)%n]
			pts = append(pts, zones[prev.Zone].Links[prev.ExitSide()])
		}
		pts = append(pts, zones[e.Zone].Links[e.EntrySide()])
	}

	out := Positions{Nodes: make([]PositionNode, len(pts))}
	var dist float32
	for i, p := range pts {
		if i > 0 {
			dist += p.Sub(pts[i-1]).Len()
		}
		out.Nodes[i] = PositionNode{
			Position: p,
			Distance: dist,
			Prev:     [4]int32{int32((i + len(pts) - 1) % len(pts)), -1, -1, -1},
			Next:     [4]int32{int32((i + 1) % len(pts)), -1, -1, -1},
		}
	}
	if len(pts) > 0 {
		out.Length = dist + pts[0].Sub(pts[len(pts)-1]).Len()
	}
	return out
}

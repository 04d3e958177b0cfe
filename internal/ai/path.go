package ai

import (
	"mini-track/internal/registry"

	"github.com/go-gl/mathgl/mgl32"
)

// End is a speed target at one edge of a node's cross-section.
type End struct {
	Speed    int32
	Position mgl32.Vec3
}

// PathNode is a Node annotated for the AI file.
type PathNode struct {
	Node
	Start bool
	Flags int16
	// FinishDist is the distance along the center line from the start
	// node to this node.
	FinishDist  float32
	Overtaking  float32
	RacingSpeed int32
	CenterSpeed int32
	Prev        [2]int32
	Next        [2]int32
	// Red is the left-edge target, Green the right-edge one.
	Red   End
	Green End
}

// Path is the closed AI path ready to be written.
type Path struct {
	Nodes  []PathNode
	Start  int32
	Length float32
}

// Finalize computes lap distances, speeds and links. Node 0 is the start.
func Finalize(nodes []Node) Path {
	out := Path{Nodes: make([]PathNode, len(nodes))}
	n := len(nodes)
	var dist float32
	for i, node := range nodes {
		if i > 0 {
			dist += node.Center().Sub(nodes[i-1].Center()).Len()
		}
		racing, center := registry.Speeds(node.Priority)
		out.Nodes[i] = PathNode{
			Node:        node,
			Start:       i == 0,
			FinishDist:  dist,
			Overtaking:  1 - node.RacingLine,
			RacingSpeed: racing,
			CenterSpeed: center,
			Prev:        [2]int32{int32((i + n - 1) % n), -1},
			Next:        [2]int32{int32((i + 1) % n), -1},
			Red:         End{Speed: center, Position: node.Left},
			Green:       End{Speed: racing, Position: node.Right},
		}
	}
	if n > 0 {
		out.Length = dist + nodes[0].Center().Sub(nodes[n-1].Center()).Len()
	}
	return out
}

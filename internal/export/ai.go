package export

import (
	"io"

	"mini-track/internal/ai"

	"github.com/go-gl/mathgl/mgl32"
)

type endRecord struct {
	Speed    int32
	Position mgl32.Vec3
}

type aiRecord struct {
	Priority    uint8
	Start       uint8
	Flags       int16
	RacingLine  float32
	FinishDist  float32
	Overtaking  float32
	_           float32
	RacingSpeed int32
	CenterSpeed int32
	Prev        [2]int32
	Next        [2]int32
	Red         endRecord
	Green       endRecord
}

// WriteAI writes the AI node file: count, nodes, then the start node index
// and the lap length.
func WriteAI(w io.Writer, p *ai.Path, scale float32) error {
	e := newEncoder(w, scale)
	e.count(len(p.Nodes))
	for _, n := range p.Nodes {
		rec := aiRecord{
			Priority:    n.Priority,
			Flags:       n.Flags,
			RacingLine:  n.RacingLine,
			FinishDist:  n.FinishDist * scale,
			Overtaking:  n.Overtaking,
			RacingSpeed: n.RacingSpeed,
			CenterSpeed: n.CenterSpeed,
			Prev:        n.Prev,
			Next:        n.Next,
			Red:         endRecord{Speed: n.Red.Speed, Position: n.Red.Position.Mul(scale)},
			Green:       endRecord{Speed: n.Green.Speed, Position: n.Green.Position.Mul(scale)},
		}
		if n.Start {
			rec.Start = 1
		}
		e.put(&rec)
	}
	e.put(p.Start)
	e.dist(p.Length)
	return e.flush()
}

// ReadAI parses an AI node file. Node edges are taken from the red (left)
// and green (right) end positions.
func ReadAI(r io.Reader) (*ai.Path, error) {
	d := newDecoder(r)
	n := d.count("ai node")
	p := &ai.Path{Nodes: make([]ai.PathNode, n)}
	for i := range p.Nodes {
		var rec aiRecord
		d.get(&rec)
		p.Nodes[i] = ai.PathNode{
			Node: ai.Node{
				Left:       rec.Red.Position,
				Right:      rec.Green.Position,
				RacingLine: rec.RacingLine,
				Priority:   rec.Priority,
			},
			Start:       rec.Start != 0,
			Flags:       rec.Flags,
			FinishDist:  rec.FinishDist,
			Overtaking:  rec.Overtaking,
			RacingSpeed: rec.RacingSpeed,
			CenterSpeed: rec.CenterSpeed,
			Prev:        rec.Prev,
			Next:        rec.Next,
			Red:         ai.End{Speed: rec.Red.Speed, Position: rec.Red.Position},
			Green:       ai.End{Speed: rec.Green.Speed, Position: rec.Green.Position},
		}
	}
	d.get(&p.Start)
	d.get(&p.Length)
	if d.err != nil {
		return nil, d.err
	}
	return p, nil
}

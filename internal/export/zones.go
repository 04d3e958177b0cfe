package export

import (
	"io"

	"mini-track/internal/zone"

	"github.com/go-gl/mathgl/mgl32"
)

// ZoneRecord is one trigger zone as stored on disk. Zones are numbered
// from 0 in lap order.
type ZoneRecord struct {
	ID        int32
	Transform mgl32.Mat3
	Position  mgl32.Vec3
	Size      mgl32.Vec3
}

// WriteZones writes the zones in the order given, with an identity
// orientation each.
func WriteZones(w io.Writer, zones []zone.Zone, scale float32) error {
	e := newEncoder(w, scale)
	e.count(len(zones))
	for i, z := range zones {
		e.put(&ZoneRecord{
			ID:        int32(i),
			Transform: mgl32.Ident3(),
			Position:  z.Center.Mul(scale),
			Size:      z.Size.Mul(scale),
		})
	}
	return e.flush()
}

func ReadZones(r io.Reader) ([]ZoneRecord, error) {
	d := newDecoder(r)
	out := make([]ZoneRecord, d.count("zone"))
	d.get(out)
	if d.err != nil {
		return nil, d.err
	}
	return out, nil
}

type positionHeader struct {
	Count  int32
	Start  int32
	Length float32
}

type positionRecord struct {
	Position mgl32.Vec3
	Distance float32
	Prev     [4]int32
	Next     [4]int32
}

// WritePositions writes the lap-distance node chain.
func WritePositions(w io.Writer, p *zone.Positions, scale float32) error {
	e := newEncoder(w, scale)
	e.put(&positionHeader{Count: int32(len(p.Nodes)), Start: p.Start, Length: p.Length * scale})
	for _, n := range p.Nodes {
		e.put(&positionRecord{
			Position: n.Position.Mul(scale),
			Distance: n.Distance * scale,
			Prev:     n.Prev,
			Next:     n.Next,
		})
	}
	return e.flush()
}

func ReadPositions(r io.Reader) (*zone.Positions, error) {
	d := newDecoder(r)
	var hdr positionHeader
	d.get(&hdr)
	if d.err != nil {
		return nil, d.err
	}
	if hdr.Count < 0 || hdr.Count > 1<<24 {
		return nil, errCount("position node", hdr.Count)
	}
	p := &zone.Positions{Nodes: make([]zone.PositionNode, hdr.Count), Start: hdr.Start, Length: hdr.Length}
	for i := range p.Nodes {
		var rec positionRecord
		d.get(&rec)
		p.Nodes[i] = zone.PositionNode{Position: rec.Position, Distance: rec.Distance, Prev: rec.Prev, Next: rec.Next}
	}
	if d.err != nil {
		return nil, d.err
	}
	return p, nil
}

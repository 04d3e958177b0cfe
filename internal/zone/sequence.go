package zone

import (
	"mini-track/internal/config"
	"mini-track/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// Fault says why a walk stopped short of the start zone.
type Fault uint8

const (
	// FaultGap: no link point within reach at all.
	FaultGap Fault = iota
	// FaultPipe: a pipe link was in reach but at the wrong height.
	FaultPipe
	// FaultStep: a link was in reach but lower than the current one.
	FaultStep
	// FaultRevisit: the walk came back to a zone other than the start.
	FaultRevisit
)

func (f Fault) String() string {
	switch f {
	case FaultPipe:
		return "pipe"
	case FaultStep:
		return "step"
	case FaultRevisit:
		return "revisit"
	}
	return "gap"
}

// Entry is one step of the lap.
type Entry struct {
	Zone int
	// Reversed is set when traffic enters by link 1 and leaves by link 0.
	Reversed bool
	// Jump is set when the height change across the entry link exceeds
	// the jump threshold.
	Jump bool
}

// EntrySide is the link traffic enters the zone by.
func (e Entry) EntrySide() int {
	if e.Reversed {
		return 1
	}
	return 0
}

// ExitSide is the link traffic leaves the zone by.
func (e Entry) ExitSide() int {
	return 1 - e.EntrySide()
}

// Sequence is the ordered lap. It is only usable when FormsLoop is set;
// otherwise Last and Fault describe where the walk stopped.
type Sequence struct {
	Entries   []Entry
	FormsLoop bool
	Last      int
	Fault     Fault
}

// DetermineZoneSequence walks the zone graph from start. The forward lap
// leaves the start zone by link 1, the reverse lap by link 0. The walk makes
// at most len(zones) steps and succeeds only when it arrives back at start.
func DetermineZoneSequence(zones []Zone, start int, reverse bool, tol config.Tolerances) Sequence {
	seq := Sequence{Last: start}
	if start < 0 || start >= len(zones) {
		return seq
	}
	seq.Entries = append(seq.Entries, Entry{Zone: start, Reversed: reverse})
	visited := make([]bool, len(zones))
	visited[start] = true

	cur := start
	link := zones[start].Links[seq.Entries[0].ExitSide()]
	for step := 0; step < len(zones); step++ {
		next, side, ok := FindNextZone(zones, cur, link, tol)
		if !ok {
			seq.Last = cur
			seq.Fault = diagnose(zones, cur, link, tol)
			return seq
		}
		jump := abs(zones[next].Links[side][1]-link[1]) > tol.JumpHeight
		if next == start {
			seq.Entries[0].Jump = jump
			seq.FormsLoop = true
			seq.Last = cur
			return seq
		}
		if visited[next] {
			seq.Last = cur
			seq.Fault = FaultRevisit
			return seq
		}
		visited[next] = true
		e := Entry{Zone: next, Reversed: side == 1, Jump: jump}
		seq.Entries = append(seq.Entries, e)
		cur = next
		link = zones[next].Links[e.ExitSide()]
	}
	seq.Last = cur
	seq.Fault = FaultRevisit
	return seq
}

// diagnose explains a failed FindNextZone: a link in horizontal reach that
// was rejected by the pipe rule or the height rule.
func diagnose(zones []Zone, cur int, link mgl32.Vec3, tol config.Tolerances) Fault {
	fault := FaultGap
	for i := range zones {
		if i == cur {
			continue
		}
		for _, cand := range zones[i].Links {
			if geom.HorizontalDist(link, cand) >= tol.LinkDistance {
				continue
			}
			if zones[cur].Pipe && zones[i].Pipe {
				return FaultPipe
			}
			fault = FaultStep
		}
	}
	return fault
}

package compiler

import (
	"errors"
	"fmt"

	"mini-track/internal/track"
	"mini-track/internal/zone"
)

var (
	ErrNoStartModule        = errors.New("track has no start module")
	ErrMultipleStartModules = errors.New("track has more than one start module")
)

// Gate names the validity check a compile failed at.
type Gate uint8

const (
	GateLoop Gate = iota
	GateAI
)

func (g Gate) String() string {
	if g == GateAI {
		return "ai"
	}
	return "loop"
}

// ContinuityError reports a track that does not close. Cell and Zone locate
// the last piece the walk got through, so an editor can put its cursor
// there. Variant tells a pipe fault from a step or a plain gap.
type ContinuityError struct {
	Gate    Gate
	Variant zone.Fault
	Cell    track.Coord
	Zone    int
	Err     error
}

func (e *ContinuityError) Error() string {
	what := "track does not form a loop"
	if e.Gate == GateAI {
		what = "AI path is broken"
	}
	msg := fmt.Sprintf("%s at cell %v (%s)", what, e.Cell, e.Variant)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ContinuityError) Unwrap() error { return e.Err }

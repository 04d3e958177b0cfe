package meshing

import (
	"errors"
	"fmt"
)

// Stage is where a mesh compiler is in its pipeline. Each stage requires
// the one before it.
type Stage uint8

const (
	Uncompiled Stage = iota
	CellsExtracted
	FixedUp
	WallsAdded
	Partitioned
	Ready
)

var stageNames = [...]string{
	Uncompiled:     "uncompiled",
	CellsExtracted: "cells-extracted",
	FixedUp:        "fixed-up",
	WallsAdded:     "walls-added",
	Partitioned:    "partitioned",
	Ready:          "ready",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", s)
}

var ErrStageOrder = errors.New("mesh compiler stage out of order")

// Advance moves *s from want to next, or fails without changing it.
func Advance(s *Stage, want, next Stage) error {
	if *s != want {
		return fmt.Errorf("%w: at %v, need %v to reach %v", ErrStageOrder, *s, want, next)
	}
	*s = next
	return nil
}

package registry

import "mini-track/pkg/moduledef"

// WallTexture is the page boundary walls are drawn with. It is always
// registered, whether or not a module uses it.
const WallTexture = "wall"

// Stock module IDs shipped with the default module pack.
const (
	Start      moduledef.ID = 1
	Straight   moduledef.ID = 2
	Corner     moduledef.ID = 3
	Ramp       moduledef.ID = 4
	Jump       moduledef.ID = 5
	Bridge     moduledef.ID = 20
	Pipe1      moduledef.ID = 30
	Pipe2      moduledef.ID = 31
	PipeCorner moduledef.ID = 32
)

// AI node priority categories.
const (
	PriorityNormal uint8 = iota
	PriorityCorner
	PriorityJump
	PriorityPipe
)

var prioritySpeeds = [...]struct {
	racing, center int32
}{
	PriorityNormal: {racing: 220, center: 180},
	PriorityCorner: {racing: 140, center: 110},
	PriorityJump:   {racing: 200, center: 200},
	PriorityPipe:   {racing: 170, center: 150},
}

// Speeds returns the racing-line and center-line target speeds for a
// priority. Unknown priorities drive at normal speed.
func Speeds(priority uint8) (racing, center int32) {
	if int(priority) >= len(prioritySpeeds) {
		priority = PriorityNormal
	}
	s := prioritySpeeds[priority]
	return s.racing, s.center
}

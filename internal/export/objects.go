package export

import (
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"
)

// Object is a placed track object: a pickup or a template prop.
type Object struct {
	Position    mgl32.Vec3
	Orientation mgl32.Mat3
	Type        int32
	Flags       int32
}

// Light is a placed light source. Cone is an angle and is not scaled.
type Light struct {
	Position    mgl32.Vec3
	Orientation mgl32.Mat3
	Color       [4]uint8
	Cone        float32
	Reach       float32
	Flags       int32
	Type        int32
	Speed       float32
}

// Orientation turns a yaw in radians into the stored rotation matrix.
func Orientation(yaw float32) mgl32.Mat3 {
	return mgl32.Rotate3DY(-yaw)
}

func errCount(what string, n int32) error {
	return fmt.Errorf("bad %s count %d", what, n)
}

func WriteObjects(w io.Writer, objs []Object, scale float32) error {
	e := newEncoder(w, scale)
	e.count(len(objs))
	for _, o := range objs {
		o.Position = o.Position.Mul(scale)
		e.put(&o)
	}
	return e.flush()
}

func ReadObjects(r io.Reader) ([]Object, error) {
	d := newDecoder(r)
	out := make([]Object, d.count("object"))
	d.get(out)
	if d.err != nil {
		return nil, d.err
	}
	return out, nil
}

func WriteLights(w io.Writer, lights []Light, scale float32) error {
	e := newEncoder(w, scale)
	e.count(len(lights))
	for _, l := range lights {
		l.Position = l.Position.Mul(scale)
		l.Reach *= scale
		e.put(&l)
	}
	return e.flush()
}

func ReadLights(r io.Reader) ([]Light, error) {
	d := newDecoder(r)
	out := make([]Light, d.count("light"))
	d.get(out)
	if d.err != nil {
		return nil, d.err
	}
	return out, nil
}

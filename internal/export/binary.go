// Package export writes compiled track artifacts as little-endian binary
// files and reads them back. Every count precedes the records it counts.
package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl32"
)

// encoder wraps a buffered writer and keeps the first error, so a record
// sequence can be written without checking every field.
type encoder struct {
	w     *bufio.Writer
	scale float32
	err   error
}

func newEncoder(w io.Writer, scale float32) *encoder {
	return &encoder{w: bufio.NewWriter(w), scale: scale}
}

func (e *encoder) put(v any) {
	if e.err == nil {
		e.err = binary.Write(e.w, binary.LittleEndian, v)
	}
}

// dist writes a length scaled by the variant scale.
func (e *encoder) dist(f float32) { e.put(f * e.scale) }

func (e *encoder) count(n int) { e.put(int32(n)) }

func (e *encoder) flush() error {
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

type decoder struct {
	r   *bufio.Reader
	err error
}

func newDecoder(r io.Reader) *decoder {
	return &decoder{r: bufio.NewReader(r)}
}

func (d *decoder) get(v any) {
	if d.err == nil {
		d.err = binary.Read(d.r, binary.LittleEndian, v)
	}
}

// count reads an i32 count and rejects negative or absurd values before
// anything is allocated for them.
func (d *decoder) count(what string) int {
	var n int32
	d.get(&n)
	if d.err == nil && (n < 0 || n > 1<<24) {
		d.err = errCount(what, n)
	}
	if d.err != nil {
		return 0
	}
	return int(n)
}

// atEOF reports whether nothing follows, without consuming input.
func (d *decoder) atEOF() bool {
	if d.err != nil {
		return false
	}
	_, err := d.r.Peek(1)
	return err == io.EOF
}

// bounds are written min/max interleaved per axis.
func interleave(lo, hi mgl32.Vec3, scale float32) [6]float32 {
	return [6]float32{
		lo[0] * scale, hi[0] * scale,
		lo[1] * scale, hi[1] * scale,
		lo[2] * scale, hi[2] * scale,
	}
}

func deinterleave(b [6]float32) (lo, hi mgl32.Vec3) {
	return mgl32.Vec3{b[0], b[2], b[4]}, mgl32.Vec3{b[1], b[3], b[5]}
}

// writeFile creates path and runs fn over it, wrapping any failure with
// the path.
func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func readFile[T any](path string, fn func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	v, err := fn(f)
	if err != nil {
		return zero, fmt.Errorf("read %s: %w", path, err)
	}
	return v, nil
}

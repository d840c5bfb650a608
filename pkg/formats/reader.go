package formats

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Faultbox/midgard-3mf/pkg/encoding"
)

// reader decodes little-endian records. The first short read sets err to
// the format's truncation sentinel; later calls return zero values.
type reader struct {
	data      []byte
	off       int
	err       error
	truncated error
}

func newReader(data []byte, truncated error) *reader {
	return &reader{data: data, truncated: truncated}
}

func (r *reader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = fmt.Errorf("%w: reading %s at offset %d", r.truncated, what, r.off)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) skip(n int, what string) {
	r.take(n, what)
}

func (r *reader) u8(what string) uint8 {
	if b := r.take(1, what); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u16(what string) uint16 {
	if b := r.take(2, what); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *reader) i16(what string) int16 {
	return int16(r.u16(what))
}

func (r *reader) u32(what string) uint32 {
	if b := r.take(4, what); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *reader) i32(what string) int32 {
	return int32(r.u32(what))
}

func (r *reader) f32(what string) float32 {
	return math.Float32frombits(r.u32(what))
}

func (r *reader) vec3(what string) [3]float32 {
	return [3]float32{r.f32(what), r.f32(what), r.f32(what)}
}

func (r *reader) vec4(what string) [4]float32 {
	return [4]float32{r.f32(what), r.f32(what), r.f32(what), r.f32(what)}
}

// fixedString reads a NUL-padded EUC-KR field of n bytes.
func (r *reader) fixedString(n int, what string) string {
	return encoding.FixedString(r.take(n, what))
}

// lenString reads an int32 length followed by that many EUC-KR bytes.
func (r *reader) lenString(what string) string {
	n := r.i32(what + " length")
	return encoding.FixedString(r.take(int(n), what))
}

// count reads an int32 element count and rejects negative values and
// counts of elemSize-byte records that cannot fit in the rest of the data.
func (r *reader) count(elemSize int, what string) int {
	n := r.i32(what + " count")
	if r.err != nil {
		return 0
	}
	if n < 0 {
		r.err = fmt.Errorf("invalid %s count %d", what, n)
		return 0
	}
	if elemSize > 0 && int(n) > r.remaining()/elemSize {
		r.err = fmt.Errorf("%w: %d %s need %d bytes, %d left",
			r.truncated, n, what, int(n)*elemSize, r.remaining())
		return 0
	}
	return int(n)
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

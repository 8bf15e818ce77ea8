package wavstream

import (
	"encoding/binary"
	"math"

	"github.com/go-audio/audio"
)

// byteView wraps a peeked byte run with endian-aware fixed-width reads.
// All offsets are relative to the start of the view; the caller guarantees
// the view is long enough for the requested read.
type byteView []byte

func (v byteView) u16le(off int) uint16 {
	return binary.LittleEndian.Uint16(v[off:])
}

func (v byteView) u16be(off int) uint16 {
	return binary.BigEndian.Uint16(v[off:])
}

func (v byteView) u32le(off int) uint32 {
	return binary.LittleEndian.Uint32(v[off:])
}

func (v byteView) u32be(off int) uint32 {
	return binary.BigEndian.Uint32(v[off:])
}

func (v byteView) u16(off int, bigEndian bool) uint16 {
	if bigEndian {
		return v.u16be(off)
	}

	return v.u16le(off)
}

func (v byteView) u32(off int, bigEndian bool) uint32 {
	if bigEndian {
		return v.u32be(off)
	}

	return v.u32le(off)
}

func (v byteView) i16(off int, bigEndian bool) int16 {
	return int16(v.u16(off, bigEndian))
}

// i24 sign-extends a 3-byte sample to int32.
func (v byteView) i24(off int, bigEndian bool) int32 {
	if bigEndian {
		value := int32(v[off])<<24 | int32(v[off+1])<<16 | int32(v[off+2])<<8

		return value >> 8
	}

	return audio.Int24LETo32(v[off : off+3])
}

func (v byteView) i32(off int, bigEndian bool) int32 {
	return int32(v.u32(off, bigEndian))
}

func (v byteView) f32(off int, bigEndian bool) float32 {
	return math.Float32frombits(v.u32(off, bigEndian))
}

func (v byteView) f64(off int, bigEndian bool) float64 {
	if bigEndian {
		return math.Float64frombits(binary.BigEndian.Uint64(v[off:]))
	}

	return math.Float64frombits(binary.LittleEndian.Uint64(v[off:]))
}

func (v byteView) fourcc(off int) [4]byte {
	return [4]byte{v[off], v[off+1], v[off+2], v[off+3]}
}

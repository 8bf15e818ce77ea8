package wavstream

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"
)

// fixtureFormat describes a synthetic WAV stream built byte-by-byte for
// tests.
type fixtureFormat struct {
	formatTag  uint16
	channels   uint16
	sampleRate uint32
	bits       uint16
	bigEndian  bool
	// blockAlignOverride substitutes a bogus declared blockAlign when
	// non-zero.
	blockAlignOverride uint16
}

func (f fixtureFormat) order() binary.ByteOrder {
	if f.bigEndian {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

func (f fixtureFormat) blockAlign() uint16 {
	return uint16(bytesPerSample(int(f.bits))) * f.channels
}

func (f fixtureFormat) fmtPayload() []byte {
	bo := f.order()
	align := f.blockAlign()

	if f.blockAlignOverride != 0 {
		align = f.blockAlignOverride
	}

	payload := make([]byte, 16)
	bo.PutUint16(payload[0:], f.formatTag)
	bo.PutUint16(payload[2:], f.channels)
	bo.PutUint32(payload[4:], f.sampleRate)
	bo.PutUint32(payload[8:], f.sampleRate*uint32(align))
	bo.PutUint16(payload[12:], align)
	bo.PutUint16(payload[14:], f.bits)

	return payload
}

// extensibleFmtPayload wraps the base fields into a 40-byte
// WAVEFORMATEXTENSIBLE payload resolving to subTag.
func (f fixtureFormat) extensibleFmtPayload(subTag uint16) []byte {
	bo := f.order()

	base := f.fmtPayload()
	bo.PutUint16(base[0:], wavFormatExtensible)

	payload := make([]byte, 40)
	copy(payload, base)
	bo.PutUint16(payload[16:], 22)
	bo.PutUint16(payload[18:], f.bits)
	bo.PutUint32(payload[20:], 0)

	guid := makeSubFormatGUID(subTag)
	copy(payload[24:], guid[:])

	return payload
}

func buildChunk(id string, payload []byte, bigEndian bool) []byte {
	bo := binary.ByteOrder(binary.LittleEndian)
	if bigEndian {
		bo = binary.BigEndian
	}

	chunk := make([]byte, 8, 8+len(payload)+1)
	copy(chunk, id)
	bo.PutUint32(chunk[4:], uint32(len(payload)))

	chunk = append(chunk, payload...)
	if len(payload)%2 == 1 {
		chunk = append(chunk, 0)
	}

	return chunk
}

// assembleRIFF wraps pre-built chunks into a RIFF or RIFX container with a
// consistent declared size.
func assembleRIFF(bigEndian bool, chunks ...[]byte) []byte {
	bo := binary.ByteOrder(binary.LittleEndian)
	opener := "RIFF"

	if bigEndian {
		bo = binary.BigEndian
		opener = "RIFX"
	}

	body := []byte("WAVE")
	for _, chunk := range chunks {
		body = append(body, chunk...)
	}

	out := make([]byte, 8, 8+len(body))
	copy(out, opener)
	bo.PutUint32(out[4:], uint32(len(body)))

	return append(out, body...)
}

// buildWav assembles opener + fmt + extra chunks + data.
func buildWav(f fixtureFormat, data []byte, extra ...[]byte) []byte {
	return buildWavWithFmt(f.bigEndian, f.fmtPayload(), data, extra...)
}

func buildWavWithFmt(bigEndian bool, fmtPayload, data []byte, extra ...[]byte) []byte {
	chunks := [][]byte{buildChunk("fmt ", fmtPayload, bigEndian)}
	chunks = append(chunks, extra...)
	chunks = append(chunks, buildChunk("data", data, bigEndian))

	return assembleRIFF(bigEndian, chunks...)
}

func pcm16Bytes(bigEndian bool, samples ...int16) []byte {
	bo := binary.ByteOrder(binary.LittleEndian)
	if bigEndian {
		bo = binary.BigEndian
	}

	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		bo.PutUint16(out[2*i:], uint16(s))
	}

	return out
}

func pcm24Bytes(bigEndian bool, samples ...int32) []byte {
	out := make([]byte, 0, 3*len(samples))
	for _, s := range samples {
		b0 := byte(s)
		b1 := byte(s >> 8)
		b2 := byte(s >> 16)

		if bigEndian {
			out = append(out, b2, b1, b0)
		} else {
			out = append(out, b0, b1, b2)
		}
	}

	return out
}

func pcm32Bytes(bigEndian bool, samples ...int32) []byte {
	bo := binary.ByteOrder(binary.LittleEndian)
	if bigEndian {
		bo = binary.BigEndian
	}

	out := make([]byte, 4*len(samples))
	for i, s := range samples {
		bo.PutUint32(out[4*i:], uint32(s))
	}

	return out
}

func float32Bytes(bigEndian bool, samples ...float32) []byte {
	bo := binary.ByteOrder(binary.LittleEndian)
	if bigEndian {
		bo = binary.BigEndian
	}

	out := make([]byte, 4*len(samples))
	for i, s := range samples {
		bo.PutUint32(out[4*i:], math.Float32bits(s))
	}

	return out
}

func float64Bytes(bigEndian bool, samples ...float64) []byte {
	bo := binary.ByteOrder(binary.LittleEndian)
	if bigEndian {
		bo = binary.BigEndian
	}

	out := make([]byte, 8*len(samples))
	for i, s := range samples {
		bo.PutUint64(out[8*i:], math.Float64bits(s))
	}

	return out
}

func assertFloat32SlicesClose(t *testing.T, got, want []float32, tolerance float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		if diff := math.Abs(float64(got[i]) - float64(want[i])); diff > tolerance {
			t.Fatalf("sample %d: got %f, want %f (diff %g)", i, got[i], want[i], diff)
		}
	}
}

func hasDiagnostic(diags []Diagnostic, substring string) bool {
	for _, diag := range diags {
		if strings.Contains(diag.Message, substring) {
			return true
		}
	}

	return false
}

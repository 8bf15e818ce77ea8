package wavstream

import "encoding/binary"

const (
	ksSubFormatGUIDTail0  = 0x00
	ksSubFormatGUIDTail1  = 0x00
	ksSubFormatGUIDTail2  = 0x10
	ksSubFormatGUIDTail3  = 0x00
	ksSubFormatGUIDTail4  = 0x80
	ksSubFormatGUIDTail5  = 0x00
	ksSubFormatGUIDTail6  = 0x00
	ksSubFormatGUIDTail7  = 0xAA
	ksSubFormatGUIDTail8  = 0x00
	ksSubFormatGUIDTail9  = 0x38
	ksSubFormatGUIDTail10 = 0x9B
	ksSubFormatGUIDTail11 = 0x71
)

// DecoderState describes the lifecycle stage of a Decoder.
type DecoderState uint8

const (
	// StateUninit is the initial state, before a valid fmt chunk was parsed.
	StateUninit DecoderState = iota
	// StateDecoding means the format is locked and sample data can decode.
	StateDecoding
	// StateEnded means the stream completed, was flushed, or was freed.
	StateEnded
	// StateError means a fatal error stopped decoding; only Reset recovers.
	StateError
)

// String implements the Stringer interface.
func (s DecoderState) String() string {
	switch s {
	case StateUninit:
		return "uninit"
	case StateDecoding:
		return "decoding"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// FormatInfo is the canonical, validated view of a parsed fmt chunk.
type FormatInfo struct {
	// FormatTag is the effective audio format after WAVE_FORMAT_EXTENSIBLE
	// sub-format resolution.
	FormatTag uint16
	// RawFormatTag is the tag as declared in the fmt chunk, which may be
	// WAVE_FORMAT_EXTENSIBLE.
	RawFormatTag  uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BitsPerSample uint16
	// BlockAlign is always the derived value; a disagreeing declared value
	// only produces a warning.
	BlockAlign uint16
	// ValidBitsPerSample and ChannelMask carry WAVE_FORMAT_EXTENSIBLE extra
	// fields when present.
	ValidBitsPerSample uint16
	ChannelMask        uint32
	SubFormat          [16]byte
	// BigEndian is true for RIFX containers; multi-byte sample reads swap.
	BigEndian bool
}

// Empty reports whether no format has been parsed.
func (f FormatInfo) Empty() bool {
	return f.NumChannels == 0
}

// BytesPerSample returns the storage size of one sample of one channel.
func (f FormatInfo) BytesPerSample() int {
	return bytesPerSample(int(f.BitsPerSample))
}

func makeSubFormatGUID(formatTag uint16) [16]byte {
	var guid [16]byte
	binary.LittleEndian.PutUint32(guid[:4], uint32(formatTag))
	guid[4] = ksSubFormatGUIDTail0
	guid[5] = ksSubFormatGUIDTail1
	guid[6] = ksSubFormatGUIDTail2
	guid[7] = ksSubFormatGUIDTail3
	guid[8] = ksSubFormatGUIDTail4
	guid[9] = ksSubFormatGUIDTail5
	guid[10] = ksSubFormatGUIDTail6
	guid[11] = ksSubFormatGUIDTail7
	guid[12] = ksSubFormatGUIDTail8
	guid[13] = ksSubFormatGUIDTail9
	guid[14] = ksSubFormatGUIDTail10
	guid[15] = ksSubFormatGUIDTail11

	return guid
}

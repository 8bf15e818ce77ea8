package wavstream

const (
	wavFormatPCM        = 1
	wavFormatIEEEFloat  = 3
	wavFormatALaw       = 6
	wavFormatMuLaw      = 7
	wavFormatMP3        = 0x0055
	wavFormatExtensible = 0xFFFE
)

const (
	scalePCMUint8 = 128.0
	scalePCMInt16 = 32768.0
	scalePCMInt24 = 8388608.0
	scalePCMInt32 = 2147483648.0
)

const (
	// DefaultRingSize is the initial ring capacity used by NewDecoder. It
	// comfortably holds any realistic header run plus several audio blocks.
	DefaultRingSize = 32 * 1024
	// MaxRingSize caps ring growth under backpressure; needing more than
	// this to make progress is a fatal ring overflow.
	MaxRingSize = 1 << 20

	maxChannels      = 256
	highChannelCount = 64
	maxSampleRate    = 384000

	// Auxiliary chunk payloads up to this size, and no larger than the
	// ring's current capacity, are buffered whole for chunk observers; other
	// chunks are stream-discarded.
	observerPayloadCap = 4096
)

func bytesPerSample(bitDepth int) int {
	return (bitDepth-1)/8 + 1
}

func clampFloat32(value, minVal, maxVal float32) float32 {
	if value < minVal {
		return minVal
	}

	if value > maxVal {
		return maxVal
	}

	return value
}

package wavstream

import (
	"github.com/go-audio/riff"
)

var (
	// CIDRifx is the opener fourcc of big-endian RIFX containers.
	CIDRifx = [4]byte{'R', 'I', 'F', 'X'}
	// CIDRf64 is the opener fourcc of 64-bit RF64 containers, which are
	// rejected.
	CIDRf64 = [4]byte{'R', 'F', '6', '4'}
	// CIDList is the chunk ID for a LIST chunk.
	CIDList = [4]byte{'L', 'I', 'S', 'T'}
	// CIDFact is the chunk ID for the fact chunk.
	CIDFact = [4]byte{'f', 'a', 'c', 't'}
	// CIDJunk is the chunk ID for junk padding chunks.
	CIDJunk = [4]byte{'J', 'U', 'N', 'K'}
	// CIDPad is the chunk ID for pad chunks.
	CIDPad = [4]byte{'P', 'A', 'D', ' '}
	// CIDSmpl is the chunk ID for a smpl chunk.
	CIDSmpl = [4]byte{'s', 'm', 'p', 'l'}
	// CIDCue is the chunk ID for the cue chunk.
	CIDCue = [4]byte{'c', 'u', 'e', 0x20}
	// CIDBext is the chunk ID for the broadcast extension chunk.
	CIDBext = [4]byte{'b', 'e', 'x', 't'}
	// CIDCart is the chunk ID for the cart chunk.
	CIDCart = [4]byte{'c', 'a', 'r', 't'}

	waveListType = [4]byte{'w', 'a', 'v', 'e'}
)

type parserState uint8

const (
	stateWantRIFFHeader parserState = iota
	stateWantChunkHeader
	stateInFmt
	stateSkipChunk
	stateInData
	stateDone
	stateFailed
)

// chunkParser is a resumable state machine over the ring buffer. It consumes
// a potentially-unaligned byte stream and produces a canonical FormatInfo
// plus block-aligned sample body runs. Parsing suspends whenever the ring
// runs short and resumes when more bytes arrive.
type chunkParser struct {
	ring *RingBuffer
	sink *diagSink

	state     parserState
	bigEndian bool
	riffSize  uint32
	// offset counts bytes consumed from the start of the stream.
	offset uint64

	format     FormatInfo
	haveFormat bool
	fmtSize    uint32

	skipID          [4]byte
	skipSize        uint32
	skipRemaining   int
	skipWantPayload bool
	skipSilent      bool
	skipDispatched  bool
	skipSniffed     bool
	skipReturn      parserState
	listType        [4]byte

	seenData           bool
	declaredDataSize   uint32
	dataBytesRemaining uint32
	dataPad            bool
	padPending         bool
	warnedTrailing     bool

	chunkOrder int

	// onFormat fires once when a valid fmt chunk locks the format.
	onFormat func(FormatInfo)
	// onData receives block-aligned sample body runs; the slice is only
	// valid for the duration of the call.
	onData func(raw []byte)
	// onAuxChunk fires for each auxiliary chunk. payload is non-nil only for
	// small chunks that were buffered whole, and is only valid for the
	// duration of the call.
	onAuxChunk func(id, listType [4]byte, size uint32, payload []byte)
}

func (p *chunkParser) reset(ring *RingBuffer, sink *diagSink) {
	onFormat, onData, onAux := p.onFormat, p.onData, p.onAuxChunk
	*p = chunkParser{ring: ring, sink: sink, onFormat: onFormat, onData: onData, onAuxChunk: onAux}
}

// advance drives the state machine over all currently buffered bytes.
// It returns true if any progress was made.
func (p *chunkParser) advance() bool {
	progressed := false

	for p.step() {
		progressed = true

		if p.sink.fatal {
			break
		}
	}

	return progressed
}

func (p *chunkParser) step() bool {
	switch p.state {
	case stateWantRIFFHeader:
		return p.stepRIFFHeader()
	case stateWantChunkHeader:
		return p.stepChunkHeader()
	case stateInFmt:
		return p.stepFmt()
	case stateSkipChunk:
		return p.stepSkip()
	case stateInData:
		return p.stepData()
	case stateDone:
		return p.stepTrailing()
	default:
		return false
	}
}

// needed returns how many buffered bytes the next step requires to make
// progress. The decoder uses it to size ring growth under backpressure.
func (p *chunkParser) needed() int {
	switch p.state {
	case stateWantRIFFHeader:
		return 12
	case stateWantChunkHeader:
		return 8
	case stateInFmt:
		return min(int(p.fmtSize)+int(p.fmtSize&1), maxFmtParseBytes)
	case stateSkipChunk:
		if p.skipWantPayload {
			return p.skipRemaining
		}

		return 1
	case stateInData:
		return int(p.format.BlockAlign)
	case stateDone:
		if p.padPending {
			return 1
		}

		return 8
	default:
		return 0
	}
}

func (p *chunkParser) consume(n int) {
	p.ring.Discard(n)
	p.offset += uint64(n)
}

func (p *chunkParser) fail(code Code, format string, args ...any) {
	p.sink.errorf(code, p.offset, format, args...)
	p.state = stateFailed
}

func (p *chunkParser) warnOddChunk(id [4]byte, size uint32) {
	p.sink.warnf(CodeAdvisoryMismatch, p.offset,
		"odd chunk size %d for %q; a pad byte follows", size, string(id[:]))
}

func (p *chunkParser) stepRIFFHeader() bool {
	view, err := p.ring.Peek(12, 0)
	if err != nil {
		return false
	}

	v := byteView(view)

	switch v.fourcc(0) {
	case riff.RiffID:
	case CIDRifx:
		p.bigEndian = true
		p.sink.warnf(CodeAdvisoryMismatch, p.offset, "big endian RIFX container")
	case CIDRf64:
		p.fail(CodeInvalidContainer, "Invalid WAV file: RF64 containers are not supported")

		return true
	default:
		p.fail(CodeInvalidContainer, "Invalid WAV file: missing RIFF header")

		return true
	}

	if v.fourcc(8) != riff.WavFormatID {
		p.fail(CodeInvalidContainer, "Invalid WAV file: form type is not WAVE")

		return true
	}

	p.riffSize = v.u32(4, p.bigEndian)
	p.consume(12)
	p.state = stateWantChunkHeader

	return true
}

func (p *chunkParser) stepChunkHeader() bool {
	view, err := p.ring.Peek(8, 0)
	if err != nil {
		return false
	}

	v := byteView(view)
	id := v.fourcc(0)
	size := v.u32(4, p.bigEndian)
	p.chunkOrder++

	switch {
	case id == riff.FmtID && !p.haveFormat:
		p.consume(8)

		p.fmtSize = size
		if size&1 == 1 {
			p.warnOddChunk(id, size)
		}

		p.state = stateInFmt
	case id == riff.FmtID:
		p.sink.warnf(CodeRecoverableChunkSkip, p.offset, "duplicate fmt chunk; skipping")
		p.enterSkip(id, size, true, stateWantChunkHeader)
	case id == riff.DataFormatID && !p.haveFormat:
		p.fail(CodeOrderingViolation, "data chunk before fmt chunk")
	case id == riff.DataFormatID:
		p.consume(8)

		p.seenData = true
		p.declaredDataSize = size
		p.dataBytesRemaining = size

		if size&1 == 1 {
			p.warnOddChunk(id, size)
			p.dataPad = true
		}

		p.state = stateInData
	default:
		if !knownAuxChunkID(id) {
			p.sink.warnf(CodeRecoverableChunkSkip, p.offset, "skipping unrecognized chunk %q", string(id[:]))
		}

		p.enterSkip(id, size, false, stateWantChunkHeader)
	}

	return true
}

func knownAuxChunkID(id [4]byte) bool {
	switch id {
	case CIDList, CIDJunk, CIDPad, CIDBext, CIDCue, CIDFact, CIDSmpl, CIDCart:
		return true
	default:
		return false
	}
}

func (p *chunkParser) enterSkip(id [4]byte, size uint32, silent bool, returnTo parserState) {
	p.consume(8)

	if size&1 == 1 {
		p.warnOddChunk(id, size)
	}

	total := int(size) + int(size&1)

	p.skipID = id
	p.skipSize = size
	p.skipRemaining = total
	p.skipSilent = silent
	p.skipDispatched = false
	p.skipSniffed = false
	p.skipReturn = returnTo
	p.listType = [4]byte{}
	p.skipWantPayload = !silent && total > 0 && total <= observerPayloadCap && total <= p.ring.Capacity()

	if total == 0 {
		p.dispatchAux(nil)
		p.state = returnTo

		return
	}

	p.state = stateSkipChunk
}

func (p *chunkParser) dispatchAux(payload []byte) {
	if p.skipSilent || p.onAuxChunk == nil {
		return
	}

	p.onAuxChunk(p.skipID, p.listType, p.skipSize, payload)
}

func (p *chunkParser) stepSkip() bool {
	if p.skipID == CIDList && !p.skipSniffed && p.skipSize >= 4 {
		// Wait for the form type so observers always see it.
		view, err := p.ring.Peek(4, 0)
		if err != nil {
			return false
		}

		p.skipSniffed = true
		p.listType = byteView(view).fourcc(0)

		if p.listType == waveListType {
			p.sink.warnf(CodeRecoverableChunkSkip, p.offset, "LIST chunk with nested wave form skipped")
		}
	}

	if p.skipWantPayload {
		if p.ring.Available() < p.skipRemaining {
			return false
		}

		payload, _ := p.ring.Peek(int(p.skipSize), 0)
		p.dispatchAux(payload)
		p.consume(p.skipRemaining)
		p.skipRemaining = 0
		p.state = p.skipReturn

		return true
	}

	if !p.skipDispatched {
		p.skipDispatched = true
		p.dispatchAux(nil)
	}

	n := min(p.ring.Available(), p.skipRemaining)
	if n == 0 {
		return false
	}

	p.consume(n)

	p.skipRemaining -= n
	if p.skipRemaining == 0 {
		p.state = p.skipReturn
	}

	return true
}

// maxFmtParseBytes bounds how much of an oversized fmt chunk is buffered for
// parsing; a WAVEFORMATEXTENSIBLE needs 40 bytes, the rest is drained.
const maxFmtParseBytes = 40

func (p *chunkParser) stepFmt() bool {
	if p.fmtSize < 16 {
		p.fail(CodeInvalidFmt, "fmt chunk too small: %d bytes", p.fmtSize)

		return true
	}

	total := int(p.fmtSize) + int(p.fmtSize&1)

	want := min(total, maxFmtParseBytes)
	if p.ring.Available() < want {
		return false
	}

	view, err := p.ring.Peek(want, 0)
	if err != nil {
		return false
	}

	if !p.parseFmt(byteView(view)) {
		return true
	}

	p.consume(want)
	p.haveFormat = true

	if rest := total - want; rest > 0 {
		p.skipID = riff.FmtID
		p.skipSize = uint32(rest)
		p.skipRemaining = rest
		p.skipSilent = true
		p.skipDispatched = true
		p.skipWantPayload = false
		p.skipSniffed = true
		p.skipReturn = stateWantChunkHeader
		p.state = stateSkipChunk
	} else {
		p.state = stateWantChunkHeader
	}

	if p.onFormat != nil {
		p.onFormat(p.format)
	}

	return true
}

func (p *chunkParser) parseFmt(v byteView) bool {
	be := p.bigEndian

	info := FormatInfo{
		RawFormatTag:  v.u16(0, be),
		NumChannels:   v.u16(2, be),
		SampleRate:    v.u32(4, be),
		ByteRate:      v.u32(8, be),
		BitsPerSample: v.u16(14, be),
		BigEndian:     be,
	}
	declaredAlign := v.u16(12, be)
	info.FormatTag = info.RawFormatTag

	if info.RawFormatTag == wavFormatExtensible {
		ok := p.fmtSize >= 18
		if ok {
			cb := v.u16(16, be)
			ok = cb >= 22 && p.fmtSize >= 40
		}

		if !ok {
			p.fail(CodeUnsupportedFormat, "unsupported audio format: extensible fmt chunk without sub-format GUID")

			return false
		}

		info.ValidBitsPerSample = v.u16(18, be)
		info.ChannelMask = v.u32(20, be)
		copy(info.SubFormat[:], v[24:40])
		// The leading GUID bytes hold the effective format tag.
		info.FormatTag = byteView(info.SubFormat[:]).u16le(0)
	}

	if info.NumChannels == 0 {
		p.fail(CodeInvalidFmt, "zero channel count in fmt chunk")

		return false
	}

	if info.NumChannels > maxChannels {
		p.fail(CodeInvalidFmt, "channel count %d exceeds %d", info.NumChannels, maxChannels)

		return false
	}

	if info.NumChannels > highChannelCount {
		p.sink.warnf(CodeAdvisoryMismatch, p.offset, "channel count %d is unusually high", info.NumChannels)
	}

	if info.SampleRate == 0 {
		p.fail(CodeInvalidFmt, "zero sample rate in fmt chunk")

		return false
	}

	if info.SampleRate > maxSampleRate {
		p.sink.warnf(CodeAdvisoryMismatch, p.offset, "sample rate %d is unusually high", info.SampleRate)
	}

	switch info.BitsPerSample {
	case 8, 16, 24, 32, 64:
	default:
		p.fail(CodeUnsupportedFormat, "unsupported bit depth %d", info.BitsPerSample)

		return false
	}

	switch info.FormatTag {
	case wavFormatPCM:
		if info.BitsPerSample == 64 {
			p.fail(CodeUnsupportedFormat, "unsupported bit depth 64 for PCM audio")

			return false
		}
	case wavFormatIEEEFloat:
		if info.BitsPerSample != 32 && info.BitsPerSample != 64 {
			p.fail(CodeUnsupportedFormat, "unsupported bit depth %d for IEEE float audio", info.BitsPerSample)

			return false
		}
	case wavFormatALaw, wavFormatMuLaw:
		if info.BitsPerSample != 8 {
			p.fail(CodeUnsupportedFormat, "unsupported bit depth %d for companded audio", info.BitsPerSample)

			return false
		}
	case wavFormatMP3:
		p.fail(CodeUnsupportedFormat, "unsupported audio format tag %d (MPEG layer 3)", info.FormatTag)

		return false
	default:
		p.fail(CodeUnsupportedFormat, "unsupported audio format tag %d", info.FormatTag)

		return false
	}

	computed := uint16(bytesPerSample(int(info.BitsPerSample))) * info.NumChannels
	if declaredAlign != computed {
		p.sink.warnf(CodeAdvisoryMismatch, p.offset,
			"declared blockAlign %d disagrees with computed %d; using computed value", declaredAlign, computed)
	}

	info.BlockAlign = computed
	p.format = info

	return true
}

func (p *chunkParser) stepData() bool {
	blockAlign := int(p.format.BlockAlign)

	// A declared data size that is not a whole number of blocks ends in a
	// tail that can never complete; drop it once it has fully arrived so the
	// stream can continue past the data body.
	if rem := int(p.dataBytesRemaining); rem > 0 && rem < blockAlign && p.ring.Available() >= rem {
		p.sink.softErrorf(CodeTruncated, p.offset,
			"Discarded %d bytes of incomplete final block.", rem)
		p.consume(rem)
		p.dataBytesRemaining = 0
	}

	usable := min(p.ring.Available(), int(p.dataBytesRemaining))
	usable -= usable % blockAlign

	if usable > 0 {
		raw, err := p.ring.Peek(usable, 0)
		if err != nil {
			return false
		}

		if p.onData != nil {
			p.onData(raw)
		}

		p.consume(usable)
		p.dataBytesRemaining -= uint32(usable)
	}

	if p.dataBytesRemaining == 0 {
		p.padPending = p.dataPad
		p.state = stateDone

		return true
	}

	return usable > 0
}

// stepTrailing consumes bytes after the data body completed. Runs that look
// like chunk headers are skipped as trailing chunks; anything else is
// dropped.
func (p *chunkParser) stepTrailing() bool {
	if p.padPending {
		if p.ring.Available() < 1 {
			return false
		}

		p.consume(1)
		p.padPending = false

		return true
	}

	view, err := p.ring.Peek(8, 0)
	if err != nil {
		return false
	}

	v := byteView(view)

	id := v.fourcc(0)
	if !plausibleChunkID(id) {
		if !p.warnedTrailing {
			p.warnedTrailing = true
			p.sink.warnf(CodeAdvisoryMismatch, p.offset, "dropping unrecognized trailing bytes")
		}

		p.consume(p.ring.Available())

		return true
	}

	size := v.u32(4, p.bigEndian)
	p.chunkOrder++

	if id == riff.DataFormatID {
		p.sink.warnf(CodeRecoverableChunkSkip, p.offset, "multiple data chunks are not supported; skipping")
		p.enterSkip(id, size, true, stateDone)

		return true
	}

	if !knownAuxChunkID(id) {
		p.sink.warnf(CodeRecoverableChunkSkip, p.offset, "skipping unrecognized chunk %q", string(id[:]))
	}

	p.enterSkip(id, size, false, stateDone)

	return true
}

func plausibleChunkID(id [4]byte) bool {
	for _, b := range id {
		if b < 0x20 || b > 0x7E {
			return false
		}
	}

	return true
}

package wavstream

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrNotDecoding is returned when a frame-level call arrives before a
	// valid fmt chunk locked the format, or after the stream ended.
	ErrNotDecoding = errors.New("decoder is not in the decoding state")
	// ErrUnalignedInput is returned when frame-level input is not a whole
	// number of blocks, or pending partial-block bytes would misalign it.
	ErrUnalignedInput = errors.New("input is not block aligned")
	// ErrPlaneShape is returned when caller-provided planes do not match the
	// channel count or are too short for the input.
	ErrPlaneShape = errors.New("provided planes do not fit the decoded frames")
)

// DecodedAudio aggregates the output of one decode or flush call:
// de-interleaved float32 planes plus the diagnostics generated during the
// call. In the error state, Decode and Flush instead return all stored
// errors. Info aggregates diagnostics across calls.
type DecodedAudio struct {
	// ChannelData holds one plane per channel, in file channel order. Nil
	// until a format has been parsed.
	ChannelData [][]float32
	// SamplesDecoded counts complete frames converted by this call.
	SamplesDecoded uint64
	// BytesAccepted counts input bytes consumed by this call. A short count
	// signals backpressure; the caller resubmits the residual.
	BytesAccepted int
	Errors        []Diagnostic
	Warnings      []Diagnostic
}

// DecoderInfo is a read-only snapshot of decoder state and cumulative
// counters since the last Reset.
type DecoderInfo struct {
	State  DecoderState
	Format FormatInfo
	// DecodedBytes counts raw data-chunk bytes consumed, excluding headers.
	DecodedBytes   uint64
	SamplesDecoded uint64
	// PendingBytes counts buffered bytes not yet consumed, such as a partial
	// final block.
	PendingBytes int
	// FactSamples is the per-channel frame count declared by a fact chunk,
	// zero if absent. Informational only.
	FactSamples   uint32
	SkippedChunks []ChunkInfo
	Errors        []Diagnostic
	Warnings      []Diagnostic
}

// Decoder is an incremental, push-driven RIFF/WAVE decoder. Feed it byte
// slices as they arrive via Decode and it produces normalized float32
// planes. A Decoder is a sequential state machine; it is not safe for
// concurrent use.
type Decoder struct {
	ring   *RingBuffer
	parser chunkParser
	kernel *sampleKernel
	chunks *ChunkRegistry
	sink   diagSink

	state       DecoderState
	initialRing int
	maxRing     int
	flushed     bool
	err         error

	decodedBytes   uint64
	samplesDecoded uint64
	factSamples    uint32
	skipped        []ChunkInfo

	callPlanes [][]float32
	callFrames int
}

// NewDecoder creates a decoder with the default ring capacity.
func NewDecoder() *Decoder {
	return NewDecoderSize(DefaultRingSize)
}

// NewDecoderSize creates a decoder whose ring starts at ringCap bytes,
// raised to 64 if smaller. The ring still grows on demand up to the
// overflow ceiling.
func NewDecoderSize(ringCap int) *Decoder {
	if ringCap < 64 {
		ringCap = 64
	}

	d := &Decoder{
		ring:        NewRingBuffer(ringCap),
		chunks:      newDefaultChunkRegistry(),
		initialRing: ringCap,
		maxRing:     MaxRingSize,
	}

	d.parser.onFormat = d.lockFormat
	d.parser.onData = d.consumeData
	d.parser.onAuxChunk = d.observeChunk
	d.parser.reset(d.ring, &d.sink)

	return d
}

// Decode writes bytes into the ring, drives the parser to quiescence, and
// returns the planes produced by this call plus its diagnostics.
func (d *Decoder) Decode(p []byte) *DecodedAudio {
	mark := d.sink.mark()

	switch d.state {
	case StateError:
		out := d.finishCall(mark)
		out.Errors = append([]Diagnostic(nil), d.sink.errors...)

		return out
	case StateEnded:
		if len(p) > 0 {
			d.sink.warnf(CodeAdvisoryMismatch, d.parser.offset,
				"decoder ended; dropped %d bytes of input", len(p))
		}

		return d.finishCall(mark)
	}

	written := d.feed(p)

	out := d.finishCall(mark)
	out.BytesAccepted = written

	return out
}

// feed writes input into the ring and drives the parser, growing the ring
// when a single parsing unit cannot fit. It returns the bytes accepted.
func (d *Decoder) feed(p []byte) int {
	written := 0

	for {
		n := d.ring.Write(p[written:])
		written += n

		progressed := d.drive()
		if d.state == StateError {
			break
		}

		if written == len(p) {
			break
		}

		if n == 0 && !progressed {
			need := d.parser.needed()
			if !d.growRing(need) {
				break
			}
		}
	}

	return written
}

// DecodeFrames decodes pre-aligned sample body bytes on a stream whose
// header has already been parsed. It requires the decoding state and
// len(p) to be a whole number of blocks.
func (d *Decoder) DecodeFrames(p []byte) (*DecodedAudio, error) {
	if d.state != StateDecoding || d.kernel == nil {
		return nil, ErrNotDecoding
	}

	if len(p)%d.kernel.blockAlign != 0 {
		return nil, ErrUnalignedInput
	}

	if d.parser.state == stateInData && d.ring.Available()%d.kernel.blockAlign != 0 {
		return nil, ErrUnalignedInput
	}

	mark := d.sink.mark()
	written := 0

	if direct := d.directFrameBytes(p); direct > 0 {
		d.consumeData(p[:direct])
		d.parser.offset += uint64(direct)
		d.parser.dataBytesRemaining -= uint32(direct)
		d.finishDataIfDone()

		written += direct
		p = p[direct:]
	}

	if len(p) > 0 {
		written += d.feed(p)
	}

	out := d.finishCall(mark)
	out.BytesAccepted = written

	return out, nil
}

// DecodeFramesInto is DecodeFrames writing into caller-provided planes, one
// per channel, to keep the hot path allocation-free. It returns the number
// of frames written into planes; input beyond the data body is routed
// through the regular chunk parser.
func (d *Decoder) DecodeFramesInto(planes [][]float32, p []byte) (int, error) {
	if d.state != StateDecoding || d.kernel == nil {
		return 0, ErrNotDecoding
	}

	if len(p)%d.kernel.blockAlign != 0 {
		return 0, ErrUnalignedInput
	}

	// The direct path requires the parser to sit inside the data body with
	// nothing buffered; anything else would interleave with ring content.
	if d.parser.state != stateInData || d.ring.Available() != 0 {
		return 0, ErrUnalignedInput
	}

	direct := d.directFrameBytes(p)
	if direct < len(p) && d.parser.dataBytesRemaining > uint32(direct) {
		return 0, ErrUnalignedInput
	}

	frames := direct / d.kernel.blockAlign
	if len(planes) != d.kernel.channels {
		return 0, ErrPlaneShape
	}

	for _, plane := range planes {
		if len(plane) < frames {
			return 0, ErrPlaneShape
		}
	}

	d.kernel.run(p[:direct], planes, 0, frames)

	d.decodedBytes += uint64(direct)
	d.samplesDecoded += uint64(frames)
	d.parser.offset += uint64(direct)
	d.parser.dataBytesRemaining -= uint32(direct)
	d.finishDataIfDone()

	if direct < len(p) {
		d.feed(p[direct:])
	}

	return frames, nil
}

// DecodeFrame converts exactly one block into one frame, without consuming
// stream state: counters and the ring are untouched. It returns nil unless
// the decoder is in the decoding state and len(p) equals the block size.
func (d *Decoder) DecodeFrame(p []byte) []float32 {
	if d.state != StateDecoding || d.kernel == nil || len(p) != d.kernel.blockAlign {
		return nil
	}

	planes := make([][]float32, d.kernel.channels)
	for c := range planes {
		planes[c] = make([]float32, 1)
	}

	d.kernel.run(p, planes, 0, 1)

	frame := make([]float32, d.kernel.channels)
	for c := range frame {
		frame[c] = planes[c][0]
	}

	return frame
}

// Flush marks end-of-stream. Partial buffered content produces truncation
// diagnostics; any incomplete final block is discarded. Flush transitions
// to the ended state and is idempotent. In the error state it leaves the
// state unchanged and returns the stored errors.
func (d *Decoder) Flush() *DecodedAudio {
	mark := d.sink.mark()

	switch d.state {
	case StateError:
		out := d.finishCall(mark)
		out.Errors = append([]Diagnostic(nil), d.sink.errors...)

		return out
	case StateEnded:
		// The first flush after a normally-completed stream still checks the
		// declared RIFF size; repeated flushes stay silent.
		if !d.flushed {
			d.flushed = true

			if d.parser.state == stateDone {
				d.checkRIFFSize()
			}
		}

		return d.finishCall(mark)
	}

	p := &d.parser
	pending := d.ring.Available()

	switch p.state {
	case stateWantRIFFHeader:
		if pending > 0 {
			d.sink.softErrorf(CodeInvalidContainer, p.offset, "Invalid WAV file: incomplete header")
		}
	case stateWantChunkHeader:
		if pending > 0 {
			d.sink.warnf(CodeTruncated, p.offset, "incomplete chunk header at end of stream")
		}
	case stateInFmt:
		d.sink.warnf(CodeTruncated, p.offset, "truncated fmt chunk")
	case stateSkipChunk:
		d.sink.warnf(CodeTruncated, p.offset,
			"stream truncated inside skipped chunk %q", string(p.skipID[:]))
	case stateInData:
		d.sink.warnf(CodeTruncated, p.offset,
			"truncated data chunk: %d of %d declared bytes missing",
			uint64(p.dataBytesRemaining)-uint64(pending), p.declaredDataSize)

		if pending > 0 {
			d.sink.softErrorf(CodeTruncated, p.offset,
				"Discarded %d bytes of incomplete final block.", pending)
		}
	case stateDone:
		if pending > 0 {
			d.sink.warnf(CodeAdvisoryMismatch, p.offset, "dropping unrecognized trailing bytes")
		}
	}

	if p.state != stateWantRIFFHeader {
		d.checkRIFFSize()
	}

	d.ring.Clear()
	d.state = StateEnded
	d.flushed = true

	return d.finishCall(mark)
}

func (d *Decoder) checkRIFFSize() {
	p := &d.parser

	streamLen := p.offset
	if d.ring != nil {
		streamLen += uint64(d.ring.Available())
	}

	if declared := uint64(p.riffSize) + 8; declared != streamLen {
		d.sink.warnf(CodeAdvisoryMismatch, p.offset,
			"RIFF size %d disagrees with stream length %d", p.riffSize, streamLen)
	}
}

// Reset returns the decoder to its initial state, clearing the ring,
// format, counters, and diagnostics.
func (d *Decoder) Reset() {
	if d.ring == nil {
		d.ring = NewRingBuffer(d.initialRing)
	} else {
		d.ring.Clear()
	}

	d.sink.reset()
	d.parser.reset(d.ring, &d.sink)

	d.kernel = nil
	d.state = StateUninit
	d.flushed = false
	d.err = nil
	d.decodedBytes = 0
	d.samplesDecoded = 0
	d.factSamples = 0
	d.skipped = nil
	d.callPlanes = nil
	d.callFrames = 0
}

// Free releases internal buffers and transitions to the ended state. Free
// is idempotent; Reset brings a freed decoder back into service.
func (d *Decoder) Free() {
	d.flushed = true
	d.ring = nil
	d.kernel = nil
	d.callPlanes = nil
	d.parser.ring = nil
	d.parser.format = FormatInfo{}
	d.parser.haveFormat = false
	d.state = StateEnded
}

// Info returns a read-only snapshot of the decoder state, format, counters,
// and the diagnostics aggregated since the last Reset.
func (d *Decoder) Info() DecoderInfo {
	pending := 0
	if d.ring != nil {
		pending = d.ring.Available()
	}

	return DecoderInfo{
		State:          d.state,
		Format:         d.parser.format,
		DecodedBytes:   d.decodedBytes,
		SamplesDecoded: d.samplesDecoded,
		PendingBytes:   pending,
		FactSamples:    d.factSamples,
		SkippedChunks:  append([]ChunkInfo(nil), d.skipped...),
		Errors:         append([]Diagnostic(nil), d.sink.errors...),
		Warnings:       append([]Diagnostic(nil), d.sink.warnings...),
	}
}

// Err returns the first fatal error encountered, or nil.
func (d *Decoder) Err() error {
	return d.err
}

// Chunks returns the registry dispatching auxiliary chunk observers.
func (d *Decoder) Chunks() *ChunkRegistry {
	return d.chunks
}

func (d *Decoder) drive() bool {
	progressed := d.parser.advance()

	if d.sink.fatal {
		d.failFromSink()

		return progressed
	}

	if d.parser.state == stateDone && d.state == StateDecoding {
		d.state = StateEnded
	}

	return progressed
}

func (d *Decoder) failFromSink() {
	d.state = StateError

	if d.err == nil && len(d.sink.errors) > 0 {
		first := d.sink.errors[0]
		d.err = fmt.Errorf("decode failed: %s", first.Message)
	}
}

func (d *Decoder) growRing(need int) bool {
	if need > d.maxRing {
		d.sink.errorf(CodeRingOverflow, d.parser.offset,
			"ring overflow: %d bytes needed, ceiling is %d", need, d.maxRing)
		d.failFromSink()

		return false
	}

	newCap := max(d.ring.Capacity()*2, need)
	newCap = min(newCap, d.maxRing)

	if newCap <= d.ring.Capacity() {
		d.sink.errorf(CodeRingOverflow, d.parser.offset,
			"ring overflow: %d bytes buffered without progress", d.ring.Capacity())
		d.failFromSink()

		return false
	}

	d.ring.grow(newCap)

	return true
}

func (d *Decoder) lockFormat(info FormatInfo) {
	kernel, err := newSampleKernel(info)
	if err != nil {
		d.sink.errorf(CodeUnsupportedFormat, d.parser.offset, "unsupported audio format: %v", err)

		return
	}

	d.kernel = kernel
	d.state = StateDecoding
}

func (d *Decoder) consumeData(raw []byte) {
	k := d.kernel

	frames := len(raw) / k.blockAlign
	if frames == 0 {
		return
	}

	if d.callPlanes == nil {
		d.callPlanes = make([][]float32, k.channels)
	}

	need := d.callFrames + frames
	for c := range d.callPlanes {
		plane := d.callPlanes[c]
		if cap(plane) < need {
			grown := make([]float32, need, max(need*2, 1024))
			copy(grown, plane)
			d.callPlanes[c] = grown
		} else {
			d.callPlanes[c] = plane[:need]
		}
	}

	k.run(raw, d.callPlanes, d.callFrames, frames)

	d.callFrames = need
	d.decodedBytes += uint64(len(raw))
	d.samplesDecoded += uint64(frames)
}

func (d *Decoder) observeChunk(id, listType [4]byte, size uint32, payload []byte) {
	d.skipped = append(d.skipped, ChunkInfo{
		ID:         id,
		Size:       size,
		Order:      d.parser.chunkOrder,
		BeforeData: !d.parser.seenData,
	})

	if d.chunks == nil {
		return
	}

	err := d.chunks.Dispatch(d, id, listType, size, payload)
	if err != nil {
		d.sink.warnf(CodeRecoverableChunkSkip, d.parser.offset,
			"chunk observer failed for %q: %v", string(id[:]), err)
	}
}

// directFrameBytes returns how many leading bytes of p can bypass the ring:
// only when the parser sits inside the data body with nothing buffered.
func (d *Decoder) directFrameBytes(p []byte) int {
	if d.parser.state != stateInData || d.ring.Available() != 0 {
		return 0
	}

	direct := min(len(p), int(d.parser.dataBytesRemaining))

	return direct - direct%d.kernel.blockAlign
}

func (d *Decoder) finishDataIfDone() {
	p := &d.parser
	if p.state == stateInData && p.dataBytesRemaining == 0 {
		p.padPending = p.dataPad
		p.state = stateDone

		if d.state == StateDecoding {
			d.state = StateEnded
		}
	}
}

func (d *Decoder) finishCall(mark callMark) *DecodedAudio {
	out := &DecodedAudio{}
	out.Errors, out.Warnings = d.sink.since(mark)

	if d.callPlanes != nil {
		out.ChannelData = d.callPlanes
		out.SamplesDecoded = uint64(d.callFrames)
		d.callPlanes = nil
		d.callFrames = 0
	} else if d.kernel != nil {
		out.ChannelData = make([][]float32, d.kernel.channels)
		for c := range out.ChannelData {
			out.ChannelData[c] = []float32{}
		}
	}

	return out
}

// factSampleCount parses the per-channel frame count from a fact payload.
func factSampleCount(payload []byte, bigEndian bool) (uint32, bool) {
	if len(payload) < 4 {
		return 0, false
	}

	if bigEndian {
		return binary.BigEndian.Uint32(payload), true
	}

	return binary.LittleEndian.Uint32(payload), true
}

// Package wavstream provides an incremental, push-driven decoder for
// RIFF/WAVE audio streams.
//
// Callers feed arbitrary byte slices as they arrive and receive
// de-interleaved float32 sample planes, one per channel, normalized to
// [-1.0, +1.0]. The decoder never seeks; it parses forward over the byte
// stream, skipping non-essential chunks where possible and surfacing
// structured diagnostics otherwise.
//
// The package supports PCM integer (8/16/24/32-bit), IEEE float
// (32/64-bit), A-law and mu-law sample formats, in both RIFF
// (little-endian) and RIFX (big-endian) containers, including
// WAVE_FORMAT_EXTENSIBLE sub-format resolution.
//
// Typical streaming usage:
//
//	dec := wavstream.NewDecoder()
//	for chunk := range source {
//		out := dec.Decode(chunk)
//		consume(out.ChannelData)
//	}
//	out := dec.Flush()
//
// A Decoder instance is a sequential state machine and is not safe for
// concurrent use; distinct instances are independent.
package wavstream

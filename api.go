package wavstream

import "github.com/go-audio/audio"

// Format returns the audio format of the decoded content as a go-audio
// format, or nil before a fmt chunk has been parsed.
func (d *Decoder) Format() *audio.Format {
	if d == nil || d.parser.format.Empty() {
		return nil
	}

	return &audio.Format{
		NumChannels: int(d.parser.format.NumChannels),
		SampleRate:  int(d.parser.format.SampleRate),
	}
}

// FormatInfo returns a copy of the parsed format, empty before the fmt
// chunk has been parsed or after Free.
func (d *Decoder) FormatInfo() FormatInfo {
	if d == nil {
		return FormatInfo{}
	}

	return d.parser.format
}

// State returns the current decoder lifecycle state.
func (d *Decoder) State() DecoderState {
	if d == nil {
		return StateUninit
	}

	return d.state
}

// Float32Buffer re-interleaves the decoded planes into a go-audio buffer
// for use with the wider go-audio ecosystem. sourceBitDepth records the
// original sample width.
func (a *DecodedAudio) Float32Buffer(format *audio.Format, sourceBitDepth int) *audio.Float32Buffer {
	if a == nil || len(a.ChannelData) == 0 {
		return nil
	}

	channels := len(a.ChannelData)
	frames := len(a.ChannelData[0])
	data := make([]float32, 0, channels*frames)

	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			data = append(data, a.ChannelData[c][f])
		}
	}

	return &audio.Float32Buffer{
		Data:           data,
		Format:         format,
		SourceBitDepth: sourceBitDepth,
	}
}

package wavstream

import (
	"errors"
	"fmt"
)

var errUnsupportedKernelFormat = errors.New("no sample kernel for format")

// kernelFunc converts frames*blockAlign raw bytes starting at src[0] into
// de-interleaved normalized samples, writing plane[c][at:at+frames] for
// every channel c.
type kernelFunc func(src []byte, planes [][]float32, at, frames int)

// sampleKernel is the per-format inner decode loop, selected by (format tag,
// bit depth) when the format locks. Only the 16-bit PCM loop is also
// specialized by endianness; the 24/32-bit PCM and float loops pass the
// endianness flag to every sample read. This is the hottest path in the
// package.
type sampleKernel struct {
	channels   int
	blockAlign int
	run        kernelFunc
}

func newSampleKernel(info FormatInfo) (*sampleKernel, error) {
	k := &sampleKernel{
		channels:   int(info.NumChannels),
		blockAlign: int(info.BlockAlign),
	}

	switch {
	case info.FormatTag == wavFormatALaw && info.BitsPerSample == 8:
		k.run = compandedKernel(k.channels, &aLawTable)
	case info.FormatTag == wavFormatMuLaw && info.BitsPerSample == 8:
		k.run = compandedKernel(k.channels, &muLawTable)
	case info.FormatTag == wavFormatPCM:
		switch info.BitsPerSample {
		case 8:
			k.run = pcm8Kernel(k.channels)
		case 16:
			k.run = pcm16Kernel(k.channels, info.BigEndian)
		case 24:
			k.run = pcm24Kernel(k.channels, info.BigEndian)
		case 32:
			k.run = pcm32Kernel(k.channels, info.BigEndian)
		}
	case info.FormatTag == wavFormatIEEEFloat:
		switch info.BitsPerSample {
		case 32:
			k.run = float32Kernel(k.channels, info.BigEndian)
		case 64:
			k.run = float64Kernel(k.channels, info.BigEndian)
		}
	}

	if k.run == nil {
		return nil, fmt.Errorf("%w: tag %d at %d bits",
			errUnsupportedKernelFormat, info.FormatTag, info.BitsPerSample)
	}

	return k, nil
}

// decodeBlocks runs the kernel over len(src)/blockAlign complete frames and
// returns the frame count. src must be block-aligned.
func (k *sampleKernel) decodeBlocks(src []byte, planes [][]float32, at int) int {
	frames := len(src) / k.blockAlign
	if frames > 0 {
		k.run(src, planes, at, frames)
	}

	return frames
}

func compandedKernel(channels int, table *[256]float32) kernelFunc {
	return func(src []byte, planes [][]float32, at, frames int) {
		i := 0
		for f := 0; f < frames; f++ {
			for c := 0; c < channels; c++ {
				planes[c][at+f] = table[src[i]]
				i++
			}
		}
	}
}

func pcm8Kernel(channels int) kernelFunc {
	return func(src []byte, planes [][]float32, at, frames int) {
		i := 0
		for f := 0; f < frames; f++ {
			for c := 0; c < channels; c++ {
				planes[c][at+f] = (float32(src[i]) - 128) / scalePCMUint8
				i++
			}
		}
	}
}

func pcm16Kernel(channels int, bigEndian bool) kernelFunc {
	if bigEndian {
		return func(src []byte, planes [][]float32, at, frames int) {
			v := byteView(src)
			i := 0
			for f := 0; f < frames; f++ {
				for c := 0; c < channels; c++ {
					planes[c][at+f] = float32(v.i16(i, true)) / scalePCMInt16
					i += 2
				}
			}
		}
	}

	return func(src []byte, planes [][]float32, at, frames int) {
		v := byteView(src)
		i := 0
		for f := 0; f < frames; f++ {
			for c := 0; c < channels; c++ {
				planes[c][at+f] = float32(v.i16(i, false)) / scalePCMInt16
				i += 2
			}
		}
	}
}

func pcm24Kernel(channels int, bigEndian bool) kernelFunc {
	return func(src []byte, planes [][]float32, at, frames int) {
		v := byteView(src)
		i := 0
		for f := 0; f < frames; f++ {
			for c := 0; c < channels; c++ {
				planes[c][at+f] = float32(v.i24(i, bigEndian)) / scalePCMInt24
				i += 3
			}
		}
	}
}

func pcm32Kernel(channels int, bigEndian bool) kernelFunc {
	return func(src []byte, planes [][]float32, at, frames int) {
		v := byteView(src)
		i := 0
		for f := 0; f < frames; f++ {
			for c := 0; c < channels; c++ {
				planes[c][at+f] = float32(float64(v.i32(i, bigEndian)) / scalePCMInt32)
				i += 4
			}
		}
	}
}

func float32Kernel(channels int, bigEndian bool) kernelFunc {
	return func(src []byte, planes [][]float32, at, frames int) {
		v := byteView(src)
		i := 0
		for f := 0; f < frames; f++ {
			for c := 0; c < channels; c++ {
				planes[c][at+f] = clampFloat32(v.f32(i, bigEndian), -1, 1)
				i += 4
			}
		}
	}
}

func float64Kernel(channels int, bigEndian bool) kernelFunc {
	return func(src []byte, planes [][]float32, at, frames int) {
		v := byteView(src)
		i := 0
		for f := 0; f < frames; f++ {
			for c := 0; c < channels; c++ {
				planes[c][at+f] = clampFloat32(float32(v.f64(i, bigEndian)), -1, 1)
				i += 8
			}
		}
	}
}

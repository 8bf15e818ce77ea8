package wavstream

import (
	"testing"
)

func kernelFor(t *testing.T, formatTag, channels, bits uint16, bigEndian bool) *sampleKernel {
	t.Helper()

	info := FormatInfo{
		FormatTag:     formatTag,
		RawFormatTag:  formatTag,
		NumChannels:   channels,
		SampleRate:    44100,
		BitsPerSample: bits,
		BlockAlign:    uint16(bytesPerSample(int(bits))) * channels,
		BigEndian:     bigEndian,
	}

	kernel, err := newSampleKernel(info)
	if err != nil {
		t.Fatal(err)
	}

	return kernel
}

func runKernel(t *testing.T, k *sampleKernel, src []byte) [][]float32 {
	t.Helper()

	if len(src)%k.blockAlign != 0 {
		t.Fatalf("test input not block aligned: %d %% %d", len(src), k.blockAlign)
	}

	frames := len(src) / k.blockAlign

	planes := make([][]float32, k.channels)
	for c := range planes {
		planes[c] = make([]float32, frames)
	}

	if got := k.decodeBlocks(src, planes, 0); got != frames {
		t.Fatalf("decodeBlocks returned %d frames, want %d", got, frames)
	}

	return planes
}

func TestKernelPCM8(t *testing.T) {
	k := kernelFor(t, wavFormatPCM, 1, 8, false)
	planes := runKernel(t, k, []byte{0, 128, 255, 192})

	want := []float32{-1, 0, 127.0 / 128.0, 0.5}
	assertFloat32SlicesClose(t, planes[0], want, 0)
}

func TestKernelPCM16(t *testing.T) {
	samples := []int16{-32768, 0, 16384, 32767}
	want := []float32{-1, 0, 0.5, 32767.0 / 32768.0}

	for _, bigEndian := range []bool{false, true} {
		k := kernelFor(t, wavFormatPCM, 1, 16, bigEndian)
		planes := runKernel(t, k, pcm16Bytes(bigEndian, samples...))
		assertFloat32SlicesClose(t, planes[0], want, 0)
	}
}

func TestKernelPCM24(t *testing.T) {
	samples := []int32{-8388608, 0, 4194304, 8388607}
	want := []float32{-1, 0, 0.5, 8388607.0 / 8388608.0}

	for _, bigEndian := range []bool{false, true} {
		k := kernelFor(t, wavFormatPCM, 1, 24, bigEndian)
		planes := runKernel(t, k, pcm24Bytes(bigEndian, samples...))
		assertFloat32SlicesClose(t, planes[0], want, 0)
	}
}

func TestKernelPCM32(t *testing.T) {
	samples := []int32{-2147483648, 0, 1073741824}
	want := []float32{-1, 0, 0.5}

	for _, bigEndian := range []bool{false, true} {
		k := kernelFor(t, wavFormatPCM, 1, 32, bigEndian)
		planes := runKernel(t, k, pcm32Bytes(bigEndian, samples...))
		assertFloat32SlicesClose(t, planes[0], want, 0)
	}
}

func TestKernelFloat32ClampsOutOfRange(t *testing.T) {
	for _, bigEndian := range []bool{false, true} {
		k := kernelFor(t, wavFormatIEEEFloat, 1, 32, bigEndian)
		planes := runKernel(t, k, float32Bytes(bigEndian, -0.5, 0.25, 1.5, -2.0))

		want := []float32{-0.5, 0.25, 1, -1}
		assertFloat32SlicesClose(t, planes[0], want, 0)
	}
}

func TestKernelFloat64(t *testing.T) {
	for _, bigEndian := range []bool{false, true} {
		k := kernelFor(t, wavFormatIEEEFloat, 1, 64, bigEndian)
		planes := runKernel(t, k, float64Bytes(bigEndian, 0.5, -0.125, 3.0))

		want := []float32{0.5, -0.125, 1}
		assertFloat32SlicesClose(t, planes[0], want, 0)
	}
}

func TestKernelCompanded(t *testing.T) {
	muLaw := kernelFor(t, wavFormatMuLaw, 1, 8, false)
	planes := runKernel(t, muLaw, []byte{0xFF, 0x80, 0x00})
	assertFloat32SlicesClose(t, planes[0],
		[]float32{0, 32124.0 / 32768.0, -32124.0 / 32768.0}, 0)

	aLaw := kernelFor(t, wavFormatALaw, 1, 8, false)
	planes = runKernel(t, aLaw, []byte{0xD5, 0x55, 0xAA})
	assertFloat32SlicesClose(t, planes[0],
		[]float32{8.0 / 32768.0, -8.0 / 32768.0, 32256.0 / 32768.0}, 0)
}

func TestKernelDeinterleavesChannels(t *testing.T) {
	k := kernelFor(t, wavFormatPCM, 2, 16, false)

	// Frames: (100, -100), (200, -200), (300, -300).
	src := pcm16Bytes(false, 100, -100, 200, -200, 300, -300)
	planes := runKernel(t, k, src)

	assertFloat32SlicesClose(t, planes[0],
		[]float32{100.0 / 32768.0, 200.0 / 32768.0, 300.0 / 32768.0}, 0)
	assertFloat32SlicesClose(t, planes[1],
		[]float32{-100.0 / 32768.0, -200.0 / 32768.0, -300.0 / 32768.0}, 0)
}

func TestKernelRejectsUnknownCombination(t *testing.T) {
	info := FormatInfo{
		FormatTag:     wavFormatPCM,
		NumChannels:   1,
		BitsPerSample: 64,
		BlockAlign:    8,
	}

	if _, err := newSampleKernel(info); err == nil {
		t.Fatal("expected error for 64-bit PCM")
	}
}

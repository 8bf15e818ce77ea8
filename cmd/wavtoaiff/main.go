// This tool converts a wav file into an aiff file and stores it in the
// same folder as the source.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"

	"github.com/dekzer-oss/wavstream"
)

const missingPathMessage = "You must set the -path flag"

func main() {
	err := run(os.Args[1:], user.Current, os.Stdout)
	if err == nil {
		return
	}

	if errors.Is(err, errMissingPath) {
		fmt.Println(missingPathMessage)
		os.Exit(1)
	}

	if errors.Is(err, errResolveHomeDir) {
		log.Println("Failed to get the user home directory")
		os.Exit(1)
	}

	log.Fatal(err)
}

var (
	errMissingPath    = errors.New("missing -path flag")
	errResolveHomeDir = errors.New("failed to resolve current user")
)

func run(args []string, currentUser func() (*user.User, error), out io.Writer) error {
	fs := flag.NewFlagSet("wavtoaiff", flag.ContinueOnError)

	pathFlag := fs.String("path", "", "The path to the wav file to convert to aiff")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *pathFlag == "" {
		return errMissingPath
	}

	usr, err := currentUser()
	if err != nil {
		return errResolveHomeDir
	}

	sourcePath := *pathFlag
	if strings.HasPrefix(sourcePath, "~/") {
		sourcePath = strings.Replace(sourcePath, "~", usr.HomeDir, 1)
	}

	file, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("invalid path %s: %w", sourcePath, err)
	}
	defer file.Close()

	outPath := sourcePath[:len(sourcePath)-len(filepath.Ext(sourcePath))] + ".aif"

	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer outFile.Close()

	dec := wavstream.NewDecoder()

	var encoder *aiff.Encoder

	buf := make([]byte, 64*1024)

	for {
		n, rerr := file.Read(buf)
		if n > 0 {
			decoded := dec.Decode(buf[:n])
			if len(decoded.Errors) > 0 {
				return fmt.Errorf("failed to decode: %s", decoded.Errors[0].Message)
			}

			if encoder == nil && dec.Format() != nil {
				info := dec.FormatInfo()
				encoder = aiff.NewEncoder(outFile,
					int(info.SampleRate), int(info.BitsPerSample), int(info.NumChannels))
			}

			if err := writeFrames(encoder, dec, decoded); err != nil {
				return err
			}
		}

		if errors.Is(rerr, io.EOF) {
			break
		}

		if rerr != nil {
			return fmt.Errorf("failed to read file: %w", rerr)
		}
	}

	dec.Flush()

	if encoder == nil {
		return errors.New("no audio format found in input")
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to close AIFF encoder: %w", err)
	}

	fmt.Fprintf(out, "Wav file converted to %s\n", outPath)

	return nil
}

func writeFrames(encoder *aiff.Encoder, dec *wavstream.Decoder, decoded *wavstream.DecodedAudio) error {
	if encoder == nil || decoded.SamplesDecoded == 0 {
		return nil
	}

	info := dec.FormatInfo()
	buf := decoded.Float32Buffer(dec.Format(), int(info.BitsPerSample))

	intBuf := float32ToIntBuffer(buf.Data, buf.Format, int(info.BitsPerSample))
	if err := encoder.Write(intBuf); err != nil {
		return fmt.Errorf("failed to write AIFF data: %w", err)
	}

	return nil
}

func float32ToIntBuffer(data []float32, format *audio.Format, bitDepth int) *audio.IntBuffer {
	intBuf := &audio.IntBuffer{
		Format:         format,
		SourceBitDepth: bitDepth,
		Data:           make([]int, len(data)),
	}
	for i, v := range data {
		intBuf.Data[i] = float32ToPCMInt(v, bitDepth)
	}

	return intBuf
}

func float32ToPCMInt(value float32, bitDepth int) int {
	value = clampFloat32(value, -1, 1)

	switch bitDepth {
	case 8:
		return int(float32ToPCMUint8(value))
	case 16:
		return int(float32ToPCMInt32(value, 16))
	case 24:
		return int(float32ToPCMInt32(value, 24))
	case 32, 64:
		return int(float32ToPCMInt32(value, 32))
	default:
		return 0
	}
}

func float32ToPCMUint8(value float32) uint8 {
	scaled := int(math.Round(float64((value + 1.0) * 127.5)))
	if scaled < 0 {
		return 0
	}

	if scaled > 255 {
		return 255
	}

	return uint8(scaled)
}

func float32ToPCMInt32(value float32, bitDepth int) int32 {
	scale := float64(int64(1) << (bitDepth - 1))
	maxValue := int64(scale) - 1

	sample := int64(math.Round(float64(value) * scale))
	if sample > maxValue {
		sample = maxValue
	}

	if sample < -int64(scale) {
		sample = -int64(scale)
	}

	return int32(sample)
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

// This tool prints the parsed format and decode diagnostics of a wav file
// by streaming it through the push decoder.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dekzer-oss/wavstream"
)

const missingPathMessage = "You must pass the path of the file to inspect"

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err == nil {
		return
	}

	if errors.Is(err, errMissingPath) {
		fmt.Println(missingPathMessage)
		os.Exit(1)
	}

	log.Fatal(err)
}

var errMissingPath = errors.New("missing path argument")

func run(args []string, out io.Writer) (err error) {
	if len(args) < 1 {
		return errMissingPath
	}

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}

	defer func() {
		cerr := file.Close()
		if cerr != nil && err == nil {
			err = cerr
		}
	}()

	dec := wavstream.NewDecoder()

	buf := make([]byte, 64*1024)

	for {
		n, rerr := file.Read(buf)
		if n > 0 {
			dec.Decode(buf[:n])
		}

		if errors.Is(rerr, io.EOF) {
			break
		}

		if rerr != nil {
			return fmt.Errorf("failed to read file: %w", rerr)
		}
	}

	dec.Flush()

	if err := dec.Err(); err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}

	info := dec.Info()

	_, _ = fmt.Fprintf(out, "Format tag: %d\n", info.Format.FormatTag)
	_, _ = fmt.Fprintf(out, "Channels: %d\n", info.Format.NumChannels)
	_, _ = fmt.Fprintf(out, "Sample rate: %d\n", info.Format.SampleRate)
	_, _ = fmt.Fprintf(out, "Bits per sample: %d\n", info.Format.BitsPerSample)
	_, _ = fmt.Fprintf(out, "Block align: %d\n", info.Format.BlockAlign)
	_, _ = fmt.Fprintf(out, "Big endian: %t\n", info.Format.BigEndian)
	_, _ = fmt.Fprintf(out, "Frames decoded: %d\n", info.SamplesDecoded)
	_, _ = fmt.Fprintf(out, "Data bytes decoded: %d\n", info.DecodedBytes)

	if info.FactSamples > 0 {
		_, _ = fmt.Fprintf(out, "Declared fact frames: %d\n", info.FactSamples)
	}

	for _, chunk := range info.SkippedChunks {
		_, _ = fmt.Fprintf(out, "Skipped chunk: %s (%d bytes)\n", chunk, chunk.Size)
	}

	for _, warning := range info.Warnings {
		_, _ = fmt.Fprintf(out, "Warning: %s\n", warning)
	}

	return nil
}

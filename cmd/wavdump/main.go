// Package main provides the wavdump CLI for inspecting wav streams and
// dumping their decoded samples as raw float32 data.
package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dekzer-oss/wavstream"
)

func main() {
	cmd := &cli.Command{
		Name:  "wavdump",
		Usage: "Streaming wav decoding cli",
		Commands: []*cli.Command{
			infoCommand(),
			pcmCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)

		os.Exit(1)
	}
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Print the parsed format and diagnostics of a wav file",
		ArgsUsage: "<file>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return errors.New("missing input file argument")
			}

			dec := wavstream.NewDecoder()
			if err := streamFile(path, dec, nil); err != nil {
				return err
			}

			info := dec.Info()

			fmt.Printf("state: %s\n", info.State)
			fmt.Printf("format tag: %d\n", info.Format.FormatTag)
			fmt.Printf("channels: %d\n", info.Format.NumChannels)
			fmt.Printf("sample rate: %d\n", info.Format.SampleRate)
			fmt.Printf("bits per sample: %d\n", info.Format.BitsPerSample)
			fmt.Printf("frames: %d\n", info.SamplesDecoded)

			for _, warning := range info.Warnings {
				fmt.Printf("warning: %s\n", warning)
			}

			for _, decodeErr := range info.Errors {
				fmt.Printf("error: %s\n", decodeErr)
			}

			return nil
		},
	}
}

func pcmCommand() *cli.Command {
	return &cli.Command{
		Name:      "pcm",
		Usage:     "Decode a wav file to raw interleaved little-endian float32 samples",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "-",
				Usage:   "output path, - for stdout",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return errors.New("missing input file argument")
			}

			out := io.Writer(os.Stdout)

			if target := cmd.String("output"); target != "-" {
				file, err := os.Create(target)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", target, err)
				}
				defer file.Close()

				buffered := bufio.NewWriter(file)
				defer buffered.Flush()

				out = buffered
			}

			dec := wavstream.NewDecoder()

			return streamFile(path, dec, func(decoded *wavstream.DecodedAudio) error {
				return writeInterleaved(out, decoded.ChannelData)
			})
		},
	}
}

// streamFile pushes the file through the decoder in chunks, invoking sink
// for every call's decoded output.
func streamFile(path string, dec *wavstream.Decoder, sink func(*wavstream.DecodedAudio) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	buf := make([]byte, 64*1024)

	for {
		n, rerr := file.Read(buf)
		if n > 0 {
			decoded := dec.Decode(buf[:n])
			if len(decoded.Errors) > 0 {
				return fmt.Errorf("failed to decode: %s", decoded.Errors[0].Message)
			}

			if sink != nil {
				if err := sink(decoded); err != nil {
					return err
				}
			}
		}

		if errors.Is(rerr, io.EOF) {
			break
		}

		if rerr != nil {
			return fmt.Errorf("failed to read %s: %w", path, rerr)
		}
	}

	dec.Flush()

	return dec.Err()
}

func writeInterleaved(out io.Writer, planes [][]float32) error {
	if len(planes) == 0 || len(planes[0]) == 0 {
		return nil
	}

	frames := len(planes[0])

	var scratch [4]byte

	for f := 0; f < frames; f++ {
		for c := range planes {
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(planes[c][f]))

			if _, err := out.Write(scratch[:]); err != nil {
				return fmt.Errorf("failed to write samples: %w", err)
			}
		}
	}

	return nil
}

package main

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bytectlgo/gmmvad"
)

// segmentOut 片段的输出形式，时间单位为秒
type segmentOut struct {
	Start  float64 `yaml:"start"`
	End    float64 `yaml:"end"`
	Speech bool    `yaml:"speech"`
}

func newSegmentsCmd(opts *rootOptions) *cobra.Command {
	var (
		asYAML     bool
		speechOnly bool
	)

	cmd := &cobra.Command{
		Use:   "segments <file>",
		Short: "按片段输出语音/静音区间",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := opts.load(args[0])
			if err != nil {
				return err
			}

			svad, err := gmmvad.NewStreamVADWithOptions(
				gmmvad.WithStreamMode(gmmvad.Mode(opts.cfg.Mode)),
				gmmvad.WithSampleRate(in.sampleRate),
				gmmvad.WithFrameDuration(opts.cfg.FrameMs),
				gmmvad.WithLogger(opts.logger),
			)
			if err != nil {
				return err
			}
			if _, err := svad.Write(pcmBytes(in.samples)); err != nil {
				return err
			}

			segs := svad.Segments()
			if speechOnly {
				segs = svad.SpeechSegments()
			}

			out := make([]segmentOut, len(segs))
			for i, s := range segs {
				out[i] = segmentOut{Start: s.Start.Seconds(), End: s.End.Seconds(), Speech: s.IsSpeech}
			}

			if asYAML {
				return writeYAML(cmd.OutOrStdout(), out)
			}
			for _, s := range out {
				label := "silence"
				if s.Speech {
					label = "speech"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%8.2fs - %8.2fs  %s\n", s.Start, s.End, label)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "以YAML格式输出")
	cmd.Flags().BoolVar(&speechOnly, "speech-only", false, "只输出语音片段")
	return cmd
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func pcmBytes(samples []int16) []byte {
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(s))
	}
	return buf
}

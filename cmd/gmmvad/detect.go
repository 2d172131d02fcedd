package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bytectlgo/gmmvad"
)

// speechRun 连续语音帧区间，单位为样本
type speechRun struct {
	start, end int
}

type detectResult struct {
	decisions    []int
	speechFrames int
	runs         []speechRun
}

func newDetectCmd(opts *rootOptions) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "detect <file>",
		Short: "逐帧打印判决结果和语音段",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := opts.load(args[0])
			if err != nil {
				return err
			}

			res, err := detect(in, gmmvad.Mode(opts.cfg.Mode), opts.cfg.FrameMs)
			if err != nil {
				return err
			}
			printDetect(cmd.OutOrStdout(), args[0], in, opts, res, raw || opts.cfg.Raw)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "打印原始判决值（含拖尾值）而不是0/1")
	return cmd
}

// detect 按帧跑完整个输入，末尾不足一帧的样本丢弃
func detect(in *pcmInput, mode gmmvad.Mode, frameMs int) (*detectResult, error) {
	vad, err := gmmvad.New(mode)
	if err != nil {
		return nil, err
	}

	inst := vad.Instance()
	frameLen := gmmvad.FrameLength(in.sampleRate, frameMs)
	res := &detectResult{}

	inRun := false
	runStart := 0
	for off := 0; off+frameLen <= len(in.samples); off += frameLen {
		d, err := inst.Process(in.sampleRate, in.samples[off:off+frameLen])
		if err != nil {
			return nil, fmt.Errorf("frame at sample %d: %w", off, err)
		}
		res.decisions = append(res.decisions, d)

		if d > 0 {
			res.speechFrames++
			if !inRun {
				runStart = off
				inRun = true
			}
		} else if inRun {
			res.runs = append(res.runs, speechRun{start: runStart, end: off})
			inRun = false
		}
	}
	if inRun {
		res.runs = append(res.runs, speechRun{start: runStart, end: len(res.decisions) * frameLen})
	}
	return res, nil
}

func printDetect(w io.Writer, path string, in *pcmInput, opts *rootOptions, res *detectResult, raw bool) {
	fmt.Fprintf(w, "音频文件: %s\n", path)
	fmt.Fprintf(w, "采样率: %d Hz\n", in.sampleRate)
	fmt.Fprintf(w, "帧时长: %d ms\n", opts.cfg.FrameMs)
	fmt.Fprintf(w, "激进度模式: %s\n\n", gmmvad.Mode(opts.cfg.Mode))

	fmt.Fprintln(w, decisionString(res.decisions, raw))
	fmt.Fprintln(w)

	total := len(res.decisions)
	ratio := 0.0
	if total > 0 {
		ratio = float64(res.speechFrames) * 100 / float64(total)
	}
	fmt.Fprintf(w, "总帧数: %d\n", total)
	fmt.Fprintf(w, "语音帧数: %d (%.1f%%)\n", res.speechFrames, ratio)
	fmt.Fprintf(w, "检测到 %d 个语音段:\n", len(res.runs))

	rate := float64(in.sampleRate)
	for i, r := range res.runs {
		start := float64(r.start) / rate
		end := float64(r.end) / rate
		fmt.Fprintf(w, "  段 %d: %.2fs - %.2fs (时长: %.2fs)\n", i+1, start, end, end-start)
	}
}

// decisionString 二值模式每帧一个字符；原始模式值之间以空格分隔
func decisionString(decisions []int, raw bool) string {
	var sb strings.Builder
	for i, d := range decisions {
		if !raw {
			if d > 0 {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
			continue
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%d", d)
	}
	return sb.String()
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bytectlgo/gmmvad"
	"github.com/bytectlgo/gmmvad/internal/config"
)

type rootOptions struct {
	configPath string
	mode       string
	sampleRate int
	frameMs    int
	logLevel   string
	format     string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "gmmvad",
		Short:         "Fixed-point GMM voice activity detection",
		Long:          "gmmvad 对16位单声道PCM或WAV音频逐帧判决语音/非语音。\n支持8/16/32/48 kHz采样率和10/20/30 ms帧长。",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML配置文件路径")
	flags.StringVarP(&opts.mode, "mode", "m", "", "激进度: 0-3 或 quality/low-bitrate/aggressive/very-aggressive")
	flags.IntVarP(&opts.sampleRate, "rate", "r", 0, "原始PCM的采样率 (8000/16000/32000/48000)")
	flags.IntVarP(&opts.frameMs, "frame-ms", "f", 0, "帧长 (10/20/30 ms)")
	flags.StringVar(&opts.logLevel, "log-level", "", "日志级别 (debug/info/warn/error)")
	flags.StringVar(&opts.format, "format", "", "输入格式 (auto/raw/wav)")

	cmd.AddCommand(
		newDetectCmd(opts),
		newSegmentsCmd(opts),
		newModesCmd(),
	)
	return cmd
}

// resolve 合并配置文件、环境变量与命令行参数，命令行优先
func (o *rootOptions) resolve(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFrom(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		m, err := gmmvad.ParseMode(o.mode)
		if err != nil {
			return err
		}
		cfg.Mode = int(m)
	}
	if flags.Changed("rate") {
		cfg.SampleRate = o.sampleRate
	}
	if flags.Changed("frame-ms") {
		cfg.FrameMs = o.frameMs
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("format") {
		cfg.Format = o.format
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	o.cfg = cfg
	o.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(o.logger)
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// load 读取输入并校验采样率，WAV文件头中的采样率优先于配置
func (o *rootOptions) load(path string) (*pcmInput, error) {
	in, err := readInput(path, o.cfg.Format, o.cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	if gmmvad.FrameLength(in.sampleRate, o.cfg.FrameMs) == 0 {
		return nil, fmt.Errorf("%s: %d Hz / %d ms: %w", path, in.sampleRate, o.cfg.FrameMs, gmmvad.ErrInvalidSampleRate)
	}

	o.logger.Debug("input loaded",
		"path", path,
		"wav", in.fromWAV,
		"samples", len(in.samples),
		"sample_rate", in.sampleRate,
		"frame_ms", o.cfg.FrameMs,
		"mode", gmmvad.Mode(o.cfg.Mode).String(),
	)
	return in, nil
}

package gmmvad

import (
	"fmt"
	"log/slog"
)

// options.go 提供基于选项模式的VAD配置

// Option VAD配置选项函数类型
type Option func(*VAD) error

// WithMode 设置VAD激进度模式
func WithMode(mode Mode) Option {
	return func(v *VAD) error {
		return v.SetMode(mode)
	}
}

// NewWithOptions 使用选项模式创建VAD实例
//
// 示例:
//
//	vad, err := gmmvad.NewWithOptions(
//	    gmmvad.WithMode(gmmvad.ModeAggressive),
//	)
func NewWithOptions(opts ...Option) (*VAD, error) {
	vad, err := New(DefaultMode)
	if err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt(vad); err != nil {
			return nil, err
		}
	}
	return vad, nil
}

// StreamVADOption StreamVAD配置选项函数类型
type StreamVADOption func(*streamVADConfig) error

// streamVADConfig StreamVAD内部配置
type streamVADConfig struct {
	mode       Mode
	sampleRate int
	frameMs    int
	logger     *slog.Logger
}

// WithStreamMode 设置StreamVAD的激进度模式
func WithStreamMode(mode Mode) StreamVADOption {
	return func(cfg *streamVADConfig) error {
		if !mode.Valid() {
			return fmt.Errorf("stream mode %d: %w", int(mode), ErrInvalidMode)
		}
		cfg.mode = mode
		return nil
	}
}

// WithSampleRate 设置StreamVAD的采样率
func WithSampleRate(rate int) StreamVADOption {
	return func(cfg *streamVADConfig) error {
		if !isValidSampleRate(rate) {
			return fmt.Errorf("stream sample rate %d: %w", rate, ErrInvalidSampleRate)
		}
		cfg.sampleRate = rate
		return nil
	}
}

// WithFrameDuration 设置StreamVAD的帧长度（毫秒，10/20/30）
func WithFrameDuration(ms int) StreamVADOption {
	return func(cfg *streamVADConfig) error {
		if _, ok := frameIndexMs(ms); !ok {
			return fmt.Errorf("stream frame %d ms: %w", ms, ErrInvalidFrameLength)
		}
		cfg.frameMs = ms
		return nil
	}
}

// WithLogger 设置StreamVAD使用的日志记录器
func WithLogger(l *slog.Logger) StreamVADOption {
	return func(cfg *streamVADConfig) error {
		if l != nil {
			cfg.logger = l
		}
		return nil
	}
}

// NewStreamVADWithOptions 使用选项模式创建StreamVAD
//
// 默认: mode=1, 16kHz, 20ms。
//
// 示例:
//
//	svad, err := gmmvad.NewStreamVADWithOptions(
//	    gmmvad.WithStreamMode(gmmvad.ModeAggressive),
//	    gmmvad.WithSampleRate(16000),
//	    gmmvad.WithFrameDuration(20),
//	)
func NewStreamVADWithOptions(opts ...StreamVADOption) (*StreamVAD, error) {
	cfg := &streamVADConfig{
		mode:       ModeLowBitrate,
		sampleRate: 16000,
		frameMs:    20,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return newStreamVAD(cfg)
}

// 预定义的常用配置

// DefaultVAD 创建默认配置的VAD（质量模式）
func DefaultVAD() (*VAD, error) {
	return New(ModeQuality)
}

// AggressiveVAD 创建非常激进模式的VAD
func AggressiveVAD() (*VAD, error) {
	return New(ModeVeryAggressive)
}

// DefaultStreamVAD mode=1, 16kHz, 20ms
func DefaultStreamVAD() (*StreamVAD, error) {
	return NewStreamVAD(ModeLowBitrate, 16000, 20)
}

// RealtimeStreamVAD mode=2, 16kHz, 10ms（低延迟）
func RealtimeStreamVAD() (*StreamVAD, error) {
	return NewStreamVAD(ModeAggressive, 16000, 10)
}

// HighQualityStreamVAD mode=0, 48kHz, 30ms
func HighQualityStreamVAD() (*StreamVAD, error) {
	return NewStreamVAD(ModeQuality, 48000, 30)
}

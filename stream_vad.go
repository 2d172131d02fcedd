package gmmvad

import (
	"fmt"
	"log/slog"
	"time"
)

// stream_vad.go 提供流式VAD处理接口
// 自动处理缓冲和分帧，适合实时流处理场景

// StreamVAD 流式VAD处理器
type StreamVAD struct {
	vad        *VAD
	sampleRate int
	frameMs    int
	logger     *slog.Logger
	classify   func(frame []byte, sampleRate int) (bool, error)

	buffer     []byte // 未凑满一帧的数据
	frameSize  int    // 单帧字节数
	segments   []VoiceSegment
	totalBytes int64 // 已处理的总字节数
}

// VoiceSegment 语音片段
type VoiceSegment struct {
	Start    time.Duration // 开始时间
	End      time.Duration // 结束时间
	IsSpeech bool          // 是否为语音
}

// Duration 片段时长
func (s VoiceSegment) Duration() time.Duration {
	return s.End - s.Start
}

// NewStreamVAD 创建流式VAD处理器
//
// 参数:
//   - mode: VAD模式
//   - sampleRate: 采样率（8000, 16000, 32000, 48000）
//   - frameMs: 帧长度（毫秒，10/20/30）
func NewStreamVAD(mode Mode, sampleRate int, frameMs int) (*StreamVAD, error) {
	return NewStreamVADWithOptions(
		WithStreamMode(mode),
		WithSampleRate(sampleRate),
		WithFrameDuration(frameMs),
	)
}

func newStreamVAD(cfg *streamVADConfig) (*StreamVAD, error) {
	vad, err := New(cfg.mode)
	if err != nil {
		return nil, err
	}

	frameSize := FrameLength(cfg.sampleRate, cfg.frameMs) * 2 // 16位 = 2字节
	if frameSize == 0 {
		return nil, fmt.Errorf("stream %d Hz / %d ms: %w", cfg.sampleRate, cfg.frameMs, ErrInvalidFrameLength)
	}

	return &StreamVAD{
		vad:        vad,
		sampleRate: cfg.sampleRate,
		frameMs:    cfg.frameMs,
		classify:   vad.IsSpeech,
		logger: cfg.logger.With(
			"component", "stream-vad",
			"sample_rate", cfg.sampleRate,
			"frame_ms", cfg.frameMs,
		),
		buffer:    make([]byte, 0, frameSize*2),
		frameSize: frameSize,
		segments:  make([]VoiceSegment, 0, 100),
	}, nil
}

// Write 写入音频数据（16位小端序PCM），返回本次新开始的片段
//
// 连续相同判决的帧合并为一个片段；返回的片段的End可能在后续写入中继续延长，
// 以Segments为准。出错时已判决的帧计入进度，出错的帧留在缓冲区。
func (s *StreamVAD) Write(data []byte) ([]VoiceSegment, error) {
	s.buffer = append(s.buffer, data...)

	var started []VoiceSegment
	consumed := 0
	for len(s.buffer)-consumed >= s.frameSize {
		frame := s.buffer[consumed : consumed+s.frameSize]

		isSpeech, err := s.classify(frame, s.sampleRate)
		if err != nil {
			// 丢弃已判决的帧
			s.buffer = append(s.buffer[:0], s.buffer[consumed:]...)
			return started, err
		}
		consumed += s.frameSize

		start := s.bytesToDuration(s.totalBytes)
		s.totalBytes += int64(s.frameSize)
		end := s.bytesToDuration(s.totalBytes)

		if n := len(s.segments); n > 0 && s.segments[n-1].IsSpeech == isSpeech {
			s.segments[n-1].End = end
			continue
		}

		seg := VoiceSegment{Start: start, End: end, IsSpeech: isSpeech}
		s.segments = append(s.segments, seg)
		started = append(started, seg)
		s.logger.Debug("segment started", "start", start, "speech", isSpeech)
	}

	// 保留不足一帧的尾部
	s.buffer = append(s.buffer[:0], s.buffer[consumed:]...)
	return started, nil
}

// Segments 获取所有片段
func (s *StreamVAD) Segments() []VoiceSegment {
	return s.segments
}

// Reset 清空缓冲与片段，并重新初始化VAD模型
func (s *StreamVAD) Reset() error {
	s.buffer = s.buffer[:0]
	s.segments = s.segments[:0]
	s.totalBytes = 0

	if err := s.vad.Reset(); err != nil {
		return err
	}
	s.logger.Debug("stream reset")
	return nil
}

// bytesToDuration 将字节数转换为时长，整数运算
func (s *StreamVAD) bytesToDuration(bytes int64) time.Duration {
	samples := bytes / 2
	return time.Duration(samples * int64(time.Second) / int64(s.sampleRate))
}

// BufferedBytes 当前缓冲区中尚未处理的字节数
func (s *StreamVAD) BufferedBytes() int {
	return len(s.buffer)
}

// TotalProcessed 已处理的总字节数
func (s *StreamVAD) TotalProcessed() int64 {
	return s.totalBytes
}

// TotalDuration 已处理的总时长
func (s *StreamVAD) TotalDuration() time.Duration {
	return s.bytesToDuration(s.totalBytes)
}

// SpeechSegments 过滤出语音片段
func (s *StreamVAD) SpeechSegments() []VoiceSegment {
	return s.filter(true)
}

// SilenceSegments 过滤出静音片段
func (s *StreamVAD) SilenceSegments() []VoiceSegment {
	return s.filter(false)
}

func (s *StreamVAD) filter(speech bool) []VoiceSegment {
	var out []VoiceSegment
	for _, seg := range s.segments {
		if seg.IsSpeech == speech {
			out = append(out, seg)
		}
	}
	return out
}

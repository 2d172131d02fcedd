package gmmvad

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConstructor 测试VAD实例创建
func TestConstructor(t *testing.T) {
	for m := ModeQuality; m <= ModeVeryAggressive; m++ {
		vad, err := New(m)
		require.NoError(t, err)
		require.NotNil(t, vad)
		assert.Equal(t, m, vad.Mode())
		assert.True(t, vad.Instance().Initialized())
	}

	_, err := New(4)
	assert.ErrorIs(t, err, ErrInvalidMode)
	assert.True(t, IsConfigError(err))
}

// TestSetMode 测试设置模式
func TestSetMode(t *testing.T) {
	vad, err := New(ModeQuality)
	require.NoError(t, err)

	for m := ModeQuality; m <= ModeVeryAggressive; m++ {
		assert.NoError(t, vad.SetMode(m))
		assert.Equal(t, m, vad.Mode())
	}

	assert.ErrorIs(t, vad.SetMode(4), ErrInvalidMode)
	assert.ErrorIs(t, vad.SetMode(-1), ErrInvalidMode)
	assert.Equal(t, ModeVeryAggressive, vad.Mode())
}

// TestValidRateAndFrameLength 测试采样率和帧长度验证
func TestValidRateAndFrameLength(t *testing.T) {
	tests := []struct {
		rate        int
		frameLength int
		expected    bool
	}{
		{8000, 80, true},    // 10ms @ 8kHz
		{8000, 160, true},   // 20ms @ 8kHz
		{8000, 240, true},   // 30ms @ 8kHz
		{16000, 160, true},  // 10ms @ 16kHz
		{16000, 320, true},  // 20ms @ 16kHz
		{16000, 480, true},  // 30ms @ 16kHz
		{32000, 320, true},  // 10ms @ 32kHz
		{32000, 640, true},  // 20ms @ 32kHz
		{32000, 960, true},  // 30ms @ 32kHz
		{48000, 480, true},  // 10ms @ 48kHz
		{48000, 960, true},  // 20ms @ 48kHz
		{48000, 1440, true}, // 30ms @ 48kHz
		{32000, 160, false}, // 无效组合
		{8000, 100, false},  // 无效帧长度
		{16000, 100, false}, // 无效帧长度
		{44100, 441, false}, // 无效采样率
		{8000, 0, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ValidRateAndFrameLength(tt.rate, tt.frameLength),
			"ValidRateAndFrameLength(%d, %d)", tt.rate, tt.frameLength)
	}
}

func TestFrameLength(t *testing.T) {
	assert.Equal(t, 160, FrameLength(8000, 20))
	assert.Equal(t, 1440, FrameLength(48000, 30))
	assert.Equal(t, 0, FrameLength(44100, 20))
	assert.Equal(t, 0, FrameLength(16000, 15))
}

// TestProcessZeroes 全零音频判为非语音
func TestProcessZeroes(t *testing.T) {
	vad, err := New(ModeQuality)
	require.NoError(t, err)

	isSpeech, err := vad.IsSpeech(make([]byte, 160*2), 16000)
	require.NoError(t, err)
	assert.False(t, isSpeech)
}

func TestDecideRawValue(t *testing.T) {
	vad, err := New(ModeLowBitrate)
	require.NoError(t, err)

	g := &lcg{x: 1}
	var got []int
	for i := 0; i < 10; i++ {
		d, err := vad.Decide(pcm(g.noise(320, 2)), 16000)
		require.NoError(t, err)
		got = append(got, d)
	}
	for i := 0; i < 8; i++ {
		d, err := vad.Decide(make([]byte, 640), 16000)
		require.NoError(t, err)
		got = append(got, d)
	}

	// 模式1、20ms：OverhangMax2 = 7
	assert.Equal(t, []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 9, 8, 7, 6, 5, 4, 3, 0}, got)
}

func TestDecideErrors(t *testing.T) {
	vad, err := New(ModeQuality)
	require.NoError(t, err)

	_, err = vad.Decide(make([]byte, 321), 16000)
	assert.ErrorIs(t, err, ErrInvalidFrameLength)

	_, err = vad.Decide(make([]byte, 2*2000), 48000)
	assert.ErrorIs(t, err, ErrInvalidFrameLength)

	_, err = vad.Decide(make([]byte, 320), 22050)
	assert.ErrorIs(t, err, ErrInvalidSampleRate)

	_, err = vad.IsSpeech(make([]byte, 300), 16000)
	assert.ErrorIs(t, err, ErrInvalidFrameLength)
	assert.True(t, IsConfigError(err))
}

func TestIsSpeechSamplesMatchesBytes(t *testing.T) {
	a, err := New(ModeAggressive)
	require.NoError(t, err)
	b, err := New(ModeAggressive)
	require.NoError(t, err)

	g := &lcg{x: 21}
	for i := 0; i < 30; i++ {
		frame := g.noise(480, uint(2+i%8))
		fromBytes, err := a.IsSpeech(pcm(frame), 48000)
		require.NoError(t, err)
		fromSamples, err := b.IsSpeechSamples(frame, 48000)
		require.NoError(t, err)
		assert.Equal(t, fromBytes, fromSamples, "frame %d", i)
	}
}

func TestReset(t *testing.T) {
	vad, err := New(ModeAggressive)
	require.NoError(t, err)

	g := &lcg{x: 1}
	first := make([]bool, 20)
	for i := range first {
		first[i], err = vad.IsSpeech(pcm(g.noise(160, 3)), 8000)
		require.NoError(t, err)
	}

	require.NoError(t, vad.Reset())
	assert.Equal(t, ModeAggressive, vad.Mode())

	// 重置后重放同样的输入得到同样的结果
	g = &lcg{x: 1}
	for i := range first {
		again, err := vad.IsSpeech(pcm(g.noise(160, 3)), 8000)
		require.NoError(t, err)
		assert.Equal(t, first[i], again, "frame %d", i)
	}
}

// BenchmarkIsSpeech 基准测试
func BenchmarkIsSpeech(b *testing.B) {
	for _, rate := range []int{8000, 16000, 48000} {
		sample := pcm((&lcg{x: 1}).noise(FrameLength(rate, 10), 3))
		b.Run(fmt.Sprintf("%dHz", rate), func(b *testing.B) {
			vad, err := New(ModeLowBitrate)
			if err != nil {
				b.Fatalf("Failed to create VAD: %v", err)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := vad.IsSpeech(sample, rate); err != nil {
					b.Fatalf("Failed to process audio: %v", err)
				}
			}
		})
	}
}

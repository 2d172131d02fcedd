package gmmvad

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytectlgo/gmmvad/internal/spl"
)

func TestInitDefaults(t *testing.T) {
	inst := &Instance{}
	require.NoError(t, inst.Init())

	assert.True(t, inst.Initialized())
	assert.Equal(t, ModeQuality, inst.Mode())
	assert.Equal(t, 1, inst.LastDecision())

	m := inst.Model()
	assert.Equal(t, kNoiseDataMeans, m.NoiseMeans)
	assert.Equal(t, kSpeechDataMeans, m.SpeechMeans)
	assert.Equal(t, kNoiseDataStds, m.NoiseStds)
	assert.Equal(t, kSpeechDataStds, m.SpeechStds)

	assert.Equal(t, [4]int32{}, inst.downsamplingStates)
	assert.Equal(t, spl.Resampler48To8{}, inst.resampler)
	assert.Equal(t, [5]int16{}, inst.upperState)
	assert.Equal(t, [5]int16{}, inst.lowerState)
	assert.Equal(t, [4]int16{}, inst.hpFilterState)
	assert.Equal(t, int32(0), inst.frameCounter)

	for i, v := range inst.lowValueVector {
		assert.Equal(t, int16(kEmptySlot), v, "slot %d", i)
		assert.Equal(t, int16(0), inst.ageVector[i], "age %d", i)
	}
	assert.Equal(t, [kNumChannels]int16{1600, 1600, 1600, 1600, 1600, 1600}, inst.NoiseFloor())
}

func TestInitIdempotent(t *testing.T) {
	fresh := newInstance(ModeQuality)

	inst := newInstance(ModeVeryAggressive)
	g := &lcg{x: 5}
	for i := 0; i < 50; i++ {
		inst.Process16kHz(g.noise(320, 2))
	}
	require.NotEqual(t, *fresh, *inst)

	require.NoError(t, inst.Init())
	assert.Equal(t, *fresh, *inst)
}

func TestInitNil(t *testing.T) {
	var inst *Instance
	assert.ErrorIs(t, inst.Init(), ErrNilInstance)
	assert.False(t, inst.Initialized())
}

func TestSetModeRoundTrip(t *testing.T) {
	// 各模式在10/20/30ms下的阈值
	tests := []struct {
		mode Mode
		want [3]Thresholds
	}{
		{ModeQuality, [3]Thresholds{{8, 14, 24, 57}, {4, 7, 21, 48}, {3, 5, 24, 57}}},
		{ModeLowBitrate, [3]Thresholds{{8, 14, 37, 100}, {4, 7, 32, 80}, {3, 5, 37, 100}}},
		{ModeAggressive, [3]Thresholds{{6, 9, 82, 285}, {3, 5, 78, 260}, {2, 3, 82, 285}}},
		{ModeVeryAggressive, [3]Thresholds{{6, 9, 94, 1100}, {3, 5, 94, 1050}, {2, 3, 94, 1100}}},
	}

	inst := newInstance(ModeQuality)
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			require.NoError(t, inst.SetMode(tt.mode))
			assert.Equal(t, tt.mode, inst.Mode())

			for i, ms := range []int{10, 20, 30} {
				th, ok := inst.Thresholds(ms)
				require.True(t, ok)
				assert.Equal(t, tt.want[i], th, "%d ms", ms)

				// 8kHz帧长 80/160/240 对应同一组阈值
				assert.Equal(t, tt.want[i], inst.thresholds[frameIndex(80*(i+1))])
			}

			// 无效模式报错且不改动阈值
			before := inst.thresholds
			for _, bad := range []Mode{4, -1, 100} {
				assert.ErrorIs(t, inst.SetMode(bad), ErrInvalidMode)
				assert.Equal(t, before, inst.thresholds)
				assert.Equal(t, tt.mode, inst.Mode())
			}
		})
	}
}

func TestSetModeUninitialized(t *testing.T) {
	var inst Instance
	assert.ErrorIs(t, inst.SetMode(ModeAggressive), ErrNotInitialized)

	_, err := inst.Process(8000, make([]int16, 80))
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestSetModeKeepsModel(t *testing.T) {
	inst := newInstance(ModeQuality)
	g := &lcg{x: 9}
	for i := 0; i < 20; i++ {
		inst.Process8kHz(g.noise(160, 2))
	}
	model := inst.Model()
	counter := inst.frameCounter

	require.NoError(t, inst.SetMode(ModeAggressive))
	assert.Equal(t, model, inst.Model())
	assert.Equal(t, counter, inst.frameCounter)
}

func TestProcessValidation(t *testing.T) {
	inst := newInstance(ModeQuality)

	tests := []struct {
		name    string
		rate    int
		samples int
		wantErr error
	}{
		{"8k 10ms", 8000, 80, nil},
		{"48k 30ms", 48000, 1440, nil},
		{"44.1k", 44100, 441, ErrInvalidSampleRate},
		{"zero rate", 0, 0, ErrInvalidSampleRate},
		{"8k 15ms", 8000, 120, ErrInvalidFrameLength},
		{"16k with 8k frame", 16000, 80, ErrInvalidFrameLength},
		{"empty", 16000, 0, ErrInvalidFrameLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := inst.Process(tt.rate, make([]int16, tt.samples))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, -1, d)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 0, d)
		})
	}
}

func TestDeterminism(t *testing.T) {
	for _, rate := range []int{8000, 16000, 32000, 48000} {
		frameLen := FrameLength(rate, 20)

		a := newInstance(ModeLowBitrate)
		b := newInstance(ModeLowBitrate)
		ga := &lcg{x: 42}
		gb := &lcg{x: 42}

		for i := 0; i < 60; i++ {
			shift := uint(2 + (i/10)%3*4)
			da, err := a.Process(rate, ga.noise(frameLen, shift))
			require.NoError(t, err)
			db, err := b.Process(rate, gb.noise(frameLen, shift))
			require.NoError(t, err)
			require.Equal(t, da, db, "%d Hz frame %d", rate, i)
		}
		assert.Equal(t, *a, *b, "%d Hz", rate)
	}
}

func TestSilence(t *testing.T) {
	inst := newInstance(ModeQuality)
	zero := make([]int16, 160)

	for i := 0; i < 20; i++ {
		var features [kNumChannels]int16
		probe := *inst
		assert.LessOrEqual(t, probe.calculateFeatures(zero, &features), int16(kMinEnergy))

		d, err := inst.Process(8000, zero)
		require.NoError(t, err)
		assert.Equal(t, 0, d, "frame %d", i)
	}

	// 能量不足时模型不更新
	assert.Equal(t, int32(0), inst.frameCounter)
	m := inst.Model()
	assert.Equal(t, kNoiseDataMeans, m.NoiseMeans)
	assert.Equal(t, kSpeechDataStds, m.SpeechStds)
}

func TestSilenceAllRates(t *testing.T) {
	for _, rate := range []int{8000, 16000, 32000, 48000} {
		for _, ms := range []int{10, 20, 30} {
			inst := newInstance(ModeVeryAggressive)
			frame := make([]int16, FrameLength(rate, ms))
			for i := 0; i < 5; i++ {
				d, err := inst.Process(rate, frame)
				require.NoError(t, err)
				assert.Equal(t, 0, d, "%d Hz %d ms", rate, ms)
			}
		}
	}
}

func TestNoiseThenSilence(t *testing.T) {
	// 响亮的宽带噪声判为语音，静音后先输出拖尾值
	tests := []struct {
		rate       int
		samples    int
		afterwards []int
	}{
		{16000, 320, []int{1, 9, 8}},
		{32000, 640, []int{9, 8, 7}},
		{48000, 960, []int{1, 9, 8}},
	}
	for _, tt := range tests {
		inst := newInstance(ModeQuality)
		g := &lcg{x: 1}
		for i := 0; i < 10; i++ {
			d, err := inst.Process(tt.rate, g.noise(tt.samples, 2))
			require.NoError(t, err)
			assert.Equal(t, 1, d, "%d Hz frame %d", tt.rate, i)
		}

		got := make([]int, 0, len(tt.afterwards))
		for range tt.afterwards {
			d, err := inst.Process(tt.rate, make([]int16, tt.samples))
			require.NoError(t, err)
			got = append(got, d)
		}
		assert.Equal(t, tt.afterwards, got, "%d Hz", tt.rate)
	}
}

func TestHangoverRawValues(t *testing.T) {
	// 模式0、10ms：OverhangMax2 = 14，拖尾从16递减到3
	inst := newInstance(ModeQuality)
	g := &lcg{x: 7}

	var got []int
	for i := 0; i < 10; i++ {
		got = append(got, inst.Process8kHz(g.noise(80, 2)))
	}
	for i := 0; i < 18; i++ {
		got = append(got, inst.Process8kHz(make([]int16, 80)))
	}

	want := []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	for v := 16; v >= 3; v-- {
		want = append(want, v)
	}
	want = append(want, 0, 0, 0)
	assert.Equal(t, want, got)
	assert.Equal(t, 0, inst.LastDecision())
}

func TestRateConsistency(t *testing.T) {
	// 500Hz方波：8kHz周期16个样本，16kHz周期32个样本
	for _, ms := range []int{10, 20, 30} {
		nb := newInstance(ModeQuality)
		wb := newInstance(ModeQuality)
		n8 := 8 * ms

		var d8, d16 []int
		for f := 0; f < 200; f++ {
			d8 = append(d8, nb.Process8kHz(squareAt(n8, 16, 3000, f*n8)))
			d16 = append(d16, wb.Process16kHz(squareAt(2*n8, 32, 3000, f*2*n8)))
		}

		assert.Equal(t, d8[180:], d16[180:], "%d ms", ms)
		for _, d := range d8[180:] {
			assert.Equal(t, 1, d, "%d ms", ms)
		}
	}
}

func TestClampInvariants(t *testing.T) {
	inst := newInstance(ModeQuality)
	g := &lcg{x: 3}

	for f := 0; f < 600; f++ {
		var frame []int16
		switch (f / 40) % 5 {
		case 0:
			frame = g.noise(160, 1)
		case 1:
			frame = g.noise(160, 10)
		case 2:
			frame = make([]int16, 160)
		case 3:
			frame = make([]int16, 160)
			for i := range frame {
				tone := int16(-4000)
				if (i/8)%2 == 1 {
					tone = 4000
				}
				frame[i] = g.next()>>6 + tone
			}
		default:
			frame = g.noise(160, 4)
		}
		inst.Process8kHz(frame)

		for ch := 0; ch < kNumChannels; ch++ {
			var speechGlobal, noiseGlobal int32
			for k := 0; k < kNumGaussians; k++ {
				idx := ch + k*kNumChannels
				nm := inst.noiseMeans[idx]
				assert.GreaterOrEqual(t, nm, int16((k+5)<<7), "frame %d noise mean %d", f, idx)
				assert.LessOrEqual(t, nm, int16((72+k-ch)<<7), "frame %d noise mean %d", f, idx)
				assert.GreaterOrEqual(t, inst.speechMeans[idx], kMinimumMean[k], "frame %d speech mean %d", f, idx)

				// 默认表中有低于下限的值，未更新前保持原值
				assert.GreaterOrEqual(t, inst.noiseStds[idx], min(int16(kMinStd), kNoiseDataStds[idx]), "frame %d noise std %d", f, idx)
				assert.GreaterOrEqual(t, inst.speechStds[idx], int16(kMinStd), "frame %d speech std %d", f, idx)

				speechGlobal += int32(inst.speechMeans[idx]) * int32(kSpeechDataWeights[idx])
				noiseGlobal += int32(inst.noiseMeans[idx]) * int32(kNoiseDataWeights[idx])
			}
			assert.LessOrEqual(t, int16(speechGlobal>>7), kMaximumSpeech[ch], "frame %d speech global %d", f, ch)
			assert.LessOrEqual(t, int16(noiseGlobal>>7), kMaximumNoise[ch], "frame %d noise global %d", f, ch)
		}
	}
	assert.Equal(t, int32(483), inst.frameCounter)
}

func TestOverflowingMultiply(t *testing.T) {
	assert.Equal(t, int32(-6), overflowingMulS16ByS32ToS32(2, -3))
	assert.Equal(t, int32(-2), overflowingMulS16ByS32ToS32(2, spl.Word32Max))
	assert.Equal(t, int32(0), overflowingMulS16ByS32ToS32(4096, 1<<20))
}

func BenchmarkProcess(b *testing.B) {
	for _, rate := range []int{8000, 16000, 32000, 48000} {
		frame := (&lcg{x: 1}).noise(FrameLength(rate, 30), 3)
		b.Run(fmt.Sprintf("%dHz", rate), func(b *testing.B) {
			inst := newInstance(ModeQuality)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := inst.Process(rate, frame); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

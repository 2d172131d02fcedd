package gmmvad

import (
	"fmt"

	"github.com/bytectlgo/gmmvad/internal/spl"
)

// 降采样全通滤波器系数，上部和下部，Q13
// Upper: 0.64, Lower: 0.17
var kAllPassCoefsQ13 = [2]int16{5243, 1392}

// 8kHz下最长帧（30ms）的样本数
const maxFrame8kHz = 240

// downsampleBy2 基于分割滤波器和全通函数的2倍降采样，例如 32->16 或 16->8
//
// 参数:
//   - in: 输入信号，长度为偶数
//   - out: 输出信号，长度至少为 len(in)/2
//   - state: 两个全通滤波器的状态（Q0），处理完所有样本后更新
func downsampleBy2(in, out []int16, state []int32) {
	upper := state[0]
	lower := state[1]

	// 滤波器系数为Q13，滤波器状态为Q0
	for n := 0; n < len(in)>>1; n++ {
		x0 := int32(in[2*n])
		x1 := int32(in[2*n+1])

		// 上分支
		y := int16((upper >> 1) + ((int32(kAllPassCoefsQ13[0]) * x0) >> 14))
		out[n] = y
		upper = x0 - ((int32(kAllPassCoefsQ13[0]) * int32(y)) >> 12)

		// 下分支
		y = int16((lower >> 1) + ((int32(kAllPassCoefsQ13[1]) * x1) >> 14))
		out[n] += y
		lower = x1 - ((int32(kAllPassCoefsQ13[1]) * int32(y)) >> 12)
	}

	state[0] = upper
	state[1] = lower
}

// Process8kHz 对一帧8kHz音频做判决
//
// frame长度必须是80、160或240，调用方负责校验（见ValidRateAndFrameLength）。
// 返回原始判决值：0为非语音，1为语音，大于1为拖尾期内的值（2+剩余拖尾帧数）。
func (inst *Instance) Process8kHz(frame []int16) int {
	var features [kNumChannels]int16

	totalPower := inst.calculateFeatures(frame, &features)
	inst.vad = int(inst.gmmProbability(&features, totalPower, len(frame)))
	return inst.vad
}

// Process16kHz 先降采样到8kHz再判决，frame长度为160、320或480
func (inst *Instance) Process16kHz(frame []int16) int {
	var nb [maxFrame8kHz]int16

	n := len(frame) / 2
	downsampleBy2(frame, nb[:n], inst.downsamplingStates[:2])
	return inst.Process8kHz(nb[:n])
}

// Process32kHz 经 32->16->8 两级降采样后判决，frame长度为320、640或960
func (inst *Instance) Process32kHz(frame []int16) int {
	var (
		wb [2 * maxFrame8kHz]int16
		nb [maxFrame8kHz]int16
	)

	n := len(frame) / 2
	downsampleBy2(frame, wb[:n], inst.downsamplingStates[2:])
	downsampleBy2(wb[:n], nb[:n/2], inst.downsamplingStates[:2])
	return inst.Process8kHz(nb[:n/2])
}

// Process48kHz 按10ms分块重采样到8kHz后判决，frame长度为480、960或1440
func (inst *Instance) Process48kHz(frame []int16) int {
	var nb [maxFrame8kHz]int16

	chunks := len(frame) / spl.Frame48kHz
	for i := 0; i < chunks; i++ {
		in := frame[i*spl.Frame48kHz : (i+1)*spl.Frame48kHz]
		out := nb[i*spl.Frame8kHz : (i+1)*spl.Frame8kHz]
		inst.resampler.Resample(in, out)
	}
	return inst.Process8kHz(nb[:chunks*spl.Frame8kHz])
}

// Process 校验采样率与帧长后分派到对应采样率的处理函数
func (inst *Instance) Process(rate int, frame []int16) (int, error) {
	if !inst.Initialized() {
		return -1, ErrNotInitialized
	}
	if !isValidSampleRate(rate) {
		return -1, fmt.Errorf("process %d Hz: %w", rate, ErrInvalidSampleRate)
	}
	if !ValidRateAndFrameLength(rate, len(frame)) {
		return -1, fmt.Errorf("process %d samples at %d Hz: %w", len(frame), rate, ErrInvalidFrameLength)
	}

	switch rate {
	case 48000:
		return inst.Process48kHz(frame), nil
	case 32000:
		return inst.Process32kHz(frame), nil
	case 16000:
		return inst.Process16kHz(frame), nil
	default:
		return inst.Process8kHz(frame), nil
	}
}

// ValidRateAndFrameLength 检查采样率和帧长度（样本数）的组合是否有效
//
// 采样率必须是8000, 16000, 32000或48000 Hz，帧长度必须对应10ms、20ms或30ms。
func ValidRateAndFrameLength(rate, frameLength int) bool {
	if !isValidSampleRate(rate) {
		return false
	}
	for ms := 10; ms <= 30; ms += 10 {
		if frameLength == rate*ms/1000 {
			return true
		}
	}
	return false
}

func isValidSampleRate(rate int) bool {
	return rate == 8000 || rate == 16000 || rate == 32000 || rate == 48000
}

// FrameLength 返回rate下frameMs对应的样本数，参数无效时返回0
func FrameLength(rate, frameMs int) int {
	if !isValidSampleRate(rate) {
		return 0
	}
	if _, ok := frameIndexMs(frameMs); !ok {
		return 0
	}
	return rate * frameMs / 1000
}

package gmmvad

import "github.com/bytectlgo/gmmvad/internal/spl"

// vad_filterbank.go 实现VAD使用的滤波器组

// logOfEnergy中使用的常量
const (
	kLogConst         = 24660 // 160*log10(2)，Q9
	kLogEnergyIntPart = 14336 // 14，Q10
)

// highPassFilter使用的系数，Q14
var (
	kHpZeroCoefs = [3]int16{6631, -13262, 6631}
	kHpPoleCoefs = [3]int16{16384, -7756, 5620}
)

// 分割滤波器的全通系数，上部和下部，Q15
// Upper: 0.64, Lower: 0.17
var kAllPassCoefsQ15 = [2]int16{20972, 5571}

// 各频带对数能量的偏移，下标与特征向量一致（0为80-250Hz）
var kOffsetVector = [kNumChannels]int16{368, 368, 272, 176, 176, 176}

// highPassFilter 截止频率80Hz的高通滤波（输入以500Hz采样）
//
// state依次保存两个输入延迟和两个输出延迟。
func highPassFilter(in []int16, state *[4]int16, out []int16) {
	for i, x := range in {
		// 全零点部分（系数Q14）
		acc := int32(kHpZeroCoefs[0]) * int32(x)
		acc += int32(kHpZeroCoefs[1]) * int32(state[0])
		acc += int32(kHpZeroCoefs[2]) * int32(state[1])
		state[1] = state[0]
		state[0] = x

		// 全极点部分（系数Q14）
		acc -= int32(kHpPoleCoefs[1]) * int32(state[2])
		acc -= int32(kHpPoleCoefs[2]) * int32(state[3])
		state[3] = state[2]
		state[2] = int16(acc >> 14)
		out[i] = state[2]
	}
}

// allPassFilter 对in的隔点样本做一阶全通滤波
//
// 参数:
//   - in: 输入信号，Q0，读取 in[0], in[2], ...
//   - n: 输出样本数
//   - coef: 滤波器系数，Q15
//   - state: 滤波器状态，Q(-1)
//   - out: 输出信号，Q(-1)
func allPassFilter(in []int16, n int, coef int16, state *int16, out []int16) {
	state32 := int32(*state) * (1 << 16) // Q15

	for i := 0; i < n; i++ {
		x := int32(in[2*i])
		acc := state32 + int32(coef)*x
		y := int16(acc >> 16) // Q(-1)
		out[i] = y
		state32 = (x * (1 << 14)) - int32(coef)*int32(y) // Q14
		state32 *= 2                                      // Q15
	}

	*state = int16(state32 >> 16) // Q(-1)
}

// splitFilter 将in分割为上半频带hp和下半频带lp，两者长度均为len(in)/2
func splitFilter(in []int16, upper, lower *int16, hp, lp []int16) {
	half := len(in) >> 1

	allPassFilter(in, half, kAllPassCoefsQ15[0], upper, hp)
	allPassFilter(in[1:], half, kAllPassCoefsQ15[1], lower, lp)

	for i := 0; i < half; i++ {
		h := hp[i]
		hp[i] -= lp[i]
		lp[i] += h
	}
}

// logOfEnergy 计算in的对数能量 10*log10(energy)，Q4，并加上offset
//
// totalEnergy未超过kMinEnergy时用本频带能量累加，超过后保持不变。
func logOfEnergy(in []int16, offset int16, totalEnergy *int16) int16 {
	e, rshifts := spl.Energy(in)
	energy := uint32(e)
	if energy == 0 {
		return offset
	}

	// 归一化为15位，等价于无符号32位值有17个前导零
	normShifts := 17 - spl.NormU32(energy)
	rshifts += normShifts
	if normShifts < 0 {
		energy <<= uint(-normShifts)
	} else {
		energy >>= uint(normShifts)
	}

	// 15位表示下最高位为2^14，Q10下log2(2^14) = 14<<10。
	// 小数部分取低14位线性插值：
	//   160*log10(energy*2^rshifts) = kLogConst*(log2Energy + rshifts)
	log2Energy := int16(kLogEnergyIntPart) + int16((energy&0x00003FFF)>>4)

	logEnergy := int16((int32(kLogConst)*int32(log2Energy))>>19) +
		int16((int32(rshifts)*kLogConst)>>9)
	if logEnergy < 0 {
		logEnergy = 0
	}
	logEnergy += offset

	if *totalEnergy <= kMinEnergy {
		if rshifts >= 0 {
			// Q0下energy必然大于kMinEnergy，直接越过下限
			*totalEnergy += kMinEnergy + 1
		} else {
			// 15位的energy右移后可放入int16，kMinEnergy < 8192时累加不会回绕
			*totalEnergy += int16(energy >> uint(-rshifts))
		}
	}
	return logEnergy
}

// calculateFeatures 计算8kHz帧的六个子带对数能量特征
//
// 子带：[80,250] [250,500] [500,1000] [1000,2000] [2000,3000] [3000,4000] Hz。
// 返回总能量指示值，用于判断是否进行GMM判决与更新。
func (inst *Instance) calculateFeatures(in []int16, features *[kNumChannels]int16) int16 {
	var (
		totalEnergy int16
		hp120, lp120 [maxFrame8kHz / 2]int16
		hp60, lp60   [maxFrame8kHz / 4]int16
	)

	n := len(in)
	half := n >> 1
	quarter := n >> 2

	// [0,4000] -> [2000,4000] + [0,2000]
	splitFilter(in, &inst.upperState[0], &inst.lowerState[0], hp120[:half], lp120[:half])

	// [2000,4000] -> [3000,4000] + [2000,3000]
	splitFilter(hp120[:half], &inst.upperState[1], &inst.lowerState[1], hp60[:quarter], lp60[:quarter])
	features[5] = logOfEnergy(hp60[:quarter], kOffsetVector[5], &totalEnergy)
	features[4] = logOfEnergy(lp60[:quarter], kOffsetVector[4], &totalEnergy)

	// [0,2000] -> [1000,2000] + [0,1000]
	splitFilter(lp120[:half], &inst.upperState[2], &inst.lowerState[2], hp60[:quarter], lp60[:quarter])
	features[3] = logOfEnergy(hp60[:quarter], kOffsetVector[3], &totalEnergy)

	// [0,1000] -> [500,1000] + [0,500]
	eighth := quarter >> 1
	splitFilter(lp60[:quarter], &inst.upperState[3], &inst.lowerState[3], hp120[:eighth], lp120[:eighth])
	features[2] = logOfEnergy(hp120[:eighth], kOffsetVector[2], &totalEnergy)

	// [0,500] -> [250,500] + [0,250]
	sixteenth := eighth >> 1
	splitFilter(lp120[:eighth], &inst.upperState[4], &inst.lowerState[4], hp60[:sixteenth], lp60[:sixteenth])
	features[1] = logOfEnergy(hp60[:sixteenth], kOffsetVector[1], &totalEnergy)

	// 高通去除0-80Hz，得到[80,250]
	highPassFilter(lp60[:sixteenth], &inst.hpFilterState, hp120[:sixteenth])
	features[0] = logOfEnergy(hp120[:sixteenth], kOffsetVector[0], &totalEnergy)

	return totalEnergy
}

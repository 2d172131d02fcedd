package gmmvad

import "github.com/bytectlgo/gmmvad/internal/spl"

// 首个频带语音均值的钳位基准（Q7）
const kInitialMaxSpeech = 12800

// likelihoods 一帧的判决中间量，供模型更新使用
type likelihoods struct {
	deltaN  [kTableSize]int16 // (x-mu)/sigma^2，噪声，Q11
	deltaS  [kTableSize]int16 // (x-mu)/sigma^2，语音，Q11
	ngprvec [kTableSize]int16 // 噪声各高斯分量的条件概率，Q14
	sgprvec [kTableSize]int16 // 语音各高斯分量的条件概率，Q14
}

// weightedAverage 计算某频带两个高斯均值的加权和（Q14）
//
// data与weights从频带下标处开始切片，分量间步长为kNumChannels。
// data中的每个均值先加上offset。
func weightedAverage(data []int16, offset int16, weights []int16) int32 {
	var sum int32
	for k := 0; k < kNumGaussians; k++ {
		idx := k * kNumChannels
		data[idx] += offset
		sum += int32(data[idx]) * int32(weights[idx])
	}
	return sum
}

// overflowingMulS16ByS32ToS32 按二进制补码回绕的乘法
//
// 噪声方差更新依赖这里的回绕语义，不能换成饱和或检查溢出的乘法。
func overflowingMulS16ByS32ToS32(a int16, b int32) int32 {
	return int32(uint32(int32(a)) * uint32(b))
}

// gmmProbability 用高斯混合模型对一帧做似然比检验并更新模型
//
// H0为噪声，H1为语音。全局检验与各频带的局部检验相结合；
// totalPower不超过kMinEnergy时跳过判决与更新，只推进拖尾状态机。
//
// 返回原始判决值（见smooth）。
func (inst *Instance) gmmProbability(features *[kNumChannels]int16, totalPower int16, length8k int) int16 {
	th := inst.thresholds[frameIndex(length8k)]

	var vadflag int16
	if totalPower > kMinEnergy {
		var lk likelihoods
		vadflag = inst.classify(features, th, &lk)
		inst.adapt(features, vadflag, &lk)
		if inst.frameCounter < spl.Word32Max {
			inst.frameCounter++
		}
	}

	return inst.smooth(vadflag, th)
}

// classify 计算各频带的对数似然比并给出原始判决（0或1）
func (inst *Instance) classify(features *[kNumChannels]int16, th Thresholds, lk *likelihoods) int16 {
	var (
		vadflag    int16
		sumLLR     int32
		noiseProb  [kNumGaussians]int32
		speechProb [kNumGaussians]int32
	)

	for ch := 0; ch < kNumChannels; ch++ {
		var h0Test, h1Test int32

		for k := 0; k < kNumGaussians; k++ {
			g := ch + k*kNumChannels

			// Q27 = Q7 * Q20
			p, d := gaussianProbability(features[ch], inst.noiseMeans[g], inst.noiseStds[g])
			lk.deltaN[g] = d
			noiseProb[k] = int32(kNoiseDataWeights[g]) * p
			h0Test += noiseProb[k]

			p, d = gaussianProbability(features[ch], inst.speechMeans[g], inst.speechStds[g])
			lk.deltaS[g] = d
			speechProb[k] = int32(kSpeechDataWeights[g]) * p
			h1Test += speechProb[k]
		}

		// log2(Pr{X|H1} / Pr{X|H0}) ~= shiftsH0 - shiftsH1
		llr := normShifts(h0Test) - normShifts(h1Test)

		sumLLR += int32(llr) * int32(kSpectrumWeight[ch])

		// 局部判决
		if llr*4 > th.Local {
			vadflag = 1
		}

		// 各高斯分量的条件概率
		h0 := int16(h0Test >> 12) // Q15
		if h0 > 0 {
			// Q29
			num := int32(uint32(noiseProb[0])&0xFFFFF000) << 2
			lk.ngprvec[ch] = int16(spl.DivW32W16(num, h0)) // Q14
			lk.ngprvec[ch+kNumChannels] = 16384 - lk.ngprvec[ch]
		} else {
			// 噪声概率过低，全部归于第一个分量
			lk.ngprvec[ch] = 16384
		}

		h1 := int16(h1Test >> 12) // Q15
		if h1 > 0 {
			num := int32(uint32(speechProb[0])&0xFFFFF000) << 2
			lk.sgprvec[ch] = int16(spl.DivW32W16(num, h1))
			lk.sgprvec[ch+kNumChannels] = 16384 - lk.sgprvec[ch]
		}
	}

	// 全局判决
	if sumLLR >= int32(th.Global) {
		vadflag = 1
	}
	return vadflag
}

// normShifts 似然值的归一化位数，0视为31
func normShifts(v int32) int16 {
	if v == 0 {
		return 31
	}
	return spl.NormW32(v)
}

// adapt 根据本帧判决在线更新各频带的高斯参数
func (inst *Instance) adapt(features *[kNumChannels]int16, vadflag int16, lk *likelihoods) {
	// 语音均值上限沿用前一频带的kMaximumSpeech，首个频带为kInitialMaxSpeech
	maxSpeech := int16(kInitialMaxSpeech)

	for ch := 0; ch < kNumChannels; ch++ {
		// 长期修正所用的平滑最小值，Q4
		floor := inst.findMinimum(features[ch], ch)

		noiseGlobal := weightedAverage(inst.noiseMeans[ch:], 0, kNoiseDataWeights[ch:])
		noiseGlobalQ8 := int16(noiseGlobal >> 6)

		for k := 0; k < kNumGaussians; k++ {
			g := ch + k*kNumChannels
			prevNoiseMean := inst.noiseMeans[g]
			inst.updateNoiseMean(g, k, ch, floor, noiseGlobalQ8, vadflag, lk)
			if vadflag != 0 {
				inst.updateSpeech(g, k, features[ch], maxSpeech, lk)
			} else {
				inst.updateNoiseStd(g, features[ch], prevNoiseMean, lk)
			}
		}

		inst.separateModels(ch)
		maxSpeech = kMaximumSpeech[ch]
	}
}

// updateNoiseMean 噪声均值更新与长期修正
//
// 只有非语音帧才按(x-mu)/sigma^2移动均值；长期修正每帧都把均值拉向平滑最小值。
// 结果钳位到 [(k+5)<<7, (72+k-ch)<<7]。
func (inst *Instance) updateNoiseMean(g, k, ch int, floor, noiseGlobalQ8, vadflag int16, lk *likelihoods) {
	nmk := inst.noiseMeans[g]

	if vadflag == 0 {
		// (Q14 * Q11 >> 11) = Q14
		delt := int16((int32(lk.ngprvec[g]) * int32(lk.deltaN[g])) >> 11)
		// Q7 + (Q14 * Q15 >> 22) = Q7
		nmk += int16((int32(delt) * kNoiseUpdateConst) >> 22)
	}

	// Q8 - Q8 = Q8
	ndelt := (floor << 4) - noiseGlobalQ8
	// Q7 + (Q8 * Q8) >> 9 = Q7
	nmk += int16((int32(ndelt) * kBackEta) >> 9)

	inst.noiseMeans[g] = spl.Clamp(nmk, int16((k+5)<<7), int16((72+k-ch)<<7))
}

// updateSpeech 语音帧的均值与标准差更新
func (inst *Instance) updateSpeech(g, k int, feature, maxSpeech int16, lk *likelihoods) {
	smk := inst.speechMeans[g]
	ssk := inst.speechStds[g]

	// (Q14 * Q11) >> 11 = Q14
	delt := int16((int32(lk.sgprvec[g]) * int32(lk.deltaS[g])) >> 11)
	// Q14 * Q15 >> 21 = Q8
	step := int16((int32(delt) * kSpeechUpdateConst) >> 21)
	// Q7 + (Q8 >> 1) = Q7，带舍入
	smk2 := smk + ((step + 1) >> 1)

	inst.speechMeans[g] = spl.Clamp(smk2, kMinimumMean[k], maxSpeech+640)

	// 方差更新用旧均值：(Q7 >> 3) = Q4，带舍入
	resid := feature - ((smk + 4) >> 3)
	// (Q11 * Q4 >> 3) = Q12
	tmp := (int32(lk.deltaS[g])*int32(resid))>>3 - 4096
	// (Q14 >> 2) * Q12 = Q24，再 >> 4 得Q20
	tmp = (int32(lk.sgprvec[g]>>2) * tmp) >> 4

	// 0.1 * Q20 / Q7 = Q13
	var q13 int16
	if tmp > 0 {
		q13 = int16(spl.DivW32W16(tmp, ssk*10))
	} else {
		q13 = -int16(spl.DivW32W16(-tmp, ssk*10))
	}
	// 更新因子0.025 (= 0.1 / 4)：(Q13 >> 8) = Q7，加128舍入
	q13 += 128
	ssk += q13 >> 8
	if ssk < kMinStd {
		ssk = kMinStd
	}
	inst.speechStds[g] = ssk
}

// updateNoiseStd 非语音帧的噪声标准差更新
//
// nmk为本帧均值更新之前的噪声均值。
func (inst *Instance) updateNoiseStd(g int, feature, nmk int16, lk *likelihoods) {
	nsk := inst.noiseStds[g]

	// Q4 - (Q7 >> 3) = Q4
	resid := feature - (nmk >> 3)
	// (Q11 * Q4 >> 3) = Q12
	tmp := (int32(lk.deltaN[g])*int32(resid))>>3 - 4096

	// (Q14 >> 2) * Q12 = Q24
	gp := (lk.ngprvec[g] + 2) >> 2
	// 约乘以 2^-10：(Q24 >> 14) = Q20
	tmp = overflowingMulS16ByS32ToS32(gp, tmp) >> 14

	// Q20 / Q7 = Q13
	var q13 int16
	if tmp > 0 {
		q13 = int16(spl.DivW32W16(tmp, nsk))
	} else {
		q13 = -int16(spl.DivW32W16(-tmp, nsk))
	}
	q13 += 32       // 舍入
	nsk += q13 >> 6 // Q13 >> 6 = Q7
	if nsk < kMinStd {
		nsk = kMinStd
	}
	inst.noiseStds[g] = nsk
}

// separateModels 保证语音与噪声模型的最小间距，并限制全局均值上限
func (inst *Instance) separateModels(ch int) {
	// Q14 = Q7 * Q7
	noiseGlobal := weightedAverage(inst.noiseMeans[ch:], 0, kNoiseDataWeights[ch:])
	speechGlobal := weightedAverage(inst.speechMeans[ch:], 0, kSpeechDataWeights[ch:])

	// (Q14 >> 9) - (Q14 >> 9) = Q5
	diff := int16(speechGlobal>>9) - int16(noiseGlobal>>9)
	if diff < kMinimumDifference[ch] {
		gap := kMinimumDifference[ch] - diff

		// 语音上移约0.8*gap，噪声下移约0.2*gap，Q7
		up := int16((13 * int32(gap)) >> 2)
		down := int16((3 * int32(gap)) >> 2)

		speechGlobal = weightedAverage(inst.speechMeans[ch:], up, kSpeechDataWeights[ch:])
		noiseGlobal = weightedAverage(inst.noiseMeans[ch:], -down, kNoiseDataWeights[ch:])
	}

	if excess := int16(speechGlobal>>7) - kMaximumSpeech[ch]; excess > 0 {
		for k := 0; k < kNumGaussians; k++ {
			inst.speechMeans[ch+k*kNumChannels] -= excess
		}
	}
	if excess := int16(noiseGlobal>>7) - kMaximumNoise[ch]; excess > 0 {
		for k := 0; k < kNumGaussians; k++ {
			inst.noiseMeans[ch+k*kNumChannels] -= excess
		}
	}
}

// Package spl 信号处理库 (Signal Processing Library)
//
// 提供VAD核心所依赖的定点运算原语：能量计算、归一化位数、32/16位除法，
// 以及48kHz到8kHz的多级重采样器。所有函数的取整与移位行为与WebRTC
// 信号处理库保持逐位一致。
package spl

import "math/bits"

// 字长边界
const (
	Word16Max int16 = 32767
	Word16Min int16 = -32768
	Word32Max int32 = 0x7fffffff
	Word32Min int32 = -0x80000000
)

// NormW32 返回a可以左移而不溢出的位数
//
// a为0时返回0。负数按其按位取反计算。
func NormW32(a int32) int16 {
	if a == 0 {
		return 0
	}
	ua := uint32(a)
	if a < 0 {
		ua = ^ua
	}
	return int16(bits.LeadingZeros32(ua) - 1)
}

// NormU32 返回无符号32位整数的前导零个数，a为0时返回0
func NormU32(a uint32) int {
	if a == 0 {
		return 0
	}
	return bits.LeadingZeros32(a)
}

// SizeInBits 返回表示n所需的位数
func SizeInBits(n uint32) int {
	return 32 - bits.LeadingZeros32(n)
}

// DivW32W16 32位除以16位的有符号除法，商向零截断
//
// 除数为0时返回0x7FFFFFFF。
func DivW32W16(num int32, den int16) int32 {
	if den == 0 {
		return Word32Max
	}
	return num / int32(den)
}

// scalingSquare 计算平方累加前需要的右移位数，保证times次累加不溢出
func scalingSquare(vector []int16, times int) int {
	nbits := SizeInBits(uint32(times))

	var smax int16 = -1
	for _, v := range vector {
		sabs := v
		if v <= 0 {
			sabs = -v
		}
		if sabs > smax {
			smax = sabs
		}
	}
	if smax == 0 {
		return 0
	}

	t := int(NormW32(int32(smax) * int32(smax)))
	if t > nbits {
		return 0
	}
	return nbits - t
}

// Energy 计算向量的能量（平方和）
//
// 返回:
//   - energy: 每项按scale右移后的平方和
//   - scale: 为防止溢出而执行的右移位数
func Energy(vector []int16) (energy int32, scale int) {
	scale = scalingSquare(vector, len(vector))
	for _, v := range vector {
		energy += (int32(v) * int32(v)) >> uint(scale)
	}
	return energy, scale
}

package gmmvad

import "github.com/bytectlgo/gmmvad/internal/spl"

const (
	kCompVar = 22005 // 指数参数上限（Q10），超过则概率为0
	kLog2Exp = 5909  // log2(exp(1))，Q12
)

// gaussianProbability 计算正态分布在input处的概率密度
//
//	1 / s * exp(-(x - m)^2 / (2 * s^2))
//
// 参数的Q域：
//   - input: x，Q4
//   - mean: m，Q7
//   - std: s，Q7
//
// 返回:
//   - prob: 概率密度，Q20
//   - delta: (x - m) / s^2，Q11，用于更新噪声/语音模型
func gaussianProbability(input, mean, std int16) (prob int32, delta int16) {
	// invStd = 1 / s，Q10
	// 131072为Q17下的1，加上(std >> 1)用于舍入
	// Q17 / Q7 = Q10
	invStd := int16(spl.DivW32W16(131072+int32(std>>1), std))

	// invStd2 = 1 / s^2，Q14
	// (Q8 * Q8) >> 2 = Q14
	tmp16 := invStd >> 2
	invStd2 := int16((int32(tmp16) * int32(tmp16)) >> 2)

	diff := (input << 3) - mean // Q7

	// (Q14 * Q7) >> 10 = Q11
	delta = int16((int32(invStd2) * int32(diff)) >> 10)

	// 指数参数 (x - m)^2 / (2 * s^2)，Q10
	// (Q11 * Q7) >> 8 = Q10，除以2合并进移位
	arg := (int32(delta) * int32(diff)) >> 9

	var expValue int16
	if arg < kCompVar {
		expValue = fastExp2Neg(arg)
	}

	// Q10 * Q10 = Q20
	return int32(invStd) * int32(expValue), delta
}

// fastExp2Neg 计算 exp(-arg)，arg为Q10，结果为Q10
//
// exp(-arg) = 2^(-log2(e)*arg)。取 t = -log2(e)*arg（Q10），
// 小数部分作为尾数 0x0400|(t&0x03FF)，整数部分作为右移位数。
func fastExp2Neg(arg int32) int16 {
	// (Q12 * Q10) >> 12 = Q10
	t := -int16((kLog2Exp * arg) >> 12)
	mantissa := 0x0400 | (t & 0x03FF)

	shift := ((t ^ -1) >> 10) + 1
	return mantissa >> uint(shift)
}

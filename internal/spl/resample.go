package spl

// 全通滤波器系数
var kResampleAllpass = [2][3]int16{
	{821, 6110, 12382},
	{3050, 9368, 15063},
}

// 48kHz到32kHz插值系数（2/3重采样）
var kCoefficients48To32 = [2][8]int16{
	{778, -2050, 1087, 23285, 12903, -3783, 441, 222},
	{222, 441, -3783, 12903, 23285, 1087, -2050, 778},
}

const (
	// Frame48kHz 一次重采样消耗的48kHz样本数（10ms）
	Frame48kHz = 480
	// Frame8kHz 一次重采样产生的8kHz样本数（10ms）
	Frame8kHz = 80

	scratchLen = Frame48kHz + 256
)

// Resampler48To8 48kHz到8kHz的有状态重采样器
//
// 四级级联：
//
//	48kHz -> 24kHz  2倍降采样（全通滤波器对）
//	24kHz -> 24kHz  低通
//	24kHz -> 16kHz  分数重采样 2/3
//	16kHz -> 8kHz   2倍降采样（全通滤波器对）
//
// 零值即为已复位状态。
type Resampler48To8 struct {
	s48to24 [8]int32
	s24to24 [16]int32
	s24to16 [8]int32
	s16to8  [8]int32

	scratch [scratchLen]int32
}

// Reset 清零全部滤波器状态
func (r *Resampler48To8) Reset() {
	*r = Resampler48To8{}
}

// Resample 将480个48kHz样本转换为80个8kHz样本
//
// in长度必须为Frame48kHz，out长度至少为Frame8kHz。
func (r *Resampler48To8) Resample(in, out []int16) {
	tmp := r.scratch[:]

	// 48 -> 24
	downBy2ShortToInt(in[:Frame48kHz], tmp[256:], &r.s48to24)

	// 24 -> 24(LP)
	lpBy2IntToInt(tmp[256:256+240], tmp[16:], &r.s24to24)

	// 24 -> 16，前8个样本来自上一帧
	copy(tmp[8:16], r.s24to16[:])
	copy(r.s24to16[:], tmp[248:256])
	resample48To32(tmp[8:], tmp[:], 80)

	// 16 -> 8
	downBy2IntToShort(tmp[:160], out[:Frame8kHz], &r.s16to8)
}

// allpassSection 三阶全通滤波链的一步
//
// st为该支路的4个状态，coef为对应的系数组。返回更新后的st[3]。
// 第一级舍入，后两级向零截断。
func allpassSection(x int32, st []int32, coef *[3]int16) int32 {
	diff := (x - st[1] + (1 << 13)) >> 14
	tmp1 := st[0] + diff*int32(coef[0])
	st[0] = x

	diff = (tmp1 - st[2]) >> 14
	if diff < 0 {
		diff++
	}
	tmp0 := st[1] + diff*int32(coef[1])
	st[1] = tmp1

	diff = (tmp0 - st[3]) >> 14
	if diff < 0 {
		diff++
	}
	st[3] = st[2] + diff*int32(coef[2])
	st[2] = tmp0
	return st[3]
}

// downBy2ShortToInt int16输入，2倍降采样，int32输出（Q15并带偏移）
func downBy2ShortToInt(in []int16, out []int32, state *[8]int32) {
	half := len(in) >> 1

	// 下支路：偶数样本
	for i := 0; i < half; i++ {
		x := (int32(in[i<<1]) << 15) + (1 << 14)
		out[i] = allpassSection(x, state[0:4], &kResampleAllpass[1]) >> 1
	}

	// 上支路：奇数样本
	for i := 0; i < half; i++ {
		x := (int32(in[(i<<1)+1]) << 15) + (1 << 14)
		out[i] += allpassSection(x, state[4:8], &kResampleAllpass[0]) >> 1
	}
}

// downBy2IntToShort int32输入，2倍降采样，int16输出（饱和）
//
// in会被用作中间缓冲区而被改写。
func downBy2IntToShort(in []int32, out []int16, state *[8]int32) {
	half := len(in) >> 1

	for i := 0; i < half; i++ {
		in[i<<1] = allpassSection(in[i<<1], state[0:4], &kResampleAllpass[1]) >> 1
	}
	for i := 0; i < half; i++ {
		j := (i << 1) + 1
		in[j] = allpassSection(in[j], state[4:8], &kResampleAllpass[0]) >> 1
	}

	// 合并两支路输出
	for i := 0; i < half; i++ {
		out[i] = Sat16((in[i<<1] + in[(i<<1)+1]) >> 15)
	}
}

// lpBy2IntToInt 半带低通，输出长度与输入相同
func lpBy2IntToInt(in []int32, out []int32, state *[16]int32) {
	half := len(in) >> 1

	// 下支路：奇数输入 -> 偶数输出，带一个样本的多相延迟
	x := state[12]
	for i := 0; i < half; i++ {
		out[i<<1] = allpassSection(x, state[0:4], &kResampleAllpass[1]) >> 1
		x = in[(i<<1)+1]
	}

	// 上支路：偶数输入 -> 偶数输出
	for i := 0; i < half; i++ {
		y := allpassSection(in[i<<1], state[4:8], &kResampleAllpass[0])
		out[i<<1] = (out[i<<1] + (y >> 1)) >> 15
	}

	// 下支路：偶数输入 -> 奇数输出
	for i := 0; i < half; i++ {
		out[(i<<1)+1] = allpassSection(in[i<<1], state[8:12], &kResampleAllpass[1]) >> 1
	}

	// 上支路：奇数输入 -> 奇数输出
	for i := 0; i < half; i++ {
		y := allpassSection(in[(i<<1)+1], state[12:16], &kResampleAllpass[0])
		out[(i<<1)+1] = (out[(i<<1)+1] + (y >> 1)) >> 15
	}
}

// resample48To32 分数重采样，每3个输入样本产生2个输出样本
//
// in长度至少为3*k+6。
func resample48To32(in []int32, out []int32, k int) {
	for m := 0; m < k; m++ {
		src := in[3*m:]
		dst := out[2*m:]

		acc := int32(1 << 14)
		for j, c := range kCoefficients48To32[0] {
			acc += int32(c) * src[j]
		}
		dst[0] = acc

		acc = 1 << 14
		for j, c := range kCoefficients48To32[1] {
			acc += int32(c) * src[j+1]
		}
		dst[1] = acc
	}
}

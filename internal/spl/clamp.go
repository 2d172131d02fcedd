package spl

// Integer 约束所有定点运算用到的整数类型
type Integer interface {
	~int | ~int16 | ~int32 | ~int64
}

// Clamp 将value限制在[lo, hi]内，要求lo <= hi
//
//	v := Clamp[int16](nmk, 640, 9216)
func Clamp[T Integer](value, lo, hi T) T {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Sat16 32位值饱和到16位
func Sat16(v int32) int16 {
	return int16(Clamp(v, int32(Word16Min), int32(Word16Max)))
}

package gmmvad

import (
	"sort"

	"github.com/bytectlgo/gmmvad/internal/spl"
)

// 中位数平滑系数
const (
	kSmoothingDown = 6553  // 0.2，Q15
	kSmoothingUp   = 32439 // 0.99，Q15
)

// findMinimum 更新channel的最小值窗口并返回平滑后的最小值
//
// 窗口保存最近100帧内最小的16个特征值及其年龄，按升序排列。
// 取第3小的值（不足3帧时取最小值，尚无数据时取1600）作为当前最小值，
// 再以不对称的系数平滑：下降快，上升慢。
//
// 返回值同时写回meanValue[channel]，作为噪声均值长期修正的参考。
func (inst *Instance) findMinimum(featureValue int16, channel int) int16 {
	offset := channel * kMinWindow
	age := inst.ageVector[offset : offset+kMinWindow]
	values := inst.lowValueVector[offset : offset+kMinWindow]

	// 所有值老化一帧，年龄到达kMaxAge的值移出窗口，较大的值依次前移
	for i := 0; i < kMinWindow; i++ {
		switch {
		case age[i] == kMaxAge:
			copy(values[i:], values[i+1:])
			copy(age[i:], age[i+1:])
			values[kMinWindow-1] = kEmptySlot
			age[kMinWindow-1] = kMaxAge + 1
		case age[i] < kMaxAge:
			age[i]++
		}
	}

	// 严格小于比较，相同值插在已有值之后
	pos := sort.Search(kMinWindow, func(i int) bool {
		return featureValue < values[i]
	})
	if pos < kMinWindow {
		copy(values[pos+1:], values[pos:kMinWindow-1])
		copy(age[pos+1:], age[pos:kMinWindow-1])
		values[pos] = featureValue
		age[pos] = 1
	}

	current := int16(kDefaultFloor)
	if inst.frameCounter > 2 {
		current = values[2]
	} else if inst.frameCounter > 0 {
		current = values[0]
	}

	var alpha int16
	if inst.frameCounter > 0 {
		if current < inst.meanValue[channel] {
			alpha = kSmoothingDown
		} else {
			alpha = kSmoothingUp
		}
	}

	tmp := int32(alpha+1) * int32(inst.meanValue[channel])
	tmp += int32(spl.Word16Max-alpha) * int32(current)
	tmp += 16384
	inst.meanValue[channel] = int16(tmp >> 15)

	return inst.meanValue[channel]
}

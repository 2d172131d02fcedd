package gmmvad

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode 激进度模式
//
// 激进度越高，对语音的判定越严格，误检率降低但可能漏检语音。
type Mode int

const (
	// ModeQuality 质量模式（最不激进）
	ModeQuality Mode = iota
	// ModeLowBitrate 低比特率模式
	ModeLowBitrate
	// ModeAggressive 激进模式
	ModeAggressive
	// ModeVeryAggressive 非常激进模式
	ModeVeryAggressive
)

// DefaultMode Init后生效的模式
const DefaultMode = ModeQuality

var modeNames = [...]string{"quality", "low-bitrate", "aggressive", "very-aggressive"}

// Valid 判断模式是否在0-3范围内
func (m Mode) Valid() bool {
	return m >= ModeQuality && m <= ModeVeryAggressive
}

func (m Mode) String() string {
	if !m.Valid() {
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
	return modeNames[m]
}

// ParseMode 解析数字（"0"-"3"）或名称（"quality"等）形式的模式
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for i, name := range modeNames {
		if s == name {
			return Mode(i), nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || !Mode(n).Valid() {
		return 0, fmt.Errorf("parse mode %q: %w", s, ErrInvalidMode)
	}
	return Mode(n), nil
}

// Thresholds 某一帧长下的判决参数
type Thresholds struct {
	OverhangMax1 int16 // 连续语音帧不足时的拖尾帧数
	OverhangMax2 int16 // 连续语音帧达到上限后的拖尾帧数
	Local        int16 // 单频带对数似然比阈值
	Global       int16 // 加权对数似然比总和阈值
}

// 帧长下标：10ms, 20ms, 30ms
const (
	frame10ms = iota
	frame20ms
	frame30ms
	numFrameSizes
)

// modePresets 各模式在三种帧长下的阈值
var modePresets = [4][numFrameSizes]Thresholds{
	ModeQuality: {
		{OverhangMax1: 8, OverhangMax2: 14, Local: 24, Global: 57},
		{OverhangMax1: 4, OverhangMax2: 7, Local: 21, Global: 48},
		{OverhangMax1: 3, OverhangMax2: 5, Local: 24, Global: 57},
	},
	ModeLowBitrate: {
		{OverhangMax1: 8, OverhangMax2: 14, Local: 37, Global: 100},
		{OverhangMax1: 4, OverhangMax2: 7, Local: 32, Global: 80},
		{OverhangMax1: 3, OverhangMax2: 5, Local: 37, Global: 100},
	},
	ModeAggressive: {
		{OverhangMax1: 6, OverhangMax2: 9, Local: 82, Global: 285},
		{OverhangMax1: 3, OverhangMax2: 5, Local: 78, Global: 260},
		{OverhangMax1: 2, OverhangMax2: 3, Local: 82, Global: 285},
	},
	ModeVeryAggressive: {
		{OverhangMax1: 6, OverhangMax2: 9, Local: 94, Global: 1100},
		{OverhangMax1: 3, OverhangMax2: 5, Local: 94, Global: 1050},
		{OverhangMax1: 2, OverhangMax2: 3, Local: 94, Global: 1100},
	},
}

// Preset 返回模式m在frameMs（10/20/30）下的预设阈值
func Preset(m Mode, frameMs int) (Thresholds, bool) {
	idx, ok := frameIndexMs(frameMs)
	if !m.Valid() || !ok {
		return Thresholds{}, false
	}
	return modePresets[m][idx], true
}

func frameIndexMs(frameMs int) (int, bool) {
	switch frameMs {
	case 10:
		return frame10ms, true
	case 20:
		return frame20ms, true
	case 30:
		return frame30ms, true
	}
	return 0, false
}

// frameIndex 按8kHz下的样本数选择阈值下标
//
// 80和160以外的长度一律按240（30ms）处理。
func frameIndex(length8k int) int {
	switch length8k {
	case 80:
		return frame10ms
	case 160:
		return frame20ms
	default:
		return frame30ms
	}
}

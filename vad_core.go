package gmmvad

import (
	"fmt"

	"github.com/bytectlgo/gmmvad/internal/spl"
)

const (
	// kNumChannels 频带数量
	kNumChannels = 6
	// kNumGaussians 每个频带的高斯分布数量
	kNumGaussians = 2
	// kTableSize 查找表大小
	kTableSize = kNumChannels * kNumGaussians
	// kMinEnergy 触发音频信号的最小能量
	kMinEnergy = 10
	// kInitCheck 初始化检查标志
	kInitCheck = 42
	// kMaxSpeechFrames 最大连续语音帧数
	kMaxSpeechFrames = 6
	// kMinStd 最小标准差（Q7）
	kMinStd = 384
)

// NumChannels 频带数量
const NumChannels = kNumChannels

// 频谱权重
var kSpectrumWeight = [kNumChannels]int16{6, 8, 10, 12, 14, 16}

// 噪声和语音更新常量
const (
	kNoiseUpdateConst  = 655  // Q15
	kSpeechUpdateConst = 6554 // Q15
	kBackEta           = 154  // Q8
)

// 两个模型之间的最小差异（Q5）
var kMinimumDifference = [kNumChannels]int16{544, 544, 576, 576, 576, 576}

// 语音模型均值的上限（Q7）
var kMaximumSpeech = [kNumChannels]int16{11392, 11392, 11520, 11520, 11520, 11520}

// 均值的最小值
var kMinimumMean = [kNumGaussians]int16{640, 768}

// 噪声模型均值的上限（Q7）
var kMaximumNoise = [kNumChannels]int16{9216, 9088, 8960, 8832, 8704, 8576}

// 高斯模型的起始值，下标为 channel + k*kNumChannels

// 噪声的两个高斯权重
var kNoiseDataWeights = [kTableSize]int16{
	34, 62, 72, 66, 53, 25, 94, 66, 56, 62, 75, 103,
}

// 语音的两个高斯权重
var kSpeechDataWeights = [kTableSize]int16{
	48, 82, 45, 87, 50, 47, 80, 46, 83, 41, 78, 81,
}

// 噪声的两个高斯均值（Q7）
var kNoiseDataMeans = [kTableSize]int16{
	6738, 4892, 7065, 6715, 6771, 3369, 7646, 3863, 7820, 7266, 5020, 4362,
}

// 语音的两个高斯均值（Q7）
var kSpeechDataMeans = [kTableSize]int16{
	8306, 10085, 10078, 11823, 11843, 6309, 9473, 9571, 10879, 7581, 8180, 7483,
}

// 噪声的两个高斯标准差（Q7）
var kNoiseDataStds = [kTableSize]int16{
	378, 1064, 493, 582, 688, 593, 474, 697, 475, 688, 421, 455,
}

// 语音的两个高斯标准差（Q7）
var kSpeechDataStds = [kTableSize]int16{
	555, 505, 567, 524, 585, 1231, 509, 828, 492, 1540, 1079, 850,
}

// 最小值跟踪器
const (
	kMinWindow    = 16    // 每个频带保留的最小值个数
	kMaxAge       = 100   // 超过该年龄的值被移出窗口
	kEmptySlot    = 10000 // 空槽位的哨兵值
	kDefaultFloor = 1600  // 尚无数据时的最小值
)

// Instance VAD核心实例
//
// 零值为未初始化状态，使用前必须调用Init。实例不可并发使用，
// 每路音频流应独占一个实例，且按时间顺序送入帧。
type Instance struct {
	vad int

	// 前端重采样
	downsamplingStates [4]int32
	resampler          spl.Resampler48To8

	// 高斯混合模型
	noiseMeans  [kTableSize]int16
	speechMeans [kTableSize]int16
	noiseStds   [kTableSize]int16
	speechStds  [kTableSize]int16

	// 判决状态
	frameCounter int32
	overHang     int16
	numOfSpeech  int16

	// 最小值跟踪窗口
	ageVector      [kMinWindow * kNumChannels]int16
	lowValueVector [kMinWindow * kNumChannels]int16
	meanValue      [kNumChannels]int16

	// 滤波器组状态，Q(-1)
	upperState    [5]int16
	lowerState    [5]int16
	hpFilterState [4]int16

	// 按帧长（10/20/30ms）索引的阈值
	thresholds [numFrameSizes]Thresholds
	mode       Mode

	initFlag int
}

// Init 初始化实例
//
// 清零所有滤波器与计数器状态，载入默认高斯模型，复位最小值窗口，
// 并应用DefaultMode。
func (inst *Instance) Init() error {
	if inst == nil {
		return ErrNilInstance
	}

	*inst = Instance{vad: 1}

	inst.noiseMeans = kNoiseDataMeans
	inst.speechMeans = kSpeechDataMeans
	inst.noiseStds = kNoiseDataStds
	inst.speechStds = kSpeechDataStds

	for i := range inst.lowValueVector {
		inst.lowValueVector[i] = kEmptySlot
	}
	for i := range inst.meanValue {
		inst.meanValue[i] = kDefaultFloor
	}

	inst.applyMode(DefaultMode)
	inst.initFlag = kInitCheck
	return nil
}

// Initialized 实例是否已初始化
func (inst *Instance) Initialized() bool {
	return inst != nil && inst.initFlag == kInitCheck
}

// SetMode 设置激进度模式
//
// 只改写阈值表，高斯模型和计数器保持不变，因此可以在帧之间切换模式。
// 无效模式返回ErrInvalidMode且不修改任何状态。
func (inst *Instance) SetMode(mode Mode) error {
	if !inst.Initialized() {
		return ErrNotInitialized
	}
	if !mode.Valid() {
		return fmt.Errorf("set mode %d: %w", int(mode), ErrInvalidMode)
	}
	inst.applyMode(mode)
	return nil
}

func (inst *Instance) applyMode(mode Mode) {
	inst.thresholds = modePresets[mode]
	inst.mode = mode
}

// Mode 返回当前模式
func (inst *Instance) Mode() Mode {
	return inst.mode
}

// Thresholds 返回frameMs（10/20/30）下当前生效的阈值
func (inst *Instance) Thresholds(frameMs int) (Thresholds, bool) {
	idx, ok := frameIndexMs(frameMs)
	if !ok {
		return Thresholds{}, false
	}
	return inst.thresholds[idx], true
}

// LastDecision 返回最近一帧的原始判决值
func (inst *Instance) LastDecision() int {
	return inst.vad
}

// Model 高斯模型参数快照（Q7），下标为 channel + k*NumChannels
type Model struct {
	NoiseMeans  [kTableSize]int16
	SpeechMeans [kTableSize]int16
	NoiseStds   [kTableSize]int16
	SpeechStds  [kTableSize]int16
}

// Model 返回当前高斯模型的副本
func (inst *Instance) Model() Model {
	return Model{
		NoiseMeans:  inst.noiseMeans,
		SpeechMeans: inst.speechMeans,
		NoiseStds:   inst.noiseStds,
		SpeechStds:  inst.speechStds,
	}
}

// NoiseFloor 返回各频带平滑后的最小特征值（Q4）
func (inst *Instance) NoiseFloor() [kNumChannels]int16 {
	return inst.meanValue
}

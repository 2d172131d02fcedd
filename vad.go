// Package gmmvad 提供纯Go、全定点运算的语音活动检测(VAD)
//
// 检测流程：前端重采样到8kHz，滤波器组分成六个子带，计算对数能量特征，
// 每个子带用两分量高斯混合模型分别描述噪声与语音，做似然比检验并在线
// 更新模型，最后经拖尾状态机平滑。整个过程只使用整数运算，结果可逐位复现。
//
// 使用示例:
//
//	vad, err := gmmvad.New(gmmvad.ModeLowBitrate)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// 检测16位PCM音频（16kHz采样率，10ms帧长）
//	isSpeech, err := vad.IsSpeech(audioData, 16000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// VAD与Instance都不是并发安全的，每路音频流使用独立的实例。
package gmmvad

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// VAD 语音活动检测器
type VAD struct {
	inst Instance
}

// New 创建一个新的VAD实例
//
// mode 参数控制检测的激进程度：
//   - 0: 质量模式（最不激进，更容易检测到语音）
//   - 1: 低比特率模式
//   - 2: 激进模式
//   - 3: 非常激进模式（最激进，更严格的语音判定）
func New(mode Mode) (*VAD, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("new VAD with mode %d: %w", int(mode), ErrInvalidMode)
	}

	v := &VAD{}
	if err := v.inst.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize VAD: %w", err)
	}
	if err := v.inst.SetMode(mode); err != nil {
		return nil, fmt.Errorf("failed to set mode: %w", err)
	}
	return v, nil
}

// SetMode 设置VAD的激进度模式，不影响已经学到的模型
func (v *VAD) SetMode(mode Mode) error {
	return v.inst.SetMode(mode)
}

// Mode 返回当前模式
func (v *VAD) Mode() Mode {
	return v.inst.Mode()
}

// Reset 重新初始化，丢弃已学到的模型和滤波器状态，保留当前模式
func (v *VAD) Reset() error {
	mode := v.inst.Mode()
	if err := v.inst.Init(); err != nil {
		return err
	}
	return v.inst.SetMode(mode)
}

// Instance 返回底层核心实例，用于诊断
func (v *VAD) Instance() *Instance {
	return &v.inst
}

// Decide 对一帧小端序16位PCM做判决，返回原始判决值
//
// 返回值为0（非语音）、1（语音）或2+拖尾帧数（语音结束后的拖尾期）。
// 拖尾值最大可达2+OverhangMax2，由调用方决定是否二值化。
func (v *VAD) Decide(buf []byte, sampleRate int) (int, error) {
	if len(buf)%2 != 0 {
		return -1, fmt.Errorf("odd byte count %d: %w", len(buf), ErrInvalidFrameLength)
	}

	var samples [1440]int16
	n := len(buf) / 2
	if n > len(samples) {
		return -1, fmt.Errorf("frame of %d samples at %d Hz: %w", n, sampleRate, ErrInvalidFrameLength)
	}
	bytesToInt16(buf, samples[:n])

	return v.inst.Process(sampleRate, samples[:n])
}

// IsSpeech 检测音频帧中是否包含语音
//
// 参数:
//   - buf: 16位小端序PCM音频数据（字节数组）
//   - sampleRate: 采样率，必须是8000, 16000, 32000或48000 Hz
//
// 注意：
//   - 音频帧长度必须是10ms、20ms或30ms
//   - buf长度应该是 (sampleRate * frameDurationMs / 1000) * 2 字节
func (v *VAD) IsSpeech(buf []byte, sampleRate int) (bool, error) {
	d, err := v.Decide(buf, sampleRate)
	if err != nil {
		return false, err
	}
	return d > 0, nil
}

// IsSpeechSamples 与IsSpeech相同，但直接接受样本
func (v *VAD) IsSpeechSamples(frame []int16, sampleRate int) (bool, error) {
	d, err := v.inst.Process(sampleRate, frame)
	if err != nil {
		return false, err
	}
	return d > 0, nil
}

// IsSpeechBatch 批量检测多个音频帧，帧必须按时间顺序排列
func (v *VAD) IsSpeechBatch(frames [][]byte, sampleRate int) ([]bool, error) {
	results := make([]bool, len(frames))
	if err := v.IsSpeechBatchTo(frames, sampleRate, results); err != nil {
		return results, err
	}
	return results, nil
}

// IsSpeechBatchTo 批量检测，结果写入预分配的results（长度应 >= len(frames)）
func (v *VAD) IsSpeechBatchTo(frames [][]byte, sampleRate int, results []bool) error {
	if len(results) < len(frames) {
		return fmt.Errorf("%d results for %d frames: %w", len(results), len(frames), ErrBufferTooSmall)
	}

	for i, frame := range frames {
		isSpeech, err := v.IsSpeech(frame, sampleRate)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		results[i] = isSpeech
	}
	return nil
}

// bytesToInt16 将小端序字节转换为样本，out长度为 len(buf)/2
func bytesToInt16(buf []byte, out []int16) {
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(buf[2*i:]))
	}
}

// IsConfigError 判断err是否为参数类错误（模式、采样率或帧长无效）
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidMode) ||
		errors.Is(err, ErrInvalidSampleRate) ||
		errors.Is(err, ErrInvalidFrameLength)
}

package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
)

// pcmInput 已解码的单声道16位音频
type pcmInput struct {
	samples    []int16
	sampleRate int
	fromWAV    bool
}

// readInput 读取原始PCM（16位小端序）或WAV文件
//
// format为"auto"时按扩展名和RIFF头判断。WAV文件的采样率取自文件头。
func readInput(path, format string, sampleRate int) (*pcmInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if format == "wav" || (format == "auto" && looksLikeWAV(path, data)) {
		return decodeWAV(data)
	}

	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	return &pcmInput{samples: samples, sampleRate: sampleRate}, nil
}

func looksLikeWAV(path string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return true
	}
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

func decodeWAV(data []byte) (*pcmInput, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("audio file is not a valid WAV file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM buffer: %w", err)
	}
	if buf.Format.NumChannels != 1 {
		return nil, fmt.Errorf("expected mono, got %d channels", buf.Format.NumChannels)
	}
	if decoder.BitDepth != 16 {
		return nil, fmt.Errorf("expected 16-bit samples, got %d-bit", decoder.BitDepth)
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}
	return &pcmInput{samples: samples, sampleRate: buf.Format.SampleRate, fromWAV: true}, nil
}

// Package config 加载gmmvad命令行工具的配置：YAML文件、.env与GMMVAD_*环境变量
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bytectlgo/gmmvad"
)

// 环境变量覆盖
const (
	EnvMode       = "GMMVAD_MODE"
	EnvSampleRate = "GMMVAD_SAMPLE_RATE"
	EnvFrameMs    = "GMMVAD_FRAME_MS"
	EnvLogLevel   = "GMMVAD_LOG_LEVEL"
)

// Config 检测器配置
type Config struct {
	Mode       int    `yaml:"mode"`         // 0-3
	SampleRate int    `yaml:"sample_rate"`  // Hz，WAV文件以文件头为准
	FrameMs    int    `yaml:"frame_ms"`     // 10、20或30
	Raw        bool   `yaml:"raw_decision"` // 输出原始判决值而不是0/1
	Format     string `yaml:"format"`       // "auto"、"raw"或"wav"
	LogLevel   string `yaml:"log_level"`    // debug/info/warn/error
}

// DefaultConfig 默认配置：质量模式, 16kHz, 20ms
func DefaultConfig() *Config {
	return &Config{
		Mode:       int(gmmvad.DefaultMode),
		SampleRate: 16000,
		FrameMs:    20,
		Format:     "auto",
		LogLevel:   "info",
	}
}

// Load 返回默认配置，并应用.env与环境变量覆盖
func Load() (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom 从YAML文件加载配置，再应用环境变量覆盖
//
// 文件内容中的${VAR}在解析前展开。
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 加载当前目录的.env（如存在），并应用GMMVAD_*变量
func (c *Config) applyEnv() error {
	_ = godotenv.Load()

	for _, o := range []struct {
		key string
		dst *int
	}{
		{EnvMode, &c.Mode},
		{EnvSampleRate, &c.SampleRate},
		{EnvFrameMs, &c.FrameMs},
	} {
		v := strings.TrimSpace(os.Getenv(o.key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", o.key, v, err)
		}
		*o.dst = n
	}

	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate 检查模式、采样率、帧长度与输入格式
func (c *Config) Validate() error {
	if !gmmvad.Mode(c.Mode).Valid() {
		return fmt.Errorf("config mode %d: %w", c.Mode, gmmvad.ErrInvalidMode)
	}
	if gmmvad.FrameLength(c.SampleRate, 10) == 0 {
		return fmt.Errorf("config sample_rate %d: %w", c.SampleRate, gmmvad.ErrInvalidSampleRate)
	}
	if gmmvad.FrameLength(c.SampleRate, c.FrameMs) == 0 {
		return fmt.Errorf("config frame_ms %d: %w", c.FrameMs, gmmvad.ErrInvalidFrameLength)
	}
	switch c.Format {
	case "auto", "raw", "wav":
	default:
		return fmt.Errorf("config format %q: must be auto, raw or wav", c.Format)
	}
	return nil
}

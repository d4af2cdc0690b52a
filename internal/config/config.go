package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Audio         AudioConfig         `yaml:"audio"`
	Storage       StorageConfig       `yaml:"storage"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
}

// AudioConfig contains the fixed capture parameters for recording sessions
type AudioConfig struct {
	SampleRate  int `yaml:"sample_rate"`
	Channels    int `yaml:"channels"`
	BitDepth    int `yaml:"bit_depth"`
	ChunkSize   int `yaml:"chunk_size"`   // samples per capture read
	StopTimeout int `yaml:"stop_timeout"` // seconds to wait for the capture worker on stop
}

// StorageConfig contains file store configuration
type StorageConfig struct {
	DownloadDir string `yaml:"download_dir"`
	FFmpegPath  string `yaml:"ffmpeg_path"`
}

// TranscriptionConfig contains speech recognition API configuration
type TranscriptionConfig struct {
	Endpoint        string   `yaml:"endpoint"`
	APIKey          string   `yaml:"api_key"`
	Timeout         int      `yaml:"timeout"` // seconds
	MaxRetries      int      `yaml:"max_retries"`
	MaxConcurrent   int      `yaml:"max_concurrent"`
	DefaultLanguage string   `yaml:"default_language"`
	DetectLanguages []string `yaml:"detect_languages"` // probed when no language is given
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs validation of the complete configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	return nil
}

// Validate validates audio capture configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 44100 {
		return fmt.Errorf("sample_rate must be 44100 Hz, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	if a.ChunkSize < 64 || a.ChunkSize > 8192 {
		return fmt.Errorf("chunk_size must be between 64 and 8192 samples, got %d", a.ChunkSize)
	}

	if a.StopTimeout < 1 {
		return fmt.Errorf("stop_timeout must be at least 1 second, got %d", a.StopTimeout)
	}

	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	if s.DownloadDir == "" {
		return fmt.Errorf("download_dir cannot be empty")
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	if t.DefaultLanguage == "" {
		return fmt.Errorf("default_language cannot be empty")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetStopTimeoutDuration returns the capture worker stop timeout as a time.Duration
func (a *AudioConfig) GetStopTimeoutDuration() time.Duration {
	return time.Duration(a.StopTimeout) * time.Second
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

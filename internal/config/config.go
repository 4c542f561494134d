// Package config assembles the daemon settings from defaults, an optional
// YAML file, the environment and command-line flags, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DarkMode bool   `yaml:"dark_mode"`
	UserName string `yaml:"user_name"`

	SampleRate   int           `yaml:"sample_rate"`
	FrameSize    int           `yaml:"frame_size"`
	MaxRecording time.Duration `yaml:"max_recording"`

	TranscribeTimeout time.Duration `yaml:"transcribe_timeout"`
	TranscribeDelay   time.Duration `yaml:"transcribe_delay"`

	FrameInterval time.Duration `yaml:"frame_interval"`
	SurfaceWidth  float64       `yaml:"surface_width"`
	SurfaceHeight float64       `yaml:"surface_height"`
	SurfaceCols   int           `yaml:"surface_cols"`
	SurfaceRows   int           `yaml:"surface_rows"`

	BeepFile   string  `yaml:"beep_file"`
	Duck       bool    `yaml:"duck"`
	DuckFactor float64 `yaml:"duck_factor"`

	BusURL    string `yaml:"bus_url"`
	Proxy     string `yaml:"proxy"`
	Socket    string `yaml:"socket"`
	HandleDir string `yaml:"handle_dir"`
}

func Default() Config {
	return Config{
		DarkMode: true,
		UserName: "you",

		SampleRate:   16000,
		FrameSize:    1024,
		MaxRecording: 2 * time.Minute,

		TranscribeTimeout: 30 * time.Second,
		TranscribeDelay:   1500 * time.Millisecond,

		FrameInterval: time.Second / 60,
		SurfaceWidth:  200,
		SurfaceHeight: 60,
		SurfaceCols:   50,
		SurfaceRows:   6,

		BeepFile:   "beep.mp3",
		DuckFactor: 0.3,
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped
// when path is empty) and then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.UserName = getEnv("VOXCHAT_USER", c.UserName)
	c.BeepFile = getEnv("VOXCHAT_BEEP", c.BeepFile)
	c.BusURL = getEnv("BUS_URL", c.BusURL)
	c.Proxy = getEnv("VOXCHAT_PROXY", c.Proxy)
	c.Socket = getEnv("VOXCHAT_SOCKET", c.Socket)
	c.HandleDir = getEnv("VOXCHAT_HANDLE_DIR", c.HandleDir)
	c.DarkMode = getBoolEnv("VOXCHAT_DARK_MODE", c.DarkMode)
	c.Duck = getBoolEnv("VOXCHAT_DUCK", c.Duck)

	var err error
	if c.SampleRate, err = getIntEnv("VOXCHAT_SAMPLE_RATE", c.SampleRate); err != nil {
		return err
	}
	if c.MaxRecording, err = getDurationEnv("VOXCHAT_MAX_RECORDING", c.MaxRecording); err != nil {
		return err
	}
	if c.TranscribeTimeout, err = getDurationEnv("VOXCHAT_TRANSCRIBE_TIMEOUT", c.TranscribeTimeout); err != nil {
		return err
	}
	if c.TranscribeDelay, err = getDurationEnv("VOXCHAT_TRANSCRIBE_DELAY", c.TranscribeDelay); err != nil {
		return err
	}
	return nil
}

// Validate rejects settings the daemon cannot run with.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	case c.FrameSize <= 0:
		return fmt.Errorf("frame_size must be positive, got %d", c.FrameSize)
	case c.SurfaceWidth <= 0 || c.SurfaceHeight <= 0:
		return fmt.Errorf("surface size must be positive, got %vx%v", c.SurfaceWidth, c.SurfaceHeight)
	case c.SurfaceCols <= 0 || c.SurfaceRows <= 0:
		return fmt.Errorf("surface grid must be positive, got %dx%d", c.SurfaceCols, c.SurfaceRows)
	case c.DuckFactor < 0 || c.DuckFactor > 1:
		return fmt.Errorf("duck_factor must be within [0,1], got %v", c.DuckFactor)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "TRUE"
}

func getIntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDurationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"chrisper/pkg/hotkey"
)

// EnvPath names the variable that points at the config file.
const EnvPath = "CHRISPER_CONFIG"

// AudioConfig describes microphone capture.
type AudioConfig struct {
	SampleRate int     `yaml:"sample_rate"`
	ChunkMs    int     `yaml:"chunk_ms"`
	Gain       float64 `yaml:"gain"`
}

// FramesPerChunk is the number of samples captured per streamed chunk.
func (a AudioConfig) FramesPerChunk() int {
	return a.SampleRate * a.ChunkMs / 1000
}

// SpeechConfig controls the streaming recognizer and its credentials.
type SpeechConfig struct {
	Language          string `yaml:"language"`
	Punctuation       bool   `yaml:"punctuation"`
	SpokenPunctuation bool   `yaml:"spoken_punctuation"`
	InterimResults    bool   `yaml:"interim_results"`
	Model             string `yaml:"model"`
	Enhanced          bool   `yaml:"enhanced"`
	APIKey            string `yaml:"api_key"`
	CredentialsFile   string `yaml:"credentials_file"`
}

// TypingConfig paces injected keystrokes.
type TypingConfig struct {
	KeyDelayMs   int `yaml:"key_delay_ms"`
	StartDelayMs int `yaml:"start_delay_ms"`
}

// HotkeyConfig holds the global shortcuts, e.g. "ctrl+space".
type HotkeyConfig struct {
	Toggle    string `yaml:"toggle"`
	Terminate string `yaml:"terminate"`
}

// LogConfig selects the log level and file.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Config is the whole application configuration.
type Config struct {
	Audio   AudioConfig  `yaml:"audio"`
	Speech  SpeechConfig `yaml:"speech"`
	Typing  TypingConfig `yaml:"typing"`
	Hotkeys HotkeyConfig `yaml:"hotkeys"`
	Log     LogConfig    `yaml:"log"`
}

// Default returns the settings used when no file is present: 16 kHz mono
// audio in 100 ms chunks, en-US with punctuation and interim results.
func Default() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate: 16000,
			ChunkMs:    100,
			Gain:       1,
		},
		Speech: SpeechConfig{
			Language:          "en-US",
			Punctuation:       true,
			SpokenPunctuation: true,
			InterimResults:    true,
		},
		Typing: TypingConfig{
			StartDelayMs: 200,
		},
		Hotkeys: HotkeyConfig{
			Toggle:    "ctrl+space",
			Terminate: "ctrl+shift+esc",
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(os.TempDir(), "chrisper.log"),
		},
	}
}

// Load reads path (or $CHRISPER_CONFIG when path is empty) over the
// defaults and applies environment overrides. A missing file is not an
// error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CHRISPER_LANGUAGE"); v != "" {
		cfg.Speech.Language = v
	}
	if v := os.Getenv("CHRISPER_API_KEY"); v != "" {
		cfg.Speech.APIKey = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" && cfg.Speech.CredentialsFile == "" {
		cfg.Speech.CredentialsFile = v
	}
	if v := os.Getenv("CHRISPER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.ChunkMs <= 0 {
		return fmt.Errorf("audio.chunk_ms must be positive, got %d", c.Audio.ChunkMs)
	}
	if c.Audio.FramesPerChunk() == 0 {
		return errors.New("audio chunk holds no samples")
	}
	if c.Audio.Gain <= 0 {
		return fmt.Errorf("audio.gain must be positive, got %g", c.Audio.Gain)
	}
	if strings.TrimSpace(c.Speech.Language) == "" {
		return errors.New("speech.language is required")
	}
	if c.Typing.KeyDelayMs < 0 || c.Typing.StartDelayMs < 0 {
		return errors.New("typing delays must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	if _, err := hotkey.Parse(c.Hotkeys.Toggle); err != nil {
		return fmt.Errorf("hotkeys.toggle: %w", err)
	}
	if _, err := hotkey.Parse(c.Hotkeys.Terminate); err != nil {
		return fmt.Errorf("hotkeys.terminate: %w", err)
	}
	return nil
}

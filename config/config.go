// Package config loads scribe settings: built-in defaults, then an optional
// YAML file, then SCRIBE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type EngineConfig struct {
	Provider        string  `yaml:"provider"`
	Model           string  `yaml:"model"`
	RealtimeModel   string  `yaml:"realtime_model"`
	Language        string  `yaml:"language"`
	Realtime        bool    `yaml:"realtime"`
	EnergyThreshold float64 `yaml:"energy_threshold"`
	SpeechStartMS   int     `yaml:"speech_start_ms"`
	PreRollMS       int     `yaml:"pre_roll_ms"`
	MinUtteranceMS  int     `yaml:"min_utterance_ms"`
	RealtimePauseMS int     `yaml:"realtime_pause_ms"`
	MaxUtteranceS   int     `yaml:"max_utterance_s"`
}

type AudioConfig struct {
	Device     int `yaml:"device"` // -1 prompts for a device
	SampleRate int `yaml:"sample_rate"`
	Gain       int `yaml:"gain"`
}

type Config struct {
	Root        string       `yaml:"root"`
	LogPath     string       `yaml:"log_path"`
	Debug       bool         `yaml:"debug"`
	MetricsBind string       `yaml:"metrics_bind"`
	Engine      EngineConfig `yaml:"engine"`
	Audio       AudioConfig  `yaml:"audio"`
}

func Default() Config {
	return Config{
		Engine: EngineConfig{
			Language:        "en",
			Realtime:        true,
			EnergyThreshold: 0.02,
			SpeechStartMS:   100,
			PreRollMS:       300,
			MinUtteranceMS:  500,
			RealtimePauseMS: 200,
			MaxUtteranceS:   60,
		},
		Audio: AudioConfig{
			Device:     -1,
			SampleRate: 16000,
			Gain:       8,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Root, "SCRIBE_ROOT")
	overrideString(&cfg.LogPath, "SCRIBE_LOG_PATH")
	overrideBool(&cfg.Debug, "SCRIBE_DEBUG")
	overrideString(&cfg.MetricsBind, "SCRIBE_METRICS_BIND")
	overrideString(&cfg.Engine.Provider, "SCRIBE_PROVIDER")
	overrideString(&cfg.Engine.Model, "SCRIBE_MODEL")
	overrideString(&cfg.Engine.RealtimeModel, "SCRIBE_REALTIME_MODEL")
	overrideString(&cfg.Engine.Language, "SCRIBE_LANGUAGE")
	overrideBool(&cfg.Engine.Realtime, "SCRIBE_REALTIME")
	overrideFloat(&cfg.Engine.EnergyThreshold, "SCRIBE_ENERGY_THRESHOLD")
	overrideInt(&cfg.Engine.SpeechStartMS, "SCRIBE_SPEECH_START_MS")
	overrideInt(&cfg.Engine.PreRollMS, "SCRIBE_PRE_ROLL_MS")
	overrideInt(&cfg.Engine.MinUtteranceMS, "SCRIBE_MIN_UTTERANCE_MS")
	overrideInt(&cfg.Engine.RealtimePauseMS, "SCRIBE_REALTIME_PAUSE_MS")
	overrideInt(&cfg.Engine.MaxUtteranceS, "SCRIBE_MAX_UTTERANCE_S")
	overrideInt(&cfg.Audio.Device, "SCRIBE_DEVICE")
	overrideInt(&cfg.Audio.Gain, "SCRIBE_GAIN")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

// Validate checks a config after flags have been applied on top of it.
func Validate(cfg Config) error {
	switch cfg.Engine.Provider {
	case "", "groq", "deepgram":
	default:
		return errors.New("engine.provider must be one of groq|deepgram")
	}
	if cfg.Engine.EnergyThreshold <= 0 || cfg.Engine.EnergyThreshold >= 1 {
		return errors.New("engine.energy_threshold must be between 0 and 1")
	}
	if cfg.Engine.SpeechStartMS < 0 || cfg.Engine.PreRollMS < 0 || cfg.Engine.MinUtteranceMS < 0 {
		return errors.New("engine timings must be >= 0")
	}
	if cfg.Engine.Realtime && cfg.Engine.RealtimePauseMS <= 0 {
		return errors.New("engine.realtime_pause_ms must be positive when realtime is enabled")
	}
	if cfg.Engine.MaxUtteranceS < 0 {
		return errors.New("engine.max_utterance_s must be >= 0")
	}
	if cfg.Audio.Device < -1 {
		return errors.New("audio.device must be -1 (prompt) or a device index")
	}
	if cfg.Audio.SampleRate != 16000 {
		return errors.New("audio.sample_rate must be 16000")
	}
	if cfg.Audio.Gain < 1 {
		return errors.New("audio.gain must be >= 1")
	}
	return nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (e EngineConfig) SpeechStart() time.Duration   { return ms(e.SpeechStartMS) }
func (e EngineConfig) PreRoll() time.Duration       { return ms(e.PreRollMS) }
func (e EngineConfig) MinUtterance() time.Duration  { return ms(e.MinUtteranceMS) }
func (e EngineConfig) RealtimePause() time.Duration { return ms(e.RealtimePauseMS) }
func (e EngineConfig) MaxUtterance() time.Duration {
	return time.Duration(e.MaxUtteranceS) * time.Second
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fmueller/speech2symbol/internal/language"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "SPEECH2SYMBOL_"

type RecognizerConfig struct {
	APIKey          string        `yaml:"api_key"`
	CredentialsFile string        `yaml:"credentials_file"`
	Endpoint        string        `yaml:"endpoint"`
	Model           string        `yaml:"model"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

type CaptureConfig struct {
	Backend              string        `yaml:"backend"`
	Input                string        `yaml:"input"`
	InputFormat          string        `yaml:"input_format"`
	Duration             time.Duration `yaml:"duration"`
	SampleRate           int           `yaml:"sample_rate"`
	SilenceGate          bool          `yaml:"silence_gate"`
	SilenceThresholdDBFS float64       `yaml:"silence_threshold_dbfs"`
}

type FeedbackConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	Language          string           `yaml:"language"`
	JournalPath       string           `yaml:"journal_path"`
	JournalTimestamps bool             `yaml:"journal_timestamps"`
	SymbolsPath       string           `yaml:"symbols_path"`
	Recognizer        RecognizerConfig `yaml:"recognizer"`
	Capture           CaptureConfig    `yaml:"capture"`
	Feedback          FeedbackConfig   `yaml:"feedback"`
}

func Default() Config {
	return Config{
		Language: language.DefaultName,
		Recognizer: RecognizerConfig{
			RequestTimeout: 30 * time.Second,
		},
		Capture: CaptureConfig{
			Backend:              "auto",
			Duration:             5 * time.Second,
			SampleRate:           16000,
			SilenceGate:          true,
			SilenceThresholdDBFS: -65,
		},
		Feedback: FeedbackConfig{
			Enabled: true,
		},
	}
}

// Load reads path on top of the defaults and applies environment overrides.
// An empty path skips the file. The result is not validated so callers can
// layer flags on top before calling Validate.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from path into the process environment
// without replacing variables that are already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Language, envPrefix+"LANGUAGE")
	overrideString(&cfg.JournalPath, envPrefix+"JOURNAL_PATH")
	overrideBool(&cfg.JournalTimestamps, envPrefix+"JOURNAL_TIMESTAMPS")
	overrideString(&cfg.SymbolsPath, envPrefix+"SYMBOLS_PATH")
	overrideString(&cfg.Recognizer.APIKey, envPrefix+"API_KEY")
	overrideString(&cfg.Recognizer.CredentialsFile, envPrefix+"CREDENTIALS_FILE")
	overrideString(&cfg.Recognizer.Endpoint, envPrefix+"ENDPOINT")
	overrideString(&cfg.Recognizer.Model, envPrefix+"MODEL")
	overrideDuration(&cfg.Recognizer.RequestTimeout, envPrefix+"REQUEST_TIMEOUT")
	overrideString(&cfg.Capture.Backend, envPrefix+"BACKEND")
	overrideString(&cfg.Capture.Input, envPrefix+"INPUT")
	overrideString(&cfg.Capture.InputFormat, envPrefix+"INPUT_FORMAT")
	overrideDuration(&cfg.Capture.Duration, envPrefix+"DURATION")
	overrideInt(&cfg.Capture.SampleRate, envPrefix+"SAMPLE_RATE")
	overrideBool(&cfg.Capture.SilenceGate, envPrefix+"SILENCE_GATE")
	overrideFloat(&cfg.Capture.SilenceThresholdDBFS, envPrefix+"SILENCE_THRESHOLD_DBFS")
	overrideBool(&cfg.Feedback.Enabled, envPrefix+"FEEDBACK")
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

func overrideDuration(target *time.Duration, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			*target = parsed
		}
	}
}

var backends = []string{"auto", "pw-record", "arecord", "ffmpeg"}

func (c Config) Validate() error {
	if _, err := language.Parse(c.Language); err != nil {
		return fmt.Errorf("language: %w", err)
	}
	if c.Recognizer.RequestTimeout <= 0 {
		return errors.New("recognizer.request_timeout must be positive")
	}
	if c.Capture.Duration <= 0 {
		return errors.New("capture.duration must be positive")
	}
	if c.Capture.SampleRate <= 0 {
		return errors.New("capture.sample_rate must be positive")
	}
	if c.Capture.SilenceThresholdDBFS >= 0 {
		return errors.New("capture.silence_threshold_dbfs must be below 0")
	}

	backend := strings.TrimSpace(c.Capture.Backend)
	for _, known := range backends {
		if backend == known {
			return nil
		}
	}
	return fmt.Errorf("capture.backend must be one of %s, got %q", strings.Join(backends, ", "), c.Capture.Backend)
}

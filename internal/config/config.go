package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"

	"github.com/hirelens/interview-pulse/internal/scoring"
)

// EnvPrefix is the namespace prefix for all Interview Pulse environment
// variables.
const EnvPrefix = "INTERVIEW_PULSE_"

// Config holds all application configuration. Secrets (API keys, store
// passwords) are loaded exclusively from environment variables and never
// appear in the config file.
type Config struct {
	ListenAddr   string  `yaml:"listen_addr"`
	DBPath       string  `yaml:"db_path"`
	ValkeyAddr   string  `yaml:"valkey_addr"`
	LogLevel     string  `yaml:"log_level"`
	Transcriber  string  `yaml:"transcriber"`
	WhisperModel string  `yaml:"whisper_model"`
	EmotionModel string  `yaml:"emotion_model"`
	SampleRate   int     `yaml:"sample_rate"`
	FlushSeconds float64 `yaml:"flush_seconds"`
	TrendWindow  int     `yaml:"trend_window"`
	QueueSize    int     `yaml:"queue_size"`
	ActiveTTL    string  `yaml:"active_ttl"`
	CompletedTTL string  `yaml:"completed_ttl"`
	IdleTimeout  string  `yaml:"idle_timeout"`

	Weights scoring.Weights `yaml:"score_weights"`

	GDriveFolderID        string `yaml:"gdrive_folder_id"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`

	// Secrets, env vars only, never serialized to YAML.
	OpenAIAPIKey   string `yaml:"-"`
	DeepgramAPIKey string `yaml:"-"`
	ValkeyPassword string `yaml:"-"`
}

func defaults() Config {
	return Config{
		ListenAddr:   ":8080",
		DBPath:       "data/interview-pulse.db",
		LogLevel:     "info",
		Transcriber:  "whisper",
		WhisperModel: "whisper-1",
		EmotionModel: "gpt-4o-mini",
		SampleRate:   16000,
		FlushSeconds: 2.0,
		TrendWindow:  5,
		QueueSize:    32,
		ActiveTTL:    "1h",
		CompletedTTL: "24h",
		IdleTimeout:  "30s",
		Weights:      scoring.DefaultWeights(),
	}
}

// Load reads configuration from a YAML file (if it exists), applies
// environment variable overrides, loads secrets, and validates the result.
// A .env file in the working directory is folded into the environment first.
func Load(path string) (Config, []string, error) {
	_ = gotenv.Load()

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	loadSecrets(&cfg)

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

// ParsedActiveTTL returns ActiveTTL as a time.Duration, falling back to 1h.
func (c *Config) ParsedActiveTTL() time.Duration {
	return parseDuration(c.ActiveTTL, time.Hour)
}

// ParsedCompletedTTL returns CompletedTTL as a time.Duration, falling back
// to 24h.
func (c *Config) ParsedCompletedTTL() time.Duration {
	return parseDuration(c.CompletedTTL, 24*time.Hour)
}

// ParsedIdleTimeout returns IdleTimeout as a time.Duration, falling back to
// 30s. Zero disables idle auto-end.
func (c *Config) ParsedIdleTimeout() time.Duration {
	if strings.TrimSpace(c.IdleTimeout) == "0" {
		return 0
	}
	return parseDuration(c.IdleTimeout, 30*time.Second)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(EnvPrefix + "DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvPrefix + "VALKEY_ADDR"); v != "" {
		cfg.ValkeyAddr = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvPrefix + "TRANSCRIBER"); v != "" {
		cfg.Transcriber = v
	}
	if v := os.Getenv(EnvPrefix + "WHISPER_MODEL"); v != "" {
		cfg.WhisperModel = v
	}
	if v := os.Getenv(EnvPrefix + "EMOTION_MODEL"); v != "" {
		cfg.EmotionModel = v
	}
	if v := os.Getenv(EnvPrefix + "SAMPLE_RATE"); v != "" {
		if rate, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && rate > 0 {
			cfg.SampleRate = rate
		}
	}
	if v := os.Getenv(EnvPrefix + "FLUSH_SECONDS"); v != "" {
		if secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && secs > 0 {
			cfg.FlushSeconds = secs
		}
	}
	if v := os.Getenv(EnvPrefix + "TREND_WINDOW"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.TrendWindow = n
		}
	}
	if v := os.Getenv(EnvPrefix + "QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.QueueSize = n
		}
	}
	if v := os.Getenv(EnvPrefix + "ACTIVE_TTL"); v != "" {
		cfg.ActiveTTL = v
	}
	if v := os.Getenv(EnvPrefix + "COMPLETED_TTL"); v != "" {
		cfg.CompletedTTL = v
	}
	if v := os.Getenv(EnvPrefix + "IDLE_TIMEOUT"); v != "" {
		cfg.IdleTimeout = v
	}
	if v := os.Getenv(EnvPrefix + "GDRIVE_FOLDER_ID"); v != "" {
		cfg.GDriveFolderID = v
	}
	if v := os.Getenv(EnvPrefix + "GOOGLE_CREDENTIALS_FILE"); v != "" {
		cfg.GoogleCredentialsFile = v
	}
}

func loadSecrets(cfg *Config) {
	cfg.OpenAIAPIKey = os.Getenv(EnvPrefix + "OPENAI_API_KEY")
	cfg.DeepgramAPIKey = os.Getenv(EnvPrefix + "DEEPGRAM_API_KEY")
	cfg.ValkeyPassword = os.Getenv(EnvPrefix + "VALKEY_PASSWORD")
}

func validate(cfg *Config) []string {
	var warnings []string

	switch cfg.Transcriber {
	case "whisper", "deepgram":
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown transcriber %q, using whisper.", cfg.Transcriber))
		cfg.Transcriber = "whisper"
	}

	if cfg.Transcriber == "whisper" && cfg.OpenAIAPIKey == "" {
		warnings = append(warnings, "OpenAI API key not configured, audio transcription and emotion scoring are disabled. Set "+EnvPrefix+"OPENAI_API_KEY.")
	}
	if cfg.Transcriber == "deepgram" && cfg.DeepgramAPIKey == "" {
		warnings = append(warnings, "Deepgram API key not configured, audio transcription is disabled. Set "+EnvPrefix+"DEEPGRAM_API_KEY.")
	}
	if cfg.ValkeyAddr == "" {
		warnings = append(warnings, "Valkey address not configured, session snapshots are kept in memory only. Set "+EnvPrefix+"VALKEY_ADDR.")
	}

	if _, err := time.ParseDuration(cfg.ActiveTTL); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid active_ttl %q, using default 1h.", cfg.ActiveTTL))
	}
	if _, err := time.ParseDuration(cfg.CompletedTTL); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid completed_ttl %q, using default 24h.", cfg.CompletedTTL))
	}
	if _, err := time.ParseDuration(cfg.IdleTimeout); err != nil && strings.TrimSpace(cfg.IdleTimeout) != "0" {
		warnings = append(warnings, fmt.Sprintf("Invalid idle_timeout %q, using default 30s.", cfg.IdleTimeout))
	}

	if cfg.Weights.IsZero() {
		cfg.Weights = scoring.DefaultWeights()
	} else if sum := cfg.Weights.Sum(); math.Abs(sum-1.0) > 0.01 {
		warnings = append(warnings, fmt.Sprintf("Score weights sum to %.2f, not 1.0. Overall scores will be skewed.", sum))
	}

	return warnings
}

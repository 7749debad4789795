package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing config file should not error: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Fatalf("listen addr %q", cfg.ListenAddr)
	}
	if cfg.Transcriber != "whisper" {
		t.Fatalf("transcriber %q", cfg.Transcriber)
	}
	if cfg.SampleRate != 16000 || cfg.FlushSeconds != 2.0 {
		t.Fatalf("audio defaults %d %f", cfg.SampleRate, cfg.FlushSeconds)
	}
	if cfg.ParsedActiveTTL() != time.Hour {
		t.Fatalf("active ttl %s", cfg.ParsedActiveTTL())
	}
	if cfg.ParsedCompletedTTL() != 24*time.Hour {
		t.Fatalf("completed ttl %s", cfg.ParsedCompletedTTL())
	}
	if cfg.ParsedIdleTimeout() != 30*time.Second {
		t.Fatalf("idle timeout %s", cfg.ParsedIdleTimeout())
	}
	if cfg.Weights.IsZero() {
		t.Fatal("weights not defaulted")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeConfigFile(t, `
listen_addr: ":9090"
transcriber: deepgram
trend_window: 7
active_ttl: 2h
score_weights:
  sentiment: 0.5
  emotion_stability: 0.1
  confidence: 0.1
  keyword_match: 0.1
  communication_clarity: 0.1
  technical: 0.1
`)

	cfg, warnings, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Fatalf("listen addr %q", cfg.ListenAddr)
	}
	if cfg.Transcriber != "deepgram" {
		t.Fatalf("transcriber %q", cfg.Transcriber)
	}
	if cfg.TrendWindow != 7 {
		t.Fatalf("trend window %d", cfg.TrendWindow)
	}
	if cfg.ParsedActiveTTL() != 2*time.Hour {
		t.Fatalf("active ttl %s", cfg.ParsedActiveTTL())
	}
	if cfg.Weights.Sentiment != 0.5 {
		t.Fatalf("weights not loaded: %+v", cfg.Weights)
	}
	// Weights sum to 1.0: no weight warning expected.
	for _, w := range warnings {
		if strings.Contains(w, "weights") {
			t.Fatalf("unexpected weight warning: %q", w)
		}
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "listen_addr: [broken")
	if _, _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `listen_addr: ":9090"`)

	t.Setenv(EnvPrefix+"LISTEN_ADDR", ":7000")
	t.Setenv(EnvPrefix+"SAMPLE_RATE", "8000")
	t.Setenv(EnvPrefix+"IDLE_TIMEOUT", "0")
	t.Setenv(EnvPrefix+"OPENAI_API_KEY", "sk-test")
	t.Setenv(EnvPrefix+"VALKEY_PASSWORD", "hunter2")

	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != ":7000" {
		t.Fatalf("env override lost, listen addr %q", cfg.ListenAddr)
	}
	if cfg.SampleRate != 8000 {
		t.Fatalf("sample rate %d", cfg.SampleRate)
	}
	if cfg.ParsedIdleTimeout() != 0 {
		t.Fatalf("idle timeout %s, expected disabled", cfg.ParsedIdleTimeout())
	}
	if cfg.OpenAIAPIKey != "sk-test" {
		t.Fatal("secret not loaded from environment")
	}
	if cfg.ValkeyPassword != "hunter2" {
		t.Fatal("valkey password not loaded from environment")
	}
}

func TestValidateWarnings(t *testing.T) {
	path := writeConfigFile(t, `
transcriber: carrier-pigeon
active_ttl: "not a duration"
score_weights:
  sentiment: 0.9
  emotion_stability: 0.9
  confidence: 0.1
  keyword_match: 0.1
  communication_clarity: 0.1
  technical: 0.1
`)

	cfg, warnings, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Transcriber != "whisper" {
		t.Fatalf("unknown transcriber not reset: %q", cfg.Transcriber)
	}

	var sawTranscriber, sawTTL, sawWeights bool
	for _, w := range warnings {
		switch {
		case strings.Contains(w, "transcriber"):
			sawTranscriber = true
		case strings.Contains(w, "active_ttl"):
			sawTTL = true
		case strings.Contains(w, "weights"):
			sawWeights = true
		}
	}
	if !sawTranscriber || !sawTTL || !sawWeights {
		t.Fatalf("missing expected warnings: %v", warnings)
	}
	// Invalid TTL still falls back cleanly.
	if cfg.ParsedActiveTTL() != time.Hour {
		t.Fatalf("active ttl fallback %s", cfg.ParsedActiveTTL())
	}
}

func TestSecretsNeverFromYAML(t *testing.T) {
	path := writeConfigFile(t, `
openaiapikey: leaked
valkeypassword: leaked
`)
	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.OpenAIAPIKey == "leaked" || cfg.ValkeyPassword == "leaked" {
		t.Fatal("secret loaded from YAML file")
	}
}

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"chat":       {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq"},
	"transcribe": {"whisper"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("chat", cfg.Providers.Chat.Name)
	validateProviderName("chat", cfg.Providers.ChatFallback.Name)
	validateProviderName("transcribe", cfg.Providers.Transcribe.Name)

	if cfg.Providers.Chat.Name == "" {
		errs = append(errs, errors.New("providers.chat.name is required"))
	}
	if cfg.Providers.ChatFallback.Name != "" && cfg.Providers.ChatFallback.Name == cfg.Providers.Chat.Name {
		slog.Warn("chat fallback names the same provider as the primary; failover will retry the same backend",
			"name", cfg.Providers.Chat.Name)
	}

	// Speech
	if cfg.Speech.DefaultMode != "" && !cfg.Speech.DefaultMode.IsValid() {
		errs = append(errs, fmt.Errorf("speech.default_mode %q is invalid; valid values: mock, real", cfg.Speech.DefaultMode))
	}
	if cfg.Providers.Transcribe.Name == "" {
		slog.Warn("providers.transcribe is not configured; real-mode transcription will be unavailable")
	}

	// Curriculum availability
	if cfg.Curriculum.PostgresDSN == "" {
		slog.Warn("curriculum.postgres_dsn is empty; next-lesson suggestions will not be available")
	}

	// Agent
	if cfg.Agent.Role != "" && !cfg.Agent.Role.IsValid() {
		errs = append(errs, fmt.Errorf("agent.role %q is invalid; valid values: conversationPartner, grammarTutor, culturalGuide, pronunciationCoach, progressMentor", cfg.Agent.Role))
	}
	if cfg.Agent.TeachingStyle != "" && !cfg.Agent.TeachingStyle.IsValid() {
		errs = append(errs, fmt.Errorf("agent.teaching_style %q is invalid; valid values: casual, formal, encouraging, challenging", cfg.Agent.TeachingStyle))
	}
	if cfg.Agent.ContextWindow < 0 {
		errs = append(errs, fmt.Errorf("agent.context_window %d must be >= 0", cfg.Agent.ContextWindow))
	}
	if cfg.Agent.Temperature < 0 || cfg.Agent.Temperature > 2 {
		errs = append(errs, fmt.Errorf("agent.temperature %.2f is out of range [0, 2]", cfg.Agent.Temperature))
	}
	if cfg.Agent.MaxResponseTokens < 0 {
		errs = append(errs, fmt.Errorf("agent.max_response_tokens %d must be >= 0", cfg.Agent.MaxResponseTokens))
	}
	if cfg.Agent.ResponseTimeout < 0 {
		errs = append(errs, fmt.Errorf("agent.response_timeout %v must be >= 0", cfg.Agent.ResponseTimeout.Std()))
	}

	// Retry
	if cfg.Retry.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("retry.max_attempts %d must be >= 0", cfg.Retry.MaxAttempts))
	}
	if cfg.Retry.BaseDelay < 0 {
		errs = append(errs, fmt.Errorf("retry.base_delay %v must be >= 0", cfg.Retry.BaseDelay.Std()))
	}
	if cfg.Retry.MaxDelay != 0 && cfg.Retry.MaxDelay < cfg.Retry.BaseDelay {
		errs = append(errs, fmt.Errorf("retry.max_delay %v must be >= retry.base_delay %v", cfg.Retry.MaxDelay.Std(), cfg.Retry.BaseDelay.Std()))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or unsupported provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}

// Package config loads house-agents configuration from TOML and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type DBConfig struct {
	Path string `toml:"path"`
}

type LLMConfig struct {
	Provider string `toml:"provider"` // openai, claude, gemini, ollama
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Timeout  string `toml:"timeout"`
}

// ActivityConfig tunes one activity cycle. Durations are Go duration strings.
type ActivityConfig struct {
	SwipesPerRun      int     `toml:"swipes_per_run"`
	MaxMessagesPerRun int     `toml:"max_messages_per_run"`
	MaxAgentsPerRun   int     `toml:"max_agents_per_run"`
	BreakupChance     float64 `toml:"breakup_chance"`
	ContinueChance    float64 `toml:"continue_chance"`
	ReplyCooldown     string  `toml:"reply_cooldown"`
	BreakupGrace      string  `toml:"breakup_grace"`
	CandidateSurplus  int     `toml:"candidate_surplus"`
	HistoryLimit      int     `toml:"history_limit"`
	Workers           int     `toml:"workers"`
	SoftDeadline      string  `toml:"soft_deadline"`
	RepairAnomalies   bool    `toml:"repair_anomalies"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

type Config struct {
	DB       DBConfig       `toml:"db"`
	LLM      LLMConfig      `toml:"llm"`
	Activity ActivityConfig `toml:"activity"`
	Logging  LoggingConfig  `toml:"logging"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DB: DBConfig{Path: filepath.Join(home, ".house-agents", "house.db")},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			Timeout:  "30s",
		},
		Activity: ActivityConfig{
			SwipesPerRun:      3,
			MaxMessagesPerRun: 3,
			MaxAgentsPerRun:   15,
			BreakupChance:     0.02,
			ContinueChance:    0.5,
			ReplyCooldown:     "30m",
			BreakupGrace:      "1h",
			CandidateSurplus:  3,
			HistoryLimit:      20,
			Workers:           4,
			SoftDeadline:      "10m",
		},
		Logging: LoggingConfig{Level: "info", JSON: true},
	}
}

// Load reads path over the defaults. A missing file is not an error when
// path is empty. Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	} else if data, err := os.ReadFile("house-agents.toml"); err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HOUSE_AGENTS_DB"); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HOUSE_AGENTS_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Activity.Workers = n
		}
	}
}

// Validate checks ranges and that every duration parses.
func (c *Config) Validate() error {
	a := c.Activity
	if a.SwipesPerRun < 0 || a.MaxMessagesPerRun < 0 || a.MaxAgentsPerRun < 0 {
		return fmt.Errorf("activity limits must not be negative")
	}
	if a.BreakupChance < 0 || a.BreakupChance > 1 {
		return fmt.Errorf("breakup_chance must be within [0,1], got %v", a.BreakupChance)
	}
	if a.ContinueChance < 0 || a.ContinueChance > 1 {
		return fmt.Errorf("continue_chance must be within [0,1], got %v", a.ContinueChance)
	}
	if a.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", a.Workers)
	}
	for name, v := range map[string]string{
		"reply_cooldown": a.ReplyCooldown,
		"breakup_grace":  a.BreakupGrace,
		"soft_deadline":  a.SoftDeadline,
		"llm.timeout":    c.LLM.Timeout,
	} {
		if _, err := parseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// ReplyCooldownDuration returns the parsed reply cooldown.
func (a ActivityConfig) ReplyCooldownDuration() time.Duration {
	d, _ := parseDuration(a.ReplyCooldown)
	return d
}

// BreakupGraceDuration returns the parsed breakup grace period.
func (a ActivityConfig) BreakupGraceDuration() time.Duration {
	d, _ := parseDuration(a.BreakupGrace)
	return d
}

// SoftDeadlineDuration returns the parsed run deadline; zero disables it.
func (a ActivityConfig) SoftDeadlineDuration() time.Duration {
	d, _ := parseDuration(a.SoftDeadline)
	return d
}

// TimeoutDuration returns the per-call oracle timeout; zero disables it.
func (l LLMConfig) TimeoutDuration() time.Duration {
	d, _ := parseDuration(l.Timeout)
	return d
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

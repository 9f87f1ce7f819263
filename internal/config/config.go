// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	HTTPPort string
	LogLevel string

	Brain BrainConfig
	Store StoreConfig
	Rules RulesConfig
}

// BrainConfig controls the generation gateway.
type BrainConfig struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
}

// StoreConfig controls session persistence. An empty RedisAddr selects
// the in-memory store.
type StoreConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Timeout       time.Duration
	SessionTTL    time.Duration
	RedactPII     bool
}

// RulesConfig holds the validation and governor tunables.
type RulesConfig struct {
	MaxHappinessDelta int `yaml:"max_happiness_delta"`
	TurnSoftLimit     int `yaml:"turn_soft_limit"`
	TurnHardLimit     int `yaml:"turn_hard_limit"`
}

// Load reads configuration from environment variables, then applies
// the optional YAML rules overlay named by RULES_FILE.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Brain: BrainConfig{
			APIKey:      getEnv("GENAI_API_KEY", ""),
			Model:       getEnv("GENAI_MODEL", "gemini-2.0-flash"),
			Timeout:     getEnvMillis("BRAIN_TIMEOUT_MS", 10000),
			MaxRetries:  getEnvInt("BRAIN_MAX_RETRIES", 2),
			BackoffBase: getEnvMillis("BRAIN_BACKOFF_BASE_MS", 1000),
		},
		Store: StoreConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			Timeout:       getEnvMillis("STORE_TIMEOUT_MS", 2000),
			SessionTTL:    getEnvMillis("SESSION_TTL_MS", 0),
			RedactPII:     getEnvBool("PII_REDACTION", false),
		},
		Rules: RulesConfig{
			MaxHappinessDelta: getEnvInt("MAX_HAPPINESS_DELTA", 15),
			TurnSoftLimit:     getEnvInt("TURN_SOFT_LIMIT", 25),
			TurnHardLimit:     getEnvInt("TURN_HARD_LIMIT", 30),
		},
	}

	if path := getEnv("RULES_FILE", ""); path != "" {
		if err := cfg.Rules.applyFile(path); err != nil {
			return nil, fmt.Errorf("rules file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}
	if c.Brain.Timeout <= 0 {
		return fmt.Errorf("BRAIN_TIMEOUT_MS must be > 0")
	}
	if c.Brain.MaxRetries < 0 {
		return fmt.Errorf("BRAIN_MAX_RETRIES must be >= 0")
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT_MS must be > 0")
	}
	if c.Rules.MaxHappinessDelta <= 0 {
		return fmt.Errorf("MAX_HAPPINESS_DELTA must be > 0")
	}
	if c.Rules.TurnSoftLimit <= 0 || c.Rules.TurnHardLimit <= 0 {
		return fmt.Errorf("turn limits must be > 0")
	}
	if c.Rules.TurnSoftLimit >= c.Rules.TurnHardLimit {
		return fmt.Errorf("TURN_SOFT_LIMIT (%d) must be below TURN_HARD_LIMIT (%d)",
			c.Rules.TurnSoftLimit, c.Rules.TurnHardLimit)
	}
	return nil
}

// applyFile overlays tunables from a YAML file. Zero values in the
// file leave the current setting alone.
func (r *RulesConfig) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var overlay RulesConfig
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return err
	}
	if overlay.MaxHappinessDelta > 0 {
		r.MaxHappinessDelta = overlay.MaxHappinessDelta
	}
	if overlay.TurnSoftLimit > 0 {
		r.TurnSoftLimit = overlay.TurnSoftLimit
	}
	if overlay.TurnHardLimit > 0 {
		r.TurnHardLimit = overlay.TurnHardLimit
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvMillis(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Millisecond
}

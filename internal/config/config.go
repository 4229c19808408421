package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default YAML location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	// DatabaseURL selects the Postgres store; empty keeps everything
	// in memory.
	DatabaseURL string `yaml:"databaseURL"`

	// RedisAddr selects Redis-backed login sessions; empty falls back
	// to stateless JWT tokens signed with SessionSecret.
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	SessionSecret string `yaml:"sessionSecret"`
	SessionTTLH   int    `yaml:"sessionTTLHours"`

	// Generation service. An empty API key is a normal deployment
	// state: the app runs entirely on fallbacks.
	GenerationProvider string `yaml:"generationProvider"` // gemini or openai
	GenerationBaseURL  string `yaml:"generationBaseURL"`
	GenerationModel    string `yaml:"generationModel"`
	GeminiAPIKey       string `yaml:"geminiAPIKey"`
	OpenAIAPIKey       string `yaml:"openaiAPIKey"`

	// FallbackDelayMs overrides the artificial pause before fallback
	// responses; -1 disables it, 0 keeps the defaults.
	FallbackDelayMs int `yaml:"fallbackDelayMs"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.SessionSecret = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("GENERATION_PROVIDER"); v != "" {
		cfg.GenerationProvider = v
	}
	if v := os.Getenv("GENERATION_MODEL"); v != "" {
		cfg.GenerationModel = v
	}
	if v := os.Getenv("FALLBACK_DELAY_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("parse FALLBACK_DELAY_MS: %w", err)
		}
		cfg.FallbackDelayMs = ms
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.SessionTTLH <= 0 {
		cfg.SessionTTLH = 72
	}
	if cfg.GenerationProvider == "" {
		cfg.GenerationProvider = "gemini"
	}
	if cfg.GenerationModel == "" {
		cfg.GenerationModel = "gemini-2.0-flash"
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.SessionSecret == "" && cfg.RedisAddr == "" {
		return errors.New("config: sessionSecret is required (set in config.yaml or SESSION_SECRET)")
	}
	switch cfg.GenerationProvider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("config: unknown generationProvider %q", cfg.GenerationProvider)
	}
	if cfg.GenerationProvider == "openai" && cfg.GenerationBaseURL == "" {
		return errors.New("config: generationBaseURL is required for the openai provider")
	}
	return nil
}

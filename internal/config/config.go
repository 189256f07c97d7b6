// Package config loads codeq settings from a YAML file, a .env file and the
// environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AI provider names.
const (
	ProviderAuto   = "auto"
	ProviderStub   = "stub"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Env     string        `yaml:"env" validate:"oneof=development production test"`
	AI      AIConfig      `yaml:"ai"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

type AIConfig struct {
	Provider          string        `yaml:"provider" validate:"oneof=auto stub gemini openai"`
	Gemini            GeminiConfig  `yaml:"gemini"`
	OpenAI            OpenAIConfig  `yaml:"openai"`
	Timeout           time.Duration `yaml:"timeout" validate:"min=1s,max=10m"`
	RequestsPerMinute int           `yaml:"requests_per_minute" validate:"min=1,max=10000"`
	Burst             int           `yaml:"burst" validate:"min=1,max=1000"`
	MaxPromptChars    int           `yaml:"max_prompt_chars" validate:"min=500,max=200000"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model" validate:"required"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	Model   string `yaml:"model" validate:"required"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr" validate:"required"`
	Port           int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
	File   string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Env: "development",
		AI: AIConfig{
			Provider:          ProviderAuto,
			Gemini:            GeminiConfig{Model: "gemini-1.5-flash"},
			OpenAI:            OpenAIConfig{Model: "gpt-4o-mini"},
			Timeout:           30 * time.Second,
			RequestsPerMinute: 60,
			Burst:             5,
			MaxPromptChars:    6000,
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1",
			Port:           8000,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   120 * time.Second,
			IdleTimeout:    120 * time.Second,
			AllowedOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load builds the configuration. path may be empty, in which case the
// usual locations are searched and a missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = findConfigFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	switch c.AI.Provider {
	case ProviderGemini:
		if c.AI.Gemini.APIKey == "" {
			return fmt.Errorf("config validation failed: provider gemini needs GEMINI_API_KEY")
		}
	case ProviderOpenAI:
		if c.AI.OpenAI.APIKey == "" {
			return fmt.Errorf("config validation failed: provider openai needs OPENAI_API_KEY")
		}
	}
	return nil
}

// ResolvedProvider turns "auto" into a concrete provider: gemini when its
// key is set, then openai, else the stub.
func (c *Config) ResolvedProvider() string {
	if c.AI.Provider != ProviderAuto && c.AI.Provider != "" {
		return c.AI.Provider
	}
	switch {
	case c.AI.Gemini.APIKey != "":
		return ProviderGemini
	case c.AI.OpenAI.APIKey != "":
		return ProviderOpenAI
	default:
		return ProviderStub
	}
}

// ListenAddr is the host:port the server binds.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Addr, c.Server.Port)
}

func (c *Config) applyEnv() {
	setString(&c.Env, "CODEQ_ENV")
	setString(&c.AI.Provider, "CODEQ_AI_PROVIDER")
	setString(&c.AI.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.AI.Gemini.Model, "GEMINI_MODEL")
	setString(&c.AI.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.AI.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.AI.OpenAI.Model, "OPENAI_MODEL")
	setString(&c.Logging.Level, "CODEQ_LOG_LEVEL")

	if v := os.Getenv("CODEQ_AI_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.AI.Timeout = d
		}
	}
	if v := os.Getenv("CODEQ_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}

	c.AI.Provider = strings.ToLower(c.AI.Provider)
	c.Logging.Level = strings.ToLower(c.Logging.Level)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func findConfigFile() string {
	if path := os.Getenv("CODEQ_CONFIG"); path != "" {
		return path
	}
	candidates := []string{"codeq.yaml"}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "codeq", "config.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "codeq", "config.yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

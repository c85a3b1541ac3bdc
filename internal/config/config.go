package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pdfsum/internal/summarizer"
)

var validate = validator.New()

type Config struct {
	Token             string        `env:"TOKEN,required,notEmpty"`
	AllowedUsers      []int64       `env:"ALLOWED_USERS"`
	DBPath            string        `env:"DB_PATH"                 envDefault:"db.sqlite"`
	HistoryRetention  time.Duration `env:"HISTORY_RETENTION"       envDefault:"720h"     validate:"gte=0"`
	FetchMaxBodyBytes int64         `env:"FETCH_MAX_BODY_BYTES"    envDefault:"20971520" validate:"gt=0"`
	LLM               LLM
}

// LLM selects the provider and credential. Model fields left unset fall back
// to MODEL_CONFIG_FILE and then to the built-in defaults.
type LLM struct {
	Provider        string   `env:"LLM_PROVIDER"          envDefault:"gemini" validate:"oneof=gemini openai compatible"`
	APIKey          string   `env:"LLM_API_KEY"`
	BaseURL         string   `env:"LLM_BASE_URL"                              validate:"omitempty,url"`
	ConfigFile      string   `env:"MODEL_CONFIG_FILE"`
	Model           *string  `env:"LLM_MODEL"`
	Temperature     *float64 `env:"LLM_TEMPERATURE"`
	TopP            *float64 `env:"LLM_TOP_P"`
	TopK            *int     `env:"LLM_TOP_K"`
	MaxOutputTokens *int64   `env:"LLM_MAX_OUTPUT_TOKENS"`
}

// Load reads the bot configuration from the environment and an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// LoadLLM reads only the model settings, for tools that do not run the bot.
func LoadLLM() (LLM, error) {
	_ = godotenv.Load()

	var cfg LLM
	if err := env.Parse(&cfg); err != nil {
		return LLM{}, fmt.Errorf("parse env: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return LLM{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (l LLM) ProviderName() summarizer.Provider {
	p, err := summarizer.ParseProvider(l.Provider)
	if err != nil {
		return summarizer.ProviderGemini
	}
	return p
}

// ModelConfig layers defaults, the YAML file and the environment, in that order.
func (l LLM) ModelConfig() (summarizer.ModelConfig, error) {
	cfg := summarizer.DefaultModelConfig()

	if l.ConfigFile != "" {
		b, err := os.ReadFile(l.ConfigFile)
		if err != nil {
			return summarizer.ModelConfig{}, fmt.Errorf("read model config: %w", err)
		}
		if err = yaml.Unmarshal(b, &cfg); err != nil {
			return summarizer.ModelConfig{}, fmt.Errorf("parse yaml: %w", err)
		}
	}

	if l.Model != nil {
		cfg.Model = *l.Model
	}
	if l.Temperature != nil {
		cfg.Temperature = *l.Temperature
	}
	if l.TopP != nil {
		cfg.TopP = *l.TopP
	}
	if l.TopK != nil {
		cfg.TopK = *l.TopK
	}
	if l.MaxOutputTokens != nil {
		cfg.MaxOutputTokens = *l.MaxOutputTokens
	}

	if err := validate.Struct(cfg); err != nil {
		return summarizer.ModelConfig{}, fmt.Errorf("validate model config: %w", err)
	}

	return cfg, nil
}

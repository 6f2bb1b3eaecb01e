package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string `env:"GATEPASS_HTTP_ADDR" envDefault:":8080"`

	// DB
	Env    string `env:"GATEPASS_ENV" envDefault:"dev"` // "dev" | "prod"
	DBPath string `env:"GATEPASS_DB_PATH" envDefault:"./data/gatepass.db"`

	// Conversational channel.  Empty URL disables outbound delivery (the
	// webhook still accepts and logs updates, useful in dev).
	ChatAPIURL   string `env:"GATEPASS_CHAT_API_URL"`
	ChatAPIToken string `env:"GATEPASS_CHAT_API_TOKEN"`

	// How often the expiry sweeper persists lazily expired codes.
	// 0 disables the sweeper; reads stay correct either way.
	ExpirySweepMinutes int `env:"GATEPASS_EXPIRY_SWEEP_MINUTES" envDefault:"15"`
}

func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	// fail-soft: treat unknown environments as dev
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if cfg.Env != "dev" && cfg.Env != "prod" {
		cfg.Env = "dev"
	}

	if cfg.ExpirySweepMinutes < 0 {
		cfg.ExpirySweepMinutes = 0
	}

	return cfg, nil
}

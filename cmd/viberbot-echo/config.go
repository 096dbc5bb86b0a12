package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
)

// config is read from the environment first; flags override it.
type config struct {
	Token        string        `env:"VIBER_AUTH_TOKEN"`
	ListenAddr   string        `env:"VIBER_LISTEN_ADDR" envDefault:":8080"`
	Path         string        `env:"VIBER_WEBHOOK_PATH" envDefault:"/webhook"`
	MaxBodyBytes int64         `env:"VIBER_MAX_BODY_BYTES" envDefault:"1048576"`
	LogLevel     string        `env:"VIBER_LOG_LEVEL" envDefault:"info"`
	Welcome      string        `env:"VIBER_WELCOME_TEXT" envDefault:"Welcome! Say something and I will repeat it."`
	ReadTimeout  time.Duration `env:"VIBER_READ_TIMEOUT" envDefault:"10s"`
}

func parseConfig(args []string) (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}

	fs := pflag.NewFlagSet("viberbot-echo", pflag.ContinueOnError)
	fs.StringVar(&cfg.Token, "token", cfg.Token, "bot auth token (env VIBER_AUTH_TOKEN)")
	fs.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "listen address")
	fs.StringVar(&cfg.Path, "path", cfg.Path, "webhook path")
	fs.Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", cfg.MaxBodyBytes, "maximum request body size")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "trace, debug, info, warn or error")
	fs.StringVar(&cfg.Welcome, "welcome", cfg.Welcome, "welcome message for new conversations")
	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "HTTP read timeout")
	if err := fs.Parse(args); err != nil {
		return config{}, fmt.Errorf("parse flags: %w", err)
	}

	if cfg.Token == "" {
		return config{}, errors.New("auth token is required (--token or VIBER_AUTH_TOKEN)")
	}
	return cfg, nil
}

package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Env holds the settings that may come from the process environment. Set
// values win over the config file.
type Env struct {
	BotToken      string `env:"BOT_TOKEN"`
	WebAppURL     string `env:"WEB_APP_URL"`
	LogLevel      string `env:"LOG_LEVEL"`
	StorageDriver string `env:"STORAGE_DRIVER"`
	StorageDSN    string `env:"STORAGE_DSN"`
	StoragePath   string `env:"STORAGE_PATH"`
	HTTPAddr      string `env:"HTTP_ADDR"`
	AMQPURL       string `env:"AMQP_URL"`
}

// LoadDotEnv reads the given .env files into the process environment
// without overriding variables that are already set. Missing files are
// ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ReadEnv processes Env from l, or from the OS environment when l is nil.
func ReadEnv(ctx context.Context, l envconfig.Lookuper) (Env, error) {
	if l == nil {
		l = envconfig.OsLookuper()
	}
	var e Env
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &e, Lookuper: l}); err != nil {
		return Env{}, fmt.Errorf("env: %w", err)
	}
	return e, nil
}

// Overlay copies every non-empty env value onto cfg.
func (e Env) Overlay(cfg *Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Telegram.Token, e.BotToken)
	set(&cfg.Telegram.WebAppURL, e.WebAppURL)
	set(&cfg.Logging.Level, e.LogLevel)
	set(&cfg.Storage.Driver, e.StorageDriver)
	set(&cfg.Storage.DSN, e.StorageDSN)
	set(&cfg.Storage.Path, e.StoragePath)
	set(&cfg.HTTP.Addr, e.HTTPAddr)
	set(&cfg.AMQP.URL, e.AMQPURL)
}

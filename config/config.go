// Package config loads AnimeIT settings. Later sources win: built-in defaults,
// an optional YAML file, a .env file, then the process environment. The .env
// file only fills variables the environment leaves unset.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type SupabaseConfig struct {
	URL                string `yaml:"url"`
	Key                string `yaml:"key"`
	JWTSecret          string `yaml:"jwt_secret"`
	AvatarBucket       string `yaml:"avatar_bucket"`
	CompletionFunction string `yaml:"completion_function"`
}

type AniListConfig struct {
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type Config struct {
	HTTPAddr        string         `yaml:"http_addr"`
	LogLevel        string         `yaml:"log_level"`
	RefreshSchedule string         `yaml:"refresh_schedule"`
	Supabase        SupabaseConfig `yaml:"supabase"`
	AniList         AniListConfig  `yaml:"anilist"`
}

func Default() *Config {
	return &Config{
		HTTPAddr:        ":8080",
		LogLevel:        "info",
		RefreshSchedule: "*/30 * * * *",
		Supabase: SupabaseConfig{
			AvatarBucket: "avatars",
		},
		AniList: AniListConfig{
			URL:      "https://graphql.anilist.co",
			Timeout:  10 * time.Second,
			CacheTTL: 10 * time.Minute,
		},
	}
}

// Load reads .env (if present), then the YAML file at path (if non-empty),
// then applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("ANIMEIT_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setDuration := func(dst *time.Duration, key string) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.RefreshSchedule, "REFRESH_SCHEDULE")
	setString(&c.Supabase.URL, "SUPA_URL")
	setString(&c.Supabase.Key, "SUPA_KEY")
	setString(&c.Supabase.JWTSecret, "SUPA_JWT_SECRET")
	setString(&c.Supabase.AvatarBucket, "SUPA_AVATAR_BUCKET")
	setString(&c.Supabase.CompletionFunction, "SUPA_COMPLETION_FUNCTION")
	setString(&c.AniList.URL, "ANILIST_URL")

	if err := setDuration(&c.AniList.Timeout, "ANILIST_TIMEOUT"); err != nil {
		return err
	}
	return setDuration(&c.AniList.CacheTTL, "CATALOG_CACHE_TTL")
}

func (c *Config) Validate() error {
	if c.Supabase.URL == "" || c.Supabase.Key == "" {
		return errors.New("SUPA_URL and SUPA_KEY must be set")
	}
	if c.Supabase.AvatarBucket == "" {
		return errors.New("avatar bucket must not be empty")
	}
	if c.AniList.URL == "" {
		return errors.New("anilist url must not be empty")
	}
	if c.AniList.Timeout <= 0 {
		return fmt.Errorf("anilist timeout must be positive, got %s", c.AniList.Timeout)
	}
	if c.AniList.CacheTTL <= 0 {
		return fmt.Errorf("catalog cache ttl must be positive, got %s", c.AniList.CacheTTL)
	}
	if _, err := cron.ParseStandard(c.RefreshSchedule); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", c.RefreshSchedule, err)
	}
	return nil
}

// Package config loads taskboard settings with the precedence
// defaults < YAML file < .env file < environment. Command flags are applied
// on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultFile is the YAML file read when no path is given.
const DefaultFile = "taskboard.yaml"

// Config is the full set of settings for the service and its clients.
type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Redis    Redis    `yaml:"redis"`
	Auth     Auth     `yaml:"auth"`
	Storage  Storage  `yaml:"storage"`
	Client   Client   `yaml:"client"`
	Log      Log      `yaml:"log"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
	PublicURL string `yaml:"public_url"`
}

// Database configures the SQLite file.
type Database struct {
	Path string `yaml:"path"`
}

// Redis configures the change feed connection.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Auth configures token verification.
type Auth struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	RoleCacheTTL time.Duration `yaml:"role_cache_ttl"`
}

// Storage configures attachment uploads.
type Storage struct {
	Dir         string `yaml:"dir"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// MaxUploadBytes converts the configured ceiling to bytes.
func (s Storage) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// Client configures the CLI's connection to a running service.
type Client struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// Log configures the slog handler.
type Log struct {
	Level string `yaml:"level"`
}

// SlogLevel maps the configured level name onto slog.
func (l Log) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Server:   Server{Addr: ":8080", StaticDir: "web/dist"},
		Database: Database{Path: "data/taskboard.db"},
		Redis:    Redis{Addr: "127.0.0.1:6379", Prefix: "taskboard:"},
		Auth:     Auth{RoleCacheTTL: 30 * time.Second},
		Storage:  Storage{Dir: "data/files", MaxUploadMB: 10},
		Client:   Client{BaseURL: "http://localhost:8080", Timeout: 10 * time.Second},
		Log:      Log{Level: "info"},
	}
}

// Validate checks settings every command relies on.
func (c *Config) Validate() error {
	if c.Storage.MaxUploadMB < 1 {
		return errors.New("storage.max_upload_mb must be >= 1")
	}
	if c.Client.Timeout <= 0 {
		return errors.New("client.timeout must be positive")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// ValidateServe checks the settings the HTTP service needs.
func (c *Config) ValidateServe() error {
	switch {
	case c.Server.Addr == "":
		return errors.New("server.addr is required")
	case c.Database.Path == "":
		return errors.New("database.path is required")
	case c.Redis.Addr == "":
		return errors.New("redis.addr is required")
	case c.Auth.JWTSecret == "":
		return errors.New("auth.jwt_secret is required")
	case c.Storage.Dir == "":
		return errors.New("storage.dir is required")
	}
	return nil
}

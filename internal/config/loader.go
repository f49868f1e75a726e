package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at yamlPath and the dotenv file at envPath, then
// overlays the environment. Both files are optional.
func Load(yamlPath, envPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}
	// godotenv never overrides variables that are already set, so the real
	// environment keeps precedence over the file.
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config env file: %w", err)
		}
	}
	if err := loadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}
	return &cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func loadEnv(cfg *Config) error {
	setString(&cfg.Server.Addr, "TASKBOARD_ADDR")
	setString(&cfg.Server.StaticDir, "TASKBOARD_STATIC_DIR")
	setString(&cfg.Server.PublicURL, "TASKBOARD_PUBLIC_URL")
	setString(&cfg.Database.Path, "TASKBOARD_DB_PATH")
	setString(&cfg.Redis.Addr, "TASKBOARD_REDIS_ADDR")
	setString(&cfg.Redis.Password, "TASKBOARD_REDIS_PASSWORD")
	setString(&cfg.Redis.Prefix, "TASKBOARD_REDIS_PREFIX")
	setString(&cfg.Auth.JWTSecret, "TASKBOARD_JWT_SECRET")
	setString(&cfg.Storage.Dir, "TASKBOARD_STORAGE_DIR")
	setString(&cfg.Client.BaseURL, "TASKBOARD_URL")
	setString(&cfg.Client.Token, "TASKBOARD_TOKEN")
	setString(&cfg.Log.Level, "TASKBOARD_LOG_LEVEL")

	return errors.Join(
		setInt(&cfg.Redis.DB, "TASKBOARD_REDIS_DB"),
		setInt(&cfg.Storage.MaxUploadMB, "TASKBOARD_MAX_UPLOAD_MB"),
		setDuration(&cfg.Auth.RoleCacheTTL, "TASKBOARD_ROLE_CACHE_TTL"),
		setDuration(&cfg.Client.Timeout, "TASKBOARD_CLIENT_TIMEOUT"),
	)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
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

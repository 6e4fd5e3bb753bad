package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Config holds all application configuration
type Config struct {
	Server struct {
		Port            string        `koanf:"port"`
		StaticDir       string        `koanf:"static_dir"`
		Debug           bool          `koanf:"debug"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"server"`

	Database struct {
		Path string `koanf:"path"`
	} `koanf:"database"`

	ML struct {
		Type            string `koanf:"type"` // "local" or "google"
		ProjectID       string `koanf:"project_id"`
		Location        string `koanf:"location"`
		CredentialsFile string `koanf:"credentials_file"`
		Model           string `koanf:"model"`
	} `koanf:"ml"`

	FDC struct {
		BaseURL   string        `koanf:"base_url"`
		APIKey    string        `koanf:"api_key"`
		Timeout   time.Duration `koanf:"timeout"`
		RateLimit float64       `koanf:"rate_limit"` // requests per second
		Burst     int           `koanf:"burst"`
		CacheSize int           `koanf:"cache_size"`
		PageSize  int           `koanf:"page_size"`
	} `koanf:"fdc"`

	Storage struct {
		Type      string `koanf:"type"` // "none" or "s3"
		Bucket    string `koanf:"bucket"`
		Region    string `koanf:"region"`
		Prefix    string `koanf:"prefix"`
		PublicURL string `koanf:"public_url"`
	} `koanf:"storage"`

	Log struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"` // "json" or "console"
	} `koanf:"log"`
}

// LoadConfig loads configuration from a YAML file and then applies
// environment overrides. A missing file is not an error; every setting has
// a default except where Validate says otherwise.
//
// Environment variables map to keys by splitting on the first underscore:
// SERVER_PORT -> server.port, FDC_API_KEY -> fdc.api_key.
func LoadConfig(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var config Config
	if err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

var sections = map[string]bool{
	"server": true, "database": true, "ml": true,
	"fdc": true, "storage": true, "log": true,
}

// envKey maps SECTION_FIELD_NAME to section.field_name. Variables outside
// the known sections are dropped.
func envKey(s string) string {
	parts := strings.SplitN(strings.ToLower(s), "_", 2)
	if len(parts) != 2 || !sections[parts[0]] {
		return ""
	}
	return parts[0] + "." + parts[1]
}

func applyDefaults(c *Config) {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.StaticDir == "" {
		c.Server.StaticDir = "./static"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Database.Path == "" {
		c.Database.Path = "nutritrack.db"
	}
	if c.ML.Type == "" {
		c.ML.Type = "local"
	}
	if c.ML.Model == "" {
		c.ML.Model = "gemini-1.5-flash"
	}
	if c.FDC.BaseURL == "" {
		c.FDC.BaseURL = "https://api.nal.usda.gov/fdc/v1"
	}
	if c.FDC.APIKey == "" {
		c.FDC.APIKey = "DEMO_KEY"
	}
	if c.FDC.Timeout <= 0 {
		c.FDC.Timeout = 10 * time.Second
	}
	if c.FDC.RateLimit <= 0 {
		c.FDC.RateLimit = 5
	}
	if c.FDC.Burst <= 0 {
		c.FDC.Burst = 5
	}
	if c.FDC.CacheSize <= 0 {
		c.FDC.CacheSize = 512
	}
	if c.FDC.PageSize <= 0 {
		c.FDC.PageSize = 25
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "none"
	}
	if c.Storage.Prefix == "" {
		c.Storage.Prefix = "label-scans"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.ML.Type {
	case "local":
	case "google":
		if c.ML.ProjectID == "" {
			return fmt.Errorf("ml.project_id is required for the google model")
		}
	default:
		return fmt.Errorf("unsupported ml type: %s", c.ML.Type)
	}

	switch c.Storage.Type {
	case "none":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}
	return nil
}

// GetConfigPath returns the path to the configuration file
func GetConfigPath() string {
	// First try environment variable
	if path := os.Getenv("NUTRITRACK_CONFIG"); path != "" {
		return path
	}

	// Then try config directory
	configDir := "config"
	if _, err := os.Stat(configDir); err == nil {
		return filepath.Join(configDir, "config.yaml")
	}

	// Finally, try current directory
	return "config.yaml"
}

// Package config loads service settings from .env, an optional YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"voice-features-go/internal/errs"
)

// DefaultModels is the engine fallback order, cheapest first.
var DefaultModels = []string{
	"gemini-2.0-flash-lite",
	"gemini-2.0-flash",
	"gemini-2.5-flash",
	"gemini-2.5-pro",
}

type Config struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_allowed_origins"`
	JournalPath string   `yaml:"journal_path"`

	Graph   GraphConfig   `yaml:"graph"`
	Storage StorageConfig `yaml:"storage"`
	Engine  EngineConfig  `yaml:"engine"`
}

type GraphConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

type StorageConfig struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	ListLimit       int    `yaml:"list_limit"`
}

type EngineConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Models     []string      `yaml:"models"`
	Timeout    time.Duration `yaml:"timeout"`
	StagingDir string        `yaml:"staging_dir"`
	UseMock    bool          `yaml:"use_mock"`
}

func defaults() Config {
	return Config{
		Port:        "8080",
		CORSOrigins: []string{"*"},
		Graph: GraphConfig{
			Timeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Region:    "us-east-1",
			ListLimit: 1000,
		},
		Engine: EngineConfig{
			BaseURL: "https://generativelanguage.googleapis.com",
			Models:  append([]string(nil), DefaultModels...),
			Timeout: 90 * time.Second,
		},
	}
}

// Load reads .env (if present), then CONFIG_FILE (if set), then the environment.
// Later sources win. Missing required values are not an error here; see Validate.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = envOr("PORT", c.Port)
	c.CORSOrigins = envCSV("CORS_ALLOWED_ORIGINS", c.CORSOrigins)
	c.JournalPath = envOr("JOURNAL_PATH", c.JournalPath)

	c.Graph.Endpoint = envOr("GRAPHQL_ENDPOINT", c.Graph.Endpoint)
	c.Graph.APIKey = envOr("GRAPHQL_API_KEY", c.Graph.APIKey)
	c.Graph.Timeout = envDuration("GRAPHQL_TIMEOUT", c.Graph.Timeout)
	c.Graph.MaxRetries = envInt("GRAPHQL_MAX_RETRIES", c.Graph.MaxRetries)

	c.Storage.Bucket = envOr("STORAGE_BUCKET", c.Storage.Bucket)
	c.Storage.Region = envOr("STORAGE_REGION", c.Storage.Region)
	c.Storage.Endpoint = envOr("STORAGE_ENDPOINT", c.Storage.Endpoint)
	c.Storage.AccessKeyID = envOr("STORAGE_ACCESS_KEY_ID", c.Storage.AccessKeyID)
	c.Storage.SecretAccessKey = envOr("STORAGE_SECRET_ACCESS_KEY", c.Storage.SecretAccessKey)
	c.Storage.ListLimit = envInt("STORAGE_LIST_LIMIT", c.Storage.ListLimit)

	c.Engine.BaseURL = envOr("ENGINE_BASE_URL", c.Engine.BaseURL)
	c.Engine.Models = envCSV("ENGINE_MODELS", c.Engine.Models)
	c.Engine.Timeout = envDuration("ENGINE_TIMEOUT", c.Engine.Timeout)
	c.Engine.StagingDir = envOr("ENGINE_STAGING_DIR", c.Engine.StagingDir)
	if v := os.Getenv("USE_MOCK_ENGINE"); v != "" {
		c.Engine.UseMock = v == "true"
	}
}

// Validate reports missing collaborator settings as an errs.Config error.
func (c Config) Validate() error {
	var missing []string
	if c.Graph.Endpoint == "" {
		missing = append(missing, "GRAPHQL_ENDPOINT")
	}
	if c.Graph.APIKey == "" {
		missing = append(missing, "GRAPHQL_API_KEY")
	}
	if c.Storage.Bucket == "" {
		missing = append(missing, "STORAGE_BUCKET")
	}
	if len(c.Engine.Models) == 0 {
		missing = append(missing, "ENGINE_MODELS")
	}
	if len(missing) > 0 {
		return errs.Newf(errs.Config, "missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Addr is the listen address for PORT.
func (c Config) Addr() string { return ":" + strings.TrimPrefix(c.Port, ":") }

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	s := strings.TrimSpace(os.Getenv(k))
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func envDuration(k string, def time.Duration) time.Duration {
	s := strings.TrimSpace(os.Getenv(k))
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func envCSV(k string, def []string) []string {
	s := strings.TrimSpace(os.Getenv(k))
	if s == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

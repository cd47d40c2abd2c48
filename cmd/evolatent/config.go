package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/evolatent/latent"
	"github.com/hupe1980/evolatent/mutation"
)

// Config is the CLI configuration. Values come from the YAML file first,
// then EVOLATENT_* environment variables, then flags.
type Config struct {
	Session     SessionConfig  `yaml:"session"      envPrefix:"SESSION_"`
	Blob        BlobConfig     `yaml:"blob"         envPrefix:"BLOB_"`
	Renderer    RendererConfig `yaml:"renderer"     envPrefix:"RENDERER_"`
	LogLevel    string         `yaml:"log_level"    env:"LOG_LEVEL"`
	MetricsAddr string         `yaml:"metrics_addr" env:"METRICS_ADDR"`
}

type SessionConfig struct {
	PopulationSize int     `yaml:"population_size" env:"POPULATION_SIZE"`
	ImageWidth     int     `yaml:"image_width"     env:"IMAGE_WIDTH"`
	ImageHeight    int     `yaml:"image_height"    env:"IMAGE_HEIGHT"`
	MutationRate   float64 `yaml:"mutation_rate"   env:"MUTATION_RATE"`
	Decay          string  `yaml:"decay"           env:"DECAY"`
	DecayFactor    float64 `yaml:"decay_factor"    env:"DECAY_FACTOR"`
	// Seed 0 seeds from the clock.
	Seed int64 `yaml:"seed" env:"SEED"`
}

type BlobConfig struct {
	// Driver is one of fs, memory, s3, minio.
	Driver            string      `yaml:"driver"              env:"DRIVER"`
	Root              string      `yaml:"root"                env:"ROOT"`
	Compression       string      `yaml:"compression"         env:"COMPRESSION"`
	MaxParallelWrites int         `yaml:"max_parallel_writes" env:"MAX_PARALLEL_WRITES"`
	IOLimit           int64       `yaml:"io_limit"            env:"IO_LIMIT"`
	S3                S3Config    `yaml:"s3"                  envPrefix:"S3_"`
	MinIO             MinIOConfig `yaml:"minio"               envPrefix:"MINIO_"`
}

type S3Config struct {
	Bucket   string `yaml:"bucket"   env:"BUCKET"`
	Prefix   string `yaml:"prefix"   env:"PREFIX"`
	Region   string `yaml:"region"   env:"REGION"`
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"   env:"ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
	Bucket    string `yaml:"bucket"     env:"BUCKET"`
	Prefix    string `yaml:"prefix"     env:"PREFIX"`
	Secure    bool   `yaml:"secure"     env:"SECURE"`
}

type RendererConfig struct {
	// Driver is preview or http.
	Driver    string        `yaml:"driver"     env:"DRIVER"`
	Endpoint  string        `yaml:"endpoint"   env:"ENDPOINT"`
	Timeout   time.Duration `yaml:"timeout"    env:"TIMEOUT"`
	RateLimit float64       `yaml:"rate_limit" env:"RATE_LIMIT"`
	Burst     int           `yaml:"burst"      env:"BURST"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			PopulationSize: 4,
			ImageWidth:     512,
			ImageHeight:    512,
			MutationRate:   1.0,
			Decay:          mutation.DecaySingleParent.String(),
			DecayFactor:    mutation.DefaultDecayFactor,
		},
		Blob: BlobConfig{
			Driver:            "fs",
			Root:              "./runs",
			Compression:       latent.CompressionNone.String(),
			MaxParallelWrites: 4,
		},
		Renderer: RendererConfig{
			Driver:    "preview",
			Timeout:   2 * time.Minute,
			RateLimit: 1,
			Burst:     1,
		},
		LogLevel: "info",
	}
}

// DefaultConfigPath returns ~/.evolatent/evolatent.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".evolatent", "evolatent.yaml"), nil
}

// LoadConfig reads path, creating it with defaults if it does not exist,
// and applies environment overrides.
func LoadConfig(path string) (Config, bool, error) {
	created := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefault(path); err != nil {
			return Config{}, false, err
		}
		created = true
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, false, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "EVOLATENT_"}); err != nil {
		return Config{}, false, fmt.Errorf("parse env: %w", err)
	}
	return cfg, created, cfg.Validate()
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the enumerated fields.
func (c Config) Validate() error {
	if _, err := mutation.ParseDecayPolicy(c.Session.Decay); err != nil {
		return err
	}
	if _, err := latent.ParseCompression(c.Blob.Compression); err != nil {
		return err
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Blob.Driver {
	case "fs", "memory", "s3", "minio":
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	switch c.Renderer.Driver {
	case "preview":
	case "http":
		if c.Renderer.Endpoint == "" {
			return fmt.Errorf("renderer.endpoint is required for the http renderer")
		}
	default:
		return fmt.Errorf("unknown renderer driver %q", c.Renderer.Driver)
	}
	return nil
}

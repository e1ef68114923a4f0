package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type GRPCConfig struct {
	// Address of the event service. Empty keeps events in process.
	Address string `yaml:"address"`
	Listen  bool   `yaml:"listen"`
}

type RegistryConfig struct {
	Backend  string `yaml:"backend"`
	MongoURI string `yaml:"mongoURI"`
	Database string `yaml:"database"`
}

type CredentialsConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	HTTP             HTTPConfig        `yaml:"http"`
	GRPC             GRPCConfig        `yaml:"grpc"`
	Registry         RegistryConfig    `yaml:"registry"`
	Credentials      CredentialsConfig `yaml:"credentials"`
	Provider         string            `yaml:"provider"`
	ClusterListPath  string            `yaml:"clusterListPath"`
	EnumerateTimeout time.Duration     `yaml:"enumerateTimeout"`
	Log              LogConfig         `yaml:"log"`
}

// Default returns the configuration used when no file is given
func Default() *AppConfig {
	return &AppConfig{
		HTTP:            HTTPConfig{Address: ":8080"},
		Registry:        RegistryConfig{Backend: BackendMemory, Database: "kubeimport"},
		Credentials:     CredentialsConfig{Path: "credentials.db"},
		Provider:        "aws",
		ClusterListPath: "/settings/clusters",
		Log:             LogConfig{Format: "text", Level: "info", File: "tui.log"},
	}
}

// LoadConfig reads filePath over the defaults. A missing file yields the defaults.
func LoadConfig(filePath string) (*AppConfig, error) {
	config := Default()
	if filePath == "" {
		return config, nil
	}

	file, err := os.Open(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", filePath, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks values that cannot be defaulted
func (c *AppConfig) Validate() error {
	switch c.Registry.Backend {
	case BackendMemory:
	case BackendMongo:
		if c.Registry.MongoURI == "" {
			return errors.New("registry.mongoURI is required for the mongo backend")
		}
	default:
		return fmt.Errorf("unknown registry backend: %s", c.Registry.Backend)
	}

	if c.EnumerateTimeout < 0 {
		return errors.New("enumerateTimeout must not be negative")
	}

	if _, err := c.Log.NewLogger(io.Discard); err != nil {
		return err
	}

	return nil
}

// SlogLevel parses the configured level
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", l.Level, err)
	}
	return level, nil
}

// NewLogger builds the process logger writing to w
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch l.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format: %s", l.Format)
	}
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"factorize/internal/collector"
	"factorize/internal/factor"
	"factorize/internal/logger"
	"factorize/internal/pipeline"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "FACTORIZE_"

// FileConfig is the layout of a configuration file.
// Omitted keys leave the defaults in place. Workers and QueueCapacity are
// pointers so that an explicit 0 is rejected rather than read as "unset".
type FileConfig struct {
	Workers       *int         `yaml:"workers" json:"workers"`
	QueueCapacity *int         `yaml:"queue_capacity" json:"queue_capacity"`
	Method        string       `yaml:"method" json:"method"`
	Format        string       `yaml:"format" json:"format"`
	Stats         bool         `yaml:"stats" json:"stats"`
	Log           LogConfig    `yaml:"log" json:"log"`
	Server        ServerConfig `yaml:"server" json:"server"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
	JSON  bool   `yaml:"json" json:"json"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoadFile reads a YAML or JSON configuration file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// LoadDotEnv loads variables from the given .env files (".env" if none)
// into the process environment. Missing files are ignored; variables that
// are already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from FACTORIZE_* variables found by lookup.
// Pass os.LookupEnv in production.
func (f *FileConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "WORKERS"); ok {
		n, err := positiveInt(v)
		if err != nil {
			return fmt.Errorf("invalid %sWORKERS: %w", EnvPrefix, err)
		}
		f.Workers = &n
	}
	if v, ok := lookup(EnvPrefix + "QUEUE_CAPACITY"); ok {
		n, err := positiveInt(v)
		if err != nil {
			return fmt.Errorf("invalid %sQUEUE_CAPACITY: %w", EnvPrefix, err)
		}
		f.QueueCapacity = &n
	}
	if v, ok := lookup(EnvPrefix + "METHOD"); ok && v != "" {
		f.Method = v
	}
	if v, ok := lookup(EnvPrefix + "FORMAT"); ok && v != "" {
		f.Format = v
	}
	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok && v != "" {
		f.Log.Level = v
	}
	if v, ok := lookup(EnvPrefix + "STATS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sSTATS: %w", EnvPrefix, err)
		}
		f.Stats = b
	}
	if v, ok := lookup(EnvPrefix + "ADDR"); ok && v != "" {
		f.Server.Addr = v
	}
	return nil
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be > 0, got %d", n)
	}
	return n, nil
}

// Validate checks the configuration.
func (f *FileConfig) Validate() error {
	if f.Workers != nil && *f.Workers < 1 {
		return fmt.Errorf("workers must be > 0, got %d", *f.Workers)
	}
	if f.QueueCapacity != nil && *f.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be > 0, got %d", *f.QueueCapacity)
	}
	if _, err := factor.ByName(f.Method); err != nil {
		return err
	}
	if _, err := collector.ParseFormat(f.Format); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(f.Log.Level); err != nil {
		return err
	}
	return nil
}

// ToPipelineConfig converts the file settings into a pipeline.Config,
// starting from pipeline.DefaultConfig.
func (f *FileConfig) ToPipelineConfig() (pipeline.Config, error) {
	config := pipeline.DefaultConfig()

	if f.Workers != nil {
		config.Workers = *f.Workers
	}
	if f.QueueCapacity != nil {
		config.QueueCapacity = *f.QueueCapacity
	}
	if f.Method != "" {
		if _, err := factor.ByName(f.Method); err != nil {
			return config, err
		}
		config.Method = strings.ToLower(f.Method)
	}
	if f.Format != "" {
		format, err := collector.ParseFormat(f.Format)
		if err != nil {
			return config, err
		}
		config.Format = format
	}

	return config, nil
}

// LogLevel returns the configured log level.
func (f *FileConfig) LogLevel() (logger.Level, error) {
	return logger.ParseLevel(f.Log.Level)
}

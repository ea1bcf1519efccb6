package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"factorize/internal/collector"
	"factorize/internal/factor"
	"factorize/internal/logger"
)

func TestLoadFileYAML(t *testing.T) {
	content := `
workers: 5
queue_capacity: 64
method: rho
format: json
stats: true
log:
  level: debug
  json: true
server:
  addr: ":9090"
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	cfg, err := LoadFile(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Workers == nil || *cfg.Workers != 5 {
		t.Errorf("expected workers 5, got %v", cfg.Workers)
	}
	if cfg.QueueCapacity == nil || *cfg.QueueCapacity != 64 {
		t.Errorf("expected queue_capacity 64, got %v", cfg.QueueCapacity)
	}
	if cfg.Method != "rho" || cfg.Format != "json" {
		t.Errorf("unexpected method/format %q/%q", cfg.Method, cfg.Format)
	}
	if !cfg.Stats || !cfg.Log.JSON || cfg.Log.Level != "debug" {
		t.Errorf("unexpected stats/log settings %+v", cfg)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("expected addr :9090, got %q", cfg.Server.Addr)
	}
}

func TestLoadFileJSON(t *testing.T) {
	content := `{
  "workers": 2,
  "method": "trial",
  "log": {
    "level": "warn"
  }
}`
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	cfg, err := LoadFile(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Workers == nil || *cfg.Workers != 2 {
		t.Errorf("expected workers 2, got %v", cfg.Workers)
	}
	if cfg.QueueCapacity != nil {
		t.Errorf("expected queue_capacity unset, got %d", *cfg.QueueCapacity)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected log level warn, got %q", cfg.Log.Level)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := LoadFile("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFileUnsupportedFormat(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.txt")
	if err := os.WriteFile(tmpFile, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	_, err := LoadFile(tmpFile)
	if err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestLoadFileInvalidYAML(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(tmpFile, []byte("workers: [1, 2"), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	if _, err := LoadFile(tmpFile); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestToPipelineConfig(t *testing.T) {
	cfg := &FileConfig{
		Workers:       ptr(8),
		QueueCapacity: ptr(16),
		Method:        "RHO",
		Format:        "yaml",
	}

	pc, err := cfg.ToPipelineConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pc.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", pc.Workers)
	}
	if pc.QueueCapacity != 16 {
		t.Errorf("expected queue capacity 16, got %d", pc.QueueCapacity)
	}
	if pc.Method != factor.MethodRho {
		t.Errorf("expected method rho, got %q", pc.Method)
	}
	if pc.Format != collector.FormatYAML {
		t.Errorf("expected yaml format, got %q", pc.Format)
	}
}

func TestToPipelineConfigDefaults(t *testing.T) {
	pc, err := (&FileConfig{}).ToPipelineConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pc.Workers != 3 {
		t.Errorf("expected default 3 workers, got %d", pc.Workers)
	}
	if pc.QueueCapacity != 128 {
		t.Errorf("expected default queue capacity 128, got %d", pc.QueueCapacity)
	}
	if pc.Method != factor.MethodTrial || pc.Format != collector.FormatText {
		t.Errorf("unexpected defaults %+v", pc)
	}
}

func TestToPipelineConfigInvalid(t *testing.T) {
	if _, err := (&FileConfig{Method: "ecm"}).ToPipelineConfig(); !errors.Is(err, factor.ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}
	if _, err := (&FileConfig{Format: "xml"}).ToPipelineConfig(); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  FileConfig
		wantErr bool
	}{
		{"empty", FileConfig{}, false},
		{"valid", FileConfig{Workers: ptr(4), QueueCapacity: ptr(8), Method: "rho", Format: "json"}, false},
		{"zero workers", FileConfig{Workers: ptr(0)}, true},
		{"negative workers", FileConfig{Workers: ptr(-1)}, true},
		{"zero capacity", FileConfig{QueueCapacity: ptr(0)}, true},
		{"negative capacity", FileConfig{QueueCapacity: ptr(-1)}, true},
		{"unknown method", FileConfig{Method: "magic"}, true},
		{"unknown format", FileConfig{Format: "csv"}, true},
		{"unknown log level", FileConfig{Log: LogConfig{Level: "loud"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func ptr(n int) *int {
	return &n
}

func TestLoadFileExplicitZero(t *testing.T) {
	for _, content := range []string{"workers: 0\n", "queue_capacity: 0\n"} {
		tmpFile := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
			t.Fatalf("failed to create temp file: %v", err)
		}

		cfg, err := LoadFile(tmpFile)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if err := cfg.Validate(); err == nil {
			t.Errorf("%q: expected validation error", content)
		}
	}
}

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := &FileConfig{Workers: ptr(2), Method: "trial"}
	err := cfg.ApplyEnv(envLookup(map[string]string{
		"FACTORIZE_WORKERS":        "6",
		"FACTORIZE_QUEUE_CAPACITY": "32",
		"FACTORIZE_METHOD":         "rho",
		"FACTORIZE_FORMAT":         "json",
		"FACTORIZE_LOG_LEVEL":      "error",
		"FACTORIZE_STATS":          "true",
		"FACTORIZE_ADDR":           ":7000",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if *cfg.Workers != 6 || *cfg.QueueCapacity != 32 {
		t.Errorf("unexpected sizes %+v", cfg)
	}
	if cfg.Method != "rho" || cfg.Format != "json" || cfg.Log.Level != "error" {
		t.Errorf("unexpected strings %+v", cfg)
	}
	if !cfg.Stats || cfg.Server.Addr != ":7000" {
		t.Errorf("unexpected stats/addr %+v", cfg)
	}

	level, err := cfg.LogLevel()
	if err != nil || level != logger.LevelError {
		t.Errorf("expected error level, got %v (%v)", level, err)
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	tests := map[string]string{
		"FACTORIZE_WORKERS":        "0",
		"FACTORIZE_QUEUE_CAPACITY": "-3",
		"FACTORIZE_STATS":          "maybe",
	}
	for key, value := range tests {
		cfg := &FileConfig{}
		if err := cfg.ApplyEnv(envLookup(map[string]string{key: value})); err == nil {
			t.Errorf("expected error for %s=%s", key, value)
		}
	}

	cfg := &FileConfig{}
	if err := cfg.ApplyEnv(envLookup(map[string]string{"FACTORIZE_WORKERS": "three"})); err == nil {
		t.Error("expected error for non-numeric worker count")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("FACTORIZE_TEST_DOTENV=4\n"), 0644); err != nil {
		t.Fatalf("failed to create env file: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("FACTORIZE_TEST_DOTENV") })

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), envFile); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("FACTORIZE_TEST_DOTENV"); got != "4" {
		t.Errorf("expected variable from .env file, got %q", got)
	}
}

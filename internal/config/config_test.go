package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"emojify/internal/watcher"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("EMOJIFY_INPUT_DIR", "")
	t.Setenv("EMOJIFY_OUTPUT_DIR", "")
	t.Setenv("EMOJIFY_REMOVE_BACKGROUND", "")
	t.Setenv("EMOJIFY_LOG_LEVEL", "")

	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
input_dir: "drop"
output_dir: "emojis"
suffix: "_discord"
settle_delay: 2s

limits:
  max_bytes: 131072
  max_dimension: 96

jpeg:
  start_quality: 90
  step: 10
  min_quality: 20

background:
  enabled: true
  engine: command
  command: ["rembg", "i", "{input}", "{output}"]

log:
  level: debug
  format: json
`
	if err := os.WriteFile(configFile, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.InputDir != "drop" || cfg.OutputDir != "emojis" || cfg.Suffix != "_discord" {
		t.Errorf("unexpected directories: %+v", cfg)
	}
	if cfg.SettleDelay != 2*time.Second {
		t.Errorf("Expected settle delay 2s, got %s", cfg.SettleDelay)
	}
	if cfg.Limits.MaxBytes != 131072 || cfg.Limits.MaxDimension != 96 {
		t.Errorf("unexpected limits: %+v", cfg.Limits)
	}
	if cfg.JPEG.StartQuality != 90 || cfg.JPEG.Step != 10 || cfg.JPEG.MinQuality != 20 {
		t.Errorf("unexpected jpeg ladder: %+v", cfg.JPEG)
	}
	if !cfg.Background.Enabled || cfg.Background.Engine != "command" || len(cfg.Background.Command) != 4 {
		t.Errorf("unexpected background: %+v", cfg.Background)
	}
	if cfg.Background.Tolerance == 0 {
		t.Error("Expected default tolerance to survive a partial background section")
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}

	opts := cfg.ProcessorOptions()
	if opts.MaxBytes != 131072 || opts.Suffix != "_discord" || !opts.RemoveBackground {
		t.Errorf("unexpected processor options: %+v", opts)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv("EMOJIFY_INPUT_DIR", "")
	t.Setenv("EMOJIFY_OUTPUT_DIR", "")
	t.Setenv("EMOJIFY_REMOVE_BACKGROUND", "")
	t.Setenv("EMOJIFY_LOG_LEVEL", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Default()
	if cfg.InputDir != want.InputDir || cfg.Limits != want.Limits || cfg.JPEG != want.JPEG {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if cfg.Limits.MaxBytes != 256*1024 || cfg.Limits.MaxDimension != 128 {
		t.Fatalf("unexpected default limits %+v", cfg.Limits)
	}
	if cfg.SettleDelay != watcher.DefaultSettle {
		t.Fatalf("expected settle delay %s, got %s", watcher.DefaultSettle, cfg.SettleDelay)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"EMOJIFY_INPUT_DIR":         "/srv/in",
		"EMOJIFY_OUTPUT_DIR":        "/srv/out",
		"EMOJIFY_REMOVE_BACKGROUND": "true",
		"EMOJIFY_LOG_LEVEL":         "warn",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.InputDir != "/srv/in" || cfg.OutputDir != "/srv/out" || !cfg.Background.Enabled || cfg.Log.Level != "warn" {
		t.Fatalf("env not applied: %+v", cfg)
	}

	env["EMOJIFY_REMOVE_BACKGROUND"] = "sometimes"
	if err := cfg.ApplyEnv(lookup); err == nil {
		t.Fatal("expected error for invalid boolean")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing input", func(c *Config) { c.InputDir = "" }, "input_dir"},
		{"zero bytes", func(c *Config) { c.Limits.MaxBytes = 0 }, "max_bytes"},
		{"inverted ladder", func(c *Config) { c.JPEG.MinQuality = 99 }, "jpeg qualities"},
		{"unknown engine", func(c *Config) { c.Background.Engine = "magic" }, "background.engine"},
		{"command without args", func(c *Config) {
			c.Background.Enabled = true
			c.Background.Engine = "command"
		}, "background.command"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}

	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

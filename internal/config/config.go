package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"emojify/internal/processor"
	"emojify/internal/segment"
	"emojify/internal/watcher"
)

// Config represents the application configuration
type Config struct {
	InputDir    string           `yaml:"input_dir"`
	OutputDir   string           `yaml:"output_dir"`
	Suffix      string           `yaml:"suffix"`
	SettleDelay time.Duration    `yaml:"settle_delay"`
	Limits      LimitsConfig     `yaml:"limits"`
	JPEG        JPEGConfig       `yaml:"jpeg"`
	Background  BackgroundConfig `yaml:"background"`
	Log         LogConfig        `yaml:"log"`
}

type LimitsConfig struct {
	MaxBytes     int `yaml:"max_bytes"`
	MaxDimension int `yaml:"max_dimension"`
}

type JPEGConfig struct {
	StartQuality int `yaml:"start_quality"`
	Step         int `yaml:"step"`
	MinQuality   int `yaml:"min_quality"`
}

type BackgroundConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Engine    string   `yaml:"engine"`
	Tolerance float64  `yaml:"tolerance"`
	Feather   float32  `yaml:"feather"`
	Command   []string `yaml:"command"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		InputDir:    "input",
		OutputDir:   "output",
		Suffix:      processor.DefaultSuffix,
		SettleDelay: watcher.DefaultSettle,
		Limits: LimitsConfig{
			MaxBytes:     processor.DefaultMaxBytes,
			MaxDimension: processor.DefaultMaxDimension,
		},
		JPEG: JPEGConfig{
			StartQuality: processor.DefaultJPEGStartQuality,
			Step:         processor.DefaultJPEGStep,
			MinQuality:   processor.DefaultJPEGMinQuality,
		},
		Background: BackgroundConfig{
			Engine:    segment.EngineFlood,
			Tolerance: segment.DefaultTolerance,
			Feather:   segment.DefaultFeather,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the optional YAML file at path over the defaults, then
// applies .env files and environment overrides. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Missing .env files are fine.
	_ = godotenv.Load(".env", ".env.local")
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv overrides fields from EMOJIFY_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("EMOJIFY_INPUT_DIR"); ok && v != "" {
		c.InputDir = v
	}
	if v, ok := lookup("EMOJIFY_OUTPUT_DIR"); ok && v != "" {
		c.OutputDir = v
	}
	if v, ok := lookup("EMOJIFY_REMOVE_BACKGROUND"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("EMOJIFY_REMOVE_BACKGROUND: %w", err)
		}
		c.Background.Enabled = enabled
	}
	if v, ok := lookup("EMOJIFY_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks if configuration fields are usable
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.InputDir) == "" {
		errs = append(errs, errors.New("input_dir is required"))
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	if c.SettleDelay < 0 {
		errs = append(errs, errors.New("settle_delay must not be negative"))
	}
	if c.Limits.MaxBytes <= 0 {
		errs = append(errs, errors.New("limits.max_bytes must be positive"))
	}
	if c.Limits.MaxDimension <= 0 {
		errs = append(errs, errors.New("limits.max_dimension must be positive"))
	}
	if c.JPEG.MinQuality < 1 || c.JPEG.StartQuality > 100 || c.JPEG.MinQuality > c.JPEG.StartQuality {
		errs = append(errs, fmt.Errorf("jpeg qualities must satisfy 1 <= min_quality (%d) <= start_quality (%d) <= 100", c.JPEG.MinQuality, c.JPEG.StartQuality))
	}
	if c.JPEG.Step <= 0 {
		errs = append(errs, errors.New("jpeg.step must be positive"))
	}
	switch c.Background.Engine {
	case "", segment.EngineFlood:
	case segment.EngineCommand:
		if c.Background.Enabled && len(c.Background.Command) == 0 {
			errs = append(errs, errors.New("background.command is required for the command engine"))
		}
	default:
		errs = append(errs, fmt.Errorf("background.engine %q is not one of flood, command", c.Background.Engine))
	}
	if c.Background.Tolerance < 0 || c.Background.Tolerance > 1 {
		errs = append(errs, errors.New("background.tolerance must be within [0, 1]"))
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of console, json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ProcessorOptions maps the configuration onto optimizer options. Reporter,
// Logger and Remover are left for the caller.
func (c *Config) ProcessorOptions() processor.Options {
	return processor.Options{
		OutputDir:        c.OutputDir,
		Suffix:           c.Suffix,
		MaxBytes:         c.Limits.MaxBytes,
		MaxDimension:     c.Limits.MaxDimension,
		JPEGStartQuality: c.JPEG.StartQuality,
		JPEGStep:         c.JPEG.Step,
		JPEGMinQuality:   c.JPEG.MinQuality,
		RemoveBackground: c.Background.Enabled,
	}
}

// SegmentConfig returns the background engine settings.
func (c *Config) SegmentConfig() segment.Config {
	return segment.Config{
		Engine:    c.Background.Engine,
		Tolerance: c.Background.Tolerance,
		Feather:   c.Background.Feather,
		Command:   c.Background.Command,
	}
}

package cmd

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"emojify/internal/config"
	"emojify/internal/logging"
	"emojify/internal/processor"
	"emojify/internal/segment"
)

// loadConfig reads the config file and environment, then applies the flags
// the user actually set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.OutputDir = flagOutput
	}
	if flags.Changed("remove-bg") {
		cfg.Background.Enabled = flagRemoveBG
	}
	if flags.Changed("bg-engine") {
		cfg.Background.Engine = flagBGEngine
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = flagLogLevel
	}
	if flags.Changed("input") {
		cfg.InputDir = watchInput
	}
	if flags.Changed("settle") {
		cfg.SettleDelay = watchSettle
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (zerolog.Logger, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return logger, err
	}
	return logger.With().Str("run", uuid.NewString()).Logger(), nil
}

func newOptimizer(cfg *config.Config, reporter processor.Reporter, logger *zerolog.Logger) (*processor.Optimizer, error) {
	opts := cfg.ProcessorOptions()
	opts.Reporter = reporter
	opts.Logger = logger
	if cfg.Background.Enabled {
		remover, err := segment.New(cfg.SegmentConfig())
		if err != nil {
			return nil, err
		}
		opts.Remover = remover
	}
	return processor.New(opts), nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"emojify/internal/tui"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize <file>...",
	Short: "Optimize the given images once without watching",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cmd, cfg)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return err
		}

		console := tui.NewConsole(cmd.OutOrStdout())
		console.Limit = int64(cfg.Limits.MaxBytes)
		opt, err := newOptimizer(cfg, console, &logger)
		if err != nil {
			return err
		}

		summary, _, err := opt.Run(cmd.Context(), args, nil)
		if err != nil {
			return err
		}
		console.Println(tui.RenderSummary(tui.SweepRows(summary)))
		if summary.Errors > 0 {
			return fmt.Errorf("%d of %d images failed", summary.Errors, summary.Total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
}

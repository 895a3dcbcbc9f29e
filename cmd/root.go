package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagOutput   string
	flagRemoveBG bool
	flagBGEngine string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "emojify",
	Short: "emojify - turn dropped images into Discord-ready emoji",
	Long: "emojify watches a folder and converts every new image into a Discord emoji: " +
		"at most 128x128 pixels and 256KB, optionally with the background removed, animation kept for GIFs.",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWatch,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "path to a YAML config file")
	pf.StringVarP(&flagOutput, "output", "o", "", "folder for optimized emoji")
	pf.BoolVar(&flagRemoveBG, "remove-bg", false, "remove image backgrounds before resizing")
	pf.StringVar(&flagBGEngine, "bg-engine", "", "background removal engine (flood|command)")
	pf.StringVar(&flagLogLevel, "log-level", "", "diagnostic log level (debug|info|warn|error)")

	addWatchFlags(rootCmd)
}

// Command wand turns hand gestures seen by a webcam into pointer input.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medlink-research/wand/internal/config"
	"github.com/medlink-research/wand/internal/logging"
)

var (
	// Global flags
	configPath string
	logLevel   string
	devLog     bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "wand",
	Short: "Hand gesture pointer control",
	Long: `wand tracks one hand through the webcam and turns it into a cursor:
pinch to click, close the fist and move to scroll, wave to go back.

Run "wand serve" to start gesture control with its HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("dev") {
			cfg.Development = devLog
		}

		logger, err = logging.New(cfg.LogLevel, cfg.Development)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(config.DefaultDirName, "config.yaml")
	}
	return filepath.Join(home, config.DefaultDirName, "config.yaml")
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&devLog, "dev", false, "human readable logs")

	rootCmd.AddCommand(serveCmd, replayCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

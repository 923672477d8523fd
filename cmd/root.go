package cmd

import (
	"context"
	"fmt"
	"os"

	"critiq/config"
	"critiq/logger"

	"github.com/spf13/cobra"
)

var v = config.NewViper()

var rootCmd = &cobra.Command{
	Use:   "critiq",
	Short: "Critiq movie review backend",
	Long: `Critiq serves the movie review API: accounts, reviews, comments, likes,
follows, playlists, notifications and realtime updates.

Settings come from the environment (and .env when present); flags override them.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-file", "", "Rotated log file path")
	bindFlag(rootCmd, "log_level", "log-level")
	bindFlag(rootCmd, "log_file", "log-file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(indexesCmd)
	rootCmd.AddCommand(vapidCmd)
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	f := cmd.PersistentFlags().Lookup(flag)
	if f == nil {
		f = cmd.Flags().Lookup(flag)
	}
	_ = v.BindPFlag(key, f)
}

// loadConfig reads the settings and starts the logger.
func loadConfig() (*config.Config, error) {
	cfg := config.Load(v)
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

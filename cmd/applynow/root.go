package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/applynow/internal/config"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "applynow",
	Short: "Job lifecycle tracker with subscriber alerts",
	Long:  "ApplyNow crawls company career boards, tracks every posting from first sighting to archive, and alerts subscribers to new roles that match their filters.",
	// Default to `start` so that `applynow` with no args runs the daemon.
	RunE:         runStart,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: APPLYNOW_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > APPLYNOW_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	return config.Load(resolveConfigPath(path))
}

func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv("APPLYNOW_CONFIG"); env != "" {
		return env
	}
	return "config.yaml"
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

package cmd

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/argobridge/argobridge/internal/config"
)

const (
	AppName = "argobridge"
	Version = "0.1.0"
)

var (
	logger  *slog.Logger
	baseDir string
	cfgMgr  *config.Manager
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	logger = slog.New(handler)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		logger.Error("Failed to get home directory", "error", err)
		os.Exit(1)
	}

	baseDir = filepath.Join(homeDir, "."+AppName)
}

var rootCmd = &cobra.Command{
	Use:     AppName,
	Short:   "Argo Bridge - OpenAI/Anthropic proxy for the Argo API",
	Long:    `A proxy server that presents OpenAI and Anthropic compatible endpoints and translates them to the Argo API, including tool calling for models without native support.`,
	Version: Version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
}

// configManager honors an explicit --config path, falling back to the
// standard search locations.
func configManager(cmd *cobra.Command) *config.Manager {
	if cfgMgr != nil {
		return cfgMgr
	}
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfgMgr = config.NewManager(path)
	} else {
		cfgMgr = config.NewManagerFromSearch()
	}
	return cfgMgr
}

func ensureConfigExists(cmd *cobra.Command) error {
	mgr := configManager(cmd)
	if !mgr.Exists() {
		color.Yellow("Configuration not found at %s", mgr.GetPath())
		color.Yellow("Run '%s config init' to set it up", AppName)
		return os.ErrNotExist
	}
	return nil
}

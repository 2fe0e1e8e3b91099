package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/argobridge/argobridge/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the Argo proxy configuration.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration interactively",
	Long:  `Initialize configuration by prompting for the Argo connection details.`,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration.`,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Validate the current configuration for errors.`,
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	color.Blue("Argo Bridge Configuration Setup")

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("\nArgo username: ")
	user, _ := reader.ReadString('\n')
	user = strings.TrimSpace(user)

	fmt.Print("Argo API URL: ")
	argoURL, _ := reader.ReadString('\n')
	argoURL = strings.TrimSpace(argoURL)

	fmt.Print("Argo streaming URL (optional, empty disables real streaming): ")
	argoStreamURL, _ := reader.ReadString('\n')
	argoStreamURL = strings.TrimSpace(argoStreamURL)

	fmt.Print("Proxy API key (optional, for client authentication): ")
	apiKey, _ := reader.ReadString('\n')
	apiKey = strings.TrimSpace(apiKey)

	cfg := &config.Config{
		Host:          config.DefaultHost,
		Port:          config.DefaultPort,
		User:          user,
		ArgoURL:       argoURL,
		ArgoStreamURL: argoStreamURL,
		APIKey:        apiKey,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	mgr := configManager(cmd)
	if err := mgr.Save(cfg); err != nil {
		return fmt.Errorf("save configuration: %w", err)
	}

	color.Green("Configuration saved to: %s", mgr.GetPath())
	color.Cyan("You can now start the proxy with: %s start", AppName)

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	mgr := configManager(cmd)
	if !mgr.Exists() {
		color.Yellow("No configuration found. Run '%s config init' to create one.", AppName)
		return nil
	}

	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	color.Blue("Current Configuration:")
	fmt.Printf("  %-15s: %s\n", "Host", cfg.Host)
	fmt.Printf("  %-15s: %d\n", "Port", cfg.Port)
	fmt.Printf("  %-15s: %s\n", "User", cfg.User)
	fmt.Printf("  %-15s: %s\n", "Argo URL", cfg.ArgoURL)
	fmt.Printf("  %-15s: %s\n", "Stream URL", cfg.ArgoStreamURL)
	fmt.Printf("  %-15s: %s\n", "API Key", maskString(cfg.APIKey))
	fmt.Printf("  %-15s: %s\n", "Config Path", mgr.GetPath())

	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	mgr := configManager(cmd)
	if !mgr.Exists() {
		return fmt.Errorf("no configuration found at %s", mgr.GetPath())
	}

	if _, err := mgr.Load(); err != nil {
		color.Red("Configuration invalid: %v", err)
		return err
	}

	color.Green("Configuration is valid")
	return nil
}

func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

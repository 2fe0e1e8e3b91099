package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/argobridge/argobridge/internal/process"
	"github.com/argobridge/argobridge/internal/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the proxy service",
	Long:  `Start the Argo proxy service in the foreground.`,
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, _ []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	setupLogging(verbose)

	if err := ensureConfigExists(cmd); err != nil {
		return err
	}

	mgr := configManager(cmd)
	cfg, err := mgr.Load()
	if err != nil {
		return err
	}
	if verbose {
		cfg.Verbose = true
	}

	color.Green("Starting %s v%s...", AppName, Version)
	logger.Info("Starting server",
		"host", cfg.Host,
		"port", cfg.Port,
		"upstream", cfg.ArgoURL,
	)

	procMgr := process.NewManager(baseDir)
	if procMgr.IsRunning() {
		color.Yellow("Service already running (pid %d)", procMgr.ReadPID())
		return nil
	}
	if err := procMgr.WritePID(); err != nil {
		return err
	}
	defer procMgr.CleanupPID()

	srv := server.New(mgr, logger)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown failed", "error", err)
		}
	}()

	return srv.Start()
}

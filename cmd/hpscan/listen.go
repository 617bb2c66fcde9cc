package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soracano/hpscan/internal/config"
	"github.com/soracano/hpscan/internal/scanner"
	"github.com/soracano/hpscan/internal/webui"
)

// NewListenCmd creates the listen command.
func NewListenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Register as a scan destination and wait for the device button",
		Long: `Listen registers this computer as a walkup scan destination on the
device, then waits. Each time the scan button is pressed on the device
front panel with this destination selected, a job is run and the result
is saved to the output directory.

A small status page is served locally while listening; disable it by
setting listenAddr to "" in the config file.

Examples:
  # Listen under the local hostname
  hpscan listen --host printer.local

  # Listen under a custom label with the status page on another port
  hpscan listen --host printer.local --name "Study PC" --listen 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: runListenCmd,
	}

	cmd.Flags().String("name", "", "Destination label shown on the device (default: hostname)")
	cmd.Flags().String("listen", "", "Status page listen address (default from config)")

	return cmd
}

func runListenCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("name"); v != "" {
		cfg.DestinationName = v
	}
	if cmd.Flags().Changed("listen") {
		cfg.ListenAddr, _ = cmd.Flags().GetString("listen")
	} else if cfg.ListenAddr == "" {
		cfg.ListenAddr = config.DefaultListenAddr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sc := newScanner(cfg)
	if err := sc.Connect(ctx); err != nil {
		return err
	}

	locator, err := sc.RegisterDestination(ctx)
	if err != nil {
		return err
	}
	defer func() {
		// The listen context is already canceled on shutdown; give the
		// removal its own deadline.
		rmCtx, rmCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer rmCancel()
		if err := sc.RemoveDestination(rmCtx, locator); err != nil {
			slog.Warn("destination cleanup failed", "err", err)
		}
	}()

	var activity scanner.Activity
	if cfg.ListenAddr != "" {
		srv := &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: webui.NewHandler(sc, &activity, sc.Name()),
		}
		go func() {
			slog.Info("status page listening", "addr", cfg.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("status page failed", "err", err)
			}
		}()
		defer srv.Close()
	}

	slog.Info("waiting for scan button", "destination", sc.Name())
	for {
		if err := sc.WaitForTrigger(ctx, locator); err != nil {
			if ctx.Err() != nil {
				slog.Info("shutting down")
				return nil
			}
			return err
		}

		activity.SetScanning(true)
		err := runListenJob(ctx, sc, cfg, &activity)
		if err != nil && ctx.Err() != nil {
			slog.Info("shutting down")
			return nil
		}
		if err != nil {
			// One failed job must not take the listener down.
			slog.Error("scan failed", "err", err)
		}
	}
}

func runListenJob(ctx context.Context, sc *scanner.Scanner, cfg config.Config, activity *scanner.Activity) error {
	workDir, err := os.MkdirTemp("", "hpscan-pages-")
	if err != nil {
		activity.SetResult(err, 0, "")
		return fmt.Errorf("create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	settings := scanner.SettingsFromConfig(cfg.Resolution, cfg.ColorSpace, cfg.Source, sc.Capabilities())
	pages, err := sc.RunJob(ctx, settings, workDir)
	if err != nil {
		activity.SetResult(err, len(pages), "")
		return err
	}

	out, err := scanner.SaveOutput(pages, cfg.Format, cfg.Resolution, cfg.OutputDir)
	activity.SetResult(err, len(pages), out)
	return err
}

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/soracano/hpscan/internal/config"
	"github.com/soracano/hpscan/internal/ews"
	"github.com/soracano/hpscan/internal/scanner"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hpscan",
		Short: "Walkup scan client for HP network scanners",
		Long: `hpscan talks to the embedded web server of an HP network scanner to
run scan jobs, either on demand or triggered from the device front panel.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("host", "H", "", "Device address (name or IP)")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: hpscan.yaml in current or XDG config directory)")
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable request/response logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewListenCmd())
	cmd.AddCommand(NewDestinationsCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig merges the config file with persistent flags, sets up
// logging, and validates the result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	explicit, _ := cmd.Flags().GetString("config")

	cfg := config.Default()
	if path := config.Find(explicit); path != "" {
		c, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = c
	} else if explicit != "" {
		return config.Config{}, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicit)
	}

	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Host = host
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
	}

	setupLogger(cfg.Debug)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// newScanner builds a Scanner from the configuration. The caller
// connects it with a signal-aware context.
func newScanner(cfg config.Config) *scanner.Scanner {
	name := cfg.DestinationName
	if name == "" {
		if hostname, err := os.Hostname(); err == nil {
			name = hostname
		} else {
			name = config.AppName
		}
	}

	return scanner.New(cfg.Host, name,
		ews.WithPorts(cfg.Port, cfg.ScanPort),
		ews.WithDebug(cfg.Debug),
	)
}

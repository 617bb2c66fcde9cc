package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soracano/hpscan/internal/config"
	"github.com/soracano/hpscan/internal/scanner"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a single scan job now",
		Long: `Scan submits one job to the device immediately and saves the result.

Examples:
  # Scan from the flatbed into a PDF
  hpscan scan --host printer.local

  # Scan the document feeder in grayscale at 200 dpi
  hpscan scan --host printer.local --source adf --color gray --dpi 200

  # Keep the individual JPEG pages instead of building a PDF
  hpscan scan --host printer.local --format jpeg`,
		Args: cobra.NoArgs,
		RunE: runScanCmd,
	}

	cmd.Flags().Int("dpi", 0, "Scan resolution in dpi (default from config)")
	cmd.Flags().String("color", "", "Color space: color or gray (default from config)")
	cmd.Flags().String("source", "", "Input source: platen or adf (default from config)")
	cmd.Flags().String("format", "", "Output format: pdf or jpeg (default from config)")
	cmd.Flags().StringP("output", "o", "", "Output directory (default from config)")

	return cmd
}

func runScanCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyScanFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sc := newScanner(cfg)
	if err := sc.Connect(ctx); err != nil {
		return err
	}

	return runJobAndSave(ctx, sc, cfg)
}

// applyScanFlags overlays per-scan flags onto the configuration.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config) {
	if dpi, _ := cmd.Flags().GetInt("dpi"); dpi > 0 {
		cfg.Resolution = dpi
	}
	if v, _ := cmd.Flags().GetString("color"); v != "" {
		cfg.ColorSpace = v
	}
	if v, _ := cmd.Flags().GetString("source"); v != "" {
		cfg.Source = v
	}
	if v, _ := cmd.Flags().GetString("format"); v != "" {
		cfg.Format = v
	}
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		cfg.OutputDir = v
	}
}

// runJobAndSave drives one job from submission to a saved output file.
func runJobAndSave(ctx context.Context, sc *scanner.Scanner, cfg config.Config) error {
	workDir, err := os.MkdirTemp("", "hpscan-pages-")
	if err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	settings := scanner.SettingsFromConfig(cfg.Resolution, cfg.ColorSpace, cfg.Source, sc.Capabilities())
	pages, err := sc.RunJob(ctx, settings, workDir)
	if err != nil {
		return err
	}

	out, err := scanner.SaveOutput(pages, cfg.Format, cfg.Resolution, cfg.OutputDir)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

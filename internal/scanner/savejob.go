package scanner

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/soracano/hpscan/internal/ews"
)

// Activity tracks the state of the most recent scan for the status surface.
type Activity struct {
	mu        sync.RWMutex
	Scanning  bool   `json:"scanning"`
	LastError string `json:"lastError,omitempty"`
	LastScan  string `json:"lastScan,omitempty"` // RFC3339
	Pages     int    `json:"pages"`
	Output    string `json:"output,omitempty"`
}

// Snapshot returns a copy of the current activity.
func (a *Activity) Snapshot() Activity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Activity{
		Scanning:  a.Scanning,
		LastError: a.LastError,
		LastScan:  a.LastScan,
		Pages:     a.Pages,
		Output:    a.Output,
	}
}

// SetScanning marks a scan as in progress.
func (a *Activity) SetScanning(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Scanning = v
	if v {
		a.LastError = ""
	}
}

// SetResult records the outcome of a finished scan.
func (a *Activity) SetResult(err error, pages int, output string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Scanning = false
	a.LastScan = time.Now().UTC().Format(time.RFC3339)
	a.Pages = pages
	a.Output = output
	if err != nil {
		a.LastError = err.Error()
	} else {
		a.LastError = ""
	}
}

// SaveOutput delivers a finished job to outDir in the requested format:
// a single timestamped PDF, or the individual JPEG pages renamed into
// place. It returns the primary output path (the PDF, or the directory
// holding the pages).
func SaveOutput(pages []PageFile, format string, dpi int, outDir string) (string, error) {
	if len(pages) == 0 {
		return "", fmt.Errorf("scan produced no pages")
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")

	switch format {
	case "pdf", "application/pdf":
		outPath := filepath.Join(outDir, fmt.Sprintf("scan_%s.pdf", timestamp))
		if err := WritePDF(pages, dpi, outPath); err != nil {
			return "", fmt.Errorf("write PDF: %w", err)
		}
		slog.Info("scan saved as PDF", "path", outPath, "pages", len(pages))
		return outPath, nil
	default:
		for _, p := range pages {
			outPath := filepath.Join(outDir, fmt.Sprintf("scan_%s_%03d.jpg", timestamp, p.Number))
			if err := os.Rename(p.Path, outPath); err != nil {
				return "", fmt.Errorf("move page %d: %w", p.Number, err)
			}
		}
		slog.Info("scan saved as individual files", "path", outDir, "pages", len(pages))
		return outDir, nil
	}
}

// SettingsFromConfig builds job settings from configured scan defaults.
// Width and height come from the device caps when known, falling back to
// US Letter at the requested resolution.
func SettingsFromConfig(resolution int, colorSpace, source string, caps ews.Capabilities) ews.JobSettings {
	if resolution <= 0 {
		resolution = 300
	}

	width := caps.MaxWidth
	height := caps.MaxHeight
	if width <= 0 {
		width = 2550
	}
	if height <= 0 {
		height = 3300
	}

	cs := "Color"
	if colorSpace == "gray" || colorSpace == "grayscale" {
		cs = "Gray"
	}

	src := "Platen"
	if source == "adf" {
		src = "Adf"
	}

	return ews.JobSettings{
		XResolution: resolution,
		YResolution: resolution,
		Width:       width,
		Height:      height,
		Format:      "Jpeg",
		ColorSpace:  cs,
		BitDepth:    8,
		Source:      src,
	}
}

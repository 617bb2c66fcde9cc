package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soracano/hpscan/internal/ews"
)

func TestSettingsFromConfig(t *testing.T) {
	caps := ews.Capabilities{MaxWidth: 2550, MaxHeight: 3508}

	tests := []struct {
		name       string
		resolution int
		colorSpace string
		source     string
		caps       ews.Capabilities
		want       ews.JobSettings
	}{
		{
			"defaults",
			0, "", "", ews.Capabilities{},
			ews.JobSettings{XResolution: 300, YResolution: 300, Width: 2550, Height: 3300,
				Format: "Jpeg", ColorSpace: "Color", BitDepth: 8, Source: "Platen"},
		},
		{
			"gray adf with caps",
			200, "gray", "adf", caps,
			ews.JobSettings{XResolution: 200, YResolution: 200, Width: 2550, Height: 3508,
				Format: "Jpeg", ColorSpace: "Gray", BitDepth: 8, Source: "Adf"},
		},
		{
			"grayscale alias",
			300, "grayscale", "platen", caps,
			ews.JobSettings{XResolution: 300, YResolution: 300, Width: 2550, Height: 3508,
				Format: "Jpeg", ColorSpace: "Gray", BitDepth: 8, Source: "Platen"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SettingsFromConfig(tt.resolution, tt.colorSpace, tt.source, tt.caps)
			if got != tt.want {
				t.Errorf("SettingsFromConfig() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSaveOutputMovesJPEGPages(t *testing.T) {
	workDir := t.TempDir()
	outDir := t.TempDir()

	var pages []PageFile
	for i := 1; i <= 2; i++ {
		p := filepath.Join(workDir, fmt.Sprintf("page_%03d.jpg", i))
		if err := os.WriteFile(p, []byte("jpeg bytes"), 0644); err != nil {
			t.Fatal(err)
		}
		pages = append(pages, PageFile{Number: i, Path: p})
	}

	got, err := SaveOutput(pages, "jpeg", 300, outDir)
	if err != nil {
		t.Fatalf("SaveOutput() error = %v", err)
	}
	if got != outDir {
		t.Errorf("SaveOutput() = %q, want output directory %q", got, outDir)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("output entries = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "scan_") || !strings.HasSuffix(e.Name(), ".jpg") {
			t.Errorf("unexpected output file name %q", e.Name())
		}
	}
	// Source pages were moved, not copied.
	for _, p := range pages {
		if _, err := os.Stat(p.Path); !os.IsNotExist(err) {
			t.Errorf("page %d still present at %s", p.Number, p.Path)
		}
	}
}

func TestSaveOutputNoPages(t *testing.T) {
	if _, err := SaveOutput(nil, "pdf", 300, t.TempDir()); err == nil {
		t.Error("SaveOutput() = nil for an empty page list")
	}
}

func TestActivitySnapshot(t *testing.T) {
	var a Activity
	a.SetScanning(true)
	if snap := a.Snapshot(); !snap.Scanning {
		t.Error("Snapshot().Scanning = false after SetScanning(true)")
	}

	a.SetResult(nil, 3, "/tmp/scan.pdf")
	snap := a.Snapshot()
	if snap.Scanning {
		t.Error("Snapshot().Scanning = true after SetResult")
	}
	if snap.Pages != 3 || snap.Output != "/tmp/scan.pdf" || snap.LastError != "" {
		t.Errorf("Snapshot() = %+v", &snap)
	}
	if snap.LastScan == "" {
		t.Error("Snapshot().LastScan is empty after SetResult")
	}
}

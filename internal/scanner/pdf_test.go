package scanner

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

func writeTestJPEG(t *testing.T, dir string, n int) PageFile {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, fmt.Sprintf("page_%03d.jpg", n))
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return PageFile{Number: n, Path: path}
}

func TestGeneratePDF(t *testing.T) {
	dir := t.TempDir()
	pages := []PageFile{writeTestJPEG(t, dir, 1), writeTestJPEG(t, dir, 2)}

	data, err := GeneratePDF(pages, 300)
	if err != nil {
		t.Fatalf("GeneratePDF() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("output does not start with a PDF header")
	}
	if !bytes.Contains(data, []byte("/Count 2")) {
		t.Error("output does not report 2 pages")
	}
}

func TestGeneratePDFNoPages(t *testing.T) {
	if _, err := GeneratePDF(nil, 300); err == nil {
		t.Error("GeneratePDF() = nil for an empty page list")
	}
}

func TestDetectJPEGDPI(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want int
	}{
		{"not a jpeg", []byte("hello"), 0},
		{"jfif dpi", jfifHeader(1, 600), 600},
		{"jfif dots per cm", jfifHeader(2, 118), 299}, // 118 d/cm ≈ 300 dpi
		{"jfif aspect only", jfifHeader(0, 1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectJPEGDPI(tt.data); got != tt.want {
				t.Errorf("detectJPEGDPI() = %d, want %d", got, tt.want)
			}
		})
	}
}

// jfifHeader builds a minimal SOI + APP0 prefix with the given density.
func jfifHeader(units byte, density int) []byte {
	seg := []byte{
		0xFF, 0xD8, // SOI
		0xFF, 0xE0, 0x00, 0x10, // APP0, length 16
		'J', 'F', 'I', 'F', 0x00,
		0x01, 0x02, // version
		units,
		byte(density >> 8), byte(density & 0xFF), // X density
		byte(density >> 8), byte(density & 0xFF), // Y density
		0x00, 0x00, // thumbnail
	}
	return seg
}

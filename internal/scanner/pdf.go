package scanner

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"

	"github.com/go-pdf/fpdf"
)

// WritePDF combines downloaded JPEG pages into a single PDF file.
func WritePDF(pages []PageFile, dpi int, outputPath string) error {
	data, err := GeneratePDF(pages, dpi)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0644)
}

// GeneratePDF combines downloaded JPEG pages into a PDF in memory. Page
// dimensions follow each image's own size; the DPI embedded in the JPEG
// data wins over the dpi argument when present.
func GeneratePDF(pages []PageFile, dpi int) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to write")
	}
	if dpi <= 0 {
		dpi = 300
	}

	pdf := fpdf.New("P", "mm", "", "")
	pdf.SetAutoPageBreak(false, 0)

	for _, p := range pages {
		data, err := os.ReadFile(p.Path)
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", p.Number, err)
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode page %d image config: %w", p.Number, err)
		}

		pageDPI := dpi
		if d := detectJPEGDPI(data); d > 0 {
			pageDPI = d
		}

		widthMM := float64(cfg.Width) / float64(pageDPI) * 25.4
		heightMM := float64(cfg.Height) / float64(pageDPI) * 25.4

		pdf.AddPageFormat("P", fpdf.SizeType{Wd: widthMM, Ht: heightMM})

		name := fmt.Sprintf("page%d", p.Number)
		pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "JPEG"}, bytes.NewReader(data))
		pdf.ImageOptions(name, 0, 0, widthMM, heightMM, false, fpdf.ImageOptions{}, 0, "")
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("generate PDF: %w", err)
	}
	return out.Bytes(), nil
}

// detectJPEGDPI extracts the X density from a JPEG's JFIF APP0 segment.
// Returns 0 if the density cannot be determined.
func detectJPEGDPI(data []byte) int {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0
	}
	i := 2
	for i+4 < len(data) {
		if data[i] != 0xFF {
			break
		}
		marker := data[i+1]
		segLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if marker == 0xE0 && segLen >= 14 { // APP0 (JFIF)
			seg := data[i+4:]
			if len(seg) >= 10 && string(seg[0:5]) == "JFIF\x00" {
				units := seg[7]
				xd := int(binary.BigEndian.Uint16(seg[8:10]))
				if units == 1 { // dots per inch
					return xd
				}
				if units == 2 { // dots per cm
					return int(float64(xd) * 2.54)
				}
			}
		}
		i += 2 + segLen
	}
	return 0
}

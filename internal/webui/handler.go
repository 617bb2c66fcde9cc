// Package webui serves a small local status page for the listen loop:
// device presence, the active destination, and the outcome of the most
// recent scan.
package webui

import (
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"time"

	"github.com/soracano/hpscan/internal/scanner"
)

//go:embed static
var staticFS embed.FS

type handler struct {
	sc       *scanner.Scanner
	activity *scanner.Activity
	destName string
}

// NewHandler creates the HTTP handler for the status UI.
func NewHandler(sc *scanner.Scanner, activity *scanner.Activity, destName string) http.Handler {
	h := &handler{sc: sc, activity: activity, destName: destName}
	mux := http.NewServeMux()
	staticContent, _ := fs.Sub(staticFS, "static")
	mux.HandleFunc("GET /api/status", h.handleStatus)
	mux.Handle("GET /", http.FileServer(http.FS(staticContent)))
	return mux
}

type statusResponse struct {
	Online      bool       `json:"online"`
	Host        string     `json:"host"`
	Variant     string     `json:"variant"`
	Destination string     `json:"destination"`
	Resolutions []int      `json:"resolutions,omitempty"`
	LastScan    scanStatus `json:"lastScan"`
	UpdatedAt   string     `json:"updatedAt"`
}

type scanStatus struct {
	Scanning bool   `json:"scanning"`
	Error    string `json:"error,omitempty"`
	At       string `json:"at,omitempty"`
	Pages    int    `json:"pages"`
	Output   string `json:"output,omitempty"`
}

func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.activity.Snapshot()
	resp := statusResponse{
		Online:      h.sc.Monitor().IsAlive(0),
		Host:        h.sc.Host(),
		Variant:     h.sc.Variant().String(),
		Destination: h.destName,
		Resolutions: h.sc.Capabilities().Resolutions,
		LastScan: scanStatus{
			Scanning: snap.Scanning,
			Error:    snap.LastError,
			At:       snap.LastScan,
			Pages:    snap.Pages,
			Output:   snap.Output,
		},
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

package scanner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soracano/hpscan/internal/ews"
)

const discoveryTreeBody = `<?xml version="1.0" encoding="UTF-8"?>
<ledm:DiscoveryTree xmlns:ledm="http://www.hp.com/schemas/imaging/con/ledm/2007/09/21"
                    xmlns:dd="http://www.hp.com/schemas/imaging/con/dictionaries/1.0/">
  <ledm:SupportedIfc>
    <dd:ResourceType>ledm:hpLedmWalkupScanToCompManifest</dd:ResourceType>
    <ledm:ManifestURI>/WalkupScanToComp/WalkupScanToCompManifest.xml</ledm:ManifestURI>
  </ledm:SupportedIfc>
</ledm:DiscoveryTree>`

const scanStatusBody = `<?xml version="1.0" encoding="UTF-8"?>
<ScanStatus xmlns="http://www.hp.com/schemas/imaging/con/cnx/scan/2008/08/19">
  <ScannerState>Idle</ScannerState>
  <AdfState>Empty</AdfState>
</ScanStatus>`

func newTestScanner(t *testing.T, handler http.Handler) (*Scanner, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	host, port, _ := strings.Cut(strings.TrimPrefix(srv.URL, "http://"), ":")
	portNum, _ := strconv.Atoi(port)

	s := New(host, "Test PC", ews.WithPorts(portNum, portNum))
	s.pollDelay = time.Millisecond
	s.retryDelay = time.Millisecond
	return s, srv
}

func TestConnectSelectsVariant(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/DevMgmt/DiscoveryTree.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(discoveryTreeBody))
	})
	mux.HandleFunc("/Scan/ScanCaps", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r) // caps failure is tolerated
	})
	mux.HandleFunc("/Scan/Status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(scanStatusBody))
	})

	s, _ := newTestScanner(t, mux)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if s.Variant() != ews.VariantWalkupToComp {
		t.Errorf("Variant() = %v, want VariantWalkupToComp", s.Variant())
	}
	if !s.Connected() {
		t.Error("Connected() = false after Connect")
	}
}

func TestConnectFailsWithoutWalkupSupport(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/DevMgmt/DiscoveryTree.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<ledm:DiscoveryTree xmlns:ledm="x"></ledm:DiscoveryTree>`))
	})
	s, _ := newTestScanner(t, mux)
	if err := s.Connect(context.Background()); err == nil {
		t.Fatal("Connect() = nil for a device with no walkup interface")
	}
}

func TestWaitForTriggerThreadsToken(t *testing.T) {
	const locator = "/WalkupScanToComp/WalkupScanToCompDestinations/1a2b"
	var polls atomic.Int32
	var tokens []string

	mux := http.NewServeMux()
	mux.HandleFunc("/EventMgmt/EventTable", func(w http.ResponseWriter, r *http.Request) {
		n := polls.Add(1)
		tokens = append(tokens, r.Header.Get("If-None-Match"))
		switch n {
		case 1:
			// First poll: feed exists but holds nothing of interest.
			w.Header().Set("ETag", "\"5-1\"")
			w.Write([]byte(`<ev:EventTable xmlns:ev="x"></ev:EventTable>`))
		case 2:
			// Unchanged feed.
			w.WriteHeader(http.StatusNotModified)
		default:
			w.Header().Set("ETag", "\"5-2\"")
			w.Write([]byte(`<ev:EventTable xmlns:ev="x" xmlns:dd="y">
  <ev:Event>
    <dd:UnqualifiedEventCategory>ScanEvent</dd:UnqualifiedEventCategory>
    <ev:Payload><dd:ResourceURI>` + locator + `</dd:ResourceURI></ev:Payload>
  </ev:Event>
</ev:EventTable>`))
		}
	})

	s, _ := newTestScanner(t, mux)
	if err := s.WaitForTrigger(context.Background(), locator); err != nil {
		t.Fatalf("WaitForTrigger() error = %v", err)
	}
	if got := polls.Load(); got != 3 {
		t.Errorf("polls = %d, want 3", got)
	}
	want := []string{"", "\"5-1\"", "\"5-1\""}
	for i, w := range want {
		if i < len(tokens) && tokens[i] != w {
			t.Errorf("poll %d If-None-Match = %q, want %q", i+1, tokens[i], w)
		}
	}
}

func TestRunJobDownloadsPagesUntilCompleted(t *testing.T) {
	var statusReads atomic.Int32
	pageData := strings.Repeat("x", 2048)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /Scan/Jobs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://"+r.Host+"/Scan/Jobs/2")
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /Scan/Jobs/2", func(w http.ResponseWriter, r *http.Request) {
		switch statusReads.Add(1) {
		case 1:
			w.Write([]byte(`<j:Job xmlns:j="x">
  <j:JobState>Processing</j:JobState>
  <ScanJob>
    <PreScanPage>
      <PageNumber>1</PageNumber>
      <PageState>ReadyToUpload</PageState>
      <BinaryURL>/Scan/Jobs/2/Pages/1</BinaryURL>
    </PreScanPage>
  </ScanJob>
</j:Job>`))
		default:
			w.Write([]byte(`<j:Job xmlns:j="x">
  <j:JobState>Completed</j:JobState>
  <ScanJob>
    <PreScanPage>
      <PageNumber>1</PageNumber>
      <PageState>UploadCompleted</PageState>
      <BinaryURL>/Scan/Jobs/2/Pages/1</BinaryURL>
    </PreScanPage>
    <PreScanPage>
      <PageNumber>2</PageNumber>
      <PageState>ReadyToUpload</PageState>
      <BinaryURL>/Scan/Jobs/2/Pages/2</BinaryURL>
    </PreScanPage>
  </ScanJob>
</j:Job>`))
		}
	})
	var downloads atomic.Int32
	mux.HandleFunc("GET /Scan/Jobs/2/Pages/", func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		w.Write([]byte(pageData))
	})

	s, _ := newTestScanner(t, mux)
	dir := t.TempDir()

	pages, err := s.RunJob(context.Background(), ews.JobSettings{}, dir)
	if err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}
	// Page 1 was available in both status reads but must only be fetched once.
	if got := downloads.Load(); got != 2 {
		t.Errorf("downloads = %d, want 2", got)
	}
	for _, p := range pages {
		data, err := os.ReadFile(p.Path)
		if err != nil {
			t.Fatalf("read page %d: %v", p.Number, err)
		}
		if string(data) != pageData {
			t.Errorf("page %d holds %d bytes, want %d", p.Number, len(data), len(pageData))
		}
	}
}

func TestRunJobFailsOnCanceledJob(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /Scan/Jobs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://"+r.Host+"/Scan/Jobs/3")
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /Scan/Jobs/3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<j:Job xmlns:j="x"><j:JobState>Canceled</j:JobState></j:Job>`))
	})

	s, _ := newTestScanner(t, mux)
	if _, err := s.RunJob(context.Background(), ews.JobSettings{}, t.TempDir()); err == nil {
		t.Fatal("RunJob() = nil for a canceled job")
	}
}

func TestRunJobRejectsUnsupportedResolution(t *testing.T) {
	s, _ := newTestScanner(t, http.NewServeMux())
	s.caps = ews.Capabilities{Resolutions: []int{75, 200, 300}}

	_, err := s.RunJob(context.Background(), ews.JobSettings{XResolution: 600}, t.TempDir())
	if err == nil {
		t.Fatal("RunJob() = nil for an unsupported resolution")
	}
}

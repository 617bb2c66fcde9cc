// Package scanner drives a walkup scan session end to end: reachability,
// destination registration, trigger detection, and the job life cycle.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/soracano/hpscan/internal/ews"
)

// errNoTrigger keeps the event poll loop going: the feed changed but none of
// the events concern our destination.
var errNoTrigger = errors.New("no scan trigger for destination")

// Scanner is the high-level interface to one device session. All device
// traffic is issued sequentially from the calling goroutine; the device is
// effectively single-session and must not be pipelined.
type Scanner struct {
	session  *ews.Session
	monitor  *ews.Monitor
	registry *ews.Registry
	watcher  *ews.Watcher
	jobs     *ews.JobController

	name     string
	clientID string
	variant  ews.Variant
	caps     ews.Capabilities

	pollDelay  time.Duration
	retryDelay time.Duration
	connected  bool
}

// New creates a Scanner for the device at host. name is the destination
// label shown on the device front panel.
func New(host, name string, opts ...ews.Option) *Scanner {
	session := ews.NewSession(host, opts...)
	return &Scanner{
		session:    session,
		monitor:    ews.NewMonitor(session),
		registry:   ews.NewRegistry(session),
		watcher:    ews.NewWatcher(session),
		jobs:       ews.NewJobController(session),
		name:       name,
		clientID:   uuid.NewString(),
		pollDelay:  time.Second,
		retryDelay: time.Second,
	}
}

// Connect waits for the device to accept connections, then reads its
// topology to decide which walkup variant to speak and fetches the scan
// capabilities. Capability failures are tolerated; variant selection is not.
func (s *Scanner) Connect(ctx context.Context) error {
	slog.Info("connecting to device", "host", s.session.Host(), "client", s.clientID)
	if err := s.monitor.WaitUntilUp(ctx); err != nil {
		return err
	}

	tree, err := s.session.FetchDiscoveryTree(ctx)
	if err != nil {
		return fmt.Errorf("discovery tree: %w", err)
	}
	variant, ok := tree.WalkupVariant()
	if !ok {
		return fmt.Errorf("device %s advertises no walkup scan interface", s.session.Host())
	}
	s.variant = variant
	slog.Info("walkup variant selected", "variant", variant)

	if caps, err := s.session.FetchScanCaps(ctx); err != nil {
		slog.Warn("scan caps fetch failed, continuing without validation", "err", err)
	} else {
		s.caps = caps
		slog.Debug("scan caps", "resolutions", caps.Resolutions, "colorSpaces", caps.ColorSpaces)
	}

	if status, err := s.session.FetchScanStatus(ctx); err != nil {
		slog.Warn("scan status fetch failed", "err", err)
	} else {
		slog.Info("scanner status", "state", status.ScannerState, "adf", status.AdfState)
	}

	s.connected = true
	return nil
}

// Variant returns the walkup variant selected at Connect time.
func (s *Scanner) Variant() ews.Variant { return s.variant }

// Capabilities returns the device capabilities fetched at Connect time.
func (s *Scanner) Capabilities() ews.Capabilities { return s.caps }

// Host returns the device host.
func (s *Scanner) Host() string { return s.session.Host() }

// Name returns the destination label this client registers under.
func (s *Scanner) Name() string { return s.name }

// Connected reports whether Connect completed.
func (s *Scanner) Connected() bool { return s.connected }

// Monitor exposes the reachability monitor for callers that want to block
// on device presence themselves.
func (s *Scanner) Monitor() *ews.Monitor { return s.monitor }

// Registry exposes the destination registry for administrative commands.
func (s *Scanner) Registry() *ews.Registry { return s.registry }

// RegisterDestination registers this host as a scan target and returns the
// destination locator the device assigned.
func (s *Scanner) RegisterDestination(ctx context.Context) (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = s.name
	}
	locator, err := s.registry.Register(ctx, ews.Destination{
		Variant:  s.variant,
		Name:     s.name,
		Hostname: hostname,
		ClientID: s.clientID,
	})
	if err != nil {
		return "", fmt.Errorf("register destination: %w", err)
	}
	slog.Info("destination registered", "name", s.name, "locator", locator)
	return locator, nil
}

// RemoveDestination unregisters a previously registered destination.
func (s *Scanner) RemoveDestination(ctx context.Context, locator string) error {
	if err := s.registry.Remove(ctx, locator); err != nil {
		return fmt.Errorf("remove destination: %w", err)
	}
	slog.Info("destination removed", "locator", locator)
	return nil
}

// WaitForTrigger blocks until the user presses the scan button on the
// device with our destination selected. It owns the retry policy the
// protocol layer deliberately does not have: the change token is threaded
// from poll to poll, transient errors are retried with a fixed delay, and
// an unreachable device is waited out rather than treated as fatal.
func (s *Scanner) WaitForTrigger(ctx context.Context, locator string) error {
	token := ""
	op := func() error {
		snap, err := s.watcher.Poll(ctx, token, ews.DefaultWaitBudget)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			if ews.Unreachable(err) {
				slog.Warn("device unreachable while polling events", "err", err)
				if werr := s.monitor.WaitUntilUp(ctx); werr != nil {
					return backoff.Permanent(werr)
				}
				return err
			}
			// Stale tokens and brief device glitches both land here; the
			// next poll starts over from whatever token we hold.
			slog.Warn("event poll failed, retrying", "err", err)
			return err
		}
		token = snap.Token
		if !snap.ScanEventFor(locator) {
			return errNoTrigger
		}
		return nil
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(s.retryDelay), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return fmt.Errorf("wait for scan trigger: %w", err)
	}
	slog.Info("scan triggered from device", "locator", locator)
	return nil
}

// PageFile is one downloaded page of a job.
type PageFile struct {
	Number int
	Path   string
}

// RunJob submits a scan job and drives it to completion: poll the status,
// download every newly available page into dir, repeat until the device
// reports a terminal state. Pages already fetched are never re-fetched; the
// device only ever grows the page list while the job is active.
func (s *Scanner) RunJob(ctx context.Context, settings ews.JobSettings, dir string) ([]PageFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create page directory: %w", err)
	}
	if settings.XResolution > 0 && !s.caps.SupportsResolution(settings.XResolution) {
		return nil, fmt.Errorf("device does not support %d dpi (supported: %v)",
			settings.XResolution, s.caps.Resolutions)
	}

	locator, err := s.jobs.Submit(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("submit job: %w", err)
	}
	slog.Info("scan job submitted", "locator", locator)

	var pages []PageFile
	downloaded := make(map[int]bool)
	for {
		status, err := s.jobs.Status(ctx, locator)
		if err != nil {
			if ews.Unreachable(err) {
				slog.Warn("device unreachable while polling job", "err", err)
				if werr := s.monitor.WaitUntilUp(ctx); werr != nil {
					return pages, werr
				}
				continue
			}
			return pages, fmt.Errorf("job status: %w", err)
		}

		for _, p := range status.Pages {
			if p.BinaryURL == "" || downloaded[p.Number] {
				continue
			}
			path := filepath.Join(dir, fmt.Sprintf("page_%03d.jpg", p.Number))
			if _, err := s.jobs.DownloadPage(ctx, p.BinaryURL, path); err != nil {
				return pages, fmt.Errorf("download page %d: %w", p.Number, err)
			}
			downloaded[p.Number] = true
			pages = append(pages, PageFile{Number: p.Number, Path: path})
			slog.Info("page downloaded", "page", p.Number, "path", path)
		}

		if status.Done() {
			if status.State != ews.JobCompleted {
				return pages, fmt.Errorf("scan job ended in state %s", status.State)
			}
			slog.Info("scan job completed", "pages", len(pages))
			return pages, nil
		}

		select {
		case <-ctx.Done():
			return pages, ctx.Err()
		case <-time.After(s.pollDelay):
		}
	}
}

package ews

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	discoveryTreePath = "/DevMgmt/DiscoveryTree.xml"
	scanCapsPath      = "/Scan/ScanCaps"
	scanStatusPath    = "/Scan/Status"
)

// DiscoveryTree is the device's capability/topology root: one entry per
// supported interface, each naming a manifest resource.
type DiscoveryTree struct {
	Interfaces []SupportedInterface
}

// SupportedInterface is one advertised interface of the device.
type SupportedInterface struct {
	ResourceType string
	ManifestURI  string
}

// WalkupVariant picks the walkup protocol variant the device advertises,
// preferring the scan-to-computer flavor when both are present. ok is false
// when the device supports neither.
func (t DiscoveryTree) WalkupVariant() (v Variant, ok bool) {
	found := false
	for _, ifc := range t.Interfaces {
		switch {
		case strings.Contains(ifc.ManifestURI, "WalkupScanToComp"):
			return VariantWalkupToComp, true
		case strings.Contains(ifc.ManifestURI, "WalkupScan"):
			v, found = VariantWalkup, true
		}
	}
	return v, found
}

// Capabilities are the static scan parameters the device supports. Fetched
// once per session as needed; no lifecycle beyond that.
type Capabilities struct {
	Resolutions []int
	ColorSpaces []string
	MaxWidth    int
	MaxHeight   int
}

// SupportsResolution reports whether dpi is an advertised resolution. An
// empty capability list accepts anything.
func (c Capabilities) SupportsResolution(dpi int) bool {
	if len(c.Resolutions) == 0 {
		return true
	}
	for _, r := range c.Resolutions {
		if r == dpi {
			return true
		}
	}
	return false
}

// ScanStatus is a fresh read of the scanner and document-feeder state.
type ScanStatus struct {
	ScannerState string
	AdfState     string
}

// FetchDiscoveryTree retrieves and parses the device topology root.
func (s *Session) FetchDiscoveryTree(ctx context.Context) (DiscoveryTree, error) {
	body, err := s.getXML(ctx, discoveryTreePath, "discovery tree")
	if err != nil {
		return DiscoveryTree{}, err
	}
	tree, err := parseDiscoveryTree(body)
	if err != nil {
		return DiscoveryTree{}, fmt.Errorf("parse discovery tree: %w", err)
	}
	return tree, nil
}

// FetchScanCaps retrieves and parses the device's scan capabilities.
func (s *Session) FetchScanCaps(ctx context.Context) (Capabilities, error) {
	body, err := s.getXML(ctx, scanCapsPath, "scan caps")
	if err != nil {
		return Capabilities{}, err
	}
	caps, err := parseScanCaps(body)
	if err != nil {
		return Capabilities{}, fmt.Errorf("parse scan caps: %w", err)
	}
	return caps, nil
}

// FetchScanStatus retrieves the current scanner/ADF state.
func (s *Session) FetchScanStatus(ctx context.Context) (ScanStatus, error) {
	body, err := s.getXML(ctx, scanStatusPath, "scan status")
	if err != nil {
		return ScanStatus{}, err
	}
	status, err := parseScanStatus(body)
	if err != nil {
		return ScanStatus{}, fmt.Errorf("parse scan status: %w", err)
	}
	return status, nil
}

func (s *Session) getXML(ctx context.Context, path, op string) ([]byte, error) {
	resp, err := s.Do(ctx, Request{Method: http.MethodGet, URL: path})
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, &ProtocolError{
			Op:     "fetch " + op,
			Status: resp.Status,
			Header: resp.Header,
			Body:   resp.Body,
		}
	}
	return resp.Body, nil
}

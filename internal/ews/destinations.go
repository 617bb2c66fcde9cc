package ews

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Variant selects which walkup protocol flavor a destination uses. The two
// flavors fill the same role but differ in endpoint paths and XML shape.
type Variant int

const (
	// VariantWalkup is the generic walkup scan flow.
	VariantWalkup Variant = iota
	// VariantWalkupToComp is the "scan to computer" flow of newer firmware.
	VariantWalkupToComp
)

func (v Variant) String() string {
	switch v {
	case VariantWalkup:
		return "WalkupScan"
	case VariantWalkupToComp:
		return "WalkupScanToComp"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// CollectionPath returns the destination collection endpoint of the variant.
func (v Variant) CollectionPath() string {
	switch v {
	case VariantWalkupToComp:
		return "/WalkupScanToComp/WalkupScanToCompDestinations"
	default:
		return "/WalkupScan/WalkupScanDestinations"
	}
}

// Destination describes a target the device can scan into. A registered
// destination shows up on the device front panel under Name and is
// addressed afterwards by the locator returned from Register.
type Destination struct {
	Variant  Variant
	Name     string
	Hostname string
	ClientID string
	LinkType string
	Shortcut string
}

// Registry registers, fetches, and removes walkup scan destinations.
type Registry struct {
	session *Session
}

// NewRegistry creates a Registry on the given session.
func NewRegistry(s *Session) *Registry {
	return &Registry{session: s}
}

// Register serializes d to its variant's XML shape and POSTs it to the
// variant's collection endpoint. On 201 the path component of the Location
// header becomes the destination locator; any other outcome is a
// ProtocolError carrying the raw response.
func (r *Registry) Register(ctx context.Context, d Destination) (string, error) {
	body, err := marshalDestination(d)
	if err != nil {
		return "", fmt.Errorf("serialize destination: %w", err)
	}

	resp, err := r.session.Do(ctx, Request{
		Method: http.MethodPost,
		URL:    d.Variant.CollectionPath(),
		Header: xmlContentHeader(),
		Body:   body,
	})
	if err != nil {
		return "", err
	}
	if resp.Status != http.StatusCreated {
		return "", &ProtocolError{
			Op:     "register destination",
			Status: resp.Status,
			Header: resp.Header,
			Body:   resp.Body,
		}
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", &ProtocolError{
			Op:     "register destination",
			Status: resp.Status,
			Header: resp.Header,
			Body:   resp.Body,
			Reason: "201 response without Location header",
		}
	}
	return locatorPath(loc), nil
}

// Remove deletes the destination at locator. Absolute-URL locators are
// normalized to their path first. The device answers 200 or 204 on success.
func (r *Registry) Remove(ctx context.Context, locator string) error {
	resp, err := r.session.Do(ctx, Request{
		Method: http.MethodDelete,
		URL:    locatorPath(locator),
	})
	if err != nil {
		return err
	}
	if resp.Status != http.StatusOK && resp.Status != http.StatusNoContent {
		return &ProtocolError{
			Op:     "remove destination",
			Status: resp.Status,
			Header: resp.Header,
			Body:   resp.Body,
		}
	}
	return nil
}

// Fetch retrieves and parses the destination at locator, picking the parser
// for whichever variant the locator path belongs to.
func (r *Registry) Fetch(ctx context.Context, locator string) (Destination, error) {
	v, err := VariantForPath(locator)
	if err != nil {
		return Destination{}, err
	}
	resp, err := r.session.Do(ctx, Request{Method: http.MethodGet, URL: locatorPath(locator)})
	if err != nil {
		return Destination{}, err
	}
	if resp.Status != http.StatusOK {
		return Destination{}, &ProtocolError{
			Op:     "fetch destination",
			Status: resp.Status,
			Header: resp.Header,
			Body:   resp.Body,
		}
	}
	d, err := parseDestination(v, resp.Body)
	if err != nil {
		return Destination{}, fmt.Errorf("parse destination: %w", err)
	}
	return d, nil
}

// List retrieves every destination registered under the variant's
// collection endpoint.
func (r *Registry) List(ctx context.Context, v Variant) ([]Destination, error) {
	resp, err := r.session.Do(ctx, Request{Method: http.MethodGet, URL: v.CollectionPath()})
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, &ProtocolError{
			Op:     "list destinations",
			Status: resp.Status,
			Header: resp.Header,
			Body:   resp.Body,
		}
	}
	ds, err := parseDestinationCollection(v, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse destination collection: %w", err)
	}
	return ds, nil
}

// VariantForPath decides which protocol variant a locator belongs to. The
// ToComp check runs first since its path also contains "WalkupScan".
func VariantForPath(p string) (Variant, error) {
	switch {
	case strings.Contains(p, "WalkupScanToComp"):
		return VariantWalkupToComp, nil
	case strings.Contains(p, "WalkupScan"):
		return VariantWalkup, nil
	}
	return 0, fmt.Errorf("locator %q matches no walkup variant", p)
}

// locatorPath reduces an absolute-URL locator to its path component;
// plain paths pass through untouched.
func locatorPath(loc string) string {
	if u, err := url.Parse(loc); err == nil && u.Host != "" {
		return u.Path
	}
	return loc
}

func xmlContentHeader() http.Header {
	return http.Header{"Content-Type": {"text/xml"}}
}

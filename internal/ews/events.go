package ews

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const eventTablePath = "/EventMgmt/EventTable"

// DefaultWaitBudget is the long-poll wait passed to the device when the
// caller has no preference, in the device's own units of deciseconds
// (1200 ≈ 120 s).
const DefaultWaitBudget = 1200

// Event is one entry of the device's event feed.
type Event struct {
	Category   string
	AgingStamp string
	Payloads   []Payload
}

// Payload links an event to the resource it concerns.
type Payload struct {
	ResourceURI  string
	ResourceType string
}

// EventSnapshot is the outcome of one poll: the parsed feed plus the change
// token that produced it. An unchanged feed carries no events and the token
// that was asked for, not a new one.
type EventSnapshot struct {
	Events []Event
	Token  string
}

// ScanEventFor reports whether the snapshot contains a scan trigger
// referencing the given destination locator.
func (s EventSnapshot) ScanEventFor(locator string) bool {
	for _, ev := range s.Events {
		if ev.Category != "ScanEvent" {
			continue
		}
		for _, p := range ev.Payloads {
			if p.ResourceURI == locator {
				return true
			}
		}
	}
	return false
}

// Watcher performs conditional long-polls against the device event feed.
type Watcher struct {
	session *Session
}

// NewWatcher creates a Watcher on the given session.
func NewWatcher(s *Session) *Watcher {
	return &Watcher{session: s}
}

// Poll issues one conditional GET against the event feed. token is the
// opaque change token from the previous successful poll, or empty for no
// prior state; wait is the device-side wait budget in deciseconds (0 polls
// without waiting, negative selects DefaultWaitBudget).
//
// The transport timeout is derived from the wait budget with a 10% margin
// so the HTTP layer never gives up before the device's own long poll would
// have answered.
//
// Poll never retries; the caller's loop owns that policy.
func (w *Watcher) Poll(ctx context.Context, token string, wait int) (EventSnapshot, error) {
	if wait < 0 {
		wait = DefaultWaitBudget
	}

	var timeout time.Duration
	if wait > 0 {
		budget := time.Duration(wait) * 100 * time.Millisecond
		timeout = budget + budget/10
	}

	q := url.Values{"timeout": {strconv.Itoa(wait)}}
	req := Request{
		Method:  http.MethodGet,
		URL:     eventTablePath + "?" + q.Encode(),
		Timeout: timeout,
	}
	if token != "" {
		req.Header = http.Header{"If-None-Match": {token}}
	}

	resp, err := w.session.Do(ctx, req)
	if err != nil {
		return EventSnapshot{}, err
	}

	switch resp.Status {
	case http.StatusNotModified:
		return EventSnapshot{Token: token}, nil
	case http.StatusOK:
		etag := resp.Header.Get("ETag")
		if etag == "" {
			return EventSnapshot{}, &ProtocolError{
				Op:     "poll event table",
				Status: resp.Status,
				Header: resp.Header,
				Body:   resp.Body,
				Reason: "200 response without ETag header",
			}
		}
		events, err := parseEventTable(resp.Body)
		if err != nil {
			return EventSnapshot{}, fmt.Errorf("parse event table: %w", err)
		}
		return EventSnapshot{Events: events, Token: etag}, nil
	default:
		return EventSnapshot{}, &ProtocolError{
			Op:     "poll event table",
			Status: resp.Status,
			Header: resp.Header,
			Body:   resp.Body,
		}
	}
}

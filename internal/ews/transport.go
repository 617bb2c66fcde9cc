package ews

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds requests whose caller did not specify a timeout.
// No request may block indefinitely.
const DefaultTimeout = 100 * time.Second

// Request describes one HTTP exchange with the device. URL is either a path
// relative to the management base or an absolute URL (job locators address
// the scan port directly). A zero Timeout is replaced with DefaultTimeout.
type Request struct {
	Method  string
	URL     string
	Header  http.Header
	Body    []byte
	Timeout time.Duration
}

// Response is the fully-read outcome of a Request. The status code is
// returned as-is; interpreting it is the calling operation's job.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func (s *Session) resolve(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return s.BaseURL() + u
}

// Do performs one exchange with the device and reads the full response body.
// Connection-level failures come back as a TransportError with no response
// metadata; any HTTP response, whatever its status, is returned to the
// caller.
func (s *Session) Do(ctx context.Context, req Request) (*Response, error) {
	u := s.resolve(req.URL)
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	seq := s.seq.Add(1)
	if s.debug {
		slog.Debug("device request",
			"seq", seq, "method", req.Method, "url", u, "bytes", len(req.Body))
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, &TransportError{Op: "build request", URL: u, Err: err}
	}
	for k, vs := range req.Header {
		hreq.Header[k] = vs
	}

	start := time.Now()
	hresp, err := s.client.Do(hreq)
	if err != nil {
		if s.debug {
			slog.Debug("device request failed", "seq", seq, "err", err)
		}
		return nil, &TransportError{Op: req.Method + " " + req.URL, URL: u, Err: err}
	}
	defer hresp.Body.Close()

	data, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, &TransportError{
			Op:     req.Method + " " + req.URL,
			URL:    u,
			Status: hresp.StatusCode,
			Header: hresp.Header,
			Err:    err,
		}
	}

	if s.debug {
		slog.Debug("device response",
			"seq", seq, "status", hresp.StatusCode, "bytes", len(data),
			"elapsed", time.Since(start).Round(time.Millisecond))
	}

	return &Response{Status: hresp.StatusCode, Header: hresp.Header, Body: data}, nil
}

// DoStream performs one exchange but hands the response body back unread,
// for incremental page downloads. The caller owns closing the body.
func (s *Session) DoStream(ctx context.Context, req Request) (*http.Response, error) {
	u := s.resolve(req.URL)
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	seq := s.seq.Add(1)
	if s.debug {
		slog.Debug("device request", "seq", seq, "method", req.Method, "url", u, "stream", true)
	}

	// The deadline covers the whole download, not just the dial.
	ctx, cancel := context.WithTimeout(ctx, timeout)
	hreq, err := http.NewRequestWithContext(ctx, req.Method, u, nil)
	if err != nil {
		cancel()
		return nil, &TransportError{Op: "build request", URL: u, Err: err}
	}
	for k, vs := range req.Header {
		hreq.Header[k] = vs
	}

	hresp, err := s.client.Do(hreq)
	if err != nil {
		cancel()
		if s.debug {
			slog.Debug("device request failed", "seq", seq, "err", err)
		}
		return nil, &TransportError{Op: req.Method + " " + req.URL, URL: u, Err: err}
	}
	if s.debug {
		slog.Debug("device response", "seq", seq, "status", hresp.StatusCode, "stream", true)
	}
	hresp.Body = &cancelBody{ReadCloser: hresp.Body, cancel: cancel}
	return hresp, nil
}

// cancelBody releases the request context when the streamed body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

package ews

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError reports a failed HTTP exchange with the device. Status is
// zero when the failure happened before any response arrived (connection
// refused, reset, timeout); otherwise whatever partial response metadata the
// device produced is carried along.
type TransportError struct {
	Op     string
	URL    string
	Status int
	Header http.Header
	Body   []byte
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: %s: device replied %d", e.Op, e.URL, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a response the operation did not expect: a status
// code outside the operation's contract, or a required header the device
// omitted (ETag on 200, Location on 201).
type ProtocolError struct {
	Op     string
	Status int
	Header http.Header
	Body   []byte
	Reason string
}

func (e *ProtocolError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Reason, e.Status)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
}

// Unreachable reports whether err means the device could not be reached at
// all, as opposed to the device answering with something unexpected. Callers
// use this to decide between wait-and-retry and giving up.
func Unreachable(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Status == 0
}

package ews

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const scanJobsPath = "/Scan/Jobs"

// settleDelay is the quiescence period the device needs after destination
// and event handling before it accepts a new job reliably. Submitting
// earlier makes the device intermittently reject the job.
const settleDelay = 500 * time.Millisecond

// JobState is the device-reported state of a scan job.
type JobState string

const (
	JobProcessing JobState = "Processing"
	JobCompleted  JobState = "Completed"
	JobCanceled   JobState = "Canceled"
	JobAborted    JobState = "Aborted"
)

// PageInfo describes one page of a job. BinaryURL is set once the page data
// can be fetched.
type PageInfo struct {
	Number    int
	State     string
	BinaryURL string
}

// JobStatus is a point-in-time read of a job's progress. It is never
// cached; every read hits the device. The page count only grows while the
// job is active.
type JobStatus struct {
	State JobState
	Pages []PageInfo
}

// Done reports whether the job left the Processing state for good.
func (s JobStatus) Done() bool {
	return s.State == JobCompleted || s.State == JobCanceled || s.State == JobAborted
}

// JobSettings are the parameters submitted to start a scan.
type JobSettings struct {
	XResolution int
	YResolution int
	Width       int
	Height      int
	Format      string
	ColorSpace  string
	Source      string
	BitDepth    int
}

// JobController owns the scan-job primitives: submit, status, and page
// download. It performs no retries of its own; the poll/download loop
// belongs to the caller.
type JobController struct {
	session *Session
	sleep   func(time.Duration)
}

// NewJobController creates a JobController on the given session.
func NewJobController(s *Session) *JobController {
	return &JobController{session: s, sleep: time.Sleep}
}

// Submit starts a scan job and returns its locator. The locator is the full
// Location header value, not just a path: the job API is addressed
// independently of the management base. Submit always waits the mandatory
// settling delay before contacting the device.
func (c *JobController) Submit(ctx context.Context, settings JobSettings) (string, error) {
	body, err := marshalJobSettings(settings)
	if err != nil {
		return "", fmt.Errorf("serialize job settings: %w", err)
	}

	c.sleep(settleDelay)

	resp, err := c.session.Do(ctx, Request{
		Method: http.MethodPost,
		URL:    c.session.ScanBaseURL() + scanJobsPath,
		Header: xmlContentHeader(),
		Body:   body,
	})
	if err != nil {
		return "", err
	}
	if resp.Status != http.StatusCreated {
		return "", &ProtocolError{
			Op:     "submit job",
			Status: resp.Status,
			Header: resp.Header,
			Body:   resp.Body,
		}
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", &ProtocolError{
			Op:     "submit job",
			Status: resp.Status,
			Header: resp.Header,
			Body:   resp.Body,
			Reason: "201 response without Location header",
		}
	}
	return loc, nil
}

// Status fetches a fresh status read of the job at locator. Job locators are
// complete addresses and are used as-is.
func (c *JobController) Status(ctx context.Context, locator string) (JobStatus, error) {
	resp, err := c.session.Do(ctx, Request{Method: http.MethodGet, URL: locator})
	if err != nil {
		return JobStatus{}, err
	}
	if resp.Status != http.StatusOK {
		return JobStatus{}, &ProtocolError{
			Op:     "job status",
			Status: resp.Status,
			Header: resp.Header,
			Body:   resp.Body,
		}
	}
	status, err := parseJobStatus(resp.Body)
	if err != nil {
		return JobStatus{}, fmt.Errorf("parse job status: %w", err)
	}
	return status, nil
}

// DownloadPage streams the page at locator into a file at destPath,
// returning destPath once the stream is fully written and flushed. A failed
// download leaves whatever was written; cleanup is the caller's business.
func (c *JobController) DownloadPage(ctx context.Context, locator, destPath string) (string, error) {
	u := locator
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = c.session.ScanBaseURL() + locator
	}

	resp, err := c.session.DoStream(ctx, Request{Method: http.MethodGet, URL: u})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &ProtocolError{
			Op:     "download page",
			Status: resp.StatusCode,
			Header: resp.Header,
			Body:   body,
		}
	}

	f, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", destPath, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", destPath, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", destPath, err)
	}
	return destPath, nil
}

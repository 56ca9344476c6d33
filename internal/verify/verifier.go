// Package verify issues the post-deploy health probe: one GET after a fixed
// grace interval, pass iff the response is exactly 200.
package verify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// VerificationError indicates the probe did not come back with a 200.
// Status is 0 when no response arrived at all (transport failure or timeout).
type VerificationError struct {
	URL    string
	Status int
	Err    error
}

func (e *VerificationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("verify %s: status %d, want 200", e.URL, e.Status)
	}
	return fmt.Sprintf("verify %s: %v", e.URL, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// Verifier probes a deployed application once.
//
// This is deliberately a single probe after a fixed delay, not a polling
// loop: if the target's activation takes longer than the grace window the
// run is declared failed. Operators tune Grace, not a retry budget.
type Verifier struct {
	Grace   time.Duration // wait before the probe, for server-side activation
	Timeout time.Duration // transport timeout for the probe itself
	http    *http.Client
}

// New creates a Verifier with the given grace window and probe timeout.
// The probe never follows redirects: a 3xx answer means the application is
// not serving at its context path, so it fails verification like any other
// non-200 status.
func New(grace, timeout time.Duration) *Verifier {
	return &Verifier{
		Grace:   grace,
		Timeout: timeout,
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// SetHTTPClient overrides the HTTP client (for testing).
func (v *Verifier) SetHTTPClient(h *http.Client) {
	v.http = h
}

// Check waits the grace window, then probes url. It returns nil iff the
// response status is exactly 200. The grace wait is cancellable.
func (v *Verifier) Check(ctx context.Context, url string) error {
	if v.Grace > 0 {
		select {
		case <-time.After(v.Grace):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &VerificationError{URL: url, Err: err}
	}

	resp, err := v.http.Do(req)
	if err != nil {
		return &VerificationError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return &VerificationError{URL: url, Status: resp.StatusCode}
	}
	return nil
}

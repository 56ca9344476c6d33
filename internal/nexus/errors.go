package nexus

import "fmt"

// NotFoundError indicates no asset in the store matched the artifact pattern.
type NotFoundError struct {
	Repository string
	Pattern    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no artifact matching %q found in repository %q", e.Pattern, e.Repository)
}

// DownloadError indicates an artifact transfer failed, either with a non-2xx
// response or an I/O failure.
type DownloadError struct {
	URL    string
	Status int // 0 when the failure was not an HTTP status
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("download %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// PublishError indicates the store rejected an artifact upload. A 400 from a
// release repository usually means the version already exists.
type PublishError struct {
	Version string
	Status  int
	Detail  string
}

func (e *PublishError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("publish version %s: status %d: %s", e.Version, e.Status, e.Detail)
	}
	return fmt.Sprintf("publish version %s: status %d", e.Version, e.Status)
}

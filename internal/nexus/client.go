// Package nexus talks to a Nexus-style artifact store over its REST API:
// asset listing for the locator, streaming GET for the fetcher, and
// repository-path PUT for the publisher.
package nexus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/warship-cd/warship/internal/config"
)

// ArtifactRef identifies a single resolvable artifact in the store.
type ArtifactRef struct {
	Group       string `json:"group"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Extension   string `json:"extension"`
	DownloadURL string `json:"download_url"`
}

// Filename returns the canonical artifact filename, e.g. "app-0.0.42.war".
func (r ArtifactRef) Filename() string {
	return fmt.Sprintf("%s-%s.%s", r.Name, r.Version, r.Extension)
}

// Client is an artifact store client bound to one repository and one set of
// artifact coordinates.
type Client struct {
	baseURL    string
	repository string
	group      string
	artifact   string
	extension  string
	cred       config.Credential
	http       *http.Client
}

// NewClient creates a store client from config. Per-call timeouts come from
// the underlying HTTP client.
func NewClient(cfg config.Store) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		repository: cfg.Repository,
		group:      cfg.Group,
		artifact:   cfg.Artifact,
		extension:  cfg.Extension,
		cred:       cfg.Credential,
		http:       &http.Client{Timeout: 60 * time.Second},
	}
}

// SetHTTPClient overrides the HTTP client (for testing).
func (c *Client) SetHTTPClient(h *http.Client) {
	c.http = h
}

// assetPage mirrors the store's paginated asset listing response.
type assetPage struct {
	Items             []asset `json:"items"`
	ContinuationToken string  `json:"continuationToken"`
}

type asset struct {
	DownloadURL string `json:"downloadUrl"`
	Path        string `json:"path"`
}

// Locate lists the repository's assets and resolves the most recent artifact
// matching the configured coordinates. Versions are compared numerically,
// not by listing order; when two assets carry an identical version the later
// one in listing order wins.
func (c *Client) Locate(ctx context.Context) (*ArtifactRef, error) {
	pattern, err := regexp.Compile(
		fmt.Sprintf(`^%s-(\d+(?:\.\d+)*)\.%s$`,
			regexp.QuoteMeta(c.artifact), regexp.QuoteMeta(c.extension)))
	if err != nil {
		return nil, fmt.Errorf("compile artifact pattern: %w", err)
	}

	var best *ArtifactRef
	var bestVersion []int

	token := ""
	for {
		page, err := c.listAssets(ctx, token)
		if err != nil {
			return nil, err
		}

		for _, a := range page.Items {
			m := pattern.FindStringSubmatch(path.Base(a.Path))
			if m == nil {
				continue
			}
			v := parseVersion(m[1])
			if best != nil && compareVersions(v, bestVersion) < 0 {
				continue
			}
			best = &ArtifactRef{
				Group:       c.group,
				Name:        c.artifact,
				Version:     m[1],
				Extension:   c.extension,
				DownloadURL: a.DownloadURL,
			}
			bestVersion = v
		}

		if page.ContinuationToken == "" {
			break
		}
		token = page.ContinuationToken
	}

	if best == nil {
		return nil, &NotFoundError{Repository: c.repository, Pattern: pattern.String()}
	}
	return best, nil
}

// listAssets fetches one page of the asset listing.
func (c *Client) listAssets(ctx context.Context, continuationToken string) (*assetPage, error) {
	q := url.Values{}
	q.Set("repository", c.repository)
	if continuationToken != "" {
		q.Set("continuationToken", continuationToken)
	}
	listURL := fmt.Sprintf("%s/service/rest/v1/assets?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list assets: status %d", resp.StatusCode)
	}

	var page assetPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("parse asset listing: %w", err)
	}
	return &page, nil
}

// Download fetches the resolved artifact into destDir and returns the local
// file path. Any stale artifacts with the same extension are removed first,
// so a failed run can never redeploy a leftover file.
func (c *Client) Download(ctx context.Context, ref *ArtifactRef, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", &DownloadError{URL: ref.DownloadURL, Err: fmt.Errorf("mkdir %s: %w", destDir, err)}
	}

	stale, err := filepath.Glob(filepath.Join(destDir, "*."+c.extension))
	if err == nil {
		for _, f := range stale {
			os.Remove(f)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.DownloadURL, nil)
	if err != nil {
		return "", &DownloadError{URL: ref.DownloadURL, Err: err}
	}
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &DownloadError{URL: ref.DownloadURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &DownloadError{URL: ref.DownloadURL, Status: resp.StatusCode}
	}

	dest := filepath.Join(destDir, ref.Filename())
	f, err := os.Create(dest)
	if err != nil {
		return "", &DownloadError{URL: ref.DownloadURL, Err: err}
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return "", &DownloadError{URL: ref.DownloadURL, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return "", &DownloadError{URL: ref.DownloadURL, Err: err}
	}
	return dest, nil
}

// Publish uploads a local artifact file under the given version. The upload
// path follows the Maven repository layout:
//
//	{base}/repository/{repo}/{group}/{artifact}/{version}/{artifact}-{version}.{ext}
func (c *Client) Publish(ctx context.Context, localPath string, version string) (*ArtifactRef, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat artifact %s: %w", localPath, err)
	}

	ref := &ArtifactRef{
		Group:     c.group,
		Name:      c.artifact,
		Version:   version,
		Extension: c.extension,
	}
	uploadURL := fmt.Sprintf("%s/repository/%s/%s/%s/%s/%s",
		c.baseURL, c.repository, c.group, c.artifact, version, ref.Filename())

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, f)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &PublishError{
			Version: version,
			Status:  resp.StatusCode,
			Detail:  strings.TrimSpace(string(body)),
		}
	}

	ref.DownloadURL = uploadURL
	return ref, nil
}

// auth attaches basic auth when a credential is configured.
func (c *Client) auth(req *http.Request) {
	if !c.cred.IsZero() {
		req.SetBasicAuth(c.cred.Username, c.cred.Password)
	}
}

// parseVersion splits a dotted numeric version into its segments.
func parseVersion(s string) []int {
	parts := strings.Split(s, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, _ := strconv.Atoi(p)
		out[i] = n
	}
	return out
}

// compareVersions compares dotted numeric versions segment by segment.
// Missing segments compare as zero, so 1.2 == 1.2.0.
func compareVersions(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

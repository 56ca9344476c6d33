package nexus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/warship-cd/warship/internal/config"
)

func testClient(baseURL string) *Client {
	return NewClient(config.Store{
		BaseURL:    baseURL,
		Repository: "maven-releases",
		Group:      "com/example",
		Artifact:   "app",
		Extension:  "war",
		Credential: config.Credential{Username: "publisher", Password: "pw"},
	})
}

// listingServer serves an asset listing built from the given paths, plus the
// artifact bytes themselves under /files/.
func listingServer(t *testing.T, paths ...string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/service/rest/v1/assets":
			if got := r.URL.Query().Get("repository"); got != "maven-releases" {
				t.Errorf("repository query = %q, want %q", got, "maven-releases")
			}
			var page assetPage
			for _, p := range paths {
				page.Items = append(page.Items, asset{
					Path:        p,
					DownloadURL: srv.URL + "/files/" + p,
				})
			}
			json.NewEncoder(w).Encode(page)
		default:
			fmt.Fprint(w, "war-bytes")
		}
	}))
	return srv
}

func TestLocatePicksHighestVersion(t *testing.T) {
	srv := listingServer(t,
		"com/example/app/0.0.1/app-0.0.1.war",
		"com/example/app/0.0.2/app-0.0.2.war",
		"com/example/app/0.0.3/app-0.0.3.war",
	)
	defer srv.Close()

	ref, err := testClient(srv.URL).Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if ref.Version != "0.0.3" {
		t.Errorf("Version = %q, want %q", ref.Version, "0.0.3")
	}
	if ref.Filename() != "app-0.0.3.war" {
		t.Errorf("Filename = %q, want %q", ref.Filename(), "app-0.0.3.war")
	}
}

func TestLocateIgnoresUnorderedListing(t *testing.T) {
	// The store makes no ordering promise; selection is by parsed version.
	srv := listingServer(t,
		"com/example/app/0.0.10/app-0.0.10.war",
		"com/example/app/0.0.2/app-0.0.2.war",
		"com/example/app/0.0.9/app-0.0.9.war",
	)
	defer srv.Close()

	ref, err := testClient(srv.URL).Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if ref.Version != "0.0.10" {
		t.Errorf("Version = %q, want %q (numeric, not lexical)", ref.Version, "0.0.10")
	}
}

func TestLocateSkipsForeignAssets(t *testing.T) {
	srv := listingServer(t,
		"com/example/app/0.0.1/app-0.0.1.war.sha1",
		"com/example/other/0.0.9/other-0.0.9.war",
		"com/example/app/0.0.4/app-0.0.4.war",
	)
	defer srv.Close()

	ref, err := testClient(srv.URL).Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if ref.Version != "0.0.4" {
		t.Errorf("Version = %q, want %q", ref.Version, "0.0.4")
	}
}

func TestLocateNotFound(t *testing.T) {
	srv := listingServer(t)
	defer srv.Close()

	_, err := testClient(srv.URL).Locate(context.Background())
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	if nf.Repository != "maven-releases" {
		t.Errorf("NotFoundError.Repository = %q", nf.Repository)
	}
}

func TestLocateFollowsContinuationToken(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := assetPage{}
		if r.URL.Query().Get("continuationToken") == "" {
			page.Items = []asset{{Path: "com/example/app/0.0.1/app-0.0.1.war", DownloadURL: srv.URL + "/f/1"}}
			page.ContinuationToken = "next"
		} else {
			page.Items = []asset{{Path: "com/example/app/0.0.2/app-0.0.2.war", DownloadURL: srv.URL + "/f/2"}}
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	ref, err := testClient(srv.URL).Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if ref.Version != "0.0.2" {
		t.Errorf("Version = %q, want %q (from second page)", ref.Version, "0.0.2")
	}
}

func TestDownloadCleansStaleArtifacts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "fresh-bytes")
	}))
	defer srv.Close()

	dest := t.TempDir()
	stale := filepath.Join(dest, "app-0.0.1.war")
	if err := os.WriteFile(stale, []byte("stale"), 0o644); err != nil {
		t.Fatalf("write stale file: %v", err)
	}

	ref := &ArtifactRef{Name: "app", Version: "0.0.2", Extension: "war", DownloadURL: srv.URL + "/app-0.0.2.war"}
	local, err := testClient(srv.URL).Download(context.Background(), ref, dest)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale artifact should have been removed")
	}
	data, err := os.ReadFile(local)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "fresh-bytes" {
		t.Errorf("downloaded content = %q, want %q", data, "fresh-bytes")
	}
	if filepath.Base(local) != "app-0.0.2.war" {
		t.Errorf("local filename = %q, want %q", filepath.Base(local), "app-0.0.2.war")
	}
}

func TestDownloadNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	ref := &ArtifactRef{Name: "app", Version: "0.0.1", Extension: "war", DownloadURL: srv.URL + "/gone.war"}
	_, err := testClient(srv.URL).Download(context.Background(), ref, t.TempDir())

	var de *DownloadError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DownloadError", err)
	}
	if de.Status != http.StatusNotFound {
		t.Errorf("DownloadError.Status = %d, want 404", de.Status)
	}
}

func TestPublishUploadPath(t *testing.T) {
	var gotPath, gotUser string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	local := filepath.Join(t.TempDir(), "app-1.2.war")
	if err := os.WriteFile(local, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	ref, err := testClient(srv.URL).Publish(context.Background(), local, "0.0.42")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	want := "/repository/maven-releases/com/example/app/0.0.42/app-0.0.42.war"
	if gotPath != want {
		t.Errorf("upload path = %q, want %q", gotPath, want)
	}
	if gotUser != "publisher" {
		t.Errorf("basic auth user = %q, want %q", gotUser, "publisher")
	}
	if string(gotBody) != "payload" {
		t.Errorf("uploaded body = %q, want %q", gotBody, "payload")
	}
	if ref.Version != "0.0.42" {
		t.Errorf("ref.Version = %q, want %q", ref.Version, "0.0.42")
	}
}

func TestPublishRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "Repository does not allow updating assets")
	}))
	defer srv.Close()

	local := filepath.Join(t.TempDir(), "app.war")
	if err := os.WriteFile(local, []byte("x"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	_, err := testClient(srv.URL).Publish(context.Background(), local, "0.0.1")
	var pe *PublishError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want PublishError", err)
	}
	if pe.Status != http.StatusBadRequest {
		t.Errorf("PublishError.Status = %d, want 400", pe.Status)
	}
	if pe.Version != "0.0.1" {
		t.Errorf("PublishError.Version = %q, want %q", pe.Version, "0.0.1")
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"0.0.1", "0.0.2", -1},
		{"0.0.10", "0.0.9", 1},
		{"1.2", "1.2.0", 0},
		{"2.0.0", "1.9.9", 1},
	}
	for _, tt := range tests {
		got := compareVersions(parseVersion(tt.a), parseVersion(tt.b))
		if got != tt.want {
			t.Errorf("compareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

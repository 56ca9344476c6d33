package verify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheck200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "hello")
	}))
	defer srv.Close()

	v := New(0, 5*time.Second)
	if err := v.Check(context.Background(), srv.URL); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestCheckNon200(t *testing.T) {
	tests := []int{http.StatusServiceUnavailable, http.StatusNotFound, http.StatusFound}

	for _, status := range tests {
		t.Run(fmt.Sprintf("status %d", status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))
			defer srv.Close()

			v := New(0, 5*time.Second)
			err := v.Check(context.Background(), srv.URL)
			var ve *VerificationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want VerificationError", err)
			}
			if ve.Status != status {
				t.Errorf("VerificationError.Status = %d, want %d", ve.Status, status)
			}
		})
	}
}

func TestCheckRedirectToHealthyPageFails(t *testing.T) {
	// A 302 to a page that itself serves 200 is still a broken deployment:
	// the application is not answering at its own URL.
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "login page")
	}))
	defer healthy.Close()

	redirecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, healthy.URL, http.StatusFound)
	}))
	defer redirecting.Close()

	v := New(0, 5*time.Second)
	err := v.Check(context.Background(), redirecting.URL)

	var ve *VerificationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want VerificationError", err)
	}
	if ve.Status != http.StatusFound {
		t.Errorf("VerificationError.Status = %d, want %d", ve.Status, http.StatusFound)
	}
}

func TestCheckNoResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing listening any more

	v := New(0, time.Second)
	err := v.Check(context.Background(), url)

	var ve *VerificationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want VerificationError", err)
	}
	if ve.Status != 0 {
		t.Errorf("VerificationError.Status = %d, want 0 for transport failure", ve.Status)
	}
	if ve.Err == nil {
		t.Error("VerificationError.Err should carry the transport cause")
	}
}

func TestGraceWindowIsWaited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	grace := 50 * time.Millisecond
	v := New(grace, time.Second)

	start := time.Now()
	if err := v.Check(context.Background(), srv.URL); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if elapsed := time.Since(start); elapsed < grace {
		t.Errorf("probe fired after %v, want at least %v grace", elapsed, grace)
	}
}

func TestGraceWindowCancellable(t *testing.T) {
	v := New(10*time.Second, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := v.Check(ctx, "http://unused.invalid/")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("cancellation should interrupt the grace wait promptly")
	}
}

package amo_test

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/matgreaves/shipworker/internal/amo"
	"github.com/matgreaves/shipworker/internal/xpi"
)

func writeLangpack(t *testing.T, locale string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "target.langpack.xpi")
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	mf, err := w.Create("manifest.json")
	if err != nil {
		t.Fatal(err)
	}
	manifest := fmt.Sprintf(`{
		"version": "99.0",
		"langpack_id": %q,
		"browser_specific_settings": {
			"gecko": {"id": "langpack-%s@firefox.mozilla.org", "strict_min_version": "99.0"}
		}
	}`, locale, locale)
	if _, err := mf.Write([]byte(manifest)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCheckUpload(t *testing.T) {
	var processed, valid atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"uuid":      "u1",
			"processed": processed.Load(),
			"valid":     valid.Load(),
		})
	}))
	defer srv.Close()

	c := &amo.Client{BaseURL: srv.URL}

	// Still processing: retryable signature error.
	err := c.CheckUpload(context.Background(), "u1")
	var sigErr *amo.SignatureError
	if !errors.As(err, &sigErr) {
		t.Fatalf("expected *SignatureError, got %v", err)
	}

	// Processed but invalid: terminal API error.
	processed.Store(true)
	err = c.CheckUpload(context.Background(), "u1")
	var apiErr *amo.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}

	valid.Store(true)
	if err := c.CheckUpload(context.Background(), "u1"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestCreateVersionConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "version 99.0 already exists", http.StatusConflict)
	}))
	defer srv.Close()

	c := &amo.Client{BaseURL: srv.URL}
	_, err := c.CreateVersion(context.Background(), "langpack-de@firefox.mozilla.org", "u1")
	var conflict *amo.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected *ConflictError, got %v", err)
	}
}

func TestSignedAddonInfo(t *testing.T) {
	var signed atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file := map[string]any{"status": "unreviewed"}
		if signed.Load() {
			file = map[string]any{"status": "public", "url": "https://downloads.test/signed.xpi", "hash": "sha256:abc"}
		}
		json.NewEncoder(w).Encode(map[string]any{"file": file})
	}))
	defer srv.Close()

	c := &amo.Client{BaseURL: srv.URL}

	_, err := c.SignedAddonInfo(context.Background(), "langpack-de@firefox.mozilla.org", "99.0")
	var sigErr *amo.SignatureError
	if !errors.As(err, &sigErr) {
		t.Fatalf("expected *SignatureError, got %v", err)
	}

	signed.Store(true)
	info, err := c.SignedAddonInfo(context.Background(), "langpack-de@firefox.mozilla.org", "99.0")
	if err != nil {
		t.Fatal(err)
	}
	if info.DownloadURL != "https://downloads.test/signed.xpi" || info.Hash != "sha256:abc" {
		t.Errorf("info = %+v", info)
	}
}

func TestAuthorizationStaysOnServiceHost(t *testing.T) {
	var downloadAuth atomic.Value
	downloads := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloadAuth.Store(r.Header.Get("Authorization"))
		io.WriteString(w, "signed-bytes")
	}))
	defer downloads.Close()

	var apiAuth atomic.Value
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiAuth.Store(r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"uuid": "u1", "processed": true, "valid": true})
	}))
	defer api.Close()

	c := &amo.Client{BaseURL: api.URL, Authorization: "Session secret-token"}

	if err := c.CheckUpload(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	if got := apiAuth.Load(); got != "Session secret-token" {
		t.Errorf("service request Authorization = %q, want the session token", got)
	}

	dest := filepath.Join(t.TempDir(), "target.langpack.xpi")
	info := amo.SignedInfo{DownloadURL: downloads.URL + "/signed.xpi"}
	if err := c.DownloadSignedXPI(context.Background(), info, dest); err != nil {
		t.Fatal(err)
	}
	if got := downloadAuth.Load(); got != "" {
		t.Errorf("download request Authorization = %q, token must not leave the service host", got)
	}
}

func TestRetryStopsOnTerminalError(t *testing.T) {
	calls := 0
	err := amo.Retry(context.Background(), 5, "op", func(context.Context) error {
		calls++
		return &amo.APIError{StatusCode: http.StatusBadRequest, Body: "no"}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (terminal errors must not retry)", calls)
	}
}

func TestRetryRetriesSignatureError(t *testing.T) {
	calls := 0
	err := amo.Retry(context.Background(), 3, "op", func(context.Context) error {
		calls++
		if calls < 2 {
			return &amo.SignatureError{Detail: "pending"}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	err := amo.Retry(context.Background(), 1, "op", func(context.Context) error {
		return &amo.SignatureError{Detail: "pending"}
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
}

// TestSignAll drives the full flow against a fake signing service.
func TestSignAll(t *testing.T) {
	packPath := writeLangpack(t, "de")
	artifactDir := t.TempDir()

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/v5/applications/firefox/99.0/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /api/v5/addons/upload/", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.FormValue("channel") != "unlisted" {
			http.Error(w, "bad channel", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"uuid": "u1", "processed": false, "valid": false})
	})
	mux.HandleFunc("GET /api/v5/addons/upload/u1/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"uuid": "u1", "processed": true, "valid": true})
	})
	mux.HandleFunc("POST /api/v5/addons/addon/langpack-de@firefox.mozilla.org/versions/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": 1234})
	})

	var srvURL string
	mux.HandleFunc("GET /api/v5/addons/addon/langpack-de@firefox.mozilla.org/versions/99.0/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"file": map[string]any{"status": "public", "url": srvURL + "/downloads/signed.xpi", "hash": "sha256:abc"},
		})
	})
	mux.HandleFunc("GET /downloads/signed.xpi", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "signed-bytes")
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	info, err := xpi.LangpackInfo(packPath)
	if err != nil {
		t.Fatal(err)
	}

	c := &amo.Client{BaseURL: srv.URL, Authorization: "Session test-token"}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := amo.SignAll(context.Background(), c, []xpi.Info{info}, "firefox", "unlisted", artifactDir, log); err != nil {
		t.Fatal(err)
	}

	signed, err := os.ReadFile(filepath.Join(artifactDir, "public", "build", "de", "target.langpack.xpi"))
	if err != nil {
		t.Fatal(err)
	}
	if string(signed) != "signed-bytes" {
		t.Errorf("signed content = %q", signed)
	}
}

// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestClient_ListFilesDetailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/models/owner/repo/tree/main":
			w.Write([]byte(`[
				{"type":"file","path":"config.json","size":128},
				{"type":"directory","path":"weights"}
			]`))
		case "/api/models/owner/repo/tree/main/weights":
			w.Write([]byte(`[
				{"type":"file","path":"weights/model.safetensors","lfs":{"size":5000000000,"sha256":"abc123"}}
			]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Endpoint: srv.URL})
	entries, err := c.ListFilesDetailed(t.Context(), "owner/repo")
	if err != nil {
		t.Fatalf("ListFilesDetailed() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ListFilesDetailed() returned %d entries, want 2", len(entries))
	}

	byName := make(map[string]ManifestEntry)
	for _, e := range entries {
		byName[e.FileName] = e
	}
	if cfg := byName["config.json"]; cfg.Size == nil || *cfg.Size != 128 {
		t.Errorf("config.json entry = %+v", cfg)
	}
	if w := byName["weights/model.safetensors"]; w.SHA256 != "abc123" || w.Size == nil || *w.Size != 5000000000 {
		t.Errorf("weights/model.safetensors entry = %+v", w)
	}
}

func TestClient_ListFilesDetailed_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Endpoint: srv.URL})
	_, err := c.ListFilesDetailed(t.Context(), "owner/repo")
	var hubErr *Error
	if err == nil {
		t.Fatal("ListFilesDetailed() error = nil, want not-found error")
	}
	if !asHubError(err, &hubErr) || hubErr.Kind != KindNotFound {
		t.Errorf("ListFilesDetailed() error = %v, want KindNotFound", err)
	}
}

func TestClient_ListFilesDetailed_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Endpoint: srv.URL})
	_, err := c.ListFilesDetailed(t.Context(), "owner/repo")
	var hubErr *Error
	if !asHubError(err, &hubErr) || hubErr.Kind != KindPermissionDenied {
		t.Errorf("ListFilesDetailed() error = %v, want KindPermissionDenied", err)
	}
}

func TestClient_ListFilesDetailed_InvalidHubID(t *testing.T) {
	c := NewClient(ClientOptions{})
	_, err := c.ListFilesDetailed(t.Context(), "not-a-valid-id")
	var hubErr *Error
	if !asHubError(err, &hubErr) || hubErr.Kind != KindInvalidInput {
		t.Errorf("ListFilesDetailed() error = %v, want KindInvalidInput", err)
	}
}

func TestClient_DownloadFile(t *testing.T) {
	const content = "the quick brown fox"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization header = %q", got)
		}
		w.Write([]byte(content))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Endpoint: srv.URL, Token: "test-token"})
	dest := filepath.Join(t.TempDir(), "nested", "config.json")

	var lastFraction float64
	var lastBytes int64
	err := c.DownloadFile(t.Context(), "owner/repo", "config.json", dest, func(fraction float64, downloaded, total int64) {
		lastFraction = fraction
		lastBytes = downloaded
	})
	if err != nil {
		t.Fatalf("DownloadFile() error: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("downloaded file missing: %v", err)
	}
	if string(data) != content {
		t.Errorf("downloaded content = %q, want %q", data, content)
	}
	if lastBytes != int64(len(content)) {
		t.Errorf("final progress bytes = %d, want %d", lastBytes, len(content))
	}
	if lastFraction != 1 {
		t.Errorf("final progress fraction = %v, want 1", lastFraction)
	}
}

func TestClient_DownloadFile_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Endpoint: srv.URL})
	dest := filepath.Join(t.TempDir(), "missing.bin")
	err := c.DownloadFile(t.Context(), "owner/repo", "missing.bin", dest, nil)
	var hubErr *Error
	if !asHubError(err, &hubErr) || hubErr.Kind != KindNotFound {
		t.Errorf("DownloadFile() error = %v, want KindNotFound", err)
	}
}

func asHubError(err error, target **Error) bool {
	he, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = he
	return true
}

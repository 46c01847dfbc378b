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

func TestAcceptFile(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"config.json", true},
		{"tokenizer.json", true},
		{"model.safetensors", true},
		{"README.md", false},
		{"readme.txt", false},
		{"model-card.md", true}, // contains "model"
		{"LICENSE", false},
		{".gitattributes", false},
		{"sample_output.png", false},
		{"weights.safetensors.tmp", false},
	}
	for _, tc := range cases {
		if got := acceptFile(tc.name); got != tc.want {
			t.Errorf("acceptFile(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFilterManifest(t *testing.T) {
	entries := []ManifestEntry{
		{FileName: "config.json"},
		{FileName: "README.md"},
		{FileName: "model.safetensors"},
	}
	got := FilterManifest(entries)
	if len(got) != 2 {
		t.Fatalf("FilterManifest() returned %d entries, want 2", len(got))
	}
}

// newTestHubServer serves a small fixed repository tree: a config.json and
// a tokenizer.json, both small enough to skip hash qualification.
func newTestHubServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/models/owner/repo/tree/main", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"type":"file","path":"config.json","size":20},
			{"type":"file","path":"tokenizer.json","size":20}
		]`))
	})
	mux.HandleFunc("/owner/repo/resolve/main/config.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hidden_size":1}`))
	})
	mux.HandleFunc("/owner/repo/resolve/main/tokenizer.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"vocab":[]}`))
	})
	return httptest.NewServer(mux)
}

func TestCoordinator_DownloadModel(t *testing.T) {
	srv := newTestHubServer(t)
	defer srv.Close()

	downloadBase := t.TempDir()
	cacheRoot := t.TempDir()
	modelDir := filepath.Join(downloadBase, "staging", "owner", "repo")
	tempDir := filepath.Join(downloadBase, ".tmp", "owner", "repo")

	coord := NewCoordinator(CoordinatorConfig{
		DownloadBase: downloadBase,
		CacheRoot:    cacheRoot,
		Client:       NewClient(ClientOptions{Endpoint: srv.URL}),
	})

	var events []ProgressEvent
	_, err := coord.DownloadModel(t.Context(), "owner/repo", modelDir, tempDir, func(ev ProgressEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("DownloadModel() error: %v", err)
	}

	if len(events) == 0 {
		t.Fatal("DownloadModel() produced no progress events")
	}
	if events[0].Name != "start" {
		t.Errorf("first event = %q, want start", events[0].Name)
	}
	if last := events[len(events)-1]; last.Name != "complete" {
		t.Errorf("last event = %q, want complete", last.Name)
	}

	snapshot, err := coord.Layout().SnapshotDirectory("owner/repo", true)
	if err != nil {
		t.Fatalf("SnapshotDirectory() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(snapshot, "config.json")); err != nil {
		t.Errorf("config.json not materialized into canonical cache: %v", err)
	}
	if _, err := os.Stat(filepath.Join(snapshot, "tokenizer.json")); err != nil {
		t.Errorf("tokenizer.json not materialized into canonical cache: %v", err)
	}

	if _, ok := coord.Manifest().LoadCachedMetadata("owner/repo"); !ok {
		t.Error("manifest was not cached after a successful download")
	}
}

func TestCoordinator_DownloadModel_InvalidHubID(t *testing.T) {
	coord := NewCoordinator(CoordinatorConfig{DownloadBase: t.TempDir(), CacheRoot: t.TempDir()})
	_, err := coord.DownloadModel(t.Context(), "not-valid", t.TempDir(), t.TempDir(), nil)
	if err == nil {
		t.Fatal("DownloadModel() error = nil for invalid hub_id")
	}
}

func TestCoordinator_DownloadModel_NotFoundClearsBackoffState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	coord := NewCoordinator(CoordinatorConfig{
		DownloadBase: t.TempDir(),
		CacheRoot:    t.TempDir(),
		Client:       NewClient(ClientOptions{Endpoint: srv.URL}),
	})

	_, err := coord.DownloadModel(t.Context(), "owner/repo", t.TempDir(), t.TempDir(), nil)
	var hubErr *Error
	if !asHubError(err, &hubErr) || hubErr.Kind != KindNotFound {
		t.Errorf("DownloadModel() error = %v, want KindNotFound", err)
	}
	if !coord.Failures().IsNetworkReady("owner/repo", "download_model") {
		t.Error("a not-found failure should not enter backoff")
	}
}

func TestCoordinator_DownloadModel_RespectsBackoff(t *testing.T) {
	coord := NewCoordinator(CoordinatorConfig{DownloadBase: t.TempDir(), CacheRoot: t.TempDir()})
	coord.Failures().RecordFailure("owner/repo", "download_file", wrapError(KindTransient, "simulated", os.ErrDeadlineExceeded))

	_, err := coord.DownloadModel(t.Context(), "owner/repo", t.TempDir(), t.TempDir(), nil)
	var hubErr *Error
	if !asHubError(err, &hubErr) || hubErr.Kind != KindNetworkUnavailable {
		t.Errorf("DownloadModel() error = %v, want KindNetworkUnavailable", err)
	}
}

func TestListDownloadedModels(t *testing.T) {
	root := t.TempDir()
	modelDir := filepath.Join(root, "models--owner--repo", "snapshots", "main")
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(modelDir, "config.json"), []byte(`{}`))
	writeFile(t, filepath.Join(modelDir, "tokenizer.json"), []byte(`{}`))
	writeFile(t, filepath.Join(modelDir, "model.safetensors"), []byte("w"))

	got, err := ListDownloadedModels(root)
	if err != nil {
		t.Fatalf("ListDownloadedModels() error: %v", err)
	}
	if len(got) != 1 || got[0].HubID != "owner/repo" {
		t.Errorf("ListDownloadedModels() = %+v, want one owner/repo entry", got)
	}
}

func TestListDownloadedModels_MixedCanonicalAndLegacyLayout(t *testing.T) {
	root := t.TempDir()

	legacyDir := filepath.Join(root, "owner1", "repoA")
	if err := os.MkdirAll(legacyDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(legacyDir, "config.json"), []byte(`{}`))
	writeFile(t, filepath.Join(legacyDir, "tokenizer.json"), []byte(`{}`))
	writeFile(t, filepath.Join(legacyDir, "model.safetensors"), []byte("w"))

	canonicalDir := filepath.Join(root, "models--o2--repoB", "snapshots", "abc")
	if err := os.MkdirAll(canonicalDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(canonicalDir, "tokenizer.model"), []byte("t"))
	writeFile(t, filepath.Join(canonicalDir, "weights.gguf"), []byte("w"))

	got, err := ListDownloadedModels(root)
	if err != nil {
		t.Fatalf("ListDownloadedModels() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListDownloadedModels() = %+v, want 2 entries", got)
	}
	if got[0].HubID != "o2/repoB" || got[1].HubID != "owner1/repoA" {
		t.Errorf("ListDownloadedModels() = %+v, want [o2/repoB, owner1/repoA] sorted", got)
	}
}

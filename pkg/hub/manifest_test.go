// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"testing"
)

func TestManifestStore_CacheAndLoadRoundTrip(t *testing.T) {
	base := t.TempDir()
	s := NewManifestStore(base)
	size := int64(123)
	entries := []ManifestEntry{
		{FileName: "config.json", Size: &size},
		{FileName: "model.safetensors", SHA256: "abc123"},
	}

	if err := s.CacheMetadata("owner/repo", entries); err != nil {
		t.Fatalf("CacheMetadata() error: %v", err)
	}

	got, ok := s.LoadCachedMetadata("owner/repo")
	if !ok {
		t.Fatal("LoadCachedMetadata() ok = false, want true")
	}
	if len(got) != 2 || got[0].FileName != "config.json" || got[1].SHA256 != "abc123" {
		t.Errorf("LoadCachedMetadata() = %+v", got)
	}
}

func TestManifestStore_LoadCachedMetadata_MissingFile(t *testing.T) {
	s := NewManifestStore(t.TempDir())
	_, ok := s.LoadCachedMetadata("owner/repo")
	if ok {
		t.Error("LoadCachedMetadata() ok = true for never-cached repo")
	}
}

func TestManifestStore_LoadCachedMetadata_InvalidHubID(t *testing.T) {
	s := NewManifestStore(t.TempDir())
	if err := s.CacheMetadata("not-valid", nil); err == nil {
		t.Error("CacheMetadata() error = nil for invalid hub_id, want error")
	}
	if _, ok := s.LoadCachedMetadata("not-valid"); ok {
		t.Error("LoadCachedMetadata() ok = true for invalid hub_id")
	}
}

func TestManifestStore_CachedIntegrityExpectations(t *testing.T) {
	base := t.TempDir()
	s := NewManifestStore(base)
	size := int64(999)
	entries := []ManifestEntry{
		{FileName: "model.safetensors", Size: &size, SHA256: "deadbeef"},
	}
	if err := s.CacheMetadata("owner/repo", entries); err != nil {
		t.Fatal(err)
	}

	exps := s.CachedIntegrityExpectations("owner/repo")
	exp, ok := exps["model.safetensors"]
	if !ok {
		t.Fatal("expectation missing for model.safetensors")
	}
	if exp.ExpectedSize != 999 || exp.ExpectedSHA256 != "deadbeef" {
		t.Errorf("expectation = %+v", exp)
	}
}

func TestManifestStore_CachedIntegrityExpectations_NoManifest(t *testing.T) {
	s := NewManifestStore(t.TempDir())
	exps := s.CachedIntegrityExpectations("owner/repo")
	if len(exps) != 0 {
		t.Errorf("CachedIntegrityExpectations() = %v, want empty map", exps)
	}
}

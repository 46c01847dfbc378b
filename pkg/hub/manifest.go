// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// manifestFileName is the per-repo metadata file name, stored under
// <download_base>/<hub_id>/.mlx-metadata.json.
const manifestFileName = ".mlx-metadata.json"

// ManifestStore persists and loads per-repository file manifests (C3).
// Reads never return an error for a missing or corrupt file — they simply
// report "no cached manifest" so callers fall back to a fresh fetch.
type ManifestStore struct {
	downloadBase string
}

// NewManifestStore returns a store rooted at downloadBase.
func NewManifestStore(downloadBase string) *ManifestStore {
	return &ManifestStore{downloadBase: downloadBase}
}

func (s *ManifestStore) manifestPath(hubID string) string {
	return filepath.Join(s.downloadBase, hubID, manifestFileName)
}

// CacheMetadata writes entries for hubID as a pretty-printed JSON array.
// Write-through and idempotent: calling it again with the same entries
// produces byte-identical output.
func (s *ManifestStore) CacheMetadata(hubID string, entries []ManifestEntry) error {
	id := NormalizeHubID(hubID)
	if id == "" {
		return newError(KindInvalidInput, "invalid hub_id")
	}
	if entries == nil {
		entries = []ManifestEntry{}
	}

	path := s.manifestPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return wrapError(KindIoError, "create manifest directory", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return wrapError(KindIoError, "encode manifest", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return wrapError(KindIoError, "write manifest", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return wrapError(KindIoError, "rename manifest into place", err)
	}
	return nil
}

// LoadCachedMetadata returns the cached manifest for hubID, or (nil, false)
// if the file is missing, unreadable, or fails to decode. Never errors.
func (s *ManifestStore) LoadCachedMetadata(hubID string) ([]ManifestEntry, bool) {
	id := NormalizeHubID(hubID)
	if id == "" {
		return nil, false
	}

	data, err := os.ReadFile(s.manifestPath(id))
	if err != nil {
		return nil, false
	}

	var entries []ManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

// CachedIntegrityExpectations projects the cached manifest for hubID into a
// file_name -> IntegrityExpectation map for O(1) lookup during validation.
// Returns an empty map if no manifest is cached.
func (s *ManifestStore) CachedIntegrityExpectations(hubID string) map[string]IntegrityExpectation {
	out := make(map[string]IntegrityExpectation)
	entries, ok := s.LoadCachedMetadata(hubID)
	if !ok {
		return out
	}
	for _, e := range entries {
		out[e.FileName] = expectationForEntry(e)
	}
	return out
}

// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/arcadia-ai/modelhub/pkg/hub"
)

func int64p(v int64) *int64 { return &v }

func TestRepoInfo_TotalSizeComputed(t *testing.T) {
	entries := []hub.ManifestEntry{
		{FileName: "config.json", Size: int64p(100)},
		{FileName: "model.safetensors", Size: int64p(2048)},
		{FileName: "tokenizer.json", Size: nil},
	}

	var total int64
	for _, f := range entries {
		if f.Size != nil {
			total += *f.Size
		}
	}
	if total != 2148 {
		t.Errorf("total = %d, want 2148", total)
	}
}

func TestPrintRepoInfo_NoPanic(t *testing.T) {
	info := repoInfo{
		HubID:    "owner/repo",
		Snapshot: "/cache/models--owner--repo/snapshots/main",
		Complete: true,
		Files: []hub.ManifestEntry{
			{FileName: "model.safetensors", Size: int64p(1024), SHA256: "abc123"},
		},
		TotalSize: 1024,
	}
	printRepoInfo(info)
	printRepoInfo(repoInfo{HubID: "owner/empty"})
}

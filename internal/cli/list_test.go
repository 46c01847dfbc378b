// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/arcadia-ai/modelhub/pkg/hub"
)

func TestHumanSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{500, "500 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		if got := humanSize(tt.bytes); got != tt.want {
			t.Errorf("humanSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestPrintModelsTable_NoPanic(t *testing.T) {
	entries := []hub.DownloadedModel{
		{HubID: "owner/repo-one", Path: "/cache/models--owner--repo-one/snapshots/main"},
		{HubID: "owner/repo-two", Path: "/cache/models--owner--repo-two/snapshots/main"},
	}
	printModelsTable(entries)
	printModelsTable(nil)
}

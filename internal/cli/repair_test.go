// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestRepairCmd_RepairsMissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	downloadBase := t.TempDir()
	cacheRoot := t.TempDir()

	sourceDir := filepath.Join(downloadBase, "staging", "owner", "repo")
	if err := os.MkdirAll(sourceDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sourceDir, "config.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sourceDir, "tokenizer.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	snapshotDir := filepath.Join(cacheRoot, "models--owner--repo", "snapshots", "main")
	if err := os.MkdirAll(snapshotDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(snapshotDir, "config.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	ro := &RootOpts{CacheRoot: cacheRoot, DownloadBase: downloadBase, JSONOut: true}
	cmd := newRepairCmd(ro)
	cmd.SetArgs([]string{"owner/repo"})

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	err := cmd.Execute()
	w.Close()
	os.Stdout = old
	if err != nil {
		t.Fatalf("repair command error: %v", err)
	}

	var buf bytes.Buffer
	buf.ReadFrom(r)
	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode repair output: %v", err)
	}
	if result["Outcome"] != "repaired" {
		t.Errorf("Outcome = %v, want repaired", result["Outcome"])
	}

	if _, err := os.Stat(filepath.Join(snapshotDir, "tokenizer.json")); err != nil {
		t.Errorf("tokenizer.json not repaired into snapshot: %v", err)
	}
}

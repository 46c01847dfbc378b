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

func TestVerifyCmd_JSON_Incomplete(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cacheRoot := t.TempDir()

	ro := &RootOpts{CacheRoot: cacheRoot, JSONOut: true}
	cmd := newVerifyCmd(ro)
	cmd.SetArgs([]string{"owner/repo"})

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	err := cmd.Execute()
	w.Close()
	os.Stdout = old
	if err != nil {
		t.Fatalf("verify command error: %v", err)
	}

	var buf bytes.Buffer
	buf.ReadFrom(r)

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode verify output: %v", err)
	}
	if result["hub_id"] != "owner/repo" {
		t.Errorf("hub_id = %v, want owner/repo", result["hub_id"])
	}
	if result["complete"] != false {
		t.Errorf("complete = %v, want false for an empty cache root", result["complete"])
	}
}

func TestVerifyCmd_JSON_Complete(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cacheRoot := t.TempDir()
	snapshotDir := filepath.Join(cacheRoot, "models--owner--repo", "snapshots", "main")
	if err := os.MkdirAll(snapshotDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"config.json", "tokenizer.json", "model.safetensors"} {
		if err := os.WriteFile(filepath.Join(snapshotDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ro := &RootOpts{CacheRoot: cacheRoot, JSONOut: true}
	cmd := newVerifyCmd(ro)
	cmd.SetArgs([]string{"owner/repo"})

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	err := cmd.Execute()
	w.Close()
	os.Stdout = old
	if err != nil {
		t.Fatalf("verify command error: %v", err)
	}

	var buf bytes.Buffer
	buf.ReadFrom(r)
	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode verify output: %v", err)
	}
	if result["complete"] != true {
		t.Errorf("complete = %v, want true for a complete snapshot", result["complete"])
	}
}

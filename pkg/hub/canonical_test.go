// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalizer_FlattenPass(t *testing.T) {
	root := t.TempDir()
	repoDir := filepath.Join(root, "Llama-3-8B")
	nested := filepath.Join(repoDir, "Llama-3-8B")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nested, "config.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewCanonicalizer()
	if err := c.Canonicalize(repoDir); err != nil {
		t.Fatalf("Canonicalize() error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(repoDir, "Llama-3-8B")); !os.IsNotExist(err) {
		t.Error("nested self-named directory still present after flatten")
	}
	if _, err := os.Stat(filepath.Join(repoDir, "config.json")); err != nil {
		t.Errorf("config.json missing after flatten: %v", err)
	}
}

func TestCanonicalizer_Idempotent(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "config.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewCanonicalizer()
	if err := c.Canonicalize(root); err != nil {
		t.Fatalf("first Canonicalize() error: %v", err)
	}
	if err := c.Canonicalize(root); err != nil {
		t.Fatalf("second Canonicalize() error: %v", err)
	}
}

func TestCanonicalizer_AliasConfig(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "mlx_config.json"), []byte(`{"alpha":1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewCanonicalizer()
	if err := c.Canonicalize(root); err != nil {
		t.Fatalf("Canonicalize() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "config.json"))
	if err != nil {
		t.Fatalf("config.json not created: %v", err)
	}
	if string(data) != `{"alpha":1}` {
		t.Errorf("config.json content = %q", data)
	}
	if _, err := os.Stat(filepath.Join(root, "mlx_config.json")); err != nil {
		t.Error("original mlx_config.json was removed, want preserved")
	}
}

func TestCanonicalizer_AliasConfig_PrefersExistingConfig(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "config.json"), []byte(`{"real":true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "model_config.json"), []byte(`{"real":false}`), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewCanonicalizer()
	if err := c.Canonicalize(root); err != nil {
		t.Fatalf("Canonicalize() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"real":true}` {
		t.Errorf("config.json was overwritten: %q", data)
	}
}

func TestCanonicalizer_AliasConfig_Subdirectory(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "variant")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "mlx_config.json"), []byte(`{"alpha":1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewCanonicalizer()
	if err := c.Canonicalize(root); err != nil {
		t.Fatalf("Canonicalize() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(sub, "config.json"))
	if err != nil {
		t.Fatalf("config.json not created in subdirectory: %v", err)
	}
	if string(data) != `{"alpha":1}` {
		t.Errorf("config.json content = %q", data)
	}
}

// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"os"
	"testing"

	"github.com/arcadia-ai/modelhub/internal/server"
)

func TestConfigInitAndShowRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	origHome := os.Getenv("HOME")
	defer os.Setenv("HOME", origHome)
	os.Setenv("HOME", tmpDir)

	cfg := &server.ConfigFile{
		Token:     "hf_roundtrip",
		CacheRoot: "/roundtrip/cache",
		FailFast:  true,
	}
	if err := server.SaveConfigFile(cfg); err != nil {
		t.Fatalf("SaveConfigFile() error: %v", err)
	}

	got, err := server.LoadConfigFile()
	if err != nil {
		t.Fatalf("LoadConfigFile() error: %v", err)
	}
	if got.Token != "hf_roundtrip" || got.CacheRoot != "/roundtrip/cache" || !got.FailFast {
		t.Errorf("LoadConfigFile() = %+v", got)
	}
}

func TestNewConfigCmd_Subcommands(t *testing.T) {
	cmd := newConfigCmd()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	if !names["show"] || !names["init"] || !names["target"] {
		t.Errorf("config subcommands = %v, want show, init and target", names)
	}
}

func TestConfigTargetAddListRemove(t *testing.T) {
	tmpDir := t.TempDir()
	origHome := os.Getenv("HOME")
	defer os.Setenv("HOME", origHome)
	os.Setenv("HOME", tmpDir)

	targetCmd := newConfigTargetCmd()
	targetCmd.SetArgs([]string{"add", "nas", "/mnt/nas/models", "--description", "backup array"})
	if err := targetCmd.Execute(); err != nil {
		t.Fatalf("target add error: %v", err)
	}

	targets, err := server.LoadTargets("")
	if err != nil {
		t.Fatalf("LoadTargets() error: %v", err)
	}
	if got := targets.ResolvePath("nas"); got != "/mnt/nas/models" {
		t.Errorf("ResolvePath(nas) = %q, want /mnt/nas/models", got)
	}

	removeCmd := newConfigTargetCmd()
	removeCmd.SetArgs([]string{"remove", "nas"})
	if err := removeCmd.Execute(); err != nil {
		t.Fatalf("target remove error: %v", err)
	}

	targets, err = server.LoadTargets("")
	if err != nil {
		t.Fatalf("LoadTargets() error: %v", err)
	}
	if _, ok := targets.Targets["nas"]; ok {
		t.Errorf("target %q still present after remove", "nas")
	}
}

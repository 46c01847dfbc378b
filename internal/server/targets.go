// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Target is a named alternate cache_root, letting a user point pull/serve
// at a different disk or mount without retyping the full path every time.
type Target struct {
	Path        string `yaml:"path" json:"path"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// TargetsConfig holds every configured named target.
type TargetsConfig struct {
	Targets map[string]Target `yaml:"targets" json:"targets"`
}

// DefaultTargetsPath returns the default location for the targets file.
func DefaultTargetsPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "modelhub", "targets.yaml")
}

// LoadTargets loads targets from path, or DefaultTargetsPath() if path is
// empty. A missing file yields an empty, non-nil config.
func LoadTargets(path string) (*TargetsConfig, error) {
	if path == "" {
		path = DefaultTargetsPath()
	}

	cfg := &TargetsConfig{Targets: make(map[string]Target)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read targets: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse targets: %w", err)
	}
	if cfg.Targets == nil {
		cfg.Targets = make(map[string]Target)
	}
	return cfg, nil
}

// Save persists the targets config to path, or DefaultTargetsPath().
func (c *TargetsConfig) Save(path string) error {
	if path == "" {
		path = DefaultTargetsPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create targets dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal targets: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Add adds or replaces a named target.
func (c *TargetsConfig) Add(name, path, description string) {
	c.Targets[name] = Target{Path: path, Description: description}
}

// Remove deletes a named target, reporting whether it existed.
func (c *TargetsConfig) Remove(name string) bool {
	if _, ok := c.Targets[name]; ok {
		delete(c.Targets, name)
		return true
	}
	return false
}

// ResolvePath returns the target's path if nameOrPath names a configured
// target, else nameOrPath unchanged (treated as a direct path).
func (c *TargetsConfig) ResolvePath(nameOrPath string) string {
	if t, ok := c.Targets[nameOrPath]; ok {
		return t.Path
	}
	return nameOrPath
}

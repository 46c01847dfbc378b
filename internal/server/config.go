// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ConfigFile is the persistent configuration format, shared with the CLI
// (internal/cli) so a value set via `modelhub config init` takes effect for
// both `modelhub pull` and `modelhub serve`.
type ConfigFile struct {
	Token        string `json:"token,omitempty" yaml:"token,omitempty"`
	Endpoint     string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	CacheRoot    string `json:"cache_root,omitempty" yaml:"cache_root,omitempty"`
	DownloadBase string `json:"download_base,omitempty" yaml:"download_base,omitempty"`
	FailFast     bool   `json:"fail_fast,omitempty" yaml:"fail_fast,omitempty"`
}

var configMu sync.Mutex

// ConfigPath returns the config file path, preferring an existing
// modelhub.json, then modelhub.yaml, then modelhub.yml under ~/.config.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".config")
	for _, name := range []string{"modelhub.json", "modelhub.yaml", "modelhub.yml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(dir, "modelhub.json")
}

// LoadConfigFile loads the config file, returning a zero-value ConfigFile
// (not an error) if it does not exist.
func LoadConfigFile() (*ConfigFile, error) {
	path := ConfigPath()
	if path == "" {
		return &ConfigFile{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ConfigFile{}, nil
		}
		return nil, err
	}

	cfg := &ConfigFile{}
	if strings.HasSuffix(strings.ToLower(path), ".yaml") || strings.HasSuffix(strings.ToLower(path), ".yml") {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfigFile persists cfg to ConfigPath(), creating the parent directory
// as needed.
func SaveConfigFile(cfg *ConfigFile) error {
	configMu.Lock()
	defer configMu.Unlock()

	path := ConfigPath()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var data []byte
	var err error
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyConfigFile fills zero-valued fields of dst from the config file.
// CLI-flag- or env-provided values always win over the file.
func ApplyConfigFile(dst *ConfigFile) error {
	fileCfg, err := LoadConfigFile()
	if err != nil {
		return err
	}
	if dst.Token == "" {
		dst.Token = fileCfg.Token
	}
	if dst.Endpoint == "" {
		dst.Endpoint = fileCfg.Endpoint
	}
	if dst.CacheRoot == "" {
		dst.CacheRoot = fileCfg.CacheRoot
	}
	if dst.DownloadBase == "" {
		dst.DownloadBase = fileCfg.DownloadBase
	}
	if !dst.FailFast {
		dst.FailFast = fileCfg.FailFast
	}
	return nil
}

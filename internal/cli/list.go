// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arcadia-ai/modelhub/internal/server"
	"github.com/arcadia-ai/modelhub/pkg/hub"
)

func newListCmd(ro *RootOpts) *cobra.Command {
	var modelsDir string
	var formatOut string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List repositories materialized in the HF-compatible cache",
		Long: `List the repositories the cache directory manager (C6) has
materialized under the canonical models--owner--repo/snapshots/<rev> layout.

Examples:
  modelhub list
  modelhub list --format json
  modelhub list --models-dir /data/models`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfigDefaults(cmd, ro); err != nil {
				return err
			}
			root := modelsDir
			if root == "" {
				root = resolvedCacheRoot(ro)
			}

			entries, err := hub.ListDownloadedModels(root)
			if err != nil {
				return err
			}
			sort.Slice(entries, func(i, j int) bool { return entries[i].HubID < entries[j].HubID })

			if formatOut == "json" || ro.JSONOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			if len(entries) == 0 {
				fmt.Println("No materialized repositories found.")
				fmt.Printf("Cache root: %s\n", root)
				return nil
			}

			printModelsTable(entries)
			fmt.Printf("\nTotal: %d repositories\n", len(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&modelsDir, "models-dir", "", "Cache root to scan (default: --cache-root / $HOME/.cache/huggingface/hub)")
	cmd.Flags().StringVar(&formatOut, "format", "table", "Output format: table, json")

	return cmd
}

func resolvedCacheRoot(ro *RootOpts) string {
	raw := ro.CacheRoot
	if raw == "" {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			return os.TempDir()
		}
		return home + "/.cache/huggingface/hub"
	}
	if targets, err := server.LoadTargets(""); err == nil {
		raw = targets.ResolvePath(raw)
	}
	return raw
}

func printModelsTable(entries []hub.DownloadedModel) {
	maxRepo := 4 // "REPO"
	for _, e := range entries {
		if len(e.HubID) > maxRepo {
			maxRepo = len(e.HubID)
		}
	}
	if maxRepo > 60 {
		maxRepo = 60
	}

	fmt.Printf("%-*s  %s\n", maxRepo, "REPO", "PATH")
	fmt.Printf("%-*s  %s\n", maxRepo, strings.Repeat("-", maxRepo), strings.Repeat("-", 4))
	for _, e := range entries {
		repo := e.HubID
		if len(repo) > maxRepo {
			repo = repo[:maxRepo-3] + "..."
		}
		fmt.Printf("%-*s  %s\n", maxRepo, repo, e.Path)
	}
}

func humanSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arcadia-ai/modelhub/pkg/hub"
)

// repoInfo is the info command's rendering of a cached manifest plus the
// snapshot directory's completeness.
type repoInfo struct {
	HubID     string              `json:"hub_id"`
	Snapshot  string              `json:"snapshot_path"`
	Complete  bool                `json:"complete"`
	Files     []hub.ManifestEntry `json:"files"`
	TotalSize int64               `json:"total_size"`
}

func newInfoCmd(ro *RootOpts) *cobra.Command {
	var formatOut string

	cmd := &cobra.Command{
		Use:   "info <owner/repo>",
		Short: "Show the cached manifest and completeness of a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfigDefaults(cmd, ro); err != nil {
				return err
			}
			id, err := resolvedHubID(args, "")
			if err != nil {
				return err
			}

			layout := hub.NewDirectoryManager(resolvedCacheRoot(ro))
			snapshot, err := layout.SnapshotDirectory(id, true)
			if err != nil {
				return err
			}

			manifest := hub.NewManifestStore(resolvedDownloadBase(ro))
			entries, _ := manifest.LoadCachedMetadata(id)

			checker := hub.NewHealthChecker(nil, nil)
			info := repoInfo{
				HubID:    id,
				Snapshot: snapshot,
				Complete: checker.IsDirectoryComplete(snapshot),
				Files:    entries,
			}
			for _, f := range entries {
				if f.Size != nil {
					info.TotalSize += *f.Size
				}
			}

			if formatOut == "json" || ro.JSONOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			printRepoInfo(info)
			return nil
		},
	}

	cmd.Flags().StringVar(&formatOut, "format", "text", "Output format: text, json")
	return cmd
}

func printRepoInfo(info repoInfo) {
	fmt.Printf("Repository: %s\n", info.HubID)
	fmt.Printf("Snapshot:   %s\n", info.Snapshot)
	fmt.Printf("Complete:   %v\n", info.Complete)
	fmt.Printf("Files:      %d\n", len(info.Files))
	fmt.Printf("Size:       %s\n", humanSize(info.TotalSize))

	if len(info.Files) == 0 {
		fmt.Println("\nNo cached manifest; run `modelhub pull` to populate one.")
		return
	}

	fmt.Println()
	fmt.Printf("  %-60s  %10s  %s\n", "NAME", "SIZE", "SHA256")
	for _, f := range info.Files {
		size := "?"
		if f.Size != nil {
			size = humanSize(*f.Size)
		}
		name := f.FileName
		if len(name) > 60 {
			name = "..." + name[len(name)-57:]
		}
		fmt.Printf("  %-60s  %10s  %s\n", name, size, f.SHA256)
	}
}

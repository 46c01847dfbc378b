// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arcadia-ai/modelhub/pkg/hub"
)

func newRepairCmd(ro *RootOpts) *cobra.Command {
	var formatOut string

	cmd := &cobra.Command{
		Use:   "repair <owner/repo>",
		Short: "Re-verify a materialized repository and repair missing files",
		Long: `Compares the HF-layout snapshot directory against the pristine
working copy a prior pull left under the download base's staging area,
using the cached manifest's size/hash expectations. Missing files are
copied back from the pristine copy; files that fail validation are
reported as needing a full redownload (repair never re-fetches from the
network).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfigDefaults(cmd, ro); err != nil {
				return err
			}
			id, err := resolvedHubID(args, "")
			if err != nil {
				return err
			}

			base := resolvedDownloadBase(ro)
			sourceDir := filepath.Join(base, "staging", filepath.FromSlash(id))

			layout := hub.NewDirectoryManager(resolvedCacheRoot(ro))
			snapshot, err := layout.SnapshotDirectory(id, true)
			if err != nil {
				return err
			}

			manifest := hub.NewManifestStore(base)
			expectations := manifest.CachedIntegrityExpectations(id)

			checker := hub.NewHealthChecker(nil, nil)
			report, err := checker.CheckAndRepair(id, sourceDir, snapshot, expectations)
			if err != nil {
				return err
			}

			if formatOut == "json" || ro.JSONOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			fmt.Printf("%s: %s\n", id, report.Outcome)
			if len(report.MissingFiles) > 0 {
				fmt.Printf("  missing:   %v\n", report.MissingFiles)
			}
			if len(report.CorruptFiles) > 0 {
				fmt.Printf("  corrupt:   %v\n", report.CorruptFiles)
			}
			if len(report.RepairedFile) > 0 {
				fmt.Printf("  repaired:  %v\n", report.RepairedFile)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&formatOut, "format", "text", "Output format: text, json")
	return cmd
}

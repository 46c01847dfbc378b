// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arcadia-ai/modelhub/pkg/hub"
)

// planResult is the plan command's JSON/text rendering: the filtered file
// set a pull would download, without performing any network transfer.
type planResult struct {
	HubID        string              `json:"hub_id"`
	TotalFiles   int                 `json:"total_files"`
	AcceptedSize int64               `json:"accepted_size"`
	Files        []hub.ManifestEntry `json:"files"`
}

func newPlanCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	var formatOut string

	cmd := &cobra.Command{
		Use:   "plan <owner/repo>",
		Short: "Preview the file set a pull would download, without downloading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfigDefaults(cmd, ro); err != nil {
				return err
			}
			id, err := resolvedHubID(args, "")
			if err != nil {
				return err
			}

			client := newClient(ro)
			entries, err := client.ListFilesDetailed(ctx, id)
			if err != nil {
				return err
			}
			accepted := hub.FilterManifest(entries)

			result := planResult{HubID: id, TotalFiles: len(accepted), Files: accepted}
			for _, f := range accepted {
				if f.Size != nil {
					result.AcceptedSize += *f.Size
				}
			}

			if formatOut == "json" || ro.JSONOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Printf("%s: %d files would be downloaded (%s)\n", id, result.TotalFiles, humanSize(result.AcceptedSize))
			for _, f := range accepted {
				size := "?"
				if f.Size != nil {
					size = humanSize(*f.Size)
				}
				fmt.Printf("  %-60s  %s\n", f.FileName, size)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&formatOut, "format", "text", "Output format: text, json")
	return cmd
}

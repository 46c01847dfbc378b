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

func newVerifyCmd(ro *RootOpts) *cobra.Command {
	var formatOut string

	cmd := &cobra.Command{
		Use:   "verify <owner/repo>",
		Short: "Check whether a materialized repository looks complete",
		Long: `Checks the HF-layout snapshot directory for a config file, a
tokenizer file, and at least one weight file, using the health checker's
(C9) IsDirectoryComplete test. It does not check content, only presence — pair it
with "modelhub repair" for a full hash/size pass.`,
		Args: cobra.ExactArgs(1),
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

			checker := hub.NewHealthChecker(nil, nil)
			complete := checker.IsDirectoryComplete(snapshot)

			if formatOut == "json" || ro.JSONOut {
				enc := json.NewEncoder(os.Stdout)
				return enc.Encode(map[string]any{
					"hub_id":   id,
					"snapshot": snapshot,
					"complete": complete,
				})
			}

			status := "incomplete"
			if complete {
				status = "complete"
			}
			fmt.Printf("%s: %s (%s)\n", id, status, snapshot)
			if !complete {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&formatOut, "format", "text", "Output format: text, json")
	return cmd
}

// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arcadia-ai/modelhub/internal/tui"
	"github.com/arcadia-ai/modelhub/pkg/hub"
)

func newPullCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	var repoFlag string
	var tui_ bool

	cmd := &cobra.Command{
		Use:   "pull [owner/repo]",
		Short: "Download a repository's files and materialize the HF cache layout",
		Long: `Download every accepted file in a Hugging Face repository, validate
size/hash, move the working copy into place, and materialize it under the
canonical models--owner--repo/snapshots/<rev> layout (with a refs/main
pointer and a best-effort owner/repo legacy mirror).

Examples:
  modelhub pull TheBloke/Mistral-7B-GGUF
  modelhub pull --repo TheBloke/Mistral-7B-GGUF --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfigDefaults(cmd, ro); err != nil {
				return err
			}
			id, err := resolvedHubID(args, repoFlag)
			if err != nil {
				return err
			}

			coord := newCoordinator(ro)
			base := resolvedDownloadBase(ro)
			modelDir := filepath.Join(base, "staging", filepath.FromSlash(id))
			tempDir := filepath.Join(base, ".tmp", filepath.FromSlash(id))

			if ro.JSONOut {
				cb := jsonProgress(os.Stdout)
				_, err := coord.DownloadModel(ctx, id, modelDir, tempDir, cb)
				return err
			}

			if tui_ {
				return runPullWithLiveRenderer(ctx, coord, id, modelDir, tempDir)
			}

			_, err = coord.DownloadModel(ctx, id, modelDir, tempDir, textProgress(id))
			if err != nil {
				return err
			}
			fmt.Printf("pulled %s into %s\n", id, hub.NewDirectoryManager(resolvedCacheRoot(ro)).ModelRoot(id))
			return nil
		},
	}

	cmd.Flags().StringVar(&repoFlag, "repo", "", "Repository as owner/repo (alternative to the positional arg)")
	cmd.Flags().BoolVar(&tui_, "tui", false, "Render progress with the interactive live view")

	return cmd
}

// runPullWithLiveRenderer bridges the Coordinator's synchronous
// DownloadModel call to the bubbletea live view by running the download on
// a goroutine and funneling its progress callback through a channel.
func runPullWithLiveRenderer(ctx context.Context, coord *hub.Coordinator, id, modelDir, tempDir string) error {
	events := make(chan hub.Event, 64)
	result := make(chan error, 1)

	go func() {
		defer close(events)
		_, err := coord.DownloadModel(ctx, id, modelDir, tempDir, func(ev hub.ProgressEvent) {
			select {
			case events <- hub.Event(ev):
			default:
			}
		})
		result <- err
	}()

	return tui.RunLiveProgress(id, events, result)
}

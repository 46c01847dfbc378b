// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arcadia-ai/modelhub/internal/server"
)

func newServeCmd(ro *RootOpts) *cobra.Command {
	var addr string
	var port int
	var modelsDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP + WebSocket server for remote download control",
		Long: `Starts a REST+WebSocket front end over the same Coordinator the
CLI's pull command drives, so remote dashboards and automation can start
downloads, poll job status, watch live progress, and trigger repairs
without linking the Go package directly.

Examples:
  modelhub serve
  modelhub serve --port 3000
  modelhub serve --endpoint https://hf-mirror.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfigDefaults(cmd, ro); err != nil {
				return err
			}

			cfg := server.DefaultConfig()
			cfg.Addr = addr
			cfg.Port = port
			cfg.Token = ro.Token
			cfg.Endpoint = ro.Endpoint
			cfg.CacheRoot = resolvedCacheRoot(ro)
			cfg.DownloadBase = resolvedDownloadBase(ro)
			cfg.FailFast = ro.FailFast
			if modelsDir != "" {
				cfg.ModelsDir = modelsDir
			}

			srv := server.New(cfg)

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			fmt.Printf("modelhub: serving on %s:%d (models dir %s)\n", cfg.Addr, cfg.Port, cfg.ModelsDir)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "0.0.0.0", "Address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	cmd.Flags().StringVar(&modelsDir, "models-dir", "./Models", "Directory holding pristine staged copies used for repair")

	return cmd
}

// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package cli implements the modelhub command-line interface: pull, plan,
// list, verify, serve, and config subcommands layered over pkg/hub.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arcadia-ai/modelhub/internal/server"
	"github.com/arcadia-ai/modelhub/pkg/hub"
)

// RootOpts holds global CLI options shared across subcommands.
type RootOpts struct {
	Token        string
	Endpoint     string
	CacheRoot    string
	DownloadBase string
	JSONOut      bool
	Quiet        bool
	Verbose      bool
	Config       string
	LogFile      string
	LogLevel     string
	FailFast     bool
}

// Execute runs the CLI with the given version string.
func Execute(version string) error {
	ro := &RootOpts{}
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	root := &cobra.Command{
		Use:           "modelhub",
		Short:         "Acquire and verify Hugging Face model repositories in a local cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	root.PersistentFlags().StringVarP(&ro.Token, "token", "t", "", "Hugging Face access token (also reads HUGGINGFACE_TOKEN/HF_TOKEN)")
	root.PersistentFlags().StringVar(&ro.Endpoint, "endpoint", "", "Hugging Face Hub endpoint override")
	root.PersistentFlags().StringVar(&ro.CacheRoot, "cache-root", "", "Cache root (default: $HOME/.cache/huggingface/hub)")
	root.PersistentFlags().StringVar(&ro.DownloadBase, "download-base", "", "Manifest/working directory (default: $HOME/.cache/modelhub)")
	root.PersistentFlags().BoolVar(&ro.JSONOut, "json", false, "Emit machine-readable JSON events")
	root.PersistentFlags().BoolVarP(&ro.Quiet, "quiet", "q", false, "Quiet mode (minimal logs)")
	root.PersistentFlags().BoolVarP(&ro.Verbose, "verbose", "v", false, "Verbose logs")
	root.PersistentFlags().StringVar(&ro.Config, "config", "", "Path to config file (JSON or YAML)")
	root.PersistentFlags().StringVar(&ro.LogFile, "log-file", "", "Write logs to file (in addition to stderr)")
	root.PersistentFlags().StringVar(&ro.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&ro.FailFast, "fail-fast", false, "Abort a download on the first integrity mismatch instead of deferring to verify")

	pullCmd := newPullCmd(ctx, ro)
	root.AddCommand(pullCmd)
	root.AddCommand(newPlanCmd(ctx, ro))
	root.AddCommand(newListCmd(ro))
	root.AddCommand(newInfoCmd(ro))
	root.AddCommand(newVerifyCmd(ro))
	root.AddCommand(newRepairCmd(ro))
	root.AddCommand(newServeCmd(ro))
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd(version))

	root.RunE = pullCmd.RunE
	root.SetHelpCommand(&cobra.Command{Use: "help", Hidden: true})

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return setupLogging(ro)
	}

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

func setupLogging(ro *RootOpts) error {
	if ro.Quiet {
		log.SetOutput(io.Discard)
	}
	if ro.LogFile == "" {
		return nil
	}
	f, err := os.OpenFile(ro.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if ro.Quiet {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}
	return nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// resolvedHubID reads a hub_id from the --repo flag, falling back to
// args[0] when the flag is empty, and validates it.
func resolvedHubID(args []string, flagValue string) (string, error) {
	raw := flagValue
	if raw == "" && len(args) > 0 {
		raw = args[0]
	}
	id := hub.NormalizeHubID(raw)
	if id == "" {
		return "", fmt.Errorf("missing or invalid hub_id (expected owner/repo). Pass as positional arg or --repo")
	}
	return id, nil
}

func newClient(ro *RootOpts) *hub.Client {
	token := strings.TrimSpace(ro.Token)
	return hub.NewClient(hub.ClientOptions{Token: token, Endpoint: ro.Endpoint})
}

func newCoordinator(ro *RootOpts) *hub.Coordinator {
	return hub.NewCoordinator(hub.CoordinatorConfig{
		DownloadBase: resolvedDownloadBase(ro),
		CacheRoot:    resolvedCacheRoot(ro),
		Client:       newClient(ro),
		FailFast:     ro.FailFast,
	})
}

func resolvedDownloadBase(ro *RootOpts) string {
	if ro.DownloadBase != "" {
		return ro.DownloadBase
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return filepath.Join(home, ".cache", "modelhub")
}

// applyConfigDefaults loads the shared config file (--config override, else
// server.ConfigPath()'s default) and fills any RootOpts field the user did
// not set via flag or environment. Flags and environment always win.
func applyConfigDefaults(cmd *cobra.Command, ro *RootOpts) error {
	fileCfg, err := loadConfigFileFrom(ro.Config)
	if err != nil {
		return err
	}

	if !cmd.Flags().Changed("token") && os.Getenv("HUGGINGFACE_TOKEN") == "" && os.Getenv("HF_TOKEN") == "" && ro.Token == "" {
		ro.Token = fileCfg.Token
	}
	if !cmd.Flags().Changed("endpoint") && ro.Endpoint == "" {
		ro.Endpoint = fileCfg.Endpoint
	}
	if !cmd.Flags().Changed("cache-root") && ro.CacheRoot == "" {
		ro.CacheRoot = fileCfg.CacheRoot
	}
	if !cmd.Flags().Changed("download-base") && ro.DownloadBase == "" {
		ro.DownloadBase = fileCfg.DownloadBase
	}
	if !cmd.Flags().Changed("fail-fast") && !ro.FailFast {
		ro.FailFast = fileCfg.FailFast
	}
	return nil
}

// loadConfigFileFrom reads a server.ConfigFile from an explicit path, or
// from server.ConfigPath()'s default location when path is empty. A
// missing file at the default location is not an error.
func loadConfigFileFrom(path string) (*server.ConfigFile, error) {
	if path == "" {
		return server.LoadConfigFile()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &server.ConfigFile{}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML config file: %w", err)
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid JSON config file: %w", err)
	}
	return cfg, nil
}

// textProgress renders download/verification events as plain text lines.
func textProgress(hubID string) func(hub.ProgressEvent) {
	return func(ev hub.ProgressEvent) {
		switch ev.Name {
		case "start":
			fmt.Printf("pulling %s (%v files)\n", hubID, ev.Payload["total_files"])
		case "file_complete":
			fmt.Printf("  done: %v (%v/%v)\n", ev.Payload["file_name"], ev.Payload["completed_files"], ev.Payload["total_files"])
		case "complete":
			fmt.Printf("complete: %s\n", hubID)
		}
	}
}

// jsonProgress emits one JSON object per line for each event.
func jsonProgress(w io.Writer) func(hub.ProgressEvent) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	var mu sync.Mutex
	return func(ev hub.ProgressEvent) {
		mu.Lock()
		_ = enc.Encode(ev)
		mu.Unlock()
	}
}


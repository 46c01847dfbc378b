// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arcadia-ai/modelhub/internal/server"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or initialize the persistent config file",
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigTargetCmd())
	return cmd
}

func newConfigTargetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "target",
		Short: "Manage named alternate cache_root targets",
		Long: `A target is a name bound to a cache_root path, so --cache-root
can take a short name ("nas", "scratch") instead of the full path. Targets
are stored alongside the main config under ~/.config/modelhub/targets.yaml.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := server.LoadTargets("")
			if err != nil {
				return err
			}
			if len(targets.Targets) == 0 {
				fmt.Println("no targets configured")
				return nil
			}
			for name, t := range targets.Targets {
				fmt.Printf("%-20s %-40s %s\n", name, t.Path, t.Description)
			}
			return nil
		},
	})

	var description string
	addCmd := &cobra.Command{
		Use:   "add <name> <path>",
		Short: "Add or replace a named target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := server.LoadTargets("")
			if err != nil {
				return err
			}
			targets.Add(args[0], args[1], description)
			if err := targets.Save(""); err != nil {
				return err
			}
			fmt.Printf("added target %q -> %s\n", args[0], args[1])
			return nil
		},
	}
	addCmd.Flags().StringVar(&description, "description", "", "Human-readable note for this target")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a named target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := server.LoadTargets("")
			if err != nil {
				return err
			}
			if !targets.Remove(args[0]) {
				return fmt.Errorf("no such target: %s", args[0])
			}
			return targets.Save("")
		},
	})

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := server.LoadConfigFile()
			if err != nil {
				return err
			}
			fmt.Printf("config path: %s\n", server.ConfigPath())
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var token, endpoint, cacheRoot, downloadBase string
	var failFast bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the given defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &server.ConfigFile{
				Token:        token,
				Endpoint:     endpoint,
				CacheRoot:    cacheRoot,
				DownloadBase: downloadBase,
				FailFast:     failFast,
			}
			if err := server.SaveConfigFile(cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", server.ConfigPath())
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Hugging Face access token")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Hugging Face Hub endpoint override")
	cmd.Flags().StringVar(&cacheRoot, "cache-root", "", "Cache root")
	cmd.Flags().StringVar(&downloadBase, "download-base", "", "Manifest/working directory")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Abort a download on the first integrity mismatch")

	return cmd
}

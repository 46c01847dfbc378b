// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package hub implements the model acquisition core: resolving and caching
// repository metadata from the Hugging Face Hub, streaming files to disk
// with integrity verification, recovering from transient network failures
// via per-repository backoff, and materializing the on-disk layouts that
// downstream model loaders expect.
//
// The package is organized around a small set of collaborators that mirror
// the pieces of the system:
//
//   - Client: remote metadata + whole-file downloads (C1)
//   - Verifier: size + SHA-256 integrity checks (C2)
//   - ManifestStore: per-repo file manifest persistence (C3)
//   - Notifier: download/verification progress events (C4)
//   - FailureManager: per-repo backoff bookkeeping (C5)
//   - DirectoryManager: canonical on-disk directory structure (C6)
//   - Canonicalizer: post-download filesystem fixups (C7)
//   - Coordinator: orchestrates the above (C8)
//   - HealthChecker: post-install verification and repair (C9)
//
// Example:
//
//	coord := hub.NewCoordinator(hub.CoordinatorConfig{
//	    DownloadBase: "/var/lib/modelhub",
//	    Client:       hub.NewClient(hub.ClientOptions{Token: os.Getenv("HUGGINGFACE_TOKEN")}),
//	})
//	_, err := coord.DownloadModel(ctx, "mlx-community/Tiny-1M", modelDir, tempDir, func(ev hub.ProgressEvent) {
//	    fmt.Println(ev.Name, ev.Payload)
//	})
package hub

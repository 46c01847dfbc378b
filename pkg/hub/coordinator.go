// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ProgressEvent is the payload delivered to a DownloadModel progress
// callback: either a named lifecycle event (start, file_complete, complete)
// or a byte-level file_progress tick.
type ProgressEvent = Event

// weightExtensions and tokenizerNames are the file classes the discovery and
// completeness checks look for.
var (
	weightExtensions = []string{".safetensors", ".bin", ".gguf", ".npz", ".mlx"}
	tokenizerNames   = []string{"tokenizer.json", "tokenizer.model", "tokenizer_config.json"}
	configNames      = []string{"config.json", "model_config.json", "generation_config.json"}
)

// CoordinatorConfig configures a Coordinator. Only DownloadBase is required;
// every other collaborator gets a sensible default when left nil.
type CoordinatorConfig struct {
	// DownloadBase is the private working area for manifests and temp
	// files, outside CacheRoot.
	DownloadBase string

	// CacheRoot is the root of the HF-style cache. Defaults to
	// $HOME/.cache/huggingface/hub.
	CacheRoot string

	Client   *Client
	Verifier *Verifier
	Manifest *ManifestStore
	Notifier *Notifier
	Failures *FailureManager
	Layout   *DirectoryManager

	// FailFast, when true, aborts download_model on the first per-file
	// validation failure instead of deferring to the verification service.
	// Defaults to false per the documented policy decision.
	FailFast bool
}

func defaultCacheRoot() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return filepath.Join(home, ".cache", "huggingface", "hub")
}

type inFlightCall struct {
	wg     sync.WaitGroup
	result string
	err    error
}

// Coordinator orchestrates C1-C7 into the download_model operation and
// exposes model discovery (C8). For a given hub_id, at most one download
// runs at a time: a second caller joins the in-flight call and receives its
// result rather than failing with Busy.
type Coordinator struct {
	cfg      CoordinatorConfig
	client   *Client
	verifier *Verifier
	manifest *ManifestStore
	notifier *Notifier
	failures *FailureManager
	layout   *DirectoryManager
	canon    *Canonicalizer

	mu       sync.Mutex
	inFlight map[string]*inFlightCall
}

// NewCoordinator builds a Coordinator, filling in any collaborator left
// unset in cfg with its default implementation.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.CacheRoot == "" {
		cfg.CacheRoot = defaultCacheRoot()
	}
	c := &Coordinator{
		cfg:      cfg,
		client:   cfg.Client,
		verifier: cfg.Verifier,
		manifest: cfg.Manifest,
		notifier: cfg.Notifier,
		failures: cfg.Failures,
		layout:   cfg.Layout,
		canon:    NewCanonicalizer(),
		inFlight: make(map[string]*inFlightCall),
	}
	if c.client == nil {
		c.client = NewClient(ClientOptions{})
	}
	if c.verifier == nil {
		c.verifier = NewVerifier()
	}
	if c.manifest == nil {
		c.manifest = NewManifestStore(cfg.DownloadBase)
	}
	if c.notifier == nil {
		c.notifier = NewNotifier()
	}
	if c.failures == nil {
		c.failures = NewFailureManager()
	}
	if c.layout == nil {
		c.layout = NewDirectoryManager(cfg.CacheRoot)
	}
	return c
}

// Notifier exposes the coordinator's event bus for external subscribers.
func (c *Coordinator) Notifier() *Notifier { return c.notifier }

// Failures exposes the coordinator's network-failure manager, mainly so a
// CLI/TUI can surface pending_backoff.
func (c *Coordinator) Failures() *FailureManager { return c.failures }

// Layout exposes the coordinator's directory manager, so callers can
// resolve snapshot paths (e.g. for a repair pass) without recomputing
// CacheRoot defaults themselves.
func (c *Coordinator) Layout() *DirectoryManager { return c.layout }

// Manifest exposes the coordinator's manifest store.
func (c *Coordinator) Manifest() *ManifestStore { return c.manifest }

// DownloadModel runs the full acquisition algorithm for hubID: admission
// check, metadata resolution, filtering, per-file download with validation,
// move into modelDir, canonicalization, and HF layout materialization.
// progressCb, if non-nil, receives every emitted event in addition to
// whatever is published on the Notifier.
func (c *Coordinator) DownloadModel(ctx context.Context, hubID, modelDir, tempDir string, progressCb func(ProgressEvent)) (string, error) {
	id := NormalizeHubID(hubID)
	if id == "" {
		return "", newError(KindInvalidInput, "invalid hub_id")
	}

	c.mu.Lock()
	if call, busy := c.inFlight[id]; busy {
		c.mu.Unlock()
		call.wg.Wait()
		return call.result, call.err
	}
	call := &inFlightCall{}
	call.wg.Add(1)
	c.inFlight[id] = call
	c.mu.Unlock()

	result, err := c.runDownload(ctx, id, modelDir, tempDir, progressCb)

	call.result, call.err = result, err
	call.wg.Done()

	c.mu.Lock()
	delete(c.inFlight, id)
	c.mu.Unlock()

	return result, err
}

func (c *Coordinator) emit(hubID string, ev ProgressEvent, cb func(ProgressEvent)) {
	c.notifier.PublishDownloadProgress(hubID, ev.Name, ev.Payload)
	if cb != nil {
		cb(ev)
	}
}

func (c *Coordinator) runDownload(ctx context.Context, id, modelDir, tempDir string, progressCb func(ProgressEvent)) (string, error) {
	// 1. Admission.
	if !c.failures.IsNetworkReady(id, "download_model") {
		secs, _ := c.failures.PendingBackoff(id)
		return "", &Error{Kind: KindNetworkUnavailable, Message: "repository is in backoff", RetryInSeconds: float64(secs)}
	}

	// 2. Metadata.
	entries, ok := c.manifest.LoadCachedMetadata(id)
	if !ok {
		fetched, err := c.client.ListFilesDetailed(ctx, id)
		if err != nil {
			var he *Error
			if errors.As(err, &he) && he.Kind == KindNotFound {
				c.failures.RecordSuccess(id)
				return "", err
			}
			c.failures.RecordFailure(id, "list_files_detailed", err)
			return "", err
		}
		entries = fetched
		if err := c.manifest.CacheMetadata(id, entries); err != nil {
			return "", err
		}
	}

	// 3. Filter.
	filtered := filterManifest(entries)
	if len(filtered) == 0 {
		return "", newError(KindInvalidInput, "no files after filter")
	}

	// 4. Sizing.
	var knownTotal int64
	allSized := true
	for _, e := range filtered {
		if e.Size == nil {
			allSized = false
			continue
		}
		knownTotal += *e.Size
	}
	var expectedTotal *int64
	if allSized {
		t := knownTotal
		expectedTotal = &t
	}

	// 5. Announce.
	c.emit(id, ProgressEvent{HubID: id, Name: "start", Payload: downloadStartPayload(len(filtered), knownTotal, expectedTotal)}, progressCb)

	expectations := c.manifest.CachedIntegrityExpectations(id)
	completedFiles := 0
	var bytesSoFar int64

	// 6. Per-file loop, strictly sequential.
	for _, entry := range filtered {
		if err := ctx.Err(); err != nil {
			return "", wrapError(KindCancelled, "download cancelled", err)
		}

		dest := filepath.Join(tempDir, filepath.FromSlash(entry.FileName))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return "", wrapError(KindIoError, "create temp parent directory", err)
		}

		fileTotal := int64(0)
		if entry.Size != nil {
			fileTotal = *entry.Size
		}
		fileBytesSoFar := bytesSoFar
		totalFiles := len(filtered)
		fileIndex := completedFiles

		cb := func(fraction float64, downloaded, total int64) {
			var overall float64
			if expectedTotal != nil && *expectedTotal > 0 {
				overall = float64(fileBytesSoFar+downloaded) / float64(*expectedTotal)
			} else {
				overall = (float64(fileIndex) + fraction) / float64(totalFiles)
			}
			c.emit(id, ProgressEvent{HubID: id, Name: "file_progress", Payload: map[string]any{
				"file_name":        entry.FileName,
				"fraction":         overall,
				"bytes_downloaded": downloaded,
				"total_bytes":      total,
			}}, progressCb)
		}

		if err := c.client.DownloadFile(ctx, id, entry.FileName, dest, cb); err != nil {
			var he *Error
			if errors.As(err, &he) && he.Kind == KindCancelled {
				os.Remove(dest)
				return "", err
			}
			c.failures.RecordFailure(id, "download_file", err)
			return "", err
		}

		if exp, ok := expectations[entry.FileName]; ok {
			result, verr := c.verifier.Validate(dest, entry.FileName, exp)
			if verr != nil {
				bytesSoFar += fileTotal
			} else if !result.Passed {
				logValidationFailure(id, entry.FileName, result.FailureReason)
				if c.cfg.FailFast {
					return "", &Error{Kind: KindIntegrityFailure, File: entry.FileName, Reason: result.FailureReason}
				}
				bytesSoFar += fileTotal
			} else {
				bytesSoFar += result.FileSize
			}
		} else {
			bytesSoFar += fileTotal
		}

		completedFiles++
		c.emit(id, ProgressEvent{HubID: id, Name: "file_complete", Payload: downloadFileCompletePayload(entry.FileName, completedFiles, totalFiles)}, progressCb)
	}

	c.failures.RecordSuccess(id)

	// 7. Existence check.
	for _, entry := range filtered {
		path := filepath.Join(tempDir, filepath.FromSlash(entry.FileName))
		if _, err := os.Stat(path); err != nil {
			return "", newError(KindIoError, "DownloadFailed: missing expected file "+entry.FileName)
		}
	}

	// 8. Move.
	if err := os.RemoveAll(modelDir); err != nil {
		return "", wrapError(KindIoError, "clear model directory", err)
	}
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return "", wrapError(KindIoError, "create model directory", err)
	}
	for _, entry := range filtered {
		src := filepath.Join(tempDir, filepath.FromSlash(entry.FileName))
		dst := filepath.Join(modelDir, filepath.FromSlash(entry.FileName))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return "", wrapError(KindIoError, "create model subdirectory", err)
		}
		if err := copyFile(src, dst); err != nil {
			return "", wrapError(KindIoError, "move file into model directory", err)
		}
	}

	// 9. Canonicalize.
	if err := c.canon.Canonicalize(modelDir); err != nil {
		return "", err
	}

	// 10. Materialize.
	if err := c.layout.CopyToHFDirectory(modelDir, id); err != nil {
		return "", err
	}

	// 11. Final progress.
	c.emit(id, ProgressEvent{HubID: id, Name: "complete", Payload: downloadCompletePayload(completedFiles, len(filtered), bytesSoFar)}, progressCb)

	return modelDir, nil
}

func logValidationFailure(hubID, fileName, reason string) {
	// Logged, non-fatal: the verification service is the authoritative gate.
	log.Printf("hub: %s: validation failed for %s: %s", hubID, fileName, reason)
}

// FilterManifest applies the same filter rules DownloadModel uses to
// exclude non-model files, exported so callers (e.g. a dry-run "plan"
// command) can preview the effective download set without running a
// download.
func FilterManifest(entries []ManifestEntry) []ManifestEntry {
	return filterManifest(entries)
}

// filterManifest applies the manifest filter rules (case-insensitively on
// the lowercase relative path) to produce the effective download set.
func filterManifest(entries []ManifestEntry) []ManifestEntry {
	var out []ManifestEntry
	for _, e := range entries {
		if acceptFile(e.FileName) {
			out = append(out, e)
		}
	}
	return out
}

func acceptFile(name string) bool {
	lower := strings.ToLower(filepath.ToSlash(name))
	base := lower
	if i := strings.LastIndex(lower, "/"); i >= 0 {
		base = lower[i+1:]
	}

	for _, seg := range strings.Split(lower, "/") {
		if strings.HasPrefix(seg, ".") {
			return false
		}
	}
	if strings.HasSuffix(lower, ".tmp") || strings.HasSuffix(lower, ".temp") {
		return false
	}
	if strings.Contains(lower, ".git/") || strings.HasPrefix(lower, ".git") {
		return false
	}
	if strings.HasPrefix(base, "readme") {
		return false
	}
	if strings.HasSuffix(base, ".md") && !strings.Contains(base, "model") {
		return false
	}
	if strings.Contains(base, "sample") || strings.Contains(base, "example") {
		return false
	}
	if strings.HasSuffix(base, ".png") || strings.HasSuffix(base, ".jpg") || strings.HasSuffix(base, ".jpeg") {
		return false
	}
	if base == "license" || base == "license.txt" {
		return false
	}

	for _, ext := range []string{".json", ".safetensors", ".bin", ".gguf", ".mlx", ".npz", ".model", ".vocab", ".txt", ".py"} {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	if strings.Contains(base, "config") || strings.Contains(base, "tokenizer") || strings.Contains(base, "model") {
		return true
	}
	return false
}

// ListDownloadedModels reports every repo-level directory under modelsRoot
// whose subtree contains at least one weight file and at least one
// tokenizer file, deduplicated by hub_id and sorted lexically.
//
// Repo level is identified structurally rather than by the shallowest
// qualifying ancestor: a top-level "models--owner--repo" entry (C6's
// canonical layout) decodes directly to its hub_id, and any other
// top-level entry is treated as a legacy mirror's owner directory whose
// immediate subdirectories are repos.
func ListDownloadedModels(modelsRoot string) ([]DownloadedModel, error) {
	seen := make(map[string]string)

	topEntries, err := os.ReadDir(modelsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, wrapError(KindIoError, "walk models root", err)
	}

	var legacyOwners []os.DirEntry
	for _, e := range topEntries {
		if !e.IsDir() {
			continue
		}
		if id, ok := decodeCacheDirName(e.Name()); ok {
			dir := filepath.Join(modelsRoot, e.Name())
			hasWeight, hasTokenizer := subtreeHasFileClasses(dir)
			if hasWeight && hasTokenizer {
				if _, ok := seen[id]; !ok {
					seen[id] = dir
				}
			}
			continue
		}
		legacyOwners = append(legacyOwners, e)
	}

	for _, ownerEntry := range legacyOwners {
		ownerDir := filepath.Join(modelsRoot, ownerEntry.Name())
		repoEntries, err := os.ReadDir(ownerDir)
		if err != nil {
			continue
		}
		for _, r := range repoEntries {
			if !r.IsDir() {
				continue
			}
			id := ownerEntry.Name() + "/" + r.Name()
			if _, ok := seen[id]; ok {
				continue
			}
			repoDir := filepath.Join(ownerDir, r.Name())
			hasWeight, hasTokenizer := subtreeHasFileClasses(repoDir)
			if hasWeight && hasTokenizer {
				seen[id] = repoDir
			}
		}
	}

	out := make([]DownloadedModel, 0, len(seen))
	for id, path := range seen {
		out = append(out, DownloadedModel{HubID: id, Path: path})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HubID < out[j].HubID })
	return out, nil
}

// subtreeHasFileClasses reports whether dir's subtree contains a weight
// file and a tokenizer file anywhere within it.
func subtreeHasFileClasses(dir string) (hasWeight, hasTokenizer bool) {
	_ = filepathWalk(dir, func(path string, isDir bool) {
		if isDir {
			return
		}
		lower := strings.ToLower(filepath.Base(path))
		for _, ext := range weightExtensions {
			if strings.HasSuffix(lower, ext) {
				hasWeight = true
			}
		}
		for _, name := range tokenizerNames {
			if lower == name {
				hasTokenizer = true
			}
		}
	})
	return
}

// filepathWalk is a minimal recursive directory walker used for the
// discovery classification scan; it ignores errors from unreadable
// subdirectories rather than aborting the whole walk.
func filepathWalk(root string, visit func(path string, isDir bool)) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		path := filepath.Join(root, e.Name())
		visit(path, e.IsDir())
		if e.IsDir() {
			filepathWalk(path, visit)
		}
	}
	return nil
}

// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const refMain = "main"

// DirectoryManager owns the on-disk cache layout (C6):
//
//	cache_root/models--owner--repo/snapshots/<rev>/<file...>
//	cache_root/models--owner--repo/refs/main               (names <rev>)
//	cache_root/owner/repo/<file...>                        (legacy mirror)
type DirectoryManager struct {
	cacheRoot string
}

// NewDirectoryManager returns a manager rooted at cacheRoot.
func NewDirectoryManager(cacheRoot string) *DirectoryManager {
	return &DirectoryManager{cacheRoot: cacheRoot}
}

func cacheDirName(h string) string {
	owner, repo := SplitHubID(h)
	return "models--" + owner + "--" + repo
}

// ModelRoot returns cache_root/models--owner--repo for h.
func (d *DirectoryManager) ModelRoot(h string) string {
	return filepath.Join(d.cacheRoot, cacheDirName(h))
}

// SnapshotsDir returns model_root(h)/snapshots.
func (d *DirectoryManager) SnapshotsDir(h string) string {
	return filepath.Join(d.ModelRoot(h), "snapshots")
}

// RefsDir returns model_root(h)/refs.
func (d *DirectoryManager) RefsDir(h string) string {
	return filepath.Join(d.ModelRoot(h), "refs")
}

// LegacyDir returns cache_root/owner/repo for h.
func (d *DirectoryManager) LegacyDir(h string) string {
	owner, repo := SplitHubID(h)
	return filepath.Join(d.cacheRoot, owner, repo)
}

// SnapshotDirectory resolves the snapshot directory for h. When
// resolveExisting is false it always returns snapshots_dir(h)/main
// (the canonical write target for a fresh download). When true it
// resolves in priority order:
//  1. refs/main names an existing subdirectory of snapshots/ -> return it.
//  2. snapshots/main exists -> return it.
//  3. the most recently created subdirectory of snapshots/ -> update
//     refs/main to name it, return it.
//  4. snapshots/main (which may not yet exist).
func (d *DirectoryManager) SnapshotDirectory(h string, resolveExisting bool) (string, error) {
	snapshots := d.SnapshotsDir(h)
	if !resolveExisting {
		return filepath.Join(snapshots, refMain), nil
	}

	if ref, ok := d.readRef(h); ok {
		candidate := filepath.Join(snapshots, ref)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
	}

	defaultCandidate := filepath.Join(snapshots, refMain)
	if info, err := os.Stat(defaultCandidate); err == nil && info.IsDir() {
		return defaultCandidate, nil
	}

	entries, err := os.ReadDir(snapshots)
	if err == nil {
		var newest string
		var newestTime int64 = -1
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			if mt := info.ModTime().UnixNano(); mt > newestTime {
				newestTime = mt
				newest = e.Name()
			}
		}
		if newest != "" {
			if err := d.writeRef(h, newest); err != nil {
				return "", err
			}
			return filepath.Join(snapshots, newest), nil
		}
	}

	return defaultCandidate, nil
}

// NormalizeSnapshotReferences reconciles refs/main after external edits: if
// the ref names a directory that no longer exists under snapshots/, it is
// rewritten to whatever SnapshotDirectory(h, true) resolves to.
func (d *DirectoryManager) NormalizeSnapshotReferences(h string) error {
	resolved, err := d.SnapshotDirectory(h, true)
	if err != nil {
		return err
	}
	return d.writeRef(h, filepath.Base(resolved))
}

func (d *DirectoryManager) readRef(h string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(d.RefsDir(h), refMain))
	if err != nil {
		return "", false
	}
	ref := strings.TrimSpace(string(data))
	if ref == "" {
		return "", false
	}
	return ref, true
}

func (d *DirectoryManager) writeRef(h, rev string) error {
	refsDir := d.RefsDir(h)
	if err := os.MkdirAll(refsDir, 0o755); err != nil {
		return wrapError(KindIoError, "create refs directory", err)
	}
	if err := os.WriteFile(filepath.Join(refsDir, refMain), []byte(rev), 0o644); err != nil {
		return wrapError(KindIoError, "write refs/main", err)
	}
	return nil
}

// CopyToHFDirectory materializes sourceDir into the canonical cache layout
// for h. Order: (1) flatten sourceDir (C7); (2) remove any existing
// model_root(h); (3) create snapshots/main; (4) copy every top-level entry
// of sourceDir into it; (5) point refs/main at "main"; (6) recreate
// legacy_dir(h) as an additional copy — failures at step 6 are logged, not
// fatal.
func (d *DirectoryManager) CopyToHFDirectory(sourceDir, h string) error {
	canon := NewCanonicalizer()
	if err := canon.Canonicalize(sourceDir); err != nil {
		return err
	}

	modelRoot := d.ModelRoot(h)
	if err := os.RemoveAll(modelRoot); err != nil {
		return wrapError(KindIoError, "remove stale model root", err)
	}

	snapshot := filepath.Join(d.SnapshotsDir(h), refMain)
	if err := os.MkdirAll(snapshot, 0o755); err != nil {
		return wrapError(KindIoError, "create snapshot directory", err)
	}

	if err := copyTreeContents(sourceDir, snapshot); err != nil {
		return wrapError(KindIoError, "copy into snapshot", err)
	}

	if err := d.writeRef(h, refMain); err != nil {
		return err
	}

	legacy := d.LegacyDir(h)
	if err := os.RemoveAll(legacy); err != nil {
		log.Printf("hub: %s: legacy mirror cleanup failed: %v", h, err)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(legacy), 0o755); err != nil {
		log.Printf("hub: %s: legacy mirror parent create failed: %v", h, err)
		return nil
	}
	if err := copyTree(snapshot, legacy); err != nil {
		log.Printf("hub: %s: legacy mirror copy failed: %v", h, err)
	}
	return nil
}

// ExtractModelID maps a cache-relative path to its hub_id: a path starting
// with "models--owner--repo/..." yields "owner/repo"; otherwise path is
// returned unchanged.
func ExtractModelID(path string) string {
	clean := filepath.ToSlash(strings.TrimPrefix(path, "/"))
	first := clean
	if i := strings.Index(clean, "/"); i >= 0 {
		first = clean[:i]
	}
	if decoded, ok := decodeCacheDirName(first); ok {
		return decoded
	}
	return path
}

// copyTreeContents copies every top-level entry of src into dst (dst must
// already exist), recursing into subdirectories.
func copyTreeContents(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		s := filepath.Join(src, e.Name())
		t := filepath.Join(dst, e.Name())
		if e.IsDir() {
			if err := os.MkdirAll(t, 0o755); err != nil {
				return err
			}
			if err := copyTreeContents(s, t); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(s, t); err != nil {
			return err
		}
	}
	return nil
}

// copyTree copies src (a directory) to dst, creating dst.
func copyTree(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	return copyTreeContents(src, dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"os"
	"path/filepath"
)

// alternateConfigNames are tried, in order, when config.json is missing.
var alternateConfigNames = []string{"model_config.json", "generation_config.json", "mlx_config.json"}

// Canonicalizer performs the two idempotent on-disk fixups of C7.
type Canonicalizer struct{}

// NewCanonicalizer returns a Canonicalizer. It holds no state.
func NewCanonicalizer() *Canonicalizer { return &Canonicalizer{} }

// Canonicalize runs both fixups on root, breadth-first, until a pass makes
// no further change. Safe to call repeatedly; a second call is a no-op.
func (c *Canonicalizer) Canonicalize(root string) error {
	for {
		changed, err := c.flattenPass(root)
		if err != nil {
			return err
		}
		if !changed {
			break
		}
	}
	return c.aliasConfig(root)
}

// flattenPass walks root breadth-first and replaces any directory D whose
// sole child is a directory named exactly D with that child, via a
// three-step move-through-temp so the operation is crash-safe and never
// clobbers sibling entries. Returns whether any flatten occurred.
func (c *Canonicalizer) flattenPass(root string) (bool, error) {
	queue := []string{root}
	changed := false

	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return changed, wrapError(KindIoError, "read directory during flatten", err)
		}

		if len(entries) == 1 && entries[0].IsDir() && entries[0].Name() == filepath.Base(dir) {
			nested := filepath.Join(dir, entries[0].Name())
			if err := flattenOnce(dir, nested); err != nil {
				return changed, err
			}
			changed = true
			queue = append(queue, dir)
			continue
		}

		for _, e := range entries {
			if e.IsDir() {
				queue = append(queue, filepath.Join(dir, e.Name()))
			}
		}
	}

	return changed, nil
}

// flattenOnce replaces dir's contents with nested's contents: nested is
// moved to a sibling temp path, dir is removed, and the temp path is renamed
// to dir. This sequence is crash-safe: if interrupted after the move but
// before the final rename, the temp path still holds the data and dir is
// simply gone (not silently merged with a sibling).
func flattenOnce(dir, nested string) error {
	tmp := dir + ".flatten-tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return wrapError(KindIoError, "clear flatten temp path", err)
	}
	if err := os.Rename(nested, tmp); err != nil {
		return wrapError(KindIoError, "move nested directory aside", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return wrapError(KindIoError, "remove flattened parent", err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		return wrapError(KindIoError, "rename flattened directory into place", err)
	}
	return nil
}

// aliasConfig walks root breadth-first and, in every directory missing a
// config.json, copies the first existing alternate config file to
// config.json without deleting the original. Idempotent: a directory that
// already has config.json is left untouched.
func (c *Canonicalizer) aliasConfig(root string) error {
	queue := []string{root}

	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return wrapError(KindIoError, "read directory during config alias", err)
		}

		if err := aliasConfigIn(dir); err != nil {
			return err
		}

		for _, e := range entries {
			if e.IsDir() {
				queue = append(queue, filepath.Join(dir, e.Name()))
			}
		}
	}

	return nil
}

// aliasConfigIn copies the first existing alternate config file in dir to
// dir/config.json if dir/config.json is missing.
func aliasConfigIn(dir string) error {
	target := filepath.Join(dir, "config.json")
	if _, err := os.Stat(target); err == nil {
		return nil
	}

	for _, name := range alternateConfigNames {
		src := filepath.Join(dir, name)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := copyFile(src, target); err != nil {
			return wrapError(KindIoError, "alias config file", err)
		}
		return nil
	}
	return nil
}

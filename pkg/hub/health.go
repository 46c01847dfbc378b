// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"os"
	"path/filepath"
	"strings"
)

// HealthChecker implements post-install verification and repair (C9). It
// never redownloads itself — CorruptFiles are reported as NeedsRedownload
// and it is the coordinator's job to re-run DownloadModel.
type HealthChecker struct {
	verifier *Verifier
	notifier *Notifier
}

// NewHealthChecker returns a HealthChecker. notifier may be nil, in which
// case repair_start/repair_complete events are not published.
func NewHealthChecker(verifier *Verifier, notifier *Notifier) *HealthChecker {
	if verifier == nil {
		verifier = NewVerifier()
	}
	return &HealthChecker{verifier: verifier, notifier: notifier}
}

// IsDirectoryComplete reports whether dir contains the minimum file set a
// model directory needs: one config variant, one tokenizer variant, and at
// least one weight file.
func (h *HealthChecker) IsDirectoryComplete(dir string) bool {
	names := fileNamesIn(dir)
	return hasAny(names, configNames) && hasAny(names, tokenizerNames) && hasWeightFile(names)
}

// VerifyModel is an informational counterpart to IsDirectoryComplete: same
// completeness criteria, intended for status reporting rather than gating.
func (h *HealthChecker) VerifyModel(dir string) bool {
	return h.IsDirectoryComplete(dir)
}

// CheckAndRepair walks sourceDir (the coordinator's pristine temp/model
// copy) and compares it against targetDir. Missing files are repaired by
// copying from sourceDir. Corrupt files (present but failing integrity
// validation) cannot be repaired locally and force NeedsRedownload.
// expectations maps a relative file name to its IntegrityExpectation; a file
// absent from expectations is only checked for existence.
func (h *HealthChecker) CheckAndRepair(hubID, sourceDir, targetDir string, expectations map[string]IntegrityExpectation) (RepairReport, error) {
	var missing, corrupt, repaired []string

	err := walkRelativeFiles(sourceDir, func(rel string) error {
		targetPath := filepath.Join(targetDir, rel)

		if _, err := os.Stat(targetPath); err != nil {
			missing = append(missing, rel)
			return nil
		}

		exp, hasExpectation := expectations[rel]
		if !hasExpectation {
			return nil
		}

		result, verr := h.verifier.Validate(targetPath, rel, exp)
		if verr != nil {
			return verr
		}
		if !result.Passed {
			corrupt = append(corrupt, rel)
		}
		return nil
	})
	if err != nil {
		return RepairReport{}, err
	}

	if len(corrupt) > 0 {
		report := RepairReport{Outcome: OutcomeNeedsRedownload, MissingFiles: missing, CorruptFiles: corrupt}
		h.publishRepair(hubID, report)
		return report, nil
	}

	if len(missing) == 0 {
		report := RepairReport{Outcome: OutcomeHealthy}
		return report, nil
	}

	h.publishStart(hubID, len(missing))
	for _, rel := range missing {
		src := filepath.Join(sourceDir, rel)
		dst := filepath.Join(targetDir, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			report := RepairReport{Outcome: OutcomeNeedsRedownload, MissingFiles: missing, RepairedFile: repaired}
			h.publishRepair(hubID, report)
			return report, wrapError(KindIoError, "create repair target directory", err)
		}
		if err := copyFile(src, dst); err != nil {
			report := RepairReport{Outcome: OutcomeNeedsRedownload, MissingFiles: missing, RepairedFile: repaired}
			h.publishRepair(hubID, report)
			return report, wrapError(KindIoError, "repair missing file", err)
		}
		repaired = append(repaired, rel)
	}

	report := RepairReport{Outcome: OutcomeRepaired, MissingFiles: missing, RepairedFile: repaired}
	h.publishRepair(hubID, report)
	return report, nil
}

func (h *HealthChecker) publishStart(hubID string, missingCount int) {
	if h.notifier == nil {
		return
	}
	h.notifier.PublishVerificationProgress(hubID, "repair_start", repairPayload(map[string]int{"missing_files": missingCount}))
}

func (h *HealthChecker) publishRepair(hubID string, report RepairReport) {
	if h.notifier == nil {
		return
	}
	h.notifier.PublishVerificationProgress(hubID, "repair_complete", repairPayload(map[string]int{
		"missing_files": len(report.MissingFiles),
		"corrupt_files": len(report.CorruptFiles),
		"repaired":      len(report.RepairedFile),
	}))
}

// fileNamesIn returns the lowercase base names of every regular file
// directly in or beneath dir.
func fileNamesIn(dir string) map[string]struct{} {
	out := make(map[string]struct{})
	filepathWalk(dir, func(path string, isDir bool) {
		if !isDir {
			out[strings.ToLower(filepath.Base(path))] = struct{}{}
		}
	})
	return out
}

func hasAny(names map[string]struct{}, candidates []string) bool {
	for _, c := range candidates {
		if _, ok := names[strings.ToLower(c)]; ok {
			return true
		}
	}
	return false
}

func hasWeightFile(names map[string]struct{}) bool {
	for name := range names {
		for _, ext := range weightExtensions {
			if strings.HasSuffix(name, ext) {
				return true
			}
		}
	}
	return false
}

// walkRelativeFiles visits every regular file under root, invoking fn with
// its path relative to root (POSIX-style separators).
func walkRelativeFiles(root string, fn func(rel string) error) error {
	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return wrapError(KindIoError, "read directory during repair scan", err)
		}
		for _, e := range entries {
			path := filepath.Join(dir, e.Name())
			if e.IsDir() {
				if err := walk(path); err != nil {
					return err
				}
				continue
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return wrapError(KindIoError, "compute relative path", err)
			}
			if err := fn(filepath.ToSlash(rel)); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root)
}

// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Verifier performs the two orthogonal integrity checks (C2): a size check
// with a tolerance band, and a SHA-256 hash check restricted to files that
// "qualify" (large binaries and a fixed set of well-known weight names).
type Verifier struct{}

// NewVerifier returns a Verifier. It holds no state.
func NewVerifier() *Verifier { return &Verifier{} }

const hashQualifyMinSize = 50 * 1024 * 1024 // 50 MiB

var hashQualifyExtensions = []string{".safetensors", ".gguf", ".mlx"}

// qualifiesForHash reports whether a file should be hash-checked when an
// expected SHA-256 is available: anything ending in .safetensors, .gguf,
// .mlx, the literal pytorch_model.bin, or any file >= 50 MiB.
func qualifiesForHash(fileName string, size int64) bool {
	lower := strings.ToLower(fileName)
	for _, ext := range hashQualifyExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	if strings.HasSuffix(lower, "pytorch_model.bin") {
		return true
	}
	return size >= hashQualifyMinSize
}

// sizeTolerance computes max(1% of expected, 512 KiB) — small enough to
// catch truncated multi-GB tensors, loose enough that hub backends
// reporting packed sizes for tiny JSON files don't false-positive.
func sizeTolerance(expected int64) int64 {
	const floor = 512 * 1024
	pct := int64(float64(expected) * 0.01)
	if pct > floor {
		return pct
	}
	return floor
}

// Validate checks path against expectation. A non-existent file is a
// failure with reason "file does not exist". Missing expectation fields are
// not failures — only a mismatch on a field that IS specified fails the
// check.
func (v *Verifier) Validate(path string, fileName string, expectation IntegrityExpectation) (ValidationResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ValidationResult{Passed: false, FailureReason: "file does not exist"}, nil
		}
		return ValidationResult{}, wrapError(KindIoError, "stat file", err)
	}
	size := info.Size()

	if expectation.ExpectedSize > 0 {
		delta := size - expectation.ExpectedSize
		if delta < 0 {
			delta = -delta
		}
		if delta > sizeTolerance(expectation.ExpectedSize) {
			return ValidationResult{
				Passed:        false,
				FileSize:      size,
				FailureReason: fmt.Sprintf("size mismatch: expected %d, got %d (tolerance %d)", expectation.ExpectedSize, size, sizeTolerance(expectation.ExpectedSize)),
			}, nil
		}
	}

	if expectation.ExpectedSHA256 != "" && qualifiesForHash(fileName, size) {
		sum, err := hashFile(path)
		if err != nil {
			return ValidationResult{}, wrapError(KindIoError, "hash file", err)
		}
		if !strings.EqualFold(sum, expectation.ExpectedSHA256) {
			return ValidationResult{
				Passed:        false,
				FileSize:      size,
				FailureReason: fmt.Sprintf("Hash mismatch: expected %s, got %s", expectation.ExpectedSHA256, sum),
			}, nil
		}
	}

	return ValidationResult{Passed: true, FileSize: size}, nil
}

// hashFile computes the SHA-256 of path, streaming through a 1 MiB buffer.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, 1024*1024)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// expectationForEntry projects a ManifestEntry into an IntegrityExpectation.
func expectationForEntry(e ManifestEntry) IntegrityExpectation {
	exp := IntegrityExpectation{ExpectedSHA256: e.SHA256}
	if e.Size != nil {
		exp.ExpectedSize = *e.Size
	}
	return exp
}

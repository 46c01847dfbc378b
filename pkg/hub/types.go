// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hub

import "time"

// ManifestEntry describes a single file in a repository's manifest.
// Size and SHA256 are advisory: either or both may be absent.
type ManifestEntry struct {
	FileName string `json:"file_name"`
	Size     *int64 `json:"size,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
}

// IntegrityExpectation is the projection of a ManifestEntry used during
// validation. Both fields are advisory; a zero-value expectation still
// results in a "download-only, no integrity check" outcome.
type IntegrityExpectation struct {
	ExpectedSize   int64
	ExpectedSHA256 string
}

// ValidationResult is the outcome of checking a downloaded file against an
// IntegrityExpectation.
type ValidationResult struct {
	Passed        bool
	FileSize      int64
	FailureReason string
}

// FailureState is the per-hub_id bookkeeping kept by the network-failure
// manager. It is never persisted across process restarts.
type FailureState struct {
	ConsecutiveFailures int
	NextRetryAt         time.Time
	LastError           string
	LastNoticeAt        time.Time
}

// VerificationOutcome is the terminal result of a health check / repair
// pass, per the state machine in spec §4.9:
//
//	Unknown -> {Healthy, MissingFiles, CorruptFiles, NeedsRedownload}
//	MissingFiles -> {Repaired, NeedsRedownload}
//	CorruptFiles -> NeedsRedownload
type VerificationOutcome string

const (
	OutcomeHealthy         VerificationOutcome = "healthy"
	OutcomeMissingFiles    VerificationOutcome = "missing_files"
	OutcomeCorruptFiles    VerificationOutcome = "corrupt_files"
	OutcomeRepaired        VerificationOutcome = "repaired"
	OutcomeNeedsRedownload VerificationOutcome = "needs_redownload"
)

// RepairReport details what check_and_repair found and fixed.
type RepairReport struct {
	Outcome      VerificationOutcome
	MissingFiles []string
	CorruptFiles []string
	RepairedFile []string
}

// DownloadedModel is one entry returned by ListDownloadedModels.
type DownloadedModel struct {
	HubID string
	Path  string
}

// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind tags the taxonomy of errors the core surfaces to callers.
// Callers should inspect the kind, not the message.
type ErrorKind string

const (
	// KindInvalidInput covers an unnormalizable/empty hub_id or a manifest
	// filter that yields zero files.
	KindInvalidInput ErrorKind = "invalid_input"

	// KindNetworkUnavailable means the network-failure manager
	// short-circuited the request; see Error.RetryInSeconds.
	KindNetworkUnavailable ErrorKind = "network_unavailable"

	// KindTransient covers timeouts, 5xx, and mid-stream disconnects.
	// Eligible for backoff.
	KindTransient ErrorKind = "transient"

	// KindNotFound means the repo or file is absent. Not backoff-eligible.
	KindNotFound ErrorKind = "not_found"

	// KindPermissionDenied covers 401/403. Not backoff-eligible.
	KindPermissionDenied ErrorKind = "permission_denied"

	// KindIntegrityFailure means a downloaded file failed its size or hash
	// check.
	KindIntegrityFailure ErrorKind = "integrity_failure"

	// KindIoError covers local filesystem problems (ENOSPC, EACCES, failed
	// moves).
	KindIoError ErrorKind = "io_error"

	// KindCancelled means the caller's context was cancelled.
	KindCancelled ErrorKind = "cancelled"
)

// Error is the single tagged-union error type returned by this package.
// All errors carry a human-readable message; some carry extra context
// fields relevant to their Kind.
type Error struct {
	Kind ErrorKind

	// Message is always human-readable and safe to print.
	Message string

	// RetryInSeconds is set for KindNetworkUnavailable.
	RetryInSeconds float64

	// File and Reason are set for KindIntegrityFailure.
	File   string
	Reason string

	// Err wraps the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNetworkUnavailable:
		return fmt.Sprintf("network unavailable: retry in %.0fs: %s", e.RetryInSeconds, e.Message)
	case KindIntegrityFailure:
		return fmt.Sprintf("integrity failure for %s: %s", e.File, e.Reason)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, ErrNotFound) style comparisons against the
// sentinel kind markers below.
func (e *Error) Is(target error) bool {
	k, ok := target.(*Error)
	if !ok {
		return false
	}
	return k.Kind != "" && k.Kind == e.Kind
}

// Sentinel kind markers for use with errors.Is.
var (
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
	ErrNetworkUnavailable = &Error{Kind: KindNetworkUnavailable}
	ErrTransient          = &Error{Kind: KindTransient}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrPermissionDenied   = &Error{Kind: KindPermissionDenied}
	ErrIntegrityFailure   = &Error{Kind: KindIntegrityFailure}
	ErrIoError            = &Error{Kind: KindIoError}
	ErrCancelled          = &Error{Kind: KindCancelled}
)

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// isNetworkClass reports whether err looks like a network-layer failure:
// URL/DNS/socket errors, timeouts, or a message containing one of the
// recognized substrings. Used by the failure manager to decide whether a
// failure should count toward backoff.
func isNetworkClass(err error) bool {
	if err == nil {
		return false
	}
	var he *Error
	if errors.As(err, &he) {
		if he.Kind == KindTransient {
			return true
		}
		if he.Kind == KindNotFound || he.Kind == KindPermissionDenied || he.Kind == KindInvalidInput ||
			he.Kind == KindIntegrityFailure || he.Kind == KindIoError || he.Kind == KindCancelled {
			return false
		}
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	type timeout interface{ Timeout() bool }
	if t, ok := err.(timeout); ok && t.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, substr := range []string{"network", "internet", "offline", "timed out", "connection"} {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"log"
	"sync"
	"time"
)

const (
	backoffBase       = 20 * time.Second
	backoffCap        = 15 * time.Minute
	backoffMaxFailure = 6
	noticeThrottle    = 15 * time.Second
)

// FailureManager tracks per-hub_id network failure state and enforces
// exponential backoff before the coordinator retries a repository that has
// recently failed for network reasons (C5).
type FailureManager struct {
	mu       sync.Mutex
	states   map[string]*FailureState
	deferred map[string]*time.Timer
	now      func() time.Time
}

// NewFailureManager returns an empty FailureManager.
func NewFailureManager() *FailureManager {
	return &FailureManager{
		states:   make(map[string]*FailureState),
		deferred: make(map[string]*time.Timer),
		now:      time.Now,
	}
}

// RecordSuccess clears any failure state for h and cancels a pending
// deferred-repair task, if one was scheduled.
func (m *FailureManager) RecordSuccess(h string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, h)
	if t, ok := m.deferred[h]; ok {
		t.Stop()
		delete(m.deferred, h)
	}
}

// RecordFailure is a no-op unless err is network-class. Otherwise it
// increments the consecutive-failure count (capped at 6) and schedules the
// next retry at now + min(2^(n-1)*20s, 15m). context is attached to the
// stored LastError for diagnostics only.
func (m *FailureManager) RecordFailure(h, context string, err error) {
	if err == nil || !isNetworkClass(err) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[h]
	if !ok {
		st = &FailureState{}
		m.states[h] = st
	}
	if st.ConsecutiveFailures < backoffMaxFailure {
		st.ConsecutiveFailures++
	}

	delay := backoffBase * time.Duration(1<<uint(st.ConsecutiveFailures-1))
	if delay > backoffCap {
		delay = backoffCap
	}
	st.NextRetryAt = m.now().Add(delay)

	msg := err.Error()
	if context != "" {
		msg = context + ": " + msg
	}
	st.LastError = msg
}

// IsNetworkReady reports whether h may be attempted now: true if no state is
// recorded, or if the backoff window has elapsed (in which case the state is
// cleared). While still backing off, it logs an "active backoff" notice at
// most once per 15s per hub_id.
func (m *FailureManager) IsNetworkReady(h, context string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[h]
	if !ok {
		return true
	}

	now := m.now()
	if !now.Before(st.NextRetryAt) {
		delete(m.states, h)
		return true
	}

	if now.Sub(st.LastNoticeAt) >= noticeThrottle {
		st.LastNoticeAt = now
		remaining := st.NextRetryAt.Sub(now).Round(time.Second)
		if context != "" {
			log.Printf("hub: %s: %s backoff active, retry in %s", h, context, remaining)
		} else {
			log.Printf("hub: %s: backoff active, retry in %s", h, remaining)
		}
	}
	return false
}

// PendingBackoff returns the seconds remaining before h is eligible for
// retry, or (0, false) if no backoff is in effect.
func (m *FailureManager) PendingBackoff(h string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[h]
	if !ok {
		return 0, false
	}
	now := m.now()
	if !now.Before(st.NextRetryAt) {
		return 0, false
	}
	return int64(st.NextRetryAt.Sub(now).Round(time.Second).Seconds()), true
}

// ScheduleDeferredRepair installs at most one pending repair task per
// hub_id. When the task fires, if backoff is still in effect it logs and
// does nothing; otherwise it invokes action. A second call for the same
// hub_id before the first fires replaces the pending task.
func (m *FailureManager) ScheduleDeferredRepair(h string, action func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.deferred[h]; ok {
		t.Stop()
	}

	delay := backoffBase
	if st, ok := m.states[h]; ok {
		if remaining := st.NextRetryAt.Sub(m.now()); remaining > 0 {
			delay = remaining
		}
	}

	m.deferred[h] = time.AfterFunc(delay, func() {
		m.mu.Lock()
		delete(m.deferred, h)
		ready := m.isNetworkReadyLocked(h)
		m.mu.Unlock()

		if !ready {
			log.Printf("hub: %s: deferred repair skipped, backoff still active", h)
			return
		}
		action()
	})
}

func (m *FailureManager) isNetworkReadyLocked(h string) bool {
	st, ok := m.states[h]
	if !ok {
		return true
	}
	now := m.now()
	if !now.Before(st.NextRetryAt) {
		delete(m.states, h)
		return true
	}
	return false
}

// isNetworkClass is defined in errors.go: true for any URL/DNS/socket
// error, any timeout, or a message mentioning network, internet, offline,
// timed out, or connection. 404s, auth failures, integrity mismatches, and
// disk-full errors are deliberately excluded.

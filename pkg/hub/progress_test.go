// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"sync"
	"testing"
)

func TestNotifier_PublishDownloadProgress_FansOutToAllSubscribers(t *testing.T) {
	n := NewNotifier()
	var mu sync.Mutex
	var received []Event

	n.SubscribeDownloadProgress(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, ev)
	})
	n.SubscribeDownloadProgress(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, ev)
	})

	n.PublishDownloadProgress("owner/repo", "start", map[string]any{"total_files": 3})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("received %d events, want 2 (one per subscriber)", len(received))
	}
	for _, ev := range received {
		if ev.HubID != "owner/repo" || ev.Name != "start" {
			t.Errorf("event = %+v", ev)
		}
	}
}

func TestNotifier_Publish_IsolatesPanickingSubscriber(t *testing.T) {
	n := NewNotifier()
	called := false

	n.SubscribeDownloadProgress(func(ev Event) {
		panic("boom")
	})
	n.SubscribeDownloadProgress(func(ev Event) {
		called = true
	})

	n.PublishDownloadProgress("owner/repo", "start", nil)

	if !called {
		t.Error("second subscriber was not invoked after first subscriber panicked")
	}
}

func TestNotifier_VerificationProgress_SeparateStream(t *testing.T) {
	n := NewNotifier()
	var downloadEvents, verificationEvents int

	n.SubscribeDownloadProgress(func(ev Event) { downloadEvents++ })
	n.SubscribeVerificationProgress(func(ev Event) { verificationEvents++ })

	n.PublishDownloadProgress("owner/repo", "start", nil)
	n.PublishVerificationProgress("owner/repo", "repair_start", nil)

	if downloadEvents != 1 {
		t.Errorf("downloadEvents = %d, want 1", downloadEvents)
	}
	if verificationEvents != 1 {
		t.Errorf("verificationEvents = %d, want 1", verificationEvents)
	}
}

func TestDownloadStartPayload(t *testing.T) {
	total := int64(4096)
	p := downloadStartPayload(3, 1024, &total)
	if p["total_files"] != 3 || p["known_bytes"] != int64(1024) || p["expected_total_bytes"] != int64(4096) {
		t.Errorf("downloadStartPayload() = %+v", p)
	}

	p = downloadStartPayload(3, 1024, nil)
	if _, ok := p["expected_total_bytes"]; ok {
		t.Error("downloadStartPayload() set expected_total_bytes for a nil pointer")
	}
}

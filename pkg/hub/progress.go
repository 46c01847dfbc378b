// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hub

import "sync"

// Event is one item on a progress stream: a name plus a free-form payload.
// Payload values are typically int, int64, string, or float64.
type Event struct {
	HubID   string
	Name    string
	Payload map[string]any
}

// Subscriber receives Events. It must never block the publisher; slow
// subscribers should buffer or drop internally.
type Subscriber func(Event)

// Notifier publishes the download_progress and verification_progress event
// streams (C4). It is fire-and-forget: publishing never blocks on a
// subscriber, and a panicking subscriber cannot take down the coordinator.
type Notifier struct {
	mu               sync.RWMutex
	downloadSubs     []Subscriber
	verificationSubs []Subscriber
}

// NewNotifier returns an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// SubscribeDownloadProgress registers sub on the download_progress stream.
func (n *Notifier) SubscribeDownloadProgress(sub Subscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.downloadSubs = append(n.downloadSubs, sub)
}

// SubscribeVerificationProgress registers sub on the verification_progress
// stream.
func (n *Notifier) SubscribeVerificationProgress(sub Subscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verificationSubs = append(n.verificationSubs, sub)
}

// PublishDownloadProgress emits a download_progress event. The payload keys
// per event name (start, file_complete, complete) are the ones built by
// downloadStartPayload, downloadFileCompletePayload and
// downloadCompletePayload below.
func (n *Notifier) PublishDownloadProgress(hubID, name string, payload map[string]any) {
	n.publish(n.snapshotDownloadSubs(), Event{HubID: hubID, Name: name, Payload: payload})
}

// PublishVerificationProgress emits a verification_progress event
// (repair_start, repair_complete, with counts).
func (n *Notifier) PublishVerificationProgress(hubID, name string, payload map[string]any) {
	n.publish(n.snapshotVerificationSubs(), Event{HubID: hubID, Name: name, Payload: payload})
}

func (n *Notifier) snapshotDownloadSubs() []Subscriber {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Subscriber, len(n.downloadSubs))
	copy(out, n.downloadSubs)
	return out
}

func (n *Notifier) snapshotVerificationSubs() []Subscriber {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Subscriber, len(n.verificationSubs))
	copy(out, n.verificationSubs)
	return out
}

// publish fans out ev to every sub, isolating each call so one subscriber's
// panic cannot reach the publisher or its siblings.
func (n *Notifier) publish(subs []Subscriber, ev Event) {
	for _, sub := range subs {
		func(s Subscriber) {
			defer func() { recover() }()
			s(ev)
		}(sub)
	}
}

// downloadStartPayload builds the start event payload.
func downloadStartPayload(totalFiles int, knownBytes int64, expectedTotalBytes *int64) map[string]any {
	p := map[string]any{
		"total_files": totalFiles,
		"known_bytes": knownBytes,
	}
	if expectedTotalBytes != nil {
		p["expected_total_bytes"] = *expectedTotalBytes
	}
	return p
}

// downloadFileCompletePayload builds the file_complete event payload.
func downloadFileCompletePayload(fileName string, completedFiles, totalFiles int) map[string]any {
	return map[string]any{
		"file_name":       fileName,
		"completed_files": completedFiles,
		"total_files":     totalFiles,
	}
}

// downloadCompletePayload builds the complete event payload.
func downloadCompletePayload(completedFiles, totalFiles int, overallTotalBytes int64) map[string]any {
	return map[string]any{
		"completed_files":     completedFiles,
		"total_files":         totalFiles,
		"overall_total_bytes": overallTotalBytes,
	}
}

// repairPayload builds the repair_start / repair_complete event payload.
func repairPayload(counts map[string]int) map[string]any {
	p := make(map[string]any, len(counts))
	for k, v := range counts {
		p[k] = v
	}
	return p
}

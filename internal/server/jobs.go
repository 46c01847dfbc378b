// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"sync"
	"time"

	"github.com/arcadia-ai/modelhub/pkg/hub"
)

// JobStatus is the lifecycle state of a download job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job is a server-tracked download_model invocation.
type Job struct {
	ID        string      `json:"id"`
	HubID     string      `json:"hubId"`
	Status    JobStatus   `json:"status"`
	Progress  JobProgress `json:"progress"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	StartedAt *time.Time  `json:"startedAt,omitempty"`
	EndedAt   *time.Time  `json:"endedAt,omitempty"`

	cancel context.CancelFunc
}

// JobProgress mirrors the aggregate fields of the download_progress stream.
type JobProgress struct {
	TotalFiles      int   `json:"totalFiles"`
	CompletedFiles  int   `json:"completedFiles"`
	KnownBytes      int64 `json:"knownBytes"`
	DownloadedBytes int64 `json:"downloadedBytes"`
}

// DownloadRequest is the POST /api/download request body. The destination
// directories are server-controlled (ModelsDir), never client-supplied.
type DownloadRequest struct {
	HubID string `json:"hubId"`
}

// JobManager tracks in-flight and completed download jobs, running each
// through a Coordinator and fanning out progress to the WebSocket hub.
type JobManager struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	cfg   Config
	coord *hub.Coordinator
	wsHub *WSHub
}

// NewJobManager returns a JobManager backed by coord.
func NewJobManager(cfg Config, coord *hub.Coordinator, wsHub *WSHub) *JobManager {
	return &JobManager{
		jobs:  make(map[string]*Job),
		cfg:   cfg,
		coord: coord,
		wsHub: wsHub,
	}
}

func generateID() string {
	b := make([]byte, 6)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// CreateJob starts a download for hubID, or returns the existing job if one
// is already queued/running for the same hub_id (mirroring the
// join-in-flight policy the Coordinator itself enforces).
func (m *JobManager) CreateJob(hubID string) (*Job, bool) {
	id := hub.NormalizeHubID(hubID)

	m.mu.Lock()
	for _, existing := range m.jobs {
		if existing.HubID == id && (existing.Status == JobStatusQueued || existing.Status == JobStatusRunning) {
			m.mu.Unlock()
			return existing, true
		}
	}

	job := &Job{
		ID:        generateID(),
		HubID:     id,
		Status:    JobStatusQueued,
		CreatedAt: time.Now(),
	}
	m.jobs[job.ID] = job
	m.mu.Unlock()

	go m.runJob(job)
	return job, false
}

// GetJob returns the job with the given ID.
func (m *JobManager) GetJob(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	return j, ok
}

// ListJobs returns every tracked job.
func (m *JobManager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out
}

// CancelJob cancels a queued or running job. Returns false if the job is
// unknown or already terminal.
func (m *JobManager) CancelJob(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || (j.Status != JobStatusQueued && j.Status != JobStatusRunning) {
		return false
	}
	if j.cancel != nil {
		j.cancel()
	}
	j.Status = JobStatusCancelled
	now := time.Now()
	j.EndedAt = &now
	return true
}

func (m *JobManager) notify(j *Job) {
	if m.wsHub != nil {
		m.wsHub.BroadcastJob(j)
	}
}

func (m *JobManager) runJob(job *Job) {
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	job.cancel = cancel
	job.Status = JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	m.mu.Unlock()
	m.notify(job)

	modelDir := filepath.Join(m.cfg.ModelsDir, filepath.FromSlash(job.HubID))
	tempDir := filepath.Join(m.cfg.ModelsDir, ".tmp", job.ID)

	_, err := m.coord.DownloadModel(ctx, job.HubID, modelDir, tempDir, func(ev hub.ProgressEvent) {
		m.mu.Lock()
		switch ev.Name {
		case "start":
			if v, ok := ev.Payload["total_files"].(int); ok {
				job.Progress.TotalFiles = v
			}
			if v, ok := ev.Payload["known_bytes"].(int64); ok {
				job.Progress.KnownBytes = v
			}
		case "file_progress":
			if v, ok := ev.Payload["bytes_downloaded"].(int64); ok {
				job.Progress.DownloadedBytes = v
			}
		case "file_complete":
			if v, ok := ev.Payload["completed_files"].(int); ok {
				job.Progress.CompletedFiles = v
			}
		}
		m.mu.Unlock()
		m.notify(job)
	})

	m.mu.Lock()
	endTime := time.Now()
	job.EndedAt = &endTime
	switch {
	case ctx.Err() != nil:
		job.Status = JobStatusCancelled
	case err != nil:
		job.Status = JobStatusFailed
		job.Error = err.Error()
	default:
		job.Status = JobStatusCompleted
	}
	m.mu.Unlock()
	m.notify(job)
}

// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"github.com/arcadia-ai/modelhub/pkg/hub"
)

// snapshotSourceDir returns the pristine copy of a model's files kept under
// modelsDir by DownloadModel's move step — the source used to repair
// missing files without a full redownload.
func snapshotSourceDir(modelsDir, hubID string) string {
	return filepath.Join(modelsDir, filepath.FromSlash(hubID))
}

// ErrorResponse is the JSON body returned for any non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func statusForErr(err error) int {
	var he *hub.Error
	if ok := asHubError(err, &he); ok {
		switch he.Kind {
		case hub.KindInvalidInput:
			return http.StatusBadRequest
		case hub.KindNotFound:
			return http.StatusNotFound
		case hub.KindPermissionDenied:
			return http.StatusForbidden
		case hub.KindNetworkUnavailable, hub.KindTransient:
			return http.StatusServiceUnavailable
		}
	}
	return http.StatusInternalServerError
}

func asHubError(err error, target **hub.Error) bool {
	e, ok := err.(*hub.Error)
	if ok {
		*target = e
	}
	return ok
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.wsHub.ClientCount(),
	})
}

func (s *Server) handleStartDownload(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !hub.IsValidHubID(req.HubID) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid hub_id"})
		return
	}

	job, existed := s.jobs.CreateJob(req.HubID)
	status := http.StatusAccepted
	if existed {
		status = http.StatusOK
	}
	writeJSON(w, status, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobs.ListJobs())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, ok := s.jobs.GetJob(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "job not found"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.jobs.CancelJob(id) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "job not found or already finished"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := hub.ListDownloadedModels(s.config.ModelsDir)
	if err != nil {
		writeError(w, statusForErr(err), err)
		return
	}
	writeJSON(w, http.StatusOK, models)
}

// repairRequest is the POST /api/repair body: re-verify and, where possible,
// repair a previously downloaded model using its pristine copy under
// ModelsDir as the source of truth.
type repairRequest struct {
	HubID string `json:"hubId"`
}

func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request) {
	var req repairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := hub.NormalizeHubID(req.HubID)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid hub_id"})
		return
	}

	checker := hub.NewHealthChecker(nil, s.coord.Notifier())
	snapshot, err := s.coord.Layout().SnapshotDirectory(id, true)
	if err != nil {
		writeError(w, statusForErr(err), err)
		return
	}

	expectations := s.coord.Manifest().CachedIntegrityExpectations(id)

	sourceDir := snapshotSourceDir(s.config.ModelsDir, id)
	report, err := checker.CheckAndRepair(id, sourceDir, snapshot, expectations)
	if err != nil {
		writeError(w, statusForErr(err), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

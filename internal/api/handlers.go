package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yangwenmai/mailbrief/internal/engine"
	"github.com/yangwenmai/mailbrief/internal/model"
	"github.com/yangwenmai/mailbrief/internal/runstate"
)

const (
	msgCompleted   = "Email summarization completed successfully"
	msgSignIn      = "Please sign in first"
	msgRateLimited = "Too many requests, please try again later"
)

// ---------------------------------------------------------------------------
// POST /api/start-summarization
// ---------------------------------------------------------------------------

type startRequest struct {
	AccessToken string `json:"accessToken"`
}

type startResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Data    *model.PipelineResult `json:"data"`
}

func (s *Server) handleStartSummarization(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, msgRateLimited)
		return
	}

	cred := credentialFrom(r)
	if s.requireCred && cred.Empty() {
		writeError(w, http.StatusUnauthorized, msgSignIn)
		return
	}

	if s.tracker != nil {
		if err := s.tracker.Begin(); errors.Is(err, runstate.ErrBusy) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
	}

	result, err := s.runner.Run(r.Context(), cred)
	if errors.Is(err, engine.ErrRunInProgress) {
		if s.tracker != nil {
			s.tracker.Abort()
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		slog.Error("start-summarization failed", "error", err)
		var se *engine.StepError
		step := ""
		if errors.As(err, &se) {
			step = se.StepName()
		}
		writeJSON(w, http.StatusInternalServerError, model.NewRunFailure(step, engine.Message(err)))
		return
	}

	writeJSON(w, http.StatusOK, startResponse{
		Success: true,
		Message: msgCompleted,
		Data:    result,
	})
}

// credentialFrom reads the access token from the JSON body, falling back to
// an Authorization bearer header. A missing or malformed body counts as empty.
func credentialFrom(r *http.Request) model.Credential {
	var req startRequest
	if body, err := io.ReadAll(r.Body); err == nil && len(body) > 0 {
		_ = json.Unmarshal(body, &req)
	}
	token := strings.TrimSpace(req.AccessToken)
	if token == "" {
		auth := r.Header.Get("Authorization")
		if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
			token = strings.TrimSpace(auth[7:])
		}
	}
	return model.Credential{AccessToken: token}
}

// ---------------------------------------------------------------------------
// GET /api/status
// ---------------------------------------------------------------------------

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	report := s.status.Query(r.Context())
	if report.IsError() {
		slog.Warn("status query failed", "status", report.StatusCode)
	}
	w.WriteHeader(report.StatusCode)
	w.Write(report.Body)
}

// ---------------------------------------------------------------------------
// GET /api/run-state
// ---------------------------------------------------------------------------

type runStateResponse struct {
	runstate.Snapshot
	LastScheduledFailure *model.RunFailure `json:"lastScheduledFailure,omitempty"`
}

func (s *Server) handleRunState(w http.ResponseWriter, r *http.Request) {
	resp := runStateResponse{Snapshot: runstate.Snapshot{State: runstate.StateIdle}}
	if s.tracker != nil {
		resp.Snapshot = s.tracker.Snapshot()
	}
	if s.schedule != nil {
		resp.LastScheduledFailure = s.schedule.LastFailure()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---------------------------------------------------------------------------
// GET /healthz
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

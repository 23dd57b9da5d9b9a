package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/app"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/ports"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxBodySize      = 1 << 20 // 1 MB
)

type callRequest struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
}

// executeRequest is the JSON body for POST /v1/execute.
type executeRequest struct {
	Calls []callRequest `json:"calls"`
}

// stateResponse is the engine snapshot plus the surfaced failure.
type stateResponse struct {
	app.Snapshot
	Error      string `json:"error,omitempty"`
	FailedStep *int   `json:"failed_step,omitempty"`
}

type listRunsResponse struct {
	Runs  []domain.RunRecord `json:"runs"`
	Limit int                `json:"limit"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	calls := make([]domain.Call, 0, len(req.Calls))
	for i, c := range req.Calls {
		call, err := domain.ParseCall(c.To, c.Data, c.Value)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("call %d: %v", i, err))
			return
		}
		calls = append(calls, call)
	}

	if err := s.engine.Execute(calls); err != nil {
		switch {
		case errors.Is(err, domain.ErrNoCalls):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrNoAccount):
			s.writeError(w, http.StatusPreconditionFailed, err.Error())
		case errors.Is(err, domain.ErrNotIdle):
			s.writeError(w, http.StatusConflict, err.Error())
		default:
			s.logger.Error("execute", ports.Err(err))
			s.writeError(w, http.StatusInternalServerError, "failed to start execution")
		}
		return
	}
	s.writeJSON(w, http.StatusAccepted, newStateResponse(s.engine.Snapshot()))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, newStateResponse(s.engine.Snapshot()))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.engine.Reset()
	s.writeJSON(w, http.StatusOK, newStateResponse(s.engine.Snapshot()))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusNotImplemented, "run history is not configured")
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	runs, err := s.history.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs", ports.Err(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []domain.RunRecord{}
	}
	s.writeJSON(w, http.StatusOK, listRunsResponse{Runs: runs, Limit: limit})
}

func newStateResponse(snap app.Snapshot) stateResponse {
	resp := stateResponse{Snapshot: snap}
	if snap.Error != nil {
		resp.Error = snap.Error.Error()
		if step, ok := snap.Error.Step(); ok {
			resp.FailedStep = &step
		}
	}
	return resp
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", ports.Err(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/near-poll/internal/core/domain"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
)

// APIHandler serves the read-only JSON endpoints.
type APIHandler struct {
	polls   ports.PollService
	results ports.ResultsService
	timeout time.Duration
	log     logrus.FieldLogger
}

func NewAPIHandler(polls ports.PollService, results ports.ResultsService, timeout time.Duration, log logrus.FieldLogger) *APIHandler {
	return &APIHandler{
		polls:   polls,
		results: results,
		timeout: timeout,
		log:     log,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type resultsResponse struct {
	Poll    domain.Poll    `json:"poll"`
	Results domain.Results `json:"results"`
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Error("failed to encode response")
	}
}

func lookupStatus(s domain.LookupStatus) int {
	switch s {
	case domain.LookupFound:
		return http.StatusOK
	case domain.LookupNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func (h *APIHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	state := voteState(r)
	if !state.HasPoll() {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing poll_id"})
		return
	}

	lookup := h.polls.ShowPoll(r.Context(), state)
	if !lookup.Found() {
		h.writeJSON(w, lookupStatus(lookup.Status), errorResponse{Error: lookupMessage(lookup.Status)})
		return
	}
	h.writeJSON(w, http.StatusOK, lookup.Value)
}

func (h *APIHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	state := voteState(r)
	if !state.HasPoll() {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing poll_id"})
		return
	}

	lookup := h.results.ShowResults(r.Context(), state)
	if !lookup.Found() {
		h.writeJSON(w, lookupStatus(lookup.Status), errorResponse{Error: lookupMessage(lookup.Status)})
		return
	}
	h.writeJSON(w, http.StatusOK, resultsResponse{Poll: lookup.Value.Poll, Results: lookup.Value.Results})
}

func lookupMessage(s domain.LookupStatus) string {
	if s == domain.LookupNotFound {
		return domain.ErrPollNotFound.Error()
	}
	return domain.ErrCallFailed.Error()
}

// Health pings the contract.
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	reply, err := h.polls.Ping(ctx)
	if err != nil {
		h.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "contract": reply})
}

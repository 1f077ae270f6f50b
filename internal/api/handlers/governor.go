package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/tenet/internal/api/middleware"
	"github.com/Harshitk-cp/tenet/internal/service"
	"github.com/google/uuid"
)

type GovernorHandler struct {
	svc *service.GovernorService
}

func NewGovernorHandler(svc *service.GovernorService) *GovernorHandler {
	return &GovernorHandler{svc: svc}
}

type askRequest struct {
	Question string   `json:"question"`
	History  []string `json:"history,omitempty"`
}

func (h *GovernorHandler) Ask(w http.ResponseWriter, r *http.Request) {
	persona := middleware.PersonaFromContext(r.Context())
	if persona == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := h.svc.Ask(r.Context(), persona.ID, req.Question, req.History)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuestionRequired):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrPersonaNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrLLMUnavailable):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "governor request failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

type consistencyRequest struct {
	BeliefID string `json:"belief_id"`
}

func (h *GovernorHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	persona := middleware.PersonaFromContext(r.Context())
	if persona == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req consistencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	beliefID, err := uuid.Parse(req.BeliefID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief_id")
		return
	}

	report, err := h.svc.CheckConsistency(r.Context(), persona.ID, beliefID)
	if err != nil {
		if errors.Is(err, service.ErrLLMUnavailable) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeStanceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

type approveProposalRequest struct {
	BeliefID           string  `json:"belief_id"`
	ProposedConfidence float64 `json:"proposed_confidence"`
	Reason             string  `json:"reason"`
	Approved           bool    `json:"approved"`
	Admin              string  `json:"admin"`
}

func (h *GovernorHandler) ApproveProposal(w http.ResponseWriter, r *http.Request) {
	persona := middleware.PersonaFromContext(r.Context())
	if persona == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req approveProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	beliefID, err := uuid.Parse(req.BeliefID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief_id")
		return
	}

	result, err := h.svc.ApplyProposal(r.Context(), persona.ID, service.ProposalDecision{
		BeliefID:           beliefID,
		ProposedConfidence: req.ProposedConfidence,
		Reason:             req.Reason,
		Approved:           req.Approved,
		Admin:              req.Admin,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAdminRequired),
			errors.Is(err, service.ErrInvalidConfidence):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeStanceError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

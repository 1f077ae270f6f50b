package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/tenet/internal/api/middleware"
	"github.com/Harshitk-cp/tenet/internal/service"
)

type ModerationHandler struct {
	svc *service.ModerationService
}

func NewModerationHandler(svc *service.ModerationService) *ModerationHandler {
	return &ModerationHandler{svc: svc}
}

type evaluateRequest struct {
	Content string `json:"content"`
}

func (h *ModerationHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	persona := middleware.PersonaFromContext(r.Context())
	if persona == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	eval := h.svc.EvaluateContent(req.Content)

	shouldPost, err := h.svc.ShouldPostImmediately(r.Context(), persona.ID, eval)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to evaluate content")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"evaluation":              eval,
		"should_post_immediately": shouldPost,
	})
}

type enqueueRequest struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (h *ModerationHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	persona := middleware.PersonaFromContext(r.Context())
	if persona == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	itemID, err := h.svc.EnqueueForReview(r.Context(), persona.ID, req.Content, req.Metadata)
	if err != nil {
		if errors.Is(err, service.ErrContentEmpty) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to enqueue content")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"item_id": itemID.String()})
}

func (h *ModerationHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	persona := middleware.PersonaFromContext(r.Context())
	if persona == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	items, err := h.svc.ListPending(r.Context(), persona.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list pending items")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/tenet/internal/api/middleware"
	"github.com/Harshitk-cp/tenet/internal/domain"
	"github.com/Harshitk-cp/tenet/internal/service"
	"github.com/Harshitk-cp/tenet/internal/store"
)

type PersonaHandler struct {
	store     domain.PersonaStore
	stanceSvc *service.StanceService
}

func NewPersonaHandler(ps domain.PersonaStore, ss *service.StanceService) *PersonaHandler {
	return &PersonaHandler{store: ps, stanceSvc: ss}
}

type createPersonaRequest struct {
	Name  string               `json:"name"`
	Seeds []service.BeliefSeed `json:"seeds,omitempty"`
}

type createPersonaResponse struct {
	ID      string              `json:"id"`
	Name    string              `json:"name"`
	APIKey  string              `json:"api_key"`
	Beliefs []domain.BeliefNode `json:"beliefs,omitempty"`
}

func (h *PersonaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPersonaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate API key")
		return
	}

	persona := &domain.Persona{
		Name:       req.Name,
		APIKeyHash: middleware.HashAPIKey(apiKey),
	}

	if err := h.store.Create(r.Context(), persona); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create persona")
		return
	}

	seeded, err := h.stanceSvc.SeedBeliefs(r.Context(), persona.ID, req.Seeds, "seeder")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to seed beliefs")
		return
	}

	writeJSON(w, http.StatusCreated, createPersonaResponse{
		ID:      persona.ID.String(),
		Name:    persona.Name,
		APIKey:  apiKey,
		Beliefs: seeded,
	})
}

type autoPostRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *PersonaHandler) SetAutoPosting(w http.ResponseWriter, r *http.Request) {
	persona := middleware.PersonaFromContext(r.Context())
	if persona == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req autoPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.SetAutoPosting(r.Context(), persona.ID, req.Enabled); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "persona not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update auto-posting")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"auto_posting_enabled": req.Enabled})
}

func (h *PersonaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	persona := middleware.PersonaFromContext(r.Context())
	if persona == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.store.Delete(r.Context(), persona.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "persona not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete persona")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func generateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "tk_" + hex.EncodeToString(b), nil
}

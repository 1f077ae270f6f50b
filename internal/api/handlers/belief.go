package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Harshitk-cp/tenet/internal/api/middleware"
	"github.com/Harshitk-cp/tenet/internal/domain"
	"github.com/Harshitk-cp/tenet/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type BeliefHandler struct {
	stanceSvc *service.StanceService
	graphSvc  *service.GraphService
}

func NewBeliefHandler(ss *service.StanceService, gs *service.GraphService) *BeliefHandler {
	return &BeliefHandler{stanceSvc: ss, graphSvc: gs}
}

// writeStanceError maps the versioning engine's sentinels onto HTTP codes.
// Locked is distinct from not-found so callers can tell "protected" from
// "doesn't exist".
func writeStanceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrBeliefNotFound),
		errors.Is(err, service.ErrStanceNotFound),
		errors.Is(err, service.ErrPersonaNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrStanceLocked):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrRationaleRequired),
		errors.Is(err, service.ErrInvalidConfidence),
		errors.Is(err, service.ErrInvalidDirection),
		errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrUpdatedByRequired),
		errors.Is(err, service.ErrInvalidRelation),
		errors.Is(err, service.ErrInvalidWeight),
		errors.Is(err, service.ErrEdgeEndpointNotFound):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type createBeliefRequest struct {
	Title      string   `json:"title"`
	Summary    string   `json:"summary,omitempty"`
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Tags       []string `json:"tags,omitempty"`
	UpdatedBy  string   `json:"updated_by,omitempty"`
}

func (h *BeliefHandler) Create(w http.ResponseWriter, r *http.Request) {
	persona := middleware.PersonaFromContext(r.Context())
	if persona == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createBeliefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updatedBy := req.UpdatedBy
	if updatedBy == "" {
		updatedBy = "api"
	}

	node, err := h.stanceSvc.CreateBelief(r.Context(), persona.ID, service.BeliefSeed{
		Title:      req.Title,
		Summary:    req.Summary,
		Text:       req.Text,
		Confidence: req.Confidence,
		Tags:       req.Tags,
	}, updatedBy)
	if err != nil {
		writeStanceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, node)
}

func (h *BeliefHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	persona := middleware.PersonaFromContext(r.Context())
	if persona == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	result, err := h.stanceSvc.GetBeliefWithStances(r.Context(), persona.ID, id)
	if err != nil {
		writeStanceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type manualUpdateRequest struct {
	Confidence *float64 `json:"confidence,omitempty"`
	Text       *string  `json:"text,omitempty"`
	Rationale  string   `json:"rationale"`
	UpdatedBy  string   `json:"updated_by"`
}

type confidenceResponse struct {
	NewConfidence float64 `json:"new_confidence"`
}

func (h *BeliefHandler) ManualUpdate(w http.ResponseWriter, r *http.Request) {
	persona := middleware.PersonaFromContext(r.Context())
	if persona == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	var req manualUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	newConf, err := h.stanceSvc.ManualUpdate(r.Context(), persona.ID, id, req.Confidence, req.Text, req.Rationale, req.UpdatedBy)
	if err != nil {
		writeStanceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, confidenceResponse{NewConfidence: newConf})
}

type nudgeRequest struct {
	Direction string  `json:"direction"`
	Amount    float64 `json:"amount"`
	Reason    string  `json:"reason"`
	UpdatedBy string  `json:"updated_by"`
}

func (h *BeliefHandler) Nudge(w http.ResponseWriter, r *http.Request) {
	persona := middleware.PersonaFromContext(r.Context())
	if persona == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	var req nudgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	newConf, err := h.stanceSvc.NudgeConfidence(r.Context(), persona.ID, id, req.Direction, req.Amount, req.Reason, req.UpdatedBy)
	if err != nil {
		writeStanceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, confidenceResponse{NewConfidence: newConf})
}

type lockRequest struct {
	Reason    string `json:"reason,omitempty"`
	UpdatedBy string `json:"updated_by"`
}

func (h *BeliefHandler) Lock(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, true)
}

func (h *BeliefHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, false)
}

func (h *BeliefHandler) setStatus(w http.ResponseWriter, r *http.Request, lock bool) {
	persona := middleware.PersonaFromContext(r.Context())
	if persona == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	var req lockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if lock {
		err = h.stanceSvc.LockStance(r.Context(), persona.ID, id, req.Reason, req.UpdatedBy)
	} else {
		err = h.stanceSvc.UnlockStance(r.Context(), persona.ID, id, req.Reason, req.UpdatedBy)
	}
	if err != nil {
		writeStanceError(w, err)
		return
	}

	status := "current"
	if lock {
		status = "locked"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

type autoUpdateRequest struct {
	NewConfidence float64 `json:"new_confidence"`
	Reason        string  `json:"reason"`
	Evidence      []struct {
		SourceType string  `json:"source_type"`
		SourceRef  string  `json:"source_ref"`
		Strength   float64 `json:"strength"`
	} `json:"evidence,omitempty"`
}

func (h *BeliefHandler) AutoUpdate(w http.ResponseWriter, r *http.Request) {
	persona := middleware.PersonaFromContext(r.Context())
	if persona == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	var req autoUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	evidence := make([]domain.EvidenceLink, 0, len(req.Evidence))
	for _, ev := range req.Evidence {
		evidence = append(evidence, domain.EvidenceLink{
			SourceType: ev.SourceType,
			SourceRef:  ev.SourceRef,
			Strength:   ev.Strength,
		})
	}

	newConf, err := h.stanceSvc.AutoUpdate(r.Context(), persona.ID, id, req.NewConfidence, evidence, req.Reason)
	if err != nil {
		writeStanceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, confidenceResponse{NewConfidence: newConf})
}

type createEdgeRequest struct {
	TargetID string  `json:"target_id"`
	Relation string  `json:"relation"`
	Weight   float64 `json:"weight"`
}

func (h *BeliefHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	persona := middleware.PersonaFromContext(r.Context())
	if persona == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sourceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	var req createEdgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target_id")
		return
	}

	edge := &domain.BeliefEdge{
		PersonaID: persona.ID,
		SourceID:  sourceID,
		TargetID:  targetID,
		Relation:  req.Relation,
		Weight:    req.Weight,
	}

	if err := h.graphSvc.CreateEdge(r.Context(), edge); err != nil {
		writeStanceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, edge)
}

func (h *BeliefHandler) Graph(w http.ResponseWriter, r *http.Request) {
	persona := middleware.PersonaFromContext(r.Context())
	if persona == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter := domain.GraphFilter{}
	if tags := r.URL.Query().Get("tags"); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter.Tags = append(filter.Tags, t)
			}
		}
	}
	if mc := r.URL.Query().Get("min_confidence"); mc != "" {
		v, err := strconv.ParseFloat(mc, 64)
		if err != nil || v < 0 || v > 1 {
			writeError(w, http.StatusBadRequest, "invalid min_confidence")
			return
		}
		filter.MinConfidence = v
	}

	graph, err := h.graphSvc.QueryBeliefGraph(r.Context(), persona.ID, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query belief graph")
		return
	}

	writeJSON(w, http.StatusOK, graph)
}

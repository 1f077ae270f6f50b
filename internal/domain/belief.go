package domain

import (
	"time"

	"github.com/google/uuid"
)

// BeliefNode is one position a persona holds on a topic. CurrentConfidence is
// a cache of the active stance's confidence, refreshed in the same
// transaction as every stance write.
type BeliefNode struct {
	ID                uuid.UUID `json:"id"`
	PersonaID         uuid.UUID `json:"persona_id"`
	Title             string    `json:"title"`
	Summary           string    `json:"summary"`
	CurrentConfidence float64   `json:"current_confidence"`
	Tags              []string  `json:"tags,omitempty"`
	Embedding         []float32 `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type StanceStatus string

const (
	StanceCurrent    StanceStatus = "current"
	StanceLocked     StanceStatus = "locked"
	StanceSuperseded StanceStatus = "superseded"
)

// Active reports whether the stance is the belief's live position.
// Current and locked are mutually exclusive substates of active; at most one
// stance per belief may be active at any time.
func (s StanceStatus) Active() bool {
	return s == StanceCurrent || s == StanceLocked
}

// StanceVersion is one entry in a belief's append-only stance history.
// Versions are never edited; a content change supersedes the active version
// and appends a new one.
type StanceVersion struct {
	ID         uuid.UUID    `json:"id"`
	PersonaID  uuid.UUID    `json:"persona_id"`
	BeliefID   uuid.UUID    `json:"belief_id"`
	Text       string       `json:"text"`
	Confidence float64      `json:"confidence"`
	Status     StanceStatus `json:"status"`
	Rationale  string       `json:"rationale,omitempty"`
	UpdatedBy  string       `json:"updated_by"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Relation is an open vocabulary; these are the values the engine itself
// emits. Callers may persist others.
const (
	RelationSupports    = "supports"
	RelationContradicts = "contradicts"
	RelationEvidenceFor = "evidence_for"
	RelationDependsOn   = "depends_on"
)

// BeliefEdge is a directed, weighted relation between two beliefs of the
// same persona. The graph is a general directed multigraph; no cycle
// restriction applies.
type BeliefEdge struct {
	ID        uuid.UUID `json:"id"`
	PersonaID uuid.UUID `json:"persona_id"`
	SourceID  uuid.UUID `json:"source_id"`
	TargetID  uuid.UUID `json:"target_id"`
	Relation  string    `json:"relation"`
	Weight    float64   `json:"weight"`
	CreatedAt time.Time `json:"created_at"`
}

// EvidenceLink associates a stance version with a supporting source.
// Immutable once created.
type EvidenceLink struct {
	ID         uuid.UUID `json:"id"`
	PersonaID  uuid.UUID `json:"persona_id"`
	StanceID   uuid.UUID `json:"stance_id"`
	SourceType string    `json:"source_type"`
	SourceRef  string    `json:"source_ref"`
	Strength   float64   `json:"strength"`
	CreatedAt  time.Time `json:"created_at"`
}

type TriggerType string

const (
	TriggerAuto   TriggerType = "auto"
	TriggerManual TriggerType = "manual"
	TriggerNudge  TriggerType = "nudge"
	TriggerLock   TriggerType = "lock"
	TriggerUnlock TriggerType = "unlock"
)

func ValidTriggerType(t string) bool {
	switch TriggerType(t) {
	case TriggerAuto, TriggerManual, TriggerNudge, TriggerLock, TriggerUnlock:
		return true
	}
	return false
}

// StanceSnapshot captures the belief's active position at a point in time for
// the audit log.
type StanceSnapshot struct {
	Text       string       `json:"text"`
	Confidence float64      `json:"confidence"`
	Status     StanceStatus `json:"status"`
}

// BeliefUpdate is an append-only audit record written on every mutation of a
// belief's active stance. It is the sole source of truth for why a belief
// changed; records are never edited or deleted.
type BeliefUpdate struct {
	ID          uuid.UUID      `json:"id"`
	PersonaID   uuid.UUID      `json:"persona_id"`
	BeliefID    uuid.UUID      `json:"belief_id"`
	OldValue    StanceSnapshot `json:"old_value"`
	NewValue    StanceSnapshot `json:"new_value"`
	Reason      string         `json:"reason"`
	TriggerType TriggerType    `json:"trigger_type"`
	UpdatedBy   string         `json:"updated_by"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Snapshot returns the audit-log view of a stance version.
func (v *StanceVersion) Snapshot() StanceSnapshot {
	return StanceSnapshot{
		Text:       v.Text,
		Confidence: v.Confidence,
		Status:     v.Status,
	}
}

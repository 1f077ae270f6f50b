package domain

import (
	"context"

	"github.com/google/uuid"
)

type PersonaStore interface {
	Create(ctx context.Context, p *Persona) error
	GetByID(ctx context.Context, id uuid.UUID) (*Persona, error)
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*Persona, error)
	SetAutoPosting(ctx context.Context, id uuid.UUID, enabled bool) error
	// Delete removes the persona; beliefs, stances, edges, evidence, audit
	// records and review items cascade with it.
	Delete(ctx context.Context, id uuid.UUID) error
}

// GraphFilter narrows a belief graph query. Zero value means no filtering.
type GraphFilter struct {
	Tags          []string
	MinConfidence float64
}

// EdgeSuggestion is a candidate relation produced by embedding similarity
// between belief summaries. The caller decides whether the weight clears the
// auto-link threshold.
type EdgeSuggestion struct {
	NodeID uuid.UUID `json:"node_id"`
	Weight float64   `json:"weight"`
}

type BeliefStore interface {
	// CreateNode persists a new belief together with its initial current
	// stance in one transaction.
	CreateNode(ctx context.Context, node *BeliefNode, initial *StanceVersion) error
	GetNode(ctx context.Context, id uuid.UUID, personaID uuid.UUID) (*BeliefNode, error)
	ListNodes(ctx context.Context, personaID uuid.UUID, filter GraphFilter) ([]BeliefNode, error)
	// ListEdgesAmong returns edges whose endpoints are both in nodeIDs.
	ListEdgesAmong(ctx context.Context, personaID uuid.UUID, nodeIDs []uuid.UUID) ([]BeliefEdge, error)
	CreateEdge(ctx context.Context, edge *BeliefEdge) error
	SuggestRelated(ctx context.Context, personaID uuid.UUID, embedding []float32, limit int) ([]EdgeSuggestion, error)
}

// StanceSwap is the conditional write that replaces a belief's active stance.
// ActiveID is the compare-and-swap guard: the swap applies only if that
// stance is still the active one, otherwise the store reports ErrConflict.
// The superseding stance, the confidence cache refresh, the audit record and
// any evidence links commit atomically.
type StanceSwap struct {
	PersonaID uuid.UUID
	BeliefID  uuid.UUID
	ActiveID  uuid.UUID
	NewStance *StanceVersion
	Update    *BeliefUpdate
	Evidence  []EvidenceLink
}

// StatusChange flips the status of the active stance in place (lock/unlock).
// No new version is created; the audit record commits in the same
// transaction. StanceID is the compare-and-swap guard.
type StatusChange struct {
	PersonaID uuid.UUID
	BeliefID  uuid.UUID
	StanceID  uuid.UUID
	ToStatus  StanceStatus
	Update    *BeliefUpdate
}

type StanceStore interface {
	// GetActive returns the stance with status current or locked.
	GetActive(ctx context.Context, personaID uuid.UUID, beliefID uuid.UUID) (*StanceVersion, error)
	// ListByBelief returns the full stance history, newest first.
	ListByBelief(ctx context.Context, personaID uuid.UUID, beliefID uuid.UUID) ([]StanceVersion, error)
	Swap(ctx context.Context, swap *StanceSwap) error
	SetStatus(ctx context.Context, change *StatusChange) error
	ListEvidenceByBelief(ctx context.Context, personaID uuid.UUID, beliefID uuid.UUID) ([]EvidenceLink, error)
	// ListUpdatesByBelief returns audit records in creation order.
	ListUpdatesByBelief(ctx context.Context, personaID uuid.UUID, beliefID uuid.UUID) ([]BeliefUpdate, error)
}

type ReviewStore interface {
	Create(ctx context.Context, item *ReviewItem) error
	GetByID(ctx context.Context, id uuid.UUID, personaID uuid.UUID) (*ReviewItem, error)
	ListByStatus(ctx context.Context, personaID uuid.UUID, status ReviewStatus) ([]ReviewItem, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, personaID uuid.UUID, status ReviewStatus) error
}

// EventPublisher is the fire-and-forget notification collaborator. Publish is
// called after a successful commit, never before, and delivery is
// best-effort; the engine does not depend on it.
type EventPublisher interface {
	Publish(ctx context.Context, personaID uuid.UUID, eventType string, payload any)
}

// LLMClient is the completion collaborator used by the Governor. Its output
// is untrusted analysis text, never a direct state mutation.
type LLMClient interface {
	GenerateResponse(ctx context.Context, systemPrompt, contextBlock, question string) (*LLMResponse, error)
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

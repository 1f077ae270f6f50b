package domain

import "github.com/google/uuid"

type SourceType string

const (
	SourceInteraction SourceType = "interaction"
	SourceBelief      SourceType = "belief"
)

// GovernorSource is a typed citation in a Governor answer.
type GovernorSource struct {
	Type SourceType `json:"type"`
	Ref  string     `json:"ref"`
}

// BeliefProposal is the Governor's only write-shaped output. It is advisory:
// nothing is applied until a human approves it through the same audited path
// as a manual edit.
type BeliefProposal struct {
	BeliefID           uuid.UUID `json:"belief_id"`
	CurrentConfidence  float64   `json:"current_confidence"`
	ProposedConfidence float64   `json:"proposed_confidence"`
	Reason             string    `json:"reason"`
	Evidence           []string  `json:"evidence,omitempty"`
}

// GovernorAnswer is the Governor's full analysis of a question about the
// persona's beliefs.
type GovernorAnswer struct {
	Answer   string           `json:"answer"`
	Sources  []GovernorSource `json:"sources,omitempty"`
	Proposal *BeliefProposal  `json:"proposal,omitempty"`
}

// ConsistencyConflict names a belief the checked stance appears to be in
// tension with.
type ConsistencyConflict struct {
	BeliefID    uuid.UUID `json:"belief_id"`
	Relation    string    `json:"relation"`
	Explanation string    `json:"explanation"`
}

// ConsistencyReport is the Governor's advisory read on whether a belief's
// active stance fits the rest of the graph. It never changes anything.
type ConsistencyReport struct {
	BeliefID   uuid.UUID             `json:"belief_id"`
	Consistent bool                  `json:"consistent"`
	Summary    string                `json:"summary,omitempty"`
	Conflicts  []ConsistencyConflict `json:"conflicts,omitempty"`
}

// LLMResponse is the raw result of a single completion call.
type LLMResponse struct {
	Text   string  `json:"text"`
	Tokens int     `json:"tokens"`
	Cost   float64 `json:"cost"`
}

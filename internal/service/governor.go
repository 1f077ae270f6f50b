package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/tenet/internal/domain"
	"github.com/Harshitk-cp/tenet/internal/llm"
	"github.com/Harshitk-cp/tenet/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrQuestionRequired = errors.New("question is required")
	ErrAdminRequired    = errors.New("admin username is required")
	ErrLLMUnavailable   = errors.New("no LLM client configured")
	ErrPersonaNotFound  = errors.New("persona not found")
)

// GovernorService is the introspective explainer. Ask is a pure function
// over a snapshot of the persona's state: it reads the belief graph, calls
// the LLM once, and returns analysis text plus an optional proposal. The
// proposal never touches the versioning engine until a human approves it
// through ApplyProposal, which routes through the identical audited path as
// a manual edit.
type GovernorService struct {
	personaStore domain.PersonaStore
	beliefStore  domain.BeliefStore
	stanceSvc    *StanceService
	llmClient    domain.LLMClient
	logger       *zap.Logger
}

func NewGovernorService(ps domain.PersonaStore, bs domain.BeliefStore, ss *StanceService, lc domain.LLMClient, logger *zap.Logger) *GovernorService {
	return &GovernorService{
		personaStore: ps,
		beliefStore:  bs,
		stanceSvc:    ss,
		llmClient:    lc,
		logger:       logger,
	}
}

// governorReply is the JSON shape the Governor prompt asks the model for.
type governorReply struct {
	Answer  string `json:"answer"`
	Sources []struct {
		Type string `json:"type"`
		Ref  string `json:"ref"`
	} `json:"sources"`
	Proposal *struct {
		BeliefID           string   `json:"belief_id"`
		CurrentConfidence  float64  `json:"current_confidence"`
		ProposedConfidence float64  `json:"proposed_confidence"`
		Reason             string   `json:"reason"`
		Evidence           []string `json:"evidence"`
	} `json:"proposal"`
}

// Ask answers a question about the persona's beliefs. history carries recent
// interaction excerpts supplied by the caller; the Governor itself never
// fetches or mutates anything beyond the read-only context bundle.
func (s *GovernorService) Ask(ctx context.Context, personaID uuid.UUID, question string, history []string) (*domain.GovernorAnswer, error) {
	if question == "" {
		return nil, ErrQuestionRequired
	}
	if s.llmClient == nil {
		return nil, ErrLLMUnavailable
	}

	persona, err := s.personaStore.GetByID(ctx, personaID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPersonaNotFound
		}
		return nil, fmt.Errorf("get persona %s: %w", personaID, err)
	}

	nodes, err := s.beliefStore.ListNodes(ctx, personaID, domain.GraphFilter{})
	if err != nil {
		return nil, fmt.Errorf("list beliefs for persona %s: %w", personaID, err)
	}

	contextBlock := llm.BuildGovernorContext(persona.Name, nodes, history)

	resp, err := s.llmClient.GenerateResponse(ctx, llm.GovernorSystemPrompt, contextBlock, question)
	if err != nil {
		return nil, fmt.Errorf("governor LLM call for persona %s: %w", personaID, err)
	}

	s.logger.Debug("governor response",
		zap.String("persona_id", personaID.String()),
		zap.Int("tokens", resp.Tokens),
		zap.Float64("cost", resp.Cost))

	return s.parseAnswer(resp.Text), nil
}

// parseAnswer extracts the structured reply, tolerating prose or code fences
// around the JSON object. Malformed output degrades to a plain answer; a
// malformed proposal is dropped rather than surfaced.
func (s *GovernorService) parseAnswer(text string) *domain.GovernorAnswer {
	raw := extractJSON(text)

	var reply governorReply
	if raw == "" || json.Unmarshal([]byte(raw), &reply) != nil || reply.Answer == "" {
		return &domain.GovernorAnswer{Answer: strings.TrimSpace(text)}
	}

	answer := &domain.GovernorAnswer{Answer: reply.Answer}
	for _, src := range reply.Sources {
		t := domain.SourceType(src.Type)
		if t != domain.SourceInteraction && t != domain.SourceBelief {
			continue
		}
		answer.Sources = append(answer.Sources, domain.GovernorSource{Type: t, Ref: src.Ref})
	}

	if p := reply.Proposal; p != nil {
		beliefID, err := uuid.Parse(p.BeliefID)
		if err != nil || !validConfidence(p.ProposedConfidence) {
			s.logger.Warn("governor produced malformed proposal, dropping",
				zap.String("belief_id", p.BeliefID),
				zap.Float64("proposed_confidence", p.ProposedConfidence))
			return answer
		}
		answer.Proposal = &domain.BeliefProposal{
			BeliefID:           beliefID,
			CurrentConfidence:  p.CurrentConfidence,
			ProposedConfidence: p.ProposedConfidence,
			Reason:             p.Reason,
			Evidence:           p.Evidence,
		}
	}

	return answer
}

// consistencyReply is the JSON shape the consistency-check prompt asks for.
type consistencyReply struct {
	Consistent bool   `json:"consistent"`
	Summary    string `json:"summary"`
	Conflicts  []struct {
		BeliefID    string `json:"belief_id"`
		Relation    string `json:"relation"`
		Explanation string `json:"explanation"`
	} `json:"conflicts"`
}

// CheckConsistency asks the model whether a belief's active stance is in
// tension with the rest of the graph. Advisory only; nothing is written.
func (s *GovernorService) CheckConsistency(ctx context.Context, personaID, beliefID uuid.UUID) (*domain.ConsistencyReport, error) {
	if s.llmClient == nil {
		return nil, ErrLLMUnavailable
	}

	persona, err := s.personaStore.GetByID(ctx, personaID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPersonaNotFound
		}
		return nil, fmt.Errorf("get persona %s: %w", personaID, err)
	}

	history, err := s.stanceSvc.GetBeliefWithStances(ctx, personaID, beliefID)
	if err != nil {
		return nil, err
	}

	var active *domain.StanceVersion
	for i := range history.Stances {
		if history.Stances[i].Status.Active() {
			active = &history.Stances[i]
			break
		}
	}
	if active == nil {
		return nil, ErrStanceNotFound
	}

	nodes, err := s.beliefStore.ListNodes(ctx, personaID, domain.GraphFilter{})
	if err != nil {
		return nil, fmt.Errorf("list beliefs for persona %s: %w", personaID, err)
	}

	contextBlock := llm.BuildGovernorContext(persona.Name, nodes, nil)
	question := fmt.Sprintf("Belief under review: [%s] %s\nActive stance: %s (confidence %.2f)",
		beliefID, history.Belief.Title, active.Text, active.Confidence)

	resp, err := s.llmClient.GenerateResponse(ctx, llm.ConsistencyCheckPrompt, contextBlock, question)
	if err != nil {
		return nil, fmt.Errorf("consistency check for belief %s: %w", beliefID, err)
	}

	report := &domain.ConsistencyReport{BeliefID: beliefID}

	var reply consistencyReply
	raw := extractJSON(resp.Text)
	if raw == "" || json.Unmarshal([]byte(raw), &reply) != nil {
		report.Consistent = true
		report.Summary = strings.TrimSpace(resp.Text)
		return report, nil
	}

	report.Consistent = reply.Consistent
	report.Summary = reply.Summary
	for _, c := range reply.Conflicts {
		id, err := uuid.Parse(c.BeliefID)
		if err != nil {
			s.logger.Warn("consistency check produced malformed conflict, dropping",
				zap.String("belief_id", c.BeliefID))
			continue
		}
		report.Conflicts = append(report.Conflicts, domain.ConsistencyConflict{
			BeliefID:    id,
			Relation:    c.Relation,
			Explanation: c.Explanation,
		})
	}
	return report, nil
}

func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// ProposalDecision is the human verdict on a Governor proposal.
type ProposalDecision struct {
	BeliefID           uuid.UUID `json:"belief_id"`
	ProposedConfidence float64   `json:"proposed_confidence"`
	Reason             string    `json:"reason"`
	Approved           bool      `json:"approved"`
	Admin              string    `json:"admin"`
}

// ProposalResult reports what happened to a proposal.
type ProposalResult struct {
	Status        string  `json:"status"`
	NewConfidence float64 `json:"new_confidence,omitempty"`
}

const (
	ProposalRejected = "rejected"
	ProposalApplied  = "applied"
)

// ApplyProposal turns an approved proposal into a manual update. The
// approval act is attributed to the human, not the model: the audit trail
// records trigger type manual with the admin as the author. A rejected
// proposal changes nothing.
func (s *GovernorService) ApplyProposal(ctx context.Context, personaID uuid.UUID, decision ProposalDecision) (*ProposalResult, error) {
	if decision.Admin == "" {
		return nil, ErrAdminRequired
	}
	if !decision.Approved {
		s.logger.Info("governor proposal rejected",
			zap.String("persona_id", personaID.String()),
			zap.String("belief_id", decision.BeliefID.String()),
			zap.String("admin", decision.Admin))
		return &ProposalResult{Status: ProposalRejected}, nil
	}

	rationale := fmt.Sprintf("Governor proposal approved by %s: %s", decision.Admin, decision.Reason)
	updatedBy := "admin:" + decision.Admin

	newConf, err := s.stanceSvc.ManualUpdate(ctx, personaID, decision.BeliefID, &decision.ProposedConfidence, nil, rationale, updatedBy)
	if err != nil {
		return nil, err
	}

	return &ProposalResult{Status: ProposalApplied, NewConfidence: newConf}, nil
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Harshitk-cp/tenet/internal/domain"
	"github.com/Harshitk-cp/tenet/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEdgeEndpointNotFound = errors.New("edge endpoint belief not found")
	ErrInvalidRelation      = errors.New("relation is required")
	ErrInvalidWeight        = errors.New("weight must be between 0.0 and 1.0")
)

// DefaultAutoLinkMinWeight is the minimum suggestion weight persisted as an
// edge when auto-linking a new belief.
const DefaultAutoLinkMinWeight = 0.5

const autoLinkSuggestionLimit = 5

// BeliefGraph is the read-side view of a persona's beliefs. Edges always
// connect two returned nodes; filtered-out endpoints drop their edges too.
type BeliefGraph struct {
	Nodes []domain.BeliefNode `json:"nodes"`
	Edges []domain.BeliefEdge `json:"edges"`
}

// GraphService owns read-side traversal and edge creation. It also acts as
// the relationship-suggestion consumer behind auto-linking: the engine
// exposes plain edge creation, the threshold decision lives here.
type GraphService struct {
	beliefStore domain.BeliefStore
	minWeight   float64
	logger      *zap.Logger
}

func NewGraphService(bs domain.BeliefStore, minWeight float64, logger *zap.Logger) *GraphService {
	if minWeight <= 0 {
		minWeight = DefaultAutoLinkMinWeight
	}
	return &GraphService{beliefStore: bs, minWeight: minWeight, logger: logger}
}

// QueryBeliefGraph returns the persona's nodes passing the tag and
// confidence filters plus the edges among them. No side effects.
func (s *GraphService) QueryBeliefGraph(ctx context.Context, personaID uuid.UUID, filter domain.GraphFilter) (*BeliefGraph, error) {
	nodes, err := s.beliefStore.ListNodes(ctx, personaID, filter)
	if err != nil {
		return nil, fmt.Errorf("list beliefs for persona %s: %w", personaID, err)
	}

	nodeIDs := make([]uuid.UUID, len(nodes))
	for i, n := range nodes {
		nodeIDs[i] = n.ID
	}

	edges, err := s.beliefStore.ListEdgesAmong(ctx, personaID, nodeIDs)
	if err != nil {
		return nil, fmt.Errorf("list edges for persona %s: %w", personaID, err)
	}

	return &BeliefGraph{Nodes: nodes, Edges: edges}, nil
}

// CreateEdge persists a directed relation after validating both endpoints
// belong to the persona.
func (s *GraphService) CreateEdge(ctx context.Context, edge *domain.BeliefEdge) error {
	if edge.Relation == "" {
		return ErrInvalidRelation
	}
	if !validConfidence(edge.Weight) {
		return ErrInvalidWeight
	}

	for _, id := range []uuid.UUID{edge.SourceID, edge.TargetID} {
		if _, err := s.beliefStore.GetNode(ctx, id, edge.PersonaID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrEdgeEndpointNotFound
			}
			return fmt.Errorf("get edge endpoint %s: %w", id, err)
		}
	}

	if err := s.beliefStore.CreateEdge(ctx, edge); err != nil {
		return fmt.Errorf("create edge %s->%s: %w", edge.SourceID, edge.TargetID, err)
	}
	return nil
}

// OnBeliefCreated runs relationship suggestions for a new belief and
// persists edges whose weight clears the configured minimum.
func (s *GraphService) OnBeliefCreated(ctx context.Context, node *domain.BeliefNode) error {
	if len(node.Embedding) == 0 {
		return nil
	}

	suggestions, err := s.beliefStore.SuggestRelated(ctx, node.PersonaID, node.Embedding, autoLinkSuggestionLimit)
	if err != nil {
		return fmt.Errorf("suggest related beliefs for %s: %w", node.ID, err)
	}

	for _, sg := range suggestions {
		if sg.NodeID == node.ID || sg.Weight < s.minWeight {
			continue
		}
		edge := &domain.BeliefEdge{
			PersonaID: node.PersonaID,
			SourceID:  node.ID,
			TargetID:  sg.NodeID,
			Relation:  domain.RelationSupports,
			Weight:    sg.Weight,
		}
		if err := s.beliefStore.CreateEdge(ctx, edge); err != nil {
			s.logger.Warn("auto-link edge creation failed",
				zap.String("source_id", node.ID.String()),
				zap.String("target_id", sg.NodeID.String()),
				zap.Error(err))
			continue
		}
		s.logger.Debug("auto-linked beliefs",
			zap.String("source_id", node.ID.String()),
			zap.String("target_id", sg.NodeID.String()),
			zap.Float64("weight", sg.Weight))
	}
	return nil
}

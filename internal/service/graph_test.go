package service

import (
	"context"
	"testing"

	"github.com/Harshitk-cp/tenet/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestGraphService(ms *memStore, minWeight float64) *GraphService {
	return NewGraphService(ms, minWeight, zap.NewNop())
}

func TestQueryBeliefGraph_EdgesNeverDangle(t *testing.T) {
	ms := newMemStore()
	ss := newTestStanceService(ms)
	gs := newTestGraphService(ms, 0.5)
	ctx := context.Background()
	personaID := uuid.New()

	strong, _ := ss.CreateBelief(ctx, personaID, BeliefSeed{Title: "a", Text: "a", Confidence: 0.9}, "seeder")
	weak, _ := ss.CreateBelief(ctx, personaID, BeliefSeed{Title: "b", Text: "b", Confidence: 0.2}, "seeder")

	edge := &domain.BeliefEdge{
		PersonaID: personaID,
		SourceID:  strong.ID,
		TargetID:  weak.ID,
		Relation:  domain.RelationSupports,
		Weight:    0.8,
	}
	if err := gs.CreateEdge(ctx, edge); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Unfiltered: both nodes and the edge.
	graph, err := gs.QueryBeliefGraph(ctx, personaID, domain.GraphFilter{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(graph.Nodes) != 2 || len(graph.Edges) != 1 {
		t.Fatalf("expected 2 nodes and 1 edge, got %d/%d", len(graph.Nodes), len(graph.Edges))
	}

	// Confidence filter drops the weak node and with it the edge.
	graph, err = gs.QueryBeliefGraph(ctx, personaID, domain.GraphFilter{MinConfidence: 0.5})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(graph.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(graph.Nodes))
	}
	if len(graph.Edges) != 0 {
		t.Fatalf("expected no edges to filtered-out nodes, got %d", len(graph.Edges))
	}
}

func TestCreateEdge_Validation(t *testing.T) {
	ms := newMemStore()
	ss := newTestStanceService(ms)
	gs := newTestGraphService(ms, 0.5)
	ctx := context.Background()
	personaID := uuid.New()

	a, _ := ss.CreateBelief(ctx, personaID, BeliefSeed{Title: "a", Text: "a", Confidence: 0.5}, "seeder")

	err := gs.CreateEdge(ctx, &domain.BeliefEdge{PersonaID: personaID, SourceID: a.ID, TargetID: a.ID, Weight: 0.5})
	if err != ErrInvalidRelation {
		t.Fatalf("expected ErrInvalidRelation, got %v", err)
	}

	err = gs.CreateEdge(ctx, &domain.BeliefEdge{PersonaID: personaID, SourceID: a.ID, TargetID: a.ID, Relation: "supports", Weight: 1.5})
	if err != ErrInvalidWeight {
		t.Fatalf("expected ErrInvalidWeight, got %v", err)
	}

	err = gs.CreateEdge(ctx, &domain.BeliefEdge{PersonaID: personaID, SourceID: a.ID, TargetID: uuid.New(), Relation: "supports", Weight: 0.5})
	if err != ErrEdgeEndpointNotFound {
		t.Fatalf("expected ErrEdgeEndpointNotFound, got %v", err)
	}
}

func TestOnBeliefCreated_AutoLinksAboveThreshold(t *testing.T) {
	ms := newMemStore()
	gs := newTestGraphService(ms, 0.5)
	ctx := context.Background()
	personaID := uuid.New()

	node := &domain.BeliefNode{
		ID:        uuid.New(),
		PersonaID: personaID,
		Embedding: []float32{0.1, 0.2},
	}
	strongMatch := uuid.New()
	weakMatch := uuid.New()
	ms.suggestions = []domain.EdgeSuggestion{
		{NodeID: node.ID, Weight: 1.0}, // self, skipped
		{NodeID: strongMatch, Weight: 0.8},
		{NodeID: weakMatch, Weight: 0.3},
	}

	if err := gs.OnBeliefCreated(ctx, node); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(ms.edges) != 1 {
		t.Fatalf("expected 1 auto-linked edge, got %d", len(ms.edges))
	}
	edge := ms.edges[0]
	if edge.SourceID != node.ID || edge.TargetID != strongMatch {
		t.Fatalf("expected edge %s -> %s, got %s -> %s", node.ID, strongMatch, edge.SourceID, edge.TargetID)
	}
	if edge.Relation != domain.RelationSupports {
		t.Fatalf("expected relation supports, got %s", edge.Relation)
	}
	if edge.Weight != 0.8 {
		t.Fatalf("expected weight 0.8, got %f", edge.Weight)
	}
}

func TestOnBeliefCreated_NoEmbedding(t *testing.T) {
	ms := newMemStore()
	gs := newTestGraphService(ms, 0.5)

	node := &domain.BeliefNode{ID: uuid.New(), PersonaID: uuid.New()}
	if err := gs.OnBeliefCreated(context.Background(), node); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(ms.edges) != 0 {
		t.Fatalf("expected no edges without an embedding, got %d", len(ms.edges))
	}
}

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/tenet/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

type BeliefStore struct {
	db *pgxpool.Pool
}

func NewBeliefStore(db *pgxpool.Pool) *BeliefStore {
	return &BeliefStore{db: db}
}

// CreateNode inserts the belief node and its initial current stance in one
// transaction so a belief is never observable without an active stance.
func (s *BeliefStore) CreateNode(ctx context.Context, node *domain.BeliefNode, initial *domain.StanceVersion) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var embedding *pgvector.Vector
	if len(node.Embedding) > 0 {
		v := pgvector.NewVector(node.Embedding)
		embedding = &v
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO belief_nodes (persona_id, title, summary, current_confidence, tags, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		node.PersonaID, node.Title, node.Summary, node.CurrentConfidence, node.Tags, embedding,
	).Scan(&node.ID, &node.CreatedAt, &node.UpdatedAt)
	if err != nil {
		return err
	}

	initial.BeliefID = node.ID
	initial.PersonaID = node.PersonaID
	initial.Status = domain.StanceCurrent
	err = tx.QueryRow(ctx,
		`INSERT INTO stance_versions (persona_id, belief_id, text, confidence, status, rationale, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		initial.PersonaID, initial.BeliefID, initial.Text, initial.Confidence, initial.Status, initial.Rationale, initial.UpdatedBy,
	).Scan(&initial.ID, &initial.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *BeliefStore) GetNode(ctx context.Context, id uuid.UUID, personaID uuid.UUID) (*domain.BeliefNode, error) {
	n := &domain.BeliefNode{}
	err := s.db.QueryRow(ctx,
		`SELECT id, persona_id, title, summary, current_confidence, tags, created_at, updated_at
		 FROM belief_nodes WHERE id = $1 AND persona_id = $2`,
		id, personaID,
	).Scan(&n.ID, &n.PersonaID, &n.Title, &n.Summary, &n.CurrentConfidence, &n.Tags, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

func (s *BeliefStore) ListNodes(ctx context.Context, personaID uuid.UUID, filter domain.GraphFilter) ([]domain.BeliefNode, error) {
	var conditions []string
	var args []any

	conditions = append(conditions, fmt.Sprintf("persona_id = $%d", len(args)+1))
	args = append(args, personaID)

	if len(filter.Tags) > 0 {
		conditions = append(conditions, fmt.Sprintf("tags @> $%d", len(args)+1))
		args = append(args, filter.Tags)
	}

	if filter.MinConfidence > 0 {
		conditions = append(conditions, fmt.Sprintf("current_confidence >= $%d", len(args)+1))
		args = append(args, filter.MinConfidence)
	}

	query := fmt.Sprintf(
		`SELECT id, persona_id, title, summary, current_confidence, tags, created_at, updated_at
		 FROM belief_nodes WHERE %s ORDER BY created_at`,
		strings.Join(conditions, " AND "),
	)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []domain.BeliefNode
	for rows.Next() {
		var n domain.BeliefNode
		if err := rows.Scan(&n.ID, &n.PersonaID, &n.Title, &n.Summary, &n.CurrentConfidence, &n.Tags, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// ListEdgesAmong returns edges whose source and target are both in nodeIDs,
// so the graph query never returns a dangling edge.
func (s *BeliefStore) ListEdgesAmong(ctx context.Context, personaID uuid.UUID, nodeIDs []uuid.UUID) ([]domain.BeliefEdge, error) {
	if len(nodeIDs) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, persona_id, source_id, target_id, relation, weight, created_at
		 FROM belief_edges
		 WHERE persona_id = $1 AND source_id = ANY($2) AND target_id = ANY($2)
		 ORDER BY created_at`,
		personaID, nodeIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []domain.BeliefEdge
	for rows.Next() {
		var e domain.BeliefEdge
		if err := rows.Scan(&e.ID, &e.PersonaID, &e.SourceID, &e.TargetID, &e.Relation, &e.Weight, &e.CreatedAt); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *BeliefStore) CreateEdge(ctx context.Context, edge *domain.BeliefEdge) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO belief_edges (persona_id, source_id, target_id, relation, weight)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		edge.PersonaID, edge.SourceID, edge.TargetID, edge.Relation, edge.Weight,
	).Scan(&edge.ID, &edge.CreatedAt)
}

// SuggestRelated ranks existing beliefs of the persona by cosine similarity
// of their summary embeddings against the given embedding.
func (s *BeliefStore) SuggestRelated(ctx context.Context, personaID uuid.UUID, embedding []float32, limit int) ([]domain.EdgeSuggestion, error) {
	if limit <= 0 {
		limit = 5
	}

	vec := pgvector.NewVector(embedding)
	rows, err := s.db.Query(ctx,
		`SELECT id, 1 - (embedding <=> $2) AS similarity
		 FROM belief_nodes
		 WHERE persona_id = $1 AND embedding IS NOT NULL
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		personaID, vec, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suggestions []domain.EdgeSuggestion
	for rows.Next() {
		var sg domain.EdgeSuggestion
		if err := rows.Scan(&sg.NodeID, &sg.Weight); err != nil {
			return nil, err
		}
		suggestions = append(suggestions, sg)
	}
	return suggestions, rows.Err()
}

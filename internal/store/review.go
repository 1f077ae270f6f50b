package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/tenet/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReviewStore struct {
	db *pgxpool.Pool
}

func NewReviewStore(db *pgxpool.Pool) *ReviewStore {
	return &ReviewStore{db: db}
}

func (s *ReviewStore) Create(ctx context.Context, item *domain.ReviewItem) error {
	if item.Status == "" {
		item.Status = domain.ReviewPending
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO review_items (persona_id, content, metadata, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		item.PersonaID, item.Content, item.Metadata, item.Status,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
}

func (s *ReviewStore) GetByID(ctx context.Context, id uuid.UUID, personaID uuid.UUID) (*domain.ReviewItem, error) {
	item := &domain.ReviewItem{}
	err := s.db.QueryRow(ctx,
		`SELECT id, persona_id, content, metadata, status, created_at, updated_at
		 FROM review_items WHERE id = $1 AND persona_id = $2`,
		id, personaID,
	).Scan(&item.ID, &item.PersonaID, &item.Content, &item.Metadata, &item.Status, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

func (s *ReviewStore) ListByStatus(ctx context.Context, personaID uuid.UUID, status domain.ReviewStatus) ([]domain.ReviewItem, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, persona_id, content, metadata, status, created_at, updated_at
		 FROM review_items
		 WHERE persona_id = $1 AND status = $2
		 ORDER BY created_at`,
		personaID, status,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.ReviewItem
	for rows.Next() {
		var item domain.ReviewItem
		if err := rows.Scan(&item.ID, &item.PersonaID, &item.Content, &item.Metadata, &item.Status, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *ReviewStore) UpdateStatus(ctx context.Context, id uuid.UUID, personaID uuid.UUID, status domain.ReviewStatus) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE review_items SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND persona_id = $2`,
		id, personaID, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/tenet/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PersonaStore struct {
	db *pgxpool.Pool
}

func NewPersonaStore(db *pgxpool.Pool) *PersonaStore {
	return &PersonaStore{db: db}
}

func (s *PersonaStore) Create(ctx context.Context, p *domain.Persona) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO personas (name, api_key_hash, auto_posting_enabled)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		p.Name, p.APIKeyHash, p.AutoPostingEnabled,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (s *PersonaStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Persona, error) {
	p := &domain.Persona{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, api_key_hash, auto_posting_enabled, created_at, updated_at
		 FROM personas WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.APIKeyHash, &p.AutoPostingEnabled, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PersonaStore) GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*domain.Persona, error) {
	p := &domain.Persona{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, api_key_hash, auto_posting_enabled, created_at, updated_at
		 FROM personas WHERE api_key_hash = $1`,
		apiKeyHash,
	).Scan(&p.ID, &p.Name, &p.APIKeyHash, &p.AutoPostingEnabled, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PersonaStore) SetAutoPosting(ctx context.Context, id uuid.UUID, enabled bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE personas SET auto_posting_enabled = $2, updated_at = NOW() WHERE id = $1`,
		id, enabled,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the persona row; every owned entity is dropped by the
// ON DELETE CASCADE foreign keys.
func (s *PersonaStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM personas WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/tenet/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StanceStore struct {
	db *pgxpool.Pool
}

func NewStanceStore(db *pgxpool.Pool) *StanceStore {
	return &StanceStore{db: db}
}

func (s *StanceStore) GetActive(ctx context.Context, personaID uuid.UUID, beliefID uuid.UUID) (*domain.StanceVersion, error) {
	v := &domain.StanceVersion{}
	err := s.db.QueryRow(ctx,
		`SELECT id, persona_id, belief_id, text, confidence, status, rationale, updated_by, created_at
		 FROM stance_versions
		 WHERE persona_id = $1 AND belief_id = $2 AND status IN ('current', 'locked')`,
		personaID, beliefID,
	).Scan(&v.ID, &v.PersonaID, &v.BeliefID, &v.Text, &v.Confidence, &v.Status, &v.Rationale, &v.UpdatedBy, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (s *StanceStore) ListByBelief(ctx context.Context, personaID uuid.UUID, beliefID uuid.UUID) ([]domain.StanceVersion, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, persona_id, belief_id, text, confidence, status, rationale, updated_by, created_at
		 FROM stance_versions
		 WHERE persona_id = $1 AND belief_id = $2
		 ORDER BY created_at DESC`,
		personaID, beliefID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stances []domain.StanceVersion
	for rows.Next() {
		var v domain.StanceVersion
		if err := rows.Scan(&v.ID, &v.PersonaID, &v.BeliefID, &v.Text, &v.Confidence, &v.Status, &v.Rationale, &v.UpdatedBy, &v.CreatedAt); err != nil {
			return nil, err
		}
		stances = append(stances, v)
	}
	return stances, rows.Err()
}

// Swap replaces the belief's active stance. The UPDATE is the
// compare-and-swap: it supersedes the stance only if swap.ActiveID is still
// active, so a concurrent writer that already swapped makes this call fail
// with ErrConflict instead of producing a second active version. The new
// stance, the confidence cache refresh, the audit record and any evidence
// links commit together.
func (s *StanceStore) Swap(ctx context.Context, swap *domain.StanceSwap) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE stance_versions SET status = 'superseded'
		 WHERE id = $1 AND persona_id = $2 AND status IN ('current', 'locked')`,
		swap.ActiveID, swap.PersonaID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	ns := swap.NewStance
	ns.PersonaID = swap.PersonaID
	ns.BeliefID = swap.BeliefID
	ns.Status = domain.StanceCurrent
	err = tx.QueryRow(ctx,
		`INSERT INTO stance_versions (persona_id, belief_id, text, confidence, status, rationale, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		ns.PersonaID, ns.BeliefID, ns.Text, ns.Confidence, ns.Status, ns.Rationale, ns.UpdatedBy,
	).Scan(&ns.ID, &ns.CreatedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE belief_nodes SET current_confidence = $3, updated_at = NOW()
		 WHERE id = $1 AND persona_id = $2`,
		swap.BeliefID, swap.PersonaID, ns.Confidence,
	)
	if err != nil {
		return err
	}

	if err := insertUpdate(ctx, tx, swap.Update); err != nil {
		return err
	}

	for i := range swap.Evidence {
		ev := &swap.Evidence[i]
		ev.PersonaID = swap.PersonaID
		ev.StanceID = ns.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO evidence_links (persona_id, stance_id, source_type, source_ref, strength)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, created_at`,
			ev.PersonaID, ev.StanceID, ev.SourceType, ev.SourceRef, ev.Strength,
		).Scan(&ev.ID, &ev.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// SetStatus flips the active stance's status in place (lock/unlock) and
// appends the audit record in the same transaction. The id guard makes a
// racing swap surface as ErrConflict.
func (s *StanceStore) SetStatus(ctx context.Context, change *domain.StatusChange) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE stance_versions SET status = $3
		 WHERE id = $1 AND persona_id = $2 AND status IN ('current', 'locked')`,
		change.StanceID, change.PersonaID, change.ToStatus,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	if err := insertUpdate(ctx, tx, change.Update); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertUpdate(ctx context.Context, tx pgx.Tx, u *domain.BeliefUpdate) error {
	return tx.QueryRow(ctx,
		`INSERT INTO belief_updates (persona_id, belief_id, old_value, new_value, reason, trigger_type, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		u.PersonaID, u.BeliefID, u.OldValue, u.NewValue, u.Reason, u.TriggerType, u.UpdatedBy,
	).Scan(&u.ID, &u.CreatedAt)
}

func (s *StanceStore) ListEvidenceByBelief(ctx context.Context, personaID uuid.UUID, beliefID uuid.UUID) ([]domain.EvidenceLink, error) {
	rows, err := s.db.Query(ctx,
		`SELECT e.id, e.persona_id, e.stance_id, e.source_type, e.source_ref, e.strength, e.created_at
		 FROM evidence_links e
		 JOIN stance_versions v ON v.id = e.stance_id
		 WHERE e.persona_id = $1 AND v.belief_id = $2
		 ORDER BY e.created_at`,
		personaID, beliefID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.EvidenceLink
	for rows.Next() {
		var e domain.EvidenceLink
		if err := rows.Scan(&e.ID, &e.PersonaID, &e.StanceID, &e.SourceType, &e.SourceRef, &e.Strength, &e.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, e)
	}
	return links, rows.Err()
}

func (s *StanceStore) ListUpdatesByBelief(ctx context.Context, personaID uuid.UUID, beliefID uuid.UUID) ([]domain.BeliefUpdate, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, persona_id, belief_id, old_value, new_value, reason, trigger_type, updated_by, created_at
		 FROM belief_updates
		 WHERE persona_id = $1 AND belief_id = $2
		 ORDER BY created_at`,
		personaID, beliefID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var updates []domain.BeliefUpdate
	for rows.Next() {
		var u domain.BeliefUpdate
		if err := rows.Scan(&u.ID, &u.PersonaID, &u.BeliefID, &u.OldValue, &u.NewValue, &u.Reason, &u.TriggerType, &u.UpdatedBy, &u.CreatedAt); err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}

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
	ErrBeliefNotFound    = errors.New("belief not found")
	ErrStanceNotFound    = errors.New("no active stance for belief")
	ErrStanceLocked      = errors.New("stance is locked")
	ErrRationaleRequired = errors.New("rationale is required")
	ErrInvalidConfidence = errors.New("confidence must be between 0.0 and 1.0")
	ErrInvalidDirection  = errors.New("direction must be increase or decrease")
	ErrTitleRequired     = errors.New("title is required")
	ErrUpdatedByRequired = errors.New("updated_by is required")
	ErrConflict          = errors.New("belief was modified concurrently")
)

const (
	DirectionIncrease = "increase"
	DirectionDecrease = "decrease"

	// EventBeliefUpdated is published after every committed stance mutation.
	EventBeliefUpdated = "belief.updated"
)

// AutoLinker receives newly created beliefs so edge suggestions can run
// outside the engine's write path.
type AutoLinker interface {
	OnBeliefCreated(ctx context.Context, node *domain.BeliefNode) error
}

// StanceService owns the state machine for a belief's active stance. Every
// mutation routes through the store's conditional swap/status primitives, so
// two concurrent writers can never both produce an active version; the loser
// observes a conflict and the whole read-modify-write is retried once before
// being surfaced.
type StanceService struct {
	beliefStore     domain.BeliefStore
	stanceStore     domain.StanceStore
	embeddingClient domain.EmbeddingClient
	publisher       domain.EventPublisher
	autoLinker      AutoLinker
	logger          *zap.Logger
}

func NewStanceService(bs domain.BeliefStore, ss domain.StanceStore, ec domain.EmbeddingClient, pub domain.EventPublisher, logger *zap.Logger) *StanceService {
	return &StanceService{
		beliefStore:     bs,
		stanceStore:     ss,
		embeddingClient: ec,
		publisher:       pub,
		logger:          logger,
	}
}

func (s *StanceService) SetAutoLinker(al AutoLinker) {
	s.autoLinker = al
}

// BeliefWithHistory assembles a belief's full audit history.
type BeliefWithHistory struct {
	Belief   *domain.BeliefNode     `json:"belief"`
	Stances  []domain.StanceVersion `json:"stances"`
	Evidence []domain.EvidenceLink  `json:"evidence"`
	Updates  []domain.BeliefUpdate  `json:"updates"`
}

// BeliefSeed describes one belief to create for a persona.
type BeliefSeed struct {
	Title      string   `json:"title"`
	Summary    string   `json:"summary,omitempty"`
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Tags       []string `json:"tags,omitempty"`
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func validConfidence(c float64) bool {
	return c >= 0 && c <= 1
}

// GetBeliefWithStances returns the belief with its stance history (newest
// first), evidence links and audit records in creation order.
func (s *StanceService) GetBeliefWithStances(ctx context.Context, personaID, beliefID uuid.UUID) (*BeliefWithHistory, error) {
	node, err := s.beliefStore.GetNode(ctx, beliefID, personaID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrBeliefNotFound
		}
		return nil, fmt.Errorf("get belief %s for persona %s: %w", beliefID, personaID, err)
	}

	stances, err := s.stanceStore.ListByBelief(ctx, personaID, beliefID)
	if err != nil {
		return nil, fmt.Errorf("list stances for belief %s: %w", beliefID, err)
	}

	evidence, err := s.stanceStore.ListEvidenceByBelief(ctx, personaID, beliefID)
	if err != nil {
		return nil, fmt.Errorf("list evidence for belief %s: %w", beliefID, err)
	}

	updates, err := s.stanceStore.ListUpdatesByBelief(ctx, personaID, beliefID)
	if err != nil {
		return nil, fmt.Errorf("list updates for belief %s: %w", beliefID, err)
	}

	return &BeliefWithHistory{
		Belief:   node,
		Stances:  stances,
		Evidence: evidence,
		Updates:  updates,
	}, nil
}

// CreateBelief creates a belief node with its initial current stance. The
// summary is embedded best-effort so relationship suggestions can find it.
func (s *StanceService) CreateBelief(ctx context.Context, personaID uuid.UUID, seed BeliefSeed, updatedBy string) (*domain.BeliefNode, error) {
	if seed.Title == "" {
		return nil, ErrTitleRequired
	}
	if !validConfidence(seed.Confidence) {
		return nil, ErrInvalidConfidence
	}

	node := &domain.BeliefNode{
		PersonaID:         personaID,
		Title:             seed.Title,
		Summary:           seed.Summary,
		CurrentConfidence: seed.Confidence,
		Tags:              seed.Tags,
	}

	if s.embeddingClient != nil {
		text := seed.Title
		if seed.Summary != "" {
			text = seed.Title + "\n" + seed.Summary
		}
		emb, err := s.embeddingClient.Embed(ctx, text)
		if err != nil {
			s.logger.Warn("embedding generation failed", zap.Error(err))
		} else {
			node.Embedding = emb
		}
	}

	initial := &domain.StanceVersion{
		Text:       seed.Text,
		Confidence: seed.Confidence,
		Rationale:  "initial stance",
		UpdatedBy:  updatedBy,
	}

	if err := s.beliefStore.CreateNode(ctx, node, initial); err != nil {
		return nil, fmt.Errorf("create belief for persona %s: %w", personaID, err)
	}

	if s.autoLinker != nil {
		if err := s.autoLinker.OnBeliefCreated(ctx, node); err != nil {
			s.logger.Warn("auto-link failed after belief creation",
				zap.String("belief_id", node.ID.String()), zap.Error(err))
		}
	}

	return node, nil
}

// SeedBeliefs creates the persona's starting belief set.
func (s *StanceService) SeedBeliefs(ctx context.Context, personaID uuid.UUID, seeds []BeliefSeed, updatedBy string) ([]domain.BeliefNode, error) {
	var nodes []domain.BeliefNode
	for _, seed := range seeds {
		node, err := s.CreateBelief(ctx, personaID, seed, updatedBy)
		if err != nil {
			return nodes, err
		}
		nodes = append(nodes, *node)
	}
	return nodes, nil
}

// ManualUpdate is the admin-authored override. The active stance must not be
// locked; admins unlock first, a deliberate friction. Omitted confidence or
// text fall back to the active stance's values.
func (s *StanceService) ManualUpdate(ctx context.Context, personaID, beliefID uuid.UUID, confidence *float64, text *string, rationale, updatedBy string) (float64, error) {
	if rationale == "" {
		return 0, ErrRationaleRequired
	}
	if updatedBy == "" {
		return 0, ErrUpdatedByRequired
	}
	if confidence != nil && !validConfidence(*confidence) {
		return 0, ErrInvalidConfidence
	}

	return s.swapWithRetry(ctx, personaID, beliefID, domain.TriggerManual, rationale, updatedBy, nil,
		func(active *domain.StanceVersion) (float64, string) {
			newConf := active.Confidence
			if confidence != nil {
				newConf = *confidence
			}
			newText := active.Text
			if text != nil {
				newText = *text
			}
			return newConf, newText
		})
}

// NudgeConfidence applies a small directional adjustment relative to the
// active stance. Out-of-range results are clamped, never rejected, so
// repeated nudges can never violate the confidence bounds. Text carries over
// unchanged.
func (s *StanceService) NudgeConfidence(ctx context.Context, personaID, beliefID uuid.UUID, direction string, amount float64, reason, updatedBy string) (float64, error) {
	if direction != DirectionIncrease && direction != DirectionDecrease {
		return 0, ErrInvalidDirection
	}
	if reason == "" {
		return 0, ErrRationaleRequired
	}
	if updatedBy == "" {
		return 0, ErrUpdatedByRequired
	}

	sign := 1.0
	if direction == DirectionDecrease {
		sign = -1.0
	}

	return s.swapWithRetry(ctx, personaID, beliefID, domain.TriggerNudge, reason, updatedBy, nil,
		func(active *domain.StanceVersion) (float64, string) {
			return clampConfidence(active.Confidence + amount*sign), active.Text
		})
}

// AutoUpdate is the evidence-driven write path. It shares the manual-update
// mechanics but records trigger type auto and attaches evidence links. A
// locked stance rejects it with ErrStanceLocked; the rejection is surfaced,
// never silently skipped.
func (s *StanceService) AutoUpdate(ctx context.Context, personaID, beliefID uuid.UUID, newConfidence float64, evidence []domain.EvidenceLink, reason string) (float64, error) {
	if reason == "" {
		return 0, ErrRationaleRequired
	}
	if !validConfidence(newConfidence) {
		return 0, ErrInvalidConfidence
	}

	return s.swapWithRetry(ctx, personaID, beliefID, domain.TriggerAuto, reason, "system", evidence,
		func(active *domain.StanceVersion) (float64, string) {
			return newConfidence, active.Text
		})
}

// swapWithRetry runs the read-modify-write for a version-creating mutation.
// On a storage conflict the whole cycle is retried exactly once; repeated
// conflict surfaces as ErrConflict.
func (s *StanceService) swapWithRetry(ctx context.Context, personaID, beliefID uuid.UUID, trigger domain.TriggerType, reason, updatedBy string, evidence []domain.EvidenceLink, next func(active *domain.StanceVersion) (float64, string)) (float64, error) {
	var newConf float64
	for attempt := 0; ; attempt++ {
		active, err := s.getActive(ctx, personaID, beliefID)
		if err != nil {
			return 0, err
		}
		if active.Status == domain.StanceLocked {
			return 0, ErrStanceLocked
		}

		conf, text := next(active)
		newStance := &domain.StanceVersion{
			Text:       text,
			Confidence: conf,
			Rationale:  reason,
			UpdatedBy:  updatedBy,
		}

		newConf = conf
		err = s.stanceStore.Swap(ctx, &domain.StanceSwap{
			PersonaID: personaID,
			BeliefID:  beliefID,
			ActiveID:  active.ID,
			NewStance: newStance,
			Update: &domain.BeliefUpdate{
				PersonaID:   personaID,
				BeliefID:    beliefID,
				OldValue:    active.Snapshot(),
				NewValue:    domain.StanceSnapshot{Text: text, Confidence: conf, Status: domain.StanceCurrent},
				Reason:      reason,
				TriggerType: trigger,
				UpdatedBy:   updatedBy,
			},
			Evidence: evidence,
		})
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrConflict) {
			if attempt == 0 {
				s.logger.Debug("stance swap conflict, retrying",
					zap.String("belief_id", beliefID.String()),
					zap.String("trigger", string(trigger)))
				continue
			}
			return 0, ErrConflict
		}
		return 0, fmt.Errorf("%s update for belief %s (persona %s): %w", trigger, beliefID, personaID, err)
	}

	s.logger.Info("belief stance updated",
		zap.String("persona_id", personaID.String()),
		zap.String("belief_id", beliefID.String()),
		zap.String("trigger", string(trigger)),
		zap.Float64("new_confidence", newConf))

	s.publishUpdated(ctx, personaID, beliefID, trigger, newConf)
	return newConf, nil
}

// LockStance marks the active stance locked so evidence-driven writes are
// rejected until an admin unlocks. Idempotent: locking an already-locked
// stance appends a fresh audit record without creating a new version.
func (s *StanceService) LockStance(ctx context.Context, personaID, beliefID uuid.UUID, reason, updatedBy string) error {
	return s.setStatusWithRetry(ctx, personaID, beliefID, domain.StanceLocked, domain.TriggerLock, reason, updatedBy)
}

// UnlockStance transitions locked back to current on the same stance version.
// Unlocking a stance that was never locked is a no-op that still appends an
// audit record.
func (s *StanceService) UnlockStance(ctx context.Context, personaID, beliefID uuid.UUID, reason, updatedBy string) error {
	return s.setStatusWithRetry(ctx, personaID, beliefID, domain.StanceCurrent, domain.TriggerUnlock, reason, updatedBy)
}

func (s *StanceService) setStatusWithRetry(ctx context.Context, personaID, beliefID uuid.UUID, to domain.StanceStatus, trigger domain.TriggerType, reason, updatedBy string) error {
	if updatedBy == "" {
		return ErrUpdatedByRequired
	}

	var conf float64
	for attempt := 0; ; attempt++ {
		active, err := s.getActive(ctx, personaID, beliefID)
		if err != nil {
			return err
		}
		conf = active.Confidence

		newSnapshot := active.Snapshot()
		newSnapshot.Status = to

		err = s.stanceStore.SetStatus(ctx, &domain.StatusChange{
			PersonaID: personaID,
			BeliefID:  beliefID,
			StanceID:  active.ID,
			ToStatus:  to,
			Update: &domain.BeliefUpdate{
				PersonaID:   personaID,
				BeliefID:    beliefID,
				OldValue:    active.Snapshot(),
				NewValue:    newSnapshot,
				Reason:      reason,
				TriggerType: trigger,
				UpdatedBy:   updatedBy,
			},
		})
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrConflict) {
			if attempt == 0 {
				continue
			}
			return ErrConflict
		}
		return fmt.Errorf("%s for belief %s (persona %s): %w", trigger, beliefID, personaID, err)
	}

	s.logger.Info("stance status changed",
		zap.String("persona_id", personaID.String()),
		zap.String("belief_id", beliefID.String()),
		zap.String("status", string(to)),
		zap.String("trigger", string(trigger)))

	s.publishUpdated(ctx, personaID, beliefID, trigger, conf)
	return nil
}

func (s *StanceService) getActive(ctx context.Context, personaID, beliefID uuid.UUID) (*domain.StanceVersion, error) {
	if _, err := s.beliefStore.GetNode(ctx, beliefID, personaID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrBeliefNotFound
		}
		return nil, fmt.Errorf("get belief %s for persona %s: %w", beliefID, personaID, err)
	}

	active, err := s.stanceStore.GetActive(ctx, personaID, beliefID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrStanceNotFound
		}
		return nil, fmt.Errorf("get active stance for belief %s: %w", beliefID, err)
	}
	return active, nil
}

// publishUpdated fires the post-commit notification. Best-effort: the engine
// does not depend on delivery.
func (s *StanceService) publishUpdated(ctx context.Context, personaID, beliefID uuid.UUID, trigger domain.TriggerType, confidence float64) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, personaID, EventBeliefUpdated, map[string]any{
		"belief_id":  beliefID.String(),
		"trigger":    string(trigger),
		"confidence": confidence,
	})
}

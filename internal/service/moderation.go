package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/tenet/internal/domain"
	"github.com/Harshitk-cp/tenet/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrContentEmpty = errors.New("content is required")

const (
	DefaultModerationMinLength = 10
	DefaultModerationMaxLength = 10000

	FlagTooShort = "too_short"
	FlagTooLong  = "too_long"

	// EventModerationPending is published when a new item enters the queue.
	EventModerationPending = "moderation.pending"
)

// ModerationRules are the deterministic checks run on draft content.
type ModerationRules struct {
	MinLength      int
	MaxLength      int
	BannedKeywords []string
}

func DefaultModerationRules() ModerationRules {
	return ModerationRules{
		MinLength: DefaultModerationMinLength,
		MaxLength: DefaultModerationMaxLength,
	}
}

// ModerationService gates whether generated content may be published. Rule
// evaluation is pure; persistence and notification happen only in
// EnqueueForReview.
type ModerationService struct {
	reviewStore  domain.ReviewStore
	personaStore domain.PersonaStore
	publisher    domain.EventPublisher
	rules        ModerationRules
	logger       *zap.Logger
}

func NewModerationService(rs domain.ReviewStore, ps domain.PersonaStore, pub domain.EventPublisher, rules ModerationRules, logger *zap.Logger) *ModerationService {
	if rules.MinLength <= 0 {
		rules.MinLength = DefaultModerationMinLength
	}
	if rules.MaxLength <= 0 {
		rules.MaxLength = DefaultModerationMaxLength
	}
	return &ModerationService{
		reviewStore:  rs,
		personaStore: ps,
		publisher:    pub,
		rules:        rules,
		logger:       logger,
	}
}

// EvaluateContent runs the policy rules against draft content. Length bounds
// are hard failures (block); a banned keyword alone flags the content for
// review without blocking it.
func (s *ModerationService) EvaluateContent(content string) domain.ContentEvaluation {
	var flags []string
	hardFail := false

	if len(content) < s.rules.MinLength {
		flags = append(flags, FlagTooShort)
		hardFail = true
	}
	if len(content) > s.rules.MaxLength {
		flags = append(flags, FlagTooLong)
		hardFail = true
	}

	lower := strings.ToLower(content)
	for _, kw := range s.rules.BannedKeywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			flags = append(flags, "banned_keyword:"+strings.ToLower(kw))
		}
	}

	action := domain.ActionAllow
	switch {
	case hardFail:
		action = domain.ActionBlock
	case len(flags) > 0:
		action = domain.ActionReview
	}

	return domain.ContentEvaluation{
		Approved: !hardFail,
		Flagged:  len(flags) > 0,
		Flags:    flags,
		Action:   action,
	}
}

// EnqueueForReview persists a pending queue item and notifies subscribers.
// Publication to the outside world is someone else's job.
func (s *ModerationService) EnqueueForReview(ctx context.Context, personaID uuid.UUID, content string, metadata map[string]any) (uuid.UUID, error) {
	if content == "" {
		return uuid.Nil, ErrContentEmpty
	}

	item := &domain.ReviewItem{
		PersonaID: personaID,
		Content:   content,
		Metadata:  metadata,
		Status:    domain.ReviewPending,
	}
	if err := s.reviewStore.Create(ctx, item); err != nil {
		return uuid.Nil, fmt.Errorf("enqueue review item for persona %s: %w", personaID, err)
	}

	s.logger.Info("content queued for review",
		zap.String("persona_id", personaID.String()),
		zap.String("item_id", item.ID.String()))

	if s.publisher != nil {
		s.publisher.Publish(ctx, personaID, EventModerationPending, map[string]any{
			"item_id": item.ID.String(),
		})
	}

	return item.ID, nil
}

func (s *ModerationService) ListPending(ctx context.Context, personaID uuid.UUID) ([]domain.ReviewItem, error) {
	return s.reviewStore.ListByStatus(ctx, personaID, domain.ReviewPending)
}

// IsAutoPostingEnabled reads the per-persona flag; unset or unknown personas
// default to false.
func (s *ModerationService) IsAutoPostingEnabled(ctx context.Context, personaID uuid.UUID) (bool, error) {
	p, err := s.personaStore.GetByID(ctx, personaID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get persona %s: %w", personaID, err)
	}
	return p.AutoPostingEnabled, nil
}

// ShouldPostImmediately decides whether evaluated content may skip the
// review queue. Any flag forces manual review even with auto-posting on;
// auto-posting never bypasses content flags.
func (s *ModerationService) ShouldPostImmediately(ctx context.Context, personaID uuid.UUID, eval domain.ContentEvaluation) (bool, error) {
	enabled, err := s.IsAutoPostingEnabled(ctx, personaID)
	if err != nil {
		return false, err
	}
	return enabled && !eval.Flagged && eval.Approved, nil
}

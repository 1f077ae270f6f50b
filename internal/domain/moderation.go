package domain

import (
	"time"

	"github.com/google/uuid"
)

type ModerationAction string

const (
	ActionAllow  ModerationAction = "allow"
	ActionReview ModerationAction = "review"
	ActionBlock  ModerationAction = "block"
)

// ContentEvaluation is the result of running draft content through the
// moderation rules. Evaluation is pure; nothing is persisted or published.
type ContentEvaluation struct {
	Approved bool             `json:"approved"`
	Flagged  bool             `json:"flagged"`
	Flags    []string         `json:"flags,omitempty"`
	Action   ModerationAction `json:"action"`
}

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

func ValidReviewStatus(s string) bool {
	switch ReviewStatus(s) {
	case ReviewPending, ReviewApproved, ReviewRejected:
		return true
	}
	return false
}

// ReviewItem is a piece of generated content held for human review before
// publication.
type ReviewItem struct {
	ID        uuid.UUID      `json:"id"`
	PersonaID uuid.UUID      `json:"persona_id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Status    ReviewStatus   `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

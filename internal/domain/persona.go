package domain

import (
	"time"

	"github.com/google/uuid"
)

// Persona is an isolated identity owning its own belief graph, moderation
// queue, and configuration. All other entities cascade-delete with it.
type Persona struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	APIKeyHash         string    `json:"-"`
	AutoPostingEnabled bool      `json:"auto_posting_enabled"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

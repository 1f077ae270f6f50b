package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is a persona-scoped notification emitted after a successful commit.
type Event struct {
	PersonaID uuid.UUID `json:"persona_id"`
	Type      string    `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	At        time.Time `json:"at"`
}

// Hub fans events out to in-process subscribers (the dashboard notification
// layer). Delivery is at-most-once and best-effort: a subscriber that cannot
// keep up drops events rather than blocking the publisher, so the engine's
// write path never waits on a slow consumer.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[int]chan Event
	nextID int
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[uuid.UUID]map[int]chan Event),
		logger: logger,
	}
}

const subscriberBuffer = 16

// Subscribe registers for a persona's events. The returned cancel function
// must be called to release the subscription.
func (h *Hub) Subscribe(personaID uuid.UUID) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	id := h.nextID
	h.nextID++

	if h.subs[personaID] == nil {
		h.subs[personaID] = make(map[int]chan Event)
	}
	h.subs[personaID][id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if chans, ok := h.subs[personaID]; ok {
			if c, ok := chans[id]; ok {
				delete(chans, id)
				close(c)
			}
			if len(chans) == 0 {
				delete(h.subs, personaID)
			}
		}
	}
	return ch, cancel
}

func (h *Hub) Publish(ctx context.Context, personaID uuid.UUID, eventType string, payload any) {
	evt := Event{
		PersonaID: personaID,
		Type:      eventType,
		Payload:   payload,
		At:        time.Now(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs[personaID] {
		select {
		case ch <- evt:
		default:
			h.logger.Debug("dropping event for slow subscriber",
				zap.String("persona_id", personaID.String()),
				zap.String("type", eventType))
		}
	}
}

// Close drops all subscriptions and closes their channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for personaID, chans := range h.subs {
		for id, ch := range chans {
			delete(chans, id)
			close(ch)
		}
		delete(h.subs, personaID)
	}
}

// LogPublisher writes events to the structured log. Used when no dashboard
// is attached.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, personaID uuid.UUID, eventType string, payload any) {
	p.logger.Info("event",
		zap.String("persona_id", personaID.String()),
		zap.String("type", eventType),
		zap.Any("payload", payload))
}

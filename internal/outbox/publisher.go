package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gowebpki/jcs"

	"github.com/loyaltyhub/backend/internal/models"
)

// Publisher delivers one outbox event to downstream consumers. Delivery is
// at-least-once: a consumer may see the same event ID twice and must
// deduplicate.
type Publisher interface {
	Publish(ctx context.Context, event *models.OutboxEvent) error
}

// Envelope is the wire shape pushed to the event queue.
type Envelope struct {
	EventID       string          `json:"event_id"`
	TenantID      string          `json:"tenant_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// RedisPublisher pushes event envelopes onto a Redis list consumed by
// downstream workers.
type RedisPublisher struct {
	client *redis.Client
	key    string
}

func NewRedisPublisher(client *redis.Client, key string) *RedisPublisher {
	return &RedisPublisher{client: client, key: key}
}

func (p *RedisPublisher) Publish(ctx context.Context, event *models.OutboxEvent) error {
	body, err := json.Marshal(Envelope{
		EventID:       event.ID,
		TenantID:      event.TenantID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		OccurredAt:    event.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}
	// RFC 8785 canonical form so consumers can hash or diff envelopes
	// byte-for-byte.
	body, err = jcs.Transform(body)
	if err != nil {
		return fmt.Errorf("canonicalize event envelope: %w", err)
	}
	if err := p.client.RPush(ctx, p.key, body).Err(); err != nil {
		return fmt.Errorf("push event %s: %w", event.ID, err)
	}
	return nil
}

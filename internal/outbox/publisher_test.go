package outbox

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/gowebpki/jcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	event := pendingEvent("e1", 0)

	marshaled, err := json.Marshal(Envelope{
		EventID:       event.ID,
		TenantID:      event.TenantID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		OccurredAt:    event.CreatedAt,
	})
	require.NoError(t, err)
	expectedBody, err := jcs.Transform(marshaled)
	require.NoError(t, err)
	// canonical form sorts keys, so aggregate_id leads the envelope
	assert.True(t, strings.HasPrefix(string(expectedBody), `{"aggregate_id"`))

	t.Run("pushes the envelope onto the list", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectRPush("points_events", expectedBody).SetVal(1)

		publisher := NewRedisPublisher(client, "points_events")
		assert.NoError(t, publisher.Publish(ctx, event))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates broker errors", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectRPush("points_events", expectedBody).SetErr(assert.AnError)

		publisher := NewRedisPublisher(client, "points_events")
		err := publisher.Publish(ctx, event)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "e1")
	})
}

package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Additional-Code/tableside/internal/config"
)

func TestKafkaMessageConversion(t *testing.T) {
	out := toKafka(Message{
		Key:     []byte("order-1"),
		Value:   []byte(`{"type":"order:created"}`),
		Headers: map[string]string{"event": "order:created"},
	})
	assert.Equal(t, []byte("order-1"), out.Key)
	require.Len(t, out.Headers, 1)
	assert.Equal(t, "event", out.Headers[0].Key)

	now := time.Now()
	in := fromKafka(kafka.Message{
		Topic:   "orders.events",
		Key:     []byte("order-1"),
		Value:   []byte("{}"),
		Offset:  42,
		Time:    now,
		Headers: []kafka.Header{{Key: "event", Value: []byte("order:cancelled")}},
	})
	assert.Equal(t, "orders.events", in.Topic)
	assert.Equal(t, int64(42), in.Offset)
	assert.Equal(t, "order:cancelled", in.Headers["event"])

	assert.Nil(t, fromKafka(kafka.Message{}).Headers)
}

func TestNewClientDisabled(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := config.Config{Messaging: config.Messaging{Enabled: false, Kafka: config.Kafka{Topic: "orders.events"}}}

	client, err := NewClient(lc, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "orders.events", client.Topic())
	assert.NoError(t, client.Publish(context.Background(), Message{Key: []byte("k")}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, client.Consume(ctx, nil), context.Canceled)
}

func TestNewClientRejectsUnknownDriver(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := config.Config{Messaging: config.Messaging{Enabled: true, Driver: "nats"}}

	_, err := NewClient(lc, cfg, zap.NewNop())
	assert.Error(t, err)
}

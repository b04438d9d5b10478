package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/tableside/internal/config"
	"github.com/Additional-Code/tableside/internal/messaging"
)

// scriptedClient delivers its messages once, then blocks until cancelled.
type scriptedClient struct {
	mu       sync.Mutex
	messages []messaging.Message
}

func (c *scriptedClient) Publish(context.Context, messaging.Message) error { return nil }

func (c *scriptedClient) Topic() string { return "orders.events" }

func (c *scriptedClient) Consume(ctx context.Context, handler messaging.Handler) error {
	c.mu.Lock()
	pending := c.messages
	c.messages = nil
	c.mu.Unlock()

	for _, msg := range pending {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func enabledConfig() config.Config {
	return config.Config{Messaging: config.Messaging{
		Enabled: true,
		Workers: config.Worker{Enabled: true, Concurrency: 2},
	}}
}

func TestEngineDispatchesByTopic(t *testing.T) {
	client := &scriptedClient{messages: []messaging.Message{
		{Topic: "orders.events", Value: []byte("a")},
		{Topic: "unrouted", Value: []byte("b")},
		{Topic: "orders.events", Value: []byte("c")},
	}}
	seen := make(chan string, 3)
	engine := NewEngine(Params{
		Client: client,
		Logger: zap.NewNop(),
		Config: enabledConfig(),
		Registrations: []HandlerRegistration{
			{Topic: "orders.events", Handler: func(_ context.Context, msg messaging.Message) error {
				seen <- string(msg.Value)
				return nil
			}},
			{Topic: "", Handler: nil},
		},
	})

	require.NoError(t, engine.start(context.Background()))
	for _, want := range []string{"a", "c"} {
		select {
		case got := <-seen:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("handler did not receive %q", want)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, engine.stop(ctx))
	assert.Empty(t, seen)
}

func TestEngineDisabled(t *testing.T) {
	engine := NewEngine(Params{Client: &scriptedClient{}, Logger: zap.NewNop(), Config: config.Config{}})

	require.NoError(t, engine.start(context.Background()))
	assert.Nil(t, engine.cancel)
	assert.NoError(t, engine.stop(context.Background()))
}

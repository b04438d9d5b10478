package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Additional-Code/tableside/internal/config"
)

// Broker moves encoded messages between publishers and channel subscribers.
type Broker interface {
	Publish(ctx context.Context, channel string, data []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Subscription delivers the messages of one channel until closed.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

const subscriberBuffer = 64

// NewBroker selects the broker named by the realtime driver.
func NewBroker(cfg config.Config, client *goredis.Client, logger *zap.Logger) (Broker, error) {
	switch cfg.Realtime.Driver {
	case "memory":
		logger.Info("realtime broker: in-process hub")
		return NewMemoryBroker(), nil
	case "redis":
		if client == nil {
			return nil, errors.New("redis realtime driver requires a redis client")
		}
		logger.Info("realtime broker: redis pub/sub", zap.String("addr", cfg.Cache.Redis.Addr))
		return NewRedisBroker(client), nil
	default:
		return nil, fmt.Errorf("unsupported realtime driver: %s", cfg.Realtime.Driver)
	}
}

// MemoryBroker fans messages out to subscribers of the same process.
type MemoryBroker struct {
	mu   sync.RWMutex
	subs map[string]map[*memorySubscription]struct{}
}

// NewMemoryBroker builds an empty hub.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[*memorySubscription]struct{})}
}

// Publish delivers data to every current subscriber. Slow subscribers whose
// buffer is full miss the message.
func (b *MemoryBroker) Publish(_ context.Context, channel string, data []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[channel] {
		select {
		case sub.ch <- data:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	sub := &memorySubscription{
		broker:  b,
		channel: channel,
		ch:      make(chan []byte, subscriberBuffer),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*memorySubscription]struct{})
	}
	b.subs[channel][sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// Subscribers reports how many subscriptions the channel has.
func (b *MemoryBroker) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

func (b *MemoryBroker) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[sub.channel], sub)
	if len(b.subs[sub.channel]) == 0 {
		delete(b.subs, sub.channel)
	}
	close(sub.ch)
}

type memorySubscription struct {
	broker  *MemoryBroker
	channel string
	ch      chan []byte
	done    chan struct{}
	once    sync.Once
}

func (s *memorySubscription) Messages() <-chan []byte { return s.ch }

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.broker.remove(s)
	})
	return nil
}

// RedisBroker relays messages through redis pub/sub so every API instance
// can serve any subscriber.
type RedisBroker struct {
	client *goredis.Client
}

// NewRedisBroker wraps a connected client.
func NewRedisBroker(client *goredis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, data []byte) error {
	return b.client.Publish(ctx, channel, data).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, channel)
	// Receive blocks until the subscription is confirmed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		ch:     make(chan []byte, subscriberBuffer),
		done:   make(chan struct{}),
	}
	go sub.pump(ctx)
	return sub, nil
}

type redisSubscription struct {
	pubsub *goredis.PubSub
	ch     chan []byte
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) pump(ctx context.Context) {
	defer close(s.ch)
	in := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = s.Close()
			return
		case <-s.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.ch <- []byte(msg.Payload):
			default:
			}
		}
	}
}

func (s *redisSubscription) Messages() <-chan []byte { return s.ch }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}

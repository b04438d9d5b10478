// Package realtime broadcasts order lifecycle events to restaurant and user rooms.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tableside/internal/config"
	"github.com/Additional-Code/tableside/internal/observability"
)

// Lifecycle event names.
const (
	EventOrderCreated       = "order:created"
	EventOrderStatusChanged = "order:status_changed"
	EventOrderCancelled     = "order:cancelled"
)

const (
	roomRestaurant = "restaurant"
	roomUser       = "user"

	publishTimeout = 5 * time.Second
)

// ErrNotifierStopped is returned by Subscribe after shutdown.
var ErrNotifierStopped = errors.New("notifier stopped")

// Module provides the broker and the notifier and ties the worker pool to
// the application lifecycle.
var Module = fx.Options(
	fx.Provide(NewBroker),
	fx.Provide(New),
)

// Message is the envelope written to a room.
type Message struct {
	Room    string          `json:"room"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sentAt"`
}

// NotificationError records a broadcast that did not reach the broker.
type NotificationError struct {
	Room  string
	Event string
	Err   error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify %s on %s: %v", e.Event, e.Room, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// Options tunes the notifier worker pool.
type Options struct {
	ChannelPrefix string
	QueueSize     int
	Workers       int
}

type job struct {
	ctx     context.Context
	channel string
	msg     Message
}

// Notifier queues lifecycle events and publishes them from a fixed pool of
// workers. Publishing never blocks or fails the caller.
type Notifier struct {
	broker Broker
	opts   Options
	logger *zap.Logger

	mu      sync.RWMutex
	queue   chan job
	started bool
	stopped bool
	wg      sync.WaitGroup

	published metric.Int64Counter
	dropped   metric.Int64Counter
	failed    metric.Int64Counter
}

// New builds the notifier from configuration and registers start/stop hooks.
func New(lc fx.Lifecycle, cfg config.Config, broker Broker, logger *zap.Logger) *Notifier {
	n := NewNotifier(broker, Options{
		ChannelPrefix: cfg.Realtime.ChannelPrefix,
		QueueSize:     cfg.Realtime.QueueSize,
		Workers:       cfg.Realtime.Workers,
	}, logger)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			n.Start()
			logger.Info("realtime notifier started",
				zap.Int("workers", n.opts.Workers),
				zap.Int("queue_size", n.opts.QueueSize),
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return n.Stop(ctx)
		},
	})
	return n
}

// NewNotifier builds a notifier without starting its workers.
func NewNotifier(broker Broker, opts Options, logger *zap.Logger) *Notifier {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	meter := observability.Meter("github.com/Additional-Code/tableside/realtime")
	return &Notifier{
		broker:    broker,
		opts:      opts,
		logger:    logger,
		queue:     make(chan job, opts.QueueSize),
		published: observability.Counter(meter, "realtime.notifications.published", "Lifecycle events handed to the broker", logger),
		dropped:   observability.Counter(meter, "realtime.notifications.dropped", "Lifecycle events dropped because the queue was full", logger),
		failed:    observability.Counter(meter, "realtime.notifications.failed", "Lifecycle events the broker rejected", logger),
	}
}

// Start launches the worker pool. Calling it twice is a no-op.
func (n *Notifier) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started || n.stopped {
		return
	}
	n.started = true
	for i := 0; i < n.opts.Workers; i++ {
		n.wg.Add(1)
		go n.work()
	}
}

// Stop closes the queue and waits for the workers to drain it or for ctx to end.
func (n *Notifier) Stop(ctx context.Context) error {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return nil
	}
	n.stopped = true
	close(n.queue)
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop notifier: %w", ctx.Err())
	}
}

// EmitToRestaurant broadcasts to the staff room of a restaurant.
func (n *Notifier) EmitToRestaurant(ctx context.Context, restaurantID, event string, payload any) {
	n.Publish(ctx, RestaurantRoom(restaurantID), event, payload)
}

// EmitToUser broadcasts to the personal room of a user.
func (n *Notifier) EmitToUser(ctx context.Context, userID, event string, payload any) {
	n.Publish(ctx, UserRoom(userID), event, payload)
}

// Publish encodes payload and queues it for the room. A full queue drops the
// message; failures are logged, never returned.
func (n *Notifier) Publish(ctx context.Context, room, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		n.report(&NotificationError{Room: room, Event: event, Err: fmt.Errorf("encode payload: %w", err)})
		return
	}

	j := job{
		ctx:     context.WithoutCancel(ctx),
		channel: n.channel(room),
		msg:     Message{Room: room, Event: event, Payload: raw, SentAt: time.Now().UTC()},
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.stopped {
		n.drop(ctx, j, "notifier stopped")
		return
	}
	select {
	case n.queue <- j:
	default:
		n.drop(ctx, j, "queue full")
	}
}

// Subscribe attaches to a room's channel until ctx ends or the subscription is closed.
func (n *Notifier) Subscribe(ctx context.Context, room string) (Subscription, error) {
	n.mu.RLock()
	stopped := n.stopped
	n.mu.RUnlock()
	if stopped {
		return nil, ErrNotifierStopped
	}
	return n.broker.Subscribe(ctx, n.channel(room))
}

func (n *Notifier) work() {
	defer n.wg.Done()
	for j := range n.queue {
		n.deliver(j)
	}
}

func (n *Notifier) deliver(j job) {
	data, err := json.Marshal(j.msg)
	if err != nil {
		n.report(&NotificationError{Room: j.msg.Room, Event: j.msg.Event, Err: err})
		return
	}

	ctx, cancel := context.WithTimeout(j.ctx, publishTimeout)
	defer cancel()

	attrs := metric.WithAttributes(attribute.String("event", j.msg.Event))
	if err := n.broker.Publish(ctx, j.channel, data); err != nil {
		n.failed.Add(ctx, 1, attrs)
		n.report(&NotificationError{Room: j.msg.Room, Event: j.msg.Event, Err: err})
		return
	}
	n.published.Add(ctx, 1, attrs)
}

func (n *Notifier) drop(ctx context.Context, j job, reason string) {
	n.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("event", j.msg.Event)))
	n.logger.Warn("realtime message dropped",
		zap.String("reason", reason),
		zap.String("room", j.msg.Room),
		zap.String("event", j.msg.Event),
	)
}

func (n *Notifier) report(err *NotificationError) {
	n.logger.Warn("realtime notification failed",
		zap.String("room", err.Room),
		zap.String("event", err.Event),
		zap.Error(err),
	)
}

func (n *Notifier) channel(room string) string {
	if n.opts.ChannelPrefix == "" {
		return room
	}
	return n.opts.ChannelPrefix + ":" + room
}

// RestaurantRoom names the staff room of a restaurant.
func RestaurantRoom(restaurantID string) string {
	return roomRestaurant + ":" + restaurantID
}

// UserRoom names the personal room of a user.
func UserRoom(userID string) string {
	return roomUser + ":" + userID
}

// ParseRoom splits a room name into its kind and id.
func ParseRoom(room string) (kind, id string, err error) {
	kind, id, ok := strings.Cut(room, ":")
	if !ok || id == "" {
		return "", "", fmt.Errorf("malformed room %q", room)
	}
	switch kind {
	case roomRestaurant, roomUser:
		return kind, id, nil
	default:
		return "", "", fmt.Errorf("unknown room kind %q", kind)
	}
}

// IsRestaurantRoom reports whether kind names a restaurant room.
func IsRestaurantRoom(kind string) bool { return kind == roomRestaurant }

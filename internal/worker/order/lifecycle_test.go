package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/tableside/internal/config"
	"github.com/Additional-Code/tableside/internal/domain"
	"github.com/Additional-Code/tableside/internal/messaging"
	ordersvc "github.com/Additional-Code/tableside/internal/service/order"
	"github.com/Additional-Code/tableside/pkg/errorbank"
)

type refresherMock struct {
	mock.Mock
}

func (m *refresherMock) Refresh(ctx context.Context, orderID string) error {
	return m.Called(ctx, orderID).Error(0)
}

func eventMessage(t *testing.T, event ordersvc.LifecycleEvent) messaging.Message {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return messaging.Message{
		Topic:   "orders.events",
		Key:     []byte(event.OrderID),
		Value:   raw,
		Headers: map[string]string{ordersvc.EventHeader: event.Type},
	}
}

func testConfig() config.Config {
	return config.Config{Messaging: config.Messaging{Kafka: config.Kafka{Topic: "orders.events"}}}
}

func TestLifecycleHandlerRefreshesOrder(t *testing.T) {
	refresher := &refresherMock{}
	refresher.On("Refresh", mock.Anything, "order-1").Return(nil).Once()
	core, logs := observer.New(zapcore.InfoLevel)

	reg := NewLifecycleHandler(refresher, zap.New(core), testConfig())
	assert.Equal(t, "orders.events", reg.Topic)

	err := reg.Handler(context.Background(), eventMessage(t, ordersvc.LifecycleEvent{
		Type:    "order:status_changed",
		OrderID: "order-1",
		Status:  domain.StatusConfirmed,
	}))
	require.NoError(t, err)
	refresher.AssertExpectations(t)
	assert.Equal(t, 1, logs.FilterMessage("order lifecycle event processed").Len())
}

func TestLifecycleHandlerSkipsUndecodableMessages(t *testing.T) {
	refresher := &refresherMock{}
	reg := NewLifecycleHandler(refresher, zap.NewNop(), testConfig())

	assert.NoError(t, reg.Handler(context.Background(), messaging.Message{Value: []byte("{not json")}))
	assert.NoError(t, reg.Handler(context.Background(), messaging.Message{Value: []byte(`{"type":"order:created"}`)}))
	refresher.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
}

func TestLifecycleHandlerErrors(t *testing.T) {
	refresher := &refresherMock{}
	refresher.On("Refresh", mock.Anything, "gone").Return(errorbank.NotFound("order not found"))
	refresher.On("Refresh", mock.Anything, "busy").Return(errorbank.Persistence("db down", errorbank.WithCause(errors.New("timeout"))))
	reg := NewLifecycleHandler(refresher, zap.NewNop(), testConfig())

	err := reg.Handler(context.Background(), eventMessage(t, ordersvc.LifecycleEvent{Type: "order:created", OrderID: "gone"}))
	assert.NoError(t, err)

	err = reg.Handler(context.Background(), eventMessage(t, ordersvc.LifecycleEvent{Type: "order:created", OrderID: "busy"}))
	assert.True(t, errorbank.IsKind(err, errorbank.KindPersistence))
}

package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/tableside/internal/cache"
	"github.com/Additional-Code/tableside/internal/catalog"
	"github.com/Additional-Code/tableside/internal/domain"
	"github.com/Additional-Code/tableside/internal/messaging"
	"github.com/Additional-Code/tableside/internal/observability"
	"github.com/Additional-Code/tableside/internal/pricing"
	"github.com/Additional-Code/tableside/internal/realtime"
	repo "github.com/Additional-Code/tableside/internal/repository/order"
	"github.com/Additional-Code/tableside/internal/workflow"
	"github.com/Additional-Code/tableside/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/tableside/service/order")

const maxListLimit = 200

// Store is the transactional order persistence the service drives.
type Store interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repo.Tx) error) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListHistory(ctx context.Context, orderID string) ([]domain.StatusChange, error)
	List(ctx context.Context, f repo.ListFilter) ([]domain.Order, int, error)
}

// Catalog resolves restaurants, menu prices and staff membership.
type Catalog interface {
	RestaurantExists(ctx context.Context, restaurantID string) (bool, error)
	ResolvePrice(ctx context.Context, restaurantID, menuItemID string) (decimal.Decimal, error)
	HasStaffAccess(ctx context.Context, userID, restaurantID string) (bool, error)
}

// Notifier broadcasts committed lifecycle changes. Implementations must not block.
type Notifier interface {
	EmitToRestaurant(ctx context.Context, restaurantID, event string, payload any)
	EmitToUser(ctx context.Context, userID, event string, payload any)
}

// Options tunes the service. Zero values fall back to defaults.
type Options struct {
	NumberRetries int
	ListLimit     int
	CacheTTL      time.Duration
	Now           func() time.Time
	NewID         func() string
}

// ItemInput is one requested menu item.
type ItemInput struct {
	MenuItemID string
	Quantity   int
}

// CreateOrderInput is the customer's order request.
type CreateOrderInput struct {
	RestaurantID    string
	OrderType       string
	Items           []ItemInput
	DeliveryAddress *domain.Address
	TableNumber     string
	PayWithCrypto   bool
}

// PageRequest selects a page of a listing; pages start at 1.
type PageRequest struct {
	Page  int
	Limit int
}

// OrderPage is one page of orders, newest first.
type OrderPage struct {
	Orders []domain.Order
	Total  int
	Page   int
	Limit  int
}

// Service implements the order lifecycle: creation, status transitions,
// cancellation and reads.
type Service struct {
	store     Store
	catalog   Catalog
	notifier  Notifier
	publisher messaging.Publisher
	cache     cache.Store
	logger    *zap.Logger
	opts      Options

	ordersCreated metric.Int64Counter
	transitions   metric.Int64Counter
}

// NewService wires a Service from its collaborators.
func NewService(
	store Store,
	catalog Catalog,
	notifier Notifier,
	publisher messaging.Publisher,
	cacheStore cache.Store,
	logger *zap.Logger,
	opts Options,
) *Service {
	if opts.NumberRetries <= 0 {
		opts.NumberRetries = 3
	}
	if opts.ListLimit <= 0 {
		opts.ListLimit = 50
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = newID
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheStore == nil {
		cacheStore = cache.NewNoopStore()
	}

	meter := observability.Meter("github.com/Additional-Code/tableside/service/order")
	return &Service{
		store:         store,
		catalog:       catalog,
		notifier:      notifier,
		publisher:     publisher,
		cache:         cacheStore,
		logger:        logger,
		opts:          opts,
		ordersCreated: observability.Counter(meter, "orders.created", "Orders committed", logger),
		transitions:   observability.Counter(meter, "orders.status_transitions", "Committed order status changes", logger),
	}
}

// CreateOrder validates and prices the request, then stores the order, its
// items and its first history row in one transaction.
func (s *Service) CreateOrder(ctx context.Context, customerID string, in CreateOrderInput) (*domain.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.CreateOrder", trace.WithAttributes(
		attribute.String("order.restaurant_id", in.RestaurantID),
		attribute.String("order.customer_id", customerID),
	))
	defer span.End()

	if customerID == "" {
		return nil, errorbank.Unauthorized("authentication required")
	}

	orderType, err := validateCreate(in)
	if err != nil {
		return nil, err
	}

	exists, err := s.catalog.RestaurantExists(ctx, in.RestaurantID)
	if err != nil {
		return nil, s.persistenceError(span, "failed to load restaurant", err)
	}
	if !exists {
		return nil, errorbank.NotFound("restaurant not found", errorbank.WithDetail("restaurantId", in.RestaurantID))
	}

	items, subtotal, err := s.priceItems(ctx, in.RestaurantID, in.Items)
	if err != nil {
		if !errorbank.IsKind(err, errorbank.KindValidation) {
			span.RecordError(err)
		}
		return nil, err
	}

	breakdown := pricing.Calculate(subtotal, orderType, in.PayWithCrypto)
	if err := validateAmount(breakdown); err != nil {
		return nil, err
	}

	now := s.opts.Now()
	order := &domain.Order{
		ID:            s.opts.NewID(),
		CustomerID:    customerID,
		RestaurantID:  in.RestaurantID,
		Type:          orderType,
		Status:        workflow.Initial,
		PayWithCrypto: in.PayWithCrypto,
		Pricing:       breakdown,
		Items:         items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	switch orderType {
	case domain.OrderTypeDelivery:
		addr := *in.DeliveryAddress
		order.DeliveryAddress = &addr
	case domain.OrderTypeDineIn:
		order.TableNumber = strings.TrimSpace(in.TableNumber)
	}

	first := domain.StatusChange{
		ID:        s.opts.NewID(),
		OrderID:   order.ID,
		Status:    order.Status,
		ChangedBy: customerID,
		CreatedAt: now,
	}

	for attempt := 1; ; attempt++ {
		err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repo.Tx) error {
			number, err := tx.NextOrderNumber(ctx)
			if err != nil {
				return err
			}
			order.Number = number
			if err := tx.Insert(ctx, order); err != nil {
				return err
			}
			return tx.AppendHistory(ctx, first)
		})
		if err == nil || !errors.Is(err, repo.ErrDuplicateNumber) || attempt >= s.opts.NumberRetries {
			break
		}
		s.logger.Warn("order number collision; retrying", zap.Int("attempt", attempt), zap.Error(err))
	}
	if err != nil {
		order.Number = 0
		return nil, s.persistenceError(span, "failed to create order", err)
	}

	span.SetAttributes(attribute.String("order.id", order.ID), attribute.Int64("order.number", order.Number))
	s.ordersCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("order_type", string(order.Type))))
	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.Int64("order_number", order.Number),
		zap.String("restaurant_id", order.RestaurantID),
		zap.String("total", order.Pricing.Total.StringFixed(2)),
	)

	s.storeInCache(ctx, order)
	s.notifier.EmitToRestaurant(ctx, order.RestaurantID, realtime.EventOrderCreated, order)
	s.publish(ctx, newEvent(realtime.EventOrderCreated, order, "", customerID, nil, now))

	return order, nil
}

// UpdateStatus moves an order along an allowed edge of the workflow. Only
// staff of the order's restaurant and admins may do so.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, actor domain.Actor, rawStatus string, note string) (*domain.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.UpdateStatus", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.next_status", rawStatus),
	))
	defer span.End()

	if actor.ID == "" {
		return nil, errorbank.Unauthorized("authentication required")
	}
	next, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return nil, errorbank.Validation("unknown order status",
			errorbank.WithCause(err),
			errorbank.WithDetail("status", rawStatus),
		)
	}

	existing, err := s.load(ctx, span, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.requireStaff(ctx, actor, existing.RestaurantID); err != nil {
		return nil, err
	}

	var (
		updated  *domain.Order
		previous domain.Status
		now      = s.opts.Now()
	)
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repo.Tx) error {
		current, err := tx.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		previous = current.Status
		if !workflow.CanTransition(current.Status, next) {
			return errorbank.InvalidTransition(
				fmt.Sprintf("cannot move order from %s to %s", current.Status, next),
				errorbank.WithDetail("from", current.Status),
				errorbank.WithDetail("to", next),
				errorbank.WithDetail("allowed", workflow.Next(current.Status)),
			)
		}

		current.Status = next
		current.UpdatedAt = now
		switch next {
		case domain.StatusCompleted:
			if current.CompletedAt == nil {
				current.CompletedAt = &now
			}
		case domain.StatusCancelled:
			if current.CancelledAt == nil {
				current.CancelledAt = &now
			}
		}
		if err := tx.Save(ctx, current, previous); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, domain.StatusChange{
			ID:        s.opts.NewID(),
			OrderID:   current.ID,
			Status:    next,
			ChangedBy: actor.ID,
			Note:      optional(note),
			CreatedAt: now,
		}); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, s.transactionError(span, "failed to update order status", err)
	}
	updated.Items = existing.Items

	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(previous)),
		attribute.String("to", string(next)),
	))
	s.logger.Info("order status changed",
		zap.String("order_id", updated.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(next)),
		zap.String("actor", actor.ID),
	)

	s.evictFromCache(ctx, updated.ID)
	s.notifier.EmitToRestaurant(ctx, updated.RestaurantID, realtime.EventOrderStatusChanged, updated)
	s.notifier.EmitToUser(ctx, updated.CustomerID, realtime.EventOrderStatusChanged, updated)
	s.publish(ctx, newEvent(realtime.EventOrderStatusChanged, updated, previous, actor.ID, optional(note), now))

	return updated, nil
}

// CancelOrder cancels an order that has not completed or been refunded.
// Cancellation is allowed from any such status, not only along workflow edges.
func (s *Service) CancelOrder(ctx context.Context, orderID string, actor domain.Actor, reason string) (*domain.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.CancelOrder", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	if actor.ID == "" {
		return nil, errorbank.Unauthorized("authentication required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errorbank.Validation("cancellation reason is required", errorbank.WithDetail("field", "reason"))
	}

	existing, err := s.load(ctx, span, orderID)
	if err != nil {
		return nil, err
	}
	if actor.ID != existing.CustomerID {
		if err := s.requireStaff(ctx, actor, existing.RestaurantID); err != nil {
			return nil, err
		}
	}

	var (
		updated  *domain.Order
		previous domain.Status
		now      = s.opts.Now()
	)
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repo.Tx) error {
		current, err := tx.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		previous = current.Status
		switch current.Status {
		case domain.StatusCompleted, domain.StatusRefunded, domain.StatusCancelled:
			return errorbank.InvalidState(
				fmt.Sprintf("order is %s and cannot be cancelled", current.Status),
				errorbank.WithDetail("status", current.Status),
			)
		}

		current.Status = domain.StatusCancelled
		current.CancelledAt = &now
		current.UpdatedAt = now
		if err := tx.Save(ctx, current, previous); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, domain.StatusChange{
			ID:        s.opts.NewID(),
			OrderID:   current.ID,
			Status:    domain.StatusCancelled,
			ChangedBy: actor.ID,
			Note:      &reason,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, s.transactionError(span, "failed to cancel order", err)
	}
	updated.Items = existing.Items

	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(previous)),
		attribute.String("to", string(domain.StatusCancelled)),
	))
	s.logger.Info("order cancelled",
		zap.String("order_id", updated.ID),
		zap.String("from", string(previous)),
		zap.String("actor", actor.ID),
	)

	s.evictFromCache(ctx, updated.ID)
	s.notifier.EmitToRestaurant(ctx, updated.RestaurantID, realtime.EventOrderCancelled, updated)
	s.notifier.EmitToUser(ctx, updated.CustomerID, realtime.EventOrderCancelled, updated)
	s.publish(ctx, newEvent(realtime.EventOrderCancelled, updated, previous, actor.ID, &reason, now))

	return updated, nil
}

// Get returns an order visible to the viewer: its customer, staff of its
// restaurant, or an admin.
func (s *Service) Get(ctx context.Context, orderID string, viewer domain.Actor) (*domain.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	order, err := s.load(ctx, span, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.requireViewer(ctx, viewer, order); err != nil {
		return nil, err
	}
	return order, nil
}

// History returns the status trail of an order, oldest first.
func (s *Service) History(ctx context.Context, orderID string, viewer domain.Actor) ([]domain.StatusChange, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.History", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	if _, err := s.Get(ctx, orderID, viewer); err != nil {
		return nil, err
	}
	changes, err := s.store.ListHistory(ctx, orderID)
	if err != nil {
		return nil, s.persistenceError(span, "failed to load order history", err)
	}
	return changes, nil
}

// ListForCustomer pages through the viewer's own orders.
func (s *Service) ListForCustomer(ctx context.Context, viewer domain.Actor, page PageRequest) (*OrderPage, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListForCustomer")
	defer span.End()

	if viewer.ID == "" {
		return nil, errorbank.Unauthorized("authentication required")
	}
	return s.list(ctx, span, repo.ListFilter{CustomerID: viewer.ID}, page)
}

// ListForRestaurant pages through a restaurant's orders, optionally filtered
// by status. Staff of the restaurant and admins only.
func (s *Service) ListForRestaurant(ctx context.Context, viewer domain.Actor, restaurantID, rawStatus string, page PageRequest) (*OrderPage, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListForRestaurant", trace.WithAttributes(attribute.String("order.restaurant_id", restaurantID)))
	defer span.End()

	if viewer.ID == "" {
		return nil, errorbank.Unauthorized("authentication required")
	}
	filter := repo.ListFilter{RestaurantID: restaurantID}
	if rawStatus != "" {
		status, err := domain.ParseStatus(rawStatus)
		if err != nil {
			return nil, errorbank.Validation("unknown order status", errorbank.WithCause(err), errorbank.WithDetail("status", rawStatus))
		}
		filter.Status = status
	}
	if err := s.requireStaff(ctx, viewer, restaurantID); err != nil {
		return nil, err
	}
	return s.list(ctx, span, filter, page)
}

// Refresh reloads an order from the store into the cache.
func (s *Service) Refresh(ctx context.Context, orderID string) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Refresh", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	s.evictFromCache(ctx, orderID)
	_, err := s.load(ctx, span, orderID)
	return err
}

func (s *Service) list(ctx context.Context, span trace.Span, filter repo.ListFilter, page PageRequest) (*OrderPage, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = s.opts.ListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	number := page.Page
	if number <= 0 {
		number = 1
	}
	filter.Limit = limit
	filter.Offset = (number - 1) * limit

	orders, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, s.persistenceError(span, "failed to list orders", err)
	}
	return &OrderPage{Orders: orders, Total: total, Page: number, Limit: limit}, nil
}

// load reads an order through the cache.
func (s *Service) load(ctx context.Context, span trace.Span, orderID string) (*domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, errorbank.Validation("order id is required")
	}

	var cached domain.Order
	err := cache.GetJSON(ctx, s.cache, cacheKey(orderID), &cached)
	if err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.String("order_id", orderID), zap.Error(err))
	}

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found", errorbank.WithDetail("orderId", orderID))
		}
		return nil, s.persistenceError(span, "failed to load order", err)
	}
	s.storeInCache(ctx, order)
	return order, nil
}

func (s *Service) priceItems(ctx context.Context, restaurantID string, in []ItemInput) ([]domain.LineItem, decimal.Decimal, error) {
	items := make([]domain.LineItem, 0, len(in))
	subtotal := decimal.Zero
	for i, it := range in {
		price, err := s.catalog.ResolvePrice(ctx, restaurantID, it.MenuItemID)
		switch {
		case errors.Is(err, catalog.ErrMenuItemNotFound), errors.Is(err, catalog.ErrMenuItemUnavailable):
			return nil, decimal.Zero, errorbank.Validation(err.Error(),
				errorbank.WithCause(err),
				errorbank.WithDetail("field", fmt.Sprintf("items[%d].menuItemId", i)),
				errorbank.WithDetail("menuItemId", it.MenuItemID),
			)
		case err != nil:
			return nil, decimal.Zero, errorbank.Persistence("failed to resolve menu price", errorbank.WithCause(err))
		}

		line := price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(line)
		items = append(items, domain.LineItem{
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			UnitPrice:  price,
			LineTotal:  line,
		})
	}
	return items, subtotal, nil
}

func (s *Service) requireStaff(ctx context.Context, actor domain.Actor, restaurantID string) error {
	ok, err := s.isStaff(ctx, actor, restaurantID)
	if err != nil {
		return errorbank.Persistence("failed to check restaurant access", errorbank.WithCause(err))
	}
	if !ok {
		return errorbank.Forbidden("restaurant staff access required", errorbank.WithDetail("restaurantId", restaurantID))
	}
	return nil
}

func (s *Service) requireViewer(ctx context.Context, viewer domain.Actor, order *domain.Order) error {
	if viewer.ID == "" {
		return errorbank.Unauthorized("authentication required")
	}
	if viewer.ID == order.CustomerID {
		return nil
	}
	return s.requireStaff(ctx, viewer, order.RestaurantID)
}

func (s *Service) isStaff(ctx context.Context, actor domain.Actor, restaurantID string) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}
	if actor.Role != domain.RoleRestaurantOwner {
		return false, nil
	}
	return s.catalog.HasStaffAccess(ctx, actor.ID, restaurantID)
}

// transactionError passes application errors raised inside a transaction
// through and maps store errors onto their kinds.
func (s *Service) transactionError(span trace.Span, msg string, err error) error {
	var appErr *errorbank.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repo.ErrNotFound):
		return errorbank.NotFound("order not found")
	case errors.Is(err, repo.ErrStaleStatus):
		return errorbank.Conflict("order changed concurrently; reload and retry", errorbank.WithCause(err))
	default:
		return s.persistenceError(span, msg, err)
	}
}

func (s *Service) persistenceError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	s.logger.Error(msg, zap.Error(err))
	return errorbank.Persistence(msg, errorbank.WithCause(err))
}

func (s *Service) storeInCache(ctx context.Context, order *domain.Order) {
	if err := cache.SetJSON(ctx, s.cache, cacheKey(order.ID), order, s.opts.CacheTTL); err != nil {
		s.logger.Warn("orders cache write failed", zap.String("order_id", order.ID), zap.Error(err))
	}
}

// evictFromCache drops a cached order after a committed change. Concurrent
// updates may finish in any order, so the next read repopulates from the store.
func (s *Service) evictFromCache(ctx context.Context, orderID string) {
	if err := s.cache.Delete(ctx, cacheKey(orderID)); err != nil {
		s.logger.Warn("orders cache evict failed", zap.String("order_id", orderID), zap.Error(err))
	}
}

func cacheKey(id string) string {
	return "orders:" + id
}

func optional(note string) *string {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil
	}
	return &note
}

// newID issues time-ordered UUIDs so ids sort by creation.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

package order

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/tableside/internal/dto"
	"github.com/Additional-Code/tableside/internal/presentation/http/response"
	service "github.com/Additional-Code/tableside/internal/service/order"
	"github.com/Additional-Code/tableside/internal/transport/http/middleware"
	"github.com/Additional-Code/tableside/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/tableside/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the order routes behind token authentication.
func Register(e *echo.Echo, h *Handler, auth *middleware.Authenticator) {
	api := e.Group("/api", auth.Middleware())

	orders := api.Group("/orders")
	orders.POST("", h.create)
	orders.GET("", h.listMine)
	orders.GET("/:id", h.getByID)
	orders.GET("/:id/history", h.history)
	orders.PATCH("/:id/status", h.updateStatus)
	orders.POST("/:id/cancel", h.cancel)

	api.GET("/restaurants/:restaurantId/orders", h.listForRestaurant)
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)
	actor, _ := middleware.CurrentUser(c)

	var payload dto.CreateOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(
		attribute.String("restaurant.id", payload.RestaurantID),
		attribute.String("order.type", payload.OrderType),
	))
	defer span.End()

	order, err := h.svc.CreateOrder(ctx, actor.ID, toCreateInput(payload))
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)
	actor, _ := middleware.CurrentUser(c)

	ctx, span := startOrderSpan(c, "orders.getByID")
	defer span.End()

	order, err := h.svc.Get(ctx, c.Param("id"), actor)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) history(c echo.Context) error {
	b := response.New(c)
	actor, _ := middleware.CurrentUser(c)

	ctx, span := startOrderSpan(c, "orders.history")
	defer span.End()

	changes, err := h.svc.History(ctx, c.Param("id"), actor)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.NewHistoryResponse(changes)).Build()
}

func (h *Handler) updateStatus(c echo.Context) error {
	b := response.New(c)
	actor, _ := middleware.CurrentUser(c)

	var payload dto.UpdateStatusRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := startOrderSpan(c, "orders.updateStatus")
	span.SetAttributes(attribute.String("order.status", payload.Status))
	defer span.End()

	order, err := h.svc.UpdateStatus(ctx, c.Param("id"), actor, payload.Status, payload.Note)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) cancel(c echo.Context) error {
	b := response.New(c)
	actor, _ := middleware.CurrentUser(c)

	var payload dto.CancelOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := startOrderSpan(c, "orders.cancel")
	defer span.End()

	order, err := h.svc.CancelOrder(ctx, c.Param("id"), actor, payload.Reason)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) listMine(c echo.Context) error {
	b := response.New(c)
	actor, _ := middleware.CurrentUser(c)

	page, err := pageRequest(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.listMine")
	defer span.End()

	result, err := h.svc.ListForCustomer(ctx, actor, page)
	if err != nil {
		return b.WithError(err).Build()
	}

	return withPage(b, result).Build()
}

func (h *Handler) listForRestaurant(c echo.Context) error {
	b := response.New(c)
	actor, _ := middleware.CurrentUser(c)

	page, err := pageRequest(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	restaurantID := c.Param("restaurantId")
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.listForRestaurant",
		trace.WithAttributes(attribute.String("restaurant.id", restaurantID)))
	defer span.End()

	result, err := h.svc.ListForRestaurant(ctx, actor, restaurantID, c.QueryParam("status"), page)
	if err != nil {
		return b.WithError(err).Build()
	}

	return withPage(b, result).Build()
}

func startOrderSpan(c echo.Context, name string) (context.Context, trace.Span) {
	return httpTracer.Start(c.Request().Context(), name,
		trace.WithAttributes(attribute.String("order.id", c.Param("id"))))
}

func withPage(b *response.Builder, page *service.OrderPage) *response.Builder {
	return b.WithData(dto.NewOrderListResponse(page.Orders)).WithPage(page.Page, page.Limit, page.Total)
}

func pageRequest(c echo.Context) (service.PageRequest, error) {
	var req service.PageRequest
	fields := errorbank.FieldErrors{}
	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields.Add("page", "must be a positive integer")
		}
		req.Page = n
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields.Add("limit", "must be a positive integer")
		}
		req.Limit = n
	}
	if err := fields.Err("invalid pagination"); err != nil {
		return service.PageRequest{}, err
	}
	return req, nil
}

func toCreateInput(payload dto.CreateOrderRequest) service.CreateOrderInput {
	in := service.CreateOrderInput{
		RestaurantID:    payload.RestaurantID,
		OrderType:       payload.OrderType,
		DeliveryAddress: payload.DeliveryAddress,
		TableNumber:     payload.TableNumber,
		PayWithCrypto:   payload.PayWithCrypto,
	}
	for _, item := range payload.Items {
		in.Items = append(in.Items, service.ItemInput{MenuItemID: item.MenuItemID, Quantity: item.Quantity})
	}
	return in
}

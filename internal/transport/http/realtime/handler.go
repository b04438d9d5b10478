package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/tableside/internal/domain"
	"github.com/Additional-Code/tableside/internal/presentation/http/response"
	"github.com/Additional-Code/tableside/internal/realtime"
	"github.com/Additional-Code/tableside/internal/transport/http/middleware"
	"github.com/Additional-Code/tableside/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/tableside/transport/http/realtime")

// Subscriber attaches to a room.
type Subscriber interface {
	Subscribe(ctx context.Context, room string) (realtime.Subscription, error)
}

// StaffChecker reports whether a user operates a restaurant.
type StaffChecker interface {
	HasStaffAccess(ctx context.Context, userID, restaurantID string) (bool, error)
}

// Handler streams room events to browsers as Server-Sent Events.
type Handler struct {
	subs      Subscriber
	staff     StaffChecker
	heartbeat time.Duration
	logger    *zap.Logger
}

// NewHandler constructs a realtime Handler.
func NewHandler(subs Subscriber, staff StaffChecker, heartbeat time.Duration, logger *zap.Logger) *Handler {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{subs: subs, staff: staff, heartbeat: heartbeat, logger: logger}
}

// Register mounts the stream route behind token authentication.
func Register(e *echo.Echo, h *Handler, auth *middleware.Authenticator) {
	e.GET("/api/realtime/:room", h.stream, auth.Middleware())
}

func (h *Handler) stream(c echo.Context) error {
	actor, _ := middleware.CurrentUser(c)
	room, err := url.PathUnescape(c.Param("room"))
	if err != nil {
		return response.New(c).WithError(errorbank.Validation("malformed room", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "realtime.stream", trace.WithAttributes(
		attribute.String("realtime.room", room),
		attribute.String("user.id", actor.ID),
	))
	defer span.End()

	if err := h.authorize(ctx, actor, room); err != nil {
		return response.New(c).WithError(err).Build()
	}

	sub, err := h.subs.Subscribe(ctx, room)
	if err != nil {
		if errors.Is(err, realtime.ErrNotifierStopped) {
			return response.New(c).WithStatus(http.StatusServiceUnavailable).WithError(errorbank.Internal("realtime unavailable", errorbank.WithCause(err))).Build()
		}
		span.RecordError(err)
		return response.New(c).WithError(errorbank.Internal("subscribe failed", errorbank.WithCause(err))).Build()
	}
	defer sub.Close()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintf(w, ": subscribed %s\n\n", room); err != nil {
		return nil
	}
	w.Flush()

	h.logger.Debug("realtime subscriber connected", zap.String("room", room), zap.String("user_id", actor.ID))
	defer h.logger.Debug("realtime subscriber disconnected", zap.String("room", room), zap.String("user_id", actor.ID))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case raw, ok := <-sub.Messages():
			if !ok {
				return nil
			}
			var msg realtime.Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				h.logger.Warn("skipping malformed realtime message", zap.String("room", room), zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Payload); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

// authorize admits staff and admins to restaurant rooms and users to their own room.
func (h *Handler) authorize(ctx context.Context, actor domain.Actor, room string) error {
	if actor.ID == "" {
		return errorbank.Unauthorized("authentication required")
	}
	kind, id, err := realtime.ParseRoom(room)
	if err != nil {
		return errorbank.Validation("unknown room", errorbank.WithCause(err), errorbank.WithDetail("room", room))
	}
	if actor.IsAdmin() {
		return nil
	}

	if !realtime.IsRestaurantRoom(kind) {
		if id != actor.ID {
			return errorbank.Forbidden("cannot join another user's room")
		}
		return nil
	}

	if actor.Role != domain.RoleRestaurantOwner {
		return errorbank.Forbidden("restaurant staff access required", errorbank.WithDetail("restaurantId", id))
	}
	ok, err := h.staff.HasStaffAccess(ctx, actor.ID, id)
	if err != nil {
		return errorbank.Persistence("failed to check restaurant access", errorbank.WithCause(err))
	}
	if !ok {
		return errorbank.Forbidden("restaurant staff access required", errorbank.WithDetail("restaurantId", id))
	}
	return nil
}

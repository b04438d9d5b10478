package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/Additional-Code/tableside/internal/cache"
	"github.com/Additional-Code/tableside/internal/catalog"
	"github.com/Additional-Code/tableside/internal/config"
	"github.com/Additional-Code/tableside/internal/database"
	"github.com/Additional-Code/tableside/internal/dto"
	"github.com/Additional-Code/tableside/internal/entity"
	"github.com/Additional-Code/tableside/internal/migration/migrationtest"
	"github.com/Additional-Code/tableside/internal/realtime"
	repo "github.com/Additional-Code/tableside/internal/repository/order"
	service "github.com/Additional-Code/tableside/internal/service/order"
	"github.com/Additional-Code/tableside/internal/transport/http/middleware"
)

const secret = "handler-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Kind    string         `json:"kind"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
	Meta map[string]any `json:"meta"`
}

func seed(t *testing.T, db *bun.DB) {
	t.Helper()
	ctx := context.Background()

	_, err := db.NewInsert().Model(&entity.Restaurant{ID: "rest-1", Name: "Mama Put", Slug: "mama-put", IsActive: true}).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&entity.MenuItem{
		ID: "jollof", RestaurantID: "rest-1", Name: "Jollof rice",
		Price: decimal.RequireFromString("12.50"), IsAvailable: true,
	}).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&entity.RestaurantStaff{ID: "rs-1", UserID: "owner-1", RestaurantID: "rest-1", Role: "owner"}).Exec(ctx)
	require.NoError(t, err)
}

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	db := migrationtest.SQLite(t)
	seed(t, db)

	logger := zap.NewNop()
	store := cache.NewMemoryStore(time.Minute)
	notifier := realtime.NewNotifier(realtime.NewMemoryBroker(), realtime.Options{}, logger)
	notifier.Start()
	t.Cleanup(func() { _ = notifier.Stop(context.Background()) })

	svc := service.NewService(
		repo.NewRepository(database.Single(db)),
		catalog.NewRepository(db, store, time.Minute, logger),
		notifier,
		nil,
		store,
		logger,
		service.Options{},
	)

	e := echo.New()
	auth := middleware.NewAuthenticator(config.Config{Auth: config.Auth{JWTSecret: secret}})
	Register(e, NewHandler(svc), auth)
	return e
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	claims := middleware.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func call(t *testing.T, e *echo.Echo, method, target, bearer, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func createDelivery(t *testing.T, e *echo.Echo, customer string) dto.OrderResponse {
	t.Helper()
	body := `{
		"restaurantId": "rest-1",
		"orderType": "delivery",
		"items": [{"menuItemId": "jollof", "quantity": 2}],
		"deliveryAddress": {"line1": "4 Allen Ave", "city": "Lagos"}
	}`
	code, env := call(t, e, http.MethodPost, "/api/orders", customer, body)
	require.Equal(t, http.StatusCreated, code, env.Error.Message)

	var order dto.OrderResponse
	require.NoError(t, json.Unmarshal(env.Data, &order))
	return order
}

func TestCreateOrder(t *testing.T) {
	e := newServer(t)
	customer := token(t, "cust-1", "customer")

	order := createDelivery(t, e, customer)
	assert.Equal(t, "PENDING", order.Status)
	assert.Equal(t, "cust-1", order.CustomerID)
	assert.Positive(t, order.OrderNumber)
	assert.Equal(t, "25.00", order.Pricing.Subtotal)
	assert.Equal(t, "1.88", order.Pricing.TaxAmount)
	assert.Equal(t, "5.00", order.Pricing.DeliveryFee)
	assert.Equal(t, "33.38", order.Pricing.Total)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "12.50", order.Items[0].UnitPrice)
	require.NotNil(t, order.DeliveryAddress)
	assert.Equal(t, "4 Allen Ave", order.DeliveryAddress.Line1)
}

func TestCreateOrderRejectsInvalidInput(t *testing.T) {
	e := newServer(t)
	customer := token(t, "cust-1", "customer")

	code, env := call(t, e, http.MethodPost, "/api/orders", customer, `{"restaurantId":"rest-1","orderType":"pickup","items":[]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", env.Error.Kind)
	assert.Contains(t, env.Error.Details, "fields")

	code, env = call(t, e, http.MethodPost, "/api/orders", customer, `{"restaurantId":`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "bad_request", env.Error.Kind)

	code, _ = call(t, e, http.MethodPost, "/api/orders", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestGetOrderVisibility(t *testing.T) {
	e := newServer(t)
	order := createDelivery(t, e, token(t, "cust-1", "customer"))
	target := "/api/orders/" + order.ID

	code, _ := call(t, e, http.MethodGet, target, token(t, "cust-1", "customer"), "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = call(t, e, http.MethodGet, target, token(t, "owner-1", "restaurant_owner"), "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = call(t, e, http.MethodGet, target, token(t, "admin-1", "admin"), "")
	assert.Equal(t, http.StatusOK, code)

	code, env := call(t, e, http.MethodGet, target, token(t, "cust-2", "customer"), "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", env.Error.Kind)

	code, env = call(t, e, http.MethodGet, "/api/orders/missing", token(t, "admin-1", "admin"), "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", env.Error.Kind)
}

func TestStatusLifecycle(t *testing.T) {
	e := newServer(t)
	customer := token(t, "cust-1", "customer")
	owner := token(t, "owner-1", "restaurant_owner")
	order := createDelivery(t, e, customer)
	base := "/api/orders/" + order.ID

	code, env := call(t, e, http.MethodPatch, base+"/status", customer, `{"status":"CONFIRMED"}`)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = call(t, e, http.MethodPatch, base+"/status", owner, `{"status":"confirmed","note":"on it"}`)
	require.Equal(t, http.StatusOK, code, env.Error.Message)
	var updated dto.OrderResponse
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "CONFIRMED", updated.Status)

	code, env = call(t, e, http.MethodPatch, base+"/status", owner, `{"status":"COMPLETED"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_transition", env.Error.Kind)

	code, env = call(t, e, http.MethodPatch, base+"/status", owner, `{"status":"EATEN"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", env.Error.Kind)

	code, env = call(t, e, http.MethodPost, base+"/cancel", customer, `{"reason":"  "}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = call(t, e, http.MethodPost, base+"/cancel", customer, `{"reason":"changed my mind"}`)
	require.Equal(t, http.StatusOK, code, env.Error.Message)
	var cancelled dto.OrderResponse
	require.NoError(t, json.Unmarshal(env.Data, &cancelled))
	assert.Equal(t, "CANCELLED", cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	code, env = call(t, e, http.MethodPost, base+"/cancel", customer, `{"reason":"again"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_state", env.Error.Kind)

	code, env = call(t, e, http.MethodGet, base+"/history", customer, "")
	require.Equal(t, http.StatusOK, code)
	var history []dto.StatusChangeResponse
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 3)
	assert.Equal(t, "PENDING", history[0].Status)
	assert.Equal(t, "CONFIRMED", history[1].Status)
	require.NotNil(t, history[1].Note)
	assert.Equal(t, "on it", *history[1].Note)
	assert.Equal(t, "CANCELLED", history[2].Status)
	require.NotNil(t, history[2].Note)
	assert.Equal(t, "changed my mind", *history[2].Note)
}

func TestListings(t *testing.T) {
	e := newServer(t)
	customer := token(t, "cust-1", "customer")
	owner := token(t, "owner-1", "restaurant_owner")
	first := createDelivery(t, e, customer)
	second := createDelivery(t, e, customer)
	createDelivery(t, e, token(t, "cust-2", "customer"))

	code, env := call(t, e, http.MethodGet, "/api/orders", customer, "")
	require.Equal(t, http.StatusOK, code)
	var mine []dto.OrderResponse
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	code, env = call(t, e, http.MethodGet, "/api/restaurants/rest-1/orders?limit=1&page=2", owner, "")
	require.Equal(t, http.StatusOK, code)
	var page []dto.OrderResponse
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].ID)
	assert.EqualValues(t, 3, env.Meta["total"])
	assert.EqualValues(t, 2, env.Meta["page"])
	assert.EqualValues(t, 1, env.Meta["limit"])

	code, env = call(t, e, http.MethodGet, "/api/restaurants/rest-1/orders?status=cancelled", owner, "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, env.Meta["total"])

	code, _ = call(t, e, http.MethodGet, "/api/restaurants/rest-1/orders", customer, "")
	assert.Equal(t, http.StatusForbidden, code)

	code, env = call(t, e, http.MethodGet, "/api/restaurants/rest-1/orders?page=0", owner, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", env.Error.Kind)
}

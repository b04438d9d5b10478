package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/tableside/internal/config"
)

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	e := NewEcho(config.Config{}, nil, zap.NewNop())

	rec := serve(e, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	e := NewEcho(config.Config{}, nil, zap.NewNop())

	rec := serve(e, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":{"kind":"not_found","message":"Not Found"}}`, rec.Body.String())
}

func TestUnexpectedErrorsAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	e := NewEcho(config.Config{}, nil, zap.New(core))
	e.GET("/boom", func(echo.Context) error { return errors.New("boom") })
	e.GET("/panic", func(echo.Context) error { panic("kaboom") })

	rec := serve(e, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"internal"`)
	assert.Equal(t, 1, logs.FilterMessage("http request failed").Len())

	rec = serve(e, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/tableside/internal/config"
	"github.com/Additional-Code/tableside/internal/domain"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func claimsFor(sub, role string) Claims {
	return Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "tableside-auth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newAuth() *Authenticator {
	return NewAuthenticator(config.Config{Auth: config.Auth{JWTSecret: secret, Issuer: "tableside-auth"}})
}

func serve(t *testing.T, a *Authenticator, target, header string) (*httptest.ResponseRecorder, domain.Actor) {
	t.Helper()
	e := echo.New()
	var seen domain.Actor
	e.GET("/me", func(c echo.Context) error {
		seen, _ = CurrentUser(c)
		return c.NoContent(http.StatusNoContent)
	}, a.Middleware())

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddlewareAcceptsBearerToken(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), claimsFor("user-1", "restaurant_owner"))

	rec, actor := serve(t, newAuth(), "/me", "Bearer "+token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, domain.Actor{ID: "user-1", Role: domain.RoleRestaurantOwner}, actor)
}

func TestMiddlewareAcceptsQueryToken(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), claimsFor("user-2", "customer"))

	rec, actor := serve(t, newAuth(), "/me?access_token="+token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-2", actor.ID)
}

func TestMiddlewareRejects(t *testing.T) {
	expired := claimsFor("user-1", "customer")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongIssuer := claimsFor("user-1", "customer")
	wrongIssuer.Issuer = "someone-else"

	tests := map[string]string{
		"missing":      "",
		"garbage":      "Bearer not-a-token",
		"wrong secret": "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), claimsFor("user-1", "customer")),
		"wrong alg":    "Bearer " + sign(t, jwt.SigningMethodHS512, []byte(secret), claimsFor("user-1", "customer")),
		"expired":      "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), expired),
		"issuer":       "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), wrongIssuer),
		"no subject":   "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), claimsFor("", "customer")),
		"unknown role": "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), claimsFor("user-1", "chef")),
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			rec, _ := serve(t, newAuth(), "/me", header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), `"kind":"unauthorized"`)
		})
	}
}

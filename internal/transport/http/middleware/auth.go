package middleware

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/tableside/internal/config"
	"github.com/Additional-Code/tableside/internal/domain"
	"github.com/Additional-Code/tableside/internal/presentation/http/response"
	"github.com/Additional-Code/tableside/pkg/errorbank"
)

const (
	actorKey        = "tableside.actor"
	bearerPrefix    = "Bearer "
	tokenQueryParam = "access_token"
)

// Claims is the access token payload: the user id in sub and a platform role.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 access tokens issued by the identity service.
type Authenticator struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewAuthenticator builds an Authenticator from the auth settings.
func NewAuthenticator(cfg config.Config) *Authenticator {
	return &Authenticator{
		secret: []byte(cfg.Auth.JWTSecret),
		issuer: cfg.Auth.Issuer,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Middleware rejects requests without a valid token and stores the caller
// on the context. Browsers' EventSource cannot send headers, so the token may
// also arrive as the access_token query parameter.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFrom(c)
			if raw == "" {
				return response.New(c).WithError(errorbank.Unauthorized("missing access token")).Build()
			}
			actor, err := a.Verify(raw)
			if err != nil {
				return response.New(c).WithError(errorbank.Unauthorized("invalid access token", errorbank.WithCause(err))).Build()
			}
			c.Set(actorKey, actor)
			return next(c)
		}
	}
}

// Verify parses a token and returns the caller it identifies.
func (a *Authenticator) Verify(raw string) (domain.Actor, error) {
	claims := &Claims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return domain.Actor{}, err
	}
	if claims.Subject == "" {
		return domain.Actor{}, errors.New("token has no subject")
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, true) {
		return domain.Actor{}, errors.New("unexpected token issuer")
	}

	role := domain.Role(strings.ToLower(claims.Role))
	switch role {
	case domain.RoleCustomer, domain.RoleRestaurantOwner, domain.RoleAdmin:
	default:
		return domain.Actor{}, errors.New("unknown role")
	}
	return domain.Actor{ID: claims.Subject, Role: role}, nil
}

// CurrentUser returns the authenticated caller.
func CurrentUser(c echo.Context) (domain.Actor, bool) {
	actor, ok := c.Get(actorKey).(domain.Actor)
	return actor, ok
}

func tokenFrom(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	}
	return c.QueryParam(tokenQueryParam)
}

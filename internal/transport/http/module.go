package http

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/tableside/internal/transport/http/middleware"
	ordertransport "github.com/Additional-Code/tableside/internal/transport/http/order"
	realtimetransport "github.com/Additional-Code/tableside/internal/transport/http/realtime"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	fx.Provide(middleware.NewAuthenticator),
	ordertransport.Module,
	realtimetransport.Module,
)

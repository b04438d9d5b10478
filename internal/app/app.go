package app

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/Additional-Code/tableside/internal/cache"
	"github.com/Additional-Code/tableside/internal/catalog"
	"github.com/Additional-Code/tableside/internal/config"
	"github.com/Additional-Code/tableside/internal/database"
	"github.com/Additional-Code/tableside/internal/logger"
	"github.com/Additional-Code/tableside/internal/messaging"
	"github.com/Additional-Code/tableside/internal/observability"
	"github.com/Additional-Code/tableside/internal/realtime"
	repositoryorder "github.com/Additional-Code/tableside/internal/repository/order"
	grpcserver "github.com/Additional-Code/tableside/internal/server/grpc"
	httpserver "github.com/Additional-Code/tableside/internal/server/http"
	serviceorder "github.com/Additional-Code/tableside/internal/service/order"
	transporthttp "github.com/Additional-Code/tableside/internal/transport/http"
	"github.com/Additional-Code/tableside/internal/worker"
	workerorder "github.com/Additional-Code/tableside/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	catalog.Module,
	realtime.Module,
	repositoryorder.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP API, the realtime stream and the gRPC health endpoint
// on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring.
var Module = HTTP

// Logging routes fx's own lifecycle events through the application logger.
var Logging = fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: logger.Named("fx")}
})

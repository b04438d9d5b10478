package order

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tableside/internal/cache"
	"github.com/Additional-Code/tableside/internal/catalog"
	"github.com/Additional-Code/tableside/internal/config"
	"github.com/Additional-Code/tableside/internal/messaging"
	"github.com/Additional-Code/tableside/internal/realtime"
	repo "github.com/Additional-Code/tableside/internal/repository/order"
)

// Module provides the order service to Fx.
var Module = fx.Provide(New)

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Catalog    *catalog.Repository
	Notifier   *realtime.Notifier
	Publisher  messaging.Publisher
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
}

// New adapts the container's dependencies to NewService.
func New(p Params) *Service {
	return NewService(p.Repository, p.Catalog, p.Notifier, p.Publisher, p.Cache, p.Logger, Options{
		NumberRetries: p.Config.Orders.NumberRetries,
		ListLimit:     p.Config.Orders.ListLimit,
		CacheTTL:      p.Config.Cache.DefaultTTL,
	})
}

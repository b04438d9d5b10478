package realtime

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tableside/internal/catalog"
	"github.com/Additional-Code/tableside/internal/config"
	"github.com/Additional-Code/tableside/internal/realtime"
)

// Module wires the realtime stream handler.
var Module = fx.Options(
	fx.Provide(func(n *realtime.Notifier, c *catalog.Repository, cfg config.Config, logger *zap.Logger) *Handler {
		return NewHandler(n, c, cfg.Realtime.Heartbeat, logger)
	}),
	fx.Invoke(Register),
)

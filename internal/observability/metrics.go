package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

// Meter returns the named meter from the global provider. Instruments made
// before the provider is installed forward to it once it is.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Counter creates an int64 counter, falling back to a no-op instrument when
// the provider rejects it.
func Counter(meter metric.Meter, name, desc string, logger *zap.Logger) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		if logger != nil {
			logger.Warn("create counter failed", zap.String("name", name), zap.Error(err))
		}
		return noop.Int64Counter{}
	}
	return c
}

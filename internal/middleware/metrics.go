package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the HTTP request metrics of one fiber app. Each app owns
// its registry so several apps can live in one process.
type Metrics struct {
	prom     *fiberprometheus.FiberPrometheus
	registry *prometheus.Registry
}

// InitMetrics creates the request metrics for serviceName.
func InitMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	return &Metrics{
		prom:     fiberprometheus.NewWithRegistry(reg, serviceName, "http", "", nil),
		registry: reg,
	}
}

// MetricsMiddleware records every request passing through.
func MetricsMiddleware(m *Metrics) fiber.Handler {
	return m.prom.Middleware
}

// Handler serves the app's request metrics together with the process-wide
// domain metrics.
func (m *Metrics) Handler() fiber.Handler {
	gatherers := prometheus.Gatherers{m.registry, prometheus.DefaultGatherer}
	return adaptor.HTTPHandler(promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))
}

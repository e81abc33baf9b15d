// Package proxy forwards /api requests from the web client to the backend
// host, adding the CORS headers browsers need.
package proxy

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"damara/internal/middleware"
	"damara/internal/observability"

	"github.com/gofiber/fiber/v2"
	fiberproxy "github.com/gofiber/fiber/v2/middleware/proxy"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/valyala/fasthttp"
)

const (
	allowMethods = "GET,OPTIONS,PATCH,DELETE,POST,PUT"
	allowHeaders = "X-CSRF-Token, X-Requested-With, Accept, Accept-Version, Content-Length, " +
		"Content-MD5, Content-Type, Date, X-Api-Version, Authorization, x-user-id"

	defaultUpstreamTimeout = 30 * time.Second
)

// Request headers that describe the client connection rather than the request.
var droppedRequestHeaders = []string{
	fiber.HeaderHost,
	fiber.HeaderConnection,
	fiber.HeaderContentLength,
	fiber.HeaderTransferEncoding,
}

// Handler forwards requests to one backend.
type Handler struct {
	backend string
	client  *fasthttp.Client
}

// Option configures a Handler.
type Option func(*Handler)

// WithTimeout bounds the upstream read and write time.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.client.ReadTimeout = d
		h.client.WriteTimeout = d
	}
}

// New creates a Handler for backendURL, e.g. "https://api.example.com".
func New(backendURL string, opts ...Option) *Handler {
	h := &Handler{
		backend: strings.TrimRight(backendURL, "/"),
		client: &fasthttp.Client{
			ReadTimeout:              defaultUpstreamTimeout,
			WriteTimeout:             defaultUpstreamTimeout,
			NoDefaultUserAgentHeader: true,
			DisablePathNormalizing:   true,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Target builds the upstream URL for path (relative to /api) and the raw
// query string.
func (h *Handler) Target(path, rawQuery string) string {
	target := h.backend + "/api/" + strings.TrimLeft(path, "/")
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return target
}

// Forward is mounted at /api/*.
func (h *Handler) Forward(c *fiber.Ctx) error {
	setCORS(c)
	if c.Method() == fiber.MethodOptions {
		return c.SendStatus(fiber.StatusOK)
	}

	method := c.Method()
	target := h.Target(c.Params("*"), string(c.Request().URI().QueryString()))

	req := c.Request()
	for _, name := range droppedRequestHeaders {
		req.Header.Del(name)
	}
	if method == fiber.MethodGet || method == fiber.MethodDelete {
		req.ResetBody()
	}

	start := time.Now()
	err := fiberproxy.Do(c, target, h.client)
	observability.ProxyUpstreamDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.ProxyUpstreamRequests.WithLabelValues(method, "error").Inc()
		observability.Logger.ErrorContext(c.UserContext(), "proxy request failed",
			"method", method, "target", target, "error", err)
		c.Response().Reset()
		setCORS(c)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "proxy request failed",
			"message": err.Error(),
		})
	}

	status := c.Response().StatusCode()
	observability.ProxyUpstreamRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	stripUpstreamCORS(&c.Response().Header)
	setCORS(c)
	return nil
}

func setCORS(c *fiber.Ctx) {
	origin := c.Get(fiber.HeaderOrigin)
	if origin == "" {
		origin = "*"
	}
	c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
	c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
	c.Set(fiber.HeaderAccessControlAllowMethods, allowMethods)
	c.Set(fiber.HeaderAccessControlAllowHeaders, allowHeaders)
}

var corsPrefix = []byte("access-control-")

func stripUpstreamCORS(h *fasthttp.ResponseHeader) {
	var names []string
	h.VisitAll(func(key, _ []byte) {
		if len(key) >= len(corsPrefix) && bytes.EqualFold(key[:len(corsPrefix)], corsPrefix) {
			names = append(names, string(key))
		}
	})
	for _, name := range names {
		h.Del(name)
	}
}

// NewApp builds the proxy service: the forwarder under /api plus health
// and metrics endpoints.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Damara proxy",
		DisableStartupMessage: true,
	})
	metrics := middleware.InitMetrics("damara-proxy")

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.MetricsMiddleware(metrics))
	app.Use(middleware.StructuredLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "backend": h.backend})
	})
	app.Get("/metrics", metrics.Handler())
	app.All("/api/*", h.Forward)
	return app
}

package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-checker/internal/observability"
)

// Pinger is a dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Verifier checks an outbound transport.
type Verifier interface {
	Verify(ctx context.Context) error
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    Pinger
	redis       Pinger
	mailer      Verifier
	metrics     *observability.Metrics
}

// HealthDependencies bundles probe targets. Redis and mailer are optional
// and only degrade readiness.
type HealthDependencies struct {
	ServiceName string
	Version     string
	Postgres    Pinger
	Redis       Pinger
	Mailer      Verifier
	Metrics     *observability.Metrics
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{
		serviceName: deps.ServiceName,
		version:     deps.Version,
		postgres:    deps.Postgres,
		redis:       deps.Redis,
		mailer:      deps.Mailer,
		metrics:     deps.Metrics,
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready fails only when Postgres is unreachable.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true
	degraded := false

	if err := h.postgres.Ping(ctx); err != nil {
		depStatus["postgres"] = err.Error()
		ready = false
	} else {
		depStatus["postgres"] = "ok"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			depStatus["redis"] = err.Error()
			degraded = true
		} else {
			depStatus["redis"] = "ok"
		}
	}

	if h.mailer != nil {
		if err := h.mailer.Verify(ctx); err != nil {
			depStatus["smtp"] = err.Error()
			degraded = true
		} else {
			depStatus["smtp"] = "ok"
		}
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": depStatus,
			},
		})
	}
	status := "ready"
	if degraded {
		status = "degraded"
	}
	return c.JSON(fiber.Map{"status": status, "dependencies": depStatus})
}

// Metrics dumps in-memory counters.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.metrics.Snapshot())
}

package handler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

// Version is reported by / and /health
const Version = "2.0.0"

const healthProbeTimeout = 2 * time.Second

// HealthCheck probes one backing service
type HealthCheck func(ctx context.Context) error

// HealthHandler reports service info and dependency health
type HealthHandler struct {
	checks map[string]HealthCheck
	now    func() time.Time
}

// NewHealthHandler creates a health handler for the named checks
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, now: time.Now}
}

// Info handles GET /
func (h *HealthHandler) Info(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "COHAB API",
		"version": Version,
		"status":  "running",
		"endpoints": fiber.Map{
			"auth": fiber.Map{
				"POST /v1/auth/login":                 "Iniciar sesión",
				"POST /v1/auth/refresh":               "Renovar sesión",
				"POST /v1/auth/logout":                "Cerrar sesión",
				"GET /v1/auth/me":                     "Usuario actual (requiere auth)",
				"GET /v1/auth/management-key":         "¿Gestión de Alumnos exige clave?",
				"POST /v1/auth/management-key/verify": "Validar clave de Gestión",
			},
			"users": fiber.Map{
				"GET /v1/users":        "Listar usuarios (admin)",
				"POST /v1/users":       "Crear usuario (admin)",
				"DELETE /v1/users/:id": "Desactivar usuario (admin)",
			},
			"students": fiber.Map{
				"GET /v1/students":               "Listar alumnos con estado (admin)",
				"GET /v1/students/summary":       "Resumen por estado (admin)",
				"GET /v1/students/sweep":         "Último barrido programado (admin)",
				"GET /v1/students/export.csv":    "Exportar CSV (admin)",
				"GET /v1/students/:id/validate":  "Validar suscripción (público)",
				"POST /v1/students":              "Crear alumno (admin)",
				"PUT /v1/students/:id":           "Actualizar o crear alumno (admin)",
				"DELETE /v1/students/:id":        "Eliminar alumno (admin)",
				"PATCH /v1/students/:id/payment": "Registrar pago (admin)",
				"GET /v1/students/:id/qr":        "Código QR (admin)",
				"POST /v1/students/:id/send-qr":  "Enviar QR por email (admin)",
			},
			"health": fiber.Map{
				"GET /health": "Health check",
			},
		},
	})
}

// Health handles GET /health
// Probes run concurrently; any failure reports "degraded" with 503.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthProbeTimeout)
	defer cancel()

	var mu sync.Mutex
	results := make(map[string]string, len(h.checks))

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	g, gCtx := errgroup.WithContext(ctx)
	for _, name := range names {
		check := h.checks[name]
		g.Go(func() error {
			state := "connected"
			if err := check(gCtx); err != nil {
				state = "disconnected: " + err.Error()
			}
			mu.Lock()
			results[name] = state
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := "ok"
	code := fiber.StatusOK
	for _, state := range results {
		if state != "connected" {
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"version":   Version,
		"checks":    results,
		"auth":      "JWT Bearer token + cookie",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

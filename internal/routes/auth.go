package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kft-pay/kft_pay/internal/auth"
)

// RegisterAuthRoutes wires authentication endpoints. Logout reads the
// authenticated user id, so it sits behind the JWT middleware.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter, jwtmw fiber.Handler) {
	group := r.Group("/auth")
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
	} else {
		group.Post("/login", h.Login)
	}
	group.Post("/refresh", h.Refresh)
	group.Post("/logout", jwtmw, h.Logout)
}

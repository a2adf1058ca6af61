package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kft-pay/kft_pay/internal/identity"
)

// RegisterIdentityRoutes wires signup and password endpoints.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	group := r.Group("/users")
	group.Post("/signup", h.Signup)
	group.Post("/reset-password", h.ResetPassword)
}

package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kft-pay/kft_pay/internal/catalog"
)

// RegisterCatalogRoutes wires product, service, and subscription endpoints.
func RegisterCatalogRoutes(r fiber.Router, h *catalog.Handler) {
	r.Get("/products", h.BrowseProducts)
	r.Get("/services", h.BrowseServices)

	merchant := r.Group("/merchant")
	merchant.Get("/products", h.OwnProducts)
	merchant.Post("/products", h.CreateProduct)
	merchant.Put("/products/:id", h.UpdateProduct)
	merchant.Delete("/products/:id", h.DeleteProduct)

	r.Post("/subscriptions", h.Subscribe)
	r.Get("/subscriptions", h.Subscriptions)
}

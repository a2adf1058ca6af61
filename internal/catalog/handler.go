package catalog

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kft-pay/kft_pay/internal/authz"
	"github.com/kft-pay/kft_pay/internal/identity"
	"github.com/kft-pay/kft_pay/internal/money"
)

// Handler exposes catalog endpoints for merchants and consumers.
type Handler struct {
	svc *Catalog
	ids identity.Repository
}

// NewHandler constructs a catalog handler.
func NewHandler(svc *Catalog, ids identity.Repository) *Handler {
	return &Handler{svc: svc, ids: ids}
}

func (h *Handler) actor(c *fiber.Ctx) (identity.User, error) {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return identity.User{}, fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}
	user, err := h.ids.FindByID(c.UserContext(), uid)
	if err != nil {
		return identity.User{}, fiber.NewError(http.StatusUnauthorized, "user not found")
	}
	return user, nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, money.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, "invalid price")
	case errors.Is(err, authz.ErrUnauthorized):
		return fiber.NewError(http.StatusForbidden, "operation not permitted for role")
	case errors.Is(err, ErrNotProductOwner):
		return fiber.NewError(http.StatusForbidden, "not the product owner")
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "catalog record not found")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

type productRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

func productPayload(p Product) fiber.Map {
	return fiber.Map{
		"id":          p.ID,
		"merchant_id": p.MerchantID,
		"name":        p.Name,
		"description": p.Description,
		"price":       money.Format(p.Price),
		"created_at":  p.CreatedAt,
		"updated_at":  p.UpdatedAt,
	}
}

func productsPayload(products []Product) []fiber.Map {
	out := make([]fiber.Map, 0, len(products))
	for _, p := range products {
		out = append(out, productPayload(p))
	}
	return out
}

// CreateProduct adds a product for the acting merchant.
func (h *Handler) CreateProduct(c *fiber.Ctx) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.CreateProduct(c.UserContext(), actor, ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		return translate(err)
	}
	return c.Status(http.StatusCreated).JSON(productPayload(p))
}

// UpdateProduct modifies one of the acting merchant's products.
func (h *Handler) UpdateProduct(c *fiber.Ctx) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.UpdateProduct(c.UserContext(), actor, c.Params("id"), ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		return translate(err)
	}
	return c.Status(http.StatusOK).JSON(productPayload(p))
}

// DeleteProduct removes one of the acting merchant's products.
func (h *Handler) DeleteProduct(c *fiber.Ctx) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteProduct(c.UserContext(), actor, c.Params("id")); err != nil {
		return translate(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// OwnProducts lists the acting merchant's products.
func (h *Handler) OwnProducts(c *fiber.Ctx) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	products, err := h.svc.OwnProducts(c.UserContext(), actor)
	if err != nil {
		return translate(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"products": productsPayload(products)})
}

// BrowseProducts lists every product on the platform.
func (h *Handler) BrowseProducts(c *fiber.Ctx) error {
	products, err := h.svc.BrowseProducts(c.UserContext())
	if err != nil {
		return translate(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"products": productsPayload(products)})
}

// BrowseServices lists every subscribable service.
func (h *Handler) BrowseServices(c *fiber.Ctx) error {
	services, err := h.svc.BrowseServices(c.UserContext())
	if err != nil {
		return translate(err)
	}
	out := make([]fiber.Map, 0, len(services))
	for _, s := range services {
		out = append(out, fiber.Map{
			"id":               s.ID,
			"merchant_id":      s.MerchantID,
			"name":             s.Name,
			"description":      s.Description,
			"subscription_fee": money.Format(s.SubscriptionFee),
			"created_at":       s.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"services": out})
}

type subscribeRequest struct {
	ServiceID string `json:"service_id"`
}

// Subscribe enrolls the acting consumer in a service.
func (h *Handler) Subscribe(c *fiber.Ctx) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	sub, err := h.svc.Subscribe(c.UserContext(), actor, req.ServiceID)
	if err != nil {
		return translate(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"id":          sub.ID,
		"consumer_id": sub.ConsumerID,
		"service_id":  sub.ServiceID,
		"start_date":  sub.StartDate,
		"active":      sub.Active,
	})
}

// Subscriptions lists the acting consumer's subscriptions.
func (h *Handler) Subscriptions(c *fiber.Ctx) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	subs, err := h.svc.Subscriptions(c.UserContext(), actor)
	if err != nil {
		return translate(err)
	}
	out := make([]fiber.Map, 0, len(subs))
	for _, sub := range subs {
		out = append(out, fiber.Map{
			"id":         sub.ID,
			"service_id": sub.ServiceID,
			"start_date": sub.StartDate,
			"active":     sub.Active,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"subscriptions": out})
}

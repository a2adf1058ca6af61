package transfer

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kft-pay/kft_pay/internal/authz"
	"github.com/kft-pay/kft_pay/internal/catalog"
	"github.com/kft-pay/kft_pay/internal/identity"
	"github.com/kft-pay/kft_pay/internal/ledger"
	"github.com/kft-pay/kft_pay/internal/money"
)

// Handler exposes the money-movement endpoints.
type Handler struct {
	svc *Service
	ids identity.Repository
}

// NewHandler constructs a transfer handler.
func NewHandler(svc *Service, ids identity.Repository) *Handler {
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

// translate maps the error taxonomy onto HTTP statuses.
func translate(err error) error {
	switch {
	case errors.Is(err, money.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, "invalid amount")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, authz.ErrUnauthorized):
		return fiber.NewError(http.StatusForbidden, "operation not permitted for role")
	case errors.Is(err, ledger.ErrUnknownOwner):
		return fiber.NewError(http.StatusNotFound, "owner not found")
	case errors.Is(err, catalog.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "catalog record not found")
	case errors.Is(err, ledger.ErrDuplicateReference):
		return fiber.NewError(http.StatusConflict, "duplicate reference, retry the operation")
	case errors.Is(err, ledger.ErrConcurrentModification):
		return fiber.NewError(http.StatusConflict, "concurrent modification, retry the operation")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

type rechargeRequest struct {
	Amount string `json:"amount"`
}

// Recharge credits the authenticated consumer's own balance.
func (h *Handler) Recharge(c *fiber.Ctx) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	var req rechargeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.SelfRecharge(c.UserContext(), actor, req.Amount)
	if err != nil {
		return translate(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"entry_id":     res.EntryID,
		"balance":      money.Format(res.Balance),
		"completed_at": res.CompletedAt,
	})
}

type purchaseRequest struct {
	ProductID string `json:"product_id"`
}

// Purchase moves the product price from the consumer to the owning merchant.
func (h *Handler) Purchase(c *fiber.Ctx) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Purchase(c.UserContext(), actor, req.ProductID)
	if err != nil {
		return translate(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"purchase_entry_id": res.PurchaseEntryID,
		"sale_entry_id":     res.SaleEntryID,
		"balance":           money.Format(res.Balance),
		"completed_at":      res.CompletedAt,
	})
}

type agentTransferRequest struct {
	ConsumerUsername string `json:"consumer_username"`
	Amount           string `json:"amount"`
	BillID           string `json:"bill_id"`
}

func agentTransferResponse(c *fiber.Ctx, res AgentTransferResult) error {
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"consumer_id":       res.ConsumerID,
		"consumer_entry_id": res.ConsumerEntryID,
		"agent_entry_id":    res.AgentEntryID,
		"consumer_balance":  money.Format(res.ConsumerBalance),
		"completed_at":      res.CompletedAt,
	})
}

// CashIn credits a named consumer with cash collected by the agent.
func (h *Handler) CashIn(c *fiber.Ctx) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	var req agentTransferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.AgentCashIn(c.UserContext(), actor, req.ConsumerUsername, req.Amount)
	if err != nil {
		return translate(err)
	}
	return agentTransferResponse(c, res)
}

// CashOut debits a named consumer for cash handed out by the agent.
func (h *Handler) CashOut(c *fiber.Ctx) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	var req agentTransferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.AgentCashOut(c.UserContext(), actor, req.ConsumerUsername, req.Amount)
	if err != nil {
		return translate(err)
	}
	return agentTransferResponse(c, res)
}

// BillPayment debits a named consumer to settle a catalog bill.
func (h *Handler) BillPayment(c *fiber.Ctx) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	var req agentTransferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.AgentBillPayment(c.UserContext(), actor, req.ConsumerUsername, req.BillID, req.Amount)
	if err != nil {
		return translate(err)
	}
	return agentTransferResponse(c, res)
}

// Balance returns the authenticated owner's balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	balance, err := h.svc.BalanceOf(c.UserContext(), actor)
	if err != nil {
		return translate(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"owner_id": actor.ID, "balance": money.Format(balance)})
}

// History lists the authenticated owner's journal entries.
func (h *Handler) History(c *fiber.Ctx) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	entries, err := h.svc.HistoryOf(c.UserContext(), actor)
	if err != nil {
		return translate(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": entriesPayload(entries)})
}

// ConsumerBalance lets an agent read a named consumer's balance.
func (h *Handler) ConsumerBalance(c *fiber.Ctx) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	username := c.Params("username")
	balance, err := h.svc.ConsumerBalanceFor(c.UserContext(), actor, username)
	if err != nil {
		return translate(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"consumer_username": username, "balance": money.Format(balance)})
}

// ConsumerHistory lets an agent read a named consumer's journal entries.
func (h *Handler) ConsumerHistory(c *fiber.Ctx) error {
	actor, err := h.actor(c)
	if err != nil {
		return err
	}
	username := c.Params("username")
	entries, err := h.svc.ConsumerHistoryFor(c.UserContext(), actor, username)
	if err != nil {
		return translate(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"consumer_username": username, "transactions": entriesPayload(entries)})
}

func entriesPayload(entries []ledger.Entry) []fiber.Map {
	out := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		out = append(out, fiber.Map{
			"id":        e.ID,
			"type":      string(e.Type),
			"amount":    money.Format(e.Amount),
			"timestamp": e.Timestamp,
			"status":    string(e.Status),
			"reference": e.Reference,
		})
	}
	return out
}

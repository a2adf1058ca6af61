package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kft-pay/kft_pay/internal/transfer"
)

// RegisterTransferRoutes wires the money-movement endpoints.
func RegisterTransferRoutes(r fiber.Router, h *transfer.Handler) {
	r.Post("/recharge", h.Recharge)
	r.Post("/purchases", h.Purchase)
	r.Get("/balance", h.Balance)
	r.Get("/transactions", h.History)

	agent := r.Group("/agent")
	agent.Post("/cash-in", h.CashIn)
	agent.Post("/cash-out", h.CashOut)
	agent.Post("/bill-payments", h.BillPayment)
	agent.Get("/consumers/:username/balance", h.ConsumerBalance)
	agent.Get("/consumers/:username/transactions", h.ConsumerHistory)
}

package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a merchant-owned item a consumer can purchase.
type Product struct {
	ID          string
	MerchantID  string
	Name        string
	Description string
	Price       decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Service is a merchant-owned offering consumers subscribe to. Subscribing
// does not move money; billing for subscriptions is out of scope.
type Service struct {
	ID              string
	MerchantID      string
	Name            string
	Description     string
	SubscriptionFee decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Subscription links a consumer to a service.
type Subscription struct {
	ID         string
	ConsumerID string
	ServiceID  string
	StartDate  time.Time
	EndDate    *time.Time
	Active     bool
}

// Bill is reference data for a payable obligation: what kind of bill, which
// account it belongs to, and how much is due.
type Bill struct {
	ID            string
	BillType      string
	AccountNumber string
	AmountDue     decimal.Decimal
	DueDate       time.Time
}

package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kft-pay/kft_pay/internal/authz"
)

var (
	// ErrInsufficientFunds occurs when a debit would push a balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateReference indicates a journal entry with the same reference
	// already exists. The caller must retry with a fresh reference.
	ErrDuplicateReference = errors.New("duplicate reference")

	// ErrUnknownOwner indicates the owner has no balance row (or, when wrapped
	// by the identity layer, cannot be resolved at all).
	ErrUnknownOwner = errors.New("unknown owner")

	// ErrConcurrentModification indicates the posting transaction could not be
	// acquired or committed. The operation had no effect and may be retried.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// EntryType classifies a journal entry.
type EntryType string

const (
	TypeCashIn      EntryType = "cash_in"
	TypeCashOut     EntryType = "cash_out"
	TypeBillPayment EntryType = "bill_payment"
	TypePurchase    EntryType = "purchase"
	TypeSale        EntryType = "sale"
)

// Status is the terminal state of a journal entry. Every committed entry is
// written as StatusCompleted; Pending and Failed exist in the schema
// vocabulary but no operation persists them.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Entry is one immutable journal record. ID, Timestamp and Status are
// assigned by the store at commit time.
type Entry struct {
	ID        string
	Type      EntryType
	OwnerID   string
	Amount    decimal.Decimal
	Timestamp time.Time
	Status    Status
	Reference string
}

// Change is a signed balance delta for one owner. Negative deltas are debits.
type Change struct {
	OwnerID string
	Delta   decimal.Decimal
}

// Posting groups the balance changes and journal entries of one operation.
// A store commits all of it or none of it: if any balance would go negative,
// any reference collides, or the transaction fails, nothing persists.
type Posting struct {
	Changes []Change
	Entries []Entry
}

// PostResult reports the committed entry ids and the new balance of every
// mutated owner.
type PostResult struct {
	EntryIDs []string
	Balances map[string]decimal.Decimal
}

// Store is the contract implemented by ledger backends. Balances and the
// journal live behind one Store so a Posting can span both atomically.
type Store interface {
	// CreateBalance provisions a zero balance row for an owner. It is invoked
	// synchronously at owner creation; agents never get one.
	CreateBalance(ctx context.Context, ownerID string, role authz.Role) error

	// Balance returns the current balance, or ErrUnknownOwner.
	Balance(ctx context.Context, ownerID string) (decimal.Decimal, error)

	// Entries lists all journal entries recorded for the owner.
	Entries(ctx context.Context, ownerID string) ([]Entry, error)

	// Post atomically applies every balance change and records every entry.
	Post(ctx context.Context, posting Posting) (PostResult, error)
}

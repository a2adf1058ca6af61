package ledger

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that sets an owner's balance directly when
// using the in-memory store.
func SeedBalance(s Store, ownerID string, amount decimal.Decimal) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[ownerID] = amount
	}
}

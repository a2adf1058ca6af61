package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kft-pay/kft_pay/internal/authz"
)

type inMemoryStore struct {
	mu         sync.RWMutex
	balances   map[string]decimal.Decimal
	roles      map[string]authz.Role
	entries    []Entry
	references map[string]struct{}
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit tests.
func NewInMemory() Store {
	return &inMemoryStore{
		balances:   make(map[string]decimal.Decimal),
		roles:      make(map[string]authz.Role),
		references: make(map[string]struct{}),
	}
}

func (s *inMemoryStore) CreateBalance(_ context.Context, ownerID string, role authz.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.balances[ownerID]; !exists {
		s.balances[ownerID] = decimal.Zero
		s.roles[ownerID] = role
	}
	return nil
}

func (s *inMemoryStore) Balance(_ context.Context, ownerID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance, exists := s.balances[ownerID]
	if !exists {
		return decimal.Zero, fmt.Errorf("balance for %s: %w", ownerID, ErrUnknownOwner)
	}
	return balance, nil
}

func (s *inMemoryStore) Entries(_ context.Context, ownerID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Post validates the whole posting before mutating anything, so a failure on
// any change or entry leaves the store untouched.
func (s *inMemoryStore) Post(_ context.Context, posting Posting) (PostResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]decimal.Decimal, len(posting.Changes))
	for _, ch := range posting.Changes {
		current, exists := next[ch.OwnerID]
		if !exists {
			stored, ok := s.balances[ch.OwnerID]
			if !ok {
				return PostResult{}, fmt.Errorf("balance for %s: %w", ch.OwnerID, ErrUnknownOwner)
			}
			current = stored
		}
		updated := current.Add(ch.Delta)
		if updated.IsNegative() {
			return PostResult{}, ErrInsufficientFunds
		}
		next[ch.OwnerID] = updated
	}

	seen := make(map[string]struct{}, len(posting.Entries))
	for _, e := range posting.Entries {
		if _, dup := s.references[e.Reference]; dup {
			return PostResult{}, fmt.Errorf("reference %s: %w", e.Reference, ErrDuplicateReference)
		}
		if _, dup := seen[e.Reference]; dup {
			return PostResult{}, fmt.Errorf("reference %s: %w", e.Reference, ErrDuplicateReference)
		}
		seen[e.Reference] = struct{}{}
	}

	result := PostResult{Balances: make(map[string]decimal.Decimal, len(next))}
	for ownerID, balance := range next {
		s.balances[ownerID] = balance
		result.Balances[ownerID] = balance
	}

	now := time.Now().UTC()
	for _, e := range posting.Entries {
		e.ID = uuid.NewString()
		e.Timestamp = now
		e.Status = StatusCompleted
		s.entries = append(s.entries, e)
		s.references[e.Reference] = struct{}{}
		result.EntryIDs = append(result.EntryIDs, e.ID)
	}

	return result, nil
}

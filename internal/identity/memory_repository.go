package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/kft-pay/kft_pay/internal/ledger"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryRepository builds an in-memory user store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Username]; exists {
		return ErrUsernameTaken
	}
	r.users[user.Username] = user
	return nil
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[username]
	if !ok {
		return User{}, fmt.Errorf("user %s: %w", username, ledger.ErrUnknownOwner)
	}
	return user, nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}
	return User{}, fmt.Errorf("user %s: %w", id, ledger.ErrUnknownOwner)
}

func (r *memoryRepository) UpdatePassword(_ context.Context, id string, hash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for username, user := range r.users {
		if user.ID == id {
			user.PasswordHash = hash
			r.users[username] = user
			return nil
		}
	}
	return fmt.Errorf("user %s: %w", id, ledger.ErrUnknownOwner)
}

func (r *memoryRepository) UpdateTokenVersion(_ context.Context, id string, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for username, user := range r.users {
		if user.ID == id {
			user.TokenVersion = version
			r.users[username] = user
			return nil
		}
	}
	return fmt.Errorf("user %s: %w", id, ledger.ErrUnknownOwner)
}

package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kft-pay/kft_pay/internal/authz"
	"github.com/kft-pay/kft_pay/internal/ledger"
)

// ErrInvalidCredentials indicates a failed username/password check.
var ErrInvalidCredentials = errors.New("invalid credentials")

const minPasswordLength = 8

// Service manages the owner directory: registration, authentication, and
// password lifecycle.
type Service struct {
	repo  Repository
	store ledger.Store
}

// NewService creates an identity service. The ledger store is used to
// provision balance rows at registration time.
func NewService(repo Repository, store ledger.Store) *Service {
	return &Service{repo: repo, store: store}
}

// RegisterInput captures a signup request.
type RegisterInput struct {
	Username string
	Password string
	Role     string
}

// Register creates a user and, for consumers and merchants, the zero balance
// row in the same call path. There is no implicit side channel: the balance
// exists by the time Register returns. Agents hold no balance.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	role, err := authz.ParseRole(input.Role)
	if err != nil {
		return User{}, err
	}
	if input.Username == "" {
		return User{}, errors.New("username is required")
	}
	if len(input.Password) < minPasswordLength {
		return User{}, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.New().String(),
		Username:     input.Username,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	if role != authz.RoleAgent {
		if err := s.store.CreateBalance(ctx, user.ID, role); err != nil {
			return User{}, fmt.Errorf("provision balance: %w", err)
		}
	}

	return user, nil
}

// Authenticate verifies credentials and returns the user.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByUsername(ctx, creds.Username)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// ResetPassword replaces the user's password.
func (s *Service) ResetPassword(ctx context.Context, username, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, user.ID, hash)
}

// ResolveConsumer looks up a consumer by username. Usernames naming a
// non-consumer resolve the same as missing ones, matching how agent-assisted
// operations validate their counterparty.
func (s *Service) ResolveConsumer(ctx context.Context, username string) (User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}
	if user.Role != authz.RoleConsumer {
		return User{}, fmt.Errorf("user %s is not a consumer: %w", username, ledger.ErrUnknownOwner)
	}
	return user, nil
}

package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/kft-pay/kft_pay/internal/authz"
	"github.com/kft-pay/kft_pay/internal/ledger"
)

func TestRegisterCreatesBalanceForConsumer(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(NewMemoryRepository(), store)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "correcthorse", Role: "consumer"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != authz.RoleConsumer {
		t.Fatalf("expected consumer role, got %s", user.Role)
	}

	balance, err := store.Balance(ctx, user.ID)
	if err != nil {
		t.Fatalf("balance row missing after registration: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("expected zero opening balance, got %s", balance)
	}
}

func TestRegisterAgentHasNoBalance(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(NewMemoryRepository(), store)
	ctx := context.Background()

	agent, err := svc.Register(ctx, RegisterInput{Username: "kofi", Password: "agencypass", Role: "agent"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := store.Balance(ctx, agent.ID); !errors.Is(err, ledger.ErrUnknownOwner) {
		t.Fatalf("agent should not hold a balance, got %v", err)
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	svc := NewService(NewMemoryRepository(), ledger.NewInMemory())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "correcthorse", Role: "consumer"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "correcthorse", Role: "merchant"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryRepository(), ledger.NewInMemory())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "correcthorse", Role: "consumer"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Authenticate(ctx, Credentials{Username: "alice", Password: "correcthorse"}); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := svc.Authenticate(ctx, Credentials{Username: "alice", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, Credentials{Username: "nobody", Password: "whatever"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestResolveConsumer(t *testing.T) {
	svc := NewService(NewMemoryRepository(), ledger.NewInMemory())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "correcthorse", Role: "consumer"}); err != nil {
		t.Fatalf("register consumer: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Username: "bob", Password: "storefront1", Role: "merchant"}); err != nil {
		t.Fatalf("register merchant: %v", err)
	}

	if _, err := svc.ResolveConsumer(ctx, "alice"); err != nil {
		t.Fatalf("resolve consumer: %v", err)
	}
	if _, err := svc.ResolveConsumer(ctx, "bob"); !errors.Is(err, ledger.ErrUnknownOwner) {
		t.Fatalf("merchant resolved as consumer: %v", err)
	}
	if _, err := svc.ResolveConsumer(ctx, "ghost"); !errors.Is(err, ledger.ErrUnknownOwner) {
		t.Fatalf("expected ErrUnknownOwner, got %v", err)
	}
}

func TestResetPassword(t *testing.T) {
	svc := NewService(NewMemoryRepository(), ledger.NewInMemory())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "correcthorse", Role: "consumer"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.ResetPassword(ctx, "alice", "batterystaple"); err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if _, err := svc.Authenticate(ctx, Credentials{Username: "alice", Password: "batterystaple"}); err != nil {
		t.Fatalf("authenticate with new password: %v", err)
	}
	if _, err := svc.Authenticate(ctx, Credentials{Username: "alice", Password: "correcthorse"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still accepted: %v", err)
	}
}

package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kft-pay/kft_pay/internal/auth"
	"github.com/kft-pay/kft_pay/internal/authz"
	"github.com/kft-pay/kft_pay/internal/config"
	"github.com/kft-pay/kft_pay/internal/identity"
)

func jwtTestApp(t *testing.T) (*fiber.App, identity.User, config.Config) {
	t.Helper()
	cfg := config.Config{JWTSecret: "test-access-secret"}
	repo := identity.NewMemoryRepository()
	user := identity.User{
		ID:        "5f3c3c9a-6d6a-4a5b-9a74-0f8f4c2d9b01",
		Username:  "alice",
		Role:      authz.RoleConsumer,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	app := fiber.New()
	app.Get("/protected", JWTAuth(cfg, repo), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app, user, cfg
}

func signToken(t *testing.T, user identity.User, secret string, expiresAt time.Time) string {
	t.Helper()
	token, err := auth.SignHS256(map[string]any{
		"sub": user.ID,
		"ver": user.TokenVersion,
		"iat": time.Now().Unix(),
		"exp": expiresAt.Unix(),
	}, []byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func requestWithToken(t *testing.T, app *fiber.App, token string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp.StatusCode
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	app, user, cfg := jwtTestApp(t)
	token := signToken(t, user, cfg.JWTSecret, time.Now().Add(time.Minute))
	if status := requestWithToken(t, app, token); status != fiber.StatusOK {
		t.Fatalf("valid token rejected: %d", status)
	}
}

func TestJWTAuthRejectsExpiredToken(t *testing.T) {
	app, user, cfg := jwtTestApp(t)
	token := signToken(t, user, cfg.JWTSecret, time.Now().Add(-time.Minute))
	if status := requestWithToken(t, app, token); status != fiber.StatusUnauthorized {
		t.Fatalf("expired token accepted: %d", status)
	}
}

func TestJWTAuthRejectsMissingExpiry(t *testing.T) {
	app, user, cfg := jwtTestApp(t)
	token, err := auth.SignHS256(map[string]any{
		"sub": user.ID,
		"ver": user.TokenVersion,
	}, []byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if status := requestWithToken(t, app, token); status != fiber.StatusUnauthorized {
		t.Fatalf("token without expiry accepted: %d", status)
	}
}

package routes

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kft-pay/kft_pay/internal/config"
	"github.com/kft-pay/kft_pay/internal/logging"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	app := fiber.New()
	cfg := config.Config{
		AppName:         "kft-pay-test",
		Env:             "test",
		JWTSecret:       "test-access-secret",
		RefreshSecret:   "test-refresh-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	}
	if err := Setup(app, Deps{Cfg: cfg, Logger: logging.Discard()}); err != nil {
		t.Fatalf("setup routes: %v", err)
	}
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, token string, payload map[string]string) (int, map[string]any) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	req := httptest.NewRequest(fiber.MethodPost, path, bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test %s: %v", path, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

func TestLogoutWithValidToken(t *testing.T) {
	app := newTestApp(t)

	status, _ := postJSON(t, app, "/api/v1/users/signup", "", map[string]string{
		"username": "alice", "password": "correcthorse", "role": "consumer",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("signup returned %d", status)
	}

	status, login := postJSON(t, app, "/api/v1/auth/login", "", map[string]string{
		"username": "alice", "password": "correcthorse",
	})
	if status != fiber.StatusOK {
		t.Fatalf("login returned %d", status)
	}
	token, _ := login["access_token"].(string)
	if token == "" {
		t.Fatal("login response missing access token")
	}

	status, body := postJSON(t, app, "/api/v1/auth/logout", token, nil)
	if status != fiber.StatusOK {
		t.Fatalf("logout with valid token returned %d", status)
	}
	if body["status"] != "logged_out" {
		t.Fatalf("unexpected logout body: %v", body)
	}

	// The token version bump invalidates the old access token.
	status, _ = postJSON(t, app, "/api/v1/auth/logout", token, nil)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("stale token accepted after logout: %d", status)
	}
}

func TestLogoutRequiresToken(t *testing.T) {
	app := newTestApp(t)

	status, _ := postJSON(t, app, "/api/v1/auth/logout", "", nil)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("logout without token returned %d", status)
	}
}

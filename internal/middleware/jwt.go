package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kft-pay/kft_pay/internal/auth"
	"github.com/kft-pay/kft_pay/internal/config"
	"github.com/kft-pay/kft_pay/internal/identity"
)

// JWTAuth validates bearer tokens, checks the token version, and stores the
// resolved user id and role for downstream handlers.
func JWTAuth(cfg config.Config, repo identity.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authorization[len("Bearer "):])
		claims, err := auth.ParseAndVerifyHS256(tokenStr, []byte(cfg.JWTSecret))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		exp, ok := claims["exp"].(float64)
		if !ok || time.Now().Unix() >= int64(exp) {
			return fiber.NewError(http.StatusUnauthorized, "token expired")
		}
		sub, _ := claims["sub"].(string)
		verFloat, _ := claims["ver"].(float64)
		ver := int(verFloat)

		user, err := repo.FindByID(c.UserContext(), sub)
		if err != nil || user.TokenVersion != ver {
			return fiber.NewError(http.StatusUnauthorized, "token invalidated")
		}

		c.Locals("user_id", user.ID)
		c.Locals("role", string(user.Role))
		return c.Next()
	}
}

package identity

import (
	"time"

	"github.com/kft-pay/kft_pay/internal/authz"
)

// User is a registered platform actor: a consumer, merchant, or agent.
// Consumers and merchants own a ledger balance; agents do not.
type User struct {
	ID           string
	Username     string
	Role         authz.Role
	PasswordHash []byte
	TokenVersion int
	CreatedAt    time.Time
}

// Credentials carries a login request.
type Credentials struct {
	Username string
	Password string
}

package authz

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthorized indicates the actor's role does not permit the requested operation.
var ErrUnauthorized = errors.New("unauthorized")

// Role identifies what kind of actor is making a request.
type Role string

const (
	RoleAgent    Role = "agent"
	RoleConsumer Role = "consumer"
	RoleMerchant Role = "merchant"
)

// ParseRole validates a role string supplied by a client.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAgent:
		return RoleAgent, nil
	case RoleConsumer:
		return RoleConsumer, nil
	case RoleMerchant:
		return RoleMerchant, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Operation names an action an actor can request against the ledger or catalog.
type Operation string

const (
	OpSelfRecharge        Operation = "self_recharge"
	OpPurchase            Operation = "purchase"
	OpSubscribe           Operation = "subscribe"
	OpViewOwnBalance      Operation = "view_own_balance"
	OpViewOwnHistory      Operation = "view_own_history"
	OpManageProducts      Operation = "manage_products"
	OpAgentCashIn         Operation = "agent_cash_in"
	OpAgentCashOut        Operation = "agent_cash_out"
	OpAgentBillPayment    Operation = "agent_bill_payment"
	OpViewConsumerBalance Operation = "view_consumer_balance"
	OpViewConsumerHistory Operation = "view_consumer_history"
)

// permissions is the single authorization table keyed by (Role, Operation).
// Roles not present for an operation are denied.
var permissions = map[Role]map[Operation]bool{
	RoleConsumer: {
		OpSelfRecharge:   true,
		OpPurchase:       true,
		OpSubscribe:      true,
		OpViewOwnBalance: true,
		OpViewOwnHistory: true,
	},
	RoleMerchant: {
		OpManageProducts: true,
		OpViewOwnBalance: true,
		OpViewOwnHistory: true,
	},
	RoleAgent: {
		OpAgentCashIn:         true,
		OpAgentCashOut:        true,
		OpAgentBillPayment:    true,
		OpViewOwnHistory:      true,
		OpViewConsumerBalance: true,
		OpViewConsumerHistory: true,
	},
}

// Allow returns nil when the role may perform the operation and
// ErrUnauthorized otherwise. It must be consulted before any ledger or
// journal access.
func Allow(role Role, op Operation) error {
	if permissions[role][op] {
		return nil
	}
	return fmt.Errorf("%w: role %s may not %s", ErrUnauthorized, role, op)
}

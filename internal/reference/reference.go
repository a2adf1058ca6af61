// Package reference builds collision-resistant identifiers for journal
// entries. The journal's unique constraint on the reference column is the
// authoritative duplicate guard; the random suffix here only keeps collision
// retries rare.
package reference

import (
	"strings"

	"github.com/google/uuid"
)

// Prefixes identifying the operation that produced an entry.
const (
	PrefixPurchase     = "PUR"
	PrefixSale         = "SALE"
	PrefixRecharge     = "RECHARGE"
	PrefixCashIn       = "CASHIN"
	PrefixAgentCashIn  = "AGENTCASHIN"
	PrefixCashOut      = "CASHOUT"
	PrefixAgentCashOut = "AGENTCASHOUT"
	PrefixBillPay      = "BILLPAY"
	PrefixAgentBillPay = "AGENTBILLPAY"
)

// New produces a reference shaped <PREFIX>-<context ids>-<random>. Context
// ids embed the entities involved (product, parties) so references stay
// human-traceable in the journal.
func New(prefix string, contextIDs ...string) string {
	parts := make([]string, 0, len(contextIDs)+2)
	parts = append(parts, prefix)
	parts = append(parts, contextIDs...)
	parts = append(parts, uuid.NewString())
	return strings.Join(parts, "-")
}

// Package transfer composes the ledger store, journal, reference generator,
// and role guard into the platform's money-movement operations. Every
// operation validates in a fixed order (authorize, parse amount, resolve
// parties) before a single atomic posting; a failure at any point leaves no
// residual effect.
package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kft-pay/kft_pay/internal/authz"
	"github.com/kft-pay/kft_pay/internal/catalog"
	"github.com/kft-pay/kft_pay/internal/identity"
	"github.com/kft-pay/kft_pay/internal/ledger"
	"github.com/kft-pay/kft_pay/internal/money"
	"github.com/kft-pay/kft_pay/internal/notification"
	"github.com/kft-pay/kft_pay/internal/reference"
)

// Service is the transfer orchestrator.
type Service struct {
	store    ledger.Store
	ids      *identity.Service
	catalog  catalog.Repository
	notifier notification.Notifier
}

// NewService wires the orchestrator's collaborators. The catalog is consumed
// read-only; the notifier may be nil.
func NewService(store ledger.Store, ids *identity.Service, cat catalog.Repository, notifier notification.Notifier) *Service {
	return &Service{store: store, ids: ids, catalog: cat, notifier: notifier}
}

// RechargeResult reports a committed self-recharge.
type RechargeResult struct {
	EntryID     string
	Balance     decimal.Decimal
	CompletedAt time.Time
}

// PurchaseResult reports a committed purchase: the consumer's new balance and
// the paired purchase/sale entry ids.
type PurchaseResult struct {
	PurchaseEntryID string
	SaleEntryID     string
	Balance         decimal.Decimal
	CompletedAt     time.Time
}

// AgentTransferResult reports a committed agent-assisted operation. The
// agent's leg is a journal record only; agents hold no balance.
type AgentTransferResult struct {
	ConsumerID      string
	ConsumerEntryID string
	AgentEntryID    string
	ConsumerBalance decimal.Decimal
	CompletedAt     time.Time
}

// SelfRecharge credits the acting consumer's own balance.
func (s *Service) SelfRecharge(ctx context.Context, actor identity.User, rawAmount string) (RechargeResult, error) {
	if err := authz.Allow(actor.Role, authz.OpSelfRecharge); err != nil {
		return RechargeResult{}, err
	}
	amount, err := money.Parse(rawAmount)
	if err != nil {
		return RechargeResult{}, err
	}

	res, err := s.store.Post(ctx, ledger.Posting{
		Changes: []ledger.Change{{OwnerID: actor.ID, Delta: amount}},
		Entries: []ledger.Entry{{
			Type:      ledger.TypeCashIn,
			OwnerID:   actor.ID,
			Amount:    amount,
			Reference: reference.New(reference.PrefixRecharge, actor.ID),
		}},
	})
	if err != nil {
		return RechargeResult{}, err
	}

	return RechargeResult{
		EntryID:     res.EntryIDs[0],
		Balance:     res.Balances[actor.ID],
		CompletedAt: time.Now().UTC(),
	}, nil
}

// Purchase debits the acting consumer by the product's current price,
// credits the owning merchant, and records the paired purchase/sale entries.
func (s *Service) Purchase(ctx context.Context, actor identity.User, productID string) (PurchaseResult, error) {
	if err := authz.Allow(actor.Role, authz.OpPurchase); err != nil {
		return PurchaseResult{}, err
	}
	product, err := s.catalog.FindProduct(ctx, productID)
	if err != nil {
		return PurchaseResult{}, err
	}

	res, err := s.store.Post(ctx, ledger.Posting{
		Changes: []ledger.Change{
			{OwnerID: actor.ID, Delta: product.Price.Neg()},
			{OwnerID: product.MerchantID, Delta: product.Price},
		},
		Entries: []ledger.Entry{
			{
				Type:      ledger.TypePurchase,
				OwnerID:   actor.ID,
				Amount:    product.Price,
				Reference: reference.New(reference.PrefixPurchase, product.ID, actor.ID),
			},
			{
				Type:      ledger.TypeSale,
				OwnerID:   product.MerchantID,
				Amount:    product.Price,
				Reference: reference.New(reference.PrefixSale, product.ID, product.MerchantID),
			},
		},
	})
	if err != nil {
		return PurchaseResult{}, err
	}

	s.notify(ctx, notification.KindPurchase, product.MerchantID,
		fmt.Sprintf("Sold %s for %s", product.Name, money.Format(product.Price)))

	return PurchaseResult{
		PurchaseEntryID: res.EntryIDs[0],
		SaleEntryID:     res.EntryIDs[1],
		Balance:         res.Balances[actor.ID],
		CompletedAt:     time.Now().UTC(),
	}, nil
}

// AgentCashIn credits a named consumer's balance with cash collected by the
// acting agent and journals both legs. The agent's own balance is untouched.
func (s *Service) AgentCashIn(ctx context.Context, actor identity.User, consumerUsername, rawAmount string) (AgentTransferResult, error) {
	if err := authz.Allow(actor.Role, authz.OpAgentCashIn); err != nil {
		return AgentTransferResult{}, err
	}
	amount, err := money.Parse(rawAmount)
	if err != nil {
		return AgentTransferResult{}, err
	}
	consumer, err := s.ids.ResolveConsumer(ctx, consumerUsername)
	if err != nil {
		return AgentTransferResult{}, err
	}

	res, err := s.store.Post(ctx, ledger.Posting{
		Changes: []ledger.Change{{OwnerID: consumer.ID, Delta: amount}},
		Entries: []ledger.Entry{
			{
				Type:      ledger.TypeCashIn,
				OwnerID:   consumer.ID,
				Amount:    amount,
				Reference: reference.New(reference.PrefixCashIn, consumer.ID),
			},
			{
				Type:      ledger.TypeCashIn,
				OwnerID:   actor.ID,
				Amount:    amount,
				Reference: reference.New(reference.PrefixAgentCashIn, actor.ID),
			},
		},
	})
	if err != nil {
		return AgentTransferResult{}, err
	}

	s.notify(ctx, notification.KindCashIn, consumer.ID,
		fmt.Sprintf("Agent %s deposited %s to your balance", actor.Username, money.Format(amount)))

	return AgentTransferResult{
		ConsumerID:      consumer.ID,
		ConsumerEntryID: res.EntryIDs[0],
		AgentEntryID:    res.EntryIDs[1],
		ConsumerBalance: res.Balances[consumer.ID],
		CompletedAt:     time.Now().UTC(),
	}, nil
}

// AgentCashOut debits a named consumer's balance for cash handed out by the
// acting agent and journals both legs.
func (s *Service) AgentCashOut(ctx context.Context, actor identity.User, consumerUsername, rawAmount string) (AgentTransferResult, error) {
	if err := authz.Allow(actor.Role, authz.OpAgentCashOut); err != nil {
		return AgentTransferResult{}, err
	}
	amount, err := money.Parse(rawAmount)
	if err != nil {
		return AgentTransferResult{}, err
	}
	consumer, err := s.ids.ResolveConsumer(ctx, consumerUsername)
	if err != nil {
		return AgentTransferResult{}, err
	}

	res, err := s.store.Post(ctx, ledger.Posting{
		Changes: []ledger.Change{{OwnerID: consumer.ID, Delta: amount.Neg()}},
		Entries: []ledger.Entry{
			{
				Type:      ledger.TypeCashOut,
				OwnerID:   consumer.ID,
				Amount:    amount,
				Reference: reference.New(reference.PrefixCashOut, consumer.ID),
			},
			{
				Type:      ledger.TypeCashOut,
				OwnerID:   actor.ID,
				Amount:    amount,
				Reference: reference.New(reference.PrefixAgentCashOut, actor.ID),
			},
		},
	})
	if err != nil {
		return AgentTransferResult{}, err
	}

	s.notify(ctx, notification.KindCashOut, consumer.ID,
		fmt.Sprintf("Agent %s withdrew %s from your balance", actor.Username, money.Format(amount)))

	return AgentTransferResult{
		ConsumerID:      consumer.ID,
		ConsumerEntryID: res.EntryIDs[0],
		AgentEntryID:    res.EntryIDs[1],
		ConsumerBalance: res.Balances[consumer.ID],
		CompletedAt:     time.Now().UTC(),
	}, nil
}

// AgentBillPayment debits a named consumer's balance to settle a catalog
// bill and journals both legs. References embed the bill so the payment is
// traceable to the obligation it settled.
func (s *Service) AgentBillPayment(ctx context.Context, actor identity.User, consumerUsername, billID, rawAmount string) (AgentTransferResult, error) {
	if err := authz.Allow(actor.Role, authz.OpAgentBillPayment); err != nil {
		return AgentTransferResult{}, err
	}
	amount, err := money.Parse(rawAmount)
	if err != nil {
		return AgentTransferResult{}, err
	}
	consumer, err := s.ids.ResolveConsumer(ctx, consumerUsername)
	if err != nil {
		return AgentTransferResult{}, err
	}
	bill, err := s.catalog.FindBill(ctx, billID)
	if err != nil {
		return AgentTransferResult{}, err
	}

	res, err := s.store.Post(ctx, ledger.Posting{
		Changes: []ledger.Change{{OwnerID: consumer.ID, Delta: amount.Neg()}},
		Entries: []ledger.Entry{
			{
				Type:      ledger.TypeBillPayment,
				OwnerID:   consumer.ID,
				Amount:    amount,
				Reference: reference.New(reference.PrefixBillPay, bill.ID, consumer.ID),
			},
			{
				Type:      ledger.TypeBillPayment,
				OwnerID:   actor.ID,
				Amount:    amount,
				Reference: reference.New(reference.PrefixAgentBillPay, bill.ID, actor.ID),
			},
		},
	})
	if err != nil {
		return AgentTransferResult{}, err
	}

	s.notify(ctx, notification.KindBillPayment, consumer.ID,
		fmt.Sprintf("Agent %s paid %s toward your %s bill", actor.Username, money.Format(amount), bill.BillType))

	return AgentTransferResult{
		ConsumerID:      consumer.ID,
		ConsumerEntryID: res.EntryIDs[0],
		AgentEntryID:    res.EntryIDs[1],
		ConsumerBalance: res.Balances[consumer.ID],
		CompletedAt:     time.Now().UTC(),
	}, nil
}

// BalanceOf returns the acting owner's own balance.
func (s *Service) BalanceOf(ctx context.Context, actor identity.User) (decimal.Decimal, error) {
	if err := authz.Allow(actor.Role, authz.OpViewOwnBalance); err != nil {
		return decimal.Zero, err
	}
	return s.store.Balance(ctx, actor.ID)
}

// HistoryOf lists the acting owner's journal entries. Agents see their own
// audit legs here even though they hold no balance.
func (s *Service) HistoryOf(ctx context.Context, actor identity.User) ([]ledger.Entry, error) {
	if err := authz.Allow(actor.Role, authz.OpViewOwnHistory); err != nil {
		return nil, err
	}
	return s.store.Entries(ctx, actor.ID)
}

// ConsumerBalanceFor lets an agent read a named consumer's balance.
func (s *Service) ConsumerBalanceFor(ctx context.Context, actor identity.User, consumerUsername string) (decimal.Decimal, error) {
	if err := authz.Allow(actor.Role, authz.OpViewConsumerBalance); err != nil {
		return decimal.Zero, err
	}
	consumer, err := s.ids.ResolveConsumer(ctx, consumerUsername)
	if err != nil {
		return decimal.Zero, err
	}
	return s.store.Balance(ctx, consumer.ID)
}

// ConsumerHistoryFor lets an agent read a named consumer's journal entries.
func (s *Service) ConsumerHistoryFor(ctx context.Context, actor identity.User, consumerUsername string) ([]ledger.Entry, error) {
	if err := authz.Allow(actor.Role, authz.OpViewConsumerHistory); err != nil {
		return nil, err
	}
	consumer, err := s.ids.ResolveConsumer(ctx, consumerUsername)
	if err != nil {
		return nil, err
	}
	return s.store.Entries(ctx, consumer.ID)
}

func (s *Service) notify(ctx context.Context, kind, destination, body string) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.Message{Kind: kind, Destination: destination, Body: body})
}

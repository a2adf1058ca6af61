package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kft-pay/kft_pay/internal/authz"
	"github.com/kft-pay/kft_pay/internal/catalog"
	"github.com/kft-pay/kft_pay/internal/identity"
	"github.com/kft-pay/kft_pay/internal/ledger"
	"github.com/kft-pay/kft_pay/internal/money"
	"github.com/kft-pay/kft_pay/internal/notification"
)

type testNotifier struct {
	mu   sync.Mutex
	last notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = msg
	return nil
}

type env struct {
	store    ledger.Store
	ids      *identity.Service
	catalog  catalog.Repository
	notifier *testNotifier
	svc      *Service

	alice identity.User // consumer
	bob   identity.User // merchant
	kofi  identity.User // agent
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := ledger.NewInMemory()
	ids := identity.NewService(identity.NewMemoryRepository(), store)
	cat := catalog.NewMemoryRepository()
	notifier := &testNotifier{}

	e := &env{
		store:    store,
		ids:      ids,
		catalog:  cat,
		notifier: notifier,
		svc:      NewService(store, ids, cat, notifier),
	}

	ctx := context.Background()
	var err error
	if e.alice, err = ids.Register(ctx, identity.RegisterInput{Username: "alice", Password: "password1", Role: "consumer"}); err != nil {
		t.Fatalf("register alice: %v", err)
	}
	if e.bob, err = ids.Register(ctx, identity.RegisterInput{Username: "bob", Password: "password1", Role: "merchant"}); err != nil {
		t.Fatalf("register bob: %v", err)
	}
	if e.kofi, err = ids.Register(ctx, identity.RegisterInput{Username: "kofi", Password: "password1", Role: "agent"}); err != nil {
		t.Fatalf("register kofi: %v", err)
	}
	return e
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (e *env) addProduct(t *testing.T, price string) catalog.Product {
	t.Helper()
	p := catalog.Product{
		ID:         "prod-1",
		MerchantID: e.bob.ID,
		Name:       "Airtime bundle",
		Price:      dec(price),
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := e.catalog.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func TestSelfRecharge(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.svc.SelfRecharge(ctx, e.alice, "25.50")
	if err != nil {
		t.Fatalf("recharge: %v", err)
	}
	if !res.Balance.Equal(dec("25.50")) {
		t.Fatalf("expected 25.50, got %s", res.Balance)
	}
	if res.EntryID == "" {
		t.Fatal("expected entry id")
	}

	entries, _ := e.store.Entries(ctx, e.alice.ID)
	if len(entries) != 1 || entries[0].Type != ledger.TypeCashIn || entries[0].Status != ledger.StatusCompleted {
		t.Fatalf("unexpected journal: %+v", entries)
	}
}

func TestSelfRechargeInvalidAmount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for _, raw := range []string{"-5", "abc", "0", ""} {
		if _, err := e.svc.SelfRecharge(ctx, e.alice, raw); !errors.Is(err, money.ErrInvalidAmount) {
			t.Fatalf("amount %q: expected ErrInvalidAmount, got %v", raw, err)
		}
	}

	balance, _ := e.store.Balance(ctx, e.alice.ID)
	if !balance.IsZero() {
		t.Fatalf("balance changed by invalid recharge: %s", balance)
	}
	entries, _ := e.store.Entries(ctx, e.alice.ID)
	if len(entries) != 0 {
		t.Fatalf("journal changed by invalid recharge: %d entries", len(entries))
	}
}

func TestSelfRechargeUnauthorized(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for _, actor := range []identity.User{e.bob, e.kofi} {
		if _, err := e.svc.SelfRecharge(ctx, actor, "10"); !errors.Is(err, authz.ErrUnauthorized) {
			t.Fatalf("%s: expected ErrUnauthorized, got %v", actor.Role, err)
		}
	}
}

func TestPurchaseConservation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := e.addProduct(t, "20.00")
	ledger.SeedBalance(e.store, e.alice.ID, dec("50.00"))

	res, err := e.svc.Purchase(ctx, e.alice, product.ID)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if !res.Balance.Equal(dec("30.00")) {
		t.Fatalf("expected consumer balance 30.00, got %s", res.Balance)
	}

	merchantBalance, _ := e.store.Balance(ctx, e.bob.ID)
	if !merchantBalance.Equal(dec("20.00")) {
		t.Fatalf("expected merchant balance 20.00, got %s", merchantBalance)
	}

	consumerEntries, _ := e.store.Entries(ctx, e.alice.ID)
	merchantEntries, _ := e.store.Entries(ctx, e.bob.ID)
	if len(consumerEntries) != 1 || len(merchantEntries) != 1 {
		t.Fatalf("expected one entry per party, got %d/%d", len(consumerEntries), len(merchantEntries))
	}
	pur, sale := consumerEntries[0], merchantEntries[0]
	if pur.Type != ledger.TypePurchase || sale.Type != ledger.TypeSale {
		t.Fatalf("unexpected entry types: %s/%s", pur.Type, sale.Type)
	}
	if !pur.Amount.Equal(sale.Amount) {
		t.Fatalf("amounts differ: %s vs %s", pur.Amount, sale.Amount)
	}
	if pur.Reference == sale.Reference {
		t.Fatal("purchase and sale share a reference")
	}
	if pur.Status != ledger.StatusCompleted || sale.Status != ledger.StatusCompleted {
		t.Fatal("entries not completed")
	}
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := e.addProduct(t, "20.00")
	ledger.SeedBalance(e.store, e.alice.ID, dec("19.99"))

	if _, err := e.svc.Purchase(ctx, e.alice, product.ID); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	balance, _ := e.store.Balance(ctx, e.alice.ID)
	if !balance.Equal(dec("19.99")) {
		t.Fatalf("consumer balance mutated: %s", balance)
	}
	merchantBalance, _ := e.store.Balance(ctx, e.bob.ID)
	if !merchantBalance.IsZero() {
		t.Fatalf("merchant balance mutated: %s", merchantBalance)
	}
}

func TestPurchaseUnknownProduct(t *testing.T) {
	e := newEnv(t)
	if _, err := e.svc.Purchase(context.Background(), e.alice, "missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected catalog.ErrNotFound, got %v", err)
	}
}

func TestConcurrentPurchasesNeverOverspend(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := e.addProduct(t, "20.00")
	ledger.SeedBalance(e.store, e.alice.ID, dec("50.00"))

	const workers = 10
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.Purchase(ctx, e.alice, product.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else if !errors.Is(err, ledger.ErrInsufficientFunds) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// floor(50/20) = 2 purchases at most.
	if successes > 2 {
		t.Fatalf("%d purchases committed, want at most 2", successes)
	}

	balance, _ := e.store.Balance(ctx, e.alice.ID)
	if balance.IsNegative() {
		t.Fatalf("consumer balance went negative: %s", balance)
	}
	merchantBalance, _ := e.store.Balance(ctx, e.bob.ID)
	total := dec("20.00").Mul(decimal.NewFromInt(int64(successes)))
	if !merchantBalance.Equal(total) {
		t.Fatalf("merchant credited %s, want %s", merchantBalance, total)
	}
}

func TestAgentCashIn(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ledger.SeedBalance(e.store, e.alice.ID, dec("50.00"))

	res, err := e.svc.AgentCashIn(ctx, e.kofi, "alice", "100")
	if err != nil {
		t.Fatalf("agent cash-in: %v", err)
	}
	if !res.ConsumerBalance.Equal(dec("150.00")) {
		t.Fatalf("expected 150.00, got %s", res.ConsumerBalance)
	}

	consumerEntries, _ := e.store.Entries(ctx, e.alice.ID)
	agentEntries, _ := e.store.Entries(ctx, e.kofi.ID)
	if len(consumerEntries) != 1 || len(agentEntries) != 1 {
		t.Fatalf("expected paired entries, got %d/%d", len(consumerEntries), len(agentEntries))
	}
	if consumerEntries[0].Type != ledger.TypeCashIn || agentEntries[0].Type != ledger.TypeCashIn {
		t.Fatalf("unexpected entry types: %s/%s", consumerEntries[0].Type, agentEntries[0].Type)
	}

	// The agent never holds a balance of its own.
	if _, err := e.store.Balance(ctx, e.kofi.ID); !errors.Is(err, ledger.ErrUnknownOwner) {
		t.Fatalf("agent balance should not exist, got %v", err)
	}

	if e.notifier.last.Kind != notification.KindCashIn {
		t.Fatalf("expected cash-in notification, got %q", e.notifier.last.Kind)
	}
}

func TestAgentCashOut(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ledger.SeedBalance(e.store, e.alice.ID, dec("80.00"))

	res, err := e.svc.AgentCashOut(ctx, e.kofi, "alice", "30")
	if err != nil {
		t.Fatalf("agent cash-out: %v", err)
	}
	if !res.ConsumerBalance.Equal(dec("50.00")) {
		t.Fatalf("expected 50.00, got %s", res.ConsumerBalance)
	}
}

func TestAgentCashOutInsufficientFunds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ledger.SeedBalance(e.store, e.alice.ID, dec("10.00"))

	if _, err := e.svc.AgentCashOut(ctx, e.kofi, "alice", "10.01"); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	balance, _ := e.store.Balance(ctx, e.alice.ID)
	if !balance.Equal(dec("10.00")) {
		t.Fatalf("balance mutated: %s", balance)
	}
	entries, _ := e.store.Entries(ctx, e.alice.ID)
	if len(entries) != 0 {
		t.Fatalf("journal mutated: %d entries", len(entries))
	}
}

func TestAgentOperationsRejectUnknownConsumer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.svc.AgentCashIn(ctx, e.kofi, "ghost", "10"); !errors.Is(err, ledger.ErrUnknownOwner) {
		t.Fatalf("expected ErrUnknownOwner, got %v", err)
	}
	// A merchant username is not a valid counterparty either.
	if _, err := e.svc.AgentCashOut(ctx, e.kofi, "bob", "10"); !errors.Is(err, ledger.ErrUnknownOwner) {
		t.Fatalf("expected ErrUnknownOwner, got %v", err)
	}
}

func TestAgentBillPayment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ledger.SeedBalance(e.store, e.alice.ID, dec("120.00"))

	bill := catalog.Bill{ID: "bill-7", BillType: "electricity", AccountNumber: "ACC-42", AmountDue: dec("45.00"), DueDate: time.Now().UTC()}
	if err := e.catalog.CreateBill(ctx, bill); err != nil {
		t.Fatalf("create bill: %v", err)
	}

	res, err := e.svc.AgentBillPayment(ctx, e.kofi, "alice", "bill-7", "45.00")
	if err != nil {
		t.Fatalf("agent bill payment: %v", err)
	}
	if !res.ConsumerBalance.Equal(dec("75.00")) {
		t.Fatalf("expected 75.00, got %s", res.ConsumerBalance)
	}

	consumerEntries, _ := e.store.Entries(ctx, e.alice.ID)
	if len(consumerEntries) != 1 || consumerEntries[0].Type != ledger.TypeBillPayment {
		t.Fatalf("unexpected consumer journal: %+v", consumerEntries)
	}
	wantPrefix := fmt.Sprintf("BILLPAY-%s-", bill.ID)
	if got := consumerEntries[0].Reference; len(got) < len(wantPrefix) || got[:len(wantPrefix)] != wantPrefix {
		t.Fatalf("reference %q does not embed bill id", got)
	}
}

func TestAgentBillPaymentUnknownBill(t *testing.T) {
	e := newEnv(t)
	ledger.SeedBalance(e.store, e.alice.ID, dec("120.00"))

	if _, err := e.svc.AgentBillPayment(context.Background(), e.kofi, "alice", "missing", "45.00"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected catalog.ErrNotFound, got %v", err)
	}
}

func TestReadOperations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ledger.SeedBalance(e.store, e.alice.ID, dec("33.00"))

	balance, err := e.svc.BalanceOf(ctx, e.alice)
	if err != nil {
		t.Fatalf("balance of: %v", err)
	}
	if !balance.Equal(dec("33.00")) {
		t.Fatalf("expected 33.00, got %s", balance)
	}

	if _, err := e.svc.ConsumerBalanceFor(ctx, e.kofi, "alice"); err != nil {
		t.Fatalf("consumer balance for: %v", err)
	}
	if _, err := e.svc.ConsumerBalanceFor(ctx, e.alice, "alice"); !errors.Is(err, authz.ErrUnauthorized) {
		t.Fatalf("consumer allowed to use agent view: %v", err)
	}

	if _, err := e.svc.AgentCashIn(ctx, e.kofi, "alice", "10"); err != nil {
		t.Fatalf("agent cash-in: %v", err)
	}
	history, err := e.svc.ConsumerHistoryFor(ctx, e.kofi, "alice")
	if err != nil {
		t.Fatalf("consumer history for: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(history))
	}

	own, err := e.svc.HistoryOf(ctx, e.kofi)
	if err != nil {
		t.Fatalf("agent history: %v", err)
	}
	if len(own) != 1 {
		t.Fatalf("expected 1 agent audit entry, got %d", len(own))
	}
}

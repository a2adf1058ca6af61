package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kft-pay/kft_pay/internal/authz"
)

// PostgresStore persists balances and the journal in PostgreSQL. One
// transaction covers every balance mutation and journal insert of a posting;
// row locks are taken in ascending owner id order to prevent deadlock between
// operations moving money in opposite directions between the same pair.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateBalance provisions the owner's zero balance row if it does not exist.
func (s *PostgresStore) CreateBalance(ctx context.Context, ownerID string, role authz.Role) error {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return fmt.Errorf("owner id: %w", err)
	}
	_, err = s.db.Exec(ctx, `INSERT INTO balances (owner_id, role, amount) VALUES ($1, $2, 0)
        ON CONFLICT (owner_id) DO NOTHING`, owner, string(role))
	return err
}

// Balance returns the owner's current balance.
func (s *PostgresStore) Balance(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	var raw string
	err := s.db.QueryRow(ctx, `SELECT amount::text FROM balances WHERE owner_id = $1`, ownerID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("balance for %s: %w", ownerID, ErrUnknownOwner)
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// Entries lists the journal entries recorded for the owner, newest first.
func (s *PostgresStore) Entries(ctx context.Context, ownerID string) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `SELECT id, type, owner_id, amount::text, created_at, status, reference
        FROM transactions WHERE owner_id = $1 ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			id        uuid.UUID
			owner     uuid.UUID
			raw       string
			createdAt time.Time
			e         Entry
		)
		if err := rows.Scan(&id, &e.Type, &owner, &raw, &createdAt, &e.Status, &e.Reference); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		e.ID = id.String()
		e.OwnerID = owner.String()
		e.Amount = amount
		e.Timestamp = createdAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Post applies the posting inside one transaction. The debit check and the
// update happen while holding the row lock, so concurrent postings against
// the same owner serialize.
func (s *PostgresStore) Post(ctx context.Context, posting Posting) (PostResult, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PostResult{}, fmt.Errorf("%w: %v", ErrConcurrentModification, err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	deltas := make(map[string]decimal.Decimal, len(posting.Changes))
	owners := make([]string, 0, len(posting.Changes))
	for _, ch := range posting.Changes {
		if _, seen := deltas[ch.OwnerID]; !seen {
			owners = append(owners, ch.OwnerID)
		}
		deltas[ch.OwnerID] = deltas[ch.OwnerID].Add(ch.Delta)
	}
	sort.Strings(owners)

	result := PostResult{Balances: make(map[string]decimal.Decimal, len(owners))}
	for _, ownerID := range owners {
		var raw string
		err := tx.QueryRow(ctx, `SELECT amount::text FROM balances WHERE owner_id = $1 FOR UPDATE`, ownerID).Scan(&raw)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return PostResult{}, fmt.Errorf("balance for %s: %w", ownerID, ErrUnknownOwner)
			}
			return PostResult{}, translatePgError(err)
		}
		current, err := decimal.NewFromString(raw)
		if err != nil {
			return PostResult{}, err
		}
		updated := current.Add(deltas[ownerID])
		if updated.IsNegative() {
			return PostResult{}, ErrInsufficientFunds
		}
		if _, err := tx.Exec(ctx, `UPDATE balances SET amount = $1 WHERE owner_id = $2`, updated.StringFixed(2), ownerID); err != nil {
			return PostResult{}, translatePgError(err)
		}
		result.Balances[ownerID] = updated
	}

	for _, e := range posting.Entries {
		entryID := uuid.New()
		_, err := tx.Exec(ctx, `INSERT INTO transactions (id, type, owner_id, amount, created_at, status, reference)
            VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			entryID, string(e.Type), e.OwnerID, e.Amount.StringFixed(2), time.Now().UTC(), string(StatusCompleted), e.Reference)
		if err != nil {
			return PostResult{}, translatePgError(err)
		}
		result.EntryIDs = append(result.EntryIDs, entryID.String())
	}

	if err := tx.Commit(ctx); err != nil {
		return PostResult{}, translatePgError(err)
	}

	return result, nil
}

// translatePgError maps storage faults onto the ledger error taxonomy.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicateReference, pgErr.ConstraintName)
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%w: %s", ErrConcurrentModification, pgErr.Code)
		}
	}
	return err
}

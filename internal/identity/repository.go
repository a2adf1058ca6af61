package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kft-pay/kft_pay/internal/authz"
	"github.com/kft-pay/kft_pay/internal/ledger"
)

// ErrUsernameTaken indicates the requested username already exists.
var ErrUsernameTaken = errors.New("username already exists")

// Repository persists users and resolves them by username or id. Lookup
// misses surface as ledger.ErrUnknownOwner so callers handle directory and
// balance misses uniformly.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	UpdatePassword(ctx context.Context, id string, hash []byte) error
	UpdateTokenVersion(ctx context.Context, id string, version int) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed user repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, username, role, password_hash, token_version, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, user.Username, string(user.Role), user.PasswordHash, user.TokenVersion, user.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrUsernameTaken
	}
	return err
}

// FindByUsername fetches a user by username.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, username, role, password_hash, token_version, created_at
        FROM users WHERE username = $1`, username)
	return scanUser(row, username)
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, fmt.Errorf("user %s: %w", id, ledger.ErrUnknownOwner)
	}
	row := r.db.QueryRow(ctx, `SELECT id, username, role, password_hash, token_version, created_at
        FROM users WHERE id = $1`, userID)
	return scanUser(row, id)
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, hash []byte) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, ledger.ErrUnknownOwner)
	}
	return nil
}

// UpdateTokenVersion stores a new token version, invalidating older tokens.
func (r *PostgresRepository) UpdateTokenVersion(ctx context.Context, id string, version int) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET token_version = $1 WHERE id = $2`, version, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, ledger.ErrUnknownOwner)
	}
	return nil
}

func scanUser(row pgx.Row, key string) (User, error) {
	var (
		id        uuid.UUID
		role      string
		createdAt time.Time
		user      User
	)
	if err := row.Scan(&id, &user.Username, &role, &user.PasswordHash, &user.TokenVersion, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("user %s: %w", key, ledger.ErrUnknownOwner)
		}
		return User{}, err
	}
	user.ID = id.String()
	user.Role = authz.Role(role)
	user.CreatedAt = createdAt.UTC()
	return user, nil
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound indicates the requested catalog record does not exist.
var ErrNotFound = errors.New("catalog record not found")

// Repository persists catalog data. The transfer orchestrator only reads
// from it; writes come from merchant product management and consumer
// subscriptions.
type Repository interface {
	CreateProduct(ctx context.Context, p Product) error
	UpdateProduct(ctx context.Context, p Product) error
	DeleteProduct(ctx context.Context, id string) error
	FindProduct(ctx context.Context, id string) (Product, error)
	ProductsByMerchant(ctx context.Context, merchantID string) ([]Product, error)
	AllProducts(ctx context.Context) ([]Product, error)

	CreateService(ctx context.Context, s Service) error
	FindService(ctx context.Context, id string) (Service, error)
	AllServices(ctx context.Context) ([]Service, error)

	CreateSubscription(ctx context.Context, sub Subscription) error
	SubscriptionsByConsumer(ctx context.Context, consumerID string) ([]Subscription, error)

	CreateBill(ctx context.Context, b Bill) error
	FindBill(ctx context.Context, id string) (Bill, error)
}

// PostgresRepository stores catalog data in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed catalog repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateProduct(ctx context.Context, p Product) error {
	_, err := r.db.Exec(ctx, `INSERT INTO products (id, merchant_id, name, description, price, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.MerchantID, p.Name, p.Description, p.Price.StringFixed(2), p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	return err
}

func (r *PostgresRepository) UpdateProduct(ctx context.Context, p Product) error {
	cmd, err := r.db.Exec(ctx, `UPDATE products SET name = $1, description = $2, price = $3, updated_at = $4
        WHERE id = $5`, p.Name, p.Description, p.Price.StringFixed(2), time.Now().UTC(), p.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

func (r *PostgresRepository) DeleteProduct(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *PostgresRepository) FindProduct(ctx context.Context, id string) (Product, error) {
	row := r.db.QueryRow(ctx, `SELECT id, merchant_id, name, description, price::text, created_at, updated_at
        FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (r *PostgresRepository) ProductsByMerchant(ctx context.Context, merchantID string) ([]Product, error) {
	rows, err := r.db.Query(ctx, `SELECT id, merchant_id, name, description, price::text, created_at, updated_at
        FROM products WHERE merchant_id = $1 ORDER BY created_at`, merchantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (r *PostgresRepository) AllProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx, `SELECT id, merchant_id, name, description, price::text, created_at, updated_at
        FROM products ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (r *PostgresRepository) CreateService(ctx context.Context, s Service) error {
	_, err := r.db.Exec(ctx, `INSERT INTO services (id, merchant_id, name, description, subscription_fee, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.MerchantID, s.Name, s.Description, s.SubscriptionFee.StringFixed(2), s.CreatedAt.UTC(), s.UpdatedAt.UTC())
	return err
}

func (r *PostgresRepository) FindService(ctx context.Context, id string) (Service, error) {
	row := r.db.QueryRow(ctx, `SELECT id, merchant_id, name, description, subscription_fee::text, created_at, updated_at
        FROM services WHERE id = $1`, id)
	var (
		s   Service
		raw string
	)
	if err := row.Scan(&s.ID, &s.MerchantID, &s.Name, &s.Description, &raw, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Service{}, fmt.Errorf("service %s: %w", id, ErrNotFound)
		}
		return Service{}, err
	}
	fee, err := decimal.NewFromString(raw)
	if err != nil {
		return Service{}, err
	}
	s.SubscriptionFee = fee
	return s, nil
}

func (r *PostgresRepository) AllServices(ctx context.Context) ([]Service, error) {
	rows, err := r.db.Query(ctx, `SELECT id, merchant_id, name, description, subscription_fee::text, created_at, updated_at
        FROM services ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		var (
			s   Service
			raw string
		)
		if err := rows.Scan(&s.ID, &s.MerchantID, &s.Name, &s.Description, &raw, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		fee, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		s.SubscriptionFee = fee
		services = append(services, s)
	}
	return services, rows.Err()
}

func (r *PostgresRepository) CreateSubscription(ctx context.Context, sub Subscription) error {
	_, err := r.db.Exec(ctx, `INSERT INTO subscriptions (id, consumer_id, service_id, start_date, end_date, is_active)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		sub.ID, sub.ConsumerID, sub.ServiceID, sub.StartDate.UTC(), sub.EndDate, sub.Active)
	return err
}

func (r *PostgresRepository) SubscriptionsByConsumer(ctx context.Context, consumerID string) ([]Subscription, error) {
	rows, err := r.db.Query(ctx, `SELECT id, consumer_id, service_id, start_date, end_date, is_active
        FROM subscriptions WHERE consumer_id = $1 ORDER BY start_date`, consumerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.ID, &sub.ConsumerID, &sub.ServiceID, &sub.StartDate, &sub.EndDate, &sub.Active); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (r *PostgresRepository) CreateBill(ctx context.Context, b Bill) error {
	_, err := r.db.Exec(ctx, `INSERT INTO bills (id, bill_type, account_number, amount_due, due_date)
        VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.BillType, b.AccountNumber, b.AmountDue.StringFixed(2), b.DueDate.UTC())
	return err
}

func (r *PostgresRepository) FindBill(ctx context.Context, id string) (Bill, error) {
	row := r.db.QueryRow(ctx, `SELECT id, bill_type, account_number, amount_due::text, due_date
        FROM bills WHERE id = $1`, id)
	var (
		b   Bill
		raw string
	)
	if err := row.Scan(&b.ID, &b.BillType, &b.AccountNumber, &raw, &b.DueDate); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bill{}, fmt.Errorf("bill %s: %w", id, ErrNotFound)
		}
		return Bill{}, err
	}
	due, err := decimal.NewFromString(raw)
	if err != nil {
		return Bill{}, err
	}
	b.AmountDue = due
	return b, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p   Product
		raw string
	)
	if err := row.Scan(&p.ID, &p.MerchantID, &p.Name, &p.Description, &raw, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, fmt.Errorf("product: %w", ErrNotFound)
		}
		return Product{}, err
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return Product{}, err
	}
	p.Price = price
	return p, nil
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	var products []Product
	for rows.Next() {
		var (
			p   Product
			raw string
		)
		if err := rows.Scan(&p.ID, &p.MerchantID, &p.Name, &p.Description, &raw, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		p.Price = price
		products = append(products, p)
	}
	return products, rows.Err()
}

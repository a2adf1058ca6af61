package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kft-pay/kft_pay/internal/authz"
	"github.com/kft-pay/kft_pay/internal/identity"
	"github.com/kft-pay/kft_pay/internal/money"
)

// ErrNotProductOwner indicates a merchant tried to manage another merchant's product.
var ErrNotProductOwner = errors.New("not the product owner")

// Catalog exposes merchant product management and consumer subscriptions.
type Catalog struct {
	repo Repository
}

// New builds the catalog service.
func New(repo Repository) *Catalog {
	return &Catalog{repo: repo}
}

// ProductInput carries product fields from a merchant.
type ProductInput struct {
	Name        string
	Description string
	Price       string
}

// CreateProduct adds a product owned by the acting merchant.
func (c *Catalog) CreateProduct(ctx context.Context, actor identity.User, input ProductInput) (Product, error) {
	if err := authz.Allow(actor.Role, authz.OpManageProducts); err != nil {
		return Product{}, err
	}
	price, err := money.Parse(input.Price)
	if err != nil {
		return Product{}, err
	}
	now := time.Now().UTC()
	p := Product{
		ID:          uuid.NewString(),
		MerchantID:  actor.ID,
		Name:        input.Name,
		Description: input.Description,
		Price:       price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.repo.CreateProduct(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// UpdateProduct modifies one of the acting merchant's own products.
func (c *Catalog) UpdateProduct(ctx context.Context, actor identity.User, productID string, input ProductInput) (Product, error) {
	if err := authz.Allow(actor.Role, authz.OpManageProducts); err != nil {
		return Product{}, err
	}
	existing, err := c.repo.FindProduct(ctx, productID)
	if err != nil {
		return Product{}, err
	}
	if existing.MerchantID != actor.ID {
		return Product{}, ErrNotProductOwner
	}
	price, err := money.Parse(input.Price)
	if err != nil {
		return Product{}, err
	}
	existing.Name = input.Name
	existing.Description = input.Description
	existing.Price = price
	existing.UpdatedAt = time.Now().UTC()
	if err := c.repo.UpdateProduct(ctx, existing); err != nil {
		return Product{}, err
	}
	return existing, nil
}

// DeleteProduct removes one of the acting merchant's own products.
func (c *Catalog) DeleteProduct(ctx context.Context, actor identity.User, productID string) error {
	if err := authz.Allow(actor.Role, authz.OpManageProducts); err != nil {
		return err
	}
	existing, err := c.repo.FindProduct(ctx, productID)
	if err != nil {
		return err
	}
	if existing.MerchantID != actor.ID {
		return ErrNotProductOwner
	}
	return c.repo.DeleteProduct(ctx, productID)
}

// OwnProducts lists the acting merchant's products.
func (c *Catalog) OwnProducts(ctx context.Context, actor identity.User) ([]Product, error) {
	if err := authz.Allow(actor.Role, authz.OpManageProducts); err != nil {
		return nil, err
	}
	return c.repo.ProductsByMerchant(ctx, actor.ID)
}

// BrowseProducts lists every product, for consumers shopping the platform.
func (c *Catalog) BrowseProducts(ctx context.Context) ([]Product, error) {
	return c.repo.AllProducts(ctx)
}

// BrowseServices lists every subscribable service.
func (c *Catalog) BrowseServices(ctx context.Context) ([]Service, error) {
	return c.repo.AllServices(ctx)
}

// Subscribe enrolls the acting consumer in a service.
func (c *Catalog) Subscribe(ctx context.Context, actor identity.User, serviceID string) (Subscription, error) {
	if err := authz.Allow(actor.Role, authz.OpSubscribe); err != nil {
		return Subscription{}, err
	}
	if _, err := c.repo.FindService(ctx, serviceID); err != nil {
		return Subscription{}, err
	}
	sub := Subscription{
		ID:         uuid.NewString(),
		ConsumerID: actor.ID,
		ServiceID:  serviceID,
		StartDate:  time.Now().UTC(),
		Active:     true,
	}
	if err := c.repo.CreateSubscription(ctx, sub); err != nil {
		return Subscription{}, err
	}
	return sub, nil
}

// Subscriptions lists the acting consumer's subscriptions.
func (c *Catalog) Subscriptions(ctx context.Context, actor identity.User) ([]Subscription, error) {
	if err := authz.Allow(actor.Role, authz.OpSubscribe); err != nil {
		return nil, err
	}
	return c.repo.SubscriptionsByConsumer(ctx, actor.ID)
}

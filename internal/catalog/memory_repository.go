package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryRepository struct {
	mu            sync.RWMutex
	products      map[string]Product
	services      map[string]Service
	subscriptions map[string]Subscription
	bills         map[string]Bill
}

// NewMemoryRepository builds an in-memory catalog for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		products:      make(map[string]Product),
		services:      make(map[string]Service),
		subscriptions: make(map[string]Subscription),
		bills:         make(map[string]Bill),
	}
}

func (r *memoryRepository) CreateProduct(_ context.Context, p Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
	return nil
}

func (r *memoryRepository) UpdateProduct(_ context.Context, p Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return fmt.Errorf("product %s: %w", p.ID, ErrNotFound)
	}
	p.UpdatedAt = time.Now().UTC()
	r.products[p.ID] = p
	return nil
}

func (r *memoryRepository) DeleteProduct(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	delete(r.products, id)
	return nil
}

func (r *memoryRepository) FindProduct(_ context.Context, id string) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return Product{}, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return p, nil
}

func (r *memoryRepository) ProductsByMerchant(_ context.Context, merchantID string) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Product
	for _, p := range r.products {
		if p.MerchantID == merchantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepository) AllProducts(_ context.Context) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryRepository) CreateService(_ context.Context, s Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[s.ID] = s
	return nil
}

func (r *memoryRepository) FindService(_ context.Context, id string) (Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.services[id]
	if !ok {
		return Service{}, fmt.Errorf("service %s: %w", id, ErrNotFound)
	}
	return s, nil
}

func (r *memoryRepository) AllServices(_ context.Context) ([]Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Service, 0, len(r.services))
	for _, s := range r.services {
		out = append(out, s)
	}
	return out, nil
}

func (r *memoryRepository) CreateSubscription(_ context.Context, sub Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscriptions[sub.ID] = sub
	return nil
}

func (r *memoryRepository) SubscriptionsByConsumer(_ context.Context, consumerID string) ([]Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Subscription
	for _, sub := range r.subscriptions {
		if sub.ConsumerID == consumerID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r *memoryRepository) CreateBill(_ context.Context, b Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bills[b.ID] = b
	return nil
}

func (r *memoryRepository) FindBill(_ context.Context, id string) (Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bills[id]
	if !ok {
		return Bill{}, fmt.Errorf("bill %s: %w", id, ErrNotFound)
	}
	return b, nil
}

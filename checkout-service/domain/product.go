package domain

import (
	"github.com/draftea/checkout-system/shared/models"
)

// Product is the inventory-bearing catalog entry. Inventory never goes below zero.
type Product struct {
	ID         models.ID
	TenantID   models.ID
	Name       string
	Inventory  int64
	Price      models.Money
	Timestamps models.Timestamps
	Version    models.Version
}

// Reserve decrements inventory by quantity or fails without mutating
func (p *Product) Reserve(quantity int64) error {
	if quantity <= 0 {
		return NewValidationError("reservation quantity must be greater than zero")
	}
	if p.Inventory < quantity {
		return NewInsufficientInventoryError(p.Inventory, quantity)
	}

	p.Inventory -= quantity
	p.Timestamps = p.Timestamps.Update()
	return nil
}

// Release credits quantity back. Calling it twice for the same reservation
// over-credits; callers release at most once per reserved line.
func (p *Product) Release(quantity int64) error {
	if quantity <= 0 {
		return NewValidationError("release quantity must be greater than zero")
	}

	p.Inventory += quantity
	p.Timestamps = p.Timestamps.Update()
	return nil
}

// Clone returns a detached copy
func (p *Product) Clone() *Product {
	c := *p
	return &c
}

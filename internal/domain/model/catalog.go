package model

import "time"

// SoldProduct records the most recent sale seen for a product of a store.
type SoldProduct struct {
	ProductID  string
	LastSoldAt time.Time
}

// ParsedOrder is an order reassembled from a bulk export. ProductIDs holds
// each referenced product once, in first-seen order.
type ParsedOrder struct {
	OrderID    string
	CreatedAt  time.Time
	ProductIDs []string
}

type ParsedProduct struct {
	ProductID string
	CreatedAt time.Time
	Variants  []Variant
}

// Variant prices are decimal strings as returned by Shopify; nil means absent.
type Variant struct {
	ID             string
	Price          *string
	CompareAtPrice *string
}

// VariantPriceUpdate is one pending compare-at change. A nil CompareAtPrice clears it.
type VariantPriceUpdate struct {
	VariantID      string
	CompareAtPrice *string
}

// ProductUpdate groups the pending variant changes of a single product.
type ProductUpdate struct {
	ProductID string
	Variants  []VariantPriceUpdate
}

// BatchResult aggregates the outcome of applying a set of ProductUpdates.
// Errors maps a product id to the reason its update failed.
type BatchResult struct {
	SuccessCount int
	ErrorCount   int
	Errors       map[string]string
}

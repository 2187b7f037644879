// Package pricing decides the compare-at price of a variant. Every function is
// pure: the current time and the sold product set are always passed in.
package pricing

import (
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"shopify-price-manager/internal/domain/model"
)

const (
	SalesLookbackDays = 60
	NewProductDays    = 30

	day = 24 * time.Hour

	MarkupFactor = 2

	// prices are rendered with two fractional digits
	priceExponent = -2
	decimalDigits = 34
)

// SoldSet holds the product ids sold inside the lookback window.
type SoldSet map[string]struct{}

func NewSoldSet(productIDs ...string) SoldSet {
	set := make(SoldSet, len(productIDs))
	for _, id := range productIDs {
		set[id] = struct{}{}
	}
	return set
}

func (s SoldSet) Contains(productID string) bool {
	_, ok := s[productID]
	return ok
}

// SalesCutoff is the oldest sale timestamp that still counts as recent.
func SalesCutoff(now time.Time) time.Time {
	return now.Add(-SalesLookbackDays * day)
}

// IsNewProduct reports whether the product was created strictly inside the
// new-product window. A product exactly NewProductDays old is not new.
func IsNewProduct(createdAt, now time.Time) bool {
	return createdAt.After(now.Add(-NewProductDays * day))
}

// ComputeTargetPrice returns the compare-at price a variant should carry, or
// nil when it must be cleared.
func ComputeTargetPrice(currentPrice *string, createdAt time.Time, productID string, sold SoldSet, now time.Time) *string {
	if !sold.Contains(productID) && !IsNewProduct(createdAt, now) {
		return nil
	}
	return Markup(currentPrice)
}

// Markup doubles a positive price and rounds it half-up to cents. Absent,
// non-positive and unparseable prices yield nil.
func Markup(price *string) *string {
	value, ok := parseDecimal(price)
	if !ok || value.Sign() <= 0 {
		return nil
	}

	ctx := newContext()
	doubled := new(apd.Decimal)
	if _, err := ctx.Mul(doubled, value, apd.New(MarkupFactor, 0)); err != nil {
		return nil
	}
	return quantize(ctx, doubled)
}

// NormalizePrice renders a price with exactly two decimals. Unparseable input
// is returned unchanged so it still compares as an opaque value.
func NormalizePrice(value *string) *string {
	if value == nil {
		return nil
	}
	parsed, ok := parseDecimal(value)
	if !ok {
		return value
	}
	if normalized := quantize(newContext(), parsed); normalized != nil {
		return normalized
	}
	return value
}

// FormatPrice is NormalizePrice for display: unparseable input becomes nil.
func FormatPrice(value *string) *string {
	parsed, ok := parseDecimal(value)
	if !ok {
		return nil
	}
	return quantize(newContext(), parsed)
}

// NeedsUpdate is the only place that decides whether a mutation is issued.
// "60" and "60.00" are equal, and so are two absent values.
func NeedsUpdate(current, target *string) bool {
	a, b := NormalizePrice(current), NormalizePrice(target)
	if a == nil || b == nil {
		return a != b
	}
	return *a != *b
}

// VariantDecision is the outcome of evaluating one variant.
type VariantDecision struct {
	ProductID        string
	VariantID        string
	CurrentCompareAt *string
	NewCompareAt     *string
	NeedsUpdate      bool
}

func (d VariantDecision) IsSetting() bool {
	return d.NewCompareAt != nil
}

func (d VariantDecision) IsClearing() bool {
	return d.NewCompareAt == nil && d.CurrentCompareAt != nil
}

func EvaluateVariant(product model.ParsedProduct, variant model.Variant, sold SoldSet, now time.Time) VariantDecision {
	target := ComputeTargetPrice(variant.Price, product.CreatedAt, product.ProductID, sold, now)
	return VariantDecision{
		ProductID:        product.ProductID,
		VariantID:        variant.ID,
		CurrentCompareAt: variant.CompareAtPrice,
		NewCompareAt:     target,
		NeedsUpdate:      NeedsUpdate(variant.CompareAtPrice, target),
	}
}

func newContext() *apd.Context {
	ctx := apd.BaseContext.WithPrecision(decimalDigits)
	ctx.Rounding = apd.RoundHalfUp
	return ctx
}

func parseDecimal(value *string) (*apd.Decimal, bool) {
	if value == nil {
		return nil, false
	}
	parsed, _, err := apd.NewFromString(strings.TrimSpace(*value))
	if err != nil || parsed.Form != apd.Finite {
		return nil, false
	}
	return parsed, true
}

func quantize(ctx *apd.Context, value *apd.Decimal) *string {
	rounded := new(apd.Decimal)
	if _, err := ctx.Quantize(rounded, value, priceExponent); err != nil {
		return nil
	}
	text := rounded.Text('f')
	return &text
}

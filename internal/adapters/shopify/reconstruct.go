package shopify

import (
	"context"
	"io"
	"strings"
	"time"

	"shopify-price-manager/internal/adapters/shopify/dto"
	"shopify-price-manager/internal/domain/model"
	"shopify-price-manager/internal/logging"
)

// ReconstructOrders rebuilds orders and their product ids from a flattened
// bulk export. Line items reference their order through __parentId and may
// appear anywhere after it. Orders are returned in arrival order.
func ReconstructOrders(ctx context.Context, r io.Reader, now func() time.Time, logger logging.LoggerService) ([]model.ParsedOrder, error) {
	logger = logging.OrNop(logger)
	var (
		orders []model.ParsedOrder
		seen   []map[string]struct{}
		index  = make(map[string]int)
	)

	err := decodeLines(ctx, r, logger, func(line dto.BulkLine) {
		switch {
		case strings.HasPrefix(line.ID, orderGIDPrefix):
			if _, exists := index[line.ID]; exists {
				return
			}
			index[line.ID] = len(orders)
			orders = append(orders, model.ParsedOrder{
				OrderID:    line.ID,
				CreatedAt:  parseCreatedAt(line.CreatedAt, now),
				ProductIDs: []string{},
			})
			seen = append(seen, make(map[string]struct{}))

		case line.Product != nil && line.ParentID != "":
			i, ok := index[line.ParentID]
			productID := strings.TrimSpace(line.Product.ID)
			if !ok || productID == "" {
				return
			}
			if _, dup := seen[i][productID]; dup {
				return
			}
			seen[i][productID] = struct{}{}
			orders[i].ProductIDs = append(orders[i].ProductIDs, productID)
		}
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ReconstructProducts rebuilds products and their variants, keeping variants
// in stream order. Variants whose product was never seen are dropped.
func ReconstructProducts(ctx context.Context, r io.Reader, now func() time.Time, logger logging.LoggerService) ([]model.ParsedProduct, error) {
	logger = logging.OrNop(logger)
	var (
		products []model.ParsedProduct
		index    = make(map[string]int)
	)

	err := decodeLines(ctx, r, logger, func(line dto.BulkLine) {
		switch {
		case strings.HasPrefix(line.ID, productGIDPrefix):
			if _, exists := index[line.ID]; exists {
				return
			}
			index[line.ID] = len(products)
			products = append(products, model.ParsedProduct{
				ProductID: line.ID,
				CreatedAt: parseCreatedAt(line.CreatedAt, now),
				Variants:  []model.Variant{},
			})

		case strings.HasPrefix(line.ID, variantGIDPrefix):
			i, ok := index[line.ParentID]
			if !ok {
				return
			}
			products[i].Variants = append(products[i].Variants, model.Variant{
				ID:             line.ID,
				Price:          line.Price.Value,
				CompareAtPrice: line.CompareAtPrice.Value,
			})
		}
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// parseCreatedAt falls back to the current time so one bad timestamp never
// aborts the stream.
func parseCreatedAt(value string, now func() time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(value)); err == nil {
		return t.UTC()
	}
	if now == nil {
		now = time.Now
	}
	return now().UTC()
}

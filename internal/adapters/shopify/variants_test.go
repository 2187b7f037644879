package shopify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopify-price-manager/internal/domain/model"
)

func price(s string) *string { return &s }

func TestVariantUpdater_Apply(t *testing.T) {
	exec := &scriptedExecutor{replies: []scriptedReply{
		{data: `{"productVariantsBulkUpdate":{"productVariants":[{"id":"gid://shopify/ProductVariant/11","compareAtPrice":"20.00"}],"userErrors":[]}}`},
		{data: `{"productVariantsBulkUpdate":{"productVariants":[],"userErrors":[{"field":["variants","0","compareAtPrice"],"message":"Compare at price must be greater than price"}]}}`},
		{err: &APIError{Kind: KindProtocol, Message: "graphql errors: internal"}},
		{data: `{"productVariantsBulkUpdate":{"productVariants":[],"userErrors":[]}}`},
	}}
	logger, logs := newObservedLogger()
	updater := NewVariantUpdater(exec, 300*time.Millisecond, logger)
	var sleeps []time.Duration
	updater.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	updates := []model.ProductUpdate{
		{ProductID: "gid://shopify/Product/1", Variants: []model.VariantPriceUpdate{
			{VariantID: "gid://shopify/ProductVariant/11", CompareAtPrice: price("20.00")},
			{VariantID: "gid://shopify/ProductVariant/12", CompareAtPrice: nil},
		}},
		{ProductID: "gid://shopify/Product/2", Variants: []model.VariantPriceUpdate{
			{VariantID: "gid://shopify/ProductVariant/21", CompareAtPrice: price("1.00")},
		}},
		{ProductID: "gid://shopify/Product/3", Variants: []model.VariantPriceUpdate{
			{VariantID: "gid://shopify/ProductVariant/31", CompareAtPrice: nil},
		}},
		{ProductID: "gid://shopify/Product/4", Variants: []model.VariantPriceUpdate{
			{VariantID: "gid://shopify/ProductVariant/41", CompareAtPrice: price("8.00")},
		}},
	}

	result, err := updater.Apply(t.Context(), updates)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 2, result.ErrorCount)
	assert.Equal(t, map[string]string{
		"gid://shopify/Product/2": "Compare at price must be greater than price",
		"gid://shopify/Product/3": "shopify protocol error: graphql errors: internal",
	}, result.Errors)

	// one call per product, delay only between calls
	require.Len(t, exec.calls, 4)
	assert.Len(t, sleeps, 3)

	first := exec.calls[0]
	assert.Contains(t, first.query, "productVariantsBulkUpdate")
	assert.Equal(t, "gid://shopify/Product/1", first.variables["productId"])
	raw, err := json.Marshal(first.variables["variants"])
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"id":"gid://shopify/ProductVariant/11","compareAtPrice":"20.00"},
		{"id":"gid://shopify/ProductVariant/12","compareAtPrice":null}
	]`, string(raw))

	assert.Equal(t, 2, logs.FilterMessage("variant update failed").Len())
	progress := logs.FilterMessage("variant update progress").All()
	require.Len(t, progress, 1)
	assert.EqualValues(t, 4, progress[0].ContextMap()["processed"])
}

func TestVariantUpdater_ProgressEveryHundred(t *testing.T) {
	exec := &scriptedExecutor{replies: []scriptedReply{{data: `{"productVariantsBulkUpdate":{"userErrors":[]}}`}}}
	logger, logs := newObservedLogger()
	updater := NewVariantUpdater(exec, 0, logger)

	updates := make([]model.ProductUpdate, 250)
	for i := range updates {
		updates[i] = model.ProductUpdate{ProductID: "p", Variants: []model.VariantPriceUpdate{{VariantID: "v"}}}
	}
	result, err := updater.Apply(t.Context(), updates)
	require.NoError(t, err)
	assert.Equal(t, 250, result.SuccessCount)
	assert.Equal(t, 3, logs.FilterMessage("variant update progress").Len())
}

func TestVariantUpdater_Empty(t *testing.T) {
	updater := NewVariantUpdater(&scriptedExecutor{}, time.Second, nil)
	result, err := updater.Apply(t.Context(), nil)
	require.NoError(t, err)
	assert.Zero(t, result.SuccessCount)
	assert.Zero(t, result.ErrorCount)
}

func TestVariantUpdater_StopsOnCancel(t *testing.T) {
	exec := &scriptedExecutor{replies: []scriptedReply{{err: context.Canceled}}}
	updater := NewVariantUpdater(exec, 0, nil)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := updater.Apply(ctx, []model.ProductUpdate{{ProductID: "p"}})
	assert.ErrorIs(t, err, context.Canceled)
}

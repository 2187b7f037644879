package shopify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"shopify-price-manager/internal/adapters/shopify/dto"
	"shopify-price-manager/internal/domain/model"
	"shopify-price-manager/internal/logging"
)

const progressEvery = 100

const productVariantsBulkUpdateMutation = `
mutation productVariantsBulkUpdate($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
	productVariantsBulkUpdate(productId: $productId, variants: $variants) {
		productVariants {
			id
			compareAtPrice
		}
		userErrors {
			field
			message
		}
	}
}`

// VariantUpdater writes compare-at prices, one mutation per product.
type VariantUpdater struct {
	exec   Executor
	delay  time.Duration
	logger logging.LoggerService
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewVariantUpdater(exec Executor, delay time.Duration, logger logging.LoggerService) *VariantUpdater {
	return &VariantUpdater{
		exec:   exec,
		delay:  delay,
		logger: logging.OrNop(logger),
		sleep:  sleepWithContext,
	}
}

// Apply sends every update in order, pausing between products. Failures are
// recorded per product and never stop the batch; only context cancellation
// returns an error.
func (u *VariantUpdater) Apply(ctx context.Context, updates []model.ProductUpdate) (model.BatchResult, error) {
	result := model.BatchResult{Errors: make(map[string]string)}
	total := len(updates)

	for i, update := range updates {
		if i > 0 && u.delay > 0 {
			if err := u.sleep(ctx, u.delay); err != nil {
				return result, err
			}
		}

		if err := u.applyOne(ctx, update); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			result.ErrorCount++
			result.Errors[update.ProductID] = errorText(err)
			u.logger.LogWarning("variant update failed",
				zap.String("product_id", update.ProductID),
				zap.Int("variants", len(update.Variants)),
				zap.Error(err),
			)
		} else {
			result.SuccessCount++
		}

		processed := i + 1
		if processed%progressEvery == 0 || processed == total {
			u.logger.Log("variant update progress",
				zap.Int("processed", processed),
				zap.Int("total", total),
				zap.Int("percent", processed*100/total),
			)
		}
	}

	u.logger.Log("variant update complete",
		zap.Int("succeeded", result.SuccessCount),
		zap.Int("failed", result.ErrorCount),
	)
	return result, nil
}

func (u *VariantUpdater) applyOne(ctx context.Context, update model.ProductUpdate) error {
	variants := make([]dto.ProductVariantsBulkInput, 0, len(update.Variants))
	for _, v := range update.Variants {
		variants = append(variants, dto.ProductVariantsBulkInput{
			ID:             v.VariantID,
			CompareAtPrice: v.CompareAtPrice,
		})
	}

	var data dto.ProductVariantsBulkUpdateData
	err := u.exec.Execute(ctx, productVariantsBulkUpdateMutation, map[string]any{
		"productId": update.ProductID,
		"variants":  variants,
	}, &data)
	if err != nil {
		return err
	}
	return userErrorsToError("productVariantsBulkUpdate", data.ProductVariantsBulkUpdate.UserErrors)
}

func errorText(err error) string {
	var userErrs *UserErrorsError
	if errors.As(err, &userErrs) {
		if msg := userErrs.Messages(); msg != "" {
			return msg
		}
	}
	return err.Error()
}

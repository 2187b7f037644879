package shopify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"shopify-price-manager/internal/config"
	"shopify-price-manager/internal/domain/model"
	"shopify-price-manager/internal/logging"
)

// Gateway groups everything one sync run does against a single store.
type Gateway struct {
	client  *Client
	bulk    *BulkRunner
	updater *VariantUpdater
	logger  logging.LoggerService
	now     func() time.Time
}

func NewGateway(credential model.Credential, cfg config.ShopifyConfig, httpClient *http.Client, logger logging.LoggerService) *Gateway {
	client := NewClient(credential, cfg, httpClient, logger)
	return &Gateway{
		client:  client,
		bulk:    NewBulkRunner(client, PollConfigFrom(cfg), client.logger),
		updater: NewVariantUpdater(client, cfg.MutationDelay, client.logger),
		logger:  client.logger,
		now:     time.Now,
	}
}

// FetchOrdersSince exports orders created on or after the date of since.
func (g *Gateway) FetchOrdersSince(ctx context.Context, since time.Time) (orders []model.ParsedOrder, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Gateway.FetchOrdersSince",
		trace.WithAttributes(attribute.String("orders.since", since.UTC().Format(time.DateOnly))))
	defer func() { endSpan(span, err) }()

	g.logger.Log("starting bulk fetch of orders", zap.Time("since", since))
	result, err := g.bulk.Run(ctx, BuildOrdersBulkQuery(since))
	if err != nil {
		return nil, err
	}
	if result.Empty() {
		g.logger.Log("no orders found in date range")
		return []model.ParsedOrder{}, nil
	}

	body, err := g.client.openDownload(ctx, result.URL)
	if err != nil {
		return nil, fmt.Errorf("download orders: %w", err)
	}
	defer body.Close()

	orders, err = ReconstructOrders(ctx, body, g.now, g.logger)
	if err != nil {
		return nil, fmt.Errorf("parse orders: %w", err)
	}
	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	g.logger.Log("fetched orders", zap.Int("orders", len(orders)))
	return orders, nil
}

// FetchActiveProducts exports every active product with its variants.
func (g *Gateway) FetchActiveProducts(ctx context.Context) (products []model.ParsedProduct, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Gateway.FetchActiveProducts")
	defer func() { endSpan(span, err) }()

	g.logger.Log("starting bulk fetch of active products")
	result, err := g.bulk.Run(ctx, BuildProductsBulkQuery())
	if err != nil {
		return nil, err
	}
	if result.Empty() {
		g.logger.Log("no active products found")
		return []model.ParsedProduct{}, nil
	}

	body, err := g.client.openDownload(ctx, result.URL)
	if err != nil {
		return nil, fmt.Errorf("download products: %w", err)
	}
	defer body.Close()

	products, err = ReconstructProducts(ctx, body, g.now, g.logger)
	if err != nil {
		return nil, fmt.Errorf("parse products: %w", err)
	}
	span.SetAttributes(attribute.Int("products.count", len(products)))
	g.logger.Log("fetched active products", zap.Int("products", len(products)))
	return products, nil
}

func (g *Gateway) UpdateVariantPrices(ctx context.Context, updates []model.ProductUpdate) (model.BatchResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Gateway.UpdateVariantPrices",
		trace.WithAttributes(attribute.Int("products.count", len(updates))))
	defer span.End()
	return g.updater.Apply(ctx, updates)
}

func (g *Gateway) Close() error {
	return g.client.Close()
}

// endSpan ends span, marking it failed when err is set.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

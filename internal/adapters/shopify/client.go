package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"shopify-price-manager/internal/adapters/shopify/dto"
	"shopify-price-manager/internal/config"
	"shopify-price-manager/internal/domain/model"
	"shopify-price-manager/internal/infra/httpclient"
	"shopify-price-manager/internal/logging"
)

// Client talks to the Admin GraphQL API of a single store. It is owned by one
// sync run and must be closed when the run ends.
type Client struct {
	credential model.Credential
	domain     string
	endpoint   string
	config     config.ShopifyConfig
	retry      retryPolicy
	httpClient *http.Client
	// download shares the transport but has no total timeout; result files
	// can take longer to stream than any single API call.
	download *http.Client
	logger   logging.LoggerService
}

func NewClient(credential model.Credential, cfg config.ShopifyConfig, httpClient *http.Client, logger logging.LoggerService) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = httpclient.New(timeout)
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = config.DefaultShopifyConfig().APIVersion
	}

	domain := cleanDomain(credential.Domain)
	logger = logging.OrNop(logger).With(zap.String("shop", domain))
	return &Client{
		credential: credential,
		domain:     domain,
		endpoint:   "https://" + domain + "/admin/api/" + cfg.APIVersion + "/graphql.json",
		config:     cfg,
		retry:      newRetryPolicy(cfg),
		httpClient: httpClient,
		download:   downloadClient(httpClient),
		logger:     logger,
	}
}

// downloadClient copies httpClient without its Timeout. Stalled downloads are
// bounded by the transport's dial and header timeouts and by the caller's ctx.
func downloadClient(httpClient *http.Client) *http.Client {
	download := *httpClient
	download.Timeout = 0
	return &download
}

func cleanDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	return strings.TrimRight(domain, "/")
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Close releases pooled connections held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	c.download.CloseIdleConnections()
	return nil
}

// Execute runs a GraphQL document and decodes the data member into out.
// Rate limits and transport failures are retried up to the configured number
// of attempts; every other failure is returned immediately as *APIError.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(dto.GraphQLRequest{
		Query:     strings.TrimSpace(query),
		Variables: variables,
	})
	if err != nil {
		return fmt.Errorf("marshal graphql request: %w", err)
	}

	var lastErr *APIError
	for attempt := 0; attempt < c.retry.maxAttempts; attempt++ {
		err := c.post(ctx, body, out)
		if err == nil {
			return nil
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Retryable() {
			return err
		}
		lastErr = apiErr
		if attempt == c.retry.maxAttempts-1 {
			break
		}

		delay := c.retry.delay(attempt, apiErr)
		c.logger.LogWarning("shopify request retry",
			zap.Stringer("kind", apiErr.Kind),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", c.retry.maxAttempts),
			zap.Duration("delay", delay),
			zap.Error(apiErr),
		)
		if err := sleepWithContext(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

func (c *Client) post(ctx context.Context, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.credential.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &APIError{Kind: KindTransport, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &APIError{Kind: KindTransport, Status: resp.StatusCode, Message: "read response body", Err: err}
	}
	if apiErr := classifyStatus(resp, raw); apiErr != nil {
		return apiErr
	}

	var envelope dto.GraphQLResponse[json.RawMessage]
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &APIError{Kind: KindProtocol, Status: resp.StatusCode, Message: "decode graphql response", Err: err}
	}
	if len(envelope.Errors) > 0 {
		msg := formatGraphQLErrors(envelope.Errors)
		if isThrottleGraphQLError(envelope.Errors) {
			return &APIError{Kind: KindRateLimit, Status: resp.StatusCode, Message: "graphql throttled: " + msg}
		}
		return &APIError{Kind: KindProtocol, Status: resp.StatusCode, Message: "graphql errors: " + msg}
	}
	c.observeCost(envelope.Extensions)

	if out == nil {
		return nil
	}
	if len(envelope.Data) == 0 || bytes.Equal(envelope.Data, []byte("null")) {
		return &APIError{Kind: KindProtocol, Status: resp.StatusCode, Message: "graphql response missing data"}
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &APIError{Kind: KindProtocol, Status: resp.StatusCode, Message: "decode graphql data", Err: err}
	}
	return nil
}

func (c *Client) observeCost(ext *dto.GraphQLExtensions) {
	if ext == nil || ext.Cost == nil || ext.Cost.ThrottleStatus == nil {
		return
	}
	available := ext.Cost.ThrottleStatus.CurrentlyAvailable
	if available < lowRateLimitPoints {
		c.logger.LogWarning("low rate limit points",
			zap.Float64("available", available),
			zap.Float64("maximum", ext.Cost.ThrottleStatus.MaximumAvailable),
		)
	}
}

// openDownload starts a GET on a bulk result URL. The access token is only
// attached when the URL points back at the shop itself; result files are
// normally served from signed storage URLs.
func (c *Client) openDownload(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	if strings.EqualFold(req.URL.Host, c.domain) {
		req.Header.Set("X-Shopify-Access-Token", c.credential.AccessToken)
	}

	resp, err := c.download.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &APIError{Kind: KindTransport, Message: "download failed", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, classifyStatus(resp, raw)
	}
	return resp.Body, nil
}

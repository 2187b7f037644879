package shopify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shopify-price-manager/internal/adapters/shopify/dto"
	"shopify-price-manager/internal/config"
)

const lowRateLimitPoints = 100

type retryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
}

func newRetryPolicy(cfg config.ShopifyConfig) retryPolicy {
	p := retryPolicy{maxAttempts: cfg.MaxAttempts, baseDelay: cfg.RetryBaseDelay}
	if p.maxAttempts < 1 {
		p.maxAttempts = 1
	}
	if p.baseDelay < 0 {
		p.baseDelay = 0
	}
	return p
}

// delay prefers the server supplied wait and otherwise doubles the base
// delay for every attempt already made.
func (p retryPolicy) delay(attempt int, err *APIError) time.Duration {
	if err != nil && err.RetryAfter > 0 {
		return err.RetryAfter
	}
	if attempt < 0 {
		return 0
	}
	return p.baseDelay << attempt
}

// classifyStatus maps a non-2xx response to an APIError. It returns nil for
// successful responses.
func classifyStatus(resp *http.Response, body []byte) *APIError {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	text := strings.TrimSpace(string(body))
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &APIError{Kind: KindAuth, Status: resp.StatusCode, Message: "authentication failed"}
	case http.StatusTooManyRequests:
		return &APIError{
			Kind:       KindRateLimit,
			Status:     resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    "rate limit exceeded",
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &APIError{Kind: KindTransport, Status: resp.StatusCode, Message: statusMessage(resp.Status, text)}
	default:
		return &APIError{Kind: KindProtocol, Status: resp.StatusCode, Message: statusMessage(resp.Status, text)}
	}
}

func statusMessage(status, body string) string {
	if body == "" {
		return fmt.Sprintf("request failed: %s", status)
	}
	return fmt.Sprintf("request failed: %s: %s", status, body)
}

// parseRetryAfter reads the delta-seconds form of Retry-After, fractions
// included. Zero means the header was missing or unusable.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func isThrottleGraphQLError(errs []dto.GraphQLError) bool {
	for _, e := range errs {
		if strings.Contains(strings.ToLower(e.Message), "throttl") {
			return true
		}
		if code, ok := e.Extensions["code"].(string); ok && strings.EqualFold(code, "THROTTLED") {
			return true
		}
	}
	return false
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

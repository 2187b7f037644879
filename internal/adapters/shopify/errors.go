package shopify

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"shopify-price-manager/internal/adapters/shopify/dto"
)

// ErrorKind classifies every failure the transport can return.
type ErrorKind int

const (
	KindAuth ErrorKind = iota + 1
	KindRateLimit
	KindProtocol
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate_limit"
	case KindProtocol:
		return "protocol"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// APIError is the single error type returned by Client.Execute.
type APIError struct {
	Kind       ErrorKind
	Status     int
	RetryAfter time.Duration
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("shopify %s error (status %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("shopify %s error: %s", e.Kind, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the transport retries the failure on its own.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindRateLimit, KindTransport:
		return true
	case KindAuth, KindProtocol:
		return false
	}
	return false
}

func IsAuthError(err error) bool {
	return hasKind(err, KindAuth)
}

func IsRateLimitError(err error) bool {
	return hasKind(err, KindRateLimit)
}

func IsProtocolError(err error) bool {
	return hasKind(err, KindProtocol)
}

func hasKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

type UserErrorDetail struct {
	Field   string
	Message string
}

// UserErrorsError carries the userErrors list of a mutation payload.
type UserErrorsError struct {
	Action string
	Errors []UserErrorDetail
}

func (e *UserErrorsError) Error() string {
	if e == nil {
		return "shopify user errors"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		field := strings.TrimSpace(err.Field)
		message := strings.TrimSpace(err.Message)
		if field == "" {
			parts = append(parts, message)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", field, message))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("shopify %s failed with user errors", e.Action)
	}
	return fmt.Sprintf("shopify %s failed: %s", e.Action, strings.Join(parts, "; "))
}

// Messages joins the bare messages without field paths.
func (e *UserErrorsError) Messages() string {
	parts := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		if msg := strings.TrimSpace(err.Message); msg != "" {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "; ")
}

func userErrorsToError(action string, errs []dto.ShopifyUserError) error {
	if len(errs) == 0 {
		return nil
	}
	details := make([]UserErrorDetail, 0, len(errs))
	for _, e := range errs {
		details = append(details, UserErrorDetail{
			Field:   strings.Join(e.Field, "."),
			Message: e.Message,
		})
	}
	return &UserErrorsError{Action: action, Errors: details}
}

func formatGraphQLErrors(errs []dto.GraphQLError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := strings.TrimSpace(e.Message)
		if msg == "" {
			continue
		}
		if len(e.Path) > 0 {
			msg = fmt.Sprintf("%s (path: %v)", msg, e.Path)
		}
		parts = append(parts, msg)
	}
	if len(parts) == 0 {
		return "unknown graphql error"
	}
	return strings.Join(parts, "; ")
}

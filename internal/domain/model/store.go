package model

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by storage when a store or sync log id is unknown.
var ErrNotFound = errors.New("record not found")

type SyncStatus string

const (
	SyncStatusIdle    SyncStatus = "idle"
	SyncStatusRunning SyncStatus = "running"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
)

// Store is a persisted shop configuration. The domain and token are only
// borrowed by a sync run.
type Store struct {
	ID             string
	Name           string
	ShopifyDomain  string
	APIToken       string
	IsPaused       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastSyncAt     *time.Time
	LastSyncStatus SyncStatus
}

// Credential is the part of a store the remote transport needs.
func (s Store) Credential() Credential {
	return Credential{Domain: s.ShopifyDomain, AccessToken: s.APIToken}
}

type Credential struct {
	Domain      string
	AccessToken string
}

const myshopifySuffix = ".myshopify.com"

// NormalizeShopDomain lowercases the domain, strips the scheme and trailing
// slashes and appends .myshopify.com to bare shop handles.
func NormalizeShopDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimRight(domain, "/")
	if domain != "" && !strings.Contains(domain, myshopifySuffix) {
		domain += myshopifySuffix
	}
	return domain
}

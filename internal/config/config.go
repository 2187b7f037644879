package config

import "time"

type Config struct {
	Environment string
	LogLevel    string
	Shopify     ShopifyConfig
	Database    DatabaseConfig
	Mysql       MysqlConfig
	Sync        SyncConfig
	TelegramBot TelegramBotConfig
	Telemetry   TelemetryConfig
}

// ShopifyConfig holds the per-process transport and bulk job settings.
// Store domains and access tokens live on the persisted store records.
type ShopifyConfig struct {
	APIVersion     string
	Timeout        time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration

	BulkPollInitial    time.Duration
	BulkPollMax        time.Duration
	BulkPollMultiplier float64
	BulkTimeout        time.Duration

	MutationDelay time.Duration
}

type DatabaseConfig struct {
	Driver string
	URL    string
}

type MysqlConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

type SyncConfig struct {
	MaxConcurrent int
}

type TelegramBotConfig struct {
	ChatId string
	Token  string
}

type TelemetryConfig struct {
	ServiceName string
	UseStdout   bool
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// DefaultShopifyConfig returns the transport and polling schedule used in production.
func DefaultShopifyConfig() ShopifyConfig {
	return ShopifyConfig{
		APIVersion:         "2025-01",
		Timeout:            60 * time.Second,
		MaxAttempts:        5,
		RetryBaseDelay:     time.Second,
		BulkPollInitial:    5 * time.Second,
		BulkPollMax:        60 * time.Second,
		BulkPollMultiplier: 1.5,
		BulkTimeout:        2 * time.Hour,
		MutationDelay:      300 * time.Millisecond,
	}
}

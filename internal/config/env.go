package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads configuration from the environment, falling back to an optional .env file.
func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	defaults := DefaultShopifyConfig()
	cfg := &Config{
		Environment: stringWithDefault("APP_ENV", "development"),
		LogLevel:    stringWithDefault("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Driver: strings.ToLower(stringWithDefault("DATABASE_DRIVER", DriverSQLite)),
			URL:    stringWithDefault("DATABASE_URL", "file:./data/app.db"),
		},
		Mysql: MysqlConfig{
			Host:     stringWithDefault("MYSQL_HOST", ""),
			Username: stringWithDefault("MYSQL_USER", ""),
			Password: stringWithDefault("MYSQL_PASSWORD", ""),
			Database: stringWithDefault("MYSQL_DATABASE", ""),
		},
		TelegramBot: TelegramBotConfig{
			ChatId: stringWithDefault("TELEGRAM_CHAT_ID", ""),
			Token:  stringWithDefault("TELEGRAM_BOT_TOKEN", ""),
		},
		Telemetry: TelemetryConfig{
			ServiceName: stringWithDefault("OTEL_SERVICE_NAME", "price-sync"),
		},
		Shopify: ShopifyConfig{
			APIVersion: stringWithDefault("SHOPIFY_API_VERSION", defaults.APIVersion),
		},
	}

	var err error
	if cfg.Mysql.Port, err = intWithDefault("MYSQL_PORT", 3306); err != nil {
		return nil, err
	}
	if cfg.Sync.MaxConcurrent, err = intWithDefault("SYNC_MAX_CONCURRENT", 5); err != nil {
		return nil, err
	}
	if cfg.Telemetry.UseStdout, err = boolWithDefault("OTEL_STDOUT", false); err != nil {
		return nil, err
	}
	if cfg.Shopify.MaxAttempts, err = intWithDefault("SHOPIFY_MAX_ATTEMPTS", defaults.MaxAttempts); err != nil {
		return nil, err
	}
	if cfg.Shopify.BulkPollMultiplier, err = floatWithDefault("BULK_POLL_MULTIPLIER", defaults.BulkPollMultiplier); err != nil {
		return nil, err
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"SHOPIFY_TIMEOUT", defaults.Timeout, &cfg.Shopify.Timeout},
		{"SHOPIFY_RETRY_BASE_DELAY", defaults.RetryBaseDelay, &cfg.Shopify.RetryBaseDelay},
		{"BULK_POLL_INITIAL", defaults.BulkPollInitial, &cfg.Shopify.BulkPollInitial},
		{"BULK_POLL_MAX", defaults.BulkPollMax, &cfg.Shopify.BulkPollMax},
		{"BULK_TIMEOUT", defaults.BulkTimeout, &cfg.Shopify.BulkTimeout},
		{"MUTATION_DELAY", defaults.MutationDelay, &cfg.Shopify.MutationDelay},
	}
	for _, d := range durations {
		value, err := durationWithDefault(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.dst = value
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the sync engine cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(c.Database.URL) == "" {
			return errors.New("DATABASE_URL is required")
		}
	case DriverMySQL:
		if c.Mysql.Host == "" || c.Mysql.Username == "" || c.Mysql.Database == "" {
			return errors.New("MYSQL_HOST, MYSQL_USER and MYSQL_DATABASE are required for mysql")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER: %s", c.Database.Driver)
	}
	if c.Sync.MaxConcurrent < 1 {
		return fmt.Errorf("SYNC_MAX_CONCURRENT must be positive, got %d", c.Sync.MaxConcurrent)
	}
	if c.Shopify.MaxAttempts < 1 {
		return fmt.Errorf("SHOPIFY_MAX_ATTEMPTS must be positive, got %d", c.Shopify.MaxAttempts)
	}
	if c.Shopify.BulkPollMultiplier < 1 {
		return fmt.Errorf("BULK_POLL_MULTIPLIER must be >= 1, got %v", c.Shopify.BulkPollMultiplier)
	}
	return nil
}

func lookup(key string) (string, bool) {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value), true
	}
	if viper.IsSet(key) {
		value := strings.TrimSpace(viper.GetString(key))
		return value, value != ""
	}
	return "", false
}

func stringWithDefault(key, def string) string {
	variable, isOk := lookup(key)
	if !isOk {
		return def
	}
	return variable
}

func intWithDefault(key string, def int) (int, error) {
	variable, isOk := lookup(key)
	if !isOk {
		return def, nil
	}
	number, err := strconv.Atoi(variable)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %w", key, err)
	}
	return number, nil
}

func floatWithDefault(key string, def float64) (float64, error) {
	variable, isOk := lookup(key)
	if !isOk {
		return def, nil
	}
	number, err := strconv.ParseFloat(variable, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float for %s: %w", key, err)
	}
	return number, nil
}

func boolWithDefault(key string, def bool) (bool, error) {
	variable, isOk := lookup(key)
	if !isOk {
		return def, nil
	}
	value, err := strconv.ParseBool(variable)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %w", key, err)
	}
	return value, nil
}

func durationWithDefault(key string, def time.Duration) (time.Duration, error) {
	variable, isOk := lookup(key)
	if !isOk {
		return def, nil
	}
	value, err := time.ParseDuration(variable)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return value, nil
}

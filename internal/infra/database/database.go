package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"shopify-price-manager/internal/config"
)

const pingTimeout = 5 * time.Second

// Open connects to the configured database and verifies it with a ping.
// The returned dialect is one of the config.Driver* constants.
func Open(ctx context.Context, cfg config.DatabaseConfig, mysqlCfg config.MysqlConfig) (*sql.DB, string, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := openSQLite(ctx, cfg.URL)
		return db, config.DriverSQLite, err
	case config.DriverPostgres:
		db, err := openPostgres(ctx, cfg.URL)
		return db, config.DriverPostgres, err
	case config.DriverMySQL:
		db, err := openMySQL(ctx, mysqlCfg)
		return db, config.DriverMySQL, err
	default:
		return nil, "", fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
}

func openMySQL(ctx context.Context, cfg config.MysqlConfig) (*sql.DB, error) {
	if cfg.Host == "" || cfg.Username == "" || cfg.Database == "" {
		return nil, fmt.Errorf("Host or Username or Database values is empty")
	}

	if cfg.Port == 0 {
		cfg.Port = 3306
	}

	dsn := mysql.NewConfig()
	dsn.User = cfg.Username
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dsn.DBName = cfg.Database
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	// report matched rather than changed rows so updates can detect missing ids
	dsn.ClientFoundRows = true

	db, err := sql.Open("mysql", dsn.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("mysql connection error %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := ping(ctx, db, "mysql"); err != nil {
		return nil, err
	}
	return db, nil
}

func openPostgres(ctx context.Context, url string) (*sql.DB, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("postgres: DATABASE_URL is empty")
	}
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("postgres connection error %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := ping(ctx, db, "postgres"); err != nil {
		return nil, err
	}
	return db, nil
}

// openSQLite accepts "file:path", a bare path or ":memory:", optionally
// prefixed with "sqlite:". Busy timeout and foreign keys are always enabled.
func openSQLite(ctx context.Context, url string) (*sql.DB, error) {
	dsn := strings.TrimPrefix(strings.TrimSpace(url), "sqlite:")
	if dsn == "" {
		return nil, fmt.Errorf("sqlite: DATABASE_URL is empty")
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if err := ensureParentDir(dsn); err != nil {
		return nil, err
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.Contains(dsn, "busy_timeout") {
		dsn += sep + "_pragma=busy_timeout(5000)"
		sep = "&"
	}
	if !strings.Contains(dsn, "foreign_keys") {
		dsn += sep + "_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error %w", err)
	}

	// one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := ping(ctx, db, "sqlite"); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureParentDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sqlite: create directory %s: %w", dir, err)
	}
	return nil
}

func ping(ctx context.Context, db *sql.DB, name string) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("%s: ping %w", name, err)
	}
	return nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

type Database struct {
	db               *sql.DB
	PreparedPingStmt *sql.Stmt

	// Cache for ping results
	lastPingTime   time.Time
	lastPingError  error
	pingCacheMutex sync.RWMutex
}

type PostgresConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	Database string `json:"database" yaml:"database"`
	SSLMode  string `json:"sslmode" yaml:"sslmode"`
}

// DSN builds the lib/pq connection string
func (cfg PostgresConfig) DSN() string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s tcp_user_timeout=1000",
		cfg.Host, port, cfg.User, cfg.Password, cfg.Database, sslMode)
}

const schema = `
-- Per-guild anti-spam settings
CREATE TABLE IF NOT EXISTS antispam_settings (
    guild_id TEXT PRIMARY KEY,
    ping_soft_limit INTEGER,          -- NULL means default, <= 0 disables
    ping_hard_limit INTEGER,
    allowed_invites TEXT[] NOT NULL DEFAULT '{}',
    cooldowns JSONB NOT NULL DEFAULT '{}',
    special_channels JSONB NOT NULL DEFAULT '{}',
    updated_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_antispam_settings_updated ON antispam_settings(updated_at);
`

func NewDatabase(cfg PostgresConfig) (*Database, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(1 * time.Hour)

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	pingStmt, err := db.Prepare("SELECT 1")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare ping statement: %w", err)
	}

	return &Database{
		db:               db,
		PreparedPingStmt: pingStmt,
	}, nil
}

func (d *Database) Close() error {
	if d.PreparedPingStmt != nil {
		d.PreparedPingStmt.Close()
	}
	return d.db.Close()
}

// Ping checks the connection, reusing a result younger than a second
func (d *Database) Ping(ctx context.Context) error {
	d.pingCacheMutex.RLock()
	if time.Since(d.lastPingTime) < time.Second {
		err := d.lastPingError
		d.pingCacheMutex.RUnlock()
		return err
	}
	d.pingCacheMutex.RUnlock()

	var result int
	err := d.PreparedPingStmt.QueryRowContext(ctx).Scan(&result)

	d.pingCacheMutex.Lock()
	d.lastPingTime = time.Now()
	d.lastPingError = err
	d.pingCacheMutex.Unlock()
	return err
}

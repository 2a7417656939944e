// Package database provides the PostgreSQL-backed journal store: sessions
// with their legs, and persisted analytics results.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"trading-journal/internal/logging"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDB creates a new database connection
func NewDB(cfg Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logging.WithComponent("database").Info("Connected to PostgreSQL database", "database", cfg.Database)

	return &DB{Pool: pool}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		logging.WithComponent("database").Info("Database connection closed")
	}
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	logging.WithComponent("database").Info("Running database migrations")

	migrations := []string{
		// Journal sessions: one row per user per trading day
		`CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			session_date DATE NOT NULL,
			recorded_net DECIMAL(20, 4) NOT NULL DEFAULT 0,
			plan_respected BOOLEAN,
			tags TEXT[] NOT NULL DEFAULT '{}',
			emotion_tags TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, session_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_date ON sessions(user_id, session_date)`,

		// Raw entry/exit legs attached to a session
		`CREATE TABLE IF NOT EXISTS legs (
			id UUID PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			leg_tag VARCHAR(8) NOT NULL,
			symbol VARCHAR(32) NOT NULL,
			kind VARCHAR(16) NOT NULL,
			side VARCHAR(8) NOT NULL,
			orientation VARCHAR(8),
			price DECIMAL(20, 8) NOT NULL,
			quantity DECIMAL(20, 8) NOT NULL,
			clock_time VARCHAR(16),
			dte INTEGER,
			position INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_legs_session ON legs(session_id)`,

		// Persisted analytics results: snapshot plus ranked edges as JSONB
		`CREATE TABLE IF NOT EXISTS analytics_results (
			id UUID PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			as_of TIMESTAMP NOT NULL,
			range_start DATE,
			range_end DATE,
			snapshot JSONB NOT NULL,
			edges JSONB NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_user_asof ON analytics_results(user_id, as_of DESC)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	logging.WithComponent("database").Info("Database migrations completed")
	return nil
}

// Repository provides data access methods over the journal schema
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

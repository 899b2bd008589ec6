package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Alijeyrad/cogniscreen/config"
)

// DSN returns a lib/pq connection string for dbname (the configured
// database when empty).
func DSN(c config.DatabaseConfig, dbname string) string {
	if dbname == "" {
		dbname = c.DBName
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, dbname, c.SSLMode,
	)
}

func connMaxLifetime(c config.DatabasePoolConfig) time.Duration {
	if c.ConnMaxLifetimeMin <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.ConnMaxLifetimeMin) * time.Minute
}

// Open connects to PostgreSQL, applies pool settings and pings.
func Open(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	return open(ctx, c, c.DBName)
}

func open(ctx context.Context, c config.DatabaseConfig, dbname string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", DSN(c, dbname))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if c.Pool.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(c.Pool.MaxOpenConns)
	}
	if c.Pool.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(c.Pool.MaxIdleConns)
	}
	conn.SetConnMaxLifetime(connMaxLifetime(c.Pool))

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, nil
}

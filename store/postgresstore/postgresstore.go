// Package postgresstore adapts PostgreSQL into a cachingpolicy.CacheStore
// via github.com/jackc/pgx/v5/pgxpool, with an expires_at column evaluated
// on Get (Postgres has no built-in TTL mechanism).
package postgresstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatewaycore/cachingpolicy"
)

// DefaultTableName is the table this store reads/writes.
const DefaultTableName = "cachingpolicy_entries"

// Config holds connection settings for a Store.
type Config struct {
	// TableName defaults to DefaultTableName.
	TableName string
	// Timeout bounds each query when ctx carries no deadline. Defaults to 5s.
	Timeout time.Duration
}

// Store is a CacheStore backed by a PostgreSQL table.
type Store struct {
	pool      *pgxpool.Pool
	tableName string
	timeout   time.Duration
}

// New connects to PostgreSQL and ensures the backing table exists.
func New(ctx context.Context, connString string, cfg Config) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("postgresstore: connect failed: %w", err)
	}
	s := NewWithPool(pool, cfg)
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool wraps an already-configured *pgxpool.Pool.
func NewWithPool(pool *pgxpool.Pool, cfg Config) *Store {
	if cfg.TableName == "" {
		cfg.TableName = DefaultTableName
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Store{pool: pool, tableName: cfg.TableName, timeout: cfg.Timeout}
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+s.tableName+` (
			key TEXT PRIMARY KEY,
			data BYTEA NOT NULL,
			expires_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		return fmt.Errorf("postgresstore: schema setup failed: %w", err)
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) Get(ctx context.Context, key string, hint string) (cachingpolicy.ReadStream, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var data []byte
	var expiresAt *time.Time
	query := `SELECT data, expires_at FROM ` + s.tableName + ` WHERE key = $1`
	err := s.pool.QueryRow(ctx, query, key).Scan(&data, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgresstore: get failed for key %q: %w", key, err)
	}

	if expiresAt != nil && time.Now().After(*expiresAt) {
		_, _ = s.pool.Exec(ctx, `DELETE FROM `+s.tableName+` WHERE key = $1`, key)
		return nil, nil
	}

	head, body, err := cachingpolicy.DecodeEntry(data)
	if err != nil {
		return nil, err
	}
	return cachingpolicy.NewMemoryReadStream(head, body), nil
}

func (s *Store) Put(ctx context.Context, key string, head cachingpolicy.ResponseHead, ttl time.Duration) (cachingpolicy.WriteStream, error) {
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}
	return cachingpolicy.NewMemoryWriteStream(func(body []byte) error {
		blob, err := cachingpolicy.EncodeEntry(head, body)
		if err != nil {
			return err
		}

		putCtx, cancel := s.withTimeout(ctx)
		defer cancel()

		query := `
			INSERT INTO ` + s.tableName + ` (key, data, expires_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET data = $2, expires_at = $3
		`
		if _, err := s.pool.Exec(putCtx, query, key, blob, expiresAt); err != nil {
			return fmt.Errorf("postgresstore: put failed for key %q: %w", key, err)
		}
		return nil
	}), nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

var _ cachingpolicy.CacheStore = (*Store)(nil)

// Package database はPostgreSQL接続プールを提供します
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// Database はpgxの接続プールを保持します
type Database struct {
	pool *pgxpool.Pool
}

// New はDSNから接続プールを作成します
// pgvector型を各コネクションに登録するため、AfterConnectフックを使う
func New(ctx context.Context, dsn string) (*Database, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{pool: pool}, nil
}

// Pool は接続プールを返す
func (d *Database) Pool() *pgxpool.Pool {
	return d.pool
}

// Close は接続プールを閉じる
func (d *Database) Close() {
	d.pool.Close()
}

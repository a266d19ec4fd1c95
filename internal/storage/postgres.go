package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"price_notifier/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS price_history (
    id          BIGSERIAL PRIMARY KEY,
    seller      TEXT             NOT NULL,
    price       DOUBLE PRECISION NOT NULL,
    recorded_at TIMESTAMPTZ      NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_price_history_seller ON price_history (seller, id);
`

// Postgres implements PriceStore on a PostgreSQL table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn and creates the price_history table if missing.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// LastPrice returns the newest price recorded for seller.
func (p *Postgres) LastPrice(ctx context.Context, seller model.SellerID) (float64, error) {
	var price float64
	err := p.pool.QueryRow(ctx,
		`SELECT price FROM price_history WHERE seller = $1 ORDER BY id DESC LIMIT 1`,
		string(seller),
	).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", seller, ErrStoreUnavailable)
	}
	if err != nil {
		return 0, fmt.Errorf("query last price: %w", err)
	}
	return price, nil
}

// Append inserts a new price row for seller.
func (p *Postgres) Append(ctx context.Context, seller model.SellerID, price float64) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO price_history (seller, price) VALUES ($1, $2)`,
		string(seller), price,
	)
	if err != nil {
		return fmt.Errorf("insert price: %w", err)
	}
	return nil
}

// History returns all rows for seller in insertion order.
func (p *Postgres) History(ctx context.Context, seller model.SellerID) ([]model.PriceRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT seller, price, recorded_at FROM price_history WHERE seller = $1 ORDER BY id`,
		string(seller),
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []model.PriceRecord
	for rows.Next() {
		var r model.PriceRecord
		var sellerStr string
		if err := rows.Scan(&sellerStr, &r.Price, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan price record: %w", err)
		}
		r.Seller = model.SellerID(sellerStr)
		records = append(records, r)
	}
	return records, rows.Err()
}

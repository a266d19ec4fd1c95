package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"price_notifier/internal/model"
	"price_notifier/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements PriceStore backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// :memory: databases are per-connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// LastPrice returns the newest price recorded for seller.
func (s *SQLite) LastPrice(ctx context.Context, seller model.SellerID) (float64, error) {
	var price float64
	err := s.db.QueryRowContext(ctx,
		`SELECT price FROM price_history WHERE seller = ? ORDER BY id DESC LIMIT 1`,
		string(seller),
	).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", seller, ErrStoreUnavailable)
	}
	if err != nil {
		return 0, fmt.Errorf("query last price: %w", err)
	}
	return price, nil
}

// Append inserts a new price row for seller.
func (s *SQLite) Append(ctx context.Context, seller model.SellerID, price float64) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO price_history (seller, price, recorded_at) VALUES (?, ?, ?)`,
		string(seller), price, now,
	)
	if err != nil {
		return fmt.Errorf("insert price: %w", err)
	}
	return nil
}

// History returns all rows for seller in insertion order.
func (s *SQLite) History(ctx context.Context, seller model.SellerID) ([]model.PriceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seller, price, recorded_at FROM price_history WHERE seller = ? ORDER BY id`,
		string(seller),
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.PriceRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (model.PriceRecord, error) {
	var r model.PriceRecord
	var sellerStr, recorded string
	if err := row.Scan(&sellerStr, &r.Price, &recorded); err != nil {
		return r, fmt.Errorf("scan price record: %w", err)
	}
	r.Seller = model.SellerID(sellerStr)
	at, err := time.Parse(timeLayout, recorded)
	if err != nil {
		return r, fmt.Errorf("parse recorded_at %q: %w", recorded, err)
	}
	r.RecordedAt = at
	return r, nil
}

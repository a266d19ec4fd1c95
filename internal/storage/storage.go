// Package storage defines the price history interface and its implementations.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"price_notifier/internal/model"
)

// ErrStoreUnavailable is returned when a seller's history is missing or empty.
// The history must be seeded before the first run.
var ErrStoreUnavailable = errors.New("price history missing or empty")

// ErrInvalidPrice is returned when a stored price is not a finite number.
var ErrInvalidPrice = errors.New("price is not a finite number")

// PriceStore is an append-only per-seller price history.
type PriceStore interface {
	// LastPrice returns the most recently appended price.
	LastPrice(ctx context.Context, seller model.SellerID) (float64, error)
	// Append adds price as the new last entry.
	Append(ctx context.Context, seller model.SellerID, price float64) error
	// History returns every entry in insertion order.
	History(ctx context.Context, seller model.SellerID) ([]model.PriceRecord, error)

	Close() error
}

// Supported backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Options selects and configures a PriceStore backend.
type Options struct {
	Backend      string
	PriceDir     string
	DatabasePath string
	DatabaseURL  string
}

// Open returns the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (PriceStore, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFile(opts.PriceDir)
	case BackendSQLite:
		if dir := filepath.Dir(opts.DatabasePath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
		return NewSQLite(opts.DatabasePath)
	case BackendPostgres:
		return NewPostgres(ctx, opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

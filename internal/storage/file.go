package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"price_notifier/internal/model"
)

// File implements PriceStore with one newline-delimited text file per seller.
type File struct {
	dir string
}

// NewFile returns a File store rooted at dir, creating the directory if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create price dir: %w", err)
	}
	return &File{dir: dir}, nil
}

// Path returns the history file used for seller.
func (f *File) Path(seller model.SellerID) string {
	return filepath.Join(f.dir, string(seller)+"_prices.txt")
}

// Close is a no-op; files are opened per call.
func (f *File) Close() error {
	return nil
}

// LastPrice returns the last line of the seller's history file.
func (f *File) LastPrice(ctx context.Context, seller model.SellerID) (float64, error) {
	records, err := f.History(ctx, seller)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("%s: %w", f.Path(seller), ErrStoreUnavailable)
	}
	return records[len(records)-1].Price, nil
}

// Append writes price as a new line at the end of the seller's history file.
func (f *File) Append(_ context.Context, seller model.SellerID, price float64) (err error) {
	fh, err := os.OpenFile(f.Path(seller), os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644) //nolint:gosec // path built from a fixed seller ID
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer func() {
		if cerr := fh.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close history: %w", cerr)
		}
	}()

	line := strconv.FormatFloat(price, 'f', -1, 64) + "\n"

	// Hand-seeded files may lack a trailing newline.
	info, err := fh.Stat()
	if err != nil {
		return fmt.Errorf("stat history: %w", err)
	}
	if size := info.Size(); size > 0 {
		last := make([]byte, 1)
		if _, err := fh.ReadAt(last, size-1); err != nil {
			return fmt.Errorf("read history tail: %w", err)
		}
		if last[0] != '\n' {
			line = "\n" + line
		}
	}

	if _, err := fh.WriteString(line); err != nil {
		return fmt.Errorf("append price: %w", err)
	}
	return nil
}

// History parses every non-blank line of the seller's history file.
// A missing file yields an empty history.
func (f *File) History(_ context.Context, seller model.SellerID) ([]model.PriceRecord, error) {
	data, err := os.ReadFile(f.Path(seller))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var records []model.PriceRecord
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		price, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", f.Path(seller), i+1, err)
		}
		if math.IsNaN(price) || math.IsInf(price, 0) {
			return nil, fmt.Errorf("parse %s line %d: %w", f.Path(seller), i+1, ErrInvalidPrice)
		}
		records = append(records, model.PriceRecord{Seller: seller, Price: price})
	}
	return records, nil
}

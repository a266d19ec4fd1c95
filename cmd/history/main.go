package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"math"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"price_notifier/internal/config"
	"price_notifier/internal/pricing"
	"price_notifier/internal/seller"
	"price_notifier/internal/storage"
)

const recordedAtLayout = "2006-01-02 15:04:05"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		usage()
		os.Exit(1)
	}

	opts, err := config.LoadStorage()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	s, err := seller.Lookup(args[1])
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx := context.Background()
	store, err := storage.Open(ctx, opts)
	if err != nil {
		log.Fatalf("open price history: %v", err)
	}
	defer func() { _ = store.Close() }()

	cmd := args[0]
	switch cmd {
	case "seed":
		if len(args) != 3 {
			usage()
			os.Exit(1)
		}
		err = seed(ctx, store, s, args[2])
	case "show":
		err = show(ctx, os.Stdout, store, s)
	default:
		log.Fatalf("unknown command: %s", cmd)
	}

	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func seed(ctx context.Context, store storage.PriceStore, s seller.Seller, raw string) error {
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", raw, err)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return fmt.Errorf("price must be a positive number, got %v", price)
	}

	if latest, err := store.LastPrice(ctx, s.ID); err == nil && price >= latest {
		return fmt.Errorf("price %s is not below the last recorded %s", pricing.FormatPrice(price), pricing.FormatPrice(latest))
	} else if err != nil && !errors.Is(err, storage.ErrStoreUnavailable) {
		return err
	}

	return store.Append(ctx, s.ID, price)
}

func show(ctx context.Context, w io.Writer, store storage.PriceStore, s seller.Seller) error {
	records, err := store.History(ctx, s.ID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		_, err := fmt.Fprintf(w, "%s: no history\n", s.DisplayName)
		return err
	}

	for _, r := range records {
		at := "-"
		if !r.RecordedAt.IsZero() {
			at = r.RecordedAt.Format(recordedAtLayout)
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\tRp%s\n", at, s.DisplayName, pricing.FormatPrice(r.Price)); err != nil {
			return err
		}
	}
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: history <command> <seller> [price]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  seed <seller> <price>   Append a starting price to the seller's history")
	fmt.Fprintln(os.Stderr, "  show <seller>           Print the seller's price history")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Sellers: ibox, digimap, eraspace")
}

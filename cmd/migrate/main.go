package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"price_notifier/internal/config"
	"price_notifier/migrations"
)

// gooseCommands maps each subcommand to the goose call that applies the
// embedded price_history migrations.
var gooseCommands = map[string]func(*sql.DB) error{
	"up":      func(db *sql.DB) error { return goose.Up(db, ".") },
	"down":    func(db *sql.DB) error { return goose.Down(db, ".") },
	"status":  func(db *sql.DB) error { return goose.Status(db, ".") },
	"version": func(db *sql.DB) error { return goose.Version(db, ".") },
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	opts, err := config.LoadStorage()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbPath := flag.String("db", opts.DatabasePath, "sqlite price history database (defaults to DATABASE_PATH)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}
	name := flag.Arg(0)
	apply, ok := gooseCommands[name]
	if !ok {
		log.Fatalf("unknown command: %s", name)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("open price history %s: %v", *dbPath, err)
	}
	defer func() { _ = db.Close() }()

	if err := migrations.Setup(); err != nil {
		log.Fatalf("prepare migrations: %v", err)
	}
	if err := apply(db); err != nil {
		log.Fatalf("%s %s: %v", name, *dbPath, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: migrate [-db path] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Manages the price_history schema of the sqlite storage backend.")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  up        Create or upgrade the price_history table")
	fmt.Fprintln(os.Stderr, "  down      Undo the last schema change")
	fmt.Fprintln(os.Stderr, "  status    List applied and pending schema changes")
	fmt.Fprintln(os.Stderr, "  version   Print the current schema version")
}

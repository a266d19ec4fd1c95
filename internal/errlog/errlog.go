// Package errlog appends failure reports to a plain-text log file.
package errlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"price_notifier/internal/bot"
	"price_notifier/internal/fetcher"
	"price_notifier/internal/storage"
)

const timeLayout = "2 January 2006 15:04:05"

// Logger writes one contiguous block per failure: a timestamp line, a
// "<Kind> - <message>" line, a key=value context line and one line per
// wrapped cause.
type Logger struct {
	w      io.Writer
	closer io.Closer
	now    func() time.Time
}

// New returns a Logger writing to w.
func New(w io.Writer) *Logger {
	return &Logger{w: w, now: time.Now}
}

// Open returns a Logger appending to the file at path. The file is never truncated.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // operator-supplied log path
	if err != nil {
		return nil, fmt.Errorf("open error log: %w", err)
	}
	l := New(f)
	l.closer = f
	return l, nil
}

// Close closes the underlying file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Record appends a report for err. args are slog-style key/value pairs
// describing where the failure happened.
func (l *Logger) Record(err error, args ...any) error {
	if err == nil {
		return nil
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "%s\n", l.now().Format(timeLayout))
	fmt.Fprintf(&b, "%s - %v\n", Kind(err), err)
	if len(args) > 0 {
		slog.New(slog.NewTextHandler(&b, &slog.HandlerOptions{ReplaceAttr: contextOnly})).
			Info("", args...)
	}
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		fmt.Fprintf(&b, "  caused by: %T: %v\n", cause, cause)
	}

	if _, err := l.w.Write(b.Bytes()); err != nil {
		return fmt.Errorf("write error log: %w", err)
	}
	return nil
}

// Kind names the failure class of err.
func Kind(err error) string {
	var fetchErr *fetcher.FetchError
	var dispatchErr *bot.DispatchError
	switch {
	case errors.As(err, &fetchErr):
		return "FetchError"
	case errors.Is(err, storage.ErrStoreUnavailable):
		return "StoreUnavailable"
	case errors.Is(err, storage.ErrInvalidPrice):
		return "InvalidPrice"
	case errors.As(err, &dispatchErr):
		return "NotificationDispatchError"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Canceled"
	}
	return fmt.Sprintf("%T", rootCause(err))
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func contextOnly(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey, slog.LevelKey, slog.MessageKey:
		return slog.Attr{}
	}
	return a
}

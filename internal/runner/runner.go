// Package runner performs one price check over every configured seller.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"price_notifier/internal/bot"
	"price_notifier/internal/extractor"
	"price_notifier/internal/fetcher"
	"price_notifier/internal/health"
	"price_notifier/internal/model"
	"price_notifier/internal/pricing"
	"price_notifier/internal/seller"
	"price_notifier/internal/storage"
)

// DefaultFetchDelay is the pause taken before each seller's fetch.
const DefaultFetchDelay = time.Second

// PageFetcher downloads a product page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Page, error)
}

// Messenger delivers text to the notification chat.
type Messenger interface {
	EditHealthCheck(ctx context.Context, text string) error
	SendMessage(ctx context.Context, text string) error
}

// ErrorRecorder persists failure reports.
type ErrorRecorder interface {
	Record(err error, args ...any) error
}

// Outcome is where a seller ended up in the run.
type Outcome string

// Possible outcomes.
const (
	OutcomeFetchError    Outcome = "fetch_error"
	OutcomeFetchFailed   Outcome = "fetch_failed"
	OutcomePriceNotFound Outcome = "price_not_found"
	OutcomeUnchanged     Outcome = "unchanged"
	OutcomePriceDrop     Outcome = "price_drop"
	OutcomeBuyNow        Outcome = "buy_now"
	OutcomeError         Outcome = "error"
)

// Result summarises one seller's processing. Err is set when a failure was logged.
type Result struct {
	Seller  model.SellerID
	Outcome Outcome
	Err     error
}

// Options configures a Runner.
type Options struct {
	Sellers     []seller.Seller
	TargetPrice float64
	FetchDelay  time.Duration
}

// Runner checks every seller once per Run call.
type Runner struct {
	sellers   []seller.Seller
	target    float64
	delay     time.Duration
	fetcher   PageFetcher
	store     storage.PriceStore
	messenger Messenger
	errs      ErrorRecorder
	log       *slog.Logger
	sleep     func(time.Duration)
	now       func() time.Time
}

// New creates a Runner.
func New(opts Options, f PageFetcher, store storage.PriceStore, m Messenger, errs ErrorRecorder, log *slog.Logger) *Runner {
	delay := opts.FetchDelay
	if delay <= 0 {
		delay = DefaultFetchDelay
	}
	return &Runner{
		sellers:   opts.Sellers,
		target:    opts.TargetPrice,
		delay:     delay,
		fetcher:   f,
		store:     store,
		messenger: m,
		errs:      errs,
		log:       log,
		sleep:     time.Sleep,
		now:       time.Now,
	}
}

// run is the state of a single Run call.
type run struct {
	*Runner
	id      string
	log     *slog.Logger
	tracker *health.Tracker
}

// Run publishes the health-check message and then processes sellers in order.
// Failures are logged and never stop the loop; a cancelled ctx stops it
// before the next seller.
func (r *Runner) Run(ctx context.Context) []Result {
	id := uuid.NewString()
	rn := &run{
		Runner:  r,
		id:      id,
		log:     r.log.With("run_id", id),
		tracker: health.New(r.sellers),
	}

	rn.log.Info("run started", "sellers", len(r.sellers))
	rn.publishHealth(ctx)

	results := make([]Result, 0, len(r.sellers))
	for _, s := range r.sellers {
		if ctx.Err() != nil {
			rn.log.Warn("run interrupted", "error", ctx.Err())
			break
		}
		outcome, err := rn.processSeller(ctx, s)
		if err != nil {
			rn.fail(err, "seller", string(s.ID), "outcome", string(outcome))
		}
		results = append(results, Result{Seller: s.ID, Outcome: outcome, Err: err})
	}

	rn.logSummary(results)
	return results
}

func (rn *run) processSeller(ctx context.Context, s seller.Seller) (Outcome, error) {
	rn.sleep(rn.delay)

	rn.log.Debug("fetching page", "seller", s.ID, "url", s.URL)
	page, err := rn.fetcher.Fetch(ctx, s.URL)
	if err != nil {
		return OutcomeFetchError, err
	}

	if !page.OK() {
		rn.log.Warn("page not available", "seller", s.ID, "status", page.StatusCode)
		err := rn.notify(ctx, model.NotificationEvent{
			Kind:         model.NotifyFetchFailure,
			SellerName:   s.DisplayName,
			ResponseCode: page.StatusCode,
		})
		return OutcomeFetchFailed, err
	}

	rn.tracker.MarkOK(s.ID)
	rn.publishHealth(ctx)

	price, err := s.ExtractPrice(page.Body)
	if errors.Is(err, extractor.ErrPriceNotFound) {
		rn.log.Info("price not found", "seller", s.ID)
		return OutcomePriceNotFound, nil
	}
	if err != nil {
		return OutcomeError, fmt.Errorf("extract price: %w", err)
	}

	return rn.decide(ctx, s, price)
}

func (rn *run) decide(ctx context.Context, s seller.Seller, current float64) (Outcome, error) {
	latest, err := rn.store.LastPrice(ctx, s.ID)
	if err != nil {
		return OutcomeError, fmt.Errorf("read last price: %w", err)
	}

	v := pricing.Evaluate(current, latest, rn.target)
	if v.Decision == pricing.Unchanged {
		rn.log.Debug("price not lower", "seller", s.ID, "current", current, "latest", latest)
		return OutcomeUnchanged, nil
	}

	if err := rn.store.Append(ctx, s.ID, current); err != nil {
		return OutcomeError, fmt.Errorf("append price: %w", err)
	}

	ev := model.NotificationEvent{
		Kind:       model.NotifyPriceDrop,
		SellerName: s.DisplayName,
		Percentage: v.Percentage,
		Price:      current,
	}
	outcome := OutcomePriceDrop
	if v.Decision == pricing.BuyNow {
		ev.Kind = model.NotifyBuyNow
		outcome = OutcomeBuyNow
	}

	rn.log.Info("price dropped", "seller", s.ID, "from", latest, "to", current,
		"percentage", v.Percentage, "decision", v.Decision)
	return outcome, rn.notify(ctx, ev)
}

func (rn *run) notify(ctx context.Context, ev model.NotificationEvent) error {
	if err := rn.messenger.SendMessage(ctx, bot.Format(ev)); err != nil {
		return fmt.Errorf("send %s notification: %w", ev.Kind, err)
	}
	return nil
}

func (rn *run) publishHealth(ctx context.Context) {
	if err := rn.messenger.EditHealthCheck(ctx, rn.tracker.Summary(rn.now())); err != nil {
		rn.fail(fmt.Errorf("publish health check: %w", err), "stage", "health")
	}
}

func (rn *run) fail(err error, args ...any) {
	rn.log.Error("run step failed", append([]any{"error", err}, args...)...)
	if rerr := rn.errs.Record(err, append([]any{"run_id", rn.id}, args...)...); rerr != nil {
		rn.log.Error("record failure", "error", rerr)
	}
}

func (rn *run) logSummary(results []Result) {
	counts := make(map[Outcome]int)
	failed := 0
	for _, res := range results {
		counts[res.Outcome]++
		if res.Err != nil {
			failed++
		}
	}
	rn.log.Info("run finished",
		"checked", len(results),
		"notified", counts[OutcomePriceDrop]+counts[OutcomeBuyNow],
		"unavailable", counts[OutcomeFetchError]+counts[OutcomeFetchFailed],
		"failed", failed,
	)
}

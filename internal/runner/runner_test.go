package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"price_notifier/internal/bot"
	"price_notifier/internal/errlog"
	"price_notifier/internal/fetcher"
	"price_notifier/internal/model"
	"price_notifier/internal/seller"
	"price_notifier/internal/storage"
)

const target = 28000000

// --- mocks ---

type mockFetcher struct {
	pages  map[string]*fetcher.Page
	errs   map[string]error
	events *[]string
}

func (m *mockFetcher) Fetch(_ context.Context, url string) (*fetcher.Page, error) {
	*m.events = append(*m.events, "fetch "+url)
	if err, ok := m.errs[url]; ok {
		return nil, &fetcher.FetchError{URL: url, Err: err}
	}
	if p, ok := m.pages[url]; ok {
		return p, nil
	}
	return &fetcher.Page{StatusCode: 200}, nil
}

type mockMessenger struct {
	edits   []string
	sends   []string
	editErr error
	sendErr error
}

func (m *mockMessenger) EditHealthCheck(_ context.Context, text string) error {
	m.edits = append(m.edits, text)
	return m.editErr
}

func (m *mockMessenger) SendMessage(_ context.Context, text string) error {
	m.sends = append(m.sends, text)
	return m.sendErr
}

// --- helpers ---

type harness struct {
	runner    *Runner
	fetcher   *mockFetcher
	messenger *mockMessenger
	store     *storage.File
	errLog    *bytes.Buffer
	events    []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := storage.NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	h := &harness{
		messenger: &mockMessenger{},
		store:     store,
		errLog:    &bytes.Buffer{},
	}
	h.fetcher = &mockFetcher{
		pages:  map[string]*fetcher.Page{},
		errs:   map[string]error{},
		events: &h.events,
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.runner = New(Options{Sellers: seller.Default(), TargetPrice: target, FetchDelay: 5 * time.Millisecond},
		h.fetcher, store, h.messenger, errlog.New(h.errLog), log)
	h.runner.sleep = func(d time.Duration) {
		h.events = append(h.events, "sleep "+d.String())
	}
	h.runner.now = func() time.Time {
		return time.Date(2024, time.March, 5, 9, 7, 3, 0, time.UTC)
	}
	return h
}

func urlOf(t *testing.T, id model.SellerID) string {
	t.Helper()
	s, err := seller.Lookup(string(id))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	return s.URL
}

func (h *harness) page(t *testing.T, id model.SellerID, status int, body string) {
	t.Helper()
	h.fetcher.pages[urlOf(t, id)] = &fetcher.Page{StatusCode: status, Body: body}
}

func (h *harness) seed(t *testing.T, id model.SellerID, prices ...float64) {
	t.Helper()
	for _, p := range prices {
		if err := h.store.Append(context.Background(), id, p); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
}

func (h *harness) history(t *testing.T, id model.SellerID) []float64 {
	t.Helper()
	records, err := h.store.History(context.Background(), id)
	if err != nil {
		t.Fatalf("history %s: %v", id, err)
	}
	var out []float64
	for _, r := range records {
		out = append(out, r.Price)
	}
	return out
}

func outcomes(results []Result) []Outcome {
	var out []Outcome
	for _, r := range results {
		out = append(out, r.Outcome)
	}
	return out
}

// --- tests ---

func TestRunDropDecision(t *testing.T) {
	tests := []struct {
		name        string
		current     string
		wantOutcome Outcome
		wantSends   []string
		wantHistory []float64
	}{
		{
			name:        "price drop above target",
			current:     `"special_price":29000000,`,
			wantOutcome: OutcomePriceDrop,
			wantSends:   []string{"The iBox price has been dropped 3% from its original price to Rp29000000"},
			wantHistory: []float64{30000000, 29000000},
		},
		{
			name:        "buy now below target",
			current:     `"special_price":27000000,`,
			wantOutcome: OutcomeBuyNow,
			wantSends:   []string{"IT'S TIME TO BUY!\n\nThe iBox price has been dropped 10% from its original price to Rp27000000"},
			wantHistory: []float64{30000000, 27000000},
		},
		{
			name:        "same price is a no-op",
			current:     `"special_price":30000000,`,
			wantOutcome: OutcomeUnchanged,
			wantSends:   nil,
			wantHistory: []float64{30000000},
		},
		{
			name:        "higher price is a no-op",
			current:     `"price":31000000,`,
			wantOutcome: OutcomeUnchanged,
			wantSends:   nil,
			wantHistory: []float64{30000000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.seed(t, model.SellerIBox, 30000000)
			h.seed(t, model.SellerDigimap, 30000000)
			h.seed(t, model.SellerEraspace, 30000000)
			h.page(t, model.SellerIBox, 200, tt.current)
			h.page(t, model.SellerDigimap, 200, `<html>sold out</html>`)
			h.page(t, model.SellerEraspace, 200, `"price":30000000,`)

			results := h.runner.Run(context.Background())

			want := []Outcome{tt.wantOutcome, OutcomePriceNotFound, OutcomeUnchanged}
			if diff := cmp.Diff(want, outcomes(results)); diff != "" {
				t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantSends, h.messenger.sends); diff != "" {
				t.Errorf("sends mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantHistory, h.history(t, model.SellerIBox)); diff != "" {
				t.Errorf("history mismatch (-want +got):\n%s", diff)
			}
			if h.errLog.Len() != 0 {
				t.Errorf("expected empty error log, got:\n%s", h.errLog.String())
			}
		})
	}
}

func TestRunHealthPublishing(t *testing.T) {
	h := newHarness(t)
	h.seed(t, model.SellerIBox, 30000000)
	h.seed(t, model.SellerEraspace, 30000000)
	h.page(t, model.SellerIBox, 200, `"price":30000000,`)
	h.page(t, model.SellerDigimap, 503, "")
	h.page(t, model.SellerEraspace, 200, `"price":30000000,`)

	h.runner.Run(context.Background())

	const ts = "Last run: 5 March 2024 09:07:03\n\n"
	want := []string{
		ts + "iBox: 🔴\nDigimap: 🔴\nEraspace: 🔴",
		ts + "iBox: 🟢\nDigimap: 🔴\nEraspace: 🔴",
		ts + "iBox: 🟢\nDigimap: 🔴\nEraspace: 🟢",
	}
	if diff := cmp.Diff(want, h.messenger.edits); diff != "" {
		t.Errorf("health edits mismatch (-want +got):\n%s", diff)
	}
}

func TestRunFreshHealthEachRun(t *testing.T) {
	h := newHarness(t)
	h.seed(t, model.SellerIBox, 30000000)
	h.seed(t, model.SellerDigimap, 30000000)
	h.seed(t, model.SellerEraspace, 30000000)

	h.runner.Run(context.Background())
	h.messenger.edits = nil
	h.runner.Run(context.Background())

	if len(h.messenger.edits) == 0 {
		t.Fatal("expected health edits")
	}
	if !strings.Contains(h.messenger.edits[0], "iBox: 🔴\nDigimap: 🔴\nEraspace: 🔴") {
		t.Errorf("second run should start all unknown, got:\n%s", h.messenger.edits[0])
	}
}

func TestRunNonSuccessStatus(t *testing.T) {
	h := newHarness(t)
	h.seed(t, model.SellerIBox, 30000000)
	h.seed(t, model.SellerDigimap, 30000000)
	h.seed(t, model.SellerEraspace, 30000000)
	h.page(t, model.SellerIBox, 404, `"special_price":1000,`)
	h.page(t, model.SellerDigimap, 200, `{}`)
	h.page(t, model.SellerEraspace, 200, `{}`)

	results := h.runner.Run(context.Background())

	want := []string{"Failed to perform request to check iBox price with response code 404"}
	if diff := cmp.Diff(want, h.messenger.sends); diff != "" {
		t.Errorf("sends mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(OutcomeFetchFailed, results[0].Outcome); diff != "" {
		t.Errorf("outcome mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{30000000}, h.history(t, model.SellerIBox)); diff != "" {
		t.Errorf("404 must not touch history (-want +got):\n%s", diff)
	}
	last := h.messenger.edits[len(h.messenger.edits)-1]
	if !strings.Contains(last, "iBox: 🔴") {
		t.Errorf("iBox should stay unknown after 404, got:\n%s", last)
	}
}

func TestRunContinuesAfterFetchError(t *testing.T) {
	h := newHarness(t)
	h.seed(t, model.SellerDigimap, 30000000)
	h.fetcher.errs[urlOf(t, model.SellerIBox)] = io.ErrUnexpectedEOF
	h.page(t, model.SellerDigimap, 200, `{"amount":29000000,"currency":"IDR"}`)
	h.page(t, model.SellerEraspace, 200, `{}`)

	results := h.runner.Run(context.Background())

	wantOutcomes := []Outcome{OutcomeFetchError, OutcomePriceDrop, OutcomePriceNotFound}
	if diff := cmp.Diff(wantOutcomes, outcomes(results)); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}
	var fe *fetcher.FetchError
	if !errors.As(results[0].Err, &fe) {
		t.Errorf("expected FetchError result, got %v", results[0].Err)
	}
	wantSends := []string{"The Digimap price has been dropped 3% from its original price to Rp29000000"}
	if diff := cmp.Diff(wantSends, h.messenger.sends); diff != "" {
		t.Errorf("sends mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(h.errLog.String(), "FetchError - ") {
		t.Errorf("error log missing FetchError entry:\n%s", h.errLog.String())
	}
	if !strings.Contains(h.errLog.String(), "seller=ibox") {
		t.Errorf("error log missing seller context:\n%s", h.errLog.String())
	}
}

func TestRunCorruptHistoryDoesNotStopRun(t *testing.T) {
	for _, line := range []string{"Inf", "NaN"} {
		t.Run(line, func(t *testing.T) {
			h := newHarness(t)
			if err := os.WriteFile(h.store.Path(model.SellerIBox), []byte(line+"\n"), 0o600); err != nil {
				t.Fatalf("write history: %v", err)
			}
			h.seed(t, model.SellerDigimap, 30000000)
			h.page(t, model.SellerIBox, 200, `"price":29000000,`)
			h.page(t, model.SellerDigimap, 200, `{"amount":29000000,"currency":"IDR"}`)
			h.page(t, model.SellerEraspace, 200, `{}`)

			results := h.runner.Run(context.Background())

			wantOutcomes := []Outcome{OutcomeError, OutcomePriceDrop, OutcomePriceNotFound}
			if diff := cmp.Diff(wantOutcomes, outcomes(results)); diff != "" {
				t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
			}
			if !errors.Is(results[0].Err, storage.ErrInvalidPrice) {
				t.Errorf("expected ErrInvalidPrice, got %v", results[0].Err)
			}
			if !strings.Contains(h.errLog.String(), "InvalidPrice - ") {
				t.Errorf("error log missing InvalidPrice entry:\n%s", h.errLog.String())
			}
			wantSends := []string{"The Digimap price has been dropped 3% from its original price to Rp29000000"}
			if diff := cmp.Diff(wantSends, h.messenger.sends); diff != "" {
				t.Errorf("sends mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunStoreUnavailable(t *testing.T) {
	h := newHarness(t)
	h.seed(t, model.SellerEraspace, 30000000)
	h.page(t, model.SellerIBox, 200, `"price":29000000,`)
	h.page(t, model.SellerDigimap, 200, `{}`)
	h.page(t, model.SellerEraspace, 200, `"price":27000000,`)

	results := h.runner.Run(context.Background())

	if !errors.Is(results[0].Err, storage.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", results[0].Err)
	}
	wantOutcomes := []Outcome{OutcomeError, OutcomePriceNotFound, OutcomeBuyNow}
	if diff := cmp.Diff(wantOutcomes, outcomes(results)); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}
	if got := h.history(t, model.SellerIBox); len(got) != 0 {
		t.Errorf("unseeded seller must not be written, got %v", got)
	}
	if !strings.Contains(h.errLog.String(), "StoreUnavailable - ") {
		t.Errorf("error log missing StoreUnavailable entry:\n%s", h.errLog.String())
	}
}

func TestRunDispatchFailuresAreNonFatal(t *testing.T) {
	h := newHarness(t)
	h.messenger.editErr = &bot.DispatchError{Method: "editMessageText", Err: errors.New("telegram down")}
	h.messenger.sendErr = &bot.DispatchError{Method: "sendMessage", Err: errors.New("telegram down")}
	h.seed(t, model.SellerIBox, 30000000)
	h.seed(t, model.SellerDigimap, 30000000)
	h.page(t, model.SellerIBox, 200, `"price":29000000,`)
	h.page(t, model.SellerDigimap, 500, "")
	h.page(t, model.SellerEraspace, 200, `{}`)

	results := h.runner.Run(context.Background())

	wantOutcomes := []Outcome{OutcomePriceDrop, OutcomeFetchFailed, OutcomePriceNotFound}
	if diff := cmp.Diff(wantOutcomes, outcomes(results)); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(2, len(h.messenger.sends)); diff != "" {
		t.Errorf("send attempts mismatch (-want +got):\n%s", diff)
	}
	// The drop was recorded even though the message did not go out.
	if diff := cmp.Diff([]float64{30000000, 29000000}, h.history(t, model.SellerIBox)); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	// Three health edits and two sends failed.
	if diff := cmp.Diff(5, strings.Count(h.errLog.String(), "NotificationDispatchError - ")); diff != "" {
		t.Errorf("dispatch failures logged mismatch (-want +got):\n%s", diff)
	}
}

func TestRunSleepsBeforeEveryFetch(t *testing.T) {
	h := newHarness(t)

	h.runner.Run(context.Background())

	var want []string
	for _, s := range seller.Default() {
		want = append(want, "sleep 5ms", "fetch "+s.URL)
	}
	if diff := cmp.Diff(want, h.events); diff != "" {
		t.Errorf("event order mismatch (-want +got):\n%s", diff)
	}
}

func TestRunHistoryNeverIncreases(t *testing.T) {
	h := newHarness(t)
	h.seed(t, model.SellerIBox, 30000000)

	for _, body := range []string{
		`"price":29000000,`,
		`"price":29500000,`,
		`"price":29000000,`,
		`"price":27000000,`,
		`"price":31000000,`,
	} {
		h.page(t, model.SellerIBox, 200, body)
		h.runner.Run(context.Background())
	}

	got := h.history(t, model.SellerIBox)
	if diff := cmp.Diff([]float64{30000000, 29000000, 27000000}, got); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	for i := 1; i < len(got); i++ {
		if got[i] >= got[i-1] {
			t.Errorf("history not strictly decreasing at %d: %v", i, got)
		}
	}
}

func TestRunCancelledContext(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := h.runner.Run(ctx)

	if len(results) != 0 {
		t.Errorf("expected no sellers processed, got %v", results)
	}
	if len(h.events) != 0 {
		t.Errorf("expected no fetches, got %v", h.events)
	}
}

func TestNewDefaultsDelay(t *testing.T) {
	r := New(Options{}, nil, nil, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if diff := cmp.Diff(DefaultFetchDelay, r.delay); diff != "" {
		t.Errorf("delay mismatch (-want +got):\n%s", diff)
	}
}

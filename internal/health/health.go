// Package health tracks which sellers were reachable during a run.
package health

import (
	"time"

	"price_notifier/internal/bot"
	"price_notifier/internal/model"
	"price_notifier/internal/seller"
)

// Tracker holds per-seller status for a single run. It is not safe for
// concurrent use.
type Tracker struct {
	sellers []seller.Seller
	status  map[model.SellerID]model.HealthStatus
}

// New returns a Tracker with every seller Unknown.
func New(sellers []seller.Seller) *Tracker {
	status := make(map[model.SellerID]model.HealthStatus, len(sellers))
	for _, s := range sellers {
		status[s.ID] = model.HealthUnknown
	}
	return &Tracker{sellers: sellers, status: status}
}

// MarkOK records a successful fetch for id.
func (t *Tracker) MarkOK(id model.SellerID) {
	if _, ok := t.status[id]; ok {
		t.status[id] = model.HealthOK
	}
}

// Status returns the current status of id. Untracked sellers are Unknown.
func (t *Tracker) Status(id model.SellerID) model.HealthStatus {
	if s, ok := t.status[id]; ok {
		return s
	}
	return model.HealthUnknown
}

// Summary renders the health-check message for the current state.
func (t *Tracker) Summary(now time.Time) string {
	entries := make([]bot.HealthEntry, 0, len(t.sellers))
	for _, s := range t.sellers {
		entries = append(entries, bot.HealthEntry{Name: s.DisplayName, Status: t.status[s.ID]})
	}
	return bot.FormatHealthCheck(now, entries)
}

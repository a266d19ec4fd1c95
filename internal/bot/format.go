package bot

import (
	"fmt"
	"strings"
	"time"

	"price_notifier/internal/model"
	"price_notifier/internal/pricing"
)

const healthTimeLayout = "2 January 2006 15:04:05"

const buyNowBanner = "IT'S TIME TO BUY!"

var statusGlyph = map[model.HealthStatus]string{
	model.HealthUnknown: "🔴",
	model.HealthOK:      "🟢",
}

// HealthEntry is one seller line of the health-check message.
type HealthEntry struct {
	Name   string
	Status model.HealthStatus
}

// FormatHealthCheck renders the pinned status message.
func FormatHealthCheck(now time.Time, entries []HealthEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Last run: %s\n", now.Format(healthTimeLayout))
	for _, e := range entries {
		glyph, ok := statusGlyph[e.Status]
		if !ok {
			glyph = statusGlyph[model.HealthUnknown]
		}
		fmt.Fprintf(&b, "\n%s: %s", e.Name, glyph)
	}
	return b.String()
}

// FormatFetchFailure reports a product page that did not load.
func FormatFetchFailure(sellerName string, code int) string {
	return fmt.Sprintf("Failed to perform request to check %s price with response code %d", sellerName, code)
}

// FormatPriceDrop announces a lower price that is still above target.
func FormatPriceDrop(sellerName string, percentage int, price float64) string {
	return fmt.Sprintf("The %s price has been dropped %d%% from its original price to Rp%s",
		sellerName, percentage, pricing.FormatPrice(price))
}

// FormatBuyNow announces a price at or below target.
func FormatBuyNow(sellerName string, percentage int, price float64) string {
	return buyNowBanner + "\n\n" + FormatPriceDrop(sellerName, percentage, price)
}

// Format renders a seller notification event. Health events are rendered by
// FormatHealthCheck and yield an empty string here.
func Format(ev model.NotificationEvent) string {
	switch ev.Kind {
	case model.NotifyFetchFailure:
		return FormatFetchFailure(ev.SellerName, ev.ResponseCode)
	case model.NotifyPriceDrop:
		return FormatPriceDrop(ev.SellerName, ev.Percentage, ev.Price)
	case model.NotifyBuyNow:
		return FormatBuyNow(ev.SellerName, ev.Percentage, ev.Price)
	default:
		return ""
	}
}

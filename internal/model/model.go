// Package model defines the domain types used across the application.
package model

import "time"

// SellerID identifies one tracked e-commerce source.
type SellerID string

// Known sellers, in the order they are checked.
const (
	SellerIBox     SellerID = "ibox"
	SellerDigimap  SellerID = "digimap"
	SellerEraspace SellerID = "eraspace"
)

// HealthStatus reports whether a seller's page was reachable in the current run.
type HealthStatus string

// Supported health states.
const (
	HealthUnknown HealthStatus = "unknown"
	HealthOK      HealthStatus = "ok"
)

// PriceRecord is one observed price in a seller's append-only history.
type PriceRecord struct {
	Seller     SellerID
	Price      float64
	RecordedAt time.Time
}

// NotificationKind selects which message template an event renders with.
type NotificationKind string

// Supported notification kinds.
const (
	NotifyHealth       NotificationKind = "health"
	NotifyFetchFailure NotificationKind = "fetch_failure"
	NotifyPriceDrop    NotificationKind = "price_drop"
	NotifyBuyNow       NotificationKind = "buy_now"
)

// NotificationEvent carries the values interpolated into a single outgoing message.
// Events are rendered and dispatched, never persisted.
type NotificationEvent struct {
	Kind         NotificationKind
	SellerName   string
	Percentage   int
	Price        float64
	ResponseCode int
}

package events

import (
	"context"
	"time"
)

// Event types
const (
	PortfolioCreated = "portfolio.created"
	PortfolioUpdated = "portfolio.updated"
	PortfolioDeleted = "portfolio.deleted"

	HoldingAdded   = "holding.added"
	HoldingUpdated = "holding.updated"
	HoldingRemoved = "holding.removed"
)

// DefaultStream is the stream portfolio changes are appended to.
const DefaultStream = "portfolio.events"

// Event is the envelope written to the stream.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type PortfolioEvent struct {
	PortfolioID string `json:"portfolioId"`
	OwnerID     string `json:"ownerId"`
	Name        string `json:"name,omitempty"`
}

type HoldingEvent struct {
	PortfolioID string `json:"portfolioId"`
	OwnerID     string `json:"ownerId"`
	HoldingID   string `json:"holdingId"`
	Ticker      string `json:"ticker,omitempty"`
	Qty         string `json:"qty,omitempty"`
}

// Publisher appends change events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

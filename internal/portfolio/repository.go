// Package portfolio implements the portfolio aggregate: CRUD on portfolios
// and the holding sub-operations, scoped by owner.
//
// Every operation validates its parameters before touching the store and
// returns storage.ErrNotFound when the (owner, portfolio[, holding]) filter
// does not match, whether the document is absent or owned by someone else.
package portfolio

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hongminglow/portfolio-be/internal/events"
	"github.com/hongminglow/portfolio-be/internal/logging"
	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/storage"
	"github.com/hongminglow/portfolio-be/internal/validate"
)

// Repository owns the lifecycle of portfolios and their holdings.
type Repository struct {
	store     storage.PortfolioStore
	publisher events.Publisher
	log       logging.Logger
	now       func() time.Time
}

// NewRepository wires a repository over store. A nil publisher disables
// change events.
func NewRepository(store storage.PortfolioStore, publisher events.Publisher, log logging.Logger) *Repository {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Repository{store: store, publisher: publisher, log: log, now: time.Now}
}

func (r *Repository) stamp() int64 { return models.NowMillis(r.now()) }

// ListByOwner returns the owner's portfolios, most recently updated first.
// An empty owner id yields an empty list.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]models.Portfolio, error) {
	if ownerID == "" {
		return []models.Portfolio{}, nil
	}
	if err := validate.OwnerID(ownerID); err != nil {
		return nil, err
	}
	return r.store.ListByOwner(ctx, ownerID)
}

// GetOne returns a single portfolio.
func (r *Repository) GetOne(ctx context.Context, ownerID, portfolioID string) (models.Portfolio, error) {
	if err := validate.First(validate.OwnerID(ownerID), validate.PortfolioID(portfolioID)); err != nil {
		return models.Portfolio{}, err
	}
	return r.store.FindOne(ctx, ownerID, portfolioID)
}

// Create stores a new, empty portfolio.
func (r *Repository) Create(ctx context.Context, ownerID, name, notes string) (models.Portfolio, error) {
	if err := validate.OwnerID(ownerID); err != nil {
		return models.Portfolio{}, err
	}
	name, err := validate.TrimName(name)
	if err != nil {
		return models.Portfolio{}, err
	}
	notes = strings.TrimSpace(notes)

	now := r.stamp()
	p, err := r.store.Insert(ctx, models.Portfolio{
		ID:        models.NewID(),
		OwnerID:   ownerID,
		Name:      name,
		Notes:     notes,
		Holdings:  []models.Holding{},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return models.Portfolio{}, err
	}

	r.publish(ctx, events.PortfolioCreated, events.PortfolioEvent{PortfolioID: p.ID, OwnerID: ownerID, Name: p.Name})
	return p, nil
}

// Update overwrites the supplied fields and returns the new state.
func (r *Repository) Update(ctx context.Context, ownerID, portfolioID string, changes models.PortfolioChanges) (models.Portfolio, error) {
	if err := validate.First(validate.OwnerID(ownerID), validate.PortfolioID(portfolioID)); err != nil {
		return models.Portfolio{}, err
	}
	if changes.Name != nil {
		name, err := validate.TrimName(*changes.Name)
		if err != nil {
			return models.Portfolio{}, err
		}
		changes.Name = &name
	}
	if changes.Notes != nil {
		notes := strings.TrimSpace(*changes.Notes)
		changes.Notes = &notes
	}

	p, err := r.store.Update(ctx, ownerID, portfolioID, changes, r.stamp())
	if err != nil {
		return models.Portfolio{}, err
	}

	r.publish(ctx, events.PortfolioUpdated, events.PortfolioEvent{PortfolioID: p.ID, OwnerID: ownerID, Name: p.Name})
	return p, nil
}

// Delete removes a portfolio and reports the number of deleted documents.
func (r *Repository) Delete(ctx context.Context, ownerID, portfolioID string) (int64, error) {
	if err := validate.First(validate.OwnerID(ownerID), validate.PortfolioID(portfolioID)); err != nil {
		return 0, err
	}
	n, err := r.store.Delete(ctx, ownerID, portfolioID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.publish(ctx, events.PortfolioDeleted, events.PortfolioEvent{PortfolioID: portfolioID, OwnerID: ownerID})
	}
	return n, nil
}

// HasHolding reports whether the portfolio already holds ticker.
// The ticker must already be normalized.
func (r *Repository) HasHolding(ctx context.Context, ownerID, portfolioID, ticker string) (bool, error) {
	if err := validate.First(validate.OwnerID(ownerID), validate.PortfolioID(portfolioID), validate.Ticker(ticker)); err != nil {
		return false, err
	}
	return r.store.HasHolding(ctx, ownerID, portfolioID, ticker)
}

// AddHolding inserts a holding and keeps holdings sorted by ticker.
// It returns storage.ErrAlreadyExists when the ticker is already held.
func (r *Repository) AddHolding(ctx context.Context, ownerID, portfolioID, ticker string, qty models.Quantity) (models.Portfolio, error) {
	if err := validate.First(
		validate.OwnerID(ownerID),
		validate.PortfolioID(portfolioID),
		validate.Ticker(ticker),
		validate.Qty(qty, false),
	); err != nil {
		return models.Portfolio{}, err
	}

	now := r.stamp()
	h := models.Holding{
		ID:        models.NewID(),
		Ticker:    ticker,
		Qty:       qty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p, err := r.store.PushHolding(ctx, ownerID, portfolioID, h, now)
	if err != nil {
		return models.Portfolio{}, err
	}

	r.publish(ctx, events.HoldingAdded, events.HoldingEvent{
		PortfolioID: portfolioID, OwnerID: ownerID, HoldingID: h.ID, Ticker: ticker, Qty: qty.String(),
	})
	return p, nil
}

// UpdateHolding sets the quantity of one holding. Zero is allowed and
// records a sold-out position.
func (r *Repository) UpdateHolding(ctx context.Context, ownerID, portfolioID, holdingID string, qty models.Quantity) (models.Portfolio, error) {
	if err := validate.First(
		validate.OwnerID(ownerID),
		validate.PortfolioID(portfolioID),
		validate.HoldingID(holdingID),
		validate.Qty(qty, true),
	); err != nil {
		return models.Portfolio{}, err
	}

	p, err := r.store.SetHoldingQty(ctx, ownerID, portfolioID, holdingID, qty, r.stamp())
	if err != nil {
		return models.Portfolio{}, err
	}

	ticker := ""
	if h, ok := p.HoldingByID(holdingID); ok {
		ticker = h.Ticker
	}
	r.publish(ctx, events.HoldingUpdated, events.HoldingEvent{
		PortfolioID: portfolioID, OwnerID: ownerID, HoldingID: holdingID, Ticker: ticker, Qty: qty.String(),
	})
	return p, nil
}

// DeleteHolding removes one holding and returns the remaining portfolio.
func (r *Repository) DeleteHolding(ctx context.Context, ownerID, portfolioID, holdingID string) (models.Portfolio, error) {
	if err := validate.First(
		validate.OwnerID(ownerID),
		validate.PortfolioID(portfolioID),
		validate.HoldingID(holdingID),
	); err != nil {
		return models.Portfolio{}, err
	}

	p, err := r.store.PullHolding(ctx, ownerID, portfolioID, holdingID, r.stamp())
	if err != nil {
		return models.Portfolio{}, err
	}

	r.publish(ctx, events.HoldingRemoved, events.HoldingEvent{PortfolioID: portfolioID, OwnerID: ownerID, HoldingID: holdingID})
	return p, nil
}

// publish never fails the operation; the write has already happened.
func (r *Repository) publish(ctx context.Context, eventType string, data any) {
	if err := r.publisher.Publish(ctx, eventType, data); err != nil && !errors.Is(err, context.Canceled) {
		r.log.Warn(ctx, "publish event failed", "type", eventType, "error", err)
	}
}

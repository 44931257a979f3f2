package storage

import (
	"context"
	"errors"

	"github.com/hongminglow/portfolio-be/internal/models"
)

// ErrNotFound indicates a record does not exist or is not visible to the caller.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore captures persistence operations needed by the auth and user handlers.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (models.User, error)
	DeleteUser(ctx context.Context, id string) (int64, error)
}

// PortfolioStore is the document-store contract behind the portfolio
// repository. Every method filtering by portfolio id also filters by owner,
// and every mutation is atomic on the single portfolio document.
// Timestamps are epoch milliseconds; a mutation stamps updatedAt with
// max(at, previous+1).
type PortfolioStore interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.Portfolio, error)
	FindOne(ctx context.Context, ownerID, portfolioID string) (models.Portfolio, error)
	Insert(ctx context.Context, p models.Portfolio) (models.Portfolio, error)
	Update(ctx context.Context, ownerID, portfolioID string, changes models.PortfolioChanges, at int64) (models.Portfolio, error)
	Delete(ctx context.Context, ownerID, portfolioID string) (int64, error)

	HasHolding(ctx context.Context, ownerID, portfolioID, ticker string) (bool, error)
	// PushHolding inserts h only if no holding with the same ticker exists,
	// then re-sorts holdings by ticker. It returns ErrAlreadyExists when the
	// ticker is taken and ErrNotFound when the portfolio does not match.
	PushHolding(ctx context.Context, ownerID, portfolioID string, h models.Holding, at int64) (models.Portfolio, error)
	SetHoldingQty(ctx context.Context, ownerID, portfolioID, holdingID string, qty models.Quantity, at int64) (models.Portfolio, error)
	PullHolding(ctx context.Context, ownerID, portfolioID, holdingID string, at int64) (models.Portfolio, error)
}

// Store is a complete backend.
type Store interface {
	UserStore
	PortfolioStore
	Close()
}

// NextStamp returns the updatedAt value for a mutation at time at over a
// document last stamped prev.
func NextStamp(at, prev int64) int64 {
	if at > prev {
		return at
	}
	return prev + 1
}

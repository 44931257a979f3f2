// Package memory is an in-process implementation of the storage contracts.
// It keeps documents in maps behind one mutex, so every operation is atomic
// with respect to the others.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store holds users and portfolios in memory.
type Store struct {
	mu         sync.Mutex
	users      map[string]models.User
	portfolios map[string]models.Portfolio
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:      make(map[string]models.User),
		portfolios: make(map[string]models.Portfolio),
	}
}

// Close is a no-op.
func (s *Store) Close() {}

// CreateUser stores a new user, rejecting duplicate usernames or emails.
func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, user.Username) || (user.Email != "" && strings.EqualFold(u.Email, user.Email)) {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	if user.ID == "" {
		user.ID = models.NewID()
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) FindByUsernameOrEmail(_ context.Context, identifier string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, identifier) || (u.Email != "" && strings.EqualFold(u.Email, identifier)) {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (s *Store) DeleteUser(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return 0, nil
	}
	delete(s.users, id)
	return 1, nil
}

func (s *Store) ListByOwner(_ context.Context, ownerID string) ([]models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Portfolio{}
	for _, p := range s.portfolios {
		if p.OwnerID == ownerID {
			out = append(out, clone(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) FindOne(_ context.Context, ownerID, portfolioID string) (models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.owned(ownerID, portfolioID)
	if !ok {
		return models.Portfolio{}, storage.ErrNotFound
	}
	return clone(p), nil
}

func (s *Store) Insert(_ context.Context, p models.Portfolio) (models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = models.NewID()
	}
	if _, exists := s.portfolios[p.ID]; exists {
		return models.Portfolio{}, storage.ErrAlreadyExists
	}
	if p.Holdings == nil {
		p.Holdings = []models.Holding{}
	}
	s.portfolios[p.ID] = clone(p)
	return clone(p), nil
}

func (s *Store) Update(_ context.Context, ownerID, portfolioID string, changes models.PortfolioChanges, at int64) (models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.owned(ownerID, portfolioID)
	if !ok {
		return models.Portfolio{}, storage.ErrNotFound
	}
	if changes.Name != nil {
		p.Name = *changes.Name
	}
	if changes.Notes != nil {
		p.Notes = *changes.Notes
	}
	return s.save(p, at), nil
}

func (s *Store) Delete(_ context.Context, ownerID, portfolioID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owned(ownerID, portfolioID); !ok {
		return 0, nil
	}
	delete(s.portfolios, portfolioID)
	return 1, nil
}

func (s *Store) HasHolding(_ context.Context, ownerID, portfolioID, ticker string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.owned(ownerID, portfolioID)
	if !ok {
		return false, nil
	}
	_, found := p.HoldingByTicker(ticker)
	return found, nil
}

func (s *Store) PushHolding(_ context.Context, ownerID, portfolioID string, h models.Holding, at int64) (models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.owned(ownerID, portfolioID)
	if !ok {
		return models.Portfolio{}, storage.ErrNotFound
	}
	if _, taken := p.HoldingByTicker(h.Ticker); taken {
		return models.Portfolio{}, storage.ErrAlreadyExists
	}
	p.Holdings = append(p.Holdings, h)
	sort.SliceStable(p.Holdings, func(i, j int) bool {
		return p.Holdings[i].Ticker < p.Holdings[j].Ticker
	})
	return s.save(p, at), nil
}

func (s *Store) SetHoldingQty(_ context.Context, ownerID, portfolioID, holdingID string, qty models.Quantity, at int64) (models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.owned(ownerID, portfolioID)
	if !ok {
		return models.Portfolio{}, storage.ErrNotFound
	}
	i := slices.IndexFunc(p.Holdings, func(h models.Holding) bool { return h.ID == holdingID })
	if i < 0 {
		return models.Portfolio{}, storage.ErrNotFound
	}
	p.Holdings[i].Qty = qty
	p.Holdings[i].UpdatedAt = storage.NextStamp(at, p.Holdings[i].UpdatedAt)
	return s.save(p, at), nil
}

func (s *Store) PullHolding(_ context.Context, ownerID, portfolioID, holdingID string, at int64) (models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.owned(ownerID, portfolioID)
	if !ok {
		return models.Portfolio{}, storage.ErrNotFound
	}
	i := slices.IndexFunc(p.Holdings, func(h models.Holding) bool { return h.ID == holdingID })
	if i < 0 {
		return models.Portfolio{}, storage.ErrNotFound
	}
	p.Holdings = slices.Delete(p.Holdings, i, i+1)
	return s.save(p, at), nil
}

// owned returns a private copy of the portfolio when it belongs to ownerID.
// Callers must hold s.mu.
func (s *Store) owned(ownerID, portfolioID string) (models.Portfolio, bool) {
	p, ok := s.portfolios[portfolioID]
	if !ok || p.OwnerID != ownerID {
		return models.Portfolio{}, false
	}
	return clone(p), true
}

// save stamps and stores p. Callers must hold s.mu.
func (s *Store) save(p models.Portfolio, at int64) models.Portfolio {
	p.UpdatedAt = storage.NextStamp(at, p.UpdatedAt)
	s.portfolios[p.ID] = p
	return clone(p)
}

func clone(p models.Portfolio) models.Portfolio {
	p.Holdings = append([]models.Holding{}, p.Holdings...)
	return p
}

package portfolio

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/portfolio-be/internal/events"
	"github.com/hongminglow/portfolio-be/internal/logging"
	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/storage"
	"github.com/hongminglow/portfolio-be/internal/storage/memory"
	"github.com/hongminglow/portfolio-be/internal/validate"
)

const (
	ownerA = "65a1b2c3d4e5f6a7b8c9d0e1"
	ownerB = "65a1b2c3d4e5f6a7b8c9d0e2"
	absent = "000000000000000000000000"
)

type recordingPublisher struct {
	mu     sync.Mutex
	types  []string
	failOn string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	if eventType == p.failOn {
		return errors.New("broker down")
	}
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.types...)
}

// spyStore fails the test if the repository reaches the store.
type spyStore struct {
	storage.PortfolioStore
	t *testing.T
}

func (s spyStore) touched() { s.t.Fatal("store must not be called when validation fails") }

func (s spyStore) ListByOwner(context.Context, string) ([]models.Portfolio, error) {
	s.touched()
	return nil, nil
}
func (s spyStore) FindOne(context.Context, string, string) (models.Portfolio, error) {
	s.touched()
	return models.Portfolio{}, nil
}
func (s spyStore) Insert(context.Context, models.Portfolio) (models.Portfolio, error) {
	s.touched()
	return models.Portfolio{}, nil
}
func (s spyStore) Update(context.Context, string, string, models.PortfolioChanges, int64) (models.Portfolio, error) {
	s.touched()
	return models.Portfolio{}, nil
}
func (s spyStore) Delete(context.Context, string, string) (int64, error) {
	s.touched()
	return 0, nil
}
func (s spyStore) HasHolding(context.Context, string, string, string) (bool, error) {
	s.touched()
	return false, nil
}
func (s spyStore) PushHolding(context.Context, string, string, models.Holding, int64) (models.Portfolio, error) {
	s.touched()
	return models.Portfolio{}, nil
}
func (s spyStore) SetHoldingQty(context.Context, string, string, string, models.Quantity, int64) (models.Portfolio, error) {
	s.touched()
	return models.Portfolio{}, nil
}
func (s spyStore) PullHolding(context.Context, string, string, string, int64) (models.Portfolio, error) {
	s.touched()
	return models.Portfolio{}, nil
}

func newTestRepository(t *testing.T) (*Repository, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	repo := NewRepository(memory.NewStore(), pub, logging.Discard())
	repo.now = tickingClock(time.UnixMilli(1_700_000_000_000))
	return repo, pub
}

// tickingClock advances one millisecond per call.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(time.Millisecond)
		return now
	}
}

func tickers(p models.Portfolio) []string {
	out := make([]string, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		out = append(out, h.Ticker)
	}
	return out
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	repo, pub := newTestRepository(t)

	p, err := repo.Create(ctx, ownerA, "Tech", "growth")
	require.NoError(t, err)

	assert.Len(t, p.ID, 24)
	assert.Equal(t, ownerA, p.OwnerID)
	assert.Equal(t, "Tech", p.Name)
	assert.Equal(t, "growth", p.Notes)
	assert.NotNil(t, p.Holdings)
	assert.Empty(t, p.Holdings)
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)
	assert.Equal(t, []string{events.PortfolioCreated}, pub.published())

	got, err := repo.GetOne(ctx, ownerA, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestCreateTrimsAndDefaultsNotes(t *testing.T) {
	repo, _ := newTestRepository(t)

	p, err := repo.Create(context.Background(), ownerA, "  Dividends ", "")
	require.NoError(t, err)
	assert.Equal(t, "Dividends", p.Name)
	assert.Equal(t, "", p.Notes)
}

func TestNameIsTrimmedBeforeLengthCheck(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	padded := " " + strings.Repeat("n", 100) + " "

	p, err := repo.Create(ctx, ownerA, padded, "")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("n", 100), p.Name)

	renamed := "\t" + strings.Repeat("m", 100)
	p, err = repo.Update(ctx, ownerA, p.ID, models.PortfolioChanges{Name: &renamed})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("m", 100), p.Name)
}

func TestCreateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name      string
		owner     string
		pname     string
		wantKind  error
		wantField string
	}{
		{"missing name", ownerA, "", validate.ErrMissingParameter, validate.FieldName},
		{"blank name", ownerA, "   ", validate.ErrInvalidParameter, validate.FieldName},
		{"long name", ownerA, strings.Repeat("x", 101), validate.ErrInvalidParameter, validate.FieldName},
		{"bad owner", "not-an-id", "Tech", validate.ErrInvalidParameter, validate.FieldOwnerID},
		{"missing owner", "", "Tech", validate.ErrMissingParameter, validate.FieldOwnerID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewRepository(spyStore{t: t}, nil, nil)
			_, err := repo.Create(context.Background(), tt.owner, tt.pname, "")

			var perr *validate.ParamError
			require.ErrorAs(t, err, &perr)
			assert.ErrorIs(t, err, tt.wantKind)
			assert.Equal(t, tt.wantField, perr.Field)
		})
	}
}

func TestValidationFailsBeforeStore(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(spyStore{t: t}, nil, nil)

	_, err := repo.ListByOwner(ctx, "bogus")
	assert.ErrorIs(t, err, validate.ErrInvalidParameter)

	_, err = repo.GetOne(ctx, ownerA, "bogus")
	assert.ErrorIs(t, err, validate.ErrInvalidParameter)

	_, err = repo.Delete(ctx, ownerA, "")
	assert.ErrorIs(t, err, validate.ErrMissingParameter)

	_, err = repo.HasHolding(ctx, ownerA, absent, "msft")
	assert.ErrorIs(t, err, validate.ErrInvalidParameter)

	_, err = repo.AddHolding(ctx, ownerA, absent, "TOOLONG", models.Q(1))
	assert.ErrorIs(t, err, validate.ErrInvalidParameter)

	_, err = repo.AddHolding(ctx, ownerA, absent, "MSFT", models.Q(0))
	assert.ErrorIs(t, err, validate.ErrInvalidParameter)

	_, err = repo.UpdateHolding(ctx, ownerA, absent, "xyz", models.Q(1))
	assert.ErrorIs(t, err, validate.ErrInvalidParameter)

	_, err = repo.UpdateHolding(ctx, ownerA, absent, absent, models.Q(-1))
	assert.ErrorIs(t, err, validate.ErrInvalidParameter)

	_, err = repo.DeleteHolding(ctx, ownerA, absent, "")
	assert.ErrorIs(t, err, validate.ErrMissingParameter)

	name := ""
	_, err = repo.Update(ctx, ownerA, absent, models.PortfolioChanges{Name: &name})
	assert.ErrorIs(t, err, validate.ErrMissingParameter)
}

func TestListByOwner(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	empty, err := repo.ListByOwner(ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	first, err := repo.Create(ctx, ownerA, "First", "")
	require.NoError(t, err)
	second, err := repo.Create(ctx, ownerA, "Second", "")
	require.NoError(t, err)
	_, err = repo.Create(ctx, ownerB, "Other", "")
	require.NoError(t, err)

	// touching first makes it the most recent
	_, err = repo.AddHolding(ctx, ownerA, first.ID, "MSFT", models.Q(1))
	require.NoError(t, err)

	list, err := repo.ListByOwner(ctx, ownerA)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	none, err := repo.ListByOwner(ctx, "65a1b2c3d4e5f6a7b8c9d0ff")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestHoldingLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, pub := newTestRepository(t)

	p, err := repo.Create(ctx, ownerA, "Tech", "growth")
	require.NoError(t, err)

	p, err = repo.AddHolding(ctx, ownerA, p.ID, "MSFT", models.Q(10))
	require.NoError(t, err)
	p, err = repo.AddHolding(ctx, ownerA, p.ID, "AAPL", models.Q(5))
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, tickers(p))
	assert.True(t, p.Holdings[0].Qty.Equal(models.Q(5)))
	assert.True(t, p.Holdings[1].Qty.Equal(models.Q(10)))

	has, err := repo.HasHolding(ctx, ownerA, p.ID, "MSFT")
	require.NoError(t, err)
	assert.True(t, has)
	has, err = repo.HasHolding(ctx, ownerA, p.ID, "GOOG")
	require.NoError(t, err)
	assert.False(t, has)

	before := p
	_, err = repo.AddHolding(ctx, ownerA, p.ID, "MSFT", models.Q(1))
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	after, err := repo.GetOne(ctx, ownerA, p.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	msft, ok := p.HoldingByTicker("MSFT")
	require.True(t, ok)
	aapl, ok := p.HoldingByTicker("AAPL")
	require.True(t, ok)

	p, err = repo.UpdateHolding(ctx, ownerA, p.ID, msft.ID, models.Q(999))
	require.NoError(t, err)
	updated, ok := p.HoldingByID(msft.ID)
	require.True(t, ok)
	assert.Equal(t, "MSFT", updated.Ticker)
	assert.True(t, updated.Qty.Equal(models.Q(999)))
	assert.Greater(t, updated.UpdatedAt, msft.UpdatedAt)
	assert.Greater(t, p.UpdatedAt, before.UpdatedAt)

	p, err = repo.UpdateHolding(ctx, ownerA, p.ID, msft.ID, models.Q(0))
	require.NoError(t, err)
	soldOut, _ := p.HoldingByID(msft.ID)
	assert.True(t, soldOut.Qty.IsZero())

	p, err = repo.DeleteHolding(ctx, ownerA, p.ID, aapl.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, tickers(p))
	kept, _ := p.HoldingByID(msft.ID)
	assert.Equal(t, soldOut, kept)

	assert.Equal(t, []string{
		events.PortfolioCreated,
		events.HoldingAdded,
		events.HoldingAdded,
		events.HoldingUpdated,
		events.HoldingUpdated,
		events.HoldingRemoved,
	}, pub.published())
}

func TestHoldingNotFound(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	p, err := repo.Create(ctx, ownerA, "Tech", "")
	require.NoError(t, err)

	_, err = repo.UpdateHolding(ctx, ownerA, p.ID, absent, models.Q(1))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = repo.DeleteHolding(ctx, ownerA, p.ID, absent)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = repo.AddHolding(ctx, ownerA, absent, "MSFT", models.Q(1))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	p, err := repo.Create(ctx, ownerA, "Tech", "")
	require.NoError(t, err)
	p, err = repo.AddHolding(ctx, ownerA, p.ID, "MSFT", models.Q(1))
	require.NoError(t, err)
	hid := p.Holdings[0].ID

	_, err = repo.GetOne(ctx, ownerB, p.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	name := "Stolen"
	_, err = repo.Update(ctx, ownerB, p.ID, models.PortfolioChanges{Name: &name})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = repo.AddHolding(ctx, ownerB, p.ID, "AAPL", models.Q(1))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = repo.UpdateHolding(ctx, ownerB, p.ID, hid, models.Q(5))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = repo.DeleteHolding(ctx, ownerB, p.ID, hid)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	n, err := repo.Delete(ctx, ownerB, p.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := repo.GetOne(ctx, ownerA, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestUpdatePartialFields(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	p, err := repo.Create(ctx, ownerA, "Tech", "growth")
	require.NoError(t, err)

	notes := "  value  "
	got, err := repo.Update(ctx, ownerA, p.ID, models.PortfolioChanges{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "Tech", got.Name)
	assert.Equal(t, "value", got.Notes)
	assert.Greater(t, got.UpdatedAt, p.UpdatedAt)
	assert.Equal(t, p.CreatedAt, got.CreatedAt)

	name := "Renamed"
	got, err = repo.Update(ctx, ownerA, p.ID, models.PortfolioChanges{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, "value", got.Notes)

	_, err = repo.Update(ctx, ownerA, absent, models.PortfolioChanges{Name: &name})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo, pub := newTestRepository(t)

	p, err := repo.Create(ctx, ownerA, "Tech", "")
	require.NoError(t, err)

	n, err := repo.Delete(ctx, ownerA, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Delete(ctx, ownerA, p.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = repo.GetOne(ctx, ownerA, p.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, []string{events.PortfolioCreated, events.PortfolioDeleted}, pub.published())
}

func TestTimestampsAdvanceWithFrozenClock(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	frozen := time.UnixMilli(1_700_000_000_000)
	repo.now = func() time.Time { return frozen }

	p, err := repo.Create(ctx, ownerA, "Tech", "")
	require.NoError(t, err)
	assert.Equal(t, frozen.UnixMilli(), p.UpdatedAt)

	last := p.UpdatedAt
	for _, ticker := range []string{"MSFT", "AAPL", "GOOG"} {
		p, err = repo.AddHolding(ctx, ownerA, p.ID, ticker, models.Q(1))
		require.NoError(t, err)
		assert.Greater(t, p.UpdatedAt, last)
		last = p.UpdatedAt
	}
}

func TestReadsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	p, err := repo.Create(ctx, ownerA, "Tech", "")
	require.NoError(t, err)
	_, err = repo.AddHolding(ctx, ownerA, p.ID, "MSFT", models.Q(3))
	require.NoError(t, err)

	a, err := repo.GetOne(ctx, ownerA, p.ID)
	require.NoError(t, err)
	b, err := repo.GetOne(ctx, ownerA, p.ID)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	la, err := repo.ListByOwner(ctx, ownerA)
	require.NoError(t, err)
	lb, err := repo.ListByOwner(ctx, ownerA)
	require.NoError(t, err)
	assert.Equal(t, la, lb)
}

func TestConcurrentAddHoldingSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	p, err := repo.Create(ctx, ownerA, "Tech", "")
	require.NoError(t, err)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AddHolding(ctx, ownerA, p.ID, "NVDA", models.Q(1))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, storage.ErrAlreadyExists):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)

	got, err := repo.GetOne(ctx, ownerA, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA"}, tickers(got))
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{failOn: events.PortfolioCreated}
	repo := NewRepository(memory.NewStore(), pub, logging.Discard())

	p, err := repo.Create(ctx, ownerA, "Tech", "")
	require.NoError(t, err)

	_, err = repo.GetOne(ctx, ownerA, p.ID)
	require.NoError(t, err)
}

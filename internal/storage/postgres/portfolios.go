package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/storage"
)

const portfolioColumns = `id, owner_id, name, notes, holdings, created_at, updated_at`

// ListByOwner returns the owner's portfolios, most recently updated first.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]models.Portfolio, error) {
	query := `
		SELECT ` + portfolioColumns + `
		FROM portfolios
		WHERE owner_id = $1
		ORDER BY updated_at DESC, id DESC`
	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}
	defer rows.Close()

	out := []models.Portfolio{}
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("scan portfolio: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}
	return out, nil
}

// FindOne fetches a portfolio by id, scoped to its owner.
func (s *Store) FindOne(ctx context.Context, ownerID, portfolioID string) (models.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolios WHERE id = $1 AND owner_id = $2`
	return scanPortfolio(s.pool.QueryRow(ctx, query, portfolioID, ownerID))
}

// Insert stores a new portfolio document.
func (s *Store) Insert(ctx context.Context, p models.Portfolio) (models.Portfolio, error) {
	if p.ID == "" {
		p.ID = models.NewID()
	}
	if p.Holdings == nil {
		p.Holdings = []models.Holding{}
	}
	query := `
		INSERT INTO portfolios (` + portfolioColumns + `)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
		RETURNING ` + portfolioColumns
	row := s.pool.QueryRow(ctx, query, p.ID, p.OwnerID, p.Name, p.Notes, p.Holdings, p.CreatedAt, p.UpdatedAt)
	return scanPortfolio(row)
}

// Update overwrites the supplied fields and always refreshes updated_at.
func (s *Store) Update(ctx context.Context, ownerID, portfolioID string, changes models.PortfolioChanges, at int64) (models.Portfolio, error) {
	query := `
		UPDATE portfolios SET
			name       = COALESCE($3::text, name),
			notes      = COALESCE($4::text, notes),
			updated_at = GREATEST($5::bigint, updated_at + 1)
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + portfolioColumns
	row := s.pool.QueryRow(ctx, query, portfolioID, ownerID, changes.Name, changes.Notes, at)
	return scanPortfolio(row)
}

// Delete removes the portfolio when it belongs to ownerID and reports how
// many rows went away.
func (s *Store) Delete(ctx context.Context, ownerID, portfolioID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM portfolios WHERE id = $1 AND owner_id = $2`, portfolioID, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete portfolio: %w", err)
	}
	return tag.RowsAffected(), nil
}

// HasHolding reports whether the portfolio holds ticker.
func (s *Store) HasHolding(ctx context.Context, ownerID, portfolioID, ticker string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM portfolios
			WHERE id = $1 AND owner_id = $2
			  AND holdings @> jsonb_build_array(jsonb_build_object('ticker', $3::text))
		)`
	var found bool
	if err := s.pool.QueryRow(ctx, query, portfolioID, ownerID, ticker).Scan(&found); err != nil {
		return false, fmt.Errorf("check holding: %w", err)
	}
	return found, nil
}

// PushHolding appends h and re-sorts holdings by ticker in one statement.
// The row is only matched while the ticker is absent, so two concurrent
// pushes of the same ticker cannot both succeed.
func (s *Store) PushHolding(ctx context.Context, ownerID, portfolioID string, h models.Holding, at int64) (models.Portfolio, error) {
	query := `
		UPDATE portfolios SET
			holdings = (
				SELECT jsonb_agg(e ORDER BY (e->>'ticker') COLLATE "C")
				FROM jsonb_array_elements(holdings || jsonb_build_array($3::jsonb)) AS e
			),
			updated_at = GREATEST($5::bigint, updated_at + 1)
		WHERE id = $1 AND owner_id = $2
		  AND NOT holdings @> jsonb_build_array(jsonb_build_object('ticker', $4::text))
		RETURNING ` + portfolioColumns
	p, err := scanPortfolio(s.pool.QueryRow(ctx, query, portfolioID, ownerID, h, h.Ticker, at))
	if !errors.Is(err, storage.ErrNotFound) {
		return p, err
	}

	// Nothing matched: tell a missing portfolio from a taken ticker.
	taken, err := s.HasHolding(ctx, ownerID, portfolioID, h.Ticker)
	if err != nil {
		return models.Portfolio{}, err
	}
	if taken {
		return models.Portfolio{}, storage.ErrAlreadyExists
	}
	return models.Portfolio{}, storage.ErrNotFound
}

// SetHoldingQty updates one embedded holding in place, keeping array order.
func (s *Store) SetHoldingQty(ctx context.Context, ownerID, portfolioID, holdingID string, qty models.Quantity, at int64) (models.Portfolio, error) {
	query := `
		UPDATE portfolios SET
			holdings = (
				SELECT jsonb_agg(
					CASE WHEN e->>'id' = $3::text
						THEN e || jsonb_build_object(
							'qty', ($4::text)::numeric,
							'updatedAt', GREATEST($5::bigint, (e->>'updatedAt')::bigint + 1))
						ELSE e
					END
					ORDER BY ord)
				FROM jsonb_array_elements(holdings) WITH ORDINALITY AS t(e, ord)
			),
			updated_at = GREATEST($5::bigint, updated_at + 1)
		WHERE id = $1 AND owner_id = $2
		  AND holdings @> jsonb_build_array(jsonb_build_object('id', $3::text))
		RETURNING ` + portfolioColumns
	return scanPortfolio(s.pool.QueryRow(ctx, query, portfolioID, ownerID, holdingID, qty.String(), at))
}

// PullHolding removes one embedded holding, leaving the rest untouched.
func (s *Store) PullHolding(ctx context.Context, ownerID, portfolioID, holdingID string, at int64) (models.Portfolio, error) {
	query := `
		UPDATE portfolios SET
			holdings = COALESCE((
				SELECT jsonb_agg(e ORDER BY ord)
				FROM jsonb_array_elements(holdings) WITH ORDINALITY AS t(e, ord)
				WHERE e->>'id' <> $3::text
			), '[]'::jsonb),
			updated_at = GREATEST($4::bigint, updated_at + 1)
		WHERE id = $1 AND owner_id = $2
		  AND holdings @> jsonb_build_array(jsonb_build_object('id', $3::text))
		RETURNING ` + portfolioColumns
	return scanPortfolio(s.pool.QueryRow(ctx, query, portfolioID, ownerID, holdingID, at))
}

func scanPortfolio(row pgx.Row) (models.Portfolio, error) {
	var p models.Portfolio
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Notes, &p.Holdings, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Portfolio{}, storage.ErrNotFound
		}
		return models.Portfolio{}, err
	}
	if p.Holdings == nil {
		p.Holdings = []models.Holding{}
	}
	return p, nil
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hongminglow/portfolio-be/internal/http/respond"
	"github.com/hongminglow/portfolio-be/internal/logging"
	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/models/dto"
	"github.com/hongminglow/portfolio-be/internal/storage"
	"github.com/hongminglow/portfolio-be/internal/validate"
)

const (
	portfolioNotFoundMsg = "portfolio not found"
	holdingNotFoundMsg   = "portfolio or holding not found"
)

// PortfolioService is the subset of portfolio.Repository the routes need.
type PortfolioService interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.Portfolio, error)
	GetOne(ctx context.Context, ownerID, portfolioID string) (models.Portfolio, error)
	Create(ctx context.Context, ownerID, name, notes string) (models.Portfolio, error)
	Update(ctx context.Context, ownerID, portfolioID string, changes models.PortfolioChanges) (models.Portfolio, error)
	Delete(ctx context.Context, ownerID, portfolioID string) (int64, error)
	HasHolding(ctx context.Context, ownerID, portfolioID, ticker string) (bool, error)
	AddHolding(ctx context.Context, ownerID, portfolioID, ticker string, qty models.Quantity) (models.Portfolio, error)
	UpdateHolding(ctx context.Context, ownerID, portfolioID, holdingID string, qty models.Quantity) (models.Portfolio, error)
	DeleteHolding(ctx context.Context, ownerID, portfolioID, holdingID string) (models.Portfolio, error)
}

// PortfolioHandler exposes portfolios and their holdings. Every route is
// scoped to the authenticated caller.
type PortfolioHandler struct {
	portfolios PortfolioService
	log        logging.Logger
}

func NewPortfolioHandler(portfolios PortfolioService, log logging.Logger) *PortfolioHandler {
	return &PortfolioHandler{portfolios: portfolios, log: log}
}

// Register attaches the routes to an authenticated mux.
func (h *PortfolioHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/portfolios", h.handleList)
	mux.HandleFunc("POST /api/portfolios", h.handleCreate)
	mux.HandleFunc("GET /api/portfolios/{id}", h.handleGet)
	mux.HandleFunc("PUT /api/portfolios/{id}", h.handleUpdate)
	mux.HandleFunc("DELETE /api/portfolios/{id}", h.handleDelete)
	mux.HandleFunc("POST /api/portfolios/{id}/holdings", h.handleAddHolding)
	mux.HandleFunc("PUT /api/portfolios/{id}/holdings/{holdingId}", h.handleUpdateHolding)
	mux.HandleFunc("DELETE /api/portfolios/{id}/holdings/{holdingId}", h.handleDeleteHolding)
}

func (h *PortfolioHandler) handleList(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	list, err := h.portfolios.ListByOwner(r.Context(), owner)
	if err != nil {
		writeError(w, r, h.log, err, portfolioNotFoundMsg)
		return
	}
	respond.JSON(w, http.StatusOK, "portfolios retrieved", list)
}

func (h *PortfolioHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	p, err := h.portfolios.GetOne(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.log, err, portfolioNotFoundMsg)
		return
	}
	respond.JSON(w, http.StatusOK, "portfolio retrieved", p)
}

func (h *PortfolioHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	var req dto.CreatePortfolioRequest
	if err := respond.Decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err, "")
		return
	}
	name, err := validate.NameValue(req.Name)
	if err != nil {
		writeError(w, r, h.log, err, "")
		return
	}
	notes, err := validate.NotesValue(req.Notes)
	if err != nil {
		writeError(w, r, h.log, err, "")
		return
	}

	p, err := h.portfolios.Create(r.Context(), owner, name, notes)
	if err != nil {
		writeError(w, r, h.log, err, portfolioNotFoundMsg)
		return
	}
	respond.JSON(w, http.StatusOK, "portfolio created", p)
}

func (h *PortfolioHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	portfolioID := r.PathValue("id")
	if err := validate.PortfolioID(portfolioID); err != nil {
		writeError(w, r, h.log, err, "")
		return
	}
	var req dto.UpdatePortfolioRequest
	if err := respond.Decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err, "")
		return
	}

	var changes models.PortfolioChanges
	if req.Name != nil {
		name, err := validate.NameValue(req.Name)
		if err != nil {
			writeError(w, r, h.log, err, "")
			return
		}
		changes.Name = &name
	}
	if req.Notes != nil {
		notes, err := validate.NotesValue(req.Notes)
		if err != nil {
			writeError(w, r, h.log, err, "")
			return
		}
		changes.Notes = &notes
	}

	p, err := h.portfolios.Update(r.Context(), owner, portfolioID, changes)
	if err != nil {
		writeError(w, r, h.log, err, portfolioNotFoundMsg)
		return
	}
	respond.JSON(w, http.StatusOK, "portfolio updated", p)
}

func (h *PortfolioHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	n, err := h.portfolios.Delete(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.log, err, portfolioNotFoundMsg)
		return
	}
	if n == 0 {
		respond.Error(w, http.StatusNotFound, portfolioNotFoundMsg)
		return
	}
	respond.JSON(w, http.StatusOK, "portfolio deleted", nil)
}

func (h *PortfolioHandler) handleAddHolding(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	portfolioID := r.PathValue("id")
	if err := validate.PortfolioID(portfolioID); err != nil {
		writeError(w, r, h.log, err, "")
		return
	}
	var req dto.AddHoldingRequest
	if err := respond.Decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err, "")
		return
	}
	ticker, err := validate.TickerValue(req.Ticker)
	if err != nil {
		writeError(w, r, h.log, err, "")
		return
	}
	qty, err := validate.QtyValue(req.Qty, false)
	if err != nil {
		writeError(w, r, h.log, err, "")
		return
	}

	exists, err := h.portfolios.HasHolding(r.Context(), owner, portfolioID, ticker)
	if err != nil {
		writeError(w, r, h.log, err, portfolioNotFoundMsg)
		return
	}
	if exists {
		duplicateHolding(w, ticker)
		return
	}

	p, err := h.portfolios.AddHolding(r.Context(), owner, portfolioID, ticker, qty)
	if errors.Is(err, storage.ErrAlreadyExists) {
		duplicateHolding(w, ticker)
		return
	}
	if err != nil {
		writeError(w, r, h.log, err, portfolioNotFoundMsg)
		return
	}
	respond.JSON(w, http.StatusOK, "holding added", p)
}

func duplicateHolding(w http.ResponseWriter, ticker string) {
	respond.Error(w, http.StatusForbidden, fmt.Sprintf("Holding %s already exists in portfolio.", ticker))
}

func (h *PortfolioHandler) handleUpdateHolding(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	portfolioID, holdingID := r.PathValue("id"), r.PathValue("holdingId")
	if err := validate.First(validate.PortfolioID(portfolioID), validate.HoldingID(holdingID)); err != nil {
		writeError(w, r, h.log, err, "")
		return
	}
	var req dto.UpdateHoldingRequest
	if err := respond.Decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err, "")
		return
	}
	qty, err := validate.QtyValue(req.Qty, true)
	if err != nil {
		writeError(w, r, h.log, err, "")
		return
	}

	p, err := h.portfolios.UpdateHolding(r.Context(), owner, portfolioID, holdingID, qty)
	if err != nil {
		writeError(w, r, h.log, err, holdingNotFoundMsg)
		return
	}
	respond.JSON(w, http.StatusOK, "holding updated", p)
}

func (h *PortfolioHandler) handleDeleteHolding(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	p, err := h.portfolios.DeleteHolding(r.Context(), owner, r.PathValue("id"), r.PathValue("holdingId"))
	if err != nil {
		writeError(w, r, h.log, err, holdingNotFoundMsg)
		return
	}
	respond.JSON(w, http.StatusOK, "holding removed", p)
}

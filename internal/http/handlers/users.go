package handlers

import (
	"net/http"

	"github.com/hongminglow/portfolio-be/internal/http/respond"
	"github.com/hongminglow/portfolio-be/internal/logging"
	"github.com/hongminglow/portfolio-be/internal/storage"
)

const badUserParamMsg = "missing or invalid user params"

// UserHandler serves the caller's own account. Requests naming any other
// user id are rejected.
type UserHandler struct {
	store storage.UserStore
	log   logging.Logger
}

func NewUserHandler(store storage.UserStore, log logging.Logger) *UserHandler {
	return &UserHandler{store: store, log: log}
}

// Register attaches the routes to an authenticated mux.
func (h *UserHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/users/{id}", h.handleGet)
	mux.HandleFunc("DELETE /api/users/{id}", h.handleDelete)
}

func (h *UserHandler) self(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := caller(w, r)
	if !ok {
		return "", false
	}
	if r.PathValue("id") != userID {
		respond.Error(w, http.StatusBadRequest, badUserParamMsg)
		return "", false
	}
	return userID, true
}

func (h *UserHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.self(w, r)
	if !ok {
		return
	}
	user, err := h.store.FindByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.log, err, "user not found")
		return
	}
	respond.JSON(w, http.StatusOK, "user retrieved", user)
}

func (h *UserHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.self(w, r)
	if !ok {
		return
	}
	n, err := h.store.DeleteUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.log, err, "user not found")
		return
	}
	if n == 0 {
		respond.Error(w, http.StatusNotFound, "user not found")
		return
	}
	respond.JSON(w, http.StatusOK, "user deleted", nil)
}

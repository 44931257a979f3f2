package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hongminglow/portfolio-be/internal/auth"
	"github.com/hongminglow/portfolio-be/internal/http/respond"
	"github.com/hongminglow/portfolio-be/internal/logging"
	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/models/dto"
	"github.com/hongminglow/portfolio-be/internal/storage"
	"github.com/hongminglow/portfolio-be/internal/validate"
)

// TokenIssuer signs tokens for authenticated users.
type TokenIssuer interface {
	Generate(user models.User) (string, error)
}

// AuthHandler owns the register/login endpoints.
type AuthHandler struct {
	store  storage.UserStore
	tokens TokenIssuer
	log    logging.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(store storage.UserStore, tokens TokenIssuer, log logging.Logger) *AuthHandler {
	return &AuthHandler{store: store, tokens: tokens, log: log}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := respond.Decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err, "")
		return
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.First(validate.Username(username), validate.Password(req.Password)); err != nil {
		writeError(w, r, h.log, err, "")
		return
	}
	if email != "" {
		if err := validate.Email(email); err != nil {
			writeError(w, r, h.log, err, "")
			return
		}
	}
	if req.Password != req.ConfirmPassword {
		respond.Error(w, http.StatusBadRequest, "passwords must match")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, h.log, err, "")
		return
	}

	now := models.NowMillis(time.Now())
	created, err := h.store.CreateUser(r.Context(), models.User{
		ID:           models.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		respond.Error(w, http.StatusConflict, "username or email already taken")
		return
	}
	if err != nil {
		writeError(w, r, h.log, err, "")
		return
	}

	h.issue(w, r, "user registered", created)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := respond.Decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err, "")
		return
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "identifier and password are required")
		return
	}

	user, err := h.store.FindByUsernameOrEmail(r.Context(), identifier)
	if errors.Is(err, storage.ErrNotFound) {
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		writeError(w, r, h.log, err, "")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.issue(w, r, "login successful", user)
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, message string, user models.User) {
	token, err := h.tokens.Generate(user)
	if err != nil {
		writeError(w, r, h.log, err, "")
		return
	}
	respond.JSON(w, http.StatusOK, message, dto.LoginResponse{Token: token, User: user})
}

package api

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/openpulpit/sermon-api/internal/api/shared"
	"github.com/openpulpit/sermon-api/internal/auth"
	"github.com/openpulpit/sermon-api/internal/config"
)

// AuthHandler handles admin authentication. There is a single shared admin
// credential: the configured bcrypt hash of the admin password.
type AuthHandler struct {
	authConfig       *config.AuthConfig
	tokens           auth.TokenService
	passwordVerifier auth.PasswordVerifier
	validator        *validator.Validate
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(
	authConfig *config.AuthConfig,
	tokens auth.TokenService,
	passwordVerifier auth.PasswordVerifier,
) *AuthHandler {
	return &AuthHandler{
		authConfig:       authConfig,
		tokens:           tokens,
		passwordVerifier: passwordVerifier,
		validator:        validator.New(),
	}
}

// Login handles the /api/auth/login endpoint: it exchanges the admin
// password for a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Password is required")
		return
	}

	if err := h.passwordVerifier.Compare(h.authConfig.AdminPasswordHash, req.Password); err != nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.tokens.GenerateToken(r.Context())
	if err != nil {
		slog.Error("failed to generate session token", "error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, LoginResponse{Token: token})
}

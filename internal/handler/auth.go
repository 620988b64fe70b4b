package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/flavorai/internal/model"
	"github.com/sakif/flavorai/internal/service"
)

// AuthHandler serves registration and login.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → create an account, respond with a token (201)
//   - HandleLogin    → check credentials, respond with a token (200)
//
// Field checks live in AuthService, not in validator tags, because the
// order of those checks decides which message the client sees.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type registerRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name" validate:"omitempty,max=100"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is the body of a successful register or login.
type authResponse struct {
	AccessToken string       `json:"access_token"`
	User        model.Author `json:"user"`
}

func newAuthResponse(res *service.AuthResult) authResponse {
	return authResponse{AccessToken: res.Token, User: res.User.Summary()}
}

// HandleRegister creates an account and logs it in.
//
// HTTP: POST /auth/register
// REQUEST BODY: {"email": "...", "password": "...", "name": "..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	res, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, newAuthResponse(res))
}

// HandleLogin verifies credentials and issues an access token.
//
// HTTP: POST /auth/login
// REQUEST BODY: {"email": "...", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newAuthResponse(res))
}

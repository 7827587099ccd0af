package server

import (
	"net/http"

	"github.com/jonathan/account-api/internal/i18n"
	"github.com/jonathan/account-api/internal/server/middleware"
	"github.com/jonathan/account-api/internal/types"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	userService *UserService
	jwtService  *JWTService
	respond     *responder
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(userService *UserService, jwtService *JWTService, respond *responder) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtService:  jwtService,
		respond:     respond,
	}
}

// Register handles user registration requests.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if err := h.respond.decode(w, r, &req); err != nil {
		h.respond.writeError(w, r, err)
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		h.respond.writeError(w, r, err)
		return
	}

	h.issueToken(w, r, http.StatusCreated, user)
}

// Login handles user login requests.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := h.respond.decode(w, r, &req); err != nil {
		h.respond.writeError(w, r, err)
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		h.respond.writeError(w, r, err)
		return
	}

	h.issueToken(w, r, http.StatusOK, user)
}

// ChangePassword handles password changes for the authenticated user.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		h.respond.writeError(w, r, &ErrUnauthorized{})
		return
	}

	var req types.ChangePasswordRequest
	if err := h.respond.decode(w, r, &req); err != nil {
		h.respond.writeError(w, r, err)
		return
	}

	if err := h.userService.ChangePassword(r.Context(), userID, &req); err != nil {
		h.respond.writeError(w, r, err)
		return
	}

	h.respond.writeJSON(w, http.StatusOK, types.MessageResponse{
		Message: h.respond.translator.TranslateContext(r.Context(), i18n.KeyPasswordUpdated),
	})
}

func (h *AuthHandler) issueToken(w http.ResponseWriter, r *http.Request, status int, user *types.User) {
	token, err := h.jwtService.GenerateToken(user.ID)
	if err != nil {
		h.respond.writeError(w, r, err)
		return
	}

	h.respond.writeJSON(w, status, types.AuthResponse{
		User:  user,
		Token: token,
	})
}

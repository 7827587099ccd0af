package server

import (
	"net/http"

	"github.com/jonathan/account-api/internal/server/middleware"
	"github.com/jonathan/account-api/internal/types"
)

// ---------------------------------------------------------------------
// Current User Handlers
// ---------------------------------------------------------------------

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.respond.writeError(w, r, &ErrUnauthorized{})
		return
	}

	user, err := s.userService.GetMe(r.Context(), userID)
	if err != nil {
		s.respond.writeError(w, r, err)
		return
	}

	s.respond.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.respond.writeError(w, r, &ErrUnauthorized{})
		return
	}

	var req types.UpdateMeRequest
	if err := s.respond.decode(w, r, &req); err != nil {
		s.respond.writeError(w, r, err)
		return
	}

	user, err := s.userService.UpdateMe(r.Context(), userID, &req)
	if err != nil {
		s.respond.writeError(w, r, err)
		return
	}

	s.respond.writeJSON(w, http.StatusOK, user)
}

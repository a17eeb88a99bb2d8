// Package handlers implements the dashboard's HTTP endpoints: the login
// flow and the filter/aggregation/export surface.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sespe/emendas-bi/internal/api/middleware"
	"github.com/sespe/emendas-bi/internal/auth"
)

// AuthHandler handles login, logout and the current-user endpoint.
type AuthHandler struct {
	store    *auth.Store
	sessions *auth.Sessions
	log      zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(store *auth.Store, sessions *auth.Sessions, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{store: store, sessions: sessions, log: log}
}

// invalidCredentials is the single rejection message for every login
// failure; unknown users and wrong passwords are indistinguishable so
// usernames cannot be enumerated.
const invalidCredentials = "Invalid username or password"

// Login handles POST /api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		middleware.WriteError(w, http.StatusUnauthorized, invalidCredentials)
		return
	}

	if !h.store.Authenticate(req.Username, req.Password) {
		h.log.Info().Str("username", req.Username).Msg("Login rejected")
		middleware.WriteError(w, http.StatusUnauthorized, invalidCredentials)
		return
	}

	sess := middleware.SessionFromContext(r.Context())
	info := h.store.GetInfo(req.Username)
	h.sessions.Login(sess, req.Username, info)

	h.log.Info().Str("username", req.Username).Msg("Login succeeded")
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": info})
}

// Logout handles POST /api/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess != nil {
		h.sessions.Logout(sess)
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	sess.Lock()
	info := sess.UserInfo
	sess.Unlock()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": info})
}

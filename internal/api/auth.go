package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"medeasy/pos/domain"
	"medeasy/pos/internal/auth"
	"medeasy/pos/internal/store"
)

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		principal, err := h.tokens.Parse(strings.TrimSpace(header[len("Bearer "):]))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		// Roles in the token may be stale; the store is authoritative.
		roles, err := h.store.Roles(r.Context(), principal.UserID)
		if err != nil {
			h.respondFailure(w, r, err)
			return
		}
		principal.Roles = roles
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
	})
}

func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, allowed ...domain.Role) bool {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing role")
		return false
	}
	if principal.HasRole(allowed...) {
		return true
	}
	respondError(w, http.StatusForbidden, "insufficient permissions")
	return false
}

// currentUser is the authenticated user id; the auth middleware guarantees one.
func (h *Handler) currentUser(r *http.Request) string {
	id, _ := h.identity.CurrentUserID(r.Context())
	return id
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" || strings.TrimSpace(req.FullName) == "" {
		respondError(w, http.StatusBadRequest, "email, password and full_name are required")
		return
	}
	if len(req.Password) < 6 {
		respondError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}
	user := domain.User{Email: req.Email, FullName: strings.TrimSpace(req.FullName), Password: hashed}
	if err := h.store.CreateUser(r.Context(), &user); err != nil {
		h.respondFailure(w, r, err)
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Roles)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}
	h.logger.InfoContext(r.Context(), "user registered", "user_id", user.ID, "roles", user.Roles)
	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.store.UserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Roles)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: *user})
}

func (h *Handler) setRoles(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	var payload struct {
		Roles []domain.Role `json:"roles"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.store.SetRoles(r.Context(), id, payload.Roles); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	user, err := h.store.UserByID(r.Context(), id)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

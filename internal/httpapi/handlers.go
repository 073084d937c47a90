package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"userpanel/internal/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	resp := map[string]any{
		"status":    "healthy",
		"uptime":    time.Since(s.started).Seconds(),
		"timestamp": s.now().Format(time.RFC3339Nano),
		"environment": map[string]bool{
			"database_url":   s.cfg.DatabaseURL != "",
			"session_secret": s.cfg.SessionSecret != "",
			"portal_url":     s.cfg.PortalURL != "",
		},
		"database": "connected",
	}

	if s.store == nil {
		resp["status"] = "unhealthy"
		resp["database"] = "not configured"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		resp["status"] = "unhealthy"
		resp["database"] = "error: " + err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	IsAdmin  bool   `json:"is_admin"`
}

type updateUserRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Name     *string `json:"name"`
	IsAdmin  *bool   `json:"is_admin"`
	IsActive *bool   `json:"is_active"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := s.store.ListUsers(r.Context())
		if err != nil {
			writeStoreError(w, r, "users", err)
			return
		}
		writeJSON(w, http.StatusOK, listResponse{Success: true, Data: users, Total: len(users)})

	case http.MethodPost:
		s.createUser(w, r)

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	name := strings.TrimSpace(req.Name)
	if username == "" || req.Password == "" || name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success":  false,
			"code":     "missing_fields",
			"error":    "missing required fields",
			"required": []string{"username", "password", "name"},
		})
		return
	}
	if msg := validatePassword(req.Password); msg != "" {
		writeError(w, http.StatusBadRequest, "invalid_password", msg)
		return
	}

	if _, err := s.store.GetUserByUsername(r.Context(), username); err == nil {
		writeError(w, http.StatusConflict, "conflict", "username already exists")
		return
	}

	hash, err := s.hashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to hash password")
		return
	}

	created, err := s.store.CreateUser(r.Context(), model.User{
		Name:         name,
		Username:     username,
		PasswordHash: hash,
		IsAdmin:      req.IsAdmin,
		IsActive:     true,
	})
	if err != nil {
		writeStoreError(w, r, "user", err)
		return
	}

	log.WithFields(log.Fields{"user_id": created.ID, "by": sessionSubjectFromContext(r.Context())}).Info("user created")
	writeJSON(w, http.StatusCreated, itemResponse{Success: true, Message: "User created successfully", Data: created})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "user_id_required", "user ID is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		u, err := s.store.GetUserByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, "user", err)
			return
		}
		writeJSON(w, http.StatusOK, itemResponse{Success: true, Data: u})

	case http.MethodPut:
		s.updateUser(w, r, id)

	case http.MethodDelete:
		if err := s.store.DeleteUser(r.Context(), id); err != nil {
			writeStoreError(w, r, "user", err)
			return
		}
		log.WithFields(log.Fields{"user_id": id, "by": sessionSubjectFromContext(r.Context())}).Info("user deleted")
		writeJSON(w, http.StatusOK, itemResponse{Success: true, Message: "User removed successfully"})

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request, id string) {
	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var patch model.UserPatch

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "invalid_name", "name must not be empty")
			return
		}
		patch.Name = &name
	}

	if req.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*req.Username))
		if username == "" {
			writeError(w, http.StatusBadRequest, "invalid_username", "username must not be empty")
			return
		}
		if other, err := s.store.GetUserByUsername(r.Context(), username); err == nil && other.ID != id {
			writeError(w, http.StatusConflict, "conflict", "username already exists")
			return
		}
		patch.Username = &username
	}

	// A blank password keeps the stored hash.
	if req.Password != nil && strings.TrimSpace(*req.Password) != "" {
		if msg := validatePassword(*req.Password); msg != "" {
			writeError(w, http.StatusBadRequest, "invalid_password", msg)
			return
		}
		hash, err := s.hashPassword(*req.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal", "failed to hash password")
			return
		}
		patch.PasswordHash = &hash
	}

	patch.IsAdmin = req.IsAdmin
	patch.IsActive = req.IsActive

	// Nothing to write; answer with the record as stored.
	if patch.Empty() {
		current, err := s.store.GetUserByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, "user", err)
			return
		}
		writeJSON(w, http.StatusOK, itemResponse{Success: true, Message: "User updated successfully", Data: current})
		return
	}

	updated, err := s.store.UpdateUser(r.Context(), id, patch)
	if err != nil {
		writeStoreError(w, r, "user", err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse{Success: true, Message: "User updated successfully", Data: updated})
}

// handleUserToggleStatus reads is_active and writes its negation. The two store
// calls are not atomic; concurrent toggles on one record can lose an update.
func (s *Server) handleUserToggleStatus(w http.ResponseWriter, r *http.Request) {
	s.toggleUserFlag(w, r, func(u *model.User) (model.UserPatch, string) {
		next := !u.IsActive
		msg := "User deactivated successfully"
		if next {
			msg = "User activated successfully"
		}
		return model.UserPatch{IsActive: &next}, msg
	})
}

func (s *Server) handleUserToggleAdmin(w http.ResponseWriter, r *http.Request) {
	s.toggleUserFlag(w, r, func(u *model.User) (model.UserPatch, string) {
		next := !u.IsAdmin
		msg := "Administrator access revoked"
		if next {
			msg = "Administrator access granted"
		}
		return model.UserPatch{IsAdmin: &next}, msg
	})
}

func (s *Server) toggleUserFlag(w http.ResponseWriter, r *http.Request, flip func(*model.User) (model.UserPatch, string)) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w)
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	current, err := s.store.GetUserByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "user", err)
		return
	}

	patch, msg := flip(current)
	updated, err := s.store.UpdateUser(r.Context(), id, patch)
	if err != nil {
		writeStoreError(w, r, "user", err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse{Success: true, Message: msg, Data: updated})
}

func (s *Server) handleUserResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w)
		return
	}

	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := validatePassword(req.Password); msg != "" {
		writeError(w, http.StatusBadRequest, "invalid_password", msg)
		return
	}

	hash, err := s.hashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to hash password")
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	updated, err := s.store.UpdateUser(r.Context(), id, model.UserPatch{PasswordHash: &hash})
	if err != nil {
		writeStoreError(w, r, "user", err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse{Success: true, Message: "Password reset successfully", Data: updated})
}

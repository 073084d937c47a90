package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"userpanel/internal/model"
	"userpanel/internal/store"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// parseLimit falls back to the default for missing or unparsable values and caps the rest.
func parseLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}

type createLoginAttemptRequest struct {
	Username      string  `json:"username"`
	IPAddress     string  `json:"ip_address"`
	DeviceToken   string  `json:"device_token"`
	Success       bool    `json:"success"`
	FailureReason *string `json:"failure_reason"`
}

func (s *Server) handleLoginAttempts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		attempts, err := s.store.ListLoginAttempts(r.Context(), store.LoginAttemptFilter{
			Username: strings.TrimSpace(r.URL.Query().Get("username")),
			Limit:    parseLimit(r),
		})
		if err != nil {
			writeStoreError(w, r, "login attempts", err)
			return
		}
		writeJSON(w, http.StatusOK, listResponse{Success: true, Data: attempts, Total: len(attempts)})

	case http.MethodPost:
		var req createLoginAttemptRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		username := strings.TrimSpace(req.Username)
		if username == "" {
			writeError(w, http.StatusBadRequest, "username_required", "username is required")
			return
		}
		created, err := s.store.CreateLoginAttempt(r.Context(), model.LoginAttempt{
			Username:      username,
			IPAddress:     strings.TrimSpace(req.IPAddress),
			DeviceToken:   strings.TrimSpace(req.DeviceToken),
			Success:       req.Success,
			FailureReason: req.FailureReason,
		})
		if err != nil {
			writeStoreError(w, r, "login attempt", err)
			return
		}
		writeJSON(w, http.StatusCreated, itemResponse{Success: true, Message: "Login attempt recorded", Data: created})

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	devices, err := s.store.ListDevices(r.Context(), store.DeviceFilter{
		Username: strings.TrimSpace(r.URL.Query().Get("username")),
	})
	if err != nil {
		writeStoreError(w, r, "devices", err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Data: devices, Total: len(devices)})
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if err := s.store.DeleteDevice(r.Context(), id); err != nil {
		writeStoreError(w, r, "device", err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse{Success: true, Message: "Device removed successfully"})
}

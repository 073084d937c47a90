package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"userpanel/internal/model"
	"userpanel/internal/store"
)

type createAlertRequest struct {
	Type      model.AlertType `json:"alert_type"`
	Severity  model.Severity  `json:"severity"`
	IPAddress string          `json:"ip_address"`
	Username  string          `json:"username"`
	Message   string          `json:"message"`
	Details   map[string]any  `json:"details"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
		alerts, err := s.store.ListAlerts(r.Context(), store.AlertFilter{
			UnreadOnly: unread,
			Limit:      parseLimit(r),
		})
		if err != nil {
			writeStoreError(w, r, "alerts", err)
			return
		}
		writeJSON(w, http.StatusOK, listResponse{Success: true, Data: alerts, Total: len(alerts)})

	case http.MethodPost:
		var req createAlertRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if !req.Type.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_alert_type", "alert_type must be one of unauthorized_access, after_hours_access, repeated_failure, suspicious_activity")
			return
		}
		if req.Severity == "" {
			req.Severity = model.SeverityMedium
		}
		if !req.Severity.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_severity", "severity must be one of low, medium, high, critical")
			return
		}

		created, err := s.store.CreateAlert(r.Context(), model.SecurityAlert{
			Type:      req.Type,
			Severity:  req.Severity,
			IPAddress: strings.TrimSpace(req.IPAddress),
			Username:  strings.TrimSpace(req.Username),
			Message:   req.Message,
			Details:   req.Details,
		})
		if err != nil {
			writeStoreError(w, r, "alert", err)
			return
		}
		writeJSON(w, http.StatusCreated, itemResponse{Success: true, Message: "Alert created", Data: created})

	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}

	if err := s.store.DeleteAlert(r.Context(), strings.TrimSpace(r.PathValue("id"))); err != nil {
		writeStoreError(w, r, "alert", err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse{Success: true, Message: "Alert dismissed"})
}

func (s *Server) handleAlertMarkRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w)
		return
	}

	updated, err := s.store.MarkAlertRead(r.Context(), strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		writeStoreError(w, r, "alert", err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse{Success: true, Message: "Alert marked as read", Data: updated})
}

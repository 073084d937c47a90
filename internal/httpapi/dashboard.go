package httpapi

import (
	"net/http"
	"time"

	"userpanel/internal/model"
	"userpanel/internal/store"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeStoreError(w, r, "dashboard", err)
		return
	}

	attempts, err := s.store.ListLoginAttempts(r.Context(), store.LoginAttemptFilter{
		Since: s.now().Add(-24 * time.Hour),
	})
	if err != nil {
		writeStoreError(w, r, "dashboard", err)
		return
	}

	unread, err := s.store.ListAlerts(r.Context(), store.AlertFilter{UnreadOnly: true})
	if err != nil {
		writeStoreError(w, r, "dashboard", err)
		return
	}

	writeJSON(w, http.StatusOK, itemResponse{Success: true, Data: computeStats(users, attempts, len(unread))})
}

func computeStats(users []model.User, attempts []model.LoginAttempt, unreadAlerts int) model.DashboardStats {
	st := model.DashboardStats{
		TotalUsers:       len(users),
		LoginAttempts24h: len(attempts),
		UnreadAlerts:     unreadAlerts,
	}
	for _, u := range users {
		if u.IsActive {
			st.ActiveUsers++
		} else {
			st.InactiveUsers++
		}
		if u.IsAdmin {
			st.AdminUsers++
		}
	}
	for _, a := range attempts {
		if a.Success {
			st.SuccessfulLogins24h++
		} else {
			st.FailedLogins24h++
		}
	}
	return st
}

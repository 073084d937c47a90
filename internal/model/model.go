package model

import "time"

type AlertType string

const (
	AlertUnauthorizedAccess AlertType = "unauthorized_access"
	AlertAfterHoursAccess   AlertType = "after_hours_access"
	AlertRepeatedFailure    AlertType = "repeated_failure"
	AlertSuspiciousActivity AlertType = "suspicious_activity"
)

func (t AlertType) Valid() bool {
	switch t {
	case AlertUnauthorizedAccess, AlertAfterHoursAccess, AlertRepeatedFailure, AlertSuspiciousActivity:
		return true
	}
	return false
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// LoginAttempt is append-only; nothing in this system updates or deletes one.
type LoginAttempt struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	IPAddress     string    `json:"ip_address,omitempty"`
	DeviceToken   string    `json:"device_token,omitempty"`
	Success       bool      `json:"success"`
	FailureReason *string   `json:"failure_reason"`
	Timestamp     time.Time `json:"timestamp"`
}

type AuthorizedDevice struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	IPAddress  string    `json:"ip_address,omitempty"`
	DeviceName string    `json:"device_name,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type SecurityAlert struct {
	ID        string         `json:"id"`
	Type      AlertType      `json:"alert_type"`
	Severity  Severity       `json:"severity"`
	IPAddress string         `json:"ip_address,omitempty"`
	Username  string         `json:"username,omitempty"`
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
	ReadAt    *time.Time     `json:"read_at"`
}

type DashboardStats struct {
	TotalUsers          int `json:"total_users"`
	ActiveUsers         int `json:"active_users"`
	InactiveUsers       int `json:"inactive_users"`
	AdminUsers          int `json:"admin_users"`
	LoginAttempts24h    int `json:"login_attempts_24h"`
	SuccessfulLogins24h int `json:"successful_logins_24h"`
	FailedLogins24h     int `json:"failed_logins_24h"`
	UnreadAlerts        int `json:"unread_alerts"`
}

package render

import (
	"fmt"
	"strings"
	"time"

	"userpanel/internal/model"
)

// View is a table description. Cells hold raw text; escaping happens at the
// surface that displays them.
type View struct {
	Title   string
	Columns []string
	Rows    []Row
	// Empty is shown instead of the table when Rows is empty.
	Empty string
}

type Row struct {
	ID    string
	Cells []string
	// Pending marks rows that only exist locally until the proxy confirms them.
	Pending bool
}

// FormatDate renders dd/mm/yyyy in local time, or "-" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("02/01/2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("02/01/2006 15:04")
}

func yesNo(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func UsersView(users []model.User, f UserFilter) View {
	v := View{
		Title:   "Users",
		Columns: []string{"Name", "Username", "Status", "Role", "Created"},
		Empty:   "No users registered",
	}
	if f.active() {
		v.Empty = "No users found"
	}

	for _, u := range FilterUsers(users, f) {
		v.Rows = append(v.Rows, Row{
			ID: u.ID,
			Cells: []string{
				u.Name,
				u.Username,
				yesNo(u.IsActive, "Active", "Inactive"),
				yesNo(u.IsAdmin, "Admin", "User"),
				FormatDate(u.CreatedAt),
			},
			Pending: isTemp(u.ID),
		})
	}
	return v
}

// UserDetail lists one record as label/value pairs.
func UserDetail(u model.User) View {
	return View{
		Title:   u.Name,
		Columns: []string{"Field", "Value"},
		Rows: []Row{
			{ID: u.ID, Cells: []string{"Full name", u.Name}},
			{ID: u.ID, Cells: []string{"Username", u.Username}},
			{ID: u.ID, Cells: []string{"Status", yesNo(u.IsActive, "Active", "Inactive")}},
			{ID: u.ID, Cells: []string{"Role", yesNo(u.IsAdmin, "Administrator", "User")}},
			{ID: u.ID, Cells: []string{"Created", FormatDate(u.CreatedAt)}},
			{ID: u.ID, Cells: []string{"Updated", FormatDate(u.UpdatedAt)}},
		},
	}
}

func AttemptsView(attempts []model.LoginAttempt) View {
	v := View{
		Title:   "Login attempts",
		Columns: []string{"When", "Username", "IP", "Result", "Reason"},
		Empty:   "No login attempts",
	}
	for _, a := range attempts {
		reason := "-"
		if a.FailureReason != nil && *a.FailureReason != "" {
			reason = *a.FailureReason
		}
		v.Rows = append(v.Rows, Row{
			ID: a.ID,
			Cells: []string{
				formatDateTime(a.Timestamp),
				a.Username,
				orDash(a.IPAddress),
				yesNo(a.Success, "Success", "Failed"),
				reason,
			},
		})
	}
	return v
}

func DevicesView(devices []model.AuthorizedDevice) View {
	v := View{
		Title:   "Authorized devices",
		Columns: []string{"Username", "Device", "IP", "User agent", "Authorized"},
		Empty:   "No authorized devices",
	}
	for _, d := range devices {
		v.Rows = append(v.Rows, Row{
			ID: d.ID,
			Cells: []string{
				d.Username,
				orDash(d.DeviceName),
				orDash(d.IPAddress),
				orDash(d.UserAgent),
				FormatDate(d.Timestamp),
			},
		})
	}
	return v
}

func AlertsView(alerts []model.SecurityAlert) View {
	v := View{
		Title:   "Security alerts",
		Columns: []string{"When", "Type", "Severity", "Username", "Message", "Read"},
		Empty:   "No security alerts",
	}
	for _, a := range alerts {
		v.Rows = append(v.Rows, Row{
			ID: a.ID,
			Cells: []string{
				formatDateTime(a.CreatedAt),
				string(a.Type),
				string(a.Severity),
				orDash(a.Username),
				a.Message,
				yesNo(a.IsRead, "yes", "no"),
			},
		})
	}
	return v
}

func DashboardView(s model.DashboardStats) View {
	return View{
		Title:   "Dashboard",
		Columns: []string{"Metric", "Value"},
		Rows: []Row{
			{Cells: []string{"Total users", fmt.Sprint(s.TotalUsers)}},
			{Cells: []string{"Active users", fmt.Sprint(s.ActiveUsers)}},
			{Cells: []string{"Inactive users", fmt.Sprint(s.InactiveUsers)}},
			{Cells: []string{"Administrators", fmt.Sprint(s.AdminUsers)}},
			{Cells: []string{"Login attempts (24h)", fmt.Sprint(s.LoginAttempts24h)}},
			{Cells: []string{"Successful logins (24h)", fmt.Sprint(s.SuccessfulLogins24h)}},
			{Cells: []string{"Failed logins (24h)", fmt.Sprint(s.FailedLogins24h)}},
			{Cells: []string{"Unread alerts", fmt.Sprint(s.UnreadAlerts)}},
		},
	}
}

func isTemp(id string) bool {
	return strings.HasPrefix(id, "tmp-")
}

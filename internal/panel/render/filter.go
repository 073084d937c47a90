// Package render turns panel collections into display-ready views. Everything
// here is a pure function of its inputs.
package render

import (
	"sort"
	"strings"

	"userpanel/internal/model"
)

type StatusFilter string

const (
	StatusAll      StatusFilter = "all"
	StatusActive   StatusFilter = "active"
	StatusInactive StatusFilter = "inactive"
)

type RoleFilter string

const (
	RoleAll   RoleFilter = "all"
	RoleAdmin RoleFilter = "admin"
	RoleUser  RoleFilter = "user"
)

// UserFilter matches Search as a case-insensitive substring of name or username.
// Empty Status and Role behave like "all".
type UserFilter struct {
	Search     string
	Status     StatusFilter
	Role       RoleFilter
	SortByName bool
}

func (f UserFilter) active() bool {
	return strings.TrimSpace(f.Search) != "" ||
		(f.Status != "" && f.Status != StatusAll) ||
		(f.Role != "" && f.Role != RoleAll)
}

func FilterUsers(users []model.User, f UserFilter) []model.User {
	term := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]model.User, 0, len(users))
	for _, u := range users {
		if term != "" &&
			!strings.Contains(strings.ToLower(u.Name), term) &&
			!strings.Contains(strings.ToLower(u.Username), term) {
			continue
		}
		switch f.Status {
		case StatusActive:
			if !u.IsActive {
				continue
			}
		case StatusInactive:
			if u.IsActive {
				continue
			}
		}
		switch f.Role {
		case RoleAdmin:
			if !u.IsAdmin {
				continue
			}
		case RoleUser:
			if u.IsAdmin {
				continue
			}
		}
		out = append(out, u)
	}

	if f.SortByName {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	}
	return out
}

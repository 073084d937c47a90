package model

import "time"

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPatch carries the fields of a partial user update. Nil means "leave as is".
type UserPatch struct {
	Name         *string
	Username     *string
	PasswordHash *string
	IsAdmin      *bool
	IsActive     *bool
}

func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Username == nil && p.PasswordHash == nil && p.IsAdmin == nil && p.IsActive == nil
}

// Apply returns u with the non-nil patch fields written over it.
func (p UserPatch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.IsAdmin != nil {
		u.IsAdmin = *p.IsAdmin
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	return u
}

package panel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"userpanel/internal/model"
	"userpanel/internal/panel/apiclient"
	"userpanel/internal/panel/syncer"
)

const (
	minPasswordLength = 6
	// bcrypt rejects longer input.
	maxPasswordBytes = 72
)

func userID(id string) func(model.User) bool {
	return func(u model.User) bool { return u.ID == id }
}

// checkUsername fails when another record already holds username. It only sees
// the local collection, so the proxy's 409 remains the real guard.
func (p *Panel) checkUsername(username, exceptID string) error {
	_, taken := p.Users.Find(func(u model.User) bool {
		return u.ID != exceptID && strings.EqualFold(u.Username, username)
	})
	if taken {
		return fmt.Errorf("%w: %s", ErrDuplicateUsername, username)
	}
	return nil
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	if len(pw) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, maxPasswordBytes)
	}
	return nil
}

// CreateUser inserts a provisional record under a temporary id and returns that
// id. The record is swapped for the server's once the proxy confirms it.
func (p *Panel) CreateUser(ctx context.Context, in apiclient.NewUser) (string, <-chan error, error) {
	if err := p.authorized(); err != nil {
		return "", nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	if in.Name == "" || in.Username == "" || in.Password == "" {
		return "", nil, fmt.Errorf("%w: name, username and password are required", ErrValidation)
	}
	if err := validatePassword(in.Password); err != nil {
		return "", nil, err
	}
	if err := p.checkUsername(in.Username, ""); err != nil {
		return "", nil, err
	}

	tmp := syncer.TempID()
	provisional := model.User{
		ID:        tmp,
		Name:      in.Name,
		Username:  in.Username,
		IsAdmin:   in.IsAdmin,
		IsActive:  true,
		CreatedAt: time.Now(),
	}

	done := p.Users.Submit(ctx, syncer.Command[model.User]{
		Name:    "create user " + in.Username,
		Success: "User created successfully",
		Apply: func(users []model.User) []model.User {
			return append([]model.User{provisional}, users...)
		},
		Revert: func(users []model.User) []model.User {
			return removeWhere(users, userID(tmp))
		},
		Remote: func(ctx context.Context) (model.User, error) {
			return p.api.CreateUser(ctx, in)
		},
		Confirm: func(users []model.User, created model.User) []model.User {
			if _, ok := find(users, userID(created.ID)); ok {
				return removeWhere(users, userID(tmp))
			}
			return replaceWhere(users, userID(tmp), created)
		},
	})
	return tmp, done, nil
}

// UpdateUser applies the non-nil fields of in. A blank password is dropped so
// the stored hash stays as it is.
func (p *Panel) UpdateUser(ctx context.Context, id string, in apiclient.UserUpdate) (<-chan error, error) {
	if err := p.authorized(); err != nil {
		return nil, err
	}

	prev, ok := p.Users.Find(userID(id))
	if !ok {
		return nil, fmt.Errorf("%w: user %s", apiclient.ErrNotFound, id)
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
		}
		in.Name = &name
	}
	if in.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*in.Username))
		if username == "" {
			return nil, fmt.Errorf("%w: username must not be empty", ErrValidation)
		}
		if err := p.checkUsername(username, id); err != nil {
			return nil, err
		}
		in.Username = &username
	}
	if in.Password != nil {
		if strings.TrimSpace(*in.Password) == "" {
			in.Password = nil
		} else if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
	}

	next := prev
	if in.Name != nil {
		next.Name = *in.Name
	}
	if in.Username != nil {
		next.Username = *in.Username
	}
	if in.IsAdmin != nil {
		next.IsAdmin = *in.IsAdmin
	}
	if in.IsActive != nil {
		next.IsActive = *in.IsActive
	}

	return p.Users.Submit(ctx, syncer.Command[model.User]{
		Name:    "update user " + prev.Username,
		Success: "User updated successfully",
		Apply: func(users []model.User) []model.User {
			return replaceWhere(users, userID(id), next)
		},
		Revert: func(users []model.User) []model.User {
			return replaceWhere(users, userID(id), prev)
		},
		Remote: func(ctx context.Context) (model.User, error) {
			return p.api.UpdateUser(ctx, id, in)
		},
		Confirm: confirmUser,
	}), nil
}

func (p *Panel) ToggleStatus(ctx context.Context, id string) (<-chan error, error) {
	return p.toggle(ctx, id, "status", func(u *model.User) string {
		u.IsActive = !u.IsActive
		if u.IsActive {
			return "User activated successfully"
		}
		return "User deactivated successfully"
	}, p.api.ToggleStatus)
}

func (p *Panel) ToggleAdmin(ctx context.Context, id string) (<-chan error, error) {
	return p.toggle(ctx, id, "admin", func(u *model.User) string {
		u.IsAdmin = !u.IsAdmin
		if u.IsAdmin {
			return "Administrator access granted"
		}
		return "Administrator access revoked"
	}, p.api.ToggleAdmin)
}

func (p *Panel) toggle(ctx context.Context, id, what string, flip func(*model.User) string, remote func(context.Context, string) (model.User, error)) (<-chan error, error) {
	if err := p.authorized(); err != nil {
		return nil, err
	}

	prev, ok := p.Users.Find(userID(id))
	if !ok {
		return nil, fmt.Errorf("%w: user %s", apiclient.ErrNotFound, id)
	}
	next := prev
	msg := flip(&next)

	return p.Users.Submit(ctx, syncer.Command[model.User]{
		Name:    "toggle " + what + " of " + prev.Username,
		Success: msg,
		Apply: func(users []model.User) []model.User {
			return replaceWhere(users, userID(id), next)
		},
		Revert: func(users []model.User) []model.User {
			return replaceWhere(users, userID(id), prev)
		},
		Remote: func(ctx context.Context) (model.User, error) {
			return remote(ctx, id)
		},
		Confirm: confirmUser,
	}), nil
}

func (p *Panel) DeleteUser(ctx context.Context, id string) (<-chan error, error) {
	if err := p.authorized(); err != nil {
		return nil, err
	}

	prev, ok := p.Users.Find(userID(id))
	if !ok {
		return nil, fmt.Errorf("%w: user %s", apiclient.ErrNotFound, id)
	}
	idx := indexWhere(p.Users.Items(), userID(id))

	return p.Users.Submit(ctx, syncer.Command[model.User]{
		Name:    "delete user " + prev.Username,
		Success: "User removed successfully",
		Apply: func(users []model.User) []model.User {
			return removeWhere(users, userID(id))
		},
		Revert: func(users []model.User) []model.User {
			return restoreAt(users, idx, prev, userID(id))
		},
		Remote: func(ctx context.Context) (model.User, error) {
			return model.User{}, p.api.DeleteUser(ctx, id)
		},
	}), nil
}

// ResetPassword has no visible local state to update, so it runs synchronously.
func (p *Panel) ResetPassword(ctx context.Context, id, password string) error {
	if err := p.authorized(); err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	if _, err := p.api.ResetPassword(ctx, id, password); err != nil {
		p.notifier.Notify(syncer.Notice{Level: syncer.Failure, Message: "reset password failed: " + err.Error()})
		if isUnauthorized(err) {
			p.gate.Deny()
		}
		return err
	}
	p.notifier.Notify(syncer.Notice{Level: syncer.Info, Message: "Password reset successfully"})
	return nil
}

func confirmUser(users []model.User, confirmed model.User) []model.User {
	return replaceWhere(users, userID(confirmed.ID), confirmed)
}

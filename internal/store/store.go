package store

import (
	"context"
	"errors"
	"time"

	"userpanel/internal/model"
)

var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
)

type LoginAttemptFilter struct {
	Username string
	Since    time.Time
	Limit    int
}

type DeviceFilter struct {
	Username string
}

type AlertFilter struct {
	UnreadOnly bool
	Limit      int
}

// Store is the table-scoped backend the proxy forwards to. Every method maps to a
// single select/insert/update/delete; nothing spans tables.
type Store interface {
	Ping(ctx context.Context) error

	ListUsers(ctx context.Context) ([]model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	UpdateUser(ctx context.Context, id string, p model.UserPatch) (model.User, error)
	DeleteUser(ctx context.Context, id string) error

	CreateLoginAttempt(ctx context.Context, a model.LoginAttempt) (model.LoginAttempt, error)
	ListLoginAttempts(ctx context.Context, f LoginAttemptFilter) ([]model.LoginAttempt, error)

	CreateDevice(ctx context.Context, d model.AuthorizedDevice) (model.AuthorizedDevice, error)
	ListDevices(ctx context.Context, f DeviceFilter) ([]model.AuthorizedDevice, error)
	DeleteDevice(ctx context.Context, id string) error

	CreateAlert(ctx context.Context, a model.SecurityAlert) (model.SecurityAlert, error)
	ListAlerts(ctx context.Context, f AlertFilter) ([]model.SecurityAlert, error)
	MarkAlertRead(ctx context.Context, id string) (model.SecurityAlert, error)
	DeleteAlert(ctx context.Context, id string) error
}

// Package panel wires the session gate, the proxy client and one sync engine
// per view into the operations the user-administration screens need.
package panel

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"userpanel/internal/model"
	"userpanel/internal/panel/apiclient"
	"userpanel/internal/panel/session"
	"userpanel/internal/panel/syncer"
)

const (
	ViewUsers    = "users"
	ViewAttempts = "login-attempts"
	ViewDevices  = "devices"
	ViewAlerts   = "alerts"
)

var (
	ErrDenied            = errors.New("session denied")
	ErrValidation        = errors.New("invalid input")
	ErrDuplicateUsername = errors.New("username already in use")
)

// Backend is the proxy surface the panel drives. *apiclient.Client implements it.
type Backend interface {
	Ping(ctx context.Context) error

	ListUsers(ctx context.Context) ([]model.User, error)
	GetUser(ctx context.Context, id string) (model.User, error)
	CreateUser(ctx context.Context, in apiclient.NewUser) (model.User, error)
	UpdateUser(ctx context.Context, id string, in apiclient.UserUpdate) (model.User, error)
	DeleteUser(ctx context.Context, id string) error
	ToggleStatus(ctx context.Context, id string) (model.User, error)
	ToggleAdmin(ctx context.Context, id string) (model.User, error)
	ResetPassword(ctx context.Context, id, password string) (model.User, error)

	ListLoginAttempts(ctx context.Context, username string, limit int) ([]model.LoginAttempt, error)
	ListDevices(ctx context.Context, username string) ([]model.AuthorizedDevice, error)
	DeleteDevice(ctx context.Context, id string) error
	ListAlerts(ctx context.Context, unreadOnly bool, limit int) ([]model.SecurityAlert, error)
	MarkAlertRead(ctx context.Context, id string) (model.SecurityAlert, error)
	DeleteAlert(ctx context.Context, id string) error
	Dashboard(ctx context.Context) (model.DashboardStats, error)
}

type Config struct {
	RefreshInterval time.Duration
	ProbeInterval   time.Duration
	ProbeTimeout    time.Duration

	AttemptLimit int
	AlertLimit   int

	Notifier syncer.Notifier
	// OnChange is told which view changed; read the engine for its contents.
	OnChange func(view string)
}

type Panel struct {
	gate     *session.Gate
	api      Backend
	notifier syncer.Notifier
	live     *syncer.Liveness

	attemptLimit int
	alertLimit   int

	Users    *syncer.Engine[model.User]
	Attempts *syncer.Engine[model.LoginAttempt]
	Devices  *syncer.Engine[model.AuthorizedDevice]
	Alerts   *syncer.Engine[model.SecurityAlert]
}

func New(gate *session.Gate, api Backend, cfg Config) *Panel {
	if cfg.Notifier == nil {
		cfg.Notifier = syncer.NotifierFunc(func(n syncer.Notice) {
			if n.Level == syncer.Failure {
				log.Warn(n.Message)
				return
			}
			log.Info(n.Message)
		})
	}
	if cfg.AttemptLimit <= 0 {
		cfg.AttemptLimit = 100
	}
	if cfg.AlertLimit <= 0 {
		cfg.AlertLimit = 100
	}

	p := &Panel{
		gate:     gate,
		api:      api,
		notifier: cfg.Notifier,
		live:     syncer.NewLiveness(api.Ping, cfg.ProbeInterval, cfg.ProbeTimeout),

		attemptLimit: cfg.AttemptLimit,
		alertLimit:   cfg.AlertLimit,
	}

	changed := func(view string) func() {
		return func() {
			if cfg.OnChange != nil {
				cfg.OnChange(view)
			}
		}
	}

	p.Users = syncer.New(engineConfig(p, cfg, changed(ViewUsers), syncer.Config[model.User]{
		Name:  ViewUsers,
		Fetch: api.ListUsers,
		ID:    func(u model.User) string { return u.ID },
	}))

	p.Attempts = syncer.New(engineConfig(p, cfg, changed(ViewAttempts), syncer.Config[model.LoginAttempt]{
		Name: ViewAttempts,
		Fetch: func(ctx context.Context) ([]model.LoginAttempt, error) {
			return api.ListLoginAttempts(ctx, "", p.attemptLimit)
		},
		ID: func(a model.LoginAttempt) string { return a.ID },
	}))

	p.Devices = syncer.New(engineConfig(p, cfg, changed(ViewDevices), syncer.Config[model.AuthorizedDevice]{
		Name: ViewDevices,
		Fetch: func(ctx context.Context) ([]model.AuthorizedDevice, error) {
			return api.ListDevices(ctx, "")
		},
		ID: func(d model.AuthorizedDevice) string { return d.ID },
	}))

	p.Alerts = syncer.New(engineConfig(p, cfg, changed(ViewAlerts), syncer.Config[model.SecurityAlert]{
		Name: ViewAlerts,
		Fetch: func(ctx context.Context) ([]model.SecurityAlert, error) {
			return api.ListAlerts(ctx, false, p.alertLimit)
		},
		ID: func(a model.SecurityAlert) string { return a.ID },
	}))

	return p
}

func engineConfig[T any](p *Panel, cfg Config, onChange func(), c syncer.Config[T]) syncer.Config[T] {
	c.Liveness = p.live
	c.Notifier = p.notifier
	c.RefreshInterval = cfg.RefreshInterval
	c.OnChange = func([]T) { onChange() }
	c.IsUnauthorized = isUnauthorized
	c.OnUnauthorized = p.gate.Deny
	return c
}

func isUnauthorized(err error) bool {
	return errors.Is(err, apiclient.ErrUnauthorized)
}

func (p *Panel) Liveness() *syncer.Liveness { return p.live }

func (p *Panel) Online() bool { return p.live.Online() }

// Sync probes the proxy once and, when it answers, refreshes every view. It is
// the one-shot counterpart of Run.
func (p *Panel) Sync(ctx context.Context) error {
	if err := p.authorized(); err != nil {
		return err
	}
	if !p.live.Check(ctx) {
		return apiclient.ErrUnavailable
	}

	refreshers := []func(context.Context) (bool, error){
		p.Users.Refresh, p.Attempts.Refresh, p.Devices.Refresh, p.Alerts.Refresh,
	}
	for _, refresh := range refreshers {
		if _, err := refresh(ctx); err != nil {
			if isUnauthorized(err) {
				return ErrDenied
			}
			return err
		}
	}
	return nil
}

// Run probes and polls every view until ctx is done or the session is denied.
func (p *Panel) Run(ctx context.Context) error {
	if err := p.authorized(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := p.gate.OnDeny(cancel)
	defer stop()

	var wg sync.WaitGroup
	for _, run := range []func(context.Context){
		p.live.Run, p.Users.Run, p.Attempts.Run, p.Devices.Run, p.Alerts.Run,
	} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(run)
	}
	wg.Wait()
	p.Wait()

	if p.gate.State() == session.Denied {
		return ErrDenied
	}
	return nil
}

// Wait blocks until every in-flight mutation has settled.
func (p *Panel) Wait() {
	p.Users.Wait()
	p.Attempts.Wait()
	p.Devices.Wait()
	p.Alerts.Wait()
}

func (p *Panel) authorized() error {
	if p.gate.State() != session.Authorized {
		return ErrDenied
	}
	return nil
}

// query runs a read straight against the proxy, bypassing the engines.
func query[T any](p *Panel, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	if err := p.authorized(); err != nil {
		var zero T
		return zero, err
	}
	out, err := fn(ctx)
	if isUnauthorized(err) {
		p.gate.Deny()
	}
	return out, err
}

func (p *Panel) Dashboard(ctx context.Context) (model.DashboardStats, error) {
	return query(p, ctx, p.api.Dashboard)
}

// User fetches one record from the proxy, including ones outside the loaded list.
func (p *Panel) User(ctx context.Context, id string) (model.User, error) {
	return query(p, ctx, func(ctx context.Context) (model.User, error) {
		return p.api.GetUser(ctx, id)
	})
}

// LoginAttempts asks the proxy for the newest attempts of username. Unlike the
// Attempts engine, the filter is applied before the limit.
func (p *Panel) LoginAttempts(ctx context.Context, username string) ([]model.LoginAttempt, error) {
	return query(p, ctx, func(ctx context.Context) ([]model.LoginAttempt, error) {
		return p.api.ListLoginAttempts(ctx, username, p.attemptLimit)
	})
}

// UnreadAlerts asks the proxy for the newest unread alerts.
func (p *Panel) UnreadAlerts(ctx context.Context) ([]model.SecurityAlert, error) {
	return query(p, ctx, func(ctx context.Context) ([]model.SecurityAlert, error) {
		return p.api.ListAlerts(ctx, true, p.alertLimit)
	})
}

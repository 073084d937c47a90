package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"userpanel/internal/model"
	"userpanel/internal/store"
)

// Store keeps every table in insertion order. List methods return newest first,
// matching the ordering the postgres store gets from its indexes.
type Store struct {
	mu sync.Mutex

	users    []model.User
	attempts []model.LoginAttempt
	devices  []model.AuthorizedDevice
	alerts   []model.SecurityAlert

	now func() time.Time
}

func NewStore() *Store {
	return &Store{now: func() time.Time { return time.Now().UTC() }}
}

type errWithCode string

func (e errWithCode) Error() string { return string(e) }

func newID() string {
	return uuid.NewString()
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) CreateLoginAttempt(_ context.Context, a model.LoginAttempt) (model.LoginAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(a.Username) == "" {
		return model.LoginAttempt{}, errWithCode("username_required")
	}

	a.ID = newID()
	if a.Timestamp.IsZero() {
		a.Timestamp = s.now()
	}
	s.attempts = append(s.attempts, a)
	return a, nil
}

func (s *Store) ListLoginAttempts(_ context.Context, f store.LoginAttemptFilter) ([]model.LoginAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.LoginAttempt, 0, len(s.attempts))
	for i := len(s.attempts) - 1; i >= 0; i-- {
		a := s.attempts[i]
		if f.Username != "" && !strings.EqualFold(a.Username, f.Username) {
			continue
		}
		if !f.Since.IsZero() && a.Timestamp.Before(f.Since) {
			continue
		}
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) CreateDevice(_ context.Context, d model.AuthorizedDevice) (model.AuthorizedDevice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(d.Username) == "" {
		return model.AuthorizedDevice{}, errWithCode("username_required")
	}

	d.ID = newID()
	if d.Timestamp.IsZero() {
		d.Timestamp = s.now()
	}
	s.devices = append(s.devices, d)
	return d, nil
}

func (s *Store) ListDevices(_ context.Context, f store.DeviceFilter) ([]model.AuthorizedDevice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.AuthorizedDevice, 0, len(s.devices))
	for i := len(s.devices) - 1; i >= 0; i-- {
		d := s.devices[i]
		if f.Username != "" && !strings.EqualFold(d.Username, f.Username) {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (s *Store) DeleteDevice(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, d := range s.devices {
		if d.ID == id {
			s.devices = append(s.devices[:i], s.devices[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) CreateAlert(_ context.Context, a model.SecurityAlert) (model.SecurityAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !a.Type.Valid() {
		return model.SecurityAlert{}, errWithCode("alert_type_invalid")
	}
	if a.Severity == "" {
		a.Severity = model.SeverityMedium
	}

	a.ID = newID()
	a.IsRead = false
	a.ReadAt = nil
	a.CreatedAt = s.now()
	s.alerts = append(s.alerts, a)
	return a, nil
}

func (s *Store) ListAlerts(_ context.Context, f store.AlertFilter) ([]model.SecurityAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.SecurityAlert, 0, len(s.alerts))
	for i := len(s.alerts) - 1; i >= 0; i-- {
		a := s.alerts[i]
		if f.UnreadOnly && a.IsRead {
			continue
		}
		out = append(out, a)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) MarkAlertRead(_ context.Context, id string) (model.SecurityAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.alerts {
		if a.ID != id {
			continue
		}
		now := s.now()
		a.IsRead = true
		a.ReadAt = &now
		s.alerts[i] = a
		return a, nil
	}
	return model.SecurityAlert{}, store.ErrNotFound
}

func (s *Store) DeleteAlert(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.alerts {
		if a.ID == id {
			s.alerts = append(s.alerts[:i], s.alerts[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

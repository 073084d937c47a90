package memory

import (
	"context"
	"strings"

	"userpanel/internal/model"
	"userpanel/internal/store"
)

func (s *Store) ListUsers(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.User, 0, len(s.users))
	for i := len(s.users) - 1; i >= 0; i-- {
		out = append(out, s.users[i])
	}
	return out, nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.userIndex(id)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	u := s.users[i]
	return &u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(u.Username))
	if username == "" {
		return model.User{}, errWithCode("username_required")
	}
	if s.usernameTaken(username, "") {
		return model.User{}, store.ErrConflict
	}

	now := s.now()
	u.ID = newID()
	u.Username = username
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users = append(s.users, u)
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, id string, p model.UserPatch) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.userIndex(id)
	if i < 0 {
		return model.User{}, store.ErrNotFound
	}

	if p.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*p.Username))
		if username == "" {
			return model.User{}, errWithCode("username_required")
		}
		if s.usernameTaken(username, id) {
			return model.User{}, store.ErrConflict
		}
		p.Username = &username
	}

	u := p.Apply(s.users[i])
	u.UpdatedAt = s.now()
	s.users[i] = u
	return u, nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.userIndex(id)
	if i < 0 {
		return store.ErrNotFound
	}
	s.users = append(s.users[:i], s.users[i+1:]...)
	return nil
}

func (s *Store) userIndex(id string) int {
	for i, u := range s.users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) usernameTaken(username, exceptID string) bool {
	for _, u := range s.users {
		if u.ID != exceptID && strings.EqualFold(u.Username, username) {
			return true
		}
	}
	return false
}

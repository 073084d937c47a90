package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"userpanel/internal/model"
	"userpanel/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestCreateUser(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	// Test case 1: username is stored lowercase
	u, err := s.CreateUser(ctx, model.User{Name: "Ana Silva", Username: "  Ana ", PasswordHash: "h", IsActive: true})
	assert.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ana", u.Username)
	assert.NotZero(t, u.CreatedAt)
	assert.Equal(t, u.CreatedAt, u.UpdatedAt)

	// Test case 2: duplicate username, case-insensitive
	_, err = s.CreateUser(ctx, model.User{Name: "Other", Username: "ANA"})
	assert.ErrorIs(t, err, store.ErrConflict)

	// Test case 3: missing username
	_, err = s.CreateUser(ctx, model.User{Name: "Nobody"})
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "username_required"))
}

func TestListUsersNewestFirst(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	first, err := s.CreateUser(ctx, model.User{Name: "First", Username: "first"})
	require.NoError(t, err)
	second, err := s.CreateUser(ctx, model.User{Name: "Second", Username: "second"})
	require.NoError(t, err)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, second.ID, users[0].ID)
	assert.Equal(t, first.ID, users[1].ID)
}

func TestUpdateUser(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	ana, err := s.CreateUser(ctx, model.User{Name: "Ana", Username: "ana", PasswordHash: "old"})
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, model.User{Name: "Bruno", Username: "bruno"})
	require.NoError(t, err)

	// Test case 1: partial update leaves other fields alone
	updated, err := s.UpdateUser(ctx, ana.ID, model.UserPatch{Name: ptr("Ana Silva"), IsAdmin: ptr(true)})
	assert.NoError(t, err)
	assert.Equal(t, "Ana Silva", updated.Name)
	assert.True(t, updated.IsAdmin)
	assert.Equal(t, "old", updated.PasswordHash)
	assert.Equal(t, "ana", updated.Username)

	// Test case 2: renaming onto another user's username conflicts
	_, err = s.UpdateUser(ctx, ana.ID, model.UserPatch{Username: ptr("Bruno")})
	assert.ErrorIs(t, err, store.ErrConflict)

	// Test case 3: keeping your own username is not a conflict
	_, err = s.UpdateUser(ctx, ana.ID, model.UserPatch{Username: ptr("ANA")})
	assert.NoError(t, err)

	// Test case 4: unknown id
	_, err = s.UpdateUser(ctx, "missing", model.UserPatch{Name: ptr("x")})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteUser(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, model.User{Name: "Ana", Username: "ana"})
	require.NoError(t, err)

	assert.NoError(t, s.DeleteUser(ctx, u.ID))
	assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), store.ErrNotFound)

	_, err = s.GetUserByID(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListLoginAttempts(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.CreateLoginAttempt(ctx, model.LoginAttempt{Username: "ana", Success: true, Timestamp: now.Add(-48 * time.Hour)})
	require.NoError(t, err)
	_, err = s.CreateLoginAttempt(ctx, model.LoginAttempt{Username: "ana", Success: false, Timestamp: now.Add(-time.Hour)})
	require.NoError(t, err)
	_, err = s.CreateLoginAttempt(ctx, model.LoginAttempt{Username: "bruno", Success: true, Timestamp: now})
	require.NoError(t, err)

	all, err := s.ListLoginAttempts(ctx, store.LoginAttemptFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "bruno", all[0].Username)

	ana, err := s.ListLoginAttempts(ctx, store.LoginAttemptFilter{Username: "ana"})
	require.NoError(t, err)
	assert.Len(t, ana, 2)

	anaUpper, err := s.ListLoginAttempts(ctx, store.LoginAttemptFilter{Username: "ANA"})
	require.NoError(t, err)
	assert.Len(t, anaUpper, 2)

	recent, err := s.ListLoginAttempts(ctx, store.LoginAttemptFilter{Since: now.Add(-24 * time.Hour)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	limited, err := s.ListLoginAttempts(ctx, store.LoginAttemptFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDevices(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	d, err := s.CreateDevice(ctx, model.AuthorizedDevice{Username: "ana", DeviceName: "laptop"})
	require.NoError(t, err)
	_, err = s.CreateDevice(ctx, model.AuthorizedDevice{Username: "bruno", DeviceName: "phone"})
	require.NoError(t, err)

	list, err := s.ListDevices(ctx, store.DeviceFilter{Username: "ana"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, d.ID, list[0].ID)

	assert.NoError(t, s.DeleteDevice(ctx, d.ID))
	assert.ErrorIs(t, s.DeleteDevice(ctx, d.ID), store.ErrNotFound)
}

func TestAlerts(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.CreateAlert(ctx, model.SecurityAlert{Type: "bogus"})
	assert.Error(t, err)

	a, err := s.CreateAlert(ctx, model.SecurityAlert{Type: model.AlertRepeatedFailure, Username: "ana"})
	require.NoError(t, err)
	assert.Equal(t, model.SeverityMedium, a.Severity)
	assert.False(t, a.IsRead)

	_, err = s.CreateAlert(ctx, model.SecurityAlert{Type: model.AlertAfterHoursAccess, Severity: model.SeverityHigh})
	require.NoError(t, err)

	read, err := s.MarkAlertRead(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	assert.NotNil(t, read.ReadAt)

	unread, err := s.ListAlerts(ctx, store.AlertFilter{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, model.AlertAfterHoursAccess, unread[0].Type)

	assert.NoError(t, s.DeleteAlert(ctx, a.ID))
	_, err = s.MarkAlertRead(ctx, a.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

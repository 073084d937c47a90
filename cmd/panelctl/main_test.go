package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"userpanel/internal/config"
	"userpanel/internal/httpapi"
	"userpanel/internal/model"
	"userpanel/internal/panel"
	"userpanel/internal/panel/apiclient"
	"userpanel/internal/store/memory"
)

func setup(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.NewStore()
	cfg := config.Defaults()
	cfg.BcryptCost = bcrypt.MinCost
	srv := httptest.NewServer(httpapi.NewServer(cfg, st).Handler())
	t.Cleanup(srv.Close)

	apiURL = srv.URL
	tokenFile = filepath.Join(t.TempDir(), "session")
	portalURL = config.DefaultPortalURL
	format = "text"
	return st
}

func TestOpenThenList(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	_, err := st.CreateUser(ctx, model.User{Name: "Ana Silva", Username: "ana", PasswordHash: "x", IsActive: true})
	require.NoError(t, err)
	_, err = st.CreateUser(ctx, model.User{Name: "Bruno", Username: "bruno", PasswordHash: "x", IsActive: true})
	require.NoError(t, err)

	var out bytes.Buffer
	open := openCmd()
	open.SetArgs([]string{"https://panel.example/?sessionToken=abc"})
	open.SetOut(&out)
	require.NoError(t, open.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "https://panel.example/")
	assert.NotContains(t, out.String(), "abc")

	stored, err := os.ReadFile(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "abc", strings.TrimSpace(string(stored)))

	out.Reset()
	users := usersCmd()
	users.SetArgs([]string{"list", "--search", "ana"})
	users.SetOut(&out)
	users.SetErr(&out)
	require.NoError(t, users.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "Ana Silva")
	assert.NotContains(t, out.String(), "Bruno")
}

func TestDeniedWithoutToken(t *testing.T) {
	setup(t)

	var out bytes.Buffer
	cmd := dashboardCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(&out)
	err := cmd.ExecuteContext(context.Background())

	assert.ErrorIs(t, err, panel.ErrDenied)
	assert.Contains(t, out.String(), config.DefaultPortalURL)
}

func TestToggleAndDelete(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	u, err := st.CreateUser(ctx, model.User{Name: "Ana", Username: "ana", PasswordHash: "x", IsActive: true})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(tokenFile, []byte("abc\n"), 0o600))

	var out bytes.Buffer
	users := usersCmd()
	users.SetArgs([]string{"toggle-status", u.ID})
	users.SetOut(&out)
	users.SetErr(&out)
	require.NoError(t, users.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "User deactivated successfully")

	got, err := st.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	users = usersCmd()
	users.SetArgs([]string{"delete", "--yes", u.ID})
	users.SetOut(&out)
	users.SetErr(&out)
	require.NoError(t, users.ExecuteContext(ctx))

	_, err = st.GetUserByID(ctx, u.ID)
	assert.Error(t, err)
}

func TestFiltersReachPastTheLoadedWindow(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(tokenFile, []byte("abc\n"), 0o600))

	now := time.Now().UTC()
	_, err := st.CreateLoginAttempt(ctx, model.LoginAttempt{Username: "ana", IPAddress: "10.0.0.7", Success: true, Timestamp: now.Add(-time.Hour)})
	require.NoError(t, err)
	for i := 0; i < 101; i++ {
		_, err := st.CreateLoginAttempt(ctx, model.LoginAttempt{Username: "bruno", IPAddress: "10.0.0.9", Timestamp: now.Add(time.Duration(i) * time.Second)})
		require.NoError(t, err)
	}

	_, err = st.CreateAlert(ctx, model.SecurityAlert{Type: model.AlertRepeatedFailure, Message: "oldest unread"})
	require.NoError(t, err)
	for i := 0; i < 101; i++ {
		a, err := st.CreateAlert(ctx, model.SecurityAlert{Type: model.AlertAfterHoursAccess, Message: "seen"})
		require.NoError(t, err)
		_, err = st.MarkAlertRead(ctx, a.ID)
		require.NoError(t, err)
	}

	var out bytes.Buffer
	attempts := attemptsCmd()
	attempts.SetArgs([]string{"--username", "ANA"})
	attempts.SetOut(&out)
	attempts.SetErr(&out)
	require.NoError(t, attempts.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "10.0.0.7")
	assert.NotContains(t, out.String(), "10.0.0.9")

	out.Reset()
	alerts := alertsCmd()
	alerts.SetArgs([]string{"--unread"})
	alerts.SetOut(&out)
	alerts.SetErr(&out)
	require.NoError(t, alerts.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "oldest unread")
	assert.NotContains(t, out.String(), "seen")
}

func TestUsersShowFetchesFromProxy(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(tokenFile, []byte("abc\n"), 0o600))

	u, err := st.CreateUser(ctx, model.User{Name: "Ana Silva", Username: "ana", PasswordHash: "x", IsActive: true})
	require.NoError(t, err)

	var out bytes.Buffer
	users := usersCmd()
	users.SetArgs([]string{"show", u.ID})
	users.SetOut(&out)
	users.SetErr(&out)
	require.NoError(t, users.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "Ana Silva")

	users = usersCmd()
	users.SetArgs([]string{"show", "missing"})
	users.SetOut(&out)
	users.SetErr(&out)
	assert.ErrorIs(t, users.ExecuteContext(ctx), apiclient.ErrNotFound)
}

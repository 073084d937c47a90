package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"userpanel/internal/config"
	"userpanel/internal/httpapi"
	"userpanel/internal/store/memory"
)

func newTestProxy(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Defaults()
	cfg.BcryptCost = bcrypt.MinCost
	srv := httptest.NewServer(httpapi.NewServer(cfg, memory.NewStore()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func staticToken(tok string) func() string {
	return func() string { return tok }
}

func TestClient_UserLifecycle(t *testing.T) {
	srv := newTestProxy(t)
	c := New(srv.URL, staticToken("abc"))
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	created, err := c.CreateUser(ctx, NewUser{Username: "Ana", Password: "secret1", Name: "Ana Silva"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "ana", created.Username)
	assert.Empty(t, created.PasswordHash)

	toggled, err := c.ToggleStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	admin, err := c.ToggleAdmin(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)

	name := "Ana S."
	updated, err := c.UpdateUser(ctx, created.ID, UserUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)

	_, err = c.ResetPassword(ctx, created.ID, "another1")
	require.NoError(t, err)

	users, err := c.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)

	stats, err := c.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalUsers)
	assert.Equal(t, 1, stats.AdminUsers)

	require.NoError(t, c.DeleteUser(ctx, created.ID))
	_, err = c.GetUser(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_ErrorMapping(t *testing.T) {
	srv := newTestProxy(t)
	ctx := context.Background()

	_, err := New(srv.URL, staticToken("")).ListUsers(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)

	c := New(srv.URL, staticToken("abc"))

	_, err = c.CreateUser(ctx, NewUser{Username: "ana"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = c.CreateUser(ctx, NewUser{Username: "ana", Password: "secret1", Name: "Ana"})
	require.NoError(t, err)
	_, err = c.CreateUser(ctx, NewUser{Username: "ANA", Password: "secret1", Name: "Other"})
	assert.ErrorIs(t, err, ErrConflict)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "username already exists")

	assert.ErrorIs(t, c.DeleteDevice(ctx, "missing"), ErrNotFound)
}

func TestClient_Unavailable(t *testing.T) {
	noStore := httptest.NewServer(httpapi.NewServer(config.Defaults(), nil).Handler())
	defer noStore.Close()

	c := New(noStore.URL, staticToken("abc"))
	_, err := c.ListUsers(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)

	down := New("http://127.0.0.1:1", staticToken("abc"))
	assert.ErrorIs(t, down.Ping(context.Background()), ErrUnavailable)
}

func TestClient_SendsSessionHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Session-Token")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":[],"total":0}`))
	}))
	defer srv.Close()

	alerts, err := New(srv.URL, staticToken("tok-1")).ListAlerts(context.Background(), true, 10)
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Equal(t, "tok-1", got)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("USERPANEL_CONFIG", "")
	t.Setenv("USERPANEL_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("USERPANEL_PORT", "")
	t.Setenv("PORT", "")
	t.Setenv("USERPANEL_STORE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, DefaultPortalURL, cfg.PortalURL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, ":3000", cfg.ListenAddr())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "userpanel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 8081\nportal_url: https://portal.example\nbcrypt_cost: 12\nstore: memory\n"), 0o600))

	t.Setenv("USERPANEL_CONFIG", path)
	t.Setenv("USERPANEL_PORT", "")
	t.Setenv("PORT", "9090")
	t.Setenv("USERPANEL_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/users")
	t.Setenv("USERPANEL_BCRYPT_COST", "99")
	t.Setenv("USERPANEL_STORE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "https://portal.example", cfg.PortalURL)
	assert.Equal(t, "postgres://localhost/users", cfg.DatabaseURL)
	// out-of-range env value keeps the file value
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, StoreMemory, cfg.Store)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("USERPANEL_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

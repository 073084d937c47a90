package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const portal = "https://portal.example"

func TestCheck_TokenFromURL(t *testing.T) {
	tokens := &MemoryTokenStore{}
	g := NewGate(tokens, portal)

	state, shown := g.Check("https://panel.example/users?sessionToken=abc&tab=list")

	assert.Equal(t, Authorized, state)
	assert.Equal(t, "https://panel.example/users?tab=list", shown)
	assert.NotContains(t, shown, "abc")
	assert.Equal(t, "abc", g.Token())

	stored, err := tokens.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc", stored)
}

func TestCheck_StoredToken(t *testing.T) {
	tokens := &MemoryTokenStore{}
	require.NoError(t, tokens.Save("from-earlier"))
	g := NewGate(tokens, portal)

	state, shown := g.Check("https://panel.example/")

	assert.Equal(t, Authorized, state)
	assert.Equal(t, "https://panel.example/", shown)
	assert.Equal(t, "from-earlier", g.Token())
}

func TestCheck_URLTokenWinsOverStored(t *testing.T) {
	tokens := &MemoryTokenStore{}
	require.NoError(t, tokens.Save("old"))
	g := NewGate(tokens, portal)

	g.Check("https://panel.example/?sessionToken=new")
	assert.Equal(t, "new", g.Token())
}

func TestCheck_NoTokenDenied(t *testing.T) {
	g := NewGate(&MemoryTokenStore{}, portal)

	state, _ := g.Check("https://panel.example/")
	assert.Equal(t, Denied, state)
	assert.Empty(t, g.Token())

	view := g.DeniedView()
	assert.Equal(t, portal, view.PortalURL)
	assert.NotEmpty(t, view.Message)
}

func TestDeny_IsTerminal(t *testing.T) {
	tokens := &MemoryTokenStore{}
	g := NewGate(tokens, portal)
	g.Check("https://panel.example/?sessionToken=abc")

	calls := 0
	g.OnDeny(func() { calls++ })

	g.Deny()
	g.Deny()

	assert.Equal(t, Denied, g.State())
	assert.Equal(t, 1, calls)
	stored, _ := tokens.Load()
	assert.Empty(t, stored)

	state, shown := g.Check("https://panel.example/?sessionToken=again")
	assert.Equal(t, Denied, state)
	assert.Equal(t, "https://panel.example/?sessionToken=again", shown)
	assert.Empty(t, g.Token())
}

func TestOnDeny_Remove(t *testing.T) {
	g := NewGate(&MemoryTokenStore{}, portal)
	g.Check("https://panel.example/?sessionToken=abc")

	var stale, live int
	for i := 0; i < 3; i++ {
		remove := g.OnDeny(func() { stale++ })
		remove()
	}
	g.OnDeny(func() { live++ })

	assert.Len(t, g.onDeny, 1)

	g.Deny()
	assert.Equal(t, 0, stale)
	assert.Equal(t, 1, live)
}

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session")
	fs := FileTokenStore{Path: path}

	tok, err := fs.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, fs.Save("abc"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	tok, err = fs.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	require.NoError(t, fs.Clear())
	require.NoError(t, fs.Clear())
	tok, err = fs.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)
}

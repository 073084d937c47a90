// Package session decides whether the panel may run: it discovers the bearer
// token handed over by the portal, keeps it for the session, and holds the
// terminal denied state.
package session

import (
	"net/url"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// TokenParam is the query parameter the portal appends when it opens the panel.
const TokenParam = "sessionToken"

type State int

const (
	Unchecked State = iota
	Authorized
	Denied
)

func (s State) String() string {
	switch s {
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	default:
		return "unchecked"
	}
}

// DeniedView is everything the denied screen shows: a message and one way out.
type DeniedView struct {
	Message   string
	PortalURL string
}

type Gate struct {
	mu        sync.Mutex
	tokens    TokenStore
	portalURL string
	state     State
	token     string
	onDeny    map[int]func()
	nextHook  int
}

func NewGate(tokens TokenStore, portalURL string) *Gate {
	return &Gate{tokens: tokens, portalURL: portalURL}
}

// Check runs the startup decision against pageURL and returns the address the
// page should display: pageURL with the token parameter removed when one was
// found there, pageURL unchanged otherwise. Denied is terminal.
func (g *Gate) Check(pageURL string) (State, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == Denied {
		return g.state, pageURL
	}

	if tok, stripped, ok := tokenFromURL(pageURL); ok {
		if err := g.tokens.Save(tok); err != nil {
			log.Warnf("session token not persisted: %v", err)
		}
		g.token = tok
		g.state = Authorized
		return g.state, stripped
	}

	tok, err := g.tokens.Load()
	if err != nil {
		log.Warnf("session token lookup failed: %v", err)
	}
	if tok = strings.TrimSpace(tok); tok != "" {
		g.token = tok
		g.state = Authorized
		return g.state, pageURL
	}

	g.denyLocked()
	return g.state, pageURL
}

// Deny clears the stored token and enters the denied state. It is called when
// the proxy rejects the token mid-session.
func (g *Gate) Deny() {
	g.mu.Lock()
	if g.state == Denied {
		g.mu.Unlock()
		return
	}
	g.denyLocked()
	hooks := make([]func(), 0, len(g.onDeny))
	for _, fn := range g.onDeny {
		hooks = append(hooks, fn)
	}
	g.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

func (g *Gate) denyLocked() {
	if err := g.tokens.Clear(); err != nil {
		log.Warnf("session token not cleared: %v", err)
	}
	g.token = ""
	g.state = Denied
	log.Info("session denied")
}

// OnDeny registers fn to run once the gate transitions to Denied after startup.
// The returned func unregisters it.
func (g *Gate) OnDeny(fn func()) (remove func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.onDeny == nil {
		g.onDeny = make(map[int]func())
	}
	id := g.nextHook
	g.nextHook++
	g.onDeny[id] = fn

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.onDeny, id)
	}
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Token is empty unless the gate is Authorized.
func (g *Gate) Token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token
}

func (g *Gate) DeniedView() DeniedView {
	return DeniedView{
		Message:   "Access denied. Sign in through the portal to manage users.",
		PortalURL: g.portalURL,
	}
}

func tokenFromURL(raw string) (tok, stripped string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", raw, false
	}
	q := u.Query()
	tok = strings.TrimSpace(q.Get(TokenParam))
	if tok == "" {
		return "", raw, false
	}
	q.Del(TokenParam)
	u.RawQuery = q.Encode()
	return tok, u.String(), true
}

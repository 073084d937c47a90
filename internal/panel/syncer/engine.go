// Package syncer keeps one server-backed collection per view in memory. It polls
// the proxy, redraws only when the set of records changed, and runs mutations
// optimistically with a rollback when the proxy rejects them.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const DefaultRefreshInterval = 30 * time.Second

// ErrOffline is delivered for mutations applied while the proxy is unreachable.
// The local change stays provisional until the next successful refresh.
var ErrOffline = errors.New("offline: change kept locally until the next sync")

type Level int

const (
	Info Level = iota
	Failure
)

type Notice struct {
	Level   Level
	Message string
}

type Notifier interface {
	Notify(n Notice)
}

type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// TempID returns an identifier for a record that the server has not assigned one to yet.
func TempID() string {
	return "tmp-" + uuid.NewString()
}

type Config[T any] struct {
	Name  string
	Fetch func(ctx context.Context) ([]T, error)
	ID    func(item T) string

	// Liveness gates remote mutations and wakes the poller when the proxy
	// returns. Nil means always online.
	Liveness *Liveness
	Notifier Notifier
	// OnChange receives the collection after every local change or accepted refresh.
	OnChange func(items []T)

	IsUnauthorized func(err error) bool
	OnUnauthorized func()

	RefreshInterval time.Duration
}

// Command is one optimistic mutation. Apply and Revert must each be safe to run
// against a collection that a refresh has already replaced.
type Command[T any] struct {
	Name    string
	Success string

	Apply  func(items []T) []T
	Revert func(items []T) []T
	// Remote performs the real request. The returned record is handed to Confirm.
	Remote  func(ctx context.Context) (T, error)
	Confirm func(items []T, confirmed T) []T
}

type Engine[T any] struct {
	cfg Config[T]

	mu          sync.Mutex
	items       []T
	fingerprint string
	loaded      bool
	dirty       bool
	inFlight    bool
	again       bool

	drawMu sync.Mutex
	wake   chan struct{}
	wg     sync.WaitGroup
}

func New[T any](cfg Config[T]) *Engine[T] {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NotifierFunc(func(Notice) {})
	}

	e := &Engine[T]{cfg: cfg, wake: make(chan struct{}, 1)}
	if cfg.Liveness != nil {
		cfg.Liveness.OnChange(func(online bool) {
			if !online {
				return
			}
			select {
			case e.wake <- struct{}{}:
			default:
			}
		})
	}
	return e
}

func (e *Engine[T]) Name() string { return e.cfg.Name }

// Items returns a copy of the current collection.
func (e *Engine[T]) Items() []T {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]T(nil), e.items...)
}

// Find returns the first record for which match is true.
func (e *Engine[T]) Find(match func(T) bool) (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, it := range e.items {
		if match(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func (e *Engine[T]) online() bool {
	return e.cfg.Liveness == nil || e.cfg.Liveness.Online()
}

// Refresh fetches the collection and replaces the local copy when its
// fingerprint changed or a local mutation is pending reconciliation. A refresh
// requested while another is running is folded into a rerun of that one.
func (e *Engine[T]) Refresh(ctx context.Context) (bool, error) {
	e.mu.Lock()
	if e.inFlight {
		e.again = true
		e.mu.Unlock()
		return false, nil
	}
	e.inFlight = true
	e.mu.Unlock()

	changed := false
	for {
		c, err := e.refreshOnce(ctx)
		changed = changed || c

		e.mu.Lock()
		rerun := e.again && err == nil
		e.again = false
		if !rerun {
			e.inFlight = false
		}
		e.mu.Unlock()

		if !rerun {
			return changed, err
		}
	}
}

func (e *Engine[T]) refreshOnce(ctx context.Context) (bool, error) {
	items, err := e.cfg.Fetch(ctx)
	if err != nil {
		e.checkUnauthorized(err)
		return false, err
	}

	fp, err := fingerprint(items, e.cfg.ID)
	if err != nil {
		return false, err
	}

	e.mu.Lock()
	if e.loaded && !e.dirty && fp == e.fingerprint {
		e.mu.Unlock()
		return false, nil
	}
	e.items = items
	e.fingerprint = fp
	e.loaded = true
	e.dirty = false
	e.mu.Unlock()

	e.redraw()
	return true, nil
}

func fingerprint[T any](items []T, id func(T) string) (string, error) {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = id(it)
	}
	b, err := json.Marshal(ids)
	return string(b), err
}

// Submit applies cmd locally, redraws and reports success right away, then
// syncs with the proxy in the background. The returned channel yields the
// remote outcome: nil, the remote error (after Revert ran), or ErrOffline.
func (e *Engine[T]) Submit(ctx context.Context, cmd Command[T]) <-chan error {
	done := make(chan error, 1)

	e.mutate(cmd.Apply)
	if cmd.Success != "" {
		e.cfg.Notifier.Notify(Notice{Level: Info, Message: cmd.Success})
	}

	if cmd.Remote == nil {
		done <- nil
		close(done)
		return done
	}
	if !e.online() {
		log.WithField("view", e.cfg.Name).Infof("%s kept locally while offline", cmd.Name)
		done <- ErrOffline
		close(done)
		return done
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer close(done)

		confirmed, err := cmd.Remote(ctx)
		if err != nil {
			e.mutate(cmd.Revert)
			log.WithField("view", e.cfg.Name).Warnf("%s failed: %v", cmd.Name, err)
			e.cfg.Notifier.Notify(Notice{Level: Failure, Message: cmd.Name + " failed: " + err.Error()})
			e.checkUnauthorized(err)
			done <- err
			return
		}

		if cmd.Confirm != nil {
			e.mutate(func(items []T) []T { return cmd.Confirm(items, confirmed) })
		}
		if _, err := e.Refresh(ctx); err != nil {
			log.WithField("view", e.cfg.Name).Debugf("refresh after %s: %v", cmd.Name, err)
		}
		done <- nil
	}()
	return done
}

func (e *Engine[T]) mutate(fn func([]T) []T) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	e.items = fn(append([]T(nil), e.items...))
	e.dirty = true
	e.mu.Unlock()
	e.redraw()
}

// redraw hands the latest collection to OnChange. Draws are serialized so the
// last one always reflects the newest state.
func (e *Engine[T]) redraw() {
	if e.cfg.OnChange == nil {
		return
	}
	e.drawMu.Lock()
	defer e.drawMu.Unlock()
	e.cfg.OnChange(e.Items())
}

func (e *Engine[T]) checkUnauthorized(err error) {
	if e.cfg.IsUnauthorized != nil && e.cfg.IsUnauthorized(err) && e.cfg.OnUnauthorized != nil {
		e.cfg.OnUnauthorized()
	}
}

// Wait blocks until every background mutation has finished.
func (e *Engine[T]) Wait() {
	e.wg.Wait()
}

// Run refreshes immediately and then on every interval while the proxy is
// online, plus once each time it comes back online. It returns when ctx is done.
func (e *Engine[T]) Run(ctx context.Context) {
	e.poll(ctx)

	t := time.NewTicker(e.cfg.RefreshInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.poll(ctx)
		case <-e.wake:
			e.poll(ctx)
		}
	}
}

func (e *Engine[T]) poll(ctx context.Context) {
	if !e.online() {
		return
	}
	if _, err := e.Refresh(ctx); err != nil && ctx.Err() == nil {
		log.WithField("view", e.cfg.Name).Warnf("refresh failed: %v", err)
	}
}

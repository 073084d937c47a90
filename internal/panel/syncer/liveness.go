package syncer

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultProbeInterval = 15 * time.Second
	DefaultProbeTimeout  = 10 * time.Second
)

// Liveness tracks whether the proxy answers. It starts offline; the first
// successful probe counts as a transition to online.
type Liveness struct {
	probe    func(ctx context.Context) error
	interval time.Duration
	timeout  time.Duration

	mu        sync.Mutex
	online    bool
	listeners []func(online bool)
}

func NewLiveness(probe func(ctx context.Context) error, interval, timeout time.Duration) *Liveness {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Liveness{probe: probe, interval: interval, timeout: timeout}
}

func (l *Liveness) Online() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.online
}

// OnChange registers fn for online/offline transitions. fn runs on the probing
// goroutine and must not block.
func (l *Liveness) OnChange(fn func(online bool)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Check probes once and returns the resulting state. A probe that outlives the
// timeout counts as a failure.
func (l *Liveness) Check(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, l.timeout)
	err := l.probe(pctx)
	cancel()

	if err != nil {
		log.Debugf("liveness probe failed: %v", err)
	}
	l.set(err == nil)
	return err == nil
}

func (l *Liveness) set(online bool) {
	l.mu.Lock()
	if l.online == online {
		l.mu.Unlock()
		return
	}
	l.online = online
	listeners := append([]func(bool){}, l.listeners...)
	l.mu.Unlock()

	if online {
		log.Info("proxy is online")
	} else {
		log.Warn("proxy is offline; changes stay local until it returns")
	}
	for _, fn := range listeners {
		fn(online)
	}
}

// Run probes immediately and then on every interval until ctx is done.
func (l *Liveness) Run(ctx context.Context) {
	l.Check(ctx)

	t := time.NewTicker(l.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Check(ctx)
		}
	}
}

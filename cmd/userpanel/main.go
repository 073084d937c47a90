package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"userpanel/internal/config"
	"userpanel/internal/httpapi"
	"userpanel/internal/logger"
	"userpanel/internal/store"
	"userpanel/internal/store/memory"
	"userpanel/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	st, closer := openStore(cfg)
	if closer != nil {
		defer closer()
	}

	srv := httpapi.NewServer(cfg, st)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("userpanel listening on %s", cfg.ListenAddr())
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutdown requested")
	case err := <-errCh:
		log.Errorf("server error: %v", err)
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(ctxShutdown)
}

// openStore returns a nil store when postgres cannot be reached. The proxy keeps
// serving and answers /api routes with 503 until it is restarted with a working URL.
func openStore(cfg config.Config) (store.Store, func()) {
	if cfg.Store == config.StoreMemory {
		log.Warn("using memory store; data is lost on exit")
		return memory.NewStore(), nil
	}

	if cfg.DatabaseURL == "" {
		log.Error("database url is not set; /api routes will answer 503")
		return nil, nil
	}

	pg, err := postgres.NewStore(cfg.DatabaseURL)
	if err != nil {
		log.Errorf("failed to init postgres store: %v", err)
		return nil, nil
	}

	if cfg.Migrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := pg.Migrate(ctx); err != nil {
			log.Errorf("migrations failed: %v", err)
			pg.Close()
			return nil, nil
		}
	}

	log.Info("using postgres store")
	return pg, pg.Close
}

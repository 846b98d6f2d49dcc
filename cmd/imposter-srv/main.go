package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/kelseyhightower/envconfig"

	"github.com/imposter-games/imposter/internal/cache/cachelru"
	"github.com/imposter-games/imposter/internal/database"
	lobbyDb "github.com/imposter-games/imposter/internal/database/lobby/database"
	"github.com/imposter-games/imposter/internal/imposter"
	"github.com/imposter-games/imposter/internal/logging"
	"github.com/imposter-games/imposter/internal/server"
	"github.com/imposter-games/imposter/internal/shutdown"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, done := shutdown.New()
	defer done()

	logger := logging.FromContext(ctx)
	if err := realMain(ctx); err != nil {
		logger.Fatalf("main.realMain: %v", err)
	}
}

func realMain(ctx context.Context) error {
	config := imposter.Config{}
	if err := envconfig.Process("", &config); err != nil {
		return fmt.Errorf("processing the config: %w", err)
	}

	logger := logging.NewLogger(config.Debug)
	ctx = logging.WithLogger(ctx, logger)

	db, err := database.NewFromEnv(ctx, &config.Db)
	if err != nil {
		return fmt.Errorf("new database from env: %w", err)
	}
	defer db.Close(ctx)

	snapCache, err := cachelru.NewLRU(config.CacheSize)
	if err != nil {
		return fmt.Errorf("can not create lru cache: %w", err)
	}

	store := lobbyDb.New(db)
	manager := imposter.NewManager(&config, store, snapCache)

	srv, err := server.New(config.Port)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}
	logger.Infof("listening on :%s", config.Port)

	mux := http.NewServeMux()
	mux.Handle("/health", server.HandleHealth(ctx))
	mux.Handle("/", manager.Router())

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return srv.ServeHTTP(ctx, &http.Server{Handler: mux})
	})

	group.Go(func() error {
		store.RunSweeper(ctx, config.SweepInterval)
		return nil
	})

	if config.ProfPort != "" {
		group.Go(func() error {
			return http.ListenAndServe(":"+config.ProfPort, nil)
		})
	}

	if err := group.Wait(); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	return nil
}

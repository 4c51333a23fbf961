package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tablecast/tablecast/internal/api"
	"github.com/tablecast/tablecast/internal/app"
	"github.com/tablecast/tablecast/internal/app/maintenance"
	"github.com/tablecast/tablecast/internal/realtime"
	"github.com/tablecast/tablecast/internal/store"
	"github.com/tablecast/tablecast/internal/uploads"
)

// runtimeStack bundles long-lived components used by the HTTP server.
type runtimeStack struct {
	Store   *store.SessionStore
	Hub     *realtime.Hub
	Uploads *uploads.Storage
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime initialises storage, the session store, the realtime hub,
// background maintenance and the HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.Uploads, err = uploads.NewStorage(cfg.Uploads.Dir)
	if err != nil {
		return nil, fmt.Errorf("initialise upload storage: %w", err)
	}

	stack.Hub = realtime.NewHub(realtime.WithSendBuffer(cfg.Realtime.SendBuffer))
	stack.Store = store.New(store.WithBroadcaster(stack.Hub))

	if cfg.Maintenance.Enabled {
		stack.Cleaner = maintenance.NewCleaner(stack.Store, stack.Hub,
			maintenance.WithSchedule(cfg.Maintenance.Schedule),
			maintenance.WithRetention(cfg.Maintenance.SessionRetention),
		)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(cfg, stack.Store, stack.Hub, stack.Uploads)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		// Wait for any in-flight prune job before the final pass.
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			<-stopCtx.Done()
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}
}

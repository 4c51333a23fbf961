package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tablecast/tablecast/internal/store"
	"github.com/tablecast/tablecast/pkg/logger"
)

const (
	defaultSchedule  = "@every 10m"
	defaultRetention = 72 * time.Hour
)

// SubscriberCounter reports how many live subscribers a session has. A
// session with at least one subscriber is never pruned regardless of age.
type SubscriberCounter interface {
	SubscriberCount(sessionID string) int
}

// Cleaner prunes sessions that have not been mutated within the retention
// window and have no connected viewers.
type Cleaner struct {
	sessions  *store.SessionStore
	counter   SubscriberCounter
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	schedule  string
	retention time.Duration
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for retention comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the prune job.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithRetention adjusts how long an idle session survives between mutations.
func WithRetention(retention time.Duration) Option {
	return func(cleaner *Cleaner) {
		if retention > 0 {
			cleaner.retention = retention
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(sessions *store.SessionStore, counter SubscriberCounter, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sessions:  sessions,
		counter:   counter,
		now:       time.Now,
		schedule:  defaultSchedule,
		retention: defaultRetention,
		log:       logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the prune job with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.sessions == nil {
		return errors.New("maintenance: session store is required")
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("session prune failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes a single prune pass. Primarily used in tests and during
// graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if c.sessions == nil {
		return errors.New("maintenance: session store is required")
	}

	var errs error
	if err := ctx.Err(); err != nil {
		errs = multierr.Append(errs, err)
		return errs
	}

	cutoff := c.now().Add(-c.retention)
	removed := c.sessions.PruneIdle(cutoff, c.inUse)
	if len(removed) > 0 {
		c.log.Info("pruned idle sessions",
			zap.Int("count", len(removed)),
			zap.Strings("sessions", removed),
		)
	}
	return errs
}

func (c *Cleaner) inUse(sessionID string) bool {
	if c.counter == nil {
		return false
	}
	return c.counter.SubscriberCount(sessionID) > 0
}

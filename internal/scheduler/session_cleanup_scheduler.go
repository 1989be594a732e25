package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bazcar/bazcar-backend/pkg/logger"
)

const (
	// in-memory state idle longer than this is dropped; snapshots survive
	memoryIdleTTL   = 30 * time.Minute
	memoryEvictSpec = "@every 10m"
	purgeTimeout    = time.Minute
)

// StaleSessionStore deletes persisted session entries
type StaleSessionStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// IdleEvictor drops in-memory per-session state
type IdleEvictor interface {
	EvictIdle(idleSince time.Time) int
}

// SessionCleanupScheduler purges abandoned carts from the session store and
// evicts idle sessions from memory.
type SessionCleanupScheduler struct {
	cron     *cron.Cron
	spec     string
	store    StaleSessionStore
	ttl      time.Duration
	evictors []IdleEvictor
	now      func() time.Time
}

// NewSessionCleanupScheduler creates the scheduler. spec is a standard
// five-field cron expression for the store purge.
func NewSessionCleanupScheduler(spec string, store StaleSessionStore, ttl time.Duration, evictors ...IdleEvictor) *SessionCleanupScheduler {
	return &SessionCleanupScheduler{
		cron:     cron.New(),
		spec:     spec,
		store:    store,
		ttl:      ttl,
		evictors: evictors,
		now:      time.Now,
	}
}

// Start registers both jobs and starts the cron runner
func (s *SessionCleanupScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.PurgeStale); err != nil {
		logger.Error("Failed to add cron job for session purge", err, logger.Fields{
			"spec": s.spec,
		})
		return err
	}
	if _, err := s.cron.AddFunc(memoryEvictSpec, s.EvictIdle); err != nil {
		logger.Error("Failed to add cron job for session eviction", err)
		return err
	}

	s.cron.Start()
	logger.Info("Session cleanup scheduler started", logger.Fields{
		"purge_spec":  s.spec,
		"session_ttl": s.ttl.String(),
	})
	return nil
}

// Stop stops the runner and waits for running jobs
func (s *SessionCleanupScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Session cleanup scheduler stopped", nil)
}

// PurgeStale deletes session entries older than the session TTL
func (s *SessionCleanupScheduler) PurgeStale() {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	cutoff := s.now().Add(-s.ttl)
	removed, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		logger.Error("Failed to purge stale sessions", err, logger.Fields{
			"cutoff": cutoff,
		})
		return
	}
	logger.Info("Purged stale sessions", logger.Fields{
		"removed": removed,
		"cutoff":  cutoff,
	})
}

// EvictIdle drops in-memory state of sessions idle past memoryIdleTTL
func (s *SessionCleanupScheduler) EvictIdle() {
	idleSince := s.now().Add(-memoryIdleTTL)
	total := 0
	for _, e := range s.evictors {
		total += e.EvictIdle(idleSince)
	}
	if total > 0 {
		logger.Debug("Evicted idle sessions", logger.Fields{
			"evicted": total,
		})
	}
}

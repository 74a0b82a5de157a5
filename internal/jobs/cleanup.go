package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/citypulse/server/internal/config"
	"github.com/citypulse/server/internal/metrics"
	"github.com/citypulse/server/internal/utils"
)

// SessionCleaner removes expired sessions and blacklist entries.
type SessionCleaner interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

// StoreEvicter is the in-memory device store cache.
type StoreEvicter interface {
	EvictIdle(ctx context.Context, ttl time.Duration) int
	Flush(ctx context.Context) error
	Len() int
}

// SearchEvicter drops idle per-device search sessions.
type SearchEvicter interface {
	EvictIdle(ttl time.Duration) int
}

// Maintenance runs the periodic cleanup on a cron schedule.
type Maintenance struct {
	sessions SessionCleaner
	stores   StoreEvicter
	searches SearchEvicter
	idleTTL  time.Duration
	timeout  time.Duration

	cron *cron.Cron
}

func NewMaintenance(cfg config.JobsConfig, sessions SessionCleaner, stores StoreEvicter, searches SearchEvicter) (*Maintenance, error) {
	m := &Maintenance{
		sessions: sessions,
		stores:   stores,
		searches: searches,
		idleTTL:  cfg.StoreIdleTTL,
		timeout:  5 * time.Minute,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}

	if _, err := m.cron.AddFunc(cfg.CleanupSchedule, func() { m.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", cfg.CleanupSchedule, err)
	}
	return m, nil
}

func (m *Maintenance) Start() {
	m.cron.Start()
	utils.LogInfo(context.Background(), "Maintenance jobs scheduled")
}

// Stop waits for a running job to finish or ctx to end.
func (m *Maintenance) Stop(ctx context.Context) {
	select {
	case <-m.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce performs one cleanup pass. Failures are logged and the remaining
// steps still run.
func (m *Maintenance) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	fields := utils.Fields{}

	if m.sessions != nil {
		removed, err := m.sessions.CleanupExpiredSessions(ctx)
		if err != nil {
			utils.LogError(ctx, "Failed to clean up expired sessions", err)
		}
		fields["sessions_removed"] = removed
	}

	if m.searches != nil {
		fields["searches_evicted"] = m.searches.EvictIdle(m.idleTTL)
	}

	if m.stores != nil {
		fields["stores_evicted"] = m.stores.EvictIdle(ctx, m.idleTTL)
		if err := m.stores.Flush(ctx); err != nil {
			utils.LogError(ctx, "Failed to flush device stores", err)
		}
		metrics.SetActiveStores(m.stores.Len())
	}

	fields["duration"] = time.Since(start).String()
	utils.LogInfo(ctx, "Maintenance pass completed", fields)
}

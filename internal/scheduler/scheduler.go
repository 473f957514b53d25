// Package scheduler runs the process's periodic maintenance jobs: the
// nightly execution-log archive/retention sweep and, on startup, the
// crash-recovery pass that re-subscribes previously ACTIVE copiers.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"tradecopier/internal/audit"
	"tradecopier/internal/database"
	"tradecopier/internal/engine"
)

// Scheduler wraps a robfig/cron runner for the retention sweep and exposes
// a one-shot Recover step for startup.
type Scheduler struct {
	cron     *cron.Cron
	gw       *database.Gateway
	archiver *audit.Archiver
	eng      *engine.Engine
	maxAge   time.Duration
}

func New(gw *database.Gateway, archiver *audit.Archiver, eng *engine.Engine, maxAge time.Duration) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		gw:       gw,
		archiver: archiver,
		eng:      eng,
		maxAge:   maxAge,
	}
}

// Start registers the retention sweep at sweepCron (robfig/cron six-field
// syntax) and starts the cron runner in its own goroutine.
func (s *Scheduler) Start(sweepCron string) error {
	_, err := s.cron.AddFunc(sweepCron, s.runRetentionSweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// runRetentionSweep archives each copier's stored ExecutionLog rows to S3,
// then deletes that copier's rows older than maxAge from Postgres, skipping
// the delete when the archive step fails — covering every copier regardless of its current status, since
// a STOPPED/PAUSED/ERROR copier's audit trail is still owed an archive pass
// before its rows age out.
func (s *Scheduler) runRetentionSweep() {
	if s.archiver == nil {
		log.Warn().Msg("retention sweep: no archiver configured, skipping (nothing can be archived, so nothing is deleted)")
		return
	}

	ctx := context.Background()
	cutoff := time.Now().Add(-s.maxAge)

	copiers, err := s.gw.ListAllCopiers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("retention sweep: failed to list copiers")
		return
	}

	var totalDeleted int64
	for _, c := range copiers {
		if _, err := s.archiver.ArchiveCopierLogs(ctx, c.ID, cutoff); err != nil {
			log.Error().Err(err).Str("copier", c.ID).Msg("retention sweep: archive failed, skipping delete")
			continue
		}
		deleted, err := s.gw.DeleteArchivedExecutionLogsForCopier(ctx, c.ID, cutoff)
		if err != nil {
			log.Error().Err(err).Str("copier", c.ID).Msg("retention sweep: delete failed")
			continue
		}
		totalDeleted += deleted
	}
	log.Info().Int64("deleted", totalDeleted).Msg("retention sweep complete")
}

// RecoverOnStartup re-subscribes every persisted-ACTIVE copier. Safe to
// call exactly once during process startup, before the HTTP surface
// starts accepting requests.
func (s *Scheduler) RecoverOnStartup(ctx context.Context) {
	s.eng.RecoverActiveCopiers(ctx)
}

// Package scheduler runs the nightly import on a cron schedule, guarded by
// the redis lock so only one replica imports at a time.
package scheduler

import (
	"context"
	"time"

	"github.com/officepulse/officepulse/internal/config"
	"github.com/officepulse/officepulse/internal/distlock"
	"github.com/officepulse/officepulse/internal/usagereport"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Settings *config.ImportSettingsHolder
	Importer *usagereport.Importer
	Locker   *distlock.Locker `optional:"true"`
}

// Scheduler owns the cron entry for the import run.
type Scheduler struct {
	log      *zap.Logger
	settings *config.ImportSettingsHolder
	importer *usagereport.Importer
	locker   *distlock.Locker
	cron     *cron.Cron
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:      p.Log.Named("scheduler"),
		settings: p.Settings,
		importer: p.Importer,
		locker:   p.Locker,
		cron:     cron.New(),
	}
}

// Start registers the import job and starts the cron loop.
func (s *Scheduler) Start() error {
	schedule := s.settings.Get().Schedule
	if _, err := s.cron.AddFunc(schedule, s.runImport); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("import schedule registered", zap.String("schedule", schedule))
	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runImport() {
	settings := s.settings.Get()
	ctx := context.Background()

	if s.locker != nil {
		ttl := time.Duration(settings.LockTTLMin) * time.Minute
		token, ok, err := s.locker.TryLock(ctx, distlock.ImportLockKey, ttl)
		if err != nil {
			s.log.Error("import lock error", zap.Error(err))
			return
		}
		if !ok {
			s.log.Info("import already running elsewhere; skipping")
			return
		}
		defer func() {
			if err := s.locker.Release(ctx, distlock.ImportLockKey, token); err != nil {
				s.log.Warn("import lock release failed", zap.Error(err))
			}
		}()
	}

	started := time.Now()
	stats, err := s.importer.RunImport(ctx, settings.LookbackDays)
	if err != nil {
		s.log.Error("scheduled import failed", zap.Error(err))
		return
	}
	s.log.Info("scheduled import finished",
		zap.Duration("took", time.Since(started)),
		zap.Int("persisted", stats.TotalPersisted()))
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron"

	"github.com/edusync/moodle-sync/internal/ingest"
	"github.com/edusync/moodle-sync/internal/moodle"
	"github.com/edusync/moodle-sync/internal/platform/logger"
	"github.com/edusync/moodle-sync/internal/platform/mailer"
)

// ErrRunInProgress is returned when a run is requested while another
// one is still going; runs never overlap (single writer per run).
var ErrRunInProgress = errors.New("sync run already in progress")

// SyncService fetches the moodle feed, reconciles it against the
// store, and alerts operators when a run fails.
type SyncService interface {
	RunOnce(ctx context.Context) (ingest.RunStats, error)
	StartSchedule(spec string) error
	StopSchedule()
}

// Reconciler runs one reconciliation over a fetched batch. The ingest
// engine is the production implementation.
type Reconciler interface {
	Run(ctx context.Context, batch *moodle.Batch, providedPaths map[string]string) (ingest.RunStats, error)
}

type syncService struct {
	log    *logger.Logger
	feed   moodle.FeedClient
	engine Reconciler
	mail   mailer.Client
	cron   *cron.Cron
	mu     sync.Mutex
}

// NewSyncService wires the service. mail may be nil; failures are then
// only logged.
func NewSyncService(baseLog *logger.Logger, feed moodle.FeedClient, engine Reconciler, mail mailer.Client) SyncService {
	return &syncService{
		log:    baseLog.With("service", "SyncService"),
		feed:   feed,
		engine: engine,
		mail:   mail,
	}
}

func (s *syncService) RunOnce(ctx context.Context) (ingest.RunStats, error) {
	if !s.mu.TryLock() {
		return ingest.RunStats{}, ErrRunInProgress
	}
	defer s.mu.Unlock()

	batch, err := s.feed.Fetch(ctx)
	if err != nil {
		s.notifyFailure(ctx, err)
		return ingest.RunStats{}, err
	}

	stats, err := s.engine.Run(ctx, batch, nil)
	if err != nil {
		s.notifyFailure(ctx, err)
		return stats, err
	}

	s.log.Info("sync run finished",
		"files", stats.Files,
		"tasks", stats.Tasks,
		"published", stats.Published,
	)
	return stats, nil
}

func (s *syncService) notifyFailure(ctx context.Context, runErr error) {
	s.log.Error("sync run failed", "error", runErr)
	if s.mail == nil {
		s.log.Warn("no mailer configured, skipping failure alert")
		return
	}
	subject := "Something went wrong when syncing data from moodle"
	body := fmt.Sprintf("The moodle sync run failed:\n\n%v\n", runErr)
	if err := s.mail.SendAlert(ctx, subject, body); err != nil {
		s.log.Error("failed to send failure alert", "error", err)
	}
}

// StartSchedule runs the sync on a cron schedule until StopSchedule.
func (s *syncService) StartSchedule(spec string) error {
	if s.cron != nil {
		return fmt.Errorf("schedule already started")
	}
	c := cron.New()
	err := c.AddFunc(spec, func() {
		if _, err := s.RunOnce(context.Background()); err != nil && !errors.Is(err, ErrRunInProgress) {
			s.log.Error("scheduled sync run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("bad schedule %q: %w", spec, err)
	}
	s.cron = c
	c.Start()
	s.log.Info("sync schedule started", "spec", spec)
	return nil
}

func (s *syncService) StopSchedule() {
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
}

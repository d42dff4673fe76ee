package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/linesmerrill/activities-api/databases"
	"github.com/linesmerrill/activities-api/membership"
)

const reconcileJob = "reconcile_membership"

// Reconciler is the membership pass the scheduler runs
type Reconciler interface {
	Reconcile(ctx context.Context) (membership.ReconcileReport, error)
}

// Scheduler handles periodic background jobs
type Scheduler struct {
	cron       *cron.Cron
	Reconciler Reconciler
	LockDB     databases.SchedulerLockDatabase
	schedule   string
	lockTTL    time.Duration
	instanceID string
}

// NewScheduler creates a new scheduler instance
func NewScheduler(reconciler Reconciler, lockDB databases.SchedulerLockDatabase, schedule string, lockTTL time.Duration) *Scheduler {
	// Heroku sets DYNO to "web.1", "web.2", etc.
	instanceID := os.Getenv("DYNO")
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		Reconciler: reconciler,
		LockDB:     lockDB,
		schedule:   schedule,
		lockTTL:    lockTTL,
		instanceID: instanceID,
	}
}

// Start registers the jobs and begins the scheduler
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.reconcileMembership); err != nil {
		return fmt.Errorf("failed to register reconcile job: %w", err)
	}
	s.cron.Start()
	zap.S().Infow("scheduler started", "instance", s.instanceID, "reconcileSchedule", s.schedule)
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("scheduler stopped")
}

// reconcileMembership runs one reconciliation pass on whichever instance holds the lease
func (s *Scheduler) reconcileMembership() {
	ctx, cancel := context.WithTimeout(context.Background(), s.lockTTL)
	defer cancel()

	acquired, err := s.LockDB.TryAcquireLock(ctx, reconcileJob, s.instanceID, s.lockTTL)
	if err != nil {
		zap.S().Errorw("failed to acquire lock for reconcile job", "error", err)
		return
	}
	if !acquired {
		zap.S().Debug("reconcile job already running on another instance, skipping")
		return
	}
	defer func() {
		if err := s.LockDB.ReleaseLock(context.Background(), reconcileJob, s.instanceID); err != nil {
			zap.S().Warnw("failed to release reconcile lock", "error", err)
		}
	}()

	zap.S().Infow("running membership reconciliation", "instance", s.instanceID)
	if _, err := s.Reconciler.Reconcile(ctx); err != nil {
		zap.S().Errorw("membership reconciliation failed", "error", err)
	}
}

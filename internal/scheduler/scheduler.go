package scheduler

import (
	"context"
	"fmt"

	"github.com/blogsphere/backend/internal/jobs"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Start schedules the maintenance jobs and starts the cron runner.
// Callers stop it with Stop on shutdown.
func Start(reconcileSchedule string, reconciler *jobs.LikeReconciler) (*cron.Cron, error) {
	c := cron.New()

	// Like counter repair
	if _, err := c.AddFunc(reconcileSchedule, func() {
		if _, err := reconciler.Run(context.Background()); err != nil {
			logrus.WithError(err).Error("LikeReconciler failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", reconcileSchedule, err)
	}

	c.Start()
	logrus.WithField("schedule", reconcileSchedule).Info("Scheduler started")
	return c, nil
}

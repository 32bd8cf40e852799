package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// LikeCountReconciler repairs blogs whose like counter drifted from their liked-by set.
type LikeCountReconciler interface {
	ReconcileLikeCounts(ctx context.Context) (int64, error)
}

type LikeReconciler struct {
	Blogs   LikeCountReconciler
	Timeout time.Duration
}

// NewLikeReconciler creates a new instance of LikeReconciler
func NewLikeReconciler(blogs LikeCountReconciler) *LikeReconciler {
	return &LikeReconciler{Blogs: blogs, Timeout: time.Minute}
}

// Run sets like to the size of liked_by on every blog where the two disagree.
// Documents written before like became a projection of the set are the usual offenders.
func (j *LikeReconciler) Run(ctx context.Context) (int64, error) {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	fixed, err := j.Blogs.ReconcileLikeCounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("like reconcile failed: %w", err)
	}

	entry := logrus.WithField("fixed", fixed)
	if fixed > 0 {
		entry.Warn("Like counters repaired")
	} else {
		entry.Debug("Like counters consistent")
	}
	return fixed, nil
}

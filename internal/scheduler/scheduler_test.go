package scheduler

import (
	"context"
	"testing"

	"github.com/blogsphere/backend/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopReconciler struct{}

func (noopReconciler) ReconcileLikeCounts(context.Context) (int64, error) { return 0, nil }

func TestStartSchedulesReconciler(t *testing.T) {
	c, err := Start("@hourly", jobs.NewLikeReconciler(noopReconciler{}))
	require.NoError(t, err)
	defer c.Stop()

	assert.Len(t, c.Entries(), 1)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	_, err := Start("every now and then", jobs.NewLikeReconciler(noopReconciler{}))
	assert.Error(t, err)
}

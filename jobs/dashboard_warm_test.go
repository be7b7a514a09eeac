package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/dashboard"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"
)

type stubDashboardSources struct {
	rows     []dashboard.StatRow
	ceilings []dashboard.CeilingRow
	err      error
	years    []int
}

func (s *stubDashboardSources) ListStatRows(ctx context.Context) ([]dashboard.StatRow, error) {
	return s.rows, s.err
}

func (s *stubDashboardSources) ListCeilingRows(ctx context.Context, year int) ([]dashboard.CeilingRow, error) {
	s.years = append(s.years, year)
	return s.ceilings, s.err
}

func TestDashboardWarmHandleDefaultsToCurrentYear(t *testing.T) {
	sources := &stubDashboardSources{}
	svc := dashboard.NewService(sources, sources, nil, nil)
	job := NewDashboardWarmJob(svc, nil, nil)

	task, err := NewDashboardWarmTask(DashboardWarmPayload{})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, sources.years, 1)
	require.Equal(t, job.now().Year(), sources.years[0])
}

func TestDashboardWarmHandleUsesPayloadYear(t *testing.T) {
	sources := &stubDashboardSources{}
	svc := dashboard.NewService(sources, sources, nil, nil)
	job := NewDashboardWarmJob(svc, nil, nil)

	task, err := NewDashboardWarmTask(DashboardWarmPayload{Year: 2024})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []int{2024}, sources.years)
}

func TestDashboardWarmHandlePropagatesSourceFailure(t *testing.T) {
	sources := &stubDashboardSources{err: errors.New("pool exhausted")}
	svc := dashboard.NewService(sources, sources, nil, nil)
	job := NewDashboardWarmJob(svc, nil, nil)

	task, err := NewDashboardWarmTask(DashboardWarmPayload{Year: 2025})
	require.NoError(t, err)

	require.Error(t, job.Handle(context.Background(), task))
}

func TestDashboardWarmHandleSkipsRetryOnMalformedPayload(t *testing.T) {
	sources := &stubDashboardSources{}
	svc := dashboard.NewService(sources, sources, nil, nil)
	job := NewDashboardWarmJob(svc, nil, nil)

	task := asynq.NewTask(TaskDashboardWarm, []byte("{not json"))
	err := job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestIdempotencyCleanupSkipsRetryOnMalformedPayload(t *testing.T) {
	job := NewIdempotencyCleanupJob(shared.NewIdempotencyStore(nil), nil, nil)

	task := asynq.NewTask(TaskIdempotencyCleanup, []byte("{not json"))
	err := job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

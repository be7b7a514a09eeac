package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"
)

type stubSources struct {
	rows     []StatRow
	ceilings []CeilingRow
}

func (s *stubSources) ListStatRows(ctx context.Context) ([]StatRow, error) {
	return s.rows, nil
}

func (s *stubSources) ListCeilingRows(ctx context.Context, year int) ([]CeilingRow, error) {
	var out []CeilingRow
	for _, c := range s.ceilings {
		if c.Year == year {
			out = append(out, c)
		}
	}
	return out, nil
}

type staticInsight struct {
	text string
}

func (s *staticInsight) DashboardInsight(ctx context.Context, stats Stats) string {
	return s.text
}

func newStubService(src *stubSources) *Service {
	return NewService(src, src, nil, nil)
}

func globalActor() *shared.Actor {
	return &shared.Actor{ID: "a-1", Role: shared.RoleAdmin}
}

func scopedActor(dept string) *shared.Actor {
	return &shared.Actor{ID: "p-1", Role: shared.RolePengaju, Department: dept}
}

func datePtr(t time.Time) *time.Time { return &t }

func TestOfficeCeilingTotalIgnoresCallerScope(t *testing.T) {
	src := &stubSources{ceilings: []CeilingRow{
		{Department: "Bidang Pengendalian Pencemaran", ROCode: "FBA", Amount: 10_000_000, Year: 2024},
		{Department: "Bidang Tata Lingkungan", ROCode: "EBA", Amount: 5_000_000, Year: 2024},
	}}
	svc := newStubService(src)
	ctx := context.Background()

	scoped, err := svc.Stats(ctx, scopedActor("Bidang Pengendalian Pencemaran"), 2024)
	require.NoError(t, err)
	require.Equal(t, 15_000_000.0, scoped.TotalOfficeCeiling)
	// But the scoped caller only gets their own department's rollup.
	require.Len(t, scoped.DeptBudgets, 1)
	require.Equal(t, "Bidang Pengendalian Pencemaran", scoped.DeptBudgets[0].Name)

	global, err := svc.Stats(ctx, globalActor(), 2024)
	require.NoError(t, err)
	require.Equal(t, 15_000_000.0, global.TotalOfficeCeiling)
	require.Len(t, global.DeptBudgets, 2)
}

func TestScalarTotalsOnlyCountAuthorizedRows(t *testing.T) {
	src := &stubSources{
		rows: []StatRow{
			{Amount: 2_000_000, Status: "pending", Department: "Bidang Pengendalian Pencemaran", CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
			{Amount: 3_000_000, Status: "approved", Department: "Bidang Pengendalian Pencemaran", CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
			{Amount: 9_000_000, Status: "rejected", Department: "Bidang Tata Lingkungan", CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		},
	}
	svc := newStubService(src)
	ctx := context.Background()

	scoped, err := svc.Stats(ctx, scopedActor("Bidang Pengendalian Pencemaran"), 2024)
	require.NoError(t, err)
	require.Equal(t, 5_000_000.0, scoped.TotalAmount)
	require.Equal(t, 2, scoped.TotalCount)
	require.Equal(t, 1, scoped.PendingCount)
	require.Equal(t, 3_000_000.0, scoped.ApprovedAmount)
	require.Equal(t, 0, scoped.RejectedCount)

	global, err := svc.Stats(ctx, globalActor(), 2024)
	require.NoError(t, err)
	require.Equal(t, 14_000_000.0, global.TotalAmount)
	require.Equal(t, 1, global.RejectedCount)
}

func TestRollupsUseFuzzyDepartmentMatchingAndClampRemaining(t *testing.T) {
	src := &stubSources{
		ceilings: []CeilingRow{
			{Department: "Bidang Wilayah I", ROCode: "FBA.962", Amount: 4_000_000, Year: 2024},
		},
		rows: []StatRow{
			// Free-text department with extra qualifiers still matches.
			{
				Amount: 6_000_000, Status: "approved",
				Department: "bidang wilayah I - Seksi Pemantauan",
				CreatedAt:  time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
				Items:      []ItemLine{{ROCode: "fba.962", Jumlah: 6_000_000}},
			},
			// Rejected requests never count as proposed spend.
			{
				Amount: 1_000_000, Status: "rejected",
				Department: "Bidang Wilayah I",
				CreatedAt:  time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
			},
		},
	}
	svc := newStubService(src)

	stats, err := svc.Stats(context.Background(), globalActor(), 2024)
	require.NoError(t, err)
	require.Len(t, stats.DeptBudgets, 1)

	dept := stats.DeptBudgets[0]
	require.Equal(t, 6_000_000.0, dept.Spent)
	// Overspend clamps to zero in rollups.
	require.Equal(t, 0.0, dept.Remaining)
	require.Equal(t, 4_000_000.0, dept.FBA.Total)
	require.Equal(t, 6_000_000.0, dept.FBA.Spent)
	require.Equal(t, 0.0, dept.FBA.Remaining)
	require.Equal(t, 0.0, dept.BDH.Total)
}

func TestMonthlyTrendBuckets(t *testing.T) {
	src := &stubSources{rows: []StatRow{
		{Amount: 1_000_000, Status: "pending", Department: "Bidang Wilayah I", CreatedAt: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
		{Amount: 2_000_000, Status: "approved", Department: "Bidang Wilayah I",
			CreatedAt:       time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
			RealizationDate: datePtr(time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC))},
	}}
	svc := newStubService(src)

	stats, err := svc.Stats(context.Background(), globalActor(), 2024)
	require.NoError(t, err)
	require.Len(t, stats.MonthlyTrend, 12)
	require.Equal(t, "Jan", stats.MonthlyTrend[0].Name)
	require.Equal(t, "Des", stats.MonthlyTrend[11].Name)
	require.Equal(t, 3_000_000.0, stats.MonthlyTrend[0].Amount)
	// Realized bucket follows the realization date, full request amount.
	require.Equal(t, 2_000_000.0, stats.MonthlyTrend[3].Realized)
	require.Equal(t, 0.0, stats.MonthlyTrend[0].Realized)
}

func TestQueueCountsRealizedPrecedence(t *testing.T) {
	src := &stubSources{
		ceilings: []CeilingRow{
			{Department: "Bidang Wilayah I", ROCode: "FBA", Amount: 1, Year: 2024},
		},
		rows: []StatRow{
			{Amount: 1, Status: "approved", Department: "Bidang Wilayah I", CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
			// Realization recorded: counts in the synthetic realized
			// bucket, not under its raw status.
			{Amount: 1, Status: "approved", Department: "Bidang Wilayah I",
				CreatedAt:       time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
				RealizationDate: datePtr(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))},
			{Amount: 1, Status: "pending", Department: "Bidang Wilayah I", CreatedAt: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)},
		},
	}
	svc := newStubService(src)

	stats, err := svc.Stats(context.Background(), globalActor(), 2024)
	require.NoError(t, err)
	require.Len(t, stats.DeptBudgets, 1)
	queue := stats.DeptBudgets[0].Queue
	require.Equal(t, 1, queue["approved"])
	require.Equal(t, 1, queue["realized"])
	require.Equal(t, 1, queue["pending"])
}

func TestCategoryDistributionAndDeptSummaries(t *testing.T) {
	src := &stubSources{
		ceilings: []CeilingRow{{Department: "Bagian Tata Usaha", ROCode: "EBA", Amount: 10, Year: 2024}},
		rows: []StatRow{
			{Amount: 100, Status: "approved", Category: "Perjalanan Dinas", Department: "Bagian Tata Usaha",
				CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), RealizationAmount: 90,
				RealizationDate: datePtr(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))},
			{Amount: 50, Status: "pending", Category: "Perjalanan Dinas", Department: "Bagian Tata Usaha",
				CreatedAt: time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)},
		},
	}
	svc := newStubService(src)

	stats, err := svc.Stats(context.Background(), globalActor(), 2024)
	require.NoError(t, err)
	require.Len(t, stats.Categories, 1)
	require.Equal(t, 150.0, stats.Categories[0].Value)

	require.Len(t, stats.Departments, 1)
	require.Equal(t, 150.0, stats.Departments[0].Proposed)
	require.Equal(t, 90.0, stats.Departments[0].Realized)
	require.True(t, stats.DeptBudgets[0].IsTU)
}

func TestInsightUsesCollaborator(t *testing.T) {
	svc := NewService(&stubSources{}, &stubSources{}, &staticInsight{text: "Serapan anggaran berjalan baik."}, nil)
	text, err := svc.Insight(context.Background(), globalActor(), 2024)
	require.NoError(t, err)
	require.Equal(t, "Serapan anggaran berjalan baik.", text)
}

package ceiling

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"
)

type memoryCeilingRepo struct {
	rows   map[Key]BudgetCeiling
	nextID int
}

func newMemoryCeilingRepo() *memoryCeilingRepo {
	return &memoryCeilingRepo{rows: make(map[Key]BudgetCeiling)}
}

func (r *memoryCeilingRepo) Upsert(ctx context.Context, input UpsertInput) (BudgetCeiling, error) {
	key := Key{
		Department:      input.Department,
		ROCode:          input.ROCode,
		KomponenCode:    input.KomponenCode,
		SubkomponenCode: input.SubkomponenCode,
		Year:            input.Year,
	}
	row, ok := r.rows[key]
	if !ok {
		r.nextID++
		row = BudgetCeiling{
			ID:              strconv.Itoa(r.nextID),
			Department:      input.Department,
			ROCode:          input.ROCode,
			KomponenCode:    input.KomponenCode,
			SubkomponenCode: input.SubkomponenCode,
			Year:            input.Year,
		}
	}
	row.Amount = input.Amount
	r.rows[key] = row
	return row, nil
}

func (r *memoryCeilingRepo) ListByYear(ctx context.Context, year int) ([]BudgetCeiling, error) {
	var out []BudgetCeiling
	for _, row := range r.rows {
		if row.Year == year {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memoryCeilingRepo) Get(ctx context.Context, id string) (BudgetCeiling, error) {
	for _, row := range r.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return BudgetCeiling{}, ErrNotFound
}

func (r *memoryCeilingRepo) Delete(ctx context.Context, id string) error {
	for key, row := range r.rows {
		if row.ID == id {
			delete(r.rows, key)
			return nil
		}
	}
	return ErrNotFound
}

type stubCommittedItems struct {
	items []CommittedItem
}

func (s *stubCommittedItems) ListCommittedItems(ctx context.Context) ([]CommittedItem, error) {
	return s.items, nil
}

type stubInvalidator struct {
	bumps int
}

func (s *stubInvalidator) Invalidate(ctx context.Context) error {
	s.bumps++
	return nil
}

func adminActor() *shared.Actor {
	return &shared.Actor{ID: "admin-1", Name: "Admin", Role: shared.RoleAdmin}
}

func TestUpsertEnforcesCompositeKeyUniqueness(t *testing.T) {
	repo := newMemoryCeilingRepo()
	svc := NewService(repo, &stubCommittedItems{}, nil, nil)
	ctx := context.Background()

	input := UpsertInput{Department: "Bidang Wilayah I", ROCode: "FBA", KomponenCode: "051", SubkomponenCode: "A", Amount: 5_000_000, Year: 2024}
	first, err := svc.Upsert(ctx, adminActor(), input)
	require.NoError(t, err)

	input.Amount = 8_000_000
	second, err := svc.Upsert(ctx, adminActor(), input)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	rows, err := svc.ListByYear(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 8_000_000.0, rows[0].Amount)
}

func TestUpsertValidation(t *testing.T) {
	svc := NewService(newMemoryCeilingRepo(), &stubCommittedItems{}, nil, nil)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, adminActor(), UpsertInput{Department: "", ROCode: "FBA", Amount: 100, Year: 2024})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Upsert(ctx, adminActor(), UpsertInput{Department: "Bidang Wilayah I", ROCode: "FBA", Amount: 0, Year: 2024})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Upsert(ctx, adminActor(), UpsertInput{Department: "Bidang Wilayah I", ROCode: " ", Amount: 100, Year: 2024})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUtilizationMatchesCommittedItemsOnly(t *testing.T) {
	repo := newMemoryCeilingRepo()
	committed := &stubCommittedItems{items: []CommittedItem{
		{Department: "Bidang Wilayah I", ROCode: "FBA", KomponenCode: "051", SubkomponenCode: "A", Jumlah: 4_000_000},
		// Different sub-component must not count against the tuple.
		{Department: "Bidang Wilayah I", ROCode: "FBA", KomponenCode: "051", SubkomponenCode: "B", Jumlah: 1_000_000},
		// Different department must not count either.
		{Department: "Bidang Wilayah II", ROCode: "FBA", KomponenCode: "051", SubkomponenCode: "A", Jumlah: 2_000_000},
	}}
	svc := NewService(repo, committed, nil, nil)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, adminActor(), UpsertInput{
		Department: "Bidang Wilayah I", ROCode: "FBA", KomponenCode: "051", SubkomponenCode: "A",
		Amount: 10_000_000, Year: 2024,
	})
	require.NoError(t, err)

	out, err := svc.UtilizationByYear(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, 4_000_000.0, out[0].Spent)
	require.Equal(t, 6_000_000.0, out[0].Sisa)
	require.InDelta(t, 40.0, out[0].Percent, 0.001)
}

func TestUtilizationAllowsNegativeSisa(t *testing.T) {
	repo := newMemoryCeilingRepo()
	committed := &stubCommittedItems{items: []CommittedItem{
		{Department: "Bagian Tata Usaha", ROCode: "EBA", KomponenCode: "", SubkomponenCode: "", Jumlah: 3_000_000},
	}}
	svc := NewService(repo, committed, nil, nil)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, adminActor(), UpsertInput{
		Department: "Bagian Tata Usaha", ROCode: "EBA", Amount: 2_000_000, Year: 2024,
	})
	require.NoError(t, err)

	out, err := svc.UtilizationByYear(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, out, 1)
	// Detail view keeps the signed overspend visible.
	require.Equal(t, -1_000_000.0, out[0].Sisa)
	require.InDelta(t, 150.0, out[0].Percent, 0.001)
}

func TestWritesInvalidateDashboardCache(t *testing.T) {
	repo := newMemoryCeilingRepo()
	bumper := &stubInvalidator{}
	svc := NewService(repo, &stubCommittedItems{}, nil, bumper)
	ctx := context.Background()

	saved, err := svc.Upsert(ctx, adminActor(), UpsertInput{
		Department: "Bidang Wilayah I", ROCode: "FBA", KomponenCode: "051", SubkomponenCode: "A",
		Amount: 5_000_000, Year: 2024,
	})
	require.NoError(t, err)
	require.Equal(t, 1, bumper.bumps)

	// Reads leave the cache version alone.
	_, err = svc.ListByYear(ctx, 2024)
	require.NoError(t, err)
	require.Equal(t, 1, bumper.bumps)

	require.NoError(t, svc.Delete(ctx, adminActor(), saved.ID))
	require.Equal(t, 2, bumper.bumps)

	// Rejected writes do not bump.
	_, err = svc.Upsert(ctx, adminActor(), UpsertInput{Department: "", ROCode: "FBA", Amount: 100, Year: 2024})
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, 2, bumper.bumps)
}

package request

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"
)

func TestNextStatusForwardEdges(t *testing.T) {
	require.Equal(t, StatusReviewedBidang, NextStatus(StatusPending))
	require.Equal(t, StatusReviewedProgram, NextStatus(StatusReviewedBidang))
	require.Equal(t, StatusReviewedTU, NextStatus(StatusReviewedProgram))
	require.Equal(t, StatusApproved, NextStatus(StatusReviewedTU))
	require.Equal(t, StatusReviewedPIC, NextStatus(StatusApproved))

	// Terminal and pre-submission states have no forward edge.
	require.Equal(t, StatusDraft, NextStatus(StatusDraft))
	require.Equal(t, StatusRejected, NextStatus(StatusRejected))
	require.Equal(t, StatusReviewedPIC, NextStatus(StatusReviewedPIC))
}

func TestCanActGatesByStageOwner(t *testing.T) {
	cases := []struct {
		status Status
		owner  shared.Role
	}{
		{StatusPending, shared.RoleKepalaBidang},
		{StatusReviewedBidang, shared.RoleValidatorProgram},
		{StatusReviewedProgram, shared.RoleValidatorTU},
		{StatusReviewedTU, shared.RoleValidatorPPK},
	}
	for _, tc := range cases {
		require.True(t, CanAct(tc.owner, tc.status), "owner %s should act on %s", tc.owner, tc.status)
		for _, role := range shared.AllRoles() {
			if role == tc.owner || role == shared.RoleAdmin {
				continue
			}
			require.False(t, CanAct(role, tc.status), "role %s must not act on %s", role, tc.status)
		}
	}
}

func TestCanActPICVariants(t *testing.T) {
	for _, role := range []shared.Role{shared.RolePICVerifikator, shared.RolePICTU, shared.RolePICWilayah1, shared.RolePICWilayah2, shared.RolePICWilayah3} {
		require.True(t, CanAct(role, StatusApproved))
		require.False(t, CanAct(role, StatusPending))
	}
	require.False(t, CanAct(shared.RoleValidatorPPK, StatusApproved))
}

func TestCanActAdminEverywhere(t *testing.T) {
	for _, status := range AllStatuses() {
		require.True(t, CanAct(shared.RoleAdmin, status))
	}
}

func TestNoteColumnPerStage(t *testing.T) {
	col, ok := NoteColumn(StatusPending)
	require.True(t, ok)
	require.Equal(t, NoteColumnProgram, col)

	col, ok = NoteColumn(StatusReviewedBidang)
	require.True(t, ok)
	require.Equal(t, NoteColumnProgram, col)

	col, ok = NoteColumn(StatusReviewedProgram)
	require.True(t, ok)
	require.Equal(t, NoteColumnTU, col)

	col, ok = NoteColumn(StatusReviewedTU)
	require.True(t, ok)
	require.Equal(t, NoteColumnPPK, col)

	col, ok = NoteColumn(StatusApproved)
	require.True(t, ok)
	require.Equal(t, NoteColumnPIC, col)

	_, ok = NoteColumn(StatusRejected)
	require.False(t, ok)
}

func TestInitialStatusExemptDepartments(t *testing.T) {
	require.Equal(t, StatusDraft, InitialStatus(false, "Bidang Wilayah I"))
	require.Equal(t, StatusPending, InitialStatus(true, "Bidang Wilayah I"))
	for _, dept := range SkipStructuralApprovalDepts {
		require.Equal(t, StatusReviewedBidang, InitialStatus(true, dept))
	}
	// Exemption is exact-match on canonical names, not fuzzy.
	require.Equal(t, StatusPending, InitialStatus(true, "bagian tata usaha"))
}

func TestNormalizeRecomputesDerivedFields(t *testing.T) {
	item := CalculationItem{F1Val: 2, F2Val: 3, F3Val: 0, F4Val: 4, HargaSatuan: 1500, Jumlah: 999}
	item.Normalize()
	// Zero factor defaults to 1.
	require.Equal(t, 24.0, item.VolKeg)
	require.Equal(t, 36_000.0, item.Jumlah)

	// A caller-supplied volume stands as a manual override, but the
	// line total is still recomputed from it.
	override := CalculationItem{F1Val: 2, F2Val: 2, VolKeg: 10, HargaSatuan: 100, Jumlah: 1}
	override.Normalize()
	require.Equal(t, 10.0, override.VolKeg)
	require.Equal(t, 1_000.0, override.Jumlah)
}

func TestStatusHelpers(t *testing.T) {
	require.True(t, StatusApproved.Committed())
	require.True(t, StatusReviewedPIC.Committed())
	require.False(t, StatusPending.Committed())
	require.True(t, StatusRejected.Terminal())
	require.True(t, StatusReviewedPIC.Terminal())
	require.False(t, StatusApproved.Terminal())
	require.False(t, Status("paid").Valid())
}

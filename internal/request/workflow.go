package request

import "github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"

// NoteColumnProgram and friends name the reviewer-note columns owned by
// each review stage. UpdateStatus only accepts these values.
const (
	NoteColumnProgram = "program_note"
	NoteColumnTU      = "tu_note"
	NoteColumnPPK     = "ppk_note"
	NoteColumnPIC     = "pic_note"
)

// NextStatus returns the forward edge from the given status, or the
// status itself when no forward edge exists.
func NextStatus(current Status) Status {
	switch current {
	case StatusPending:
		return StatusReviewedBidang
	case StatusReviewedBidang:
		return StatusReviewedProgram
	case StatusReviewedProgram:
		return StatusReviewedTU
	case StatusReviewedTU:
		return StatusApproved
	case StatusApproved:
		return StatusReviewedPIC
	default:
		return current
	}
}

// StageOwner returns the role that owns the review decision at the
// given status. Admin additionally owns every stage (see CanAct); the
// approved stage is owned by any department-scoped PIC variant rather
// than a single role, signalled here by the pic_verifikator value.
func StageOwner(current Status) (shared.Role, bool) {
	switch current {
	case StatusPending:
		return shared.RoleKepalaBidang, true
	case StatusReviewedBidang:
		return shared.RoleValidatorProgram, true
	case StatusReviewedProgram:
		return shared.RoleValidatorTU, true
	case StatusReviewedTU:
		return shared.RoleValidatorPPK, true
	case StatusApproved:
		return shared.RolePICVerifikator, true
	default:
		return "", false
	}
}

// CanAct reports whether the role may decide (approve or reject) a
// request sitting at the given status.
func CanAct(role shared.Role, current Status) bool {
	if role == shared.RoleAdmin {
		return true
	}
	switch current {
	case StatusPending:
		return role == shared.RoleKepalaBidang
	case StatusReviewedBidang:
		return role == shared.RoleValidatorProgram
	case StatusReviewedProgram:
		return role == shared.RoleValidatorTU
	case StatusReviewedTU:
		return role == shared.RoleValidatorPPK
	case StatusApproved:
		return role.IsPIC()
	default:
		return false
	}
}

// NoteColumn maps the status being decided to the reviewer-note column
// the deciding stage writes into.
func NoteColumn(current Status) (string, bool) {
	switch current {
	case StatusPending, StatusReviewedBidang:
		return NoteColumnProgram, true
	case StatusReviewedProgram:
		return NoteColumnTU, true
	case StatusReviewedTU:
		return NoteColumnPPK, true
	case StatusApproved:
		return NoteColumnPIC, true
	default:
		return "", false
	}
}

// InitialStatus resolves the status a new submission enters the chain
// with. Draft saves stay draft; submissions from structurally exempt
// departments skip the kepala bidang stage.
func InitialStatus(submit bool, department string) Status {
	if !submit {
		return StatusDraft
	}
	if StructurallyExempt(department) {
		return StatusReviewedBidang
	}
	return StatusPending
}

package request

import (
	"errors"
	"time"
)

// Status is the budget-request lifecycle state.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPending         Status = "pending"
	StatusReviewedBidang  Status = "reviewed_bidang"
	StatusReviewedProgram Status = "reviewed_program"
	StatusReviewedTU      Status = "reviewed_tu"
	StatusApproved        Status = "approved"
	StatusReviewedPIC     Status = "reviewed_pic"
	StatusRejected        Status = "rejected"
)

// AllStatuses lists every recognised lifecycle state.
func AllStatuses() []Status {
	return []Status{
		StatusDraft,
		StatusPending,
		StatusReviewedBidang,
		StatusReviewedProgram,
		StatusReviewedTU,
		StatusApproved,
		StatusReviewedPIC,
		StatusRejected,
	}
}

// Valid reports whether the status is a recognised value.
func (s Status) Valid() bool {
	for _, known := range AllStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// Committed reports whether the request counts as committed spend
// against the budget ceiling.
func (s Status) Committed() bool {
	return s == StatusApproved || s == StatusReviewedPIC
}

// Terminal reports whether no forward transition exists from s.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusReviewedPIC
}

// SkipStructuralApprovalDepts lists the central office and its
// administrative sub-units. Submissions from these departments have no
// kepala bidang above them, so they enter the chain at reviewed_bidang.
var SkipStructuralApprovalDepts = []string{
	"PUSDAL LH SUMA",
	"Bagian Tata Usaha",
	"Sub Bagian Program & Anggaran",
	"Sub Bagian Kehumasan",
	"Sub Bagian Kepegawaian",
	"Sub Bagian Keuangan",
}

// EquipmentCategory marks purchases that need no travel order (SPPD)
// or activity report in the accountability bundle.
const EquipmentCategory = "Peralatan Kantor"

// StructurallyExempt reports whether a department belongs to the
// skip-structural-approval set. Matching is exact, not fuzzy: the set
// holds canonical names assigned by the admin, not free text.
func StructurallyExempt(department string) bool {
	for _, d := range SkipStructuralApprovalDepts {
		if department == d {
			return true
		}
	}
	return false
}

// CalculationItem is one budget line within a request. VolKeg is the
// activity volume (product of the four factor values unless manually
// overridden) and Jumlah the line total (volume times unit price).
type CalculationItem struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	DetailBarang    string  `json:"detail_barang,omitempty"`
	KROCode         string  `json:"kro_code"`
	ROCode          string  `json:"ro_code"`
	KomponenCode    string  `json:"komponen_code"`
	SubkomponenCode string  `json:"subkomponen_code"`
	KodeAkun        string  `json:"kode_akun"`
	F1Val           float64 `json:"f1_val"`
	F1Unit          string  `json:"f1_unit"`
	F2Val           float64 `json:"f2_val"`
	F2Unit          string  `json:"f2_unit"`
	F3Val           float64 `json:"f3_val"`
	F3Unit          string  `json:"f3_unit"`
	F4Val           float64 `json:"f4_val"`
	F4Unit          string  `json:"f4_unit"`
	VolKeg          float64 `json:"volkeg"`
	SatKeg          string  `json:"satkeg"`
	HargaSatuan     float64 `json:"hargaSatuan"`
	Jumlah          float64 `json:"jumlah"`
}

// Normalize recomputes the derived fields server-side so caller-supplied
// totals are never trusted. A zero volume is derived from the four
// factors (each defaulting to 1); a positive volume stands as a manual
// override. Jumlah is always volume times unit price.
func (i *CalculationItem) Normalize() {
	if i.VolKeg <= 0 {
		i.VolKeg = factorOr1(i.F1Val) * factorOr1(i.F2Val) * factorOr1(i.F3Val) * factorOr1(i.F4Val)
	}
	if i.HargaSatuan < 0 {
		i.HargaSatuan = 0
	}
	i.Jumlah = i.VolKeg * i.HargaSatuan
}

func factorOr1(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}

// TotalAmount sums line totals after normalisation.
func TotalAmount(items []CalculationItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Jumlah
	}
	return total
}

// Request is the core workflow entity of the control card.
type Request struct {
	ID                  string            `json:"id"`
	RequesterID         string            `json:"requester_id"`
	RequesterName       string            `json:"requester_name"`
	RequesterDepartment string            `json:"requester_department"`
	Title               string            `json:"title"`
	Category            string            `json:"category"`
	Location            string            `json:"location"`
	ExecutionDate       string            `json:"execution_date"`
	ExecutionEndDate    string            `json:"execution_end_date,omitempty"`
	ExecutionDuration   string            `json:"execution_duration,omitempty"`
	Amount              float64           `json:"amount"`
	Description         string            `json:"description"`
	Items               []CalculationItem `json:"calculation_items"`
	Status              Status            `json:"status"`
	AIAnalysis          string            `json:"ai_analysis,omitempty"`
	AttachmentURL       string            `json:"attachment_url,omitempty"`

	SPPDURL   string `json:"sppd_url,omitempty"`
	ReportURL string `json:"report_url,omitempty"`
	SPJURL    string `json:"spj_url,omitempty"`

	ProgramNote string `json:"program_note,omitempty"`
	TUNote      string `json:"tu_note,omitempty"`
	PPKNote     string `json:"ppk_note,omitempty"`
	PICNote     string `json:"pic_note,omitempty"`

	RealizationAmount   float64    `json:"realization_amount,omitempty"`
	RealizationDate     *time.Time `json:"realization_date,omitempty"`
	RealizationDuration string     `json:"realization_duration,omitempty"`
	RealizationNote     string     `json:"realization_note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Realized reports whether payment has been recorded. There is no
// realized status value; presence of the realization date is the marker.
func (r Request) Realized() bool {
	return r.RealizationDate != nil && !r.RealizationDate.IsZero()
}

var (
	// ErrNotFound indicates the request record is missing.
	ErrNotFound = errors.New("request: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("request: invalid input")
	// ErrInvalidState occurs when an action violates the status workflow.
	ErrInvalidState = errors.New("request: invalid state transition")
	// ErrForbidden occurs when the actor does not own the current stage.
	ErrForbidden = errors.New("request: actor not authorized for stage")
	// ErrStaleStatus occurs when a compare-and-set transition loses the race.
	ErrStaleStatus = errors.New("request: status changed concurrently")
	// ErrNoteRequired occurs when a rejection carries no reason.
	ErrNoteRequired = errors.New("request: rejection note required")
)

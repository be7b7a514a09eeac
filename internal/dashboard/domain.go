package dashboard

import "time"

// FundPrefixes are the recognised RO-code prefixes broken out in the
// per-department rollups.
var FundPrefixes = []string{"FBA", "BDH", "EBA", "EBB", "BDB", "EBD"}

// monthLabels are the twelve fixed trend buckets, Indonesian short names.
var monthLabels = []string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}

// StatRow is the slice of a budget request the aggregator reads.
type StatRow struct {
	Amount            float64
	Status            string
	Category          string
	CreatedAt         time.Time
	RealizationAmount float64
	RealizationDate   *time.Time
	Department        string
	Items             []ItemLine
}

// ItemLine is a calculation line reduced to what the fund rollups need.
type ItemLine struct {
	ROCode string  `json:"ro_code"`
	Jumlah float64 `json:"jumlah"`
}

// Realized reports whether payment has been recorded for the row.
func (r StatRow) Realized() bool {
	return r.RealizationDate != nil && !r.RealizationDate.IsZero()
}

// CeilingRow is the slice of a budget ceiling the aggregator reads.
type CeilingRow struct {
	Department string
	ROCode     string
	Amount     float64
	Year       int
}

// FundBucket is one fund-code sub-rollup. Remaining clamps at zero in
// rollups; the signed figure lives in the ceiling detail view.
type FundBucket struct {
	Total     float64 `json:"total"`
	Spent     float64 `json:"spent"`
	Remaining float64 `json:"remaining"`
}

// DeptBudget is the per-department rollup.
type DeptBudget struct {
	Name      string         `json:"name"`
	IsTU      bool           `json:"is_tu"`
	Total     float64        `json:"total"`
	Spent     float64        `json:"spent"`
	Remaining float64        `json:"remaining"`
	Queue     map[string]int `json:"queue"`
	FBA       FundBucket     `json:"fba"`
	BDH       FundBucket     `json:"bdh"`
	EBA       FundBucket     `json:"eba"`
	EBB       FundBucket     `json:"ebb"`
	BDB       FundBucket     `json:"bdb"`
	EBD       FundBucket     `json:"ebd"`
}

// TrendPoint is one calendar-month bucket of the yearly trend.
type TrendPoint struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Realized float64 `json:"realized"`
}

// NameValue is a labelled sum for the category distribution.
type NameValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// DeptSummary carries proposed versus realized spend per department.
type DeptSummary struct {
	Name     string  `json:"name"`
	Proposed float64 `json:"proposed"`
	Realized float64 `json:"realized"`
	Value    float64 `json:"value"`
}

// Stats is the full dashboard payload. Scalar totals cover only rows
// the caller is authorized to see; TotalOfficeCeiling is the one global
// figure computed over every ceiling row regardless of scope.
type Stats struct {
	TotalAmount        float64       `json:"totalAmount"`
	PendingCount       int           `json:"pendingCount"`
	ApprovedAmount     float64       `json:"approvedAmount"`
	RejectedCount      int           `json:"rejectedCount"`
	TotalCount         int           `json:"totalCount"`
	TotalOfficeCeiling float64       `json:"totalOfficeCeiling"`
	Categories         []NameValue   `json:"categories"`
	DeptBudgets        []DeptBudget  `json:"deptBudgets"`
	Departments        []DeptSummary `json:"departments"`
	MonthlyTrend       []TrendPoint  `json:"monthlyTrend"`
}

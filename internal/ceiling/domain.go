package ceiling

import (
	"errors"
	"strings"
	"time"
)

// BudgetCeiling is a budgeted allocation for one classification tuple and
// fiscal year. It is a spending limit, never a running balance: the approval
// workflow reads it but never mutates it.
type BudgetCeiling struct {
	ID              string
	Department      string
	ROCode          string
	KomponenCode    string
	SubkomponenCode string
	Amount          float64
	Year            int
	UpdatedAt       time.Time
}

// Key identifies a ceiling row. At most one row exists per key.
type Key struct {
	Department      string
	ROCode          string
	KomponenCode    string
	SubkomponenCode string
	Year            int
}

// Key returns the composite key of the ceiling.
func (c BudgetCeiling) Key() Key {
	return Key{
		Department:      c.Department,
		ROCode:          c.ROCode,
		KomponenCode:    c.KomponenCode,
		SubkomponenCode: c.SubkomponenCode,
		Year:            c.Year,
	}
}

// CommittedItem is a flattened calculation line drawn from a committed
// request (status approved or reviewed_pic), used for utilization sums.
type CommittedItem struct {
	Department      string
	ROCode          string
	KomponenCode    string
	SubkomponenCode string
	Jumlah          float64
}

// Utilization reports spent and remaining figures for one ceiling row.
// Sisa is signed: overspend shows as a negative value in the detail view,
// while rollup aggregates clamp at zero.
type Utilization struct {
	Ceiling BudgetCeiling
	Spent   float64
	Sisa    float64
	Percent float64
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("ceiling: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("ceiling: invalid input")
)

// UpsertInput describes a ceiling create/update payload.
type UpsertInput struct {
	Department      string
	ROCode          string
	KomponenCode    string
	SubkomponenCode string
	Amount          float64
	Year            int
}

func (in UpsertInput) validate() error {
	if strings.TrimSpace(in.Department) == "" {
		return errors.New("ceiling: department required")
	}
	if strings.TrimSpace(in.ROCode) == "" {
		return errors.New("ceiling: ro code required")
	}
	if in.Amount <= 0 {
		return errors.New("ceiling: amount must be positive")
	}
	if in.Year <= 0 {
		return errors.New("ceiling: year required")
	}
	return nil
}

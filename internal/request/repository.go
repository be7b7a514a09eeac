package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const requestColumns = `id, requester_id, requester_name, requester_department, title, category, location,
execution_date, execution_end_date, execution_duration, amount, description, calculation_items, status,
ai_analysis, attachment_url, sppd_url, report_url, spj_url,
program_note, tu_note, ppk_note, pic_note,
realization_amount, realization_date, realization_duration, realization_note,
created_at, updated_at`

// Repository provides PostgreSQL backed persistence for budget requests.
// Calculation items are stored as a jsonb document on the request row,
// mirroring the one-owner-at-a-time lifecycle of the entity.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new request row.
func (r *Repository) Create(ctx context.Context, req Request) (Request, error) {
	items, err := json.Marshal(req.Items)
	if err != nil {
		return Request{}, err
	}
	now := time.Now().UTC()
	req.ID = uuid.NewString()
	req.CreatedAt = now
	req.UpdatedAt = now
	_, err = r.pool.Exec(ctx, `INSERT INTO budget_requests
(id, requester_id, requester_name, requester_department, title, category, location,
 execution_date, execution_end_date, execution_duration, amount, description, calculation_items, status,
 attachment_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		req.ID, req.RequesterID, req.RequesterName, req.RequesterDepartment, req.Title, req.Category, req.Location,
		req.ExecutionDate, req.ExecutionEndDate, req.ExecutionDuration, req.Amount, req.Description, items, string(req.Status),
		req.AttachmentURL, req.CreatedAt, req.UpdatedAt)
	if err != nil {
		return Request{}, err
	}
	return req, nil
}

// Get fetches one request by id.
func (r *Repository) Get(ctx context.Context, id string) (Request, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM budget_requests WHERE id=$1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, err
	}
	return req, nil
}

// listPredicate builds the WHERE clause shared by List and Count.
func listPredicate(filters ListFilters) (string, []any) {
	clause := ` WHERE 1=1`
	args := []any{}
	idx := 1
	if filters.Status != "" {
		clause += fmt.Sprintf(" AND status=$%d", idx)
		args = append(args, string(filters.Status))
		idx++
	}
	if filters.RequesterID != "" {
		clause += fmt.Sprintf(" AND requester_id=$%d", idx)
		args = append(args, filters.RequesterID)
		idx++
	}
	if filters.Department != "" {
		clause += fmt.Sprintf(" AND requester_department=$%d", idx)
		args = append(args, filters.Department)
		idx++
	}
	if filters.Search != "" {
		clause += fmt.Sprintf(" AND (title ILIKE $%d OR requester_name ILIKE $%d)", idx, idx)
		args = append(args, "%"+filters.Search+"%")
	}
	return clause, args
}

// List returns requests newest first, narrowed by the given filters.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Request, error) {
	clause, args := listPredicate(filters)
	query := `SELECT ` + requestColumns + ` FROM budget_requests` + clause + ` ORDER BY created_at DESC`
	idx := len(args) + 1
	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, filters.Limit)
		idx++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", idx)
		args = append(args, filters.Offset)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var requests []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// Count reports how many rows match the filters, ignoring paging.
func (r *Repository) Count(ctx context.Context, filters ListFilters) (int, error) {
	clause, args := listPredicate(filters)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM budget_requests`+clause, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// Update rewrites the editable draft fields and the item document.
func (r *Repository) Update(ctx context.Context, req Request) error {
	items, err := json.Marshal(req.Items)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `UPDATE budget_requests SET
title=$2, category=$3, location=$4, execution_date=$5, execution_end_date=$6, execution_duration=$7,
amount=$8, description=$9, calculation_items=$10, attachment_url=$11, updated_at=NOW()
WHERE id=$1`,
		req.ID, req.Title, req.Category, req.Location, req.ExecutionDate, req.ExecutionEndDate, req.ExecutionDuration,
		req.Amount, req.Description, items, req.AttachmentURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// noteColumnAllowed whitelists the reviewer-note columns UpdateStatus
// may touch; the column name is interpolated into the statement.
func noteColumnAllowed(column string) bool {
	switch column {
	case NoteColumnProgram, NoteColumnTU, NoteColumnPPK, NoteColumnPIC:
		return true
	}
	return false
}

// UpdateStatus performs the compare-and-set transition. The WHERE clause
// pins the expected prior status; zero rows affected means another
// validator got there first.
func (r *Repository) UpdateStatus(ctx context.Context, id string, expected, next Status, noteColumn, note string) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	if noteColumn != "" {
		if !noteColumnAllowed(noteColumn) {
			return fmt.Errorf("%w: unknown note field %q", ErrValidation, noteColumn)
		}
		tag, err = r.pool.Exec(ctx,
			`UPDATE budget_requests SET status=$3, `+noteColumn+`=$4, updated_at=NOW() WHERE id=$1 AND status=$2`,
			id, string(expected), string(next), note)
	} else {
		tag, err = r.pool.Exec(ctx,
			`UPDATE budget_requests SET status=$3, updated_at=NOW() WHERE id=$1 AND status=$2`,
			id, string(expected), string(next))
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

// SetDocuments stores the accountability bundle URLs without touching
// the status column.
func (r *Repository) SetDocuments(ctx context.Context, id, sppdURL, reportURL, spjURL string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE budget_requests SET sppd_url=$2, report_url=$3, spj_url=$4, updated_at=NOW() WHERE id=$1`,
		id, sppdURL, reportURL, spjURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRealization stores the payment record.
func (r *Repository) SetRealization(ctx context.Context, id string, input RealizationInput) error {
	tag, err := r.pool.Exec(ctx, `UPDATE budget_requests SET
realization_amount=$2, realization_date=$3, realization_duration=$4, realization_note=$5, updated_at=NOW()
WHERE id=$1`, id, input.Amount, input.Date, input.Duration, input.Note)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAnalysis stores the AI commentary.
func (r *Repository) SetAnalysis(ctx context.Context, id, analysis string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE budget_requests SET ai_analysis=$2, updated_at=NOW() WHERE id=$1`, id, analysis)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a single request row.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM budget_requests WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll wipes the table.
func (r *Repository) DeleteAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM budget_requests`)
	return err
}

// ListCommitted expands calculation items of committed requests into
// flat lines for the ceiling utilization aggregator.
func (r *Repository) ListCommitted(ctx context.Context) ([]CommittedLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT
	req.requester_department,
	COALESCE(item->>'ro_code', ''),
	COALESCE(item->>'komponen_code', ''),
	COALESCE(item->>'subkomponen_code', ''),
	COALESCE((item->>'jumlah')::numeric, 0)
FROM budget_requests req,
	jsonb_array_elements(COALESCE(req.calculation_items, '[]'::jsonb)) item
WHERE req.status IN ($1, $2)`, string(StatusApproved), string(StatusReviewedPIC))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []CommittedLine
	for rows.Next() {
		var line CommittedLine
		if err := rows.Scan(&line.Department, &line.ROCode, &line.KomponenCode, &line.SubkomponenCode, &line.Jumlah); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scanRequest(row pgx.Row) (Request, error) {
	var (
		req   Request
		items []byte
	)
	err := row.Scan(
		&req.ID, &req.RequesterID, &req.RequesterName, &req.RequesterDepartment, &req.Title, &req.Category, &req.Location,
		&req.ExecutionDate, &req.ExecutionEndDate, &req.ExecutionDuration, &req.Amount, &req.Description, &items, &req.Status,
		&req.AIAnalysis, &req.AttachmentURL, &req.SPPDURL, &req.ReportURL, &req.SPJURL,
		&req.ProgramNote, &req.TUNote, &req.PPKNote, &req.PICNote,
		&req.RealizationAmount, &req.RealizationDate, &req.RealizationDuration, &req.RealizationNote,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return Request{}, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &req.Items); err != nil {
			return Request{}, err
		}
	}
	return req, nil
}

var _ RepositoryPort = (*Repository)(nil)

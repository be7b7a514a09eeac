package dashboard

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the aggregation inputs straight from PostgreSQL. The
// dashboard only needs a thin slice of each row, so it queries columns
// directly instead of going through the domain repositories.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListStatRows loads the request slices the aggregator consumes.
func (r *Repository) ListStatRows(ctx context.Context) ([]StatRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT amount, status, category, created_at,
COALESCE(realization_amount, 0), realization_date, requester_department,
COALESCE(calculation_items, '[]'::jsonb)
FROM budget_requests`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StatRow
	for rows.Next() {
		var (
			row   StatRow
			items []byte
		)
		if err := rows.Scan(&row.Amount, &row.Status, &row.Category, &row.CreatedAt,
			&row.RealizationAmount, &row.RealizationDate, &row.Department, &items); err != nil {
			return nil, err
		}
		if len(items) > 0 {
			if err := json.Unmarshal(items, &row.Items); err != nil {
				return nil, err
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListCeilingRows loads ceiling slices for the fiscal year.
func (r *Repository) ListCeilingRows(ctx context.Context, year int) ([]CeilingRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT department, ro_code, amount, year
FROM budget_ceilings WHERE year=$1`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CeilingRow
	for rows.Next() {
		var row CeilingRow
		if err := rows.Scan(&row.Department, &row.ROCode, &row.Amount, &row.Year); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

var (
	_ RequestSource = (*Repository)(nil)
	_ CeilingSource = (*Repository)(nil)
)

package ceiling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert inserts or replaces the row for the composite key. The unique
// constraint on (department, ro_code, komponen_code, subkomponen_code, year)
// guarantees at most one row per tuple.
func (r *Repository) Upsert(ctx context.Context, input UpsertInput) (BudgetCeiling, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx, `INSERT INTO budget_ceilings (id, department, ro_code, komponen_code, subkomponen_code, amount, year, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (department, ro_code, komponen_code, subkomponen_code, year) DO UPDATE SET
	amount = EXCLUDED.amount,
	updated_at = EXCLUDED.updated_at
RETURNING id, department, ro_code, komponen_code, subkomponen_code, amount, year, updated_at`,
		uuid.NewString(), input.Department, input.ROCode, input.KomponenCode, input.SubkomponenCode, input.Amount, input.Year, now)
	return scanCeiling(row)
}

// ListByYear returns all ceilings for the fiscal year.
func (r *Repository) ListByYear(ctx context.Context, year int) ([]BudgetCeiling, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, department, ro_code, komponen_code, subkomponen_code, amount, year, updated_at
FROM budget_ceilings WHERE year=$1 ORDER BY department, ro_code`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ceilings []BudgetCeiling
	for rows.Next() {
		c, err := scanCeiling(rows)
		if err != nil {
			return nil, err
		}
		ceilings = append(ceilings, c)
	}
	return ceilings, rows.Err()
}

// Get fetches one ceiling by id.
func (r *Repository) Get(ctx context.Context, id string) (BudgetCeiling, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, department, ro_code, komponen_code, subkomponen_code, amount, year, updated_at
FROM budget_ceilings WHERE id=$1`, id)
	c, err := scanCeiling(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BudgetCeiling{}, ErrNotFound
		}
		return BudgetCeiling{}, err
	}
	return c, nil
}

// Delete removes a ceiling row.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM budget_ceilings WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCeiling(row pgx.Row) (BudgetCeiling, error) {
	var c BudgetCeiling
	if err := row.Scan(&c.ID, &c.Department, &c.ROCode, &c.KomponenCode, &c.SubkomponenCode, &c.Amount, &c.Year, &c.UpdatedAt); err != nil {
		return BudgetCeiling{}, err
	}
	return c, nil
}

var _ RepositoryPort = (*Repository)(nil)

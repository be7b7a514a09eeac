package profiles

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all profiles ordered by full name.
func (r *Repository) List(ctx context.Context) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, full_name, role, department, password_hash, created_at, updated_at
FROM profiles ORDER BY full_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Get fetches a profile by id.
func (r *Repository) Get(ctx context.Context, id string) (Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, full_name, role, department, password_hash, created_at, updated_at
FROM profiles WHERE id=$1`, id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

// Upsert inserts or replaces the profile row.
func (r *Repository) Upsert(ctx context.Context, profile Profile) (Profile, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx, `INSERT INTO profiles (id, full_name, role, department, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (id) DO UPDATE SET
	full_name = EXCLUDED.full_name,
	role = EXCLUDED.role,
	department = EXCLUDED.department,
	password_hash = EXCLUDED.password_hash,
	updated_at = EXCLUDED.updated_at
RETURNING id, full_name, role, department, password_hash, created_at, updated_at`,
		profile.ID, profile.FullName, string(profile.Role), profile.Department, profile.PasswordHash, now)
	return scanProfile(row)
}

// Delete removes a profile row.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	var role string
	if err := row.Scan(&p.ID, &p.FullName, &role, &p.Department, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Profile{}, err
	}
	p.Role = shared.Role(role)
	return p, nil
}

var _ RepositoryPort = (*Repository)(nil)

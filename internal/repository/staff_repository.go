package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/govdesk/internal/domain"
)

// StaffRepository manages staff member persistence.
type StaffRepository interface {
	GetByID(ctx context.Context, id string) (*domain.StaffMember, error)
	GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error)
}

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository constructs the repository.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

const staffColumns = `id, name, email, password_hash, role, department_id, active, created_at, updated_at`

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_members WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_members WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *staffRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.StaffMember, error) {
	var staff domain.StaffMember
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&staff.ID,
		&staff.Name,
		&staff.Email,
		&staff.PasswordHash,
		&staff.Role,
		&staff.DepartmentID,
		&staff.Active,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &staff, nil
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/govdesk/internal/domain"
)

// DepartmentRepository manages department persistence.
type DepartmentRepository interface {
	Create(ctx context.Context, dept *domain.Department) error
	Update(ctx context.Context, dept *domain.Department) error
	GetByID(ctx context.Context, id string) (*domain.Department, error)
	ListActive(ctx context.Context) ([]domain.Department, error)
}

type departmentRepository struct {
	pool *pgxpool.Pool
}

// NewDepartmentRepository builds the repository.
func NewDepartmentRepository(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepository{pool: pool}
}

const departmentColumns = `id, name, description, open_hour, close_hour, lunch_break,
        appointment_reasons, is_active, created_at, updated_at`

func (r *departmentRepository) Create(ctx context.Context, dept *domain.Department) error {
	const query = `
        INSERT INTO departments (name, description, open_hour, close_hour, lunch_break, appointment_reasons, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		dept.Name,
		dept.Description,
		dept.OpenHour,
		dept.CloseHour,
		dept.LunchBreak,
		dept.AppointmentReasons,
		dept.IsActive,
	).Scan(&dept.ID, &dept.CreatedAt, &dept.UpdatedAt)
}

func (r *departmentRepository) Update(ctx context.Context, dept *domain.Department) error {
	const query = `
        UPDATE departments SET name=$1, description=$2, open_hour=$3, close_hour=$4,
            lunch_break=$5, appointment_reasons=$6, is_active=$7, updated_at=NOW()
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		dept.Name,
		dept.Description,
		dept.OpenHour,
		dept.CloseHour,
		dept.LunchBreak,
		dept.AppointmentReasons,
		dept.IsActive,
		dept.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *departmentRepository) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id=$1`
	var dept domain.Department
	if err := scanDepartment(r.pool.QueryRow(ctx, query, id), &dept); err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepository) ListActive(ctx context.Context) ([]domain.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE is_active = TRUE ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Department
	for rows.Next() {
		var dept domain.Department
		if err := scanDepartment(rows, &dept); err != nil {
			return nil, err
		}
		result = append(result, dept)
	}
	return result, rows.Err()
}

func scanDepartment(row rowScanner, dept *domain.Department) error {
	return row.Scan(
		&dept.ID,
		&dept.Name,
		&dept.Description,
		&dept.OpenHour,
		&dept.CloseHour,
		&dept.LunchBreak,
		&dept.AppointmentReasons,
		&dept.IsActive,
		&dept.CreatedAt,
		&dept.UpdatedAt,
	)
}

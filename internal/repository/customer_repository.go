package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/govdesk/internal/domain"
)

// CustomerRepository manages customer account persistence.
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
}

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository constructs the repository.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

const customerColumns = `id, name, email, phone, password_hash, status, created_at, updated_at`

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	const query = `
        INSERT INTO customers (name, email, phone, password_hash, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.PasswordHash,
		customer.Status,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
}

func (r *customerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *customerRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Customer, error) {
	var customer domain.Customer
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&customer.ID,
		&customer.Name,
		&customer.Email,
		&customer.Phone,
		&customer.PasswordHash,
		&customer.Status,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &customer, nil
}

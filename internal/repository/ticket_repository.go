package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/govdesk/internal/domain"
)

// ErrSlotTaken signals that the database unique index on
// (department_id, appointment_at) rejected an insert or reschedule. This is
// the authoritative double-booking guard; the availability pre-check only
// reduces how often callers hit it.
var ErrSlotTaken = errors.New("appointment slot already booked")

// slotIndexName matches the partial unique index created by the migrations.
const slotIndexName = "tickets_slot_active_uniq"

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CustomerID      *string
	DepartmentID    *string
	StaffID         *string
	Statuses        []domain.TicketStatus
	AppointmentDate *string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	Limit           int
	Offset          int
}

// TicketRepository encapsulates the booking ledger persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	FindConflict(ctx context.Context, departmentID string, at time.Time, excludeTicketID string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, external_key, customer_id, department_id, staff_id,
               issue_description, notes, appointment_date, appointment_time, appointment_at,
               status, feedback, rejection_reason, created_at, updated_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, customer_id, department_id, staff_id, issue_description,
            notes, appointment_date, appointment_time, appointment_at, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.CustomerID,
		ticket.DepartmentID,
		ticket.StaffID,
		ticket.IssueDescription,
		ticket.Notes,
		ticket.AppointmentDate,
		ticket.AppointmentTime,
		ticket.AppointmentAt,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if isSlotViolation(err) {
		return ErrSlotTaken
	}
	return err
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET staff_id=$1, notes=$2, appointment_date=$3, appointment_time=$4,
            appointment_at=$5, status=$6, feedback=$7, rejection_reason=$8, closed_at=$9,
            updated_at=NOW()
        WHERE id=$10`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.StaffID,
		ticket.Notes,
		ticket.AppointmentDate,
		ticket.AppointmentTime,
		ticket.AppointmentAt,
		ticket.Status,
		ticket.Feedback,
		ticket.RejectionReason,
		ticket.ClosedAt,
		ticket.ID,
	)
	if isSlotViolation(err) {
		return ErrSlotTaken
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// FindConflict returns a ticket for the department whose appointment_at
// equals the requested instant exactly and whose status still blocks the
// slot. Rejected and cancelled tickets free the slot.
func (r *ticketRepository) FindConflict(ctx context.Context, departmentID string, at time.Time, excludeTicketID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE department_id=$1 AND appointment_at=$2 AND status IN ('PENDING','APPROVED')`
	args := []any{departmentID, at}
	if excludeTicketID != "" {
		args = append(args, excludeTicketID)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}
	query += " LIMIT 1"

	var ticket domain.Ticket
	err := scanTicket(r.pool.QueryRow(ctx, query, args...), &ticket)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if filter.StaffID != nil {
		args = append(args, *filter.StaffID)
		clauses = append(clauses, fmt.Sprintf("staff_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AppointmentDate != nil {
		args = append(args, *filter.AppointmentDate)
		clauses = append(clauses, fmt.Sprintf("appointment_date=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY appointment_at ASC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.CustomerID,
		&ticket.DepartmentID,
		&ticket.StaffID,
		&ticket.IssueDescription,
		&ticket.Notes,
		&ticket.AppointmentDate,
		&ticket.AppointmentTime,
		&ticket.AppointmentAt,
		&ticket.Status,
		&ticket.Feedback,
		&ticket.RejectionReason,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func isSlotViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == slotIndexName
}

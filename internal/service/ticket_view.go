package service

import (
	"context"
	"time"

	"github.com/spec-kit/govdesk/internal/domain"
	"github.com/spec-kit/govdesk/internal/repository"
)

// TicketView is the read-side projection of a ticket with customer and
// department display fields joined in for responses.
type TicketView struct {
	ID               string              `json:"id"`
	ExternalKey      string              `json:"external_key"`
	CustomerID       string              `json:"customer_id"`
	CustomerName     string              `json:"customer_name,omitempty"`
	DepartmentID     string              `json:"department_id"`
	DepartmentName   string              `json:"department_name,omitempty"`
	StaffID          *string             `json:"staff_id,omitempty"`
	IssueDescription string              `json:"issue_description"`
	Notes            string              `json:"notes"`
	AppointmentDate  string              `json:"appointment_date"`
	AppointmentTime  string              `json:"appointment_time"`
	AppointmentAt    time.Time           `json:"appointment_at"`
	Status           domain.TicketStatus `json:"status"`
	Feedback         *string             `json:"feedback,omitempty"`
	RejectionReason  *string             `json:"rejection_reason,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	ClosedAt         *time.Time          `json:"closed_at,omitempty"`
}

// TicketViewAssembler denormalizes tickets for read responses. The core only
// ever sees the plain Ticket entity; joining display data happens here.
type TicketViewAssembler struct {
	customers repository.CustomerRepository
	directory *DirectoryService
}

// NewTicketViewAssembler constructs the assembler.
func NewTicketViewAssembler(customers repository.CustomerRepository, directory *DirectoryService) *TicketViewAssembler {
	return &TicketViewAssembler{customers: customers, directory: directory}
}

// Assemble builds the view for one ticket. Lookup failures degrade to blank
// display names rather than failing the response.
func (a *TicketViewAssembler) Assemble(ctx context.Context, ticket *domain.Ticket) TicketView {
	view := baseView(ticket)
	if customer, err := a.customers.GetByID(ctx, ticket.CustomerID); err == nil {
		view.CustomerName = customer.Name
	}
	if dept, err := a.directory.GetDepartment(ctx, ticket.DepartmentID); err == nil {
		view.DepartmentName = dept.Name
	}
	return view
}

// AssembleList builds views for a ticket collection, memoizing lookups.
func (a *TicketViewAssembler) AssembleList(ctx context.Context, tickets []domain.Ticket) []TicketView {
	customerNames := map[string]string{}
	deptNames := map[string]string{}

	out := make([]TicketView, 0, len(tickets))
	for i := range tickets {
		ticket := &tickets[i]
		view := baseView(ticket)

		name, ok := customerNames[ticket.CustomerID]
		if !ok {
			if customer, err := a.customers.GetByID(ctx, ticket.CustomerID); err == nil {
				name = customer.Name
			}
			customerNames[ticket.CustomerID] = name
		}
		view.CustomerName = name

		deptName, ok := deptNames[ticket.DepartmentID]
		if !ok {
			if dept, err := a.directory.GetDepartment(ctx, ticket.DepartmentID); err == nil {
				deptName = dept.Name
			}
			deptNames[ticket.DepartmentID] = deptName
		}
		view.DepartmentName = deptName

		out = append(out, view)
	}
	return out
}

func baseView(ticket *domain.Ticket) TicketView {
	return TicketView{
		ID:               ticket.ID,
		ExternalKey:      ticket.ExternalKey,
		CustomerID:       ticket.CustomerID,
		DepartmentID:     ticket.DepartmentID,
		StaffID:          ticket.StaffID,
		IssueDescription: ticket.IssueDescription,
		Notes:            ticket.Notes,
		AppointmentDate:  ticket.AppointmentDate,
		AppointmentTime:  ticket.AppointmentTime,
		AppointmentAt:    ticket.AppointmentAt,
		Status:           ticket.Status,
		Feedback:         ticket.Feedback,
		RejectionReason:  ticket.RejectionReason,
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
		ClosedAt:         ticket.ClosedAt,
	}
}

package domain

import "time"

// TicketStatus enumerates lifecycle states for appointment tickets.
type TicketStatus string

const (
	TicketStatusPending   TicketStatus = "PENDING"
	TicketStatusApproved  TicketStatus = "APPROVED"
	TicketStatusRejected  TicketStatus = "REJECTED"
	TicketStatusCancelled TicketStatus = "CANCELLED"
)

// Terminal reports whether the status allows no further transitions.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusApproved || s == TicketStatusRejected || s == TicketStatusCancelled
}

// BlocksSlot reports whether a ticket in this status occupies its
// appointment slot for conflict detection.
func (s TicketStatus) BlocksSlot() bool {
	return s == TicketStatusPending || s == TicketStatusApproved
}

// Ticket is the aggregate for appointment requests filed against a department.
// AppointmentDate ("2006-01-02") and AppointmentTime ("15:04") are the two
// source fields; AppointmentAt is the derived absolute instant and, together
// with DepartmentID, the canonical conflict key.
type Ticket struct {
	ID               string
	ExternalKey      string
	CustomerID       string
	DepartmentID     string
	StaffID          *string
	IssueDescription string
	Notes            string
	AppointmentDate  string
	AppointmentTime  string
	AppointmentAt    time.Time
	Status           TicketStatus
	Feedback         *string
	RejectionReason  *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ClosedAt         *time.Time
}

package dto

import (
	"github.com/spec-kit/govdesk/internal/domain"
)

// CreateTicketRequest payload. CustomerID is honored only for staff callers;
// customer callers always book for themselves.
type CreateTicketRequest struct {
	CustomerID       string `json:"customer_id,omitempty"`
	DepartmentID     string `json:"department_id"`
	IssueDescription string `json:"issue_description"`
	Notes            string `json:"notes"`
	AppointmentDate  string `json:"appointment_date"`
	AppointmentTime  string `json:"appointment_time"`
}

// UpdateTicketRequest is the explicit partial-update payload; absent fields
// are left untouched.
type UpdateTicketRequest struct {
	StaffID         *string              `json:"staff_id"`
	Notes           *string              `json:"notes"`
	Feedback        *string              `json:"feedback"`
	AppointmentDate *string              `json:"appointment_date"`
	AppointmentTime *string              `json:"appointment_time"`
	Status          *domain.TicketStatus `json:"status"`
	RejectionReason *string              `json:"rejection_reason"`
}

// ApproveTicketRequest payload.
type ApproveTicketRequest struct {
	StaffID  string  `json:"staff_id"`
	Feedback *string `json:"feedback"`
}

// RejectTicketRequest payload.
type RejectTicketRequest struct {
	RejectionReason string  `json:"rejection_reason"`
	StaffID         *string `json:"staff_id"`
}

// AvailabilityResponse reports a read-only availability check.
type AvailabilityResponse struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

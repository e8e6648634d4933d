package events

import (
	"time"

	"github.com/spec-kit/govdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketBooked        EventType = "ticket_booked"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketRescheduled   EventType = "ticket_rescheduled"
	EventAppointmentReminder EventType = "appointment_reminder"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type       domain.SubjectType `json:"type"`
	CustomerID *string            `json:"customer_id,omitempty"`
	StaffID    *string            `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketBookedPayload payload.
type TicketBookedPayload struct {
	CustomerID      string `json:"customer_id"`
	DepartmentID    string `json:"department_id"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	CustomerID      string              `json:"customer_id"`
	DepartmentID    string              `json:"department_id"`
	OldStatus       domain.TicketStatus `json:"old_status"`
	NewStatus       domain.TicketStatus `json:"new_status"`
	AppointmentDate string              `json:"appointment_date"`
	AppointmentTime string              `json:"appointment_time"`
	Feedback        *string             `json:"feedback,omitempty"`
	RejectionReason *string             `json:"rejection_reason,omitempty"`
}

// TicketRescheduledPayload payload.
type TicketRescheduledPayload struct {
	CustomerID   string `json:"customer_id"`
	DepartmentID string `json:"department_id"`
	OldDate      string `json:"old_date"`
	OldTime      string `json:"old_time"`
	NewDate      string `json:"new_date"`
	NewTime      string `json:"new_time"`
}

// AppointmentReminderPayload payload.
type AppointmentReminderPayload struct {
	CustomerID      string              `json:"customer_id"`
	DepartmentID    string              `json:"department_id"`
	AppointmentDate string              `json:"appointment_date"`
	AppointmentTime string              `json:"appointment_time"`
	Status          domain.TicketStatus `json:"status"`
}

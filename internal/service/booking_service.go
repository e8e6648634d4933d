package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/govdesk/internal/domain"
	"github.com/spec-kit/govdesk/internal/events"
	"github.com/spec-kit/govdesk/internal/observability"
	"github.com/spec-kit/govdesk/internal/repository"
	"github.com/spec-kit/govdesk/internal/schedule"
	apperrors "github.com/spec-kit/govdesk/pkg/util/errorutil"
)

const (
	notesMinLen = 10
	notesMaxLen = 500
)

// BookingService coordinates the appointment booking flow and the ticket
// lifecycle state machine.
type BookingService struct {
	tickets    repository.TicketRepository
	customers  repository.CustomerRepository
	staff      repository.StaffRepository
	directory  *DirectoryService
	checker    *schedule.Checker
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	now        func() time.Time
}

// BookingDependencies bundles collaborators for the booking service.
type BookingDependencies struct {
	TicketRepo   repository.TicketRepository
	CustomerRepo repository.CustomerRepository
	StaffRepo    repository.StaffRepository
	Directory    *DirectoryService
	Checker      *schedule.Checker
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Now          func() time.Time
}

// BookingInput describes an appointment request.
type BookingInput struct {
	CustomerID       string
	DepartmentID     string
	IssueDescription string
	Notes            string
	AppointmentDate  string
	AppointmentTime  string
}

// TicketPatch enumerates the fields mutable after creation. Identity fields
// and CreatedAt are deliberately absent.
type TicketPatch struct {
	StaffID         *string
	Notes           *string
	Feedback        *string
	AppointmentDate *string
	AppointmentTime *string
	Status          *domain.TicketStatus
	RejectionReason *string
}

// SlotStatus reports one calendar slot and whether it is still bookable.
type SlotStatus struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// NewBookingService constructs the service.
func NewBookingService(deps BookingDependencies) *BookingService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		tickets:    deps.TicketRepo,
		customers:  deps.CustomerRepo,
		staff:      deps.StaffRepo,
		directory:  deps.Directory,
		checker:    deps.Checker,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		now:        now,
	}
}

// CheckAvailability runs the availability rules read-only, without mutating
// the ledger.
func (s *BookingService) CheckAvailability(ctx context.Context, departmentID, date, timeOfDay string) (schedule.Decision, error) {
	dept, err := s.directory.GetDepartment(ctx, departmentID)
	if err != nil {
		return schedule.Decision{}, err
	}
	decision, err := s.checker.Check(ctx, dept, date, timeOfDay, "")
	if err != nil {
		return schedule.Decision{}, apperrors.MapError(err)
	}
	s.metrics.RecordBookingDecision(decision.Reason)
	return decision, nil
}

// CreateTicket books an appointment. The availability pre-check rejects the
// common failures early; losing the check-then-act race against a concurrent
// booking still surfaces as a conflict from the ledger insert.
func (s *BookingService) CreateTicket(ctx context.Context, input BookingInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.IssueDescription) == "" {
		return nil, apperrors.NewValidationError("issue description required", nil)
	}
	if err := validateNotes(input.Notes); err != nil {
		return nil, err
	}

	dept, err := s.directory.GetDepartment(ctx, input.DepartmentID)
	if err != nil {
		return nil, err
	}
	if !dept.IsActive {
		return nil, apperrors.NewValidationError("department is not accepting appointments", nil)
	}
	if _, err := s.customers.GetByID(ctx, input.CustomerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("customer", nil)
		}
		return nil, apperrors.MapError(err)
	}

	decision, err := s.checker.Check(ctx, dept, input.AppointmentDate, input.AppointmentTime, "")
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.metrics.RecordBookingDecision(decision.Reason)
	if !decision.Admit {
		return nil, rejectionError(decision)
	}

	at, err := schedule.ParseSlot(input.AppointmentDate, input.AppointmentTime, s.checker.Location())
	if err != nil {
		return nil, apperrors.NewValidationError("appointment date or time is malformed", nil)
	}

	ticket := &domain.Ticket{
		ExternalKey:      generateTicketKey(),
		CustomerID:       input.CustomerID,
		DepartmentID:     input.DepartmentID,
		IssueDescription: strings.TrimSpace(input.IssueDescription),
		Notes:            strings.TrimSpace(input.Notes),
		AppointmentDate:  input.AppointmentDate,
		AppointmentTime:  input.AppointmentTime,
		AppointmentAt:    at,
		Status:           domain.TicketStatusPending,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.metrics.RecordBookingDecision(schedule.ReasonSlotTaken)
			return nil, slotTakenError()
		}
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketBooked,
		TicketID: ticket.ID,
		Actor:    customerActor(ticket.CustomerID),
		Payload: events.TicketBookedPayload{
			CustomerID:      ticket.CustomerID,
			DepartmentID:    ticket.DepartmentID,
			AppointmentDate: ticket.AppointmentDate,
			AppointmentTime: ticket.AppointmentTime,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket by id.
func (s *BookingService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListTickets returns tickets matching the filter.
func (s *BookingService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// UpdateTicket applies a partial update. A date/time change re-runs the
// availability checker with the ticket's own id excluded; on reject the whole
// update is aborted with no mutation persisted. A status change drives the
// lifecycle state machine.
func (s *BookingService) UpdateTicket(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	var rescheduled *events.TicketRescheduledPayload
	if patch.AppointmentDate != nil || patch.AppointmentTime != nil {
		payload, err := s.applyReschedule(ctx, ticket, patch.AppointmentDate, patch.AppointmentTime)
		if err != nil {
			return nil, err
		}
		rescheduled = payload
	}

	if patch.Notes != nil {
		if err := validateNotes(*patch.Notes); err != nil {
			return nil, err
		}
		ticket.Notes = strings.TrimSpace(*patch.Notes)
	}
	if patch.Feedback != nil {
		ticket.Feedback = patch.Feedback
	}
	if patch.StaffID != nil {
		if err := s.verifyStaff(ctx, *patch.StaffID); err != nil {
			return nil, err
		}
		ticket.StaffID = patch.StaffID
	}

	var statusChange *events.TicketStatusChangedPayload
	if patch.Status != nil && *patch.Status != ticket.Status {
		oldStatus := ticket.Status
		if err := s.applyTransition(ticket, *patch.Status, patch.StaffID, patch.Feedback, patch.RejectionReason); err != nil {
			return nil, err
		}
		statusChange = s.statusChangedPayload(ticket, oldStatus)
	}

	if err := s.persistUpdate(ctx, ticket); err != nil {
		return nil, err
	}

	if rescheduled != nil {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketRescheduled,
			TicketID: ticket.ID,
			Actor:    staffOrCustomerActor(ticket),
			Payload:  *rescheduled,
		})
	}
	if statusChange != nil {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Actor:    staffOrCustomerActor(ticket),
			Payload:  *statusChange,
		})
	}
	return ticket, nil
}

// ApproveTicket drives Pending -> Approved. The approving staff member
// becomes the assignee; optional feedback is recorded for the customer.
func (s *BookingService) ApproveTicket(ctx context.Context, id, staffID string, feedback *string) (*domain.Ticket, error) {
	if strings.TrimSpace(staffID) == "" {
		return nil, apperrors.NewValidationError("staff id required to approve", nil)
	}
	if err := s.verifyStaff(ctx, staffID); err != nil {
		return nil, err
	}

	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status
	if err := s.applyTransition(ticket, domain.TicketStatusApproved, &staffID, feedback, nil); err != nil {
		return nil, err
	}
	if err := s.persistUpdate(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    staffActor(staffID),
		Payload:  *s.statusChangedPayload(ticket, oldStatus),
	})
	return ticket, nil
}

// RejectTicket drives Pending -> Rejected. An empty reason is a validation
// error and applies no side effects.
func (s *BookingService) RejectTicket(ctx context.Context, id, reason string, staffID *string) (*domain.Ticket, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.NewValidationError("rejection reason required", nil)
	}
	if staffID != nil {
		if err := s.verifyStaff(ctx, *staffID); err != nil {
			return nil, err
		}
	}

	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status
	if err := s.applyTransition(ticket, domain.TicketStatusRejected, staffID, nil, &reason); err != nil {
		return nil, err
	}
	if err := s.persistUpdate(ctx, ticket); err != nil {
		return nil, err
	}

	actor := customerActor(ticket.CustomerID)
	if staffID != nil {
		actor = staffActor(*staffID)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  *s.statusChangedPayload(ticket, oldStatus),
	})
	return ticket, nil
}

// CancelTicket drives Pending -> Cancelled. Deleting a ticket maps here;
// the row survives with its audit trail and the slot is freed.
func (s *BookingService) CancelTicket(ctx context.Context, id string, actor events.Actor) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status
	if err := s.applyTransition(ticket, domain.TicketStatusCancelled, nil, nil, nil); err != nil {
		return nil, err
	}
	if err := s.persistUpdate(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  *s.statusChangedPayload(ticket, oldStatus),
	})
	return ticket, nil
}

// DaySlots returns the department's calendar for one day with each slot
// flagged available unless an active ticket occupies it.
func (s *BookingService) DaySlots(ctx context.Context, departmentID, date string) ([]SlotStatus, error) {
	if _, err := schedule.ParseDate(date, s.checker.Location()); err != nil {
		return nil, apperrors.NewValidationError("date must be formatted YYYY-MM-DD", nil)
	}
	dept, err := s.directory.GetDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}

	booked, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		DepartmentID:    &departmentID,
		AppointmentDate: &date,
		Statuses:        []domain.TicketStatus{domain.TicketStatusPending, domain.TicketStatusApproved},
		Limit:           500,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	taken := make(map[string]bool, len(booked))
	for _, t := range booked {
		taken[t.AppointmentTime] = true
	}

	slots := schedule.Slots(dept, s.checker.Granularity())
	out := make([]SlotStatus, 0, len(slots))
	for _, slot := range slots {
		out = append(out, SlotStatus{Time: slot, Available: !taken[slot]})
	}
	return out, nil
}

func (s *BookingService) applyReschedule(ctx context.Context, ticket *domain.Ticket, newDate, newTime *string) (*events.TicketRescheduledPayload, error) {
	if ticket.Status != domain.TicketStatusPending {
		return nil, apperrors.NewValidationError("only pending tickets can be rescheduled", nil)
	}

	date := ticket.AppointmentDate
	if newDate != nil {
		date = *newDate
	}
	timeOfDay := ticket.AppointmentTime
	if newTime != nil {
		timeOfDay = *newTime
	}

	dept, err := s.directory.GetDepartment(ctx, ticket.DepartmentID)
	if err != nil {
		return nil, err
	}
	decision, err := s.checker.Check(ctx, dept, date, timeOfDay, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.metrics.RecordBookingDecision(decision.Reason)
	if !decision.Admit {
		return nil, rejectionError(decision)
	}

	at, err := schedule.ParseSlot(date, timeOfDay, s.checker.Location())
	if err != nil {
		return nil, apperrors.NewValidationError("appointment date or time is malformed", nil)
	}

	payload := &events.TicketRescheduledPayload{
		CustomerID:   ticket.CustomerID,
		DepartmentID: ticket.DepartmentID,
		OldDate:      ticket.AppointmentDate,
		OldTime:      ticket.AppointmentTime,
		NewDate:      date,
		NewTime:      timeOfDay,
	}
	ticket.AppointmentDate = date
	ticket.AppointmentTime = timeOfDay
	ticket.AppointmentAt = at
	return payload, nil
}

// applyTransition mutates the ticket per the state machine without
// persisting. Pending is the only non-terminal state; every permitted
// transition closes the ticket.
func (s *BookingService) applyTransition(ticket *domain.Ticket, newStatus domain.TicketStatus, staffID, feedback, rejectionReason *string) error {
	if ticket.Status.Terminal() {
		return apperrors.NewValidationError("ticket is closed; no further status transitions", map[string]any{
			"status": ticket.Status,
		})
	}

	switch newStatus {
	case domain.TicketStatusApproved:
		if staffID == nil && ticket.StaffID == nil {
			return apperrors.NewValidationError("staff id required to approve", nil)
		}
		if staffID != nil {
			ticket.StaffID = staffID
		}
		if feedback != nil {
			ticket.Feedback = feedback
		}
	case domain.TicketStatusRejected:
		if rejectionReason == nil || strings.TrimSpace(*rejectionReason) == "" {
			return apperrors.NewValidationError("rejection reason required", nil)
		}
		reason := strings.TrimSpace(*rejectionReason)
		ticket.RejectionReason = &reason
		if staffID != nil {
			ticket.StaffID = staffID
		}
	case domain.TicketStatusCancelled:
		// withdrawal needs no extra detail
	default:
		return apperrors.NewValidationError("unsupported status transition", map[string]any{
			"status": newStatus,
		})
	}

	now := s.now()
	ticket.Status = newStatus
	ticket.ClosedAt = &now
	return nil
}

func (s *BookingService) persistUpdate(ctx context.Context, ticket *domain.Ticket) error {
	err := s.tickets.Update(ctx, ticket)
	if errors.Is(err, repository.ErrSlotTaken) {
		s.metrics.RecordBookingDecision(schedule.ReasonSlotTaken)
		return slotTakenError()
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", nil)
	}
	if err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *BookingService) verifyStaff(ctx context.Context, staffID string) error {
	if _, err := s.staff.GetByID(ctx, staffID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("staff member", nil)
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *BookingService) statusChangedPayload(ticket *domain.Ticket, oldStatus domain.TicketStatus) *events.TicketStatusChangedPayload {
	return &events.TicketStatusChangedPayload{
		CustomerID:      ticket.CustomerID,
		DepartmentID:    ticket.DepartmentID,
		OldStatus:       oldStatus,
		NewStatus:       ticket.Status,
		AppointmentDate: ticket.AppointmentDate,
		AppointmentTime: ticket.AppointmentTime,
		Feedback:        ticket.Feedback,
		RejectionReason: ticket.RejectionReason,
	}
}

func (s *BookingService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func validateNotes(notes string) error {
	length := utf8.RuneCountInString(strings.TrimSpace(notes))
	if length < notesMinLen || length > notesMaxLen {
		return apperrors.NewValidationError("notes must be between 10 and 500 characters", map[string]any{
			"length": length,
		})
	}
	return nil
}

func rejectionError(decision schedule.Decision) error {
	if decision.Reason == schedule.ReasonSlotTaken {
		return slotTakenError()
	}
	return apperrors.NewValidationError(reasonMessage(decision.Reason), map[string]any{
		"reason": decision.Reason,
	})
}

func slotTakenError() error {
	return apperrors.NewConflict(reasonMessage(schedule.ReasonSlotTaken), map[string]any{
		"reason": schedule.ReasonSlotTaken,
	})
}

func reasonMessage(reason string) string {
	switch reason {
	case schedule.ReasonInvalidFormat:
		return "appointment date or time is malformed"
	case schedule.ReasonOutsideHours:
		return "requested time is outside department operating hours"
	case schedule.ReasonBadAlignment:
		return "requested time does not start on a slot boundary"
	case schedule.ReasonWeekend:
		return "appointments cannot be booked on weekends"
	case schedule.ReasonInPast:
		return "requested time is in the past"
	case schedule.ReasonTooFarAhead:
		return "requested time is beyond the booking horizon"
	case schedule.ReasonSlotTaken:
		return "appointment slot already booked"
	default:
		return "appointment slot unavailable"
	}
}

func generateTicketKey() string {
	return "APT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func customerActor(customerID string) events.Actor {
	return events.Actor{
		Type:       domain.SubjectTypeCustomer,
		CustomerID: &customerID,
	}
}

func staffActor(staffID string) events.Actor {
	return events.Actor{
		Type:    domain.SubjectTypeStaff,
		StaffID: &staffID,
	}
}

func staffOrCustomerActor(ticket *domain.Ticket) events.Actor {
	if ticket.StaffID != nil {
		return staffActor(*ticket.StaffID)
	}
	return customerActor(ticket.CustomerID)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/govdesk/internal/domain"
	"github.com/spec-kit/govdesk/internal/events"
	"github.com/spec-kit/govdesk/internal/observability"
	"github.com/spec-kit/govdesk/internal/repository"
	"github.com/spec-kit/govdesk/internal/schedule"
	apperrors "github.com/spec-kit/govdesk/pkg/util/errorutil"
)

// memTicketRepo is an in-memory booking ledger. It enforces the same slot
// uniqueness the database partial index does, so the check-then-act race is
// observable in tests.
type memTicketRepo struct {
	mu    sync.Mutex
	seq   int
	items map[string]*domain.Ticket
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{items: make(map[string]*domain.Ticket)}
}

func (m *memTicketRepo) conflictLocked(departmentID string, at time.Time, excludeID string) *domain.Ticket {
	for _, tk := range m.items {
		if tk.DepartmentID != departmentID || !tk.AppointmentAt.Equal(at) {
			continue
		}
		if !tk.Status.BlocksSlot() {
			continue
		}
		if excludeID != "" && tk.ID == excludeID {
			continue
		}
		return tk
	}
	return nil
}

func (m *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflictLocked(ticket.DepartmentID, ticket.AppointmentAt, "") != nil {
		return repository.ErrSlotTaken
	}
	m.seq++
	ticket.ID = fmt.Sprintf("t-%d", m.seq)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	stored := *ticket
	m.items[ticket.ID] = &stored
	return nil
}

func (m *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	if ticket.Status.BlocksSlot() && m.conflictLocked(ticket.DepartmentID, ticket.AppointmentAt, ticket.ID) != nil {
		return repository.ErrSlotTaken
	}
	ticket.UpdatedAt = time.Now()
	stored := *ticket
	m.items[ticket.ID] = &stored
	return nil
}

func (m *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tk, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *tk
	return &out, nil
}

func (m *memTicketRepo) FindConflict(_ context.Context, departmentID string, at time.Time, excludeTicketID string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tk := m.conflictLocked(departmentID, at, excludeTicketID); tk != nil {
		out := *tk
		return &out, nil
	}
	return nil, nil
}

func (m *memTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Ticket
	for _, tk := range m.items {
		if filter.CustomerID != nil && tk.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.DepartmentID != nil && tk.DepartmentID != *filter.DepartmentID {
			continue
		}
		if filter.StaffID != nil && (tk.StaffID == nil || *tk.StaffID != *filter.StaffID) {
			continue
		}
		if filter.AppointmentDate != nil && tk.AppointmentDate != *filter.AppointmentDate {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, st := range filter.Statuses {
				if tk.Status == st {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *tk)
	}
	return out, nil
}

type memDepartmentRepo struct {
	items map[string]*domain.Department
}

func (m *memDepartmentRepo) Create(_ context.Context, dept *domain.Department) error {
	m.items[dept.ID] = dept
	return nil
}

func (m *memDepartmentRepo) Update(_ context.Context, dept *domain.Department) error {
	if _, ok := m.items[dept.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.items[dept.ID] = dept
	return nil
}

func (m *memDepartmentRepo) GetByID(_ context.Context, id string) (*domain.Department, error) {
	dept, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *dept
	return &out, nil
}

func (m *memDepartmentRepo) ListActive(_ context.Context) ([]domain.Department, error) {
	var out []domain.Department
	for _, dept := range m.items {
		if dept.IsActive {
			out = append(out, *dept)
		}
	}
	return out, nil
}

type memCustomerRepo struct {
	seq   int
	items map[string]*domain.Customer
}

func (m *memCustomerRepo) Create(_ context.Context, c *domain.Customer) error {
	if c.ID == "" {
		m.seq++
		c.ID = fmt.Sprintf("c-%d", m.seq+100)
	}
	m.items[c.ID] = c
	return nil
}

func (m *memCustomerRepo) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *c
	return &out, nil
}

func (m *memCustomerRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	for _, c := range m.items {
		if c.Email == email {
			out := *c
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memStaffRepo struct {
	items map[string]*domain.StaffMember
}

func (m *memStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	s, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *s
	return &out, nil
}

func (m *memStaffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	for _, s := range m.items {
		if s.Email == email {
			out := *s
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// eventSink records every published event.
type eventSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *eventSink) record(_ context.Context, e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *eventSink) ofType(t events.EventType) []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []events.Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type bookingFixture struct {
	svc     *BookingService
	tickets *memTicketRepo
	sink    *eventSink
}

// Monday 2025-03-03 08:00 UTC.
func bookingClock() time.Time {
	return time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()

	tickets := newMemTicketRepo()
	depts := &memDepartmentRepo{items: map[string]*domain.Department{
		"d-1": {ID: "d-1", Name: "Road Transport", OpenHour: 8, CloseHour: 16, IsActive: true},
		"d-2": {ID: "d-2", Name: "Civil Registry", OpenHour: 9, CloseHour: 17, LunchBreak: true, IsActive: true},
		"d-3": {ID: "d-3", Name: "Archive", OpenHour: 8, CloseHour: 16, IsActive: false},
	}}
	customers := &memCustomerRepo{items: map[string]*domain.Customer{
		"c-1": {ID: "c-1", Name: "Ana Petrova", Email: "ana@example.com", Status: domain.CustomerStatusActive},
		"c-2": {ID: "c-2", Name: "Boris Ilic", Email: "boris@example.com", Status: domain.CustomerStatusActive},
	}}
	staff := &memStaffRepo{items: map[string]*domain.StaffMember{
		"s-1": {ID: "s-1", Name: "Desk Agent", Email: "agent@example.com", Role: domain.StaffRoleAgent, Active: true},
	}}

	dispatcher := events.NewInMemoryDispatcher()
	sink := &eventSink{}
	for _, et := range []events.EventType{
		events.EventTicketBooked,
		events.EventTicketStatusChanged,
		events.EventTicketRescheduled,
		events.EventAppointmentReminder,
	} {
		dispatcher.Subscribe(et, sink.record)
	}

	directory := NewDirectoryService(depts, nil, zap.NewNop(), time.Minute)
	checker := schedule.NewChecker(tickets, 15, 3, time.UTC).WithClock(bookingClock)

	svc := NewBookingService(BookingDependencies{
		TicketRepo:   tickets,
		CustomerRepo: customers,
		StaffRepo:    staff,
		Directory:    directory,
		Checker:      checker,
		Dispatcher:   dispatcher,
		Metrics:      observability.NewMetrics(),
		Now:          bookingClock,
	})
	return &bookingFixture{svc: svc, tickets: tickets, sink: sink}
}

func validInput() BookingInput {
	return BookingInput{
		CustomerID:       "c-1",
		DepartmentID:     "d-1",
		IssueDescription: "Renew driver licence",
		Notes:            "Licence expires at the end of the month.",
		AppointmentDate:  "2025-03-10",
		AppointmentTime:  "09:00",
	}
}

func wantDomainStatus(t *testing.T, err error, status int) *apperrors.DomainError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with HTTP status %d, got nil", status)
	}
	var de *apperrors.DomainError
	if !errors.As(err, &de) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	if de.HTTPStatus != status {
		t.Fatalf("got HTTP status %d (%s), want %d", de.HTTPStatus, de.Message, status)
	}
	return de
}

func TestCreateTicketStartsPending(t *testing.T) {
	fx := newBookingFixture(t)

	ticket, err := fx.svc.CreateTicket(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.Status != domain.TicketStatusPending {
		t.Errorf("new ticket status = %s, want PENDING", ticket.Status)
	}
	if ticket.ClosedAt != nil {
		t.Error("new ticket must not be closed")
	}
	if ticket.ID == "" || ticket.ExternalKey == "" {
		t.Errorf("missing identifiers: id=%q key=%q", ticket.ID, ticket.ExternalKey)
	}
	want := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	if !ticket.AppointmentAt.Equal(want) {
		t.Errorf("appointment instant = %v, want %v", ticket.AppointmentAt, want)
	}

	booked := fx.sink.ofType(events.EventTicketBooked)
	if len(booked) != 1 || booked[0].TicketID != ticket.ID {
		t.Errorf("expected one booked event for %s, got %v", ticket.ID, booked)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	fx := newBookingFixture(t)

	tests := []struct {
		name       string
		mutate     func(*BookingInput)
		wantStatus int
	}{
		{"empty issue", func(in *BookingInput) { in.IssueDescription = "  " }, http.StatusBadRequest},
		{"notes too short", func(in *BookingInput) { in.Notes = "too short" }, http.StatusBadRequest},
		{"unknown department", func(in *BookingInput) { in.DepartmentID = "d-404" }, http.StatusNotFound},
		{"inactive department", func(in *BookingInput) { in.DepartmentID = "d-3" }, http.StatusBadRequest},
		{"unknown customer", func(in *BookingInput) { in.CustomerID = "c-404" }, http.StatusNotFound},
		{"weekend", func(in *BookingInput) { in.AppointmentDate = "2025-03-08" }, http.StatusBadRequest},
		{"in the past", func(in *BookingInput) { in.AppointmentDate = "2025-02-28" }, http.StatusBadRequest},
		{"off grid", func(in *BookingInput) { in.AppointmentTime = "09:07" }, http.StatusBadRequest},
		{"outside hours", func(in *BookingInput) { in.AppointmentTime = "17:00" }, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := fx.svc.CreateTicket(context.Background(), in)
			wantDomainStatus(t, err, tc.wantStatus)
		})
	}
}

func TestCreateTicketDuplicateSlotConflicts(t *testing.T) {
	fx := newBookingFixture(t)

	if _, err := fx.svc.CreateTicket(context.Background(), validInput()); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	in := validInput()
	in.CustomerID = "c-2"
	_, err := fx.svc.CreateTicket(context.Background(), in)
	wantDomainStatus(t, err, http.StatusConflict)

	// same instant in a different department is an independent slot
	in.DepartmentID = "d-2"
	if _, err := fx.svc.CreateTicket(context.Background(), in); err != nil {
		t.Fatalf("other department should be bookable: %v", err)
	}
}

func TestConcurrentBookingSingleWinner(t *testing.T) {
	fx := newBookingFixture(t)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.svc.CreateTicket(context.Background(), validInput())
		}(i)
	}
	wg.Wait()

	var won, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		default:
			de := wantDomainStatus(t, err, http.StatusConflict)
			if de.Code != "CONFLICT" {
				t.Errorf("loser error code = %s, want CONFLICT", de.Code)
			}
			conflicted++
		}
	}
	if won != 1 || conflicted != workers-1 {
		t.Fatalf("got %d winners and %d conflicts, want 1 and %d", won, conflicted, workers-1)
	}

	active, err := fx.tickets.ListWithFilter(context.Background(), repository.TicketFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusPending, domain.TicketStatusApproved},
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("ledger holds %d active tickets for the slot, want 1", len(active))
	}
}

func TestRejectRequiresReason(t *testing.T) {
	fx := newBookingFixture(t)

	ticket, err := fx.svc.CreateTicket(context.Background(), validInput())
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	staffID := "s-1"
	_, err = fx.svc.RejectTicket(context.Background(), ticket.ID, "   ", &staffID)
	wantDomainStatus(t, err, http.StatusBadRequest)

	// the failed reject left no side effects behind
	reloaded, err := fx.svc.GetTicket(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Status != domain.TicketStatusPending {
		t.Errorf("status = %s, want PENDING", reloaded.Status)
	}
	if reloaded.ClosedAt != nil || reloaded.RejectionReason != nil {
		t.Error("failed reject must not close the ticket or record a reason")
	}
	if changed := fx.sink.ofType(events.EventTicketStatusChanged); len(changed) != 0 {
		t.Errorf("failed reject published %d status events", len(changed))
	}
}

func TestDuplicateBookingScenario(t *testing.T) {
	fx := newBookingFixture(t)
	ctx := context.Background()

	first, err := fx.svc.CreateTicket(ctx, validInput())
	if err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	second := validInput()
	second.CustomerID = "c-2"
	_, err = fx.svc.CreateTicket(ctx, second)
	wantDomainStatus(t, err, http.StatusConflict)

	staffID := "s-1"
	rejected, err := fx.svc.RejectTicket(ctx, first.ID, "duplicate request", &staffID)
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != domain.TicketStatusRejected {
		t.Fatalf("status = %s, want REJECTED", rejected.Status)
	}
	if rejected.ClosedAt == nil {
		t.Fatal("rejected ticket must be closed")
	}
	if rejected.RejectionReason == nil || *rejected.RejectionReason != "duplicate request" {
		t.Fatalf("rejection reason = %v", rejected.RejectionReason)
	}

	// the rejection freed the slot for the second customer
	if _, err := fx.svc.CreateTicket(ctx, second); err != nil {
		t.Fatalf("rebooking the freed slot failed: %v", err)
	}
}

func TestApproveTicket(t *testing.T) {
	fx := newBookingFixture(t)
	ctx := context.Background()

	ticket, err := fx.svc.CreateTicket(ctx, validInput())
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	feedback := "bring your old licence"
	approved, err := fx.svc.ApproveTicket(ctx, ticket.ID, "s-1", &feedback)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Status != domain.TicketStatusApproved {
		t.Errorf("status = %s, want APPROVED", approved.Status)
	}
	if approved.StaffID == nil || *approved.StaffID != "s-1" {
		t.Errorf("assignee = %v, want s-1", approved.StaffID)
	}
	if approved.ClosedAt == nil || !approved.ClosedAt.Equal(bookingClock()) {
		t.Errorf("closedAt = %v, want fixture clock", approved.ClosedAt)
	}
	if approved.Feedback == nil || *approved.Feedback != feedback {
		t.Errorf("feedback = %v", approved.Feedback)
	}

	_, err = fx.svc.ApproveTicket(ctx, ticket.ID, "s-404", nil)
	wantDomainStatus(t, err, http.StatusNotFound)

	_, err = fx.svc.ApproveTicket(ctx, ticket.ID, " ", nil)
	wantDomainStatus(t, err, http.StatusBadRequest)
}

func TestTerminalStatesAreImmutable(t *testing.T) {
	fx := newBookingFixture(t)
	ctx := context.Background()
	staffID := "s-1"

	in := validInput()
	times := []string{"09:00", "09:15", "09:30"}
	terminal := make([]*domain.Ticket, 0, len(times))
	for _, tod := range times {
		in.AppointmentTime = tod
		tk, err := fx.svc.CreateTicket(ctx, in)
		if err != nil {
			t.Fatalf("booking %s failed: %v", tod, err)
		}
		terminal = append(terminal, tk)
	}

	if _, err := fx.svc.ApproveTicket(ctx, terminal[0].ID, staffID, nil); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if _, err := fx.svc.RejectTicket(ctx, terminal[1].ID, "out of scope", &staffID); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if _, err := fx.svc.CancelTicket(ctx, terminal[2].ID, events.Actor{Type: domain.SubjectTypeCustomer}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	for _, tk := range terminal {
		if _, err := fx.svc.ApproveTicket(ctx, tk.ID, staffID, nil); err == nil {
			t.Errorf("approve of closed ticket %s succeeded", tk.ID)
		}
		if _, err := fx.svc.RejectTicket(ctx, tk.ID, "again", &staffID); err == nil {
			t.Errorf("reject of closed ticket %s succeeded", tk.ID)
		}
		if _, err := fx.svc.CancelTicket(ctx, tk.ID, events.Actor{Type: domain.SubjectTypeCustomer}); err == nil {
			t.Errorf("cancel of closed ticket %s succeeded", tk.ID)
		}
		newTime := "11:00"
		if _, err := fx.svc.UpdateTicket(ctx, tk.ID, TicketPatch{AppointmentTime: &newTime}); err == nil {
			t.Errorf("reschedule of closed ticket %s succeeded", tk.ID)
		}
	}
}

func TestClosedAtTracksStatus(t *testing.T) {
	fx := newBookingFixture(t)
	ctx := context.Background()

	ticket, err := fx.svc.CreateTicket(ctx, validInput())
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if ticket.ClosedAt != nil {
		t.Fatal("pending ticket must have no closedAt")
	}

	cancelled, err := fx.svc.CancelTicket(ctx, ticket.ID, events.Actor{Type: domain.SubjectTypeCustomer})
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.ClosedAt == nil {
		t.Fatal("cancelled ticket must have closedAt")
	}
}

func TestCancelFreesSlot(t *testing.T) {
	fx := newBookingFixture(t)
	ctx := context.Background()

	ticket, err := fx.svc.CreateTicket(ctx, validInput())
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if _, err := fx.svc.CancelTicket(ctx, ticket.ID, events.Actor{Type: domain.SubjectTypeCustomer}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	// the row survives for audit, the slot is free again
	if _, err := fx.svc.GetTicket(ctx, ticket.ID); err != nil {
		t.Fatalf("cancelled ticket disappeared: %v", err)
	}
	in := validInput()
	in.CustomerID = "c-2"
	if _, err := fx.svc.CreateTicket(ctx, in); err != nil {
		t.Fatalf("rebooking cancelled slot failed: %v", err)
	}
}

func TestReschedule(t *testing.T) {
	fx := newBookingFixture(t)
	ctx := context.Background()

	first, err := fx.svc.CreateTicket(ctx, validInput())
	if err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	occupied := validInput()
	occupied.CustomerID = "c-2"
	occupied.AppointmentTime = "10:00"
	if _, err := fx.svc.CreateTicket(ctx, occupied); err != nil {
		t.Fatalf("second booking failed: %v", err)
	}

	// onto an occupied slot: the whole update is aborted
	takenTime := "10:00"
	newNotes := "Updated paperwork for the visit."
	_, err = fx.svc.UpdateTicket(ctx, first.ID, TicketPatch{AppointmentTime: &takenTime, Notes: &newNotes})
	wantDomainStatus(t, err, http.StatusConflict)

	reloaded, err := fx.svc.GetTicket(ctx, first.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.AppointmentTime != "09:00" || reloaded.Notes != first.Notes {
		t.Fatalf("aborted update mutated the ticket: time=%s notes=%q", reloaded.AppointmentTime, reloaded.Notes)
	}

	// onto a free slot
	freeTime := "10:15"
	updated, err := fx.svc.UpdateTicket(ctx, first.ID, TicketPatch{AppointmentTime: &freeTime, Notes: &newNotes})
	if err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}
	if updated.AppointmentTime != freeTime {
		t.Errorf("time = %s, want %s", updated.AppointmentTime, freeTime)
	}
	if updated.Notes != newNotes {
		t.Errorf("notes = %q, want %q", updated.Notes, newNotes)
	}
	want := time.Date(2025, 3, 10, 10, 15, 0, 0, time.UTC)
	if !updated.AppointmentAt.Equal(want) {
		t.Errorf("appointment instant = %v, want %v", updated.AppointmentAt, want)
	}
	if moved := fx.sink.ofType(events.EventTicketRescheduled); len(moved) != 1 {
		t.Errorf("expected one reschedule event, got %d", len(moved))
	}

	// rescheduling onto its own slot is a no-op conflict-wise
	if _, err := fx.svc.UpdateTicket(ctx, first.ID, TicketPatch{AppointmentTime: &freeTime}); err != nil {
		t.Errorf("reschedule onto own slot failed: %v", err)
	}
}

func TestUpdateStatusViaPatch(t *testing.T) {
	fx := newBookingFixture(t)
	ctx := context.Background()

	ticket, err := fx.svc.CreateTicket(ctx, validInput())
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	rejectedStatus := domain.TicketStatusRejected
	_, err = fx.svc.UpdateTicket(ctx, ticket.ID, TicketPatch{Status: &rejectedStatus})
	wantDomainStatus(t, err, http.StatusBadRequest)

	staffID := "s-1"
	approvedStatus := domain.TicketStatusApproved
	updated, err := fx.svc.UpdateTicket(ctx, ticket.ID, TicketPatch{Status: &approvedStatus, StaffID: &staffID})
	if err != nil {
		t.Fatalf("patch approve failed: %v", err)
	}
	if updated.Status != domain.TicketStatusApproved || updated.ClosedAt == nil {
		t.Fatalf("patch approve left status=%s closedAt=%v", updated.Status, updated.ClosedAt)
	}
}

func TestCheckAvailability(t *testing.T) {
	fx := newBookingFixture(t)
	ctx := context.Background()

	decision, err := fx.svc.CheckAvailability(ctx, "d-1", "2025-03-10", "09:00")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !decision.Admit {
		t.Fatalf("free slot reported %q", decision.Reason)
	}

	if _, err := fx.svc.CreateTicket(ctx, validInput()); err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	decision, err = fx.svc.CheckAvailability(ctx, "d-1", "2025-03-10", "09:00")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if decision.Admit || decision.Reason != schedule.ReasonSlotTaken {
		t.Fatalf("booked slot reported (%v, %q)", decision.Admit, decision.Reason)
	}

	_, err = fx.svc.CheckAvailability(ctx, "d-404", "2025-03-10", "09:00")
	wantDomainStatus(t, err, http.StatusNotFound)
}

func TestDaySlots(t *testing.T) {
	fx := newBookingFixture(t)
	ctx := context.Background()

	if _, err := fx.svc.CreateTicket(ctx, validInput()); err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	slots, err := fx.svc.DaySlots(ctx, "d-1", "2025-03-10")
	if err != nil {
		t.Fatalf("day slots failed: %v", err)
	}
	if len(slots) != 32 {
		t.Fatalf("got %d slots, want 32", len(slots))
	}
	byTime := make(map[string]bool, len(slots))
	for _, s := range slots {
		byTime[s.Time] = s.Available
	}
	if byTime["09:00"] {
		t.Error("booked slot 09:00 reported available")
	}
	if !byTime["09:15"] {
		t.Error("free slot 09:15 reported unavailable")
	}

	_, err = fx.svc.DaySlots(ctx, "d-1", "10/03/2025")
	wantDomainStatus(t, err, http.StatusBadRequest)
}

func TestGetTicketNotFound(t *testing.T) {
	fx := newBookingFixture(t)
	_, err := fx.svc.GetTicket(context.Background(), "t-404")
	wantDomainStatus(t, err, http.StatusNotFound)
}

package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/govdesk/internal/api/dto"
	"github.com/spec-kit/govdesk/internal/auth"
	"github.com/spec-kit/govdesk/internal/domain"
	"github.com/spec-kit/govdesk/internal/events"
	"github.com/spec-kit/govdesk/internal/repository"
	"github.com/spec-kit/govdesk/internal/service"
	apperrors "github.com/spec-kit/govdesk/pkg/util/errorutil"
)

// TicketsHandler manages appointment ticket endpoints.
type TicketsHandler struct {
	bookings  *service.BookingService
	assembler *service.TicketViewAssembler
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(bookings *service.BookingService, assembler *service.TicketViewAssembler) *TicketsHandler {
	return &TicketsHandler{bookings: bookings, assembler: assembler}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.DepartmentID == "" || req.AppointmentDate == "" || req.AppointmentTime == "" {
		return apperrors.NewValidationError("department_id, appointment_date, appointment_time required", nil)
	}

	customerID := req.CustomerID
	if principal.Customer != nil {
		customerID = principal.Customer.ID
	}
	if customerID == "" {
		return apperrors.NewValidationError("customer_id required", nil)
	}

	ticket, err := h.bookings.CreateTicket(c.UserContext(), service.BookingInput{
		CustomerID:       customerID,
		DepartmentID:     req.DepartmentID,
		IssueDescription: req.IssueDescription,
		Notes:            req.Notes,
		AppointmentDate:  req.AppointmentDate,
		AppointmentTime:  req.AppointmentTime,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": h.assembler.Assemble(c.UserContext(), ticket)})
}

// CheckAvailability GET /tickets/check-availability.
func (h *TicketsHandler) CheckAvailability(c *fiber.Ctx) error {
	departmentID := c.Query("departmentID")
	date := c.Query("appointmentDate")
	timeOfDay := c.Query("appointmentTime")
	if departmentID == "" || date == "" || timeOfDay == "" {
		return apperrors.NewValidationError("departmentID, appointmentDate, appointmentTime required", nil)
	}

	decision, err := h.bookings.CheckAvailability(c.UserContext(), departmentID, date, timeOfDay)
	if err != nil {
		return err
	}
	resp := dto.AvailabilityResponse{Available: decision.Admit}
	if !decision.Admit {
		resp.Message = decision.Reason
	}
	return c.JSON(resp)
}

// ListTickets GET /tickets. Customers see their own tickets; staff may
// filter across the ledger.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	filter := parseTicketFilter(c)
	if principal.Customer != nil {
		customerID := principal.Customer.ID
		filter.CustomerID = &customerID
	}

	tickets, err := h.bookings.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": h.assembler.AssembleList(c.UserContext(), tickets)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	ticket, err := h.bookings.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if principal.Customer != nil && ticket.CustomerID != principal.Customer.ID {
		return apperrors.NewForbidden("access denied")
	}
	return c.JSON(fiber.Map{"success": true, "data": h.assembler.Assemble(c.UserContext(), ticket)})
}

// UpdateTicket PUT /tickets/:id. Staff-only partial update; time changes are
// re-validated and status changes drive the state machine.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.bookings.UpdateTicket(c.UserContext(), c.Params("id"), service.TicketPatch{
		StaffID:         req.StaffID,
		Notes:           req.Notes,
		Feedback:        req.Feedback,
		AppointmentDate: req.AppointmentDate,
		AppointmentTime: req.AppointmentTime,
		Status:          req.Status,
		RejectionReason: req.RejectionReason,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": h.assembler.Assemble(c.UserContext(), ticket)})
}

// ApproveTicket PUT /tickets/:id/approve.
func (h *TicketsHandler) ApproveTicket(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)

	var req dto.ApproveTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	staffID := req.StaffID
	if staffID == "" && principal != nil && principal.Staff != nil {
		staffID = principal.Staff.ID
	}

	ticket, err := h.bookings.ApproveTicket(c.UserContext(), c.Params("id"), staffID, req.Feedback)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": h.assembler.Assemble(c.UserContext(), ticket)})
}

// RejectTicket PUT /tickets/:id/reject.
func (h *TicketsHandler) RejectTicket(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)

	var req dto.RejectTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	staffID := req.StaffID
	if staffID == nil && principal != nil && principal.Staff != nil {
		staffID = &principal.Staff.ID
	}

	ticket, err := h.bookings.RejectTicket(c.UserContext(), c.Params("id"), req.RejectionReason, staffID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": h.assembler.Assemble(c.UserContext(), ticket)})
}

// CancelTicket DELETE /tickets/:id. Cancels rather than deletes: the row is
// kept and the slot is freed through the lifecycle, not by removal.
func (h *TicketsHandler) CancelTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	ticket, err := h.bookings.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	var actor events.Actor
	switch {
	case principal.Customer != nil:
		if ticket.CustomerID != principal.Customer.ID {
			return apperrors.NewForbidden("access denied")
		}
		customerID := principal.Customer.ID
		actor = events.Actor{Type: domain.SubjectTypeCustomer, CustomerID: &customerID}
	case principal.Staff != nil:
		staffID := principal.Staff.ID
		actor = events.Actor{Type: domain.SubjectTypeStaff, StaffID: &staffID}
	default:
		return apperrors.NewUnauthorized("authentication required")
	}

	cancelled, err := h.bookings.CancelTicket(c.UserContext(), ticket.ID, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": h.assembler.Assemble(c.UserContext(), cancelled)})
}

func parseTicketFilter(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if deptID := c.Query("department_id"); deptID != "" {
		filter.DepartmentID = &deptID
	}
	if staffID := c.Query("staff_id"); staffID != "" {
		filter.StaffID = &staffID
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	if date := c.Query("appointment_date"); date != "" {
		filter.AppointmentDate = &date
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

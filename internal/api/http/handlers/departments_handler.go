package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/govdesk/internal/api/dto"
	"github.com/spec-kit/govdesk/internal/domain"
	"github.com/spec-kit/govdesk/internal/service"
	apperrors "github.com/spec-kit/govdesk/pkg/util/errorutil"
)

// DepartmentsHandler exposes the department directory and day calendars.
type DepartmentsHandler struct {
	directory *service.DirectoryService
	bookings  *service.BookingService
}

// NewDepartmentsHandler constructs the handler.
func NewDepartmentsHandler(directory *service.DirectoryService, bookings *service.BookingService) *DepartmentsHandler {
	return &DepartmentsHandler{directory: directory, bookings: bookings}
}

// ListDepartments GET /departments.
func (h *DepartmentsHandler) ListDepartments(c *fiber.Ctx) error {
	depts, err := h.directory.ListActive(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(depts))
	for i := range depts {
		items = append(items, departmentResponse(&depts[i]))
	}
	return c.JSON(fiber.Map{"success": true, "data": items})
}

// GetDepartment GET /departments/:id.
func (h *DepartmentsHandler) GetDepartment(c *fiber.Ctx) error {
	dept, err := h.directory.GetDepartment(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": departmentResponse(dept)})
}

// DaySlots GET /departments/:id/slots?date=YYYY-MM-DD.
func (h *DepartmentsHandler) DaySlots(c *fiber.Ctx) error {
	date := c.Query("date")
	if date == "" {
		return apperrors.NewValidationError("date required", nil)
	}
	slots, err := h.bookings.DaySlots(c.UserContext(), c.Params("id"), date)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": dto.DaySlotsResponse{
		DepartmentID: c.Params("id"),
		Date:         date,
		Slots:        slots,
	}})
}

func departmentResponse(dept *domain.Department) dto.DepartmentResponse {
	return dto.DepartmentResponse{
		ID:                 dept.ID,
		Name:               dept.Name,
		Description:        dept.Description,
		OpenHour:           dept.OpenHour,
		CloseHour:          dept.CloseHour,
		LunchBreak:         dept.LunchBreak,
		AppointmentReasons: dept.AppointmentReasons,
	}
}

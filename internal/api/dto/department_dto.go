package dto

import (
	"github.com/spec-kit/govdesk/internal/service"
)

// DepartmentResponse describes a bookable department.
type DepartmentResponse struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	OpenHour           int      `json:"open_hour"`
	CloseHour          int      `json:"close_hour"`
	LunchBreak         bool     `json:"lunch_break"`
	AppointmentReasons []string `json:"appointment_reasons"`
}

// DaySlotsResponse lists a department's calendar for one day.
type DaySlotsResponse struct {
	DepartmentID string               `json:"department_id"`
	Date         string               `json:"date"`
	Slots        []service.SlotStatus `json:"slots"`
}

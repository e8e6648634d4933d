package domain

import "time"

// Department represents a government service desk customers book against.
// OpenHour and CloseHour are the normalized operating window in 24-hour
// local time; appointments start at OpenHour:00 and the last slot ends at
// CloseHour:00. LunchBreak removes the 12:00-13:00 window from booking.
type Department struct {
	ID                 string
	Name               string
	Description        string
	OpenHour           int
	CloseHour          int
	LunchBreak         bool
	AppointmentReasons []string
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

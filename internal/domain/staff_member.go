package domain

import "time"

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleAgent StaffRole = "AGENT"
	StaffRoleAdmin StaffRole = "ADMIN"
)

// StaffMember models a department agent or administrator who triages tickets.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	DepartmentID *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

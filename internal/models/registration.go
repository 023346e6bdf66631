package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceStatus is the progress marker tracked per registration.
type AttendanceStatus string

const (
	StatusRegistered AttendanceStatus = "registered"
	StatusAttended   AttendanceStatus = "attended"
	StatusCompleted  AttendanceStatus = "completed"
)

// Valid reports whether s is one of the three attendance states.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusRegistered, StatusAttended, StatusCompleted:
		return true
	}
	return false
}

// Registration links one user to one program. The user_* fields are copied from the
// profile at registration time and never re-synced.
type Registration struct {
	ID                   uuid.UUID        `json:"id"`
	ProgramID            uuid.UUID        `json:"program_id"`
	UserID               uuid.UUID        `json:"user_id"`
	UserName             string           `json:"user_name"`
	UserDepartment       string           `json:"user_department"`
	UserStaffCode        string           `json:"user_staff_code"`
	UserPhone            string           `json:"user_phone"`
	TransactionID        *string          `json:"transaction_id,omitempty"`
	WillingnessConfirmed bool             `json:"willingness_confirmed"`
	RegisteredAt         time.Time        `json:"registered_at"`
	AttendanceStatus     AttendanceStatus `json:"attendance_status"`
	CertificateGenerated bool             `json:"certificate_generated"`
	CompletionDate       *time.Time       `json:"completion_date,omitempty"`
	CertificateKey       string           `json:"-"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// ProgramStatus is the publication state of a program.
type ProgramStatus string

const (
	ProgramDraft     ProgramStatus = "draft"
	ProgramPublished ProgramStatus = "published"
	ProgramCompleted ProgramStatus = "completed"
	ProgramCancelled ProgramStatus = "cancelled"
)

// Valid reports whether s is one of the known program statuses.
func (s ProgramStatus) Valid() bool {
	switch s {
	case ProgramDraft, ProgramPublished, ProgramCompleted, ProgramCancelled:
		return true
	}
	return false
}

// Program is one faculty training program offering.
type Program struct {
	ID                   uuid.UUID     `json:"id"`
	ProgramName          string        `json:"program_name"`
	SpeakerName          string        `json:"speaker_name"`
	SpeakerDesignation   string        `json:"speaker_designation"`
	StartDate            time.Time     `json:"start_date"`
	EndDate              time.Time     `json:"end_date"`
	Duration             int           `json:"duration"`
	Venue                string        `json:"venue"`
	ConductingDepartment string        `json:"conducting_department"`
	Description          string        `json:"description"`
	MaxParticipants      int           `json:"max_participants"`
	HasRegistrationFee   bool          `json:"has_registration_fee"`
	RegistrationFee      *float64      `json:"registration_fee,omitempty"`
	UPIID                string        `json:"upi_id,omitempty"`
	BrochureURL          string        `json:"brochure_url,omitempty"`
	GalleryPhotos        []string      `json:"gallery_photos"`
	ReportURL            string        `json:"report_url,omitempty"`
	Status               ProgramStatus `json:"status"`
	CreatedBy            uuid.UUID     `json:"created_by"`
	CreatedAt            time.Time     `json:"created_at"`
}

// Ended reports whether the program's end date is strictly before now.
func (p *Program) Ended(now time.Time) bool {
	return now.After(p.EndDate)
}

// DurationFromDates returns the inclusive number of calendar days between start and end.
func DurationFromDates(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	days := int(e.Sub(s).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

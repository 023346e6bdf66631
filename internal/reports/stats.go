package reports

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ultron-ftp/backend/internal/models"
)

// ProgramStats summarises one program's registrations.
type ProgramStats struct {
	Registered     int `json:"registered"`
	Attended       int `json:"attended"`
	Completed      int `json:"completed"`
	CompletionRate int `json:"completion_rate"`
}

// StatsFor tallies regs. Registered counts every registration; the rate is completed over
// registered as a rounded percentage, 0 when there are none.
func StatsFor(regs []models.Registration) ProgramStats {
	s := ProgramStats{Registered: len(regs)}
	for _, r := range regs {
		switch r.AttendanceStatus {
		case models.StatusAttended:
			s.Attended++
		case models.StatusCompleted:
			s.Completed++
		}
	}
	s.CompletionRate = CompletionRate(s.Completed, s.Registered)
	return s
}

// CompletionRate returns completed/total as a percentage rounded half away from zero.
func CompletionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// UserStats are the four dashboard counters shown to a participant.
type UserStats struct {
	AvailablePrograms  int `json:"available_programs"`
	MyRegistrations    int `json:"my_registrations"`
	CompletedPrograms  int `json:"completed_programs"`
	CertificatesEarned int `json:"certificates_earned"`
}

// StatsForUser computes dashboard counters from the published catalog and the user's registrations.
// Available programs are published programs that have not ended yet.
func StatsForUser(published []models.Program, regs []models.Registration, now time.Time) UserStats {
	s := UserStats{MyRegistrations: len(regs)}
	for i := range published {
		if !published[i].Ended(now) {
			s.AvailablePrograms++
		}
	}
	for _, r := range regs {
		if r.AttendanceStatus == models.StatusCompleted {
			s.CompletedPrograms++
		}
		if r.CertificateGenerated {
			s.CertificatesEarned++
		}
	}
	return s
}

// Rows joins programs with per-program registration tallies for the program export.
func Rows(programs []models.Program, counts map[uuid.UUID]ProgramStats) []ProgramRow {
	rows := make([]ProgramRow, 0, len(programs))
	for _, p := range programs {
		c := counts[p.ID]
		rows = append(rows, ProgramRow{Program: p, Participants: c.Registered, Completed: c.Completed})
	}
	return rows
}

// Package reports builds the CSV exports and summary statistics for programs and participants.
package reports

import (
	"bytes"
	"encoding/csv"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/ultron-ftp/backend/internal/models"
)

// DateLayout is the yyyy-MM-dd date used in every export.
const DateLayout = "2006-01-02"

// ContentTypeCSV is the media type of every export.
const ContentTypeCSV = "text/csv; charset=utf-8"

var (
	// ProgramsHeader is the header of the platform-wide program export.
	ProgramsHeader = []string{"Program Name", "Speaker", "Department", "Start Date", "End Date", "Participants", "Completed", "Status"}
	// AttendanceHeader is the header of a single program's attendance export.
	AttendanceHeader = []string{"Name", "Department", "Staff Code", "Phone", "Status", "Registered Date"}

	whitespaceRun = regexp.MustCompile(`\s+`)
)

// ProgramRow is one line of the program export.
type ProgramRow struct {
	Program      models.Program
	Participants int
	Completed    int
}

// ProgramsFilename is the download name of the program export generated on day.
func ProgramsFilename(day time.Time) string {
	return "ULTRON_FTP_Complete_Report_" + day.UTC().Format(DateLayout) + ".csv"
}

// AttendanceFilename is the download name of a program's attendance export.
func AttendanceFilename(programName string) string {
	return whitespaceRun.ReplaceAllString(programName, "_") + "_attendance_report.csv"
}

// WritePrograms writes the header followed by one record per row.
func WritePrograms(w io.Writer, rows []ProgramRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ProgramsHeader); err != nil {
		return err
	}
	for _, r := range rows {
		p := r.Program
		if err := cw.Write([]string{
			p.ProgramName,
			p.SpeakerName,
			p.ConductingDepartment,
			p.StartDate.UTC().Format(DateLayout),
			p.EndDate.UTC().Format(DateLayout),
			strconv.Itoa(r.Participants),
			strconv.Itoa(r.Completed),
			string(p.Status),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAttendance writes the header followed by one record per registration.
func WriteAttendance(w io.Writer, regs []models.Registration) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AttendanceHeader); err != nil {
		return err
	}
	for _, r := range regs {
		if err := cw.Write([]string{
			r.UserName,
			r.UserDepartment,
			r.UserStaffCode,
			r.UserPhone,
			string(r.AttendanceStatus),
			r.RegisteredAt.UTC().Format(DateLayout),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ProgramsCSV renders the program export into memory.
func ProgramsCSV(rows []ProgramRow) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePrograms(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// AttendanceCSV renders a program's attendance export into memory.
func AttendanceCSV(regs []models.Registration) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteAttendance(&buf, regs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

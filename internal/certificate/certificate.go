// Package certificate renders completion certificates for faculty training programs.
package certificate

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/ultron-ftp/backend/internal/models"
)

// DateLayout is the printed completion date format, e.g. "January 12, 2025".
const DateLayout = "January 02, 2006"

// Fixed captions drawn on every certificate.
const (
	Title            = "CERTIFICATE"
	Subtitle         = "OF COMPLETION"
	CertifyLine      = "This is to certify that"
	CompletedLine    = "has successfully completed the Faculty Training Program"
	CoordinatorLabel = "Program Coordinator"
	DirectorLabel    = "Director"
	EmblemTop        = "ULTRON"
	EmblemBottom     = "FTP"
)

// Data is the fixed record a certificate is drawn from. Every field is required.
type Data struct {
	ParticipantName      string `json:"participant_name"`
	ProgramName          string `json:"program_name"`
	SpeakerName          string `json:"speaker_name"`
	SpeakerDesignation   string `json:"speaker_designation"`
	Duration             int    `json:"duration"`
	CompletionDate       string `json:"completion_date"`
	ConductingDepartment string `json:"conducting_department"`
}

// NewData builds certificate data for a participant of a program completed on the given date.
func NewData(p *models.Program, participantName string, completedOn time.Time) Data {
	return Data{
		ParticipantName:      participantName,
		ProgramName:          p.ProgramName,
		SpeakerName:          p.SpeakerName,
		SpeakerDesignation:   p.SpeakerDesignation,
		Duration:             p.Duration,
		CompletionDate:       FormatCompletionDate(completedOn),
		ConductingDepartment: p.ConductingDepartment,
	}
}

// FormatCompletionDate formats t the way it is printed on the certificate.
func FormatCompletionDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Filename returns "{participant}_{program}_Certificate.pdf" with each whitespace rune
// replaced by an underscore.
func Filename(d Data) string {
	return underscore(d.ParticipantName) + "_" + underscore(d.ProgramName) + "_Certificate.pdf"
}

func underscore(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, s)
}

// SpeakerLine is the "conducted by" line.
func (d Data) SpeakerLine() string {
	return fmt.Sprintf("conducted by %s, %s", d.SpeakerName, d.SpeakerDesignation)
}

// LogisticsLine is the duration / organizer line.
func (d Data) LogisticsLine() string {
	suffix := ""
	if d.Duration > 1 {
		suffix = "s"
	}
	return fmt.Sprintf("Duration: %d day%s | Organized by: %s", d.Duration, suffix, d.ConductingDepartment)
}

// DateLine is the completion date line.
func (d Data) DateLine() string {
	return "Date of Completion: " + d.CompletionDate
}

// QuotedProgram is the program name wrapped in double quotes.
func (d Data) QuotedProgram() string {
	return `"` + d.ProgramName + `"`
}

// PreviewView is the on-screen representation of a certificate, in drawing order.
type PreviewView struct {
	Title           string   `json:"title"`
	Subtitle        string   `json:"subtitle"`
	CertifyLine     string   `json:"certify_line"`
	ParticipantName string   `json:"participant_name"`
	CompletedLine   string   `json:"completed_line"`
	ProgramName     string   `json:"program_name"`
	SpeakerLine     string   `json:"speaker_line"`
	LogisticsLine   string   `json:"logistics_line"`
	DateLine        string   `json:"date_line"`
	SignatureLabels []string `json:"signature_labels"`
	Emblem          string   `json:"emblem"`
	Filename        string   `json:"filename"`
}

// Preview returns the text content of the certificate without producing a file.
func Preview(d Data) PreviewView {
	return PreviewView{
		Title:           Title,
		Subtitle:        Subtitle,
		CertifyLine:     CertifyLine,
		ParticipantName: strings.ToUpper(d.ParticipantName),
		CompletedLine:   CompletedLine,
		ProgramName:     d.QuotedProgram(),
		SpeakerLine:     d.SpeakerLine(),
		LogisticsLine:   d.LogisticsLine(),
		DateLine:        d.DateLine(),
		SignatureLabels: []string{CoordinatorLabel, DirectorLabel},
		Emblem:          EmblemTop + " " + EmblemBottom,
		Filename:        Filename(d),
	}
}

// Lines returns the preview text in top-to-bottom order.
func (v PreviewView) Lines() []string {
	out := []string{
		v.Title, v.Subtitle, v.CertifyLine, v.ParticipantName, v.CompletedLine,
		v.ProgramName, v.SpeakerLine, v.LogisticsLine, v.DateLine,
	}
	return append(out, v.SignatureLabels...)
}

package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ultron-ftp/backend/internal/certificate"
	"github.com/ultron-ftp/backend/internal/programs"
	"github.com/ultron-ftp/backend/internal/registrations"
	"github.com/ultron-ftp/backend/pkg/validator"
)

func newCertificateCmd(opts *rootOptions) *cobra.Command {
	var (
		dir            string
		registrationID string
		date           string
		d              certificate.Data
	)
	cmd := &cobra.Command{
		Use:   "certificate",
		Short: "Render a completion certificate to a PDF file",
		Long: `Render a completion certificate to a PDF file.

With --registration the certificate of a completed registration is rendered from the database.
Otherwise every field is taken from flags, which needs no database.

Examples:
  ultronctl certificate --registration 6f1c...
  ultronctl certificate --participant "Jane Doe" --program "AI Workshop" --speaker "Dr. Rao" \
    --designation Professor --duration 3 --department CSE --date 2025-01-12`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if registrationID != "" {
				id, err := uuid.Parse(registrationID)
				if err != nil {
					return fmt.Errorf("invalid --registration: %w", err)
				}
				ctx := cmd.Context()
				_, pool, _, err := opts.connect(ctx)
				if err != nil {
					return err
				}
				defer pool.Close()
				reg, err := registrations.NewRepository(pool).GetByID(ctx, id)
				if err != nil {
					return fmt.Errorf("get registration: %w", err)
				}
				p, err := programs.NewRepository(pool).GetByID(ctx, reg.ProgramID)
				if err != nil {
					return fmt.Errorf("get program: %w", err)
				}
				completedOn := p.EndDate
				if reg.CompletionDate != nil {
					completedOn = *reg.CompletionDate
				}
				d = certificate.NewData(p, reg.UserName, completedOn)
			} else {
				on := time.Now().UTC()
				if date != "" {
					parsed, err := validator.ParseDate(date)
					if err != nil {
						return fmt.Errorf("invalid --date: %w", err)
					}
					on = parsed
				}
				d.CompletionDate = certificate.FormatCompletionDate(on)
				if d.ParticipantName == "" || d.ProgramName == "" || d.Duration < 1 {
					return errors.New("--participant, --program and --duration are required without --registration")
				}
			}
			pdf, err := certificate.NewRenderer().RenderBytes(d)
			if err != nil {
				return err
			}
			return writeFile(cmd, filepath.Join(dir, certificate.Filename(d)), pdf)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&dir, "dir", "d", ".", "output directory")
	f.StringVarP(&registrationID, "registration", "r", "", "registration id")
	f.StringVar(&d.ParticipantName, "participant", "", "participant name")
	f.StringVar(&d.ProgramName, "program", "", "program name")
	f.StringVar(&d.SpeakerName, "speaker", "", "speaker name")
	f.StringVar(&d.SpeakerDesignation, "designation", "", "speaker designation")
	f.IntVar(&d.Duration, "duration", 0, "duration in days")
	f.StringVar(&d.ConductingDepartment, "department", "", "conducting department")
	f.StringVar(&date, "date", "", "completion date, yyyy-mm-dd (default today)")
	return cmd
}

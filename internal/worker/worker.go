// Package worker drains the certificate archive queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ultron-ftp/backend/internal/certificate"
	"github.com/ultron-ftp/backend/internal/models"
	"github.com/ultron-ftp/backend/pkg/queue"
)

// Jobs is the queue the processor consumes.
type Jobs interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// RegistrationGetter loads registrations.
type RegistrationGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
}

// ProgramGetter loads programs.
type ProgramGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Program, error)
}

// Archiver renders and stores one certificate.
type Archiver interface {
	Archive(ctx context.Context, registrationID uuid.UUID, d certificate.Data) error
}

// CertificateProcessor archives certificates whose inline upload failed.
type CertificateProcessor struct {
	jobs          Jobs
	registrations RegistrationGetter
	programs      ProgramGetter
	archiver      Archiver
	logger        *zap.Logger
	backoff       time.Duration
}

// NewCertificateProcessor creates a certificate archive processor.
func NewCertificateProcessor(jobs Jobs, registrations RegistrationGetter, programs ProgramGetter, archiver Archiver, logger *zap.Logger) *CertificateProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateProcessor{
		jobs:          jobs,
		registrations: registrations,
		programs:      programs,
		archiver:      archiver,
		logger:        logger,
		backoff:       queue.RetryBackoff,
	}
}

// Process executes one certificate archive job.
func (p *CertificateProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeCertificateArchive {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.CertificateArchivePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	reg, err := p.registrations.GetByID(ctx, payload.RegistrationID)
	if err != nil {
		return fmt.Errorf("get registration %s: %w", payload.RegistrationID, err)
	}
	if reg.CertificateKey != "" {
		p.logger.Info("certificate already archived", zap.String("registration_id", reg.ID.String()))
		return nil
	}
	if reg.AttendanceStatus != models.StatusCompleted {
		p.logger.Warn("skipping archive for incomplete registration",
			zap.String("registration_id", reg.ID.String()),
			zap.String("status", string(reg.AttendanceStatus)))
		return nil
	}
	program, err := p.programs.GetByID(ctx, reg.ProgramID)
	if err != nil {
		return fmt.Errorf("get program %s: %w", reg.ProgramID, err)
	}

	completedOn := program.EndDate
	if reg.CompletionDate != nil {
		completedOn = *reg.CompletionDate
	}
	if err := p.archiver.Archive(ctx, reg.ID, certificate.NewData(program, reg.UserName, completedOn)); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	p.logger.Info("certificate archived", zap.String("registration_id", reg.ID.String()), zap.Int("attempt", job.Attempt))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error. It returns when ctx is done.
func (p *CertificateProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("certificate worker stopping")
			return
		default:
		}

		job, err := p.jobs.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.jobs.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *CertificateProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

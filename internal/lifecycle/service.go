// Package lifecycle owns the registration state machine:
// (none) -> registered -> attended -> completed, and certificate issuance on completion.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ultron-ftp/backend/internal/certificate"
	"github.com/ultron-ftp/backend/internal/models"
)

// Ledger persists registrations. Status writes are conditional on the current status.
type Ledger interface {
	Create(ctx context.Context, reg *models.Registration) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Registration, error)
	CountByProgram(ctx context.Context, programID uuid.UUID) (int, error)
	Exists(ctx context.Context, programID, userID uuid.UUID) (bool, error)
	// MarkAttended moves a registration from registered to attended. Returns false when
	// the registration was not in the registered state.
	MarkAttended(ctx context.Context, id uuid.UUID) (bool, error)
	// MarkCompleted moves a registration from attended to completed, sets certificate_generated
	// and the completion date. It returns the updated row (nil when nothing changed) and whether
	// certificate_generated was false before the write.
	MarkCompleted(ctx context.Context, id uuid.UUID, completedOn time.Time) (*models.Registration, bool, error)
}

// Catalog looks up programs.
type Catalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Program, error)
}

// Issuer produces the certificate for a newly completed registration. Defer hands the
// registration to the archive worker when the certificate cannot be built inline.
type Issuer interface {
	Issue(ctx context.Context, registrationID uuid.UUID, d certificate.Data) error
	Defer(ctx context.Context, registrationID uuid.UUID) error
}

// Policy holds the configurable registration rules.
type Policy struct {
	AllowDuplicates bool
	EnforceCapacity bool
}

// DefaultPolicy allows duplicate registrations and treats capacity as advisory.
func DefaultPolicy() Policy {
	return Policy{AllowDuplicates: true}
}

// Service applies lifecycle transitions.
type Service struct {
	ledger  Ledger
	catalog Catalog
	issuer  Issuer
	policy  Policy
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a lifecycle service.
func NewService(ledger Ledger, catalog Catalog, issuer Issuer, policy Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ledger:  ledger,
		catalog: catalog,
		issuer:  issuer,
		policy:  policy,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RegisterInput is a registration request on behalf of the profile owner.
type RegisterInput struct {
	Profile              *models.Profile
	ProgramID            uuid.UUID
	TransactionID        string
	WillingnessConfirmed bool
}

// Register creates a registration in the registered state.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Registration, error) {
	if !in.Profile.Complete() {
		return nil, ErrProfileIncomplete
	}
	program, err := s.catalog.GetByID(ctx, in.ProgramID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get program: %w", err)
	}
	if program.Status != models.ProgramPublished {
		return nil, ErrProgramClosed
	}
	if !in.WillingnessConfirmed {
		return nil, ErrWillingnessRequired
	}

	var txn *string
	trimmed := strings.TrimSpace(in.TransactionID)
	if program.HasRegistrationFee {
		if trimmed == "" {
			return nil, ErrTransactionRequired
		}
		txn = &trimmed
	} else if trimmed != "" {
		return nil, ErrTransactionNotAccepted
	}

	if !s.policy.AllowDuplicates {
		exists, err := s.ledger.Exists(ctx, program.ID, in.Profile.UserID)
		if err != nil {
			return nil, fmt.Errorf("check existing registration: %w", err)
		}
		if exists {
			return nil, ErrAlreadyRegistered
		}
	}
	if s.policy.EnforceCapacity && program.MaxParticipants > 0 {
		n, err := s.ledger.CountByProgram(ctx, program.ID)
		if err != nil {
			return nil, fmt.Errorf("count registrations: %w", err)
		}
		if n >= program.MaxParticipants {
			return nil, ErrProgramFull
		}
	}

	reg := &models.Registration{
		ID:                   uuid.New(),
		ProgramID:            program.ID,
		UserID:               in.Profile.UserID,
		UserName:             in.Profile.Name,
		UserDepartment:       in.Profile.Department,
		UserStaffCode:        in.Profile.StaffCode,
		UserPhone:            in.Profile.Phone,
		TransactionID:        txn,
		WillingnessConfirmed: true,
		RegisteredAt:         s.now(),
		AttendanceStatus:     models.StatusRegistered,
	}
	if err := s.ledger.Create(ctx, reg); err != nil {
		return nil, fmt.Errorf("create registration: %w", err)
	}
	s.logger.Info("registration created",
		zap.String("registration_id", reg.ID.String()),
		zap.String("program_id", program.ID.String()),
		zap.String("user_id", reg.UserID.String()))
	return reg, nil
}

// MarkAttended moves a registration from registered to attended.
func (s *Service) MarkAttended(ctx context.Context, registrationID uuid.UUID) (*models.Registration, error) {
	changed, err := s.ledger.MarkAttended(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("mark attended: %w", err)
	}
	reg, err := s.ledger.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	if !changed {
		return nil, ErrInvalidTransition
	}
	return reg, nil
}

// Complete moves a registration from attended to completed, dated today, and issues its
// certificate. Once the status write succeeds the registration is returned even if the
// certificate has to be deferred.
func (s *Service) Complete(ctx context.Context, registrationID uuid.UUID) (*models.Registration, error) {
	reg, issue, err := s.ledger.MarkCompleted(ctx, registrationID, s.now())
	if err != nil {
		return nil, fmt.Errorf("mark completed: %w", err)
	}
	if reg == nil {
		if _, err := s.ledger.GetByID(ctx, registrationID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("get registration: %w", err)
		}
		return nil, ErrInvalidTransition
	}
	if !issue {
		return reg, nil
	}
	program, err := s.catalog.GetByID(ctx, reg.ProgramID)
	if err != nil {
		s.logger.Warn("complete: program lookup failed, deferring certificate", zap.Error(err),
			zap.String("registration_id", reg.ID.String()),
			zap.String("program_id", reg.ProgramID.String()))
		if s.issuer != nil {
			if dErr := s.issuer.Defer(ctx, reg.ID); dErr != nil {
				s.logger.Error("certificate defer failed", zap.Error(dErr), zap.String("registration_id", reg.ID.String()))
			}
		}
		return reg, nil
	}
	s.issue(ctx, reg, program)
	return reg, nil
}

// Transition dispatches a manager-requested status change. Only registered -> attended
// and attended -> completed exist.
func (s *Service) Transition(ctx context.Context, registrationID uuid.UUID, target models.AttendanceStatus) (*models.Registration, error) {
	switch target {
	case models.StatusAttended:
		return s.MarkAttended(ctx, registrationID)
	case models.StatusCompleted:
		return s.Complete(ctx, registrationID)
	default:
		return nil, ErrInvalidTransition
	}
}

// Sweep completes every attended registration of userID whose program has ended before now,
// dating each certificate with the program end date. It returns the registrations it completed.
// Failures on one registration are logged and do not stop the others.
func (s *Service) Sweep(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.Registration, error) {
	regs, err := s.ledger.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	programs := make(map[uuid.UUID]*models.Program)
	var completed []models.Registration
	for _, r := range regs {
		if r.AttendanceStatus != models.StatusAttended {
			continue
		}
		if err := ctx.Err(); err != nil {
			return completed, err
		}
		program, ok := programs[r.ProgramID]
		if !ok {
			program, err = s.catalog.GetByID(ctx, r.ProgramID)
			if err != nil {
				s.logger.Warn("sweep: program lookup failed", zap.Error(err), zap.String("program_id", r.ProgramID.String()))
				continue
			}
			programs[r.ProgramID] = program
		}
		if !program.Ended(now) {
			continue
		}
		updated, issue, err := s.ledger.MarkCompleted(ctx, r.ID, program.EndDate)
		if err != nil {
			s.logger.Error("sweep: mark completed failed", zap.Error(err), zap.String("registration_id", r.ID.String()))
			continue
		}
		if updated == nil {
			continue
		}
		if issue {
			s.issue(ctx, updated, program)
		}
		completed = append(completed, *updated)
	}
	if len(completed) > 0 {
		s.logger.Info("sweep completed registrations", zap.String("user_id", userID.String()), zap.Int("count", len(completed)))
	}
	return completed, nil
}

// issue names the participant as captured on the registration, the same source the download
// handler and archive worker use.
func (s *Service) issue(ctx context.Context, reg *models.Registration, program *models.Program) {
	if s.issuer == nil {
		return
	}
	completedOn := program.EndDate
	if reg.CompletionDate != nil {
		completedOn = *reg.CompletionDate
	}
	d := certificate.NewData(program, reg.UserName, completedOn)
	if err := s.issuer.Issue(ctx, reg.ID, d); err != nil {
		s.logger.Error("certificate issuance failed", zap.Error(err),
			zap.String("registration_id", reg.ID.String()),
			zap.String("program_id", program.ID.String()))
	}
}

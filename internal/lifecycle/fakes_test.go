package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ultron-ftp/backend/internal/certificate"
	"github.com/ultron-ftp/backend/internal/models"
)

// memLedger mirrors the conditional-update semantics of the PostgreSQL repository.
type memLedger struct {
	mu   sync.Mutex
	regs map[uuid.UUID]*models.Registration
	err  error
}

func newMemLedger() *memLedger {
	return &memLedger{regs: make(map[uuid.UUID]*models.Registration)}
}

func (l *memLedger) put(r models.Registration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := r
	l.regs[r.ID] = &cp
}

func (l *memLedger) Create(_ context.Context, reg *models.Registration) error {
	if l.err != nil {
		return l.err
	}
	l.put(*reg)
	return nil
}

func (l *memLedger) GetByID(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.regs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (l *memLedger) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Registration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Registration
	for _, r := range l.regs {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (l *memLedger) CountByProgram(_ context.Context, programID uuid.UUID) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.regs {
		if r.ProgramID == programID {
			n++
		}
	}
	return n, nil
}

func (l *memLedger) Exists(_ context.Context, programID, userID uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.regs {
		if r.ProgramID == programID && r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (l *memLedger) MarkAttended(_ context.Context, id uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.regs[id]
	if !ok || r.AttendanceStatus != models.StatusRegistered {
		return false, nil
	}
	r.AttendanceStatus = models.StatusAttended
	return true, nil
}

func (l *memLedger) MarkCompleted(_ context.Context, id uuid.UUID, completedOn time.Time) (*models.Registration, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.regs[id]
	if !ok || r.AttendanceStatus != models.StatusAttended {
		return nil, false, nil
	}
	wasGenerated := r.CertificateGenerated
	r.AttendanceStatus = models.StatusCompleted
	r.CertificateGenerated = true
	if r.CompletionDate == nil {
		d := completedOn
		r.CompletionDate = &d
	}
	cp := *r
	return &cp, !wasGenerated, nil
}

func (l *memLedger) status(id uuid.UUID) models.AttendanceStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.regs[id].AttendanceStatus
}

type memCatalog struct {
	programs map[uuid.UUID]*models.Program
}

func (c *memCatalog) GetByID(_ context.Context, id uuid.UUID) (*models.Program, error) {
	p, ok := c.programs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p, nil
}

type issued struct {
	RegistrationID uuid.UUID
	Data           certificate.Data
}

type recordingIssuer struct {
	mu       sync.Mutex
	calls    []issued
	deferred []uuid.UUID
	err      error
}

func (i *recordingIssuer) Issue(_ context.Context, id uuid.UUID, d certificate.Data) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls = append(i.calls, issued{RegistrationID: id, Data: d})
	return i.err
}

func (i *recordingIssuer) Defer(_ context.Context, id uuid.UUID) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.deferred = append(i.deferred, id)
	return nil
}

func (i *recordingIssuer) count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.calls)
}

var errBoom = errors.New("boom")

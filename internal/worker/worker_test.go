package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ultron-ftp/backend/internal/certificate"
	"github.com/ultron-ftp/backend/internal/models"
	"github.com/ultron-ftp/backend/pkg/queue"
)

type fakeJobs struct {
	mu      sync.Mutex
	pending []*queue.Job
	retried []*queue.Job
}

func (f *fakeJobs) Dequeue(ctx context.Context) (*queue.Job, error) {
	f.mu.Lock()
	if len(f.pending) > 0 {
		job := f.pending[0]
		f.pending = f.pending[1:]
		f.mu.Unlock()
		return job, nil
	}
	f.mu.Unlock()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Millisecond):
		return nil, nil
	}
}

func (f *fakeJobs) Retry(_ context.Context, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.Attempt++
	f.retried = append(f.retried, job)
	return nil
}

type regs map[uuid.UUID]*models.Registration

func (r regs) GetByID(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	reg, ok := r[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return reg, nil
}

type progs map[uuid.UUID]*models.Program

func (p progs) GetByID(_ context.Context, id uuid.UUID) (*models.Program, error) {
	prog, ok := p[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return prog, nil
}

type fakeArchiver struct {
	mu    sync.Mutex
	calls []certificate.Data
	err   error
}

func (a *fakeArchiver) Archive(_ context.Context, _ uuid.UUID, d certificate.Data) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, d)
	return a.err
}

func fixture(t *testing.T) (regs, progs, *models.Registration) {
	t.Helper()
	program := &models.Program{
		ID:                   uuid.New(),
		ProgramName:          "Cloud Basics",
		SpeakerName:          "Iyer",
		SpeakerDesignation:   "Architect",
		Duration:             1,
		EndDate:              time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		ConductingDepartment: "IT",
	}
	completed := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	reg := &models.Registration{
		ID:               uuid.New(),
		ProgramID:        program.ID,
		UserName:         "Jane Doe",
		AttendanceStatus: models.StatusCompleted,
		CompletionDate:   &completed,
	}
	return regs{reg.ID: reg}, progs{program.ID: program}, reg
}

func job(t *testing.T, id uuid.UUID) *queue.Job {
	t.Helper()
	j, err := queue.NewJob(queue.JobTypeCertificateArchive, queue.CertificateArchivePayload{RegistrationID: id})
	require.NoError(t, err)
	return j
}

func TestProcess_ArchivesWithStoredCompletionDate(t *testing.T) {
	r, p, reg := fixture(t)
	arch := &fakeArchiver{}
	proc := NewCertificateProcessor(&fakeJobs{}, r, p, arch, zap.NewNop())

	require.NoError(t, proc.Process(context.Background(), job(t, reg.ID)))
	require.Len(t, arch.calls, 1)
	assert.Equal(t, "Jane Doe", arch.calls[0].ParticipantName)
	assert.Equal(t, "February 03, 2025", arch.calls[0].CompletionDate)
}

func TestProcess_SkipsArchivedAndIncomplete(t *testing.T) {
	r, p, reg := fixture(t)
	arch := &fakeArchiver{}
	proc := NewCertificateProcessor(&fakeJobs{}, r, p, arch, nil)

	reg.CertificateKey = "certificates/x.pdf"
	require.NoError(t, proc.Process(context.Background(), job(t, reg.ID)))
	reg.CertificateKey = ""
	reg.AttendanceStatus = models.StatusAttended
	require.NoError(t, proc.Process(context.Background(), job(t, reg.ID)))
	assert.Empty(t, arch.calls)
}

func TestProcess_Errors(t *testing.T) {
	r, p, reg := fixture(t)
	proc := NewCertificateProcessor(&fakeJobs{}, r, p, &fakeArchiver{err: assert.AnError}, nil)

	err := proc.Process(context.Background(), job(t, reg.ID))
	assert.ErrorIs(t, err, assert.AnError)

	err = proc.Process(context.Background(), job(t, uuid.New()))
	assert.True(t, errors.Is(err, models.ErrNotFound))

	err = proc.Process(context.Background(), &queue.Job{Type: "bogus"})
	assert.Error(t, err)
}

func TestRun_RetriesFailuresUntilCancelled(t *testing.T) {
	r, p, reg := fixture(t)
	jobs := &fakeJobs{pending: []*queue.Job{job(t, reg.ID)}}
	proc := NewCertificateProcessor(jobs, r, p, &fakeArchiver{err: assert.AnError}, nil)
	proc.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		proc.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		jobs.mu.Lock()
		defer jobs.mu.Unlock()
		return len(jobs.retried) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, 1, jobs.retried[0].Attempt)
}

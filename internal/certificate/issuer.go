package certificate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ultron-ftp/backend/pkg/queue"
	"github.com/ultron-ftp/backend/pkg/storage"
)

// BlobStore stores rendered certificate files.
type BlobStore interface {
	PutCertificate(ctx context.Context, key string, pdf []byte) error
}

// KeyRecorder remembers where a registration's certificate was archived.
type KeyRecorder interface {
	SetCertificateKey(ctx context.Context, registrationID uuid.UUID, key string) error
}

// RetryQueue defers archiving that failed inline.
type RetryQueue interface {
	EnqueueCertificateArchive(ctx context.Context, payload queue.CertificateArchivePayload) error
}

// Issuer renders a certificate once a registration completes and archives it.
type Issuer struct {
	renderer *Renderer
	store    BlobStore
	keys     KeyRecorder
	retry    RetryQueue
	logger   *zap.Logger
}

// NewIssuer creates an issuer. store and retry may be nil: without a store certificates are
// rendered on demand only; without a retry queue archive failures are only logged.
func NewIssuer(renderer *Renderer, store BlobStore, keys KeyRecorder, retry RetryQueue, logger *zap.Logger) *Issuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = NewRenderer()
	}
	return &Issuer{renderer: renderer, store: store, keys: keys, retry: retry, logger: logger}
}

// Issue renders the certificate for a newly completed registration and archives it. A failed
// archive is handed to the retry queue and does not fail the call; render errors do.
func (i *Issuer) Issue(ctx context.Context, registrationID uuid.UUID, d Data) error {
	pdf, err := i.renderer.RenderBytes(d)
	if err != nil {
		return err
	}
	i.logger.Info("certificate generated",
		zap.String("registration_id", registrationID.String()),
		zap.String("filename", Filename(d)))
	if i.store == nil {
		return nil
	}
	if err := i.archive(ctx, registrationID, d, pdf); err != nil {
		i.logger.Warn("certificate archive failed", zap.Error(err), zap.String("registration_id", registrationID.String()))
		if i.retry == nil {
			return nil
		}
		if qErr := i.retry.EnqueueCertificateArchive(ctx, queue.CertificateArchivePayload{RegistrationID: registrationID}); qErr != nil {
			return fmt.Errorf("archive certificate: %w (retry enqueue: %v)", err, qErr)
		}
	}
	return nil
}

// Archive renders and stores a certificate, returning any failure. Used by the retry worker.
func (i *Issuer) Archive(ctx context.Context, registrationID uuid.UUID, d Data) error {
	if i.store == nil {
		return fmt.Errorf("archive certificate: no blob store configured")
	}
	pdf, err := i.renderer.RenderBytes(d)
	if err != nil {
		return err
	}
	return i.archive(ctx, registrationID, d, pdf)
}

func (i *Issuer) archive(ctx context.Context, registrationID uuid.UUID, d Data, pdf []byte) error {
	key := storage.CertificateKey(registrationID.String(), Filename(d))
	if err := i.store.PutCertificate(ctx, key, pdf); err != nil {
		return fmt.Errorf("put certificate: %w", err)
	}
	if i.keys != nil {
		if err := i.keys.SetCertificateKey(ctx, registrationID, key); err != nil {
			return fmt.Errorf("record certificate key: %w", err)
		}
	}
	return nil
}

// Defer queues an archive job for a completed registration whose certificate could not be
// built inline. It is a no-op without a blob store or retry queue.
func (i *Issuer) Defer(ctx context.Context, registrationID uuid.UUID) error {
	if i.store == nil || i.retry == nil {
		return nil
	}
	if err := i.retry.EnqueueCertificateArchive(ctx, queue.CertificateArchivePayload{RegistrationID: registrationID}); err != nil {
		return fmt.Errorf("enqueue certificate archive: %w", err)
	}
	return nil
}

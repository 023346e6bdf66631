package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
)

// ErrTooLarge is returned when an upload exceeds its size limit.
var ErrTooLarge = errors.New("file too large")

// MediaUploader stores publicly readable media and returns its URL.
type MediaUploader interface {
	UploadMedia(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// ReadUpload reads a multipart file, rejecting anything above maxSize bytes.
func ReadUpload(fh *multipart.FileHeader, maxSize int64) ([]byte, error) {
	if fh.Size > maxSize {
		return nil, ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	body, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(body)) > maxSize {
		return nil, ErrTooLarge
	}
	return body, nil
}

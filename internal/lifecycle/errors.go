package lifecycle

import (
	"errors"

	"github.com/ultron-ftp/backend/internal/models"
)

var (
	ErrInvalidTransition      = errors.New("invalid attendance transition")
	ErrProfileIncomplete      = errors.New("profile is incomplete")
	ErrWillingnessRequired    = errors.New("willingness to attend must be confirmed")
	ErrTransactionRequired    = errors.New("transaction id is required for programs with a registration fee")
	ErrTransactionNotAccepted = errors.New("transaction id is not accepted for programs without a registration fee")
	ErrProgramClosed          = errors.New("program is not open for registration")
	ErrProgramFull            = errors.New("program is full")
	ErrAlreadyRegistered      = errors.New("already registered for this program")
	ErrNotFound               = models.ErrNotFound
)

package source

import (
	"github.com/pkg/errors"
)

// Errors shared by the backends.
var (
	ErrNotSeekable    = errors.New("source is not seekable")
	ErrAlreadyStarted = errors.New("source already started")
	ErrNotStarted     = errors.New("source not started")
	ErrInvalidURI     = errors.New("invalid URI")
	ErrInvalidRange   = errors.New("invalid range")
)

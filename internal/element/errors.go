package element

import (
	errors "golang.org/x/xerrors"
)

var (
	ErrInvalidType      = errors.New("element: invalid type")
	ErrTypeExists       = errors.New("element: type name already registered")
	ErrInterfaceExists  = errors.New("element: interface already implemented")
	ErrFactoryExists    = errors.New("element: factory name already registered")
	ErrNoSuchFactory    = errors.New("element: no such factory")
	ErrUnknownProperty  = errors.New("element: unknown property")
	ErrNotReadable      = errors.New("element: property not readable")
	ErrNotWritable      = errors.New("element: property not writable")
	ErrNotMutable       = errors.New("element: property not mutable in current state")
	ErrWrongValueType   = errors.New("element: wrong value type for property")
	ErrStateChange      = errors.New("element: state change failed")
	ErrDisposed         = errors.New("element: object disposed")
	ErrNotStarted       = errors.New("element: source not started")
	ErrNotSeekable      = errors.New("element: source not seekable")
	ErrInvalidRange     = errors.New("element: invalid seek range")
	ErrSeekFailed       = errors.New("element: seek failed")
	ErrNoURIHandler     = errors.New("element: no URI handler")
	ErrNotURIHandler    = errors.New("element: type does not implement the URI handler")
	ErrUnknownInterface = errors.New("element: unknown interface")
)

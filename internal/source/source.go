/*
Package source exposes pluggable byte-source backends as element classes.

A backend implements Source and is described by an Info. Register turns the
Info into a new element type deriving BaseSrc (or PushSrc for push-only
backends), attaches the URI handler capability and advertises the type as a
plugin factory. From then on every lifecycle, data and URI call the host makes
on an instance is forwarded to the Source created for it.
*/
package source

import (
	"github.com/lanikai/alohasrc/internal/logging"
)

var log = logging.DefaultLogger.WithTag("source")

// SizeUnknown is returned by Size when the total length of the stream is not
// known. As a Seek stop it means "until the end".
const SizeUnknown = ^uint64(0)

// Source is the contract a backend implements. The host guarantees that at
// most one Fill runs at a time, and that nothing is called after Close.
type Source interface {
	// Start prepares the backend for reading. An error aborts the state change.
	Start() error

	// Stop releases what Start acquired. It may be called while a Fill is
	// blocked, and must make that Fill return.
	Stop() error

	// Fill reads up to len(p) bytes at offset into p. io.EOF signals the end of
	// the stream; it may accompany a final non-empty read. p must not be
	// retained after Fill returns.
	Fill(offset uint64, p []byte) (int, error)

	// Seek restricts reading to [start, stop). stop may be SizeUnknown.
	Seek(start, stop uint64) error

	Size() uint64
	IsSeekable() bool

	URI() (string, bool)
	SetURI(uri string) error

	Close() error
}

// Object is the view of the host instance a backend is created for.
type Object interface {
	Name() string
	Blocksize() uint
}

// Factory creates the backend state for one instance.
type Factory func(obj Object) Source

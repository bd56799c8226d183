package element

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	errors "golang.org/x/xerrors"
)

type State int

const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "NULL"
	case StateReady:
		return "READY"
	case StatePaused:
		return "PAUSED"
	case StatePlaying:
		return "PLAYING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

/*
BaseSrc is an instance of a source class. It owns the state machine and the
data path, and calls into the class hooks of its TypeInfo:

	NULL -> READY -> PAUSED (Start) -> PLAYING
	PLAYING -> PAUSED -> READY (Stop) -> NULL

Control calls (SetState, SetProperty, SetURI) are serialized by the state
lock. Data-path calls (Create, PullRange, Loop, Seek) are serialized by the
stream lock, so at most one Fill is in flight per object. The two kinds of
calls may come from different goroutines.
*/
type BaseSrc struct {
	name     string
	class    *Class
	vt       TypeInfo
	pushOnly bool

	// Per-object state owned by the class implementation.
	instance interface{}

	stateMu sync.Mutex
	state   State

	disposed  atomic.Bool
	streaming atomic.Bool
	blocksize atomic.Uint32

	streamMu sync.Mutex
	offset   uint64
	segment  Segment
}

var instanceCounters = struct {
	sync.Mutex
	next map[string]int
}{next: make(map[string]int)}

func defaultName(prefix string) string {
	prefix = strings.ToLower(prefix)

	instanceCounters.Lock()
	defer instanceCounters.Unlock()
	n := instanceCounters.next[prefix]
	instanceCounters.next[prefix] = n + 1
	return fmt.Sprintf("%s%d", prefix, n)
}

// NewObject instantiates t. An empty name is replaced by the lower-cased type
// name and a counter.
func NewObject(t Type, name string) (*BaseSrc, error) {
	node, ok := lookupType(t)
	if !ok || t < typeFirstDynamic {
		return nil, errors.Errorf("instantiate %d: %w", t, ErrInvalidType)
	}
	if name == "" {
		name = defaultName(node.name)
	}
	return newObject(node, name), nil
}

func newObject(node *typeNode, name string) *BaseSrc {
	class := node.classRef()

	src := &BaseSrc{
		name:     name,
		class:    class,
		vt:       resolveVTable(node),
		pushOnly: TypeIsA(node.id, TypePushSrc),
		segment:  newSegment(),
	}
	src.blocksize.Store(DefaultBlocksize)

	if src.vt.InstanceInit != nil {
		src.vt.InstanceInit(src, class)
	}
	return src
}

// Merge the hooks of the parent chain, children overriding parents, and fill
// in the base class defaults.
func resolveVTable(node *typeNode) TypeInfo {
	var chain []*typeNode
	for n, ok := node, true; ok; n, ok = lookupType(n.parent) {
		chain = append(chain, n)
	}

	vt := TypeInfo{
		Start:      func(*BaseSrc) bool { return true },
		Stop:       func(*BaseSrc) bool { return true },
		IsSeekable: func(*BaseSrc) bool { return false },
		GetSize:    func(*BaseSrc) (uint64, bool) { return 0, false },
		Fill: func(*BaseSrc, uint64, uint, *Buffer) FlowReturn {
			return FlowNotSupported
		},
		DoSeek: BaseSrcDoSeek,
	}
	for i := len(chain) - 1; i >= 0; i-- {
		info := chain[i].info
		if info.InstanceInit != nil {
			vt.InstanceInit = info.InstanceInit
		}
		if info.Finalize != nil {
			vt.Finalize = info.Finalize
		}
		if info.SetProperty != nil {
			vt.SetProperty = info.SetProperty
		}
		if info.GetProperty != nil {
			vt.GetProperty = info.GetProperty
		}
		if info.Start != nil {
			vt.Start = info.Start
		}
		if info.Stop != nil {
			vt.Stop = info.Stop
		}
		if info.IsSeekable != nil {
			vt.IsSeekable = info.IsSeekable
		}
		if info.GetSize != nil {
			vt.GetSize = info.GetSize
		}
		if info.Fill != nil {
			vt.Fill = info.Fill
		}
		if info.DoSeek != nil {
			vt.DoSeek = info.DoSeek
		}
	}
	return vt
}

func (src *BaseSrc) Name() string {
	return src.name
}

func (src *BaseSrc) String() string {
	return src.name
}

func (src *BaseSrc) Class() *Class {
	return src.class
}

func (src *BaseSrc) Type() Type {
	return src.class.typ
}

// IsPushOnly reports whether the object derives TypePushSrc.
func (src *BaseSrc) IsPushOnly() bool {
	return src.pushOnly
}

// Instance returns the per-object slot set by the class implementation.
func (src *BaseSrc) Instance() interface{} {
	return src.instance
}

// SetInstance is meant to be called from InstanceInit and Finalize only.
func (src *BaseSrc) SetInstance(v interface{}) {
	src.instance = v
}

func (src *BaseSrc) Blocksize() uint {
	return uint(src.blocksize.Load())
}

func (src *BaseSrc) SetBlocksize(n uint) {
	if n == 0 {
		n = DefaultBlocksize
	}
	src.blocksize.Store(uint32(n))
}

func (src *BaseSrc) State() State {
	src.stateMu.Lock()
	defer src.stateMu.Unlock()
	return src.state
}

// SetState walks the state machine one step at a time until target is
// reached. A failing Start aborts the walk in READY.
func (src *BaseSrc) SetState(target State) error {
	if target < StateNull || target > StatePlaying {
		return errors.Errorf("%s: %v: %w", src.name, target, ErrStateChange)
	}

	src.stateMu.Lock()
	defer src.stateMu.Unlock()

	if src.disposed.Load() {
		return errors.Errorf("%s: %w", src.name, ErrDisposed)
	}
	return src.setStateLocked(target)
}

func (src *BaseSrc) setStateLocked(target State) error {
	for src.state != target {
		next := src.state + 1
		if target < src.state {
			next = src.state - 1
		}

		log.Debug("%s: %v -> %v", src.name, src.state, next)
		switch {
		case src.state == StateReady && next == StatePaused:
			if err := src.start(); err != nil {
				return err
			}
		case src.state == StatePaused && next == StateReady:
			if err := src.stop(); err != nil {
				return err
			}
		}
		src.state = next
	}
	return nil
}

func (src *BaseSrc) start() error {
	if !src.vt.Start(src) {
		return errors.Errorf("%s: READY to PAUSED: %w", src.name, ErrStateChange)
	}

	src.streamMu.Lock()
	src.offset = 0
	src.segment = newSegment()
	src.streamMu.Unlock()

	src.streaming.Store(true)
	return nil
}

// Stop runs while a Fill may still be blocked; it has to make that Fill
// return. The stream lock is taken afterwards to wait for it.
func (src *BaseSrc) stop() error {
	src.streaming.Store(false)
	ok := src.vt.Stop(src)

	src.streamMu.Lock()
	src.streamMu.Unlock()

	if !ok {
		return errors.Errorf("%s: PAUSED to READY: %w", src.name, ErrStateChange)
	}
	return nil
}

// Dispose brings the object down to NULL and runs its Finalize hook exactly
// once. Every later call on the object fails with ErrDisposed.
func (src *BaseSrc) Dispose() {
	src.stateMu.Lock()
	defer src.stateMu.Unlock()

	if src.disposed.Load() {
		return
	}
	if err := src.setStateLocked(StateNull); err != nil {
		log.Warn("%s: shutting down: %v", src.name, err)
		src.state = StateNull
	}
	src.disposed.Store(true)

	src.streamMu.Lock()
	defer src.streamMu.Unlock()

	log.Debug("%s: finalizing", src.name)
	if src.vt.Finalize != nil {
		src.vt.Finalize(src)
	}
}

func (src *BaseSrc) IsDisposed() bool {
	return src.disposed.Load()
}

func (src *BaseSrc) SetProperty(name string, value interface{}) error {
	pspec, ok := src.class.FindProperty(name)
	if !ok {
		return errors.Errorf("%s.%s: %w", src.name, name, ErrUnknownProperty)
	}
	if pspec.Flags&ParamWritable == 0 {
		return errors.Errorf("%s.%s: %w", src.name, name, ErrNotWritable)
	}
	if !pspec.Type.accepts(value) {
		return errors.Errorf("%s.%s: %T for %v: %w", src.name, name, value, pspec.Type, ErrWrongValueType)
	}

	src.stateMu.Lock()
	defer src.stateMu.Unlock()

	if src.disposed.Load() {
		return errors.Errorf("%s.%s: %w", src.name, name, ErrDisposed)
	}
	if pspec.Flags&ParamMutableReady != 0 && src.state > StateReady {
		return errors.Errorf("%s.%s in %v: %w", src.name, name, src.state, ErrNotMutable)
	}
	if src.vt.SetProperty == nil {
		return errors.Errorf("%s.%s: %w", src.name, name, ErrUnknownProperty)
	}
	if err := src.vt.SetProperty(src, pspec.id, value, pspec); err != nil {
		return errors.Errorf("%s.%s: %w", src.name, name, err)
	}
	return nil
}

func (src *BaseSrc) GetProperty(name string) (interface{}, error) {
	pspec, ok := src.class.FindProperty(name)
	if !ok {
		return nil, errors.Errorf("%s.%s: %w", src.name, name, ErrUnknownProperty)
	}
	if pspec.Flags&ParamReadable == 0 {
		return nil, errors.Errorf("%s.%s: %w", src.name, name, ErrNotReadable)
	}

	src.stateMu.Lock()
	defer src.stateMu.Unlock()

	if src.disposed.Load() {
		return nil, errors.Errorf("%s.%s: %w", src.name, name, ErrDisposed)
	}
	if src.vt.GetProperty == nil {
		return pspec.Default, nil
	}
	return src.vt.GetProperty(src, pspec.id, pspec), nil
}

// IsSeekable asks the class whether random access is possible.
func (src *BaseSrc) IsSeekable() bool {
	if src.disposed.Load() {
		return false
	}
	return src.vt.IsSeekable(src)
}

// Size returns the total stream size in bytes, or Unbounded if unknown.
func (src *BaseSrc) Size() uint64 {
	if src.disposed.Load() {
		return Unbounded
	}
	if size, ok := src.vt.GetSize(src); ok {
		return size
	}
	return Unbounded
}

// Offset returns the position the next Create will read from.
func (src *BaseSrc) Offset() uint64 {
	src.streamMu.Lock()
	defer src.streamMu.Unlock()
	return src.offset
}

func (src *BaseSrc) Segment() Segment {
	src.streamMu.Lock()
	defer src.streamMu.Unlock()
	return src.segment
}

// Create produces the next block of at most Blocksize bytes at the current
// offset.
func (src *BaseSrc) Create() (*Buffer, FlowReturn) {
	src.streamMu.Lock()
	defer src.streamMu.Unlock()
	return src.getRange(src.offset, src.Blocksize())
}

// PullRange reads length bytes at an arbitrary offset. Push-only sources do
// not support it.
func (src *BaseSrc) PullRange(offset uint64, length uint) (*Buffer, FlowReturn) {
	if src.pushOnly {
		return nil, FlowNotSupported
	}

	src.streamMu.Lock()
	defer src.streamMu.Unlock()
	return src.getRange(offset, length)
}

// Called with the stream lock held.
func (src *BaseSrc) getRange(offset uint64, length uint) (*Buffer, FlowReturn) {
	if !src.streaming.Load() {
		return nil, FlowFlushing
	}

	if stop := src.segment.Stop; stop != Unbounded {
		if offset >= stop {
			return nil, FlowEOS
		}
		if uint64(length) > stop-offset {
			length = uint(stop - offset)
		}
	}
	if size, ok := src.vt.GetSize(src); ok && size != Unbounded {
		if offset >= size {
			return nil, FlowEOS
		}
		if uint64(length) > size-offset {
			length = uint(size - offset)
		}
	}

	buf := NewBuffer(int(length))
	buf.offset = offset
	if length == 0 {
		// Nothing to read; the class is not asked.
		return buf, FlowOK
	}

	ret := src.vt.Fill(src, offset, length, buf)
	if ret != FlowOK {
		log.Debug("%s: fill at %d: %v", src.name, offset, ret)
		return nil, ret
	}

	src.offset = offset + uint64(buf.Size())
	src.segment.Position = src.offset
	return buf, FlowOK
}

// Loop runs Create until the stream ends, fails, ctx is done, or fn returns an
// error. It returns the flow that ended it.
func (src *BaseSrc) Loop(ctx context.Context, fn func(*Buffer) error) FlowReturn {
	for {
		select {
		case <-ctx.Done():
			return FlowFlushing
		default:
		}

		buf, ret := src.Create()
		if ret != FlowOK {
			return ret
		}
		if err := fn(buf); err != nil {
			log.Error("%s: pushing buffer at %d: %v", src.name, buf.Offset(), err)
			return FlowError
		}
	}
}

// Seek configures the byte segment [start, stop). stop may be Unbounded. The
// class DoSeek hook decides whether the seek happens; on success the next
// Create reads from start.
func (src *BaseSrc) Seek(start, stop uint64) error {
	if start > stop {
		return errors.Errorf("%s: seek [%d, %d): %w", src.name, start, stop, ErrInvalidRange)
	}
	if src.disposed.Load() {
		return errors.Errorf("%s: %w", src.name, ErrDisposed)
	}
	if !src.streaming.Load() {
		return errors.Errorf("%s: %w", src.name, ErrNotStarted)
	}
	if !src.IsSeekable() {
		return errors.Errorf("%s: %w", src.name, ErrNotSeekable)
	}

	src.streamMu.Lock()
	defer src.streamMu.Unlock()

	segment := src.segment
	segment.Start = start
	segment.Stop = stop
	segment.Position = start

	log.Debug("%s: seeking to %v", src.name, segment)
	if !src.vt.DoSeek(src, &segment) {
		return errors.Errorf("%s: seek [%d, %d): %w", src.name, start, stop, ErrSeekFailed)
	}
	return nil
}

// BaseSrcDoSeek is the base class seek: it adopts segment and moves the read
// offset to its start. It must only be called from a DoSeek hook.
func BaseSrcDoSeek(src *BaseSrc, segment *Segment) bool {
	src.segment = *segment
	src.offset = segment.Start
	return true
}

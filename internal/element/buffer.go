package element

import "fmt"

// Unbounded marks an open segment end or an unknown size.
const Unbounded = ^uint64(0)

// DefaultBlocksize is the number of bytes requested per Create.
const DefaultBlocksize = 4096

// FlowReturn is the status of a data-path call.
type FlowReturn int

const (
	FlowOK            FlowReturn = 0
	FlowNotLinked     FlowReturn = -1
	FlowFlushing      FlowReturn = -2
	FlowEOS           FlowReturn = -3
	FlowNotNegotiated FlowReturn = -4
	FlowError         FlowReturn = -5
	FlowNotSupported  FlowReturn = -6
)

func (f FlowReturn) String() string {
	switch f {
	case FlowOK:
		return "ok"
	case FlowNotLinked:
		return "not-linked"
	case FlowFlushing:
		return "flushing"
	case FlowEOS:
		return "eos"
	case FlowNotNegotiated:
		return "not-negotiated"
	case FlowError:
		return "error"
	case FlowNotSupported:
		return "not-supported"
	default:
		return fmt.Sprintf("flow(%d)", int(f))
	}
}

// Buffer is a block of memory handed to a source for filling. The memory
// belongs to the caller; a source must not keep a reference to it after Fill
// returns.
type Buffer struct {
	data   []byte
	size   int
	offset uint64
}

// NewBuffer allocates a buffer of n bytes. Its size starts at n.
func NewBuffer(n int) *Buffer {
	return &Buffer{data: make([]byte, n), size: n}
}

// Map returns the whole writable memory of the buffer.
func (b *Buffer) Map() []byte {
	return b.data
}

// Bytes returns the valid contents, up to Size.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.size]
}

func (b *Buffer) Size() int {
	return b.size
}

// SetSize shrinks or grows the valid region within the allocated memory.
func (b *Buffer) SetSize(n int) {
	if n < 0 || n > len(b.data) {
		panic(fmt.Sprintf("element: buffer size %d out of range [0, %d]", n, len(b.data)))
	}
	b.size = n
}

// Offset is the byte position of the first byte in the stream.
func (b *Buffer) Offset() uint64 {
	return b.offset
}

// Segment is the byte range the source is configured to produce.
type Segment struct {
	Start    uint64
	Stop     uint64 // Unbounded when open-ended
	Position uint64
}

func newSegment() Segment {
	return Segment{Stop: Unbounded}
}

func (s Segment) String() string {
	if s.Stop == Unbounded {
		return fmt.Sprintf("[%d, end) @%d", s.Start, s.Position)
	}
	return fmt.Sprintf("[%d, %d) @%d", s.Start, s.Stop, s.Position)
}

package element

import (
	"fmt"
	"strings"
)

type URIType int

const (
	URIUnknown URIType = iota
	URISink
	URISrc
)

func (t URIType) String() string {
	switch t {
	case URISink:
		return "sink"
	case URISrc:
		return "src"
	default:
		return "unknown"
	}
}

// URIHandlerInterface is the implementation of InterfaceURIHandler. GetType and
// GetProtocols are class-level; GetURI and SetURI operate on an instance.
type URIHandlerInterface struct {
	GetType      func(t Type) URIType
	GetProtocols func(t Type) []string
	GetURI       func(src *BaseSrc) (string, bool)

	// SetURI must return a non-nil error whenever it rejects the URI.
	SetURI func(src *BaseSrc, uri string) error
}

type URIErrorCode int

const (
	URIErrorUnsupportedProtocol URIErrorCode = iota
	URIErrorBadURI
	URIErrorBadState
	URIErrorBadReference
)

func (c URIErrorCode) String() string {
	switch c {
	case URIErrorUnsupportedProtocol:
		return "unsupported protocol"
	case URIErrorBadURI:
		return "bad URI"
	case URIErrorBadState:
		return "bad state"
	default:
		return "bad reference"
	}
}

// URIError is the error payload of a failed URI operation.
type URIError struct {
	Code URIErrorCode
	URI  string
	Err  error
}

func (e *URIError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %q", e.Code, e.URI)
	}
	return fmt.Sprintf("%s: %q: %v", e.Code, e.URI, e.Err)
}

func (e *URIError) Unwrap() error {
	return e.Err
}

// URIProtocol extracts the scheme of uri, as defined by RFC 3986:
// ALPHA *( ALPHA / DIGIT / "+" / "-" / "." ) followed by ':'.
func URIProtocol(uri string) (string, bool) {
	i := strings.IndexByte(uri, ':')
	if i < 1 {
		return "", false
	}
	for j := 0; j < i; j++ {
		c := uri[j]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case j > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return "", false
		}
	}
	return strings.ToLower(uri[:i]), true
}

// URIHasProtocol reports whether uri uses protocol, ignoring case.
func URIHasProtocol(uri, protocol string) bool {
	p, ok := URIProtocol(uri)
	return ok && strings.EqualFold(p, protocol)
}

func (src *BaseSrc) uriHandler() (*URIHandlerInterface, bool) {
	impl, ok := typeInterface(src.class.typ, InterfaceURIHandler)
	if !ok {
		return nil, false
	}
	return impl.(*URIHandlerInterface), true
}

// IsURIHandler reports whether the object's class implements the URI handler.
func (src *BaseSrc) IsURIHandler() bool {
	_, ok := src.uriHandler()
	return ok
}

func (src *BaseSrc) URIType() URIType {
	h, ok := src.uriHandler()
	if !ok || h.GetType == nil {
		return URIUnknown
	}
	return h.GetType(src.class.typ)
}

// Protocols returns the URI schemes the object's class accepts.
func (src *BaseSrc) Protocols() []string {
	return typeProtocols(src.class.typ)
}

func typeProtocols(t Type) []string {
	impl, ok := typeInterface(t, InterfaceURIHandler)
	if !ok {
		return nil
	}
	h := impl.(*URIHandlerInterface)
	if h.GetProtocols == nil {
		return nil
	}
	return h.GetProtocols(t)
}

// URI returns the object's current URI, if it has one.
func (src *BaseSrc) URI() (string, bool) {
	h, ok := src.uriHandler()
	if !ok || h.GetURI == nil || src.disposed.Load() {
		return "", false
	}
	return h.GetURI(src)
}

// SetURI checks that the URI's protocol is accepted and that the object has
// not started reading, then hands the URI to the class implementation. Every
// failure is reported as a *URIError.
func (src *BaseSrc) SetURI(uri string) error {
	h, ok := src.uriHandler()
	if !ok || h.SetURI == nil {
		return &URIError{Code: URIErrorUnsupportedProtocol, URI: uri, Err: ErrNotURIHandler}
	}

	protocol, ok := URIProtocol(uri)
	if !ok {
		return &URIError{Code: URIErrorBadURI, URI: uri}
	}
	if !containsFold(src.Protocols(), protocol) {
		return &URIError{
			Code: URIErrorUnsupportedProtocol,
			URI:  uri,
			Err:  fmt.Errorf("protocol %s not supported by %s", protocol, src.name),
		}
	}

	src.stateMu.Lock()
	defer src.stateMu.Unlock()

	if src.disposed.Load() {
		return &URIError{Code: URIErrorBadState, URI: uri, Err: ErrDisposed}
	}
	if src.state > StateReady {
		return &URIError{
			Code: URIErrorBadState,
			URI:  uri,
			Err:  fmt.Errorf("changing the URI in state %v is not supported", src.state),
		}
	}

	if err := h.SetURI(src, uri); err != nil {
		if _, ok := err.(*URIError); ok {
			return err
		}
		return &URIError{Code: URIErrorBadURI, URI: uri, Err: err}
	}
	return nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

package datasrc

import (
	"encoding/base64"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/lanikai/alohasrc/internal/element"
	"github.com/lanikai/alohasrc/internal/logging"
	"github.com/lanikai/alohasrc/internal/source"
)

var log = logging.DefaultLogger.WithTag("datasrc")

// Info describes the data URI backend for source.Register.
func Info() source.Info {
	return source.Info{
		Name:           "datasrc",
		LongName:       "Data URI Source",
		Description:    "Reads the payload embedded in a data: URI",
		Classification: "Source",
		Author:         "Lanikai Labs <dev@lanikailabs.com>",
		Rank:           element.RankMarginal,
		Factory:        New,
		Schemes:        "data",
	}
}

const defaultMediaType = "text/plain;charset=US-ASCII"

// Decode parses a data URI (RFC 2397):
//    data:[<mediatype>][;base64],<data>
func Decode(uri string) (mediaType string, payload []byte, err error) {
	if len(uri) < 5 || !strings.EqualFold(uri[:5], "data:") {
		return "", nil, errors.Wrap(source.ErrInvalidURI, "not a data URI")
	}
	rest := uri[5:]

	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return "", nil, errors.Wrap(source.ErrInvalidURI, "missing ','")
	}
	meta, data := rest[:comma], rest[comma+1:]

	isBase64 := false
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		isBase64 = true
		meta = meta[:len(meta)-len(";base64")]
	}

	mediaType = meta
	if mediaType == "" {
		mediaType = defaultMediaType
	} else if strings.HasPrefix(mediaType, ";") {
		mediaType = "text/plain" + mediaType
	}

	unescaped, err := url.PathUnescape(data)
	if err != nil {
		return "", nil, errors.Wrap(source.ErrInvalidURI, err.Error())
	}
	if !isBase64 {
		return mediaType, []byte(unescaped), nil
	}

	payload, err = base64.StdEncoding.DecodeString(unescaped)
	if err != nil {
		// Some encoders drop the padding.
		payload, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(unescaped, "="))
		if err != nil {
			return "", nil, errors.Wrap(source.ErrInvalidURI, err.Error())
		}
	}
	return mediaType, payload, nil
}

type Source struct {
	name string

	mu        sync.Mutex
	uri       string
	mediaType string
	payload   []byte
	started   bool
	stop      uint64
}

func New(obj source.Object) source.Source {
	return &Source{name: obj.Name()}
}

func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return source.ErrAlreadyStarted
	}
	if s.uri == "" {
		return errors.Wrap(source.ErrInvalidURI, "no URI set")
	}
	s.started = true
	s.stop = uint64(len(s.payload))
	return nil
}

func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return source.ErrNotStarted
	}
	s.started = false
	return nil
}

func (s *Source) Fill(offset uint64, p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return 0, source.ErrNotStarted
	}
	if offset >= s.stop {
		return 0, io.EOF
	}
	n := copy(p, s.payload[offset:s.stop])
	if offset+uint64(n) == s.stop {
		return n, io.EOF
	}
	return n, nil
}

func (s *Source) Seek(start, stop uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := uint64(len(s.payload))
	if start > stop || start > size {
		return errors.Wrapf(source.ErrInvalidRange, "seek [%d, %d) in %d bytes", start, stop, size)
	}
	if stop > size {
		stop = size
	}
	s.stop = stop
	return nil
}

// Size is known as soon as a URI is set.
func (s *Source) Size() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.uri == "" {
		return source.SizeUnknown
	}
	return uint64(len(s.payload))
}

func (s *Source) IsSeekable() bool {
	return true
}

// MediaType returns the media type declared by the URI.
func (s *Source) MediaType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mediaType
}

func (s *Source) URI() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uri, s.uri != ""
}

func (s *Source) SetURI(uri string) error {
	mediaType, payload, err := Decode(uri)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.Wrap(source.ErrAlreadyStarted, "changing the payload of a running source")
	}
	s.uri, s.mediaType, s.payload = uri, mediaType, payload
	log.Debug("%s: %d bytes of %s", s.name, len(payload), mediaType)
	return nil
}

func (s *Source) Close() error {
	return nil
}

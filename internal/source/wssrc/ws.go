//////////////////////////////////////////////////////////////////////////////
//
// Websocket source: a push-only byte stream made of websocket messages
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package wssrc

import (
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/lanikai/alohasrc/internal/element"
	"github.com/lanikai/alohasrc/internal/logging"
	"github.com/lanikai/alohasrc/internal/source"
)

var log = logging.DefaultLogger.WithTag("wssrc")

type Options struct {
	HandshakeTimeout time.Duration

	// Number of messages buffered between the connection and Fill.
	QueueDepth int
}

func DefaultOptions() Options {
	return Options{
		HandshakeTimeout: 10 * time.Second,
		QueueDepth:       32,
	}
}

// Info describes the websocket backend for source.Register.
func Info(opts Options) source.Info {
	return source.Info{
		Name:           "wssrc",
		LongName:       "Websocket Source",
		Description:    "Reads the messages of a websocket as a byte stream",
		Classification: "Source/Network",
		Author:         "Lanikai Labs <dev@lanikailabs.com>",
		Rank:           element.RankMarginal,
		Factory: func(obj source.Object) source.Source {
			return New(obj, opts)
		},
		Schemes:  "ws:wss",
		PushOnly: true,
	}
}

type Source struct {
	name string
	opts Options

	mu    sync.Mutex
	uri   string
	conn  *websocket.Conn
	loop  *singletonLoop
	queue *queue

	// Owned by Fill: the unread part of the current message and the stream
	// offset of its first byte.
	rest   []byte
	offset uint64
}

func New(obj source.Object, opts Options) *Source {
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = DefaultOptions().QueueDepth
	}
	return &Source{name: obj.Name(), opts: opts}
}

func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return source.ErrAlreadyStarted
	}
	if s.uri == "" {
		return errors.Wrap(source.ErrInvalidURI, "no URI set")
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: s.opts.HandshakeTimeout,
	}
	conn, resp, err := dialer.Dial(s.uri, nil)
	if err != nil {
		if resp != nil {
			return errors.Wrapf(err, "dial %s: %s", s.uri, resp.Status)
		}
		return errors.Wrapf(err, "dial %s", s.uri)
	}
	log.Info("%s: connected to %s", s.name, s.uri)

	q := newQueue(s.opts.QueueDepth)
	s.conn = conn
	s.queue = q
	s.rest = nil
	s.offset = 0
	s.loop = newSingletonLoop(func(quit <-chan struct{}) {
		s.readMessages(conn, q, quit)
	})
	s.loop.start()
	return nil
}

// readMessages moves messages from conn into q until the connection ends.
func (s *Source) readMessages(conn *websocket.Conn, q *queue, quit <-chan struct{}) {
	for {
		typ, p, err := conn.ReadMessage()
		if err != nil {
			switch {
			case q.finished():
				// Disconnected locally.
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				log.Debug("%s: connection closed", s.name)
				q.finish(io.EOF)
			default:
				log.Warn("%s: read: %v", s.name, err)
				q.finish(err)
			}
			return
		}

		switch typ {
		case websocket.BinaryMessage, websocket.TextMessage:
			if len(p) == 0 {
				continue
			}
			if !q.put(p, quit) {
				q.finish(source.ErrNotStarted)
				return
			}
		}
	}
}

func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.disconnect()
}

// Called with mu held.
func (s *Source) disconnect() error {
	if s.conn == nil {
		return source.ErrNotStarted
	}

	// Finishing the queue releases a blocked Fill; closing the connection fails
	// the blocked ReadMessage.
	s.queue.finish(source.ErrNotStarted)
	if err := s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second)); err != nil {
		log.Debug("%s: close message: %v", s.name, err)
	}
	err := s.conn.Close()
	s.loop.stop()

	s.conn = nil
	s.loop = nil
	return err
}

func (s *Source) Fill(offset uint64, p []byte) (int, error) {
	s.mu.Lock()
	q := s.queue
	s.mu.Unlock()

	if q == nil {
		return 0, source.ErrNotStarted
	}
	if offset != s.offset {
		return 0, errors.Wrapf(source.ErrNotSeekable, "read at %d, stream is at %d", offset, s.offset)
	}

	if len(s.rest) == 0 {
		msg, err := q.get()
		if err != nil {
			return 0, err
		}
		s.rest = msg
	}

	n := copy(p, s.rest)
	s.rest = s.rest[n:]
	s.offset += uint64(n)
	return n, nil
}

func (s *Source) Seek(start, stop uint64) error {
	return source.ErrNotSeekable
}

func (s *Source) Size() uint64 {
	return source.SizeUnknown
}

func (s *Source) IsSeekable() bool {
	return false
}

func (s *Source) URI() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uri, s.uri != ""
}

func (s *Source) SetURI(uri string) error {
	u, err := url.Parse(uri)
	if err != nil {
		return errors.Wrap(source.ErrInvalidURI, err.Error())
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.Wrapf(source.ErrInvalidURI, "scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.Wrap(source.ErrInvalidURI, "no host")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return errors.Wrap(source.ErrAlreadyStarted, "changing the URI of a connected source")
	}
	s.uri = uri
	return nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return s.disconnect()
	}
	return nil
}

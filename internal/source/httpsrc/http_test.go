package httpsrc

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/alohasrc/internal/element"
	"github.com/lanikai/alohasrc/internal/source"
)

type object string

func (o object) Name() string    { return string(o) }
func (o object) Blocksize() uint { return element.DefaultBlocksize }

const payload = "0123456789abcdef"

type server struct {
	*httptest.Server
	requests   int32
	userAgents chan string
}

// newServer serves payload, honoring range requests when ranges is set.
func newServer(t *testing.T, ranges bool) *server {
	s := &server{userAgents: make(chan string, 16)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.requests, 1)
		select {
		case s.userAgents <- r.UserAgent():
		default:
		}

		switch r.URL.Path {
		case "/data":
			if ranges {
				http.ServeContent(w, r, "data", time.Time{}, bytes.NewReader([]byte(payload)))
				return
			}
			// Chunked, no length and no ranges.
			w.Write([]byte(payload[:8]))
			w.(http.Flusher).Flush()
			w.Write([]byte(payload[8:]))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *server) count() int {
	return int(atomic.LoadInt32(&s.requests))
}

func newSource(t *testing.T, uri string) *Source {
	opts := DefaultOptions()
	opts.BlockSize = 4
	opts.UserAgent = "alohasrc-test"
	s := New(object("httpsrc0"), opts)
	require.NoError(t, s.SetURI(uri))
	t.Cleanup(func() { s.Close() })
	return s
}

// readAt fills n bytes at offset, in as many calls as needed.
func readAt(t *testing.T, s *Source, offset uint64, n int) string {
	var out []byte
	for len(out) < n {
		p := make([]byte, n-len(out))
		k, err := s.Fill(offset+uint64(len(out)), p)
		out = append(out, p[:k]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	return string(out)
}

func TestSetURI(t *testing.T) {
	s := New(object("httpsrc0"), DefaultOptions())
	for _, uri := range []string{"ftp://host/x", "http:///nohost", "https//bad"} {
		assert.Equal(t, source.ErrInvalidURI, errors.Cause(s.SetURI(uri)), uri)
	}
	_, ok := s.URI()
	assert.False(t, ok)

	require.NoError(t, s.SetURI("https://example.com/x"))
	uri, ok := s.URI()
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/x", uri)
}

func TestSequentialRead(t *testing.T) {
	srv := newServer(t, true)
	s := newSource(t, srv.URL+"/data")

	assert.Equal(t, source.SizeUnknown, s.Size())
	require.NoError(t, s.Start())
	assert.Equal(t, "alohasrc-test", <-srv.userAgents)
	assert.EqualValues(t, len(payload), s.Size())
	assert.True(t, s.IsSeekable())

	assert.Equal(t, payload, readAt(t, s, 0, len(payload)))
	assert.Equal(t, 1, srv.count())

	err := s.SetURI(srv.URL + "/other")
	assert.Equal(t, source.ErrAlreadyStarted, errors.Cause(err))

	require.NoError(t, s.Stop())
	_, err = s.Fill(0, make([]byte, 4))
	assert.Equal(t, source.ErrNotStarted, err)
}

func TestRangeRequestsAndCache(t *testing.T) {
	srv := newServer(t, true)
	s := newSource(t, srv.URL+"/data")
	require.NoError(t, s.Start())

	assert.Equal(t, "01234567", readAt(t, s, 0, 8))
	assert.Equal(t, 1, srv.count())

	// Blocks 0 and 1 are cached.
	assert.Equal(t, "2345", readAt(t, s, 2, 4))
	assert.Equal(t, 1, srv.count())

	// Jumping ahead opens a range at the block boundary.
	assert.Equal(t, "def", readAt(t, s, 13, 3))
	assert.Equal(t, 2, srv.count())

	require.NoError(t, s.Seek(9, 11))
	assert.Equal(t, "9a", readAt(t, s, 9, 8))
	_, err := s.Fill(11, make([]byte, 4))
	assert.Equal(t, io.EOF, err)

	assert.Error(t, s.Seek(100, source.SizeUnknown))
}

func TestWithoutRanges(t *testing.T) {
	srv := newServer(t, false)
	s := newSource(t, srv.URL+"/data")
	require.NoError(t, s.Start())

	assert.Equal(t, source.SizeUnknown, s.Size())
	assert.False(t, s.IsSeekable())
	assert.Equal(t, source.ErrNotSeekable, s.Seek(4, source.SizeUnknown))

	assert.Equal(t, "0123", readAt(t, s, 0, 4))
	_, err := s.Fill(10, make([]byte, 4))
	assert.Equal(t, source.ErrNotSeekable, errors.Cause(err))

	assert.Equal(t, payload[4:], readAt(t, s, 4, 64))
}

func TestEmptyFill(t *testing.T) {
	srv := newServer(t, true)
	s := newSource(t, srv.URL+"/data")
	require.NoError(t, s.Start())

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := s.Fill(0, []byte{})
		done <- result{n, err}
	}()

	select {
	case r := <-done:
		assert.Equal(t, 0, r.n)
		assert.NoError(t, r.err)
	case <-time.After(5 * time.Second):
		t.Fatal("Fill of an empty buffer did not return")
	}

	n, err := readSome(bytes.NewReader([]byte("x")), nil)
	assert.Equal(t, 0, n)
	assert.NoError(t, err)

	assert.Equal(t, "0123", readAt(t, s, 0, 4))
}

func TestStartNotFound(t *testing.T) {
	srv := newServer(t, true)
	s := newSource(t, srv.URL+"/missing")
	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestThroughElement(t *testing.T) {
	srv := newServer(t, true)
	info := Info(DefaultOptions())
	info.Name = "httpsrc-test"
	require.NoError(t, source.Register(&element.Plugin{Name: "test"}, info))

	src, err := element.MakeFromURI(element.URISrc, srv.URL+"/data", "")
	require.NoError(t, err)
	defer src.Dispose()

	src.SetBlocksize(6)
	require.NoError(t, src.SetState(element.StatePlaying))
	assert.EqualValues(t, len(payload), src.Size())

	buf, ret := src.PullRange(10, 4)
	require.Equal(t, element.FlowOK, ret)
	assert.Equal(t, "abcd", string(buf.Bytes()))

	buf, ret = src.PullRange(0, 0)
	require.Equal(t, element.FlowOK, ret)
	assert.Equal(t, 0, buf.Size())

	require.NoError(t, src.SetState(element.StateReady))
	require.NoError(t, src.SetURI(srv.URL+"/data?again"))
}

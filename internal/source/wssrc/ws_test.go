package wssrc

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/alohasrc/internal/element"
	"github.com/lanikai/alohasrc/internal/logging"
	"github.com/lanikai/alohasrc/internal/source"
)

type object string

func (o object) Name() string    { return string(o) }
func (o object) Blocksize() uint { return element.DefaultBlocksize }

// newServer upgrades every request and hands the connection to handle.
func newServer(t *testing.T, handle func(ws *websocket.Conn)) string {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := new(websocket.Upgrader).Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade: %v", err)
			return
		}
		defer ws.Close()
		handle(ws)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func sendAndClose(messages ...string) func(ws *websocket.Conn) {
	return func(ws *websocket.Conn) {
		for _, m := range messages {
			if err := ws.WriteMessage(websocket.BinaryMessage, []byte(m)); err != nil {
				return
			}
		}
		ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
		// Wait for the client's close reply.
		ws.ReadMessage()
	}
}

func TestQueueDeliversBeforeFinish(t *testing.T) {
	q := newQueue(2)
	quit := make(chan struct{})
	assert.True(t, q.put([]byte("a"), quit))
	assert.True(t, q.put([]byte("b"), quit))
	q.finish(io.EOF)
	q.finish(errors.New("ignored"))

	for _, want := range []string{"a", "b"} {
		p, err := q.get()
		require.NoError(t, err)
		assert.Equal(t, want, string(p))
	}
	_, err := q.get()
	assert.Equal(t, io.EOF, err)

	full := newQueue(1)
	require.True(t, full.put([]byte("c"), quit))
	close(quit)
	assert.False(t, full.put([]byte("d"), quit), "a full queue gives up on quit")
}

func TestSingletonLoop(t *testing.T) {
	ran := make(chan struct{})
	loop := newSingletonLoop(func(quit <-chan struct{}) {
		close(ran)
		<-quit
	})
	assert.False(t, loop.running())
	loop.start()
	<-ran
	assert.True(t, loop.running())
	assert.Panics(t, loop.start)
	loop.stop()
	assert.False(t, loop.running())
	assert.Panics(t, loop.stop)
}

func TestReadMessages(t *testing.T) {
	uri := newServer(t, sendAndClose("hello", ", ", "world"))

	s := New(object("wssrc0"), Options{QueueDepth: 1})
	require.NoError(t, s.SetURI(uri))
	require.NoError(t, s.Start())
	defer s.Close()

	assert.False(t, s.IsSeekable())
	assert.Equal(t, source.SizeUnknown, s.Size())
	assert.Equal(t, source.ErrNotSeekable, s.Seek(0, source.SizeUnknown))

	var out []byte
	p := make([]byte, 3)
	for {
		n, err := s.Fill(uint64(len(out)), p)
		out = append(out, p[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, "hello, world", string(out))

	_, err := s.Fill(0, p)
	assert.Equal(t, source.ErrNotSeekable, errors.Cause(err))
}

func TestStopUnblocksFill(t *testing.T) {
	hold := make(chan struct{})
	uri := newServer(t, func(ws *websocket.Conn) {
		<-hold
	})
	defer close(hold)

	s := New(object("wssrc1"), DefaultOptions())
	require.NoError(t, s.SetURI(uri))
	require.NoError(t, s.Start())

	errc := make(chan error, 1)
	go func() {
		_, err := s.Fill(0, make([]byte, 16))
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Stop())

	select {
	case err := <-errc:
		assert.Equal(t, source.ErrNotStarted, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Fill still blocked after Stop")
	}

	assert.Equal(t, source.ErrNotStarted, s.Stop())
	assert.NoError(t, s.Close())
}

func TestStopLogsFailedCloseMessage(t *testing.T) {
	var buf bytes.Buffer
	logging.DefaultLogger.SetDestination(&buf)
	logging.DefaultLogger.SetFormat(logging.FormatJSON)
	require.NoError(t, logging.Configure("wssrc=debug"))
	t.Cleanup(func() {
		logging.DefaultLogger.SetDestination(os.Stderr)
		logging.DefaultLogger.SetFormat(logging.FormatConsole)
		logging.Configure("")
	})

	hold := make(chan struct{})
	uri := newServer(t, func(ws *websocket.Conn) {
		<-hold
	})
	defer close(hold)

	s := New(object("wssrc3"), DefaultOptions())
	require.NoError(t, s.SetURI(uri))
	require.NoError(t, s.Start())

	// Break the connection under the source so the close message cannot go out.
	s.mu.Lock()
	s.conn.UnderlyingConn().Close()
	s.mu.Unlock()
	s.Stop()

	assert.Contains(t, buf.String(), "wssrc3: close message")
}

func TestSetURI(t *testing.T) {
	s := New(object("wssrc2"), DefaultOptions())
	for _, uri := range []string{"http://host/x", "ws:///x", "::"} {
		assert.Equal(t, source.ErrInvalidURI, errors.Cause(s.SetURI(uri)), uri)
	}
	require.NoError(t, s.SetURI("wss://example.com/feed"))
	uri, ok := s.URI()
	assert.True(t, ok)
	assert.Equal(t, "wss://example.com/feed", uri)
}

func TestThroughElement(t *testing.T) {
	uri := newServer(t, sendAndClose("abc", "defg"))
	info := Info(DefaultOptions())
	info.Name = "wssrc-test"
	require.NoError(t, source.Register(&element.Plugin{Name: "test"}, info))

	src, err := element.MakeFromURI(element.URISrc, uri, "")
	require.NoError(t, err)
	defer src.Dispose()

	assert.True(t, src.IsPushOnly())
	require.NoError(t, src.SetState(element.StatePlaying))
	assert.Error(t, src.Seek(2, element.Unbounded))

	var got []string
	ret := src.Loop(context.Background(), func(buf *element.Buffer) error {
		got = append(got, string(buf.Bytes()))
		return nil
	})
	assert.Equal(t, element.FlowEOS, ret)
	assert.Equal(t, []string{"abc", "defg"}, got)
}

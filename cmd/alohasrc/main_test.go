package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/alohasrc/internal/config"
)

func run(t *testing.T, args ...string) (string, error) {
	color.NoColor = true

	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	original := GitTag
	t.Cleanup(func() { GitTag = original })
	GitTag = "1.2.3"

	out, err := run(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "alohasrc 1.2.3")
}

func TestInspect(t *testing.T) {
	out, err := run(t, "inspect")
	require.NoError(t, err)
	require.Contains(t, out, "filesrc")
	require.Contains(t, out, "http,https")
	require.Contains(t, out, "push")

	out, err = run(t, "inspect", "httpsrc")
	require.NoError(t, err)
	require.Contains(t, out, "HTTP Source")
	require.Contains(t, out, "AlohaSrc-httpsrc")
	require.Contains(t, out, "Protocols       http, https")
	require.Contains(t, out, "src: src, always, caps ANY")
	require.Contains(t, out, "changeable only in NULL or READY state")

	_, err = run(t, "inspect", "nosuchsrc")
	require.Error(t, err)
}

func TestCatDataURI(t *testing.T) {
	out, err := run(t, "cat", "--blocksize", "3", "data:,hello%20world")
	require.NoError(t, err)
	require.Equal(t, "hello world", out)
}

func TestCatFileRange(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	outPath := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(in, []byte("0123456789"), 0644))

	_, err := run(t, "cat", "--offset", "2", "--length", "5", "-o", outPath, in)
	require.NoError(t, err)

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, "23456", string(got))
}

func TestCatInterruptReleasesBlockedRead(t *testing.T) {
	// A websocket that connects but never sends anything.
	hold := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := new(websocket.Upgrader).Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		<-hold
	}))
	t.Cleanup(srv.Close)
	defer close(hold)

	cfg := config.Default()
	require.NoError(t, initPlugin(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(200*time.Millisecond, cancel)

	errc := make(chan error, 1)
	go func() {
		uri := "ws" + strings.TrimPrefix(srv.URL, "http")
		errc <- runCat(ctx, &catOptions{}, uri, io.Discard)
	}()

	select {
	case err := <-errc:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(5 * time.Second):
		t.Fatal("cat still reading after the context was cancelled")
	}
}

func TestCatUnsupportedScheme(t *testing.T) {
	_, err := run(t, "cat", "gopher://example.com/")
	require.Error(t, err)
}

func TestHelpShowsBanner(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	require.Contains(t, out, `\__,_|`)
	require.Contains(t, out, "inspect")
}

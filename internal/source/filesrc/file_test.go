package filesrc

import (
	"context"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/alohasrc/internal/element"
	"github.com/lanikai/alohasrc/internal/source"
)

type object string

func (o object) Name() string    { return string(o) }
func (o object) Blocksize() uint { return element.DefaultBlocksize }

func writeTemp(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, ioutil.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestPathFromURI(t *testing.T) {
	path, err := pathFromURI("file:///tmp/a%20b.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/tmp/a b.txt"), path)

	_, err = pathFromURI("file://localhost/tmp/x")
	assert.NoError(t, err)

	for _, uri := range []string{"http://host/x", "file://remote/x", "file:relative", "file://"} {
		_, err := pathFromURI(uri)
		assert.Equal(t, source.ErrInvalidURI, errors.Cause(err), uri)
	}
}

func TestReadAndSeek(t *testing.T) {
	path := writeTemp(t, "0123456789")
	uri, err := URIFromPath(path)
	require.NoError(t, err)

	s := New(object("filesrc0"))
	assert.Equal(t, source.SizeUnknown, s.Size())
	assert.Error(t, s.Start(), "no URI yet")

	require.NoError(t, s.SetURI(uri))
	got, ok := s.URI()
	assert.True(t, ok)
	assert.Equal(t, uri, got)

	require.NoError(t, s.Start())
	defer s.Close()
	assert.EqualValues(t, 10, s.Size())
	assert.True(t, s.IsSeekable())

	p := make([]byte, 4)
	n, err := s.Fill(0, p)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(p[:n]))

	n, err = s.Fill(8, p)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "89", string(p[:n]))

	require.NoError(t, s.Seek(2, 5))
	n, err = s.Fill(2, p)
	require.NoError(t, err)
	assert.Equal(t, "234", string(p[:n]))
	_, err = s.Fill(5, p)
	assert.Equal(t, io.EOF, err)

	assert.Error(t, s.Seek(11, source.SizeUnknown))

	err = s.SetURI(uri)
	assert.Equal(t, source.ErrAlreadyStarted, errors.Cause(err))

	require.NoError(t, s.Stop())
	assert.Equal(t, source.ErrNotStarted, s.Stop())
	require.NoError(t, s.Close())
}

func TestStartMissingFile(t *testing.T) {
	s := New(object("filesrc1"))
	require.NoError(t, s.SetURI("file://"+filepath.ToSlash(filepath.Join(t.TempDir(), "missing"))))
	err := s.Start()
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestThroughElement(t *testing.T) {
	info := Info()
	info.Name = "filesrc-test"
	require.NoError(t, source.Register(&element.Plugin{Name: "test"}, info))

	uri, err := URIFromPath(writeTemp(t, "hello, world"))
	require.NoError(t, err)

	src, err := element.MakeFromURI(element.URISrc, uri, "")
	require.NoError(t, err)
	defer src.Dispose()

	src.SetBlocksize(5)
	require.NoError(t, src.SetState(element.StatePlaying))
	require.NoError(t, src.Seek(7, element.Unbounded))

	var out []byte
	ret := src.Loop(context.Background(), func(buf *element.Buffer) error {
		out = append(out, buf.Bytes()...)
		return nil
	})
	assert.Equal(t, element.FlowEOS, ret)
	assert.Equal(t, "world", string(out))
}

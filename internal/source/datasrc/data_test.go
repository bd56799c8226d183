package datasrc

import (
	"context"
	"io"
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

func TestDecode(t *testing.T) {
	tests := []struct {
		uri       string
		mediaType string
		payload   string
	}{
		{"data:,A%20brief%20note", defaultMediaType, "A brief note"},
		{"data:text/plain;charset=utf-8,hi", "text/plain;charset=utf-8", "hi"},
		{"data:;charset=utf-8,hi", "text/plain;charset=utf-8", "hi"},
		{"data:application/octet-stream;base64,aGVsbG8=", "application/octet-stream", "hello"},
		{"DATA:;BASE64,aGVsbG8", defaultMediaType, "hello"},
		{"data:,", defaultMediaType, ""},
	}
	for _, tt := range tests {
		mediaType, payload, err := Decode(tt.uri)
		require.NoError(t, err, tt.uri)
		assert.Equal(t, tt.mediaType, mediaType, tt.uri)
		assert.Equal(t, tt.payload, string(payload), tt.uri)
	}

	for _, uri := range []string{"http://x", "data:nocomma", "data:;base64,!!!", "data:,%zz"} {
		_, _, err := Decode(uri)
		assert.Equal(t, source.ErrInvalidURI, errors.Cause(err), uri)
	}
}

func TestFillAndSeek(t *testing.T) {
	s := New(object("datasrc0")).(*Source)
	assert.Equal(t, source.SizeUnknown, s.Size())

	require.NoError(t, s.SetURI("data:,0123456789"))
	assert.Equal(t, defaultMediaType, s.MediaType())
	assert.EqualValues(t, 10, s.Size())
	require.NoError(t, s.Start())

	p := make([]byte, 4)
	n, err := s.Fill(0, p)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(p[:n]))

	n, err = s.Fill(8, p)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "89", string(p[:n]))

	require.NoError(t, s.Seek(3, 5))
	n, err = s.Fill(3, p)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "34", string(p[:n]))

	assert.Error(t, s.Seek(11, source.SizeUnknown))
	assert.Equal(t, source.ErrAlreadyStarted, errors.Cause(s.SetURI("data:,x")))
	require.NoError(t, s.Stop())
	require.NoError(t, s.SetURI("data:,x"))
}

func TestThroughElement(t *testing.T) {
	info := Info()
	info.Name = "datasrc-test"
	require.NoError(t, source.Register(&element.Plugin{Name: "test"}, info))

	src, err := element.MakeFromURI(element.URISrc, "data:;base64,aGVsbG8sIHdvcmxk", "")
	require.NoError(t, err)
	defer src.Dispose()

	src.SetBlocksize(5)
	require.NoError(t, src.SetState(element.StatePlaying))
	assert.EqualValues(t, 12, src.Size())

	var got []string
	ret := src.Loop(context.Background(), func(buf *element.Buffer) error {
		got = append(got, string(buf.Bytes()))
		return nil
	})
	assert.Equal(t, element.FlowEOS, ret)
	assert.Equal(t, []string{"hello", ", wor", "ld"}, got)
}

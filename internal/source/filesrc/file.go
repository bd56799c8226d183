//////////////////////////////////////////////////////////////////////////////
//
// Local file source
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package filesrc

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/lanikai/alohasrc/internal/element"
	"github.com/lanikai/alohasrc/internal/logging"
	"github.com/lanikai/alohasrc/internal/source"
)

var log = logging.DefaultLogger.WithTag("filesrc")

// Info describes the file backend for source.Register.
func Info() source.Info {
	return source.Info{
		Name:           "filesrc",
		LongName:       "File Source",
		Description:    "Reads local files",
		Classification: "Source/File",
		Author:         "Lanikai Labs <dev@lanikailabs.com>",
		Rank:           element.RankPrimary,
		Factory:        New,
		Schemes:        "file",
	}
}

// Source reads a local file with positioned reads. The URI may only be set
// while the file is not open.
type Source struct {
	name string

	mu   sync.Mutex
	uri  string
	path string
	f    *os.File
	size uint64
	stop uint64
}

func New(obj source.Object) source.Source {
	return &Source{name: obj.Name(), stop: source.SizeUnknown}
}

func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f != nil {
		return source.ErrAlreadyStarted
	}
	if s.path == "" {
		return errors.Wrap(source.ErrInvalidURI, "no file set")
	}

	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if fi.IsDir() {
		f.Close()
		return errors.Errorf("%s is a directory", s.path)
	}

	if err := adviseSequential(f); err != nil {
		log.Debug("%s: read hint: %v", s.name, err)
	}

	s.f = f
	s.size = uint64(fi.Size())
	s.stop = source.SizeUnknown
	log.Info("%s: opened %s (%d bytes)", s.name, s.path, s.size)
	return nil
}

func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return source.ErrNotStarted
	}
	err := s.f.Close()
	s.f = nil
	return err
}

func (s *Source) Fill(offset uint64, p []byte) (int, error) {
	s.mu.Lock()
	f, stop := s.f, s.stop
	s.mu.Unlock()

	if f == nil {
		return 0, source.ErrNotStarted
	}
	if offset >= stop {
		return 0, io.EOF
	}
	if uint64(len(p)) > stop-offset {
		p = p[:stop-offset]
	}
	return f.ReadAt(p, int64(offset))
}

func (s *Source) Seek(start, stop uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return source.ErrNotStarted
	}
	if start > s.size || start > stop {
		return errors.Wrapf(source.ErrInvalidRange, "seek [%d, %d) in %d bytes", start, stop, s.size)
	}
	s.stop = stop
	return nil
}

func (s *Source) Size() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return source.SizeUnknown
	}
	return s.size
}

func (s *Source) IsSeekable() bool {
	return true
}

func (s *Source) URI() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uri, s.uri != ""
}

func (s *Source) SetURI(uri string) error {
	path, err := pathFromURI(uri)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f != nil {
		return errors.Wrap(source.ErrAlreadyStarted, "changing the file of an open source")
	}
	s.uri, s.path = uri, path
	log.Debug("%s: location %s", s.name, path)
	return nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f != nil {
		err := s.f.Close()
		s.f = nil
		return err
	}
	return nil
}

// pathFromURI accepts file:///abs/path and file://localhost/abs/path.
func pathFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", errors.Wrap(source.ErrInvalidURI, err.Error())
	}
	if u.Scheme != "file" {
		return "", errors.Wrapf(source.ErrInvalidURI, "scheme %q", u.Scheme)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", errors.Wrapf(source.ErrInvalidURI, "remote host %q", u.Host)
	}
	if u.Path == "" || !filepath.IsAbs(filepath.FromSlash(u.Path)) {
		return "", errors.Wrapf(source.ErrInvalidURI, "path %q is not absolute", u.Path)
	}
	return filepath.Clean(filepath.FromSlash(u.Path)), nil
}

// URIFromPath builds the file URI of a local path.
func URIFromPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}

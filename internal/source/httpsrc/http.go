//////////////////////////////////////////////////////////////////////////////
//
// HTTP source with range requests and a block cache
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package httpsrc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/pkg/errors"
	"golang.org/x/net/http/httpproxy"

	"github.com/lanikai/alohasrc/internal/element"
	"github.com/lanikai/alohasrc/internal/logging"
	"github.com/lanikai/alohasrc/internal/source"
)

var log = logging.DefaultLogger.WithTag("httpsrc")

type Options struct {
	UserAgent string

	// Maximum time to wait for response headers. Zero means no limit.
	Timeout time.Duration

	// Size of the cached blocks, and number of blocks kept.
	BlockSize   int
	CacheBlocks int
}

func DefaultOptions() Options {
	return Options{
		UserAgent:   "alohasrc/1.0",
		Timeout:     30 * time.Second,
		BlockSize:   64 * 1024,
		CacheBlocks: 16,
	}
}

// Info describes the HTTP backend for source.Register.
func Info(opts Options) source.Info {
	return source.Info{
		Name:           "httpsrc",
		LongName:       "HTTP Source",
		Description:    "Reads HTTP and HTTPS resources, seeking with range requests",
		Classification: "Source/Network",
		Author:         "Lanikai Labs <dev@lanikailabs.com>",
		Rank:           element.RankSecondary,
		Factory: func(obj source.Object) source.Source {
			return New(obj, opts)
		},
		Schemes: "http:https",
	}
}

// One cached block of the resource. Only the final block may be short.
type block struct {
	data []byte
	last bool
}

type Source struct {
	name   string
	opts   Options
	client *http.Client

	mu       sync.Mutex
	uri      string
	started  bool
	size     uint64
	seekable bool
	stop     uint64

	// Open response, replaced on every range request.
	body   io.ReadCloser
	cancel context.CancelFunc

	// Offset of the next byte read from body.
	pos uint64

	// Bytes read since the last block boundary, starting at pos-len(pending).
	pending []byte
	cache   *lru.Cache
}

func New(obj source.Object, opts Options) *Source {
	def := DefaultOptions()
	if opts.BlockSize <= 0 {
		opts.BlockSize = def.BlockSize
	}
	if opts.CacheBlocks <= 0 {
		opts.CacheBlocks = def.CacheBlocks
	}

	proxy := httpproxy.FromEnvironment().ProxyFunc()
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			return proxy(req.URL)
		},
		ResponseHeaderTimeout: opts.Timeout,
	}

	return &Source{
		name:   obj.Name(),
		opts:   opts,
		client: &http.Client{Transport: transport},
		size:   source.SizeUnknown,
		stop:   source.SizeUnknown,
		cache:  lru.New(opts.CacheBlocks),
	}
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

	resp, cancel, err := s.request(0)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return errors.Errorf("GET %s: %s", s.uri, resp.Status)
	}

	s.size = source.SizeUnknown
	if resp.ContentLength >= 0 {
		s.size = uint64(resp.ContentLength)
	}
	s.seekable = strings.EqualFold(resp.Header.Get("Accept-Ranges"), "bytes")
	s.stop = source.SizeUnknown
	s.body, s.cancel = resp.Body, cancel
	s.pos = 0
	s.pending = nil
	s.cache.Clear()
	s.started = true

	log.Info("%s: GET %s: %s (size %d, seekable %v)", s.name, s.uri, resp.Status, int64(s.size), s.seekable)
	return nil
}

// request opens the resource at offset. Called with mu held.
func (s *Source) request(offset uint64) (*http.Response, context.CancelFunc, error) {
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.uri, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if s.opts.UserAgent != "" {
		req.Header.Set("User-Agent", s.opts.UserAgent)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	log.Debug("%s: GET %s from %d", s.name, s.uri, offset)
	resp, err := s.client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, errors.Wrapf(err, "GET %s", s.uri)
	}
	return resp, cancel, nil
}

func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return source.ErrNotStarted
	}
	s.started = false
	s.closeBody()
	return nil
}

// Called with mu held.
func (s *Source) closeBody() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.body != nil {
		s.body.Close()
		s.body = nil
	}
}

func (s *Source) Fill(offset uint64, p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return 0, source.ErrNotStarted
	}
	if offset >= s.stop || offset >= s.size {
		return 0, io.EOF
	}
	if limit := s.stop; limit != source.SizeUnknown && uint64(len(p)) > limit-offset {
		p = p[:limit-offset]
	}
	if len(p) == 0 {
		return 0, nil
	}

	if n, ok, err := s.fromCache(offset, p); ok {
		log.Trace(3, "%s: %d bytes at %d from cache", s.name, n, offset)
		return n, err
	}

	if offset != s.pos {
		if err := s.reposition(offset); err != nil {
			return 0, err
		}
	}

	body := s.body
	s.mu.Unlock()
	n, err := readSome(body, p)
	s.mu.Lock()

	if !s.started || s.body != body {
		// Stopped while reading.
		return 0, source.ErrNotStarted
	}
	s.remember(p[:n], err == io.EOF)
	s.pos += uint64(n)
	return n, err
}

// readSome reads at least one byte unless r fails or p is empty.
func readSome(r io.Reader, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := r.Read(p)
		if n > 0 || err != nil {
			return n, err
		}
	}
}

func (s *Source) fromCache(offset uint64, p []byte) (int, bool, error) {
	bs := uint64(s.opts.BlockSize)
	v, ok := s.cache.Get(offset / bs)
	if !ok {
		return 0, false, nil
	}
	blk := v.(*block)
	i := offset % bs
	if i < uint64(len(blk.data)) {
		return copy(p, blk.data[i:]), true, nil
	}
	if blk.last {
		return 0, true, io.EOF
	}
	return 0, false, nil
}

// remember appends freshly read bytes to the pending block, moving completed
// blocks into the cache.
func (s *Source) remember(b []byte, eof bool) {
	bs := s.opts.BlockSize
	start := s.pos - uint64(len(s.pending))

	for len(b) > 0 {
		k := bs - len(s.pending)
		if k > len(b) {
			k = len(b)
		}
		s.pending = append(s.pending, b[:k]...)
		b = b[k:]
		if len(s.pending) == bs {
			s.cache.Add(start/uint64(bs), &block{data: s.pending})
			start += uint64(bs)
			s.pending = make([]byte, 0, bs)
		}
	}
	if eof && len(s.pending) > 0 {
		s.cache.Add(start/uint64(bs), &block{data: s.pending, last: true})
		s.pending = nil
	}
}

// reposition reopens the resource at the start of the block containing offset,
// and reads up to offset. Called with mu held.
func (s *Source) reposition(offset uint64) error {
	if !s.seekable {
		return errors.Wrapf(source.ErrNotSeekable, "read at %d, stream is at %d", offset, s.pos)
	}

	aligned := offset - offset%uint64(s.opts.BlockSize)
	resp, cancel, err := s.request(aligned)
	if err != nil {
		return err
	}

	var at uint64
	switch resp.StatusCode {
	case http.StatusPartialContent:
		at = aligned
	case http.StatusOK:
		// Range ignored; the body starts at 0.
		at = 0
	default:
		resp.Body.Close()
		cancel()
		return errors.Errorf("GET %s from %d: %s", s.uri, aligned, resp.Status)
	}

	s.closeBody()
	s.body, s.cancel = resp.Body, cancel
	s.pos = at
	s.pending = nil

	skip := make([]byte, s.opts.BlockSize)
	for s.pos < offset {
		want := offset - s.pos
		if want > uint64(len(skip)) {
			want = uint64(len(skip))
		}
		n, err := readSome(s.body, skip[:want])
		s.remember(skip[:n], err == io.EOF)
		s.pos += uint64(n)
		if err != nil {
			return errors.Wrapf(err, "skipping to %d", offset)
		}
	}
	return nil
}

func (s *Source) Seek(start, stop uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return source.ErrNotStarted
	}
	if !s.seekable {
		return source.ErrNotSeekable
	}
	if start > stop || (s.size != source.SizeUnknown && start > s.size) {
		return errors.Wrapf(source.ErrInvalidRange, "seek [%d, %d)", start, stop)
	}
	s.stop = stop
	return nil
}

func (s *Source) Size() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

func (s *Source) IsSeekable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seekable
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
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Wrapf(source.ErrInvalidURI, "scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.Wrap(source.ErrInvalidURI, "no host")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.Wrap(source.ErrAlreadyStarted, "changing the URI of an open source")
	}
	s.uri = uri
	return nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = false
	s.closeBody()
	s.client.CloseIdleConnections()
	return nil
}

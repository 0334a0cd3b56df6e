// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stream

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrReaderClosed is returned by Deliver after the reader has been closed.
var ErrReaderClosed = errors.New("stream: chunk reader closed")

// ChunkReader adapts a transport that pushes byte chunks (for instance from a
// callback) into an io.Reader that a Parser can consume.
// Chunks are handed to the single reader over a channel and are read in the
// order they were delivered.
type ChunkReader struct {
	c    chan []byte
	done chan struct{}
	once sync.Once
	err  error
	buf  []byte
}

// NewChunkReader returns a ChunkReader that buffers up to depth undelivered
// chunks before Deliver blocks.
func NewChunkReader(depth int) *ChunkReader {
	return &ChunkReader{
		c:    make(chan []byte, depth),
		done: make(chan struct{}),
	}
}

// Deliver queues a copy of chunk for reading.
// It blocks while the queue is full, until ctx is canceled or the reader is
// closed.
func (r *ChunkReader) Deliver(ctx context.Context, chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	select {
	case <-r.done:
		return ErrReaderClosed
	default:
	}
	b := make([]byte, len(chunk))
	copy(b, chunk)
	select {
	case r.c <- b:
		return nil
	case <-r.done:
		return ErrReaderClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloseWithError stops the reader. Chunks that were already delivered can
// still be read, after which Read returns err (or io.EOF if err is nil).
func (r *ChunkReader) CloseWithError(err error) {
	r.once.Do(func() {
		if err == nil {
			err = io.EOF
		}
		r.err = err
		close(r.done)
	})
}

// Close is like CloseWithError(nil).
func (r *ChunkReader) Close() error {
	r.CloseWithError(nil)
	return nil
}

// Read satisfies io.Reader.
func (r *ChunkReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		select {
		case b := <-r.c:
			r.buf = b
		case <-r.done:
			select {
			case b := <-r.c:
				r.buf = b
			default:
				return 0, r.err
			}
		}
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

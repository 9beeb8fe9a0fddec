// Copyright 2021-2024 The Connect Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package serverfn

import (
	"context"
	"errors"
	"io"
	"sync"
	"unicode/utf8"
)

// readChunkSize is the largest chunk a reader-backed stream hands out.
const readChunkSize = 32 * 1024

// A Stream is a lazy, single-pass, finite sequence of chunks. Consumers pull
// chunks one at a time:
//
//	for stream.Receive() {
//		process(stream.Msg())
//	}
//	if err := stream.Err(); err != nil {
//		...
//	}
//
// Once Receive returns false the stream is exhausted and stays exhausted;
// streams can't be restarted. Exhaustion and Close both release the
// stream's resources, including any producer goroutine started by Produce.
//
// Streams aren't safe for concurrent use.
type Stream[T any] struct {
	next      func() (T, error)
	release   func() error
	closeOnce sync.Once
	closeErr  error

	msg  T
	err  error
	done bool
}

// ByteStream is a stream of raw byte chunks.
type ByteStream = Stream[[]byte]

// TextStream is a stream of UTF-8 text chunks.
type TextStream = Stream[string]

// NewStream constructs a stream from a pull function. The pull function
// returns io.EOF once the sequence is finished; any other error ends the
// stream and is reported by Err. The optional release function is called
// exactly once, when the stream is exhausted or closed.
func NewStream[T any](next func() (T, error), release func() error) *Stream[T] {
	return &Stream[T]{next: next, release: release}
}

// StreamOf returns a stream that yields the supplied items in order.
func StreamOf[T any](items ...T) *Stream[T] {
	items = append([]T(nil), items...)
	return NewStream(func() (T, error) {
		var zero T
		if len(items) == 0 {
			return zero, io.EOF
		}
		item := items[0]
		items[0] = zero
		items = items[1:]
		return item, nil
	}, nil)
}

// Produce runs produce in a new goroutine and exposes the items it sends as
// a stream. Each call to send blocks until the consumer pulls the item, and
// fails once the stream is closed or ctx is done; producers should return
// promptly when send fails. An error returned by produce is reported by the
// stream's Err method.
//
// Closing the stream cancels the producer's context and waits for the
// goroutine to exit.
func Produce[T any](
	ctx context.Context,
	produce func(ctx context.Context, send func(T) error) error,
) *Stream[T] {
	ctx, cancel := context.WithCancel(ctx)
	items := make(chan T)
	var produceErr error
	go func() {
		err := produce(ctx, func(item T) error {
			select {
			case items <- item:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		produceErr = err
		close(items)
	}()
	next := func() (T, error) {
		var zero T
		select {
		case item, ok := <-items:
			if !ok {
				if produceErr != nil {
					return zero, produceErr
				}
				return zero, io.EOF
			}
			return item, nil
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	release := func() error {
		cancel()
		for range items {
			// Drain until the producer exits.
		}
		return nil
	}
	return NewStream(next, release)
}

// Receive advances the stream to the next chunk, which is then available
// through Msg. It returns false when the stream is exhausted, either because
// the sequence ended or because an error occurred; Err distinguishes the
// two.
func (s *Stream[T]) Receive() bool {
	if s.done {
		return false
	}
	item, err := s.next()
	if err != nil {
		var zero T
		s.msg = zero
		s.done = true
		if !errors.Is(err, io.EOF) {
			s.err = err
		}
		if closeErr := s.Close(); closeErr != nil && s.err == nil {
			s.err = closeErr
		}
		return false
	}
	s.msg = item
	return true
}

// Msg returns the most recent chunk received.
func (s *Stream[T]) Msg() T {
	return s.msg
}

// Err returns the error that ended the stream, if any. A stream that simply
// ran out of chunks reports nil.
func (s *Stream[T]) Err() error {
	return s.err
}

// Close releases the stream's resources. Further calls to Receive return
// false. It's safe to call Close more than once.
func (s *Stream[T]) Close() error {
	s.done = true
	s.closeOnce.Do(func() {
		if s.release != nil {
			s.closeErr = s.release()
		}
	})
	return s.closeErr
}

// ByteStreamFromReader exposes the contents of a reader as a byte stream.
// Chunks are copies and may be retained by the consumer. The reader is
// closed when the stream is exhausted or closed.
func ByteStreamFromReader(reader io.ReadCloser) *ByteStream {
	buf := make([]byte, readChunkSize)
	next := func() ([]byte, error) {
		for {
			n, err := reader.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				return chunk, nil
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return NewStream(next, reader.Close)
}

// TextStreamFromBytes decodes a byte stream as UTF-8 text. Multi-byte
// sequences split across byte chunks are re-joined, so every text chunk
// holds whole runes unless the underlying bytes themselves are invalid.
func TextStreamFromBytes(bytes *ByteStream) *TextStream {
	var carry []byte
	next := func() (string, error) {
		for {
			if !bytes.Receive() {
				if err := bytes.Err(); err != nil {
					return "", err
				}
				if len(carry) > 0 {
					tail := string(carry)
					carry = nil
					return tail, nil
				}
				return "", io.EOF
			}
			chunk := append(carry, bytes.Msg()...)
			carry = nil
			cut := completeRunes(chunk)
			if cut < len(chunk) {
				carry = append([]byte(nil), chunk[cut:]...)
			}
			if cut == 0 {
				continue
			}
			return string(chunk[:cut]), nil
		}
	}
	return NewStream(next, bytes.Close)
}

// completeRunes returns the length of the longest prefix of b that doesn't
// end in a truncated UTF-8 sequence.
func completeRunes(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return len(b)
		}
		return i
	}
	return len(b)
}

// streamReader adapts a byte stream to io.ReadCloser.
type streamReader struct {
	stream  *ByteStream
	pending []byte
}

func newStreamReader(stream *ByteStream) *streamReader {
	return &streamReader{stream: stream}
}

func (r *streamReader) Read(data []byte) (int, error) {
	for len(r.pending) == 0 {
		if !r.stream.Receive() {
			if err := r.stream.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		r.pending = r.stream.Msg()
	}
	n := copy(data, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *streamReader) Close() error {
	r.pending = nil
	return r.stream.Close()
}

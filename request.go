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
	"sync/atomic"
)

// Request is an inbound request as seen by the server. Each server transport
// supplies one implementation.
//
// The body may be consumed exactly once, through exactly one of Text, Bytes,
// or Stream. Consuming it a second time is a programming error, and
// implementations panic; see BodyGuard.
type Request interface {
	// Path returns the path portion of the request target.
	Path() string
	// Query returns the raw query string, without the leading '?'. It's empty
	// if the request has none.
	Query() string
	// ContentType returns the Content-Type header, or the empty string.
	ContentType() string
	// Header returns the first value of the named header.
	Header(key string) string

	// Text reads the whole body as a UTF-8 string.
	Text() (string, error)
	// Bytes reads the whole body.
	Bytes() ([]byte, error)
	// Stream exposes the body as a lazy sequence of chunks.
	Stream() (*ByteStream, error)
}

// BodyGuard enforces exactly-once consumption of a request or response
// body. Transport adapters embed one and call Take before handing out the
// body. The zero value is ready to use, and a BodyGuard is safe to use
// concurrently.
type BodyGuard struct {
	taken atomic.Bool
}

// Take marks the body consumed. It panics if the body was already taken.
func (g *BodyGuard) Take() {
	if g.taken.Swap(true) {
		panic("serverfn: body consumed more than once")
	}
}

// Taken reports whether the body has been consumed.
func (g *BodyGuard) Taken() bool {
	return g.taken.Load()
}

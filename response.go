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
	"net/http"
)

// A Responder builds a server transport's native response values. Each
// server transport supplies one implementation, and each Registry is bound to
// exactly one Responder.
type Responder[Res any] interface {
	// Respond builds a response with the given status and body. The body's
	// content type becomes the response's content type.
	Respond(status int, body *Body) (Res, error)
	// Error builds the internal-error response: status 500, a text/plain
	// content type, and err.Error() as the body. It must always succeed.
	Error(err error) Res
}

// ClientResponse is a response as received by a client. Each client transport
// supplies one implementation. Like Request, the body may be consumed exactly
// once, through one of Text, Bytes, or Stream.
type ClientResponse interface {
	// Status returns the HTTP status code.
	Status() int
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

const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"

	contentTypePlainText = "text/plain; charset=utf-8"
)

// ErrorBody returns the body of the internal-error response for err.
// Responder implementations use it so that every transport reports errors
// identically.
func ErrorBody(err error) *Body {
	if err == nil {
		err = Errorf(KindServer, "unknown error")
	}
	return TextBody(contentTypePlainText, err.Error())
}

// errorFromResponse turns an unsuccessful response into an *Error. Internal
// errors carry the server's display text, which ParseError classifies; any
// other status is reported as a request failure.
func errorFromResponse(res ClientResponse) *Error {
	text, err := res.Text()
	if err != nil {
		return errorf(KindRequest, "read error response: %w", err)
	}
	if res.Status() == http.StatusInternalServerError {
		return ParseError(text)
	}
	if text == "" {
		return Errorf(KindRequest, "unexpected HTTP status %d", res.Status())
	}
	return Errorf(KindRequest, "unexpected HTTP status %d: %s", res.Status(), text)
}

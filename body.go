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
	"bytes"
	"context"
	"io"
)

// BodyKind identifies the representation held by a Body.
type BodyKind uint8

const (
	BodyEmpty BodyKind = iota
	BodyText
	BodyBytes
	BodyStream
	BodyMultipart
)

// A Body is an encoded request or response payload together with its
// content type. Exactly one representation is populated, as reported by
// Kind. Encodings produce Bodies; transport adapters turn them into
// transport-native requests and responses.
type Body struct {
	contentType string
	kind        BodyKind
	text        string
	data        []byte
	stream      *ByteStream
	form        *MultipartForm
}

// TextBody returns a Body holding a UTF-8 string.
func TextBody(contentType, text string) *Body {
	return &Body{contentType: contentType, kind: BodyText, text: text}
}

// BytesBody returns a Body holding a block of bytes.
func BytesBody(contentType string, data []byte) *Body {
	return &Body{contentType: contentType, kind: BodyBytes, data: data}
}

// StreamBody returns a Body that's written incrementally from a stream.
func StreamBody(contentType string, stream *ByteStream) *Body {
	return &Body{contentType: contentType, kind: BodyStream, stream: stream}
}

// MultipartBody returns a Body holding a multipart form. The content type,
// including the boundary parameter, comes from the form.
func MultipartBody(form *MultipartForm) *Body {
	return &Body{contentType: form.ContentType(), kind: BodyMultipart, form: form}
}

// ContentType returns the body's content type. Empty bodies have none.
func (b *Body) ContentType() string {
	if b == nil {
		return ""
	}
	return b.contentType
}

// Kind reports which representation the body holds.
func (b *Body) Kind() BodyKind {
	if b == nil {
		return BodyEmpty
	}
	return b.kind
}

// Text returns the body's string. It's only meaningful for BodyText.
func (b *Body) Text() string { return b.text }

// Bytes returns the body's bytes. It's only meaningful for BodyBytes.
func (b *Body) Bytes() []byte { return b.data }

// Stream returns the body's stream. It's only meaningful for BodyStream.
func (b *Body) Stream() *ByteStream { return b.stream }

// Form returns the body's form. It's only meaningful for BodyMultipart.
func (b *Body) Form() *MultipartForm { return b.form }

// Reader returns the body's contents as a reader, whatever its
// representation. Streams and forms are consumed lazily as the reader is
// read; text and bytes are not copied. The reader must be closed so that
// streams release their resources.
func (b *Body) Reader(ctx context.Context) io.ReadCloser {
	switch b.Kind() {
	case BodyText:
		return io.NopCloser(bytes.NewBufferString(b.text))
	case BodyBytes:
		return io.NopCloser(bytes.NewReader(b.data))
	case BodyStream:
		return newStreamReader(b.stream)
	case BodyMultipart:
		return newStreamReader(b.form.Stream(ctx))
	default:
		return io.NopCloser(bytes.NewReader(nil))
	}
}

// A ClientRequest is the outbound request an input encoding builds for a
// call: everything a client transport needs to construct its native request.
type ClientRequest struct {
	// Method is the HTTP method, usually GET or POST.
	Method string
	// Path is the callable's path.
	Path string
	// Query is the URL-encoded query string, without the leading '?'.
	Query string
	// Accept is the content type the caller expects in the response.
	Accept string
	// Body is the request body; it's nil for requests without one.
	Body *Body
}

// ContentType returns the content type of the request body, if any.
func (r *ClientRequest) ContentType() string {
	return r.Body.ContentType()
}

// URL returns the request's path and query string, joined with '?' when the
// query isn't empty.
func (r *ClientRequest) URL() string {
	if r.Query == "" {
		return r.Path
	}
	return r.Path + "?" + r.Query
}

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
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"
)

// A MultipartForm is the client-side half of a multipart call: an ordered
// list of fields to send. Fields backed by readers are read while the form
// is written, so a form can be sent only once.
type MultipartForm struct {
	boundary string
	parts    []formPart
}

type formPart struct {
	name     string
	filename string
	value    string
	content  io.Reader
}

// NewMultipartForm constructs an empty form with a random boundary.
func NewMultipartForm() *MultipartForm {
	return &MultipartForm{boundary: multipart.NewWriter(io.Discard).Boundary()}
}

// AddField appends a plain text field.
func (f *MultipartForm) AddField(name, value string) *MultipartForm {
	f.parts = append(f.parts, formPart{name: name, value: value})
	return f
}

// AddFile appends a file field whose contents are read from content when
// the form is written.
func (f *MultipartForm) AddFile(name, filename string, content io.Reader) *MultipartForm {
	f.parts = append(f.parts, formPart{name: name, filename: filename, content: content})
	return f
}

// ContentType returns the form's content type, including its boundary.
func (f *MultipartForm) ContentType() string {
	return mime.FormatMediaType(Multipart.ContentType(), map[string]string{"boundary": f.boundary})
}

// WriteTo writes the encoded form to w.
func (f *MultipartForm) WriteTo(w io.Writer) (int64, error) {
	counter := &countingWriter{w: w}
	writer := multipart.NewWriter(counter)
	if err := writer.SetBoundary(f.boundary); err != nil {
		return counter.n, err
	}
	for _, part := range f.parts {
		if part.content == nil {
			if err := writer.WriteField(part.name, part.value); err != nil {
				return counter.n, err
			}
			continue
		}
		fw, err := writer.CreateFormFile(part.name, part.filename)
		if err != nil {
			return counter.n, err
		}
		if _, err := io.Copy(fw, part.content); err != nil {
			return counter.n, fmt.Errorf("copy %q: %w", part.name, err)
		}
	}
	err := writer.Close()
	return counter.n, err
}

// Stream encodes the form lazily: nothing is written until the stream is
// pulled.
func (f *MultipartForm) Stream(ctx context.Context) *ByteStream {
	return Produce(ctx, func(ctx context.Context, send func([]byte) error) error {
		_, err := f.WriteTo(&sendWriter{send: send})
		return err
	})
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(data []byte) (int, error) {
	n, err := c.w.Write(data)
	c.n += int64(n)
	return n, err
}

// sendWriter forwards each write to a Produce callback. Chunks are copied,
// since io.Writer callers may reuse their buffers.
type sendWriter struct {
	send func([]byte) error
}

func (s *sendWriter) Write(data []byte) (int, error) {
	if err := s.send(append([]byte(nil), data...)); err != nil {
		return 0, err
	}
	return len(data), nil
}

// MultipartData is the argument of a callable whose input encoding is
// Multipart. On the client it wraps the MultipartForm to send; on the server
// it yields the received fields one at a time, in arrival order. Callables
// must take a *MultipartData; the server closes it when the body returns.
type MultipartData struct {
	form   *MultipartForm
	reader *multipart.Reader
	body   io.Closer
}

// NewMultipartData wraps a form for sending.
func NewMultipartData(form *MultipartForm) *MultipartData {
	return &MultipartData{form: form}
}

// Form returns the client-side form. It's nil for received data.
func (d *MultipartData) Form() *MultipartForm {
	return d.form
}

// NextField returns the next field of received data. Calling NextField
// invalidates the previously returned field. After the last field, it
// returns io.EOF.
func (d *MultipartData) NextField() (*MultipartField, error) {
	if d.reader == nil {
		return nil, Errorf(KindArgs, "multipart data has no received fields")
	}
	part, err := d.reader.NextPart()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errorf(KindArgs, "read multipart field: %w", err)
	}
	return &MultipartField{part: part}, nil
}

// Close discards any unread fields and releases the request body.
func (d *MultipartData) Close() error {
	if d.body == nil {
		return nil
	}
	return d.body.Close()
}

// A MultipartField is one received field. Its contents are read
// incrementally, either through Read or as a stream of chunks.
type MultipartField struct {
	part *multipart.Part
}

// Name returns the field's form name.
func (f *MultipartField) Name() string { return f.part.FormName() }

// FileName returns the field's file name, or the empty string for plain
// fields.
func (f *MultipartField) FileName() string { return f.part.FileName() }

// ContentType returns the field's own content type, if it declared one.
func (f *MultipartField) ContentType() string { return f.part.Header.Get(headerContentType) }

// Read implements io.Reader over the field's contents.
func (f *MultipartField) Read(data []byte) (int, error) {
	return f.part.Read(data)
}

// Chunks exposes the field's contents as a byte stream. The stream ends at
// the end of the field.
func (f *MultipartField) Chunks() *ByteStream {
	return ByteStreamFromReader(f.part)
}

// Bytes reads the rest of the field's contents.
func (f *MultipartField) Bytes() ([]byte, error) {
	data, err := io.ReadAll(f.part)
	if err != nil {
		return nil, errorf(KindArgs, "read multipart field %q: %w", f.Name(), err)
	}
	return data, nil
}

// parseBoundary extracts the boundary parameter from a multipart content
// type.
func parseBoundary(contentType string) (string, error) {
	if contentType == "" {
		return "", Errorf(KindRequest, "missing multipart content type")
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", Errorf(KindRequest, "parse multipart content type %q: %w", contentType, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return "", Errorf(KindRequest, "content type %q isn't multipart", contentType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return "", Errorf(KindRequest, "content type %q has no boundary", contentType)
	}
	return boundary, nil
}

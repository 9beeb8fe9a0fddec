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

package nethttp

import (
	"context"
	"errors"
	"io"
	"net/http"

	"connectrpc.com/serverfn"
)

// A Response is the net/http transport's native response: a status and a
// body, written to an http.ResponseWriter by Write.
type Response struct {
	status int
	body   *serverfn.Body
}

// Status returns the response's HTTP status code.
func (r *Response) Status() int { return r.status }

// Body returns the response's body.
func (r *Response) Body() *serverfn.Body { return r.body }

// Write sends the response. Streamed bodies are flushed after every chunk.
// Writing stops as soon as ctx is done or a write fails, and the stream is
// closed either way. Errors after the header has been sent can't change the
// status; callers can only abandon the response.
func (r *Response) Write(ctx context.Context, w http.ResponseWriter) error {
	if contentType := r.body.ContentType(); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	switch r.body.Kind() {
	case serverfn.BodyText:
		w.WriteHeader(r.status)
		_, err := io.WriteString(w, r.body.Text())
		return err
	case serverfn.BodyBytes:
		w.WriteHeader(r.status)
		_, err := w.Write(r.body.Bytes())
		return err
	case serverfn.BodyStream:
		w.WriteHeader(r.status)
		return writeStream(ctx, w, r.body.Stream())
	case serverfn.BodyMultipart:
		w.WriteHeader(r.status)
		reader := r.body.Reader(ctx)
		defer reader.Close()
		_, err := io.Copy(w, reader)
		return err
	default:
		w.WriteHeader(r.status)
		return nil
	}
}

func writeStream(ctx context.Context, w http.ResponseWriter, stream *serverfn.ByteStream) error {
	defer stream.Close()
	controller := http.NewResponseController(w)
	// Send the header right away, so clients see the status before the first
	// chunk is ready.
	if err := controller.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !stream.Receive() {
			return stream.Err()
		}
		if _, err := w.Write(stream.Msg()); err != nil {
			return err
		}
		if err := controller.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
	}
}

// Responder builds Responses. The zero value is ready to use.
type Responder struct{}

var _ serverfn.Responder[*Response] = Responder{}

// Respond implements serverfn.Responder. It never fails.
func (Responder) Respond(status int, body *serverfn.Body) (*Response, error) {
	return &Response{status: status, body: body}, nil
}

// Error implements serverfn.Responder.
func (Responder) Error(err error) *Response {
	return &Response{status: http.StatusInternalServerError, body: serverfn.ErrorBody(err)}
}

// NewRegistry constructs a serverfn.Registry bound to the net/http
// transport.
func NewRegistry(options ...serverfn.RegistryOption) *serverfn.Registry[*Response] {
	return serverfn.NewRegistry[*Response](Responder{}, options...)
}

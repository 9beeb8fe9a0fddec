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
	"errors"
	"io"
	"net/http"

	"connectrpc.com/serverfn"
)

// Request adapts an *http.Request to serverfn.Request.
type Request struct {
	request *http.Request
	guard   serverfn.BodyGuard
}

var _ serverfn.Request = (*Request)(nil)

// NewRequest wraps an inbound HTTP request.
func NewRequest(request *http.Request) *Request {
	return &Request{request: request}
}

func (r *Request) Path() string { return r.request.URL.Path }

func (r *Request) Query() string { return r.request.URL.RawQuery }

func (r *Request) ContentType() string { return r.request.Header.Get("Content-Type") }

func (r *Request) Header(key string) string { return r.request.Header.Get(key) }

func (r *Request) Text() (string, error) {
	data, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (r *Request) Bytes() ([]byte, error) {
	r.guard.Take()
	defer r.request.Body.Close()
	data, err := io.ReadAll(r.request.Body)
	if err != nil {
		return nil, readError(err)
	}
	return data, nil
}

func (r *Request) Stream() (*serverfn.ByteStream, error) {
	r.guard.Take()
	return serverfn.ByteStreamFromReader(&classifiedBody{ReadCloser: r.request.Body}), nil
}

// classifiedBody reports streamed read failures the way Bytes does, so
// oversized multipart and streaming bodies are KindArgs errors too.
type classifiedBody struct {
	io.ReadCloser
}

func (b *classifiedBody) Read(data []byte) (int, error) {
	n, err := b.ReadCloser.Read(data)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, readError(err)
	}
	return n, err
}

// readError classifies body read failures. Oversized bodies are the
// client's fault; anything else is a failure to receive the request.
func readError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return serverfn.Errorf(serverfn.KindArgs, "request body larger than %d bytes", maxBytesErr.Limit)
	}
	return serverfn.Errorf(serverfn.KindRequest, "read request body: %w", err)
}

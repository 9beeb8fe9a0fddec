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

// Package serverfntest is an in-memory transport for server functions.
// Clients dispatch calls straight into a Registry without any network, so
// tests can exercise encodings and function bodies end to end.
package serverfntest

import (
	"context"
	"io"
	"net/http"

	"connectrpc.com/serverfn"
)

// Request is a serverfn.Request built directly from a client's
// ClientRequest.
type Request struct {
	ctx   context.Context //nolint:containedctx
	req   *serverfn.ClientRequest
	guard serverfn.BodyGuard
}

var _ serverfn.Request = (*Request)(nil)

// NewRequest turns an outbound client request into an inbound server
// request. ctx bounds the lazy encoding of multipart and streamed bodies.
func NewRequest(ctx context.Context, req *serverfn.ClientRequest) *Request {
	return &Request{ctx: ctx, req: req}
}

func (r *Request) Path() string { return r.req.Path }

func (r *Request) Query() string { return r.req.Query }

func (r *Request) ContentType() string { return r.req.ContentType() }

func (r *Request) Header(key string) string {
	switch http.CanonicalHeaderKey(key) {
	case "Content-Type":
		return r.req.ContentType()
	case "Accept":
		return r.req.Accept
	default:
		return ""
	}
}

func (r *Request) Text() (string, error) {
	r.guard.Take()
	if r.req.Body.Kind() == serverfn.BodyText {
		return r.req.Body.Text(), nil
	}
	data, err := readAll(r.req.Body.Reader(r.ctx))
	return string(data), err
}

func (r *Request) Bytes() ([]byte, error) {
	r.guard.Take()
	if r.req.Body.Kind() == serverfn.BodyBytes {
		return r.req.Body.Bytes(), nil
	}
	return readAll(r.req.Body.Reader(r.ctx))
}

func (r *Request) Stream() (*serverfn.ByteStream, error) {
	r.guard.Take()
	if r.req.Body.Kind() == serverfn.BodyStream {
		return r.req.Body.Stream(), nil
	}
	return serverfn.ByteStreamFromReader(r.req.Body.Reader(r.ctx)), nil
}

// Response is both the in-memory server's native response and the client's
// view of it.
type Response struct {
	status int
	body   *serverfn.Body
	guard  serverfn.BodyGuard
}

var _ serverfn.ClientResponse = (*Response)(nil)

func (r *Response) Status() int { return r.status }

func (r *Response) ContentType() string { return r.body.ContentType() }

func (r *Response) Header(key string) string {
	if http.CanonicalHeaderKey(key) == "Content-Type" {
		return r.body.ContentType()
	}
	return ""
}

func (r *Response) Text() (string, error) {
	data, err := r.Bytes()
	return string(data), err
}

func (r *Response) Bytes() ([]byte, error) {
	r.guard.Take()
	switch r.body.Kind() {
	case serverfn.BodyText:
		return []byte(r.body.Text()), nil
	case serverfn.BodyBytes:
		return r.body.Bytes(), nil
	default:
		return readAll(r.body.Reader(context.Background()))
	}
}

func (r *Response) Stream() (*serverfn.ByteStream, error) {
	r.guard.Take()
	if r.body.Kind() == serverfn.BodyStream {
		return r.body.Stream(), nil
	}
	return serverfn.ByteStreamFromReader(r.body.Reader(context.Background())), nil
}

// Responder builds in-memory Responses. The zero value is ready to use.
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

// NewRegistry constructs a serverfn.Registry bound to the in-memory
// transport.
func NewRegistry(options ...serverfn.RegistryOption) *serverfn.Registry[*Response] {
	return serverfn.NewRegistry[*Response](Responder{}, options...)
}

// Client sends calls directly to a registry.
type Client struct {
	registry *serverfn.Registry[*Response]
}

var _ serverfn.Client = (*Client)(nil)

// NewClient constructs a Client that dispatches into registry.
func NewClient(registry *serverfn.Registry[*Response]) *Client {
	return &Client{registry: registry}
}

// Send implements serverfn.Client.
func (c *Client) Send(ctx context.Context, req *serverfn.ClientRequest) (serverfn.ClientResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, serverfn.NewError(serverfn.KindRequest, err)
	}
	return c.registry.Dispatch(ctx, NewRequest(ctx, req)), nil
}

func readAll(reader io.ReadCloser) ([]byte, error) {
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, serverfn.Errorf(serverfn.KindRequest, "read body: %w", err)
	}
	return data, nil
}

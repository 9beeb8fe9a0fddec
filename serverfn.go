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
	"net/http"
)

// A Callable is a server function as seen by a Registry: a path, a pair of
// encodings, and a way to run the function against a decoded request.
// ServerFn is the only implementation most programs need.
type Callable interface {
	Path() string
	InputEncoding() InputEncoding
	OutputEncoding() OutputEncoding
	// ExecuteOnServer decodes the arguments from req, runs the function, and
	// encodes its result. Errors are always *Error.
	ExecuteOnServer(ctx context.Context, req Request) (*Body, error)
}

// A ServerFn is a function that clients call by path over HTTP. The same
// value serves both sides of the call: servers register it with a Registry,
// and clients call RunOnClient. Its encodings fix the wire format in both
// directions; both sides must be built from the same definition.
type ServerFn[In, Out any] struct {
	path   string
	input  InputEncoding
	output OutputEncoding
	client Client
	body   func(context.Context, In) (Out, error)
}

var _ Callable = (*ServerFn[struct{}, struct{}])(nil)

// New constructs a ServerFn. By default, arguments are sent with PostURL and
// results with JSON.
//
// The body may return any error. Errors that aren't already *Error become
// KindWrapped errors, and their text is sent to the client verbatim.
func New[In, Out any](
	path string,
	body func(context.Context, In) (Out, error),
	options ...Option,
) *ServerFn[In, Out] {
	config := serverFnConfig{
		Input:  PostURL,
		Output: JSON,
	}
	for _, opt := range options {
		opt.applyToServerFn(&config)
	}
	return &ServerFn[In, Out]{
		path:   path,
		input:  config.Input,
		output: config.Output,
		client: config.Client,
		body:   body,
	}
}

// Path returns the function's path.
func (f *ServerFn[In, Out]) Path() string { return f.path }

// InputEncoding returns the encoding of the function's arguments.
func (f *ServerFn[In, Out]) InputEncoding() InputEncoding { return f.input }

// OutputEncoding returns the encoding of the function's result.
func (f *ServerFn[In, Out]) OutputEncoding() OutputEncoding { return f.output }

// WithClient returns a copy of the function that sends calls through client.
func (f *ServerFn[In, Out]) WithClient(client Client) *ServerFn[In, Out] {
	clone := *f
	clone.client = client
	return &clone
}

// RunOnClient calls the function on the server. Any status other than 2xx
// is an error: internal-error responses are parsed back into the *Error the
// server reported, and other statuses are KindRequest errors.
func (f *ServerFn[In, Out]) RunOnClient(ctx context.Context, in In) (Out, error) {
	var zero Out
	if f.client == nil {
		return zero, Errorf(KindRequest, "no client configured for %s", f.path)
	}
	req, err := EncodeRequest(f.input, f.path, in)
	if err != nil {
		return zero, err
	}
	req.Accept = f.output.ContentType()
	res, err := f.client.Send(ctx, req)
	if err != nil {
		return zero, classify(KindRequest, err)
	}
	if status := res.Status(); status < http.StatusOK || status >= http.StatusMultipleChoices {
		return zero, errorFromResponse(res)
	}
	return DecodeResponse[Out](ctx, f.output, res)
}

// ExecuteOnServer implements Callable.
func (f *ServerFn[In, Out]) ExecuteOnServer(ctx context.Context, req Request) (*Body, error) {
	in, err := DecodeRequest[In](ctx, f.input, req)
	if err != nil {
		return nil, err
	}
	if data, ok := any(in).(*MultipartData); ok && data != nil {
		defer data.Close()
	}
	out, err := f.body(ctx, in)
	if err != nil {
		return nil, WrapError(err)
	}
	return EncodeResponse(ctx, f.output, out)
}

// RunOnServer executes a callable and builds the transport's response. It
// never fails: errors become the responder's internal-error response.
func RunOnServer[Res any](ctx context.Context, fn Callable, req Request, responder Responder[Res]) Res {
	res, _ := runOnServer(ctx, fn, req, responder)
	return res
}

// runOnServer is RunOnServer, but also reports the error it turned into a
// response.
func runOnServer[Res any](ctx context.Context, fn Callable, req Request, responder Responder[Res]) (Res, error) {
	body, err := fn.ExecuteOnServer(ctx, req)
	if err != nil {
		err = WrapError(err)
		return responder.Error(err), err
	}
	res, err := responder.Respond(http.StatusOK, body)
	if err != nil {
		if body.Kind() == BodyStream {
			_ = body.Stream().Close()
		}
		err = classify(KindResponse, err)
		return responder.Error(err), err
	}
	return res, nil
}

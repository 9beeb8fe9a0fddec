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
	"sync"
)

// A Client sends encoded calls to a server. Each client transport supplies
// one implementation.
type Client interface {
	Send(ctx context.Context, req *ClientRequest) (ClientResponse, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(context.Context, *ClientRequest) (ClientResponse, error)

// Send implements Client.
func (f ClientFunc) Send(ctx context.Context, req *ClientRequest) (ClientResponse, error) {
	return f(ctx, req)
}

// errClientClosed is returned by a SerialClient after Close.
var errClientClosed = errors.New("client closed")

// A SerialClient confines a Client that isn't safe for concurrent use to a
// single goroutine. Send may be called from any goroutine; calls run one at a
// time, in the order they're received.
type SerialClient struct {
	calls     chan serialCall
	done      chan struct{}
	exited    chan struct{}
	closeOnce sync.Once
}

var _ Client = (*SerialClient)(nil)

type serialCall struct {
	ctx   context.Context //nolint:containedctx
	req   *ClientRequest
	reply chan serialResult
}

type serialResult struct {
	res ClientResponse
	err error
}

// NewSerialClient starts the goroutine that owns client. Call Close to stop
// it.
func NewSerialClient(client Client) *SerialClient {
	serial := &SerialClient{
		calls:  make(chan serialCall),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go serial.run(client)
	return serial
}

func (c *SerialClient) run(client Client) {
	defer close(c.exited)
	for {
		select {
		case call := <-c.calls:
			res, err := client.Send(call.ctx, call.req)
			// reply is buffered, so an abandoned call doesn't block the loop.
			call.reply <- serialResult{res: res, err: err}
		case <-c.done:
			return
		}
	}
}

// Send implements Client. If ctx is done before the owning goroutine
// accepts or finishes the call, Send returns a KindRequest error. A response
// that arrives after Send has given up is closed unread.
func (c *SerialClient) Send(ctx context.Context, req *ClientRequest) (ClientResponse, error) {
	call := serialCall{ctx: ctx, req: req, reply: make(chan serialResult, 1)}
	select {
	case c.calls <- call:
	case <-c.done:
		return nil, NewError(KindRequest, errClientClosed)
	case <-ctx.Done():
		return nil, NewError(KindRequest, ctx.Err())
	}
	select {
	case result := <-call.reply:
		return result.res, result.err
	case <-ctx.Done():
		go func() {
			if result := <-call.reply; result.res != nil {
				discardResponse(result.res)
			}
		}()
		return nil, NewError(KindRequest, ctx.Err())
	}
}

// discardResponse releases the body of a response nobody will read.
func discardResponse(res ClientResponse) {
	if closer, ok := res.(interface{ Close() error }); ok {
		_ = closer.Close()
		return
	}
	if stream, err := res.Stream(); err == nil {
		_ = stream.Close()
	}
}

// Close stops the owning goroutine after any in-flight call completes.
// Subsequent calls to Send fail. It's safe to call Close more than once.
func (c *SerialClient) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	<-c.exited
	return nil
}

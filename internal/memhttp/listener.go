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

package memhttp

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
)

var errClosed = errors.New("memhttp: listener closed")

// pipeListener hands the server end of a net.Pipe to Accept for every dial.
type pipeListener struct {
	addr   pipeAddr
	conns  chan net.Conn
	dials  atomic.Int64
	done   context.Context //nolint:containedctx
	cancel context.CancelFunc
}

func newPipeListener(host string) *pipeListener {
	done, cancel := context.WithCancel(context.Background())
	return &pipeListener{
		addr:   pipeAddr(host),
		conns:  make(chan net.Conn),
		done:   done,
		cancel: cancel,
	}
}

func (l *pipeListener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.conns:
		return conn, nil
	case <-l.done.Done():
		return nil, l.opError("accept", errClosed)
	}
}

func (l *pipeListener) Close() error {
	l.cancel()
	return nil
}

func (l *pipeListener) Addr() net.Addr { return l.addr }

// DialContext matches http.Transport.DialContext. It blocks until the server
// accepts the connection.
func (l *pipeListener) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	server, client := net.Pipe()
	select {
	case l.conns <- server:
		l.dials.Add(1)
		return client, nil
	case <-ctx.Done():
		return nil, l.opError("dial", ctx.Err())
	case <-l.done.Done():
		return nil, l.opError("dial", errClosed)
	}
}

func (l *pipeListener) opError(op string, err error) *net.OpError {
	return &net.OpError{Op: op, Net: l.addr.Network(), Addr: l.addr, Err: err}
}

// pipeAddr looks like a host to net/http, which puts it in URLs.
type pipeAddr string

func (pipeAddr) Network() string  { return "pipe" }
func (a pipeAddr) String() string { return string(a) }

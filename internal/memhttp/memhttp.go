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

// Package memhttp serves HTTP over in-memory pipes, so tests can exercise
// real net/http clients and servers without opening sockets.
package memhttp

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server is a net/http server that uses in-memory pipes instead of TCP. By
// default, it supports HTTP/2 via h2c.
type Server struct {
	server         http.Server
	listener       *pipeListener
	url            string
	cleanupTimeout time.Duration
	http2          bool

	serverWG  sync.WaitGroup
	serverErr error
}

// NewServer starts a Server for handler.
func NewServer(handler http.Handler, opts ...Option) *Server {
	cfg := config{CleanupTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	if !cfg.DisableHTTP2 {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}
	listener := newPipeListener("serverfn.test")
	server := &Server{
		server: http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener:       listener,
		url:            "http://" + listener.Addr().String(),
		cleanupTimeout: cfg.CleanupTimeout,
		http2:          !cfg.DisableHTTP2,
	}
	if cfg.Logger != nil {
		server.server.ErrorLog = zap.NewStdLog(cfg.Logger)
	}
	server.serverWG.Add(1)
	go func() {
		defer server.serverWG.Done()
		server.serverErr = server.server.Serve(server.listener)
	}()
	return server
}

// Transport returns an [http2.Transport] that dials the server's in-memory
// listener.
func (s *Server) Transport() *http2.Transport {
	return &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return s.listener.DialContext(ctx, network, addr)
		},
		AllowHTTP: true,
	}
}

// TransportHTTP1 returns an [http.Transport] that dials the server's
// in-memory listener and speaks HTTP/1.1.
func (s *Server) TransportHTTP1() *http.Transport {
	return &http.Transport{
		DialContext: s.listener.DialContext,
		// Idle keep-alive connections can hang shutdown.
		DisableKeepAlives: true,
	}
}

// Client returns an [http.Client] for the server. It speaks HTTP/2 unless
// the server was started WithoutHTTP2.
func (s *Server) Client() *http.Client {
	if !s.http2 {
		return &http.Client{Transport: s.TransportHTTP1()}
	}
	return &http.Client{Transport: s.Transport()}
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.url
}

// Shutdown gracefully shuts down the server, without interrupting any active
// connections. See [http.Server.Shutdown] for details.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.Wait()
}

// Cleanup calls Shutdown with the cleanup timeout, five seconds by default.
func (s *Server) Cleanup() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Close closes the server's listener without waiting for connections to
// finish.
func (s *Server) Close() error {
	return s.server.Close()
}

// Wait blocks until the server exits. It returns any error other than
// [http.ErrServerClosed].
func (s *Server) Wait() error {
	s.serverWG.Wait()
	if !errors.Is(s.serverErr, http.ErrServerClosed) {
		return s.serverErr
	}
	return nil
}

// Dials reports how many connections clients have opened to the server.
func (s *Server) Dials() int64 {
	return s.listener.dials.Load()
}

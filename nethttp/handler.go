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
	"net/http"

	"connectrpc.com/serverfn"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// A Handler serves the server functions in a Registry over net/http. Mount
// it at the prefix the functions' paths share; it matches paths exactly,
// without stripping anything.
type Handler struct {
	registry     *serverfn.Registry[*Response]
	logger       *zap.Logger
	limiter      *rate.Limiter
	readMaxBytes int64
	cors         *corsHandler
}

var _ http.Handler = (*Handler)(nil)

// NewHandler constructs a Handler for registry.
func NewHandler(registry *serverfn.Registry[*Response], options ...HandlerOption) *Handler {
	config := handlerConfig{Logger: zap.NewNop()}
	for _, opt := range options {
		opt.applyToHandler(&config)
	}
	return &Handler{
		registry:     registry,
		logger:       config.Logger,
		limiter:      config.Limiter,
		readMaxBytes: config.ReadMaxBytes,
		cors:         config.CORS.wrap(),
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.cors != nil && h.cors.handle(w, r) {
		return
	}
	if h.limiter != nil && !h.limiter.Allow() {
		h.logger.Debug("rate limited", zap.String("path", r.URL.Path))
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}
	if h.readMaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.readMaxBytes)
	}
	ctx := r.Context()
	res := h.registry.Dispatch(ctx, NewRequest(r))
	if err := res.Write(ctx, w); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			h.logger.Debug("client went away", zap.String("path", r.URL.Path), zap.Error(err))
		} else {
			h.logger.Warn("write response", zap.String("path", r.URL.Path), zap.Error(err))
		}
		// The status is already on the wire. Abort the connection so the
		// client sees a failure instead of a truncated body.
		panic(http.ErrAbortHandler) //nolint:forbidigo
	}
}

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
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// A HandlerOption configures a Handler.
type HandlerOption interface {
	applyToHandler(*handlerConfig)
}

// A ClientOption configures a Client.
type ClientOption interface {
	applyToClient(*clientConfig)
}

type handlerConfig struct {
	Logger       *zap.Logger
	Limiter      *rate.Limiter
	ReadMaxBytes int64
	CORS         *CORS
}

type clientConfig struct {
	HTTPClient *http.Client
}

type loggerOption struct {
	logger *zap.Logger
}

// WithLogger sets the logger a Handler reports rejected requests and failed
// writes to. By default, nothing is logged.
func WithLogger(logger *zap.Logger) HandlerOption {
	return &loggerOption{logger: logger}
}

func (o *loggerOption) applyToHandler(config *handlerConfig) {
	if o.logger != nil {
		config.Logger = o.logger
	}
}

type limiterOption struct {
	limiter *rate.Limiter
}

// WithLimiter rejects requests with 429 Too Many Requests whenever limiter
// doesn't allow them. By default, requests aren't rate limited.
func WithLimiter(limiter *rate.Limiter) HandlerOption {
	return &limiterOption{limiter: limiter}
}

func (o *limiterOption) applyToHandler(config *handlerConfig) {
	config.Limiter = o.limiter
}

type readMaxBytesOption struct {
	max int64
}

// WithReadMaxBytes limits the size of request bodies. Reading past the
// limit fails the call with a KindArgs error. Setting the limit to zero
// allows any size, which is the default.
func WithReadMaxBytes(n int64) HandlerOption {
	return &readMaxBytesOption{max: n}
}

func (o *readMaxBytesOption) applyToHandler(config *handlerConfig) {
	config.ReadMaxBytes = o.max
}

type httpClientOption struct {
	client *http.Client
}

// WithHTTPClient sets the HTTP client a Client sends requests with. The
// default is http.DefaultClient.
func WithHTTPClient(client *http.Client) ClientOption {
	return &httpClientOption{client: client}
}

func (o *httpClientOption) applyToClient(config *clientConfig) {
	if o.client != nil {
		config.HTTPClient = o.client
	}
}

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

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// An Option configures a ServerFn.
type Option interface {
	applyToServerFn(*serverFnConfig)
}

// A RegistryOption configures a Registry.
type RegistryOption interface {
	applyToRegistry(*registryConfig)
}

type serverFnConfig struct {
	Input  InputEncoding
	Output OutputEncoding
	Client Client
}

type registryConfig struct {
	Logger         *zap.Logger
	Registerer     prometheus.Registerer
	TracerProvider trace.TracerProvider
	Recover        func(context.Context, string, any) error
}

type inputOption struct {
	encoding InputEncoding
}

// WithInput sets the encoding used for a function's arguments. The default
// is PostURL.
func WithInput(encoding InputEncoding) Option {
	return &inputOption{encoding: encoding}
}

func (o *inputOption) applyToServerFn(config *serverFnConfig) {
	if o.encoding != nil {
		config.Input = o.encoding
	}
}

type outputOption struct {
	encoding OutputEncoding
}

// WithOutput sets the encoding used for a function's result. The default is
// JSON.
func WithOutput(encoding OutputEncoding) Option {
	return &outputOption{encoding: encoding}
}

func (o *outputOption) applyToServerFn(config *serverFnConfig) {
	if o.encoding != nil {
		config.Output = o.encoding
	}
}

type clientOption struct {
	client Client
}

// WithClient sets the client transport RunOnClient sends calls through.
// Functions without a client can only run on the server.
func WithClient(client Client) Option {
	return &clientOption{client: client}
}

func (o *clientOption) applyToServerFn(config *serverFnConfig) {
	config.Client = o.client
}

type loggerOption struct {
	logger *zap.Logger
}

// WithLogger sets the logger a Registry reports dispatch failures to. By
// default, nothing is logged.
func WithLogger(logger *zap.Logger) RegistryOption {
	return &loggerOption{logger: logger}
}

func (o *loggerOption) applyToRegistry(config *registryConfig) {
	if o.logger != nil {
		config.Logger = o.logger
	}
}

type metricsOption struct {
	registerer prometheus.Registerer
}

// WithMetrics registers dispatch counters and latency histograms with the
// supplied Prometheus registerer:
//
//	serverfn_dispatch_total{path, outcome}
//	serverfn_dispatch_duration_seconds{path}
//
// Outcomes are "ok", "error", and "not_found". Requests for unregistered
// paths are recorded with an empty path label.
func WithMetrics(registerer prometheus.Registerer) RegistryOption {
	return &metricsOption{registerer: registerer}
}

func (o *metricsOption) applyToRegistry(config *registryConfig) {
	config.Registerer = o.registerer
}

type tracerProviderOption struct {
	provider trace.TracerProvider
}

// WithTracer sets the provider of the tracer a Registry uses to start a
// server span for each dispatched request. By default, the global
// OpenTelemetry provider is used.
func WithTracer(provider trace.TracerProvider) RegistryOption {
	return &tracerProviderOption{provider: provider}
}

func (o *tracerProviderOption) applyToRegistry(config *registryConfig) {
	if o.provider != nil {
		config.TracerProvider = o.provider
	}
}

type recoverOption struct {
	handle func(context.Context, string, any) error
}

// WithRecover makes a Registry recover from panics in server function
// bodies and codecs. The supplied function receives the request context, the
// function's path, and the recovered value, and returns the error to send to
// the client; if it returns nil, or if handle is nil, a KindServer error
// naming the path and the panic value is sent instead. The function may also
// log the panic or emit metrics, and must be safe to call concurrently.
//
// By default, registries don't recover from panics. The net/http server
// recovers from panics on its own, but it drops the connection instead of
// sending an error the client can parse. Panics with http.ErrAbortHandler
// are never recovered.
func WithRecover(handle func(ctx context.Context, path string, panicValue any) error) RegistryOption {
	return &recoverOption{handle: handle}
}

func (o *recoverOption) applyToRegistry(config *registryConfig) {
	if o.handle == nil {
		config.Recover = defaultRecover
		return
	}
	config.Recover = o.handle
}

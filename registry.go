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
	"reflect"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "connectrpc.com/serverfn"

// A Registry maps paths to callables and dispatches requests to them. Each
// Registry is bound to one server transport through its Responder.
//
// Callables are registered during initialization. The registry freezes when
// Freeze is called or when it dispatches its first request; after that,
// Register fails. All methods are safe to call concurrently.
type Registry[Res any] struct {
	responder Responder[Res]
	logger    *zap.Logger
	metrics   *dispatchMetrics
	tracer    trace.Tracer
	recoverFn func(context.Context, string, any) error

	mu        sync.RWMutex
	callables map[string]Callable
	frozen    bool
}

// NewRegistry constructs an empty Registry.
func NewRegistry[Res any](responder Responder[Res], options ...RegistryOption) *Registry[Res] {
	config := registryConfig{
		Logger:         zap.NewNop(),
		TracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range options {
		opt.applyToRegistry(&config)
	}
	registry := &Registry[Res]{
		responder: responder,
		logger:    config.Logger,
		tracer:    config.TracerProvider.Tracer(tracerName),
		recoverFn: config.Recover,
		callables: make(map[string]Callable),
	}
	if config.Registerer != nil {
		metrics, err := newDispatchMetrics(config.Registerer)
		if err != nil {
			registry.logger.Warn("dispatch metrics disabled", zap.Error(err))
		}
		registry.metrics = metrics
	}
	return registry
}

// Register adds callables to the registry. Registering a path twice keeps
// the last callable. Registering a nil callable, a callable with an empty
// path, or anything after the registry has frozen is a KindRegistration
// error; callables before the offending one are still registered.
func (r *Registry[Res]) Register(callables ...Callable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, callable := range callables {
		if r.frozen {
			return Errorf(KindRegistration, "registry is frozen")
		}
		if isNilCallable(callable) {
			return Errorf(KindRegistration, "nil callable")
		}
		path := callable.Path()
		if path == "" {
			return Errorf(KindRegistration, "empty path")
		}
		if _, ok := r.callables[path]; ok {
			r.logger.Debug("replacing server function", zap.String("path", path))
		} else {
			r.logger.Debug("registered server function", zap.String("path", path))
		}
		r.callables[path] = callable
	}
	return nil
}

// isNilCallable catches typed nils, like a nil *ServerFn, as well as a nil
// interface.
func isNilCallable(callable Callable) bool {
	if callable == nil {
		return true
	}
	val := reflect.ValueOf(callable)
	switch val.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return val.IsNil()
	default:
		return false
	}
}

// MustRegister is like Register, but panics on error.
func (r *Registry[Res]) MustRegister(callables ...Callable) {
	if err := r.Register(callables...); err != nil {
		panic(err)
	}
}

// Freeze stops the registry from accepting registrations.
func (r *Registry[Res]) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Lookup returns the callable registered at path.
func (r *Registry[Res]) Lookup(path string) (Callable, bool) {
	r.mu.RLock()
	callable, ok := r.callables[path]
	r.mu.RUnlock()
	return callable, ok
}

// Paths returns the registered paths in sorted order. The returned slice is
// a copy, so it's safe for callers to modify.
func (r *Registry[Res]) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.callables))
	for path := range r.callables {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Dispatch routes a request to the callable registered at its path and
// returns the transport's response. It never fails: unknown paths get a 400
// response explaining the likely causes, and failed calls get the
// responder's internal-error response.
func (r *Registry[Res]) Dispatch(ctx context.Context, req Request) Res {
	path := req.Path()
	start := time.Now()
	ctx, span := r.tracer.Start(
		ctx,
		path,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("serverfn.path", path)),
	)
	defer span.End()

	callable, ok := r.lookupForDispatch(path)
	if !ok {
		r.logger.Warn("no server function registered", zap.String("path", path))
		span.SetStatus(codes.Error, "no server function registered")
		r.metrics.observe("", outcomeNotFound, time.Since(start))
		return r.badRoute(path)
	}
	if r.recoverFn != nil {
		callable = &recoverCallable{Callable: callable, handle: r.recoverFn}
	}
	res, err := runOnServer(ctx, callable, req, r.responder)
	if err != nil {
		r.logger.Error(
			"server function failed",
			zap.String("path", path),
			zap.Stringer("kind", KindOf(err)),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, KindOf(err).String())
		r.metrics.observe(path, outcomeError, time.Since(start))
		return res
	}
	r.metrics.observe(path, outcomeOK, time.Since(start))
	return res
}

// lookupForDispatch freezes the registry on first use.
func (r *Registry[Res]) lookupForDispatch(path string) (Callable, bool) {
	r.mu.RLock()
	frozen := r.frozen
	callable, ok := r.callables[path]
	r.mu.RUnlock()
	if !frozen {
		r.Freeze()
	}
	return callable, ok
}
